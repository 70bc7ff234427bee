package model

import "github.com/golang-jwt/jwt/v5"

// StaffClaims are JWT claims for agency staff
type StaffClaims struct {
	StaffID string `json:"staffId"`
	jwt.RegisteredClaims
}

// UserClaims are JWT claims for a candidate answering questionnaires
type UserClaims struct {
	Usuario int `json:"usuario"`
	jwt.RegisteredClaims
}

// LoginRequest is the request body for staff login
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is returned after successful login
type LoginResponse struct {
	Token   string `json:"token"`
	StaffID string `json:"staffId"`
}

// UserTokenResponse is returned when staff issues a candidate token
type UserTokenResponse struct {
	Token   string `json:"token"`
	Usuario int    `json:"usuario"`
}
