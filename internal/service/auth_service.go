package service

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"cuestionarios/internal/model"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// AuthConfig configures token issuing
type AuthConfig struct {
	StaffUsername string
	StaffPassword string
	JWTSecret     string
	StaffTokenTTL time.Duration
	UserTokenTTL  time.Duration
}

// AuthService handles staff and candidate authentication
type AuthService struct {
	staffUsername string
	staffPassword string
	jwtSecret     []byte
	staffTTL      time.Duration
	userTTL       time.Duration
}

// NewAuthService creates a new auth service
func NewAuthService(cfg AuthConfig) *AuthService {
	if cfg.StaffTokenTTL <= 0 {
		cfg.StaffTokenTTL = 12 * time.Hour
	}
	if cfg.UserTokenTTL <= 0 {
		cfg.UserTokenTTL = 24 * time.Hour
	}
	return &AuthService{
		staffUsername: cfg.StaffUsername,
		staffPassword: cfg.StaffPassword,
		jwtSecret:     []byte(cfg.JWTSecret),
		staffTTL:      cfg.StaffTokenTTL,
		userTTL:       cfg.UserTokenTTL,
	}
}

// Login validates staff credentials and returns a token
func (s *AuthService) Login(username, password string) (*model.LoginResponse, error) {
	if s.staffUsername == "" || !equalSecret(username, s.staffUsername) || !equalSecret(password, s.staffPassword) {
		return nil, ErrInvalidCredentials
	}

	staffID := "staff_" + uuid.New().String()[:8]
	now := time.Now()
	claims := &model.StaffClaims{
		StaffID: staffID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   staffID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.staffTTL)),
		},
	}

	tokenString, err := s.sign(claims)
	if err != nil {
		return nil, err
	}
	return &model.LoginResponse{Token: tokenString, StaffID: staffID}, nil
}

// ValidateStaffToken validates a staff JWT and returns claims
func (s *AuthService) ValidateStaffToken(tokenString string) (*model.StaffClaims, error) {
	claims := &model.StaffClaims{}
	if err := s.parse(tokenString, claims); err != nil {
		return nil, err
	}
	if claims.StaffID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// GenerateUserToken creates a token scoped to one candidate
func (s *AuthService) GenerateUserToken(usuario int) (*model.UserTokenResponse, error) {
	if usuario <= 0 {
		return nil, fmt.Errorf("invalid usuario %d", usuario)
	}
	now := time.Now()
	claims := &model.UserClaims{
		Usuario: usuario,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.userTTL)),
		},
	}

	tokenString, err := s.sign(claims)
	if err != nil {
		return nil, err
	}
	return &model.UserTokenResponse{Token: tokenString, Usuario: usuario}, nil
}

// ValidateUserToken validates a candidate JWT and returns claims
func (s *AuthService) ValidateUserToken(tokenString string) (*model.UserClaims, error) {
	claims := &model.UserClaims{}
	if err := s.parse(tokenString, claims); err != nil {
		return nil, err
	}
	if claims.Usuario <= 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *AuthService) sign(claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

func (s *AuthService) parse(tokenString string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return ErrInvalidToken
	}
	return nil
}

func equalSecret(got, want string) bool {
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
