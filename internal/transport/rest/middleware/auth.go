package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"cuestionarios/internal/service"
)

type contextKey string

const (
	StaffIDKey contextKey = "staffId"
	UsuarioKey contextKey = "usuario"
)

// ServiceStaffID identifies calls made with the static service token
const ServiceStaffID = "service"

// AuthMiddleware provides JWT authentication middleware
type AuthMiddleware struct {
	authSvc      *service.AuthService
	serviceToken string
}

// NewAuthMiddleware creates a new auth middleware. A non-empty serviceToken is
// accepted as a staff credential for server-to-server calls.
func NewAuthMiddleware(authSvc *service.AuthService, serviceToken string) *AuthMiddleware {
	return &AuthMiddleware{authSvc: authSvc, serviceToken: serviceToken}
}

// RequireStaff validates a staff JWT from the Authorization header
func (m *AuthMiddleware) RequireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractBearerToken(r)
		if token == "" {
			http.Error(w, `{"error":"missing authorization header"}`, http.StatusUnauthorized)
			return
		}

		staffID, ok := m.staff(token)
		if !ok {
			http.Error(w, `{"error":"invalid or expired token"}`, http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), StaffIDKey, staffID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireCaller accepts a staff token or a candidate token. Candidate calls
// carry their usuario in the context so handlers can scope them.
func (m *AuthMiddleware) RequireCaller(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractBearerToken(r)
		if token == "" {
			// Try query param for WebSocket
			token = r.URL.Query().Get("token")
		}
		if token == "" {
			http.Error(w, `{"error":"missing authorization"}`, http.StatusUnauthorized)
			return
		}

		ctx, ok := m.Authenticate(r.Context(), token)
		if !ok {
			http.Error(w, `{"error":"invalid or expired token"}`, http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Authenticate resolves a token into caller identity stored on ctx
func (m *AuthMiddleware) Authenticate(ctx context.Context, token string) (context.Context, bool) {
	if staffID, ok := m.staff(token); ok {
		return context.WithValue(ctx, StaffIDKey, staffID), true
	}
	claims, err := m.authSvc.ValidateUserToken(token)
	if err != nil {
		return ctx, false
	}
	return context.WithValue(ctx, UsuarioKey, claims.Usuario), true
}

func (m *AuthMiddleware) staff(token string) (string, bool) {
	if m.serviceToken != "" && subtle.ConstantTimeCompare([]byte(token), []byte(m.serviceToken)) == 1 {
		return ServiceStaffID, true
	}
	claims, err := m.authSvc.ValidateStaffToken(token)
	if err != nil {
		return "", false
	}
	return claims.StaffID, true
}

// GetStaffID extracts staff ID from context
func GetStaffID(ctx context.Context) string {
	if v := ctx.Value(StaffIDKey); v != nil {
		return v.(string)
	}
	return ""
}

// GetUsuario extracts the candidate usuario from context, 0 for staff
func GetUsuario(ctx context.Context) int {
	if v := ctx.Value(UsuarioKey); v != nil {
		return v.(int)
	}
	return 0
}

// CanActFor reports whether the caller may read or write usuario's records
func CanActFor(ctx context.Context, usuario int) bool {
	if GetStaffID(ctx) != "" {
		return true
	}
	u := GetUsuario(ctx)
	return u != 0 && u == usuario
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}
