package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/wolfman30/vetcare-platform/internal/apperr"
	"github.com/wolfman30/vetcare-platform/internal/auth"
)

// Claims is the token shape issued by the identity provider. The role may
// sit at the top level or under app_metadata.
type Claims struct {
	Role        string `json:"role"`
	AppMetadata struct {
		Role string `json:"role"`
	} `json:"app_metadata"`
	jwt.RegisteredClaims
}

func (c Claims) principal() (auth.Principal, bool) {
	role := auth.ParseRole(c.AppMetadata.Role)
	if role == "" {
		role = auth.ParseRole(c.Role)
	}
	p := auth.Principal{UserID: strings.TrimSpace(c.Subject), Role: role}
	return p, p.UserID != "" && p.Role != ""
}

// Authenticate verifies an HMAC-signed bearer token and stores the caller in
// the request context. With required=false anonymous requests pass through,
// but a malformed token is still rejected.
func Authenticate(secret string, required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				if required {
					unauthorized(w, "missing authorization header")
					return
				}
				next.ServeHTTP(w, r)
				return
			}
			if secret == "" {
				unauthorized(w, "auth disabled")
				return
			}
			if !strings.HasPrefix(header, "Bearer ") {
				unauthorized(w, "invalid authorization header")
				return
			}
			claims := Claims{}
			token, err := jwt.ParseWithClaims(strings.TrimPrefix(header, "Bearer "), &claims, func(token *jwt.Token) (any, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				unauthorized(w, "invalid token")
				return
			}
			p, ok := claims.principal()
			if !ok {
				unauthorized(w, "token missing subject or role")
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), p)))
		})
	}
}

// RequireRole rejects callers whose role is not listed.
func RequireRole(roles ...auth.Role) func(http.Handler) http.Handler {
	allowed := make(map[auth.Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := auth.Require(r.Context())
			if err != nil {
				apperr.WriteJSON(w, err)
				return
			}
			if _, ok := allowed[p.Role]; !ok {
				apperr.WriteJSON(w, apperr.Forbidden("role %s may not access this resource", p.Role))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"` + msg + `"}`))
}
