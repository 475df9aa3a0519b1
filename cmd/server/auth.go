package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Simplici0/voltquote/internal/accounts"
	"github.com/Simplici0/voltquote/internal/quotes"
)

const sessionCookieName = "voltquote_session"

type contextKey string

const sessionContextKey contextKey = "session"

// session is the signed-in user carried in the session token.
type session struct {
	UserID    string
	Name      string
	Role      accounts.Role
	CompanyID string
}

func (s session) actor() quotes.Actor {
	return quotes.Actor{UserID: s.UserID, CompanyID: s.CompanyID, Name: s.Name}
}

type sessionClaims struct {
	Name      string `json:"name"`
	Role      string `json:"role"`
	CompanyID string `json:"company_id,omitempty"`
	jwt.RegisteredClaims
}

type authService struct {
	users         *accounts.Store
	sessionSecret []byte
	ttl           time.Duration
	secureCookie  bool
	now           func() time.Time
}

// newAuthService signs sessions with secret. An empty secret gets a random
// per-process key, so development sessions do not survive a restart.
func newAuthService(users *accounts.Store, secret string, ttl time.Duration, secureCookie bool) (*authService, error) {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate session key: %w", err)
		}
	}
	return &authService{
		users:         users,
		sessionSecret: key,
		ttl:           ttl,
		secureCookie:  secureCookie,
		now:           time.Now,
	}, nil
}

func (a *authService) login(ctx context.Context, email, password string, role accounts.Role) (accounts.User, string, error) {
	user, err := a.users.Authenticate(ctx, email, password, role)
	if err != nil {
		return accounts.User{}, "", err
	}
	token, err := a.createSessionValue(user)
	if err != nil {
		return accounts.User{}, "", err
	}
	return user, token, nil
}

func (a *authService) createSessionValue(u accounts.User) (string, error) {
	now := a.now()
	claims := sessionClaims{
		Name:      u.Name,
		Role:      string(u.Role),
		CompanyID: u.CompanyID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.sessionSecret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

func (a *authService) verifySessionValue(value string) (session, bool) {
	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(value, claims, func(*jwt.Token) (any, error) {
		return a.sessionSecret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid || claims.Subject == "" {
		return session{}, false
	}
	role := accounts.Role(claims.Role)
	if !role.Valid() {
		return session{}, false
	}
	return session{UserID: claims.Subject, Name: claims.Name, Role: role, CompanyID: claims.CompanyID}, true
}

func (a *authService) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(a.ttl.Seconds()),
		HttpOnly: true,
		Secure:   a.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (a *authService) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

// sessionToken reads the session cookie, falling back to a bearer token.
func sessionToken(r *http.Request) string {
	if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// authMiddleware rejects requests without a valid session.
func (a *authService) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := sessionToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized", "sign in required")
			return
		}
		sess, ok := a.verifySessionValue(token)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized", "session is invalid or expired")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionContextKey, sess)))
	})
}

// requireRole must run after authMiddleware.
func requireRole(roles ...accounts.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, ok := sessionFrom(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "unauthorized", "sign in required")
				return
			}
			for _, role := range roles {
				if sess.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeError(w, http.StatusForbidden, "forbidden", "your role cannot access this resource")
		})
	}
}

func sessionFrom(ctx context.Context) (session, bool) {
	sess, ok := ctx.Value(sessionContextKey).(session)
	return sess, ok
}

func isInvalidCredentials(err error) bool {
	return errors.Is(err, accounts.ErrInvalidCredentials)
}
