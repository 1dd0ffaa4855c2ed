package http

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"valuta-service/internal/config"
	"valuta-service/pkg/logger"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	RoleUser  = "User"
	RoleAdmin = "Admin"
)

// Compared against when the username is unknown so both paths cost one
// bcrypt comparison.
const dummyHash = "$2a$10$7zFqzDbD3RrlkMTczbXG9OWZ0FLOXjIxXzSZ.QZxkVXjXcx7QZQiC"

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

type Claims struct {
	jwt.RegisteredClaims
	ClientID string   `json:"client_id"`
	Roles    []string `json:"roles"`
}

func (c *Claims) HasRole(roles ...string) bool {
	for _, have := range c.Roles {
		for _, want := range roles {
			if strings.EqualFold(have, want) {
				return true
			}
		}
	}
	return false
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Username  string    `json:"username"`
	Token     string    `json:"token"`
	Roles     []string  `json:"roles"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type claimsContextKey struct{}

// Authenticator issues and verifies HS256 tokens for the configured users.
type Authenticator struct {
	cfg      config.AuthConfig
	users    map[string]config.User
	log      *logger.Logger
	validate *validator.Validate
	now      func() time.Time
}

func NewAuthenticator(cfg config.AuthConfig, log *logger.Logger) *Authenticator {
	users := make(map[string]config.User, len(cfg.Users))
	for _, u := range cfg.Users {
		users[strings.ToLower(u.Username)] = u
	}

	return &Authenticator{
		cfg:      cfg,
		users:    users,
		log:      log,
		validate: validator.New(),
		now:      time.Now,
	}
}

// Authenticate checks a username/password pair.
func (a *Authenticator) Authenticate(username, password string) (config.User, error) {
	user, ok := a.users[strings.ToLower(username)]
	if !ok {
		_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(password))
		return config.User{}, ErrInvalidCredentials
	}

	if strings.HasPrefix(user.Password, "$2") {
		if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
			return config.User{}, ErrInvalidCredentials
		}
		return user, nil
	}

	if subtle.ConstantTimeCompare([]byte(user.Password), []byte(password)) != 1 {
		return config.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// IssueToken signs a token for user. The client ID is derived from the
// username so rate limits follow the user across logins.
func (a *Authenticator) IssueToken(user config.User) (string, time.Time, error) {
	now := a.now()
	expiresAt := now.Add(a.cfg.TokenTTL)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    a.cfg.Issuer,
			Subject:   user.Username,
			Audience:  jwt.ClaimStrings{a.cfg.Audience},
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
		ClientID: uuid.NewSHA1(uuid.NameSpaceOID, []byte(strings.ToLower(user.Username))).String(),
		Roles:    user.Roles,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(a.cfg.Secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

func (a *Authenticator) ParseToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(token *jwt.Token) (interface{}, error) {
			return []byte(a.cfg.Secret), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(a.cfg.Issuer),
		jwt.WithAudience(a.cfg.Audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}

func (a *Authenticator) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		writeJSON(w, a.log, http.StatusBadRequest, Response{Error: "invalid request body"})
		return
	}
	if err := a.validate.Struct(req); err != nil {
		writeJSON(w, a.log, http.StatusBadRequest, Response{Error: validationMessage(err)})
		return
	}

	user, err := a.Authenticate(req.Username, req.Password)
	if err != nil {
		a.log.Warn("Login failed", "username", req.Username)
		writeJSON(w, a.log, http.StatusUnauthorized, Response{Error: err.Error()})
		return
	}

	token, expiresAt, err := a.IssueToken(user)
	if err != nil {
		a.log.Error("Failed to issue token", "username", user.Username, "error", err)
		writeJSON(w, a.log, http.StatusInternalServerError, Response{Error: "internal server error"})
		return
	}

	a.log.Info("Login successful", "username", user.Username)
	writeJSON(w, a.log, http.StatusOK, Response{
		Success: true,
		Data: loginResponse{
			Username:  user.Username,
			Token:     token,
			Roles:     user.Roles,
			ExpiresAt: expiresAt,
		},
	})
}

// Middleware rejects requests without a valid bearer token and stores the
// claims in the request context.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		tokenString, found := strings.CutPrefix(header, "Bearer ")
		if !found || strings.TrimSpace(tokenString) == "" {
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeJSON(w, a.log, http.StatusUnauthorized, Response{Error: "missing bearer token"})
			return
		}

		claims, err := a.ParseToken(strings.TrimSpace(tokenString))
		if err != nil {
			a.log.Warn("Token rejected", "error", err, "path", r.URL.Path)
			w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
			writeJSON(w, a.log, http.StatusUnauthorized, Response{Error: ErrInvalidToken.Error()})
			return
		}

		setClientID(r.Context(), claims.ClientID)
		ctx := context.WithValue(r.Context(), claimsContextKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRoles admits requests whose claims carry at least one of roles.
func RequireRoles(log *logger.Logger, roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				writeJSON(w, log, http.StatusUnauthorized, Response{Error: "missing bearer token"})
				return
			}
			if !claims.HasRole(roles...) {
				log.Warn("Forbidden", "subject", claims.Subject, "path", r.URL.Path, "required_roles", roles)
				writeJSON(w, log, http.StatusForbidden, Response{Error: "insufficient role"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(*Claims)
	return claims, ok && claims != nil
}
