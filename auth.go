package bankadmin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

const (
	SessionCookie = "session"
	LoginPath     = "/auth/login"
)

type ctxKey int

const adminCtxKey ctxKey = iota

// AdminFromContext returns the username of the authenticated admin, if any.
func AdminFromContext(ctx context.Context) string {
	username, _ := ctx.Value(adminCtxKey).(string)
	return username
}

type SessionClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

type Session struct {
	Token     string    `json:"-"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expires_at"`
}

type Authenticator struct {
	repo   Repository
	secret []byte
	ttl    time.Duration
	cost   int
	log    *zerolog.Logger
	now    func() time.Time
}

func NewAuthenticator(repo Repository, secret string, ttl time.Duration, log *zerolog.Logger) (*Authenticator, error) {
	if secret == "" {
		return nil, errors.New("session secret is required")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Authenticator{
		repo:   repo,
		secret: []byte(secret),
		ttl:    ttl,
		cost:   bcrypt.DefaultCost,
		log:    log,
		now:    time.Now,
	}, nil
}

// EnsureAdmin creates the bootstrap admin when no admin exists yet.
func (a *Authenticator) EnsureAdmin(ctx context.Context, username, password string) error {
	n, err := a.repo.CountAdmins(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	if username == "" || password == "" {
		return errors.New("no admin exists and bootstrap credentials are empty")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	if err = a.repo.CreateAdmin(ctx, Admin{Username: username, PasswordHash: string(hash)}); err != nil {
		return err
	}
	a.log.Warn().
		Str("username", username).
		Msg("default admin created, change its password")
	return nil
}

func (a *Authenticator) Login(ctx context.Context, username, password string) (*Session, error) {
	admin, err := a.repo.GetAdmin(ctx, username)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	if err = bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		return nil, ErrUnauthorized
	}
	return a.IssueToken(admin.Username)
}

func (a *Authenticator) IssueToken(username string) (*Session, error) {
	now := a.now()
	exp := now.Add(a.ttl)
	claims := &SessionClaims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return nil, fmt.Errorf("sign session: %w", err)
	}
	return &Session{Token: token, Username: username, ExpiresAt: exp}, nil
}

func (a *Authenticator) Verify(token string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(a.now))
	if err != nil {
		return nil, err
	}
	if !parsed.Valid || claims.Username == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

// RequireSession redirects requests without a valid session to the login page.
func (a *Authenticator) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := ""
		if c, err := r.Cookie(SessionCookie); err == nil {
			token = c.Value
		}
		if token == "" {
			if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
				token = strings.TrimPrefix(h, "Bearer ")
			}
		}
		if token == "" {
			http.Redirect(w, r, LoginPath, http.StatusSeeOther)
			return
		}

		claims, err := a.Verify(token)
		if err != nil {
			a.log.Debug().Err(err).Str("path", r.URL.Path).Msg("rejected session")
			http.Redirect(w, r, LoginPath, http.StatusSeeOther)
			return
		}

		ctx := context.WithValue(r.Context(), adminCtxKey, claims.Username)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *Authenticator) sessionCookie(s *Session) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookie,
		Value:    s.Token,
		Path:     "/",
		Expires:  s.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}
