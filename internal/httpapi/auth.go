package httpapi

import (
	"context"
	"crypto/subtle"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/rr4180885/myshop2/internal/cache"
	"github.com/rr4180885/myshop2/internal/domain"
)

const (
	sessionCookieName = "shop_session"
	tokenIssuer       = "myshop"

	maxUsernameLength = 64
	maxPasswordLength = 128
)

var (
	errInvalidCredentials = errors.New("invalid username or password")
	errInvalidToken       = errors.New("invalid or expired session")
)

// dummyHash keeps the cost of a failed lookup close to a failed comparison.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcrypt.DefaultCost)

type UserStore interface {
	GetUser(ctx context.Context, id string) (*domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
	UpdateUserPassword(ctx context.Context, id string, passwordHash string) error
}

type AuthManager struct {
	secret       []byte
	tokenTTL     time.Duration
	cookieSecure bool
	users        UserStore
	revoker      cache.SessionRevoker
	now          func() time.Time
}

type sessionClaims struct {
	jwtlib.RegisteredClaims
	Username string `json:"username"`
}

func NewAuthManager(secret string, tokenTTL time.Duration, cookieSecure bool, users UserStore, revoker cache.SessionRevoker) *AuthManager {
	if tokenTTL <= 0 {
		tokenTTL = 12 * time.Hour
	}
	if revoker == nil {
		revoker = cache.NewMemoryRevoker()
	}
	return &AuthManager{
		secret:       []byte(secret),
		tokenTTL:     tokenTTL,
		cookieSecure: cookieSecure,
		users:        users,
		revoker:      revoker,
		now:          time.Now,
	}
}

// Login checks the credentials and issues a signed session token. A password
// stored in plain text from an older install is re-hashed on success.
func (a *AuthManager) Login(ctx context.Context, req domain.LoginRequest) (domain.LoginResponse, error) {
	username := strings.ToLower(strings.TrimSpace(req.Username))
	if username == "" || req.Password == "" || len(username) > maxUsernameLength || len(req.Password) > maxPasswordLength {
		return domain.LoginResponse{}, errInvalidCredentials
	}

	user, err := a.users.GetUserByUsername(ctx, username)
	if err != nil {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(req.Password))
		return domain.LoginResponse{}, errInvalidCredentials
	}

	if isPasswordHash(user.PasswordHash) {
		if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
			return domain.LoginResponse{}, errInvalidCredentials
		}
	} else {
		if user.PasswordHash == "" || subtle.ConstantTimeCompare([]byte(user.PasswordHash), []byte(req.Password)) != 1 {
			return domain.LoginResponse{}, errInvalidCredentials
		}
		if hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost); err == nil {
			if err := a.users.UpdateUserPassword(ctx, user.ID, string(hashed)); err != nil {
				log.Printf("[auth] WARN: failed to upgrade legacy password for %s: %v", user.Username, err)
			}
		}
	}

	expiresAt := a.now().UTC().Add(a.tokenTTL)
	token, err := a.sign(user, expiresAt)
	if err != nil {
		return domain.LoginResponse{}, err
	}

	return domain.LoginResponse{
		ID:          user.ID,
		Username:    user.Username,
		AccessToken: token,
		ExpiresAt:   expiresAt.Format(time.RFC3339),
	}, nil
}

func (a *AuthManager) ParseToken(ctx context.Context, tokenStr string) (domain.Actor, error) {
	claims := &sessionClaims{}
	token, err := jwtlib.ParseWithClaims(tokenStr, claims, func(t *jwtlib.Token) (interface{}, error) {
		return a.secret, nil
	},
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithIssuer(tokenIssuer),
		jwtlib.WithExpirationRequired(),
		jwtlib.WithTimeFunc(a.now),
	)
	if err != nil || !token.Valid {
		return domain.Actor{}, errInvalidToken
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" || claims.ID == "" {
		return domain.Actor{}, errInvalidToken
	}

	revoked, err := a.revoker.IsRevoked(ctx, claims.ID)
	if err != nil {
		return domain.Actor{}, err
	}
	if revoked {
		return domain.Actor{}, errInvalidToken
	}

	return domain.Actor{
		UserID:    sub,
		Username:  claims.Username,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Logout revokes the token until it would have expired on its own.
func (a *AuthManager) Logout(ctx context.Context, actor domain.Actor) error {
	return a.revoker.Revoke(ctx, actor.TokenID, actor.ExpiresAt)
}

func (a *AuthManager) CurrentUser(ctx context.Context, actor domain.Actor) (*domain.User, error) {
	return a.users.GetUser(ctx, actor.UserID)
}

func (a *AuthManager) sign(user *domain.User, expiresAt time.Time) (string, error) {
	claims := sessionClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID,
			IssuedAt:  jwtlib.NewNumericDate(a.now().UTC()),
			ExpiresAt: jwtlib.NewNumericDate(expiresAt),
			Issuer:    tokenIssuer,
		},
		Username: user.Username,
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

func (a *AuthManager) sessionCookie(token string) *http.Cookie {
	return &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(a.tokenTTL.Seconds()),
		HttpOnly: true,
		Secure:   a.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (a *AuthManager) clearedCookie() *http.Cookie {
	return &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}

type tokenSource int

const (
	tokenNone tokenSource = iota
	tokenBearer
	tokenCookie
)

// sessionToken prefers an Authorization header over the session cookie.
func sessionToken(r *http.Request) (string, tokenSource) {
	authorization := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(authorization), "bearer ") {
		return strings.TrimSpace(authorization[len("Bearer "):]), tokenBearer
	}
	if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value, tokenCookie
	}
	return "", tokenNone
}

func isPasswordHash(value string) bool {
	return strings.HasPrefix(value, "$2a$") || strings.HasPrefix(value, "$2b$") || strings.HasPrefix(value, "$2y$")
}
