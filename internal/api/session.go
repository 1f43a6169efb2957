package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/haydenm/screenvault/pkg/sync"
	"github.com/labstack/echo/v4"
)

const (
	SessionTokenCookieName = "session-token"
	SessionTokenLifespan   = time.Hour * 24
)

var (
	ErrSessionTokenMissing = errors.New("request does not contain a session token in cookies")
	ErrSessionTokenRevoked = errors.New("session token has been revoked")
)

type (
	sessionClaims struct {
		jwt.RegisteredClaims
		Username string `json:"username"`
	}

	// sessionProvider issues and validates the signed session cookie which
	// proves the browser has authenticated as the administrator. Revoked
	// tokens are tracked (until they would have expired anyway) so a logout
	// cannot be undone by replaying the old cookie.
	sessionProvider struct {
		secret  []byte
		revoked *sync.TypedSyncMap[string, time.Time]
	}
)

func newSessionProvider(secret []byte) *sessionProvider {
	return &sessionProvider{
		secret:  secret,
		revoked: new(sync.TypedSyncMap[string, time.Time]),
	}
}

// Issue signs a fresh session token for the given username and stores it in
// the response cookies.
func (sessions *sessionProvider) Issue(ec echo.Context, username string) error {
	expiry := time.Now().Add(SessionTokenLifespan)
	claims := &sessionClaims{
		Username:         username,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(expiry)},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(sessions.secret)
	if err != nil {
		return err
	}

	ec.SetCookie(createTokenCookie(SessionTokenCookieName, "/", token, expiry))
	return nil
}

// Revoke blacklists the session token in this request's cookies (if any)
// and expires the cookie in the response.
func (sessions *sessionProvider) Revoke(ec echo.Context) {
	if cookie, err := ec.Cookie(SessionTokenCookieName); err == nil && cookie != nil {
		sessions.revoked.Store(cookie.Value, time.Now().Add(SessionTokenLifespan))
	}

	ec.SetCookie(expiredTokenCookie(SessionTokenCookieName, "/"))
	sessions.cleanupRevoked()
}

// Validate ensures that the request carries a session token which is:
//   - signed using the same secret/algorithm as we expect
//   - not expired
//   - not revoked
//
// On success the authenticated username is returned.
func (sessions *sessionProvider) Validate(ec echo.Context) (string, error) {
	cookie, err := ec.Cookie(SessionTokenCookieName)
	if err != nil || cookie == nil {
		return "", ErrSessionTokenMissing
	}

	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(
		cookie.Value,
		claims,
		func(token *jwt.Token) (interface{}, error) { return sessions.secret, nil },
	)
	if err != nil || token == nil || !token.Valid {
		return "", errors.New("session token is expired or invalid")
	}

	if _, ok := sessions.revoked.Load(cookie.Value); ok {
		return "", ErrSessionTokenRevoked
	}

	return claims.Username, nil
}

// Guard is the middleware applied to the admin surface. A request without a
// valid session is bounced to the login page rather than erroring.
func (sessions *sessionProvider) Guard(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ec echo.Context) error {
		if _, err := sessions.Validate(ec); err != nil {
			log.Debugf("Rejecting request to %s: %v\n", ec.Request().URL.Path, err)
			return ec.Redirect(http.StatusSeeOther, "/login")
		}

		return next(ec)
	}
}

// cleanupRevoked drops revocation entries for tokens which have outlived
// their own expiry; validation would reject them regardless.
func (sessions *sessionProvider) cleanupRevoked() {
	now := time.Now()
	sessions.revoked.Range(func(token string, expiry time.Time) bool {
		if now.After(expiry) {
			sessions.revoked.Delete(token)
		}

		return true
	})
}

func createTokenCookie(name string, path string, token string, expiry time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    token,
		Expires:  expiry,
		Path:     path,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

func expiredTokenCookie(name string, path string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		Path:     path,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}
