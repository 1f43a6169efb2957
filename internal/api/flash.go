package api

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

const (
	flashCookieName = "flash"

	flashSuccess = "success"
	flashError   = "error"
)

// flash is a one-shot status message: set on a redirect, shown on the next
// rendered page, and cleared in the same response that shows it.
type flash struct {
	Level   string
	Message string
}

func setFlash(ec echo.Context, level string, message string) {
	ec.SetCookie(&http.Cookie{
		Name:     flashCookieName,
		Value:    url.QueryEscape(level + "|" + message),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// popFlash reads the pending flash message (if any) and expires its cookie
// so it only ever renders once.
func popFlash(ec echo.Context) *flash {
	cookie, err := ec.Cookie(flashCookieName)
	if err != nil || cookie == nil || cookie.Value == "" {
		return nil
	}

	ec.SetCookie(&http.Cookie{
		Name:     flashCookieName,
		Value:    "",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	decoded, err := url.QueryUnescape(cookie.Value)
	if err != nil {
		return nil
	}

	level, message, found := strings.Cut(decoded, "|")
	if !found {
		return &flash{Level: flashError, Message: decoded}
	}

	return &flash{Level: level, Message: message}
}
