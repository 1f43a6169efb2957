package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type (
	Authenticator interface {
		Authenticate(username string, rawPassword string) error
	}

	// authController implements the login/logout flow. Logout is the only
	// route here which requires an existing session.
	authController struct {
		admin    Authenticator
		sessions *sessionProvider
	}
)

func newAuthController(admin Authenticator, sessions *sessionProvider) *authController {
	return &authController{admin: admin, sessions: sessions}
}

func (controller *authController) SetRoutes(eg *echo.Group) {
	eg.GET("/login", controller.loginForm)
	eg.POST("/login", controller.login)
	eg.GET("/logout", controller.logout, controller.sessions.Guard)
}

func (controller *authController) loginForm(ec echo.Context) error {
	return ec.Render(http.StatusOK, "login.html", pageData{
		Title: "Login",
		Flash: popFlash(ec),
	})
}

// login checks the submitted credential against the single admin identity.
// A rejection never reveals which of the two values was wrong.
func (controller *authController) login(ec echo.Context) error {
	username := ec.FormValue("username")
	password := ec.FormValue("password")

	if err := controller.admin.Authenticate(username, password); err != nil {
		log.Warnf("Failed login attempt for username '%s'\n", username)
		setFlash(ec, flashError, "Invalid credentials")
		return ec.Redirect(http.StatusSeeOther, "/login")
	}

	if err := controller.sessions.Issue(ec, username); err != nil {
		return err
	}

	return ec.Redirect(http.StatusSeeOther, "/admin")
}

func (controller *authController) logout(ec echo.Context) error {
	controller.sessions.Revoke(ec)
	return ec.Redirect(http.StatusSeeOther, "/login")
}
