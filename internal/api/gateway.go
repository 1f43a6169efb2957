package api

import (
	"context"
	"net/http"
	"sync"

	"github.com/haydenm/screenvault/pkg/logger"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

var log = logger.Get("API")

type (
	GatewayConfig struct {
		HostAddr string
	}

	controller interface {
		SetRoutes(*echo.Group)
	}

	// The Gateway is a thin wrapper around the Echo HTTP router. Its sole
	// responsibility is to create the routes the application exposes and to
	// enforce the session guard where applicable.
	Gateway struct {
		config   *GatewayConfig
		ec       *echo.Echo
		sessions *sessionProvider

		moviesController controller
		adminController  controller
		authController   controller
	}
)

// NewGateway constructs the Echo router and populates it with all the routes
// defined by the various controllers. Dependencies are injected here once at
// startup; no handler reaches for process-wide state.
func NewGateway(
	config *GatewayConfig,
	library Library,
	files FileResolver,
	admin Authenticator,
	sessionSecret []byte,
) (*Gateway, error) {
	ec := echo.New()
	ec.HidePort = true
	ec.HideBanner = true

	renderer, err := newRenderer()
	if err != nil {
		return nil, err
	}
	ec.Renderer = renderer

	sessions := newSessionProvider(sessionSecret)
	gateway := &Gateway{
		config:           config,
		ec:               ec,
		sessions:         sessions,
		moviesController: newMoviesController(library, files),
		adminController:  newAdminController(library),
		authController:   newAuthController(admin, sessions),
	}

	ec.Use(middleware.Logger())
	ec.Use(middleware.Recover())

	gateway.moviesController.SetRoutes(ec.Group(""))
	gateway.authController.SetRoutes(ec.Group(""))
	gateway.adminController.SetRoutes(ec.Group("/admin", sessions.Guard))

	return gateway, nil
}

// ServeHTTP makes the gateway a plain http.Handler.
func (gateway *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	gateway.ec.ServeHTTP(w, r)
}

func (gateway *Gateway) Run(parentCtx context.Context) error {
	ctx, ctxCancel := context.WithCancelCause(parentCtx)
	wg := &sync.WaitGroup{}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := gateway.ec.Start(gateway.config.HostAddr); err != nil {
			ctxCancel(err)
		}
	}()

	go func(ec *echo.Echo) {
		<-ctx.Done()
		ec.Close()
	}(gateway.ec)

	wg.Wait()

	// Return cancellation cause if any, otherwise nil as parent context
	// cancellation is not an error case we should report.
	if cause := context.Cause(ctx); cause != ctx.Err() {
		return cause
	}

	return nil
}
