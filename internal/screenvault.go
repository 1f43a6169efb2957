package internal

import (
	"context"
	"fmt"

	"github.com/haydenm/screenvault/internal/api"
	"github.com/haydenm/screenvault/internal/database"
	"github.com/haydenm/screenvault/internal/library"
	"github.com/haydenm/screenvault/internal/movie"
	"github.com/haydenm/screenvault/internal/uploads"
	"github.com/haydenm/screenvault/internal/user"
	"github.com/haydenm/screenvault/pkg/logger"
)

var log = logger.Get("Core")

type (
	RunnableService interface {
		Run(context.Context) error
	}

	// screenVault is the top-level object for the server; it constructs the
	// stores, the library service, and the HTTP gateway once at startup and
	// wires them together explicitly.
	screenVault struct {
		config  ScreenVaultConfig
		db      database.Manager
		gateway RunnableService
	}
)

func New(config ScreenVaultConfig) (*screenVault, error) {
	admin, err := user.NewAdmin(config.Admin.Username, config.Admin.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to construct admin identity: %w", err)
	}

	files, err := uploads.NewStore(config.UploadDirPath)
	if err != nil {
		return nil, fmt.Errorf("failed to construct file storage: %w", err)
	}

	db := database.New()
	libraryService := library.New(db, movie.NewStore(), files, config.Extensions())

	gateway, err := api.NewGateway(
		&api.GatewayConfig{HostAddr: config.HostAddr()},
		libraryService,
		files,
		admin,
		[]byte(config.SessionSecret),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to construct HTTP gateway: %w", err)
	}

	return &screenVault{
		config:  config,
		db:      db,
		gateway: gateway,
	}, nil
}

// Run connects the database (creating the schema if needed) and starts the
// HTTP gateway, blocking until the context is cancelled or the gateway
// fails.
func (vault *screenVault) Run(ctx context.Context) error {
	if err := vault.db.Connect(vault.config.Database); err != nil {
		return err
	}

	log.Emit(logger.SUCCESS, "ScreenVault listening on %s\n", vault.config.HostAddr())
	return vault.gateway.Run(ctx)
}
