package internal

import (
	"fmt"
	"net"
	"strings"

	"github.com/haydenm/screenvault/internal/database"
	"github.com/ilyakaznacheev/cleanenv"
)

type (
	// ScreenVaultConfig is the user supplied configuration, read once at
	// startup from a YAML file and/or the environment. Nothing in here is
	// runtime-reloadable.
	ScreenVaultConfig struct {
		Host              string                  `yaml:"host" env:"HOST_ADDR" env-default:"0.0.0.0"`
		Port              string                  `yaml:"port" env:"HOST_PORT" env-default:"8080"`
		SessionSecret     string                  `yaml:"session_secret" env:"SESSION_SECRET" env-required:"true"`
		UploadDirPath     string                  `yaml:"upload_dir" env:"UPLOAD_DIR" env-default:"uploads"`
		AllowedExtensions string                  `yaml:"allowed_extensions" env:"ALLOWED_EXTENSIONS" env-default:"mp4,mkv,mov,srt"`
		Database          database.DatabaseConfig `yaml:"database"`
		Admin             AdminConfig             `yaml:"admin"`
	}

	// AdminConfig holds the single administrative credential. The password
	// is only ever held hashed once the identity is constructed; the raw
	// value must come from the environment or config file, never the binary.
	AdminConfig struct {
		Username string `yaml:"username" env:"ADMIN_USERNAME" env-default:"admin"`
		Password string `yaml:"password" env:"ADMIN_PASSWORD" env-required:"true"`
	}
)

// LoadFromFile reads a YAML config file in to the receiver, applying
// environment variable overrides on top.
func (config *ScreenVaultConfig) LoadFromFile(configPath string) error {
	if err := cleanenv.ReadConfig(configPath, config); err != nil {
		return fmt.Errorf("failed to load configuration from %s: %w", configPath, err)
	}

	return nil
}

// LoadFromEnv populates the receiver from the environment alone.
func (config *ScreenVaultConfig) LoadFromEnv() error {
	if err := cleanenv.ReadEnv(config); err != nil {
		return fmt.Errorf("failed to load configuration from environment: %w", err)
	}

	return nil
}

func (config *ScreenVaultConfig) HostAddr() string {
	return net.JoinHostPort(config.Host, config.Port)
}

// Extensions returns the allow-list as a normalized (lowercase, trimmed)
// slice of extensions without leading dots.
func (config *ScreenVaultConfig) Extensions() []string {
	parts := strings.Split(config.AllowedExtensions, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		ext := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(part), "."))
		if ext != "" {
			out = append(out, ext)
		}
	}

	return out
}
