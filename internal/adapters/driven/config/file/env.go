package file

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/ledgersync/internal/core/domain"
)

// Environment variables read by applyEnv.
const (
	EnvClientID     = "CLIENT_ID"
	EnvClientSecret = "CLIENT_SECRET"
	EnvRedirectURI  = "REDIRECT_URI"
	EnvTenantID     = "TENANT_ID"

	EnvDBHost     = "DB_HOST"
	EnvDBPort     = "DB_PORT"
	EnvDBName     = "DB_NAME"
	EnvDBUser     = "DB_USER"
	EnvDBPassword = "DB_PASSWORD"
	EnvDBSSLMode  = "DB_SSLMODE"
)

// LoadEnvFile loads variables from a .env file. A missing file is ignored.
// Variables already present in the environment win.
func LoadEnvFile(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

func applyEnv(s *domain.Settings) {
	setString(&s.OAuth.ClientID, os.Getenv(EnvClientID))
	setString(&s.OAuth.ClientSecret, os.Getenv(EnvClientSecret))
	setString(&s.OAuth.RedirectURI, os.Getenv(EnvRedirectURI))
	setString(&s.API.TenantID, os.Getenv(EnvTenantID))

	if host := os.Getenv(EnvDBHost); host != "" && s.Sinks.Store.DSN == "" {
		db := DatabaseConfig{
			Host:     host,
			Port:     getEnv(EnvDBPort, "5432"),
			User:     getEnv(EnvDBUser, "postgres"),
			Password: getEnv(EnvDBPassword, ""),
			Name:     getEnv(EnvDBName, "postgres"),
			SSLMode:  getEnv(EnvDBSSLMode, "require"),
		}
		s.Sinks.Store.Driver = domain.DriverPostgres
		s.Sinks.Store.DSN = db.ConnectionString()
	}
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// ConnectionString renders a lib/pq keyword DSN.
func (c *DatabaseConfig) ConnectionString() string {
	dsn := "host=" + c.Host +
		" port=" + c.Port +
		" user=" + c.User +
		" dbname=" + c.Name +
		" sslmode=" + c.SSLMode
	if c.Password != "" {
		dsn += " password=" + c.Password
	}
	return dsn
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
