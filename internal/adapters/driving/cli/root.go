// Package cli implements the ledgersync command line.
//
// Commands talk to the core only through driving ports. The composition
// root supplies them through a Bootstrapper, which runs after flags are
// parsed so --config can select the settings file.
package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ledgersync/internal/core/domain"
	"github.com/custodia-labs/ledgersync/internal/core/ports/driving"
	"github.com/custodia-labs/ledgersync/internal/logger"
)

// version is set at build time.
var version = "dev"

// Services are the driving ports used by the commands.
type Services struct {
	Token   driving.TokenService
	Export  driving.ExportService
	Tenants driving.TenantService

	// DryRun exports into memory without touching any configured sink.
	DryRun driving.ExportService

	// RedirectURI is where the login callback is served.
	RedirectURI string

	// Resources is the effective resource catalogue.
	Resources []domain.Resource

	// Close releases sinks and connections.
	Close func() error
}

// Options are passed to the Bootstrapper.
type Options struct {
	// Context is cancelled when the command is interrupted.
	Context context.Context

	ConfigPath string

	// ReadSecret prompts for the client secret when none is configured.
	// Only set for interactive login.
	ReadSecret func() (string, error)
}

// Bootstrapper builds the services from the parsed global flags.
type Bootstrapper func(opts Options) (*Services, error)

var (
	bootstrap Bootstrapper
	services  *Services

	verbose    bool
	configPath string
)

var errNotConfigured = errors.New("services not configured")

var rootCmd = &cobra.Command{
	Use:   "ledgersync",
	Short: "Export accounting data into CSV files and SQL tables",
	Long: `ledgersync authorises against an accounting API, pages through its
collection endpoints and writes every resource as flat, related tables to
CSV files and/or a SQLite or PostgreSQL database.

Examples:
  ledgersync auth login
  ledgersync tenants
  ledgersync export
  ledgersync export Invoices Contacts --dry-run`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentPreRunE = setup
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Print debug and progress logs")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Settings file (default ~/.ledgersync/config.toml)")
}

// Execute runs the command line with the given build version.
func Execute(ctx context.Context, b Bootstrapper, v string) error {
	bootstrap = b
	if v != "" {
		version = v
	}
	err := rootCmd.ExecuteContext(ctx)
	if cerr := teardown(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// needsServices reports whether cmd talks to the core.
func needsServices(cmd *cobra.Command) bool {
	return cmd != versionCmd && cmd != rootCmd
}

func setup(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)
	if services != nil || bootstrap == nil || !needsServices(cmd) {
		return nil
	}

	opts := Options{Context: cmd.Context(), ConfigPath: configPath}
	if cmd == authLoginCmd {
		opts.ReadSecret = promptSecret(cmd)
	}
	s, err := bootstrap(opts)
	if err != nil {
		return err
	}
	services = s
	return nil
}

func teardown() error {
	if services == nil || services.Close == nil {
		return nil
	}
	return services.Close()
}

// requireServices returns the injected services or an error.
func requireServices() (*Services, error) {
	if services == nil {
		return nil, errNotConfigured
	}
	return services, nil
}
