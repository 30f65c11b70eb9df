package domain

import (
	"fmt"
	"strings"
	"time"
)

// Default endpoints and limits.
const (
	DefaultAuthURL        = "https://login.xero.com/identity/connect/authorize"
	DefaultTokenURL       = "https://identity.xero.com/connect/token"
	DefaultBaseURL        = "https://api.xero.com/api.xro/2.0"
	DefaultConnectionsURL = "https://api.xero.com/connections"
	DefaultRedirectURI    = "http://localhost:5000/callback"

	DefaultRequestsPerSecond   = 1.0
	DefaultMaxRateLimitRetries = 5
	DefaultRetryAfter          = 5 * time.Second
	DefaultRequestTimeout      = 30 * time.Second
)

// DefaultScopes are requested when none are configured.
var DefaultScopes = []string{
	"offline_access",
	"accounting.transactions.read",
	"accounting.contacts.read",
	"accounting.settings.read",
	"accounting.reports.read",
	"accounting.journals.read",
}

// TransportErrorPolicy decides what a failed page does to its resource.
type TransportErrorPolicy string

// Transport error policies.
const (
	// PolicyTruncate keeps the pages fetched so far and continues.
	PolicyTruncate TransportErrorPolicy = "truncate"

	// PolicyFail fails the whole resource.
	PolicyFail TransportErrorPolicy = "fail"
)

// IsValid returns true if the policy is recognised.
func (p TransportErrorPolicy) IsValid() bool {
	return p == PolicyTruncate || p == PolicyFail
}

// StoreDriver names a relational store backend.
type StoreDriver string

// Supported store drivers.
const (
	DriverSQLite   StoreDriver = "sqlite"
	DriverPostgres StoreDriver = "postgres"
)

// IsValid returns true if the driver is supported.
func (d StoreDriver) IsValid() bool {
	return d == DriverSQLite || d == DriverPostgres
}

// OAuthSettings configures the authorisation server.
type OAuthSettings struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	AuthURL      string
	TokenURL     string
	Scopes       []string
}

// APISettings configures the collection API client.
type APISettings struct {
	BaseURL        string
	ConnectionsURL string

	// TenantID scopes every request. Empty selects the first organisation.
	TenantID string

	RequestsPerSecond   float64
	MaxRateLimitRetries int
	DefaultRetryAfter   time.Duration
	Timeout             time.Duration

	// ModifiedSinceParam sends the modified-since filter as this query
	// parameter. Empty sends the If-Modified-Since header instead.
	ModifiedSinceParam string
}

// CredentialSettings configures credential persistence.
type CredentialSettings struct {
	Path          string
	RefreshBuffer time.Duration
}

// ExportSettings configures a run.
type ExportSettings struct {
	// ModifiedSince applies to resources that do not set their own filter.
	ModifiedSince string

	OnTransportError TransportErrorPolicy
}

// CSVSinkSettings configures the delimited file sink.
type CSVSinkSettings struct {
	Enabled bool
	Dir     string
}

// StoreSinkSettings configures the relational store sink.
type StoreSinkSettings struct {
	Enabled bool
	Driver  StoreDriver
	DSN     string

	// DisableRLS turns row level security off on tables this tool creates.
	DisableRLS bool
}

// SinkSettings groups every sink.
type SinkSettings struct {
	CSV   CSVSinkSettings
	Store StoreSinkSettings
}

// Settings is the explicit configuration handed to every component.
type Settings struct {
	OAuth       OAuthSettings
	API         APISettings
	Credentials CredentialSettings
	Export      ExportSettings
	Sinks       SinkSettings
	Resources   []Resource
}

// DefaultSettings returns settings with every default applied.
func DefaultSettings() Settings {
	return Settings{
		OAuth: OAuthSettings{
			RedirectURI: DefaultRedirectURI,
			AuthURL:     DefaultAuthURL,
			TokenURL:    DefaultTokenURL,
			Scopes:      append([]string(nil), DefaultScopes...),
		},
		API: APISettings{
			BaseURL:             DefaultBaseURL,
			ConnectionsURL:      DefaultConnectionsURL,
			RequestsPerSecond:   DefaultRequestsPerSecond,
			MaxRateLimitRetries: DefaultMaxRateLimitRetries,
			DefaultRetryAfter:   DefaultRetryAfter,
			Timeout:             DefaultRequestTimeout,
		},
		Credentials: CredentialSettings{
			RefreshBuffer: DefaultRefreshBuffer,
		},
		Export: ExportSettings{
			OnTransportError: PolicyTruncate,
		},
		Sinks: SinkSettings{
			CSV: CSVSinkSettings{Enabled: true, Dir: "exports"},
		},
	}
}

// Resource returns the configured resource with the given name, case-insensitively.
func (s Settings) Resource(name string) (Resource, bool) {
	for _, r := range s.Resources {
		if strings.EqualFold(r.Name, name) {
			return r, true
		}
	}
	return Resource{}, false
}

// Validate checks the settings needed for an export run.
func (s Settings) Validate() error {
	if s.OAuth.ClientID == "" {
		return fmt.Errorf("%w: oauth client_id is required", ErrInvalidInput)
	}
	if s.API.BaseURL == "" {
		return fmt.Errorf("%w: api base_url is required", ErrInvalidInput)
	}
	if s.API.RequestsPerSecond < 0 {
		return fmt.Errorf("%w: api requests_per_second must not be negative", ErrInvalidInput)
	}
	if s.API.MaxRateLimitRetries < 0 {
		return fmt.Errorf("%w: api max_rate_limit_retries must not be negative", ErrInvalidInput)
	}
	if !s.Export.OnTransportError.IsValid() {
		return fmt.Errorf("%w: unknown on_transport_error %q", ErrInvalidInput, s.Export.OnTransportError)
	}
	if s.Sinks.CSV.Enabled && s.Sinks.CSV.Dir == "" {
		return fmt.Errorf("%w: sinks.csv dir is required", ErrInvalidInput)
	}
	if s.Sinks.Store.Enabled {
		if !s.Sinks.Store.Driver.IsValid() {
			return fmt.Errorf("%w: unsupported store driver %q", ErrInvalidInput, s.Sinks.Store.Driver)
		}
		if s.Sinks.Store.DSN == "" {
			return fmt.Errorf("%w: sinks.store dsn is required", ErrInvalidInput)
		}
	}
	seen := make(map[string]bool, len(s.Resources))
	for _, r := range s.Resources {
		if err := r.Validate(); err != nil {
			return err
		}
		key := strings.ToLower(r.Name)
		if seen[key] {
			return fmt.Errorf("%w: duplicate resource %s", ErrInvalidInput, r.Name)
		}
		seen[key] = true
	}
	return nil
}
