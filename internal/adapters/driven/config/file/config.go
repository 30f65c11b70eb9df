package file

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/ledgersync/internal/core/domain"
)

// DefaultFileName is the settings file looked up in the config directory.
const DefaultFileName = "config.toml"

// DefaultPath returns ~/.ledgersync/config.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".ledgersync", DefaultFileName), nil
}

// Duration is a time.Duration written as a string such as "5m".
type Duration time.Duration

// UnmarshalText parses a Go duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	*d = Duration(v)
	return nil
}

// MarshalText renders the duration.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// fileConfig mirrors the TOML layout. Pointers mark values that override a
// non-zero default.
type fileConfig struct {
	OAuth struct {
		ClientID     string   `toml:"client_id"`
		ClientSecret string   `toml:"client_secret"`
		RedirectURI  string   `toml:"redirect_uri"`
		AuthURL      string   `toml:"auth_url"`
		TokenURL     string   `toml:"token_url"`
		Scopes       []string `toml:"scopes"`
	} `toml:"oauth"`

	API struct {
		BaseURL             string    `toml:"base_url"`
		ConnectionsURL      string    `toml:"connections_url"`
		TenantID            string    `toml:"tenant_id"`
		RequestsPerSecond   *float64  `toml:"requests_per_second"`
		MaxRateLimitRetries *int      `toml:"max_rate_limit_retries"`
		RetryAfter          *Duration `toml:"retry_after"`
		Timeout             *Duration `toml:"timeout"`
		ModifiedSinceParam  string    `toml:"modified_since_param"`
	} `toml:"api"`

	Credentials struct {
		Path          string    `toml:"path"`
		RefreshBuffer *Duration `toml:"refresh_buffer"`
	} `toml:"credentials"`

	Export struct {
		ModifiedSince    string `toml:"modified_since"`
		OnTransportError string `toml:"on_transport_error"`
	} `toml:"export"`

	Sinks struct {
		CSV struct {
			Enabled *bool  `toml:"enabled"`
			Dir     string `toml:"dir"`
		} `toml:"csv"`
		Store struct {
			Enabled    bool   `toml:"enabled"`
			Driver     string `toml:"driver"`
			DSN        string `toml:"dsn"`
			DisableRLS bool   `toml:"disable_rls"`
		} `toml:"store"`
	} `toml:"sinks"`

	Resources []resourceConfig `toml:"resources"`
}

type resourceConfig struct {
	Name          string            `toml:"name"`
	Endpoint      string            `toml:"endpoint"`
	ItemsKey      string            `toml:"items_key"`
	PrimaryKey    string            `toml:"primary_key"`
	Paginated     *bool             `toml:"paginated"`
	PageSize      int               `toml:"page_size"`
	Kind          string            `toml:"kind"`
	Params        map[string]string `toml:"params"`
	ModifiedSince string            `toml:"modified_since"`
	Expand        []expandConfig    `toml:"expand"`
}

type expandConfig struct {
	Field      string `toml:"field"`
	ParentID   string `toml:"parent_id"`
	PrimaryKey string `toml:"primary_key"`
}

// Load reads settings from path on top of the defaults.
//
// A missing file is not an error unless required is set; the defaults plus
// environment overrides are returned. The result is not validated.
func Load(path string, required bool) (domain.Settings, error) {
	settings := domain.DefaultSettings()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var fc fileConfig
		if err := toml.Unmarshal([]byte(os.ExpandEnv(string(data))), &fc); err != nil {
			return settings, fmt.Errorf("parsing %s: %w", path, err)
		}
		fc.apply(&settings)
	case errors.Is(err, os.ErrNotExist) && !required:
	default:
		return settings, fmt.Errorf("reading %s: %w", path, err)
	}

	applyEnv(&settings)
	return settings, nil
}

// apply copies every set value onto s.
func (fc *fileConfig) apply(s *domain.Settings) {
	setString(&s.OAuth.ClientID, fc.OAuth.ClientID)
	setString(&s.OAuth.ClientSecret, fc.OAuth.ClientSecret)
	setString(&s.OAuth.RedirectURI, fc.OAuth.RedirectURI)
	setString(&s.OAuth.AuthURL, fc.OAuth.AuthURL)
	setString(&s.OAuth.TokenURL, fc.OAuth.TokenURL)
	if len(fc.OAuth.Scopes) > 0 {
		s.OAuth.Scopes = fc.OAuth.Scopes
	}

	setString(&s.API.BaseURL, fc.API.BaseURL)
	setString(&s.API.ConnectionsURL, fc.API.ConnectionsURL)
	setString(&s.API.TenantID, fc.API.TenantID)
	setString(&s.API.ModifiedSinceParam, fc.API.ModifiedSinceParam)
	if fc.API.RequestsPerSecond != nil {
		s.API.RequestsPerSecond = *fc.API.RequestsPerSecond
	}
	if fc.API.MaxRateLimitRetries != nil {
		s.API.MaxRateLimitRetries = *fc.API.MaxRateLimitRetries
	}
	if fc.API.RetryAfter != nil {
		s.API.DefaultRetryAfter = time.Duration(*fc.API.RetryAfter)
	}
	if fc.API.Timeout != nil {
		s.API.Timeout = time.Duration(*fc.API.Timeout)
	}

	setString(&s.Credentials.Path, fc.Credentials.Path)
	if fc.Credentials.RefreshBuffer != nil {
		s.Credentials.RefreshBuffer = time.Duration(*fc.Credentials.RefreshBuffer)
	}

	setString(&s.Export.ModifiedSince, fc.Export.ModifiedSince)
	if fc.Export.OnTransportError != "" {
		s.Export.OnTransportError = domain.TransportErrorPolicy(fc.Export.OnTransportError)
	}

	if fc.Sinks.CSV.Enabled != nil {
		s.Sinks.CSV.Enabled = *fc.Sinks.CSV.Enabled
	}
	setString(&s.Sinks.CSV.Dir, fc.Sinks.CSV.Dir)
	s.Sinks.Store.Enabled = fc.Sinks.Store.Enabled
	s.Sinks.Store.Driver = domain.StoreDriver(fc.Sinks.Store.Driver)
	s.Sinks.Store.DSN = fc.Sinks.Store.DSN
	s.Sinks.Store.DisableRLS = fc.Sinks.Store.DisableRLS

	for _, rc := range fc.Resources {
		s.Resources = append(s.Resources, rc.toDomain())
	}
}

func (rc resourceConfig) toDomain() domain.Resource {
	kind := domain.ResourceKind(rc.Kind)
	if rc.Kind == "" {
		kind = domain.KindCollection
	}
	paginated := kind == domain.KindCollection
	if rc.Paginated != nil {
		paginated = *rc.Paginated
	}

	res := domain.Resource{
		Name:          rc.Name,
		Endpoint:      rc.Endpoint,
		ItemsKey:      rc.ItemsKey,
		PrimaryKey:    rc.PrimaryKey,
		Paginated:     paginated,
		PageSize:      rc.PageSize,
		Kind:          kind,
		Params:        rc.Params,
		ModifiedSince: rc.ModifiedSince,
	}
	for _, e := range rc.Expand {
		res.Expand = append(res.Expand, domain.ExpandRule{
			Field:      e.Field,
			ParentID:   e.ParentID,
			PrimaryKey: e.PrimaryKey,
		})
	}
	return res
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
