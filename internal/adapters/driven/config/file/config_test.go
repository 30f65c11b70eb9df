package file

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ledgersync/internal/core/domain"
)

// clearEnv blanks every override so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvClientID, EnvClientSecret, EnvRedirectURI, EnvTenantID, EnvDBHost} {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultFileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

const fullConfig = `
[oauth]
client_id = "abc"
client_secret = "${TEST_LEDGERSYNC_SECRET}"
scopes = ["offline_access", "accounting.transactions.read"]

[api]
tenant_id = "tenant-1"
requests_per_second = 2.5
max_rate_limit_retries = 3
retry_after = "10s"
timeout = "1m"

[credentials]
path = "/tmp/token.json"
refresh_buffer = "2m"

[export]
modified_since = "2025-01-01T00:00:00Z"
on_transport_error = "fail"

[sinks.csv]
enabled = false

[sinks.store]
enabled = true
driver = "sqlite"
dsn = "/tmp/ledger.db"

[[resources]]
name = "Invoices"
endpoint = "Invoices"
primary_key = "InvoiceID"
page_size = 50

[[resources.expand]]
field = "LineItems"
parent_id = "InvoiceID"
primary_key = "LineItemID"

[[resources]]
name = "BalanceSheet"
endpoint = "Reports/BalanceSheet"
items_key = "Reports"
kind = "report"

[resources.params]
periods = "3"
`

func TestLoad_FullFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("TEST_LEDGERSYNC_SECRET", "s3cret")

	s, err := Load(writeConfig(t, fullConfig), true)
	require.NoError(t, err)

	assert.Equal(t, "abc", s.OAuth.ClientID)
	assert.Equal(t, "s3cret", s.OAuth.ClientSecret)
	assert.Equal(t, domain.DefaultRedirectURI, s.OAuth.RedirectURI)
	assert.Equal(t, []string{"offline_access", "accounting.transactions.read"}, s.OAuth.Scopes)

	assert.Equal(t, "tenant-1", s.API.TenantID)
	assert.Equal(t, 2.5, s.API.RequestsPerSecond)
	assert.Equal(t, 3, s.API.MaxRateLimitRetries)
	assert.Equal(t, 10*time.Second, s.API.DefaultRetryAfter)
	assert.Equal(t, time.Minute, s.API.Timeout)
	assert.Equal(t, domain.DefaultBaseURL, s.API.BaseURL)

	assert.Equal(t, "/tmp/token.json", s.Credentials.Path)
	assert.Equal(t, 2*time.Minute, s.Credentials.RefreshBuffer)

	assert.Equal(t, "2025-01-01T00:00:00Z", s.Export.ModifiedSince)
	assert.Equal(t, domain.PolicyFail, s.Export.OnTransportError)

	assert.False(t, s.Sinks.CSV.Enabled)
	assert.True(t, s.Sinks.Store.Enabled)
	assert.Equal(t, domain.DriverSQLite, s.Sinks.Store.Driver)
	assert.Equal(t, "/tmp/ledger.db", s.Sinks.Store.DSN)

	require.Len(t, s.Resources, 2)
	inv := s.Resources[0]
	assert.True(t, inv.Paginated)
	assert.Equal(t, domain.KindCollection, inv.Kind)
	assert.Equal(t, 50, inv.PageSize)
	assert.Equal(t, []domain.ExpandRule{{Field: "LineItems", ParentID: "InvoiceID", PrimaryKey: "LineItemID"}}, inv.Expand)

	report := s.Resources[1]
	assert.Equal(t, domain.KindReport, report.Kind)
	assert.False(t, report.Paginated)
	assert.Equal(t, map[string]string{"periods": "3"}, report.Params)

	assert.NoError(t, s.Validate())
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "absent.toml")

	s, err := Load(path, false)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultSettings(), s)

	_, err = Load(path, true)
	assert.Error(t, err)
}

func TestLoad_InvalidTOML(t *testing.T) {
	clearEnv(t)

	_, err := Load(writeConfig(t, "[oauth\nclient_id ="), true)
	assert.Error(t, err)
}

func TestLoad_InvalidDuration(t *testing.T) {
	clearEnv(t)

	_, err := Load(writeConfig(t, "[api]\nretry_after = \"soon\"\n"), true)
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvClientID, "env-client")
	t.Setenv(EnvClientSecret, "env-secret")
	t.Setenv(EnvRedirectURI, "http://localhost:9999/callback")
	t.Setenv(EnvTenantID, "env-tenant")

	s, err := Load(writeConfig(t, "[oauth]\nclient_id = \"file-client\"\n[api]\ntenant_id = \"file-tenant\"\n"), true)
	require.NoError(t, err)

	assert.Equal(t, "env-client", s.OAuth.ClientID)
	assert.Equal(t, "env-secret", s.OAuth.ClientSecret)
	assert.Equal(t, "http://localhost:9999/callback", s.OAuth.RedirectURI)
	assert.Equal(t, "env-tenant", s.API.TenantID)
}

func TestLoad_DatabaseEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvDBHost, "db.example.com")
	t.Setenv(EnvDBPort, "6543")
	t.Setenv(EnvDBName, "ledger")
	t.Setenv(EnvDBUser, "sync")
	t.Setenv(EnvDBPassword, "pw")
	t.Setenv(EnvDBSSLMode, "disable")

	s, err := Load(filepath.Join(t.TempDir(), "absent.toml"), false)
	require.NoError(t, err)

	assert.Equal(t, domain.DriverPostgres, s.Sinks.Store.Driver)
	assert.Equal(t, "host=db.example.com port=6543 user=sync dbname=ledger sslmode=disable password=pw", s.Sinks.Store.DSN)
}

func TestLoad_DatabaseEnvDoesNotReplaceDSN(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvDBHost, "db.example.com")

	s, err := Load(writeConfig(t, "[sinks.store]\ndriver = \"sqlite\"\ndsn = \"local.db\"\n"), true)
	require.NoError(t, err)

	assert.Equal(t, domain.DriverSQLite, s.Sinks.Store.Driver)
	assert.Equal(t, "local.db", s.Sinks.Store.DSN)
}

func TestLoadEnvFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("CLIENT_ID=from-dotenv\n"), 0600))
	t.Cleanup(func() { os.Unsetenv(EnvClientID) })

	require.NoError(t, os.Unsetenv(EnvClientID))
	require.NoError(t, LoadEnvFile(path))
	assert.Equal(t, "from-dotenv", os.Getenv(EnvClientID))

	assert.NoError(t, LoadEnvFile(filepath.Join(dir, "missing.env")))
}

func TestDuration(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("90s")))
	assert.Equal(t, Duration(90*time.Second), d)

	text, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1m30s", string(text))
}

func TestDefaultPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path, err := DefaultPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".ledgersync", DefaultFileName), path)
}
