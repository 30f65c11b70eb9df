package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validSettings() Settings {
	s := DefaultSettings()
	s.OAuth.ClientID = "client"
	s.Resources = []Resource{{Name: "Contacts", Endpoint: "Contacts"}}
	return s
}

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()

	assert.Equal(t, DefaultBaseURL, s.API.BaseURL)
	assert.Equal(t, DefaultRefreshBuffer, s.Credentials.RefreshBuffer)
	assert.Equal(t, PolicyTruncate, s.Export.OnTransportError)
	assert.Equal(t, DefaultMaxRateLimitRetries, s.API.MaxRateLimitRetries)
	assert.Contains(t, s.OAuth.Scopes, "offline_access")
	assert.True(t, s.Sinks.CSV.Enabled)

	// Scopes must be a copy.
	s.OAuth.Scopes[0] = "changed"
	assert.Equal(t, "offline_access", DefaultScopes[0])
}

func TestSettings_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Settings)
		ok     bool
	}{
		{"valid", func(*Settings) {}, true},
		{"missing client id", func(s *Settings) { s.OAuth.ClientID = "" }, false},
		{"missing base url", func(s *Settings) { s.API.BaseURL = "" }, false},
		{"negative rate", func(s *Settings) { s.API.RequestsPerSecond = -1 }, false},
		{"negative retries", func(s *Settings) { s.API.MaxRateLimitRetries = -1 }, false},
		{"bad policy", func(s *Settings) { s.Export.OnTransportError = "ignore" }, false},
		{"csv without dir", func(s *Settings) { s.Sinks.CSV.Dir = "" }, false},
		{"store bad driver", func(s *Settings) {
			s.Sinks.Store = StoreSinkSettings{Enabled: true, Driver: "mysql", DSN: "x"}
		}, false},
		{"store without dsn", func(s *Settings) {
			s.Sinks.Store = StoreSinkSettings{Enabled: true, Driver: DriverSQLite}
		}, false},
		{"store valid", func(s *Settings) {
			s.Sinks.Store = StoreSinkSettings{Enabled: true, Driver: DriverPostgres, DSN: "postgres://x"}
		}, true},
		{"duplicate resource", func(s *Settings) {
			s.Resources = append(s.Resources, Resource{Name: "contacts", Endpoint: "Contacts"})
		}, false},
		{"invalid resource", func(s *Settings) {
			s.Resources = append(s.Resources, Resource{Name: "Broken"})
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSettings()
			tt.mutate(&s)
			err := s.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidInput)
			}
		})
	}
}

func TestSettings_Resource(t *testing.T) {
	s := validSettings()

	r, ok := s.Resource("contacts")
	assert.True(t, ok)
	assert.Equal(t, "Contacts", r.Name)

	_, ok = s.Resource("Invoices")
	assert.False(t, ok)
}

func TestEnumValidity(t *testing.T) {
	assert.True(t, PolicyFail.IsValid())
	assert.False(t, TransportErrorPolicy("").IsValid())
	assert.True(t, DriverSQLite.IsValid())
	assert.False(t, StoreDriver("mysql").IsValid())
	assert.True(t, KindReport.IsValid())
}
