// Package file loads settings from a TOML file and the environment.
//
// Values in the file may reference environment variables as ${VAR}. A .env
// file, when present, is loaded first and never overrides variables already
// set. CLIENT_ID, CLIENT_SECRET, REDIRECT_URI and TENANT_ID override the
// matching file values, and DB_HOST selects a PostgreSQL store sink.
package file
