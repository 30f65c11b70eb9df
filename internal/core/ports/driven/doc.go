// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Interfaces
//
//   - CredentialStore: Persists the OAuth2 credential as a whole record
//   - TokenExchanger: Authorisation-code and refresh-token grants
//   - TokenProvider: Supplies bearer tokens to the API client
//   - ResourceFetcher: Pages through a collection endpoint
//   - TenantDirectory: Lists the tenants a credential can access
//   - TenantScope: Selects the tenant requests are made for
//   - Normaliser: Flattens fetched items into related tables
//   - Sink: Writes tables to files or a relational store
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, connector, or normaliser package
package driven
