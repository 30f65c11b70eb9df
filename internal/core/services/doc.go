// Package services implements the driving port interfaces.
//
// TokenManager owns the credential lifecycle and TenantResolver picks the
// organisation a run is scoped to. ExportRunner carries each selected
// resource from the API to every sink. Services only talk to adapters
// through the driven ports.
package services
