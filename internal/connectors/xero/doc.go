// Package xero implements the paginated fetcher for the Xero accounting API.
//
// # Components
//
//   - Client: authenticated HTTP access with tenant scoping and 429 handling
//   - RateLimiter: proactive throttling plus Retry-After parsing
//   - Fetcher: the page loop, implementing driven.ResourceFetcher
//   - TokenSourceAdapter: bridges driven.TokenProvider to oauth2.TokenSource
//   - DefaultResources: the built-in endpoint catalogue
//
// Requests carry the bearer token through an oauth2.Transport, so the
// token manager is consulted on every request and refreshes as needed.
package xero
