// Package apiclient issues authenticated JSON requests against one external
// HTTP API.
//
// A Client is bound at construction to a base URL, an optional version path
// segment, one credential and one AuthScheme. It never retries. Non-2xx
// responses become *APIError carrying the status and the raw body; transport
// failures become *NetworkError. Both classify themselves through
// toolerr.Kinded so the dispatcher can report them uniformly.
package apiclient
