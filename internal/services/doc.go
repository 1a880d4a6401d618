// Package services implements the HTTP clients for the Persona backend.
//
// # Transport
//
// [APIService] owns the [http.Client], an optional [rate.Limiter] and the [Authorizer] hook.
// Every endpoint answers with the envelope
//
//	{ "success": bool, "data": ..., "error": "...", "message": "..." }
//
// and a non-2xx status or success:false is surfaced as a [shared.APIError].
// Some endpoints return their payload flat instead of under "data"; both shapes decode.
//
// # Credentials
//
// Before a request is sent the Authorizer attaches the current access credential.
// On a 401 the client hands the credential it used back to [Authorizer.HandleUnauthorized]
// together with the number of refresh attempts already made for this request.
// A nil return means "send it again"; the request is retried at most as often as the
// Authorizer allows, which for the session manager is once.
//
// Login, registration, refresh, logout and the /public endpoints are anonymous: they never
// carry a credential and a 401 on them is an ordinary rejection.
//
// # Errors
//
//   - [shared.ErrNetwork] : the server could not be reached
//   - [shared.ErrServerRejected] : the server answered with an error (see [shared.APIError])
//   - [shared.ErrNotAuthenticated] : a 401 with no session to refresh
//   - [shared.ErrAPIRequest] : the response could not be decoded
package services
