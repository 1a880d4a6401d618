// package services defines the HTTP clients for the Persona backend
//
// Auth, jobs (personas), social, notifications, product extraction, DNA onboarding, public feed
package services

import (
	"context"
	"net/http"
)

// Authorizer is the credential hook consulted around every non-anonymous request.
type Authorizer interface {
	// AttachCredential sets the Authorization header when a session exists.
	// Returns the credential it attached, or "" when the request goes out unauthenticated.
	AttachCredential(req *http.Request) string

	// HandleUnauthorized is called when a request sent with credential used came back 401.
	// attempt is the number of times the refresh protocol already ran for this request.
	// Returning nil asks the client to send the request again; any error is returned to the caller.
	HandleUnauthorized(ctx context.Context, used string, attempt int) error
}
