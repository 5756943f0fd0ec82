package transport

import (
	"net/http"
	"strings"
)

// Authenticator applies a credential to an outgoing request.
type Authenticator interface {
	Apply(req *http.Request, apiKey string)
}

// NoAuth sends requests without credentials.
type NoAuth struct{}

// Apply implements the Authenticator interface for NoAuth.
func (a *NoAuth) Apply(_ *http.Request, _ string) {}

// BearerAuth sends the key as an Authorization bearer token, the scheme of
// OpenAI-compatible chat backends.
type BearerAuth struct{}

// Apply implements the Authenticator interface for BearerAuth.
func (a *BearerAuth) Apply(req *http.Request, apiKey string) {
	req.Header.Set("Authorization", "Bearer "+apiKey)
}

// HeaderAuth sends the key in a custom header.
type HeaderAuth struct {
	Header string
}

// Apply implements the Authenticator interface for HeaderAuth.
func (a *HeaderAuth) Apply(req *http.Request, apiKey string) {
	req.Header.Set(a.Header, apiKey)
}

// QueryAuth sends the key as a query parameter.
type QueryAuth struct {
	Param string
}

// Apply implements the Authenticator interface for QueryAuth.
func (a *QueryAuth) Apply(req *http.Request, apiKey string) {
	if req.URL == nil {
		return
	}
	query := req.URL.Query()
	query.Set(a.Param, apiKey)
	req.URL.RawQuery = query.Encode()
}

// ForScheme returns the authenticator for a configured scheme name:
// "bearer" (the default), "header:<Name>", "query:<param>" or "none".
func ForScheme(scheme string) Authenticator {
	if header, ok := strings.CutPrefix(scheme, "header:"); ok && header != "" {
		return &HeaderAuth{Header: header}
	}
	if param, ok := strings.CutPrefix(scheme, "query:"); ok && param != "" {
		return &QueryAuth{Param: param}
	}
	if scheme == "none" {
		return &NoAuth{}
	}
	return &BearerAuth{}
}
