// Package models provides the request options and wire descriptors exchanged
// with a webtask cluster.
//
// Descriptors are decoded from the platform's JSON into typed structs; keys
// the SDK does not know about are dropped by the decoder rather than copied
// onto entities.
package models

import (
	"net/http"
	"time"
)

// CreateOptions configures the token issued for a new webtask
type CreateOptions struct {
	// Name makes the webtask addressable by name. Empty means anonymous.
	Name string

	// Secrets are encrypted into the token and exposed to the code as ctx.secrets
	Secrets map[string]string

	// Params are exposed to the code as ctx.params
	Params map[string]string

	// MergeBody merges a parsed request body into ctx.data
	MergeBody bool

	// ParseBody asks the platform to parse the request body
	ParseBody bool

	NotBefore *time.Time
	ExpiresAt *time.Time
}

// RunOptions describes a single webtask invocation
type RunOptions struct {
	// Method defaults to GET, or POST when Body is set
	Method  string
	Query   map[string]string
	Headers map[string]string
	Body    any
}

// RunResponse is the raw result of invoking a webtask
type RunResponse struct {
	StatusCode int
	Header     http.Header
	Body       string
}

// OK reports whether the webtask answered with a 2xx status
func (r *RunResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// TaskInfo is the platform's record of a named webtask
type TaskInfo struct {
	Container string            `json:"container"`
	Name      string            `json:"name"`
	Token     string            `json:"token"`
	Meta      map[string]string `json:"meta,omitempty"`
}
