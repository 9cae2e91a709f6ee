// Package services provides the HTTP endpoint groups of the webtask API.
//
// Each service is a thin binding of one API area (tokens, webtasks, cron,
// logs) to a ClientInterface. Services do not build entities; they return
// descriptors from the models package and leave construction to the Sandbox.
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// ClientInterface defines the methods needed from the Sandbox.
//
// Do must return an error for transport failures and non-2xx responses; a
// response returned with a nil error is always a success and the caller owns
// its body. DoStream behaves like Do without a client-side timeout, leaving
// the request's context as the only bound.
type ClientInterface interface {
	NewRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error)
	Do(req *http.Request) (*http.Response, error)
	DoStream(req *http.Request) (*http.Response, error)
	GetBaseURL() string
}

// RunPath returns the invocation path of a webtask within its container.
func RunPath(container, id string) string {
	return fmt.Sprintf("/api/run/%s/%s", url.PathEscape(container), url.PathEscape(id))
}

func webtaskPath(container, name string) string {
	return fmt.Sprintf("/api/webtask/%s/%s", url.PathEscape(container), url.PathEscape(name))
}

func cronPath(container, name string) string {
	if name == "" {
		return fmt.Sprintf("/api/cron/%s", url.PathEscape(container))
	}
	return fmt.Sprintf("/api/cron/%s/%s", url.PathEscape(container), url.PathEscape(name))
}

// doJSON sends in (when non-nil) as JSON and decodes the response into out
// (when non-nil).
func doJSON(ctx context.Context, client ClientInterface, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := client.NewRequest(ctx, method, path, body)
	if err != nil {
		return err
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
