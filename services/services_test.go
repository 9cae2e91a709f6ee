package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mehreencs87/sandboxjs/models"
)

// testClient is the minimal ClientInterface: it joins paths onto the test
// server and turns non-2xx responses into errors.
type testClient struct {
	baseURL string
	http    *http.Client
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *testClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return &testClient{baseURL: server.URL, http: server.Client()}
}

func (c *testClient) NewRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer sandbox-token")
	return req, nil
}

func (c *testClient) Do(req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	return resp, nil
}

func (c *testClient) DoStream(req *http.Request) (*http.Response, error) {
	return c.Do(req)
}

func (c *testClient) GetBaseURL() string { return c.baseURL }

func TestRunPath(t *testing.T) {
	tests := []struct {
		container string
		id        string
		expected  string
	}{
		{"tenant-1", "pinggoogle", "/api/run/tenant-1/pinggoogle"},
		{"tenant 1", "a/b", "/api/run/tenant%201/a%2Fb"},
	}

	for _, tt := range tests {
		if got := RunPath(tt.container, tt.id); got != tt.expected {
			t.Errorf("RunPath(%q, %q): expected %s, got %s", tt.container, tt.id, tt.expected, got)
		}
	}
}

func TestTokenService_Issue(t *testing.T) {
	var got map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/tokens/issue" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte("header.payload.signature\n"))
	})

	token, err := NewTokenService(client).Issue(context.Background(), map[string]any{"ten": "tenant-1"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if token != "header.payload.signature" {
		t.Errorf("expected trimmed token, got %q", token)
	}
	if got["ten"] != "tenant-1" {
		t.Errorf("expected ten claim to be sent, got %v", got)
	}
}

func TestTokenService_IssueEmpty(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	if _, err := NewTokenService(client).Issue(context.Background(), nil); err == nil {
		t.Fatal("expected error for empty token response")
	}
}

func TestWebtaskService_Run(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/run/tenant-1/echo" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer task-token" {
			t.Errorf("expected task token, got %q", r.Header.Get("Authorization"))
		}
		if r.Method != http.MethodPost {
			t.Errorf("expected POST when a body is set, got %s", r.Method)
		}
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("X-Echo", r.URL.Query().Get("id"))
		w.Write(body)
	})

	resp, err := NewWebtaskService(client).Run(context.Background(), "tenant-1", "echo", "task-token", &models.RunOptions{
		Query: map[string]string{"id": "test"},
		Body:  map[string]string{"hello": "world"},
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !resp.OK() {
		t.Errorf("expected 2xx, got %d", resp.StatusCode)
	}
	if resp.Body != `{"hello":"world"}` {
		t.Errorf("unexpected body %q", resp.Body)
	}
	if resp.Header.Get("X-Echo") != "test" {
		t.Errorf("expected query to be forwarded, got %q", resp.Header.Get("X-Echo"))
	}
}

func TestCronService_History(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/cron/tenant-1/nightly/history" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("offset") != "5" || r.URL.Query().Get("limit") != "25" {
			t.Errorf("unexpected paging %s", r.URL.RawQuery)
		}
		w.Write([]byte(`[{"type":"success","statusCode":200,"created_at":"2026-10-18T10:00:00Z"}]`))
	})

	records, err := NewCronService(client).History(context.Background(), models.HistoryQuery{
		Container: "tenant-1", Name: "nightly", Offset: 5, Limit: 25,
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(records) != 1 || !records[0].Succeeded() {
		t.Errorf("unexpected records %+v", records)
	}
}

func TestCronService_HistoryNullIsEmpty(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`null`))
	})

	records, err := NewCronService(client).History(context.Background(), models.HistoryQuery{Container: "c", Name: "n"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if records == nil || len(records) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", records)
	}
}

func TestLogService_Stream(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/logs/tenant/tenant-1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"type\":\"connected\"}\n\n")
		fmt.Fprint(w, "data: not-json\n\n")
		fmt.Fprint(w, ": keepalive\n\n")
		fmt.Fprint(w, "data: {\"type\":\"data\",\"name\":\"echo\",\"msg\":\"hello\"}\n\n")
		fmt.Fprint(w, "data: {\"type\":\"data\",\"msg\":\"world\"}\n\n")
	})

	events := make(chan models.LogEvent, 10)
	if err := NewLogService(client).Stream(context.Background(), "tenant-1", events); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	close(events)

	var messages []string
	for e := range events {
		messages = append(messages, e.Message)
	}
	if len(messages) != 2 || messages[0] != "hello" || messages[1] != "world" {
		t.Errorf("unexpected messages %v", messages)
	}
}

func TestLogService_StreamError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data: {\"type\":\"error\",\"msg\":\"container gone\"}\n\n")
	})

	err := NewLogService(client).Stream(context.Background(), "tenant-1", make(chan models.LogEvent, 1))
	if err == nil {
		t.Fatal("expected error event to end the stream with an error")
	}
}
