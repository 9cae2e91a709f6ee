package sandbox

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mehreencs87/sandboxjs/internal/platformtest"
	"github.com/mehreencs87/sandboxjs/models"
	"github.com/mehreencs87/sandboxjs/token"
)

func newTestSandbox(t *testing.T) (*Sandbox, *platformtest.Platform) {
	t.Helper()
	p := platformtest.New(t)
	s, err := New(p.URL(), p.Token, p.Container)
	require.NoError(t, err)
	return s, p
}

func echoID(id string) *models.RunOptions {
	return &models.RunOptions{Query: map[string]string{"id": id}}
}

func TestCreate_Anonymous(t *testing.T) {
	s, p := newTestSandbox(t)

	task, err := s.Create(context.Background(), platformtest.EchoIDSource, nil)
	require.NoError(t, err)

	assert.Empty(t, task.Name)
	assert.Equal(t, p.Container, task.Container)
	assert.Equal(t, platformtest.EchoIDSource, task.Claims.String(token.ClaimCode))
	assert.Equal(t, task.Claims.TokenID(), task.ID())
	assert.Equal(t, p.URL()+"/api/run/"+p.Container+"/"+task.ID(), task.URL())
	assert.NotContains(t, task.URL(), task.Token)
	assert.Same(t, s, task.Sandbox())
}

func TestCreate_Named(t *testing.T) {
	s, p := newTestSandbox(t)

	task, err := s.Create(context.Background(), platformtest.EchoIDSource, &models.CreateOptions{Name: "pinggoogle"})
	require.NoError(t, err)

	assert.Equal(t, "pinggoogle", task.Name)
	assert.Equal(t, p.URL()+"/api/run/"+p.Container+"/pinggoogle", task.URL())
}

func TestCreate_NamedURLReplacesAnonymousIDWithName(t *testing.T) {
	s, _ := newTestSandbox(t)
	ctx := context.Background()

	anon, err := s.Create(ctx, platformtest.EchoIDSource, nil)
	require.NoError(t, err)
	named, err := s.Create(ctx, platformtest.EchoIDSource, &models.CreateOptions{Name: "pinggoogle"})
	require.NoError(t, err)

	prefix := anon.URL()[:strings.LastIndex(anon.URL(), "/")]
	assert.Equal(t, prefix+"/pinggoogle", named.URL())
}

func TestCreate_Options(t *testing.T) {
	s, _ := newTestSandbox(t)
	exp := time.Now().Add(time.Hour).Truncate(time.Second)

	task, err := s.Create(context.Background(), "https://example.com/code.js", &models.CreateOptions{
		Params:    map[string]string{"region": "eu"},
		MergeBody: true,
		ExpiresAt: &exp,
	})
	require.NoError(t, err)

	assert.Equal(t, "https://example.com/code.js", task.Claims.CodeURL())
	assert.False(t, task.Claims.HasCode())
	assert.Equal(t, map[string]any{"region": "eu"}, task.Claims[token.ClaimParams])
	assert.EqualValues(t, 1, task.Claims[token.ClaimMergeBody])

	got, ok := task.Claims.Expiry()
	require.True(t, ok)
	assert.True(t, got.Equal(exp))
}

func TestCreate_RequiresCode(t *testing.T) {
	s, _ := newTestSandbox(t)

	_, err := s.Create(context.Background(), "", nil)
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "code", validationErr.Field)

	_, err = s.CreateAsync(context.Background(), "", nil).Result()
	assert.ErrorAs(t, err, &validationErr)
}

func TestRun(t *testing.T) {
	s, _ := newTestSandbox(t)

	res, err := s.Run(context.Background(), platformtest.EchoIDSource, echoID("test"))
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.True(t, res.OK())
	assert.Equal(t, "test", res.Body)
}

func TestRunAsync_FutureAndCallbackAgree(t *testing.T) {
	s, _ := newTestSandbox(t)
	ctx := context.Background()

	future := s.RunAsync(ctx, platformtest.EchoIDSource, echoID("test"))

	done := make(chan *models.RunResponse, 1)
	future.Nodeify(func(res *models.RunResponse, err error) {
		assert.NoError(t, err)
		done <- res
	})

	res, err := future.Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, "test", res.Body)

	select {
	case cbRes := <-done:
		assert.Same(t, res, cbRes)
	case <-time.After(5 * time.Second):
		t.Fatal("callback was not called")
	}
}

func TestRunAsync_ValidationFailureReachesCallback(t *testing.T) {
	s, _ := newTestSandbox(t)

	var cbErr error
	s.RunAsync(context.Background(), "", nil).Nodeify(func(_ *models.RunResponse, err error) {
		cbErr = err
	})

	// A rejected future runs its callback before Nodeify returns.
	var validationErr *ValidationError
	assert.ErrorAs(t, cbErr, &validationErr)
}

func TestTask_RunNamed(t *testing.T) {
	s, _ := newTestSandbox(t)
	ctx := context.Background()

	task, err := s.Create(ctx, platformtest.EchoIDSource, &models.CreateOptions{Name: "echo"})
	require.NoError(t, err)

	res, err := task.Run(ctx, echoID("named"))
	require.NoError(t, err)
	assert.Equal(t, "named", res.Body)
}

func TestTask_RunPostBody(t *testing.T) {
	s, p := newTestSandbox(t)
	ctx := context.Background()

	p.Handle("echo-body", func(_ map[string]string, body []byte) (int, string) {
		return http.StatusCreated, string(body)
	})

	task, err := s.Create(ctx, "echo-body", nil)
	require.NoError(t, err)

	res, err := task.Run(ctx, &models.RunOptions{Body: map[string]int{"n": 1}})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, res.StatusCode)
	assert.JSONEq(t, `{"n":1}`, res.Body)
}

func TestTask_RunFailureIsRemoteError(t *testing.T) {
	s, p := newTestSandbox(t)
	ctx := context.Background()

	p.Handle("boom", func(map[string]string, []byte) (int, string) {
		return http.StatusInternalServerError, "boom"
	})

	task, err := s.Create(ctx, "boom", nil)
	require.NoError(t, err)

	_, err = task.Run(ctx, nil)
	var remoteErr *RemoteError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, http.StatusInternalServerError, remoteErr.StatusCode)
	assert.Equal(t, "boom", remoteErr.Message)
}

func TestGetTask(t *testing.T) {
	s, _ := newTestSandbox(t)
	ctx := context.Background()

	created, err := s.Create(ctx, platformtest.EchoIDSource, &models.CreateOptions{Name: "lookup"})
	require.NoError(t, err)

	task, err := s.GetTaskAsync(ctx, "lookup").Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, created.URL(), task.URL())
	assert.Equal(t, created.Token, task.Token)

	info, err := task.Inspect(ctx)
	require.NoError(t, err)
	assert.Equal(t, "lookup", info.Name)
}

func TestTask_Remove(t *testing.T) {
	s, _ := newTestSandbox(t)
	ctx := context.Background()

	task, err := s.Create(ctx, platformtest.EchoIDSource, &models.CreateOptions{Name: "short-lived"})
	require.NoError(t, err)

	_, err = task.RemoveAsync(ctx).Result()
	require.NoError(t, err)

	_, err = s.GetTask(ctx, "short-lived")
	assert.True(t, IsNotFound(err), "expected not found, got %v", err)
}

func TestTask_RemoveAnonymous(t *testing.T) {
	s, _ := newTestSandbox(t)
	ctx := context.Background()

	task, err := s.Create(ctx, platformtest.EchoIDSource, nil)
	require.NoError(t, err)

	var validationErr *ValidationError
	assert.ErrorAs(t, task.Remove(ctx), &validationErr)

	_, err = task.RemoveAsync(ctx).Result()
	assert.ErrorAs(t, err, &validationErr)

	_, err = task.Inspect(ctx)
	assert.ErrorAs(t, err, &validationErr)
}

func TestTask_Revoke(t *testing.T) {
	s, _ := newTestSandbox(t)
	ctx := context.Background()

	task, err := s.Create(ctx, platformtest.EchoIDSource, nil)
	require.NoError(t, err)
	require.NoError(t, task.Revoke(ctx))

	_, err = task.Run(ctx, echoID("x"))
	var remoteErr *RemoteError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, http.StatusUnauthorized, remoteErr.StatusCode)
}

func TestInspectToken(t *testing.T) {
	s, p := newTestSandbox(t)
	ctx := context.Background()

	raw, err := s.CreateToken(ctx, platformtest.EchoIDSource, nil)
	require.NoError(t, err)

	claims, err := s.InspectToken(ctx, raw)
	require.NoError(t, err)
	assert.Equal(t, p.Container, claims.Container())

	local, err := token.Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, local.TokenID(), claims.TokenID())

	_, err = s.InspectTokenAsync(ctx, "").Result()
	var validationErr *ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestWrongSandboxToken(t *testing.T) {
	p := platformtest.New(t)
	s, err := New(p.URL(), "not-the-token", p.Container)
	require.NoError(t, err)

	_, err = s.Create(context.Background(), platformtest.EchoIDSource, nil)
	var remoteErr *RemoteError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, http.StatusUnauthorized, remoteErr.StatusCode)
	assert.Equal(t, "invalid sandbox token", remoteErr.Message)
}

func TestStreamLogs(t *testing.T) {
	s, p := newTestSandbox(t)

	p.AddLogs(
		models.LogEvent{Type: "log", Name: "echo", Message: "first"},
		models.LogEvent{Type: "log", Name: "echo", Message: "second"},
	)

	events := make(chan models.LogEvent, 4)
	_, err := s.StreamLogsAsync(context.Background(), events).Result()
	require.NoError(t, err)

	require.Len(t, events, 2)
	assert.Equal(t, "first", (<-events).Message)
	assert.Equal(t, "second", (<-events).Message)
}

func TestStreamLogs_Cancelled(t *testing.T) {
	s, _ := newTestSandbox(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.StreamLogs(ctx, make(chan models.LogEvent))
	if err != nil {
		assert.True(t, errors.Is(err, context.Canceled), "unexpected error %v", err)
	}
}

func TestStreamLogs_OutlivesClientTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		fmt.Fprint(w, "data: {\"type\":\"connected\"}\n\n")
		flusher.Flush()
		for i := 0; i < 8; i++ {
			time.Sleep(50 * time.Millisecond)
			fmt.Fprintf(w, "data: {\"type\":\"log\",\"msg\":\"line %d\"}\n\n", i)
			flusher.Flush()
		}
	}))
	defer server.Close()

	s, err := New(server.URL, platformtest.DefaultToken, platformtest.DefaultContainer, WithTimeout(150*time.Millisecond))
	require.NoError(t, err)

	events := make(chan models.LogEvent, 16)
	require.NoError(t, s.StreamLogs(context.Background(), events))

	require.Len(t, events, 8)
	assert.Equal(t, "line 0", (<-events).Message)
}

func TestCreateTokenAsync_FutureAndCallbackAgree(t *testing.T) {
	s, _ := newTestSandbox(t)
	ctx := context.Background()

	future := s.CreateTokenAsync(ctx, platformtest.EchoIDSource, &models.CreateOptions{Name: "issued"})

	done := make(chan string, 1)
	future.Nodeify(func(raw string, err error) {
		assert.NoError(t, err)
		done <- raw
	})

	raw, err := future.Await(ctx)
	require.NoError(t, err)
	claims, err := token.Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, "issued", claims.Name())

	select {
	case cbRaw := <-done:
		assert.Equal(t, raw, cbRaw)
	case <-time.After(5 * time.Second):
		t.Fatal("callback was not called")
	}

	var cbErr error
	s.CreateTokenAsync(ctx, "", nil).Nodeify(func(_ string, err error) {
		cbErr = err
	})
	var validationErr *ValidationError
	assert.ErrorAs(t, cbErr, &validationErr)
}

func TestRevokeTokenAsync_FutureAndCallbackAgree(t *testing.T) {
	s, p := newTestSandbox(t)
	ctx := context.Background()

	task, err := s.Create(ctx, platformtest.EchoIDSource, nil)
	require.NoError(t, err)

	future := s.RevokeTokenAsync(ctx, task.Token)

	done := make(chan error, 1)
	future.Nodeify(func(_ struct{}, err error) {
		done <- err
	})

	_, err = future.Await(ctx)
	require.NoError(t, err)

	select {
	case cbErr := <-done:
		assert.NoError(t, cbErr)
	case <-time.After(5 * time.Second):
		t.Fatal("callback was not called")
	}
	assert.Equal(t, []string{task.Token}, p.Revoked())

	_, err = task.Run(ctx, echoID("x"))
	assert.Error(t, err)

	_, err = s.RevokeTokenAsync(ctx, "").Result()
	var validationErr *ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestCreate_UnreadableIssuedToken(t *testing.T) {
	s, p := newTestSandbox(t)
	p.Override(http.MethodPost, "/api/tokens/issue", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprint(w, "not-a-token")
	})

	_, err := s.Create(context.Background(), platformtest.EchoIDSource, nil)
	var decodeErr *token.DecodeError
	assert.ErrorAs(t, err, &decodeErr)

	_, err = s.CreateAsync(context.Background(), platformtest.EchoIDSource, nil).Result()
	assert.ErrorAs(t, err, &decodeErr)
}

func TestCreate_NamedRegistrationFailureRevokesToken(t *testing.T) {
	s, p := newTestSandbox(t)
	p.Override(http.MethodPut, "/api/webtask/"+p.Container+"/broken", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "storage unavailable", http.StatusServiceUnavailable)
	})

	_, err := s.Create(context.Background(), platformtest.EchoIDSource, &models.CreateOptions{Name: "broken"})
	var remoteErr *RemoteError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, http.StatusServiceUnavailable, remoteErr.StatusCode)
	assert.Equal(t, "storage unavailable", remoteErr.Message)

	revoked := p.Revoked()
	require.Len(t, revoked, 1)
	claims, err := token.Decode(revoked[0])
	require.NoError(t, err)
	assert.Equal(t, "broken", claims.Name())
}
