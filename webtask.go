package sandbox

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mehreencs87/sandboxjs/async"
	"github.com/mehreencs87/sandboxjs/models"
	"github.com/mehreencs87/sandboxjs/token"
)

// isCodeURL reports whether codeOrURL points at code rather than containing it
func isCodeURL(codeOrURL string) bool {
	return strings.HasPrefix(codeOrURL, "http://") || strings.HasPrefix(codeOrURL, "https://")
}

// tokenClaims builds the claims requested from the cluster for a new token
func (s *Sandbox) tokenClaims(codeOrURL string, opts *models.CreateOptions) map[string]any {
	if opts == nil {
		opts = &models.CreateOptions{}
	}

	claims := map[string]any{
		token.ClaimContainer: s.container,
	}
	if isCodeURL(codeOrURL) {
		claims[token.ClaimCodeURL] = codeOrURL
	} else {
		claims[token.ClaimCode] = codeOrURL
	}
	if opts.Name != "" {
		claims[token.ClaimName] = opts.Name
	}
	if len(opts.Params) > 0 {
		claims[token.ClaimParams] = opts.Params
	}
	if len(opts.Secrets) > 0 {
		claims[token.ClaimSecrets] = opts.Secrets
	}
	if opts.MergeBody {
		claims[token.ClaimMergeBody] = 1
	}
	if opts.ParseBody {
		claims[token.ClaimParseBody] = 1
	}
	if opts.NotBefore != nil {
		claims[token.ClaimNotBefore] = opts.NotBefore.Unix()
	}
	if opts.ExpiresAt != nil {
		claims[token.ClaimExpiry] = opts.ExpiresAt.Unix()
	}
	return claims
}

// CreateToken issues a webtask token for codeOrURL without building a Task.
// codeOrURL is treated as a URL when it starts with http:// or https://,
// otherwise as inline source.
func (s *Sandbox) CreateToken(ctx context.Context, codeOrURL string, opts *models.CreateOptions) (string, error) {
	if codeOrURL == "" {
		return "", &ValidationError{Field: "code", Message: "is required"}
	}
	return s.Tokens.Issue(ctx, s.tokenClaims(codeOrURL, opts))
}

// CreateTokenAsync is the future form of CreateToken
func (s *Sandbox) CreateTokenAsync(ctx context.Context, codeOrURL string, opts *models.CreateOptions) *async.Future[string] {
	if codeOrURL == "" {
		return async.Reject[string](&ValidationError{Field: "code", Message: "is required"})
	}
	return async.Run(ctx, func(ctx context.Context) (string, error) {
		return s.CreateToken(ctx, codeOrURL, opts)
	})
}

// Create issues a token for codeOrURL and returns the Task it addresses.
// A named task is also registered on the cluster under its name. If that
// registration fails, the freshly issued token is revoked before the error is
// returned, so a failed Create leaves no usable token behind.
func (s *Sandbox) Create(ctx context.Context, codeOrURL string, opts *models.CreateOptions) (*Task, error) {
	raw, err := s.CreateToken(ctx, codeOrURL, opts)
	if err != nil {
		return nil, err
	}

	task, err := newTask(s, raw)
	if err != nil {
		return nil, fmt.Errorf("cluster issued an unreadable token: %w", err)
	}

	if opts != nil && opts.Name != "" {
		// The cluster may echo a different name than requested; the route
		// is keyed by what we asked for.
		task.Name = opts.Name
		if _, err := s.Webtasks.Put(ctx, task.Container, task.Name, raw); err != nil {
			if revokeErr := s.RevokeToken(ctx, raw); revokeErr != nil {
				s.logger.Warn("failed to revoke token of unregistered webtask",
					zap.String("container", task.Container),
					zap.String("name", task.Name),
					zap.String("token_id", task.ID()),
					zap.Error(revokeErr),
				)
			}
			return nil, fmt.Errorf("register webtask %s: %w", task.Name, err)
		}
	}

	s.logger.Debug("webtask created",
		zap.String("container", task.Container),
		zap.String("name", task.Name),
		zap.String("url", task.URL()),
	)
	return task, nil
}

// CreateAsync is the future form of Create
func (s *Sandbox) CreateAsync(ctx context.Context, codeOrURL string, opts *models.CreateOptions) *async.Future[*Task] {
	if codeOrURL == "" {
		return async.Reject[*Task](&ValidationError{Field: "code", Message: "is required"})
	}
	return async.Run(ctx, func(ctx context.Context) (*Task, error) {
		return s.Create(ctx, codeOrURL, opts)
	})
}

// Run creates an anonymous task for codeOrURL and invokes it once
func (s *Sandbox) Run(ctx context.Context, codeOrURL string, opts *models.RunOptions) (*models.RunResponse, error) {
	task, err := s.Create(ctx, codeOrURL, nil)
	if err != nil {
		return nil, err
	}
	return task.Run(ctx, opts)
}

// RunAsync is the future form of Run
func (s *Sandbox) RunAsync(ctx context.Context, codeOrURL string, opts *models.RunOptions) *async.Future[*models.RunResponse] {
	return async.Then(s.CreateAsync(ctx, codeOrURL, nil), func(task *Task) (*models.RunResponse, error) {
		return task.Run(ctx, opts)
	})
}

// GetTask loads the named task from the cluster
func (s *Sandbox) GetTask(ctx context.Context, name string) (*Task, error) {
	if name == "" {
		return nil, &ValidationError{Field: "name", Message: "is required"}
	}

	info, err := s.Webtasks.Get(ctx, s.container, name)
	if err != nil {
		return nil, err
	}

	task, err := newTask(s, info.Token)
	if err != nil {
		return nil, err
	}
	task.Container = s.container
	task.Name = name
	return task, nil
}

// GetTaskAsync is the future form of GetTask
func (s *Sandbox) GetTaskAsync(ctx context.Context, name string) *async.Future[*Task] {
	if name == "" {
		return async.Reject[*Task](&ValidationError{Field: "name", Message: "is required"})
	}
	return async.Run(ctx, func(ctx context.Context) (*Task, error) {
		return s.GetTask(ctx, name)
	})
}

func (s *Sandbox) removeTask(ctx context.Context, container, name string) error {
	if err := s.Webtasks.Remove(ctx, container, name); err != nil {
		return err
	}
	s.logger.Debug("webtask removed", zap.String("container", container), zap.String("name", name))
	return nil
}

// InspectToken asks the cluster for the claims of a token. Unlike
// token.Decode this is authoritative, and it sees encrypted claims.
func (s *Sandbox) InspectToken(ctx context.Context, raw string) (token.Claims, error) {
	if raw == "" {
		return nil, &ValidationError{Field: "token", Message: "is required"}
	}
	claims, err := s.Tokens.Inspect(ctx, raw)
	if err != nil {
		return nil, err
	}
	return token.Claims(claims), nil
}

// InspectTokenAsync is the future form of InspectToken
func (s *Sandbox) InspectTokenAsync(ctx context.Context, raw string) *async.Future[token.Claims] {
	if raw == "" {
		return async.Reject[token.Claims](&ValidationError{Field: "token", Message: "is required"})
	}
	return async.Run(ctx, func(ctx context.Context) (token.Claims, error) {
		return s.InspectToken(ctx, raw)
	})
}

// RevokeToken invalidates a token on the cluster
func (s *Sandbox) RevokeToken(ctx context.Context, raw string) error {
	if raw == "" {
		return &ValidationError{Field: "token", Message: "is required"}
	}
	return s.Tokens.Revoke(ctx, raw)
}

// RevokeTokenAsync is the future form of RevokeToken
func (s *Sandbox) RevokeTokenAsync(ctx context.Context, raw string) *async.Future[struct{}] {
	if raw == "" {
		return async.Reject[struct{}](&ValidationError{Field: "token", Message: "is required"})
	}
	return async.Run(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.RevokeToken(ctx, raw)
	})
}

// StreamLogs follows the container's log stream, sending entries to events
// until ctx is cancelled or the cluster ends the stream. events is not closed.
func (s *Sandbox) StreamLogs(ctx context.Context, events chan<- models.LogEvent) error {
	return s.Logs.Stream(ctx, s.container, events)
}

// StreamLogsAsync is the future form of StreamLogs
func (s *Sandbox) StreamLogsAsync(ctx context.Context, events chan<- models.LogEvent) *async.Future[struct{}] {
	return async.Run(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.StreamLogs(ctx, events)
	})
}
