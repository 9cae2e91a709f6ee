package sandbox

import (
	"context"

	"github.com/mehreencs87/sandboxjs/async"
	"github.com/mehreencs87/sandboxjs/models"
	"github.com/mehreencs87/sandboxjs/services"
	"github.com/mehreencs87/sandboxjs/token"
)

// Task is a webtask created on the cluster. Tasks are built by the Sandbox
// from an issued token; there is no public constructor.
type Task struct {
	// Container the task lives in
	Container string

	// Name is empty for anonymous tasks
	Name string

	// Token is the signed credential that invokes the task
	Token string

	// Claims embedded in Token
	Claims token.Claims

	sandbox *Sandbox
}

func newTask(s *Sandbox, raw string) (*Task, error) {
	claims, err := token.Decode(raw)
	if err != nil {
		return nil, err
	}

	container := claims.Container()
	if container == "" {
		container = s.container
	}

	return &Task{
		Container: container,
		Name:      claims.Name(),
		Token:     raw,
		Claims:    claims,
		sandbox:   s,
	}, nil
}

// ID is the last segment of the task's URL: its name, or for anonymous tasks
// an identifier derived from its token.
func (t *Task) ID() string {
	if t.Name != "" {
		return t.Name
	}
	return token.ID(t.Token, t.Claims)
}

// URL is the public invocation URL of the task
func (t *Task) URL() string {
	return t.sandbox.URL() + services.RunPath(t.Container, t.ID())
}

// Sandbox returns the sandbox that created the task
func (t *Task) Sandbox() *Sandbox {
	return t.sandbox
}

// Run invokes the task
func (t *Task) Run(ctx context.Context, opts *models.RunOptions) (*models.RunResponse, error) {
	return t.sandbox.Webtasks.Run(ctx, t.Container, t.ID(), t.Token, opts)
}

// RunAsync is the future form of Run
func (t *Task) RunAsync(ctx context.Context, opts *models.RunOptions) *async.Future[*models.RunResponse] {
	return async.Run(ctx, func(ctx context.Context) (*models.RunResponse, error) {
		return t.Run(ctx, opts)
	})
}

// Remove deletes the task's named route on the cluster. The token is not
// revoked: anyone holding it can still invoke the code. Anonymous tasks have
// no route to remove.
func (t *Task) Remove(ctx context.Context) error {
	if err := t.requireName(); err != nil {
		return err
	}
	return t.sandbox.removeTask(ctx, t.Container, t.Name)
}

// RemoveAsync is the future form of Remove
func (t *Task) RemoveAsync(ctx context.Context) *async.Future[struct{}] {
	if err := t.requireName(); err != nil {
		return async.Reject[struct{}](err)
	}
	return async.Run(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, t.Remove(ctx)
	})
}

// Inspect fetches the cluster's record of the task
func (t *Task) Inspect(ctx context.Context) (*models.TaskInfo, error) {
	if err := t.requireName(); err != nil {
		return nil, err
	}
	return t.sandbox.Webtasks.Get(ctx, t.Container, t.Name)
}

// InspectAsync is the future form of Inspect
func (t *Task) InspectAsync(ctx context.Context) *async.Future[*models.TaskInfo] {
	if err := t.requireName(); err != nil {
		return async.Reject[*models.TaskInfo](err)
	}
	return async.Run(ctx, t.Inspect)
}

// Revoke invalidates the task's token on the cluster
func (t *Task) Revoke(ctx context.Context) error {
	return t.sandbox.RevokeToken(ctx, t.Token)
}

// RevokeAsync is the future form of Revoke
func (t *Task) RevokeAsync(ctx context.Context) *async.Future[struct{}] {
	return async.Run(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, t.Revoke(ctx)
	})
}

func (t *Task) requireName() error {
	if t.Name == "" {
		return &ValidationError{Field: "name", Message: "anonymous tasks have no named route"}
	}
	return nil
}
