package sandbox

import (
	"context"
	"strings"
	"time"

	"github.com/mehreencs87/sandboxjs/async"
	"github.com/mehreencs87/sandboxjs/models"
	"github.com/mehreencs87/sandboxjs/services"
	"github.com/mehreencs87/sandboxjs/token"
)

// CronJob is a named webtask the cluster runs on a schedule. A CronJob is a
// snapshot: use Refresh to observe changes made on the cluster.
type CronJob struct {
	Container string
	Name      string

	// Schedule is the cron expression, as understood by the cluster
	Schedule string

	// NextScheduledAt is when the cluster will next run the job
	NextScheduledAt time.Time

	// State is active or inactive
	State string

	// Token is the webtask token the job runs with
	Token string

	// Claims embedded in Token
	Claims token.Claims

	// ClusterURL is the cluster the job runs on, always with a scheme
	ClusterURL string

	sandbox *Sandbox
}

// newCronJob builds a CronJob from the cluster's descriptor. The descriptor
// must name its container and job, since both make up the job's URL.
func newCronJob(s *Sandbox, job models.CronJobDescriptor) (*CronJob, error) {
	switch {
	case job.Container == "":
		return nil, &ValidationError{Field: "container", Message: "cron job descriptor has no container"}
	case job.Name == "":
		return nil, &ValidationError{Field: "name", Message: "cron job descriptor has no name"}
	}

	claims, err := token.Decode(job.Token)
	if err != nil {
		return nil, err
	}

	return &CronJob{
		Container:       job.Container,
		Name:            job.Name,
		Schedule:        job.Schedule,
		NextScheduledAt: job.NextScheduledAt,
		State:           job.State,
		Token:           job.Token,
		Claims:          claims,
		ClusterURL:      normalizeClusterURL(job.ClusterURL),
		sandbox:         s,
	}, nil
}

// normalizeClusterURL adds https:// to a bare host. URLs that already carry a
// scheme are returned unchanged.
func normalizeClusterURL(raw string) string {
	if raw == "" || strings.Contains(raw, "://") {
		return raw
	}
	return "https://" + raw
}

// URL is the public invocation URL of the webtask the job runs
func (j *CronJob) URL() string {
	return j.sandbox.URL() + services.RunPath(j.Container, j.Name)
}

// Sandbox returns the sandbox that loaded the job
func (j *CronJob) Sandbox() *Sandbox {
	return j.sandbox
}

// Remove unschedules the job. The underlying webtask token is not revoked,
// so the webtask itself remains invokable.
func (j *CronJob) Remove(ctx context.Context) error {
	return j.sandbox.removeCronJob(ctx, j.Container, j.Name)
}

// RemoveAsync is the future form of Remove
func (j *CronJob) RemoveAsync(ctx context.Context) *async.Future[struct{}] {
	return async.Run(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, j.Remove(ctx)
	})
}

// historyQuery resolves opts against this job's defaults: its own container
// and name, offset 0, limit 10.
func (j *CronJob) historyQuery(opts *models.HistoryOptions) models.HistoryQuery {
	return opts.Resolve(models.HistoryQuery{
		Container: j.Container,
		Name:      j.Name,
		Offset:    models.DefaultHistoryOffset,
		Limit:     models.DefaultHistoryLimit,
	})
}

// GetHistory returns a page of past runs. opts may be nil; unset fields take
// the job's defaults.
func (j *CronJob) GetHistory(ctx context.Context, opts *models.HistoryOptions) ([]models.HistoryRecord, error) {
	return j.sandbox.getCronJobHistory(ctx, j.historyQuery(opts))
}

// GetHistoryAsync is the future form of GetHistory
func (j *CronJob) GetHistoryAsync(ctx context.Context, opts *models.HistoryOptions) *async.Future[[]models.HistoryRecord] {
	q := j.historyQuery(opts)
	return async.Run(ctx, func(ctx context.Context) ([]models.HistoryRecord, error) {
		return j.sandbox.getCronJobHistory(ctx, q)
	})
}

// Refresh loads the job's current state from the cluster into a new CronJob
func (j *CronJob) Refresh(ctx context.Context) (*CronJob, error) {
	job, err := j.sandbox.Cron.Get(ctx, j.Container, j.Name)
	if err != nil {
		return nil, err
	}
	return newCronJob(j.sandbox, *job)
}

// RefreshAsync is the future form of Refresh
func (j *CronJob) RefreshAsync(ctx context.Context) *async.Future[*CronJob] {
	return async.Run(ctx, j.Refresh)
}

// SetState activates or deactivates the job's schedule and returns the
// updated job
func (j *CronJob) SetState(ctx context.Context, state string) (*CronJob, error) {
	if err := validateCronState(state); err != nil {
		return nil, err
	}
	job, err := j.sandbox.Cron.SetState(ctx, j.Container, j.Name, state)
	if err != nil {
		return nil, err
	}
	return newCronJob(j.sandbox, *job)
}

// SetStateAsync is the future form of SetState
func (j *CronJob) SetStateAsync(ctx context.Context, state string) *async.Future[*CronJob] {
	if err := validateCronState(state); err != nil {
		return async.Reject[*CronJob](err)
	}
	return async.Run(ctx, func(ctx context.Context) (*CronJob, error) {
		return j.SetState(ctx, state)
	})
}

func validateCronState(state string) error {
	switch state {
	case models.CronStateActive, models.CronStateInactive:
		return nil
	}
	return &ValidationError{Field: "state", Message: "must be active or inactive"}
}
