package sandbox

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mehreencs87/sandboxjs/async"
	"github.com/mehreencs87/sandboxjs/models"
)

func validateCronJobOptions(opts models.CronJobOptions) error {
	switch {
	case opts.Name == "":
		return &ValidationError{Field: "name", Message: "cron jobs must be named"}
	case opts.Schedule == "":
		return &ValidationError{Field: "schedule", Message: "is required"}
	case opts.Token == "" && opts.Code == "":
		return &ValidationError{Field: "code", Message: "code or token is required"}
	case opts.State != "":
		return validateCronState(opts.State)
	}
	return nil
}

// CreateCronJob schedules a webtask. A token is issued for opts.Code unless
// opts.Token is set. The schedule is not validated locally.
func (s *Sandbox) CreateCronJob(ctx context.Context, opts models.CronJobOptions) (*CronJob, error) {
	if err := validateCronJobOptions(opts); err != nil {
		return nil, err
	}

	raw := opts.Token
	if raw == "" {
		create := models.CreateOptions{}
		if opts.Create != nil {
			create = *opts.Create
		}
		create.Name = opts.Name

		var err error
		raw, err = s.CreateToken(ctx, opts.Code, &create)
		if err != nil {
			return nil, err
		}
	}

	job, err := s.Cron.Put(ctx, s.container, opts.Name, models.CronJobRequest{
		Token:    raw,
		Schedule: opts.Schedule,
		State:    opts.State,
	})
	if err != nil {
		return nil, err
	}

	cronJob, err := newCronJob(s, *job)
	if err != nil {
		return nil, fmt.Errorf("cluster returned an unusable cron job: %w", err)
	}

	s.logger.Debug("cron job scheduled",
		zap.String("container", cronJob.Container),
		zap.String("name", cronJob.Name),
		zap.String("schedule", cronJob.Schedule),
		zap.Time("next_scheduled_at", cronJob.NextScheduledAt),
	)
	return cronJob, nil
}

// CreateCronJobAsync is the future form of CreateCronJob
func (s *Sandbox) CreateCronJobAsync(ctx context.Context, opts models.CronJobOptions) *async.Future[*CronJob] {
	if err := validateCronJobOptions(opts); err != nil {
		return async.Reject[*CronJob](err)
	}
	return async.Run(ctx, func(ctx context.Context) (*CronJob, error) {
		return s.CreateCronJob(ctx, opts)
	})
}

// ListCronJobs returns every cron job in the sandbox's container
func (s *Sandbox) ListCronJobs(ctx context.Context) ([]*CronJob, error) {
	jobs, err := s.Cron.List(ctx, s.container)
	if err != nil {
		return nil, err
	}

	cronJobs := make([]*CronJob, 0, len(jobs))
	for _, job := range jobs {
		cronJob, err := newCronJob(s, job)
		if err != nil {
			return nil, fmt.Errorf("cron job %s: %w", job.Name, err)
		}
		cronJobs = append(cronJobs, cronJob)
	}
	return cronJobs, nil
}

// ListCronJobsAsync is the future form of ListCronJobs
func (s *Sandbox) ListCronJobsAsync(ctx context.Context) *async.Future[[]*CronJob] {
	return async.Run(ctx, s.ListCronJobs)
}

// GetCronJob loads a single cron job by name
func (s *Sandbox) GetCronJob(ctx context.Context, name string) (*CronJob, error) {
	if name == "" {
		return nil, &ValidationError{Field: "name", Message: "is required"}
	}
	job, err := s.Cron.Get(ctx, s.container, name)
	if err != nil {
		return nil, err
	}

	cronJob, err := newCronJob(s, *job)
	if err != nil {
		return nil, fmt.Errorf("cron job %s: %w", name, err)
	}
	return cronJob, nil
}

// GetCronJobAsync is the future form of GetCronJob
func (s *Sandbox) GetCronJobAsync(ctx context.Context, name string) *async.Future[*CronJob] {
	if name == "" {
		return async.Reject[*CronJob](&ValidationError{Field: "name", Message: "is required"})
	}
	return async.Run(ctx, func(ctx context.Context) (*CronJob, error) {
		return s.GetCronJob(ctx, name)
	})
}

func (s *Sandbox) removeCronJob(ctx context.Context, container, name string) error {
	if err := s.Cron.Remove(ctx, container, name); err != nil {
		return err
	}
	s.logger.Debug("cron job removed", zap.String("container", container), zap.String("name", name))
	return nil
}

func (s *Sandbox) getCronJobHistory(ctx context.Context, q models.HistoryQuery) ([]models.HistoryRecord, error) {
	return s.Cron.History(ctx, q)
}
