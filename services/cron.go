package services

import (
	"context"
	"fmt"
	"net/http"

	"github.com/mehreencs87/sandboxjs/models"
)

// CronService schedules webtasks and reads their run history.
type CronService struct {
	client ClientInterface
}

func NewCronService(client ClientInterface) *CronService {
	return &CronService{
		client: client,
	}
}

// Put creates or replaces the cron job container/name
func (s *CronService) Put(ctx context.Context, container, name string, req models.CronJobRequest) (*models.CronJobDescriptor, error) {
	var job models.CronJobDescriptor
	if err := doJSON(ctx, s.client, http.MethodPut, cronPath(container, name), req, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// List retrieves every cron job in a container
func (s *CronService) List(ctx context.Context, container string) ([]models.CronJobDescriptor, error) {
	var jobs []models.CronJobDescriptor
	if err := doJSON(ctx, s.client, http.MethodGet, cronPath(container, ""), nil, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

// Get retrieves a single cron job
func (s *CronService) Get(ctx context.Context, container, name string) (*models.CronJobDescriptor, error) {
	var job models.CronJobDescriptor
	if err := doJSON(ctx, s.client, http.MethodGet, cronPath(container, name), nil, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// Remove stops future runs of a cron job. The job's token stays valid.
func (s *CronService) Remove(ctx context.Context, container, name string) error {
	return doJSON(ctx, s.client, http.MethodDelete, cronPath(container, name), nil, nil)
}

// History retrieves one page of past runs
func (s *CronService) History(ctx context.Context, q models.HistoryQuery) ([]models.HistoryRecord, error) {
	path := fmt.Sprintf("%s/history?offset=%d&limit=%d", cronPath(q.Container, q.Name), q.Offset, q.Limit)

	var records []models.HistoryRecord
	if err := doJSON(ctx, s.client, http.MethodGet, path, nil, &records); err != nil {
		return nil, err
	}
	if records == nil {
		records = []models.HistoryRecord{}
	}
	return records, nil
}

// SetState activates or deactivates a cron job's schedule
func (s *CronService) SetState(ctx context.Context, container, name, state string) (*models.CronJobDescriptor, error) {
	payload := map[string]string{"state": state}

	var job models.CronJobDescriptor
	if err := doJSON(ctx, s.client, http.MethodPut, cronPath(container, name)+"/state", payload, &job); err != nil {
		return nil, err
	}
	return &job, nil
}
