package models

import "time"

// Cron job states understood by the platform
const (
	CronStateActive   = "active"
	CronStateInactive = "inactive"
)

// CronJobOptions configures a new cron job
type CronJobOptions struct {
	// Name is required: cron jobs are always named
	Name string

	// Schedule is a cron expression. It is passed through unvalidated.
	Schedule string

	// Code is inline source or a code URL. Ignored when Token is set.
	Code string

	// Token reuses an already issued webtask token
	Token string

	// State defaults to active on the platform when empty
	State string

	// Create configures the token issued when Token is empty
	Create *CreateOptions
}

// CronJobDescriptor is the platform's JSON description of a cron job
type CronJobDescriptor struct {
	Container       string    `json:"container"`
	Name            string    `json:"name"`
	Schedule        string    `json:"schedule"`
	NextScheduledAt time.Time `json:"next_scheduled_at"`
	Token           string    `json:"token"`
	ClusterURL      string    `json:"cluster_url"`
	State           string    `json:"state,omitempty"`
}

// CronJobRequest is the body sent when creating or replacing a cron job
type CronJobRequest struct {
	Token    string `json:"token"`
	Schedule string `json:"schedule"`
	State    string `json:"state,omitempty"`
}
