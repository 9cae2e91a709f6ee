package models

import "time"

// LogEvent is a single entry from a container's real-time log stream
type LogEvent struct {
	Type    string    `json:"type"`
	Name    string    `json:"name,omitempty"`
	Message string    `json:"msg"`
	Time    time.Time `json:"time"`
}
