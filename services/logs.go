package services

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/mehreencs87/sandboxjs/models"
)

// LogService follows a container's real-time log stream.
type LogService struct {
	client ClientInterface
}

func NewLogService(client ClientInterface) *LogService {
	return &LogService{
		client: client,
	}
}

// Stream reads the container's SSE log stream and sends each entry to events
// until the stream ends, ctx is cancelled, or the platform reports an error.
// A cancelled ctx or a stream closed by the server returns nil. Stream never
// closes events.
func (s *LogService) Stream(ctx context.Context, container string, events chan<- models.LogEvent) error {
	req, err := s.client.NewRequest(ctx, http.MethodGet, "/api/logs/tenant/"+url.PathEscape(container), nil)
	if err != nil {
		return fmt.Errorf("failed to create SSE request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := s.client.DoStream(req)
	if err != nil {
		return fmt.Errorf("SSE request failed: %w", err)
	}
	defer resp.Body.Close()

	// Read SSE stream
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()

		// SSE format: "data: <json>"
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		jsonData := strings.TrimPrefix(line, "data: ")

		var event models.LogEvent
		if err := json.Unmarshal([]byte(jsonData), &event); err != nil {
			continue // Skip malformed JSON
		}

		switch event.Type {
		case "connected":
			continue
		case "error":
			return fmt.Errorf("log stream error: %s", event.Message)
		}

		select {
		case events <- event:
		case <-ctx.Done():
			return nil
		}
	}

	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			return nil
		}
		return fmt.Errorf("error reading SSE stream: %w", err)
	}

	return nil
}
