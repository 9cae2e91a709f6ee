package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/mehreencs87/sandboxjs/models"
)

// WebtaskService manages and invokes webtasks.
type WebtaskService struct {
	client ClientInterface
}

func NewWebtaskService(client ClientInterface) *WebtaskService {
	return &WebtaskService{
		client: client,
	}
}

// Get retrieves a named webtask
func (s *WebtaskService) Get(ctx context.Context, container, name string) (*models.TaskInfo, error) {
	var info models.TaskInfo
	if err := doJSON(ctx, s.client, http.MethodGet, webtaskPath(container, name), nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Put registers token under container/name so the webtask can be invoked by
// name
func (s *WebtaskService) Put(ctx context.Context, container, name, token string) (*models.TaskInfo, error) {
	payload := map[string]string{"token": token}

	var info models.TaskInfo
	if err := doJSON(ctx, s.client, http.MethodPut, webtaskPath(container, name), payload, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Remove deletes the platform's routing entry for a named webtask. The token
// stays valid.
func (s *WebtaskService) Remove(ctx context.Context, container, name string) error {
	return doJSON(ctx, s.client, http.MethodDelete, webtaskPath(container, name), nil, nil)
}

// Run invokes the webtask at RunPath(container, id), authenticating with its
// own token rather than the sandbox token.
func (s *WebtaskService) Run(ctx context.Context, container, id, token string, opts *models.RunOptions) (*models.RunResponse, error) {
	if opts == nil {
		opts = &models.RunOptions{}
	}

	var body io.Reader
	contentType := "application/json"
	switch b := opts.Body.(type) {
	case nil:
	case string:
		body = bytes.NewReader([]byte(b))
		contentType = "text/plain"
	case []byte:
		body = bytes.NewReader(b)
		contentType = "application/octet-stream"
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	method := opts.Method
	if method == "" {
		method = http.MethodGet
		if body != nil {
			method = http.MethodPost
		}
	}

	path := RunPath(container, id)
	if len(opts.Query) > 0 {
		q := url.Values{}
		for k, v := range opts.Query {
			q.Set(k, v)
		}
		path += "?" + q.Encode()
	}

	req, err := s.client.NewRequest(ctx, method, path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "*/*")
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	} else {
		req.Header.Del("Content-Type")
	}
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("run webtask: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return &models.RunResponse{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       string(data),
	}, nil
}
