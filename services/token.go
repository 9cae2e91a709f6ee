package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// TokenService issues, inspects and revokes webtask tokens.
type TokenService struct {
	client ClientInterface
}

func NewTokenService(client ClientInterface) *TokenService {
	return &TokenService{
		client: client,
	}
}

// Issue asks the cluster to sign a token carrying claims and returns it.
func (s *TokenService) Issue(ctx context.Context, claims map[string]any) (string, error) {
	body, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("failed to marshal claims: %w", err)
	}

	req, err := s.client.NewRequest(ctx, http.MethodPost, "/api/tokens/issue", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "text/plain")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read token: %w", err)
	}

	token := strings.TrimSpace(string(raw))
	if token == "" {
		return "", fmt.Errorf("issue token: empty response")
	}
	return token, nil
}

// Inspect returns the claims the cluster associates with a token.
func (s *TokenService) Inspect(ctx context.Context, token string) (map[string]any, error) {
	path := "/api/tokens/inspect?token=" + url.QueryEscape(token)

	var claims map[string]any
	if err := doJSON(ctx, s.client, http.MethodGet, path, nil, &claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// Revoke blacklists a token on the cluster.
func (s *TokenService) Revoke(ctx context.Context, token string) error {
	payload := map[string]string{"token": token}
	return doJSON(ctx, s.client, http.MethodPost, "/api/tokens/revoke", payload, nil)
}
