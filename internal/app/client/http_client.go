package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/exp/slog"

	"campsync/internal/app/client/config"
	"campsync/internal/domain/campaign"
	syncdomain "campsync/internal/domain/sync"
)

// RemoteClient talks to the campaign service: request/response calls for
// direct writes and batch hydration. The push channel lives in realtime.go.
type RemoteClient struct {
	client    *http.Client
	log       *slog.Logger
	baseURL   string
	userAgent string
}

func NewRemoteClient(cfg *config.Config, log *slog.Logger) *RemoteClient {
	client := &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			IdleConnTimeout:     90 * time.Second,
			MaxIdleConnsPerHost: 10,
		},
	}

	scheme := "http://"
	if cfg.EnableTLS {
		scheme = "https://"
	}

	return &RemoteClient{
		client:    client,
		log:       log,
		baseURL:   scheme + cfg.ServerAddress,
		userAgent: "CampSync-Client/1.0",
	}
}

// BaseURL exposes the service address, used to derive the websocket URL.
func (r *RemoteClient) BaseURL() string {
	return r.baseURL
}

// Ping checks service availability; the connectivity monitor probes with it.
func (r *RemoteClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/api/v1/health", nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("service returned status %d", resp.StatusCode)
	}
	return nil
}

type entityDTO struct {
	ID        string          `json:"id"`
	Kind      syncdomain.Kind `json:"kind"`
	Attrs     map[string]any  `json:"attrs"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (d entityDTO) entity() campaign.Entity {
	return campaign.Entity{ID: d.ID, Kind: d.Kind, Attrs: d.Attrs, Revision: d.UpdatedAt}
}

// ListEntities hydrates the full snapshot for a scope.
func (r *RemoteClient) ListEntities(ctx context.Context, scope string) ([]campaign.Entity, error) {
	resp, err := r.doRequest(ctx, http.MethodGet, "/api/v1/entities?scope="+url.QueryEscape(scope), nil)
	if err != nil {
		return nil, err
	}

	var listResp struct {
		Entities []entityDTO `json:"entities"`
	}
	if err := r.parseResponse(resp, &listResp); err != nil {
		return nil, err
	}

	entities := make([]campaign.Entity, 0, len(listResp.Entities))
	for _, dto := range listResp.Entities {
		entities = append(entities, dto.entity())
	}
	return entities, nil
}

// CreateEntity writes a new entity to the service.
func (r *RemoteClient) CreateEntity(ctx context.Context, scope string, kind syncdomain.Kind, id string, attrs map[string]any) error {
	body := map[string]any{
		"id":    id,
		"kind":  kind,
		"scope": scope,
		"attrs": attrs,
	}
	resp, err := r.doRequest(ctx, http.MethodPost, "/api/v1/entities", body)
	if err != nil {
		return err
	}
	return r.parseResponse(resp, nil)
}

// UpdateEntity applies an attribute patch to an existing entity.
func (r *RemoteClient) UpdateEntity(ctx context.Context, id string, attrs map[string]any) error {
	body := map[string]any{"attrs": attrs}
	resp, err := r.doRequest(ctx, http.MethodPut, "/api/v1/entities/"+url.PathEscape(id), body)
	if err != nil {
		return err
	}
	return r.parseResponse(resp, nil)
}

// DeleteEntity removes an entity from the service.
func (r *RemoteClient) DeleteEntity(ctx context.Context, id string) error {
	resp, err := r.doRequest(ctx, http.MethodDelete, "/api/v1/entities/"+url.PathEscape(id), nil)
	if err != nil {
		return err
	}
	return r.parseResponse(resp, nil)
}

func (r *RemoteClient) doRequest(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", r.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}

func (r *RemoteClient) parseResponse(resp *http.Response, out any) error {
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("service returned status %d: %s", resp.StatusCode, bytes.TrimSpace(data))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
