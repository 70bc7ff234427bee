// Package client talks to the questionnaire backend REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"cuestionarios/internal/model"
)

// ErrNotFound is returned for 404 responses
var ErrNotFound = errors.New("not found")

// ErrRateLimited is returned when every retry hit 429
var ErrRateLimited = errors.New("rate limited")

// APIError is a non-2xx response other than 404 and 429
type APIError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend %s %s returned %d: %s", e.Method, e.Path, e.Status, e.Body)
}

// Config configures a Client
type Config struct {
	BaseURL    string
	Token      string
	Timeout    time.Duration
	MaxRetries int
	// Backoff is the first wait after a 429; it doubles on every retry.
	Backoff time.Duration
}

// Client wraps the questionnaire backend API calls
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	maxRetries int
	backoff    time.Duration
	logger     *zap.Logger
}

// New creates a backend client
func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Token == "" {
		logger.Warn("backend token not set, requests are unauthenticated")
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		maxRetries: cfg.MaxRetries,
		backoff:    cfg.Backoff,
		logger:     logger.Named("client"),
	}
}

// doRequest performs an HTTP request, retrying 429 responses with exponential backoff
func (c *Client) doRequest(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
	}

	log := c.logger.With(zap.String("method", method), zap.String("path", path))
	log.Debug("request")

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			log.Debug("retrying", zap.Int("attempt", attempt), zap.Int("max", c.maxRetries))
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Warn("http request failed", zap.Int("attempt", attempt+1), zap.Error(err))
			lastErr = err
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			wait := time.Duration(math.Pow(2, float64(attempt))) * c.backoff
			log.Warn("rate limited", zap.Int("attempt", attempt+1), zap.Duration("backoff", wait))
			lastErr = ErrRateLimited
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			continue
		case resp.StatusCode == http.StatusNotFound:
			return nil, fmt.Errorf("%s %s: %w", method, path, ErrNotFound)
		case resp.StatusCode >= 400:
			log.Warn("backend error", zap.Int("status", resp.StatusCode))
			return nil, &APIError{Method: method, Path: path, Status: resp.StatusCode, Body: string(respBody)}
		}

		log.Debug("response", zap.Int("status", resp.StatusCode), zap.Int("bytes", len(respBody)))
		return respBody, nil
	}

	log.Error("max retries exceeded", zap.Error(lastErr))
	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// GetQuestionnaire fetches a questionnaire and its question catalog
func (c *Client) GetQuestionnaire(ctx context.Context, id int) (*model.Questionnaire, error) {
	respBody, err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf("/api/cuestionarios/%d/", id), nil)
	if err != nil {
		return nil, err
	}

	var q model.Questionnaire
	if err := json.Unmarshal(respBody, &q); err != nil {
		return nil, fmt.Errorf("failed to parse questionnaire: %w", err)
	}
	return &q, nil
}

// ListAnswers fetches the stored answers of a user for a questionnaire
func (c *Client) ListAnswers(ctx context.Context, usuario, cuestionario int) ([]model.AnswerRecord, error) {
	path := "/api/cuestionarios/respuestas/?" + userQuery(usuario, cuestionario)
	respBody, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	records, err := decodeList[model.AnswerRecord](respBody)
	if err != nil {
		return nil, fmt.Errorf("failed to parse answers: %w", err)
	}
	return records, nil
}

// SaveAnswer upserts one answer
func (c *Client) SaveAnswer(ctx context.Context, rec model.AnswerRecord) (*model.AnswerRecord, error) {
	respBody, err := c.doRequest(ctx, http.MethodPost, "/api/cuestionarios/respuestas/", rec)
	if err != nil {
		return nil, err
	}

	var saved model.AnswerRecord
	if len(bytes.TrimSpace(respBody)) == 0 {
		return &rec, nil
	}
	if err := json.Unmarshal(respBody, &saved); err != nil {
		return nil, fmt.Errorf("failed to parse saved answer: %w", err)
	}
	return &saved, nil
}

// GetFinalization fetches the completion status. A missing record means not finalized.
func (c *Client) GetFinalization(ctx context.Context, usuario, cuestionario int) (*model.Finalization, error) {
	path := "/api/cuestionarios/finalizar-cuestionario/?" + userQuery(usuario, cuestionario)
	respBody, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if errors.Is(err, ErrNotFound) {
		return &model.Finalization{Usuario: usuario, Cuestionario: cuestionario}, nil
	}
	if err != nil {
		return nil, err
	}

	var f model.Finalization
	if err := json.Unmarshal(respBody, &f); err != nil {
		return nil, fmt.Errorf("failed to parse finalization: %w", err)
	}
	return &f, nil
}

// Finalize marks the questionnaire complete
func (c *Client) Finalize(ctx context.Context, usuario, cuestionario int) (*model.Finalization, error) {
	req := model.Finalization{Usuario: usuario, Cuestionario: cuestionario, Finalizado: true}
	respBody, err := c.doRequest(ctx, http.MethodPost, "/api/cuestionarios/finalizar-cuestionario/", req)
	if err != nil {
		return nil, err
	}

	var f model.Finalization
	if err := json.Unmarshal(respBody, &f); err != nil {
		return nil, fmt.Errorf("failed to parse finalization: %w", err)
	}
	return &f, nil
}

// GetProfileFieldValue fetches a denormalized profile field value
func (c *Client) GetProfileFieldValue(ctx context.Context, usuario int, fieldPath string) (*model.ProfileFieldValue, error) {
	path := fmt.Sprintf("/api/cuestionarios/profile-fields/user/%d/value/%s/", usuario, url.PathEscape(fieldPath))
	respBody, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var v model.ProfileFieldValue
	if err := json.Unmarshal(respBody, &v); err != nil {
		return nil, fmt.Errorf("failed to parse profile field value: %w", err)
	}
	if v.Path == "" {
		v.Path = fieldPath
	}
	if v.Usuario == 0 {
		v.Usuario = usuario
	}
	return &v, nil
}

func userQuery(usuario, cuestionario int) string {
	q := url.Values{}
	q.Set("usuario", strconv.Itoa(usuario))
	q.Set("cuestionario", strconv.Itoa(cuestionario))
	return q.Encode()
}

// decodeList accepts a bare array or a paginated {"results": [...]} envelope
func decodeList[T any](data []byte) ([]T, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var page struct {
			Results []T `json:"results"`
		}
		if err := json.Unmarshal(trimmed, &page); err != nil {
			return nil, err
		}
		return page.Results, nil
	}
	var items []T
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, err
	}
	return items, nil
}
