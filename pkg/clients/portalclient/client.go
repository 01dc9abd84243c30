package portalclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/dispatch-vote/pkg/api"
	"github.com/jakechorley/dispatch-vote/pkg/core/model"
	"github.com/jakechorley/dispatch-vote/pkg/core/services"
	"github.com/jakechorley/dispatch-vote/pkg/db"
)

const defaultTimeout = 30 * time.Second

// APIError is a non-2xx response. It matches the db sentinels by status code.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

func (e *APIError) Is(target error) bool {
	switch e.Status {
	case http.StatusUnauthorized:
		return target == db.ErrUnauthorized
	case http.StatusForbidden:
		return target == db.ErrForbidden
	case http.StatusNotFound:
		return target == db.ErrNotFound
	}
	return false
}

// Client talks to the voting portal over HTTP
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a client for the portal at baseURL. A nil httpClient uses a client with a 30s timeout.
func NewClient(baseURL string, httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     logger,
	}
}

// Context loads the voting context for token
func (c *Client) Context(ctx context.Context, token string) (*model.VotingContext, error) {
	var resp api.ContextResponse
	if err := c.post(ctx, "/context", api.ContextRequest{Token: token}, &resp); err != nil {
		return nil, err
	}
	return resp.Context, nil
}

// Submit stores one vote
func (c *Client) Submit(ctx context.Context, req services.SubmitVoteRequest) (*model.SubmitResult, error) {
	var resp api.SubmitResponse
	err := c.post(ctx, "/submit", api.SubmitRequest{
		Token:         req.Token,
		InternalJobID: req.InternalJobID,
		ForecastDate:  req.ForecastDate,
		LensID:        req.LensID,
		VoteValue:     req.VoteValue,
		VoteReason:    req.VoteReason,
		DelayMinutes:  req.DelayMinutes,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Result, nil
}

// JobVotes lists every vote on an item
func (c *Client) JobVotes(ctx context.Context, token string, key model.ItemKey) ([]model.JobVote, error) {
	var resp api.JobVotesResponse
	err := c.post(ctx, "/job-votes", api.JobVotesRequest{
		Token:         token,
		InternalJobID: key.InternalJobID,
		ForecastDate:  key.ForecastDate,
		LensID:        key.LensID,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Votes, nil
}

// JobWeather returns a job's forecast, or (nil, nil) when the portal has none
func (c *Client) JobWeather(ctx context.Context, jobID, forecastDate string) (*model.JobWeather, error) {
	q := url.Values{}
	q.Set("jobId", jobID)
	q.Set("forecastDate", forecastDate)

	var resp api.JobWeatherResponse
	err := c.do(ctx, http.MethodGet, "/job-weather?"+q.Encode(), nil, &resp)
	if errors.Is(err, db.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return resp.Weather, nil
}

// Resolve checks token against a batch and returns the voter
func (c *Client) Resolve(ctx context.Context, batchID, token string) (*model.Voter, error) {
	var voter model.Voter
	if err := c.post(ctx, "/resolve", api.ResolveRequest{CampaignID: batchID, Token: token}, &voter); err != nil {
		return nil, err
	}
	return &voter, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call %s: %w", path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("Portal request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

// decodeError reads a {message} body, falling back to the status text
func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var body api.ErrorResponse
	if err := json.Unmarshal(data, &body); err == nil && body.Message != "" {
		apiErr.Message = body.Message
	} else if text := strings.TrimSpace(string(data)); text != "" {
		apiErr.Message = text
	} else {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}
