// Package agent holds the HTTP clients for the external travel-planning
// services: the routing service that answers conversation turns, the gap
// service behind the side panel, and the clarification answer endpoint.
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/tripdeck/tui-go/internal/classify"
)

// recentMessageWindow is how many transcript entries travel with a turn.
const recentMessageWindow = 5

// Client talks to the routing service.
type Client struct {
	baseURL    string
	userID     string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a routing-service client. timeout 0 means no request
// timeout; a hung call then waits until the context is cancelled.
func NewClient(baseURL, userID string, timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    baseURL,
		userID:     userID,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// TurnRequest is one conversation turn on the wire.
type TurnRequest struct {
	RequestID           string              `json:"request_id"`
	UserID              string              `json:"user_id"`
	TripID              *string             `json:"trip_id"`
	Message             string              `json:"message"`
	ConversationContext ConversationContext `json:"conversation_context"`
	AllowWebbrowse      bool                `json:"allow_webbrowse,omitempty"`
}

// ConversationContext carries the trailing transcript window.
type ConversationContext struct {
	RecentMessages []string `json:"recent_messages"`
}

// RecentWindow trims rendered transcript lines to the wire window.
func RecentWindow(rendered []string) []string {
	if len(rendered) <= recentMessageWindow {
		return rendered
	}
	return rendered[len(rendered)-recentMessageWindow:]
}

// RouteAndRun dispatches one turn and returns the undecoded classification
// input.
func (c *Client) RouteAndRun(ctx context.Context, req TurnRequest) (classify.Response, error) {
	req.UserID = c.userID
	var resp classify.Response
	start := time.Now()
	err := c.post(ctx, "/agent/route_and_run", req, &resp)
	if err != nil {
		c.logger.Warn("route_and_run failed",
			zap.String("request_id", req.RequestID),
			zap.Error(err))
		return classify.Response{}, err
	}
	c.logger.Info("route_and_run",
		zap.String("request_id", req.RequestID),
		zap.String("status", resp.Result.Status),
		zap.Duration("elapsed", time.Since(start)))
	return resp, nil
}

// post executes one JSON round-trip against the service.
func (c *Client) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// get executes one JSON fetch against the service.
func (c *Client) get(ctx context.Context, path string, out any) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
