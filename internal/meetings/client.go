// Package meetings provisions video rooms for confirmed video consultations.
package meetings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/wolfman30/vetcare-platform/pkg/logging"
)

const (
	defaultBaseURL  = "https://api.whereby.dev"
	defaultTimeout  = 15 * time.Second
	defaultRoomMode = "normal"
)

// CreateMeetingRequest is the body of POST /v1/meetings.
type CreateMeetingRequest struct {
	StartDate string   `json:"startDate,omitempty"`
	EndDate   string   `json:"endDate"`
	RoomMode  string   `json:"roomMode"`
	Fields    []string `json:"fields,omitempty"`
}

// CreateMeetingResponse carries the room urls returned by the provider.
type CreateMeetingResponse struct {
	MeetingID   string `json:"meetingId"`
	RoomURL     string `json:"roomUrl"`
	HostRoomURL string `json:"hostRoomUrl"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
}

// WherebyClient calls the Whereby REST API.
type WherebyClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	roomMode   string
	logger     *logging.Logger
}

// NewWherebyClient returns nil when apiKey is empty.
func NewWherebyClient(baseURL, apiKey, roomMode string, logger *logging.Logger) *WherebyClient {
	if strings.TrimSpace(apiKey) == "" {
		return nil
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultBaseURL
	}
	if strings.TrimSpace(roomMode) == "" {
		roomMode = defaultRoomMode
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &WherebyClient{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		roomMode:   roomMode,
		logger:     logger,
	}
}

// CreateMeeting creates a room that is open between start and end.
func (c *WherebyClient) CreateMeeting(ctx context.Context, start, end time.Time) (*CreateMeetingResponse, error) {
	if c == nil {
		return nil, fmt.Errorf("meetings: whereby client not configured")
	}
	if !end.After(start) {
		return nil, fmt.Errorf("meetings: end %s must be after start %s", end.Format(time.RFC3339), start.Format(time.RFC3339))
	}
	req := CreateMeetingRequest{
		StartDate: start.UTC().Format(time.RFC3339),
		EndDate:   end.UTC().Format(time.RFC3339),
		RoomMode:  c.roomMode,
		Fields:    []string{"hostRoomUrl"},
	}
	var resp CreateMeetingResponse
	if err := c.doJSON(ctx, http.MethodPost, "/v1/meetings", req, &resp); err != nil {
		return nil, fmt.Errorf("meetings: create meeting: %w", err)
	}
	if resp.MeetingID == "" || resp.RoomURL == "" {
		return nil, fmt.Errorf("meetings: create meeting: response missing meetingId or roomUrl")
	}
	return &resp, nil
}

func (c *WherebyClient) doJSON(ctx context.Context, method, path string, body any, out any) error {
	var bodyReader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := string(respBody)
		if len(msg) > 300 {
			msg = msg[:300]
		}
		c.logger.Warn("whereby API non-2xx response", "status", resp.StatusCode, "path", path, "body", msg)
		return fmt.Errorf("whereby API returned %d: %s", resp.StatusCode, msg)
	}
	if len(respBody) == 0 || out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
