// Package early is a client for the Timeular ("Early") v3 time-tracking API.
package early

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/vthunder/early-mcp/internal/logging"
)

// Client issues authenticated requests against the API. Get one from
// Session.Client; it is safe for concurrent use.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func newClient(baseURL, token string, httpClient *http.Client) *Client {
	return &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: httpClient,
	}
}

// --- Activities ---

// Activities returns all active activities.
func (c *Client) Activities(ctx context.Context) ([]Activity, error) {
	var out struct {
		Activities []Activity `json:"activities"`
	}
	if err := c.do(ctx, http.MethodGet, "/activities", nil, &out); err != nil {
		return nil, err
	}
	if out.Activities == nil {
		out.Activities = []Activity{}
	}
	return out.Activities, nil
}

// --- Tracking ---

// CurrentTracking returns the running tracking, or nil if nothing is tracked.
func (c *Client) CurrentTracking(ctx context.Context) (*Tracking, error) {
	var out struct {
		CurrentTracking *Tracking `json:"currentTracking"`
	}
	if err := c.do(ctx, http.MethodGet, "/tracking", nil, &out); err != nil {
		return nil, err
	}
	return out.CurrentTracking, nil
}

// StartTracking starts tracking activityID at startedAt (API timestamp form).
// The remote response is returned as is.
func (c *Client) StartTracking(ctx context.Context, activityID, startedAt string) (map[string]any, error) {
	var out map[string]any
	path := "/tracking/" + url.PathEscape(activityID) + "/start"
	body := struct {
		StartedAt string `json:"startedAt"`
	}{startedAt}
	if err := c.do(ctx, http.MethodPost, path, body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// StopTracking stops the running tracking at stoppedAt and returns the time
// entry it created.
func (c *Client) StopTracking(ctx context.Context, stoppedAt string) (*TimeEntry, error) {
	var raw json.RawMessage
	body := struct {
		StoppedAt string `json:"stoppedAt"`
	}{stoppedAt}
	if err := c.do(ctx, http.MethodPost, "/tracking/stop", body, &raw); err != nil {
		return nil, err
	}

	var wrapped struct {
		CreatedTimeEntry json.RawMessage `json:"createdTimeEntry"`
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &wrapped); err != nil {
			return nil, fmt.Errorf("parse stop response: %w", err)
		}
	}
	if len(wrapped.CreatedTimeEntry) > 0 && string(wrapped.CreatedTimeEntry) != "null" {
		raw = wrapped.CreatedTimeEntry
	}

	var entry TimeEntry
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &entry); err != nil {
			return nil, fmt.Errorf("parse created time entry: %w", err)
		}
	}
	return &entry, nil
}

// EditTracking patches the running tracking. Only non-empty fields of edit
// are sent. The remote response is returned as is.
func (c *Client) EditTracking(ctx context.Context, edit TrackingEdit) (map[string]any, error) {
	var out map[string]any
	if err := c.do(ctx, http.MethodPatch, "/tracking", edit, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// --- Time entries ---

// TimeEntries returns entries stopped after stoppedAfter and started before
// startedBefore, both in API timestamp form.
func (c *Client) TimeEntries(ctx context.Context, stoppedAfter, startedBefore string) ([]TimeEntry, error) {
	var out struct {
		TimeEntries []TimeEntry `json:"timeEntries"`
	}
	path := "/time-entries/" + url.PathEscape(stoppedAfter) + "/" + url.PathEscape(startedBefore)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.TimeEntries, nil
}

// CreateTimeEntry creates a closed time entry.
func (c *Client) CreateTimeEntry(ctx context.Context, entry NewTimeEntry) (*TimeEntry, error) {
	var out TimeEntry
	if err := c.do(ctx, http.MethodPost, "/time-entries", entry, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateTimeEntry patches a time entry. Only non-empty fields of update are
// sent.
func (c *Client) UpdateTimeEntry(ctx context.Context, id string, update TimeEntryUpdate) (*TimeEntry, error) {
	var out TimeEntry
	if err := c.do(ctx, http.MethodPatch, "/time-entries/"+url.PathEscape(id), update, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteTimeEntry deletes a time entry.
func (c *Client) DeleteTimeEntry(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/time-entries/"+url.PathEscape(id), nil, nil)
}

// --- Tags and mentions ---

// TagsAndMentions returns the whole tag and mention vocabulary.
func (c *Client) TagsAndMentions(ctx context.Context) (*TagsAndMentions, error) {
	var out TagsAndMentions
	if err := c.do(ctx, http.MethodGet, "/tags-and-mentions", nil, &out); err != nil {
		return nil, err
	}
	if out.Tags == nil {
		out.Tags = []Tag{}
	}
	if out.Mentions == nil {
		out.Mentions = []Mention{}
	}
	return &out, nil
}

// CreateTag creates a tag in the personal Timeular space. The remote response
// is returned as is.
func (c *Client) CreateTag(ctx context.Context, key, label string) (map[string]any, error) {
	var out map[string]any
	body := NewTag{Key: key, Label: label, Scope: "timeular", SpaceID: 0}
	if err := c.do(ctx, http.MethodPost, "/tags", body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// --- HTTP helper ---

// do sends one request. Any non-2xx status becomes a *RequestError carrying
// the remote status and body. out is left untouched for an empty body.
func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		r = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	logging.Debug("early", "%s %s", method, path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newRequestError(method, path, resp)
	}
	if out == nil {
		return nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}
