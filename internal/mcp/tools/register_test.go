package tools

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync/atomic"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vthunder/early-mcp/internal/integrations/early"
)

// fakeEarly serves sign-in plus whatever routes a test registers.
type fakeEarly struct {
	t       *testing.T
	mux     *http.ServeMux
	srv     *httptest.Server
	signIns atomic.Int32
}

func newFakeEarly(t *testing.T) *fakeEarly {
	t.Helper()
	f := &fakeEarly{t: t, mux: http.NewServeMux()}
	f.mux.HandleFunc("POST /developer/sign-in", func(w http.ResponseWriter, r *http.Request) {
		f.signIns.Add(1)
		json.NewEncoder(w).Encode(map[string]string{"token": "tok"})
	})
	f.srv = httptest.NewServer(f.mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeEarly) handle(pattern string, h http.HandlerFunc) {
	f.mux.HandleFunc(pattern, h)
}

func (f *fakeEarly) deps() *Dependencies {
	return &Dependencies{Session: early.NewSession(early.Options{
		Credentials: early.Credentials{APIKey: "key", APISecret: "secret"},
		BaseURL:     f.srv.URL,
	})}
}

func requestBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	data, err := io.ReadAll(r.Body)
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.Unmarshal(data, &body))
	return body
}

func callTool(t *testing.T, deps *Dependencies, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	for _, st := range ServerTools(deps) {
		if st.Tool.Name != name {
			continue
		}
		var req mcp.CallToolRequest
		req.Params.Name = name
		req.Params.Arguments = args
		res, err := st.Handler(context.Background(), req)
		require.NoError(t, err)
		require.NotNil(t, res)
		return res
	}
	t.Fatalf("tool %s not registered", name)
	return nil
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.Len(t, res.Content, 1)
	switch c := res.Content[0].(type) {
	case mcp.TextContent:
		return c.Text
	case *mcp.TextContent:
		return c.Text
	}
	t.Fatalf("unexpected content type %T", res.Content[0])
	return ""
}

// okText asserts a successful result and returns its JSON text.
func okText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	text := resultText(t, res)
	require.False(t, res.IsError, "unexpected error result: %s", text)
	return text
}

var apiTimestamp = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.\d{3}$`)

func TestServerToolsSurface(t *testing.T) {
	tools := ServerTools(&Dependencies{})

	required := map[string][]string{
		ToolGetActivities:      nil,
		ToolGetCurrentTracking: nil,
		ToolStartTracking:      {"activity_id"},
		ToolStopTracking:       nil,
		ToolEditTracking:       nil,
		ToolGetTimeEntries:     {"from_date", "to_date"},
		ToolCreateTimeEntry:    {"activity_id", "started_at", "stopped_at"},
		ToolUpdateTimeEntry:    {"time_entry_id"},
		ToolDeleteTimeEntry:    {"time_entry_id"},
		ToolGetTags:            nil,
		ToolCreateTag:          {"label", "key"},
	}
	require.Len(t, tools, len(required))
	for _, st := range tools {
		want, ok := required[st.Tool.Name]
		require.True(t, ok, "unexpected tool %s", st.Tool.Name)
		assert.ElementsMatch(t, want, st.Tool.InputSchema.Required, st.Tool.Name)
		assert.NotEmpty(t, st.Tool.Description, st.Tool.Name)
	}
}

func TestRegisterAllListsTools(t *testing.T) {
	s := server.NewMCPServer("early-mcp", "test", server.WithToolCapabilities(true))
	RegisterAll(s, &Dependencies{})

	resp := s.HandleMessage(context.Background(), []byte(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var out struct {
		Result struct {
			Tools []struct {
				Name string `json:"name"`
			} `json:"tools"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(data, &out))
	var names []string
	for _, tool := range out.Result.Tools {
		names = append(names, tool.Name)
	}
	assert.Contains(t, names, ToolGetTimeEntries)
	assert.Len(t, names, 11)
}

func TestGetActivities(t *testing.T) {
	api := newFakeEarly(t)
	api.handle("GET /activities", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"activities": [{"id": "123", "name": "Development", "color": "#a1b2c3", "integration": "zei"}]}`))
	})

	text := okText(t, callTool(t, api.deps(), ToolGetActivities, nil))
	assert.JSONEq(t, `[{"id": "123", "name": "Development", "color": "#a1b2c3"}]`, text)
}

func TestGetCurrentTrackingNothingTracked(t *testing.T) {
	api := newFakeEarly(t)
	api.handle("GET /tracking", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"currentTracking": null}`))
	})

	text := okText(t, callTool(t, api.deps(), ToolGetCurrentTracking, nil))
	assert.JSONEq(t, `{"tracking": null, "message": "Nothing currently being tracked"}`, text)
}

func TestGetCurrentTracking(t *testing.T) {
	api := newFakeEarly(t)
	api.handle("GET /tracking", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"currentTracking": {
			"activityId": "123", "activity": {"name": "Development"}, "startedAt": "2025-01-15T09:00:00.000",
			"note": {"text": "Fix <{{|t|1|}}>", "tags": [{"id": 1, "key": "WEB-1", "indices": [[4, 15]]}], "mentions": []}
		}}`))
	})

	text := okText(t, callTool(t, api.deps(), ToolGetCurrentTracking, nil))
	assert.JSONEq(t, `{
		"activity_id": "123",
		"activity_name": "Development",
		"started_at": "2025-01-15T09:00:00.000",
		"note": "Fix #WEB-1",
		"note_raw": {"text": "Fix <{{|t|1|}}>", "tags": [{"id": 1, "key": "WEB-1", "indices": [[4, 15]]}], "mentions": []}
	}`, text)
}

func TestStartTracking(t *testing.T) {
	api := newFakeEarly(t)
	var startedAt atomic.Value
	api.handle("POST /tracking/{id}/start", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "123", r.PathValue("id"))
		startedAt.Store(requestBody(t, r)["startedAt"])
		w.Write([]byte(`{"currentTracking": {"activityId": "123"}}`))
	})
	deps := api.deps()

	text := okText(t, callTool(t, deps, ToolStartTracking, map[string]any{"activity_id": "123", "started_at": "2025-01-15T09:00:00"}))
	assert.JSONEq(t, `{"currentTracking": {"activityId": "123"}}`, text)
	assert.Equal(t, "2025-01-15T09:00:00.000", startedAt.Load())

	okText(t, callTool(t, deps, ToolStartTracking, map[string]any{"activity_id": "123"}))
	assert.Regexp(t, apiTimestamp, startedAt.Load())
	assert.Equal(t, int32(1), api.signIns.Load())
}

func TestStopTracking(t *testing.T) {
	api := newFakeEarly(t)
	api.handle("POST /tracking/stop", func(w http.ResponseWriter, r *http.Request) {
		assert.Regexp(t, apiTimestamp, requestBody(t, r)["stoppedAt"])
		w.Write([]byte(`{"createdTimeEntry": {"id": "55", "activityId": "123", "activity": {"name": "Development"},
			"duration": {"startedAt": "2025-01-15T09:00:00.000", "stoppedAt": "2025-01-15T10:00:00.000"}, "note": null}}`))
	})

	text := okText(t, callTool(t, api.deps(), ToolStopTracking, nil))
	assert.JSONEq(t, `{
		"id": "55", "activity_id": "123", "activity_name": "Development",
		"started_at": "2025-01-15T09:00:00.000", "stopped_at": "2025-01-15T10:00:00.000",
		"note": "", "note_raw": null
	}`, text)
}

func TestEditTrackingSendsOnlyProvidedFields(t *testing.T) {
	api := newFakeEarly(t)
	api.handle("PATCH /tracking", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, map[string]any{
			"note":      map[string]any{"text": "Fix <{{|t|1|}}>"},
			"startedAt": "2025-01-15T00:00:00.000",
		}, requestBody(t, r))
		w.Write([]byte(`{"activityId": "123"}`))
	})

	okText(t, callTool(t, api.deps(), ToolEditTracking, map[string]any{
		"note":        "Fix <{{|t|1|}}>",
		"activity_id": "",
		"started_at":  "2025-01-15",
	}))
}

func TestGetTimeEntriesRange(t *testing.T) {
	api := newFakeEarly(t)
	api.handle("GET /time-entries/{after}/{before}", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2025-01-01T00:00:00.000", r.PathValue("after"))
		assert.Equal(t, "2025-01-31T23:59:59.999", r.PathValue("before"))
		w.Write([]byte(`{"timeEntries": [
			{"id": "1", "activityId": "123", "activity": {"name": "Development"},
			 "duration": {"startedAt": "2025-01-02T09:00:00.000", "stoppedAt": "2025-01-02T10:00:00.000"},
			 "note": {"text": "with <{{|m|9|}}>", "tags": [], "mentions": [{"id": 9, "key": "alice"}]}},
			{"id": "2", "activityId": "456"}
		]}`))
	})

	text := okText(t, callTool(t, api.deps(), ToolGetTimeEntries, map[string]any{"from_date": "2025-01-01", "to_date": "2025-01-31"}))

	var entries []early.DisplayEntry
	require.NoError(t, json.Unmarshal([]byte(text), &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "with @alice", entries[0].Note)
	assert.Equal(t, "Development", entries[0].ActivityName)
	assert.Equal(t, "", entries[1].ActivityName)
	assert.Equal(t, "", entries[1].StartedAt)
}

func TestGetTimeEntriesEmpty(t *testing.T) {
	api := newFakeEarly(t)
	api.handle("GET /time-entries/{after}/{before}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"timeEntries": []}`))
	})

	text := okText(t, callTool(t, api.deps(), ToolGetTimeEntries, map[string]any{"from_date": "2025-01-01", "to_date": "2025-01-01"}))
	assert.JSONEq(t, `[]`, text)
}

func TestCreateTimeEntry(t *testing.T) {
	api := newFakeEarly(t)
	api.handle("POST /time-entries", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, map[string]any{
			"activityId": "123",
			"startedAt":  "2025-01-15T09:00:00.000",
			"stoppedAt":  "2025-01-15T00:00:00.000",
			"note":       map[string]any{"text": "planning"},
		}, requestBody(t, r))
		w.Write([]byte(`{"id": "77", "activityId": "123", "note": {"text": "planning", "tags": [], "mentions": []}}`))
	})

	text := okText(t, callTool(t, api.deps(), ToolCreateTimeEntry, map[string]any{
		"activity_id": "123",
		"started_at":  "2025-01-15T09:00:00",
		"stopped_at":  "2025-01-15",
		"note":        "planning",
	}))

	var entry early.DisplayEntry
	require.NoError(t, json.Unmarshal([]byte(text), &entry))
	assert.Equal(t, early.ID("77"), entry.ID)
	assert.Equal(t, "planning", entry.Note)
}

func TestUpdateTimeEntryPartial(t *testing.T) {
	api := newFakeEarly(t)
	api.handle("PATCH /time-entries/{id}", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "77", r.PathValue("id"))
		assert.Equal(t, map[string]any{"stoppedAt": "2025-01-15T11:00:00.000"}, requestBody(t, r))
		w.Write([]byte(`{"id": "77"}`))
	})

	okText(t, callTool(t, api.deps(), ToolUpdateTimeEntry, map[string]any{
		"time_entry_id": "77",
		"stopped_at":    "2025-01-15T11:00:00",
		"note":          "",
	}))
}

func TestDeleteTimeEntry(t *testing.T) {
	api := newFakeEarly(t)
	api.handle("DELETE /time-entries/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	text := okText(t, callTool(t, api.deps(), ToolDeleteTimeEntry, map[string]any{"time_entry_id": "77"}))
	assert.JSONEq(t, `{"deleted": true, "time_entry_id": "77"}`, text)
}

func TestGetTags(t *testing.T) {
	api := newFakeEarly(t)
	api.handle("GET /tags-and-mentions", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"tags": [{"id": 1, "key": "WEB-1", "label": "WEB-1", "scope": "timeular", "spaceId": "0"}],
			"mentions": [{"id": 2, "key": "alice", "label": "Alice", "scope": "timeular", "spaceId": "0"}]
		}`))
	})

	text := okText(t, callTool(t, api.deps(), ToolGetTags, nil))
	assert.JSONEq(t, `{
		"tags": [{"id": "1", "key": "WEB-1", "label": "WEB-1"}],
		"mentions": [{"id": "2", "key": "alice", "label": "Alice"}]
	}`, text)
}

func TestCreateTag(t *testing.T) {
	api := newFakeEarly(t)
	api.handle("POST /tags", func(w http.ResponseWriter, r *http.Request) {
		body := requestBody(t, r)
		assert.Equal(t, "WEB-3343", body["key"])
		assert.Equal(t, "WEB-3343 label", body["label"])
		w.Write([]byte(`{"id": 12, "key": "WEB-3343", "label": "WEB-3343 label"}`))
	})

	text := okText(t, callTool(t, api.deps(), ToolCreateTag, map[string]any{"label": "WEB-3343 label", "key": "WEB-3343"}))
	assert.JSONEq(t, `{"id": 12, "key": "WEB-3343", "label": "WEB-3343 label"}`, text)
}

func TestMissingRequiredArgument(t *testing.T) {
	api := newFakeEarly(t)

	res := callTool(t, api.deps(), ToolStartTracking, map[string]any{"started_at": "2025-01-15"})

	assert.True(t, res.IsError)
	assert.Equal(t, "activity_id is required", resultText(t, res))
	assert.Equal(t, int32(0), api.signIns.Load())
}

func TestMissingCredentialsReported(t *testing.T) {
	deps := &Dependencies{Session: early.NewSession(early.Options{BaseURL: "http://127.0.0.1:1"})}

	res := callTool(t, deps, ToolGetActivities, nil)

	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "EARLY_API_KEY and EARLY_API_SECRET required")
}

func TestRemoteErrorPropagates(t *testing.T) {
	api := newFakeEarly(t)
	api.handle("DELETE /time-entries/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"not found"}`))
	})

	res := callTool(t, api.deps(), ToolDeleteTimeEntry, map[string]any{"time_entry_id": "404"})

	assert.True(t, res.IsError)
	text := resultText(t, res)
	assert.Contains(t, text, "404 Not Found")
	assert.Contains(t, text, `{"message":"not found"}`)
}
