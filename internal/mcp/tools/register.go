package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/vthunder/early-mcp/internal/integrations/early"
	"github.com/vthunder/early-mcp/internal/logging"
)

const (
	ToolGetActivities      = "early_get_activities"
	ToolGetCurrentTracking = "early_get_current_tracking"
	ToolStartTracking      = "early_start_tracking"
	ToolStopTracking       = "early_stop_tracking"
	ToolEditTracking       = "early_edit_current_tracking"
	ToolGetTimeEntries     = "early_get_time_entries"
	ToolCreateTimeEntry    = "early_create_time_entry"
	ToolUpdateTimeEntry    = "early_update_time_entry"
	ToolDeleteTimeEntry    = "early_delete_time_entry"
	ToolGetTags            = "early_get_tags"
	ToolCreateTag          = "early_create_tag"
)

const tagFormatHint = "Tags in notes use the format <{{|t|TAG_ID|}}>; use early_get_tags to find tag IDs."

// handlerFunc is the body of one tool. It returns a JSON-serializable result.
type handlerFunc func(ctx context.Context, args map[string]any) (any, error)

// RegisterAll registers all MCP tools with the given server and dependencies.
func RegisterAll(s *server.MCPServer, deps *Dependencies) {
	s.AddTools(ServerTools(deps)...)
}

// ServerTools returns every tool bound to deps, in registration order.
func ServerTools(deps *Dependencies) []server.ServerTool {
	h := &handlers{deps: deps}
	return []server.ServerTool{
		{Tool: getActivitiesTool(), Handler: wrap(ToolGetActivities, h.getActivities)},
		{Tool: getCurrentTrackingTool(), Handler: wrap(ToolGetCurrentTracking, h.getCurrentTracking)},
		{Tool: startTrackingTool(), Handler: wrap(ToolStartTracking, h.startTracking)},
		{Tool: stopTrackingTool(), Handler: wrap(ToolStopTracking, h.stopTracking)},
		{Tool: editTrackingTool(), Handler: wrap(ToolEditTracking, h.editTracking)},
		{Tool: getTimeEntriesTool(), Handler: wrap(ToolGetTimeEntries, h.getTimeEntries)},
		{Tool: createTimeEntryTool(), Handler: wrap(ToolCreateTimeEntry, h.createTimeEntry)},
		{Tool: updateTimeEntryTool(), Handler: wrap(ToolUpdateTimeEntry, h.updateTimeEntry)},
		{Tool: deleteTimeEntryTool(), Handler: wrap(ToolDeleteTimeEntry, h.deleteTimeEntry)},
		{Tool: getTagsTool(), Handler: wrap(ToolGetTags, h.getTags)},
		{Tool: createTagTool(), Handler: wrap(ToolCreateTag, h.createTag)},
	}
}

// wrap adapts a handlerFunc to mcp-go. Failures become error results that
// carry the error text unchanged.
func wrap(name string, fn handlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := req.Params.Arguments.(map[string]any)
		logging.Debug("tools", "%s args=%v", name, args)

		result, err := fn(ctx, args)
		if err != nil {
			logging.Info("tools", "%s failed: %s", name, logging.Truncate(err.Error(), 200))
			return mcp.NewToolResultError(err.Error()), nil
		}

		output, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
		}
		return mcp.NewToolResultText(string(output)), nil
	}
}

func stringArg(args map[string]any, name string) string {
	s, _ := args[name].(string)
	return s
}

func requireString(args map[string]any, name string) (string, error) {
	s := stringArg(args, name)
	if s == "" {
		return "", fmt.Errorf("%s is required", name)
	}
	return s, nil
}

// timestampOrNow normalizes s, defaulting to the current time when empty.
func timestampOrNow(s string) string {
	if s == "" {
		return early.NowAPITimestamp()
	}
	return early.ToAPITimestamp(s)
}

// timestampIfSet normalizes s, keeping empty as empty so it is not sent.
func timestampIfSet(s string) string {
	if s == "" {
		return ""
	}
	return early.ToAPITimestamp(s)
}

type handlers struct {
	deps *Dependencies
}

func (h *handlers) client(ctx context.Context) (*early.Client, error) {
	return h.deps.Session.Client(ctx)
}

// --- Activities ---

func getActivitiesTool() mcp.Tool {
	return mcp.NewTool(ToolGetActivities,
		mcp.WithDescription("Get all active activities (name, id, color). Use this to find the activity ID for time tracking (e.g. 'Development')."),
	)
}

func (h *handlers) getActivities(ctx context.Context, args map[string]any) (any, error) {
	c, err := h.client(ctx)
	if err != nil {
		return nil, err
	}
	return c.Activities(ctx)
}

// --- Tracking ---

func getCurrentTrackingTool() mcp.Tool {
	return mcp.NewTool(ToolGetCurrentTracking,
		mcp.WithDescription("Get the currently running time tracking entry: activity, start time, and note with tags resolved. Reports when nothing is being tracked."),
	)
}

func (h *handlers) getCurrentTracking(ctx context.Context, args map[string]any) (any, error) {
	c, err := h.client(ctx)
	if err != nil {
		return nil, err
	}
	tracking, err := c.CurrentTracking(ctx)
	if err != nil {
		return nil, err
	}
	if tracking == nil {
		return map[string]any{"tracking": nil, "message": "Nothing currently being tracked"}, nil
	}
	return early.FormatTracking(*tracking), nil
}

func startTrackingTool() mcp.Tool {
	return mcp.NewTool(ToolStartTracking,
		mcp.WithDescription("Start tracking time on an activity."),
		mcp.WithString("activity_id",
			mcp.Required(),
			mcp.Description("The activity ID to track (use early_get_activities to find IDs)"),
		),
		mcp.WithString("started_at",
			mcp.Description("Optional start time (ISO 8601, e.g. '2025-01-15T09:00:00.000'). Defaults to now."),
		),
	)
}

func (h *handlers) startTracking(ctx context.Context, args map[string]any) (any, error) {
	activityID, err := requireString(args, "activity_id")
	if err != nil {
		return nil, err
	}
	c, err := h.client(ctx)
	if err != nil {
		return nil, err
	}
	return c.StartTracking(ctx, activityID, timestampOrNow(stringArg(args, "started_at")))
}

func stopTrackingTool() mcp.Tool {
	return mcp.NewTool(ToolStopTracking,
		mcp.WithDescription("Stop the currently running time tracker and return the time entry it created."),
		mcp.WithString("stopped_at",
			mcp.Description("Optional stop time (ISO 8601). Defaults to now."),
		),
	)
}

func (h *handlers) stopTracking(ctx context.Context, args map[string]any) (any, error) {
	c, err := h.client(ctx)
	if err != nil {
		return nil, err
	}
	entry, err := c.StopTracking(ctx, timestampOrNow(stringArg(args, "stopped_at")))
	if err != nil {
		return nil, err
	}
	return early.FormatEntry(*entry), nil
}

func editTrackingTool() mcp.Tool {
	return mcp.NewTool(ToolEditTracking,
		mcp.WithDescription("Edit the currently running time tracking entry, e.g. to update its note and tags. Only the fields given are changed. "+tagFormatHint),
		mcp.WithString("note",
			mcp.Description("New note text in raw note format. Include tags as <{{|t|TAG_ID|}}>."),
		),
		mcp.WithString("activity_id",
			mcp.Description("Change the activity being tracked"),
		),
		mcp.WithString("started_at",
			mcp.Description("Change the start time"),
		),
	)
}

func (h *handlers) editTracking(ctx context.Context, args map[string]any) (any, error) {
	c, err := h.client(ctx)
	if err != nil {
		return nil, err
	}
	return c.EditTracking(ctx, early.TrackingEdit{
		Note:       early.TextNote(stringArg(args, "note")),
		ActivityID: stringArg(args, "activity_id"),
		StartedAt:  timestampIfSet(stringArg(args, "started_at")),
	})
}

// --- Time entries ---

func getTimeEntriesTool() mcp.Tool {
	return mcp.NewTool(ToolGetTimeEntries,
		mcp.WithDescription("Get time entries within a date range, with activity, duration, and notes/tags. Use this to find entries that are missing tags."),
		mcp.WithString("from_date",
			mcp.Required(),
			mcp.Description("Start date (YYYY-MM-DD). Entries stopped after this day began."),
		),
		mcp.WithString("to_date",
			mcp.Required(),
			mcp.Description("End date (YYYY-MM-DD), inclusive. Entries started before this day ended."),
		),
	)
}

func (h *handlers) getTimeEntries(ctx context.Context, args map[string]any) (any, error) {
	fromDate, err := requireString(args, "from_date")
	if err != nil {
		return nil, err
	}
	toDate, err := requireString(args, "to_date")
	if err != nil {
		return nil, err
	}
	c, err := h.client(ctx)
	if err != nil {
		return nil, err
	}
	entries, err := c.TimeEntries(ctx, early.ToAPITimestamp(fromDate), early.EndOfDayAPITimestamp(toDate))
	if err != nil {
		return nil, err
	}
	return early.FormatEntries(entries), nil
}

func createTimeEntryTool() mcp.Tool {
	return mcp.NewTool(ToolCreateTimeEntry,
		mcp.WithDescription("Create a new time entry."),
		mcp.WithString("activity_id",
			mcp.Required(),
			mcp.Description("The activity ID"),
		),
		mcp.WithString("started_at",
			mcp.Required(),
			mcp.Description("Start time (YYYY-MM-DDTHH:MM:SS or YYYY-MM-DD)"),
		),
		mcp.WithString("stopped_at",
			mcp.Required(),
			mcp.Description("Stop time (YYYY-MM-DDTHH:MM:SS or YYYY-MM-DD)"),
		),
		mcp.WithString("note",
			mcp.Description("Optional note text. Include tags as <{{|t|TAG_ID|}}>."),
		),
	)
}

func (h *handlers) createTimeEntry(ctx context.Context, args map[string]any) (any, error) {
	activityID, err := requireString(args, "activity_id")
	if err != nil {
		return nil, err
	}
	startedAt, err := requireString(args, "started_at")
	if err != nil {
		return nil, err
	}
	stoppedAt, err := requireString(args, "stopped_at")
	if err != nil {
		return nil, err
	}
	c, err := h.client(ctx)
	if err != nil {
		return nil, err
	}
	entry, err := c.CreateTimeEntry(ctx, early.NewTimeEntry{
		ActivityID: activityID,
		StartedAt:  early.ToAPITimestamp(startedAt),
		StoppedAt:  early.ToAPITimestamp(stoppedAt),
		Note:       early.TextNote(stringArg(args, "note")),
	})
	if err != nil {
		return nil, err
	}
	return early.FormatEntry(*entry), nil
}

func updateTimeEntryTool() mcp.Tool {
	return mcp.NewTool(ToolUpdateTimeEntry,
		mcp.WithDescription("Update an existing time entry, e.g. to add missing tags to past entries. A new note replaces the existing one, so pass the complete note text. "+tagFormatHint),
		mcp.WithString("time_entry_id",
			mcp.Required(),
			mcp.Description("The time entry ID to update"),
		),
		mcp.WithString("activity_id",
			mcp.Description("New activity ID (optional)"),
		),
		mcp.WithString("started_at",
			mcp.Description("New start time (optional)"),
		),
		mcp.WithString("stopped_at",
			mcp.Description("New stop time (optional)"),
		),
		mcp.WithString("note",
			mcp.Description("New note text. Include tags as <{{|t|TAG_ID|}}>. Replaces the existing note."),
		),
	)
}

func (h *handlers) updateTimeEntry(ctx context.Context, args map[string]any) (any, error) {
	id, err := requireString(args, "time_entry_id")
	if err != nil {
		return nil, err
	}
	c, err := h.client(ctx)
	if err != nil {
		return nil, err
	}
	entry, err := c.UpdateTimeEntry(ctx, id, early.TimeEntryUpdate{
		ActivityID: stringArg(args, "activity_id"),
		StartedAt:  timestampIfSet(stringArg(args, "started_at")),
		StoppedAt:  timestampIfSet(stringArg(args, "stopped_at")),
		Note:       early.TextNote(stringArg(args, "note")),
	})
	if err != nil {
		return nil, err
	}
	return early.FormatEntry(*entry), nil
}

func deleteTimeEntryTool() mcp.Tool {
	return mcp.NewTool(ToolDeleteTimeEntry,
		mcp.WithDescription("Delete a time entry."),
		mcp.WithString("time_entry_id",
			mcp.Required(),
			mcp.Description("The time entry ID to delete"),
		),
	)
}

func (h *handlers) deleteTimeEntry(ctx context.Context, args map[string]any) (any, error) {
	id, err := requireString(args, "time_entry_id")
	if err != nil {
		return nil, err
	}
	c, err := h.client(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.DeleteTimeEntry(ctx, id); err != nil {
		return nil, err
	}
	return map[string]any{"deleted": true, "time_entry_id": id}, nil
}

// --- Tags ---

func getTagsTool() mcp.Tool {
	return mcp.NewTool(ToolGetTags,
		mcp.WithDescription("Get all available tags and mentions. Use this to check whether a tag (e.g. WEB-3343) exists before referencing it in a note; tag IDs are needed for the <{{|t|TAG_ID|}}> note format."),
	)
}

func (h *handlers) getTags(ctx context.Context, args map[string]any) (any, error) {
	c, err := h.client(ctx)
	if err != nil {
		return nil, err
	}
	return c.TagsAndMentions(ctx)
}

func createTagTool() mcp.Tool {
	return mcp.NewTool(ToolCreateTag,
		mcp.WithDescription("Create a new tag. After creating, use the returned tag ID in notes as <{{|t|TAG_ID|}}>."),
		mcp.WithString("label",
			mcp.Required(),
			mcp.Description("Display label for the tag (e.g. 'WEB-3343')"),
		),
		mcp.WithString("key",
			mcp.Required(),
			mcp.Description("Unique key for the tag (e.g. 'WEB-3343'). Shown with # in notes."),
		),
	)
}

func (h *handlers) createTag(ctx context.Context, args map[string]any) (any, error) {
	label, err := requireString(args, "label")
	if err != nil {
		return nil, err
	}
	key, err := requireString(args, "key")
	if err != nil {
		return nil, err
	}
	c, err := h.client(ctx)
	if err != nil {
		return nil, err
	}
	return c.CreateTag(ctx, key, label)
}
