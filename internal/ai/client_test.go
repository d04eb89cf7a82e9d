package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pratik7mo/AI-TaskManagement/internal/tasks"
)

// stubCompletions serves a canned /chat/completions response and captures
// the request body for assertions.
func stubCompletions(t *testing.T, response string) (*Client, *map[string]any) {
	t.Helper()
	captured := map[string]any{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)

	client := New(Options{
		APIKey:  "test-key",
		BaseURL: srv.URL,
		Model:   "gpt-4o-mini",
		Timeout: 5 * time.Second,
	})
	return client, &captured
}

const createCallResponse = `{
	"id": "chatcmpl-1",
	"object": "chat.completion",
	"choices": [{
		"index": 0,
		"finish_reason": "tool_calls",
		"message": {
			"role": "assistant",
			"content": "Creating that now! 🎯",
			"tool_calls": [{
				"id": "call_1",
				"type": "function",
				"function": {
					"name": "create_task",
					"arguments": "{\"title\": \"buy groceries\", \"priority\": \"high\", \"due_date\": \"2026-08-27\"}"
				}
			}]
		}
	}]
}`

func TestRespond_ParsesCreateToolCall(t *testing.T) {
	client, captured := stubCompletions(t, createCallResponse)

	history := []Turn{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "hello!"},
	}
	text, mutations, err := client.Respond(context.Background(), history, "Create a task to buy groceries tomorrow")
	require.NoError(t, err)

	assert.Equal(t, "Creating that now! 🎯", text)
	require.Len(t, mutations, 1)

	m := mutations[0]
	assert.Equal(t, OpCreate, m.Op)
	require.NotNil(t, m.Create)
	assert.Equal(t, "buy groceries", m.Create.Title)
	assert.Equal(t, tasks.PriorityHigh, m.Create.Priority)
	require.NotNil(t, m.Create.DueDate)
	assert.Equal(t, "2026-08-27", m.Create.DueDate.Format("2006-01-02"))

	// System prompt first, then the transcript, then the new message.
	msgs := (*captured)["messages"].([]any)
	require.Len(t, msgs, 4)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "assistant", msgs[2].(map[string]any)["role"])
	last := msgs[3].(map[string]any)
	assert.Equal(t, "user", last["role"])
	assert.Equal(t, "Create a task to buy groceries tomorrow", last["content"])

	// The three task tools ride along on every request.
	assert.Len(t, (*captured)["tools"].([]any), 3)
}

func TestRespond_UpdateAndDeleteCalls(t *testing.T) {
	client, _ := stubCompletions(t, `{
		"id": "chatcmpl-2",
		"object": "chat.completion",
		"choices": [{
			"index": 0,
			"finish_reason": "tool_calls",
			"message": {
				"role": "assistant",
				"content": "",
				"tool_calls": [
					{"id": "call_1", "type": "function", "function": {"name": "update_task", "arguments": "{\"title_match\": \"groceries\", \"status\": \"completed\"}"}},
					{"id": "call_2", "type": "function", "function": {"name": "delete_task", "arguments": "{\"task_id\": 3}"}}
				]
			}
		}]
	}`)

	text, mutations, err := client.Respond(context.Background(), nil, "finish groceries, drop task 3")
	require.NoError(t, err)
	assert.Empty(t, text)
	require.Len(t, mutations, 2)

	up := mutations[0]
	assert.Equal(t, OpUpdate, up.Op)
	assert.Equal(t, "groceries", up.TitleMatch)
	assert.Zero(t, up.TaskID)
	require.NotNil(t, up.Update.Status)
	assert.Equal(t, tasks.StatusCompleted, *up.Update.Status)
	assert.Nil(t, up.Update.Priority, "absent fields stay nil in a partial update")

	del := mutations[1]
	assert.Equal(t, OpDelete, del.Op)
	assert.Equal(t, 3, del.TaskID)
}

func TestRespond_DropsBadToolCallWithNote(t *testing.T) {
	client, _ := stubCompletions(t, `{
		"id": "chatcmpl-3",
		"object": "chat.completion",
		"choices": [{
			"index": 0,
			"finish_reason": "tool_calls",
			"message": {
				"role": "assistant",
				"content": "On it!",
				"tool_calls": [
					{"id": "call_1", "type": "function", "function": {"name": "create_task", "arguments": "{\"title\": \"ok task\"}"}},
					{"id": "call_2", "type": "function", "function": {"name": "create_task", "arguments": "{\"title\": \"bad date\", \"due_date\": \"next friday\"}"}}
				]
			}
		}]
	}`)

	text, mutations, err := client.Respond(context.Background(), nil, "two tasks please")
	require.NoError(t, err)

	require.Len(t, mutations, 1, "the malformed call is dropped, the good one survives")
	assert.Equal(t, "ok task", mutations[0].Create.Title)
	assert.Contains(t, text, "invalid date")
}

func TestRespond_UpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	client := New(Options{APIKey: "k", BaseURL: srv.URL, Model: "gpt-4o-mini", Timeout: time.Second})

	_, _, err := client.Respond(context.Background(), nil, "hi")
	assert.Error(t, err)
}

func TestParseDueDate(t *testing.T) {
	for _, ok := range []string{"2026-08-27", "2026-08-27T15:00:00Z", "2026-08-27 15:00"} {
		due, err := parseDueDate(ok)
		require.NoError(t, err, ok)
		assert.Equal(t, "2026-08-27", due.Format("2006-01-02"))
	}

	_, err := parseDueDate("tomorrow")
	assert.Error(t, err)
}
