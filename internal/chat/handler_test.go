package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pratik7mo/AI-TaskManagement/internal/ai"
	"github.com/pratik7mo/AI-TaskManagement/internal/db"
	"github.com/pratik7mo/AI-TaskManagement/internal/tasks"
)

// scriptedAgent plays back a canned agent turn and records what it was asked.
type scriptedAgent struct {
	text      string
	mutations []ai.Mutation
	err       error

	gotHistory []ai.Turn
	gotMessage string
}

func (a *scriptedAgent) Respond(ctx context.Context, history []ai.Turn, message string) (string, []ai.Mutation, error) {
	a.gotHistory = history
	a.gotMessage = message
	return a.text, a.mutations, a.err
}

func newTestStore(t *testing.T) *tasks.Store {
	t.Helper()
	database, err := db.Connect("sqlite://:memory:")
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	require.NoError(t, database.Migrate())
	return tasks.NewStore(database)
}

func setupWS(t *testing.T, agent Invoker) (*websocket.Conn, *tasks.Store) {
	t.Helper()
	store := newTestStore(t)
	h := NewHandler(store, agent, NewHub())

	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws/chat", h.HandleWS)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/chat", nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })

	return conn, store
}

func sendText(t *testing.T, conn *websocket.Conn, payload string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(payload)))
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var evt Event
	require.NoError(t, json.Unmarshal(data, &evt))
	return evt
}

func TestWS_CreateFlow_EventOrdering(t *testing.T) {
	agent := &scriptedAgent{
		text: "Sure! Creating that for you 🎯",
		mutations: []ai.Mutation{{
			Op:     ai.OpCreate,
			Create: &tasks.CreateRequest{Title: "buy groceries", Priority: tasks.PriorityHigh},
		}},
	}
	conn, store := setupWS(t, agent)

	sendText(t, conn, `{"message": "Create a task to buy groceries tomorrow"}`)

	// The assistant reply must arrive before any state-change event.
	evt := readEvent(t, conn)
	require.Equal(t, EventAgentResponse, evt.Type)
	assert.Equal(t, "Sure! Creating that for you 🎯", evt.Response)
	require.Len(t, evt.ConversationHistory, 2)
	assert.Equal(t, RoleUser, evt.ConversationHistory[0].Role)
	assert.Equal(t, RoleAssistant, evt.ConversationHistory[1].Role)

	evt = readEvent(t, conn)
	require.Equal(t, EventTaskCreated, evt.Type)
	require.NotNil(t, evt.Task)
	assert.Equal(t, "buy groceries", evt.Task.Title)

	evt = readEvent(t, conn)
	assert.Equal(t, EventTaskListUpdate, evt.Type)

	list, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, tasks.PriorityHigh, list[0].Priority)
}

func TestWS_MalformedPayload_KeepsConnectionOpen(t *testing.T) {
	agent := &scriptedAgent{text: "hello!"}
	conn, _ := setupWS(t, agent)

	sendText(t, conn, `{not json`)
	evt := readEvent(t, conn)
	assert.Equal(t, EventError, evt.Type)
	assert.NotEmpty(t, evt.Error)

	// Connection must still accept well-formed messages.
	sendText(t, conn, `{"message": "hi"}`)
	evt = readEvent(t, conn)
	assert.Equal(t, EventAgentResponse, evt.Type)
	assert.Equal(t, "hello!", evt.Response)
}

func TestWS_AgentUnavailable(t *testing.T) {
	agent := &scriptedAgent{err: context.DeadlineExceeded}
	conn, store := setupWS(t, agent)

	sendText(t, conn, `{"message": "create a task"}`)

	evt := readEvent(t, conn)
	require.Equal(t, EventAgentResponse, evt.Type)
	assert.Equal(t, agentUnavailableMsg, evt.Response)

	// No mutation is attempted; only the convergence signal follows.
	evt = readEvent(t, conn)
	assert.Equal(t, EventTaskListUpdate, evt.Type)

	list, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestWS_PartialMutationFailure(t *testing.T) {
	agent := &scriptedAgent{
		text: "Cleaning up ✨",
		mutations: []ai.Mutation{
			{Op: ai.OpDelete, TaskID: 999},
			{Op: ai.OpCreate, Create: &tasks.CreateRequest{Title: "still created"}},
		},
	}
	conn, store := setupWS(t, agent)

	sendText(t, conn, `{"message": "delete the old one and add a new one"}`)

	evt := readEvent(t, conn)
	require.Equal(t, EventAgentResponse, evt.Type)
	assert.Contains(t, evt.Response, "couldn't", "failed mutation surfaces as a note")

	// The failed delete emits nothing; the create that followed still applies.
	evt = readEvent(t, conn)
	require.Equal(t, EventTaskCreated, evt.Type)
	require.NotNil(t, evt.Task)
	assert.Equal(t, "still created", evt.Task.Title)

	evt = readEvent(t, conn)
	assert.Equal(t, EventTaskListUpdate, evt.Type)

	list, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestWS_HistorySeededFromClient(t *testing.T) {
	agent := &scriptedAgent{text: "welcome back!"}
	conn, _ := setupWS(t, agent)

	sendText(t, conn, `{"message": "what was I doing?", "conversation_history": [
		{"role": "user", "content": "hi", "timestamp": "2026-08-26T10:00:00Z"},
		{"role": "assistant", "content": "hello!", "timestamp": "2026-08-26T10:00:01Z"}
	]}`)

	evt := readEvent(t, conn)
	require.Equal(t, EventAgentResponse, evt.Type)
	require.Len(t, evt.ConversationHistory, 4, "seeded history plus the new exchange")
	require.Len(t, agent.gotHistory, 2, "agent sees the replayed transcript")
	assert.Equal(t, "what was I doing?", agent.gotMessage)
}

func TestWS_TitleMatchMutations(t *testing.T) {
	store := newTestStore(t)
	created, err := store.Create(context.Background(), tasks.CreateRequest{Title: "Buy Groceries"})
	require.NoError(t, err)

	status := tasks.StatusCompleted
	agent := &scriptedAgent{
		text: "Marked it done ✅",
		mutations: []ai.Mutation{{
			Op:         ai.OpUpdate,
			TitleMatch: "groceries",
			Update:     &tasks.UpdateRequest{Status: &status},
		}},
	}

	h := NewHandler(store, agent, NewHub())
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws/chat", h.HandleWS)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/chat", nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	sendText(t, conn, `{"message": "mark the groceries task as done"}`)

	evt := readEvent(t, conn)
	require.Equal(t, EventAgentResponse, evt.Type)
	evt = readEvent(t, conn)
	require.Equal(t, EventTaskUpdated, evt.Type)
	require.NotNil(t, evt.Task)
	assert.Equal(t, created.ID, evt.Task.ID)
	assert.Equal(t, tasks.StatusCompleted, evt.Task.Status)
}

func TestRESTChat(t *testing.T) {
	agent := &scriptedAgent{
		text: "Added it! 📝",
		mutations: []ai.Mutation{{
			Op:     ai.OpCreate,
			Create: &tasks.CreateRequest{Title: "from rest chat"},
		}},
	}
	store := newTestStore(t)
	h := NewHandler(store, agent, NewHub())

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/chat", h.HandleChat)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	resp, err := http.Post(srv.URL+"/api/chat", "application/json",
		strings.NewReader(`{"message": "add a task"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Response string        `json:"response"`
		History  []ChatMessage `json:"conversation_history"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "Added it! 📝", out.Response)
	assert.Len(t, out.History, 2)

	list, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
