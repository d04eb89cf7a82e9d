package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"

	"github.com/pratik7mo/AI-TaskManagement/internal/ai"
	"github.com/pratik7mo/AI-TaskManagement/internal/tasks"
)

const agentUnavailableMsg = "Sorry, the assistant is unavailable right now. Please try again in a moment. 🙏"

// Invoker is the agent capability: conversation so far plus a new message
// in, assistant text plus structured task mutations out.
type Invoker interface {
	Respond(ctx context.Context, history []ai.Turn, message string) (string, []ai.Mutation, error)
}

type Handler struct {
	Store *tasks.Store
	Agent Invoker
	Hub   *Hub
}

func NewHandler(store *tasks.Store, agent Invoker, hub *Hub) *Handler {
	return &Handler{Store: store, Agent: agent, Hub: hub}
}

// HandleWS serves /ws/chat. Messages on one connection are handled strictly
// in arrival order; separate connections proceed independently.
func (h *Handler) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		return
	}

	cl := h.Hub.add(conn)
	defer func() {
		h.Hub.remove(cl)
		_ = conn.Close(websocket.StatusNormalClosure, "")
	}()

	ctx := r.Context()
	var history []ChatMessage

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}

		var in inboundMessage
		if err := json.Unmarshal(data, &in); err != nil || strings.TrimSpace(in.Message) == "" {
			// Protocol error: tell the client, keep the connection open.
			_ = cl.send(Event{Type: EventError, Error: "invalid message payload"})
			continue
		}

		// A reconnecting client replays its transcript with the first message.
		if len(history) == 0 && len(in.ConversationHistory) > 0 {
			history = in.ConversationHistory
		}

		reply, newHistory, events := h.respond(ctx, history, in.Message)
		history = newHistory

		// The assistant's reply reaches the sender before any state-change
		// events, so the UI can show the explanation with the task appearing.
		if err := cl.send(Event{Type: EventAgentResponse, Response: reply, ConversationHistory: history}); err != nil {
			return
		}
		for _, evt := range events {
			h.Hub.Broadcast(evt)
		}
		h.Hub.TaskListUpdated()
	}
}

// HandleChat serves POST /api/chat for clients without a WebSocket. Task
// events still fan out to connected clients.
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	var in inboundMessage
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || strings.TrimSpace(in.Message) == "" {
		http.Error(w, "invalid message payload", http.StatusBadRequest)
		return
	}

	reply, history, events := h.respond(r.Context(), in.ConversationHistory, in.Message)

	for _, evt := range events {
		h.Hub.Broadcast(evt)
	}
	h.Hub.TaskListUpdated()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{
		"response":             reply,
		"conversation_history": history,
	}); err != nil {
		log.Printf("chat: encode response: %v", err)
	}
}

// respond runs one turn of the chat pipeline: invoke the agent, apply its
// mutations, extend the history. A failed mutation becomes a note on the
// reply and never aborts the rest of the batch.
func (h *Handler) respond(ctx context.Context, history []ChatMessage, message string) (string, []ChatMessage, []Event) {
	reply, mutations, err := h.Agent.Respond(ctx, toTurns(history), message)
	if err != nil {
		log.Printf("chat: agent: %v", err)
		reply, mutations = agentUnavailableMsg, nil
	}

	history = append(history, ChatMessage{Role: RoleUser, Content: message, Timestamp: time.Now().UTC()})

	var events []Event
	var notes []string
	for _, m := range mutations {
		evt, err := h.apply(ctx, m)
		if err != nil {
			notes = append(notes, fmt.Sprintf("couldn't %s: %v", m.Describe(), err))
			continue
		}
		events = append(events, evt)
	}

	if reply == "" {
		if len(events) > 0 {
			reply = "Done! ✅"
		} else {
			reply = "How can I help with your tasks?"
		}
	}
	if len(notes) > 0 {
		reply += "\n\n⚠️ " + strings.Join(notes, "; ")
	}

	history = append(history, ChatMessage{Role: RoleAssistant, Content: reply, Timestamp: time.Now().UTC()})
	return reply, history, events
}

func (h *Handler) apply(ctx context.Context, m ai.Mutation) (Event, error) {
	switch m.Op {
	case ai.OpCreate:
		if m.Create == nil {
			return Event{}, fmt.Errorf("missing task fields")
		}
		t, err := h.Store.Create(ctx, *m.Create)
		if err != nil {
			return Event{}, err
		}
		return Event{Type: EventTaskCreated, Task: &t}, nil

	case ai.OpUpdate:
		id, err := h.resolveTarget(ctx, m)
		if err != nil {
			return Event{}, err
		}
		if m.Update == nil {
			return Event{}, fmt.Errorf("missing update fields")
		}
		t, err := h.Store.Update(ctx, id, *m.Update)
		if err != nil {
			return Event{}, err
		}
		return Event{Type: EventTaskUpdated, Task: &t}, nil

	case ai.OpDelete:
		id, err := h.resolveTarget(ctx, m)
		if err != nil {
			return Event{}, err
		}
		if err := h.Store.Delete(ctx, id); err != nil {
			return Event{}, err
		}
		return Event{Type: EventTaskDeleted, TaskID: id}, nil
	}
	return Event{}, fmt.Errorf("unknown mutation %q", m.Op)
}

func (h *Handler) resolveTarget(ctx context.Context, m ai.Mutation) (int, error) {
	if m.TaskID != 0 {
		return m.TaskID, nil
	}
	t, err := h.Store.FindByTitle(ctx, m.TitleMatch)
	if err != nil {
		return 0, err
	}
	return t.ID, nil
}

func toTurns(history []ChatMessage) []ai.Turn {
	turns := make([]ai.Turn, 0, len(history))
	for _, m := range history {
		turns = append(turns, ai.Turn{Role: m.Role, Content: m.Content})
	}
	return turns
}
