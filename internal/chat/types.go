package chat

import (
	"time"

	"github.com/pratik7mo/AI-TaskManagement/internal/tasks"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one entry in a session's conversation history. History is
// append-only and lives as long as the connection.
type ChatMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// inboundMessage is what the browser sends over /ws/chat (and POST /api/chat).
// conversation_history lets a reconnecting client re-seed its session.
type inboundMessage struct {
	Message             string        `json:"message"`
	ConversationHistory []ChatMessage `json:"conversation_history"`
}

// Outbound event types, dispatched on by clients.
const (
	EventAgentResponse  = "agent_response"
	EventTaskCreated    = "task_created"
	EventTaskUpdated    = "task_updated"
	EventTaskDeleted    = "task_deleted"
	EventTaskListUpdate = "task_list_update"
	EventError          = "error"
)

// Event is the tagged union sent over the WebSocket; only the fields
// relevant to Type are populated.
type Event struct {
	Type                string        `json:"type"`
	Response            string        `json:"response,omitempty"`
	ConversationHistory []ChatMessage `json:"conversation_history,omitempty"`
	Task                *tasks.Task   `json:"task,omitempty"`
	TaskID              int           `json:"task_id,omitempty"`
	Message             string        `json:"message,omitempty"`
	Error               string        `json:"error,omitempty"`
}
