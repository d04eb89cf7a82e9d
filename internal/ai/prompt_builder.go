package ai

import (
	"encoding/json"

	openai "github.com/sashabaranov/go-openai"
)

// Turn is one prior exchange in the conversation, role "user" or "assistant".
type Turn struct {
	Role    string
	Content string
}

func buildMessages(history []Turn, message string) []openai.ChatCompletionMessage {
	msgs := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: taskAgentSystemPrompt,
	})
	for _, turn := range history {
		role := openai.ChatMessageRoleUser
		if turn.Role == "assistant" {
			role = openai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: turn.Content})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: message,
	})
	return msgs
}

func taskTools() []openai.Tool {
	return []openai.Tool{
		functionTool("create_task", "Create a new task with the given details.", `{
			"type": "object",
			"properties": {
				"title": {"type": "string", "description": "The task title"},
				"description": {"type": "string", "description": "Optional task description"},
				"due_date": {"type": "string", "description": "Optional due date in ISO format (YYYY-MM-DD)"},
				"priority": {"type": "string", "enum": ["low", "medium", "high", "urgent"]}
			},
			"required": ["title"]
		}`),
		functionTool("update_task", "Update an existing task by id or title match.", `{
			"type": "object",
			"properties": {
				"task_id": {"type": "integer", "description": "The task id to update"},
				"title_match": {"type": "string", "description": "Words from the task title, when no id is known"},
				"title": {"type": "string"},
				"description": {"type": "string"},
				"status": {"type": "string", "enum": ["pending", "in_progress", "completed", "cancelled"]},
				"priority": {"type": "string", "enum": ["low", "medium", "high", "urgent"]},
				"due_date": {"type": "string", "description": "New due date in ISO format"}
			}
		}`),
		functionTool("delete_task", "Delete a task by id or title match.", `{
			"type": "object",
			"properties": {
				"task_id": {"type": "integer", "description": "The task id to delete"},
				"title_match": {"type": "string", "description": "Words from the task title, when no id is known"}
			}
		}`),
	}
}

func functionTool(name, description, schema string) openai.Tool {
	return openai.Tool{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        name,
			Description: description,
			Parameters:  json.RawMessage(schema),
		},
	}
}
