package ai

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// Client turns a chat message into an assistant reply plus zero or more
// structured task mutations, via one chat-completion round with tool calls.
// It never executes the mutations; that is the chat handler's job.
type Client struct {
	api     *openai.Client
	model   string
	timeout time.Duration
}

type Options struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

func New(opts Options) *Client {
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		api:     openai.NewClientWithConfig(cfg),
		model:   opts.Model,
		timeout: timeout,
	}
}

// Respond sends the conversation to the model and returns the assistant text
// plus the mutations extracted from its tool calls. The upstream call is
// bounded by the client timeout regardless of the caller's context.
func (c *Client) Respond(ctx context.Context, history []Turn, message string) (string, []Mutation, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: buildMessages(history, message),
		Tools:    taskTools(),
	})
	if err != nil {
		return "", nil, fmt.Errorf("ai: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil, fmt.Errorf("ai: empty completion")
	}

	choice := resp.Choices[0].Message
	text := strings.TrimSpace(choice.Content)

	var mutations []Mutation
	var notes []string
	for _, call := range choice.ToolCalls {
		if call.Type != openai.ToolTypeFunction {
			continue
		}
		m, err := parseMutation(call.Function.Name, call.Function.Arguments)
		if err != nil {
			log.Printf("ai: dropping tool call: %v", err)
			notes = append(notes, err.Error())
			continue
		}
		mutations = append(mutations, m)
	}

	if len(notes) > 0 {
		text = strings.TrimSpace(text + "\n(" + strings.Join(notes, "; ") + ")")
	}
	return text, mutations, nil
}
