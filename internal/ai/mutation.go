package ai

import (
	"fmt"
	"time"

	"github.com/tidwall/gjson"

	"github.com/pratik7mo/AI-TaskManagement/internal/tasks"
)

type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Mutation is one task change the model asked for. The chat layer applies
// mutations against the store; the agent never touches the database itself.
type Mutation struct {
	Op Op

	// Target for update/delete: an explicit id, or words from the title
	// when the user named the task instead of numbering it.
	TaskID     int
	TitleMatch string

	Create *tasks.CreateRequest
	Update *tasks.UpdateRequest
}

// Describe gives a short human label, used in failure notes.
func (m Mutation) Describe() string {
	switch {
	case m.Op == OpCreate && m.Create != nil:
		return fmt.Sprintf("create %q", m.Create.Title)
	case m.TaskID != 0:
		return fmt.Sprintf("%s task %d", m.Op, m.TaskID)
	default:
		return fmt.Sprintf("%s task %q", m.Op, m.TitleMatch)
	}
}

// parseMutation turns one tool call into a Mutation. The argument blob comes
// straight from the model, so everything is read leniently with gjson.
func parseMutation(name, arguments string) (Mutation, error) {
	args := gjson.Parse(arguments)

	switch name {
	case "create_task":
		title := args.Get("title").String()
		if title == "" {
			return Mutation{}, fmt.Errorf("create_task: missing title")
		}
		req := &tasks.CreateRequest{
			Title:       title,
			Description: args.Get("description").String(),
			Priority:    tasks.Priority(args.Get("priority").String()),
		}
		if v := args.Get("due_date"); v.Exists() && v.String() != "" {
			due, err := parseDueDate(v.String())
			if err != nil {
				return Mutation{}, fmt.Errorf("create_task: %w", err)
			}
			req.DueDate = due
		}
		return Mutation{Op: OpCreate, Create: req}, nil

	case "update_task":
		m := Mutation{
			Op:         OpUpdate,
			TaskID:     int(args.Get("task_id").Int()),
			TitleMatch: args.Get("title_match").String(),
			Update:     &tasks.UpdateRequest{},
		}
		if v := args.Get("title"); v.Exists() {
			s := v.String()
			m.Update.Title = &s
		}
		if v := args.Get("description"); v.Exists() {
			s := v.String()
			m.Update.Description = &s
		}
		if v := args.Get("status"); v.Exists() {
			s := tasks.Status(v.String())
			m.Update.Status = &s
		}
		if v := args.Get("priority"); v.Exists() {
			p := tasks.Priority(v.String())
			m.Update.Priority = &p
		}
		if v := args.Get("due_date"); v.Exists() && v.String() != "" {
			due, err := parseDueDate(v.String())
			if err != nil {
				return Mutation{}, fmt.Errorf("update_task: %w", err)
			}
			m.Update.DueDate = due
		}
		return m, nil

	case "delete_task":
		return Mutation{
			Op:         OpDelete,
			TaskID:     int(args.Get("task_id").Int()),
			TitleMatch: args.Get("title_match").String(),
		}, nil
	}

	return Mutation{}, fmt.Errorf("unknown tool %q", name)
}

func parseDueDate(s string) (*time.Time, error) {
	for _, layout := range []string{"2006-01-02", time.RFC3339, "2006-01-02 15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
}
