package output

import (
	"encoding/json"
	"time"

	"github.com/abatilo/autotask/internal/task"
)

// JSONFormatter formats output as JSON.
type JSONFormatter struct{}

// marshalJSON marshals a value to indented JSON with a trailing newline.
func marshalJSON(v any) string {
	data, _ := json.MarshalIndent(v, "", "  ")
	return string(data) + "\n"
}

// NewJSONFormatter creates a new JSONFormatter.
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// taskJSON is the JSON representation of a task.
type taskJSON struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Type        string  `json:"type"`
	Priority    string  `json:"priority"`
	Status      string  `json:"status"`
	Repeat      string  `json:"repeat"`
	Schedule    string  `json:"schedule"`
	CreatedAt   string  `json:"created_at"`
	NextRun     *string `json:"next_run,omitempty"`
	LastRun     *string `json:"last_run,omitempty"`
}

func toTaskJSON(t *task.Task) taskJSON {
	tj := taskJSON{
		ID:          t.ID,
		Name:        t.Name,
		Description: t.Description,
		Type:        t.Type.String(),
		Priority:    t.Priority.String(),
		Status:      t.Status.String(),
		Repeat:      t.Repeat.String(),
		Schedule:    t.Schedule.Descriptor,
		CreatedAt:   t.CreatedAt.Format(time.RFC3339),
	}
	if t.Schedule.NextRun != nil {
		s := t.Schedule.NextRun.Format(time.RFC3339)
		tj.NextRun = &s
	}
	if t.Schedule.LastRun != nil {
		s := t.Schedule.LastRun.Format(time.RFC3339)
		tj.LastRun = &s
	}
	return tj
}

// FormatTask formats a single task as JSON.
func (f *JSONFormatter) FormatTask(t *task.Task) string {
	return marshalJSON(toTaskJSON(t))
}

// FormatTaskList formats a list of tasks as JSON.
func (f *JSONFormatter) FormatTaskList(tasks []*task.Task) string {
	jsonTasks := make([]taskJSON, len(tasks))
	for i, t := range tasks {
		jsonTasks[i] = toTaskJSON(t)
	}
	return marshalJSON(jsonTasks)
}

// FormatCounts formats per-status totals as a JSON object.
func (f *JSONFormatter) FormatCounts(counts map[task.Status]int) string {
	out := make(map[string]int, len(counts))
	for _, s := range task.Statuses() {
		out[s.String()] = counts[s]
	}
	return marshalJSON(out)
}

// errorJSON is the JSON representation of an error.
type errorJSON struct {
	Error string `json:"error"`
}

// FormatError formats an error as JSON.
func (f *JSONFormatter) FormatError(err error) string {
	return marshalJSON(errorJSON{Error: err.Error()})
}

// messageJSON is the JSON representation of a message.
type messageJSON struct {
	Message string `json:"message"`
}

// FormatMessage formats a simple message as JSON.
func (f *JSONFormatter) FormatMessage(msg string) string {
	return marshalJSON(messageJSON{Message: msg})
}
