package output

import "github.com/abatilo/autotask/internal/task"

// Formatter defines the interface for output formatting.
type Formatter interface {
	FormatTask(t *task.Task) string
	FormatTaskList(tasks []*task.Task) string
	FormatCounts(counts map[task.Status]int) string
	FormatError(err error) string
	FormatMessage(msg string) string
}

// New returns the formatter for a format name: "json", "yaml", or human for anything else.
func New(format string) Formatter {
	switch format {
	case "json":
		return NewJSONFormatter()
	case "yaml":
		return NewYAMLFormatter()
	default:
		return NewHumanFormatter()
	}
}
