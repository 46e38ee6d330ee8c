package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/abatilo/autotask/internal/task"
)

const timeLayout = "2006-01-02 15:04"

// HumanFormatter formats output for human-readable terminal display.
type HumanFormatter struct{}

// NewHumanFormatter creates a new HumanFormatter.
func NewHumanFormatter() *HumanFormatter {
	return &HumanFormatter{}
}

// FormatTask formats a single task for display.
func (f *HumanFormatter) FormatTask(t *task.Task) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "[%s] %s\n", t.ID, t.Name)
	fmt.Fprintf(&sb, "  Status:   %s\n", t.Status)
	fmt.Fprintf(&sb, "  Type:     %s\n", t.Type)
	fmt.Fprintf(&sb, "  Priority: %s\n", t.Priority)
	fmt.Fprintf(&sb, "  Schedule: %s\n", t.Schedule.Descriptor)
	fmt.Fprintf(&sb, "  Last run: %s\n", formatTime(t.Schedule.LastRun, "Never"))
	fmt.Fprintf(&sb, "  Next run: %s\n", formatTime(t.Schedule.NextRun, "Not scheduled"))

	if t.Description != "" {
		sb.WriteString("\n")
		sb.WriteString(t.Description)
		sb.WriteString("\n")
	}

	return sb.String()
}

// FormatTaskList formats a list of tasks for display.
func (f *HumanFormatter) FormatTaskList(tasks []*task.Task) string {
	if len(tasks) == 0 {
		return "No automated tasks found. Create a new task to get started.\n"
	}

	var sb strings.Builder
	for _, t := range tasks {
		sb.WriteString(f.formatTaskLine(t))
	}
	fmt.Fprintf(&sb, "%d tasks found\n", len(tasks))
	return sb.String()
}

// formatTaskLine formats a single task as a compact one-liner.
func (f *HumanFormatter) formatTaskLine(t *task.Task) string {
	return fmt.Sprintf("%s %s [%s] %s (%s)\n", f.statusIcon(t.Status), f.priorityMark(t.Priority), t.ID, t.Name, t.Schedule.Descriptor)
}

// FormatCounts formats per-status totals.
func (f *HumanFormatter) FormatCounts(counts map[task.Status]int) string {
	var sb strings.Builder
	total := 0
	for _, s := range task.Statuses() {
		fmt.Fprintf(&sb, "%s %-9s %d\n", f.statusIcon(s), s, counts[s])
		total += counts[s]
	}
	fmt.Fprintf(&sb, "    %-9s %d\n", "total", total)
	return sb.String()
}

func (f *HumanFormatter) statusIcon(s task.Status) string {
	switch s {
	case task.StatusIdle:
		return "[ ]"
	case task.StatusRunning:
		return "[>]"
	case task.StatusCompleted:
		return "[✓]"
	case task.StatusFailed:
		return "[X]"
	default:
		return "[?]"
	}
}

func (f *HumanFormatter) priorityMark(p task.Priority) string {
	switch p {
	case task.PriorityCritical:
		return "P0"
	case task.PriorityHigh:
		return "P1"
	case task.PriorityMedium:
		return "P2"
	case task.PriorityLow:
		return "P3"
	default:
		return "P?"
	}
}

// FormatError formats an error for display.
func (f *HumanFormatter) FormatError(err error) string {
	return fmt.Sprintf("Error: %s\n", err.Error())
}

// FormatMessage formats a simple message.
func (f *HumanFormatter) FormatMessage(msg string) string {
	return msg + "\n"
}

func formatTime(t *time.Time, fallback string) string {
	if t == nil {
		return fallback
	}
	return t.Format(timeLayout)
}
