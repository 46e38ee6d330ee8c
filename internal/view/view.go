// Package view derives read-only projections of a task list for display.
package view

import (
	"slices"
	"strings"

	taskerrors "github.com/abatilo/autotask/internal/errors"
	"github.com/abatilo/autotask/internal/task"
)

const allName = "all"

// Criterion selects the tasks shown by Filter: every task, or one status.
type Criterion struct {
	status task.Status
	all    bool
}

// All matches every task.
func All() Criterion {
	return Criterion{all: true}
}

// ByStatus matches tasks whose status equals s.
func ByStatus(s task.Status) Criterion {
	return Criterion{status: s}
}

// ParseCriterion accepts "all" or a status name.
func ParseCriterion(s string) (Criterion, error) {
	if strings.EqualFold(strings.TrimSpace(s), allName) {
		return All(), nil
	}
	status, err := task.ParseStatus(s)
	if err != nil {
		return Criterion{}, taskerrors.ValidationError{Field: "filter", Reason: taskerrors.ReasonInvalidEnum, Value: s}
	}
	return ByStatus(status), nil
}

// Matches returns true if the status should be included.
func (c Criterion) Matches(status task.Status) bool {
	return c.all || c.status == status
}

func (c Criterion) String() string {
	if c.all {
		return allName
	}
	return c.status.String()
}

// Filter returns the tasks matching c, in their original order.
// The input slice is never modified.
func Filter(tasks []*task.Task, c Criterion) []*task.Task {
	out := make([]*task.Task, 0, len(tasks))
	for _, t := range tasks {
		if c.Matches(t.Status) {
			out = append(out, t)
		}
	}
	return out
}

// Counts returns the number of tasks per status.
func Counts(tasks []*task.Task) map[task.Status]int {
	counts := make(map[task.Status]int, len(task.Statuses()))
	for _, s := range task.Statuses() {
		counts[s] = 0
	}
	for _, t := range tasks {
		counts[t.Status]++
	}
	return counts
}

// SortByPriority returns a copy of tasks sorted by priority (highest first),
// then by creation time (oldest first). Ties keep their original order.
func SortByPriority(tasks []*task.Task) []*task.Task {
	out := slices.Clone(tasks)
	slices.SortStableFunc(out, func(a, b *task.Task) int {
		pa, pb := task.PriorityOrder(a.Priority), task.PriorityOrder(b.Priority)
		if pa != pb {
			return pa - pb
		}
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out
}
