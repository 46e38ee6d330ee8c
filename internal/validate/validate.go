// Package validate turns raw task-creation input into a well-formed Task.
package validate

import (
	"fmt"
	"time"

	"github.com/pkg/errors"

	taskerrors "github.com/abatilo/autotask/internal/errors"
	"github.com/abatilo/autotask/internal/storage"
	"github.com/abatilo/autotask/internal/task"
)

const dateLayout = "2006-01-02"

// Input holds the fields submitted when creating a task.
type Input struct {
	Name        string
	Type        string
	Description string
	Schedule    time.Time
	Priority    string
	Repeat      string
}

// NewTask validates in against the current time and builds an idle Task.
// existsFn reports IDs already taken.
func NewTask(in Input, now time.Time, existsFn func(string) bool) (*task.Task, error) {
	name, err := task.ValidateName(in.Name)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	day, err := checkSchedule(in.Schedule, now)
	if err != nil {
		return nil, err
	}

	taskType, err := task.ParseType(in.Type)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	priority, err := task.ParsePriority(in.Priority)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	repeat, err := task.ParseRepeat(in.Repeat)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	createdAt := now.UTC()
	return &task.Task{
		ID:          task.GenerateID(name, createdAt, existsFn),
		Name:        name,
		Description: in.Description,
		Type:        taskType,
		Priority:    priority,
		Status:      task.StatusIdle,
		Repeat:      repeat,
		Schedule: task.Schedule{
			Descriptor: Describe(repeat, day),
			NextRun:    &day,
		},
		CreatedAt: createdAt,
	}, nil
}

// Describe renders the human-readable schedule, e.g. "weekly starting 2026-10-20".
func Describe(repeat task.Repeat, day time.Time) string {
	return fmt.Sprintf("%s starting %s", repeat, day.Format(dateLayout))
}

// ParseDate parses a YYYY-MM-DD date in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, s, loc)
	if err != nil {
		return time.Time{}, taskerrors.ValidationError{Field: "schedule", Reason: "expected YYYY-MM-DD", Value: s}
	}
	return t, nil
}

// checkSchedule rejects a missing date or one before today in its own location
// and returns the start of that day.
func checkSchedule(date, now time.Time) (time.Time, error) {
	if date.IsZero() {
		return time.Time{}, errors.WithStack(taskerrors.ValidationError{Field: "schedule", Reason: taskerrors.ReasonRequired})
	}
	day := startOfDay(date)
	if day.Before(startOfDay(now.In(date.Location()))) {
		return time.Time{}, errors.WithStack(taskerrors.ValidationError{
			Field:  "schedule",
			Reason: taskerrors.ReasonScheduleInPast,
			Value:  day.Format(dateLayout),
		})
	}
	return day, nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Creator validates submissions and inserts them into a store.
type Creator struct {
	store *storage.Store
	now   func() time.Time
}

// NewCreator creates a Creator backed by store. A nil now defaults to time.Now.
func NewCreator(store *storage.Store, now func() time.Time) *Creator {
	if now == nil {
		now = time.Now
	}
	return &Creator{store: store, now: now}
}

// Create validates in and inserts the resulting task.
func (c *Creator) Create(in Input) (*task.Task, error) {
	t, err := NewTask(in, c.now(), c.store.Exists)
	if err != nil {
		return nil, err
	}
	if err := c.store.Insert(t); err != nil {
		return nil, err
	}
	return t, nil
}

// Changes holds edited task fields as submitted. Nil fields keep their
// current value.
type Changes struct {
	Name        *string
	Type        *string
	Description *string
	Schedule    *time.Time
	Priority    *string
	Repeat      *string
}

// Edit validates c with the creation rules and returns the patch that applies
// it to current. A new repeat or schedule date rewrites the descriptor; an
// unchanged date is not checked against now.
func Edit(current *task.Task, c Changes, now time.Time) (storage.Patch, error) {
	var patch storage.Patch

	if c.Name != nil {
		name, err := task.ValidateName(*c.Name)
		if err != nil {
			return storage.Patch{}, errors.WithStack(err)
		}
		patch.Name = &name
	}

	repeat := current.Repeat
	day := now
	if current.Schedule.NextRun != nil {
		day = *current.Schedule.NextRun
	}
	if c.Schedule != nil {
		var err error
		if day, err = checkSchedule(*c.Schedule, now); err != nil {
			return storage.Patch{}, err
		}
	}

	if c.Type != nil {
		taskType, err := task.ParseType(*c.Type)
		if err != nil {
			return storage.Patch{}, errors.WithStack(err)
		}
		patch.Type = &taskType
	}
	if c.Priority != nil {
		priority, err := task.ParsePriority(*c.Priority)
		if err != nil {
			return storage.Patch{}, errors.WithStack(err)
		}
		patch.Priority = &priority
	}
	if c.Repeat != nil {
		var err error
		if repeat, err = task.ParseRepeat(*c.Repeat); err != nil {
			return storage.Patch{}, errors.WithStack(err)
		}
		patch.Repeat = &repeat
	}
	if c.Description != nil {
		description := *c.Description
		patch.Description = &description
	}

	if c.Schedule != nil || c.Repeat != nil {
		day = startOfDay(day)
		descriptor := Describe(repeat, day)
		patch.Descriptor = &descriptor
		patch.NextRun = &day
	}

	return patch, nil
}
