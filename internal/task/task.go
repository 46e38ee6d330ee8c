package task

import "time"

// Status represents the current state of a task.
type Status uint8

const (
	StatusIdle Status = iota
	StatusRunning
	StatusCompleted
	StatusFailed
)

var statusNames = []string{"idle", "running", "completed", "failed"}

// Statuses returns every status in declaration order.
func Statuses() []Status {
	return []Status{StatusIdle, StatusRunning, StatusCompleted, StatusFailed}
}

// ParseStatus converts text to a Status.
func ParseStatus(s string) (Status, error) {
	return lookup[Status]("status", statusNames, s)
}

func (s Status) String() string {
	if n := name(statusNames, s); n != "" {
		return n
	}
	return "unknown"
}

// IsValid reports whether s is one of the declared statuses.
func (s Status) IsValid() bool { return name(statusNames, s) != "" }

// IsTerminal reports whether s is an outcome an executor can report.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

func (s Status) MarshalText() ([]byte, error) { return marshal("status", statusNames, s) }

func (s *Status) UnmarshalText(b []byte) error {
	v, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Priority represents the importance level of a task.
type Priority uint8

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
	PriorityCritical
)

var priorityNames = []string{"low", "medium", "high", "critical"}

// ParsePriority converts text to a Priority.
func ParsePriority(s string) (Priority, error) {
	return lookup[Priority]("priority", priorityNames, s)
}

func (p Priority) String() string {
	if n := name(priorityNames, p); n != "" {
		return n
	}
	return "unknown"
}

// IsValid reports whether p is one of the declared priorities.
func (p Priority) IsValid() bool { return name(priorityNames, p) != "" }

func (p Priority) MarshalText() ([]byte, error) { return marshal("priority", priorityNames, p) }

func (p *Priority) UnmarshalText(b []byte) error {
	v, err := ParsePriority(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// PriorityOrder returns the sort order for a priority (lower = higher priority).
func PriorityOrder(p Priority) int {
	switch p {
	case PriorityCritical:
		return 0
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 3
	default:
		return 4
	}
}

// Type is the kind of automation a task performs.
type Type uint8

const (
	TypeSecurity Type = iota
	TypeCode
	TypeBackup
)

var typeNames = []string{"security", "code", "backup"}

// Types returns every task type in declaration order.
func Types() []Type {
	return []Type{TypeSecurity, TypeCode, TypeBackup}
}

// ParseType converts text to a Type.
func ParseType(s string) (Type, error) {
	return lookup[Type]("type", typeNames, s)
}

func (t Type) String() string {
	if n := name(typeNames, t); n != "" {
		return n
	}
	return "unknown"
}

func (t Type) MarshalText() ([]byte, error) { return marshal("type", typeNames, t) }

func (t *Type) UnmarshalText(b []byte) error {
	v, err := ParseType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Repeat is how often a task recurs after its first scheduled date.
type Repeat uint8

const (
	RepeatOnce Repeat = iota
	RepeatDaily
	RepeatWeekly
	RepeatMonthly
)

var repeatNames = []string{"once", "daily", "weekly", "monthly"}

// ParseRepeat converts text to a Repeat.
func ParseRepeat(s string) (Repeat, error) {
	return lookup[Repeat]("repeat", repeatNames, s)
}

func (r Repeat) String() string {
	if n := name(repeatNames, r); n != "" {
		return n
	}
	return "unknown"
}

func (r Repeat) MarshalText() ([]byte, error) { return marshal("repeat", repeatNames, r) }

func (r *Repeat) UnmarshalText(b []byte) error {
	v, err := ParseRepeat(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// Schedule describes when a task runs.
type Schedule struct {
	Descriptor string     `yaml:"descriptor"`
	NextRun    *time.Time `yaml:"next_run,omitempty"`
	LastRun    *time.Time `yaml:"last_run,omitempty"` // set only once a run has finished
}

// Task represents a user-defined automation unit.
type Task struct {
	ID          string    `yaml:"id"`
	Name        string    `yaml:"name"`
	Description string    `yaml:"description,omitempty"`
	Type        Type      `yaml:"type"`
	Priority    Priority  `yaml:"priority"`
	Status      Status    `yaml:"status"`
	Repeat      Repeat    `yaml:"repeat"`
	Schedule    Schedule  `yaml:"schedule"`
	CreatedAt   time.Time `yaml:"created_at"`
}

// Clone returns a deep copy of t.
func (t *Task) Clone() *Task {
	c := *t
	c.Schedule.NextRun = cloneTime(t.Schedule.NextRun)
	c.Schedule.LastRun = cloneTime(t.Schedule.LastRun)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
