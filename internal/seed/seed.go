// Package seed reads and writes YAML task fixtures used to preload a store.
package seed

import (
	"bytes"
	_ "embed"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/abatilo/autotask/internal/storage"
	"github.com/abatilo/autotask/internal/task"
)

//go:embed demo.yaml
var demo []byte

// document is the YAML layout of a seed file.
type document struct {
	Tasks []entry `yaml:"tasks"`
}

// entry is the YAML-serializable form of a task.
type entry struct {
	ID          string        `yaml:"id,omitempty"`
	Name        string        `yaml:"name"`
	Description string        `yaml:"description,omitempty"`
	Type        task.Type     `yaml:"type"`
	Priority    task.Priority `yaml:"priority"`
	Status      task.Status   `yaml:"status"`
	Repeat      task.Repeat   `yaml:"repeat"`
	Schedule    string        `yaml:"schedule,omitempty"`
	CreatedAt   string        `yaml:"created_at,omitempty"`
	NextRun     *string       `yaml:"next_run,omitempty"`
	LastRun     *string       `yaml:"last_run,omitempty"`
}

// Demo returns the bundled demonstration tasks.
func Demo(now time.Time) ([]*task.Task, error) {
	return Parse(demo, now)
}

// LoadFile parses the seed file at path.
func LoadFile(path string, now time.Time) ([]*task.Task, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	tasks, err := Parse(content, now)
	if err != nil {
		return nil, errors.Wrapf(err, "could not load seed file '%s'", path)
	}
	return tasks, nil
}

// Parse decodes a seed document. Entries without an ID get a generated one;
// entries without created_at are stamped with now.
func Parse(content []byte, now time.Time) ([]*task.Task, error) {
	var doc document
	dec := yaml.NewDecoder(bytes.NewReader(content))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, &parseError{"invalid YAML: " + err.Error()}
	}

	seen := make(map[string]bool, len(doc.Tasks))
	tasks := make([]*task.Task, 0, len(doc.Tasks))
	for i, e := range doc.Tasks {
		t, err := e.toTask(now, func(id string) bool { return seen[id] })
		if err != nil {
			return nil, errors.Wrapf(err, "task #%d", i+1)
		}
		if seen[t.ID] {
			return nil, &parseError{"duplicate id: " + t.ID}
		}
		seen[t.ID] = true
		tasks = append(tasks, t)
	}
	return tasks, nil
}

func (e entry) toTask(now time.Time, existsFn func(string) bool) (*task.Task, error) {
	name, err := task.ValidateName(e.Name)
	if err != nil {
		return nil, err
	}

	createdAt := now.UTC()
	if e.CreatedAt != "" {
		if createdAt, err = parseTime(e.CreatedAt); err != nil {
			return nil, &parseError{"invalid created_at: " + err.Error()}
		}
	}

	var schedule task.Schedule
	schedule.Descriptor = e.Schedule
	if e.NextRun != nil {
		next, err := parseTime(*e.NextRun)
		if err != nil {
			return nil, &parseError{"invalid next_run: " + err.Error()}
		}
		schedule.NextRun = &next
	}
	if e.LastRun != nil {
		last, err := parseTime(*e.LastRun)
		if err != nil {
			return nil, &parseError{"invalid last_run: " + err.Error()}
		}
		schedule.LastRun = &last
	}

	id := e.ID
	if id == "" {
		id = task.GenerateID(name, createdAt, existsFn)
	}

	return &task.Task{
		ID:          id,
		Name:        name,
		Description: e.Description,
		Type:        e.Type,
		Priority:    e.Priority,
		Status:      e.Status,
		Repeat:      e.Repeat,
		Schedule:    schedule,
		CreatedAt:   createdAt,
	}, nil
}

// Apply inserts tasks into store, stopping at the first error.
func Apply(store *storage.Store, tasks []*task.Task) error {
	for _, t := range tasks {
		if err := store.Insert(t); err != nil {
			return err
		}
	}
	return nil
}

// Marshal encodes tasks as a seed document that Parse accepts.
func Marshal(tasks []*task.Task) ([]byte, error) {
	doc := document{Tasks: make([]entry, len(tasks))}
	for i, t := range tasks {
		doc.Tasks[i] = fromTask(t)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, errors.WithStack(err)
	}
	if err := enc.Close(); err != nil {
		return nil, errors.WithStack(err)
	}
	return buf.Bytes(), nil
}

func fromTask(t *task.Task) entry {
	e := entry{
		ID:          t.ID,
		Name:        t.Name,
		Description: t.Description,
		Type:        t.Type,
		Priority:    t.Priority,
		Status:      t.Status,
		Repeat:      t.Repeat,
		Schedule:    t.Schedule.Descriptor,
		CreatedAt:   t.CreatedAt.Format(time.RFC3339),
	}
	if t.Schedule.NextRun != nil {
		s := t.Schedule.NextRun.Format(time.RFC3339)
		e.NextRun = &s
	}
	if t.Schedule.LastRun != nil {
		s := t.Schedule.LastRun.Format(time.RFC3339)
		e.LastRun = &s
	}
	return e
}

// parseError represents a parsing error.
type parseError struct {
	msg string
}

func (e *parseError) Error() string {
	return e.msg
}

// parseTime tries to parse a time string in common formats.
func parseTime(s string) (time.Time, error) {
	formats := []string{
		time.RFC3339,
		time.RFC3339Nano,
		"2006-01-02 15:04",
		"2006-01-02",
	}
	for _, f := range formats {
		if t, err := time.Parse(f, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &parseError{"unrecognized time format"}
}
