package storage

import (
	"slices"
	"sync"
	"time"

	"github.com/pkg/errors"

	taskerrors "github.com/abatilo/autotask/internal/errors"
	"github.com/abatilo/autotask/internal/task"
)

// Store holds tasks in memory, keyed by ID, in insertion order.
// All methods are safe for concurrent use; returned tasks are copies.
type Store struct {
	mu    sync.RWMutex
	order []string
	tasks map[string]*task.Task
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{tasks: make(map[string]*task.Task)}
}

// Patch lists the fields to change in Update. Nil fields are left untouched.
// Status is not patchable; only the transition engine changes it.
type Patch struct {
	Name        *string
	Description *string
	Type        *task.Type
	Priority    *task.Priority
	Repeat      *task.Repeat
	Descriptor  *string
	NextRun     *time.Time
	LastRun     *time.Time
}

// Insert appends a task to the store.
func (s *Store) Insert(t *task.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[t.ID]; exists {
		return errors.WithStack(taskerrors.AlreadyExistsError{ID: t.ID})
	}
	s.tasks[t.ID] = t.Clone()
	s.order = append(s.order, t.ID)
	return nil
}

// Remove deletes a task. It returns false when the ID is unknown.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[id]; !exists {
		return false
	}
	delete(s.tasks, id)
	s.order = slices.DeleteFunc(s.order, func(o string) bool { return o == id })
	return true
}

// Update merges patch into the task with the given ID.
func (s *Store) Update(id string, patch Patch) (*task.Task, error) {
	return s.Modify(id, func(t *task.Task) error {
		if patch.Name != nil {
			name, err := task.ValidateName(*patch.Name)
			if err != nil {
				return err
			}
			t.Name = name
		}
		if patch.Description != nil {
			t.Description = *patch.Description
		}
		if patch.Type != nil {
			t.Type = *patch.Type
		}
		if patch.Priority != nil {
			t.Priority = *patch.Priority
		}
		if patch.Repeat != nil {
			t.Repeat = *patch.Repeat
		}
		if patch.Descriptor != nil {
			t.Schedule.Descriptor = *patch.Descriptor
		}
		if patch.NextRun != nil {
			next := *patch.NextRun
			t.Schedule.NextRun = &next
		}
		if patch.LastRun != nil {
			last := *patch.LastRun
			t.Schedule.LastRun = &last
		}
		return nil
	})
}

// Modify applies fn to a copy of the task under the write lock and stores the
// copy only if fn succeeds.
func (s *Store) Modify(id string, fn func(t *task.Task) error) (*task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.tasks[id]
	if !exists {
		return nil, errors.WithStack(taskerrors.TaskNotFoundError{ID: id})
	}

	working := current.Clone()
	if err := fn(working); err != nil {
		return nil, errors.WithStack(err)
	}
	s.tasks[id] = working
	return working.Clone(), nil
}

// Get returns a copy of a task.
func (s *Store) Get(id string) (*task.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, exists := s.tasks[id]
	if !exists {
		return nil, errors.WithStack(taskerrors.TaskNotFoundError{ID: id})
	}
	return t.Clone(), nil
}

// Exists checks if a task with the given ID exists.
func (s *Store) Exists(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, exists := s.tasks[id]
	return exists
}

// Len returns the number of tasks.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// List returns copies of all tasks in insertion order.
func (s *Store) List() []*task.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tasks := make([]*task.Task, 0, len(s.order))
	for _, id := range s.order {
		tasks = append(tasks, s.tasks[id].Clone())
	}
	return tasks
}
