package output

import (
	"gopkg.in/yaml.v3"

	"github.com/abatilo/autotask/internal/seed"
	"github.com/abatilo/autotask/internal/task"
)

// YAMLFormatter formats tasks as seed documents, so a listing can be fed
// back to `autotask shell --seed`.
type YAMLFormatter struct{}

func NewYAMLFormatter() *YAMLFormatter {
	return &YAMLFormatter{}
}

func (f *YAMLFormatter) FormatTask(t *task.Task) string {
	return f.FormatTaskList([]*task.Task{t})
}

func (f *YAMLFormatter) FormatTaskList(tasks []*task.Task) string {
	data, err := seed.Marshal(tasks)
	if err != nil {
		return f.FormatError(err)
	}
	return string(data)
}

func (f *YAMLFormatter) FormatCounts(counts map[task.Status]int) string {
	out := make(map[string]int, len(counts))
	for _, s := range task.Statuses() {
		out[s.String()] = counts[s]
	}
	return marshalYAML(out)
}

func (f *YAMLFormatter) FormatError(err error) string {
	return marshalYAML(map[string]string{"error": err.Error()})
}

func (f *YAMLFormatter) FormatMessage(msg string) string {
	return marshalYAML(map[string]string{"message": msg})
}

func marshalYAML(v any) string {
	data, _ := yaml.Marshal(v)
	return string(data)
}
