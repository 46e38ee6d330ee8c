package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/abatilo/autotask/internal/task"
)

const (
	Namespace = "autotask"

	NameTasks       = "tasks"
	NameTransitions = "task_transitions_total"
	LabelStatus     = "status"
	LabelAction     = "action"
)

var Tasks = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name:      NameTasks,
		Help:      "Current tasks",
		Namespace: Namespace,
	},
	[]string{LabelStatus},
)

var Transitions = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name:      NameTransitions,
		Help:      "Applied task status transitions",
		Namespace: Namespace,
	},
	[]string{LabelAction},
)

// SetTaskCounts publishes per-status task counts.
func SetTaskCounts(counts map[task.Status]int) {
	for _, s := range task.Statuses() {
		Tasks.WithLabelValues(s.String()).Set(float64(counts[s]))
	}
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
