package jobs

import (
	"sort"
	"strconv"
	"sync"
	"time"
)

// ManualScheduler is a Scheduler whose tasks only run when RunPending is
// called. Tests use it to step through deferred work deterministically.
type ManualScheduler struct {
	mu     sync.Mutex
	nextID int
	tasks  map[string]manualTask
}

type manualTask struct {
	seq      int
	delay    time.Duration
	periodic bool
	fn       func()
}

func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{tasks: make(map[string]manualTask)}
}

func (m *ManualScheduler) add(delay time.Duration, periodic bool, task func()) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	id := "job-" + strconv.Itoa(m.nextID)
	m.tasks[id] = manualTask{seq: m.nextID, delay: delay, periodic: periodic, fn: task}
	return id
}

func (m *ManualScheduler) After(delay time.Duration, task func()) (string, error) {
	return m.add(delay, false, task), nil
}

func (m *ManualScheduler) Every(interval time.Duration, task func()) (string, error) {
	return m.add(interval, true, task), nil
}

func (m *ManualScheduler) Cancel(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tasks, id)
	return nil
}

// Pending returns the number of scheduled tasks.
func (m *ManualScheduler) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

// Delays returns the delay of every pending task in scheduling order.
func (m *ManualScheduler) Delays() []time.Duration {
	tasks := m.ordered()
	delays := make([]time.Duration, 0, len(tasks))
	for _, t := range tasks {
		delays = append(delays, t.delay)
	}
	return delays
}

// RunPending runs every pending task once, in scheduling order. One-time
// tasks are removed before they run; periodic ones stay. It returns how many
// tasks ran.
func (m *ManualScheduler) RunPending() int {
	m.mu.Lock()
	ids := make([]string, 0, len(m.tasks))
	for id := range m.tasks {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return m.tasks[ids[i]].seq < m.tasks[ids[j]].seq })
	run := make([]func(), 0, len(ids))
	for _, id := range ids {
		t := m.tasks[id]
		if !t.periodic {
			delete(m.tasks, id)
		}
		run = append(run, t.fn)
	}
	m.mu.Unlock()

	for _, fn := range run {
		fn()
	}
	return len(run)
}

func (m *ManualScheduler) ordered() []manualTask {
	m.mu.Lock()
	defer m.mu.Unlock()
	tasks := make([]manualTask, 0, len(m.tasks))
	for _, t := range m.tasks {
		tasks = append(tasks, t)
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].seq < tasks[j].seq })
	return tasks
}
