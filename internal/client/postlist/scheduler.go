package postlist

import (
	"sort"
	"sync"
	"time"
)

// Task is a scheduled callback that can be cancelled before it runs.
type Task interface {
	Stop() bool
}

// Scheduler runs fn once after d.
type Scheduler interface {
	Schedule(d time.Duration, fn func()) Task
}

// TimerScheduler schedules on the runtime timer via time.AfterFunc.
type TimerScheduler struct{}

// Schedule arms a runtime timer; the returned *time.Timer is the Task.
func (TimerScheduler) Schedule(d time.Duration, fn func()) Task {
	return time.AfterFunc(d, fn)
}

// ManualScheduler fires tasks only when Advance moves its clock past their
// deadline. It is meant for tests and other deterministic drivers.
type ManualScheduler struct {
	mu    sync.Mutex
	now   time.Duration
	tasks []*manualTask
}

type manualTask struct {
	s       *ManualScheduler
	at      time.Duration
	fn      func()
	stopped bool
	fired   bool
}

func (t *manualTask) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Schedule registers fn to run once the clock passes now+d.
func (m *ManualScheduler) Schedule(d time.Duration, fn func()) Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &manualTask{s: m, at: m.now + d, fn: fn}
	m.tasks = append(m.tasks, t)
	return t
}

// Advance moves the clock by d and runs every due task in deadline order.
// Callbacks run on the caller's goroutine without the scheduler lock held.
func (m *ManualScheduler) Advance(d time.Duration) {
	m.mu.Lock()
	m.now += d
	var due, rest []*manualTask
	for _, t := range m.tasks {
		switch {
		case t.stopped:
		case t.at <= m.now:
			t.fired = true
			due = append(due, t)
		default:
			rest = append(rest, t)
		}
	}
	m.tasks = rest
	m.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].at < due[j].at })
	for _, t := range due {
		t.fn()
	}
}

// Pending counts tasks that are scheduled and not stopped.
func (m *ManualScheduler) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.tasks {
		if !t.stopped {
			n++
		}
	}
	return n
}
