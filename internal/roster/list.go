package roster

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/JonMunkholm/matricula/internal/enrollment"
	"github.com/JonMunkholm/matricula/internal/logging"
)

// ErrFetchInFlight is returned by Refresh while another fetch is running.
var ErrFetchInFlight = errors.New("student list fetch already in flight")

// State is the lifecycle of the held list.
type State int

const (
	StateLoading State = iota
	StateLoaded
	StateError
)

func (s State) String() string {
	switch s {
	case StateLoaded:
		return "loaded"
	case StateError:
		return "error"
	default:
		return "loading"
	}
}

// StudentAPI is the subset of the API client the list needs.
type StudentAPI interface {
	ListStudents(ctx context.Context) ([]enrollment.Student, error)
	DeleteStudent(ctx context.Context, id string) error
	ApproveStudent(ctx context.Context, id string) (*enrollment.Student, error)
}

// List holds the students fetched for one admin session. It starts in
// StateLoading, moves to StateLoaded or StateError on Refresh, and stays
// loaded while confirmed mutations are patched in. Safe for concurrent use.
type List struct {
	mu       sync.RWMutex
	state    State
	students []enrollment.Student
	err      error
	fetching bool
	loadedAt time.Time
	now      func() time.Time
}

// NewList returns an empty list in StateLoading.
func NewList() *List {
	return &List{now: time.Now}
}

// Refresh fetches the full list. Only one fetch runs at a time.
func (l *List) Refresh(ctx context.Context, client StudentAPI) error {
	l.mu.Lock()
	if l.fetching {
		l.mu.Unlock()
		return ErrFetchInFlight
	}
	l.fetching = true
	l.state = StateLoading
	l.mu.Unlock()

	students, err := client.ListStudents(ctx)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.fetching = false
	if err != nil {
		l.state = StateError
		l.err = err
		logging.FromContext(ctx).Warn("student list fetch failed", "error", err)
		return err
	}
	l.state = StateLoaded
	l.students = students
	l.err = nil
	l.loadedAt = l.now()
	return nil
}

// Delete removes a student through the API, then drops it from the list.
// On failure the list is unchanged.
func (l *List) Delete(ctx context.Context, client StudentAPI, id string) error {
	if err := client.DeleteStudent(ctx, id); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.students = slices.DeleteFunc(l.students, func(s enrollment.Student) bool { return s.ID == id })
	return nil
}

// Approve approves a student through the API, then patches the held copy.
func (l *List) Approve(ctx context.Context, client StudentAPI, id string) (*enrollment.Student, error) {
	updated, err := client.ApproveStudent(ctx, id)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if i := l.indexLocked(id); i >= 0 {
		if updated != nil && updated.ID == id {
			l.students[i] = *updated
		} else {
			l.students[i].Approved = true
		}
	}
	return updated, nil
}

// Replace patches a student the API has already confirmed. A student not in
// the list is appended; a student without an ID is ignored.
func (l *List) Replace(s enrollment.Student) {
	if s.ID == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if i := l.indexLocked(s.ID); i >= 0 {
		l.students[i] = s
		return
	}
	l.students = append(l.students, s)
}

// Patch applies fn to the held student with the given ID. It reports whether
// the student was found.
func (l *List) Patch(id string, fn func(*enrollment.Student)) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := l.indexLocked(id)
	if i < 0 {
		return false
	}
	fn(&l.students[i])
	return true
}

// Get returns a held student by ID.
func (l *List) Get(id string) (enrollment.Student, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if i := l.indexLocked(id); i >= 0 {
		return l.students[i], true
	}
	return enrollment.Student{}, false
}

func (l *List) indexLocked(id string) int {
	return slices.IndexFunc(l.students, func(s enrollment.Student) bool { return s.ID == id })
}

// State reports the lifecycle state and the last fetch error.
func (l *List) State() (State, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state, l.err
}

// LoadedAt is when the last successful fetch finished.
func (l *List) LoadedAt() time.Time {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.loadedAt
}

// Students returns a copy of the held list in fetch order.
func (l *List) Students() []enrollment.Student {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.students)
}

// View is a rendered snapshot: the filtered subset plus counters over all.
type View struct {
	State    State
	Err      error
	Search   string
	Category Category
	Students []enrollment.Student
	Stats    Stats
}

// View filters the held list.
func (l *List) View(search string, category Category, now time.Time) View {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return View{
		State:    l.state,
		Err:      l.err,
		Search:   search,
		Category: category,
		Students: Filter(l.students, search, category, now),
		Stats:    Summarize(l.students, now),
	}
}
