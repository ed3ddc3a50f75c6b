package web

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/JonMunkholm/matricula/internal/enrollment"
	"github.com/JonMunkholm/matricula/internal/notify"
	"github.com/JonMunkholm/matricula/internal/roster"
)

// pageState is what one browser session sees across requests: its
// notification, the forms it is filling in and the admin list it loaded.
// mu guards the form slots and the forms in them, which are not safe for
// concurrent use. It is never held across an API call.
type pageState struct {
	mu       sync.Mutex
	enroll   *enrollment.Form
	create   *enrollment.Form
	edit     *enrollment.Form
	lastSeen time.Time

	presenter *notify.Presenter
	roster    *roster.List
}

// stateRegistry holds page state per session ID, in process memory.
type stateRegistry struct {
	mu     sync.Mutex
	states map[string]*pageState
	idle   time.Duration
	now    func() time.Time

	newPresenter func() *notify.Presenter
}

func newStateRegistry(idle time.Duration, newPresenter func() *notify.Presenter) *stateRegistry {
	return &stateRegistry{
		states:       make(map[string]*pageState),
		idle:         idle,
		now:          time.Now,
		newPresenter: newPresenter,
	}
}

// get returns the state for id, creating it on first use.
func (r *stateRegistry) get(id string) *pageState {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.states[id]
	if !ok {
		st = &pageState{
			presenter: r.newPresenter(),
			roster:    roster.NewList(),
		}
		r.states[id] = st
	}
	st.lastSeen = r.now()
	return st
}

// drop forgets a session's state, e.g. after logout.
func (r *stateRegistry) drop(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if st, ok := r.states[id]; ok {
		st.presenter.Dismiss()
		delete(r.states, id)
	}
}

// sweep removes state idle for longer than the idle timeout.
func (r *stateRegistry) sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-r.idle)
	removed := 0
	for id, st := range r.states {
		if st.lastSeen.Before(cutoff) {
			st.presenter.Dismiss()
			delete(r.states, id)
			removed++
		}
	}
	return removed
}

// list returns the admin student list.
func (st *pageState) list() *roster.List {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.roster
}

// resetAdmin discards the admin forms and list, e.g. when another admin
// signs in on the same browser.
func (st *pageState) resetAdmin() {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.create = nil
	st.edit = nil
	st.roster = roster.NewList()
}

func (r *stateRegistry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.states)
}

// sweeper is a scheduled cleanup, run immediately and then every interval
// until ctx is cancelled.
type sweeper func() int

func startSweeper(ctx context.Context, name string, interval time.Duration, jobs ...sweeper) {
	run := func() {
		for _, job := range jobs {
			if n := job(); n > 0 {
				slog.Debug("swept idle entries", "job", name, "removed", n)
			}
		}
	}
	run()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run()
		}
	}
}
