// Package notify implements the single-slot, auto-dismissing notification
// shown to a user after form submissions and admin actions.
package notify

import (
	"sync"
	"time"
)

// Kind is the visual category of a notification.
type Kind string

const (
	Success Kind = "success"
	Error   Kind = "error"
	Warning Kind = "warning"
	Info    Kind = "info"
)

// DefaultTitle is used when a notification is shown without a title.
func (k Kind) DefaultTitle() string {
	switch k {
	case Success:
		return "Sucesso!"
	case Error:
		return "Erro!"
	case Warning:
		return "Atenção!"
	default:
		return "Informação!"
	}
}

// DefaultDuration is how long a notification stays visible.
const DefaultDuration = 5 * time.Second

// Notification is the message currently shown to the user.
type Notification struct {
	Kind    Kind
	Title   string
	Message string
	ShownAt time.Time
}

// DisplayTitle returns the title, falling back to the kind's default.
func (n Notification) DisplayTitle() string {
	if n.Title != "" {
		return n.Title
	}
	return n.Kind.DefaultTitle()
}

// Timer is the subset of *time.Timer the presenter needs.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d. time.AfterFunc satisfies it once wrapped.
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Presenter holds at most one active notification. Showing a new one replaces
// the current one and restarts the dismiss timer. Safe for concurrent use.
type Presenter struct {
	mu         sync.Mutex
	active     *Notification
	timer      Timer
	generation uint64

	duration  time.Duration
	afterFunc AfterFunc
	now       func() time.Time
}

// Option configures a Presenter.
type Option func(*Presenter)

// WithDuration overrides the auto-dismiss delay.
func WithDuration(d time.Duration) Option {
	return func(p *Presenter) {
		if d > 0 {
			p.duration = d
		}
	}
}

// WithScheduler replaces the timer source, for tests.
func WithScheduler(after AfterFunc, now func() time.Time) Option {
	return func(p *Presenter) {
		p.afterFunc = after
		p.now = now
	}
}

// NewPresenter returns an empty presenter.
func NewPresenter(opts ...Option) *Presenter {
	p := &Presenter{
		duration:  DefaultDuration,
		afterFunc: realAfterFunc,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Show replaces any visible notification and restarts the dismiss timer.
func (p *Presenter) Show(kind Kind, message, title string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopTimerLocked()
	p.generation++
	gen := p.generation
	p.active = &Notification{
		Kind:    kind,
		Title:   title,
		Message: message,
		ShownAt: p.now(),
	}
	p.timer = p.afterFunc(p.duration, func() { p.expire(gen) })
}

// Dismiss hides the active notification, if any.
func (p *Presenter) Dismiss() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopTimerLocked()
	p.generation++
	p.active = nil
}

// Active returns the visible notification.
func (p *Presenter) Active() (Notification, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.active == nil {
		return Notification{}, false
	}
	return *p.active, true
}

// Remaining is how long the active notification stays visible.
func (p *Presenter) Remaining() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.active == nil {
		return 0
	}
	return max(p.duration-p.now().Sub(p.active.ShownAt), 0)
}

// expire runs from the timer. A timer that fired after being superseded is ignored.
func (p *Presenter) expire(gen uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if gen != p.generation {
		return
	}
	p.active = nil
	p.timer = nil
}

func (p *Presenter) stopTimerLocked() {
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}
