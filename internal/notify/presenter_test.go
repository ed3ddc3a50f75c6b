package notify

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTimer struct {
	d       time.Duration
	f       func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

type fakeScheduler struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (s *fakeScheduler) after(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTimer{d: d, f: f}
	s.timers = append(s.timers, t)
	return t
}

func (s *fakeScheduler) last() *fakeTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timers[len(s.timers)-1]
}

func newTestPresenter(opts ...Option) (*Presenter, *fakeScheduler) {
	sched := &fakeScheduler{}
	now := func() time.Time { return time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC) }
	opts = append([]Option{WithScheduler(sched.after, now)}, opts...)
	return NewPresenter(opts...), sched
}

func TestPresenter_ShowAndAutoDismiss(t *testing.T) {
	p, sched := newTestPresenter()

	p.Show(Success, "Estudante cadastrado com sucesso!", "Matrícula Enviada!")

	n, ok := p.Active()
	require.True(t, ok)
	assert.Equal(t, Success, n.Kind)
	assert.Equal(t, "Matrícula Enviada!", n.DisplayTitle())
	assert.Equal(t, DefaultDuration, sched.last().d)

	sched.last().f()

	_, ok = p.Active()
	assert.False(t, ok)
}

func TestPresenter_ShowReplacesAndResetsTimer(t *testing.T) {
	p, sched := newTestPresenter(WithDuration(2 * time.Second))

	p.Show(Info, "primeira", "")
	first := sched.last()
	p.Show(Error, "segunda", "")
	second := sched.last()

	assert.True(t, first.stopped)
	assert.Equal(t, 2*time.Second, second.d)

	first.f()
	n, ok := p.Active()
	require.True(t, ok, "a superseded timer must not dismiss the new notification")
	assert.Equal(t, "segunda", n.Message)
	assert.Equal(t, "Erro!", n.DisplayTitle())

	second.f()
	_, ok = p.Active()
	assert.False(t, ok)
}

func TestPresenter_Dismiss(t *testing.T) {
	p, sched := newTestPresenter()

	p.Show(Warning, "atenção", "")
	p.Dismiss()

	_, ok := p.Active()
	assert.False(t, ok)
	assert.True(t, sched.last().stopped)
}

func TestKind_DefaultTitle(t *testing.T) {
	assert.Equal(t, "Sucesso!", Success.DefaultTitle())
	assert.Equal(t, "Erro!", Error.DefaultTitle())
	assert.Equal(t, "Atenção!", Warning.DefaultTitle())
	assert.Equal(t, "Informação!", Info.DefaultTitle())
}

func TestPresenter_RealTimer(t *testing.T) {
	p := NewPresenter(WithDuration(10 * time.Millisecond))
	p.Show(Info, "some", "")

	assert.Eventually(t, func() bool {
		_, ok := p.Active()
		return !ok
	}, time.Second, 5*time.Millisecond)
}

func TestPresenter_Remaining(t *testing.T) {
	sched := &fakeScheduler{}
	clock := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	p := NewPresenter(WithScheduler(sched.after, func() time.Time { return clock }))

	assert.Zero(t, p.Remaining())

	p.Show(Warning, "arquivo pequeno", "")
	assert.Equal(t, DefaultDuration, p.Remaining())

	clock = clock.Add(2 * time.Second)
	assert.Equal(t, 3*time.Second, p.Remaining())

	clock = clock.Add(time.Minute)
	assert.Zero(t, p.Remaining())
}
