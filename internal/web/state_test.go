package web

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/JonMunkholm/matricula/internal/notify"
)

func TestStateRegistry_SweepDropsIdle(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	reg := newStateRegistry(time.Hour, func() *notify.Presenter { return notify.NewPresenter() })
	reg.now = func() time.Time { return now }

	a := reg.get("a")
	assert.Same(t, a, reg.get("a"))
	reg.get("b")

	now = now.Add(45 * time.Minute)
	reg.get("b")

	now = now.Add(30 * time.Minute)
	assert.Equal(t, 1, reg.sweep())
	assert.Equal(t, 1, reg.len())
	assert.NotSame(t, a, reg.get("a"), "swept state starts over")
}

func TestStateRegistry_Drop(t *testing.T) {
	reg := newStateRegistry(time.Hour, func() *notify.Presenter { return notify.NewPresenter() })
	st := reg.get("a")
	st.presenter.Show(notify.Info, "olá", "")

	reg.drop("a")
	reg.drop("missing")

	assert.Equal(t, 0, reg.len())
	_, active := st.presenter.Active()
	assert.False(t, active)
}

func TestRateLimiter_FixedWindow(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	rl := newRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.allow("1.1.1.1"))
	assert.True(t, rl.allow("1.1.1.1"))
	assert.False(t, rl.allow("1.1.1.1"))
	assert.True(t, rl.allow("2.2.2.2"), "limits are per client")

	now = now.Add(61 * time.Second)
	assert.True(t, rl.allow("1.1.1.1"), "new window")

	now = now.Add(3 * time.Minute)
	assert.Equal(t, 2, rl.sweep())
}

func TestRateLimiter_ZeroRateDeniesAll(t *testing.T) {
	rl := newRateLimiter(0, time.Minute)
	assert.False(t, rl.allow("1.1.1.1"))
	assert.False(t, rl.allow("1.1.1.1"))
}

func TestStartSweeper_RunsUntilCancelled(t *testing.T) {
	var runs atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		startSweeper(ctx, "test", 5*time.Millisecond, func() int {
			runs.Add(1)
			return 0
		})
		close(done)
	}()

	assert.Eventually(t, func() bool { return runs.Load() >= 2 }, time.Second, time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
