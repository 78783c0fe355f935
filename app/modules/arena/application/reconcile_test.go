package arenaservice

import (
	"context"
	"errors"
	"testing"
	"time"

	arenadomain "github.com/Black-And-White-Club/arena-engine/app/modules/arena/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcileSchedules(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	s := h.seed(t)

	live := h.openEvent(t, s)
	done := h.openEvent(t, s)
	_, err := h.svc.ApplyTransition(ctx, s.arena, done, arenadomain.TransitionAbort, "rain")
	require.NoError(t, err)
	interval := time.Hour
	ref := h.clock.Now()
	_, err = h.svc.ConfigureAutoSchedule(ctx, s.arena, s.etype, &interval, &ref)
	require.NoError(t, err)

	fresh := NewFakeScheduler()
	h.svc.UseScheduler(fresh)
	require.NoError(t, h.svc.ReconcileSchedules(ctx))

	assert.Equal(t, []arenadomain.EventID{live}, fresh.Events())
	assert.Equal(t, []arenadomain.EventTypeID{s.etype}, fresh.Types())
}

func TestReconcileSchedules_ReportsSchedulerFailures(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	s := h.seed(t)
	h.openEvent(t, s)

	broken := NewFakeScheduler()
	broken.err = errors.New("queue unavailable")
	h.svc.UseScheduler(broken)

	err := h.svc.ReconcileSchedules(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "queue unavailable")
	assert.Len(t, broken.Events(), 1)
}

func TestReconcileSchedules_NoScheduler(t *testing.T) {
	h := newHarness(t)
	h.svc.UseScheduler(nil)
	assert.NoError(t, h.svc.ReconcileSchedules(context.Background()))
}
