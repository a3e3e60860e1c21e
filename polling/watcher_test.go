package polling

import (
	"sync/atomic"
	"testing"
	"time"

	"bitbucket.org/clinicops/backend/models"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestWatcherOneSessionPerPair(t *testing.T) {
	clock := newFakeClock()
	check := func(string, string) (models.PaymentStatus, error) {
		return models.PaymentStatusPending, nil
	}

	w := NewWatcher(WatcherOpts{
		Interval: 5 * time.Second,
		Budget:   120 * time.Second,
		Clock:    clock,
		Check:    check,
	})
	defer w.StopAll()

	first, err := w.Watch("41", "pl-41", nil, nil)
	require.NoError(t, err)

	same, err := w.Watch("41", "pl-41", nil, nil)
	require.NoError(t, err)
	require.Same(t, first, same)

	other, err := w.Watch("42", "pl-42", nil, nil)
	require.NoError(t, err)
	require.NotSame(t, first, other)

	require.Same(t, first, w.Session("41", "pl-41"))
	require.Same(t, other, w.Session("42", "pl-42"))
}

func TestWatcherRejectsEmptyPair(t *testing.T) {
	w := NewWatcher(WatcherOpts{
		Clock: newFakeClock(),
		Check: func(string, string) (models.PaymentStatus, error) {
			return models.PaymentStatusPending, nil
		},
	})

	_, err := w.Watch("", "", nil, nil)
	require.Equal(t, ErrNoIdentifier, errors.Cause(err))
}

func TestWatcherNewSessionGetsFreshBudget(t *testing.T) {
	clock := newFakeClock()

	var calls int32
	check := func(string, string) (models.PaymentStatus, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return models.PaymentStatusCompleted, nil
		}
		return models.PaymentStatusPending, nil
	}

	w := NewWatcher(WatcherOpts{
		Interval: 5 * time.Second,
		Budget:   120 * time.Second,
		Clock:    clock,
		Check:    check,
	})
	defer w.StopAll()

	first, err := w.Watch("41", "pl-41", nil, nil)
	require.NoError(t, err)
	waitDone(t, first)
	require.Equal(t, StateSucceeded, first.State())

	// far past the budget of the finished session
	clock.advance(time.Hour)

	second, err := w.Watch("41", "pl-41", nil, nil)
	require.NoError(t, err)
	require.NotSame(t, first, second)

	// the new session has its own start time, so it keeps polling
	clock.fireNext(t)
	require.Equal(t, StatePolling, second.State())

	second.Stop()
	waitDone(t, second)
}

func TestWatcherStopCancelsSession(t *testing.T) {
	clock := newFakeClock()
	check := func(string, string) (models.PaymentStatus, error) {
		return models.PaymentStatusPending, nil
	}

	w := NewWatcher(WatcherOpts{
		Interval: 5 * time.Second,
		Budget:   120 * time.Second,
		Clock:    clock,
		Check:    check,
	})

	session, err := w.Watch("41", "pl-41", nil, nil)
	require.NoError(t, err)

	w.Stop("41", "pl-41")
	waitDone(t, session)
	require.Equal(t, StateStopped, session.State())
}
