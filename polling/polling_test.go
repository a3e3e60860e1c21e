package polling

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"bitbucket.org/clinicops/backend/models"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

type waitReq struct {
	d  time.Duration
	ch chan time.Time
}

// fakeClock lets the tests drive the interval and budget deterministically.
// Every After call parks a request the test releases with fireNext.
type fakeClock struct {
	mu   sync.Mutex
	now  time.Time
	reqs chan waitReq
}

func newFakeClock() *fakeClock {
	return &fakeClock{
		now:  time.Unix(1700000000, 0),
		reqs: make(chan waitReq, 64),
	}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	c.reqs <- waitReq{d: d, ch: ch}
	return ch
}

// fireNext waits for the session to schedule its next check, moves the clock
// forward by the waited duration and releases the session.
func (c *fakeClock) fireNext(t *testing.T) {
	t.Helper()
	select {
	case req := <-c.reqs:
		c.advance(req.d)
		req.ch <- c.Now()
	case <-time.After(2 * time.Second):
		t.Fatal("no wait scheduled")
	}
}

func waitDone(t *testing.T, s *Session) {
	t.Helper()
	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("session did not finish")
	}
}

func TestNewSessionRequiresIdentifier(t *testing.T) {
	check := func(string, string) (models.PaymentStatus, error) {
		return models.PaymentStatusPending, nil
	}

	_, err := NewSession(Options{Check: check})
	require.Equal(t, ErrNoIdentifier, errors.Cause(err))

	_, err = NewSession(Options{PaymentID: "41", Check: check})
	require.NoError(t, err)

	_, err = NewSession(Options{PaymentContractID: "pl-41", Check: check})
	require.NoError(t, err)
}

func TestNewSessionDefaults(t *testing.T) {
	check := func(string, string) (models.PaymentStatus, error) {
		return models.PaymentStatusPending, nil
	}

	s, err := NewSession(Options{PaymentID: "41", Check: check})
	require.NoError(t, err)
	require.Equal(t, DefaultInterval, s.interval)
	require.Equal(t, DefaultBudget, s.budget)
	require.Equal(t, StateIdle, s.State())
	require.Equal(t, models.PaymentStatusPending, s.Status())
}

func TestSessionSucceedsOnCompleted(t *testing.T) {
	clock := newFakeClock()
	statuses := []models.PaymentStatus{
		models.PaymentStatusPending,
		models.PaymentStatusPending,
		models.PaymentStatusCompleted,
	}

	var calls int32
	check := func(paymentID, paymentContractID string) (models.PaymentStatus, error) {
		require.Equal(t, "41", paymentID)
		require.Equal(t, "pl-41", paymentContractID)
		n := atomic.AddInt32(&calls, 1)
		return statuses[n-1], nil
	}

	var successes, terminals int32
	s, err := NewSession(Options{
		PaymentID:         "41",
		PaymentContractID: "pl-41",
		Interval:          5 * time.Second,
		Budget:            120 * time.Second,
		Clock:             clock,
		Check:             check,
		OnSuccess:         func() { atomic.AddInt32(&successes, 1) },
		OnTerminal:        func(models.PaymentStatus) { atomic.AddInt32(&terminals, 1) },
	})
	require.NoError(t, err)

	s.Start()
	clock.fireNext(t)
	clock.fireNext(t)
	waitDone(t, s)

	require.Equal(t, StateSucceeded, s.State())
	require.Equal(t, models.PaymentStatusCompleted, s.Status())
	require.EqualValues(t, 3, atomic.LoadInt32(&calls))
	require.EqualValues(t, 1, atomic.LoadInt32(&successes))
	require.EqualValues(t, 0, atomic.LoadInt32(&terminals))

	// nothing is scheduled after the terminal status
	select {
	case <-clock.reqs:
		t.Fatal("check scheduled after terminal status")
	default:
	}
}

func TestSessionStopsOnFailedAndCancelled(t *testing.T) {
	for _, status := range []models.PaymentStatus{
		models.PaymentStatusFailed,
		models.PaymentStatusCancelled,
	} {
		t.Run(string(status), func(t *testing.T) {
			clock := newFakeClock()
			check := func(string, string) (models.PaymentStatus, error) {
				return status, nil
			}

			var successes, terminals int32
			var observed models.PaymentStatus
			s, err := NewSession(Options{
				PaymentID: "41",
				Clock:     clock,
				Check:     check,
				OnSuccess: func() { atomic.AddInt32(&successes, 1) },
				OnTerminal: func(got models.PaymentStatus) {
					observed = got
					atomic.AddInt32(&terminals, 1)
				},
			})
			require.NoError(t, err)

			s.Start()
			waitDone(t, s)

			require.Equal(t, StateStopped, s.State())
			require.Equal(t, status, s.Status())
			require.EqualValues(t, 0, atomic.LoadInt32(&successes))
			require.EqualValues(t, 1, atomic.LoadInt32(&terminals))
			require.Equal(t, status, observed)
		})
	}
}

func TestSessionStopsOnExhaustedBudget(t *testing.T) {
	clock := newFakeClock()

	var calls int32
	check := func(string, string) (models.PaymentStatus, error) {
		atomic.AddInt32(&calls, 1)
		return models.PaymentStatusPending, nil
	}

	var successes, terminals int32
	s, err := NewSession(Options{
		PaymentID:  "41",
		Interval:   40 * time.Second,
		Budget:     120 * time.Second,
		Clock:      clock,
		Check:      check,
		OnSuccess:  func() { atomic.AddInt32(&successes, 1) },
		OnTerminal: func(models.PaymentStatus) { atomic.AddInt32(&terminals, 1) },
	})
	require.NoError(t, err)

	s.Start()
	// checks land at 0s, 40s, 80s and 120s; the last one exhausts the budget
	clock.fireNext(t)
	clock.fireNext(t)
	clock.fireNext(t)
	waitDone(t, s)

	require.Equal(t, StateStopped, s.State())
	require.Equal(t, models.PaymentStatusPending, s.Status())
	require.EqualValues(t, 4, atomic.LoadInt32(&calls))
	require.EqualValues(t, 0, atomic.LoadInt32(&successes))
	// budget exhaustion is not a terminal observation
	require.EqualValues(t, 0, atomic.LoadInt32(&terminals))
}

func TestSessionAbsorbsCheckErrors(t *testing.T) {
	clock := newFakeClock()
	checkErr := errors.New("provider down")

	// three failing checks carry the clock far past the budget; without a
	// single data point the session must keep going
	var calls int32
	check := func(string, string) (models.PaymentStatus, error) {
		n := atomic.AddInt32(&calls, 1)
		if n <= 3 {
			return "", checkErr
		}
		return models.PaymentStatusPending, nil
	}

	s, err := NewSession(Options{
		PaymentID: "41",
		Interval:  60 * time.Second,
		Budget:    120 * time.Second,
		Clock:     clock,
		Check:     check,
	})
	require.NoError(t, err)

	s.Start()
	clock.fireNext(t)
	clock.fireNext(t)
	require.Equal(t, StatePolling, s.State())
	require.Equal(t, checkErr, errors.Cause(s.Err()))
	require.Equal(t, models.PaymentStatusPending, s.Status())

	// the fourth check is the first data point, observed at 180s
	clock.fireNext(t)
	waitDone(t, s)

	require.Equal(t, StateStopped, s.State())
	require.Equal(t, models.PaymentStatusPending, s.Status())
	require.NoError(t, s.Err())
	require.EqualValues(t, 4, atomic.LoadInt32(&calls))
}

func TestSessionStopDiscardsLateResult(t *testing.T) {
	clock := newFakeClock()
	gate := make(chan struct{})

	check := func(string, string) (models.PaymentStatus, error) {
		<-gate
		return models.PaymentStatusCompleted, nil
	}

	var successes, terminals int32
	s, err := NewSession(Options{
		PaymentID:  "41",
		Clock:      clock,
		Check:      check,
		OnSuccess:  func() { atomic.AddInt32(&successes, 1) },
		OnTerminal: func(models.PaymentStatus) { atomic.AddInt32(&terminals, 1) },
	})
	require.NoError(t, err)

	s.Start()
	s.Stop()
	close(gate)
	waitDone(t, s)

	require.Equal(t, StateStopped, s.State())
	require.Equal(t, models.PaymentStatusPending, s.Status())
	require.EqualValues(t, 0, atomic.LoadInt32(&successes))
	require.EqualValues(t, 0, atomic.LoadInt32(&terminals))
}

func TestSessionChecksNeverOverlap(t *testing.T) {
	clock := newFakeClock()

	var inFlight, maxInFlight, calls int32
	check := func(string, string) (models.PaymentStatus, error) {
		n := atomic.AddInt32(&inFlight, 1)
		if max := atomic.LoadInt32(&maxInFlight); n > max {
			atomic.StoreInt32(&maxInFlight, n)
		}
		time.Sleep(time.Millisecond)
		atomic.AddInt32(&inFlight, -1)

		if atomic.AddInt32(&calls, 1) == 5 {
			return models.PaymentStatusCompleted, nil
		}
		return models.PaymentStatusPending, nil
	}

	s, err := NewSession(Options{
		PaymentID: "41",
		Interval:  5 * time.Second,
		Budget:    120 * time.Second,
		Clock:     clock,
		Check:     check,
	})
	require.NoError(t, err)

	s.Start()
	for i := 0; i < 4; i++ {
		clock.fireNext(t)
	}
	waitDone(t, s)

	require.EqualValues(t, 1, atomic.LoadInt32(&maxInFlight))
	require.EqualValues(t, 5, atomic.LoadInt32(&calls))
}
