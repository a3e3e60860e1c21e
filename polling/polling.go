package polling

import (
	"sync"
	"time"

	"bitbucket.org/clinicops/backend/models"
	"github.com/pkg/errors"
)

const (
	DefaultInterval = 5 * time.Second
	DefaultBudget   = 120 * time.Second
)

var ErrNoIdentifier = errors.New("polling: payment id and payment contract id are both empty")

type State string

const (
	StateIdle      State = "IDLE"
	StatePolling   State = "POLLING"
	StateSucceeded State = "SUCCEEDED"
	StateStopped   State = "STOPPED"
)

// CheckFunc performs one status request for the payment identified by at
// least one of the two identifiers.
type CheckFunc func(paymentID, paymentContractID string) (models.PaymentStatus, error)

// Clock is the time source of a session. Tests inject a fake to drive the
// interval and budget deterministically.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

type Options struct {
	PaymentID         string
	PaymentContractID string

	// Interval between status checks and the hard ceiling on how long the
	// session keeps checking. Zero values fall back to the defaults: the
	// interval bounds backend load from a cashier-facing client, the budget
	// bounds how long a teller workstation waits before the operator has to
	// re-initiate the payment.
	Interval time.Duration
	Budget   time.Duration

	Clock Clock
	Check CheckFunc

	// OnSuccess fires exactly once, after a check observes COMPLETED.
	OnSuccess func()

	// OnTerminal fires exactly once, after a check observes FAILED or
	// CANCELLED. It does not fire on budget exhaustion or Stop, where no
	// terminal status was ever observed.
	OnTerminal func(models.PaymentStatus)
}

// Session polls the status of one payment until it observes a terminal
// status, exhausts its budget, or is stopped. Checks are strictly sequential:
// the next one is only scheduled once the previous result is known.
type Session struct {
	paymentID         string
	paymentContractID string
	interval          time.Duration
	budget            time.Duration
	clock             Clock
	check             CheckFunc
	onSuccess         func()
	onTerminal        func(models.PaymentStatus)

	mu       sync.Mutex
	state    State
	last     models.PaymentStatus
	lastErr  error
	observed bool
	start    time.Time

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func NewSession(opts Options) (*Session, error) {
	if opts.PaymentID == "" && opts.PaymentContractID == "" {
		return nil, ErrNoIdentifier
	}

	if opts.Check == nil {
		return nil, errors.New("polling: check func is required")
	}

	s := &Session{
		paymentID:         opts.PaymentID,
		paymentContractID: opts.PaymentContractID,
		interval:          opts.Interval,
		budget:            opts.Budget,
		clock:             opts.Clock,
		check:             opts.Check,
		onSuccess:         opts.OnSuccess,
		onTerminal:        opts.OnTerminal,
		state:             StateIdle,
		last:              models.PaymentStatusPending,
		stop:              make(chan struct{}),
		done:              make(chan struct{}),
	}

	if s.interval <= 0 {
		s.interval = DefaultInterval
	}
	if s.budget <= 0 {
		s.budget = DefaultBudget
	}
	if s.clock == nil {
		s.clock = realClock{}
	}

	return s, nil
}

func (s *Session) PaymentID() string         { return s.paymentID }
func (s *Session) PaymentContractID() string { return s.paymentContractID }

// Start records the session start time and launches the polling loop. The
// start time is set once per session; a new identifier pair means a new
// session and therefore a fresh budget.
func (s *Session) Start() {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return
	}
	s.state = StatePolling
	s.start = s.clock.Now()
	s.mu.Unlock()

	go s.run()
}

// Stop cancels the session. A check already in flight finishes but its result
// is discarded; the success callback never fires after Stop.
func (s *Session) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// Done is closed once the loop has exited.
func (s *Session) Done() <-chan struct{} { return s.done }

// Status returns the last observed payment status. It defaults to PENDING
// while nothing has been observed, so callers always have a value to render.
func (s *Session) Status() models.PaymentStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the error of the most recent check, nil after any successful
// check. Check errors never end the session on their own; they are treated
// as "not yet completed" until the budget runs out.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func (s *Session) run() {
	defer close(s.done)

	for {
		status, err := s.check(s.paymentID, s.paymentContractID)

		// The session may have been replaced while the check was in
		// flight. A late result must not update a session that has been
		// stopped.
		select {
		case <-s.stop:
			s.finish(StateStopped)
			return
		default:
		}

		s.mu.Lock()
		if err != nil {
			s.lastErr = err
		} else {
			s.lastErr = nil
			s.last = status
			s.observed = true
		}

		if err == nil && status == models.PaymentStatusCompleted {
			s.state = StateSucceeded
			onSuccess := s.onSuccess
			s.mu.Unlock()
			if onSuccess != nil {
				onSuccess()
			}
			return
		}

		if err == nil && status.Terminal() {
			s.state = StateStopped
			onTerminal := s.onTerminal
			s.mu.Unlock()
			if onTerminal != nil {
				onTerminal(status)
			}
			return
		}

		// The budget only applies once at least one status has come back.
		// Without a data point the next check is scheduled unconditionally.
		if s.observed && s.clock.Now().Sub(s.start) >= s.budget {
			s.mu.Unlock()
			s.finish(StateStopped)
			return
		}
		s.mu.Unlock()

		select {
		case <-s.clock.After(s.interval):
		case <-s.stop:
			s.finish(StateStopped)
			return
		}
	}
}

func (s *Session) finish(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}
