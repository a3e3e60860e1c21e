package polling

import (
	"sync"
	"time"

	"bitbucket.org/clinicops/backend/models"
)

// Watcher owns the active sessions. It guarantees at most one active session
// per (payment id, payment contract id) pair; watching a new pair leaves other
// pairs untouched, sessions are fully independent of each other.
type Watcher struct {
	interval time.Duration
	budget   time.Duration
	clock    Clock
	check    CheckFunc

	mu       sync.Mutex
	sessions map[string]*Session
}

type WatcherOpts struct {
	Interval time.Duration
	Budget   time.Duration
	Clock    Clock
	Check    CheckFunc
}

func NewWatcher(opts WatcherOpts) *Watcher {
	return &Watcher{
		interval: opts.Interval,
		budget:   opts.Budget,
		clock:    opts.Clock,
		check:    opts.Check,
		sessions: make(map[string]*Session),
	}
}

func sessionKey(paymentID, paymentContractID string) string {
	return paymentID + "|" + paymentContractID
}

// Watch starts a session for the identifier pair, or returns the one already
// running for it. A fresh session always records its own start time, so a
// pair never inherits the budget of a previous one. onSuccess runs after a
// COMPLETED observation, onTerminal after FAILED or CANCELLED.
func (w *Watcher) Watch(paymentID, paymentContractID string, onSuccess func(), onTerminal func(models.PaymentStatus)) (*Session, error) {
	key := sessionKey(paymentID, paymentContractID)

	w.mu.Lock()
	defer w.mu.Unlock()

	if existing, ok := w.sessions[key]; ok {
		select {
		case <-existing.Done():
			delete(w.sessions, key)
		default:
			return existing, nil
		}
	}

	session, err := NewSession(Options{
		PaymentID:         paymentID,
		PaymentContractID: paymentContractID,
		Interval:          w.interval,
		Budget:            w.budget,
		Clock:             w.clock,
		Check:             w.check,
		OnSuccess:         onSuccess,
		OnTerminal:        onTerminal,
	})
	if err != nil {
		return nil, err
	}

	w.sessions[key] = session
	session.Start()

	go func() {
		<-session.Done()
		w.mu.Lock()
		if w.sessions[key] == session {
			delete(w.sessions, key)
		}
		w.mu.Unlock()
	}()

	return session, nil
}

// Session returns the active session for the pair, if any.
func (w *Watcher) Session(paymentID, paymentContractID string) *Session {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.sessions[sessionKey(paymentID, paymentContractID)]
}

// Stop cancels the active session for the pair, if any.
func (w *Watcher) Stop(paymentID, paymentContractID string) {
	w.mu.Lock()
	session := w.sessions[sessionKey(paymentID, paymentContractID)]
	w.mu.Unlock()

	if session != nil {
		session.Stop()
	}
}

// StopAll cancels every active session. Used on shutdown.
func (w *Watcher) StopAll() {
	w.mu.Lock()
	sessions := make([]*Session, 0, len(w.sessions))
	for _, session := range w.sessions {
		sessions = append(sessions, session)
	}
	w.mu.Unlock()

	for _, session := range sessions {
		session.Stop()
	}
}
