package cache

import (
	"sync"
	"time"
)

// Key is the logical name of a cached list query. Every consumer of a list
// endpoint reads through one of these keys; invalidating the key forces the
// next read to hit storage again.
type Key string

const (
	PatientPaymentList                Key = "PATIENT_PAYMENT_LIST"
	UnpaidServiceByPatientID          Key = "UNPAID_SERVICE_BY_PATIENT_ID"
	TransactionHistoryList            Key = "TRANSACTION_HISTORY_LIST"
	WaitingPatientVaccinationList     Key = "WAITING_PATIENT_VACCINATION_LIST"
	MedicineVaccinationByReceptionID  Key = "MEDICINE_VACCINATION_LIST_BY_RECEPTION_ID"
	PatientsForExamination            Key = "PATIENTS_FOR_EXAMINATION"
	ExaminationOfReceptionByReception Key = "EXAMINATION_OF_RECEPTION_BY_RECEPTION_ID"
)

// SettlementKeys is the set of keys a settled payment makes stale. A completed
// payment may immediately unblock downstream clinical workflows, so the
// waiting and examination lists are dropped together with the payment lists.
var SettlementKeys = []Key{
	PatientPaymentList,
	UnpaidServiceByPatientID,
	WaitingPatientVaccinationList,
	MedicineVaccinationByReceptionID,
	PatientsForExamination,
	ExaminationOfReceptionByReception,
}

type entry struct {
	value  interface{}
	stored time.Time
}

// Store is an in-process query cache. Entries live under (key, argument)
// pairs; Invalidate drops every entry under a key. Invalidation is idempotent
// and commutative, so concurrent sessions settling overlapping payments need
// no coordination.
type Store struct {
	mu      sync.RWMutex
	entries map[Key]map[string]entry
	ttl     time.Duration
	now     func() time.Time
}

func New(ttl time.Duration) *Store {
	return &Store{
		entries: make(map[Key]map[string]entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (s *Store) Get(key Key, arg string) (interface{}, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bucket, ok := s.entries[key]
	if !ok {
		return nil, false
	}

	e, ok := bucket[arg]
	if !ok {
		return nil, false
	}

	if s.ttl > 0 && s.now().Sub(e.stored) >= s.ttl {
		return nil, false
	}

	return e.value, true
}

func (s *Store) Put(key Key, arg string, value interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bucket, ok := s.entries[key]
	if !ok {
		bucket = make(map[string]entry)
		s.entries[key] = bucket
	}

	bucket[arg] = entry{value: value, stored: s.now()}
}

// Invalidate drops all entries stored under the given keys. Keys without
// entries are skipped; invalidating twice is the same as invalidating once.
func (s *Store) Invalidate(keys ...Key) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range keys {
		delete(s.entries, key)
	}
}

// Len reports the number of live entries under a key.
func (s *Store) Len(key Key) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.entries[key])
}
