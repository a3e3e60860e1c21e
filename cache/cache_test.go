package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStorePutGet(t *testing.T) {
	s := New(time.Minute)

	_, ok := s.Get(PatientPaymentList, "41")
	require.False(t, ok)

	s.Put(PatientPaymentList, "41", "payments-41")
	s.Put(PatientPaymentList, "42", "payments-42")

	value, ok := s.Get(PatientPaymentList, "41")
	require.True(t, ok)
	require.Equal(t, "payments-41", value)

	_, ok = s.Get(PatientPaymentList, "43")
	require.False(t, ok)

	require.Equal(t, 2, s.Len(PatientPaymentList))
}

func TestStoreInvalidateDropsWholeKey(t *testing.T) {
	s := New(time.Minute)

	s.Put(UnpaidServiceByPatientID, "41", "a")
	s.Put(UnpaidServiceByPatientID, "42", "b")
	s.Put(TransactionHistoryList, "", "history")

	s.Invalidate(UnpaidServiceByPatientID)

	require.Equal(t, 0, s.Len(UnpaidServiceByPatientID))

	// other keys are untouched
	value, ok := s.Get(TransactionHistoryList, "")
	require.True(t, ok)
	require.Equal(t, "history", value)
}

func TestStoreInvalidateIsIdempotent(t *testing.T) {
	s := New(time.Minute)

	s.Put(WaitingPatientVaccinationList, "", "waiting")

	s.Invalidate(WaitingPatientVaccinationList)
	s.Invalidate(WaitingPatientVaccinationList)
	s.Invalidate(Key("UNKNOWN_KEY"))

	require.Equal(t, 0, s.Len(WaitingPatientVaccinationList))
}

func TestStoreInvalidateSettlementKeys(t *testing.T) {
	s := New(time.Minute)

	for _, key := range SettlementKeys {
		s.Put(key, "41", "stale")
	}
	s.Put(TransactionHistoryList, "", "history")

	s.Invalidate(SettlementKeys...)

	for _, key := range SettlementKeys {
		require.Equal(t, 0, s.Len(key), string(key))
	}

	// the transaction history has its own invalidation moment
	_, ok := s.Get(TransactionHistoryList, "")
	require.True(t, ok)
}

func TestStoreTTLExpiry(t *testing.T) {
	s := New(time.Minute)

	base := time.Unix(1700000000, 0)
	s.now = func() time.Time { return base }

	s.Put(PatientsForExamination, "", "fresh")

	s.now = func() time.Time { return base.Add(30 * time.Second) }
	_, ok := s.Get(PatientsForExamination, "")
	require.True(t, ok)

	s.now = func() time.Time { return base.Add(time.Minute) }
	_, ok = s.Get(PatientsForExamination, "")
	require.False(t, ok)
}
