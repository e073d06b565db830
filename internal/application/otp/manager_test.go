package otp

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/contactbook-api/internal/config"
	"github.com/contactbook-api/internal/domain"
	"github.com/contactbook-api/internal/pkg/hash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore is an in-memory Store with the same atomicity semantics as the
// DynamoDB implementation: Issue does a compare-and-set on the state item,
// MarkFailed conditions on the observed counter, Consume on used = false.
type fakeStore struct {
	states  map[string]*domain.OtpIssueState
	records map[string]*domain.OtpRecord

	issueErr   error // injected failure for Issue
	consumeErr error // injected failure for Consume
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		states:  make(map[string]*domain.OtpIssueState),
		records: make(map[string]*domain.OtpRecord),
	}
}

func pairKey(userID string, purpose domain.OtpPurpose) string {
	return userID + "|" + string(purpose)
}

func recKey(userID string, purpose domain.OtpPurpose, otpID string) string {
	return userID + "|" + string(purpose) + "|" + otpID
}

func (f *fakeStore) GetState(_ context.Context, userID string, purpose domain.OtpPurpose) (*domain.OtpIssueState, error) {
	if st, ok := f.states[pairKey(userID, purpose)]; ok {
		cp := *st
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeStore) GetRecord(_ context.Context, userID string, purpose domain.OtpPurpose, otpID string) (*domain.OtpRecord, error) {
	if rec, ok := f.records[recKey(userID, purpose, otpID)]; ok {
		cp := *rec
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeStore) Issue(_ context.Context, rec *domain.OtpRecord, prev, next *domain.OtpIssueState) error {
	if f.issueErr != nil {
		return f.issueErr
	}
	key := pairKey(rec.UserID, rec.Purpose)
	stored := f.states[key]
	if prev == nil {
		if stored != nil {
			return fmt.Errorf("state appeared: %w", domain.ErrConflict)
		}
	} else {
		if stored == nil || stored.Issued != prev.Issued || stored.ActiveOtpID != prev.ActiveOtpID {
			return fmt.Errorf("state moved: %w", domain.ErrConflict)
		}
		delete(f.records, recKey(rec.UserID, rec.Purpose, prev.ActiveOtpID))
	}
	stCp := *next
	recCp := *rec
	f.states[key] = &stCp
	f.records[recKey(rec.UserID, rec.Purpose, rec.OtpID)] = &recCp
	return nil
}

func (f *fakeStore) MarkFailed(_ context.Context, rec *domain.OtpRecord, attempts int, lockoutUntil *time.Time) error {
	stored, ok := f.records[recKey(rec.UserID, rec.Purpose, rec.OtpID)]
	if !ok || stored.Used || stored.FailedAttempts != rec.FailedAttempts {
		return fmt.Errorf("attempt raced: %w", domain.ErrConflict)
	}
	stored.FailedAttempts = attempts
	if lockoutUntil != nil {
		stored.LockoutUntil = lockoutUntil
	}
	return nil
}

func (f *fakeStore) Consume(_ context.Context, rec *domain.OtpRecord) error {
	if f.consumeErr != nil {
		return f.consumeErr
	}
	stored, ok := f.records[recKey(rec.UserID, rec.Purpose, rec.OtpID)]
	if !ok || stored.Used {
		return fmt.Errorf("already consumed: %w", domain.ErrConflict)
	}
	stored.Used = true
	stored.FailedAttempts = 0
	stored.LockoutUntil = nil
	return nil
}

// unusedCount counts unused records stored for the pair.
func (f *fakeStore) unusedCount(userID string, purpose domain.OtpPurpose) int {
	n := 0
	for _, rec := range f.records {
		if rec.UserID == userID && rec.Purpose == purpose && !rec.Used {
			n++
		}
	}
	return n
}

func testConfig() config.OTPConfig {
	return config.OTPConfig{
		Expiry:     10 * time.Minute,
		CodeLength: 6,
		Limit:      5,
		Lockout:    10 * time.Minute,
	}
}

func newTestManager() (*Manager, *fakeStore) {
	store := newFakeStore()
	return NewManager(store, testConfig()), store
}

// --- Generate ---

func TestGenerate_ReturnsNumericCodeOfConfiguredLength(t *testing.T) {
	m, _ := newTestManager()

	code, err := m.Generate(context.Background(), "u1", domain.OtpPurposeSignup)
	require.NoError(t, err)
	assert.Len(t, code, 6)
	for _, c := range code {
		assert.True(t, c >= '0' && c <= '9')
	}
}

func TestGenerate_PlaintextNeverStored(t *testing.T) {
	m, store := newTestManager()

	code, err := m.Generate(context.Background(), "u1", domain.OtpPurposeSignup)
	require.NoError(t, err)

	for _, rec := range store.records {
		assert.NotEqual(t, code, rec.CodeHash)
		assert.True(t, hash.Verify(code, rec.CodeHash))
	}
}

func TestGenerate_SingleActiveRecordInvariant(t *testing.T) {
	m, store := newTestManager()

	for i := 0; i < 3; i++ {
		_, err := m.Generate(context.Background(), "u1", domain.OtpPurposeSignup)
		require.NoError(t, err)
		assert.Equal(t, 1, store.unusedCount("u1", domain.OtpPurposeSignup))
	}
}

func TestGenerate_RateLimitOnSixthCall(t *testing.T) {
	m, store := newTestManager()

	for i := 0; i < 5; i++ {
		_, err := m.Generate(context.Background(), "u1", domain.OtpPurposeSignup)
		require.NoError(t, err, "call %d", i+1)
	}
	recordsBefore := len(store.records)

	_, err := m.Generate(context.Background(), "u1", domain.OtpPurposeSignup)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrRateLimited))
	assert.Equal(t, recordsBefore, len(store.records), "rejected call must create no record")
}

func TestGenerate_RateLimitIsPerPair(t *testing.T) {
	m, _ := newTestManager()

	for i := 0; i < 5; i++ {
		_, err := m.Generate(context.Background(), "u1", domain.OtpPurposeSignup)
		require.NoError(t, err)
	}

	// Other purpose and other user remain unaffected.
	_, err := m.Generate(context.Background(), "u1", domain.OtpPurposeResetPassword)
	require.NoError(t, err)
	_, err = m.Generate(context.Background(), "u2", domain.OtpPurposeSignup)
	require.NoError(t, err)
}

func TestGenerate_WindowRolloverResetsCount(t *testing.T) {
	m, store := newTestManager()

	old := time.Now().UTC().Add(-11 * time.Minute)
	store.states[pairKey("u1", domain.OtpPurposeSignup)] = &domain.OtpIssueState{
		UserID:      "u1",
		Purpose:     domain.OtpPurposeSignup,
		ActiveOtpID: "stale",
		WindowStart: old,
		Issued:      5,
		ExpiresAt:   old.Add(20 * time.Minute).Unix(),
	}

	_, err := m.Generate(context.Background(), "u1", domain.OtpPurposeSignup)
	require.NoError(t, err)
	assert.Equal(t, 1, store.states[pairKey("u1", domain.OtpPurposeSignup)].Issued)
}

func TestGenerate_StoreFailurePropagates(t *testing.T) {
	m, store := newTestManager()
	store.issueErr = errors.New("dynamo down")

	_, err := m.Generate(context.Background(), "u1", domain.OtpPurposeSignup)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dynamo down")
}

// --- Verify ---

func TestVerify_NoRecord(t *testing.T) {
	m, _ := newTestManager()

	res, err := m.Verify(context.Background(), "u1", domain.OtpPurposeSignup, "123456")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, 0, res.AttemptsLeft)
	assert.Equal(t, "Expired or invalid OTP", res.Message)
}

func TestVerify_CorrectCodeSucceedsExactlyOnce(t *testing.T) {
	m, _ := newTestManager()

	code, err := m.Generate(context.Background(), "u1", domain.OtpPurposeSignup)
	require.NoError(t, err)

	res, err := m.Verify(context.Background(), "u1", domain.OtpPurposeSignup, code)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 5, res.AttemptsLeft)
	assert.Nil(t, res.LockoutUntil)

	// The record is consumed; the same code must not verify twice.
	res, err = m.Verify(context.Background(), "u1", domain.OtpPurposeSignup, code)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "Expired or invalid OTP", res.Message)
}

func TestVerify_WrongCodeDecrementsAttempts(t *testing.T) {
	m, _ := newTestManager()

	code, err := m.Generate(context.Background(), "u1", domain.OtpPurposeSignup)
	require.NoError(t, err)

	res, err := m.Verify(context.Background(), "u1", domain.OtpPurposeSignup, "000000")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, 4, res.AttemptsLeft)
	assert.Nil(t, res.LockoutUntil)

	// The correct code still works afterwards and resets the counters.
	res, err = m.Verify(context.Background(), "u1", domain.OtpPurposeSignup, code)
	require.NoError(t, err)
	assert.True(t, res.Success)
}

func TestVerify_LockoutAfterFiveFailures(t *testing.T) {
	m, store := newTestManager()

	code, err := m.Generate(context.Background(), "u1", domain.OtpPurposeSignup)
	require.NoError(t, err)

	var res Result
	for i := 0; i < 5; i++ {
		res, err = m.Verify(context.Background(), "u1", domain.OtpPurposeSignup, "000000")
		require.NoError(t, err)
		assert.False(t, res.Success)
	}
	assert.Equal(t, 0, res.AttemptsLeft)
	require.NotNil(t, res.LockoutUntil)
	assert.WithinDuration(t, time.Now().UTC().Add(10*time.Minute), *res.LockoutUntil, 5*time.Second)

	st := store.states[pairKey("u1", domain.OtpPurposeSignup)]
	attemptsBefore := store.records[recKey("u1", domain.OtpPurposeSignup, st.ActiveOtpID)].FailedAttempts

	// While locked, even the correct code is rejected and no attempt is consumed.
	res, err = m.Verify(context.Background(), "u1", domain.OtpPurposeSignup, code)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.NotNil(t, res.LockoutUntil)
	assert.Equal(t, attemptsBefore,
		store.records[recKey("u1", domain.OtpPurposeSignup, st.ActiveOtpID)].FailedAttempts)
}

func TestVerify_ExpiredRecord(t *testing.T) {
	m, store := newTestManager()

	now := time.Now().UTC()
	store.states[pairKey("u1", domain.OtpPurposeSignup)] = &domain.OtpIssueState{
		UserID:      "u1",
		Purpose:     domain.OtpPurposeSignup,
		ActiveOtpID: "o1",
		WindowStart: now.Add(-15 * time.Minute),
		Issued:      1,
		ExpiresAt:   now.Add(5 * time.Minute).Unix(),
	}
	codeHash, err := hash.Secret("123456")
	require.NoError(t, err)
	store.records[recKey("u1", domain.OtpPurposeSignup, "o1")] = &domain.OtpRecord{
		UserID:    "u1",
		OtpID:     "o1",
		Purpose:   domain.OtpPurposeSignup,
		CodeHash:  codeHash,
		CreatedAt: now.Add(-15 * time.Minute),
		ExpiresAt: now.Add(-5 * time.Minute).Unix(),
	}

	res, err := m.Verify(context.Background(), "u1", domain.OtpPurposeSignup, "123456")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "Expired or invalid OTP", res.Message)
}

func TestVerify_PurposesDoNotCrossValidate(t *testing.T) {
	m, _ := newTestManager()

	code, err := m.Generate(context.Background(), "u1", domain.OtpPurposeSignup)
	require.NoError(t, err)

	res, err := m.Verify(context.Background(), "u1", domain.OtpPurposeResetPassword, code)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "Expired or invalid OTP", res.Message)
}

func TestVerify_ConsumeRaceLoserSeesSpentCode(t *testing.T) {
	m, store := newTestManager()

	code, err := m.Generate(context.Background(), "u1", domain.OtpPurposeSignup)
	require.NoError(t, err)
	store.consumeErr = fmt.Errorf("condition failed: %w", domain.ErrConflict)

	res, err := m.Verify(context.Background(), "u1", domain.OtpPurposeSignup, code)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "Expired or invalid OTP", res.Message)
}

func TestVerify_FullScenario(t *testing.T) {
	m, _ := newTestManager()
	ctx := context.Background()

	code, err := m.Generate(ctx, "userA", domain.OtpPurposeSignup)
	require.NoError(t, err)
	require.Len(t, code, 6)

	res, err := m.Verify(ctx, "userA", domain.OtpPurposeSignup, "999999")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, 4, res.AttemptsLeft)

	res, err = m.Verify(ctx, "userA", domain.OtpPurposeSignup, code)
	require.NoError(t, err)
	assert.True(t, res.Success)

	res, err = m.Verify(ctx, "userA", domain.OtpPurposeSignup, code)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "Expired or invalid OTP", res.Message)
}
