package otp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/contactbook-api/internal/config"
	"github.com/contactbook-api/internal/domain"
	"github.com/contactbook-api/internal/pkg/hash"
	"github.com/contactbook-api/internal/pkg/id"
	"github.com/contactbook-api/internal/pkg/otpcode"
)

// Result is the structured outcome of a verification attempt. Business
// failures (wrong code, lockout, expiry) are reported here, not as errors;
// only storage failures surface as errors.
type Result struct {
	Success      bool       `json:"success"`
	AttemptsLeft int        `json:"attempts_left"`
	LockoutUntil *time.Time `json:"lockout_until,omitempty"`
	Message      string     `json:"message"`
}

const (
	msgInvalidOrExpired = "Expired or invalid OTP"
	msgLocked           = "Too many failed attempts. Please try again later."
	msgNowLocked        = "Too many failed attempts. Account locked temporarily."
	msgWrongCode        = "Invalid OTP. Please try again."
	msgVerified         = "OTP verified successfully."
)

// Store is the persistence contract the manager drives. Each method is one
// atomic unit of work: Issue is transactional, MarkFailed and Consume are
// single conditional writes. Implementations signal a lost write race by
// wrapping domain.ErrConflict.
type Store interface {
	GetState(ctx context.Context, userID string, purpose domain.OtpPurpose) (*domain.OtpIssueState, error)
	GetRecord(ctx context.Context, userID string, purpose domain.OtpPurpose, otpID string) (*domain.OtpRecord, error)
	Issue(ctx context.Context, rec *domain.OtpRecord, prev, next *domain.OtpIssueState) error
	MarkFailed(ctx context.Context, rec *domain.OtpRecord, attempts int, lockoutUntil *time.Time) error
	Consume(ctx context.Context, rec *domain.OtpRecord) error
}

// Manager owns the OTP lifecycle for every (user, purpose) pair:
// rate-limited generation, single-active-code supersession, hashed storage,
// expiry, and failed-attempt lockout. It is shared by the signup-verification
// and password-reset flows.
type Manager struct {
	store Store
	cfg   config.OTPConfig
}

func NewManager(store Store, cfg config.OTPConfig) *Manager {
	return &Manager{store: store, cfg: cfg}
}

// Generate issues a fresh code for (userID, purpose) and returns its
// plaintext for out-of-band delivery. The plaintext is never persisted or
// logged. Any previously unused code for the pair is superseded in the same
// atomic unit that inserts the new record. Returns domain.ErrRateLimited —
// with no writes — once cfg.Limit codes have been issued inside the expiry
// window.
func (m *Manager) Generate(ctx context.Context, userID string, purpose domain.OtpPurpose) (string, error) {
	now := time.Now().UTC()

	prev, err := m.store.GetState(ctx, userID, purpose)
	if err != nil {
		return "", fmt.Errorf("load otp state: %w", err)
	}

	// Superseded records are deleted, so the issuance count lives in the
	// state item and survives them.
	issued := 0
	windowStart := now
	if prev != nil && now.Sub(prev.WindowStart) < m.cfg.Expiry {
		issued = prev.Issued
		windowStart = prev.WindowStart
	}
	if issued >= m.cfg.Limit {
		return "", fmt.Errorf("exceeded %d OTP requests in the last %s: %w",
			m.cfg.Limit, m.cfg.Expiry, domain.ErrRateLimited)
	}

	code, err := otpcode.New(m.cfg.CodeLength)
	if err != nil {
		return "", err
	}
	codeHash, err := hash.Secret(code)
	if err != nil {
		return "", err
	}

	rec := &domain.OtpRecord{
		UserID:    userID,
		OtpID:     id.New(),
		Purpose:   purpose,
		CodeHash:  codeHash,
		CreatedAt: now,
		ExpiresAt: now.Add(m.cfg.Expiry).Unix(),
	}
	next := &domain.OtpIssueState{
		UserID:      userID,
		Purpose:     purpose,
		ActiveOtpID: rec.OtpID,
		WindowStart: windowStart,
		Issued:      issued + 1,
		// Must outlive the record it points at, including a trailing lockout.
		ExpiresAt: now.Add(m.cfg.Expiry + m.cfg.Lockout).Unix(),
	}
	if err := m.store.Issue(ctx, rec, prev, next); err != nil {
		return "", fmt.Errorf("persist otp: %w", err)
	}
	return code, nil
}

// Verify checks enteredCode against the active record for (userID, purpose).
// Outcomes are returned as a Result so callers can branch without error
// inspection; an error means the store failed. At most one persistence write
// happens per call, and none while a lockout is active.
func (m *Manager) Verify(ctx context.Context, userID string, purpose domain.OtpPurpose, enteredCode string) (Result, error) {
	now := time.Now().UTC()

	st, err := m.store.GetState(ctx, userID, purpose)
	if err != nil {
		return Result{}, fmt.Errorf("load otp state: %w", err)
	}
	if st == nil || st.ActiveOtpID == "" {
		return Result{Message: msgInvalidOrExpired}, nil
	}

	rec, err := m.store.GetRecord(ctx, userID, purpose, st.ActiveOtpID)
	if err != nil {
		return Result{}, fmt.Errorf("load otp record: %w", err)
	}
	if rec == nil || rec.Used || rec.Expired(now) {
		return Result{Message: msgInvalidOrExpired}, nil
	}

	if rec.Locked(now) {
		// No attempt is consumed while locked.
		return Result{LockoutUntil: rec.LockoutUntil, Message: msgLocked}, nil
	}

	if !hash.Verify(enteredCode, rec.CodeHash) {
		attempts := rec.FailedAttempts + 1
		if attempts >= m.cfg.Limit {
			until := now.Add(m.cfg.Lockout)
			if err := m.store.MarkFailed(ctx, rec, attempts, &until); err != nil {
				return Result{}, fmt.Errorf("record failed attempt: %w", err)
			}
			return Result{LockoutUntil: &until, Message: msgNowLocked}, nil
		}
		if err := m.store.MarkFailed(ctx, rec, attempts, nil); err != nil {
			return Result{}, fmt.Errorf("record failed attempt: %w", err)
		}
		return Result{AttemptsLeft: m.cfg.Limit - attempts, Message: msgWrongCode}, nil
	}

	if err := m.store.Consume(ctx, rec); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			// A concurrent verify won the race; this code is spent.
			return Result{Message: msgInvalidOrExpired}, nil
		}
		return Result{}, fmt.Errorf("consume otp: %w", err)
	}
	return Result{Success: true, AttemptsLeft: m.cfg.Limit, Message: msgVerified}, nil
}
