package domain

import "time"

// OtpPurpose scopes an OTP record to the flow that issued it, so the signup
// and password-reset flows cannot validate each other's codes.
type OtpPurpose string

const (
	OtpPurposeSignup        OtpPurpose = "signup"
	OtpPurposeResetPassword OtpPurpose = "reset-password"
)

// OtpRecord is one issued one-time code.
// PK: user_id, SK: "OTP#<purpose>#<otp_id>".
// ExpiresAt doubles as the DynamoDB TTL attribute, so expired records are
// eventually removed at the storage level.
type OtpRecord struct {
	UserID         string     `dynamodbav:"user_id"`
	OtpID          string     `dynamodbav:"otp_id"`
	Purpose        OtpPurpose `dynamodbav:"purpose"`
	CodeHash       string     `dynamodbav:"code_hash"` // bcrypt; plaintext is never persisted
	CreatedAt      time.Time  `dynamodbav:"created_at"`
	ExpiresAt      int64      `dynamodbav:"expires_at"` // TTL (Unix seconds)
	Used           bool       `dynamodbav:"used"`
	FailedAttempts int        `dynamodbav:"failed_attempts"`
	LockoutUntil   *time.Time `dynamodbav:"lockout_until,omitempty"`
}

// Expired reports whether the record is past its expiry at the given instant.
func (r *OtpRecord) Expired(now time.Time) bool {
	return now.Unix() >= r.ExpiresAt
}

// Locked reports whether a failed-attempt lockout is active at the given instant.
func (r *OtpRecord) Locked(now time.Time) bool {
	return r.LockoutUntil != nil && r.LockoutUntil.After(now)
}

// OtpIssueState is the per-(user, purpose) issuance bookkeeping item.
// PK: user_id, SK: "STATE#<purpose>".
//
// It serves two jobs: ActiveOtpID points at the single unused record for the
// pair, and WindowStart/Issued carry the rate-limit count — superseded code
// records are deleted, so the count has to live somewhere that survives them.
// Every Generate performs a compare-and-set against the observed state, which
// serializes concurrent generation for the same pair.
type OtpIssueState struct {
	UserID      string     `dynamodbav:"user_id"`
	Purpose     OtpPurpose `dynamodbav:"purpose"`
	ActiveOtpID string     `dynamodbav:"active_otp_id"`
	WindowStart time.Time  `dynamodbav:"window_start"`
	Issued      int        `dynamodbav:"issued"`
	ExpiresAt   int64      `dynamodbav:"expires_at"` // TTL (Unix seconds)
}
