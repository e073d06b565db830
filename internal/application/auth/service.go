package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/contactbook-api/internal/application/otp"
	"github.com/contactbook-api/internal/domain"
	"github.com/contactbook-api/internal/infrastructure/smtp"
	"github.com/contactbook-api/internal/infrastructure/sns"
	"github.com/contactbook-api/internal/pkg/hash"
	"github.com/contactbook-api/internal/pkg/id"
)

type VerifyOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required"`
}

type ForgotPasswordRequest struct {
	Email       *string `json:"email" validate:"omitempty,email"`
	PhoneNumber *string `json:"phone_number"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email" validate:"required,email"`
	OTP         string `json:"otp" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=72"`
}

// LoginResult carries the issued bearer token and the authenticated user.
type LoginResult struct {
	Token string
	User  *domain.User
}

// Service composes the account directory, the OTP lifecycle manager, token
// issuance and out-of-band delivery into the signup/verify/login/forgot/reset
// use cases.
type Service interface {
	Signup(ctx context.Context, req domain.SignupRequest) error
	VerifyEmail(ctx context.Context, req VerifyOTPRequest) (otp.Result, error)
	Login(ctx context.Context, req domain.LoginRequest) (*LoginResult, error)
	ForgotPassword(ctx context.Context, req ForgotPasswordRequest) error
	ResetPassword(ctx context.Context, req ResetPasswordRequest) (otp.Result, error)
}

type userStore interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByPhone(ctx context.Context, phone string) (*domain.User, error)
	Put(ctx context.Context, u *domain.User) error
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
	Delete(ctx context.Context, userID string) error
}

type otpManager interface {
	Generate(ctx context.Context, userID string, purpose domain.OtpPurpose) (string, error)
	Verify(ctx context.Context, userID string, purpose domain.OtpPurpose, enteredCode string) (otp.Result, error)
}

type tokenIssuer interface {
	Issue(userID string) (string, error)
}

type service struct {
	users     userStore
	otpMgr    otpManager
	mailer    smtp.Mailer
	smsSender sns.SMSSender
	tokens    tokenIssuer
	otpExpiry time.Duration
}

type ServiceDeps struct {
	UserRepo   userStore
	OtpManager otpManager
	Mailer     smtp.Mailer
	SMSSender  sns.SMSSender
	Tokens     tokenIssuer
	OTPExpiry  time.Duration
}

func NewService(deps ServiceDeps) Service {
	return &service{
		users:     deps.UserRepo,
		otpMgr:    deps.OtpManager,
		mailer:    deps.Mailer,
		smsSender: deps.SMSSender,
		tokens:    deps.Tokens,
		otpExpiry: deps.OTPExpiry,
	}
}

// Signup registers a new account and emails a verification code. If OTP
// issuance or delivery fails, the freshly created user is deleted again so
// the signup stays retryable instead of leaving an unverifiable account.
func (s *service) Signup(ctx context.Context, req domain.SignupRequest) error {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		// Deliberately generic: signup does not reveal which emails exist.
		return fmt.Errorf("unable to register, please try again: %w", domain.ErrConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("look up email: %w", err)
	}

	passwordHash, err := hash.Secret(req.Password)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	u := &domain.User{
		UserID:       id.New(),
		FullName:     req.FullName,
		PhoneNumber:  req.PhoneNumber,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Put(ctx, u); err != nil {
		return err
	}

	code, err := s.otpMgr.Generate(ctx, u.UserID, domain.OtpPurposeSignup)
	if err != nil {
		s.compensateSignup(ctx, u.UserID)
		return err
	}
	body := fmt.Sprintf("Your verification OTP is: %s. It will expire in %d minutes.",
		code, int(s.otpExpiry.Minutes()))
	if err := s.mailer.SendEmail(u.Email, "Verify your email", body); err != nil {
		s.compensateSignup(ctx, u.UserID)
		return fmt.Errorf("send verification email: %w", err)
	}
	return nil
}

// compensateSignup removes a user whose verification code never reached them.
// Best effort: the original failure is what the caller sees either way.
func (s *service) compensateSignup(ctx context.Context, userID string) {
	if err := s.users.Delete(ctx, userID); err != nil {
		slog.Error("failed to roll back signup", "user_id", userID, "err", err)
	}
}

func (s *service) VerifyEmail(ctx context.Context, req VerifyOTPRequest) (otp.Result, error) {
	u, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		return otp.Result{}, fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	res, err := s.otpMgr.Verify(ctx, u.UserID, domain.OtpPurposeSignup, req.OTP)
	if err != nil {
		return otp.Result{}, err
	}
	if res.Success {
		if err := s.users.Update(ctx, u.UserID, map[string]interface{}{"email_verified": true}); err != nil {
			return otp.Result{}, err
		}
	}
	return res, nil
}

func (s *service) Login(ctx context.Context, req domain.LoginRequest) (*LoginResult, error) {
	u, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		return nil, fmt.Errorf("invalid email: %w", domain.ErrUnauthorized)
	}
	if !hash.Verify(req.Password, u.PasswordHash) {
		return nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}
	if !u.EmailVerified {
		return nil, fmt.Errorf("please verify your email before logging in: %w", domain.ErrForbidden)
	}
	token, err := s.tokens.Issue(u.UserID)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &LoginResult{Token: token, User: u}, nil
}

// ForgotPassword issues a reset code and delivers it to the channel the
// account was looked up by: email via SMTP, phone via SNS SMS. When both
// fields are present, email wins. The SMS channel is rejected up front if no
// sender is configured, before a code is issued, so a dead channel cannot
// burn an issuance of the rate-limit window.
func (s *service) ForgotPassword(ctx context.Context, req ForgotPasswordRequest) error {
	var u *domain.User
	var err error
	bySMS := false
	switch {
	case req.Email != nil:
		u, err = s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(*req.Email)))
	case req.PhoneNumber != nil:
		if s.smsSender == nil {
			return fmt.Errorf("SMS delivery is not available: %w", domain.ErrBadRequest)
		}
		bySMS = true
		u, err = s.users.GetByPhone(ctx, *req.PhoneNumber)
	default:
		return fmt.Errorf("email or phone_number required: %w", domain.ErrBadRequest)
	}
	if err != nil {
		return fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}

	code, err := s.otpMgr.Generate(ctx, u.UserID, domain.OtpPurposeResetPassword)
	if err != nil {
		return err
	}
	body := fmt.Sprintf("Your password reset OTP is: %s. It will expire in %d minutes.",
		code, int(s.otpExpiry.Minutes()))
	if bySMS {
		if err := s.smsSender.SendSMS(ctx, u.PhoneNumber, body); err != nil {
			return fmt.Errorf("send reset SMS: %w", err)
		}
		return nil
	}
	if err := s.mailer.SendEmail(u.Email, "Password Reset OTP", body); err != nil {
		return fmt.Errorf("send reset email: %w", err)
	}
	return nil
}

func (s *service) ResetPassword(ctx context.Context, req ResetPasswordRequest) (otp.Result, error) {
	u, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		return otp.Result{}, fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	res, err := s.otpMgr.Verify(ctx, u.UserID, domain.OtpPurposeResetPassword, req.OTP)
	if err != nil {
		return otp.Result{}, err
	}
	if res.Success {
		passwordHash, err := hash.Secret(req.NewPassword)
		if err != nil {
			return otp.Result{}, err
		}
		if err := s.users.Update(ctx, u.UserID, map[string]interface{}{"password_hash": passwordHash}); err != nil {
			return otp.Result{}, err
		}
	}
	return res, nil
}
