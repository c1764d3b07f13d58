package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"otp-gateway/internal/apps/otp/models"
	"otp-gateway/internal/apps/otp/repository"
	"otp-gateway/internal/common/database"
	"otp-gateway/internal/common/metrics"
	"otp-gateway/internal/common/ratelimit"
	"otp-gateway/internal/common/validation"
	"otp-gateway/pkg/utils"

	"github.com/sirupsen/logrus"
)

var (
	// ErrInvalidOrExpiredCode is returned when no unused, unexpired challenge matches
	ErrInvalidOrExpiredCode = errors.New("invalid or expired OTP")
	// ErrTooManyRequests is returned when a phone number exceeds the issue throttle
	ErrTooManyRequests = errors.New("too many OTP requests, try again later")
)

// KeyProvisioner returns the proxy key of a verified phone number, creating it on first use
type KeyProvisioner interface {
	Provision(ctx context.Context, phone string) (key string, created bool, err error)
	Discard(ctx context.Context, phone, key string)
}

// PhoneOTPService defines business logic for Phone OTP
type PhoneOTPService interface {
	IssueOTP(ctx context.Context, req models.SendOTPRequest) (*models.SendOTPResponse, error)
	VerifyOTP(ctx context.Context, req models.VerifyOTPRequest) (*models.VerifyOTPResponse, error)
}

// phoneOTPService implements PhoneOTPService
type phoneOTPService struct {
	repo        repository.PhoneOTPRepository
	tx          database.Transactor
	limiter     ratelimit.Limiter
	otpProvider OTPProvider
	keys        KeyProvisioner
	metrics     *metrics.Metrics
	log         *logrus.Logger
	ttl         time.Duration
	now         func() time.Time
}

// NewPhoneOTPService creates a new instance of PhoneOTPService
func NewPhoneOTPService(
	repo repository.PhoneOTPRepository,
	tx database.Transactor,
	limiter ratelimit.Limiter,
	provider OTPProvider,
	keys KeyProvisioner,
	m *metrics.Metrics,
	log *logrus.Logger,
	ttl time.Duration,
) PhoneOTPService {
	return &phoneOTPService{
		repo:        repo,
		tx:          tx,
		limiter:     limiter,
		otpProvider: provider,
		keys:        keys,
		metrics:     m,
		log:         log,
		ttl:         ttl,
		now:         time.Now,
	}
}

// generateOTP generates a random 6-digit OTP in [100000, 999999]
func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// IssueOTP supersedes any outstanding code for the phone and issues a new one
func (s *phoneOTPService) IssueOTP(ctx context.Context, req models.SendOTPRequest) (*models.SendOTPResponse, error) {
	phone := validation.NormalizePhone(req.PhoneNumber)
	entry := s.log.WithFields(logrus.Fields{"component": "otp", "phone": utils.MaskPhone(phone)})

	allowed, err := s.limiter.Allow(ctx, phone)
	if err != nil {
		entry.WithError(err).Warn("OTP throttle unavailable, allowing request")
	}
	if !allowed {
		return nil, ErrTooManyRequests
	}

	code, err := generateOTP()
	if err != nil {
		return nil, fmt.Errorf("failed to generate OTP: %w", err)
	}

	now := s.now().UTC()
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Supersede(ctx, phone, now); err != nil {
			return err
		}
		return s.repo.Create(ctx, &models.PhoneOTP{
			PhoneNumber: phone,
			Code:        code,
			ExpiresAt:   now.Add(s.ttl),
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store OTP: %w", err)
	}
	s.metrics.OTPIssuedTotal.Inc()

	// Delivery problems must not fail the request; the code is already stored.
	if err := s.otpProvider.SendOTP(ctx, phone, code, s.ttl); err != nil {
		entry.WithError(err).Warn("Failed to dispatch OTP")
	}

	return &models.SendOTPResponse{Message: "OTP sent"}, nil
}

// VerifyOTP consumes the matching code and returns the phone's proxy key.
// Consumption and key provisioning share one transaction.
func (s *phoneOTPService) VerifyOTP(ctx context.Context, req models.VerifyOTPRequest) (*models.VerifyOTPResponse, error) {
	phone := validation.NormalizePhone(req.PhoneNumber)
	now := s.now().UTC()

	var (
		apiKey  string
		created bool
	)
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		ok, err := s.repo.Consume(ctx, phone, req.OTPCode, now)
		if err != nil {
			return fmt.Errorf("failed to consume OTP: %w", err)
		}
		if !ok {
			return ErrInvalidOrExpiredCode
		}

		apiKey, created, err = s.keys.Provision(ctx, phone)
		return err
	})
	if err != nil && created {
		// The key row was rolled back with the transaction; the upstream key is unreachable.
		s.keys.Discard(ctx, phone, apiKey)
	}

	switch {
	case err == nil:
		s.metrics.OTPVerificationsTotal.WithLabelValues("success").Inc()
	case errors.Is(err, ErrInvalidOrExpiredCode):
		s.metrics.OTPVerificationsTotal.WithLabelValues("invalid").Inc()
		return nil, err
	default:
		s.metrics.OTPVerificationsTotal.WithLabelValues("error").Inc()
		s.log.WithFields(logrus.Fields{
			"component": "otp",
			"phone":     utils.MaskPhone(phone),
		}).WithError(err).Error("OTP verification failed")
		return nil, err
	}

	return &models.VerifyOTPResponse{APIKey: apiKey}, nil
}
