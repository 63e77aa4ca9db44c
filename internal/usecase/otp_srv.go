package usecase

import (
	"context"
	"time"

	"citizen-kiosk/internal/data/entity"
	"citizen-kiosk/internal/data/repository"
	"citizen-kiosk/pkg/utils"

	"go.uber.org/zap"
)

type OTPVerification int

const (
	OTPValid OTPVerification = iota
	OTPNotFound
	OTPExpired
	OTPInvalid
)

func (v OTPVerification) String() string {
	switch v {
	case OTPValid:
		return "valid"
	case OTPNotFound:
		return "not found/expired"
	case OTPExpired:
		return "expired"
	default:
		return "invalid code"
	}
}

type IssuedOTP struct {
	Code      string
	ExpiresAt time.Time
	Demo      bool
}

// CodeSource produces the code for a phone number. Demo reports a fixed
// demonstration code that may be echoed back to the caller.
type CodeSource interface {
	Code(phone string) (code string, demo bool, err error)
}

type randomCodeSource struct{}

func (randomCodeSource) Code(string) (string, bool, error) {
	code, err := utils.GenerateOTP()
	return code, false, err
}

// demoCodeSource answers one configured phone with a fixed code and defers
// every other number to next.
type demoCodeSource struct {
	phone string
	code  string
	next  CodeSource
}

func (s demoCodeSource) Code(phone string) (string, bool, error) {
	if phone == s.phone {
		return s.code, true, nil
	}
	return s.next.Code(phone)
}

// NewCodeSource returns the random source, wrapped by the demo source only
// when the demo block is enabled.
func NewCodeSource(demo utils.DemoOTPConfig) CodeSource {
	var source CodeSource = randomCodeSource{}
	if demo.Enabled && demo.Phone != "" && demo.Code != "" {
		source = demoCodeSource{phone: demo.Phone, code: demo.Code, next: source}
	}
	return source
}

type OTPService interface {
	Issue(ctx context.Context, phone string) (*IssuedOTP, error)
	Verify(ctx context.Context, phone, code string) (OTPVerification, error)
}

type otpService struct {
	store    repository.OTPStore
	codes    CodeSource
	expiry   time.Duration
	hashCost int
	now      func() time.Time
	log      *zap.Logger
}

func NewOTPService(
	store repository.OTPStore,
	codes CodeSource,
	config utils.OTPConfig,
	now func() time.Time,
	log *zap.Logger,
) OTPService {
	if now == nil {
		now = time.Now
	}
	return &otpService{
		store:    store,
		codes:    codes,
		expiry:   config.Expiry(),
		hashCost: config.HashCost,
		now:      now,
		log:      log.With(zap.String("service", "otp")),
	}
}

// Issue generates a code, replacing any active one for phone.
func (s *otpService) Issue(ctx context.Context, phone string) (*IssuedOTP, error) {
	// 1. Generate code
	code, demo, err := s.codes.Code(phone)
	if err != nil {
		s.log.Error("Failed to generate OTP", zap.Error(err))
		return nil, utils.NewInfrastructureError("failed to generate OTP", err)
	}

	// 2. Hash for storage
	hash, err := utils.HashSecret(code, s.hashCost)
	if err != nil {
		s.log.Error("Failed to hash OTP", zap.Error(err))
		return nil, utils.NewInfrastructureError("failed to generate OTP", err)
	}

	// 3. Store, overwriting the previous code
	now := s.now()
	record := &entity.OTPRecord{
		Identifier: phone,
		CodeHash:   hash,
		IssuedAt:   now,
		ExpiresAt:  now.Add(s.expiry),
	}
	if err := s.store.Save(ctx, record); err != nil {
		return nil, utils.NewInfrastructureError("failed to store OTP", err)
	}

	return &IssuedOTP{Code: code, ExpiresAt: record.ExpiresAt, Demo: demo}, nil
}

// Verify consumes the record on success and on expiry. A wrong code keeps it.
func (s *otpService) Verify(ctx context.Context, phone, code string) (OTPVerification, error) {
	record, err := s.store.Get(ctx, phone)
	if err != nil {
		return OTPInvalid, utils.NewInfrastructureError("failed to load OTP", err)
	}

	if record == nil {
		return OTPNotFound, nil
	}

	if record.IsExpired(s.now()) {
		s.purge(ctx, phone)
		return OTPExpired, nil
	}

	if !utils.CheckSecretHash(code, record.CodeHash) {
		return OTPInvalid, nil
	}

	s.purge(ctx, phone)
	return OTPValid, nil
}

func (s *otpService) purge(ctx context.Context, phone string) {
	if err := s.store.Delete(ctx, phone); err != nil {
		s.log.Error("Failed to purge OTP", zap.Error(err), zap.String("phone", phone))
	}
}
