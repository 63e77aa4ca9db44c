package usecase

import (
	"context"
	"fmt"
	"time"

	"citizen-kiosk/internal/data/entity"
	"citizen-kiosk/internal/data/repository"
	"citizen-kiosk/internal/dto/request"
	"citizen-kiosk/internal/dto/response"
	"citizen-kiosk/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AuthService interface {
	SendOTP(ctx context.Context, req *request.SendOTPRequest, meta request.ClientMeta) (*response.SendOTPResponse, error)
	VerifyOTP(ctx context.Context, req *request.VerifyOTPRequest, meta request.ClientMeta) (*response.VerifyOTPResponse, error)
	Logout(ctx context.Context, identity utils.Identity, token string, meta request.ClientMeta) error
	Authenticate(ctx context.Context, token string) (utils.Identity, error)
}

type authService struct {
	repo         *repository.Repository
	limiter      RateLimiter
	otp          OTPService
	sms          SMSSender
	audit        AuditService
	tokens       *utils.TokenManager
	otpPolicy    RateLimitPolicy
	loginPolicy  RateLimitPolicy
	otpExpiresIn string
	now          func() time.Time
	log          *zap.Logger
}

func NewAuthService(
	repo *repository.Repository,
	limiter RateLimiter,
	otp OTPService,
	sms SMSSender,
	audit AuditService,
	tokens *utils.TokenManager,
	config *utils.Config,
	now func() time.Time,
	log *zap.Logger,
) AuthService {
	if now == nil {
		now = time.Now
	}
	return &authService{
		repo:    repo,
		limiter: limiter,
		otp:     otp,
		sms:     sms,
		audit:   audit,
		tokens:  tokens,
		otpPolicy: RateLimitPolicy{
			Action: entity.ActionOTPRequest,
			Limit:  config.RateLimit.OTPLimit,
			Window: time.Duration(config.RateLimit.OTPWindowMinutes) * time.Minute,
		},
		loginPolicy: RateLimitPolicy{
			Action: entity.ActionLogin,
			Limit:  config.RateLimit.LoginLimit,
			Window: time.Duration(config.RateLimit.LoginWindowMinutes) * time.Minute,
		},
		otpExpiresIn: fmt.Sprintf("%d minutes", config.OTP.ExpiryMinutes),
		now:          now,
		log:          log.With(zap.String("service", "auth")),
	}
}

func (s *authService) SendOTP(ctx context.Context, req *request.SendOTPRequest, meta request.ClientMeta) (*response.SendOTPResponse, error) {
	// 1. Validate
	if err := utils.Validate(req); err != nil {
		return nil, err
	}

	// 2. Rate limit before any mutation
	limit := s.limiter.CheckLimit(ctx, req.Phone, s.otpPolicy.Action, s.otpPolicy.Limit, s.otpPolicy.Window)
	if !limit.Allowed {
		s.audit.Record(ctx, AuditEntry{
			Action:    entity.AuditOTPRateLimited,
			Actor:     req.Phone,
			IPAddress: meta.IPAddress,
			Metadata:  map[string]any{"retry_after_seconds": int(limit.RetryAfter.Seconds())},
			Severity:  entity.SeverityWarning,
		})
		return nil, utils.NewRateLimitedError(
			fmt.Sprintf("Too many OTP requests. Please try again in %d minutes.", utils.MinutesCeil(limit.RetryAfter)),
			limit.RetryAfter,
		)
	}

	// 3. Issue and store code
	issued, err := s.otp.Issue(ctx, req.Phone)
	if err != nil {
		s.log.Error("Failed to issue OTP", zap.Error(err), zap.String("phone", req.Phone))
		return nil, err
	}

	// 4. Count the attempt
	s.limiter.RecordAttempt(ctx, req.Phone, s.otpPolicy.Action)

	// 5. Deliver
	if err := s.sms.SendOTP(ctx, req.Phone, issued.Code, issued.ExpiresAt); err != nil {
		s.log.Warn("Failed to deliver OTP", zap.Error(err), zap.String("phone", req.Phone))
	}

	s.audit.Record(ctx, AuditEntry{
		Action:    entity.AuditOTPSent,
		Actor:     req.Phone,
		IPAddress: meta.IPAddress,
		Metadata:  map[string]any{"demo": issued.Demo},
	})

	resp := &response.SendOTPResponse{
		Success:   true,
		Message:   "OTP sent successfully",
		ExpiresIn: s.otpExpiresIn,
	}
	if issued.Demo {
		resp.OTP = issued.Code
		resp.Demo = true
		resp.Message = "OTP sent successfully (demo number, code included)"
	}

	return resp, nil
}

func (s *authService) VerifyOTP(ctx context.Context, req *request.VerifyOTPRequest, meta request.ClientMeta) (*response.VerifyOTPResponse, error) {
	// 1. Validate
	if err := utils.Validate(req); err != nil {
		return nil, err
	}

	// 2. Login rate limit before touching the OTP store
	limit := s.limiter.CheckLimit(ctx, req.Phone, s.loginPolicy.Action, s.loginPolicy.Limit, s.loginPolicy.Window)
	if !limit.Allowed {
		s.auditLoginFailed(ctx, req.Phone, meta, "rate limited", entity.SeverityWarning)
		return nil, utils.NewRateLimitedError(
			fmt.Sprintf("Too many login attempts. Please try again in %d minutes.", utils.MinutesCeil(limit.RetryAfter)),
			limit.RetryAfter,
		)
	}

	// 3. Check code
	result, err := s.otp.Verify(ctx, req.Phone, req.OTP)
	if err != nil {
		s.log.Error("Failed to verify OTP", zap.Error(err), zap.String("phone", req.Phone))
		return nil, err
	}

	switch result {
	case OTPNotFound:
		s.auditLoginFailed(ctx, req.Phone, meta, result.String(), entity.SeverityInfo)
		return nil, utils.NewAuthenticationError("Invalid or expired OTP", "otp_not_found")
	case OTPExpired:
		s.auditLoginFailed(ctx, req.Phone, meta, result.String(), entity.SeverityInfo)
		return nil, utils.NewAuthenticationError("Invalid or expired OTP", "otp_expired")
	case OTPInvalid:
		s.limiter.RecordAttempt(ctx, req.Phone, s.loginPolicy.Action)
		s.auditLoginFailed(ctx, req.Phone, meta, result.String(), entity.SeverityWarning)
		return nil, utils.NewAuthenticationError("Invalid or expired OTP", "invalid_otp")
	}

	// 4. Clear failed attempts
	s.limiter.ResetLimit(ctx, req.Phone, s.loginPolicy.Action)

	// 5. Find or create user
	now := s.now()
	user, err := s.findOrCreateUser(ctx, req.Phone, now)
	if err != nil {
		return nil, err
	}

	// 6. Session stub, then token embedding its id, then attach the token
	session, err := s.createSession(ctx, user.ID, meta, now)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.tokens.Issue(utils.Identity{
		UserID:      user.ID,
		PhoneNumber: user.PhoneNumber,
		Role:        string(user.Role),
		SessionID:   session.ID,
	}, now)
	if err != nil {
		s.log.Error("Failed to sign access token", zap.Error(err), zap.String("user_id", user.ID.String()))
		s.abandonSession(ctx, session.ID)
		return nil, utils.NewInfrastructureError("failed to create session", err)
	}

	if err := s.repo.Session.UpdateToken(ctx, session.ID, token); err != nil {
		s.log.Error("Failed to attach token to session", zap.Error(err), zap.String("session_id", session.ID.String()))
		s.abandonSession(ctx, session.ID)
		return nil, utils.NewInfrastructureError("failed to create session", err)
	}

	s.audit.Record(ctx, AuditEntry{
		Action:    entity.AuditLoginSuccess,
		Actor:     req.Phone,
		IPAddress: meta.IPAddress,
		Metadata: map[string]any{
			"user_id":    user.ID.String(),
			"session_id": session.ID.String(),
		},
	})

	s.log.Info("User logged in",
		zap.String("user_id", user.ID.String()),
		zap.String("session_id", session.ID.String()))

	return &response.VerifyOTPResponse{
		AccessToken: token,
		ExpiresAt:   expiresAt,
		User:        response.UserToInfo(user),
	}, nil
}

func (s *authService) Logout(ctx context.Context, identity utils.Identity, token string, meta request.ClientMeta) error {
	affected, err := s.repo.Session.DeactivateByUserAndToken(ctx, identity.UserID, token)
	if err != nil {
		s.log.Error("Failed to deactivate sessions", zap.Error(err), zap.String("user_id", identity.UserID.String()))
		return utils.NewInfrastructureError("failed to logout", err)
	}

	s.audit.Record(ctx, AuditEntry{
		Action:    entity.AuditLogout,
		Actor:     identity.PhoneNumber,
		IPAddress: meta.IPAddress,
		Metadata: map[string]any{
			"user_id":              identity.UserID.String(),
			"sessions_deactivated": affected,
		},
	})

	s.log.Info("User logged out",
		zap.String("user_id", identity.UserID.String()),
		zap.Int64("sessions", affected))

	return nil
}

// Authenticate checks the credential signature and then the session row it
// names. An expired session still marked active is deactivated here.
func (s *authService) Authenticate(ctx context.Context, token string) (utils.Identity, error) {
	identity, err := s.tokens.Parse(token)
	if err != nil {
		s.log.Debug("Rejected credential", zap.Error(err))
		return utils.Identity{}, utils.NewAuthenticationError("Invalid or expired session", "invalid_token")
	}

	session, err := s.repo.Session.FindByID(ctx, identity.SessionID)
	if err != nil {
		return utils.Identity{}, utils.NewInfrastructureError("failed to load session", err)
	}

	if session == nil || !session.IsActive || session.UserID != identity.UserID || session.Token != token {
		return utils.Identity{}, utils.NewAuthenticationError("Invalid or expired session", "session_inactive")
	}

	if session.IsExpired(s.now()) {
		if err := s.repo.Session.Deactivate(ctx, session.ID); err != nil {
			s.log.Warn("Failed to deactivate expired session", zap.Error(err), zap.String("session_id", session.ID.String()))
		}
		return utils.Identity{}, utils.NewAuthenticationError("Invalid or expired session", "session_expired")
	}

	return identity, nil
}

// ==================== HELPER METHODS ====================

func (s *authService) findOrCreateUser(ctx context.Context, phone string, now time.Time) (*entity.User, error) {
	user, err := s.repo.User.FindByPhone(ctx, phone)
	if err != nil {
		return nil, utils.NewInfrastructureError("failed to load user", err)
	}

	if user != nil {
		if err := s.repo.User.UpdateLastLogin(ctx, user.ID, now); err != nil {
			s.log.Warn("Failed to update last login", zap.Error(err), zap.String("user_id", user.ID.String()))
		}
		user.LastLoginAt = &now
		return user, nil
	}

	user = &entity.User{
		Base: entity.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		PhoneNumber: phone,
		Role:        entity.RoleKioskUser,
		LastLoginAt: &now,
	}
	if err := s.repo.User.Create(ctx, user); err != nil {
		return nil, utils.NewInfrastructureError("failed to create user", err)
	}

	s.log.Info("User created", zap.String("user_id", user.ID.String()))
	return user, nil
}

func (s *authService) createSession(ctx context.Context, userID uuid.UUID, meta request.ClientMeta, now time.Time) (*entity.Session, error) {
	session := &entity.Session{
		Base: entity.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		UserID:    userID,
		ExpiresAt: now.Add(s.tokens.Expiry()),
		IsActive:  true,
	}
	if meta.IPAddress != "" {
		session.IPAddress = &meta.IPAddress
	}
	if meta.UserAgent != "" {
		session.UserAgent = &meta.UserAgent
	}

	if err := s.repo.Session.Create(ctx, session); err != nil {
		s.log.Error("Failed to create session", zap.Error(err), zap.String("user_id", userID.String()))
		return nil, utils.NewInfrastructureError("failed to create session", err)
	}

	return session, nil
}

func (s *authService) abandonSession(ctx context.Context, sessionID uuid.UUID) {
	if err := s.repo.Session.Deactivate(ctx, sessionID); err != nil {
		s.log.Warn("Failed to deactivate abandoned session", zap.Error(err), zap.String("session_id", sessionID.String()))
	}
}

func (s *authService) auditLoginFailed(ctx context.Context, phone string, meta request.ClientMeta, reason string, severity entity.AuditSeverity) {
	s.audit.Record(ctx, AuditEntry{
		Action:    entity.AuditLoginFailed,
		Actor:     phone,
		IPAddress: meta.IPAddress,
		Metadata:  map[string]any{"reason": reason},
		Severity:  severity,
	})
}
