package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"helpdesk_backend/internal/auth"
	"helpdesk_backend/internal/email"
	"helpdesk_backend/internal/events"
	"helpdesk_backend/internal/logger"
	"helpdesk_backend/internal/models"
	"helpdesk_backend/internal/repositories"
	"helpdesk_backend/internal/services/dto"
	"helpdesk_backend/pkg/apperrors"
)

const forgotPasswordMessage = "If an account exists for this email, a reset link has been sent."

type AuthService interface {
	Signup(ctx context.Context, req *dto.SignupRequest) (*dto.AuthResponse, error)
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error)
	ForgotPassword(ctx context.Context, email string) (*dto.ForgotPasswordResponse, error)
	ResetPassword(ctx context.Context, token, password string) error
	ListUsers(ctx context.Context, p auth.Principal) ([]models.User, error)
	UpdateUser(ctx context.Context, p auth.Principal, req *dto.UpdateUserRequest) error
	SendResetEmail(ctx context.Context, ev events.PasswordResetEvent) error
}

type AuthServiceImpl struct {
	userRepo      repositories.UserRepository
	issuer        *auth.TokenIssuer
	dispatcher    events.Dispatcher
	emailProvider email.Provider
	frontendURL   string
	creditGrant   int
	exposeLink    bool
}

func NewAuthService(
	userRepo repositories.UserRepository,
	issuer *auth.TokenIssuer,
	emailProvider email.Provider,
	frontendURL string,
	creditGrant int,
	exposeLink bool,
) *AuthServiceImpl {
	return &AuthServiceImpl{
		userRepo:      userRepo,
		issuer:        issuer,
		emailProvider: emailProvider,
		frontendURL:   frontendURL,
		creditGrant:   creditGrant,
		exposeLink:    exposeLink,
	}
}

// SetDispatcher breaks the construction cycle between the service and the
// dispatcher whose handlers call back into it.
func (s *AuthServiceImpl) SetDispatcher(d events.Dispatcher) {
	s.dispatcher = d
}

func (s *AuthServiceImpl) Signup(ctx context.Context, req *dto.SignupRequest) (*dto.AuthResponse, error) {
	if err := auth.ValidatePassword(req.Password); err != nil {
		return nil, apperrors.ErrWeakPassword
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	user := &models.User{
		Email:              req.Email,
		PasswordHash:       hash,
		Role:               models.UserRoleUser,
		CreditsRemaining:   s.creditGrant,
		SubscriptionStatus: models.SubscriptionStatusInactive,
	}
	user.SetSkills(req.Skills)

	if err := s.userRepo.Create(user); err != nil {
		if errors.Is(err, repositories.ErrUserAlreadyExists) {
			return nil, apperrors.ErrEmailAlreadyExists
		}
		return nil, apperrors.InternalError(err)
	}

	token, err := s.issuer.Generate(user.ID, user.Role)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	logger.CtxInfo(ctx, "user signed up", "userId", user.ID)
	return &dto.AuthResponse{User: user, Token: token}, nil
}

func (s *AuthServiceImpl) Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	user, err := s.userRepo.FindByEmail(req.Email)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, apperrors.InternalError(err)
	}

	if !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		return nil, apperrors.ErrInvalidCredentials
	}

	token, err := s.issuer.Generate(user.ID, user.Role)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	return &dto.AuthResponse{User: user, Token: token}, nil
}

// ForgotPassword returns the same message whether or not the account
// exists; only the mail side effect differs.
func (s *AuthServiceImpl) ForgotPassword(ctx context.Context, emailAddr string) (*dto.ForgotPasswordResponse, error) {
	resp := &dto.ForgotPasswordResponse{Message: forgotPasswordMessage}

	user, err := s.userRepo.FindByEmail(emailAddr)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return resp, nil
		}
		return nil, apperrors.InternalError(err)
	}

	raw, hashed, err := auth.NewResetToken()
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	expiry := time.Now().Add(auth.ResetTokenTTL)
	if err := s.userRepo.SetResetToken(user.ID, hashed, expiry); err != nil {
		return nil, apperrors.InternalError(err)
	}

	resetLink := fmt.Sprintf("%s/reset-password/%s", s.frontendURL, url.PathEscape(raw))

	if s.emailProvider == nil {
		resp.MailDelivery = "skipped"
	} else {
		ev := events.PasswordResetEvent{Email: user.Email, ResetLink: resetLink}
		resp.MailDelivery = "email_sent"
		if err := s.dispatcher.DispatchPasswordReset(ctx, ev); err != nil {
			// Broker unavailable: deliver inline so the reset mail is never
			// silently dropped.
			logger.CtxWithError(ctx, "failed to dispatch password reset, sending inline", err, "userId", user.ID)
			if sendErr := s.SendResetEmail(ctx, ev); sendErr != nil {
				logger.CtxWithError(ctx, "failed to send reset mail", sendErr, "userId", user.ID)
				resp.MailDelivery = "email_failed"
			}
		}
	}

	if s.exposeLink {
		resp.ResetLink = resetLink
	}
	return resp, nil
}

// SendResetEmail is the worker-side half of the forgot-password flow.
func (s *AuthServiceImpl) SendResetEmail(ctx context.Context, ev events.PasswordResetEvent) error {
	if s.emailProvider == nil {
		logger.CtxWarn(ctx, "no email provider configured, dropping reset mail", "email", ev.Email)
		return nil
	}
	subject, body := email.PasswordResetEmail(ev.ResetLink)
	return s.emailProvider.Send(ev.Email, subject, body)
}

func (s *AuthServiceImpl) ResetPassword(ctx context.Context, token, password string) error {
	if err := auth.ValidatePassword(password); err != nil {
		return apperrors.ErrWeakPassword
	}

	user, err := s.userRepo.FindByResetToken(auth.HashResetToken(token))
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return apperrors.ErrInvalidResetToken
		}
		return apperrors.InternalError(err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return apperrors.InternalError(err)
	}
	if err := s.userRepo.UpdatePassword(user.ID, hash); err != nil {
		return apperrors.InternalError(err)
	}

	logger.CtxInfo(ctx, "password reset completed", "userId", user.ID)
	return nil
}

func (s *AuthServiceImpl) ListUsers(ctx context.Context, p auth.Principal) ([]models.User, error) {
	if !p.IsAdmin() {
		return nil, apperrors.NewForbiddenError("Forbidden")
	}
	users, err := s.userRepo.FindAll()
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	return users, nil
}

func (s *AuthServiceImpl) UpdateUser(ctx context.Context, p auth.Principal, req *dto.UpdateUserRequest) error {
	if !p.IsAdmin() {
		return apperrors.NewForbiddenError("Forbidden")
	}

	role := models.UserRole(req.Role)
	if req.Role != "" && !models.ValidRole(role) {
		return apperrors.NewBadRequestError("Unknown role")
	}

	// Omitted fields keep their current values.
	skills := req.Skills
	if req.Role == "" || len(skills) == 0 {
		existing, err := s.userRepo.FindByEmail(req.Email)
		if err != nil {
			if errors.Is(err, repositories.ErrUserNotFound) {
				return apperrors.ErrNotFound(err)
			}
			return apperrors.InternalError(err)
		}
		if req.Role == "" {
			role = existing.Role
		}
		if len(skills) == 0 {
			skills = existing.GetSkills()
		}
	}

	if err := s.userRepo.UpdateRoleAndSkills(req.Email, role, skills); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return apperrors.ErrNotFound(err)
		}
		return apperrors.InternalError(err)
	}
	return nil
}
