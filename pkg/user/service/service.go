package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	apperrors "github.com/luminet/hub-api/pkg/app/errors"
	"github.com/luminet/hub-api/pkg/auth"
	"github.com/luminet/hub-api/pkg/hubdb"
	"github.com/luminet/hub-api/pkg/schema"
	"github.com/luminet/hub-api/pkg/user"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailNotVerified   = errors.New("google account email not verified")
)

// Store is the narrow data-access interface for the user service.
// Defined here to keep the service decoupled from hubdb implementation details.
type Store interface {
	CreateUser(ctx context.Context, usr *schema.User) error
	GetUserByID(ctx context.Context, id string) (*schema.User, error)
	GetUserByEmail(ctx context.Context, email string) (*schema.User, error)
	GetUserByGoogleID(ctx context.Context, googleID string) (*schema.User, error)
	LinkGoogleID(ctx context.Context, userID, googleID string) error
	GetCredits(ctx context.Context, userID string) (int64, error)
	CreateSession(ctx context.Context, sess *schema.Session) error
	DeleteSession(ctx context.Context, id string) error
}

// GoogleVerifier validates Google ID tokens.
type GoogleVerifier interface {
	VerifyIDToken(tokenString string) (*auth.GoogleIdentity, error)
}

// Service defines the interface for account and session business logic
type Service interface {
	SignUp(ctx context.Context, req *user.SignUpRequest) (*user.AuthResult, error)
	LogIn(ctx context.Context, req *user.LogInRequest) (*user.AuthResult, error)
	SignInWithGoogle(ctx context.Context, req *user.GoogleSignInRequest) (*user.AuthResult, error)
	LogOut(ctx context.Context, sessionID string) error
	Profile(ctx context.Context, userID string) (*user.Profile, error)
}

type userService struct {
	store          Store
	google         GoogleVerifier
	logger         *zap.Logger
	validate       *validator.Validate
	sessionTTL     time.Duration
	defaultCredits int64
}

// NewService creates a new user service. Every freshly created account
// starts with defaultCredits on its balance.
func NewService(
	store Store,
	google GoogleVerifier,
	logger *zap.Logger,
	sessionTTL time.Duration,
	defaultCredits int64,
) Service {
	return &userService{
		store:          store,
		google:         google,
		logger:         logger,
		validate:       validator.New(validator.WithRequiredStructEnabled()),
		sessionTTL:     sessionTTL,
		defaultCredits: defaultCredits,
	}
}

// SignUp registers an email/password account and opens a session for it.
func (s *userService) SignUp(ctx context.Context, req *user.SignUpRequest) (*user.AuthResult, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, apperrors.BadRequestError(err, "invalid signup request")
	}

	if _, err := s.store.GetUserByEmail(ctx, req.Email); err == nil {
		return nil, apperrors.ConflictError(ErrEmailTaken, "email already registered")
	} else if !errors.Is(err, hubdb.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, apperrors.BadRequestError(err, "invalid password")
	}

	usr := &schema.User{
		ID:           schema.NewUserID(),
		Email:        &req.Email,
		PasswordHash: &hash,
		Credits:      s.defaultCredits,
	}
	if err := s.store.CreateUser(ctx, usr); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("User signed up", zap.String("user_id", usr.ID))

	return s.openSession(ctx, usr.ID)
}

// LogIn authenticates an email/password account and opens a session. The
// same error comes back for an unknown email and a wrong password, so the
// endpoint does not leak which addresses hold accounts.
func (s *userService) LogIn(ctx context.Context, req *user.LogInRequest) (*user.AuthResult, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, apperrors.BadRequestError(err, "invalid login request")
	}

	usr, err := s.store.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, hubdb.ErrUserNotFound) {
			return nil, apperrors.UnAuthorizedError(ErrInvalidCredentials, "invalid email or password")
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if usr.PasswordHash == nil {
		// Google-only account, no password to check.
		return nil, apperrors.UnAuthorizedError(ErrInvalidCredentials, "invalid email or password")
	}

	if err := auth.CheckPassword(*usr.PasswordHash, req.Password); err != nil {
		if errors.Is(err, auth.ErrWrongPassword) {
			return nil, apperrors.UnAuthorizedError(ErrInvalidCredentials, "invalid email or password")
		}
		return nil, fmt.Errorf("failed to check password: %w", err)
	}

	return s.openSession(ctx, usr.ID)
}

// SignInWithGoogle authenticates with a Google ID token. First sign-in
// creates the account; a token whose email matches an existing
// password account links the Google identity to it instead.
func (s *userService) SignInWithGoogle(ctx context.Context, req *user.GoogleSignInRequest) (*user.AuthResult, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, apperrors.BadRequestError(err, "invalid google sign-in request")
	}

	identity, err := s.google.VerifyIDToken(req.IDToken)
	if err != nil {
		return nil, apperrors.UnAuthorizedError(err, "invalid google token")
	}
	if !identity.EmailVerified {
		return nil, apperrors.ForbiddenError(ErrEmailNotVerified, "google account email not verified")
	}

	usr, err := s.store.GetUserByGoogleID(ctx, identity.Subject)
	switch {
	case err == nil:
		return s.openSession(ctx, usr.ID)
	case !errors.Is(err, hubdb.ErrUserNotFound):
		return nil, fmt.Errorf("failed to look up google identity: %w", err)
	}

	// Link to an existing password account with the same email.
	if identity.Email != "" {
		existing, err := s.store.GetUserByEmail(ctx, identity.Email)
		if err == nil {
			if err := s.store.LinkGoogleID(ctx, existing.ID, identity.Subject); err != nil {
				return nil, fmt.Errorf("failed to link google identity: %w", err)
			}
			s.logger.Info("Linked google identity to existing account",
				zap.String("user_id", existing.ID))
			return s.openSession(ctx, existing.ID)
		}
		if !errors.Is(err, hubdb.ErrUserNotFound) {
			return nil, fmt.Errorf("failed to look up email: %w", err)
		}
	}

	usr = &schema.User{
		ID:       schema.NewUserID(),
		GoogleID: &identity.Subject,
		Credits:  s.defaultCredits,
	}
	if identity.Email != "" {
		usr.Email = &identity.Email
	}
	if err := s.store.CreateUser(ctx, usr); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("User signed up via google", zap.String("user_id", usr.ID))

	return s.openSession(ctx, usr.ID)
}

// LogOut destroys the session. Idempotent: logging out a dead session
// succeeds quietly.
func (s *userService) LogOut(ctx context.Context, sessionID string) error {
	if err := s.store.DeleteSession(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Profile returns the authenticated user's own account view.
func (s *userService) Profile(ctx context.Context, userID string) (*user.Profile, error) {
	usr, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, hubdb.ErrUserNotFound) {
			return nil, apperrors.ResourceNotFoundError(err, "user not found")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	profile := &user.Profile{
		ID:      usr.ID,
		Credits: usr.Credits,
	}
	if usr.Email != nil {
		profile.Email = *usr.Email
	}
	return profile, nil
}

func (s *userService) openSession(ctx context.Context, userID string) (*user.AuthResult, error) {
	sess := &schema.Session{
		ID:        schema.NewSessionID(),
		UserID:    userID,
		ExpiresAt: time.Now().UTC().Add(s.sessionTTL),
	}
	if err := s.store.CreateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return &user.AuthResult{
		UserID:    userID,
		SessionID: sess.ID,
		ExpiresAt: sess.ExpiresAt,
	}, nil
}
