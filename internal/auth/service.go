package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hongminglow/taskql/internal/models"
	"github.com/hongminglow/taskql/internal/models/dto"
	"github.com/hongminglow/taskql/internal/storage"
)

// LoginMessage accompanies every successful login.
const LoginMessage = "Login successful"

// Outcome labels passed to Recorder.
const (
	OutcomeSuccess         = "success"
	OutcomeInvalidInput    = "invalid_input"
	OutcomeBadCredentials  = "bad_credentials"
	OutcomeDuplicate       = "duplicate"
	OutcomeError           = "error"
	OutcomeMalformed       = "malformed"
	OutcomeBadSignature    = "bad_signature"
	OutcomeExpired         = "expired"
	OutcomeUnknownIdentity = "unknown_identity"
)

// Recorder receives auth outcomes; metrics.Collector implements it.
type Recorder interface {
	RecordLogin(outcome string)
	RecordRegistration(outcome string)
	RecordTokenVerification(outcome string)
}

type nopRecorder struct{}

func (nopRecorder) RecordLogin(string)             {}
func (nopRecorder) RecordRegistration(string)      {}
func (nopRecorder) RecordTokenVerification(string) {}

// Service implements registration, login and bearer-token authentication.
type Service struct {
	users    storage.UserStore
	hasher   *Hasher
	tokens   *TokenManager
	logger   *slog.Logger
	recorder Recorder

	// dummyHash is compared against when the email is unknown so both
	// bad-credential paths pay for one bcrypt comparison.
	dummyHash string
}

// NewService wires the auth flow. logger and recorder may be nil.
func NewService(users storage.UserStore, hasher *Hasher, tokens *TokenManager, logger *slog.Logger, recorder Recorder) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	dummy, err := hasher.Hash("taskql-placeholder-password")
	if err != nil {
		return nil, fmt.Errorf("prepare placeholder hash: %w", err)
	}
	return &Service{
		users:     users,
		hasher:    hasher,
		tokens:    tokens,
		logger:    logger,
		recorder:  recorder,
		dummyHash: dummy,
	}, nil
}

// Register validates req, hashes the password and stores a new user.
func (s *Service) Register(ctx context.Context, req dto.RegisterRequest) (models.User, error) {
	if err := validateRegistration(req); err != nil {
		s.recorder.RecordRegistration(OutcomeInvalidInput)
		return models.User{}, err
	}
	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		s.recorder.RecordRegistration(OutcomeError)
		return models.User{}, err
	}

	created, err := s.users.CreateUser(ctx, models.User{
		Firstname:    strings.TrimSpace(req.Firstname),
		Lastname:     strings.TrimSpace(req.Lastname),
		Email:        NormalizeEmail(req.Email),
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			s.recorder.RecordRegistration(OutcomeDuplicate)
			return models.User{}, ErrDuplicateEmail
		}
		s.recorder.RecordRegistration(OutcomeError)
		return models.User{}, fmt.Errorf("create user: %w", err)
	}

	s.recorder.RecordRegistration(OutcomeSuccess)
	s.logger.InfoContext(ctx, "user registered", slog.String("user_id", created.ID))
	return created, nil
}

// Login checks email and password and issues a token.
// Unknown email and wrong password both return ErrBadCredentials.
func (s *Service) Login(ctx context.Context, email, password string) (dto.LoginResponse, error) {
	email = NormalizeEmail(email)
	if email == "" {
		s.recorder.RecordLogin(OutcomeInvalidInput)
		return dto.LoginResponse{}, &ValidationError{Field: "email", Message: "is required"}
	}
	if password == "" {
		s.recorder.RecordLogin(OutcomeInvalidInput)
		return dto.LoginResponse{}, &ValidationError{Field: "password", Message: "must not be empty"}
	}
	if len(password) > maxPasswordBytes {
		s.recorder.RecordLogin(OutcomeInvalidInput)
		return dto.LoginResponse{}, &ValidationError{Field: "password", Message: fmt.Sprintf("must be at most %d bytes", maxPasswordBytes)}
	}

	user, err := s.users.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.hasher.Verify(password, s.dummyHash)
			s.recorder.RecordLogin(OutcomeBadCredentials)
			s.logger.DebugContext(ctx, "login rejected", slog.String("reason", "unknown email"))
			return dto.LoginResponse{}, ErrBadCredentials
		}
		s.recorder.RecordLogin(OutcomeError)
		return dto.LoginResponse{}, fmt.Errorf("find user: %w", err)
	}
	if !s.hasher.Verify(password, user.PasswordHash) {
		s.recorder.RecordLogin(OutcomeBadCredentials)
		s.logger.DebugContext(ctx, "login rejected", slog.String("reason", "password mismatch"), slog.String("user_id", user.ID))
		return dto.LoginResponse{}, ErrBadCredentials
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		s.recorder.RecordLogin(OutcomeError)
		return dto.LoginResponse{}, err
	}
	s.recorder.RecordLogin(OutcomeSuccess)
	return dto.LoginResponse{Token: token, Message: LoginMessage}, nil
}

// Authenticate resolves a bearer token to its user.
// Token failures and deleted identities wrap ErrUnauthorized; store failures
// are returned unwrapped so callers can tell them apart.
func (s *Service) Authenticate(ctx context.Context, raw string) (models.User, error) {
	userID, err := s.tokens.Verify(raw)
	if err != nil {
		s.recorder.RecordTokenVerification(verificationOutcome(err))
		return models.User{}, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}

	user, err := s.users.FindUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.recorder.RecordTokenVerification(OutcomeUnknownIdentity)
			return models.User{}, fmt.Errorf("%w: identity %s no longer exists", ErrUnauthorized, userID)
		}
		s.recorder.RecordTokenVerification(OutcomeError)
		return models.User{}, fmt.Errorf("load identity: %w", err)
	}
	s.recorder.RecordTokenVerification(OutcomeSuccess)
	return user, nil
}

func verificationOutcome(err error) string {
	switch {
	case errors.Is(err, ErrTokenExpired):
		return OutcomeExpired
	case errors.Is(err, ErrBadSignature):
		return OutcomeBadSignature
	default:
		return OutcomeMalformed
	}
}
