// Package service holds the authentication and credential management flow.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/geocoder89/authhub/internal/auth"
	"github.com/geocoder89/authhub/internal/domain/user"
	"github.com/geocoder89/authhub/internal/security"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const minPasswordLen = 6

// checkDummy burns one bcrypt compare when the identifier matched no user.
var checkDummy = security.CheckDummy

// UserStore is the credential store. Every method must be a single
// parameterized statement against the backing store.
type UserStore interface {
	GetByLogin(ctx context.Context, identifier string) (user.User, error)
	GetByID(ctx context.Context, id int64) (user.User, error)
	UpdateName(ctx context.Context, id int64, name string) (user.User, error)
	GetPasswordHash(ctx context.Context, id int64) (string, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
}

type TokenIssuer interface {
	Issue(id auth.Identity) (string, error)
}

// OutcomeRecorder counts operation results. observability.Prom satisfies it.
type OutcomeRecorder interface {
	AuthOutcome(op, result string)
}

type noopRecorder struct{}

func (noopRecorder) AuthOutcome(string, string) {}

type LoginResult struct {
	Token string       `json:"token"`
	User  user.Profile `json:"user"`
}

type AuthService struct {
	users  UserStore
	tokens TokenIssuer
	log    *slog.Logger
	rec    OutcomeRecorder
	tracer trace.Tracer
}

func NewAuthService(users UserStore, tokens TokenIssuer, log *slog.Logger, rec OutcomeRecorder) *AuthService {
	if log == nil {
		log = slog.Default()
	}
	if rec == nil {
		rec = noopRecorder{}
	}

	return &AuthService{
		users:  users,
		tokens: tokens,
		log:    log,
		rec:    rec,
		tracer: otel.Tracer("github.com/geocoder89/authhub/internal/service"),
	}
}

func (s *AuthService) start(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "AuthService."+op, trace.WithAttributes(attrs...))
}

// finish records the outcome on the span and the recorder, then passes err through.
func (s *AuthService) finish(span trace.Span, op string, err error) error {
	defer span.End()

	result := "ok"
	var verr *ValidationError

	switch {
	case err == nil:
	case errors.As(err, &verr):
		result = "invalid_input"
	case errors.Is(err, ErrInvalidCredentials):
		result = "invalid_credentials"
	case errors.Is(err, user.ErrNotFound):
		result = "not_found"
	default:
		result = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, "internal")
	}

	s.rec.AuthOutcome(op, result)
	return err
}

// Login accepts an email or external user id. An unknown identifier and a
// wrong password both return ErrInvalidCredentials after the same bcrypt work.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (LoginResult, error) {
	ctx, span := s.start(ctx, "Login")

	res, err := s.login(ctx, identifier, password)
	return res, s.finish(span, "login", err)
}

func (s *AuthService) login(ctx context.Context, identifier, password string) (LoginResult, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return LoginResult{}, ErrMissingLoginFields
	}

	u, err := s.users.GetByLogin(ctx, identifier)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			checkDummy(password)
			s.log.DebugContext(ctx, "login rejected", "reason", "unknown_identifier")
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, storeErr("get user by login", err)
	}

	ok, err := security.CheckPassword(u.PasswordHash, password)
	if err != nil {
		s.log.ErrorContext(ctx, "stored password hash unusable", "user_id", u.ID, "err", err)
		return LoginResult{}, err
	}
	if !ok {
		s.log.DebugContext(ctx, "login rejected", "reason", "wrong_password", "user_id", u.ID)
		return LoginResult{}, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(auth.Identity{
		ID:     u.ID,
		UserID: u.UserID,
		Email:  u.Email,
		Name:   u.Name,
	})
	if err != nil {
		return LoginResult{}, err
	}

	return LoginResult{Token: token, User: u.Public()}, nil
}

func (s *AuthService) Profile(ctx context.Context, id int64) (user.Profile, error) {
	ctx, span := s.start(ctx, "Profile", attribute.Int64("user.id", id))

	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return user.Profile{}, s.finish(span, "profile", storeErr("get user by id", err))
	}

	return u.Public(), s.finish(span, "profile", nil)
}

// UpdateName trims the name and stores it with a single update-and-return.
func (s *AuthService) UpdateName(ctx context.Context, id int64, name string) (user.Profile, error) {
	ctx, span := s.start(ctx, "UpdateName", attribute.Int64("user.id", id))

	name = strings.TrimSpace(name)
	if name == "" {
		return user.Profile{}, s.finish(span, "update_name", ErrInvalidName)
	}

	u, err := s.users.UpdateName(ctx, id, name)
	if err != nil {
		return user.Profile{}, s.finish(span, "update_name", storeErr("update name", err))
	}

	return u.Public(), s.finish(span, "update_name", nil)
}

// ChangePassword replaces the stored hash. Tokens issued before the change
// stay valid until they expire.
func (s *AuthService) ChangePassword(ctx context.Context, id int64, current, next string) error {
	ctx, span := s.start(ctx, "ChangePassword", attribute.Int64("user.id", id))

	return s.finish(span, "change_password", s.changePassword(ctx, id, current, next))
}

func (s *AuthService) changePassword(ctx context.Context, id int64, current, next string) error {
	if err := validateNewPassword(current, next); err != nil {
		return err
	}

	hash, err := s.users.GetPasswordHash(ctx, id)
	if err != nil {
		return storeErr("get password hash", err)
	}

	ok, err := security.CheckPassword(hash, current)
	if err != nil {
		s.log.ErrorContext(ctx, "stored password hash unusable", "user_id", id, "err", err)
		return err
	}
	if !ok {
		return ErrInvalidCredentials
	}

	newHash, err := security.HashPassword(next)
	if err != nil {
		return err
	}

	if err := s.users.UpdatePassword(ctx, id, newHash); err != nil {
		return storeErr("update password", err)
	}

	s.log.InfoContext(ctx, "password changed", "user_id", id)
	return nil
}

func validateNewPassword(current, next string) error {
	switch {
	case current == "" || next == "":
		return ErrMissingPassword
	case utf8.RuneCountInString(next) < minPasswordLen:
		return ErrPasswordTooShort
	case next == current:
		return ErrPasswordUnchanged
	case len(next) > security.MaxPasswordBytes:
		return ErrPasswordTooLong
	}
	return nil
}
