package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Shivanand-hulikatti/campus-events/internal/apperr"
	"github.com/Shivanand-hulikatti/campus-events/internal/auth"
	"github.com/Shivanand-hulikatti/campus-events/internal/authz"
	"github.com/Shivanand-hulikatti/campus-events/internal/model"
	"github.com/Shivanand-hulikatti/campus-events/internal/repository"
	"github.com/Shivanand-hulikatti/campus-events/internal/validate"
)

// UserService handles accounts and sessions.
type UserService struct {
	store       repository.Store
	tokens      *auth.Tokens
	adminEmails []string
	log         *zerolog.Logger
	now         Clock
}

// NewUserService constructs a UserService. Accounts signing up with one of
// adminEmails receive the admin role.
func NewUserService(store repository.Store, tokens *auth.Tokens, adminEmails []string, log *zerolog.Logger, now Clock) *UserService {
	normalized := make([]string, 0, len(adminEmails))
	for _, e := range adminEmails {
		if e = normalizeEmail(e); e != "" {
			normalized = append(normalized, e)
		}
	}
	return &UserService{store: store, tokens: tokens, adminEmails: normalized, log: log, now: clockOrNow(now)}
}

// SignUp creates an account and opens a session for it.
func (s *UserService) SignUp(ctx context.Context, req model.SignUpRequest) (*model.Session, error) {
	req.Email = normalizeEmail(req.Email)
	if err := validate.Struct(ctx, req); err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	role := model.RoleStudent
	if slices.Contains(s.adminEmails, req.Email) {
		role = model.RoleAdmin
	}
	u := model.User{
		ID:           uuid.New().String(),
		Email:        req.Email,
		Name:         strings.TrimSpace(req.Name),
		Role:         role,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.store.CreateUser(ctx, &u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Duplicate("an account for %s already exists", u.Email)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.log.Info().Str("user_id", u.ID).Str("role", string(u.Role)).Msg("account created")
	return s.session(u)
}

// SignIn exchanges credentials for a session.
func (s *UserService) SignIn(ctx context.Context, req model.SignInRequest) (*model.Session, error) {
	req.Email = normalizeEmail(req.Email)
	if err := validate.Struct(ctx, req); err != nil {
		return nil, err
	}
	u, err := s.store.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.Unauthorized("invalid email or password")
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	if !auth.CheckPassword(u.PasswordHash, req.Password) {
		return nil, apperr.Unauthorized("invalid email or password")
	}
	return s.session(*u)
}

// SignOut revokes the session token carried by ctx.
func (s *UserService) SignOut(ctx context.Context) error {
	tok, ok := auth.TokenFrom(ctx)
	if !ok {
		return apperr.Unauthorized("not signed in")
	}
	s.tokens.Revoke(tok)
	return nil
}

// CurrentUser returns the account behind actor.
func (s *UserService) CurrentUser(ctx context.Context, actor model.Actor) (*model.User, error) {
	if actor.ID == "" {
		return nil, apperr.Unauthorized("not signed in")
	}
	u, err := s.store.GetUser(ctx, actor.ID)
	if err != nil {
		return nil, notFound(err, "user", actor.ID)
	}
	return u, nil
}

// ListUsers returns every account to an administrator.
func (s *UserService) ListUsers(ctx context.Context, actor model.Actor) ([]model.User, error) {
	if !authz.CanManageUsers(actor) {
		return nil, apperr.Unauthorized("only administrators may list users")
	}
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// GetUser returns one account. Users may read their own; administrators any.
func (s *UserService) GetUser(ctx context.Context, actor model.Actor, id string) (*model.User, error) {
	if err := requireID("user", id); err != nil {
		return nil, err
	}
	if actor.ID != id && !authz.CanManageUsers(actor) {
		return nil, apperr.Unauthorized("only administrators may read other accounts")
	}
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return nil, notFound(err, "user", id)
	}
	return u, nil
}

// SetRole changes another user's role. Administrators cannot change their
// own role. The new role applies to tokens issued after the change.
func (s *UserService) SetRole(ctx context.Context, actor model.Actor, id string, req model.SetRoleRequest) (*model.User, error) {
	if !authz.CanManageUsers(actor) {
		return nil, apperr.Unauthorized("only administrators may change roles")
	}
	if err := requireID("user", id); err != nil {
		return nil, err
	}
	if err := validate.Struct(ctx, req); err != nil {
		return nil, err
	}
	if id == actor.ID {
		return nil, apperr.Validation("cannot change your own role")
	}
	if err := s.store.SetUserRole(ctx, id, req.Role); err != nil {
		return nil, notFound(err, "user", id)
	}
	s.log.Info().Str("user_id", id).Str("role", string(req.Role)).Str("actor_id", actor.ID).Msg("user role changed")
	return s.GetUser(ctx, actor, id)
}

func (s *UserService) session(u model.User) (*model.Session, error) {
	token, exp, err := s.tokens.Issue(u)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &model.Session{Token: token, ExpiresAt: exp, User: u}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
