package user

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mssola/useragent"
	"golang.org/x/crypto/bcrypt"

	"github.com/manny-e1/user-management-backend-2/internal/audit"
	"github.com/manny-e1/user-management-backend-2/internal/user/lockout"
	dErrors "github.com/manny-e1/user-management-backend-2/pkg/domain-errors"
	"github.com/manny-e1/user-management-backend-2/pkg/platform/tx"
	"github.com/manny-e1/user-management-backend-2/pkg/requestcontext"
)

const (
	// passwordHistoryDepth is how many previous hashes a new password is
	// checked against.
	passwordHistoryDepth = 5
	tokenTTL             = 24 * time.Hour
	minPasswordLength    = 8
)

// Service owns the account lifecycle. CRUD operations are performed by an
// authenticated administrator; activation, reset and login are performed by
// the account holder and identified by the account email instead.
type Service struct {
	users      Store
	tokens     TokenStore
	sessions   SessionStore
	lockouts   lockout.Store
	trail      *audit.Service
	runner     tx.Runner
	jwt        *JWTService
	bcryptCost int
	logger     *slog.Logger
}

func NewService(
	users Store,
	tokens TokenStore,
	sessions SessionStore,
	lockouts lockout.Store,
	trail *audit.Service,
	runner tx.Runner,
	jwtSvc *JWTService,
	bcryptCost int,
	logger *slog.Logger,
) *Service {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		users:      users,
		tokens:     tokens,
		sessions:   sessions,
		lockouts:   lockouts,
		trail:      trail,
		runner:     runner,
		jwt:        jwtSvc,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

func (s *Service) record(ctx context.Context, performedBy string, module audit.Module, desc string, err error) {
	status := audit.StatusSuccess
	if err != nil {
		status = audit.StatusFailure
		desc = fmt.Sprintf("%s: %s", desc, dErrors.MessageOf(err))
	}
	s.trail.Record(ctx, audit.Entry{
		PerformedBy: performedBy,
		Module:      module,
		Description: desc,
		Status:      status,
		CreatedAt:   requestcontext.Now(ctx),
	})
}

func actorEmail(ctx context.Context) string {
	if actor, ok := requestcontext.Actor(ctx); ok {
		return actor.Email
	}
	return ""
}

type CreateInput struct {
	Name    string
	Email   string
	StaffID string
	GroupID uuid.UUID
}

// Create registers an inactive account and issues its activation token. The
// caller layer is responsible for delivering the token to the new user.
func (s *Service) Create(ctx context.Context, in CreateInput) (*User, Token, error) {
	actor, ok := requestcontext.Actor(ctx)
	if !ok {
		return nil, Token{}, dErrors.New(dErrors.CodeUnauthorized, "caller identity is required")
	}

	now := requestcontext.Now(ctx)
	u := &User{
		ID:        uuid.New(),
		Name:      in.Name,
		Email:     strings.ToLower(in.Email),
		StaffID:   in.StaffID,
		GroupID:   in.GroupID,
		Status:    StatusInactive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	token := Token{
		ID:        uuid.New(),
		UserID:    u.ID,
		Purpose:   PurposeActivation,
		ExpiresAt: now.Add(tokenTTL),
		CreatedAt: now,
	}

	err := s.runner.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.users.Create(txCtx, u); err != nil {
			return dErrors.FromStore(err, "user")
		}
		if err := s.tokens.Create(txCtx, token); err != nil {
			return dErrors.FromStore(err, "activation token")
		}
		return nil
	})
	s.record(ctx, actor.Email, audit.ModuleUserManagement, "created user "+u.Email, err)
	if err != nil {
		return nil, Token{}, err
	}
	return u, token, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := s.users.Get(ctx, id)
	if err != nil {
		return nil, dErrors.FromStore(err, "user")
	}
	return u, nil
}

func (s *Service) List(ctx context.Context) ([]*User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, dErrors.FromStore(err, "user")
	}
	return users, nil
}

type UpdateInput struct {
	Name    string
	Email   string
	StaffID string
	GroupID uuid.UUID
	Status  Status
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (*User, error) {
	actor, ok := requestcontext.Actor(ctx)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "caller identity is required")
	}
	if in.Status != StatusActive && in.Status != StatusInactive && in.Status != StatusLocked {
		return nil, dErrors.New(dErrors.CodeValidation, "invalid user status")
	}

	u, err := s.users.Get(ctx, id)
	if err != nil {
		err = dErrors.FromStore(err, "user")
		s.record(ctx, actor.Email, audit.ModuleUserManagement, "updated user", err)
		return nil, err
	}

	wasLocked := u.Status == StatusLocked
	u.Name = in.Name
	u.Email = strings.ToLower(in.Email)
	u.StaffID = in.StaffID
	u.GroupID = in.GroupID
	u.Status = in.Status
	u.UpdatedAt = requestcontext.Now(ctx)

	updateErr := s.users.Update(ctx, u)
	if updateErr != nil {
		updateErr = dErrors.FromStore(updateErr, "user")
	}
	s.record(ctx, actor.Email, audit.ModuleUserManagement, "updated user "+u.Email, updateErr)
	if updateErr != nil {
		return nil, updateErr
	}
	// An administrative unlock also resets the failure counter.
	if wasLocked && in.Status == StatusActive {
		if err := s.lockouts.Clear(ctx, u.Email); err != nil {
			s.logger.ErrorContext(ctx, "failed to clear lockout counter", "email", u.Email, "error", err)
		}
	}
	return u, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	actor, ok := requestcontext.Actor(ctx)
	if !ok {
		return dErrors.New(dErrors.CodeUnauthorized, "caller identity is required")
	}

	err := s.runner.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.sessions.ExpireAllForUser(txCtx, id); err != nil {
			return dErrors.FromStore(err, "login session")
		}
		if err := s.users.Delete(txCtx, id); err != nil {
			return dErrors.FromStore(err, "user")
		}
		return nil
	})
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeUpdateFailed) {
			err = dErrors.New(dErrors.CodeDeleteFailed, "deleting user failed, make sure the id is valid")
		}
		s.record(ctx, actor.Email, audit.ModuleUserManagement, "deleted user", err)
		return err
	}
	s.record(ctx, actor.Email, audit.ModuleUserManagement, "deleted user", nil)
	return nil
}

// Activate consumes an activation token and sets the account's first
// password.
func (s *Service) Activate(ctx context.Context, tokenID uuid.UUID, password string) error {
	u, err := s.consumeToken(ctx, tokenID, PurposeActivation, password)
	email := ""
	if u != nil {
		email = u.Email
	}
	s.record(ctx, email, audit.ModuleUserActivation, "activated account", err)
	return err
}

// RequestPasswordReset issues a reset token for the account. The token is
// returned to the caller layer for delivery.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) (Token, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		err = dErrors.FromStore(err, "user")
		s.record(ctx, email, audit.ModulePasswordReset, "requested password reset", err)
		return Token{}, err
	}

	now := requestcontext.Now(ctx)
	token := Token{
		ID:        uuid.New(),
		UserID:    u.ID,
		Purpose:   PurposeReset,
		ExpiresAt: now.Add(tokenTTL),
		CreatedAt: now,
	}
	createErr := s.tokens.Create(ctx, token)
	if createErr != nil {
		createErr = dErrors.FromStore(createErr, "reset token")
	}
	s.record(ctx, u.Email, audit.ModulePasswordReset, "requested password reset", createErr)
	if createErr != nil {
		return Token{}, createErr
	}
	return token, nil
}

// ResetPassword consumes a reset token, sets the new password, and expires
// every active session of the account.
func (s *Service) ResetPassword(ctx context.Context, tokenID uuid.UUID, password string) error {
	u, err := s.consumeToken(ctx, tokenID, PurposeReset, password)
	email := ""
	if u != nil {
		email = u.Email
		if err == nil {
			if sessErr := s.sessions.ExpireAllForUser(ctx, u.ID); sessErr != nil {
				s.logger.ErrorContext(ctx, "failed to expire sessions after reset", "user_id", u.ID, "error", sessErr)
			}
		}
	}
	s.record(ctx, email, audit.ModulePasswordReset, "reset password", err)
	return err
}

// consumeToken validates the token, enforces the password policy and
// history, writes the new hash, and marks the token used, atomically.
func (s *Service) consumeToken(ctx context.Context, tokenID uuid.UUID, purpose TokenPurpose, password string) (*User, error) {
	token, err := s.tokens.Get(ctx, tokenID)
	if err != nil {
		return nil, dErrors.FromStore(err, "token")
	}
	if token.Purpose != purpose || !token.Usable(requestcontext.Now(ctx)) {
		return nil, dErrors.New(dErrors.CodeBadRequest, "token is expired or already used")
	}

	u, err := s.users.Get(ctx, token.UserID)
	if err != nil {
		return nil, dErrors.FromStore(err, "user")
	}

	if err := s.checkPasswordPolicy(ctx, u, password); err != nil {
		return u, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return u, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}

	err = s.runner.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.users.SetPassword(txCtx, u.ID, string(hash), requestcontext.Now(txCtx)); err != nil {
			return dErrors.FromStore(err, "user")
		}
		if err := s.users.AppendPasswordHistory(txCtx, u.ID, string(hash)); err != nil {
			return dErrors.FromStore(err, "password history")
		}
		if err := s.tokens.MarkUsed(txCtx, token.ID); err != nil {
			return dErrors.FromStore(err, "token")
		}
		return nil
	})
	return u, err
}

// ChangePassword verifies the current password before applying the policy
// and history checks to the new one.
func (s *Service) ChangePassword(ctx context.Context, current, password string) error {
	actor, ok := requestcontext.Actor(ctx)
	if !ok {
		return dErrors.New(dErrors.CodeUnauthorized, "caller identity is required")
	}

	u, err := s.users.Get(ctx, actor.ID)
	if err != nil {
		err = dErrors.FromStore(err, "user")
		s.record(ctx, actor.Email, audit.ModulePasswordReset, "changed password", err)
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(current)) != nil {
		err = dErrors.New(dErrors.CodeUnauthorized, "current password is incorrect")
		s.record(ctx, actor.Email, audit.ModulePasswordReset, "changed password", err)
		return err
	}
	if err := s.checkPasswordPolicy(ctx, u, password); err != nil {
		s.record(ctx, actor.Email, audit.ModulePasswordReset, "changed password", err)
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}

	err = s.runner.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.users.SetPassword(txCtx, u.ID, string(hash), requestcontext.Now(txCtx)); err != nil {
			return dErrors.FromStore(err, "user")
		}
		return dErrors.FromStore(s.users.AppendPasswordHistory(txCtx, u.ID, string(hash)), "password history")
	})
	s.record(ctx, actor.Email, audit.ModulePasswordReset, "changed password", err)
	return err
}

func (s *Service) checkPasswordPolicy(ctx context.Context, u *User, password string) error {
	if len(password) < minPasswordLength {
		return dErrors.Newf(dErrors.CodeValidation, "password must be at least %d characters", minPasswordLength)
	}
	if u.PasswordHash != "" && bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil {
		return dErrors.New(dErrors.CodeValidation, "password must differ from the current one")
	}
	history, err := s.users.PasswordHistory(ctx, u.ID, passwordHistoryDepth)
	if err != nil {
		return dErrors.FromStore(err, "password history")
	}
	for _, h := range history {
		if bcrypt.CompareHashAndPassword([]byte(h), []byte(password)) == nil {
			return dErrors.Newf(dErrors.CodeValidation, "password must differ from the previous %d passwords", passwordHistoryDepth)
		}
	}
	return nil
}

type LoginInput struct {
	Email     string
	Password  string
	IP        string
	UserAgent string
}

type LoginResult struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

// Login verifies credentials, counts failures toward the lockout, and on
// success issues a JWT and persists the session.
func (s *Service) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	email := strings.ToLower(in.Email)
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		err = dErrors.New(dErrors.CodeUnauthorized, "invalid email or password")
		s.record(ctx, email, audit.ModuleUserLogin, "logged in", err)
		return nil, err
	}
	if u.Status == StatusLocked {
		err = dErrors.New(dErrors.CodeForbidden, "account is locked")
		s.record(ctx, email, audit.ModuleUserLogin, "logged in", err)
		return nil, err
	}
	if !u.Activated() || u.Status == StatusInactive {
		err = dErrors.New(dErrors.CodeForbidden, "account is not activated")
		s.record(ctx, email, audit.ModuleUserLogin, "logged in", err)
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)) != nil {
		s.handleWrongPassword(ctx, u)
		err = dErrors.New(dErrors.CodeUnauthorized, "invalid email or password")
		s.record(ctx, email, audit.ModuleUserLogin, "logged in", err)
		return nil, err
	}

	if err := s.lockouts.Clear(ctx, email); err != nil {
		s.logger.ErrorContext(ctx, "failed to clear lockout counter", "email", email, "error", err)
	}

	now := requestcontext.Now(ctx)
	jwtToken, err := s.jwt.Generate(u.ID, u.Email, u.Role, now)
	if err != nil {
		err = dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue token")
		s.record(ctx, email, audit.ModuleUserLogin, "logged in", err)
		return nil, err
	}
	session := &Session{
		ID:        uuid.New(),
		UserID:    u.ID,
		Token:     jwtToken,
		Role:      u.Role,
		IP:        in.IP,
		UserAgent: normalizeUserAgent(in.UserAgent),
		Status:    SessionActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		err = dErrors.FromStore(err, "login session")
		s.record(ctx, email, audit.ModuleUserLogin, "logged in", err)
		return nil, err
	}

	s.record(ctx, email, audit.ModuleUserLogin, "logged in", nil)
	return &LoginResult{Token: jwtToken, User: u}, nil
}

// handleWrongPassword counts the failure and locks the account once the
// threshold is reached.
func (s *Service) handleWrongPassword(ctx context.Context, u *User) {
	attempts, err := s.lockouts.RecordFailure(ctx, u.Email)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to record login failure", "email", u.Email, "error", err)
		return
	}
	if attempts < lockout.MaxAttempts {
		return
	}
	u.Status = StatusLocked
	u.UpdatedAt = requestcontext.Now(ctx)
	if err := s.users.Update(ctx, u); err != nil {
		s.logger.ErrorContext(ctx, "failed to lock account", "email", u.Email, "error", err)
		return
	}
	if err := s.sessions.ExpireAllForUser(ctx, u.ID); err != nil {
		s.logger.ErrorContext(ctx, "failed to expire sessions on lock", "email", u.Email, "error", err)
	}
	s.logger.WarnContext(ctx, "account locked after repeated login failures",
		"email", u.Email,
		"attempts", attempts,
	)
}

// Logout expires the session behind the bearer token.
func (s *Service) Logout(ctx context.Context, token string) error {
	err := s.sessions.Expire(ctx, token)
	if err != nil {
		err = dErrors.FromStore(err, "login session")
	}
	s.record(ctx, actorEmail(ctx), audit.ModuleUserLogout, "logged out", err)
	return err
}

// ResolveSession turns a bearer token into the caller identity. The auth
// middleware is the only caller.
func (s *Service) ResolveSession(ctx context.Context, token string) (requestcontext.ActorInfo, error) {
	claims, err := s.jwt.Validate(token)
	if err != nil {
		return requestcontext.ActorInfo{}, err
	}
	session, err := s.sessions.GetActiveByToken(ctx, token)
	if err != nil {
		return requestcontext.ActorInfo{}, dErrors.New(dErrors.CodeUnauthorized, "session is no longer active")
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil || userID != session.UserID {
		return requestcontext.ActorInfo{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	return requestcontext.ActorInfo{ID: session.UserID, Email: claims.Email, Role: session.Role}, nil
}

// normalizeUserAgent reduces a raw User-Agent header to "Browser version on
// OS" for readable session listings. Unparseable agents pass through raw.
func normalizeUserAgent(raw string) string {
	if raw == "" {
		return ""
	}
	ua := useragent.New(raw)
	name, version := ua.Browser()
	if name == "" {
		return raw
	}
	if os := ua.OS(); os != "" {
		return fmt.Sprintf("%s %s on %s", name, version, os)
	}
	return fmt.Sprintf("%s %s", name, version)
}
