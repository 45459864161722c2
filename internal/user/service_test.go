package user

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"github.com/manny-e1/user-management-backend-2/internal/audit"
	"github.com/manny-e1/user-management-backend-2/internal/platform/logger"
	"github.com/manny-e1/user-management-backend-2/internal/user/lockout"
	dErrors "github.com/manny-e1/user-management-backend-2/pkg/domain-errors"
	"github.com/manny-e1/user-management-backend-2/pkg/platform/tx"
	"github.com/manny-e1/user-management-backend-2/pkg/requestcontext"
	"github.com/manny-e1/user-management-backend-2/pkg/testutil"
)

type ServiceSuite struct {
	suite.Suite
	store   *MemoryStore
	trail   *audit.MemoryStore
	service *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.store = NewMemoryStore()
	s.trail = audit.NewMemoryStore()
	s.service = NewService(
		s.store, s.store.Tokens(), s.store.Sessions(),
		lockout.NewMemoryStore(),
		audit.NewService(s.trail, logger.NewNop()),
		tx.NopRunner{},
		NewJWTService("test-signing-key", time.Hour),
		bcrypt.MinCost,
		logger.NewNop(),
	)
}

func (s *ServiceSuite) adminCtx() context.Context {
	return requestcontext.WithActor(context.Background(), requestcontext.ActorInfo{
		ID: uuid.New(), Email: "admin@bank.test", Role: "admin",
	})
}

func (s *ServiceSuite) createActivated(email, password string) *User {
	u, token, err := s.service.Create(s.adminCtx(), CreateInput{
		Name: "Jordan Teoh", Email: email, StaffID: "S1001", GroupID: uuid.New(),
	})
	s.Require().NoError(err)
	s.Require().NoError(s.service.Activate(context.Background(), token.ID, password))
	return u
}

func (s *ServiceSuite) TestCreateLeavesAccountInactive() {
	u, token, err := s.service.Create(s.adminCtx(), CreateInput{
		Name: "Jordan Teoh", Email: "Jordan@Bank.Test", StaffID: "S1001", GroupID: uuid.New(),
	})
	s.Require().NoError(err)

	s.Equal(StatusInactive, u.Status)
	s.Equal("jordan@bank.test", u.Email, "email stored lowercased")
	s.False(u.Activated())
	s.Equal(PurposeActivation, token.Purpose)
	s.True(token.ExpiresAt.After(time.Now()))
}

func (s *ServiceSuite) TestCreateDuplicateEmailConflicts() {
	s.createActivated("jordan@bank.test", "correct-horse-1")

	_, _, err := s.service.Create(s.adminCtx(), CreateInput{
		Name: "Imposter", Email: "JORDAN@bank.test", StaffID: "S1002", GroupID: uuid.New(),
	})
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *ServiceSuite) TestActivateSetsPasswordOnce() {
	_, token, err := s.service.Create(s.adminCtx(), CreateInput{
		Name: "Jordan Teoh", Email: "jordan@bank.test", StaffID: "S1001", GroupID: uuid.New(),
	})
	s.Require().NoError(err)

	s.Require().NoError(s.service.Activate(context.Background(), token.ID, "correct-horse-1"))

	u, err := s.store.GetByEmail(context.Background(), "jordan@bank.test")
	s.Require().NoError(err)
	s.Equal(StatusActive, u.Status)
	s.True(u.Activated())

	// Single use.
	err = s.service.Activate(context.Background(), token.ID, "another-pass-9")
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func (s *ServiceSuite) TestActivateRejectsExpiredToken() {
	_, token, err := s.service.Create(s.adminCtx(), CreateInput{
		Name: "Jordan Teoh", Email: "jordan@bank.test", StaffID: "S1001", GroupID: uuid.New(),
	})
	s.Require().NoError(err)

	late := requestcontext.WithTime(context.Background(), token.ExpiresAt.Add(time.Minute))
	err = s.service.Activate(late, token.ID, "correct-horse-1")
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func (s *ServiceSuite) TestActivateRejectsShortPassword() {
	_, token, err := s.service.Create(s.adminCtx(), CreateInput{
		Name: "Jordan Teoh", Email: "jordan@bank.test", StaffID: "S1001", GroupID: uuid.New(),
	})
	s.Require().NoError(err)

	err = s.service.Activate(context.Background(), token.ID, "short")
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *ServiceSuite) TestLoginIssuesSession() {
	s.createActivated("jordan@bank.test", "correct-horse-1")

	result, err := s.service.Login(context.Background(), LoginInput{
		Email:    "jordan@bank.test",
		Password: "correct-horse-1",
		IP:       "10.1.2.3",
		UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
			"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	})
	s.Require().NoError(err)
	s.NotEmpty(result.Token)

	session, err := s.store.GetActiveSessionByToken(context.Background(), result.Token)
	s.Require().NoError(err)
	s.Equal("10.1.2.3", session.IP)
	s.Contains(session.UserAgent, "Chrome")
	s.Contains(session.UserAgent, "on Windows")

	actor, err := s.service.ResolveSession(context.Background(), result.Token)
	s.Require().NoError(err)
	s.Equal("jordan@bank.test", actor.Email)
}

func (s *ServiceSuite) TestLoginWrongPasswordLocksAfterThreshold() {
	s.createActivated("jordan@bank.test", "correct-horse-1")

	for i := 0; i < lockout.MaxAttempts; i++ {
		_, err := s.service.Login(context.Background(), LoginInput{
			Email: "jordan@bank.test", Password: "wrong-password",
		})
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	}

	u, err := s.store.GetByEmail(context.Background(), "jordan@bank.test")
	s.Require().NoError(err)
	s.Equal(StatusLocked, u.Status)

	// Even the right password is refused once locked.
	_, err = s.service.Login(context.Background(), LoginInput{
		Email: "jordan@bank.test", Password: "correct-horse-1",
	})
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *ServiceSuite) TestLoginSuccessResetsFailureCount() {
	s.createActivated("jordan@bank.test", "correct-horse-1")

	for i := 0; i < lockout.MaxAttempts-1; i++ {
		_, err := s.service.Login(context.Background(), LoginInput{
			Email: "jordan@bank.test", Password: "wrong-password",
		})
		s.Error(err)
	}
	_, err := s.service.Login(context.Background(), LoginInput{
		Email: "jordan@bank.test", Password: "correct-horse-1",
	})
	s.Require().NoError(err)

	// The counter restarted; two more failures do not lock.
	for i := 0; i < lockout.MaxAttempts-1; i++ {
		_, err := s.service.Login(context.Background(), LoginInput{
			Email: "jordan@bank.test", Password: "wrong-password",
		})
		s.Error(err)
	}
	u, err := s.store.GetByEmail(context.Background(), "jordan@bank.test")
	s.Require().NoError(err)
	s.Equal(StatusActive, u.Status)
}

func (s *ServiceSuite) TestLoginUnknownEmailIsGenericUnauthorized() {
	_, err := s.service.Login(context.Background(), LoginInput{
		Email: "ghost@bank.test", Password: "whatever-1",
	})
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	s.NotContains(dErrors.MessageOf(err), "not found")
}

func (s *ServiceSuite) TestLogoutExpiresSession() {
	s.createActivated("jordan@bank.test", "correct-horse-1")
	result, err := s.service.Login(context.Background(), LoginInput{
		Email: "jordan@bank.test", Password: "correct-horse-1",
	})
	s.Require().NoError(err)

	s.Require().NoError(s.service.Logout(context.Background(), result.Token))

	_, err = s.service.ResolveSession(context.Background(), result.Token)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *ServiceSuite) TestResetPasswordRejectsRecentPasswords() {
	u := s.createActivated("jordan@bank.test", "correct-horse-1")

	token, err := s.service.RequestPasswordReset(context.Background(), "jordan@bank.test")
	s.Require().NoError(err)
	s.Equal(u.ID, token.UserID)

	err = s.service.ResetPassword(context.Background(), token.ID, "correct-horse-1")
	s.True(dErrors.HasCode(err, dErrors.CodeValidation), "reusing the current password is refused")

	token2, err := s.service.RequestPasswordReset(context.Background(), "jordan@bank.test")
	s.Require().NoError(err)
	s.Require().NoError(s.service.ResetPassword(context.Background(), token2.ID, "fresh-password-2"))

	_, err = s.service.Login(context.Background(), LoginInput{
		Email: "jordan@bank.test", Password: "fresh-password-2",
	})
	s.NoError(err)
}

func (s *ServiceSuite) TestResetPasswordExpiresSessions() {
	s.createActivated("jordan@bank.test", "correct-horse-1")
	result, err := s.service.Login(context.Background(), LoginInput{
		Email: "jordan@bank.test", Password: "correct-horse-1",
	})
	s.Require().NoError(err)

	token, err := s.service.RequestPasswordReset(context.Background(), "jordan@bank.test")
	s.Require().NoError(err)
	s.Require().NoError(s.service.ResetPassword(context.Background(), token.ID, "fresh-password-2"))

	_, err = s.service.ResolveSession(context.Background(), result.Token)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *ServiceSuite) TestChangePasswordVerifiesCurrent() {
	u := s.createActivated("jordan@bank.test", "correct-horse-1")
	ctx := requestcontext.WithActor(context.Background(), requestcontext.ActorInfo{
		ID: u.ID, Email: u.Email, Role: "normal user 1",
	})

	err := s.service.ChangePassword(ctx, "wrong-current", "fresh-password-2")
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

	s.Require().NoError(s.service.ChangePassword(ctx, "correct-horse-1", "fresh-password-2"))
	_, err = s.service.Login(context.Background(), LoginInput{
		Email: "jordan@bank.test", Password: "fresh-password-2",
	})
	s.NoError(err)
}

func (s *ServiceSuite) TestDeleteExpiresSessions() {
	u := s.createActivated("jordan@bank.test", "correct-horse-1")
	result, err := s.service.Login(context.Background(), LoginInput{
		Email: "jordan@bank.test", Password: "correct-horse-1",
	})
	s.Require().NoError(err)

	s.Require().NoError(s.service.Delete(s.adminCtx(), u.ID))

	_, err = s.service.Get(context.Background(), u.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	_, err = s.service.ResolveSession(context.Background(), result.Token)
	s.Error(err)
}

func (s *ServiceSuite) TestMutationsLandInAuditTrail() {
	s.createActivated("jordan@bank.test", "correct-horse-1")
	_, err := s.service.Login(context.Background(), LoginInput{
		Email: "jordan@bank.test", Password: "correct-horse-1",
	})
	s.Require().NoError(err)

	modules := map[audit.Module]bool{}
	for _, entry := range s.trail.All() {
		modules[entry.Module] = true
	}
	s.True(modules[audit.ModuleUserManagement])
	s.True(modules[audit.ModuleUserActivation])
	s.True(modules[audit.ModuleUserLogin])
}

func TestNormalizeUserAgent(t *testing.T) {
	raw := "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36"
	got := normalizeUserAgent(raw)
	testutil.Then(t, "the agent reads as browser on OS", func(t *testing.T) {
		if got == raw || got == "" {
			t.Fatalf("expected a normalized agent, got %q", got)
		}
	})

	if normalizeUserAgent("") != "" {
		t.Fatal("empty agent should stay empty")
	}
	if normalizeUserAgent("curl/8.4.0") == "" {
		t.Fatal("unparseable agent should pass through")
	}
}
