//go:build integration

package maintenance

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/manny-e1/user-management-backend-2/internal/approval"
	"github.com/manny-e1/user-management-backend-2/pkg/platform/sentinel"
	"github.com/manny-e1/user-management-backend-2/pkg/testutil/containers"
)

const schema = `
CREATE TABLE IF NOT EXISTS maintenance_windows (
	id                  UUID PRIMARY KEY,
	submission_status   TEXT NOT NULL,
	approval_status     TEXT NOT NULL,
	maker               TEXT,
	checker             TEXT,
	reject_reason       TEXT,
	start_date          TIMESTAMPTZ NOT NULL,
	end_date            TIMESTAMPTZ NOT NULL,
	extended_start_date TIMESTAMPTZ,
	extended_end_date   TIMESTAMPTZ,
	rakyat_enabled      BOOLEAN NOT NULL,
	rakyat_status       TEXT NOT NULL DEFAULT '',
	bizrakyat_enabled   BOOLEAN NOT NULL,
	bizrakyat_status    TEXT NOT NULL DEFAULT '',
	created_at          TIMESTAMPTZ NOT NULL,
	submitted_at        TIMESTAMPTZ NOT NULL,
	updated_at          TIMESTAMPTZ NOT NULL,
	action_taken_time   TIMESTAMPTZ
)`

type PostgresStoreSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *PostgresStore
	ctx   context.Context
}

func TestPostgresStoreSuite(t *testing.T) {
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	s.pg = containers.NewPostgresContainer(s.T())
	_, err := s.pg.DB.ExecContext(s.ctx, schema)
	s.Require().NoError(err)
	s.store = NewPostgresStore(s.pg.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	_, err := s.pg.DB.ExecContext(s.ctx, "TRUNCATE maintenance_windows")
	s.Require().NoError(err)
}

// newWindow builds a pending request the way the engine shapes submissions.
func (s *PostgresStoreSuite) newWindow(createdAt time.Time) *approval.Request[Payload] {
	return &approval.Request[Payload]{
		ID:               uuid.New(),
		SubmissionStatus: approval.SubmissionNew,
		ApprovalStatus:   approval.ApprovalPending,
		Maker:            "maker@bank.test",
		Window: &approval.Window{
			Start: createdAt.Add(24 * time.Hour),
			End:   createdAt.Add(48 * time.Hour),
		},
		Channels: []approval.Channel{
			{Name: ChannelRakyat, Enabled: true},
			{Name: ChannelBizRakyat, Enabled: false},
		},
		CreatedAt:   createdAt,
		SubmittedAt: createdAt,
		UpdatedAt:   createdAt,
	}
}

func (s *PostgresStoreSuite) TestCreateAndGetRoundTrip() {
	now := time.Now().UTC().Truncate(time.Microsecond)
	req := s.newWindow(now)

	s.Require().NoError(s.store.Create(s.ctx, req))

	got, err := s.store.Get(s.ctx, req.ID)
	s.Require().NoError(err)
	s.Equal(req.ID, got.ID)
	s.Equal(approval.SubmissionNew, got.SubmissionStatus)
	s.Equal(approval.ApprovalPending, got.ApprovalStatus)
	s.Equal("maker@bank.test", got.Maker)
	s.Empty(got.Checker)
	s.Empty(got.RejectReason)
	s.Require().NotNil(got.Window)
	s.True(got.Window.Start.Equal(req.Window.Start))
	s.True(got.Window.End.Equal(req.Window.End))
	s.Nil(got.Window.ExtendedStart)
	s.Nil(got.Window.ExtendedEnd)
	s.Require().Len(got.Channels, 2)
	s.True(got.Channels[0].Enabled)
	s.False(got.Channels[1].Enabled)
	s.Nil(got.ActionTakenTime)
}

func (s *PostgresStoreSuite) TestUpdatePersistsExtendedDatesAndChecker() {
	now := time.Now().UTC().Truncate(time.Microsecond)
	req := s.newWindow(now)
	s.Require().NoError(s.store.Create(s.ctx, req))

	extStart := now.Add(72 * time.Hour)
	extEnd := now.Add(96 * time.Hour)
	req.SubmissionStatus = approval.SubmissionEdited
	req.ApprovalStatus = approval.ApprovalApproved
	req.Checker = "checker@bank.test"
	req.Window.ExtendedStart = &extStart
	req.Window.ExtendedEnd = &extEnd
	actionAt := now.Add(time.Hour)
	req.ActionTakenTime = &actionAt
	s.Require().NoError(s.store.Update(s.ctx, req))

	got, err := s.store.Get(s.ctx, req.ID)
	s.Require().NoError(err)
	s.Equal(approval.SubmissionEdited, got.SubmissionStatus)
	s.Equal("checker@bank.test", got.Checker)
	s.Require().NotNil(got.Window.ExtendedStart)
	s.True(got.Window.ExtendedStart.Equal(extStart))
	s.Require().NotNil(got.Window.ExtendedEnd)
	s.True(got.Window.ExtendedEnd.Equal(extEnd))
	s.Require().NotNil(got.ActionTakenTime)
	s.True(got.ActionTakenTime.Equal(actionAt))
}

func (s *PostgresStoreSuite) TestGetUnknownIDIsNotFound() {
	_, err := s.store.Get(s.ctx, uuid.New())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestUpdateUnknownIDReportsNoRows() {
	now := time.Now().UTC().Truncate(time.Microsecond)
	req := s.newWindow(now)

	err := s.store.Update(s.ctx, req)
	s.ErrorIs(err, sentinel.ErrNoRowsAffected)
}

func (s *PostgresStoreSuite) TestListOrdersNewestCreatedFirst() {
	now := time.Now().UTC().Truncate(time.Microsecond)
	older := s.newWindow(now.Add(-time.Hour))
	newer := s.newWindow(now)
	s.Require().NoError(s.store.Create(s.ctx, older))
	s.Require().NoError(s.store.Create(s.ctx, newer))

	list, err := s.store.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.Equal(newer.ID, list[0].ID)
	s.Equal(older.ID, list[1].ID)
}

func (s *PostgresStoreSuite) TestLatestApprovedPicksMostRecentlyUpdated() {
	now := time.Now().UTC().Truncate(time.Microsecond)
	first := s.newWindow(now.Add(-2 * time.Hour))
	first.ApprovalStatus = approval.ApprovalApproved
	first.UpdatedAt = now.Add(-time.Hour)
	second := s.newWindow(now.Add(-time.Hour))
	second.ApprovalStatus = approval.ApprovalApproved
	second.UpdatedAt = now
	pending := s.newWindow(now)
	s.Require().NoError(s.store.Create(s.ctx, first))
	s.Require().NoError(s.store.Create(s.ctx, second))
	s.Require().NoError(s.store.Create(s.ctx, pending))

	got, err := s.store.LatestApproved(s.ctx)
	s.Require().NoError(err)
	s.Equal(second.ID, got.ID)
}

func (s *PostgresStoreSuite) TestLatestApprovedEmptyIsNotFound() {
	_, err := s.store.LatestApproved(s.ctx)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestRemoveDeletesAllGivenIDs() {
	now := time.Now().UTC().Truncate(time.Microsecond)
	first := s.newWindow(now)
	second := s.newWindow(now.Add(time.Minute))
	s.Require().NoError(s.store.Create(s.ctx, first))
	s.Require().NoError(s.store.Create(s.ctx, second))

	s.Require().NoError(s.store.Remove(s.ctx, []uuid.UUID{first.ID, second.ID}))

	_, err := s.store.Get(s.ctx, first.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
	_, err = s.store.Get(s.ctx, second.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)

	s.ErrorIs(s.store.Remove(s.ctx, []uuid.UUID{first.ID}), sentinel.ErrNoRowsAffected)
}

func (s *PostgresStoreSuite) TestPendingCount() {
	now := time.Now().UTC().Truncate(time.Microsecond)
	pending := s.newWindow(now)
	approved := s.newWindow(now.Add(time.Minute))
	approved.ApprovalStatus = approval.ApprovalApproved
	s.Require().NoError(s.store.Create(s.ctx, pending))
	s.Require().NoError(s.store.Create(s.ctx, approved))

	count, err := s.store.PendingCount(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, count)
}
