package approval

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/manny-e1/user-management-backend-2/internal/audit"
	"github.com/manny-e1/user-management-backend-2/internal/platform/logger"
	"github.com/manny-e1/user-management-backend-2/internal/rejection"
	dErrors "github.com/manny-e1/user-management-backend-2/pkg/domain-errors"
	"github.com/manny-e1/user-management-backend-2/pkg/platform/tx"
	"github.com/manny-e1/user-management-backend-2/pkg/requestcontext"
)

// windowPayload exercises the engine with the richest kind configuration:
// windowed, two channels, delete allowed.
type windowPayload struct {
	Note string `json:"note"`
}

func (p windowPayload) Validate() error {
	if p.Note == "" {
		return dErrors.New(dErrors.CodeValidation, "note is required")
	}
	return nil
}

var windowKind = Kind{
	Module:        audit.ModuleSystemMaintenance,
	Noun:          "maintenance window",
	Channels:      []string{"rakyat", "bizrakyat"},
	DeleteAllowed: true,
	Windowed:      true,
}

type EngineSuite struct {
	suite.Suite
	store      *MemoryStore[windowPayload]
	trail      *audit.MemoryStore
	rejections *rejection.MemoryStore
	engine     *Engine[windowPayload]
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) SetupTest() {
	s.store = NewMemoryStore[windowPayload]()
	s.trail = audit.NewMemoryStore()
	s.rejections = rejection.NewMemoryStore()
	trail := audit.NewService(s.trail, logger.NewNop())
	s.engine = NewEngine(windowKind, s.store, trail, s.rejections, tx.NopRunner{}, logger.NewNop())
}

func (s *EngineSuite) makerCtx() context.Context {
	return requestcontext.WithActor(context.Background(), requestcontext.ActorInfo{
		ID: uuid.New(), Email: "maker@bank.test", Role: "normal user 1",
	})
}

func (s *EngineSuite) checkerCtx() context.Context {
	return requestcontext.WithActor(context.Background(), requestcontext.ActorInfo{
		ID: uuid.New(), Email: "checker@bank.test", Role: "manager 1",
	})
}

func (s *EngineSuite) at(ctx context.Context, t time.Time) context.Context {
	return requestcontext.WithTime(ctx, t)
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (s *EngineSuite) submit(start, end time.Time, channels ...string) *Request[windowPayload] {
	enabled := map[string]bool{}
	for _, c := range channels {
		enabled[c] = true
	}
	req, err := s.engine.Submit(s.makerCtx(), Submission[windowPayload]{
		Payload:         windowPayload{Note: "scheduled downtime"},
		Window:          &Window{Start: start, End: end},
		EnabledChannels: enabled,
	})
	s.Require().NoError(err)
	return req
}

func (s *EngineSuite) TestSubmitCreatesPendingRequest() {
	req := s.submit(date(2025, 1, 10), date(2025, 1, 12), "rakyat")

	s.Equal(SubmissionNew, req.SubmissionStatus)
	s.Equal(ApprovalPending, req.ApprovalStatus)
	s.Equal("maker@bank.test", req.Maker)
	s.Empty(req.Checker)
	s.Nil(req.ActionTakenTime)

	rakyat := req.channel("rakyat")
	s.Require().NotNil(rakyat)
	s.True(rakyat.Enabled)
	s.Equal(ChannelEmpty, rakyat.Status)
	s.False(req.channel("bizrakyat").Enabled)
}

func (s *EngineSuite) TestSubmitValidation() {
	_, err := s.engine.Submit(s.makerCtx(), Submission[windowPayload]{
		Payload: windowPayload{},
		Window:  &Window{Start: date(2025, 1, 10), End: date(2025, 1, 12)},
	})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = s.engine.Submit(s.makerCtx(), Submission[windowPayload]{
		Payload: windowPayload{Note: "x"},
		Window:  &Window{Start: date(2025, 1, 12), End: date(2025, 1, 10)},
	})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	// Each failed attempt still lands one failure entry in the trail.
	s.Equal(2, s.trail.Len())
	for _, entry := range s.trail.All() {
		s.Equal(audit.StatusFailure, entry.Status)
	}
}

func (s *EngineSuite) TestSubmitRequiresActor() {
	_, err := s.engine.Submit(context.Background(), Submission[windowPayload]{
		Payload: windowPayload{Note: "x"},
		Window:  &Window{Start: date(2025, 1, 10), End: date(2025, 1, 12)},
	})
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

// Approve round-trip: inside the window an approved request shows every
// enabled channel at "A".
func (s *EngineSuite) TestApproveRoundTrip() {
	req := s.submit(date(2025, 1, 10), date(2025, 1, 12), "rakyat", "bizrakyat")

	s.Require().NoError(s.engine.Approve(s.checkerCtx(), []uuid.UUID{req.ID}))

	ctx := s.at(s.makerCtx(), date(2025, 1, 11))
	view, err := s.engine.Get(ctx, req.ID, true)
	s.Require().NoError(err)
	s.Equal(ApprovalApproved, view.ApprovalStatus)
	s.Equal("checker@bank.test", view.Checker)
	s.NotNil(view.ActionTakenTime)
	s.Equal(ChannelAwaiting, view.channel("rakyat").Status)
	s.Equal(ChannelAwaiting, view.channel("bizrakyat").Status)
}

// Delete is request-then-confirm: the row survives the request and vanishes
// only after a checker approves it.
func (s *EngineSuite) TestDeleteRequestThenConfirm() {
	req := s.submit(date(2025, 1, 10), date(2025, 1, 12), "rakyat")
	s.Require().NoError(s.engine.Approve(s.checkerCtx(), []uuid.UUID{req.ID}))

	flagged, err := s.engine.RequestDelete(s.makerCtx(), req.ID)
	s.Require().NoError(err)
	s.Equal(SubmissionDelete, flagged.SubmissionStatus)
	s.Equal(ApprovalPending, flagged.ApprovalStatus)
	s.Equal(ChannelEmpty, flagged.channel("rakyat").Status)

	// Still present.
	_, err = s.store.Get(context.Background(), req.ID)
	s.Require().NoError(err)

	s.Require().NoError(s.engine.Approve(s.checkerCtx(), []uuid.UUID{req.ID}))
	_, err = s.engine.Get(s.makerCtx(), req.ID, true)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

// Rejecting a delete-request restores a reviewable, editable state.
func (s *EngineSuite) TestRejectedDeleteRequestIsEditable() {
	req := s.submit(date(2025, 1, 10), date(2025, 1, 12), "rakyat")
	_, err := s.engine.RequestDelete(s.makerCtx(), req.ID)
	s.Require().NoError(err)

	s.Require().NoError(s.engine.Reject(s.checkerCtx(), []uuid.UUID{req.ID}, "not yet"))

	stored, err := s.store.Get(context.Background(), req.ID)
	s.Require().NoError(err)
	s.NotEqual(SubmissionDelete, stored.SubmissionStatus)
	s.Equal(ApprovalRejected, stored.ApprovalStatus)
	s.Equal("not yet", stored.RejectReason)

	// The rejection log captured the status as it stood before rejection.
	history, err := s.engine.RejectionHistory(context.Background(), req.ID)
	s.Require().NoError(err)
	s.Require().Len(history, 1)
	s.Equal(string(SubmissionDelete), history[0].SubmissionStatus)

	// And the maker can edit it again.
	edited, err := s.engine.Edit(s.makerCtx(), req.ID, Submission[windowPayload]{
		Payload:         windowPayload{Note: "rescheduled"},
		Window:          &Window{Start: date(2025, 2, 1), End: date(2025, 2, 2)},
		EnabledChannels: map[string]bool{"rakyat": true},
	})
	s.Require().NoError(err)
	s.Equal(SubmissionEdited, edited.SubmissionStatus)
	s.Equal(ApprovalPending, edited.ApprovalStatus)
	s.Empty(edited.RejectReason)
}

// Edits on a windowed kind propose dates via the extended fields; approval
// promotes them to the effective dates.
func (s *EngineSuite) TestEditProposesExtendedDates() {
	req := s.submit(date(2025, 1, 10), date(2025, 1, 12), "rakyat")
	s.Require().NoError(s.engine.Approve(s.checkerCtx(), []uuid.UUID{req.ID}))

	edited, err := s.engine.Edit(s.makerCtx(), req.ID, Submission[windowPayload]{
		Payload:         windowPayload{Note: "longer window"},
		Window:          &Window{Start: date(2025, 1, 10), End: date(2025, 1, 15)},
		EnabledChannels: map[string]bool{"rakyat": true},
	})
	s.Require().NoError(err)
	s.Equal(date(2025, 1, 12), edited.Window.End, "effective end unchanged until approval")
	s.Require().NotNil(edited.Window.ExtendedEnd)
	s.Equal(date(2025, 1, 15), *edited.Window.ExtendedEnd)
	s.Equal(ChannelAwaiting, edited.channel("rakyat").Status, "approved channel demoted to awaiting by the edit")

	s.Require().NoError(s.engine.Approve(s.checkerCtx(), []uuid.UUID{req.ID}))
	stored, err := s.store.Get(context.Background(), req.ID)
	s.Require().NoError(err)
	s.Equal(date(2025, 1, 15), stored.Window.End)
	s.Nil(stored.Window.ExtendedStart)
	s.Nil(stored.Window.ExtendedEnd)
}

func (s *EngineSuite) TestRejectClearsExtendedDatesAndVoidsReports() {
	req := s.submit(date(2025, 1, 10), date(2025, 1, 12), "rakyat")
	s.Require().NoError(s.engine.Approve(s.checkerCtx(), []uuid.UUID{req.ID}))
	_, err := s.engine.ReportChannelComplete(s.makerCtx(), req.ID, "rakyat")
	s.Require().NoError(err)

	s.Require().NoError(s.engine.Reject(s.checkerCtx(), []uuid.UUID{req.ID}, "can't confirm"))

	stored, err := s.store.Get(context.Background(), req.ID)
	s.Require().NoError(err)
	s.Equal(ChannelAwaiting, stored.channel("rakyat").Status, "unconfirmed completion report voided by rejection")
	s.Nil(stored.Window.ExtendedStart)
	s.Nil(stored.Window.ExtendedEnd)
}

func (s *EngineSuite) TestRejectRequiresReason() {
	req := s.submit(date(2025, 1, 10), date(2025, 1, 12), "rakyat")
	err := s.engine.Reject(s.checkerCtx(), []uuid.UUID{req.ID}, "")
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

// Rejection always logs one entry per id with the given reason.
func (s *EngineSuite) TestRejectLogsEveryID() {
	req1 := s.submit(date(2025, 1, 10), date(2025, 1, 12), "rakyat")
	req2 := s.submit(date(2025, 2, 10), date(2025, 2, 12), "bizrakyat")

	s.Require().NoError(s.engine.Reject(s.checkerCtx(), []uuid.UUID{req1.ID, req2.ID}, "bad data"))

	for _, id := range []uuid.UUID{req1.ID, req2.ID} {
		history, err := s.engine.RejectionHistory(context.Background(), id)
		s.Require().NoError(err)
		s.Require().Len(history, 1)
		s.Equal("bad data", history[0].Reason)
		s.Equal("checker@bank.test", history[0].RejectedBy)
	}
}

// Batch approve/reject is atomic: one unknown id rolls the whole batch back.
func (s *EngineSuite) TestBatchIsAtomicOnUnknownID() {
	req := s.submit(date(2025, 1, 10), date(2025, 1, 12), "rakyat")

	err := s.engine.Approve(s.checkerCtx(), []uuid.UUID{uuid.New(), req.ID})
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	stored, err := s.store.Get(context.Background(), req.ID)
	s.Require().NoError(err)
	s.Equal(ApprovalPending, stored.ApprovalStatus)
}

// Audit completeness: N mutating calls leave exactly N entries, batches
// counting once, and every entry names its actor and module.
func (s *EngineSuite) TestAuditCompleteness() {
	req1 := s.submit(date(2025, 1, 10), date(2025, 1, 12), "rakyat")
	req2 := s.submit(date(2025, 2, 10), date(2025, 2, 12), "rakyat")
	_, err := s.engine.Edit(s.makerCtx(), req1.ID, Submission[windowPayload]{
		Payload:         windowPayload{Note: "edited"},
		Window:          &Window{Start: date(2025, 1, 10), End: date(2025, 1, 13)},
		EnabledChannels: map[string]bool{"rakyat": true},
	})
	s.Require().NoError(err)
	s.Require().NoError(s.engine.Approve(s.checkerCtx(), []uuid.UUID{req1.ID, req2.ID}))
	s.Require().NoError(s.engine.Reject(s.checkerCtx(), []uuid.UUID{req1.ID}, "second thoughts"))

	entries := s.trail.All()
	s.Require().Len(entries, 5)
	for _, entry := range entries {
		s.NotEmpty(entry.PerformedBy)
		s.Equal(audit.ModuleSystemMaintenance, entry.Module)
	}
}

// The concrete lifecycle scenario from the operations runbook.
func (s *EngineSuite) TestMaintenanceWindowLifecycle() {
	req := s.submit(date(2025, 1, 10), date(2025, 1, 12), "rakyat")

	view, err := s.engine.Get(s.at(s.makerCtx(), date(2025, 1, 5)), req.ID, true)
	s.Require().NoError(err)
	s.Equal(ChannelEmpty, view.channel("rakyat").Status)
	s.False(view.IsCompleted)

	s.Require().NoError(s.engine.Approve(s.checkerCtx(), []uuid.UUID{req.ID}))
	view, err = s.engine.Get(s.at(s.makerCtx(), date(2025, 1, 11)), req.ID, true)
	s.Require().NoError(err)
	s.Equal(ChannelAwaiting, view.channel("rakyat").Status)

	reported, err := s.engine.ReportChannelComplete(s.makerCtx(), req.ID, "rakyat")
	s.Require().NoError(err)
	s.Equal(ChannelReported, reported.channel("rakyat").Status)
	s.Equal(SubmissionMarked, reported.SubmissionStatus)
	s.Equal(ApprovalPending, reported.ApprovalStatus)

	s.Require().NoError(s.engine.Approve(s.checkerCtx(), []uuid.UUID{req.ID}))
	stored, err := s.store.Get(context.Background(), req.ID)
	s.Require().NoError(err)
	s.Equal(ChannelConfirmed, stored.channel("rakyat").Status)

	view, err = s.engine.Get(s.at(s.makerCtx(), date(2025, 1, 20)), req.ID, true)
	s.Require().NoError(err)
	s.Equal(ChannelConfirmed, view.channel("rakyat").Status)
	s.True(view.IsCompleted)
}

func (s *EngineSuite) TestListOrdersNewestFirstWithSequence() {
	first := s.submit(date(2025, 1, 1), date(2025, 1, 2), "rakyat")
	time.Sleep(2 * time.Millisecond)
	second := s.submit(date(2025, 2, 1), date(2025, 2, 2), "rakyat")

	views, err := s.engine.List(s.at(s.makerCtx(), date(2024, 12, 1)), true)
	s.Require().NoError(err)
	s.Require().Len(views, 2)
	s.Equal(second.ID, views[0].ID)
	s.Equal(first.ID, views[1].ID)
	s.Equal(1, views[0].Seq)
	s.Equal(2, views[1].Seq)
}

func (s *EngineSuite) TestLatestApproved() {
	_, err := s.engine.LatestApproved(s.makerCtx(), true)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	req := s.submit(date(2025, 1, 10), date(2025, 1, 12), "rakyat")
	s.Require().NoError(s.engine.Approve(s.checkerCtx(), []uuid.UUID{req.ID}))

	latest, err := s.engine.LatestApproved(s.at(s.makerCtx(), date(2025, 1, 11)), true)
	s.Require().NoError(err)
	s.Equal(req.ID, latest.ID)
}

func (s *EngineSuite) TestPendingCount() {
	s.submit(date(2025, 1, 10), date(2025, 1, 12), "rakyat")
	req := s.submit(date(2025, 2, 10), date(2025, 2, 12), "rakyat")
	s.Require().NoError(s.engine.Approve(s.checkerCtx(), []uuid.UUID{req.ID}))

	count, err := s.engine.PendingCount(context.Background())
	s.Require().NoError(err)
	s.Equal(1, count)
}

func (s *EngineSuite) TestDeleteNotAllowedKind() {
	plainKind := Kind{Module: audit.ModuleMFAConfiguration, Noun: "MFA configuration"}
	engine := NewEngine(plainKind, NewMemoryStore[windowPayload](), audit.NewService(audit.NewMemoryStore(), logger.NewNop()), rejection.NewMemoryStore(), tx.NopRunner{}, logger.NewNop())

	_, err := engine.RequestDelete(s.makerCtx(), uuid.New())
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}
