// Package approval implements the maker-checker state machine shared by all
// governed resource kinds. A maker submits, edits, or requests deletion of a
// change; a checker approves or rejects; every attempted mutation lands in
// the audit trail exactly once, success or failure.
package approval

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/manny-e1/user-management-backend-2/internal/audit"
	"github.com/manny-e1/user-management-backend-2/internal/platform/metrics"
	"github.com/manny-e1/user-management-backend-2/internal/rejection"
	dErrors "github.com/manny-e1/user-management-backend-2/pkg/domain-errors"
	"github.com/manny-e1/user-management-backend-2/pkg/platform/tx"
	"github.com/manny-e1/user-management-backend-2/pkg/requestcontext"
)

// Engine drives one kind's change requests through the lifecycle
// Pending -> Approved/Rejected -> (edit) Pending -> (approved delete) gone.
// It holds no mutable state of its own; correctness under concurrent calls
// rests on the store's transactional guarantees.
type Engine[P Payload] struct {
	kind       Kind
	store      Store[P]
	trail      *audit.Service
	rejections rejection.Store
	runner     tx.Runner
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

type EngineOption[P Payload] func(*Engine[P])

func WithMetrics[P Payload](m *metrics.Metrics) EngineOption[P] {
	return func(e *Engine[P]) { e.metrics = m }
}

func NewEngine[P Payload](
	kind Kind,
	store Store[P],
	trail *audit.Service,
	rejections rejection.Store,
	runner tx.Runner,
	logger *slog.Logger,
	opts ...EngineOption[P],
) *Engine[P] {
	e := &Engine[P]{
		kind:       kind,
		store:      store,
		trail:      trail,
		rejections: rejections,
		runner:     runner,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine[P]) Kind() Kind { return e.kind }

// record lands one audit entry for an attempted mutation. err == nil means
// the mutation committed.
func (e *Engine[P]) record(ctx context.Context, actor requestcontext.ActorInfo, desc string, err error, prev, next *string) {
	status := audit.StatusSuccess
	if err != nil {
		status = audit.StatusFailure
		desc = fmt.Sprintf("%s: %s", desc, dErrors.MessageOf(err))
	}
	e.trail.Record(ctx, audit.Entry{
		PerformedBy:   actor.Email,
		Module:        e.kind.Module,
		Description:   desc,
		Status:        status,
		PreviousValue: prev,
		NewValue:      next,
		CreatedAt:     requestcontext.Now(ctx),
	})
}

func (e *Engine[P]) requireActor(ctx context.Context) (requestcontext.ActorInfo, error) {
	actor, ok := requestcontext.Actor(ctx)
	if !ok || actor.Email == "" {
		return requestcontext.ActorInfo{}, dErrors.New(dErrors.CodeUnauthorized, "caller identity is required")
	}
	return actor, nil
}

func (e *Engine[P]) validateSubmission(sub Submission[P]) error {
	if err := sub.Payload.Validate(); err != nil {
		return err
	}
	if e.kind.Windowed {
		if sub.Window == nil || sub.Window.Start.IsZero() || sub.Window.End.IsZero() {
			return dErrors.New(dErrors.CodeValidation, "startDate and endDate are required")
		}
		if !sub.Window.End.After(sub.Window.Start) {
			return dErrors.New(dErrors.CodeValidation, "endDate must be after startDate")
		}
	}
	return nil
}

// Submit creates a new change request in Pending review.
func (e *Engine[P]) Submit(ctx context.Context, sub Submission[P]) (*Request[P], error) {
	actor, err := e.requireActor(ctx)
	if err != nil {
		return nil, err
	}

	req, err := e.doSubmit(ctx, actor, sub)
	e.record(ctx, actor, "submitted "+e.kind.Noun, err, nil, snapshot(req))
	if err != nil {
		return nil, err
	}
	e.metrics.IncSubmissions(string(e.kind.Module))
	return req, nil
}

func (e *Engine[P]) doSubmit(ctx context.Context, actor requestcontext.ActorInfo, sub Submission[P]) (*Request[P], error) {
	if err := e.validateSubmission(sub); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	req := &Request[P]{
		ID:               uuid.New(),
		Payload:          sub.Payload,
		SubmissionStatus: SubmissionNew,
		ApprovalStatus:   ApprovalPending,
		Maker:            actor.Email,
		CreatedAt:        now,
		SubmittedAt:      now,
		UpdatedAt:        now,
	}
	for _, name := range e.kind.Channels {
		req.Channels = append(req.Channels, Channel{
			Name:    name,
			Enabled: sub.EnabledChannels[name],
			Status:  ChannelEmpty,
		})
	}
	if e.kind.Windowed {
		req.Window = &Window{Start: sub.Window.Start, End: sub.Window.End}
	}
	if err := e.store.Create(ctx, req); err != nil {
		return nil, dErrors.FromStore(err, e.kind.Noun)
	}
	return req, nil
}

// Edit replaces the proposed values of an existing request and sends it back
// to checker review. On a windowed kind the proposed dates land in the
// extended-date fields; the effective dates change only on approval.
func (e *Engine[P]) Edit(ctx context.Context, id uuid.UUID, sub Submission[P]) (*Request[P], error) {
	actor, err := e.requireActor(ctx)
	if err != nil {
		return nil, err
	}

	prev, err := e.store.Get(ctx, id)
	if err != nil {
		err = dErrors.FromStore(err, e.kind.Noun)
		e.record(ctx, actor, "edited "+e.kind.Noun, err, nil, nil)
		return nil, err
	}

	req, err := e.doEdit(ctx, actor, prev.Clone(), sub)
	e.record(ctx, actor, "edited "+e.kind.Noun, err, snapshot(prev), snapshot(req))
	if err != nil {
		return nil, err
	}
	e.metrics.IncSubmissions(string(e.kind.Module))
	return req, nil
}

func (e *Engine[P]) doEdit(ctx context.Context, actor requestcontext.ActorInfo, req *Request[P], sub Submission[P]) (*Request[P], error) {
	if err := e.validateSubmission(sub); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)

	req.Payload = sub.Payload
	req.SubmissionStatus = SubmissionEdited
	req.ApprovalStatus = ApprovalPending
	req.RejectReason = ""
	req.Maker = actor.Email
	req.SubmittedAt = now
	req.UpdatedAt = now
	for i := range req.Channels {
		enabled := sub.EnabledChannels[req.Channels[i].Name]
		req.Channels[i].Enabled = enabled
		req.Channels[i].Status = NextChannelStatus(req.Channels[i].Status, enabled, EventEdit)
	}
	if e.kind.Windowed {
		start, end := sub.Window.Start, sub.Window.End
		req.Window.ExtendedStart = &start
		req.Window.ExtendedEnd = &end
	}

	if err := e.store.Update(ctx, req); err != nil {
		return nil, dErrors.FromStore(err, e.kind.Noun)
	}
	return req, nil
}

// RequestDelete flags a request for removal pending checker approval. The
// row stays fully visible until a checker approves the deletion.
func (e *Engine[P]) RequestDelete(ctx context.Context, id uuid.UUID) (*Request[P], error) {
	actor, err := e.requireActor(ctx)
	if err != nil {
		return nil, err
	}
	if !e.kind.DeleteAllowed {
		return nil, dErrors.Newf(dErrors.CodeValidation, "%s does not support deletion", e.kind.Noun)
	}

	prev, err := e.store.Get(ctx, id)
	if err != nil {
		err = dErrors.FromStore(err, e.kind.Noun)
		e.record(ctx, actor, "requested deletion of "+e.kind.Noun, err, nil, nil)
		return nil, err
	}

	req := prev.Clone()
	now := requestcontext.Now(ctx)
	req.SubmissionStatus = SubmissionDelete
	req.ApprovalStatus = ApprovalPending
	req.RejectReason = ""
	req.SubmittedAt = now
	req.UpdatedAt = now
	for i := range req.Channels {
		req.Channels[i].Status = NextChannelStatus(req.Channels[i].Status, req.Channels[i].Enabled, EventDeleteRequest)
	}

	updateErr := e.store.Update(ctx, req)
	if updateErr != nil {
		updateErr = dErrors.FromStore(updateErr, e.kind.Noun)
	}
	e.record(ctx, actor, "requested deletion of "+e.kind.Noun, updateErr, snapshot(prev), snapshot(req))
	if updateErr != nil {
		return nil, updateErr
	}
	return req, nil
}

// Approve settles the listed requests as a single atomic batch. Approved
// delete-requests are physically removed inside the same transaction, after
// the batch status update. One audit entry covers the whole batch, keyed to
// the first id's prior state.
func (e *Engine[P]) Approve(ctx context.Context, ids []uuid.UUID) error {
	actor, err := e.requireActor(ctx)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return dErrors.New(dErrors.CodeValidation, "at least one id is required")
	}

	var firstPrev, firstNext *string
	err = e.runner.RunInTx(ctx, func(txCtx context.Context) error {
		now := requestcontext.Now(txCtx)
		var removals []uuid.UUID
		for i, id := range ids {
			req, err := e.store.Get(txCtx, id)
			if err != nil {
				return dErrors.FromStore(err, e.kind.Noun)
			}
			if i == 0 {
				firstPrev = snapshot(req)
			}

			req.ApprovalStatus = ApprovalApproved
			req.Checker = actor.Email
			req.RejectReason = ""
			req.ActionTakenTime = &now
			req.UpdatedAt = now
			for j := range req.Channels {
				req.Channels[j].Status = NextChannelStatus(req.Channels[j].Status, req.Channels[j].Enabled, EventApprove)
			}
			if req.Window != nil && req.Window.ExtendedStart != nil && req.Window.ExtendedEnd != nil {
				req.Window.Start = *req.Window.ExtendedStart
				req.Window.End = *req.Window.ExtendedEnd
				req.Window.ExtendedStart = nil
				req.Window.ExtendedEnd = nil
			}

			if req.SubmissionStatus == SubmissionDelete {
				removals = append(removals, req.ID)
			}
			if err := e.store.Update(txCtx, req); err != nil {
				return dErrors.FromStore(err, e.kind.Noun)
			}
			if i == 0 && req.SubmissionStatus != SubmissionDelete {
				firstNext = snapshot(req)
			}
		}
		if len(removals) > 0 {
			if err := e.store.Remove(txCtx, removals); err != nil {
				return dErrors.FromStore(err, e.kind.Noun)
			}
		}
		return nil
	})

	desc := fmt.Sprintf("approved %d %s change(s)", len(ids), e.kind.Noun)
	e.record(ctx, actor, desc, err, firstPrev, firstNext)
	if err != nil {
		return err
	}
	e.metrics.IncApprovals(string(e.kind.Module))
	return nil
}

// Reject settles the listed requests as rejected, in one atomic batch, and
// appends one rejection-log entry per id capturing the submission status as
// it stood before the rejection. A rejected delete-request returns to a
// reviewable, editable state.
func (e *Engine[P]) Reject(ctx context.Context, ids []uuid.UUID, reason string) error {
	actor, err := e.requireActor(ctx)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return dErrors.New(dErrors.CodeValidation, "at least one id is required")
	}
	if reason == "" {
		return dErrors.New(dErrors.CodeValidation, "a rejection reason is required")
	}

	var firstPrev, firstNext *string
	err = e.runner.RunInTx(ctx, func(txCtx context.Context) error {
		now := requestcontext.Now(txCtx)
		for i, id := range ids {
			req, err := e.store.Get(txCtx, id)
			if err != nil {
				return dErrors.FromStore(err, e.kind.Noun)
			}
			if i == 0 {
				firstPrev = snapshot(req)
			}
			priorSubmission := req.SubmissionStatus

			req.ApprovalStatus = ApprovalRejected
			req.Checker = actor.Email
			req.RejectReason = reason
			req.ActionTakenTime = &now
			req.UpdatedAt = now
			if req.SubmissionStatus == SubmissionDelete {
				req.SubmissionStatus = SubmissionEdited
			}
			for j := range req.Channels {
				req.Channels[j].Status = NextChannelStatus(req.Channels[j].Status, req.Channels[j].Enabled, EventReject)
			}
			if req.Window != nil {
				req.Window.ExtendedStart = nil
				req.Window.ExtendedEnd = nil
			}

			if err := e.rejections.Append(txCtx, rejection.Entry{
				TargetID:         req.ID,
				RejectedBy:       actor.Email,
				Reason:           reason,
				SubmissionStatus: string(priorSubmission),
				RejectedDate:     now,
			}); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to append rejection log")
			}
			if err := e.store.Update(txCtx, req); err != nil {
				return dErrors.FromStore(err, e.kind.Noun)
			}
			if i == 0 {
				firstNext = snapshot(req)
			}
		}
		return nil
	})

	desc := fmt.Sprintf("rejected %d %s change(s)", len(ids), e.kind.Noun)
	e.record(ctx, actor, desc, err, firstPrev, firstNext)
	if err != nil {
		return err
	}
	e.metrics.IncRejections(string(e.kind.Module))
	return nil
}

// ReportChannelComplete is the maker-facing confirmation that one channel
// finished its rollout. The report is provisional ("CC") and forces a fresh
// checker review cycle even though no proposed values changed.
func (e *Engine[P]) ReportChannelComplete(ctx context.Context, id uuid.UUID, channelName string) (*Request[P], error) {
	actor, err := e.requireActor(ctx)
	if err != nil {
		return nil, err
	}
	if !e.kind.HasChannel(channelName) {
		return nil, dErrors.Newf(dErrors.CodeValidation, "unknown channel %q", channelName)
	}

	prev, err := e.store.Get(ctx, id)
	if err != nil {
		err = dErrors.FromStore(err, e.kind.Noun)
		e.record(ctx, actor, "reported channel completion for "+e.kind.Noun, err, nil, nil)
		return nil, err
	}

	req := prev.Clone()
	now := requestcontext.Now(ctx)
	ch := req.channel(channelName)
	if ch == nil {
		return nil, dErrors.Newf(dErrors.CodeValidation, "unknown channel %q", channelName)
	}
	ch.Status = ChannelReported
	req.SubmissionStatus = SubmissionMarked
	req.ApprovalStatus = ApprovalPending
	req.RejectReason = ""
	req.SubmittedAt = now
	req.UpdatedAt = now

	updateErr := e.store.Update(ctx, req)
	if updateErr != nil {
		updateErr = dErrors.FromStore(updateErr, e.kind.Noun)
	}
	desc := fmt.Sprintf("reported %s completion for %s", channelName, e.kind.Noun)
	e.record(ctx, actor, desc, updateErr, snapshot(prev), snapshot(req))
	if updateErr != nil {
		return nil, updateErr
	}
	return req, nil
}

// Get returns one request through the effective-view projection.
func (e *Engine[P]) Get(ctx context.Context, id uuid.UUID, viewerInternal bool) (*View[P], error) {
	req, err := e.store.Get(ctx, id)
	if err != nil {
		return nil, dErrors.FromStore(err, e.kind.Noun)
	}
	view := e.project(req, requestcontext.Now(ctx), viewerInternal)
	return &view, nil
}

// List returns every request newest-created-first through the projection,
// each annotated with a 1-based display sequence.
func (e *Engine[P]) List(ctx context.Context, viewerInternal bool) ([]View[P], error) {
	reqs, err := e.store.List(ctx)
	if err != nil {
		return nil, dErrors.FromStore(err, e.kind.Noun)
	}
	now := requestcontext.Now(ctx)
	views := make([]View[P], len(reqs))
	for i, req := range reqs {
		views[i] = e.project(req, now, viewerInternal)
		views[i].Seq = i + 1
	}
	return views, nil
}

// LatestApproved returns the approved request most recently touched by a
// checker; this backs the public "last updated" read endpoints.
func (e *Engine[P]) LatestApproved(ctx context.Context, viewerInternal bool) (*View[P], error) {
	req, err := e.store.LatestApproved(ctx)
	if err != nil {
		return nil, dErrors.FromStore(err, e.kind.Noun)
	}
	view := e.project(req, requestcontext.Now(ctx), viewerInternal)
	return &view, nil
}

// PendingCount counts requests awaiting checker review.
func (e *Engine[P]) PendingCount(ctx context.Context) (int, error) {
	count, err := e.store.PendingCount(ctx)
	if err != nil {
		return 0, dErrors.FromStore(err, e.kind.Noun)
	}
	return count, nil
}

// RejectionHistory lists the rejection log for one request, newest first.
func (e *Engine[P]) RejectionHistory(ctx context.Context, id uuid.UUID) ([]rejection.Entry, error) {
	entries, err := e.rejections.ListByTarget(ctx, id)
	if err != nil {
		return nil, dErrors.FromStore(err, "rejection log")
	}
	return entries, nil
}
