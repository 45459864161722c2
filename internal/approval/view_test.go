package approval

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manny-e1/user-management-backend-2/internal/audit"
	"github.com/manny-e1/user-management-backend-2/internal/platform/logger"
	"github.com/manny-e1/user-management-backend-2/internal/rejection"
	"github.com/manny-e1/user-management-backend-2/pkg/platform/tx"
)

func newWindowEngine(t *testing.T) (*Engine[windowPayload], *MemoryStore[windowPayload]) {
	t.Helper()
	store := NewMemoryStore[windowPayload]()
	trail := audit.NewService(audit.NewMemoryStore(), logger.NewNop())
	return NewEngine(windowKind, store, trail, rejection.NewMemoryStore(), tx.NopRunner{}, logger.NewNop()), store
}

func windowRequest(status ChannelStatus) *Request[windowPayload] {
	return &Request[windowPayload]{
		ID:               uuid.New(),
		Payload:          windowPayload{Note: "downtime"},
		SubmissionStatus: SubmissionNew,
		ApprovalStatus:   ApprovalApproved,
		Maker:            "maker@bank.test",
		Checker:          "checker@bank.test",
		Channels: []Channel{
			{Name: "rakyat", Enabled: true, Status: status},
			{Name: "bizrakyat", Enabled: false, Status: ChannelEmpty},
		},
		Window: &Window{Start: date(2025, 1, 10), End: date(2025, 1, 12)},
	}
}

func TestProjectBeforeWindowBlanksChannels(t *testing.T) {
	engine, _ := newWindowEngine(t)
	req := windowRequest(ChannelAwaiting)

	view := engine.project(req, date(2025, 1, 5), true)

	assert.Equal(t, ChannelEmpty, view.channel("rakyat").Status)
	assert.False(t, view.IsCompleted)
}

func TestProjectInsideWindowPassesStoredStateThrough(t *testing.T) {
	engine, _ := newWindowEngine(t)
	req := windowRequest(ChannelAwaiting)

	view := engine.project(req, date(2025, 1, 11), true)

	assert.Equal(t, ChannelAwaiting, view.channel("rakyat").Status)
	assert.False(t, view.IsCompleted)
}

func TestProjectPastWindowConfirmsEnabledChannels(t *testing.T) {
	engine, _ := newWindowEngine(t)
	req := windowRequest(ChannelAwaiting)

	view := engine.project(req, date(2025, 1, 20), true)

	assert.Equal(t, ChannelConfirmed, view.channel("rakyat").Status)
	assert.Equal(t, ChannelEmpty, view.channel("bizrakyat").Status)
	assert.True(t, view.IsCompleted)
}

// A rejected completion report must stay visible past the end date so the
// maker can see the checker's verdict instead of an implicit "C".
func TestProjectPastWindowKeepsRejectedReportVisible(t *testing.T) {
	engine, _ := newWindowEngine(t)
	req := windowRequest(ChannelAwaiting)
	req.SubmissionStatus = SubmissionMarked
	req.ApprovalStatus = ApprovalRejected
	req.RejectReason = "report disputed"

	view := engine.project(req, date(2025, 1, 20), true)

	assert.Equal(t, ChannelAwaiting, view.channel("rakyat").Status)
	assert.False(t, view.IsCompleted)
}

// Projection is pure: it never writes through to the stored request, and
// repeated projections at the same instant are identical.
func TestProjectIsPure(t *testing.T) {
	engine, _ := newWindowEngine(t)
	req := windowRequest(ChannelAwaiting)

	first := engine.project(req, date(2025, 1, 20), true)
	second := engine.project(req, date(2025, 1, 20), true)

	require.Equal(t, ChannelAwaiting, req.channel("rakyat").Status, "stored state untouched")
	assert.Equal(t, first, second)
}

func TestProjectStripsIdentityForExternalViewers(t *testing.T) {
	engine, _ := newWindowEngine(t)
	req := windowRequest(ChannelConfirmed)

	view := engine.project(req, date(2025, 1, 11), false)

	assert.Empty(t, view.Maker)
	assert.Empty(t, view.Checker)
}

func TestProjectNonWindowedKindIgnoresClock(t *testing.T) {
	plainKind := Kind{Module: audit.ModuleTransactionLimit, Noun: "transaction limit"}
	engine := NewEngine(plainKind, NewMemoryStore[windowPayload](), audit.NewService(audit.NewMemoryStore(), logger.NewNop()), rejection.NewMemoryStore(), tx.NopRunner{}, logger.NewNop())
	req := windowRequest(ChannelAwaiting)
	req.Window = nil

	view := engine.project(req, time.Now().Add(365*24*time.Hour), true)

	assert.Equal(t, ChannelAwaiting, view.channel("rakyat").Status)
	assert.False(t, view.IsCompleted)
}
