package securenote

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manny-e1/user-management-backend-2/internal/approval"
	"github.com/manny-e1/user-management-backend-2/internal/audit"
	"github.com/manny-e1/user-management-backend-2/internal/platform/logger"
	"github.com/manny-e1/user-management-backend-2/internal/rejection"
	dErrors "github.com/manny-e1/user-management-backend-2/pkg/domain-errors"
	"github.com/manny-e1/user-management-backend-2/pkg/platform/tx"
	"github.com/manny-e1/user-management-backend-2/pkg/testutil"
)

func TestPayloadValidate(t *testing.T) {
	assert.NoError(t, Payload{NewStatus: DisplayOn}.Validate())
	assert.NoError(t, Payload{CurrentStatus: DisplayOff, NewStatus: DisplayOn}.Validate())

	err := Payload{NewStatus: "enabled"}.Validate()
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	err = Payload{NewStatus: ""}.Validate()
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

// An image swap with an unchanged display status is still a reviewable
// change: imageUpdated carries through so the checker sees why the request
// exists at all.
func TestImageUpdateSurvivesLifecycle(t *testing.T) {
	engine := approval.NewEngine(Kind, NewMemoryStore(),
		audit.NewService(audit.NewMemoryStore(), logger.NewNop()),
		rejection.NewMemoryStore(), tx.NopRunner{}, logger.NewNop())

	req, err := engine.Submit(testutil.MakerCtx("maker@bank.test"), approval.Submission[Payload]{
		Payload: Payload{
			CurrentStatus: DisplayOn,
			NewStatus:     DisplayOn,
			Image:         "notes/2025-security-banner.png",
			ImageUpdated:  true,
		},
	})
	require.NoError(t, err)

	require.NoError(t, engine.Approve(testutil.CheckerCtx("checker@bank.test"), []uuid.UUID{req.ID}))

	latest, err := engine.LatestApproved(testutil.CheckerCtx("checker@bank.test"), true)
	require.NoError(t, err)
	assert.True(t, latest.Payload.ImageUpdated)
	assert.Equal(t, "notes/2025-security-banner.png", latest.Payload.Image)
}
