package testutil

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/manny-e1/user-management-backend-2/pkg/requestcontext"
)

// MakerCtx returns a context authenticated as a maker-role user, simulating
// what the auth middleware does for real requests.
func MakerCtx(email string) context.Context {
	return requestcontext.WithActor(context.Background(), requestcontext.ActorInfo{
		ID:    uuid.New(),
		Email: email,
		Role:  "normal user 1",
	})
}

// CheckerCtx returns a context authenticated as a checker-role user.
func CheckerCtx(email string) context.Context {
	return requestcontext.WithActor(context.Background(), requestcontext.ActorInfo{
		ID:    uuid.New(),
		Email: email,
		Role:  "manager 2",
	})
}

// At pins the request clock on a context.
func At(ctx context.Context, t time.Time) context.Context {
	return requestcontext.WithTime(ctx, t)
}
