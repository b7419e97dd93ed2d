package mpris

import (
	"context"
	"time"
)

// Controller receives the transport commands issued by desktop media keys.
type Controller interface {
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	SkipTo(ctx context.Context, index int) error
	SeekTo(ctx context.Context, position time.Duration) error
}
