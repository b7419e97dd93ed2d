package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/llehouerou/wavecast/internal/session"
)

// Announcer shows a notification whenever the active track changes,
// replacing the previous one.
type Announcer struct {
	notifier Notifier
	log      *zap.Logger

	lastTrack string
	lastID    uint32
}

// NewAnnouncer creates an announcer sending through n.
func NewAnnouncer(n Notifier, log *zap.Logger) *Announcer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Announcer{notifier: n, log: log.Named("notify")}
}

// Run consumes sub until ctx is done or the subscription closes.
func (a *Announcer) Run(ctx context.Context, sub *session.Subscription) {
	defer sub.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.Done:
			return
		case snap := <-sub.Changed:
			a.Observe(snap)
		}
	}
}

// Observe announces the active track of snap if it differs from the last
// one announced.
func (a *Announcer) Observe(snap session.Snapshot) {
	t, ok := snap.ActiveTrack()
	if !ok {
		a.lastTrack = ""
		return
	}
	if t.ID == a.lastTrack {
		return
	}
	a.lastTrack = t.ID

	id, err := a.notifier.Notify(nowPlaying(t, a.lastID))
	if err != nil {
		a.log.Debug("send notification", zap.String("track", t.ID), zap.Error(err))
		return
	}
	a.lastID = id
}
