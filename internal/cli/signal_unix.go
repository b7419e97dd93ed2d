//go:build unix

package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
)

// lifecycle is the part of the coordinator driven by job-control signals.
type lifecycle interface {
	Background(ctx context.Context) error
	Foreground(ctx context.Context) error
}

// watchLifecycle maps SIGUSR1 to Background and SIGCONT (resumed after a
// stop) to Foreground.
func watchLifecycle(ctx context.Context, l lifecycle, log *zap.Logger) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGUSR1, syscall.SIGCONT)
	defer signal.Stop(sig)
	handleLifecycle(ctx, sig, l, log)
}

func handleLifecycle(ctx context.Context, sig <-chan os.Signal, l lifecycle, log *zap.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case s := <-sig:
			if s == syscall.SIGCONT {
				if err := l.Foreground(ctx); err != nil {
					log.Debug("foreground", zap.Error(err))
				}
				continue
			}
			if err := l.Background(ctx); err != nil {
				log.Warn("save session", zap.Error(err))
				continue
			}
			log.Info("session saved")
		}
	}
}
