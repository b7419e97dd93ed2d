package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/llehouerou/wavecast/internal/backend/local"
	"github.com/llehouerou/wavecast/internal/backend/mpd"
	"github.com/llehouerou/wavecast/internal/coordinator"
	"github.com/llehouerou/wavecast/internal/errmsg"
	"github.com/llehouerou/wavecast/internal/lastfm"
	"github.com/llehouerou/wavecast/internal/metadata"
	"github.com/llehouerou/wavecast/internal/mpris"
	"github.com/llehouerou/wavecast/internal/notify"
	"github.com/llehouerou/wavecast/internal/palette"
	"github.com/llehouerou/wavecast/internal/persist"
	"github.com/llehouerou/wavecast/internal/player"
	"github.com/llehouerou/wavecast/internal/session"
)

const shutdownTimeout = 5 * time.Second

func newPlayCmd() *cobra.Command {
	var noRemote bool
	cmd := &cobra.Command{
		Use:   "play [file|dir|url]...",
		Short: "Play the given tracks, or resume the saved session",
		Long: `Play starts the session coordinator. With arguments the queue is replaced;
without, the last saved session is restored paused at its position.

Commands are read from stdin, one per line (type help). SIGUSR1 saves the
session immediately; SIGINT and SIGTERM save it and exit.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(cmd.Context(), args, noRemote)
		},
	}
	cmd.Flags().BoolVar(&noRemote, "no-remote", false, "do not connect to the configured receiver")
	return cmd
}

func runPlay(parent context.Context, args []string, noRemote bool) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()
	// The coordinator outlives the signal so the exit save can still run.
	runCtx, cancelRun := context.WithCancel(context.WithoutCancel(parent))
	defer cancelRun()

	e, err := openEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close()
	cfg, log := e.cfg, e.log

	queue, err := tracksFromArgs(args)
	if err != nil {
		return errors.New(errmsg.Format(errmsg.OpQueueSet, err))
	}

	gateway := persist.New(e.store, log)
	localBackend := local.New(player.New(), local.Options{
		ProgressInterval: cfg.Session.ProgressInterval,
		Logger:           log,
	})
	defer localBackend.Close()

	opts := coordinator.Options{
		Local:             localBackend,
		Store:             session.NewStore(),
		Gateway:           gateway,
		PersistDelay:      cfg.Session.PersistDelay,
		RegisterThreshold: cfg.Session.RegisterThreshold,
		Logger:            log,
	}

	var receiver *mpd.Adapter
	if cfg.HasRemoteConfig() && !noRemote {
		receiver = newReceiver(ctx, e)
		if receiver != nil {
			defer receiver.Close()
			opts.Remote = receiver
		}
	}
	if cfg.HasMetadataConfig() {
		opts.Metadata = metadata.New(cfg.Metadata.BaseURL,
			metadata.WithToken(cfg.Metadata.Token),
			metadata.WithTimeout(cfg.Metadata.Timeout))
	}
	if reporter := newReporter(ctx, e); reporter != nil {
		defer reporter.Wait()
		opts.Scrobbler = reporter
	}
	if cfg.PaletteEnabled() {
		opts.Palettes = palette.NewExtractor(cfg.Palette.Size)
	}

	coord := coordinator.New(opts)
	runDone := make(chan error, 1)
	go func() { runDone <- coord.Run(runCtx) }()

	startDesktop(runCtx, e, coord)

	if len(queue) > 0 {
		if err := coord.SetQueue(ctx, queue); err != nil {
			return errors.New(errmsg.Format(errmsg.OpQueueSet, err))
		}
		if err := coord.Play(ctx); err != nil {
			fmt.Fprintln(os.Stderr, errmsg.Format(errmsg.OpPlaybackStart, err))
		}
	} else if err := coord.Restore(ctx); err != nil {
		fmt.Fprintln(os.Stderr, errmsg.Format(errmsg.OpSessionRestore, err))
	}
	if receiver != nil {
		if err := coord.Connect(ctx); err != nil {
			fmt.Fprintln(os.Stderr, errmsg.Format(errmsg.OpRemoteConnect, err))
		}
	}

	go watchLifecycle(runCtx, coord, log)
	fmt.Println(statusLine(coord.Store().Snapshot()))
	_ = runControls(ctx, os.Stdin, os.Stdout, coord)

	// Last durability point before exit.
	saveCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := coord.Background(saveCtx); err != nil && !errors.Is(err, coordinator.ErrStopped) {
		log.Warn("save session on exit", zap.Error(err))
	}
	if err := gateway.Flush(saveCtx); err != nil {
		log.Warn("flush session", zap.Error(err))
	}
	cancelRun()
	if err := <-runDone; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// newReceiver builds the MPD adapter for the configured or discovered
// address. It returns nil when no receiver can be found.
func newReceiver(ctx context.Context, e *env) *mpd.Adapter {
	addr := e.cfg.Remote.Address
	if addr == "" {
		found, err := mpd.Discover(ctx, mpd.DefaultDiscoverTimeout)
		if err != nil {
			e.log.Warn("discover receivers", zap.Error(err))
		}
		if len(found) == 0 {
			e.log.Info("no receiver found")
			return nil
		}
		addr = found[0].Address
		e.log.Info("receiver discovered",
			zap.String("name", found[0].Name),
			zap.String("address", addr))
	}
	return mpd.New(mpd.Options{
		Address:  addr,
		Password: e.cfg.Remote.Password,
		Logger:   e.log,
	})
}

// newReporter returns a scrobble reporter when Last.fm is configured and an
// account is linked, either in the config or through "lastfm login".
func newReporter(ctx context.Context, e *env) *lastfm.Reporter {
	if !e.cfg.HasLastfmConfig() {
		return nil
	}
	key := e.cfg.Lastfm.SessionKey
	if key == "" {
		s, err := lastfm.LoadSession(ctx, e.store)
		if err != nil {
			e.log.Warn("load lastfm session", zap.Error(err))
		}
		if s == nil {
			e.log.Info("lastfm configured but not linked; run wavecast lastfm login")
			return nil
		}
		key = s.SessionKey
	}
	client := lastfm.New(e.cfg.Lastfm.APIKey, e.cfg.Lastfm.APISecret)
	client.Link(key)
	return lastfm.NewReporter(client, e.log)
}

// startDesktop publishes MPRIS and track notifications. Both are optional;
// failures are logged and playback continues.
func startDesktop(ctx context.Context, e *env, coord *coordinator.Coordinator) {
	if e.cfg.MPRISEnabled() {
		adapter, err := mpris.New(coord.Store(), coord, e.log)
		if err != nil {
			e.log.Warn("start mpris", zap.Error(err))
		} else {
			go func() {
				<-ctx.Done()
				_ = adapter.Close()
			}()
		}
	}
	if e.cfg.NotificationsEnabled() {
		n, err := notify.New()
		if err != nil {
			e.log.Warn("start notifications", zap.Error(err))
			return
		}
		go notify.NewAnnouncer(n, e.log).Run(ctx, coord.Store().Subscribe())
	}
}
