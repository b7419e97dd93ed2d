package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/llehouerou/wavecast/internal/errmsg"
	"github.com/llehouerou/wavecast/internal/playback"
	"github.com/llehouerou/wavecast/internal/session"
)

// controller is the part of the coordinator the prompt drives.
type controller interface {
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	SkipTo(ctx context.Context, index int) error
	SeekTo(ctx context.Context, position time.Duration) error
	SetRating(ctx context.Context, rating int) error
	Remove(ctx context.Context, index int) error
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	Background(ctx context.Context) error
	Store() *session.Store
}

const controlsHelp = `commands:
  p, play | pause | t, toggle
  n, next | b, prev | j, jump <n>
  s, seek <sec> | seek +<sec> | seek -<sec>
  rate <0-5> | rm <n>
  connect | disconnect
  save | st, status | h, help | q, quit`

// runControls reads one command per line from r until EOF, quit, or ctx
// is done. Failures are reported on w and never end the loop.
func runControls(ctx context.Context, r io.Reader, w io.Writer, c controller) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if quit := execControl(ctx, w, c, line); quit {
				return nil
			}
		}
	}
}

// execControl runs a single command line and reports whether it asked to
// quit.
func execControl(ctx context.Context, w io.Writer, c controller, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]
	store := c.Store()

	var (
		op  errmsg.Op
		err error
	)
	switch cmd {
	case "q", "quit", "exit":
		return true
	case "h", "help", "?":
		fmt.Fprintln(w, controlsHelp)
	case "st", "status":
		fmt.Fprintln(w, statusLine(store.Snapshot()))
	case "p", "play":
		op, err = errmsg.OpPlaybackStart, c.Play(ctx)
	case "pause":
		op, err = errmsg.OpPlaybackPause, c.Pause(ctx)
	case "t", "toggle":
		if store.State() == playback.StatePlaying {
			op, err = errmsg.OpPlaybackPause, c.Pause(ctx)
		} else {
			op, err = errmsg.OpPlaybackStart, c.Play(ctx)
		}
	case "n", "next":
		op, err = errmsg.OpPlaybackSkip, skip(ctx, c, 1)
	case "b", "prev":
		op, err = errmsg.OpPlaybackSkip, skip(ctx, c, -1)
	case "j", "jump":
		op = errmsg.OpPlaybackSkip
		var n int
		if n, err = intArg(args); err == nil {
			err = c.SkipTo(ctx, n-1)
		}
	case "s", "seek":
		op = errmsg.OpPlaybackSeek
		var pos time.Duration
		if pos, err = seekTarget(args, store.Progress().Position); err == nil {
			err = c.SeekTo(ctx, pos)
		}
	case "rate":
		op = errmsg.OpRatingSet
		var n int
		if n, err = intArg(args); err == nil {
			err = c.SetRating(ctx, n)
		}
	case "rm", "remove":
		op = errmsg.OpQueueRemove
		var n int
		if n, err = intArg(args); err == nil {
			err = c.Remove(ctx, n-1)
		}
	case "connect":
		op, err = errmsg.OpRemoteConnect, c.Connect(ctx)
	case "disconnect":
		op, err = errmsg.OpRemoteDisconnect, c.Disconnect(ctx)
	case "save":
		op, err = errmsg.OpSessionSave, c.Background(ctx)
	default:
		fmt.Fprintf(w, "unknown command %q (try help)\n", cmd)
	}

	if err != nil {
		fmt.Fprintln(w, errmsg.Format(op, err))
	}
	return false
}

func skip(ctx context.Context, c controller, delta int) error {
	snap := c.Store().Snapshot()
	target := snap.ActiveIndex + delta
	if !playback.ValidIndex(target, len(snap.Queue)) {
		return fmt.Errorf("no track %d of %d", target+1, len(snap.Queue))
	}
	return c.SkipTo(ctx, target)
}

func intArg(args []string) (int, error) {
	if len(args) != 1 {
		return 0, errors.New("expected one number")
	}
	return strconv.Atoi(args[0])
}

// seekTarget parses an absolute or +/- relative position in seconds.
func seekTarget(args []string, current time.Duration) (time.Duration, error) {
	if len(args) != 1 {
		return 0, errors.New("expected seconds")
	}
	raw := args[0]
	relative := strings.HasPrefix(raw, "+") || strings.HasPrefix(raw, "-")
	secs, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid position %q", raw)
	}
	d := time.Duration(secs * float64(time.Second))
	if relative {
		d += current
	}
	return max(d, 0), nil
}

// statusLine renders the active track and position on one line.
func statusLine(snap session.Snapshot) string {
	t, ok := snap.ActiveTrack()
	if !ok {
		return "queue empty"
	}
	title := t.Title
	if a := t.Artist(); a != "" {
		title += " - " + a
	}
	total := snap.Progress.Duration
	if total <= 0 {
		total = t.Duration
	}
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s  %s / %s  (%d/%d)",
		snap.State, title,
		formatDuration(snap.Progress.Position), formatDuration(total),
		snap.ActiveIndex+1, len(snap.Queue))
	if snap.Rating > 0 {
		fmt.Fprintf(&b, "  %s", strings.Repeat("*", snap.Rating))
	}
	fmt.Fprintf(&b, "  plays: %d", snap.PlayCount)
	return b.String()
}

func formatDuration(d time.Duration) string {
	m := int(d.Minutes())
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%d:%02d", m, s)
}
