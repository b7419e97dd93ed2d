package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/llehouerou/wavecast/internal/errmsg"
	"github.com/llehouerou/wavecast/internal/persist"
	"github.com/llehouerou/wavecast/internal/playback"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			e, err := openEnv(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			s, err := persist.New(e.store, e.log).Lookup(ctx)
			if errors.Is(err, persist.ErrNoSession) {
				fmt.Println("no saved session")
				return nil
			}
			if err != nil {
				return errors.New(errmsg.Format(errmsg.OpSessionRestore, err))
			}
			return printSession(os.Stdout, s)
		},
	}
}

func newClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Forget the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			e, err := openEnv(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			if err := persist.New(e.store, e.log).Clear(ctx); err != nil {
				return errors.New(errmsg.Format(errmsg.OpSessionClear, err))
			}
			fmt.Println("session cleared")
			return nil
		},
	}
}

// printSession writes the saved queue with the active entry marked.
func printSession(w io.Writer, s *persist.Session) error {
	idx := playback.NormalizeIndex(s.ActiveIndex, len(s.Queue))
	var total int64
	for _, t := range s.Queue {
		total += max(t.Size, 0)
	}
	fmt.Fprintf(w, "%d tracks, %s, resume at %s of track %d\n\n",
		len(s.Queue), humanize.IBytes(uint64(total)), //nolint:gosec // total is non-negative
		formatDuration(s.Position), idx+1)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for i, t := range s.Queue {
		mark := " "
		if i == idx {
			mark = ">"
		}
		size := ""
		if t.Size > 0 {
			size = humanize.IBytes(uint64(t.Size))
		}
		fmt.Fprintf(tw, "%s %d\t%s\t%s\t%s\t%s\t%s\n",
			mark, i+1, t.Title, t.Artist(), formatDuration(t.Duration), t.Format, size)
	}
	return tw.Flush()
}
