package cli

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/llehouerou/wavecast/internal/backend/mpd"
	"github.com/llehouerou/wavecast/internal/errmsg"
)

func newDiscoverCmd() *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "discover",
		Short: "List MPD receivers announced on the local network",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			found, err := mpd.Discover(cmd.Context(), timeout)
			if err != nil {
				return errors.New(errmsg.Format(errmsg.OpRemoteDiscover, err))
			}
			if len(found) == 0 {
				fmt.Println("no receivers found")
				return nil
			}
			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tHOST\tADDRESS")
			for _, r := range found {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Name, r.Host, r.Address)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().DurationVarP(&timeout, "timeout", "t", mpd.DefaultDiscoverTimeout, "how long to browse")
	return cmd
}
