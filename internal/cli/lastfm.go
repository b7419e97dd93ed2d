package cli

import (
	"bufio"
	"cmp"
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/llehouerou/wavecast/internal/errmsg"
	"github.com/llehouerou/wavecast/internal/lastfm"
)

func newLastfmCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lastfm",
		Short: "Manage the linked Last.fm account",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "login",
			Short: "Link a Last.fm account for scrobbling",
			Args:  cobra.NoArgs,
			RunE:  func(cmd *cobra.Command, _ []string) error { return lastfmLogin(cmd.Context()) },
		},
		&cobra.Command{
			Use:   "logout",
			Short: "Unlink the Last.fm account",
			Args:  cobra.NoArgs,
			RunE:  func(cmd *cobra.Command, _ []string) error { return lastfmLogout(cmd.Context()) },
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show the linked Last.fm account",
			Args:  cobra.NoArgs,
			RunE:  func(cmd *cobra.Command, _ []string) error { return lastfmStatus(cmd.Context()) },
		},
	)
	return cmd
}

func lastfmLogin(ctx context.Context) error {
	e, err := openEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close()
	if !e.cfg.HasLastfmConfig() {
		return errors.New("set lastfm.api_key and lastfm.api_secret in the config first")
	}

	client := lastfm.New(e.cfg.Lastfm.APIKey, e.cfg.Lastfm.APISecret)
	token, err := client.RequestToken()
	if err != nil {
		return errors.New(errmsg.Format(errmsg.OpLastfmAuth, err))
	}

	// The token arrives through the callback when the API account has one
	// configured, otherwise the user confirms on stdin.
	tokens := make(chan string, 2)
	if cb, err := lastfm.ListenCallback(lastfm.CallbackAddr); err == nil {
		defer cb.Close()
		go func() {
			tokens <- <-cb.Tokens()
		}()
	}
	go func() {
		if _, err := bufio.NewReader(os.Stdin).ReadString('\n'); err == nil {
			tokens <- token
		}
	}()

	authURL := client.AuthURL(token)
	fmt.Printf("Authorize wavecast in your browser:\n\n  %s\n\nthen press Enter.\n", authURL)
	_ = lastfm.OpenBrowser(authURL)

	authorized, err := lastfm.WaitForToken(ctx, tokens, lastfm.AuthTimeout)
	if err != nil {
		return errors.New(errmsg.Format(errmsg.OpLastfmAuth, err))
	}
	s, err := client.Authorize(authorized)
	if err != nil {
		return errors.New(errmsg.Format(errmsg.OpLastfmAuth, err))
	}
	if err := lastfm.SaveSession(ctx, e.store, s.Username, s.SessionKey); err != nil {
		return errors.New(errmsg.Format(errmsg.OpLastfmAuth, err))
	}
	fmt.Printf("linked Last.fm account %s\n", cmp.Or(s.Username, "(unknown user)"))
	return nil
}

func lastfmLogout(ctx context.Context) error {
	e, err := openEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close()
	if err := lastfm.DeleteSession(ctx, e.store); err != nil {
		return errors.New(errmsg.Format(errmsg.OpLastfmAuth, err))
	}
	fmt.Println("Last.fm account unlinked")
	return nil
}

func lastfmStatus(ctx context.Context) error {
	e, err := openEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	switch {
	case !e.cfg.HasLastfmConfig():
		fmt.Println("Last.fm is not configured")
	case e.cfg.Lastfm.SessionKey != "":
		fmt.Println("linked through the config file")
	default:
		s, err := lastfm.LoadSession(ctx, e.store)
		if err != nil {
			return errors.New(errmsg.Format(errmsg.OpLastfmAuth, err))
		}
		if s == nil {
			fmt.Println("not linked (run wavecast lastfm login)")
			return nil
		}
		fmt.Printf("linked as %s, %s\n", s.Username, humanize.Time(s.LinkedAt))
	}
	return nil
}
