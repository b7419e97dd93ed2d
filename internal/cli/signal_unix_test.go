//go:build unix

package cli

import (
	"context"
	"errors"
	"os"
	"sync"
	"syscall"
	"testing"
	"testing/synctest"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

type recordingLifecycle struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (r *recordingLifecycle) record(call string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
	return r.err
}

func (r *recordingLifecycle) Background(context.Context) error { return r.record("background") }
func (r *recordingLifecycle) Foreground(context.Context) error { return r.record("foreground") }

func (r *recordingLifecycle) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func TestHandleLifecycle(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		l := &recordingLifecycle{err: errors.New("disk full")}
		sig := make(chan os.Signal)
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			handleLifecycle(ctx, sig, l, zaptest.NewLogger(t))
			close(done)
		}()

		sig <- syscall.SIGUSR1
		sig <- syscall.SIGCONT
		sig <- syscall.SIGUSR1
		synctest.Wait()
		cancel()
		<-done

		assert.Equal(t, []string{"background", "foreground", "background"}, l.Calls())
	})
}
