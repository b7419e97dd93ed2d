package lastfm

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"os/exec"
	"runtime"
	"time"
)

const (
	// CallbackAddr is where the API account's callback URL should point.
	CallbackAddr = "localhost:9847"

	// AuthTimeout bounds how long login waits for the user.
	AuthTimeout = 5 * time.Minute
)

var (
	ErrAuthDenied  = errors.New("authorization denied")
	ErrAuthTimeout = errors.New("authorization timed out")
)

var callbackPage = template.Must(template.New("callback").Parse(`<!DOCTYPE html>
<html>
<head><title>wavecast</title></head>
<body style="font-family: sans-serif; text-align: center; padding: 50px;">
{{if .}}<h1>Last.fm account approved</h1>
<p>Return to the terminal to finish linking.</p>
{{else}}<h1>Last.fm sent no token</h1>
<p>Run <code>wavecast lastfm login</code> again.</p>
{{end}}</body>
</html>
`))

// Callback receives the token Last.fm appends to its redirect once the
// user approves access. Only the first request's token is kept.
type Callback struct {
	tokens chan string
	srv    *http.Server
	served chan struct{}
}

func newCallback() *Callback {
	return &Callback{tokens: make(chan string, 1)}
}

// ListenCallback serves the callback on addr until Close.
func ListenCallback(addr string) (*Callback, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen for callback: %w", err)
	}
	cb := newCallback()
	mux := http.NewServeMux()
	mux.Handle("GET /callback", cb)
	cb.srv = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	cb.served = make(chan struct{})
	go func() {
		defer close(cb.served)
		_ = cb.srv.Serve(ln)
	}()
	return cb, nil
}

func (cb *Callback) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	select {
	case cb.tokens <- token:
	default:
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if token == "" {
		w.WriteHeader(http.StatusBadRequest)
	}
	_ = callbackPage.Execute(w, token != "")
}

// Tokens yields the first callback's token, empty when the user refused.
func (cb *Callback) Tokens() <-chan string {
	return cb.tokens
}

// Close stops serving.
func (cb *Callback) Close() {
	if cb.srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = cb.srv.Shutdown(ctx)
	<-cb.served
}

// WaitForToken blocks until tokens delivers, timeout elapses or ctx is done.
// An empty token means the user denied access.
func WaitForToken(ctx context.Context, tokens <-chan string, timeout time.Duration) (string, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case token := <-tokens:
		if token == "" {
			return "", ErrAuthDenied
		}
		return token, nil
	case <-timer.C:
		return "", ErrAuthTimeout
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// OpenBrowser asks the desktop to show url.
func OpenBrowser(url string) error {
	name, args, err := browserCommand(runtime.GOOS)
	if err != nil {
		return err
	}
	return exec.Command(name, append(args, url)...).Start()
}

func browserCommand(goos string) (string, []string, error) {
	switch goos {
	case "darwin":
		return "open", nil, nil
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler"}, nil
	case "linux", "freebsd", "openbsd", "netbsd":
		return "xdg-open", nil, nil
	}
	return "", nil, fmt.Errorf("open browser: unsupported platform %s", goos)
}
