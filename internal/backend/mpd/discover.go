package mpd

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/hashicorp/mdns"
)

const (
	ServiceName            = "_mpd._tcp"
	DefaultDiscoverTimeout = 3 * time.Second
)

// Receiver is an MPD server found on the local network.
type Receiver struct {
	Name    string
	Host    string
	Address string // host:port, usable as Options.Address
}

// Discover browses mDNS for MPD servers until timeout or the ctx deadline.
// Entries without an IPv4 or IPv6 address are skipped; duplicates are
// reported once.
func Discover(ctx context.Context, timeout time.Duration) ([]Receiver, error) {
	timeout, ok := queryTimeout(ctx, timeout)
	if !ok {
		return nil, nil
	}
	entries := make(chan *mdns.ServiceEntry, 16)
	found := make(chan []Receiver, 1)
	go func() {
		found <- collect(entries)
	}()

	params := mdns.DefaultParams(ServiceName)
	params.Domain = "local"
	params.Timeout = timeout
	params.Entries = entries
	err := mdns.Query(params)
	close(entries)

	receivers := <-found
	if err != nil && ctx.Err() == nil {
		return receivers, fmt.Errorf("mdns query: %w", err)
	}
	return receivers, nil
}

// queryTimeout bounds the browse by the ctx deadline. It reports false when
// ctx is already done.
func queryTimeout(ctx context.Context, timeout time.Duration) (time.Duration, bool) {
	if ctx.Err() != nil {
		return 0, false
	}
	if timeout <= 0 {
		timeout = DefaultDiscoverTimeout
	}
	if deadline, ok := ctx.Deadline(); ok {
		left := time.Until(deadline)
		if left <= 0 {
			return 0, false
		}
		timeout = min(timeout, left)
	}
	return timeout, true
}

func collect(entries <-chan *mdns.ServiceEntry) []Receiver {
	var out []Receiver
	seen := make(map[string]bool)
	for e := range entries {
		r, ok := receiverFromEntry(e)
		if !ok || seen[r.Address] {
			continue
		}
		seen[r.Address] = true
		out = append(out, r)
	}
	return out
}

func receiverFromEntry(e *mdns.ServiceEntry) (Receiver, bool) {
	var ip net.IP
	switch {
	case e.AddrV4 != nil:
		ip = e.AddrV4
	case e.AddrV6 != nil:
		ip = e.AddrV6
	default:
		return Receiver{}, false
	}
	if e.Port <= 0 {
		return Receiver{}, false
	}
	return Receiver{
		Name:    e.Name,
		Host:    e.Host,
		Address: net.JoinHostPort(ip.String(), strconv.Itoa(e.Port)),
	}, true
}
