//go:build linux

package notify

import (
	"fmt"

	"github.com/godbus/dbus/v5"
)

const (
	appName     = "wavecast"
	serviceName = "org.freedesktop.Notifications"
	servicePath = dbus.ObjectPath("/org/freedesktop/Notifications")
	notifyCall  = serviceName + ".Notify"
)

type busNotifier struct {
	service dbus.BusObject
}

// New connects to the session bus. A session without one gets a notifier
// that drops everything.
func New() (Notifier, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return discard{}, nil //nolint:nilerr // headless sessions have no bus
	}
	return &busNotifier{service: conn.Object(serviceName, servicePath)}, nil
}

func (b *busNotifier) Notify(n Notification) (uint32, error) {
	var id uint32
	err := b.service.Call(notifyCall, 0,
		appName, n.ReplacesID, n.Icon, n.Title, n.Body,
		[]string{}, hints(n), n.Timeout,
	).Store(&id)
	if err != nil {
		return 0, fmt.Errorf("notify %q: %w", n.Title, err)
	}
	return id, nil
}

func hints(n Notification) map[string]dbus.Variant {
	h := map[string]dbus.Variant{
		"urgency":       dbus.MakeVariant(byte(n.Urgency)),
		"desktop-entry": dbus.MakeVariant(appName),
		"category":      dbus.MakeVariant("x-gnome.music"),
	}
	if n.Transient {
		h["transient"] = dbus.MakeVariant(true)
	}
	return h
}
