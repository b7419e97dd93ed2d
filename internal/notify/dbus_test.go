//go:build linux

package notify

import (
	"os"
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHints(t *testing.T) {
	h := hints(Notification{Urgency: UrgencyCritical})
	assert.Equal(t, dbus.MakeVariant(byte(2)), h["urgency"])
	assert.Equal(t, dbus.MakeVariant(appName), h["desktop-entry"])
	assert.NotContains(t, h, "transient")

	h = hints(Notification{Transient: true})
	assert.Equal(t, dbus.MakeVariant(true), h["transient"])
}

func TestBusNotifier_ReplacesPopup(t *testing.T) {
	if os.Getenv("DBUS_SESSION_BUS_ADDRESS") == "" {
		t.Skip("no D-Bus session available")
	}
	n, err := New()
	require.NoError(t, err)
	if _, ok := n.(*busNotifier); !ok {
		t.Skip("session bus unreachable")
	}

	first, err := n.Notify(Notification{Title: "Track 1", Timeout: 1000, Transient: true})
	if err != nil {
		t.Skipf("no notification server: %v", err)
	}
	require.NotZero(t, first)

	second, err := n.Notify(Notification{Title: "Track 2", Timeout: 1000, ReplacesID: first, Transient: true})
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
