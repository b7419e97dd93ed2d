//go:build !linux

package mpris

import (
	"go.uber.org/zap"

	"github.com/llehouerou/wavecast/internal/session"
)

// Adapter does nothing without a session bus to publish on.
type Adapter struct{}

// New returns an Adapter that publishes nothing.
func New(*session.Store, Controller, *zap.Logger) (*Adapter, error) {
	return &Adapter{}, nil
}

func (*Adapter) Close() error { return nil }
