//go:build !unix

package cli

import (
	"context"

	"go.uber.org/zap"

	"github.com/llehouerou/wavecast/internal/coordinator"
)

func watchLifecycle(context.Context, *coordinator.Coordinator, *zap.Logger) {}
