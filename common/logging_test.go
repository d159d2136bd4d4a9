package common

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetupLogger(t *testing.T) {
	log := SetupLogger(&LoggingOpts{JSON: true, Service: "sharing", Version: Version})
	require.NotNil(t, log)
	require.False(t, log.Enabled(context.Background(), slog.LevelDebug))

	log = SetupLogger(&LoggingOpts{Debug: true})
	require.True(t, log.Enabled(context.Background(), slog.LevelDebug))
}
