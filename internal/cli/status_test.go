package cli

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llehouerou/wavecast/internal/persist"
	"github.com/llehouerou/wavecast/internal/playback"
)

func TestPrintSession(t *testing.T) {
	s := &persist.Session{
		Queue: []playback.Track{
			{ID: "a", Title: "Alpha", Artists: []string{"Band"}, Duration: 3 * time.Minute, Size: 2048, Format: "flac"},
			{ID: "b", Title: "Beta", Duration: 61 * time.Second, Size: 1024, Format: "mp3"},
		},
		ActiveIndex: 1,
		Position:    42 * time.Second,
	}
	var out bytes.Buffer

	require.NoError(t, printSession(&out, s))

	text := out.String()
	assert.Contains(t, text, "2 tracks, 3.0 KiB, resume at 0:42 of track 2")
	assert.Contains(t, text, "> 2")
	assert.Contains(t, text, "Alpha")
	assert.Contains(t, text, "1:01")
	assert.Contains(t, text, "2.0 KiB")
}
