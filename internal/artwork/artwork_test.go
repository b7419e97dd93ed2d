package artwork

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llehouerou/wavecast/internal/playback"
)

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("img"), 0o600))
	}
}

func TestInDir(t *testing.T) {
	tests := []struct {
		name  string
		files []string
		want  string
	}{
		{"none", []string{"track.mp3", "notes.txt"}, ""},
		{"single", []string{"track.mp3", "folder.png"}, "folder.png"},
		{"case insensitive", []string{"Cover.JPG"}, "Cover.JPG"},
		{"stem beats extension", []string{"folder.jpg", "cover.webp"}, "cover.webp"},
		{"extension order", []string{"cover.png", "cover.jpg"}, "cover.jpg"},
		{"unknown extension", []string{"cover.bmp"}, ""},
		{"prefix only", []string{"cover-back.jpg"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			touch(t, dir, tt.files...)
			want := ""
			if tt.want != "" {
				want = filepath.Join(dir, tt.want)
			}
			assert.Equal(t, want, InDir(dir))
		})
	}
}

func TestInDir_SkipsDirectories(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "cover.jpg"), 0o700))
	assert.Empty(t, InDir(dir))
	assert.Empty(t, InDir(filepath.Join(dir, "missing")))
}

func TestPath(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "cover.jpg", "own.png")
	cover := filepath.Join(dir, "cover.jpg")
	own := filepath.Join(dir, "own.png")
	song := filepath.Join(dir, "song.mp3")

	tests := []struct {
		name  string
		track playback.Track
		want  string
	}{
		{"own local artwork", playback.Track{ArtworkURL: own, URL: song}, own},
		{"own file url artwork", playback.Track{ArtworkURL: "file://" + own}, own},
		{"remote artwork", playback.Track{ArtworkURL: "http://x/a.jpg", URL: song}, ""},
		{"next to url", playback.Track{URL: song}, cover},
		{"next to file url", playback.Track{URL: "file://" + song}, cover},
		{"next to path", playback.Track{URL: "http://x/s.mp3", Path: song}, cover},
		{"relative path", playback.Track{Path: "music/song.mp3"}, ""},
		{"stream", playback.Track{URL: "http://x/s.mp3"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Path(tt.track))
		})
	}
}

func TestURL(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "front.png")
	song := filepath.Join(dir, "song.flac")

	assert.Equal(t, "file://"+filepath.Join(dir, "front.png"), URL(playback.Track{URL: song}))
	assert.Equal(t, "https://x/a.jpg", URL(playback.Track{ArtworkURL: "https://x/a.jpg"}))
	assert.Empty(t, URL(playback.Track{URL: "http://x/s.mp3"}))
	gone := filepath.Join(dir, "gone.jpg")
	assert.Equal(t, "file://"+gone, URL(playback.Track{ArtworkURL: gone}),
		"a local artwork path is reported as given")
}
