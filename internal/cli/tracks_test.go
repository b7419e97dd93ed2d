package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string, size int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0o600))
}

func TestTracksFromArgs_DirectoryWalk(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "Album", "02 - Second.flac"), 10)
	touch(t, filepath.Join(dir, "Album", "01 - First.MP3"), 20)
	touch(t, filepath.Join(dir, "Album", "notes.txt"), 5)
	touch(t, filepath.Join(dir, "Album", "Cover.JPG"), 5)

	got, err := tracksFromArgs([]string{dir})
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "01 - First", got[0].Title)
	assert.Equal(t, "mp3", got[0].Format)
	assert.Equal(t, int64(20), got[0].Size)
	assert.Equal(t, "Album", got[0].Album)
	assert.Equal(t, got[0].URL, got[0].ID)
	assert.Equal(t, "02 - Second", got[1].Title)
	assert.Equal(t, filepath.Join(dir, "Album", "Cover.JPG"), got[1].ArtworkURL)
}

func TestTracksFromArgs_FileAndURL(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "song.ogg")
	touch(t, file, 1)

	got, err := tracksFromArgs([]string{file, "https://music.example/stream/track.flac?id=3"})
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, file, got[0].URL)
	assert.Empty(t, got[0].ArtworkURL)
	assert.Equal(t, "track", got[1].Title)
	assert.Equal(t, "flac", got[1].Format)
	assert.Equal(t, "https://music.example/stream/track.flac?id=3", got[1].URL)
}

func TestTracksFromArgs_Errors(t *testing.T) {
	dir := t.TempDir()
	txt := filepath.Join(dir, "readme.txt")
	touch(t, txt, 1)

	_, err := tracksFromArgs([]string{txt})
	assert.ErrorContains(t, err, "unsupported format")

	_, err = tracksFromArgs([]string{filepath.Join(dir, "missing.mp3")})
	assert.Error(t, err)
}

func TestTracksFromArgs_Empty(t *testing.T) {
	got, err := tracksFromArgs(nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}
