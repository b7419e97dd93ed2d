package player

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSkipID3v2(t *testing.T) {
	t.Run("no tag rewinds", func(t *testing.T) {
		r := bytes.NewReader([]byte("fLaC0000000000"))
		require.NoError(t, skipID3v2(r))
		pos, _ := r.Seek(0, io.SeekCurrent)
		assert.Equal(t, int64(0), pos)
	})

	t.Run("tag is skipped", func(t *testing.T) {
		// 10 byte header declaring a 5 byte body (syncsafe)
		data := append([]byte{'I', 'D', '3', 4, 0, 0, 0, 0, 0, 5}, []byte("xxxxxfLaC")...)
		r := bytes.NewReader(data)
		require.NoError(t, skipID3v2(r))
		rest, _ := io.ReadAll(r)
		assert.Equal(t, "fLaC", string(rest))
	})

	t.Run("short input rewinds", func(t *testing.T) {
		r := bytes.NewReader([]byte("ID3"))
		require.NoError(t, skipID3v2(r))
		pos, _ := r.Seek(0, io.SeekCurrent)
		assert.Equal(t, int64(0), pos)
	})
}

func TestSupportedExt(t *testing.T) {
	for _, ext := range []string{".mp3", ".FLAC", ".wav", ".ogg"} {
		assert.True(t, SupportedExt(ext), ext)
	}
	for _, ext := range []string{".m4a", ".opus", ""} {
		assert.False(t, SupportedExt(ext), ext)
	}
}

func TestExtFromContentType(t *testing.T) {
	assert.Equal(t, extMP3, extFromContentType("audio/mpeg"))
	assert.Equal(t, extFLAC, extFromContentType("audio/flac; charset=binary"))
	assert.Equal(t, extOGG, extFromContentType("application/ogg"))
	assert.Empty(t, extFromContentType("text/html"))
}

func TestOpenSource_LocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "song.flac")
	require.NoError(t, os.WriteFile(path, []byte("data"), 0o600))

	src, err := openSource(http.DefaultClient, "file://"+path)
	require.NoError(t, err)
	defer src.Close()
	assert.Equal(t, extFLAC, src.ext)
}

func TestOpenSource_Unsupported(t *testing.T) {
	_, err := openSource(http.DefaultClient, "/music/song.m4a")
	assert.ErrorContains(t, err, "unsupported format")
}

func TestOpenSource_HTTPDownloadsToTempFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("ID3 payload"))
	}))
	defer srv.Close()

	src, err := openSource(srv.Client(), srv.URL+"/stream?id=42")
	require.NoError(t, err)
	assert.Equal(t, extMP3, src.ext)

	data, err := io.ReadAll(src)
	require.NoError(t, err)
	assert.Equal(t, "ID3 payload", string(data))

	tmp := src.ReadSeekCloser.(*tempFile).Name()
	require.NoError(t, src.Close())
	_, err = os.Stat(tmp)
	assert.True(t, os.IsNotExist(err), "temp file should be removed on close")
}

func TestOpenSource_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := openSource(srv.Client(), srv.URL+"/song.mp3")
	assert.ErrorContains(t, err, "unexpected status")
}

func TestLevelToVolume(t *testing.T) {
	assert.InDelta(t, -10.0, levelToVolume(0), 1e-9)
	assert.InDelta(t, -1.0, levelToVolume(0.5), 1e-9)
	assert.InDelta(t, 0.0, levelToVolume(1), 1e-9)
	assert.InDelta(t, 1.0, ClampVolume(3), 1e-9)
	assert.InDelta(t, 0.0, ClampVolume(-1), 1e-9)
}
