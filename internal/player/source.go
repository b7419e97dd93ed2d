package player

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

const (
	extMP3  = ".mp3"
	extFLAC = ".flac"
	extWAV  = ".wav"
	extOGG  = ".ogg"
)

// source is an opened, seekable audio stream plus its file extension.
type source struct {
	io.ReadSeekCloser
	ext string
}

// SupportedExt reports whether files with extension ext can be decoded.
func SupportedExt(ext string) bool {
	switch strings.ToLower(ext) {
	case extMP3, extFLAC, extWAV, extOGG:
		return true
	}
	return false
}

// openSource opens a local path, a file:// URL, or an http(s) URL. Remote
// streams are downloaded to a temporary file first so the decoder can seek.
func openSource(client *http.Client, location string) (*source, error) {
	u, err := url.Parse(location)
	if err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		return fetch(client, location, strings.ToLower(path.Ext(u.Path)))
	}

	p := location
	if err == nil && u.Scheme == "file" {
		p = u.Path
	}
	ext := strings.ToLower(filepath.Ext(p))
	if !SupportedExt(ext) {
		return nil, fmt.Errorf("unsupported format: %s", ext)
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, err
	}
	return &source{ReadSeekCloser: f, ext: ext}, nil
}

func fetch(client *http.Client, location, ext string) (*source, error) {
	resp, err := client.Get(location) //nolint:noctx // bounded by the client timeout
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", location, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status: %s", location, resp.Status)
	}

	if !SupportedExt(ext) {
		ext = extFromContentType(resp.Header.Get("Content-Type"))
	}
	if !SupportedExt(ext) {
		return nil, fmt.Errorf("unsupported format: %s", resp.Header.Get("Content-Type"))
	}

	f, err := os.CreateTemp("", "wavecast-*"+ext)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, fmt.Errorf("fetch %s: %w", location, err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, err
	}
	return &source{ReadSeekCloser: &tempFile{File: f}, ext: ext}, nil
}

func extFromContentType(ct string) string {
	ct, _, _ = strings.Cut(ct, ";")
	switch strings.TrimSpace(strings.ToLower(ct)) {
	case "audio/mpeg", "audio/mp3":
		return extMP3
	case "audio/flac", "audio/x-flac":
		return extFLAC
	case "audio/wav", "audio/x-wav", "audio/wave":
		return extWAV
	case "audio/ogg", "application/ogg", "audio/vorbis":
		return extOGG
	}
	return ""
}

// tempFile deletes itself on Close.
type tempFile struct {
	*os.File
}

func (t *tempFile) Close() error {
	err := t.File.Close()
	os.Remove(t.Name())
	return err
}
