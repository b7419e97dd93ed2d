// Package artwork locates cover images for tracks that live on the local
// filesystem.
package artwork

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/llehouerou/wavecast/internal/playback"
)

// Stems and extensions recognised as album covers, best first.
var (
	stems = []string{"cover", "folder", "front", "album"}
	exts  = []string{".jpg", ".jpeg", ".png", ".webp"}
)

// InDir returns the best cover image found directly in dir. Names are
// matched without regard to case, so Cover.JPG counts as cover.jpg.
func InDir(dir string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	best, bestRank := "", len(stems)*len(exts)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if r := rank(e.Name()); r < bestRank {
			best, bestRank = e.Name(), r
		}
	}
	if best == "" {
		return ""
	}
	return filepath.Join(dir, best)
}

func rank(name string) int {
	lower := strings.ToLower(name)
	ext := filepath.Ext(lower)
	for si, stem := range stems {
		if strings.TrimSuffix(lower, ext) != stem {
			continue
		}
		for ei, e := range exts {
			if ext == e {
				return si*len(exts) + ei
			}
		}
	}
	return len(stems) * len(exts)
}

// Path returns a local image file for t: its own artwork when that is a
// local file, otherwise a cover next to the audio file.
func Path(t playback.Track) string {
	if p, ok := localPath(t.ArtworkURL); ok {
		return p
	}
	if t.ArtworkURL != "" {
		return ""
	}
	for _, loc := range []string{t.URL, t.Path} {
		if p, ok := localPath(loc); ok {
			return InDir(filepath.Dir(p))
		}
	}
	return ""
}

// URL returns t's artwork as a URL: remote artwork unchanged, local images
// as file:// URLs.
func URL(t playback.Track) string {
	if p := Path(t); p != "" {
		return "file://" + p
	}
	if _, ok := localPath(t.ArtworkURL); !ok {
		return t.ArtworkURL
	}
	return ""
}

func localPath(loc string) (string, bool) {
	loc = strings.TrimPrefix(loc, "file://")
	if !filepath.IsAbs(loc) {
		return "", false
	}
	return loc, true
}
