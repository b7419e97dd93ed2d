package cli

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/llehouerou/wavecast/internal/artwork"
	"github.com/llehouerou/wavecast/internal/player"
	"github.com/llehouerou/wavecast/internal/playback"
)

// tracksFromArgs builds a queue from file paths, directories and http(s)
// URLs. Directories are walked for supported audio files in lexical order.
func tracksFromArgs(args []string) ([]playback.Track, error) {
	var out []playback.Track
	for _, arg := range args {
		if u, err := url.Parse(arg); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
			out = append(out, urlTrack(u))
			continue
		}

		abs, err := filepath.Abs(arg)
		if err != nil {
			return nil, err
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			if !player.SupportedExt(filepath.Ext(abs)) {
				return nil, fmt.Errorf("%s: unsupported format", arg)
			}
			out = append(out, fileTrack(abs, info.Size()))
			continue
		}

		err = filepath.WalkDir(abs, func(path string, d os.DirEntry, err error) error {
			if err != nil || d.IsDir() || !player.SupportedExt(filepath.Ext(path)) {
				return err
			}
			fi, err := d.Info()
			if err != nil {
				return err
			}
			out = append(out, fileTrack(path, fi.Size()))
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func fileTrack(path string, size int64) playback.Track {
	ext := filepath.Ext(path)
	dir := filepath.Dir(path)
	return playback.Track{
		ID:         path,
		Title:      strings.TrimSuffix(filepath.Base(path), ext),
		Album:      filepath.Base(dir),
		URL:        path,
		ArtworkURL: artwork.InDir(dir),
		Path:       path,
		Size:       size,
		Format:     strings.ToLower(strings.TrimPrefix(ext, ".")),
	}
}

func urlTrack(u *url.URL) playback.Track {
	base := filepath.Base(u.Path)
	ext := filepath.Ext(base)
	return playback.Track{
		ID:     u.String(),
		Title:  strings.TrimSuffix(base, ext),
		URL:    u.String(),
		Path:   u.Path,
		Format: strings.ToLower(strings.TrimPrefix(ext, ".")),
	}
}
