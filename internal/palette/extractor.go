package palette

import (
	"container/list"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // JPEG cover art
	_ "image/png"  // PNG cover art
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	_ "golang.org/x/image/webp" // WebP cover art

	"github.com/llehouerou/wavecast/internal/playback"
)

const (
	cacheSize      = 256
	defaultTimeout = 10 * time.Second
	// Cover art larger than this is refused.
	maxArtworkBytes = 16 << 20
)

// ErrNoArtwork is returned for a track without an artwork location.
var ErrNoArtwork = errors.New("track has no artwork")

// Extractor fetches cover art and derives palettes, caching results by
// artwork location.
type Extractor struct {
	client *http.Client
	size   int
	cache  *cache
}

// NewExtractor creates an extractor producing size colors per palette.
func NewExtractor(size int) *Extractor {
	return &Extractor{
		client: &http.Client{Timeout: defaultTimeout},
		size:   size,
		cache:  newCache(cacheSize),
	}
}

// Palette returns the palette for t's artwork.
func (e *Extractor) Palette(ctx context.Context, t playback.Track) (playback.Palette, error) {
	loc := t.ArtworkURL
	if loc == "" {
		return nil, ErrNoArtwork
	}
	if p, ok := e.cache.get(loc); ok {
		return p, nil
	}

	img, err := e.load(ctx, loc)
	if err != nil {
		return nil, fmt.Errorf("load artwork: %w", err)
	}
	p := FromImage(img, e.size)
	e.cache.put(loc, p)
	return p, nil
}

func (e *Extractor) load(ctx context.Context, loc string) (image.Image, error) {
	var r io.ReadCloser
	switch {
	case strings.HasPrefix(loc, "http://"), strings.HasPrefix(loc, "https://"):
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, loc, nil)
		if err != nil {
			return nil, err
		}
		resp, err := e.client.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("unexpected status: %s", resp.Status)
		}
		r = resp.Body
	default:
		path := loc
		if u, err := url.Parse(loc); err == nil && u.Scheme == "file" {
			path = u.Path
		}
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		r = f
	}
	defer r.Close()

	img, _, err := image.Decode(io.LimitReader(r, maxArtworkBytes))
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return img, nil
}

// cache is a mutex-guarded LRU of palettes.
type cache struct {
	mu    sync.Mutex
	limit int
	order *list.List
	items map[string]*list.Element
}

type entry struct {
	key     string
	palette playback.Palette
}

func newCache(limit int) *cache {
	return &cache{
		limit: limit,
		order: list.New(),
		items: make(map[string]*list.Element),
	}
}

func (c *cache) get(key string) (playback.Palette, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[key]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*entry).palette, true
}

func (c *cache) put(key string, p playback.Palette) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		el.Value.(*entry).palette = p
		c.order.MoveToFront(el)
		return
	}
	c.items[key] = c.order.PushFront(&entry{key: key, palette: p})
	for c.order.Len() > c.limit {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(*entry).key)
	}
}

func (c *cache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
