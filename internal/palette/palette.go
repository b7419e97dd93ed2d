// Package palette derives a small set of dominant colors from cover art.
package palette

import (
	"cmp"
	"image"
	"image/color"
	"slices"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/nfnt/resize"

	"github.com/llehouerou/wavecast/internal/playback"
)

const (
	DefaultSize = 5
	MaxSize     = 16

	// Artwork is downscaled to at most this many pixels per side.
	sampleSide = 64
	// Colors closer than this in Lab space are treated as the same swatch.
	minDistance = 0.12
	// Pixels with less alpha than this are ignored.
	minAlpha = 0x8000
)

type bucket struct {
	sum   colorful.Color
	count int
}

// FromImage returns up to n hex colors ordered by how much of img they
// cover. Near-duplicate colors are merged.
func FromImage(img image.Image, n int) playback.Palette {
	if n <= 0 {
		n = DefaultSize
	}
	n = min(n, MaxSize)

	b := img.Bounds()
	if b.Dx() > sampleSide || b.Dy() > sampleSide {
		img = resize.Thumbnail(sampleSide, sampleSide, img, resize.Bilinear)
		b = img.Bounds()
	}

	buckets := make(map[uint16]*bucket)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			px := img.At(x, y)
			if _, _, _, a := px.RGBA(); a < minAlpha {
				continue
			}
			c := toColorful(px)
			key := quantize(c)
			bk, ok := buckets[key]
			if !ok {
				bk = &bucket{}
				buckets[key] = bk
			}
			bk.sum.R += c.R
			bk.sum.G += c.G
			bk.sum.B += c.B
			bk.count++
		}
	}

	ranked := make([]*bucket, 0, len(buckets))
	for _, bk := range buckets {
		ranked = append(ranked, bk)
	}
	slices.SortFunc(ranked, func(a, b *bucket) int {
		if c := cmp.Compare(b.count, a.count); c != 0 {
			return c
		}
		return cmp.Compare(a.mean().Hex(), b.mean().Hex())
	})

	var picked []colorful.Color
	for _, bk := range ranked {
		c := bk.mean()
		if slices.ContainsFunc(picked, func(p colorful.Color) bool {
			return p.DistanceLab(c) < minDistance
		}) {
			continue
		}
		picked = append(picked, c)
		if len(picked) == n {
			break
		}
	}

	out := make(playback.Palette, len(picked))
	for i, c := range picked {
		out[i] = c.Hex()
	}
	return out
}

func (b *bucket) mean() colorful.Color {
	n := float64(b.count)
	return colorful.Color{R: b.sum.R / n, G: b.sum.G / n, B: b.sum.B / n}.Clamped()
}

// quantize maps c to a 4-bit-per-channel bucket key.
func quantize(c colorful.Color) uint16 {
	r, g, bl := c.RGB255()
	return uint16(r>>4)<<8 | uint16(g>>4)<<4 | uint16(bl>>4)
}

func toColorful(c color.Color) colorful.Color {
	if cf, ok := colorful.MakeColor(c); ok {
		return cf
	}
	return colorful.Color{}
}
