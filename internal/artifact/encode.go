// Package artifact turns a signature raster into the opaque string stored
// in the roster slot, and back into image bytes for export.
package artifact

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"math"
	"strings"
)

// Format is the MIME type of an encoded artifact.
type Format string

const (
	FormatPNG  Format = "image/png"
	FormatJPEG Format = "image/jpeg"
)

// DefaultQuality is used when a lossy format is given no usable quality.
const DefaultQuality = 0.92

var (
	// ErrUnsupportedFormat is returned for formats other than PNG and JPEG.
	ErrUnsupportedFormat = errors.New("artifact: unsupported format")
	// ErrNotDataURI is returned by Decode for strings that are not base64 data URIs.
	ErrNotDataURI = errors.New("artifact: not a base64 data uri")
)

// ParseFormat accepts a MIME type or a short name ("png", "jpeg", "jpg").
func ParseFormat(value string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "png", "image/png":
		return FormatPNG, nil
	case "jpeg", "jpg", "image/jpeg", "image/jpg":
		return FormatJPEG, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, value)
	}
}

// Extension returns the file extension for a MIME type, including the dot.
func Extension(mime string) string {
	switch Format(strings.ToLower(mime)) {
	case FormatJPEG:
		return ".jpg"
	default:
		return ".png"
	}
}

// Encoder renders rasters as data URIs. Quality is in [0, 1] and only
// affects lossy formats.
type Encoder struct {
	Format  Format
	Quality float64
}

// Encode returns "data:<mime>;base64,<payload>".
func (e Encoder) Encode(img image.Image) (string, error) {
	if img == nil {
		return "", errors.New("artifact: nil image")
	}
	format := e.Format
	if format == "" {
		format = FormatPNG
	}
	var buf bytes.Buffer
	switch format {
	case FormatPNG:
		if err := png.Encode(&buf, img); err != nil {
			return "", fmt.Errorf("artifact: encode png: %w", err)
		}
	case FormatJPEG:
		opts := &jpeg.Options{Quality: jpegQuality(e.Quality)}
		if err := jpeg.Encode(&buf, flatten(img), opts); err != nil {
			return "", fmt.Errorf("artifact: encode jpeg: %w", err)
		}
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	return "data:" + string(format) + ";base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Decode splits a base64 data URI into its MIME type and payload bytes.
func Decode(uri string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(uri), "data:")
	if !ok {
		return "", nil, ErrNotDataURI
	}
	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, ErrNotDataURI
	}
	mime, isBase64 := strings.CutSuffix(header, ";base64")
	if !isBase64 {
		return "", nil, ErrNotDataURI
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("artifact: decode payload: %w", err)
	}
	return mime, data, nil
}

// jpegQuality maps a [0, 1] quality onto the encoder's 1-100 scale.
func jpegQuality(q float64) int {
	if q < 0 || q > 1 || math.IsNaN(q) {
		q = DefaultQuality
	}
	v := int(math.Round(q * 100))
	if v < 1 {
		v = 1
	}
	return v
}

// flatten composites img over white; JPEG has no alpha channel.
func flatten(img image.Image) image.Image {
	b := img.Bounds()
	out := image.NewRGBA(b)
	draw.Draw(out, b, image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(out, b, img, b.Min, draw.Over)
	return out
}
