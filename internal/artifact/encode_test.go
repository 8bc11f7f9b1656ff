package artifact

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 8, 4))
	img.SetRGBA(2, 1, color.RGBA{R: 0x33, G: 0x33, B: 0x33, A: 0xff})
	return img
}

func TestEncodePNGDataURI(t *testing.T) {
	uri, err := Encoder{Format: FormatPNG, Quality: 0.9}.Encode(sampleImage())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(uri, "data:image/png;base64,"))

	mime, data, err := Decode(uri)
	require.NoError(t, err)
	assert.Equal(t, "image/png", mime)

	decoded, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 8, 4), decoded.Bounds())
	_, _, _, a := decoded.At(2, 1).RGBA()
	assert.Equal(t, uint32(0xffff), a)
	_, _, _, a = decoded.At(0, 0).RGBA()
	assert.Equal(t, uint32(0), a)
}

func TestEncodeJPEGFlattensOntoWhite(t *testing.T) {
	uri, err := Encoder{Format: FormatJPEG, Quality: 1}.Encode(sampleImage())
	require.NoError(t, err)
	mime, data, err := Decode(uri)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", mime)

	decoded, err := jpeg.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	r, _, _, _ := decoded.At(7, 3).RGBA()
	assert.Greater(t, r, uint32(0xe000), "transparent background should become white")
}

func TestEncodeDefaultsToPNG(t *testing.T) {
	uri, err := Encoder{}.Encode(sampleImage())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(uri, "data:image/png;base64,"))

	_, err = Encoder{Format: "image/gif"}.Encode(sampleImage())
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	_, err = Encoder{}.Encode(nil)
	assert.Error(t, err)
}

func TestParseFormat(t *testing.T) {
	for input, want := range map[string]Format{
		"":           FormatPNG,
		"PNG":        FormatPNG,
		"image/png":  FormatPNG,
		"jpg":        FormatJPEG,
		"image/jpeg": FormatJPEG,
	} {
		got, err := ParseFormat(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}
	_, err := ParseFormat("webp")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestJPEGQualityScale(t *testing.T) {
	assert.Equal(t, 90, jpegQuality(0.9))
	assert.Equal(t, 1, jpegQuality(0))
	assert.Equal(t, 100, jpegQuality(1))
	assert.Equal(t, 92, jpegQuality(7))
	assert.Equal(t, 92, jpegQuality(-1))
}

func TestDecodeRejectsNonDataURIs(t *testing.T) {
	for _, input := range []string{"", "hello", "data:image/png,abc", "data:image/png;base64"} {
		_, _, err := Decode(input)
		assert.ErrorIs(t, err, ErrNotDataURI, input)
	}
	_, _, err := Decode("data:image/png;base64,@@@")
	assert.Error(t, err)
}

func TestExtension(t *testing.T) {
	assert.Equal(t, ".png", Extension("image/png"))
	assert.Equal(t, ".jpg", Extension("image/jpeg"))
	assert.Equal(t, ".png", Extension("application/octet-stream"))
}
