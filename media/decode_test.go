package media

import (
	"bytes"
	"image"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsRasterImage(t *testing.T) {
	tests := []struct {
		filename string
		want     bool
	}{
		{"photo.jpg", true},
		{"photo.JPEG", true},
		{"scan.tiff", true},
		{"pic.webp", true},
		{"archive.zip", false},
		{"noext", false},
		{"movie.mp4", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsRasterImage(tt.filename), tt.filename)
	}
}

func encodeTestJPEG(t *testing.T, width, height int, c color.NRGBA) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	var out bytes.Buffer
	require.NoError(t, imaging.Encode(&out, img, imaging.JPEG, imaging.JPEGQuality(95)))
	return out.Bytes()
}

func TestDecode(t *testing.T) {
	t.Run("jpeg decodes with dimensions", func(t *testing.T) {
		data := encodeTestJPEG(t, 40, 30, color.NRGBA{R: 120, G: 130, B: 140, A: 255})

		buf, meta, err := Decode(data)
		require.NoError(t, err)
		assert.Equal(t, 40, buf.Width)
		assert.Equal(t, 30, buf.Height)
		assert.Len(t, buf.Pix, 40*30*3)

		require.NotNil(t, meta)
		require.NotNil(t, meta.Capture, "capture record is always present, fields optional")
		assert.Nil(t, meta.XMP)
		assert.Nil(t, meta.ICCProfile)
	})

	t.Run("jpeg pixel values survive approximately", func(t *testing.T) {
		data := encodeTestJPEG(t, 16, 16, color.NRGBA{R: 200, G: 200, B: 200, A: 255})
		buf, _, err := Decode(data)
		require.NoError(t, err)
		// JPEG is lossy; a uniform gray should come back close
		assert.InDelta(t, 200, int(buf.Pix[0]), 6)
	})

	t.Run("icc profile is lifted when present", func(t *testing.T) {
		profile := []byte("test-icc-profile")
		data := InjectICC(encodeTestJPEG(t, 8, 8, color.NRGBA{A: 255}), profile)

		_, meta, err := Decode(data)
		require.NoError(t, err)
		assert.Equal(t, profile, meta.ICCProfile)
	})

	t.Run("garbage is an error", func(t *testing.T) {
		_, _, err := Decode([]byte("definitely not an image"))
		assert.Error(t, err)
	})
}

func TestPixelBufferImageRoundtrip(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	img.SetNRGBA(0, 0, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	img.SetNRGBA(2, 1, color.NRGBA{R: 200, G: 100, B: 50, A: 255})

	buf := toPixelBuffer(img)
	require.Equal(t, 3, buf.Width)
	require.Equal(t, 2, buf.Height)

	r, g, b := buf.RGBAt(0, 0)
	assert.Equal(t, [3]uint8{10, 20, 30}, [3]uint8{r, g, b})

	back := toImage(buf)
	assert.Equal(t, color.NRGBA{R: 200, G: 100, B: 50, A: 255}, back.NRGBAAt(2, 1))
}

func TestEncodeJPEG(t *testing.T) {
	buf, _, err := Decode(encodeTestJPEG(t, 20, 10, color.NRGBA{R: 90, G: 90, B: 90, A: 255}))
	require.NoError(t, err)

	t.Run("produces a decodable jpeg", func(t *testing.T) {
		out, err := EncodeJPEG(buf, nil, 90)
		require.NoError(t, err)
		require.True(t, isJPEG(out))

		decoded, _, err := Decode(out)
		require.NoError(t, err)
		assert.Equal(t, 20, decoded.Width)
		assert.Equal(t, 10, decoded.Height)
	})

	t.Run("reinjects the icc profile", func(t *testing.T) {
		profile := []byte("sidecar-profile")
		out, err := EncodeJPEG(buf, profile, 90)
		require.NoError(t, err)
		assert.Equal(t, profile, ExtractICC(out))
	})

	t.Run("rejects empty buffers", func(t *testing.T) {
		_, err := EncodeJPEG(nil, nil, 90)
		assert.Error(t, err)
	})
}
