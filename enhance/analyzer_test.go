package enhance

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uniformLum(n int, v uint8) []uint8 {
	out := make([]uint8, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func uniformBuffer(width, height int, r, g, b uint8) *PixelBuffer {
	buf := NewPixelBuffer(width, height)
	for i := 0; i < len(buf.Pix); i += 3 {
		buf.Pix[i] = r
		buf.Pix[i+1] = g
		buf.Pix[i+2] = b
	}
	return buf
}

func TestLuminancePlane(t *testing.T) {
	buf := NewPixelBuffer(2, 1)
	copy(buf.Pix, []uint8{255, 0, 0, 0, 255, 0})
	lum := luminancePlane(buf)

	// Rec.601 weights, rounded
	assert.Equal(t, uint8(76), lum[0])
	assert.Equal(t, uint8(150), lum[1])
}

func TestExposureLevel(t *testing.T) {
	a := NewAnalyzer(DefaultTunables())

	t.Run("middle gray is near zero EV", func(t *testing.T) {
		lum := uniformLum(100, 128)
		got := a.exposureLevel(lum, nil)
		assert.InDelta(t, math.Log2(128.0/255.0/0.5), got, 1e-9)
	})

	t.Run("dark image reads negative", func(t *testing.T) {
		got := a.exposureLevel(uniformLum(100, 40), nil)
		assert.Less(t, got, -1.0)
	})

	t.Run("bright image reads positive", func(t *testing.T) {
		got := a.exposureLevel(uniformLum(100, 220), nil)
		assert.Greater(t, got, 0.5)
	})

	t.Run("black image floors at minus two", func(t *testing.T) {
		got := a.exposureLevel(uniformLum(100, 0), nil)
		assert.InDelta(t, -2.0, got, 1e-9)
	})

	t.Run("exposure compensation shifts the estimate", func(t *testing.T) {
		lum := uniformLum(100, 128)
		base := a.exposureLevel(lum, nil)
		capture := &CaptureMetadata{ExposureCompensation: floatPtr(1.0)}
		assert.InDelta(t, base+1.0, a.exposureLevel(lum, capture), 1e-9)
	})

	t.Run("result clamps to two EV", func(t *testing.T) {
		capture := &CaptureMetadata{ExposureCompensation: floatPtr(5.0)}
		got := a.exposureLevel(uniformLum(100, 128), capture)
		assert.InDelta(t, 2.0, got, 1e-9)
	})

	t.Run("histogram middle ignores extreme tails", func(t *testing.T) {
		// 60% midtones plus 40% split between pure black and pure white; the
		// 25th-75th percentile window should hold only the midtone bin
		lum := make([]uint8, 100)
		for i := 0; i < 60; i++ {
			lum[i] = 128
		}
		for i := 60; i < 80; i++ {
			lum[i] = 0
		}
		for i := 80; i < 100; i++ {
			lum[i] = 255
		}
		got := a.exposureLevel(lum, nil)
		assert.InDelta(t, math.Log2(128.0/255.0/0.5), got, 1e-9)
	})
}

func TestContrastLevel(t *testing.T) {
	a := NewAnalyzer(DefaultTunables())

	t.Run("flat image has zero contrast", func(t *testing.T) {
		assert.Zero(t, a.contrastLevel(uniformLum(64, 128)))
	})

	t.Run("black and white halves have high contrast", func(t *testing.T) {
		lum := make([]uint8, 100)
		for i := 50; i < 100; i++ {
			lum[i] = 255
		}
		// std dev is 127.5, normalized by 128
		assert.InDelta(t, 127.5/128.0, a.contrastLevel(lum), 1e-9)
	})
}

func TestClippingPercent(t *testing.T) {
	a := NewAnalyzer(DefaultTunables())

	lum := make([]uint8, 100)
	for i := 0; i < 10; i++ {
		lum[i] = 3 // at or below threshold 5
	}
	for i := 10; i < 90; i++ {
		lum[i] = 128
	}
	for i := 90; i < 100; i++ {
		lum[i] = 252 // at or above threshold 250
	}

	shadow, highlight := a.clippingPercent(lum)
	assert.InDelta(t, 10.0, shadow, 1e-9)
	assert.InDelta(t, 10.0, highlight, 1e-9)
}

func TestDetectBacklit(t *testing.T) {
	a := NewAnalyzer(DefaultTunables())

	makeLum := func(width, height int, center, edge uint8) []uint8 {
		lum := make([]uint8, width*height)
		cl, cr := int(float64(width)*0.3), int(float64(width)*0.7)
		ct, cb := int(float64(height)*0.3), int(float64(height)*0.7)
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				v := edge
				if x >= cl && x < cr && y >= ct && y < cb {
					v = center
				}
				lum[y*width+x] = v
			}
		}
		return lum
	}

	t.Run("bright edges with dark center", func(t *testing.T) {
		assert.True(t, a.detectBacklit(makeLum(100, 100, 40, 220), 100, 100))
	})

	t.Run("uniform scene is not backlit", func(t *testing.T) {
		assert.False(t, a.detectBacklit(makeLum(100, 100, 128, 128), 100, 100))
	})

	t.Run("bright center is not backlit", func(t *testing.T) {
		assert.False(t, a.detectBacklit(makeLum(100, 100, 220, 120), 100, 100))
	})

	t.Run("degenerate dimensions are rejected", func(t *testing.T) {
		assert.False(t, a.detectBacklit(uniformLum(4, 0), 4, 1))
	})
}

func TestDetectLowLight(t *testing.T) {
	a := NewAnalyzer(DefaultTunables())

	t.Run("very dark is low light without metadata", func(t *testing.T) {
		assert.True(t, a.detectLowLight(uniformLum(100, 30), nil))
	})

	t.Run("moderately dark needs a supporting hint", func(t *testing.T) {
		lum := uniformLum(100, 60) // mean ~0.235, between thresholds
		assert.False(t, a.detectLowLight(lum, nil))
		assert.False(t, a.detectLowLight(lum, &CaptureMetadata{ISO: intPtr(400)}))
		assert.True(t, a.detectLowLight(lum, &CaptureMetadata{ISO: intPtr(1600)}))
		assert.True(t, a.detectLowLight(lum, &CaptureMetadata{ExposureTime: floatPtr(0.1)}))
	})

	t.Run("bright image is never low light", func(t *testing.T) {
		lum := uniformLum(100, 200)
		assert.False(t, a.detectLowLight(lum, &CaptureMetadata{ISO: intPtr(6400)}))
	})
}

func TestRegionMean(t *testing.T) {
	lum := []uint8{
		10, 20, 30,
		40, 50, 60,
	}
	assert.InDelta(t, 35.0, regionMean(lum, 3, 0, 0, 3, 2), 1e-9)
	assert.InDelta(t, 50.0, regionMean(lum, 3, 1, 1, 2, 2), 1e-9)
	assert.Zero(t, regionMean(lum, 3, 1, 1, 1, 1))
}

func TestAnalyzeCarriesCaptureMetadata(t *testing.T) {
	a := NewAnalyzer(DefaultTunables())
	capture := &CaptureMetadata{ISO: intPtr(800)}
	m := a.Analyze(uniformBuffer(16, 16, 128, 128, 128), capture)
	assert.Same(t, capture, m.Capture)
}

func TestDetectSkinTones(t *testing.T) {
	a := NewAnalyzer(DefaultTunables())

	t.Run("skin colored buffer reports its hue range", func(t *testing.T) {
		// RGB(200,150,120) sits at ~22.5 degrees with saturation 102
		detected, hueRange := a.detectSkinTones(uniformBuffer(32, 32, 200, 150, 120))
		require.True(t, detected)
		require.NotNil(t, hueRange)
		assert.InDelta(t, 22.5, hueRange.Min, 3.0)
		assert.InDelta(t, 22.5, hueRange.Max, 3.0)
		assert.LessOrEqual(t, hueRange.Min, hueRange.Max)
	})

	t.Run("blue buffer is not skin", func(t *testing.T) {
		detected, hueRange := a.detectSkinTones(uniformBuffer(32, 32, 50, 80, 200))
		assert.False(t, detected)
		assert.Nil(t, hueRange)
	})

	t.Run("desaturated buffer is not skin", func(t *testing.T) {
		detected, hueRange := a.detectSkinTones(uniformBuffer(32, 32, 180, 175, 172))
		assert.False(t, detected)
		assert.Nil(t, hueRange)
	})

	t.Run("coverage below threshold is not detected", func(t *testing.T) {
		buf := uniformBuffer(20, 20, 128, 128, 128)
		for p := 0; p < 12; p++ { // 3% of 400 pixels
			i := p * 3
			buf.Pix[i], buf.Pix[i+1], buf.Pix[i+2] = 200, 150, 120
		}
		detected, _ := a.detectSkinTones(buf)
		assert.False(t, detected)
	})
}
