package media

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func appendSegment(dst []byte, marker byte, payload []byte) []byte {
	dst = append(dst, markerStart, marker)
	length := make([]byte, 2)
	binary.BigEndian.PutUint16(length, uint16(len(payload)+2))
	dst = append(dst, length...)
	return append(dst, payload...)
}

func buildJPEG(segments ...[]byte) []byte {
	data := []byte{markerStart, markerSOI}
	for _, s := range segments {
		data = append(data, s...)
	}
	// scan header and fake entropy data
	data = append(data, markerStart, markerSOS, 0x00, 0x04, 0x01, 0x00)
	data = append(data, 0xAA, 0xBB, 0xCC)
	return append(data, markerStart, 0xD9)
}

func xmpSegment(payload []byte) []byte {
	body := append([]byte(xmpNamespace+"\x00"), payload...)
	return appendSegment(nil, markerAPP1, body)
}

func iccSegment(seq, count byte, chunk []byte) []byte {
	body := append(append([]byte(nil), iccSig...), seq, count)
	body = append(body, chunk...)
	return appendSegment(nil, markerAPP2, body)
}

func TestExtractXMP(t *testing.T) {
	payload := []byte("<x:xmpmeta>faces</x:xmpmeta>")

	t.Run("present", func(t *testing.T) {
		data := buildJPEG(xmpSegment(payload))
		assert.Equal(t, payload, ExtractXMP(data))
	})

	t.Run("absent", func(t *testing.T) {
		exif := appendSegment(nil, markerAPP1, []byte("Exif\x00\x00rest"))
		assert.Nil(t, ExtractXMP(buildJPEG(exif)))
	})

	t.Run("not a jpeg", func(t *testing.T) {
		assert.Nil(t, ExtractXMP([]byte("PNG...")))
		assert.Nil(t, ExtractXMP(nil))
	})

	t.Run("skips non-xmp app1 and finds the xmp one", func(t *testing.T) {
		exif := appendSegment(nil, markerAPP1, []byte("Exif\x00\x00rest"))
		data := buildJPEG(exif, xmpSegment(payload))
		assert.Equal(t, payload, ExtractXMP(data))
	})
}

func TestExtractICC(t *testing.T) {
	t.Run("single chunk", func(t *testing.T) {
		profile := []byte("fake-icc-profile-bytes")
		data := buildJPEG(iccSegment(1, 1, profile))
		assert.Equal(t, profile, ExtractICC(data))
	})

	t.Run("multi chunk reassembles in sequence order", func(t *testing.T) {
		// chunks appear out of order in the stream
		data := buildJPEG(
			iccSegment(2, 2, []byte("-part2")),
			iccSegment(1, 2, []byte("part1")),
		)
		assert.Equal(t, []byte("part1-part2"), ExtractICC(data))
	})

	t.Run("absent", func(t *testing.T) {
		assert.Nil(t, ExtractICC(buildJPEG()))
	})

	t.Run("app2 without the signature is ignored", func(t *testing.T) {
		other := appendSegment(nil, markerAPP2, []byte("MPF\x00data"))
		assert.Nil(t, ExtractICC(buildJPEG(other)))
	})
}

func TestInjectICC(t *testing.T) {
	profile := []byte("fake-icc-profile-bytes")

	t.Run("roundtrip through a plain jpeg", func(t *testing.T) {
		plain := buildJPEG()
		withProfile := InjectICC(plain, profile)

		require.NotEqual(t, plain, withProfile)
		assert.Equal(t, profile, ExtractICC(withProfile))
	})

	t.Run("inserted after leading app0", func(t *testing.T) {
		app0 := appendSegment(nil, markerAPP0, []byte("JFIF\x00rest"))
		data := buildJPEG(app0)
		out := InjectICC(data, profile)

		assert.True(t, bytes.HasPrefix(out, append([]byte{markerStart, markerSOI}, app0...)),
			"APP0 stays first")
		assert.Equal(t, profile, ExtractICC(out))
	})

	t.Run("large profile splits into chunks", func(t *testing.T) {
		large := bytes.Repeat([]byte{0x42}, iccMaxChunkData+100)
		out := InjectICC(buildJPEG(), large)
		assert.Equal(t, large, ExtractICC(out))
	})

	t.Run("empty profile is a no-op", func(t *testing.T) {
		plain := buildJPEG()
		assert.Equal(t, plain, InjectICC(plain, nil))
	})

	t.Run("non-jpeg input is returned unchanged", func(t *testing.T) {
		data := []byte("not a jpeg")
		assert.Equal(t, data, InjectICC(data, profile))
	})
}

func TestWalkSegmentsStopsAtScanData(t *testing.T) {
	seen := 0
	data := buildJPEG(xmpSegment([]byte("x")))
	walkSegments(data, func(marker byte, payload []byte) bool {
		seen++
		return true
	})
	assert.Equal(t, 1, seen, "entropy-coded data after SOS must not be parsed as segments")
}

func TestWalkSegmentsTruncatedInput(t *testing.T) {
	data := []byte{markerStart, markerSOI, markerStart, markerAPP1, 0xFF}
	walkSegments(data, func(marker byte, payload []byte) bool {
		t.Fatal("truncated segment must not be delivered")
		return false
	})
}
