package media

import (
	"bytes"
	"encoding/binary"
	"sort"
)

// JPEG marker handling for metadata pass-through. The pipeline never
// interprets the ICC profile; it is lifted out of the source APP2 chain and
// re-inserted into the encoded output byte for byte.

const (
	markerStart = 0xFF
	markerSOI   = 0xD8
	markerSOS   = 0xDA
	markerAPP0  = 0xE0
	markerAPP1  = 0xE1
	markerAPP2  = 0xE2
)

const xmpNamespace = "http://ns.adobe.com/xap/1.0/"

var iccSig = []byte{'I', 'C', 'C', '_', 'P', 'R', 'O', 'F', 'I', 'L', 'E', 0}

// Each ICC chunk payload is the signature, a 1-based sequence index, a chunk
// count, then profile bytes. Segment length is a uint16 including itself.
const iccMaxChunkData = 65535 - 2 - len("ICC_PROFILE") - 1 - 2

func isJPEG(data []byte) bool {
	return len(data) >= 2 && data[0] == markerStart && data[1] == markerSOI
}

// walkSegments calls fn for every marker segment before the scan data. fn
// receives the marker byte and the payload after the two length bytes.
func walkSegments(data []byte, fn func(marker byte, payload []byte) bool) {
	if !isJPEG(data) {
		return
	}
	pos := 2
	for pos+3 < len(data) {
		if data[pos] != markerStart {
			return
		}
		marker := data[pos+1]
		if marker == markerSOS {
			return
		}
		if marker == markerSOI || marker == 0xD9 || (marker >= 0xD0 && marker <= 0xD7) {
			pos += 2
			continue
		}
		length := int(binary.BigEndian.Uint16(data[pos+2 : pos+4]))
		if length < 2 || pos+2+length > len(data) {
			return
		}
		if !fn(marker, data[pos+4:pos+2+length]) {
			return
		}
		pos += 2 + length
	}
}

// ExtractXMP returns the XMP payload from the first APP1 XMP segment, or nil.
func ExtractXMP(data []byte) []byte {
	var xmp []byte
	walkSegments(data, func(marker byte, payload []byte) bool {
		if marker != markerAPP1 {
			return true
		}
		prefix := []byte(xmpNamespace + "\x00")
		if !bytes.HasPrefix(payload, prefix) {
			return true
		}
		xmp = append([]byte(nil), payload[len(prefix):]...)
		return false
	})
	return xmp
}

// ExtractICC reassembles the ICC profile from the APP2 ICC_PROFILE chunk
// chain, ordered by sequence index. Returns nil when no profile is present.
func ExtractICC(data []byte) []byte {
	type chunk struct {
		seq  int
		data []byte
	}
	var chunks []chunk
	walkSegments(data, func(marker byte, payload []byte) bool {
		if marker != markerAPP2 || !bytes.HasPrefix(payload, iccSig) {
			return true
		}
		body := payload[len(iccSig):]
		if len(body) < 2 {
			return true
		}
		chunks = append(chunks, chunk{seq: int(body[0]), data: append([]byte(nil), body[2:]...)})
		return true
	})
	if len(chunks) == 0 {
		return nil
	}
	sort.SliceStable(chunks, func(i, j int) bool { return chunks[i].seq < chunks[j].seq })

	var profile []byte
	for _, c := range chunks {
		profile = append(profile, c.data...)
	}
	return profile
}

// InjectICC inserts the profile as a chain of APP2 ICC_PROFILE segments
// directly after the SOI marker (and any JFIF APP0). The profile bytes are
// not interpreted. Returns the input unchanged when it is not a JPEG or the
// profile is empty.
func InjectICC(data, profile []byte) []byte {
	if !isJPEG(data) || len(profile) == 0 {
		return data
	}

	chunkCount := (len(profile) + iccMaxChunkData - 1) / iccMaxChunkData
	if chunkCount > 255 {
		return data
	}

	var segments bytes.Buffer
	for i := 0; i < chunkCount; i++ {
		start := i * iccMaxChunkData
		end := start + iccMaxChunkData
		if end > len(profile) {
			end = len(profile)
		}
		chunk := profile[start:end]

		payloadLen := 2 + len(iccSig) + 2 + len(chunk)
		segments.WriteByte(markerStart)
		segments.WriteByte(markerAPP2)
		_ = binary.Write(&segments, binary.BigEndian, uint16(payloadLen))
		segments.Write(iccSig)
		segments.WriteByte(byte(i + 1))
		segments.WriteByte(byte(chunkCount))
		segments.Write(chunk)
	}

	insertAt := insertOffset(data)
	out := make([]byte, 0, len(data)+segments.Len())
	out = append(out, data[:insertAt]...)
	out = append(out, segments.Bytes()...)
	out = append(out, data[insertAt:]...)
	return out
}

// insertOffset finds the position after SOI and any leading APP0/APP1
// segments where new metadata segments belong.
func insertOffset(data []byte) int {
	pos := 2
	for pos+3 < len(data) {
		if data[pos] != markerStart {
			break
		}
		marker := data[pos+1]
		if marker != markerAPP0 && marker != markerAPP1 {
			break
		}
		length := int(binary.BigEndian.Uint16(data[pos+2 : pos+4]))
		if length < 2 || pos+2+length > len(data) {
			break
		}
		pos += 2 + length
	}
	return pos
}
