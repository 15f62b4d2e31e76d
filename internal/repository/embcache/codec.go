package embcache

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Cache entry layout: version byte, uint16 dimension, then the vector as
// little-endian float32s.
const (
	entryVersion    = 1
	entryHeaderSize = 3
)

func encodeEntry(v []float32) []byte {
	buf := make([]byte, entryHeaderSize+len(v)*4)
	buf[0] = entryVersion
	binary.LittleEndian.PutUint16(buf[1:3], uint16(len(v)))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[entryHeaderSize+i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeEntry(data []byte) ([]float32, error) {
	if len(data) < entryHeaderSize {
		return nil, fmt.Errorf("cache entry too short: %d bytes", len(data))
	}
	if data[0] != entryVersion {
		return nil, fmt.Errorf("cache entry version %d, want %d", data[0], entryVersion)
	}
	dim := int(binary.LittleEndian.Uint16(data[1:3]))
	body := data[entryHeaderSize:]
	if dim == 0 || len(body) != dim*4 {
		return nil, fmt.Errorf("cache entry declares %d dimensions but carries %d bytes", dim, len(body))
	}
	vec := make([]float32, dim)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(body[i*4:]))
	}
	return vec, nil
}
