package pack

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

// factFileName derives a filesystem-safe, length-bounded file name for an
// encoded-args path segment: a predicate's facts can carry arbitrary bytes
// in their path segment (atoms are only length-prefixed, not escaped), so
// the segment itself cannot safely be a file name.
func factFileName(pathSegment string) string {
	sum := sha256.Sum256([]byte(pathSegment))
	return hex.EncodeToString(sum[:])
}

// encodeFactFile frames (pathSegment, blob) into a single file's bytes: a
// 4-byte big-endian length prefix for pathSegment, followed by pathSegment,
// followed by the raw blob.
func encodeFactFile(pathSegment string, blob []byte) []byte {
	out := make([]byte, 4+len(pathSegment)+len(blob))
	binary.BigEndian.PutUint32(out[0:4], uint32(len(pathSegment)))
	copy(out[4:], pathSegment)
	copy(out[4+len(pathSegment):], blob)
	return out
}

// decodeFactFile reverses encodeFactFile.
func decodeFactFile(data []byte) (pathSegment string, blob []byte, err error) {
	if len(data) < 4 {
		return "", nil, fmt.Errorf("pack: fact file too short (%d bytes)", len(data))
	}
	segLen := binary.BigEndian.Uint32(data[0:4])
	if uint64(4+segLen) > uint64(len(data)) {
		return "", nil, fmt.Errorf("pack: fact file declares path length %d beyond file size %d", segLen, len(data))
	}
	pathSegment = string(data[4 : 4+segLen])
	blob = data[4+segLen:]
	return pathSegment, blob, nil
}
