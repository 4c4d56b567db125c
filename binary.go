package safeloader

import "encoding/binary"

// be32 and putBE32 centralize the big-endian u32 reads/writes used
// throughout the container codec, mirroring the teacher's direct
// encoding/binary use in bootimg.go rather than reaching for a
// third-party binary-struct library.
func be32(b []byte) uint32 {
	return binary.BigEndian.Uint32(b)
}

func putBE32(b []byte, v uint32) {
	binary.BigEndian.PutUint32(b, v)
}
