package primitives

import (
	"bytes"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// povCompressionMagic prefixes a compressed proof of validity so peers can
// distinguish it from a raw one. The availability payload always carries
// the raw proof; compression exists only for transport and collator output.
var povCompressionMagic = []byte{0x52, 0xbc, 0x53, 0x76, 0x46, 0x67, 0x05}

var (
	povEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	povDecoder, _ = zstd.NewReader(nil)
)

// CompressPoV returns a PoV whose block data is the zstd-compressed
// original behind the magic prefix. Compressing twice is rejected.
func CompressPoV(pov *PoV) (*PoV, error) {
	if IsCompressedPoV(pov) {
		return nil, fmt.Errorf("proof of validity already compressed")
	}

	out := make([]byte, len(povCompressionMagic))
	copy(out, povCompressionMagic)
	out = povEncoder.EncodeAll(pov.BlockData, out)

	return &PoV{BlockData: out}, nil
}

// DecompressPoV returns the raw proof of validity. A proof without the
// magic prefix is returned unchanged.
func DecompressPoV(pov *PoV) (*PoV, error) {
	if !IsCompressedPoV(pov) {
		return pov, nil
	}

	raw, err := povDecoder.DecodeAll(pov.BlockData[len(povCompressionMagic):], nil)
	if err != nil {
		return nil, fmt.Errorf("decompress proof of validity: %w", err)
	}

	return &PoV{BlockData: raw}, nil
}

// IsCompressedPoV reports whether the proof carries the compression prefix.
func IsCompressedPoV(pov *PoV) bool {
	return bytes.HasPrefix(pov.BlockData, povCompressionMagic)
}
