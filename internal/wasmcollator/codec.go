package wasmcollator

import (
	"encoding/binary"
	"fmt"

	"github.com/selendra/indracore/internal/primitives"
)

// Guest exchange format, little-endian, u32 length prefixes.
//
// Input:  [32]relay_parent | vec persisted_validation_data | u32 max_head
//         | u32 max_code
// Output: vec head_data | vec pov_block_data | u32 processed_downward
//         | u32 hrmp_watermark
//
// Guests that emit upward or horizontal messages do so through future
// format revisions; the current layout covers plain block production.

// encodeInput builds the guest input for one invocation.
func encodeInput(relayParent primitives.Hash, data *primitives.ValidationData) []byte {
	persisted := data.Persisted.Encode()

	buf := make([]byte, 0, 32+4+len(persisted)+8)
	buf = append(buf, relayParent[:]...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(persisted)))
	buf = append(buf, persisted...)
	buf = binary.LittleEndian.AppendUint32(buf, data.MaxHeadDataSize)
	buf = binary.LittleEndian.AppendUint32(buf, data.MaxCodeSize)

	return buf
}

// decodeOutput parses the guest's collation.
func decodeOutput(out []byte) (*primitives.Collation, error) {
	head, rest, err := readVec(out)
	if err != nil {
		return nil, fmt.Errorf("head data: %w", err)
	}

	pov, rest, err := readVec(rest)
	if err != nil {
		return nil, fmt.Errorf("proof of validity: %w", err)
	}

	if len(rest) != 8 {
		return nil, fmt.Errorf("trailing output is %d bytes, want 8", len(rest))
	}

	return &primitives.Collation{
		HeadData:                  head,
		ProofOfValidity:           primitives.PoV{BlockData: pov},
		ProcessedDownwardMessages: binary.LittleEndian.Uint32(rest[:4]),
		HrmpWatermark:             binary.LittleEndian.Uint32(rest[4:]),
	}, nil
}

func readVec(buf []byte) (data, rest []byte, err error) {
	if len(buf) < 4 {
		return nil, nil, fmt.Errorf("truncated length prefix")
	}

	n := binary.LittleEndian.Uint32(buf)
	if len(buf) < int(4+n) {
		return nil, nil, fmt.Errorf("truncated vec of %d bytes", n)
	}

	data = make([]byte, n)
	copy(data, buf[4:4+n])

	return data, buf[4+n:], nil
}
