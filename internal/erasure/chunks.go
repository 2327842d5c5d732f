// Package erasure turns an availability payload into redundancy chunks and
// a Merkle commitment over them. The split is systematic Reed-Solomon: any
// recovery-threshold subset of chunks reconstructs the payload, and equal
// inputs always produce identical chunks and root, so validators can
// independently recompute and verify the commitment.
package erasure

import (
	"errors"
	"fmt"

	"github.com/klauspost/reedsolomon"

	"github.com/selendra/indracore/internal/primitives"
)

// maxValidators bounds the shard count supported by the codec.
const maxValidators = 65536

var (
	// ErrNoValidators is returned for a zero validator count.
	ErrNoValidators = errors.New("erasure coding requires at least one validator")

	// ErrTooManyValidators is returned when the validator count exceeds
	// the codec's shard limit.
	ErrTooManyValidators = errors.New("validator count exceeds erasure shard limit")

	// ErrNotEnoughChunks is returned when reconstruction is attempted
	// with fewer than recovery-threshold chunks.
	ErrNotEnoughChunks = errors.New("not enough chunks to reconstruct")
)

// Chunk is one validator's share of the availability payload.
type Chunk struct {
	Data  []byte // Data is the erasure-coded shard
	Index uint32 // Index is the validator index the chunk belongs to
}

// RecoveryThreshold returns the number of chunks sufficient to reconstruct
// the payload for nValidators: f+1 where f is the tolerated faulty third.
func RecoveryThreshold(nValidators int) (int, error) {
	if nValidators == 0 {
		return 0, ErrNoValidators
	}

	if nValidators > maxValidators {
		return 0, ErrTooManyValidators
	}

	return (nValidators-1)/3 + 1, nil
}

// ObtainChunks erasure-codes the availability payload into one chunk per
// validator. The output is a pure function of (nValidators, available).
func ObtainChunks(nValidators int, available *primitives.AvailableData) ([][]byte, error) {
	dataShards, err := RecoveryThreshold(nValidators)
	if err != nil {
		return nil, err
	}

	payload := available.Encode()
	parityShards := nValidators - dataShards

	if parityShards == 0 {
		// Degenerate small-committee case: every chunk is a data shard.
		return splitPayload(payload, dataShards), nil
	}

	enc, err := reedsolomon.New(dataShards, parityShards)
	if err != nil {
		return nil, fmt.Errorf("init erasure codec: %w", err)
	}

	shards := make([][]byte, nValidators)
	copy(shards, splitPayload(payload, dataShards))

	shardSize := len(shards[0])
	for i := dataShards; i < nValidators; i++ {
		shards[i] = make([]byte, shardSize)
	}

	if err := enc.Encode(shards); err != nil {
		return nil, fmt.Errorf("encode parity shards: %w", err)
	}

	return shards, nil
}

// Reconstruct recovers the availability payload from any recovery-threshold
// subset of chunks. Chunk indices must be within [0, nValidators).
func Reconstruct(nValidators int, chunks []Chunk) (*primitives.AvailableData, error) {
	dataShards, err := RecoveryThreshold(nValidators)
	if err != nil {
		return nil, err
	}

	if len(chunks) < dataShards {
		return nil, ErrNotEnoughChunks
	}

	shards := make([][]byte, nValidators)
	for _, c := range chunks {
		if int(c.Index) >= nValidators {
			return nil, fmt.Errorf("chunk index %d out of range for %d validators", c.Index, nValidators)
		}

		shards[c.Index] = c.Data
	}

	parityShards := nValidators - dataShards
	if parityShards > 0 {
		enc, err := reedsolomon.New(dataShards, parityShards)
		if err != nil {
			return nil, fmt.Errorf("init erasure codec: %w", err)
		}

		if err := enc.Reconstruct(shards); err != nil {
			return nil, fmt.Errorf("reconstruct shards: %w", err)
		}
	}

	var payload []byte
	for i := 0; i < dataShards; i++ {
		if shards[i] == nil {
			return nil, ErrNotEnoughChunks
		}

		payload = append(payload, shards[i]...)
	}

	// The codec is self-delimiting, so shard zero-padding past the
	// encoded payload is ignored by the decoder.
	return primitives.DecodeAvailableData(payload)
}

// splitPayload cuts the payload into dataShards equal shards, zero-padding
// the tail. Shards are copies and safe to retain.
func splitPayload(payload []byte, dataShards int) [][]byte {
	shardSize := (len(payload) + dataShards - 1) / dataShards

	// Round up to a 64-byte multiple: the codec's large-committee code
	// path (more than 256 shards) requires it, and it is harmless below.
	shardSize = (shardSize/64 + 1) * 64

	shards := make([][]byte, dataShards)
	for i := range shards {
		shards[i] = make([]byte, shardSize)

		start := i * shardSize
		if start < len(payload) {
			copy(shards[i], payload[start:])
		}
	}

	return shards
}
