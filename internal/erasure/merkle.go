package erasure

import (
	"errors"

	"github.com/zeebo/blake3"

	"github.com/selendra/indracore/internal/primitives"
)

// ErrNoChunks is returned when a commitment over zero chunks is requested.
var ErrNoChunks = errors.New("no chunks to commit to")

// Branch is one chunk's inclusion proof against the chunks root: the
// sibling hashes from the chunk's leaf up to the root. A leaf without a
// sibling at some level (odd tail) contributes nothing at that level.
type Branch struct {
	Index uint32            // Index is the chunk's position in the chunk list
	Proof []primitives.Hash // Proof is the bottom-up sibling path
}

// ChunksRoot computes the Merkle root committing to the ordered chunk
// list: BLAKE3 leaves, pairwise BLAKE3 parents, odd node promoted.
func ChunksRoot(chunks [][]byte) (primitives.Hash, error) {
	if len(chunks) == 0 {
		return primitives.Hash{}, ErrNoChunks
	}

	level := leafHashes(chunks)
	for len(level) > 1 {
		level = parentLevel(level)
	}

	return level[0], nil
}

// Branches computes the root together with every chunk's inclusion proof.
func Branches(chunks [][]byte) (primitives.Hash, []Branch, error) {
	if len(chunks) == 0 {
		return primitives.Hash{}, nil, ErrNoChunks
	}

	branches := make([]Branch, len(chunks))
	for i := range branches {
		branches[i].Index = uint32(i)
	}

	positions := make([]int, len(chunks))
	for i := range positions {
		positions[i] = i
	}

	level := leafHashes(chunks)
	for len(level) > 1 {
		for i := range positions {
			pos := positions[i]

			var sibling int
			if pos%2 == 0 {
				sibling = pos + 1
			} else {
				sibling = pos - 1
			}

			if sibling < len(level) {
				branches[i].Proof = append(branches[i].Proof, level[sibling])
			}

			positions[i] = pos / 2
		}

		level = parentLevel(level)
	}

	return level[0], branches, nil
}

// VerifyBranch checks one chunk's inclusion proof against the root for a
// commitment over total chunks.
func VerifyBranch(root primitives.Hash, total int, chunk []byte, branch Branch) bool {
	if total <= 0 || int(branch.Index) >= total {
		return false
	}

	h := blake3.Sum256(chunk)
	pos := int(branch.Index)
	width := total
	used := 0

	for width > 1 {
		if pos%2 == 0 && pos+1 >= width {
			// Odd tail: the node is promoted unchanged.
			pos /= 2
			width = (width + 1) / 2
			continue
		}

		if used >= len(branch.Proof) {
			return false
		}

		sibling := branch.Proof[used]
		used++

		if pos%2 == 0 {
			h = hashPair(h, sibling)
		} else {
			h = hashPair(sibling, h)
		}

		pos /= 2
		width = (width + 1) / 2
	}

	return used == len(branch.Proof) && h == root
}

func leafHashes(chunks [][]byte) []primitives.Hash {
	leaves := make([]primitives.Hash, len(chunks))
	for i, c := range chunks {
		leaves[i] = blake3.Sum256(c)
	}

	return leaves
}

func parentLevel(level []primitives.Hash) []primitives.Hash {
	next := make([]primitives.Hash, 0, (len(level)+1)/2)

	for i := 0; i < len(level); i += 2 {
		if i+1 < len(level) {
			next = append(next, hashPair(level[i], level[i+1]))
		} else {
			next = append(next, level[i])
		}
	}

	return next
}

func hashPair(left, right primitives.Hash) primitives.Hash {
	var buf [64]byte
	copy(buf[:32], left[:])
	copy(buf[32:], right[:])

	return blake3.Sum256(buf[:])
}
