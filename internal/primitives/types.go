// Package primitives defines the parachain candidate data model shared by
// the collation-generation subsystem and its collaborators: validation
// data, proofs of validity, availability cores, candidate descriptors and
// receipts. All hashing is BLAKE3 over the deterministic encoding defined
// in codec.go.
package primitives

import "github.com/zeebo/blake3"

// Hash is a 32-byte BLAKE3 digest.
type Hash = [32]byte

// ParaID identifies a parachain.
type ParaID uint32

// ValidatorID is a validator's session public key.
type ValidatorID [32]byte

// HeadData is an opaque parachain head.
type HeadData []byte

// Hash returns the BLAKE3 digest of the head data.
func (h HeadData) Hash() Hash {
	return blake3.Sum256(h)
}

// ValidationCode is a parachain runtime blob.
type ValidationCode []byte

// Hash returns the BLAKE3 digest of the code blob.
func (c ValidationCode) Hash() Hash {
	return blake3.Sum256(c)
}

// UpwardMessage is an opaque message from a parachain to the relay chain.
type UpwardMessage []byte

// OutboundHrmpMessage is a horizontal message to a sibling parachain.
type OutboundHrmpMessage struct {
	Recipient ParaID // Recipient is the destination parachain
	Data      []byte // Data is the opaque message body
}

// PersistedValidationData is the validation context persisted on the relay
// chain, required to build and to re-validate a candidate.
type PersistedValidationData struct {
	ParentHead             HeadData // ParentHead is the para head this candidate builds on
	RelayParentNumber      uint32   // RelayParentNumber is the relay block number
	RelayParentStorageRoot Hash     // RelayParentStorageRoot is the relay state root
	MaxPovSize             uint32   // MaxPovSize bounds the proof of validity in bytes
}

// Hash returns the BLAKE3 digest of the encoded persisted data.
func (p *PersistedValidationData) Hash() Hash {
	return blake3.Sum256(p.Encode())
}

// ValidationData is the full per-core validation context: the persisted
// part plus transient session limits. Fetched fresh per (relay parent,
// core), never cached.
type ValidationData struct {
	Persisted       PersistedValidationData
	MaxHeadDataSize uint32 // MaxHeadDataSize bounds the produced head in bytes
	MaxCodeSize     uint32 // MaxCodeSize bounds a runtime upgrade in bytes
}

// PoV is the proof of validity: the witness other nodes need to re-execute
// and check a candidate.
type PoV struct {
	BlockData []byte // BlockData is the opaque witness payload
}

// Hash returns the BLAKE3 digest of the encoded proof.
func (p *PoV) Hash() Hash {
	return blake3.Sum256(p.Encode())
}

// Collation is the output of a collator: everything a candidate commits to
// plus the proof of validity backing it.
type Collation struct {
	UpwardMessages            []UpwardMessage       // UpwardMessages go to the relay chain
	HorizontalMessages        []OutboundHrmpMessage // HorizontalMessages go to sibling paras
	NewValidationCode         *ValidationCode       // NewValidationCode is an optional runtime upgrade
	HeadData                  HeadData              // HeadData is the produced para head
	ProofOfValidity           PoV                   // ProofOfValidity is the candidate witness
	ProcessedDownwardMessages uint32                // ProcessedDownwardMessages is the DMQ watermark
	HrmpWatermark             uint32                // HrmpWatermark is the relay block up to which HRMP was processed
}

// AvailableData is the exact payload erasure-coded for availability:
// the persisted validation data plus the proof of validity.
type AvailableData struct {
	ValidationData PersistedValidationData
	PoV            PoV
}

// CandidateCommitments are the outputs a candidate commits to on-chain.
type CandidateCommitments struct {
	UpwardMessages            []UpwardMessage
	HorizontalMessages        []OutboundHrmpMessage
	NewValidationCode         *ValidationCode
	HeadData                  HeadData
	ProcessedDownwardMessages uint32
	HrmpWatermark             uint32
}

// Hash returns the BLAKE3 digest of the encoded commitments.
func (c *CandidateCommitments) Hash() Hash {
	return blake3.Sum256(c.Encode())
}

// CandidateDescriptor binds a candidate's inputs under the collator's
// signature: relay parent, para, validation-data hash, PoV hash and the
// erasure root, signed by the collator key.
type CandidateDescriptor struct {
	ParaID                      ParaID            // ParaID is the chain this candidate is for
	RelayParent                 Hash              // RelayParent is the relay head the candidate is built on
	Collator                    CollatorID        // Collator is the signing collator's public key
	PersistedValidationDataHash Hash              // PersistedValidationDataHash commits to the validation context
	PovHash                     Hash              // PovHash commits to the proof of validity
	ErasureRoot                 Hash              // ErasureRoot commits to the availability chunks
	Signature                   CollatorSignature // Signature covers the descriptor payload
}

// CandidateReceipt is a descriptor plus the hash of its commitments;
// the unit the network agrees on and carries forward.
type CandidateReceipt struct {
	Descriptor      CandidateDescriptor
	CommitmentsHash Hash
}

// Hash returns the candidate hash: the BLAKE3 digest of the encoded receipt.
func (r *CandidateReceipt) Hash() Hash {
	return blake3.Sum256(r.Encode())
}

// CoreState describes one availability core at a relay parent.
type CoreState interface {
	isCoreState()
}

// FreeCore is a core with nothing scheduled or pending.
type FreeCore struct{}

func (FreeCore) isCoreState() {}

// ScheduledCore is a core assigned to a para for the next candidate.
type ScheduledCore struct {
	Para     ParaID      // Para is the chain scheduled on this core
	Collator *CollatorID // Collator optionally restricts who may collate
}

func (ScheduledCore) isCoreState() {}

// OccupiedCore is a core holding an in-flight candidate pending
// availability. Never actionable for collation generation.
type OccupiedCore struct {
	Para          ParaID         // Para is the chain occupying the core
	NextUp        *ScheduledCore // NextUp is scheduled once the core frees
	OccupiedSince uint32         // OccupiedSince is the relay block the candidate was backed at
	TimeoutAt     uint32         // TimeoutAt is the relay block availability times out at
}

func (OccupiedCore) isCoreState() {}

// OccupiedCoreAssumption qualifies a validation-data request with how an
// occupied core should be treated.
type OccupiedCoreAssumption uint8

const (
	// AssumeFree treats the core as unoccupied.
	AssumeFree OccupiedCoreAssumption = iota
	// AssumeIncluded assumes the occupying candidate becomes available.
	AssumeIncluded
	// AssumeTimedOut assumes the occupying candidate times out.
	AssumeTimedOut
)

// CollatorSignaturePayload builds the exact byte string a collator signs
// for a candidate descriptor. Downstream validators reconstruct the same
// payload to check the signature, so the layout is fixed.
func CollatorSignaturePayload(relayParent Hash, para ParaID, validationDataHash, povHash, erasureRoot Hash) []byte {
	e := newEncoder(4 + 5*32)
	e.hash(relayParent)
	e.u32(uint32(para))
	e.hash(validationDataHash)
	e.hash(povHash)
	e.hash(erasureRoot)

	return e.bytes()
}
