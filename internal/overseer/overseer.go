// Package overseer defines the messaging surface between the node's
// overseer and its subsystems: lifecycle signals, inter-subsystem
// messages, and the single-owner Handle a subsystem uses to talk to the
// rest of the node. The substrate's wire format and routing are external;
// this package is channels and types only.
package overseer

import "github.com/selendra/indracore/internal/primitives"

// Signal is an overseer lifecycle signal delivered to every subsystem.
type Signal interface {
	isSignal()
}

// ActivatedLeaf is a relay-chain head that became part of the active set.
type ActivatedLeaf struct {
	Hash   primitives.Hash // Hash identifies the relay head
	Number uint32          // Number is the relay block number
}

// ActiveLeavesUpdate announces changes to the set of relay heads subsystems
// should work on. Activated carries deltas, not complete sets.
type ActiveLeavesUpdate struct {
	Activated   []ActivatedLeaf
	Deactivated []primitives.Hash
}

func (ActiveLeavesUpdate) isSignal() {}

// BlockFinalized announces a finalized relay block.
type BlockFinalized struct {
	Hash   primitives.Hash
	Number uint32
}

func (BlockFinalized) isSignal() {}

// Conclude asks the subsystem to stop accepting work and exit.
type Conclude struct{}

func (Conclude) isSignal() {}

// Message is an inter-subsystem message routed by the overseer.
type Message interface {
	isMessage()
}

// Incoming is one item received from the overseer: exactly one of Signal
// or Message is set.
type Incoming struct {
	Signal  Signal
	Message Message
}

// InitializeCollationGeneration hands the collation-generation subsystem
// its one-time configuration. A second initialization is reported and
// ignored; the first configuration wins.
type InitializeCollationGeneration struct {
	Config *primitives.CollationGenerationConfig
}

func (InitializeCollationGeneration) isMessage() {}

// DistributeCollation asks the collator-protocol subsystem to distribute a
// produced candidate to validators.
type DistributeCollation struct {
	Receipt primitives.CandidateReceipt
	PoV     primitives.PoV
}

func (DistributeCollation) isMessage() {}

// RuntimeAPIMessage is a request to the runtime-API subsystem, scoped to a
// relay parent. The request carries its own response channel; the runtime
// subsystem sends exactly one response per request.
type RuntimeAPIMessage struct {
	RelayParent primitives.Hash
	Request     RuntimeRequest
}

func (RuntimeAPIMessage) isMessage() {}

// RuntimeRequest is one runtime-API call.
type RuntimeRequest interface {
	isRuntimeRequest()
}

// Response is one request's outcome: either a transport/runtime error or
// the requested data.
type Response[T any] struct {
	Err  error
	Data T
}

// ValidatorsRequest asks for the active validator set at the relay parent.
type ValidatorsRequest struct {
	Resp chan Response[[]primitives.ValidatorID]
}

func (ValidatorsRequest) isRuntimeRequest() {}

// AvailabilityCoresRequest asks for the state of every availability core
// at the relay parent.
type AvailabilityCoresRequest struct {
	Resp chan Response[[]primitives.CoreState]
}

func (AvailabilityCoresRequest) isRuntimeRequest() {}

// ValidationDataRequest asks for the full validation data of a para under
// the given occupancy assumption. A nil Data response means no validation
// data is available yet, which is not an error.
type ValidationDataRequest struct {
	Para       primitives.ParaID
	Assumption primitives.OccupiedCoreAssumption
	Resp       chan Response[*primitives.ValidationData]
}

func (ValidationDataRequest) isRuntimeRequest() {}
