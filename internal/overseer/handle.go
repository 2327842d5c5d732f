package overseer

import (
	"context"
	"errors"

	"github.com/selendra/indracore/internal/primitives"
)

// ErrOverseerGone is the transport failure: the overseer side of the
// handle is no longer serviced.
var ErrOverseerGone = errors.New("overseer connection closed")

// Handle is a subsystem's connection to the overseer. It must have a
// single logical owner: all outbound traffic is serialized through Send,
// and two concurrent units must never share a handle directly.
type Handle struct {
	incoming <-chan Incoming
	outgoing chan<- Message
	done     <-chan struct{}
}

// NewHandle wraps the overseer-provided channels. done is closed by the
// overseer when it stops servicing the outgoing side.
func NewHandle(incoming <-chan Incoming, outgoing chan<- Message, done <-chan struct{}) *Handle {
	return &Handle{incoming: incoming, outgoing: outgoing, done: done}
}

// Incoming returns the control source. Channel closure is a fatal
// transport failure.
func (h *Handle) Incoming() <-chan Incoming {
	return h.incoming
}

// Send dispatches one message to the overseer for routing.
func (h *Handle) Send(ctx context.Context, msg Message) error {
	select {
	case h.outgoing <- msg:
		return nil
	case <-h.done:
		return ErrOverseerGone
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pending is a submitted request's response slot. Submitting and awaiting
// are separate so the owner can launch several requests back-to-back and
// overlap their round trips.
type Pending[T any] struct {
	resp <-chan Response[T]
	done <-chan struct{}
}

// Await blocks until the response arrives. A response carrying an error is
// a transport failure of the request.
func (p Pending[T]) Await(ctx context.Context) (T, error) {
	var zero T

	select {
	case r := <-p.resp:
		if r.Err != nil {
			return zero, r.Err
		}

		return r.Data, nil
	case <-p.done:
		return zero, ErrOverseerGone
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// RequestValidators submits a validator-set request for the relay parent.
func (h *Handle) RequestValidators(ctx context.Context, relayParent primitives.Hash) (Pending[[]primitives.ValidatorID], error) {
	resp := make(chan Response[[]primitives.ValidatorID], 1)

	err := h.Send(ctx, RuntimeAPIMessage{
		RelayParent: relayParent,
		Request:     ValidatorsRequest{Resp: resp},
	})
	if err != nil {
		return Pending[[]primitives.ValidatorID]{}, err
	}

	return Pending[[]primitives.ValidatorID]{resp: resp, done: h.done}, nil
}

// RequestAvailabilityCores submits a core-state request for the relay parent.
func (h *Handle) RequestAvailabilityCores(ctx context.Context, relayParent primitives.Hash) (Pending[[]primitives.CoreState], error) {
	resp := make(chan Response[[]primitives.CoreState], 1)

	err := h.Send(ctx, RuntimeAPIMessage{
		RelayParent: relayParent,
		Request:     AvailabilityCoresRequest{Resp: resp},
	})
	if err != nil {
		return Pending[[]primitives.CoreState]{}, err
	}

	return Pending[[]primitives.CoreState]{resp: resp, done: h.done}, nil
}

// RequestValidationData submits a full-validation-data request for the
// para at the relay parent under the given occupancy assumption.
func (h *Handle) RequestValidationData(
	ctx context.Context,
	relayParent primitives.Hash,
	para primitives.ParaID,
	assumption primitives.OccupiedCoreAssumption,
) (Pending[*primitives.ValidationData], error) {
	resp := make(chan Response[*primitives.ValidationData], 1)

	err := h.Send(ctx, RuntimeAPIMessage{
		RelayParent: relayParent,
		Request:     ValidationDataRequest{Para: para, Assumption: assumption, Resp: resp},
	})
	if err != nil {
		return Pending[*primitives.ValidationData]{}, err
	}

	return Pending[*primitives.ValidationData]{resp: resp, done: h.done}, nil
}
