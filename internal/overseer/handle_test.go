package overseer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/selendra/indracore/internal/primitives"
)

// TestOverlappingRequests verifies two requests can be submitted before
// either is awaited, with the responses delivered out of submission order.
func TestOverlappingRequests(t *testing.T) {
	outgoing := make(chan Message, 2)
	done := make(chan struct{})
	h := NewHandle(nil, outgoing, done)

	ctx := context.Background()
	relayParent := primitives.Hash{0x01}

	coresPending, err := h.RequestAvailabilityCores(ctx, relayParent)
	if err != nil {
		t.Fatalf("submit cores request: %v", err)
	}

	validatorsPending, err := h.RequestValidators(ctx, relayParent)
	if err != nil {
		t.Fatalf("submit validators request: %v", err)
	}

	coresMsg := (<-outgoing).(RuntimeAPIMessage)
	validatorsMsg := (<-outgoing).(RuntimeAPIMessage)

	// Answer in reverse submission order.
	validatorsMsg.Request.(ValidatorsRequest).Resp <- Response[[]primitives.ValidatorID]{
		Data: make([]primitives.ValidatorID, 5),
	}
	coresMsg.Request.(AvailabilityCoresRequest).Resp <- Response[[]primitives.CoreState]{
		Data: []primitives.CoreState{primitives.FreeCore{}},
	}

	cores, err := coresPending.Await(ctx)
	if err != nil {
		t.Fatalf("await cores: %v", err)
	}

	validators, err := validatorsPending.Await(ctx)
	if err != nil {
		t.Fatalf("await validators: %v", err)
	}

	if len(cores) != 1 || len(validators) != 5 {
		t.Fatalf("got %d cores, %d validators, want 1 and 5", len(cores), len(validators))
	}
}

// TestAwaitReturnsRequestError verifies an error response surfaces as the
// request's failure.
func TestAwaitReturnsRequestError(t *testing.T) {
	outgoing := make(chan Message, 1)
	h := NewHandle(nil, outgoing, make(chan struct{}))

	ctx := context.Background()

	pending, err := h.RequestValidators(ctx, primitives.Hash{})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	req := (<-outgoing).(RuntimeAPIMessage)
	wantErr := errors.New("runtime api unavailable")
	req.Request.(ValidatorsRequest).Resp <- Response[[]primitives.ValidatorID]{Err: wantErr}

	if _, err := pending.Await(ctx); !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}
}

// TestSendAfterOverseerGone verifies a blocked Send fails with
// ErrOverseerGone once the done channel closes.
func TestSendAfterOverseerGone(t *testing.T) {
	done := make(chan struct{})
	h := NewHandle(nil, make(chan Message), done)

	close(done)

	err := h.Send(context.Background(), DistributeCollation{})
	if !errors.Is(err, ErrOverseerGone) {
		t.Fatalf("err = %v, want ErrOverseerGone", err)
	}

	pending := Pending[int]{resp: make(chan Response[int]), done: done}
	if _, err := pending.Await(context.Background()); !errors.Is(err, ErrOverseerGone) {
		t.Fatalf("await err = %v, want ErrOverseerGone", err)
	}
}

// TestAwaitHonorsContext verifies an unanswered request unblocks on
// context cancellation.
func TestAwaitHonorsContext(t *testing.T) {
	h := NewHandle(nil, make(chan Message, 1), make(chan struct{}))

	pending, err := h.RequestValidators(context.Background(), primitives.Hash{})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := pending.Await(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
}
