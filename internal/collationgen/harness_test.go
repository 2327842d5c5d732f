package collationgen

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/selendra/indracore/internal/overseer"
	"github.com/selendra/indracore/internal/primitives"
)

// testOverseer services a subsystem handle in tests: it answers runtime
// requests from fixtures, records what was asked, and collects distributed
// collations.
type testOverseer struct {
	t *testing.T

	incoming    chan overseer.Incoming
	outgoing    chan overseer.Message
	done        chan struct{}
	distributed chan overseer.DistributeCollation

	mu              sync.Mutex
	validators      int
	cores           map[primitives.Hash][]primitives.CoreState
	coresErr        map[primitives.Hash]error
	validationData  map[primitives.Hash]*primitives.ValidationData
	runtimeRequests int
	vdRequests      []overseer.ValidationDataRequest
	closeOnce       sync.Once
}

func newTestOverseer(t *testing.T) *testOverseer {
	o := &testOverseer{
		t:              t,
		incoming:       make(chan overseer.Incoming),
		outgoing:       make(chan overseer.Message),
		done:           make(chan struct{}),
		distributed:    make(chan overseer.DistributeCollation, 16),
		validators:     10,
		cores:          make(map[primitives.Hash][]primitives.CoreState),
		coresErr:       make(map[primitives.Hash]error),
		validationData: make(map[primitives.Hash]*primitives.ValidationData),
	}

	go o.serve()
	t.Cleanup(o.stop)

	return o
}

func (o *testOverseer) stop() {
	o.closeOnce.Do(func() { close(o.done) })
}

func (o *testOverseer) handle() *overseer.Handle {
	return overseer.NewHandle(o.incoming, o.outgoing, o.done)
}

func (o *testOverseer) serve() {
	for {
		select {
		case msg := <-o.outgoing:
			switch m := msg.(type) {
			case overseer.RuntimeAPIMessage:
				o.answer(m)
			case overseer.DistributeCollation:
				o.distributed <- m
			}
		case <-o.done:
			return
		}
	}
}

func (o *testOverseer) answer(m overseer.RuntimeAPIMessage) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.runtimeRequests++

	switch req := m.Request.(type) {
	case overseer.ValidatorsRequest:
		req.Resp <- overseer.Response[[]primitives.ValidatorID]{
			Data: make([]primitives.ValidatorID, o.validators),
		}

	case overseer.AvailabilityCoresRequest:
		if err := o.coresErr[m.RelayParent]; err != nil {
			req.Resp <- overseer.Response[[]primitives.CoreState]{Err: err}
			return
		}

		req.Resp <- overseer.Response[[]primitives.CoreState]{Data: o.cores[m.RelayParent]}

	case overseer.ValidationDataRequest:
		o.vdRequests = append(o.vdRequests, req)
		req.Resp <- overseer.Response[*primitives.ValidationData]{
			Data: o.validationData[m.RelayParent],
		}
	}
}

func (o *testOverseer) signal(t *testing.T, sig overseer.Signal) {
	t.Helper()

	select {
	case o.incoming <- overseer.Incoming{Signal: sig}:
	case <-time.After(2 * time.Second):
		t.Fatal("subsystem did not accept signal")
	}
}

func (o *testOverseer) message(t *testing.T, msg overseer.Message) {
	t.Helper()

	select {
	case o.incoming <- overseer.Incoming{Message: msg}:
	case <-time.After(2 * time.Second):
		t.Fatal("subsystem did not accept message")
	}
}

func (o *testOverseer) activate(t *testing.T, relayParents ...primitives.Hash) {
	t.Helper()

	update := overseer.ActiveLeavesUpdate{}
	for _, rp := range relayParents {
		update.Activated = append(update.Activated, overseer.ActivatedLeaf{Hash: rp})
	}

	o.signal(t, update)
}

func (o *testOverseer) validationDataRequestCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()

	return len(o.vdRequests)
}

func (o *testOverseer) runtimeRequestCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.runtimeRequests
}

// expectDistributed reads n distributed collations or fails.
func (o *testOverseer) expectDistributed(t *testing.T, n int) []overseer.DistributeCollation {
	t.Helper()

	out := make([]overseer.DistributeCollation, 0, n)
	for len(out) < n {
		select {
		case dc := <-o.distributed:
			out = append(out, dc)
		case <-time.After(2 * time.Second):
			t.Fatalf("got %d distributed collations, want %d", len(out), n)
		}
	}

	return out
}

// expectNoDistributed asserts nothing was distributed.
func (o *testOverseer) expectNoDistributed(t *testing.T) {
	t.Helper()

	select {
	case dc := <-o.distributed:
		t.Fatalf("unexpected distributed collation for para %d", dc.Receipt.Descriptor.ParaID)
	case <-time.After(50 * time.Millisecond):
	}
}

// startSubsystem runs the subsystem and returns its exit channel.
func startSubsystem(t *testing.T, s *Subsystem) (context.CancelFunc, <-chan error) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	exited := make(chan error, 1)
	go func() { exited <- s.Run(ctx) }()

	return cancel, exited
}

// concludeAndWait sends Conclude and waits for the run loop to exit.
func concludeAndWait(t *testing.T, o *testOverseer, exited <-chan error) {
	t.Helper()

	o.signal(t, overseer.Conclude{})

	select {
	case err := <-exited:
		if err != nil {
			t.Fatalf("run loop exited with %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("run loop did not exit after Conclude")
	}
}

func testValidationData(number uint32) *primitives.ValidationData {
	return &primitives.ValidationData{
		Persisted: primitives.PersistedValidationData{
			ParentHead:             primitives.HeadData{0xde, 0xad},
			RelayParentNumber:      number,
			RelayParentStorageRoot: primitives.Hash{0x55},
			MaxPovSize:             1 << 20,
		},
		MaxHeadDataSize: 1 << 10,
		MaxCodeSize:     1 << 20,
	}
}

func newTestConfig(t *testing.T, para primitives.ParaID, seedByte byte, collator primitives.Collator) *primitives.CollationGenerationConfig {
	t.Helper()

	key, err := primitives.CollatorKeyFromSeed(bytes.Repeat([]byte{seedByte}, 32))
	if err != nil {
		t.Fatalf("collator key: %v", err)
	}

	return &primitives.CollationGenerationConfig{Para: para, Key: key, Collator: collator}
}

// staticCollator always yields the same collation content.
type staticCollator struct {
	head []byte
	pov  []byte
}

func (c *staticCollator) ProduceCollation(_ context.Context, _ primitives.Hash, data *primitives.ValidationData) (*primitives.Collation, error) {
	return &primitives.Collation{
		UpwardMessages:            []primitives.UpwardMessage{{0x01}},
		HeadData:                  c.head,
		ProofOfValidity:           primitives.PoV{BlockData: c.pov},
		ProcessedDownwardMessages: 1,
		HrmpWatermark:             data.Persisted.RelayParentNumber,
	}, nil
}

// emptyCollator has nothing to build, ever.
type emptyCollator struct{}

func (emptyCollator) ProduceCollation(context.Context, primitives.Hash, *primitives.ValidationData) (*primitives.Collation, error) {
	return nil, nil
}

// blockingCollator signals once invoked and then blocks until cancelled.
type blockingCollator struct {
	started chan struct{}
}

func (c *blockingCollator) ProduceCollation(ctx context.Context, _ primitives.Hash, _ *primitives.ValidationData) (*primitives.Collation, error) {
	close(c.started)
	<-ctx.Done()

	return nil, nil
}
