// Command collator runs the collation-generation subsystem against a
// synthetic overseer: relay-chain heads are fabricated on a timer, runtime
// requests are answered from fixtures, and produced candidates are logged.
// Useful for exercising a collator implementation end to end without a
// relay chain.
package main

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/selendra/indracore/internal/collationgen"
	"github.com/selendra/indracore/internal/journal"
	"github.com/selendra/indracore/internal/logger"
	"github.com/selendra/indracore/internal/overseer"
	"github.com/selendra/indracore/internal/primitives"
	"github.com/selendra/indracore/internal/wasmcollator"
)

func main() {
	var (
		para        = flag.Uint("para", 100, "para id to collate for")
		seedHex     = flag.String("seed", "", "32-byte hex key seed (random if empty)")
		wasmPath    = flag.String("wasm", "", "path to a wasm collator module (built-in adder if empty)")
		journalPath = flag.String("journal", "", "receipt journal directory (disabled if empty)")
		interval    = flag.Duration("interval", 6*time.Second, "synthetic relay block interval")
		metricsAddr = flag.String("metrics-addr", "", "prometheus listen address (disabled if empty)")
		validators  = flag.Int("validators", 10, "synthetic validator count")
		debug       = flag.Bool("debug", false, "enable debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger.Init(level)

	if err := run(*para, *seedHex, *wasmPath, *journalPath, *metricsAddr, *interval, *validators); err != nil {
		logger.Error("collator failed", "err", err)
		os.Exit(1)
	}
}

func run(para uint, seedHex, wasmPath, journalPath, metricsAddr string, interval time.Duration, validators int) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	key, err := loadKey(seedHex)
	if err != nil {
		return err
	}

	collator, err := loadCollator(ctx, wasmPath)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	metrics, err := collationgen.NewMetrics(registry)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	if metricsAddr != "" {
		go serveMetrics(metricsAddr, registry)
	}

	var opts []collationgen.Option
	if journalPath != "" {
		store, err := journal.Open(journalPath)
		if err != nil {
			return err
		}
		defer store.Close()

		opts = append(opts, collationgen.WithJournal(store))
	}

	incoming := make(chan overseer.Incoming)
	outgoing := make(chan overseer.Message)
	done := make(chan struct{})

	sub := collationgen.New(overseer.NewHandle(incoming, outgoing, done), metrics, opts...)

	exited := make(chan error, 1)
	go func() { exited <- sub.Run(ctx) }()

	fixture := &syntheticRelay{para: primitives.ParaID(para), validators: validators}
	go fixture.serve(ctx, outgoing, done)

	incoming <- overseer.Incoming{Message: overseer.InitializeCollationGeneration{
		Config: &primitives.CollationGenerationConfig{
			Para:     primitives.ParaID(para),
			Key:      key,
			Collator: collator,
		},
	}}

	collatorID := key.Public()
	logger.Info("collator running",
		"para", para,
		"collator", hex.EncodeToString(collatorID[:8]),
		"interval", interval)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	number := uint32(0)
	for {
		select {
		case <-ticker.C:
			number++
			incoming <- overseer.Incoming{Signal: overseer.ActiveLeavesUpdate{
				Activated: []overseer.ActivatedLeaf{{Hash: fixture.newHead(number), Number: number}},
			}}

		case <-sigs:
			logger.Info("shutting down")
			incoming <- overseer.Incoming{Signal: overseer.Conclude{}}
			close(done)

			return <-exited

		case err := <-exited:
			close(done)
			return err
		}
	}
}

func loadKey(seedHex string) (*primitives.CollatorKeyPair, error) {
	if seedHex == "" {
		return primitives.GenerateCollatorKey()
	}

	seed, err := hex.DecodeString(seedHex)
	if err != nil {
		return nil, fmt.Errorf("parse key seed: %w", err)
	}

	return primitives.CollatorKeyFromSeed(seed)
}

func loadCollator(ctx context.Context, wasmPath string) (primitives.Collator, error) {
	if wasmPath == "" {
		return &adderCollator{}, nil
	}

	wasmBytes, err := os.ReadFile(wasmPath)
	if err != nil {
		return nil, fmt.Errorf("read collator module: %w", err)
	}

	return wasmcollator.New(ctx, wasmBytes)
}

func serveMetrics(addr string, registry *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	logger.Info("serving metrics", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("metrics server failed", "err", err)
	}
}

// syntheticRelay fabricates relay heads and answers runtime requests with
// one scheduled core for the configured para. Produced candidates are
// logged instead of distributed.
type syntheticRelay struct {
	para       primitives.ParaID
	validators int

	mu    sync.Mutex
	heads map[primitives.Hash]uint32
}

func (r *syntheticRelay) newHead(number uint32) primitives.Hash {
	// Number prefix keeps logged heads readable; the tail is random.
	var h primitives.Hash
	binary.LittleEndian.PutUint32(h[:4], number)
	_, _ = rand.Read(h[4:])

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.heads == nil {
		r.heads = make(map[primitives.Hash]uint32)
	}
	r.heads[h] = number

	return h
}

func (r *syntheticRelay) headNumber(h primitives.Hash) uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.heads[h]
}

func (r *syntheticRelay) serve(ctx context.Context, outgoing <-chan overseer.Message, done <-chan struct{}) {
	for {
		select {
		case msg := <-outgoing:
			r.handle(msg)
		case <-done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (r *syntheticRelay) handle(msg overseer.Message) {
	switch m := msg.(type) {
	case overseer.RuntimeAPIMessage:
		r.answer(m)

	case overseer.DistributeCollation:
		candidate := m.Receipt.Hash()
		logger.Info("candidate produced",
			"relay_parent", hex.EncodeToString(m.Receipt.Descriptor.RelayParent[:8]),
			"candidate", hex.EncodeToString(candidate[:8]),
			"pov_bytes", len(m.PoV.BlockData))
	}
}

func (r *syntheticRelay) answer(m overseer.RuntimeAPIMessage) {
	switch req := m.Request.(type) {
	case overseer.ValidatorsRequest:
		req.Resp <- overseer.Response[[]primitives.ValidatorID]{
			Data: make([]primitives.ValidatorID, r.validators),
		}

	case overseer.AvailabilityCoresRequest:
		req.Resp <- overseer.Response[[]primitives.CoreState]{
			Data: []primitives.CoreState{primitives.ScheduledCore{Para: r.para}},
		}

	case overseer.ValidationDataRequest:
		number := r.headNumber(m.RelayParent)
		req.Resp <- overseer.Response[*primitives.ValidationData]{
			Data: &primitives.ValidationData{
				Persisted: primitives.PersistedValidationData{
					ParentHead:        primitives.HeadData(fmt.Sprintf("head-%d", number)),
					RelayParentNumber: number,
					MaxPovSize:        1 << 20,
				},
				MaxHeadDataSize: 1 << 10,
				MaxCodeSize:     1 << 20,
			},
		}
	}
}

// adderCollator is the built-in demo producer: the head carries a counter
// and the proof is the transition from the previous count.
type adderCollator struct {
	mu    sync.Mutex
	count uint64
}

func (c *adderCollator) ProduceCollation(_ context.Context, _ primitives.Hash, data *primitives.ValidationData) (*primitives.Collation, error) {
	c.mu.Lock()
	c.count++
	count := c.count
	c.mu.Unlock()

	head := make([]byte, 8)
	binary.LittleEndian.PutUint64(head, count)

	pov := make([]byte, 16)
	binary.LittleEndian.PutUint64(pov[:8], count-1)
	binary.LittleEndian.PutUint64(pov[8:], count)

	return &primitives.Collation{
		HeadData:        head,
		ProofOfValidity: primitives.PoV{BlockData: pov},
		HrmpWatermark:   data.Persisted.RelayParentNumber,
	}, nil
}
