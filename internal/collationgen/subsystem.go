// Package collationgen implements the collation-generation subsystem: on
// every newly activated relay-chain head it finds availability cores
// scheduled for the configured para, asks the pluggable collator for
// content, computes the erasure commitment over the availability payload,
// and hands a signed candidate receipt to the collator-protocol path.
package collationgen

import (
	"context"
	"encoding/hex"

	"github.com/selendra/indracore/internal/journal"
	"github.com/selendra/indracore/internal/logger"
	"github.com/selendra/indracore/internal/overseer"
	"github.com/selendra/indracore/internal/primitives"
)

// Subsystem is one collation-generation instance. It is the single owner
// of its overseer handle; all outbound traffic goes through the run loop
// or through the activation handler it calls sequentially.
type Subsystem struct {
	handle  *overseer.Handle
	config  *primitives.CollationGenerationConfig
	metrics Metrics
	journal *journal.Store
}

// Option configures a Subsystem.
type Option func(*Subsystem)

// WithJournal attaches a receipt journal. Every distributed candidate is
// recorded; journal failures are logged and never block distribution.
func WithJournal(j *journal.Store) Option {
	return func(s *Subsystem) { s.journal = j }
}

// New creates the subsystem. It stays idle until it receives its
// configuration over the handle.
func New(handle *overseer.Handle, metrics Metrics, opts ...Option) *Subsystem {
	s := &Subsystem{handle: handle, metrics: metrics}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Run drives the subsystem until Conclude, a transport failure, or context
// cancellation. It interleaves two sources: incoming overseer traffic and
// the completion channel fed by builder tasks. The completion channel is a
// rendezvous queue, so a builder's send blocks until the loop reads it;
// that backpressure keeps the loop responsive and bounds nothing else.
func (s *Subsystem) Run(ctx context.Context) error {
	// Cancellation of this context is the only teardown in-flight
	// builder tasks observe; they hold no other resources.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	completions := make(chan overseer.Message)

	for {
		select {
		case incoming, ok := <-s.handle.Incoming():
			if !ok {
				logger.Error("overseer connection lost, stopping collation generation")
				return overseer.ErrOverseerGone
			}

			if s.handleIncoming(ctx, incoming, completions) {
				return nil
			}

		case msg := <-completions:
			s.forward(ctx, msg)

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// handleIncoming processes one overseer item. Returns true when the loop
// should stop.
func (s *Subsystem) handleIncoming(ctx context.Context, incoming overseer.Incoming, completions chan<- overseer.Message) bool {
	switch signal := incoming.Signal.(type) {
	case overseer.ActiveLeavesUpdate:
		if s.config == nil {
			return false
		}

		if err := s.handleNewActivations(ctx, signal.Activated, completions); err != nil {
			logger.Warn("failed to handle new activations", "err", err)
		}

		return false

	case overseer.BlockFinalized:
		return false

	case overseer.Conclude:
		return true
	}

	switch msg := incoming.Message.(type) {
	case overseer.InitializeCollationGeneration:
		if s.config != nil {
			logger.Error("double initialization of collation generation, keeping first config",
				"para", s.config.Para)
		} else {
			s.config = msg.Config
			logger.Info("collation generation initialized", "para", s.config.Para)
		}

	default:
		logger.Debug("ignoring unexpected overseer item")
	}

	return false
}

// forward relays one completed builder output to the overseer, journaling
// distributed receipts on the way.
func (s *Subsystem) forward(ctx context.Context, msg overseer.Message) {
	if dc, ok := msg.(overseer.DistributeCollation); ok && s.journal != nil {
		if err := s.journal.Record(&dc.Receipt); err != nil {
			logger.Warn("failed to journal candidate receipt",
				"candidate", shortHash(dc.Receipt.Hash()), "err", err)
		}
	}

	if err := s.handle.Send(ctx, msg); err != nil {
		logger.Warn("failed to forward collation result", "err", err)
	}
}

func shortHash(h primitives.Hash) string {
	return hex.EncodeToString(h[:8])
}
