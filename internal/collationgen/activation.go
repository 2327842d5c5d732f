package collationgen

import (
	"context"
	"errors"
	"fmt"

	"github.com/selendra/indracore/internal/logger"
	"github.com/selendra/indracore/internal/overseer"
	"github.com/selendra/indracore/internal/primitives"
)

// handleNewActivations walks one activation batch. Relay parents are
// handled strictly sequentially: the shared handle forbids concurrent use.
// A transport failure while handling one relay parent aborts only that
// relay parent; the rest of the batch is still processed, and builder
// tasks already spawned are unaffected either way.
func (s *Subsystem) handleNewActivations(ctx context.Context, activated []overseer.ActivatedLeaf, completions chan<- overseer.Message) error {
	stop := s.metrics.timeActivations()
	defer stop()

	var errs []error

	for _, leaf := range activated {
		if err := s.handleRelayParent(ctx, leaf.Hash, completions); err != nil {
			logger.Warn("failed to handle activated relay parent",
				"relay_parent", shortHash(leaf.Hash), "err", err)
			errs = append(errs, fmt.Errorf("relay parent %s: %w", shortHash(leaf.Hash), err))
		}
	}

	return errors.Join(errs...)
}

// handleRelayParent runs one round of candidate construction for a single
// relay parent: fetch cores and validator count with overlapping round
// trips, then spawn one builder task per actionable core.
func (s *Subsystem) handleRelayParent(ctx context.Context, relayParent primitives.Hash, completions chan<- overseer.Message) error {
	stop := s.metrics.timeRelayParent()
	defer stop()

	// Submit both requests before awaiting either so the two round
	// trips overlap.
	coresPending, err := s.handle.RequestAvailabilityCores(ctx, relayParent)
	if err != nil {
		return fmt.Errorf("request availability cores: %w", err)
	}

	validatorsPending, err := s.handle.RequestValidators(ctx, relayParent)
	if err != nil {
		return fmt.Errorf("request validators: %w", err)
	}

	cores, err := coresPending.Await(ctx)
	if err != nil {
		return fmt.Errorf("await availability cores: %w", err)
	}

	validators, err := validatorsPending.Await(ctx)
	if err != nil {
		return fmt.Errorf("await validators: %w", err)
	}

	for _, core := range cores {
		if err := s.handleCore(ctx, relayParent, core, len(validators), completions); err != nil {
			// Transport failure: abort the remaining cores for
			// this relay parent.
			return err
		}
	}

	return nil
}

// handleCore inspects one availability core and spawns a builder task if
// it is scheduled for the configured para. Non-actionable cores and a
// missing validation context are silent skips, never errors.
func (s *Subsystem) handleCore(
	ctx context.Context,
	relayParent primitives.Hash,
	core primitives.CoreState,
	nValidators int,
	completions chan<- overseer.Message,
) error {
	stop := s.metrics.timeCore()
	defer stop()

	scheduled, ok := core.(primitives.ScheduledCore)
	if !ok {
		// Free or occupied: nothing to build here this round.
		return nil
	}

	if scheduled.Para != s.config.Para {
		return nil
	}

	if scheduled.Collator != nil && *scheduled.Collator != s.config.Key.Public() {
		// The core is reserved for a different collator.
		return nil
	}

	// Validation data is fetched synchronously per core: the shared
	// handle cannot be distributed to the builder tasks.
	pending, err := s.handle.RequestValidationData(ctx, relayParent, s.config.Para, primitives.AssumeFree)
	if err != nil {
		return fmt.Errorf("request validation data: %w", err)
	}

	validationData, err := pending.Await(ctx)
	if err != nil {
		return fmt.Errorf("await validation data: %w", err)
	}

	if validationData == nil {
		// Not yet buildable at this relay parent.
		return nil
	}

	task := &builderTask{
		relayParent:    relayParent,
		config:         s.config,
		validationData: validationData,
		nValidators:    nValidators,
		completions:    completions,
		metrics:        s.metrics,
	}

	// Fire and forget: the task owns all its inputs, emits at most one
	// completion, and is safe to drop on subsystem teardown.
	go task.run(ctx)

	return nil
}
