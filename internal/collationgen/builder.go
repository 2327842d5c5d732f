package collationgen

import (
	"context"

	"github.com/selendra/indracore/internal/erasure"
	"github.com/selendra/indracore/internal/logger"
	"github.com/selendra/indracore/internal/overseer"
	"github.com/selendra/indracore/internal/primitives"
)

// builderTask turns one (relay parent, scheduled core) into at most one
// signed candidate. It owns every input by value or exclusively, shares no
// mutable state with siblings, and runs concurrently with the activation
// handler's continued work.
type builderTask struct {
	relayParent    primitives.Hash
	config         *primitives.CollationGenerationConfig
	validationData *primitives.ValidationData
	nValidators    int
	completions    chan<- overseer.Message
	metrics        Metrics
}

// run executes produce → erasure-commit → sign → assemble → send.
// Every failure ends the task without emission; a fresh relay-chain head
// offers the next opportunity, so nothing here retries.
func (t *builderTask) run(ctx context.Context) {
	collation, err := t.config.Collator.ProduceCollation(ctx, t.relayParent, t.validationData)
	if err != nil {
		logger.Warn("collator failed",
			"para", t.config.Para, "relay_parent", shortHash(t.relayParent), "err", err)
		return
	}

	if collation == nil {
		logger.Debug("collator returned no collation",
			"para", t.config.Para, "relay_parent", shortHash(t.relayParent))
		return
	}

	// The availability payload always covers the raw witness, so a
	// compressed proof is unpacked before anything is committed to.
	pov, err := primitives.DecompressPoV(&collation.ProofOfValidity)
	if err != nil {
		logger.Error("invalid proof of validity",
			"para", t.config.Para, "relay_parent", shortHash(t.relayParent), "err", err)
		return
	}

	validationDataHash := t.validationData.Persisted.Hash()
	povHash := pov.Hash()

	available := &primitives.AvailableData{
		ValidationData: t.validationData.Persisted,
		PoV:            *pov,
	}

	chunks, err := erasure.ObtainChunks(t.nValidators, available)
	if err != nil {
		logger.Error("failed to obtain erasure chunks",
			"para", t.config.Para, "relay_parent", shortHash(t.relayParent), "err", err)
		return
	}

	erasureRoot, err := erasure.ChunksRoot(chunks)
	if err != nil {
		logger.Error("failed to compute erasure root",
			"para", t.config.Para, "relay_parent", shortHash(t.relayParent), "err", err)
		return
	}

	payload := primitives.CollatorSignaturePayload(
		t.relayParent, t.config.Para, validationDataHash, povHash, erasureRoot)

	commitments := primitives.CandidateCommitments{
		UpwardMessages:            collation.UpwardMessages,
		HorizontalMessages:        collation.HorizontalMessages,
		NewValidationCode:         collation.NewValidationCode,
		HeadData:                  collation.HeadData,
		ProcessedDownwardMessages: collation.ProcessedDownwardMessages,
		HrmpWatermark:             collation.HrmpWatermark,
	}

	receipt := primitives.CandidateReceipt{
		Descriptor: primitives.CandidateDescriptor{
			ParaID:                      t.config.Para,
			RelayParent:                 t.relayParent,
			Collator:                    t.config.Key.Public(),
			PersistedValidationDataHash: validationDataHash,
			PovHash:                     povHash,
			ErasureRoot:                 erasureRoot,
			Signature:                   t.config.Key.Sign(payload),
		},
		CommitmentsHash: commitments.Hash(),
	}

	t.metrics.onCollationGenerated()

	select {
	case t.completions <- overseer.DistributeCollation{Receipt: receipt, PoV: *pov}:
	case <-ctx.Done():
		// Best effort only: the subsystem stopped reading before this
		// task finished.
		logger.Warn("subsystem stopped before collation could be sent",
			"para", t.config.Para, "relay_parent", shortHash(t.relayParent))
	}
}
