package primitives

import "context"

// Collator is the pluggable block-content producer. Implementations are
// swappable without touching the collation-generation subsystem.
//
// ProduceCollation returns (nil, nil) when there is nothing to build for
// this relay parent, which is a normal outcome and not an error.
type Collator interface {
	ProduceCollation(ctx context.Context, relayParent Hash, data *ValidationData) (*Collation, error)
}

// CollationGenerationConfig is the one-time configuration of the
// collation-generation subsystem. Immutable once set.
type CollationGenerationConfig struct {
	Para     ParaID           // Para is the chain this collator builds for
	Key      *CollatorKeyPair // Key signs every produced candidate descriptor
	Collator Collator         // Collator produces candidate content
}
