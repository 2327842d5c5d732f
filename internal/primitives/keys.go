package primitives

import (
	"crypto/rand"
	"fmt"

	blst "github.com/supranational/blst/bindings/go"
)

const (
	// CollatorIDSize is the size of a compressed BLS public key in bytes.
	CollatorIDSize = 48

	// CollatorSignatureSize is the size of a compressed BLS signature in bytes.
	CollatorSignatureSize = 96
)

// CollatorID is a collator's compressed BLS12-381 public key.
type CollatorID [CollatorIDSize]byte

// CollatorSignature is a compressed BLS12-381 signature.
type CollatorSignature [CollatorSignatureSize]byte

// collatorDST is the domain separation tag for collator signatures.
var collatorDST = []byte("BLS_SIG_BLS12381G2_XMD:SHA-256_SSWU_RO_NUL_")

// CollatorKeyPair holds a collator's BLS signing key pair.
type CollatorKeyPair struct {
	secret *blst.SecretKey // secret is the private key
	public *blst.P1Affine  // public is the public key
}

// GenerateCollatorKey creates a new key pair from a random seed.
func GenerateCollatorKey() (*CollatorKeyPair, error) {
	var ikm [32]byte
	if _, err := rand.Read(ikm[:]); err != nil {
		return nil, fmt.Errorf("generate random seed: %w", err)
	}

	return CollatorKeyFromSeed(ikm[:])
}

// CollatorKeyFromSeed derives a key pair from a deterministic seed.
// The seed must be at least 32 bytes.
func CollatorKeyFromSeed(seed []byte) (*CollatorKeyPair, error) {
	if len(seed) < 32 {
		return nil, fmt.Errorf("seed must be at least 32 bytes")
	}

	secret := blst.KeyGen(seed)
	if secret == nil {
		return nil, fmt.Errorf("failed to generate collator key")
	}

	return &CollatorKeyPair{
		secret: secret,
		public: new(blst.P1Affine).From(secret),
	}, nil
}

// Sign signs the message and returns the compressed signature.
func (k *CollatorKeyPair) Sign(message []byte) CollatorSignature {
	var sig CollatorSignature
	compressed := new(blst.P2Affine).Sign(k.secret, message, collatorDST).Compress()
	copy(sig[:], compressed)

	return sig
}

// Public returns the collator's public identity.
func (k *CollatorKeyPair) Public() CollatorID {
	var id CollatorID
	copy(id[:], k.public.Compress())

	return id
}

// VerifyCollatorSignature checks a signature over message against a
// collator identity. Malformed keys or signatures verify as false.
func VerifyCollatorSignature(signature CollatorSignature, message []byte, collator CollatorID) bool {
	sig := new(blst.P2Affine).Uncompress(signature[:])
	if sig == nil {
		return false
	}

	pk := new(blst.P1Affine).Uncompress(collator[:])
	if pk == nil {
		return false
	}

	return sig.Verify(true, pk, true, message, collatorDST)
}
