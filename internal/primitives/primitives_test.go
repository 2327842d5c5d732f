package primitives

import (
	"bytes"
	"testing"
)

func testValidationData() PersistedValidationData {
	return PersistedValidationData{
		ParentHead:             HeadData{1, 2, 3, 4},
		RelayParentNumber:      77,
		RelayParentStorageRoot: Hash{0xaa},
		MaxPovSize:             1 << 20,
	}
}

// TestAvailableDataCodecRoundtrip verifies Encode/Decode are inverse.
func TestAvailableDataCodecRoundtrip(t *testing.T) {
	ad := &AvailableData{
		ValidationData: testValidationData(),
		PoV:            PoV{BlockData: []byte("witness bytes")},
	}

	decoded, err := DecodeAvailableData(ad.Encode())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if !bytes.Equal(decoded.Encode(), ad.Encode()) {
		t.Fatal("roundtrip changed the encoding")
	}

	if decoded.ValidationData.RelayParentNumber != 77 {
		t.Fatalf("relay parent number = %d, want 77", decoded.ValidationData.RelayParentNumber)
	}
}

// TestDecodeAvailableDataTruncated verifies malformed payloads error out
// instead of panicking.
func TestDecodeAvailableDataTruncated(t *testing.T) {
	ad := &AvailableData{
		ValidationData: testValidationData(),
		PoV:            PoV{BlockData: []byte("witness bytes")},
	}

	enc := ad.Encode()
	for _, cut := range []int{0, 1, 3, len(enc) / 2, len(enc) - 1} {
		if _, err := DecodeAvailableData(enc[:cut]); err == nil {
			t.Fatalf("expected error for payload truncated to %d bytes", cut)
		}
	}
}

// TestEncodingDeterminism verifies equal values encode identically and
// field changes are visible in the encoding.
func TestEncodingDeterminism(t *testing.T) {
	a := testValidationData()
	b := testValidationData()

	if !bytes.Equal(a.Encode(), b.Encode()) {
		t.Fatal("equal values encoded differently")
	}

	b.MaxPovSize++
	if bytes.Equal(a.Encode(), b.Encode()) {
		t.Fatal("field change invisible in encoding")
	}
}

// TestCommitmentsHash verifies the commitments hash covers every field,
// including the optional code upgrade.
func TestCommitmentsHash(t *testing.T) {
	code := ValidationCode{9, 9, 9}
	base := CandidateCommitments{
		UpwardMessages:            []UpwardMessage{{1}, {2, 2}},
		HorizontalMessages:        []OutboundHrmpMessage{{Recipient: 5, Data: []byte("x")}},
		HeadData:                  HeadData{7},
		ProcessedDownwardMessages: 3,
		HrmpWatermark:             11,
	}

	h := base.Hash()

	withCode := base
	withCode.NewValidationCode = &code
	if withCode.Hash() == h {
		t.Fatal("code upgrade invisible in commitments hash")
	}

	moved := base
	moved.HrmpWatermark = 12
	if moved.Hash() == h {
		t.Fatal("watermark invisible in commitments hash")
	}

	again := base
	if again.Hash() != h {
		t.Fatal("commitments hash not deterministic")
	}
}

// TestCollatorSignatureRoundtrip verifies a descriptor payload signature
// verifies under the signing key and fails under another key or payload.
func TestCollatorSignatureRoundtrip(t *testing.T) {
	seed := bytes.Repeat([]byte{0x11}, 32)
	key, err := CollatorKeyFromSeed(seed)
	if err != nil {
		t.Fatalf("key from seed: %v", err)
	}

	payload := CollatorSignaturePayload(Hash{1}, 100, Hash{2}, Hash{3}, Hash{4})
	sig := key.Sign(payload)

	if !VerifyCollatorSignature(sig, payload, key.Public()) {
		t.Fatal("signature did not verify under signing key")
	}

	other, err := CollatorKeyFromSeed(bytes.Repeat([]byte{0x22}, 32))
	if err != nil {
		t.Fatalf("second key: %v", err)
	}

	if VerifyCollatorSignature(sig, payload, other.Public()) {
		t.Fatal("signature verified under wrong key")
	}

	tampered := CollatorSignaturePayload(Hash{1}, 101, Hash{2}, Hash{3}, Hash{4})
	if VerifyCollatorSignature(sig, tampered, key.Public()) {
		t.Fatal("signature verified over wrong payload")
	}
}

// TestCollatorKeyFromSeedDeterministic verifies one seed always yields the
// same identity.
func TestCollatorKeyFromSeedDeterministic(t *testing.T) {
	seed := bytes.Repeat([]byte{0x33}, 32)

	k1, err := CollatorKeyFromSeed(seed)
	if err != nil {
		t.Fatalf("first derivation: %v", err)
	}

	k2, err := CollatorKeyFromSeed(seed)
	if err != nil {
		t.Fatalf("second derivation: %v", err)
	}

	if k1.Public() != k2.Public() {
		t.Fatal("same seed produced different identities")
	}

	if _, err := CollatorKeyFromSeed([]byte("short")); err == nil {
		t.Fatal("expected error for short seed")
	}
}

// TestPoVCompressionRoundtrip verifies compress/decompress restores the
// witness and that raw proofs pass through decompression unchanged.
func TestPoVCompressionRoundtrip(t *testing.T) {
	raw := &PoV{BlockData: bytes.Repeat([]byte("block data "), 500)}

	compressed, err := CompressPoV(raw)
	if err != nil {
		t.Fatalf("compress: %v", err)
	}

	if !IsCompressedPoV(compressed) {
		t.Fatal("compressed proof missing magic prefix")
	}

	if len(compressed.BlockData) >= len(raw.BlockData) {
		t.Fatal("repetitive witness did not shrink")
	}

	restored, err := DecompressPoV(compressed)
	if err != nil {
		t.Fatalf("decompress: %v", err)
	}

	if !bytes.Equal(restored.BlockData, raw.BlockData) {
		t.Fatal("roundtrip changed the witness")
	}

	passthrough, err := DecompressPoV(raw)
	if err != nil {
		t.Fatalf("decompress raw: %v", err)
	}

	if !bytes.Equal(passthrough.BlockData, raw.BlockData) {
		t.Fatal("raw proof changed by decompression")
	}

	if _, err := CompressPoV(compressed); err == nil {
		t.Fatal("expected error compressing twice")
	}
}

// TestCandidateHash verifies the candidate hash is deterministic and
// covers the commitments hash.
func TestCandidateHash(t *testing.T) {
	receipt := CandidateReceipt{
		Descriptor: CandidateDescriptor{
			ParaID:      100,
			RelayParent: Hash{0x01},
			PovHash:     Hash{0x02},
			ErasureRoot: Hash{0x03},
		},
		CommitmentsHash: Hash{0x04},
	}

	h := receipt.Hash()

	same := receipt
	if same.Hash() != h {
		t.Fatal("candidate hash not deterministic")
	}

	changed := receipt
	changed.CommitmentsHash = Hash{0x05}
	if changed.Hash() == h {
		t.Fatal("commitments hash invisible in candidate hash")
	}
}

// TestReceiptCodecRoundTrip verifies a receipt decodes to an equal value
// and that the decoder accepts exactly the fixed encoding size.
func TestReceiptCodecRoundTrip(t *testing.T) {
	receipt := CandidateReceipt{
		Descriptor: CandidateDescriptor{
			ParaID:                      100,
			RelayParent:                 Hash{0x01},
			Collator:                    CollatorID{0x02},
			PersistedValidationDataHash: Hash{0x03},
			PovHash:                     Hash{0x04},
			ErasureRoot:                 Hash{0x05},
			Signature:                   CollatorSignature{0x06},
		},
		CommitmentsHash: Hash{0x07},
	}

	encoded := receipt.Encode()
	if want := 4 + 4*32 + CollatorIDSize + CollatorSignatureSize + 32; len(encoded) != want {
		t.Fatalf("receipt encodes to %d bytes, want %d", len(encoded), want)
	}

	decoded, err := DecodeCandidateReceipt(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if *decoded != receipt {
		t.Fatal("decoded receipt differs")
	}

	if _, err := DecodeCandidateReceipt(encoded[:len(encoded)-1]); err == nil {
		t.Fatal("expected error for truncated receipt")
	}

	if _, err := DecodeCandidateReceipt(append(encoded, 0x00)); err == nil {
		t.Fatal("expected error for oversized receipt")
	}
}
