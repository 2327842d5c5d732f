package primitives

import (
	"encoding/binary"
	"fmt"
)

// Deterministic binary codec for the candidate data model. Little-endian
// integers, u32 length prefixes for variable-length fields, a single
// presence byte for optionals. Equal values always encode to equal bytes;
// every hash in this package is taken over these encodings.

type encoder struct {
	buf []byte
}

func newEncoder(capacity int) *encoder {
	return &encoder{buf: make([]byte, 0, capacity)}
}

func (e *encoder) bytes() []byte {
	return e.buf
}

func (e *encoder) u8(v uint8) {
	e.buf = append(e.buf, v)
}

func (e *encoder) u32(v uint32) {
	e.buf = binary.LittleEndian.AppendUint32(e.buf, v)
}

func (e *encoder) hash(h Hash) {
	e.buf = append(e.buf, h[:]...)
}

// vec writes a u32 length prefix followed by the raw bytes.
func (e *encoder) vec(b []byte) {
	e.u32(uint32(len(b)))
	e.buf = append(e.buf, b...)
}

// Encode returns the canonical encoding of the persisted validation data.
func (p *PersistedValidationData) Encode() []byte {
	e := newEncoder(4 + len(p.ParentHead) + 4 + 32 + 4)
	e.vec(p.ParentHead)
	e.u32(p.RelayParentNumber)
	e.hash(p.RelayParentStorageRoot)
	e.u32(p.MaxPovSize)

	return e.bytes()
}

// Encode returns the canonical encoding of the proof of validity.
func (p *PoV) Encode() []byte {
	e := newEncoder(4 + len(p.BlockData))
	e.vec(p.BlockData)

	return e.bytes()
}

// Encode returns the canonical encoding of the availability payload.
// This is the exact byte string split into erasure chunks.
func (a *AvailableData) Encode() []byte {
	vd := a.ValidationData.Encode()

	e := newEncoder(4 + len(vd) + 4 + len(a.PoV.BlockData) + 4)
	e.vec(vd)
	e.vec(a.PoV.BlockData)

	return e.bytes()
}

// DecodeAvailableData parses an availability payload produced by Encode.
func DecodeAvailableData(data []byte) (*AvailableData, error) {
	d := decoder{buf: data}

	vd, err := d.vec()
	if err != nil {
		return nil, fmt.Errorf("validation data: %w", err)
	}

	block, err := d.vec()
	if err != nil {
		return nil, fmt.Errorf("pov: %w", err)
	}

	pvd, err := decodePersistedValidationData(vd)
	if err != nil {
		return nil, err
	}

	return &AvailableData{
		ValidationData: *pvd,
		PoV:            PoV{BlockData: block},
	}, nil
}

// Encode returns the canonical encoding of the commitments set.
func (c *CandidateCommitments) Encode() []byte {
	e := newEncoder(64 + len(c.HeadData))

	e.u32(uint32(len(c.UpwardMessages)))
	for _, m := range c.UpwardMessages {
		e.vec(m)
	}

	e.u32(uint32(len(c.HorizontalMessages)))
	for _, m := range c.HorizontalMessages {
		e.u32(uint32(m.Recipient))
		e.vec(m.Data)
	}

	if c.NewValidationCode != nil {
		e.u8(1)
		e.vec(*c.NewValidationCode)
	} else {
		e.u8(0)
	}

	e.vec(c.HeadData)
	e.u32(c.ProcessedDownwardMessages)
	e.u32(c.HrmpWatermark)

	return e.bytes()
}

// Encode returns the canonical encoding of the receipt, the preimage of
// the candidate hash.
func (r *CandidateReceipt) Encode() []byte {
	d := &r.Descriptor

	e := newEncoder(4 + 4*32 + 48 + 96 + 32)
	e.u32(uint32(d.ParaID))
	e.hash(d.RelayParent)
	e.buf = append(e.buf, d.Collator[:]...)
	e.hash(d.PersistedValidationDataHash)
	e.hash(d.PovHash)
	e.hash(d.ErasureRoot)
	e.buf = append(e.buf, d.Signature[:]...)
	e.hash(r.CommitmentsHash)

	return e.bytes()
}

// DecodeCandidateReceipt parses a receipt produced by Encode.
func DecodeCandidateReceipt(data []byte) (*CandidateReceipt, error) {
	wantLen := 4 + 4*32 + CollatorIDSize + CollatorSignatureSize + 32
	if len(data) != wantLen {
		return nil, fmt.Errorf("receipt encoding is %d bytes, want %d", len(data), wantLen)
	}

	d := decoder{buf: data}
	var r CandidateReceipt

	para, _ := d.u32()
	r.Descriptor.ParaID = ParaID(para)
	r.Descriptor.RelayParent, _ = d.hash()

	copy(r.Descriptor.Collator[:], d.buf[d.off:])
	d.off += CollatorIDSize

	r.Descriptor.PersistedValidationDataHash, _ = d.hash()
	r.Descriptor.PovHash, _ = d.hash()
	r.Descriptor.ErasureRoot, _ = d.hash()

	copy(r.Descriptor.Signature[:], d.buf[d.off:])
	d.off += CollatorSignatureSize

	r.CommitmentsHash, _ = d.hash()

	return &r, nil
}

type decoder struct {
	buf []byte
	off int
}

func (d *decoder) u32() (uint32, error) {
	if d.off+4 > len(d.buf) {
		return 0, fmt.Errorf("truncated at offset %d", d.off)
	}

	v := binary.LittleEndian.Uint32(d.buf[d.off:])
	d.off += 4

	return v, nil
}

func (d *decoder) vec() ([]byte, error) {
	n, err := d.u32()
	if err != nil {
		return nil, err
	}

	if d.off+int(n) > len(d.buf) {
		return nil, fmt.Errorf("truncated vec of %d bytes at offset %d", n, d.off)
	}

	out := make([]byte, n)
	copy(out, d.buf[d.off:d.off+int(n)])
	d.off += int(n)

	return out, nil
}

func (d *decoder) hash() (Hash, error) {
	var h Hash
	if d.off+32 > len(d.buf) {
		return h, fmt.Errorf("truncated hash at offset %d", d.off)
	}

	copy(h[:], d.buf[d.off:])
	d.off += 32

	return h, nil
}

func decodePersistedValidationData(data []byte) (*PersistedValidationData, error) {
	d := decoder{buf: data}

	head, err := d.vec()
	if err != nil {
		return nil, err
	}

	number, err := d.u32()
	if err != nil {
		return nil, err
	}

	root, err := d.hash()
	if err != nil {
		return nil, err
	}

	maxPov, err := d.u32()
	if err != nil {
		return nil, err
	}

	return &PersistedValidationData{
		ParentHead:             head,
		RelayParentNumber:      number,
		RelayParentStorageRoot: root,
		MaxPovSize:             maxPov,
	}, nil
}
