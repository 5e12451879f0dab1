// Copyright 2025 The gopsd authors
// SPDX-License-Identifier: MIT

package psd

import (
	"bytes"
	"fmt"

	"github.com/rwcarlsen/goexif/exif"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// Image resource IDs commonly inspected by tooling.
// Source: https://www.adobe.com/devnet-apps/photoshop/fileformatashtml/
const (
	ResourceIDResolutionInfo uint16 = 0x03ED
	ResourceIDIPTCNAA        uint16 = 0x0404
	ResourceIDThumbnail      uint16 = 0x040C
	ResourceIDICCProfile     uint16 = 0x040F
	ResourceIDEXIFData       uint16 = 0x0422
	ResourceIDXMPMetadata    uint16 = 0x0424
)

// ImageResourceBlock is one tagged record in the image resource section,
// used for document-level metadata. The payload is kept opaque.
type ImageResourceBlock struct {
	ID uint16

	// Name decoded from the legacy Mac Roman Pascal string.
	// Usually empty.
	Name string

	Data []byte

	// Raw name bytes as read, kept so write reproduces them exactly.
	name []byte
}

// size returns the encoded byte count of the block:
// signature(4) + id(2) + padded name + length(4) + padded payload.
func (b *ImageResourceBlock) size() uint32 {
	return 4 + 2 +
		pad2(1+uint32(len(b.rawName()))) +
		4 +
		pad2(uint32(len(b.Data)))
}

func (b *ImageResourceBlock) rawName() []byte {
	if b.name != nil || b.Name == "" {
		return b.name
	}
	return encodePascalString(b.Name)
}

func (b *ImageResourceBlock) read(d *decoder) error {
	start := d.pos()

	sig := d.readBytesVolatile(4)
	if string(sig) != blockSignature {
		return newInvalidFormatErrorf("image resource signature %q, want %q", sig, blockSignature)
	}

	b.ID = d.read2()

	nameLen := d.read1()
	b.name = d.readBytes(int(nameLen))
	// The name field is padded so that length prefix plus name occupy an
	// even number of bytes: a pad byte follows exactly when the name
	// length is even. The payload below pads on odd length instead.
	if nameLen%2 == 0 {
		d.skip(1)
	}
	b.Name = decodePascalString(b.name)

	length := d.read4()
	if err := d.checkLen(length); err != nil {
		return err
	}
	b.Data = d.readBytes(int(length))
	if length%2 == 1 {
		d.skip(1)
	}

	d.opts.Warnf("resource 0x%04X %q: %d bytes", b.ID, b.Name, len(b.Data))

	if d.opts.StrictLengths {
		if consumed := d.pos() - start; consumed != int64(b.size()) {
			return newInvalidFormatErrorf("resource 0x%04X: consumed %d bytes, size is %d", b.ID, consumed, b.size())
		}
	}

	return nil
}

func (b *ImageResourceBlock) write(e *encoder) error {
	start := e.pos()

	e.writeString(blockSignature)
	e.write2(b.ID)

	name := b.rawName()
	e.write1(uint8(len(name)))
	e.writeBytes(name)
	if len(name)%2 == 0 {
		e.writeZeros(1)
	}

	e.write4(uint32(len(b.Data)))
	e.writeBytes(b.Data)
	if len(b.Data)%2 == 1 {
		e.writeZeros(1)
	}

	if written := e.pos() - start; written != int64(b.size()) {
		return newInvalidFormatErrorf("resource 0x%04X: wrote %d bytes, size is %d", b.ID, written, b.size())
	}

	return nil
}

// ResourceByID returns the first image resource block with the given ID,
// or nil if the document has none.
func (d *Document) ResourceByID(id uint16) *ImageResourceBlock {
	for i := range d.Resources {
		if d.Resources[i].ID == id {
			return &d.Resources[i]
		}
	}
	return nil
}

// EXIF decodes the EXIF resource block (a raw TIFF blob), if present.
func (d *Document) EXIF() (*exif.Exif, error) {
	b := d.ResourceByID(ResourceIDEXIFData)
	if b == nil {
		return nil, fmt.Errorf("psd: no EXIF resource")
	}
	return exif.Decode(bytes.NewReader(b.Data))
}

// XMP returns the raw XMP packet from the XMP metadata resource block,
// or nil if the document has none. See DecodeXMP.
func (d *Document) XMP() []byte {
	if b := d.ResourceByID(ResourceIDXMPMetadata); b != nil {
		return b.Data
	}
	return nil
}

// Legacy Pascal strings (resource names, plain layer names) are Mac Roman.
// The raw bytes stay the source of truth; the decoded form is a derived
// convenience.

func decodePascalString(b []byte) string {
	s, err := charmap.Macintosh.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(s)
}

func encodePascalString(s string) []byte {
	b, err := encoding.ReplaceUnsupported(charmap.Macintosh.NewEncoder()).Bytes([]byte(s))
	if err != nil {
		b = []byte(s)
	}
	if len(b) > 255 {
		b = b[:255]
	}
	return b
}
