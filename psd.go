// Copyright 2025 The gopsd authors
// SPDX-License-Identifier: MIT

// Package psd decodes and encodes the structure of layered raster image
// documents: the file header, the image resource blocks and the layer table
// with its nested extra data blocks. Channel pixel data is carried through as
// opaque length-prefixed bytes, it is never interpreted.
package psd

import (
	"fmt"
	"io"
)

// Decode reads a document from opts.R and returns its structural model.
//
// The four sections are read in strict order: header, color mode table,
// image resources, layers and masks. The first failure aborts the whole
// decode; the returned Document is then invalid and must be discarded.
func Decode(opts Options) (doc *Document, err error) {
	if opts.R == nil {
		return nil, fmt.Errorf("psd: no reader provided")
	}
	if opts.Warnf == nil {
		opts.Warnf = func(string, ...any) {}
	}
	if opts.LimitSectionSize == 0 {
		opts.LimitSectionSize = defaultLimitSectionSize
	}

	d := &decoder{
		streamReader: newStreamReader(opts.R),
		opts:         opts,
	}
	doc = &Document{}
	d.doc = doc

	defer func() {
		if r := recover(); r != nil {
			if r != errStop {
				panic(r)
			}
			err = d.readErr
		}
		if err == nil {
			return
		}
		doc.valid = false
		if isInvalidFormatErrorCandidate(err) {
			err = newInvalidFormatError(err)
		}
	}()

	err = d.decode()

	return doc, err
}

// Options contains the options for the Decode function.
type Options struct {
	// The Reader (typically a *os.File) to read the document from.
	R io.ReadSeeker

	// Warnf will be called with verbose structural information while
	// decoding. It has no behavioral effect. If nil, nothing is reported.
	Warnf func(string, ...any)

	// StrictLengths makes the decoder verify that every block consumed
	// exactly the number of bytes its own size arithmetic declares.
	// A mismatch fails the decode with an invalid format error.
	StrictLengths bool

	// LimitSectionSize is the maximum size in bytes accepted for any
	// single length-prefixed section or block payload.
	// Default value is 10 MB.
	LimitSectionSize uint32
}

// 10 MB should be plenty for document structure; pixel data lives in
// channel payloads which are bounded per channel, not per section.
const defaultLimitSectionSize = 10 * 1024 * 1024

// Document is the decoded structural model of one file.
// It exclusively owns all nested sections.
type Document struct {
	Header    FileHeader
	Resources []ImageResourceBlock
	LayerInfo LayerInfo

	// Trailing bytes of the layers-and-masks section (global layer mask
	// info and additional layer information). Not parsed, kept verbatim
	// so Encode can reproduce them.
	globalLayerData []byte

	// Set when the layers-and-masks section had a non-zero length,
	// even if it contained zero layers.
	hasLayerSection bool

	valid bool
}

// Valid reports whether the document was fully and successfully decoded.
// It is false for zero-value and partially decoded documents.
func (d *Document) Valid() bool {
	return d.valid
}

// Encode writes the document back out in the same binary layout Decode
// reads. All length fields are recomputed from the live data, never taken
// from what was read, so a document modified in memory stays consistent.
func (d *Document) Encode(w io.Writer) (err error) {
	e := &encoder{
		streamWriter: newStreamWriter(w),
		doc:          d,
	}

	defer func() {
		if r := recover(); r != nil {
			if r != errStop {
				panic(r)
			}
			err = e.writeErr
		}
	}()

	return e.encode()
}

type decoder struct {
	*streamReader
	opts Options
	doc  *Document
}

func (d *decoder) decode() error {
	if err := d.readHeader(); err != nil {
		return err
	}
	if err := d.readColorMode(); err != nil {
		return err
	}
	if err := d.readImageResources(); err != nil {
		return err
	}
	if err := d.readLayersAndMasks(); err != nil {
		return err
	}
	d.doc.valid = true
	return nil
}

// checkLen guards allocations driven by length fields read from the stream.
func (d *decoder) checkLen(n uint32) error {
	if n > d.opts.LimitSectionSize {
		return newInvalidFormatErrorf("length %d exceeds max %d", n, d.opts.LimitSectionSize)
	}
	return nil
}

func (d *decoder) readImageResources() error {
	length := d.read4()
	if err := d.checkLen(length); err != nil {
		return err
	}
	d.opts.Warnf("image resource section: %d bytes", length)

	start := d.pos()
	d.doc.Resources = nil

	for d.pos()-start < int64(length) {
		var b ImageResourceBlock
		if err := b.read(d); err != nil {
			return err
		}
		d.doc.Resources = append(d.doc.Resources, b)
	}

	return nil
}

func (d *decoder) readLayersAndMasks() error {
	length := d.read4()
	if length == 0 {
		return nil
	}
	if err := d.checkLen(length); err != nil {
		return err
	}
	d.doc.hasLayerSection = true

	start := d.pos()
	if err := d.doc.LayerInfo.read(d); err != nil {
		return err
	}

	// Global layer mask info and any additional layer information are
	// not parsed; keep the raw bytes for Encode.
	if consumed := d.pos() - start; consumed < int64(length) {
		d.doc.globalLayerData = d.readBytes(int(int64(length) - consumed))
	}

	return nil
}

type encoder struct {
	*streamWriter
	doc *Document
}

func (e *encoder) encode() error {
	if err := e.writeHeader(); err != nil {
		return err
	}
	if err := e.writeColorMode(); err != nil {
		return err
	}
	if err := e.writeImageResources(); err != nil {
		return err
	}
	return e.writeLayersAndMasks()
}

func (e *encoder) writeImageResources() error {
	var length uint32
	for i := range e.doc.Resources {
		length += e.doc.Resources[i].size()
	}
	e.write4(length)
	for i := range e.doc.Resources {
		if err := e.doc.Resources[i].write(e); err != nil {
			return err
		}
	}
	return nil
}

func (e *encoder) writeLayersAndMasks() error {
	li := &e.doc.LayerInfo
	if !e.doc.hasLayerSection && len(li.Layers) == 0 && len(e.doc.globalLayerData) == 0 {
		e.write4(0)
		return nil
	}

	e.write4(li.size() + uint32(len(e.doc.globalLayerData)))
	if err := li.write(e); err != nil {
		return err
	}
	e.writeBytes(e.doc.globalLayerData)
	return nil
}
