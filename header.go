// Copyright 2025 The gopsd authors
// SPDX-License-Identifier: MIT

package psd

import "fmt"

const (
	headerSignature = "8BPS"
	headerVersion   = 1

	// Signature of image resource blocks and layer blend data.
	blockSignature = "8BIM"
	// Alternate signature accepted on extra data blocks.
	blockSignature64 = "8B64"
)

// ColorMode is the color mode stored in the file header.
type ColorMode uint16

const (
	ColorModeBitmap ColorMode = iota
	ColorModeGrayscale
	ColorModeIndexed
	ColorModeRGB
	ColorModeCMYK
	ColorModeHSL
	ColorModeHSB
	ColorModeMultichannel
	ColorModeDuotone
	ColorModeLab
)

var colorModeNames = []string{
	"Bitmap",
	"Grayscale",
	"Indexed",
	"RGB",
	"CMYK",
	"HSL",
	"HSB",
	"Multichannel",
	"Duotone",
	"Lab",
}

func (m ColorMode) String() string {
	if int(m) < len(colorModeNames) {
		return colorModeNames[m]
	}
	return fmt.Sprintf("ColorMode(%d)", uint16(m))
}

// FileHeader is the fixed 26-byte header at the start of every document.
type FileHeader struct {
	Version     uint16
	NumChannels uint16
	Width       uint32
	Height      uint32
	BitDepth    uint16
	ColorMode   ColorMode
}

// headerSize is the encoded size of the header: signature(4) + version(2) +
// reserved(6) + channels(2) + width(4) + height(4) + depth(2) + mode(2).
const headerSize = 26

func (d *decoder) readHeader() error {
	d.seek(0)

	sig := d.readBytesVolatile(4)
	if string(sig) != headerSignature {
		return newInvalidFormatErrorf("header signature %q, want %q", sig, headerSignature)
	}

	h := &d.doc.Header
	h.Version = d.read2()
	if h.Version != headerVersion {
		return newInvalidFormatErrorf("unsupported version %d", h.Version)
	}
	d.skip(6) // reserved, must be zero
	h.NumChannels = d.read2()
	h.Width = d.read4()
	h.Height = d.read4()
	h.BitDepth = d.read2()
	h.ColorMode = ColorMode(d.read2())

	d.opts.Warnf("header: %dx%d, %d channels, %d bits, %s", h.Width, h.Height, h.NumChannels, h.BitDepth, h.ColorMode)

	return nil
}

func (e *encoder) writeHeader() error {
	h := e.doc.Header
	e.writeString(headerSignature)
	e.write2(headerVersion)
	e.writeZeros(4)
	e.writeZeros(2)
	e.write2(h.NumChannels)
	e.write4(h.Width)
	e.write4(h.Height)
	e.write2(h.BitDepth)
	e.write2(uint16(h.ColorMode))
	return nil
}

func (d *decoder) readColorMode() error {
	count := d.read4()
	if count != 0 {
		return newUnsupportedFeatureErrorf("color mode table (%d bytes, mode %s)", count, d.doc.Header.ColorMode)
	}
	return nil
}

func (e *encoder) writeColorMode() error {
	e.write4(0)
	return nil
}
