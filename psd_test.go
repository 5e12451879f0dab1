// Copyright 2025 The gopsd authors
// SPDX-License-Identifier: MIT

package psd_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/gopsd/psd"

	qt "github.com/frankban/quicktest"
	"github.com/google/go-cmp/cmp"
)

var eq = qt.CmpEquals(cmp.AllowUnexported())

// minimalDoc is a well formed document with 0 channels, 1x1 pixels and all
// four sections present but empty.
func minimalDoc() []byte {
	var b bytes.Buffer
	b.WriteString("8BPS")
	b.Write([]byte{0x00, 0x01})    // version
	b.Write(make([]byte, 6))       // reserved
	b.Write([]byte{0x00, 0x00})    // channel count
	b.Write([]byte{0, 0, 0, 1})    // width
	b.Write([]byte{0, 0, 0, 1})    // height
	b.Write([]byte{0x00, 0x08})    // bit depth
	b.Write([]byte{0x00, 0x03})    // color mode
	b.Write([]byte{0, 0, 0, 0})    // color mode table length
	b.Write([]byte{0, 0, 0, 0})    // image resource section length
	b.Write([]byte{0, 0, 0, 0})    // layers and masks section length
	return b.Bytes()
}

func TestDecodeMinimal(t *testing.T) {
	c := qt.New(t)

	doc, err := psd.Decode(psd.Options{R: bytes.NewReader(minimalDoc())})
	c.Assert(err, qt.IsNil)
	c.Assert(doc.Valid(), qt.IsTrue)

	c.Assert(doc.Header.Version, qt.Equals, uint16(1))
	c.Assert(doc.Header.NumChannels, qt.Equals, uint16(0))
	c.Assert(doc.Header.Width, qt.Equals, uint32(1))
	c.Assert(doc.Header.Height, qt.Equals, uint32(1))
	c.Assert(doc.Header.BitDepth, qt.Equals, uint16(8))
	c.Assert(doc.Header.ColorMode, qt.Equals, psd.ColorModeRGB)
	c.Assert(len(doc.Resources), qt.Equals, 0)
	c.Assert(len(doc.LayerInfo.Layers), qt.Equals, 0)
}

func TestDecodeCorruptSignature(t *testing.T) {
	c := qt.New(t)

	for i := 0; i < 4; i++ {
		b := minimalDoc()
		b[i] ^= 0xFF

		doc, err := psd.Decode(psd.Options{R: bytes.NewReader(b)})
		c.Assert(err, qt.IsNotNil, qt.Commentf("byte %d", i))
		c.Assert(psd.IsInvalidFormat(err), qt.IsTrue)
		c.Assert(doc.Valid(), qt.IsFalse)
	}
}

func TestDecodeBadVersion(t *testing.T) {
	c := qt.New(t)

	b := minimalDoc()
	b[5] = 2

	doc, err := psd.Decode(psd.Options{R: bytes.NewReader(b)})
	c.Assert(psd.IsInvalidFormat(err), qt.IsTrue)
	c.Assert(doc.Valid(), qt.IsFalse)
}

func TestDecodeColorModeTable(t *testing.T) {
	c := qt.New(t)

	b := minimalDoc()
	// Declare a 4-byte color mode table.
	b[29] = 4
	b = append(b, 0, 0, 0, 0)

	doc, err := psd.Decode(psd.Options{R: bytes.NewReader(b)})
	c.Assert(err, qt.IsNotNil)
	c.Assert(psd.IsUnsupportedFeature(err), qt.IsTrue)
	c.Assert(psd.IsInvalidFormat(err), qt.IsFalse)
	c.Assert(doc.Valid(), qt.IsFalse)
}

func TestDecodeTruncated(t *testing.T) {
	c := qt.New(t)

	b := minimalDoc()
	for _, n := range []int{3, 10, 25, len(b) - 2} {
		doc, err := psd.Decode(psd.Options{R: bytes.NewReader(b[:n])})
		c.Assert(err, qt.IsNotNil, qt.Commentf("truncated to %d bytes", n))
		c.Assert(psd.IsInvalidFormat(err), qt.IsTrue, qt.Commentf("truncated to %d bytes: %v", n, err))
		c.Assert(doc.Valid(), qt.IsFalse)
	}
}

func TestDecodeNoReader(t *testing.T) {
	c := qt.New(t)
	_, err := psd.Decode(psd.Options{})
	c.Assert(err, qt.IsNotNil)
}

const xmpPacket = `<x:xmpmeta xmlns:x="adobe:ns:meta/">
<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#">
<rdf:Description xmlns:xmp="http://ns.adobe.com/xap/1.0/" xmp:CreatorTool="Luminance"/>
</rdf:RDF>
</x:xmpmeta>`

func testDocument() *psd.Document {
	return &psd.Document{
		Header: psd.FileHeader{
			NumChannels: 3,
			Width:       640,
			Height:      480,
			BitDepth:    8,
			ColorMode:   psd.ColorModeRGB,
		},
		Resources: []psd.ImageResourceBlock{
			{ID: psd.ResourceIDResolutionInfo, Data: []byte{0, 72, 0, 0, 0, 0, 0, 1}},
			{ID: psd.ResourceIDXMPMetadata, Name: "xmp", Data: []byte(xmpPacket)},
		},
		LayerInfo: psd.LayerInfo{
			Layers: []psd.Layer{
				{
					Rect:      psd.Rect{Bottom: 480, Right: 640},
					BlendMode: "norm",
					Opacity:   255,
					Name:      "Background",
					Channels: []psd.ChannelInfo{
						{ID: 0, Length: 1200},
						{ID: 1, Length: 1200},
						{ID: 2, Length: 1200},
					},
				},
				{
					Rect:      psd.Rect{Top: 10, Left: 10, Bottom: 42, Right: 42},
					BlendMode: "scrn",
					Opacity:   200,
					Name:      "Overlay",
					Channels:  []psd.ChannelInfo{{ID: 0, Length: 99}},
					ExtraData: []psd.ExtraDataBlock{
						psd.NewUnicodeNameBlock("Øverlay"),
						{Key: "TySh", Data: []byte{1}},
					},
				},
			},
			HasMergedAlpha: true,
		},
	}
}

func TestDocumentRoundTrip(t *testing.T) {
	c := qt.New(t)

	in := testDocument()

	var buf bytes.Buffer
	c.Assert(in.Encode(&buf), qt.IsNil)

	doc, err := psd.Decode(psd.Options{R: bytes.NewReader(buf.Bytes()), StrictLengths: true})
	c.Assert(err, qt.IsNil)
	c.Assert(doc.Valid(), qt.IsTrue)

	c.Assert(doc.Header, qt.Equals, psd.FileHeader{
		Version:     1,
		NumChannels: 3,
		Width:       640,
		Height:      480,
		BitDepth:    8,
		ColorMode:   psd.ColorModeRGB,
	})

	c.Assert(len(doc.Resources), qt.Equals, 2)
	c.Assert(doc.Resources[1].Name, qt.Equals, "xmp")
	c.Assert(doc.LayerInfo.HasMergedAlpha, qt.IsTrue)
	c.Assert(len(doc.LayerInfo.Layers), qt.Equals, 2)

	background, overlay := doc.LayerInfo.Layers[0], doc.LayerInfo.Layers[1]
	c.Assert(background.Name, qt.Equals, "Background")
	c.Assert(background.Channels, eq, in.LayerInfo.Layers[0].Channels)
	c.Assert(background.HasRichText, qt.IsFalse)
	c.Assert(overlay.Name, qt.Equals, "Øverlay")
	c.Assert(overlay.HasRichText, qt.IsTrue)
	c.Assert(overlay.Rect.Width(), qt.Equals, int32(32))

	// A decoded document encodes back to the identical byte sequence.
	var buf2 bytes.Buffer
	c.Assert(doc.Encode(&buf2), qt.IsNil)
	c.Assert(buf2.Bytes(), qt.DeepEquals, buf.Bytes())
}

func TestDocumentResources(t *testing.T) {
	c := qt.New(t)

	in := testDocument()
	var buf bytes.Buffer
	c.Assert(in.Encode(&buf), qt.IsNil)
	doc, err := psd.Decode(psd.Options{R: bytes.NewReader(buf.Bytes())})
	c.Assert(err, qt.IsNil)

	c.Assert(doc.ResourceByID(psd.ResourceIDResolutionInfo), qt.IsNotNil)
	c.Assert(doc.ResourceByID(psd.ResourceIDICCProfile), qt.IsNil)

	// XMP is exposed raw and parses with the rdf subset decoder.
	xmp := doc.XMP()
	c.Assert(xmp, qt.IsNotNil)
	fields, err := psd.DecodeXMP(bytes.NewReader(xmp))
	c.Assert(err, qt.IsNil)
	c.Assert(len(fields), qt.Equals, 1)
	c.Assert(fields[0].Name, qt.Equals, "CreatorTool")
	c.Assert(fields[0].Namespace, qt.Equals, "http://ns.adobe.com/xap/1.0/")
	c.Assert(fields[0].Value, qt.Equals, "Luminance")

	// No EXIF resource in this document.
	_, err = doc.EXIF()
	c.Assert(err, qt.IsNotNil)
}

func TestDecodeXMPInvalid(t *testing.T) {
	c := qt.New(t)
	_, err := psd.DecodeXMP(strings.NewReader("not xml at all <"))
	c.Assert(psd.IsInvalidFormat(err), qt.IsTrue)
}

func TestDecodeWarnf(t *testing.T) {
	c := qt.New(t)

	in := testDocument()
	var buf bytes.Buffer
	c.Assert(in.Encode(&buf), qt.IsNil)

	var warnings []string
	_, err := psd.Decode(psd.Options{
		R: bytes.NewReader(buf.Bytes()),
		Warnf: func(format string, args ...any) {
			warnings = append(warnings, format)
		},
	})
	c.Assert(err, qt.IsNil)
	c.Assert(len(warnings) > 0, qt.IsTrue)
}

func TestDecodeLimitSectionSize(t *testing.T) {
	c := qt.New(t)

	in := testDocument()
	var buf bytes.Buffer
	c.Assert(in.Encode(&buf), qt.IsNil)

	_, err := psd.Decode(psd.Options{
		R:                bytes.NewReader(buf.Bytes()),
		LimitSectionSize: 16,
	})
	c.Assert(err, qt.IsNotNil)
	c.Assert(psd.IsInvalidFormat(err), qt.IsTrue)
}
