// Copyright 2025 The gopsd authors
// SPDX-License-Identifier: MIT

package psd

// Rect is a bounding rectangle in pixels.
type Rect struct {
	Top    int32
	Left   int32
	Bottom int32
	Right  int32
}

func (r Rect) Width() int32 {
	return r.Right - r.Left
}

func (r Rect) Height() int32 {
	return r.Bottom - r.Top
}

func (d *decoder) readRect() Rect {
	return Rect{
		Top:    d.read4s(),
		Left:   d.read4s(),
		Bottom: d.read4s(),
		Right:  d.read4s(),
	}
}

func (e *encoder) writeRect(r Rect) {
	e.write4s(r.Top)
	e.write4s(r.Left)
	e.write4s(r.Bottom)
	e.write4s(r.Right)
}

// Channel IDs below zero mark special channels.
const (
	ChannelIDTransparencyMask int16 = -1
	ChannelIDUserLayerMask    int16 = -2
)

// ChannelInfo declares one channel of a layer: its ID and the byte length
// of its (opaque, compressed) pixel data.
type ChannelInfo struct {
	ID     int16
	Length uint32
}

// LayerMask is the mask sub-block of a layer record. A zero declared
// length in the file means no mask; that is modeled by Present == false.
type LayerMask struct {
	Present      bool
	Rect         Rect
	DefaultColor uint8
	Flags        uint8

	// Bytes past the fixed part, sized by the block's declared length.
	Data []byte
}

// fixed part: rectangle(16) + default color(1) + flags(1)
const layerMaskFixedSize = 18

func (m *LayerMask) size() uint32 {
	if !m.Present {
		return 4
	}
	return 4 + layerMaskFixedSize + uint32(len(m.Data))
}

func (m *LayerMask) read(d *decoder) error {
	length := d.read4()
	d.opts.Warnf("layer mask: %d bytes", length)
	if length == 0 {
		return nil
	}
	if length < layerMaskFixedSize {
		return newInvalidFormatErrorf("layer mask length %d, want 0 or >= %d", length, layerMaskFixedSize)
	}
	if err := d.checkLen(length); err != nil {
		return err
	}
	m.Present = true
	m.Rect = d.readRect()
	m.DefaultColor = d.read1()
	m.Flags = d.read1()
	m.Data = d.readBytes(int(length - layerMaskFixedSize))
	return nil
}

func (m *LayerMask) write(e *encoder) error {
	if !m.Present {
		e.write4(0)
		return nil
	}
	e.write4(layerMaskFixedSize + uint32(len(m.Data)))
	e.writeRect(m.Rect)
	e.write1(m.DefaultColor)
	e.write1(m.Flags)
	e.writeBytes(m.Data)
	return nil
}

// LayerBlendingRanges is a length-prefixed payload kept opaque.
type LayerBlendingRanges struct {
	Data []byte
}

func (b *LayerBlendingRanges) size() uint32 {
	return 4 + uint32(len(b.Data))
}

func (b *LayerBlendingRanges) read(d *decoder) error {
	length := d.read4()
	d.opts.Warnf("blending ranges: %d bytes", length)
	if err := d.checkLen(length); err != nil {
		return err
	}
	b.Data = d.readBytes(int(length))
	return nil
}

func (b *LayerBlendingRanges) write(e *encoder) error {
	e.write4(uint32(len(b.Data)))
	e.writeBytes(b.Data)
	return nil
}

// Layer is one record in the layer table.
type Layer struct {
	Rect     Rect
	Channels []ChannelInfo

	// Blend mode key, e.g. "norm", "mul ". Always 4 bytes encoded.
	BlendMode string
	Opacity   uint8
	Clipping  uint8
	Flags     uint8

	Mask           LayerMask
	BlendingRanges LayerBlendingRanges

	// Name is the layer name in UTF-8: the Mac Roman Pascal name, or the
	// decoded Unicode name when the layer carries a "luni" block. Derived
	// from the extra data chain after every read; not a source of truth
	// for Encode, which writes the raw name and the chain as they are.
	Name string

	// HasRichText is set when the extra data chain has a "TySh" block.
	HasRichText bool

	// ExtraData is the chained sequence of tagged sub-blocks following
	// the name. Unrecognized tags are retained untouched.
	ExtraData []ExtraDataBlock

	// Raw Pascal name bytes as read.
	name []byte
}

const defaultBlendMode = "norm"

func (l *Layer) rawName() []byte {
	if l.name != nil || l.Name == "" {
		return l.name
	}
	return encodePascalString(l.Name)
}

// size returns the encoded byte count of the record: rectangle(16) +
// channel count(2) + channel infos(6 each) + blend block(16) + extra data.
func (l *Layer) size() uint32 {
	return 16 + 2 + 6*uint32(len(l.Channels)) + 16 + l.extraDataSize()
}

// extraDataSize is the declared extra data length: everything following
// the blend block, which is the mask, the blending ranges, the padded
// Pascal name and the extra data chain.
func (l *Layer) extraDataSize() uint32 {
	n := l.Mask.size() + l.BlendingRanges.size() + pad4(1+uint32(len(l.rawName())))
	for i := range l.ExtraData {
		n += l.ExtraData[i].size()
	}
	return n
}

func (l *Layer) read(d *decoder) error {
	l.Rect = d.readRect()

	numChannels := d.read2()
	l.Channels = nil
	for i := 0; i < int(numChannels); i++ {
		l.Channels = append(l.Channels, ChannelInfo{
			ID:     d.read2s(),
			Length: d.read4(),
		})
	}

	sig := d.readBytesVolatile(4)
	if string(sig) != blockSignature {
		return newInvalidFormatErrorf("blend signature %q, want %q", sig, blockSignature)
	}
	l.BlendMode = string(d.readBytes(4))
	l.Opacity = d.read1()
	l.Clipping = d.read1()
	l.Flags = d.read1()
	d.skip(1) // filler

	extraLen := d.read4()
	if err := d.checkLen(extraLen); err != nil {
		return err
	}
	extraStart := d.pos()

	if err := l.Mask.read(d); err != nil {
		return err
	}
	if err := l.BlendingRanges.read(d); err != nil {
		return err
	}

	nameSize := d.read1()
	l.name = d.readBytes(int(nameSize))
	// Length prefix plus name are padded to a 4-byte boundary.
	switch nameSize % 4 {
	case 0:
		d.skip(3)
	case 1:
		d.skip(2)
	case 2:
		d.skip(1)
	}
	l.Name = decodePascalString(l.name)

	l.ExtraData = nil
	for d.pos()-extraStart < int64(extraLen) {
		var ed ExtraDataBlock
		if err := ed.read(d); err != nil {
			return err
		}
		l.ExtraData = append(l.ExtraData, ed)
	}

	if d.opts.StrictLengths {
		if consumed := d.pos() - extraStart; consumed != int64(extraLen) {
			return newInvalidFormatErrorf("layer extra data: consumed %d bytes, declared %d", consumed, extraLen)
		}
	}

	if err := l.scanExtraData(); err != nil {
		return err
	}

	d.opts.Warnf("layer %q: %d channels, blend %q", l.Name, len(l.Channels), l.BlendMode)

	return nil
}

// scanExtraData recomputes the derived name and rich text flag from the
// extra data chain. Call it again after mutating the chain.
func (l *Layer) scanExtraData() error {
	l.HasRichText = false
	for i := range l.ExtraData {
		ed := &l.ExtraData[i]
		switch ed.Key {
		case ExtraDataKeyUnicodeName:
			name, err := decodeUnicodeName(ed.Data)
			if err != nil {
				return err
			}
			l.Name = name
		case ExtraDataKeyTypeTool:
			l.HasRichText = true
		}
	}
	return nil
}

func (l *Layer) write(e *encoder) error {
	start := e.pos()

	e.writeRect(l.Rect)

	e.write2(uint16(len(l.Channels)))
	for _, ci := range l.Channels {
		e.write2s(ci.ID)
		e.write4(ci.Length)
	}

	blendMode := l.BlendMode
	if blendMode == "" {
		blendMode = defaultBlendMode
	}
	if len(blendMode) != 4 {
		return newInvalidFormatErrorf("blend mode key %q, want 4 bytes", blendMode)
	}
	e.writeString(blockSignature)
	e.writeString(blendMode)
	e.write1(l.Opacity)
	e.write1(l.Clipping)
	e.write1(l.Flags)
	e.writeZeros(1)

	e.write4(l.extraDataSize())

	if err := l.Mask.write(e); err != nil {
		return err
	}
	if err := l.BlendingRanges.write(e); err != nil {
		return err
	}

	name := l.rawName()
	e.write1(uint8(len(name)))
	e.writeBytes(name)
	switch len(name) % 4 {
	case 0:
		e.writeZeros(3)
	case 1:
		e.writeZeros(2)
	case 2:
		e.writeZeros(1)
	}

	for i := range l.ExtraData {
		if err := l.ExtraData[i].write(e); err != nil {
			return err
		}
	}

	if written := e.pos() - start; written != int64(l.size()) {
		return newInvalidFormatErrorf("layer %q: wrote %d bytes, size is %d", l.Name, written, l.size())
	}

	return nil
}

// LayerInfo is the layer table: an ordered sequence of layer records and
// the merged alpha flag, which the file encodes as the sign of the count.
type LayerInfo struct {
	Layers         []Layer
	HasMergedAlpha bool
}

// size returns the encoded byte count of the section, including its own
// 4-byte length prefix and the 2-byte layer count.
func (li *LayerInfo) size() uint32 {
	n := uint32(4 + 2)
	for i := range li.Layers {
		n += li.Layers[i].size()
	}
	return n
}

func (li *LayerInfo) read(d *decoder) error {
	length := d.read4()
	d.opts.Warnf("layer info section: %d bytes", length)

	numLayers := d.read2s()
	if numLayers < 0 {
		li.HasMergedAlpha = true
		numLayers = -numLayers
	}

	li.Layers = nil
	for i := 0; i < int(numLayers); i++ {
		var l Layer
		if err := l.read(d); err != nil {
			return err
		}
		li.Layers = append(li.Layers, l)
	}

	return nil
}

func (li *LayerInfo) write(e *encoder) error {
	e.write4(li.size() - 4)

	count := int16(len(li.Layers))
	if li.HasMergedAlpha && count > 0 {
		count = -count
	}
	e.write2s(count)

	for i := range li.Layers {
		if err := li.Layers[i].write(e); err != nil {
			return err
		}
	}

	return nil
}
