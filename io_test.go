// Copyright 2025 The gopsd authors
// SPDX-License-Identifier: MIT

package psd

import (
	"bytes"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestStreamScalarRoundTrip(t *testing.T) {
	c := qt.New(t)

	var buf bytes.Buffer
	w := newStreamWriter(&buf)

	w.write1(0xAB)
	w.write2(0x0102)
	w.write2(0xFFFF)
	w.write2s(-3)
	w.write4(0xDEADBEEF)
	w.write4s(-1)
	w.write4s(0x7FFFFFFF)

	c.Assert(w.pos(), qt.Equals, int64(1+2+2+2+4+4+4))

	// Spot check the byte order: most significant byte first.
	c.Assert(buf.Bytes()[:3], qt.DeepEquals, []byte{0xAB, 0x01, 0x02})

	r := newStreamReader(bytes.NewReader(buf.Bytes()))
	c.Assert(r.read1(), qt.Equals, uint8(0xAB))
	c.Assert(r.read2(), qt.Equals, uint16(0x0102))
	c.Assert(r.read2(), qt.Equals, uint16(0xFFFF))
	c.Assert(r.read2s(), qt.Equals, int16(-3))
	c.Assert(r.read4(), qt.Equals, uint32(0xDEADBEEF))
	c.Assert(r.read4s(), qt.Equals, int32(-1))
	c.Assert(r.read4s(), qt.Equals, int32(0x7FFFFFFF))
	c.Assert(r.pos(), qt.Equals, int64(len(buf.Bytes())))
}

func TestStreamReaderTruncated(t *testing.T) {
	c := qt.New(t)

	r := newStreamReader(bytes.NewReader([]byte{0x01, 0x02, 0x03}))

	err := func() (err error) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec != errStop {
					panic(rec)
				}
				err = r.readErr
			}
		}()
		r.read4()
		return nil
	}()

	c.Assert(err, qt.IsNotNil)
	c.Assert(isInvalidFormatErrorCandidate(err), qt.IsTrue)
}

func TestPad(t *testing.T) {
	c := qt.New(t)

	for n := uint32(0); n < 16; n++ {
		p2, p4 := pad2(n), pad4(n)
		c.Assert(p2%2, qt.Equals, uint32(0))
		c.Assert(p4%4, qt.Equals, uint32(0))
		c.Assert(p2 >= n && p2 < n+2, qt.IsTrue, qt.Commentf("pad2(%d) = %d", n, p2))
		c.Assert(p4 >= n && p4 < n+4, qt.IsTrue, qt.Commentf("pad4(%d) = %d", n, p4))
	}
}
