// Copyright 2025 The gopsd authors
// SPDX-License-Identifier: MIT

package psd

import (
	"encoding/binary"
	"errors"
	"io"
)

var errShortRead = errors.New("short read")

// streamReader is a wrapper around a ReadSeeker that provides methods to read
// binary data in the document's byte order.
// Note that this is not thread safe.
type streamReader struct {
	r         io.ReadSeeker
	byteOrder binary.ByteOrder

	buf []byte

	readErr error
}

func newStreamReader(r io.ReadSeeker) *streamReader {
	return &streamReader{
		r:         r,
		byteOrder: binary.BigEndian,
	}
}

func (e *streamReader) allocateBuf(length int) {
	if length > cap(e.buf) {
		e.buf = make([]byte, length)
	}
}

func (e *streamReader) pos() int64 {
	n, _ := e.r.Seek(0, io.SeekCurrent)
	return n
}

func (e *streamReader) read1() uint8 {
	const n = 1
	e.readNIntoBuf(n)
	return e.buf[0]
}

func (e *streamReader) read2() uint16 {
	const n = 2
	e.readNIntoBuf(n)
	return e.byteOrder.Uint16(e.buf[:n])
}

func (e *streamReader) read2s() int16 {
	return int16(e.read2())
}

func (e *streamReader) read4() uint32 {
	const n = 4
	e.readNIntoBuf(n)
	return e.byteOrder.Uint32(e.buf[:n])
}

func (e *streamReader) read4s() int32 {
	return int32(e.read4())
}

// readBytes reads n bytes into a fresh slice that the caller may retain.
// The result is non-nil even for n == 0: a zero-length field that was read
// is distinct from one that was never present.
func (e *streamReader) readBytes(n int) []byte {
	b := make([]byte, n)
	if _, err := io.ReadFull(e.r, b); err != nil {
		e.stop(err)
	}
	return b
}

// readBytesVolatile reads a slice of bytes from the stream
// which is not guaranteed to be valid after the next read.
func (e *streamReader) readBytesVolatile(n int) []byte {
	e.readNIntoBuf(n)
	return e.buf[:n]
}

func (e *streamReader) readNIntoBuf(n int) {
	e.allocateBuf(n)
	n2, err := io.ReadFull(e.r, e.buf[:n])
	if err != nil {
		e.stop(err)
	}
	if n != n2 {
		e.stop(errShortRead)
	}
}

func (e *streamReader) seek(pos int64) {
	_, err := e.r.Seek(pos, io.SeekStart)
	if err != nil {
		e.stop(err)
	}
}

func (e *streamReader) skip(n int64) {
	if _, err := e.r.Seek(n, io.SeekCurrent); err != nil {
		e.stop(err)
	}
}

func (e *streamReader) stop(err error) {
	if err == io.EOF {
		// The layout is fully self-describing, so running out of bytes
		// mid-structure always means a truncated document.
		err = io.ErrUnexpectedEOF
	}
	if err != nil {
		e.readErr = err
	}
	panic(errStop)
}

// streamWriter is the mirror of streamReader for the encode path.
// It counts bytes written so block sizes can be cross-checked.
type streamWriter struct {
	w         io.Writer
	byteOrder binary.ByteOrder

	buf [8]byte

	n        int64
	writeErr error
}

func newStreamWriter(w io.Writer) *streamWriter {
	return &streamWriter{
		w:         w,
		byteOrder: binary.BigEndian,
	}
}

func (e *streamWriter) pos() int64 {
	return e.n
}

func (e *streamWriter) write1(v uint8) {
	e.buf[0] = v
	e.writeBytes(e.buf[:1])
}

func (e *streamWriter) write2(v uint16) {
	e.byteOrder.PutUint16(e.buf[:2], v)
	e.writeBytes(e.buf[:2])
}

func (e *streamWriter) write2s(v int16) {
	e.write2(uint16(v))
}

func (e *streamWriter) write4(v uint32) {
	e.byteOrder.PutUint32(e.buf[:4], v)
	e.writeBytes(e.buf[:4])
}

func (e *streamWriter) write4s(v int32) {
	e.write4(uint32(v))
}

func (e *streamWriter) writeBytes(b []byte) {
	n, err := e.w.Write(b)
	e.n += int64(n)
	if err == nil && n != len(b) {
		err = io.ErrShortWrite
	}
	if err != nil {
		e.stop(err)
	}
}

func (e *streamWriter) writeString(s string) {
	e.writeBytes([]byte(s))
}

var zeros [4]byte

func (e *streamWriter) writeZeros(n int) {
	e.writeBytes(zeros[:n])
}

func (e *streamWriter) stop(err error) {
	if err != nil {
		e.writeErr = err
	}
	panic(errStop)
}

// pad2 rounds n up to the next even value, pad4 to the next multiple of 4.
// Every variable-length block in the format is padded with one of the two.
func pad2(n uint32) uint32 {
	return (n + 1) &^ 1
}

func pad4(n uint32) uint32 {
	return (n + 3) &^ 3
}
