// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/require"
)

// TestVarIntWire tests wire encode and decode for variable length integers.
func TestVarIntWire(t *testing.T) {
	tests := []struct {
		in  uint64 // Value to encode
		buf []byte // Wire encoding
	}{
		// Single byte
		{0, []byte{0x00}},
		// Max single byte
		{0xfc, []byte{0xfc}},
		// Min 2-byte
		{0xfd, []byte{0xfd, 0x0fd, 0x00}},
		// Max 2-byte
		{0xffff, []byte{0xfd, 0xff, 0xff}},
		// Min 4-byte
		{0x10000, []byte{0xfe, 0x00, 0x00, 0x01, 0x00}},
		// Max 4-byte
		{0xffffffff, []byte{0xfe, 0xff, 0xff, 0xff, 0xff}},
		// Min 8-byte
		{
			0x100000000,
			[]byte{0xff, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00},
		},
	}

	for i, test := range tests {
		var buf bytes.Buffer
		require.NoError(t, WriteVarInt(&buf, test.in), "test #%d", i)
		require.Equal(t, test.buf, buf.Bytes(), "test #%d:\n%s", i,
			spew.Sdump(buf.Bytes()))
		require.Equal(t, len(test.buf), VarIntSerializeSize(test.in))

		val, err := ReadVarInt(bytes.NewReader(test.buf))
		require.NoError(t, err, "test #%d", i)
		require.Equal(t, test.in, val, "test #%d", i)
	}
}

// TestVarIntNonCanonical ensures variable length integers that are not encoded
// canonically return the expected error.
func TestVarIntNonCanonical(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
	}{
		{"0 encoded with 3 bytes", []byte{0xfd, 0x00, 0x00}},
		{"max single-byte value encoded with 3 bytes", []byte{0xfd, 0xfc, 0x00}},
		{"0 encoded with 5 bytes", []byte{0xfe, 0x00, 0x00, 0x00, 0x00}},
		{"max three-byte value encoded with 5 bytes", []byte{0xfe, 0xff, 0xff, 0x00, 0x00}},
		{"0 encoded with 9 bytes", []byte{0xff, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}},
	}

	for _, test := range tests {
		_, err := ReadVarInt(bytes.NewReader(test.in))
		var msgErr *MessageError
		require.True(t, errors.As(err, &msgErr), "%s: got %v", test.name, err)
	}
}

// TestVarBytesOverflow ensures variable length byte arrays that claim more
// than the allowed size are rejected before allocation.
func TestVarBytesOverflow(t *testing.T) {
	buf := []byte{0xfe, 0x00, 0x00, 0x01, 0x00}
	_, err := ReadVarBytes(bytes.NewReader(buf), 100, "test payload")
	var msgErr *MessageError
	require.True(t, errors.As(err, &msgErr))

	_, err = ReadVarBytes(bytes.NewReader([]byte{0x05, 0x01}), 100, "short")
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
}
