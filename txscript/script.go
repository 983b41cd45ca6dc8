// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2015-2019 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"bytes"
	"encoding/binary"
	"strings"
)

// These are the constants specified for maximums in individual scripts.
const (
	MaxOpsPerScript       = 201 // Max number of non-push operations.
	MaxPubKeysPerMultiSig = 20  // Multisig can't have more sigs than this.
	MaxScriptElementSize  = 520 // Max bytes pushable to the stack.
)

// isSmallInt returns whether or not the opcode is considered a small integer,
// which is an OP_0, or OP_1 through OP_16.
func isSmallInt(op byte) bool {
	return op == OP_0 || (op >= OP_1 && op <= OP_16)
}

// asSmallInt returns the passed opcode, which must be true according to
// isSmallInt(), as an integer.
func asSmallInt(op byte) int {
	if op == OP_0 {
		return 0
	}

	return int(op - (OP_1 - 1))
}

// IsPushOnlyScript returns whether or not the passed script only pushes data
// according to the consensus definition of pushing data.  OP_RESERVED counts as
// a push since its value lies below OP_16.
//
// WARNING: This function always treats the passed script as valid for
// malformed scripts to ensure they are rejected by the caller.  That is to
// say a script that fails to parse is not push only.
func IsPushOnlyScript(script []byte) bool {
	tokenizer := MakeScriptTokenizer(script)
	for tokenizer.Next() {
		// All opcodes up to OP_16 are data push instructions.
		if tokenizer.Opcode() > OP_16 {
			return false
		}
	}
	return tokenizer.Err() == nil
}

// isScriptHashScript returns whether or not the passed script is a standard
// pay-to-script-hash script of the exact form
//
//	OP_HASH160 <20-byte hash> OP_EQUAL
func isScriptHashScript(script []byte) bool {
	return len(script) == 23 &&
		script[0] == OP_HASH160 &&
		script[1] == OP_DATA_20 &&
		script[22] == OP_EQUAL
}

// IsPayToScriptHash returns true if the script is in the standard
// pay-to-script-hash (P2SH) format, false otherwise.
func IsPayToScriptHash(script []byte) bool {
	return isScriptHashScript(script)
}

// DisasmString formats a disassembled script for one line printing.  When the
// script fails to parse, the returned string will contain the disassembled
// script up to the point the failure occurred along with the string '[error]'
// appended.  In addition, the reason the script failed to parse is returned
// if the caller wants more information about the failure.
func DisasmString(script []byte) (string, error) {
	var disbuf strings.Builder
	tokenizer := MakeScriptTokenizer(script)
	if tokenizer.Next() {
		disasmOpcode(&disbuf, tokenizer.op, tokenizer.Data(), true)
	}
	for tokenizer.Next() {
		disbuf.WriteByte(' ')
		disasmOpcode(&disbuf, tokenizer.op, tokenizer.Data(), true)
	}
	if tokenizer.Err() != nil {
		if tokenizer.ByteIndex() != 0 {
			disbuf.WriteByte(' ')
		}
		disbuf.WriteString("[error]")
	}
	return disbuf.String(), tokenizer.Err()
}

// canonicalDataPush returns the serialization of a push of data using the
// smallest push opcode that is not a small integer opcode.  An empty push
// serializes as OP_0.
func canonicalDataPush(data []byte) []byte {
	dataLen := len(data)
	var push []byte
	switch {
	case dataLen < OP_PUSHDATA1:
		push = make([]byte, 0, 1+dataLen)
		push = append(push, byte(dataLen))
	case dataLen <= 0xff:
		push = make([]byte, 0, 2+dataLen)
		push = append(push, OP_PUSHDATA1, byte(dataLen))
	case dataLen <= 0xffff:
		push = make([]byte, 3, 3+dataLen)
		push[0] = OP_PUSHDATA2
		binary.LittleEndian.PutUint16(push[1:], uint16(dataLen))
	default:
		push = make([]byte, 5, 5+dataLen)
		push[0] = OP_PUSHDATA4
		binary.LittleEndian.PutUint32(push[1:], uint32(dataLen))
	}
	return append(push, data...)
}

// removeOpcodeByData will return the script minus any canonical pushes of the
// passed data.
//
// Matching happens at opcode boundaries only and consecutive matches are all
// removed.  The script is advanced one opcode at a time after the matches, and
// once an opcode fails to parse the remainder of the script is kept verbatim.
// The original script is returned unchanged when nothing matched.
func removeOpcodeByData(script []byte, data []byte) []byte {
	pattern := canonicalDataPush(data)

	var result []byte
	found := false
	pc, keepFrom := 0, 0
	for pc < len(script) {
		// Drop every consecutive match at this opcode boundary.
		for bytes.HasPrefix(script[pc:], pattern) {
			if !found {
				result = make([]byte, 0, len(script))
				found = true
			}
			result = append(result, script[keepFrom:pc]...)
			pc += len(pattern)
			keepFrom = pc
		}
		if pc >= len(script) {
			break
		}

		// Advance to the next opcode boundary.
		tokenizer := MakeScriptTokenizer(script[pc:])
		if !tokenizer.Next() {
			break
		}
		pc += int(tokenizer.ByteIndex())
	}

	if !found {
		return script
	}
	return append(result, script[keepFrom:]...)
}

// removeCodeSeparators returns the script with every OP_CODESEPARATOR opcode
// removed.  Bytes following an opcode that fails to parse are kept verbatim.
func removeCodeSeparators(script []byte) []byte {
	var result []byte
	found := false
	tokenizer := MakeScriptTokenizer(script)
	prevOffset := int32(0)
	for tokenizer.Next() {
		if tokenizer.Opcode() == OP_CODESEPARATOR {
			if !found {
				result = make([]byte, 0, len(script))
				result = append(result, script[:prevOffset]...)
				found = true
			}
		} else if found {
			result = append(result, script[prevOffset:tokenizer.ByteIndex()]...)
		}
		prevOffset = tokenizer.ByteIndex()
	}

	if !found {
		return script
	}
	return append(result, script[prevOffset:]...)
}

// PushedData returns an array of byte slices containing any pushed data found
// in the passed script.  This includes OP_0, but not OP_1 - OP_16.
func PushedData(script []byte) ([][]byte, error) {
	var data [][]byte
	tokenizer := MakeScriptTokenizer(script)
	for tokenizer.Next() {
		if tokenizer.Data() != nil {
			data = append(data, tokenizer.Data())
		} else if tokenizer.Opcode() == OP_0 {
			data = append(data, nil)
		}
	}
	if err := tokenizer.Err(); err != nil {
		return nil, err
	}
	return data, nil
}
