// Copyright (c) 2019 The Decred developers
// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"encoding/binary"
	"fmt"
)

// opcodeArrayRef is used to break initialization cycles.
var opcodeArrayRef *[256]opcode

func init() {
	opcodeArrayRef = &opcodeArray
}

// ScriptTokenizer provides a facility for easily and efficiently tokenizing
// transaction scripts without creating allocations.  Each successive opcode is
// parsed with the Next function, which returns false when iteration is
// complete, either due to successfully tokenizing the entire script or
// encountering a parse error.  In the case of failure, the Err function may be
// used to obtain the specific parse error.
//
// Upon successfully parsing an opcode, the opcode and data associated with it
// may be obtained via the Opcode and Data functions, respectively.
//
// The ByteIndex function may be used to obtain the tokenizer's current offset
// into the raw script.
type ScriptTokenizer struct {
	script []byte
	offset int32
	op     *opcode
	data   []byte
	err    error
}

// Done returns true when either all opcodes have been exhausted or a parse
// failure was encountered and therefore the state has an associated error.
func (t *ScriptTokenizer) Done() bool {
	return t.err != nil || t.offset >= int32(len(t.script))
}

// pushLength decodes the little-endian length prefix of an OP_PUSHDATA{1,2,4}
// opcode from the start of prefix.  The caller guarantees prefix holds at least
// size bytes.
func pushLength(prefix []byte, size int) int64 {
	switch size {
	case 1:
		return int64(prefix[0])
	case 2:
		return int64(binary.LittleEndian.Uint16(prefix))
	default:
		return int64(binary.LittleEndian.Uint32(prefix))
	}
}

// fail records a malformed push at the current offset and stops iteration.
func (t *ScriptTokenizer) fail(format string, args ...interface{}) bool {
	t.err = scriptError(ErrMalformedPush, fmt.Sprintf(format, args...))
	return false
}

// Next attempts to parse the next opcode and returns whether or not it was
// successful.  It will not be successful if invoked when already at the end of
// the script, a parse failure is encountered, or an associated error already
// exists due to a previous parse failure.
//
// In the case of a true return, the parsed opcode and data can be obtained with
// the associated functions and the offset into the script will either point to
// the next opcode or the end of the script if the final opcode was parsed.
//
// In the case of a false return, the parsed opcode and data will be the last
// successfully parsed values (if any) and the offset into the script will
// point to the failing opcode.
func (t *ScriptTokenizer) Next() bool {
	if t.Done() {
		return false
	}

	op := &opcodeArrayRef[t.script[t.offset]]
	rest := t.script[t.offset:]
	switch {
	// Opcodes without additional data.  OP_0, OP_1NEGATE and OP_[1-16]
	// represent the data themselves.
	case op.length == 1:
		t.offset++
		t.op, t.data = op, nil
		return true

	// Fixed size pushes, OP_DATA_[1-75].
	case op.length > 1:
		if len(rest) < op.length {
			return t.fail("opcode %s requires %d bytes, but script "+
				"only has %d remaining", op.name, op.length,
				len(rest))
		}
		t.offset += int32(op.length)
		t.op, t.data = op, rest[1:op.length]
		return true
	}

	// Length prefixed pushes, OP_PUSHDATA{1,2,4}.
	prefixLen := -op.length
	rest = rest[1:]
	if len(rest) < prefixLen {
		return t.fail("opcode %s requires %d bytes, but script only "+
			"has %d remaining", op.name, prefixLen, len(rest))
	}
	dataLen := pushLength(rest, prefixLen)
	rest = rest[prefixLen:]
	if dataLen > int64(len(rest)) {
		return t.fail("opcode %s pushes %d bytes, but script only has "+
			"%d remaining", op.name, dataLen, len(rest))
	}

	t.offset += 1 + int32(prefixLen) + int32(dataLen)
	t.op, t.data = op, rest[:dataLen]
	return true
}

// Script returns the full script associated with the tokenizer.
func (t *ScriptTokenizer) Script() []byte {
	return t.script
}

// ByteIndex returns the current offset into the full script that will be parsed
// next and therefore also implies everything before it has already been parsed.
func (t *ScriptTokenizer) ByteIndex() int32 {
	return t.offset
}

// Opcode returns the current opcode associated with the tokenizer.
func (t *ScriptTokenizer) Opcode() byte {
	return t.op.value
}

// Data returns the data associated with the most recently successfully parsed
// opcode.
func (t *ScriptTokenizer) Data() []byte {
	return t.data
}

// Err returns any errors currently associated with the tokenizer.  This will
// only be non-nil in the case a parsing error was encountered.
func (t *ScriptTokenizer) Err() error {
	return t.err
}

// MakeScriptTokenizer returns a new instance of a script tokenizer positioned
// at the start of the provided script.
//
// See the docs for ScriptTokenizer for more details.
func MakeScriptTokenizer(script []byte) ScriptTokenizer {
	return ScriptTokenizer{script: script}
}
