// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"bytes"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/require"
)

// stacksEqual returns whether the two stacks hold the same items, treating nil
// and empty items as equal.
func stacksEqual(a, b [][]byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !bytes.Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

// repeatOp returns a script of n copies of op prefixed by prefix and suffixed
// by suffix.
func repeatOp(prefix string, op byte, n int, suffix string) []byte {
	script := mustParseShortForm(prefix)
	script = append(script, bytes.Repeat([]byte{op}, n)...)
	return append(script, mustParseShortForm(suffix)...)
}

// TestEvalScript exercises opcode execution, conditionals and the execution
// limits of the engine.
func TestEvalScript(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		script []byte
		flags  ScriptFlags
		err    error
		stack  [][]byte
	}{
		{
			name:   "empty script",
			script: nil,
			stack:  nil,
		},
		{
			name:   "arithmetic",
			script: mustParseShortForm("1 2 ADD 3 EQUAL"),
			stack:  [][]byte{{1}},
		},
		{
			name:   "negative numbers",
			script: mustParseShortForm("5 NEGATE -5 NUMEQUAL -5 ABS 5 NUMEQUAL"),
			stack:  [][]byte{{1}, {1}},
		},
		{
			name:   "within",
			script: mustParseShortForm("3 2 4 WITHIN 4 2 4 WITHIN"),
			stack:  [][]byte{{1}, nil},
		},
		{
			name:   "if true",
			script: mustParseShortForm("1 IF 2 ELSE 3 ENDIF"),
			stack:  [][]byte{{2}},
		},
		{
			name:   "if false",
			script: mustParseShortForm("0 IF 2 ELSE 3 ENDIF"),
			stack:  [][]byte{{3}},
		},
		{
			name:   "notif",
			script: mustParseShortForm("0 NOTIF 2 ENDIF"),
			stack:  [][]byte{{2}},
		},
		{
			name:   "multiple else",
			script: mustParseShortForm("1 IF 2 ELSE 3 ELSE 4 ENDIF"),
			stack:  [][]byte{{2}, {4}},
		},
		{
			name:   "nested unexecuted",
			script: mustParseShortForm("0 IF 0 IF 2 ELSE 3 ENDIF ENDIF"),
			stack:  nil,
		},
		{
			name:   "unexecuted branch does not pop",
			script: mustParseShortForm("0 IF IF ENDIF ENDIF"),
			stack:  nil,
		},
		{
			name:   "disabled opcode in unexecuted branch",
			script: mustParseShortForm("0 IF CAT ENDIF"),
			err:    ErrDisabledOpcode,
		},
		{
			name:   "verif in unexecuted branch",
			script: mustParseShortForm("0 IF VERIF ENDIF"),
			err:    ErrReservedOpcode,
		},
		{
			name:   "reserved in unexecuted branch",
			script: mustParseShortForm("0 IF RESERVED ENDIF"),
			stack:  nil,
		},
		{
			name:   "reserved executed",
			script: mustParseShortForm("RESERVED"),
			err:    ErrReservedOpcode,
		},
		{
			name:   "unknown opcode",
			script: []byte{OP_UNKNOWN186},
			err:    ErrReservedOpcode,
		},
		{
			name:   "if without condition",
			script: mustParseShortForm("IF ENDIF"),
			err:    ErrInvalidStackOperation,
		},
		{
			name:   "unterminated if",
			script: mustParseShortForm("1 IF"),
			err:    ErrUnbalancedConditional,
		},
		{
			name:   "endif without if",
			script: mustParseShortForm("ENDIF"),
			err:    ErrUnbalancedConditional,
		},
		{
			name:   "else without if",
			script: mustParseShortForm("ELSE"),
			err:    ErrUnbalancedConditional,
		},
		{
			name:   "verify",
			script: mustParseShortForm("1 VERIFY"),
			stack:  nil,
		},
		{
			name:   "verify false",
			script: mustParseShortForm("0 VERIFY"),
			err:    ErrVerify,
		},
		{
			name:   "equalverify",
			script: mustParseShortForm("1 2 EQUALVERIFY"),
			err:    ErrEqualVerify,
		},
		{
			name:   "numequalverify",
			script: mustParseShortForm("1 2 NUMEQUALVERIFY"),
			err:    ErrNumEqualVerify,
		},
		{
			name:   "return",
			script: mustParseShortForm("1 RETURN"),
			err:    ErrEarlyReturn,
		},
		{
			name:   "return in unexecuted branch",
			script: mustParseShortForm("0 IF RETURN ENDIF 1"),
			stack:  [][]byte{{1}},
		},
		{
			name:   "stack underflow",
			script: mustParseShortForm("1 ADD"),
			err:    ErrInvalidStackOperation,
		},
		{
			name:   "alt stack",
			script: mustParseShortForm("1 2 TOALTSTACK 3 FROMALTSTACK"),
			stack:  [][]byte{{1}, {3}, {2}},
		},
		{
			name:   "empty alt stack",
			script: mustParseShortForm("FROMALTSTACK"),
			err:    ErrInvalidStackOperation,
		},
		{
			name:   "pick",
			script: mustParseShortForm("1 2 3 2 PICK"),
			stack:  [][]byte{{1}, {2}, {3}, {1}},
		},
		{
			name:   "roll",
			script: mustParseShortForm("1 2 3 2 ROLL"),
			stack:  [][]byte{{2}, {3}, {1}},
		},
		{
			name:   "size",
			script: mustParseShortForm("'abc' SIZE"),
			stack:  [][]byte{[]byte("abc"), {3}},
		},
		{
			name:   "depth",
			script: mustParseShortForm("7 7 DEPTH"),
			stack:  [][]byte{{7}, {7}, {2}},
		},
		{
			name:   "sha256",
			script: mustParseShortForm("0 SHA256 DATA_32 0xe3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855 EQUAL"),
			stack:  [][]byte{{1}},
		},
		{
			name:   "sha1",
			script: mustParseShortForm("0 SHA1 DATA_20 0xda39a3ee5e6b4b0d3255bfef95601890afd80709 EQUAL"),
			stack:  [][]byte{{1}},
		},
		{
			name:   "ripemd160",
			script: mustParseShortForm("0 RIPEMD160 DATA_20 0x9c1185a5c5e9fc54612808977ee8f548b2258d31 EQUAL"),
			stack:  [][]byte{{1}},
		},
		{
			name:   "hash160",
			script: mustParseShortForm("0 HASH160 DATA_20 0xb472a266d0bd89c13706a4132ccfb16f7c3b9fcb EQUAL"),
			stack:  [][]byte{{1}},
		},
		{
			name:   "hash256",
			script: mustParseShortForm("0 HASH256 DATA_32 0x5df6e0e2761359d30a8275058e299fcc0381534545f55cf43e41983f5d4c9456 EQUAL"),
			stack:  [][]byte{{1}},
		},
		{
			name:   "number too big",
			script: mustParseShortForm("DATA_5 0x0102030405 1ADD"),
			err:    ErrNumberTooBig,
		},
		{
			name:   "non-minimal number allowed",
			script: mustParseShortForm("DATA_2 0x0100 1ADD"),
			stack:  [][]byte{{2}},
		},
		{
			name:   "non-minimal number",
			script: mustParseShortForm("DATA_2 0x0100 1ADD"),
			flags:  ScriptVerifyMinimalData,
			err:    ErrMinimalData,
		},
		{
			name:   "non-minimal push allowed",
			script: mustParseShortForm("DATA_1 0x05"),
			stack:  [][]byte{{5}},
		},
		{
			name:   "non-minimal push",
			script: mustParseShortForm("DATA_1 0x05"),
			flags:  ScriptVerifyMinimalData,
			err:    ErrMinimalData,
		},
		{
			name:   "non-minimal push in unexecuted branch",
			script: mustParseShortForm("0 IF DATA_1 0x05 ENDIF"),
			flags:  ScriptVerifyMinimalData,
			stack:  nil,
		},
		{
			name:   "non-minimal pushdata1",
			script: mustParseShortForm("PUSHDATA1 0x01 0x07"),
			flags:  ScriptVerifyMinimalData,
			err:    ErrMinimalData,
		},
		{
			name:   "element too big",
			script: mustParseShortForm("PUSHDATA2 0x0902 0x01{521}"),
			err:    ErrElementTooBig,
		},
		{
			name:   "largest element",
			script: mustParseShortForm("PUSHDATA2 0x0802 0x01{520} SIZE 520 EQUAL NIP"),
			stack:  [][]byte{{1}},
		},
		{
			name:   "malformed push",
			script: mustParseShortForm("1 DATA_2 0x01"),
			err:    ErrMalformedPush,
			stack:  [][]byte{{1}},
		},
		{
			name:   "max operations",
			script: repeatOp("", OP_NOP, MaxOpsPerScript, ""),
			stack:  nil,
		},
		{
			name:   "too many operations",
			script: repeatOp("", OP_NOP, MaxOpsPerScript+1, ""),
			err:    ErrTooManyOperations,
		},
		{
			name:   "pushes are not operations",
			script: repeatOp("", OP_1, 500, "DROP"),
			stack:  bytes.Split(bytes.Repeat([]byte{1}, 499), nil),
		},
		{
			name:   "unexecuted operations count",
			script: repeatOp("0 IF", OP_NOP, MaxOpsPerScript, "ENDIF"),
			err:    ErrTooManyOperations,
		},
		{
			name:   "max stack size",
			script: repeatOp("", OP_1, MaxStackSize, ""),
			stack:  bytes.Split(bytes.Repeat([]byte{1}, MaxStackSize), nil),
		},
		{
			name:   "stack overflow",
			script: repeatOp("", OP_1, MaxStackSize+1, ""),
			err:    ErrStackOverflow,
		},
		{
			name:   "alt stack counts toward stack size",
			script: repeatOp("", OP_1, MaxStackSize, "TOALTSTACK DUP"),
			err:    ErrStackOverflow,
		},
		{
			name:   "script too big",
			script: bytes.Repeat([]byte{OP_NOP}, MaxScriptSize+1),
			err:    ErrScriptTooBig,
		},
		{
			name:   "upgradable nop",
			script: mustParseShortForm("NOP1 NOP10 1"),
			stack:  [][]byte{{1}},
		},
		{
			name:   "discouraged upgradable nop",
			script: mustParseShortForm("NOP1"),
			flags:  ScriptDiscourageUpgradableNops,
			err:    ErrDiscourageUpgradableNOPs,
		},
		{
			name:   "discouraged nop in unexecuted branch",
			script: mustParseShortForm("0 IF NOP10 ENDIF"),
			flags:  ScriptDiscourageUpgradableNops,
			stack:  nil,
		},
		{
			name:   "plain nop is never discouraged",
			script: mustParseShortForm("NOP"),
			flags:  ScriptDiscourageUpgradableNops,
			stack:  nil,
		},
		{
			name:   "checklocktimeverify as nop",
			script: mustParseShortForm("0 CHECKLOCKTIMEVERIFY"),
			stack:  [][]byte{nil},
		},
		{
			name:   "checklocktimeverify discouraged",
			script: mustParseShortForm("0 NOP2"),
			flags:  ScriptDiscourageUpgradableNops,
			err:    ErrDiscourageUpgradableNOPs,
		},
		{
			name:   "checklocktimeverify empty stack",
			script: mustParseShortForm("CHECKLOCKTIMEVERIFY"),
			flags:  ScriptVerifyCheckLockTimeVerify,
			err:    ErrInvalidStackOperation,
		},
		{
			name:   "checklocktimeverify negative",
			script: mustParseShortForm("-1 CHECKLOCKTIMEVERIFY"),
			flags:  ScriptVerifyCheckLockTimeVerify,
			err:    ErrNegativeLockTime,
		},
		{
			name:   "checklocktimeverify without transaction",
			script: mustParseShortForm("1 CHECKLOCKTIMEVERIFY"),
			flags:  ScriptVerifyCheckLockTimeVerify,
			err:    ErrUnsatisfiedLockTime,
		},
		{
			name:   "checklocktimeverify five byte lock time",
			script: mustParseShortForm("DATA_5 0x0000000001 CHECKLOCKTIMEVERIFY"),
			flags:  ScriptVerifyCheckLockTimeVerify,
			err:    ErrUnsatisfiedLockTime,
		},
		{
			name:   "checklocktimeverify six byte lock time",
			script: mustParseShortForm("DATA_6 0x000000000001 CHECKLOCKTIMEVERIFY"),
			flags:  ScriptVerifyCheckLockTimeVerify,
			err:    ErrNumberTooBig,
		},
		{
			name:   "checksig without transaction",
			script: mustParseShortForm("0 0 CHECKSIG"),
			stack:  [][]byte{nil},
		},
		{
			name:   "checksig strict pubkey",
			script: mustParseShortForm("0 0 CHECKSIG"),
			flags:  ScriptVerifyStrictEncoding,
			err:    ErrPubKeyType,
		},
		{
			name:   "checksigverify without transaction",
			script: mustParseShortForm("0 0 CHECKSIGVERIFY"),
			err:    ErrCheckSigVerify,
		},
		{
			name:   "checksig short signature",
			script: mustParseShortForm("DATA_1 0x07 DATA_33 0x02{33} CHECKSIG"),
			flags:  ScriptVerifyStrictEncoding,
			err:    ErrSigTooShort,
		},
		{
			name:   "zero of zero multisig",
			script: mustParseShortForm("0 0 0 CHECKMULTISIG"),
			stack:  [][]byte{{1}},
		},
		{
			name:   "multisig all signatures fail",
			script: mustParseShortForm("0 0 1 0 1 CHECKMULTISIG"),
			stack:  [][]byte{nil},
		},
		{
			name:   "multisig verify fails",
			script: mustParseShortForm("0 0 1 0 1 CHECKMULTISIGVERIFY"),
			err:    ErrCheckMultiSigVerify,
		},
		{
			name:   "multisig non-null dummy allowed",
			script: mustParseShortForm("1 0 0 CHECKMULTISIG"),
			stack:  [][]byte{{1}},
		},
		{
			name:   "multisig non-null dummy",
			script: mustParseShortForm("1 0 0 CHECKMULTISIG"),
			flags:  ScriptStrictMultiSig,
			err:    ErrSigNullDummy,
		},
		{
			name:   "multisig missing dummy",
			script: mustParseShortForm("0 0 CHECKMULTISIG"),
			err:    ErrInvalidStackOperation,
		},
		{
			name:   "multisig too many pubkeys",
			script: mustParseShortForm("0 0 21 CHECKMULTISIG"),
			err:    ErrInvalidPubKeyCount,
		},
		{
			name:   "multisig negative pubkeys",
			script: mustParseShortForm("0 0 -1 CHECKMULTISIG"),
			err:    ErrInvalidPubKeyCount,
		},
		{
			name:   "multisig more signatures than pubkeys",
			script: mustParseShortForm("0 0 0 2 0 1 CHECKMULTISIG"),
			err:    ErrInvalidSignatureCount,
		},
		{
			name: "multisig pubkeys count as operations",
			script: append(repeatOp("0 0", OP_0, 20, "20 CHECKMULTISIG"),
				bytes.Repeat([]byte{OP_NOP}, MaxOpsPerScript-21)...),
			stack: [][]byte{{1}},
		},
		{
			name: "multisig pubkeys exceed operations",
			script: append(repeatOp("0 0", OP_0, 20, "20 CHECKMULTISIG"),
				bytes.Repeat([]byte{OP_NOP}, MaxOpsPerScript-20)...),
			err: ErrTooManyOperations,
		},
	}

	for _, test := range tests {
		stack, err := EvalScript(nil, test.script, test.flags, nil, 0)
		if test.err != nil {
			require.ErrorIs(t, err, test.err, test.name)
			if test.stack != nil && !stacksEqual(stack, test.stack) {
				t.Errorf("%s: unexpected stack\n%s", test.name,
					spew.Sdump(stack))
			}
			continue
		}
		require.NoError(t, err, test.name)
		if !stacksEqual(stack, test.stack) {
			t.Errorf("%s: unexpected stack: got\n%swant\n%s", test.name,
				spew.Sdump(stack), spew.Sdump(test.stack))
		}
	}
}

// TestEvalScriptInitialStack ensures scripts run on top of the passed stack
// and that the passed stack is not modified.
func TestEvalScriptInitialStack(t *testing.T) {
	t.Parallel()

	initial := [][]byte{{1}, {2}}
	stack, err := EvalScript(initial, mustParseShortForm("ADD"), 0, nil, 0)
	require.NoError(t, err)
	require.True(t, stacksEqual(stack, [][]byte{{3}}))
	require.Equal(t, [][]byte{{1}, {2}}, initial)
}

// panicChecker is a SignatureChecker that panics on every signature check.
type panicChecker struct {
	BaseSignatureChecker
}

func (panicChecker) CheckSig([]byte, []byte, []byte, uint32) bool {
	panic("checker failure")
}

// TestEvalScriptPanic ensures a panic while executing an opcode surfaces as an
// internal error rather than crashing the caller.
func TestEvalScriptPanic(t *testing.T) {
	t.Parallel()

	_, err := EvalScript(nil, mustParseShortForm("0 0 CHECKSIG"), 0,
		panicChecker{}, 0)
	require.ErrorIs(t, err, ErrInternal)
}

// recordingChecker is a SignatureChecker that records the script code and
// branch id of every signature check and accepts signatures equal to want.
type recordingChecker struct {
	BaseSignatureChecker
	want        []byte
	scriptCodes [][]byte
	branchIDs   []uint32
	lockTimes   []int64
}

func (c *recordingChecker) CheckSig(sig, pubKey, scriptCode []byte,
	branchID uint32) bool {

	c.scriptCodes = append(c.scriptCodes, scriptCode)
	c.branchIDs = append(c.branchIDs, branchID)
	return bytes.Equal(sig, c.want)
}

func (c *recordingChecker) CheckLockTime(lockTime int64) bool {
	c.lockTimes = append(c.lockTimes, lockTime)
	return true
}

// TestScriptCode ensures the script code handed to the checker starts after
// the last executed OP_CODESEPARATOR and has the signatures removed.
func TestScriptCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		script      []byte
		scriptCodes [][]byte
	}{
		{
			name:        "whole script without signature",
			script:      mustParseShortForm("'sig' 'pk' CHECKSIG"),
			scriptCodes: [][]byte{mustParseShortForm("'pk' CHECKSIG")},
		},
		{
			name:        "after code separator",
			script:      mustParseShortForm("'sig' 'pk' CODESEPARATOR CHECKSIG"),
			scriptCodes: [][]byte{{OP_CHECKSIG}},
		},
		{
			name: "last code separator wins",
			script: mustParseShortForm("'sig' 'pk' CODESEPARATOR 1 " +
				"CODESEPARATOR DROP CHECKSIG"),
			scriptCodes: [][]byte{{OP_DROP, OP_CHECKSIG}},
		},
		{
			name: "unexecuted code separator",
			script: mustParseShortForm("'sig' 'pk' 0 IF CODESEPARATOR " +
				"ENDIF CHECKSIG"),
			scriptCodes: [][]byte{mustParseShortForm("'pk' 0 IF " +
				"CODESEPARATOR ENDIF CHECKSIG")},
		},
		{
			name: "multisig removes every signature first",
			script: mustParseShortForm("0 'sig' 'xyz' 2 'pk1' 'pk2' 2 " +
				"CHECKMULTISIG"),
			scriptCodes: [][]byte{
				mustParseShortForm("0 2 'pk1' 'pk2' 2 CHECKMULTISIG"),
			},
		},
	}

	for _, test := range tests {
		checker := &recordingChecker{}
		_, err := EvalScript(nil, test.script, 0, checker, 7)
		require.NoError(t, err, test.name)
		require.Equal(t, test.scriptCodes, checker.scriptCodes, test.name)
		for _, branchID := range checker.branchIDs {
			require.Equal(t, uint32(7), branchID, test.name)
		}
	}
}

// TestCheckMultiSigOrder ensures signatures are matched against public keys in
// order, so a signature for an earlier key cannot follow one for a later key.
func TestCheckMultiSigOrder(t *testing.T) {
	t.Parallel()

	// The checker accepts 'good', so with one signature the result only
	// depends on whether a matching key remains.
	checker := &recordingChecker{want: []byte("good")}
	stack, err := EvalScript(nil, mustParseShortForm("0 'good' 1 'pk1' "+
		"'pk2' 2 CHECKMULTISIG"), 0, checker, 0)
	require.NoError(t, err)
	require.True(t, stacksEqual(stack, [][]byte{{1}}))
	require.Len(t, checker.scriptCodes, 1)

	// Two signatures over two keys fail as soon as one key is rejected.
	checker = &recordingChecker{want: []byte("good")}
	stack, err = EvalScript(nil, mustParseShortForm("0 'good' 'bad' 2 "+
		"'pk1' 'pk2' 2 CHECKMULTISIG"), 0, checker, 0)
	require.NoError(t, err)
	require.True(t, stacksEqual(stack, [][]byte{nil}))
	require.Len(t, checker.scriptCodes, 1)
}

// TestCheckLockTimeVerifyChecker ensures the lock time is handed to the checker
// and left on the stack.
func TestCheckLockTimeVerifyChecker(t *testing.T) {
	t.Parallel()

	checker := &recordingChecker{}
	stack, err := EvalScript(nil, mustParseShortForm("DATA_5 0xffffffff00 "+
		"CHECKLOCKTIMEVERIFY"), ScriptVerifyCheckLockTimeVerify, checker, 0)
	require.NoError(t, err)
	require.Equal(t, []int64{0xffffffff}, checker.lockTimes)
	require.True(t, stacksEqual(stack,
		[][]byte{{0xff, 0xff, 0xff, 0xff, 0x00}}))
}

// TestEngineStep ensures stepping through a script, disassembling it and
// checking the final state behave as expected.
func TestEngineStep(t *testing.T) {
	t.Parallel()

	vm, err := NewEngine(nil, mustParseShortForm("1 DATA_2 0x0102 DROP"), 0,
		nil, 0)
	require.NoError(t, err)

	dis, err := vm.DisasmScript()
	require.NoError(t, err)
	require.Equal(t, "0000: OP_1\n0001: OP_DATA_2 0x0102\n0004: OP_DROP\n",
		dis)

	require.ErrorIs(t, vm.CheckErrorCondition(), ErrScriptUnfinished)

	wantPCs := []string{"0000: OP_1", "0001: OP_DATA_2 0x0102",
		"0004: OP_DROP"}
	for i, want := range wantPCs {
		pc, err := vm.DisasmPC()
		require.NoError(t, err)
		require.Equal(t, want, pc)

		done, err := vm.Step()
		require.NoError(t, err)
		require.Equal(t, i == len(wantPCs)-1, done)
	}

	_, err = vm.DisasmPC()
	require.ErrorIs(t, err, ErrInvalidProgramCounter)
	_, err = vm.Step()
	require.ErrorIs(t, err, ErrInvalidProgramCounter)

	require.NoError(t, vm.CheckErrorCondition())
	require.True(t, stacksEqual(vm.GetStack(), [][]byte{{1}}))
	require.Empty(t, vm.GetAltStack())
}

// TestCheckErrorCondition ensures the final stack is interpreted as expected.
func TestCheckErrorCondition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		script string
		err    error
	}{
		{"1", nil},
		{"", ErrEmptyStack},
		{"0", ErrEvalFalse},
		{"DATA_2 0x0080", ErrEvalFalse},
		{"DATA_2 0x0100", nil},
	}

	for _, test := range tests {
		vm, err := NewEngine(nil, mustParseShortForm(test.script), 0, nil, 0)
		require.NoError(t, err)
		require.NoError(t, vm.Execute(), test.script)

		err = vm.CheckErrorCondition()
		if test.err == nil {
			require.NoError(t, err, test.script)
			continue
		}
		require.ErrorIs(t, err, test.err, test.script)
	}
}
