// Copyright (c) 2013-2018 The btcsuite developers
// Copyright (c) 2015-2018 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"fmt"
	"strings"
)

// ScriptFlags is a bitmask defining additional operations or tests that will be
// done when executing a script pair.
type ScriptFlags uint32

const (
	// ScriptBip16 defines whether the bip16 threshold has passed and thus
	// pay-to-script hash transactions will be fully validated.
	ScriptBip16 ScriptFlags = 1 << iota

	// ScriptStrictMultiSig defines whether to verify the stack item
	// used by CHECKMULTISIG is zero length.
	ScriptStrictMultiSig

	// ScriptDiscourageUpgradableNops defines whether to verify that
	// NOP1 and NOP3 through NOP10 are reserved for future soft-fork
	// upgrades.  This flag must not be used for consensus critical code
	// nor applied to blocks as this flag is only for stricter standard
	// transaction checks.  This flag is only applied when the above
	// opcodes are executed.
	ScriptDiscourageUpgradableNops

	// ScriptVerifyCheckLockTimeVerify defines whether to verify that
	// a transaction output is spendable based on the locktime.
	// This is BIP0065.
	ScriptVerifyCheckLockTimeVerify

	// ScriptVerifyCleanStack defines that the stack must contain only
	// one stack element after evaluation and that the element must be
	// true if interpreted as a boolean.  This is rule 6 of BIP0062.
	// This flag should never be used without the ScriptBip16 flag.
	ScriptVerifyCleanStack

	// ScriptVerifyDERSignatures defines that signatures are required
	// to comply with the DER format.
	ScriptVerifyDERSignatures

	// ScriptVerifyLowS defines that signatures are required to comply with
	// the DER format and whose S value is <= order / 2.  This is rule 5
	// of BIP0062.
	ScriptVerifyLowS

	// ScriptVerifyMinimalData defines that signatures must use the smallest
	// push operator. This is both rules 3 and 4 of BIP0062.
	ScriptVerifyMinimalData

	// ScriptVerifySigPushOnly defines that signature scripts must contain
	// only pushed data.  This is rule 2 of BIP0062.
	ScriptVerifySigPushOnly

	// ScriptVerifyStrictEncoding defines that signature scripts and
	// public keys must follow the strict encoding requirements.
	ScriptVerifyStrictEncoding
)

const (
	// MaxStackSize is the maximum combined height of stack and alt stack
	// during execution.
	MaxStackSize = 1000

	// MaxScriptSize is the maximum allowed length of a raw script.
	MaxScriptSize = 10000
)

// Engine is the virtual machine that executes a single script against a data
// stack.  Signature and lock time checks are delegated to a SignatureChecker so
// the engine itself knows nothing about transactions.
type Engine struct {
	flags    ScriptFlags
	checker  SignatureChecker
	branchID uint32

	// script is the script being executed and tokenizer tracks the
	// position of the next opcode to execute within it.
	script    []byte
	tokenizer ScriptTokenizer

	// lastCodeSep is the byte offset just past the most recently executed
	// OP_CODESEPARATOR.
	lastCodeSep int

	dstack    stack // data stack
	astack    stack // alt stack
	condStack []int
	numOps    int
}

// hasFlag returns whether the script engine instance has the passed flag set.
func (vm *Engine) hasFlag(flag ScriptFlags) bool {
	return vm.flags&flag == flag
}

// isBranchExecuting returns whether or not the current conditional branch is
// actively executing.  For example, when the data stack has an OP_FALSE on it
// and an OP_IF is encountered, the branch is inactive until an OP_ELSE or
// OP_ENDIF is encountered.  It properly handles nested conditionals.
func (vm *Engine) isBranchExecuting() bool {
	if len(vm.condStack) == 0 {
		return true
	}
	return vm.condStack[len(vm.condStack)-1] == OpCondTrue
}

// isOpcodeDisabled returns whether or not the opcode is disabled and thus is
// always bad to see in the instruction stream (even if turned off by a
// conditional).
func isOpcodeDisabled(opcode byte) bool {
	switch opcode {
	case OP_CAT, OP_SUBSTR, OP_LEFT, OP_RIGHT, OP_INVERT, OP_AND, OP_OR,
		OP_XOR, OP_2MUL, OP_2DIV, OP_MUL, OP_DIV, OP_MOD, OP_LSHIFT,
		OP_RSHIFT:

		return true
	}
	return false
}

// isOpcodeAlwaysIllegal returns whether or not the opcode is always illegal
// when passed over by the program counter even if in a non-executed branch (it
// isn't a coincidence that they are conditionals).
func isOpcodeAlwaysIllegal(opcode byte) bool {
	return opcode == OP_VERIF || opcode == OP_VERNOTIF
}

// isOpcodeConditional returns whether or not the opcode is a conditional opcode
// which changes the conditional execution stack when executed.
func isOpcodeConditional(opcode byte) bool {
	switch opcode {
	case OP_IF, OP_NOTIF, OP_ELSE, OP_ENDIF:
		return true
	}
	return false
}

// checkMinimalDataPush returns whether or not the provided opcode is the
// smallest possible way to represent the given data.  For example, the value 15
// could be pushed with OP_DATA_1 15 (among other variations); however, OP_15 is
// a single opcode that represents the same value and is only a single byte
// versus two bytes.
func checkMinimalDataPush(op *opcode, data []byte) error {
	opcodeVal := op.value
	dataLen := len(data)
	switch {
	case dataLen == 0 && opcodeVal != OP_0:
		str := fmt.Sprintf("zero length data push is encoded with "+
			"opcode %s instead of OP_0", op.name)
		return scriptError(ErrMinimalData, str)
	case dataLen == 1 && data[0] >= 1 && data[0] <= 16:
		if opcodeVal != OP_1+data[0]-1 {
			// Should have used OP_1 .. OP_16
			str := fmt.Sprintf("data push of the value %d encoded "+
				"with opcode %s instead of OP_%d", data[0],
				op.name, data[0])
			return scriptError(ErrMinimalData, str)
		}
	case dataLen == 1 && data[0] == 0x81:
		if opcodeVal != OP_1NEGATE {
			str := fmt.Sprintf("data push of the value -1 encoded "+
				"with opcode %s instead of OP_1NEGATE", op.name)
			return scriptError(ErrMinimalData, str)
		}
	case dataLen <= 75:
		if int(opcodeVal) != dataLen {
			// Should have used a direct push
			str := fmt.Sprintf("data push of %d bytes encoded "+
				"with opcode %s instead of OP_DATA_%d", dataLen,
				op.name, dataLen)
			return scriptError(ErrMinimalData, str)
		}
	case dataLen <= 255:
		if opcodeVal != OP_PUSHDATA1 {
			str := fmt.Sprintf("data push of %d bytes encoded "+
				"with opcode %s instead of OP_PUSHDATA1",
				dataLen, op.name)
			return scriptError(ErrMinimalData, str)
		}
	case dataLen <= 65535:
		if opcodeVal != OP_PUSHDATA2 {
			str := fmt.Sprintf("data push of %d bytes encoded "+
				"with opcode %s instead of OP_PUSHDATA2",
				dataLen, op.name)
			return scriptError(ErrMinimalData, str)
		}
	}
	return nil
}

// executeOpcode performs execution on the passed opcode.  It takes into
// account whether or not it is hidden by conditionals, but some rules still
// must be tested in this case.
func (vm *Engine) executeOpcode(op *opcode, data []byte) error {
	if len(data) > MaxScriptElementSize {
		str := fmt.Sprintf("element size %d exceeds max allowed size %d",
			len(data), MaxScriptElementSize)
		return scriptError(ErrElementTooBig, str)
	}

	// Note that this includes OP_RESERVED which counts as a push operation.
	if op.value > OP_16 {
		vm.numOps++
		if vm.numOps > MaxOpsPerScript {
			str := fmt.Sprintf("exceeded max operation limit of %d",
				MaxOpsPerScript)
			return scriptError(ErrTooManyOperations, str)
		}
	}

	// Disabled and always illegal opcodes fail on program counter.
	if isOpcodeDisabled(op.value) {
		str := fmt.Sprintf("attempt to execute disabled opcode %s",
			op.name)
		return scriptError(ErrDisabledOpcode, str)
	}
	if isOpcodeAlwaysIllegal(op.value) {
		str := fmt.Sprintf("attempt to execute reserved opcode %s",
			op.name)
		return scriptError(ErrReservedOpcode, str)
	}

	// Nothing left to do when this is not a conditional opcode and it is
	// not in an executing branch.
	executing := vm.isBranchExecuting()
	if !executing && !isOpcodeConditional(op.value) {
		return nil
	}

	// Ensure all executed data push opcodes use the minimal encoding when
	// the minimal data verification flag is set.
	if executing && vm.dstack.verifyMinimalData &&
		op.value <= OP_PUSHDATA4 {

		if err := checkMinimalDataPush(op, data); err != nil {
			return err
		}
	}

	return op.opfunc(op, data, vm)
}

// subScript returns the script since the last OP_CODESEPARATOR.
func (vm *Engine) subScript() []byte {
	return vm.script[vm.lastCodeSep:]
}

// Done returns whether every opcode of the script has been executed or a parse
// failure stopped execution.
func (vm *Engine) Done() bool {
	return vm.tokenizer.Done()
}

// DisasmPC returns the string for the disassembly of the opcode that will be
// next to execute when Step is called.
func (vm *Engine) DisasmPC() (string, error) {
	if vm.tokenizer.Done() {
		str := fmt.Sprintf("program counter %d is past the end of the "+
			"script", vm.tokenizer.ByteIndex())
		return "", scriptError(ErrInvalidProgramCounter, str)
	}

	// Parse the next opcode with a copy so the engine state is untouched.
	tokenizer := vm.tokenizer
	offset := tokenizer.ByteIndex()
	if !tokenizer.Next() {
		return "", tokenizer.Err()
	}

	var buf strings.Builder
	fmt.Fprintf(&buf, "%04x: ", offset)
	disasmOpcode(&buf, tokenizer.op, tokenizer.Data(), false)
	return buf.String(), nil
}

// DisasmScript returns the disassembly of the full script executed by the
// engine, one opcode per line prefixed by its byte offset.  Whatever was
// disassembled is returned along with the parse error for malformed scripts.
func (vm *Engine) DisasmScript() (string, error) {
	var buf strings.Builder
	tokenizer := MakeScriptTokenizer(vm.script)
	for {
		offset := tokenizer.ByteIndex()
		if !tokenizer.Next() {
			break
		}
		fmt.Fprintf(&buf, "%04x: ", offset)
		disasmOpcode(&buf, tokenizer.op, tokenizer.Data(), false)
		buf.WriteByte('\n')
	}
	return buf.String(), tokenizer.Err()
}

// CheckErrorCondition returns nil if the running script has ended and was
// successful, leaving a true boolean on the stack.  An error otherwise,
// including if the script has not finished.
func (vm *Engine) CheckErrorCondition() error {
	if !vm.Done() {
		return scriptError(ErrScriptUnfinished,
			"error check when script unfinished")
	}
	return checkFinalStack(vm.GetStack())
}

// checkFinalStack returns nil when the top item of the stack, which is
// ordered bottom up, is true.
func checkFinalStack(stack [][]byte) error {
	if len(stack) == 0 {
		return scriptError(ErrEmptyStack,
			"stack empty at end of script execution")
	}
	if !asBool(stack[len(stack)-1]) {
		return scriptError(ErrEvalFalse,
			"false stack entry at end of script execution")
	}
	return nil
}

// Step will execute the next instruction and move the program counter to the
// next opcode in the script.  Step will return true in the case that the last
// opcode was successfully executed or execution failed.
//
// The result of calling Step or any other method is undefined if an error is
// returned.
func (vm *Engine) Step() (done bool, err error) {
	// Opcode handlers must never take the caller down with them.
	defer func() {
		if r := recover(); r != nil {
			str := fmt.Sprintf("script execution panicked: %v", r)
			done, err = true, scriptError(ErrInternal, str)
		}
	}()

	if vm.tokenizer.Done() {
		if err := vm.tokenizer.Err(); err != nil {
			return true, err
		}
		str := fmt.Sprintf("program counter %d is past the end of the "+
			"script", vm.tokenizer.ByteIndex())
		return true, scriptError(ErrInvalidProgramCounter, str)
	}
	if !vm.tokenizer.Next() {
		return true, vm.tokenizer.Err()
	}

	// Execute the opcode while taking into account several things such as
	// disabled opcodes, illegal opcodes, maximum allowed operations per
	// script, maximum script element sizes, and conditionals.
	if err := vm.executeOpcode(vm.tokenizer.op, vm.tokenizer.Data()); err != nil {
		return true, err
	}

	// The number of elements in the combination of the data and alt stacks
	// must not exceed the maximum number of stack elements allowed.
	combinedStackSize := vm.dstack.Depth() + vm.astack.Depth()
	if combinedStackSize > MaxStackSize {
		str := fmt.Sprintf("combined stack size %d > max allowed %d",
			combinedStackSize, MaxStackSize)
		return true, scriptError(ErrStackOverflow, str)
	}

	if !vm.tokenizer.Done() {
		return false, nil
	}

	// Conditionals may not extend past the end of the script.
	if len(vm.condStack) != 0 {
		return true, scriptError(ErrUnbalancedConditional,
			"end of script reached in conditional execution")
	}
	return true, nil
}

// Execute runs the script to completion and returns either nil when every
// opcode executed successfully or the error that stopped execution.  The final
// stack is not interpreted; use CheckErrorCondition for that.
func (vm *Engine) Execute() (err error) {
	// An empty script has nothing to step through.
	if vm.Done() {
		return vm.tokenizer.Err()
	}

	done := false
	for !done {
		log.Tracef("%v", newLogClosure(func() string {
			dis, err := vm.DisasmPC()
			if err != nil {
				return fmt.Sprintf("stepping (%v)", err)
			}
			return fmt.Sprintf("stepping %v", dis)
		}))

		done, err = vm.Step()
		if err != nil {
			return err
		}
		log.Tracef("%v", newLogClosure(func() string {
			var dstr, astr string

			// if we're tracing, dump the stacks.
			if vm.dstack.Depth() != 0 {
				dstr = "Stack:\n" + vm.dstack.String()
			}
			if vm.astack.Depth() != 0 {
				astr = "AltStack:\n" + vm.astack.String()
			}

			return dstr + astr
		}))
	}

	return nil
}

// getStack returns the contents of stack as a byte array bottom up
func getStack(stack *stack) [][]byte {
	array := make([][]byte, stack.Depth())
	for i := range array {
		// PeekByteArray can't fail due to overflow, already checked
		array[len(array)-i-1], _ = stack.PeekByteArray(int32(i))
	}
	return array
}

// setStack sets the stack to the contents of the array where the last item in
// the array is the top item in the stack.
func setStack(stack *stack, data [][]byte) {
	stack.stk = stack.stk[:0]
	for i := range data {
		stack.PushByteArray(data[i])
	}
}

// GetStack returns the contents of the primary stack as an array. where the
// last item in the array is the top of the stack.
func (vm *Engine) GetStack() [][]byte {
	return getStack(&vm.dstack)
}

// SetStack sets the contents of the primary stack to the contents of the
// provided array where the last item in the array will be the top of the stack.
func (vm *Engine) SetStack(data [][]byte) {
	setStack(&vm.dstack, data)
}

// GetAltStack returns the contents of the alternate stack as an array where the
// last item in the array is the top of the stack.
func (vm *Engine) GetAltStack() [][]byte {
	return getStack(&vm.astack)
}

// NewEngine returns a new script engine that executes script on top of the
// provided initial stack, ordered bottom up.  The flags modify the behavior of
// the script engine according to the description provided by each flag.  A nil
// checker is replaced with BaseSignatureChecker, which fails every signature
// and lock time check.
func NewEngine(stack [][]byte, script []byte, flags ScriptFlags,
	checker SignatureChecker, branchID uint32) (*Engine, error) {

	if len(script) > MaxScriptSize {
		str := fmt.Sprintf("script size %d is larger than max allowed "+
			"size %d", len(script), MaxScriptSize)
		return nil, scriptError(ErrScriptTooBig, str)
	}

	if checker == nil {
		checker = BaseSignatureChecker{}
	}

	vm := Engine{
		flags:     flags,
		checker:   checker,
		branchID:  branchID,
		script:    script,
		tokenizer: MakeScriptTokenizer(script),
	}
	if vm.hasFlag(ScriptVerifyMinimalData) {
		vm.dstack.verifyMinimalData = true
		vm.astack.verifyMinimalData = true
	}
	vm.SetStack(stack)

	return &vm, nil
}

// EvalScript executes script on top of stack, which is ordered bottom up, and
// returns the resulting stack along with nil on success or the Error that
// stopped execution.  The stack is returned in both cases.
//
// Every signature and lock time check performed by the script is answered by
// checker under the consensus branch id branchID.
func EvalScript(stack [][]byte, script []byte, flags ScriptFlags,
	checker SignatureChecker, branchID uint32) ([][]byte, error) {

	vm, err := NewEngine(stack, script, flags, checker, branchID)
	if err != nil {
		return stack, err
	}

	err = vm.Execute()
	return vm.GetStack(), err
}
