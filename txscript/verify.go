// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"fmt"
)

// copyStack returns a copy of the stack items.  The items themselves are
// never modified in place by the engine and are not duplicated.
func copyStack(stack [][]byte) [][]byte {
	dup := make([][]byte, len(stack))
	copy(dup, stack)
	return dup
}

// VerifyScript returns nil when sigScript satisfies pkScript.  Otherwise the
// returned Error describes the first check that failed.
//
// The signature script is executed first and its resulting stack is the
// initial stack of the public key script, which must finish with a true top
// item.  With ScriptBip16 set and a pay-to-script-hash pkScript, the last item
// pushed by the signature script is further executed as the redeem script on
// top of the remaining items.  ScriptVerifyCleanStack then requires exactly
// one item to remain.
func VerifyScript(sigScript, pkScript []byte, flags ScriptFlags,
	checker SignatureChecker, branchID uint32) error {

	if flags&ScriptVerifySigPushOnly != 0 && !IsPushOnlyScript(sigScript) {
		return scriptError(ErrNotPushOnly,
			"signature script is not push only")
	}

	stack, err := EvalScript(nil, sigScript, flags, checker, branchID)
	if err != nil {
		return err
	}

	var savedStack [][]byte
	if flags&ScriptBip16 != 0 {
		savedStack = copyStack(stack)
	}

	stack, err = EvalScript(stack, pkScript, flags, checker, branchID)
	if err != nil {
		return err
	}
	if err := checkFinalStack(stack); err != nil {
		return err
	}

	if flags&ScriptBip16 != 0 && IsPayToScriptHash(pkScript) {
		// Only data pushes are allowed to produce the redeem script.
		if !IsPushOnlyScript(sigScript) {
			return scriptError(ErrNotPushOnly, "pay to script hash "+
				"signature script is not push only")
		}

		// The signature script of a successful hash check pushed at
		// least the redeem script.
		stack = savedStack
		redeemScript := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if len(redeemScript) > MaxScriptElementSize {
			str := fmt.Sprintf("redeem script size %d is larger than "+
				"max allowed size %d", len(redeemScript),
				MaxScriptElementSize)
			return scriptError(ErrRedeemScriptTooBig, str)
		}

		log.Tracef("%v", newLogClosure(func() string {
			dis, _ := DisasmString(redeemScript)
			return fmt.Sprintf("executing redeem script: %s", dis)
		}))

		stack, err = EvalScript(stack, redeemScript, flags, checker,
			branchID)
		if err != nil {
			return err
		}
		if err := checkFinalStack(stack); err != nil {
			return err
		}
	}

	if flags&ScriptVerifyCleanStack == 0 {
		return nil
	}
	if flags&ScriptBip16 == 0 {
		return scriptError(ErrInvalidFlags, "invalid flags combination: "+
			"clean stack requires pay to script hash")
	}
	if len(stack) != 1 {
		str := fmt.Sprintf("stack must contain exactly one item (contains "+
			"%d)", len(stack))
		return scriptError(ErrCleanStack, str)
	}

	return nil
}
