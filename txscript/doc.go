// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package txscript implements the transparent transaction script language of
Zcash.

This package provides data structures and functions to parse and execute
transparent transaction scripts, and to compute the signature hashes that
their signature checking opcodes verify.

# Script Overview

Transaction scripts are written in a stack-based, FORTH-like language.

The script language consists of a number of opcodes which fall into several
categories such pushing and popping data to and from the stack, performing
basic arithmetic, conditional branching, comparing hashes, and checking
cryptographic signatures.  Scripts are processed from left to right and
intentionally do not provide loops.

A transparent input is valid when its signature script, followed by the
public key script of the output it spends, leaves a true value on the stack.
VerifyScript performs that check, including the pay-to-script-hash rules
when ScriptBip16 is set.  EvalScript runs a single script.

# Signature Checking

The engine does not know about transactions.  Signature and lock time opcodes
defer to a SignatureChecker, normally a TxSignatureChecker bound to one input
of a transaction.  The transaction format selects the signature hash:
transactions that are not overwintered use the original double-SHA256
algorithm, Overwinter transactions use ZIP-143 and Sapling transactions use
ZIP-243.  The latter two commit to the consensus branch id passed to
VerifyScript.

# Errors

Errors returned by this package are of type txscript.Error.  This allows the
caller to programmatically determine the specific error by examining the
ErrorCode field of the type asserted txscript.Error while still providing rich
error messages with contextual information.  A convenience function named
IsErrorCode is also provided to allow callers to easily check for a specific
error code.  See ErrorCode in the package documentation for a full list.
*/
package txscript
