// Copyright (c) 2014-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"fmt"
)

// ErrorCode identifies a kind of error.
type ErrorCode int

// These constants are used to identify a specific RuleError.
const (
	// ErrMissingTxOut indicates a transaction input references an output
	// that the previous output source does not know about.
	ErrMissingTxOut ErrorCode = iota

	// ErrBadShieldedData indicates the shielded components of a
	// transaction could not be committed to by the signature hash.
	ErrBadShieldedData

	// ErrScriptMalformed indicates a transaction script is malformed in
	// some way.  For example, it might be longer than the maximum allowed
	// length or fail to parse.
	ErrScriptMalformed

	// ErrScriptValidation indicates the result of executing transaction
	// script failed.  The error covers any failure when executing scripts
	// such signature verification failures and execution past the end of
	// the stack.
	ErrScriptValidation
)

// Map of ErrorCode values back to their constant names for pretty printing.
var errorCodeStrings = map[ErrorCode]string{
	ErrMissingTxOut:     "ErrMissingTxOut",
	ErrBadShieldedData:  "ErrBadShieldedData",
	ErrScriptMalformed:  "ErrScriptMalformed",
	ErrScriptValidation: "ErrScriptValidation",
}

// String returns the ErrorCode as a human-readable name.
func (e ErrorCode) String() string {
	if s := errorCodeStrings[e]; s != "" {
		return s
	}
	return fmt.Sprintf("Unknown ErrorCode (%d)", int(e))
}

// RuleError identifies a rule violation.  It is used to indicate that
// validation of a transaction failed due to one of the validation rules.  The
// caller can use type assertions to determine if a failure was specifically
// due to a rule violation and access the ErrorCode field to ascertain the
// specific reason for the rule violation.
//
// Err holds the underlying script error, if any, so errors.Is and errors.As
// reach the txscript error code.
type RuleError struct {
	ErrorCode   ErrorCode // Describes the kind of error
	Description string    // Human readable description of the issue
	Err         error     // Underlying error, may be nil
}

// Error satisfies the error interface and prints human-readable errors.
func (e RuleError) Error() string {
	return e.Description
}

// Unwrap returns the underlying error.
func (e RuleError) Unwrap() error {
	return e.Err
}

// ruleError creates an RuleError given a set of arguments.
func ruleError(c ErrorCode, desc string, err error) RuleError {
	return RuleError{ErrorCode: c, Description: desc, Err: err}
}
