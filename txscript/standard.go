// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2015-2016 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
)

const (
	// MaxDataCarrierSize is the maximum number of bytes allowed in pushed
	// data to be considered a nulldata transaction.
	MaxDataCarrierSize = 80
)

// ScriptClass is an enumeration for the list of standard types of script.
type ScriptClass byte

// Classes of script payment known about in the blockchain.
const (
	NonStandardTy ScriptClass = iota // None of the recognized forms.
	PubKeyTy                         // Pay pubkey.
	PubKeyHashTy                     // Pay pubkey hash.
	ScriptHashTy                     // Pay to script hash.
	MultiSigTy                       // Multi signature.
	NullDataTy                       // Empty data-only (provably prunable).
)

// scriptClassToName houses the human-readable strings which describe each
// script class.
var scriptClassToName = []string{
	NonStandardTy: "nonstandard",
	PubKeyTy:      "pubkey",
	PubKeyHashTy:  "pubkeyhash",
	ScriptHashTy:  "scripthash",
	MultiSigTy:    "multisig",
	NullDataTy:    "nulldata",
}

// String implements the Stringer interface by returning the name of
// the enum script class. If the enum is invalid then "Invalid" will be
// returned.
func (t ScriptClass) String() string {
	if int(t) >= len(scriptClassToName) {
		return "Invalid"
	}
	return scriptClassToName[t]
}

// isPubKeyScript returns whether the script is of the form
//
//	<33 or 65 byte pubkey> OP_CHECKSIG
func isPubKeyScript(script []byte) bool {
	switch len(script) {
	case 35:
		return script[0] == OP_DATA_33 && script[34] == OP_CHECKSIG
	case 67:
		return script[0] == OP_DATA_65 && script[66] == OP_CHECKSIG
	}
	return false
}

// isPubKeyHashScript returns whether the script is of the form
//
//	OP_DUP OP_HASH160 <20-byte hash> OP_EQUALVERIFY OP_CHECKSIG
func isPubKeyHashScript(script []byte) bool {
	return len(script) == 25 &&
		script[0] == OP_DUP &&
		script[1] == OP_HASH160 &&
		script[2] == OP_DATA_20 &&
		script[23] == OP_EQUALVERIFY &&
		script[24] == OP_CHECKSIG
}

// multiSigDetails houses details extracted from a standard multisig script.
type multiSigDetails struct {
	requiredSigs int
	numPubKeys   int
	pubKeys      [][]byte
	valid        bool
}

// extractMultisigScriptDetails attempts to extract details from the passed
// script if it is a standard multisig script of the form
//
//	OP_m <pubkey 1> ... <pubkey n> OP_n OP_CHECKMULTISIG
//
// with 1 <= m <= n and every public key 33 or 65 bytes.  The returned details
// struct will have the valid flag set to false otherwise.
func extractMultisigScriptDetails(script []byte, extractPubKeys bool) multiSigDetails {
	// The smallest multisig is OP_1 <33-byte pubkey> OP_1 OP_CHECKMULTISIG.
	if len(script) < 37 || script[len(script)-1] != OP_CHECKMULTISIG {
		return multiSigDetails{}
	}

	tokenizer := MakeScriptTokenizer(script)
	if !tokenizer.Next() || !isSmallInt(tokenizer.Opcode()) {
		return multiSigDetails{}
	}
	requiredSigs := asSmallInt(tokenizer.Opcode())

	var pubKeys [][]byte
	numPubKeys := 0
	for tokenizer.Next() {
		data := tokenizer.Data()
		if len(data) != 33 && len(data) != 65 {
			break
		}
		numPubKeys++
		if extractPubKeys {
			pubKeys = append(pubKeys, data)
		}
	}
	if tokenizer.Done() {
		return multiSigDetails{}
	}

	// The pubkey count must follow and must match the number of pubkeys.
	op := tokenizer.Opcode()
	if !isSmallInt(op) || asSmallInt(op) != numPubKeys {
		return multiSigDetails{}
	}
	if requiredSigs == 0 || requiredSigs > numPubKeys {
		return multiSigDetails{}
	}

	// OP_CHECKMULTISIG must be the final opcode.
	if !tokenizer.Next() || tokenizer.Opcode() != OP_CHECKMULTISIG ||
		!tokenizer.Done() {

		return multiSigDetails{}
	}

	return multiSigDetails{
		requiredSigs: requiredSigs,
		numPubKeys:   numPubKeys,
		pubKeys:      pubKeys,
		valid:        true,
	}
}

// IsMultisigScript returns whether the script is a standard multisig script.
func IsMultisigScript(script []byte) bool {
	return extractMultisigScriptDetails(script, false).valid
}

// isNullDataScript returns whether the script is OP_RETURN optionally
// followed by a single push of at most MaxDataCarrierSize bytes.
func isNullDataScript(script []byte) bool {
	if len(script) == 0 || script[0] != OP_RETURN {
		return false
	}
	if len(script) == 1 {
		return true
	}

	tokenizer := MakeScriptTokenizer(script[1:])
	return tokenizer.Next() && tokenizer.Done() &&
		tokenizer.Opcode() <= OP_16 &&
		len(tokenizer.Data()) <= MaxDataCarrierSize
}

// GetScriptClass returns the class of the script passed.
//
// NonStandardTy will be returned when the script does not parse.
func GetScriptClass(script []byte) ScriptClass {
	switch {
	case isPubKeyScript(script):
		return PubKeyTy
	case isPubKeyHashScript(script):
		return PubKeyHashTy
	case isScriptHashScript(script):
		return ScriptHashTy
	case IsMultisigScript(script):
		return MultiSigTy
	case isNullDataScript(script):
		return NullDataTy
	}
	return NonStandardTy
}

// PayToPubKeyScript creates a new script to pay a transaction output to a
// serialized public key.
func PayToPubKeyScript(serializedPubKey []byte) []byte {
	return NewScriptBuilder().AddData(serializedPubKey).
		AddOp(OP_CHECKSIG).Script()
}

// PayToPubKeyHashScript creates a new script to pay a transaction output to a
// 20-byte pubkey hash.
func PayToPubKeyHashScript(pubKeyHash []byte) ([]byte, error) {
	if len(pubKeyHash) != 20 {
		return nil, fmt.Errorf("pubkey hash is %d bytes, want 20",
			len(pubKeyHash))
	}
	return NewScriptBuilder().AddOp(OP_DUP).AddOp(OP_HASH160).
		AddData(pubKeyHash).AddOp(OP_EQUALVERIFY).AddOp(OP_CHECKSIG).
		Script(), nil
}

// PayToScriptHashScript creates a new script to pay a transaction output to a
// 20-byte script hash.
func PayToScriptHashScript(scriptHash []byte) ([]byte, error) {
	if len(scriptHash) != 20 {
		return nil, fmt.Errorf("script hash is %d bytes, want 20",
			len(scriptHash))
	}
	return NewScriptBuilder().AddOp(OP_HASH160).AddData(scriptHash).
		AddOp(OP_EQUAL).Script(), nil
}

// NullDataScript creates a provably prunable script containing OP_RETURN
// followed by the passed data.
func NullDataScript(data []byte) ([]byte, error) {
	if len(data) > MaxDataCarrierSize {
		str := fmt.Sprintf("data size %d is larger than max "+
			"allowed size %d", len(data), MaxDataCarrierSize)
		return nil, scriptError(ErrTooMuchNullData, str)
	}
	return NewScriptBuilder().AddOp(OP_RETURN).AddData(data).Script(), nil
}

// MultiSigScript returns a valid script for a multisignature redemption where
// nrequired of the keys in pubkeys are required to have signed the transaction
// for success.  Keys are serialized in compressed form.  An Error with the
// error code ErrTooManyRequiredSigs will be returned if nrequired is larger
// than the number of keys provided.
func MultiSigScript(pubKeys []*btcec.PublicKey, nrequired int) ([]byte, error) {
	if len(pubKeys) < nrequired {
		str := fmt.Sprintf("unable to generate multisig script with "+
			"%d required signatures when there are only %d public "+
			"keys available", nrequired, len(pubKeys))
		return nil, scriptError(ErrTooManyRequiredSigs, str)
	}
	if len(pubKeys) > MaxPubKeysPerMultiSig {
		str := fmt.Sprintf("too many pubkeys: %d > %d", len(pubKeys),
			MaxPubKeysPerMultiSig)
		return nil, scriptError(ErrInvalidPubKeyCount, str)
	}

	builder := NewScriptBuilder().AddInt64(int64(nrequired))
	for _, key := range pubKeys {
		builder.AddData(key.SerializeCompressed())
	}
	builder.AddInt64(int64(len(pubKeys)))
	builder.AddOp(OP_CHECKMULTISIG)

	return builder.Script(), nil
}

// CalcMultiSigStats returns the number of public keys and signatures from
// a multi-signature transaction script.  The passed script MUST already be
// known to be a multi-signature script.
//
// NOTE: This function is only valid for standard multisig scripts.  An Error
// with the error code ErrNotMultisigScript is returned otherwise.
func CalcMultiSigStats(script []byte) (int, int, error) {
	details := extractMultisigScriptDetails(script, false)
	if !details.valid {
		str := fmt.Sprintf("script %x is not a multisig script", script)
		return 0, 0, scriptError(ErrNotMultisigScript, str)
	}

	return details.numPubKeys, details.requiredSigs, nil
}

// ExtractMultiSigPubKeys returns the serialized public keys of a standard
// multisig script in script order.
func ExtractMultiSigPubKeys(script []byte) ([][]byte, error) {
	details := extractMultisigScriptDetails(script, true)
	if !details.valid {
		str := fmt.Sprintf("script %x is not a multisig script", script)
		return nil, scriptError(ErrNotMultisigScript, str)
	}
	return details.pubKeys, nil
}
