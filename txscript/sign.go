// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"

	"github.com/zecsuite/zscript/wire"
)

// RawTxInSignature returns the serialized ECDSA signature for the input idx of
// the given transaction, with hashType appended to it.  amount is the value of
// the output being spent and branchID the consensus branch id the signature
// commits to, both of which only matter for overwintered transactions.
func RawTxInSignature(tx *wire.MsgTx, idx int, subScript []byte,
	hashType SigHashType, amount int64, branchID uint32,
	key *btcec.PrivateKey) ([]byte, error) {

	hash, err := SignatureHash(subScript, tx, Input(idx), hashType, amount,
		branchID, nil)
	if err != nil {
		return nil, err
	}
	signature := ecdsa.Sign(key, hash[:])

	return append(signature.Serialize(), byte(hashType)), nil
}

// SignatureScript creates an input signature script for tx to spend coins sent
// from a previous output to the owner of privKey. tx must include all
// transaction inputs and outputs, however txin scripts are allowed to be filled
// or empty. The returned script is calculated to be used as the idx'th txin
// sigscript for tx. subscript is the PkScript of the previous output being used
// as the idx'th input. privKey is serialized in either a compressed or
// uncompressed format based on compress. This format must match the same format
// used to generate the payment address, or the script validation will fail.
func SignatureScript(tx *wire.MsgTx, idx int, subscript []byte,
	hashType SigHashType, amount int64, branchID uint32,
	privKey *btcec.PrivateKey, compress bool) ([]byte, error) {

	sig, err := RawTxInSignature(tx, idx, subscript, hashType, amount,
		branchID, privKey)
	if err != nil {
		return nil, err
	}

	pk := privKey.PubKey()
	var pkData []byte
	if compress {
		pkData = pk.SerializeCompressed()
	} else {
		pkData = pk.SerializeUncompressed()
	}

	return NewScriptBuilder().AddData(sig).AddData(pkData).Script(), nil
}

// MultiSigSignatureScript creates the signature script of a standard multisig
// output from signatures in public key order.  The leading OP_0 is consumed
// by OP_CHECKMULTISIG.  When redeemScript is not nil it is pushed last, as
// required to spend a pay-to-script-hash output.
func MultiSigSignatureScript(sigs [][]byte, redeemScript []byte) []byte {
	builder := NewScriptBuilder().AddOp(OP_0)
	for _, sig := range sigs {
		builder.AddData(sig)
	}
	if redeemScript != nil {
		builder.AddData(redeemScript)
	}
	return builder.Script()
}
