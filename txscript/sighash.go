// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2015-2019 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/zecsuite/zscript/wire"
)

// SigHashType represents hash type bits at the end of a signature.
type SigHashType uint32

// Hash type bits from the end of a signature.
const (
	SigHashAll          SigHashType = 0x1
	SigHashNone         SigHashType = 0x2
	SigHashSingle       SigHashType = 0x3
	SigHashAnyOneCanPay SigHashType = 0x80

	// sigHashMask defines the number of bits of the hash type which is used
	// to identify which outputs are signed.
	sigHashMask = 0x1f
)

// sigHashPersonalizationPrefix prefixes the little-endian consensus branch id
// to form the personalization of the ZIP-143 and ZIP-243 digests.
const sigHashPersonalizationPrefix = "ZcashSigHash"

// SigVersion identifies the signature hash algorithm of a transaction.
type SigVersion int

const (
	// SigVersionSprout is the original double-SHA256 algorithm over a
	// modified serialization of the transaction.
	SigVersionSprout SigVersion = iota

	// SigVersionOverwinter is the ZIP-143 algorithm.
	SigVersionOverwinter

	// SigVersionSapling is the ZIP-243 algorithm, which extends ZIP-143
	// with the Sapling components of the transaction.
	SigVersionSapling
)

// String returns the SigVersion as a human-readable name.
func (v SigVersion) String() string {
	switch v {
	case SigVersionSprout:
		return "sprout"
	case SigVersionOverwinter:
		return "overwinter"
	case SigVersionSapling:
		return "sapling"
	}
	return fmt.Sprintf("unknown sigversion (%d)", int(v))
}

// SignatureHashVersion returns the signature hash algorithm used to sign the
// inputs of tx.
func SignatureHashVersion(tx *wire.MsgTx) SigVersion {
	if !tx.Overwintered {
		return SigVersionSprout
	}
	if tx.VersionGroupID == wire.SaplingVersionGroupID {
		return SigVersionSapling
	}
	return SigVersionOverwinter
}

// InputIndex identifies what a signature hash commits to: either one input of
// the transaction, or no input at all as used when signing the JoinSplit
// authorization of a transaction.  The zero value is NotAnInput.
type InputIndex struct {
	idx   int
	valid bool
}

// NotAnInput is the InputIndex of a signature hash not bound to any input.
var NotAnInput = InputIndex{}

// Input returns the InputIndex of the input at index i.
func Input(i int) InputIndex {
	return InputIndex{idx: i, valid: true}
}

// Index returns the input index and true, or false for NotAnInput.
func (i InputIndex) Index() (int, bool) {
	return i.idx, i.valid
}

// String returns the index as a decimal number or "not-an-input".
func (i InputIndex) String() string {
	if !i.valid {
		return "not-an-input"
	}
	return fmt.Sprintf("%d", i.idx)
}

// appendUint32LE appends the little-endian encoding of v.
func appendUint32LE(b []byte, v uint32) []byte {
	return binary.LittleEndian.AppendUint32(b, v)
}

// SignatureHash computes the digest signed by an input, or by the JoinSplit
// authorization when idx is NotAnInput.  The algorithm is selected by
// SignatureHashVersion.
//
// scriptCode is the script being satisfied, amount is the value of the output
// being spent and branchID is the consensus branch id personalizing the digest
// of overwintered transactions.  The last two are only committed to by
// overwintered transactions.  txData may be nil, in which case the component
// hashes are computed as needed.  A non-nil txData must have been computed from
// tx.
func SignatureHash(scriptCode []byte, tx *wire.MsgTx, idx InputIndex,
	hashType SigHashType, amount int64, branchID uint32,
	txData *PrecomputedTxData) (chainhash.Hash, error) {

	return calcSignatureHash(SignatureHashVersion(tx), scriptCode, tx, idx,
		hashType, amount, branchID, txData)
}

// calcSignatureHash computes the signature hash with the algorithm of the
// passed signature version.
func calcSignatureHash(sigVersion SigVersion, scriptCode []byte,
	tx *wire.MsgTx, idx InputIndex, hashType SigHashType, amount int64,
	branchID uint32, txData *PrecomputedTxData) (chainhash.Hash, error) {

	if i, ok := idx.Index(); ok && (i < 0 || i >= len(tx.TxIn)) {
		str := fmt.Sprintf("transaction input index %d is negative or "+
			">= %d", i, len(tx.TxIn))
		return chainhash.Hash{}, scriptError(ErrInvalidIndex, str)
	}

	switch sigVersion {
	case SigVersionSprout:
		return calcLegacySignatureHash(scriptCode, tx, idx, hashType)

	case SigVersionOverwinter, SigVersionSapling:
		if txData == nil {
			var err error
			txData, err = NewPrecomputedTxData(tx)
			if err != nil {
				return chainhash.Hash{}, err
			}
		}
		return calcOverwinterSignatureHash(sigVersion, scriptCode, tx,
			idx, hashType, amount, branchID, txData)
	}

	str := fmt.Sprintf("unsupported signature hash version %v", sigVersion)
	return chainhash.Hash{}, scriptError(ErrUnsupportedSigVersion, str)
}

// calcLegacySignatureHash computes the double-SHA256 signature hash of a
// transaction that is not overwintered.
//
// The digest is computed over a copy of the transaction modified according to
// the hash type:
//   - only the input being signed carries a script, which is the script code
//     with every OP_CODESEPARATOR removed
//   - SigHashNone and SigHashSingle zero the sequence of every other input
//   - SigHashNone commits to no outputs
//   - SigHashSingle commits to the output at the signed index, preceded by
//     blanked outputs
//   - SigHashAnyOneCanPay commits to the signed input alone
//
// The hash type is appended as a little-endian uint32.  Hash types with an
// undefined base type are treated like SigHashAll.
func calcLegacySignatureHash(scriptCode []byte, tx *wire.MsgTx,
	idx InputIndex, hashType SigHashType) (chainhash.Hash, error) {

	signIdx, bound := idx.Index()
	baseType := hashType & sigHashMask
	anyoneCanPay := hashType&SigHashAnyOneCanPay != 0

	// A signature not bound to an input has no output at its index and no
	// input to commit to alone.
	if baseType == SigHashSingle && (!bound || signIdx >= len(tx.TxOut)) {
		str := fmt.Sprintf("attempt to sign single input at index %v "+
			">= %d outputs", idx, len(tx.TxOut))
		return chainhash.Hash{}, scriptError(ErrInvalidSigHashSingleIndex,
			str)
	}
	if anyoneCanPay && !bound {
		return chainhash.Hash{}, scriptError(ErrInvalidIndex,
			"SigHashAnyOneCanPay requires a bound input")
	}

	var buf bytes.Buffer
	buf.Grow(tx.SerializeSize() + len(scriptCode) + 4)
	if err := writeLegacySigHashPreimage(&buf, scriptCode, tx, signIdx,
		bound, baseType, anyoneCanPay); err != nil {

		return chainhash.Hash{}, err
	}
	buf.Write(appendUint32LE(nil, uint32(hashType)))

	return chainhash.DoubleHashH(buf.Bytes()), nil
}

// writeLegacySigHashPreimage writes the modified transaction serialization
// described by calcLegacySignatureHash.
func writeLegacySigHashPreimage(w *bytes.Buffer, scriptCode []byte,
	tx *wire.MsgTx, signIdx int, bound bool, baseType SigHashType,
	anyoneCanPay bool) error {

	w.Write(appendUint32LE(nil, tx.Header()))

	// Inputs.
	txIns := tx.TxIn
	if anyoneCanPay {
		txIns = tx.TxIn[signIdx : signIdx+1]
	}
	if err := wire.WriteVarInt(w, uint64(len(txIns))); err != nil {
		return err
	}
	for i, txIn := range txIns {
		signing := anyoneCanPay || (bound && i == signIdx)
		if err := wire.WriteOutPoint(w, &txIn.PreviousOutPoint); err != nil {
			return err
		}

		var script []byte
		if signing {
			script = removeCodeSeparators(scriptCode)
		}
		if err := wire.WriteVarBytes(w, script); err != nil {
			return err
		}

		sequence := txIn.Sequence
		if !signing && (baseType == SigHashNone ||
			baseType == SigHashSingle) {

			sequence = 0
		}
		w.Write(appendUint32LE(nil, sequence))
	}

	// Outputs.
	var numOutputs int
	switch baseType {
	case SigHashNone:
		numOutputs = 0
	case SigHashSingle:
		numOutputs = signIdx + 1
	default:
		numOutputs = len(tx.TxOut)
	}
	if err := wire.WriteVarInt(w, uint64(numOutputs)); err != nil {
		return err
	}
	blanked := wire.TxOut{Value: -1}
	for i := 0; i < numOutputs; i++ {
		txOut := tx.TxOut[i]
		if baseType == SigHashSingle && i != signIdx {
			txOut = &blanked
		}
		if err := wire.WriteTxOut(w, txOut); err != nil {
			return err
		}
	}

	w.Write(appendUint32LE(nil, tx.LockTime))

	// JoinSplits are committed to from version 2 on, with a zeroed
	// JoinSplit signature.
	if tx.Version >= wire.JoinSplitTxVersion {
		err := wire.WriteVarInt(w, uint64(len(tx.JoinSplits)))
		if err != nil {
			return err
		}
		for _, js := range tx.JoinSplits {
			if err := js.Serialize(w, tx.UsesGrothProofs()); err != nil {
				return err
			}
		}
		if len(tx.JoinSplits) > 0 {
			var nullSig [wire.SignatureSize]byte
			w.Write(tx.JoinSplitPubKey[:])
			w.Write(nullSig[:])
		}
	}

	return nil
}

// calcOverwinterSignatureHash computes the ZIP-143 or ZIP-243 signature hash
// of an overwintered transaction.
func calcOverwinterSignatureHash(sigVersion SigVersion, scriptCode []byte,
	tx *wire.MsgTx, idx InputIndex, hashType SigHashType, amount int64,
	branchID uint32, txData *PrecomputedTxData) (chainhash.Hash, error) {

	signIdx, bound := idx.Index()
	baseType := hashType & sigHashMask
	anyoneCanPay := hashType&SigHashAnyOneCanPay != 0

	var zeroHash chainhash.Hash
	hashPrevouts, hashSequence, hashOutputs := zeroHash, zeroHash, zeroHash
	if !anyoneCanPay {
		hashPrevouts = txData.HashPrevouts
	}
	if !anyoneCanPay && baseType != SigHashSingle &&
		baseType != SigHashNone {

		hashSequence = txData.HashSequence
	}
	switch {
	case baseType != SigHashSingle && baseType != SigHashNone:
		hashOutputs = txData.HashOutputs
	case baseType == SigHashSingle && bound && signIdx < len(tx.TxOut):
		hashOutputs = calcHashSingleOutput(tx.TxOut[signIdx])
	}

	var personalization [16]byte
	copy(personalization[:], sigHashPersonalizationPrefix)
	binary.LittleEndian.PutUint32(personalization[12:], branchID)
	h := newBlake2b256(personalization[:])

	var preimage bytes.Buffer
	preimage.Write(appendUint32LE(nil, tx.Header()))
	preimage.Write(appendUint32LE(nil, tx.VersionGroupID))
	preimage.Write(hashPrevouts[:])
	preimage.Write(hashSequence[:])
	preimage.Write(hashOutputs[:])
	preimage.Write(txData.HashJoinSplits[:])
	if sigVersion == SigVersionSapling {
		preimage.Write(txData.HashShieldedSpends[:])
		preimage.Write(txData.HashShieldedOutputs[:])
	}
	preimage.Write(appendUint32LE(nil, tx.LockTime))
	preimage.Write(appendUint32LE(nil, tx.ExpiryHeight))
	if sigVersion == SigVersionSapling {
		preimage.Write(binary.LittleEndian.AppendUint64(nil,
			uint64(tx.ValueBalance)))
	}
	preimage.Write(appendUint32LE(nil, uint32(hashType)))

	if bound {
		txIn := tx.TxIn[signIdx]
		if err := wire.WriteOutPoint(&preimage, &txIn.PreviousOutPoint); err != nil {
			return chainhash.Hash{}, err
		}
		if err := wire.WriteVarBytes(&preimage, scriptCode); err != nil {
			return chainhash.Hash{}, err
		}
		preimage.Write(binary.LittleEndian.AppendUint64(nil,
			uint64(amount)))
		preimage.Write(appendUint32LE(nil, txIn.Sequence))
	}

	h.Write(preimage.Bytes())

	var sigHash chainhash.Hash
	copy(sigHash[:], h.Sum(nil))
	return sigHash, nil
}
