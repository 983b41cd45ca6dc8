// Copyright (c) 2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"bytes"
	"hash"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	blake2b "github.com/minio/blake2b-simd"

	"github.com/zecsuite/zscript/wire"
)

// Personalizations of the BLAKE2b-256 digests used by the ZIP-143 and ZIP-243
// signature hashes.  Each is exactly 16 bytes, the BLAKE2b personalization
// size.
const (
	prevoutsHashPersonalization        = "ZcashPrevoutHash"
	sequenceHashPersonalization        = "ZcashSequencHash"
	outputsHashPersonalization         = "ZcashOutputsHash"
	joinSplitsHashPersonalization      = "ZcashJSplitsHash"
	shieldedSpendsHashPersonalization  = "ZcashSSpendsHash"
	shieldedOutputsHashPersonalization = "ZcashSOutputHash"
)

// newBlake2b256 returns a BLAKE2b hasher producing 32-byte digests under the
// given personalization.
func newBlake2b256(personalization []byte) hash.Hash {
	h, err := blake2b.New(&blake2b.Config{
		Size:   chainhash.HashSize,
		Person: personalization,
	})
	if err != nil {
		// Only reachable with a personalization longer than 16 bytes,
		// which every caller rules out.
		panic(err)
	}
	return h
}

// blake2bHash returns the personalized BLAKE2b-256 digest of data.
func blake2bHash(personalization string, data []byte) chainhash.Hash {
	h := newBlake2b256([]byte(personalization))
	h.Write(data)

	var digest chainhash.Hash
	copy(digest[:], h.Sum(nil))
	return digest
}

// calcHashPrevOuts calculates a single hash of all the previous outputs
// (txid:index) referenced within the passed transaction.  The hash is re-used
// for every input signed without SigHashAnyOneCanPay, reducing the complexity
// of validating those inputs from O(N^2) to O(N).
func calcHashPrevOuts(tx *wire.MsgTx) chainhash.Hash {
	var b bytes.Buffer
	for _, in := range tx.TxIn {
		// Writing to a bytes.Buffer never fails.
		_ = wire.WriteOutPoint(&b, &in.PreviousOutPoint)
	}
	return blake2bHash(prevoutsHashPersonalization, b.Bytes())
}

// calcHashSequence computes an aggregated hash of each of the sequence numbers
// within the inputs of the passed transaction.
func calcHashSequence(tx *wire.MsgTx) chainhash.Hash {
	b := make([]byte, 0, 4*len(tx.TxIn))
	for _, in := range tx.TxIn {
		b = appendUint32LE(b, in.Sequence)
	}
	return blake2bHash(sequenceHashPersonalization, b)
}

// calcHashOutputs computes a hash digest of all outputs created by the
// transaction encoded using the wire format.
func calcHashOutputs(tx *wire.MsgTx) chainhash.Hash {
	var b bytes.Buffer
	for _, out := range tx.TxOut {
		_ = wire.WriteTxOut(&b, out)
	}
	return blake2bHash(outputsHashPersonalization, b.Bytes())
}

// calcHashSingleOutput computes the digest of the single output at index idx,
// used by SigHashSingle.
func calcHashSingleOutput(out *wire.TxOut) chainhash.Hash {
	var b bytes.Buffer
	_ = wire.WriteTxOut(&b, out)
	return blake2bHash(outputsHashPersonalization, b.Bytes())
}

// calcHashJoinSplits computes the digest of every JoinSplit description
// followed by the JoinSplit public key.  It is the zero hash when the
// transaction has no JoinSplits.
func calcHashJoinSplits(tx *wire.MsgTx) (chainhash.Hash, error) {
	if len(tx.JoinSplits) == 0 {
		return chainhash.Hash{}, nil
	}

	var b bytes.Buffer
	for _, js := range tx.JoinSplits {
		if err := js.Serialize(&b, tx.UsesGrothProofs()); err != nil {
			return chainhash.Hash{}, err
		}
	}
	b.Write(tx.JoinSplitPubKey[:])
	return blake2bHash(joinSplitsHashPersonalization, b.Bytes()), nil
}

// calcHashShieldedSpends computes the digest of every Sapling spend without
// its spend authorization signature.  It is the zero hash when the transaction
// has no spends.
func calcHashShieldedSpends(tx *wire.MsgTx) chainhash.Hash {
	if len(tx.ShieldedSpends) == 0 {
		return chainhash.Hash{}
	}

	var b bytes.Buffer
	for _, spend := range tx.ShieldedSpends {
		_ = spend.SerializeNoAuthSig(&b)
	}
	return blake2bHash(shieldedSpendsHashPersonalization, b.Bytes())
}

// calcHashShieldedOutputs computes the digest of every Sapling output
// description.  It is the zero hash when the transaction has no outputs.
func calcHashShieldedOutputs(tx *wire.MsgTx) chainhash.Hash {
	if len(tx.ShieldedOutputs) == 0 {
		return chainhash.Hash{}
	}

	var b bytes.Buffer
	for _, output := range tx.ShieldedOutputs {
		_ = output.Serialize(&b)
	}
	return blake2bHash(shieldedOutputsHashPersonalization, b.Bytes())
}

// PrecomputedTxData houses the component digests of a transaction that are
// shared by the signature hashes of all of its inputs.  A value is read-only
// once built, so one instance may be shared by every goroutine validating the
// inputs of the transaction.
//
// Every digest is computed unconditionally.  Whether a digest takes part in a
// given signature hash depends on the hash type of that signature.
type PrecomputedTxData struct {
	HashPrevouts        chainhash.Hash
	HashSequence        chainhash.Hash
	HashOutputs         chainhash.Hash
	HashJoinSplits      chainhash.Hash
	HashShieldedSpends  chainhash.Hash
	HashShieldedOutputs chainhash.Hash
}

// NewPrecomputedTxData computes the component digests of tx.  An error is only
// returned for JoinSplits that cannot be serialized.
func NewPrecomputedTxData(tx *wire.MsgTx) (*PrecomputedTxData, error) {
	hashJoinSplits, err := calcHashJoinSplits(tx)
	if err != nil {
		return nil, err
	}

	return &PrecomputedTxData{
		HashPrevouts:        calcHashPrevOuts(tx),
		HashSequence:        calcHashSequence(tx),
		HashOutputs:         calcHashOutputs(tx),
		HashJoinSplits:      hashJoinSplits,
		HashShieldedSpends:  calcHashShieldedSpends(tx),
		HashShieldedOutputs: calcHashShieldedOutputs(tx),
	}, nil
}
