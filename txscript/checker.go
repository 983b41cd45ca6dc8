// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/zecsuite/zscript/wire"
)

// SignatureChecker provides the transaction context needed by the signature
// and lock time opcodes.  The engine only decides whether a script is well
// formed and leaves every question about the spending transaction to the
// checker.
//
// Implementations must be safe to call with arbitrary attacker supplied byte
// strings and must report failure by returning false rather than by
// panicking.
type SignatureChecker interface {
	// VerifySignature reports whether sig is a valid ECDSA signature of
	// hash under pubKey.  The signature does not include a hash type byte.
	VerifySignature(sig []byte, pubKey *btcec.PublicKey,
		hash *chainhash.Hash) bool

	// CheckSig reports whether sig, including its trailing hash type byte,
	// is a valid signature by the serialized pubKey over the signature
	// hash of scriptCode under the consensus branch id.
	CheckSig(sig, pubKey, scriptCode []byte, branchID uint32) bool

	// CheckLockTime reports whether the transaction satisfies the passed
	// lock time.
	CheckLockTime(lockTime int64) bool
}

// BaseSignatureChecker is a SignatureChecker without a transaction.  Every
// check fails, which makes it suitable for evaluating scripts that must not
// contain signature or lock time checks that succeed.
type BaseSignatureChecker struct{}

// Ensure BaseSignatureChecker implements the SignatureChecker interface.
var _ SignatureChecker = BaseSignatureChecker{}

// VerifySignature always returns false.
func (BaseSignatureChecker) VerifySignature([]byte, *btcec.PublicKey,
	*chainhash.Hash) bool {

	return false
}

// CheckSig always returns false.
func (BaseSignatureChecker) CheckSig([]byte, []byte, []byte, uint32) bool {
	return false
}

// CheckLockTime always returns false.
func (BaseSignatureChecker) CheckLockTime(int64) bool {
	return false
}

// TxSignatureChecker checks signatures and lock times against one input of a
// transaction.
type TxSignatureChecker struct {
	tx       *wire.MsgTx
	idx      InputIndex
	amount   int64
	txData   *PrecomputedTxData
	sigCache *SigCache
}

// Ensure TxSignatureChecker implements the SignatureChecker interface.
var _ SignatureChecker = (*TxSignatureChecker)(nil)

// NewTxSignatureChecker returns a checker for the input idx of tx, which
// spends an output worth amount.  The transaction must not be modified while
// the checker is in use.  txData and sigCache are optional.  When txData is
// nil and tx is overwintered the component hashes are computed here once.
func NewTxSignatureChecker(tx *wire.MsgTx, idx InputIndex, amount int64,
	txData *PrecomputedTxData, sigCache *SigCache) *TxSignatureChecker {

	if txData == nil && tx.Overwintered {
		// A transaction whose component hashes cannot be computed has
		// no valid signatures, which SignatureHash reports on use.
		txData, _ = NewPrecomputedTxData(tx)
	}

	return &TxSignatureChecker{
		tx:       tx,
		idx:      idx,
		amount:   amount,
		txData:   txData,
		sigCache: sigCache,
	}
}

// VerifySignature parses sig leniently and verifies it.  Successful
// verifications are recorded in, and first looked up from, the signature
// cache when one is configured.
func (c *TxSignatureChecker) VerifySignature(sig []byte,
	pubKey *btcec.PublicKey, hash *chainhash.Hash) bool {

	var pkBytes []byte
	if c.sigCache != nil {
		pkBytes = pubKey.SerializeCompressed()
		if c.sigCache.Exists(*hash, sig, pkBytes) {
			return true
		}
	}

	signature, err := ecdsa.ParseSignature(sig)
	if err != nil {
		return false
	}
	if !signature.Verify(hash[:], pubKey) {
		return false
	}

	if c.sigCache != nil {
		c.sigCache.Add(*hash, sig, pkBytes)
	}
	return true
}

// CheckSig implements the SignatureChecker interface.
func (c *TxSignatureChecker) CheckSig(sig, pubKey, scriptCode []byte,
	branchID uint32) bool {

	pk, err := btcec.ParsePubKey(pubKey)
	if err != nil {
		return false
	}

	if len(sig) == 0 {
		return false
	}
	hashType := SigHashType(sig[len(sig)-1])
	sig = sig[:len(sig)-1]

	sigHash, err := SignatureHash(scriptCode, c.tx, c.idx, hashType,
		c.amount, branchID, c.txData)
	if err != nil {
		log.Tracef("unable to compute signature hash for input %v: %v",
			c.idx, err)
		return false
	}

	return c.VerifySignature(sig, pk, &sigHash)
}

// CheckLockTime returns whether the transaction lock time is at least
// lockTime, with both values in the same domain: block heights or unix
// timestamps.  A lock time is only enforced when the input is not final, so
// an input with the max sequence number fails the check.
func (c *TxSignatureChecker) CheckLockTime(lockTime int64) bool {
	i, ok := c.idx.Index()
	if !ok || i < 0 || i >= len(c.tx.TxIn) {
		return false
	}

	txLockTime := int64(c.tx.LockTime)
	if (txLockTime < LockTimeThreshold) != (lockTime < LockTimeThreshold) {
		return false
	}
	if lockTime > txLockTime {
		return false
	}

	return c.tx.TxIn[i].Sequence != wire.MaxTxInSequenceNum
}

// MutableTxSignatureChecker is a TxSignatureChecker over a private copy of a
// transaction, so the caller remains free to modify the original.
type MutableTxSignatureChecker struct {
	TxSignatureChecker
}

// NewMutableTxSignatureChecker returns a checker over a deep copy of tx.
func NewMutableTxSignatureChecker(tx *wire.MsgTx, idx InputIndex,
	amount int64) *MutableTxSignatureChecker {

	return &MutableTxSignatureChecker{
		TxSignatureChecker: *NewTxSignatureChecker(tx.Copy(), idx,
			amount, nil, nil),
	}
}
