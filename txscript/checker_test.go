// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"bytes"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/stretchr/testify/require"

	"github.com/zecsuite/zscript/wire"
)

// testKey returns a deterministic private key derived from seed.
func testKey(seed byte) *btcec.PrivateKey {
	key, _ := btcec.PrivKeyFromBytes(bytes.Repeat([]byte{seed}, 32))
	return key
}

const testBranchID = 0x76b809bb

// TestTxSignatureCheckerCheckSig ensures signatures made by RawTxInSignature
// are accepted and that every committed value is enforced.
func TestTxSignatureCheckerCheckSig(t *testing.T) {
	t.Parallel()

	key := testKey(1)
	pubKey := key.PubKey().SerializeCompressed()

	for _, tx := range []*wire.MsgTx{
		populateTestTx(wire.NewMsgTx(1)),
		populateTestTx(wire.NewOverwinterMsgTx()),
		populateTestTx(wire.NewSaplingMsgTx()),
	} {
		version := SignatureHashVersion(tx)
		sig, err := RawTxInSignature(tx, 1, testPkScript, SigHashAll,
			2000, testBranchID, key)
		require.NoError(t, err, version)
		require.Equal(t, byte(SigHashAll), sig[len(sig)-1], version)

		checker := NewTxSignatureChecker(tx, Input(1), 2000, nil, nil)
		require.True(t, checker.CheckSig(sig, pubKey, testPkScript,
			testBranchID), version)

		// The uncompressed encoding of the same key works as well.
		require.True(t, checker.CheckSig(sig,
			key.PubKey().SerializeUncompressed(), testPkScript,
			testBranchID), version)

		// Another input commits to a different digest.
		other := NewTxSignatureChecker(tx, Input(0), 2000, nil, nil)
		require.False(t, other.CheckSig(sig, pubKey, testPkScript,
			testBranchID), version)

		// Another key.
		require.False(t, checker.CheckSig(sig,
			testKey(2).PubKey().SerializeCompressed(), testPkScript,
			testBranchID), version)

		// Another hash type byte.
		badType := append([]byte(nil), sig...)
		badType[len(badType)-1] = byte(SigHashNone)
		require.False(t, checker.CheckSig(badType, pubKey, testPkScript,
			testBranchID), version)

		// Malformed inputs never verify.
		require.False(t, checker.CheckSig(nil, pubKey, testPkScript,
			testBranchID), version)
		require.False(t, checker.CheckSig(sig, pubKey[:32], testPkScript,
			testBranchID), version)
		require.False(t, checker.CheckSig(sig[:10], pubKey, testPkScript,
			testBranchID), version)

		// The amount and branch id only bind overwintered transactions.
		otherAmount := NewTxSignatureChecker(tx, Input(1), 2001, nil, nil)
		require.Equal(t, version == SigVersionSprout,
			otherAmount.CheckSig(sig, pubKey, testPkScript,
				testBranchID), version)
		require.Equal(t, version == SigVersionSprout,
			checker.CheckSig(sig, pubKey, testPkScript, 0x5ba81b19),
			version)
	}
}

// TestTxSignatureCheckerIndexErrors ensures a checker on an input the
// transaction does not have fails every signature check.
func TestTxSignatureCheckerIndexErrors(t *testing.T) {
	t.Parallel()

	key := testKey(3)
	tx := populateTestTx(wire.NewSaplingMsgTx())
	sig, err := RawTxInSignature(tx, 0, testPkScript, SigHashAll, 1000,
		testBranchID, key)
	require.NoError(t, err)

	pubKey := key.PubKey().SerializeCompressed()
	for _, idx := range []InputIndex{Input(2), Input(-1)} {
		checker := NewTxSignatureChecker(tx, idx, 1000, nil, nil)
		require.False(t, checker.CheckSig(sig, pubKey, testPkScript,
			testBranchID), idx)
	}
}

// TestTxSignatureCheckerSigCache ensures valid signatures are added to the
// signature cache and that cached signatures are accepted without
// verification.
func TestTxSignatureCheckerSigCache(t *testing.T) {
	t.Parallel()

	key := testKey(4)
	tx := populateTestTx(wire.NewSaplingMsgTx())
	sig, err := RawTxInSignature(tx, 0, testPkScript, SigHashAll, 1000,
		testBranchID, key)
	require.NoError(t, err)

	sigCache := NewSigCache(10)
	txData, err := NewPrecomputedTxData(tx)
	require.NoError(t, err)
	checker := NewTxSignatureChecker(tx, Input(0), 1000, txData, sigCache)

	pubKey := key.PubKey()
	require.True(t, checker.CheckSig(sig, pubKey.SerializeCompressed(),
		testPkScript, testBranchID))

	sigHash, err := SignatureHash(testPkScript, tx, Input(0), SigHashAll,
		1000, testBranchID, txData)
	require.NoError(t, err)
	rawSig := sig[:len(sig)-1]
	require.True(t, sigCache.Exists(sigHash, rawSig,
		pubKey.SerializeCompressed()))

	// An invalid signature is never cached.
	var otherHash chainhash.Hash
	otherHash[0] = 1
	require.False(t, checker.VerifySignature(rawSig, pubKey, &otherHash))
	require.False(t, sigCache.Exists(otherHash, rawSig,
		pubKey.SerializeCompressed()))

	// A cache hit is trusted.
	junk := []byte{0x30, 0x00}
	sigCache.Add(otherHash, junk, pubKey.SerializeCompressed())
	require.True(t, checker.VerifySignature(junk, pubKey, &otherHash))
}

// TestTxSignatureCheckerVerifySignature ensures raw signatures are verified
// against the passed digest.
func TestTxSignatureCheckerVerifySignature(t *testing.T) {
	t.Parallel()

	key := testKey(5)
	var hash chainhash.Hash
	hash[5] = 5
	sig := ecdsa.Sign(key, hash[:]).Serialize()

	checker := NewTxSignatureChecker(wire.NewMsgTx(1), NotAnInput, 0, nil,
		nil)
	require.True(t, checker.VerifySignature(sig, key.PubKey(), &hash))
	require.False(t, checker.VerifySignature(sig, testKey(6).PubKey(),
		&hash))
	require.False(t, checker.VerifySignature([]byte{1, 2, 3}, key.PubKey(),
		&hash))

	hash[0] = 1
	require.False(t, checker.VerifySignature(sig, key.PubKey(), &hash))
}

// TestTxSignatureCheckerCheckLockTime ensures lock times are only satisfied
// within the same domain, up to the transaction lock time and for non-final
// inputs.
func TestTxSignatureCheckerCheckLockTime(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		txLockTime uint32
		sequence   uint32
		idx        InputIndex
		lockTime   int64
		want       bool
	}{
		{"height below", 500, 0, Input(0), 499, true},
		{"height equal", 500, 0, Input(0), 500, true},
		{"height zero", 500, 0, Input(0), 0, true},
		{"height above", 500, 0, Input(0), 501, false},
		{"time against height", 500, 0, Input(0), LockTimeThreshold, false},
		{"time below", 600000000, 0, Input(0), LockTimeThreshold, true},
		{"time above", 600000000, 0, Input(0), 600000001, false},
		{"height against time", 600000000, 0, Input(0), 499, false},
		{"last height", LockTimeThreshold - 1, 0, Input(0),
			LockTimeThreshold - 1, true},
		{"final input", 500, wire.MaxTxInSequenceNum, Input(0), 1, false},
		{"non-final input", 500, wire.MaxTxInSequenceNum - 1, Input(0), 1,
			true},
		{"not an input", 500, 0, NotAnInput, 1, false},
		{"index out of range", 500, 0, Input(1), 1, false},
	}

	for _, test := range tests {
		tx := wire.NewMsgTx(1)
		txIn := wire.NewTxIn(&wire.OutPoint{}, nil)
		txIn.Sequence = test.sequence
		tx.AddTxIn(txIn)
		tx.LockTime = test.txLockTime

		checker := NewTxSignatureChecker(tx, test.idx, 0, nil, nil)
		require.Equal(t, test.want, checker.CheckLockTime(test.lockTime),
			test.name)
	}
}

// TestBaseSignatureChecker ensures the checker without a transaction rejects
// everything.
func TestBaseSignatureChecker(t *testing.T) {
	t.Parallel()

	key := testKey(6)
	var hash chainhash.Hash
	sig := ecdsa.Sign(key, hash[:]).Serialize()

	var checker BaseSignatureChecker
	require.False(t, checker.VerifySignature(sig, key.PubKey(), &hash))
	require.False(t, checker.CheckSig(append(sig, byte(SigHashAll)),
		key.PubKey().SerializeCompressed(), nil, 0))
	require.False(t, checker.CheckLockTime(0))
}

// TestMutableTxSignatureChecker ensures the mutable checker keeps verifying
// against the transaction as it was when the checker was created.
func TestMutableTxSignatureChecker(t *testing.T) {
	t.Parallel()

	key := testKey(7)
	tx := populateTestTx(wire.NewSaplingMsgTx())
	sig, err := RawTxInSignature(tx, 1, testPkScript, SigHashAll, 2000,
		testBranchID, key)
	require.NoError(t, err)

	checker := NewMutableTxSignatureChecker(tx, Input(1), 2000)
	tx.TxOut[0].Value++
	tx.LockTime = 0

	pubKey := key.PubKey().SerializeCompressed()
	require.True(t, checker.CheckSig(sig, pubKey, testPkScript, testBranchID))
	require.True(t, checker.CheckLockTime(500))

	// A regular checker sees the modification.
	regular := NewTxSignatureChecker(tx, Input(1), 2000, nil, nil)
	require.False(t, regular.CheckSig(sig, pubKey, testPkScript,
		testBranchID))
}
