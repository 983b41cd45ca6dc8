// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/require"

	"github.com/zecsuite/zscript/chaincfg"
	"github.com/zecsuite/zscript/txscript"
	"github.com/zecsuite/zscript/wire"
)

// spendFixture is a transaction spending pay-to-pubkey-hash outputs along with
// the outputs it spends.
type spendFixture struct {
	tx       *wire.MsgTx
	prevOuts *MultiPrevOutFetcher
	keys     []*btcec.PrivateKey
}

// newSpendFixture returns a Sapling transaction with one signed input per
// amount, each spending a distinct pay-to-pubkey-hash output of that amount.
func newSpendFixture(t *testing.T, seed byte, amounts ...int64) *spendFixture {
	t.Helper()

	f := &spendFixture{
		tx:       wire.NewSaplingMsgTx(),
		prevOuts: NewMultiPrevOutFetcher(nil),
	}
	pkScripts := make([][]byte, 0, len(amounts))
	for i, amount := range amounts {
		key, err := btcec.NewPrivateKey()
		require.NoError(t, err)
		pkScript, err := txscript.PayToPubKeyHashScript(btcutil.Hash160(
			key.PubKey().SerializeCompressed()))
		require.NoError(t, err)

		var hash chainhash.Hash
		hash[0], hash[1] = seed, byte(i)
		prevOut := wire.NewOutPoint(&hash, uint32(i))
		f.prevOuts.AddPrevOut(*prevOut, wire.NewTxOut(amount, pkScript))
		f.tx.AddTxIn(wire.NewTxIn(prevOut, nil))
		f.keys = append(f.keys, key)
		pkScripts = append(pkScripts, pkScript)
	}
	f.tx.AddTxOut(wire.NewTxOut(1000, pkScripts[0]))
	f.tx.ExpiryHeight = 500000

	for i, txIn := range f.tx.TxIn {
		sigScript, err := txscript.SignatureScript(f.tx, i, pkScripts[i],
			txscript.SigHashAll, amounts[i], chaincfg.BranchIDSapling,
			f.keys[i], true)
		require.NoError(t, err)
		txIn.SignatureScript = sigScript
	}
	return f
}

// requireRuleError ensures err is a RuleError with the given code.
func requireRuleError(t *testing.T, err error, code ErrorCode) RuleError {
	t.Helper()

	var rerr RuleError
	require.ErrorAs(t, err, &rerr, spew.Sdump(err))
	require.Equal(t, code, rerr.ErrorCode, rerr.Description)
	return rerr
}

// TestValidateTransactionScripts ensures every input of a transaction is
// validated against the output it spends.
func TestValidateTransactionScripts(t *testing.T) {
	t.Parallel()

	f := newSpendFixture(t, 1, 5000, 7000, 9000)
	sigCache := txscript.NewSigCache(100)
	require.NoError(t, ValidateTransactionScripts(f.tx, f.prevOuts,
		txscript.StandardVerifyFlags, chaincfg.BranchIDSapling, sigCache))
	require.NoError(t, ValidateTransactionScripts(f.tx, f.prevOuts,
		txscript.ConsensusVerifyFlags, chaincfg.BranchIDSapling, nil))

	// The signatures commit to the Sapling branch id.
	err := ValidateTransactionScripts(f.tx, f.prevOuts,
		txscript.StandardVerifyFlags, chaincfg.BranchIDOverwinter, sigCache)
	requireRuleError(t, err, ErrScriptValidation)
	require.ErrorIs(t, err, txscript.ErrEvalFalse)
}

// TestValidateTransactionScriptsFailures ensures failing inputs are reported
// with the expected rule error.
func TestValidateTransactionScriptsFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		modify func(f *spendFixture)
		code   ErrorCode
		err    error
	}{
		{
			name: "missing previous output",
			// The transaction is left untouched so the signature
			// of the other input stays valid.
			modify: func(f *spendFixture) {
				prevOut := f.tx.TxIn[0].PreviousOutPoint
				txOut := f.prevOuts.FetchPrevOutput(prevOut)
				f.prevOuts = NewMultiPrevOutFetcher(
					map[wire.OutPoint]*wire.TxOut{prevOut: txOut})
			},
			code: ErrMissingTxOut,
		},
		{
			name: "wrong amount",
			modify: func(f *spendFixture) {
				prevOut := f.tx.TxIn[0].PreviousOutPoint
				txOut := f.prevOuts.FetchPrevOutput(prevOut)
				f.prevOuts.AddPrevOut(prevOut, wire.NewTxOut(
					txOut.Value+1, txOut.PkScript))
			},
			code: ErrScriptValidation,
			err:  txscript.ErrEvalFalse,
		},
		{
			name: "modified output",
			modify: func(f *spendFixture) {
				f.tx.TxOut[0].Value++
			},
			code: ErrScriptValidation,
			err:  txscript.ErrEvalFalse,
		},
		{
			name: "swapped signature scripts",
			modify: func(f *spendFixture) {
				in := f.tx.TxIn
				in[0].SignatureScript, in[1].SignatureScript =
					in[1].SignatureScript, in[0].SignatureScript
			},
			code: ErrScriptValidation,
			err:  txscript.ErrEqualVerify,
		},
		{
			name: "malformed signature script",
			modify: func(f *spendFixture) {
				f.tx.TxIn[1].SignatureScript = []byte{txscript.OP_DATA_2}
			},
			code: ErrScriptMalformed,
			err:  txscript.ErrMalformedPush,
		},
		{
			name: "bad joinsplit",
			modify: func(f *spendFixture) {
				f.tx.JoinSplits = []*wire.JSDescription{{
					Proof: make([]byte, wire.PHGRProofSize),
				}}
			},
			code: ErrBadShieldedData,
		},
	}

	for _, test := range tests {
		f := newSpendFixture(t, 2, 1000, 2000)
		test.modify(f)

		err := ValidateTransactionScripts(f.tx, f.prevOuts,
			txscript.StandardVerifyFlags, chaincfg.BranchIDSapling, nil)
		rerr := requireRuleError(t, err, test.code)
		if test.err != nil {
			require.ErrorIs(t, err, test.err, test.name)
		} else {
			require.NotEmpty(t, rerr.Description, test.name)
		}
	}
}

// TestValidateTransactionScriptsMissingPrevOut ensures a missing spent output
// is reported for the input referencing it while the remaining inputs of the
// transaction validate.  The pool is run repeatedly since the first result to
// arrive is the one returned.
func TestValidateTransactionScriptsMissingPrevOut(t *testing.T) {
	t.Parallel()

	f := newSpendFixture(t, 5, 1000, 2000, 3000)
	missing := f.tx.TxIn[2].PreviousOutPoint
	prevOuts := NewMultiPrevOutFetcher(nil)
	for _, txIn := range f.tx.TxIn[:2] {
		op := txIn.PreviousOutPoint
		prevOuts.AddPrevOut(op, f.prevOuts.FetchPrevOutput(op))
	}

	for i := 0; i < 20; i++ {
		err := ValidateTransactionScripts(f.tx, prevOuts,
			txscript.StandardVerifyFlags, chaincfg.BranchIDSapling, nil)
		rerr := requireRuleError(t, err, ErrMissingTxOut)
		require.Contains(t, rerr.Description, missing.String())
		require.NoError(t, rerr.Unwrap())
	}

	// Supplying the output makes every input valid.
	prevOuts.AddPrevOut(missing, f.prevOuts.FetchPrevOutput(missing))
	require.NoError(t, ValidateTransactionScripts(f.tx, prevOuts,
		txscript.StandardVerifyFlags, chaincfg.BranchIDSapling, nil))
}

// TestCheckTransactionInputScripts ensures inputs of many transactions are
// validated as one batch and that coinbase transactions are skipped.
func TestCheckTransactionInputScripts(t *testing.T) {
	t.Parallel()

	coinbase := wire.NewSaplingMsgTx()
	coinbase.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&chainhash.Hash{},
		wire.MaxPrevOutIndex), []byte{0x51, 0x52}))
	coinbase.AddTxOut(wire.NewTxOut(625000000, []byte{txscript.OP_TRUE}))
	require.True(t, isCoinBase(coinbase))

	f1 := newSpendFixture(t, 3, 100, 200)
	f2 := newSpendFixture(t, 4, 300)
	prevOuts := NewMultiPrevOutFetcher(nil)
	for _, f := range []*spendFixture{f1, f2} {
		for _, txIn := range f.tx.TxIn {
			op := txIn.PreviousOutPoint
			prevOuts.AddPrevOut(op, f.prevOuts.FetchPrevOutput(op))
		}
	}

	txs := []*wire.MsgTx{coinbase, f1.tx, f2.tx}
	require.NoError(t, CheckTransactionInputScripts(txs, prevOuts,
		txscript.StandardVerifyFlags, chaincfg.BranchIDSapling, nil))
	require.NoError(t, CheckTransactionInputScripts(nil, prevOuts,
		txscript.StandardVerifyFlags, chaincfg.BranchIDSapling, nil))

	// A failure in any transaction fails the batch.
	f2.tx.LockTime++
	err := CheckTransactionInputScripts(txs, prevOuts,
		txscript.StandardVerifyFlags, chaincfg.BranchIDSapling, nil)
	requireRuleError(t, err, ErrScriptValidation)
}

// TestErrorCodeStringer tests the stringized output for the ErrorCode type.
func TestErrorCodeStringer(t *testing.T) {
	tests := []struct {
		in   ErrorCode
		want string
	}{
		{ErrMissingTxOut, "ErrMissingTxOut"},
		{ErrBadShieldedData, "ErrBadShieldedData"},
		{ErrScriptMalformed, "ErrScriptMalformed"},
		{ErrScriptValidation, "ErrScriptValidation"},
		{0xffff, "Unknown ErrorCode (65535)"},
	}

	for _, test := range tests {
		require.Equal(t, test.want, test.in.String())
	}
}

// TestRuleError tests the error output and unwrapping of the RuleError type.
func TestRuleError(t *testing.T) {
	plain := ruleError(ErrMissingTxOut, "missing", nil)
	require.Equal(t, "missing", plain.Error())
	require.NoError(t, plain.Unwrap())

	wrapped := ruleError(ErrScriptValidation, "failed",
		txscript.ErrCleanStack)
	require.Equal(t, "failed", wrapped.Error())
	require.ErrorIs(t, wrapped, txscript.ErrCleanStack)
}
