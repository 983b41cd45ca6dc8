// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2015-2019 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"bytes"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/stretchr/testify/require"

	"github.com/zecsuite/zscript/wire"
)

// derSig returns the DER encoding of the passed R and S integers without any
// checks on their encoding.
func derSig(r, s []byte) []byte {
	sig := []byte{asn1SequenceID, byte(4 + len(r) + len(s))}
	sig = append(sig, asn1IntegerID, byte(len(r)))
	sig = append(sig, r...)
	sig = append(sig, asn1IntegerID, byte(len(s)))
	return append(sig, s...)
}

// withByte returns a copy of b with the byte at offset i replaced by v.
func withByte(b []byte, i int, v byte) []byte {
	dup := append([]byte(nil), b...)
	dup[i] = v
	return dup
}

// TestCheckSignatureEncoding ensures the DER and low S rules are enforced
// exactly when one of the signature encoding flags is set.
func TestCheckSignatureEncoding(t *testing.T) {
	t.Parallel()

	r := append([]byte{0x4e}, bytes.Repeat([]byte{0x11}, 31)...)
	s := append([]byte{0x2a}, bytes.Repeat([]byte{0x22}, 31)...)
	valid := derSig(r, s)

	// The half order of the group and the value just above it.
	halfOrder := hexToBytes("7fffffffffffffffffffffffffffffff5d576e7357a4501ddfe92f46681b20a0")
	overHalfOrder := hexToBytes("7fffffffffffffffffffffffffffffff5d576e7357a4501ddfe92f46681b20a1")
	overOrder := append([]byte{0x00}, bytes.Repeat([]byte{0xff}, 32)...)

	const (
		der    = ScriptVerifyDERSignatures
		lowS   = ScriptVerifyLowS
		strict = ScriptVerifyStrictEncoding
	)

	tests := []struct {
		name  string
		sig   []byte
		flags []ScriptFlags
		err   error
	}{
		{"valid", valid, []ScriptFlags{0, der, lowS, strict}, nil},
		{"valid R padding", derSig(append([]byte{0x00, 0x80}, r[1:]...), s),
			[]ScriptFlags{der, lowS, strict}, nil},
		{"high S value", derSig(r, overHalfOrder),
			[]ScriptFlags{0, der, strict}, nil},
		{"half order S value", derSig(r, halfOrder),
			[]ScriptFlags{der, lowS}, nil},
		{"garbage without flags", []byte{0x01},
			[]ScriptFlags{0, ScriptBip16 | ScriptVerifyMinimalData}, nil},
		{"too short", valid[:7], []ScriptFlags{der, lowS, strict},
			ErrSigTooShort},
		{"too long", append(valid, bytes.Repeat([]byte{0x01}, 3)...),
			[]ScriptFlags{der, lowS, strict}, ErrSigTooLong},
		{"bad sequence id", withByte(valid, 0, 0x31),
			[]ScriptFlags{der, lowS, strict}, ErrSigInvalidSeqID},
		{"bad data length", withByte(valid, 1, 0x45),
			[]ScriptFlags{der, lowS, strict}, ErrSigInvalidDataLen},
		{"S type missing", withByte(valid, 3, 0x42),
			[]ScriptFlags{der, lowS, strict}, ErrSigMissingSTypeID},
		{"S length missing", withByte(valid, 3, 0x41),
			[]ScriptFlags{der, lowS, strict}, ErrSigMissingSLen},
		{"invalid S length", withByte(valid, 37, 0x21),
			[]ScriptFlags{der, lowS, strict}, ErrSigInvalidSLen},
		{"bad R integer id", withByte(valid, 2, 0x03),
			[]ScriptFlags{der, lowS, strict}, ErrSigInvalidRIntID},
		{"zero R length", derSig(nil, s),
			[]ScriptFlags{der, lowS, strict}, ErrSigZeroRLen},
		{"negative R", derSig(append([]byte{0x80}, r[1:]...), s),
			[]ScriptFlags{der, lowS, strict}, ErrSigNegativeR},
		{"too much R padding", derSig(append([]byte{0x00, 0x01}, r[1:]...), s),
			[]ScriptFlags{der, lowS, strict}, ErrSigTooMuchRPadding},
		{"bad S integer id", withByte(valid, 36, 0x03),
			[]ScriptFlags{der, lowS, strict}, ErrSigInvalidSIntID},
		{"zero S length", derSig(r, nil),
			[]ScriptFlags{der, lowS, strict}, ErrSigZeroSLen},
		{"negative S", derSig(r, append([]byte{0x80}, s[1:]...)),
			[]ScriptFlags{der, lowS, strict}, ErrSigNegativeS},
		{"too much S padding", derSig(r, append([]byte{0x00, 0x01}, s[1:]...)),
			[]ScriptFlags{der, lowS, strict}, ErrSigTooMuchSPadding},
		{"high S with low S rule", derSig(r, overHalfOrder),
			[]ScriptFlags{lowS, lowS | der | strict}, ErrSigHighS},
		{"S over the group order", derSig(r, overOrder),
			[]ScriptFlags{lowS}, ErrSigHighS},
	}

	for _, test := range tests {
		for _, flags := range test.flags {
			vm := &Engine{flags: flags}
			err := vm.checkSignatureEncoding(test.sig)
			if test.err == nil {
				require.NoError(t, err, "%s (flags %#x)", test.name,
					uint32(flags))
				continue
			}
			require.ErrorIs(t, err, test.err, "%s (flags %#x)",
				test.name, uint32(flags))
		}
	}
}

// TestCheckHashTypeEncoding ensures only the defined hash types are accepted
// with strict encoding and that no other flag restricts them.
func TestCheckHashTypeEncoding(t *testing.T) {
	t.Parallel()

	valid := []SigHashType{0x01, 0x02, 0x03, 0x81, 0x82, 0x83}
	invalid := []SigHashType{0x00, 0x04, 0x1f, 0x41, 0x80, 0x84, 0xff}

	strictVM := &Engine{flags: ScriptVerifyStrictEncoding}
	lenientVMs := []*Engine{
		{},
		{flags: ScriptVerifyDERSignatures | ScriptVerifyLowS},
	}

	for _, hashType := range valid {
		require.NoError(t, strictVM.checkHashTypeEncoding(hashType),
			"hash type %#x", uint32(hashType))
	}
	for _, hashType := range invalid {
		require.ErrorIs(t, strictVM.checkHashTypeEncoding(hashType),
			ErrInvalidSigHashType, "hash type %#x", uint32(hashType))
		for _, vm := range lenientVMs {
			require.NoError(t, vm.checkHashTypeEncoding(hashType),
				"hash type %#x", uint32(hashType))
		}
	}
}

// TestCheckPubKeyEncoding ensures only compressed and uncompressed public keys
// are accepted with strict encoding.
func TestCheckPubKeyEncoding(t *testing.T) {
	t.Parallel()

	key := testKey(5).PubKey()
	hybrid := withByte(key.SerializeUncompressed(), 0, 0x06)

	tests := []struct {
		name  string
		key   []byte
		valid bool
	}{
		{"compressed", key.SerializeCompressed(), true},
		{"uncompressed", key.SerializeUncompressed(), true},
		{"hybrid", hybrid, false},
		{"compressed with uncompressed prefix",
			withByte(key.SerializeCompressed(), 0, 0x04), false},
		{"empty", nil, false},
	}

	strictVM := &Engine{flags: ScriptVerifyStrictEncoding}
	derVM := &Engine{flags: ScriptVerifyDERSignatures}
	for _, test := range tests {
		err := strictVM.checkPubKeyEncoding(test.key)
		if test.valid {
			require.NoError(t, err, test.name)
		} else {
			require.ErrorIs(t, err, ErrPubKeyType, test.name)
		}
		require.NoError(t, derVM.checkPubKeyEncoding(test.key), test.name)
	}
}

// TestVerifyHighSSignature ensures the complement of a valid signature is
// still a valid signature, which only the low S rule rejects.
func TestVerifyHighSSignature(t *testing.T) {
	t.Parallel()

	const amount = 7000

	key := testKey(4)
	pkScript := PayToPubKeyScript(key.PubKey().SerializeCompressed())
	tx := wire.NewSaplingMsgTx()
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&chainhash.Hash{9}, 0), nil))
	tx.AddTxOut(wire.NewTxOut(1000, []byte{OP_TRUE}))

	sigHash, err := SignatureHash(pkScript, tx, Input(0), SigHashAll,
		amount, testBranchID, nil)
	require.NoError(t, err)
	lowSig := ecdsa.Sign(key, sigHash[:]).Serialize()

	// Split the DER encoding and replace S with N - S.
	rLen := int(lowSig[rLenOffset])
	rBytes := lowSig[rOffset : rOffset+rLen]
	sBytes := lowSig[rOffset+rLen+2:]
	var sScalar secp256k1.ModNScalar
	require.False(t, sScalar.SetByteSlice(sBytes))
	sScalar.Negate()
	highS := sScalar.Bytes()
	highSBytes := highS[:]
	if highSBytes[0]&0x80 != 0 {
		highSBytes = append([]byte{0x00}, highSBytes...)
	}
	highSig := derSig(rBytes, highSBytes)

	checker := NewTxSignatureChecker(tx, Input(0), amount, nil, nil)
	tests := []struct {
		name  string
		sig   []byte
		flags ScriptFlags
		err   error
	}{
		{"low S standard", lowSig, StandardVerifyFlags, nil},
		{"high S consensus", highSig, ConsensusVerifyFlags, nil},
		{"high S DER only", highSig, ScriptVerifyDERSignatures, nil},
		{"high S strict encoding", highSig, ScriptVerifyStrictEncoding, nil},
		{"high S low S rule", highSig, ScriptVerifyLowS, ErrSigHighS},
		{"high S standard", highSig, StandardVerifyFlags, ErrSigHighS},
	}

	for _, test := range tests {
		sigScript := NewScriptBuilder().AddData(append(test.sig,
			byte(SigHashAll))).Script()
		err := VerifyScript(sigScript, pkScript, test.flags, checker,
			testBranchID)
		if test.err == nil {
			require.NoError(t, err, test.name)
			continue
		}
		require.ErrorIs(t, err, test.err, test.name)
	}
}
