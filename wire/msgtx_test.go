// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"errors"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/require"
)

// testSaplingTx returns a Sapling transaction exercising every optional
// section of the format.
func testSaplingTx() *MsgTx {
	tx := NewSaplingMsgTx()
	tx.AddTxIn(&TxIn{
		PreviousOutPoint: OutPoint{Hash: chainhash.Hash{0x01}, Index: 3},
		SignatureScript:  []byte{0x51},
		Sequence:         0xfffffffe,
	})
	tx.AddTxOut(NewTxOut(5000, []byte{0x76, 0xa9}))
	tx.LockTime = 100
	tx.ExpiryHeight = 200
	tx.ValueBalance = -12345

	spend := &SpendDescription{}
	spend.Cv[0] = 0xaa
	spend.SpendAuthSig[63] = 0xbb
	tx.ShieldedSpends = append(tx.ShieldedSpends, spend)

	output := &OutputDescription{}
	output.Cmu[1] = 0xcc
	output.EncCiphertext[579] = 0xdd
	tx.ShieldedOutputs = append(tx.ShieldedOutputs, output)

	js := &JSDescription{VPubOld: 7, VPubNew: 9,
		Proof: make([]byte, GrothProofSize)}
	js.Proof[0] = 0xee
	js.Ciphertexts[1][600] = 0xff
	tx.JoinSplits = append(tx.JoinSplits, js)
	tx.JoinSplitPubKey[0] = 0x11
	tx.JoinSplitSig[0] = 0x22
	tx.BindingSig[0] = 0x33
	return tx
}

// TestTxSerializeFormats ensures each supported transaction format survives a
// serialize/deserialize cycle and that SerializeSize reports the encoded
// length.
func TestTxSerializeFormats(t *testing.T) {
	sprout := NewMsgTx(1)
	sprout.AddTxIn(NewTxIn(&OutPoint{Index: 1}, []byte{0x00}))
	sprout.AddTxOut(NewTxOut(1, nil))

	sproutJS := NewMsgTx(2)
	sproutJS.AddTxIn(NewTxIn(&OutPoint{Index: 1}, nil))
	sproutJS.JoinSplits = []*JSDescription{{Proof: make([]byte, PHGRProofSize)}}

	overwinter := NewOverwinterMsgTx()
	overwinter.AddTxIn(NewTxIn(&OutPoint{}, []byte{0x01, 0x02}))
	overwinter.ExpiryHeight = 42

	tests := []struct {
		name string
		tx   *MsgTx
	}{
		{"sprout v1", sprout},
		{"sprout v2 with joinsplit", sproutJS},
		{"overwinter v3", overwinter},
		{"sapling v4", testSaplingTx()},
	}

	for _, test := range tests {
		var buf bytes.Buffer
		require.NoError(t, test.tx.Serialize(&buf), test.name)
		require.Equal(t, buf.Len(), test.tx.SerializeSize(), test.name)

		var got MsgTx
		require.NoError(t, got.Deserialize(bytes.NewReader(buf.Bytes())),
			test.name)
		if got.TxHash() != test.tx.TxHash() {
			t.Fatalf("%s: mismatched tx after round trip:\n%s\n%s",
				test.name, spew.Sdump(got), spew.Sdump(test.tx))
		}
	}
}

// TestTxUnknownFormat ensures overwintered transactions with an unknown
// version group id are rejected.
func TestTxUnknownFormat(t *testing.T) {
	tx := NewSaplingMsgTx()
	tx.VersionGroupID = 0xdeadbeef

	var buf bytes.Buffer
	err := tx.Serialize(&buf)
	var msgErr *MessageError
	require.True(t, errors.As(err, &msgErr))

	raw := []byte{0x04, 0x00, 0x00, 0x80, 0xef, 0xbe, 0xad, 0xde}
	err = new(MsgTx).Deserialize(bytes.NewReader(raw))
	require.True(t, errors.As(err, &msgErr))
}

// TestTxCopy ensures a copied transaction shares no mutable state with the
// original.
func TestTxCopy(t *testing.T) {
	orig := testSaplingTx()
	origHash := orig.TxHash()

	cp := orig.Copy()
	require.Equal(t, origHash, cp.TxHash())

	cp.TxIn[0].SignatureScript[0] = 0x00
	cp.TxOut[0].PkScript[0] = 0x00
	cp.ShieldedSpends[0].Cv[0] = 0x00
	cp.ShieldedOutputs[0].Cmu[1] = 0x00
	cp.JoinSplits[0].Proof[0] = 0x00

	require.Equal(t, origHash, orig.TxHash())
	require.NotEqual(t, origHash, cp.TxHash())
}

// TestTxHeader ensures the overwintered flag is folded into the header.
func TestTxHeader(t *testing.T) {
	require.Equal(t, uint32(1), NewMsgTx(1).Header())
	require.Equal(t, uint32(0x80000004), NewSaplingMsgTx().Header())
	require.True(t, NewSaplingMsgTx().IsSaplingV4())
	require.False(t, NewSaplingMsgTx().IsOverwinterV3())
	require.True(t, NewOverwinterMsgTx().IsOverwinterV3())
	require.Equal(t, "sapling v4",
		TxVersionString(true, 4, SaplingVersionGroupID))
}
