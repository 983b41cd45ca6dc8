// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"os"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/stretchr/testify/require"

	"github.com/zecsuite/zscript/wire"
)

// testVecF64ToUint32 properly handles conversion of float64s read from the
// JSON test data to unsigned 32-bit integers.  This is necessary because some
// of the test data uses -1 as a shortcut to mean max uint32 and direct
// conversion of a negative float to an unsigned int is implementation
// dependent and therefore doesn't result in the expected value on all
// platforms.  This function works around that limitation by converting to a
// 32-bit signed integer first and then to a 32-bit unsigned integer which
// results in the expected behavior on all platforms.
func testVecF64ToUint32(f float64) uint32 {
	return uint32(int32(f))
}

// TestCalcSignatureHash runs the signature hash vectors in sighash.json, which
// cover the legacy algorithm of version 1 and 2 transactions along with the
// ZIP-143 and ZIP-243 algorithms of Overwinter and Sapling transactions.  Each
// vector is checked both with and without precomputed transaction data.
func TestCalcSignatureHash(t *testing.T) {
	t.Parallel()

	file, err := os.ReadFile("data/sighash.json")
	require.NoError(t, err)

	var tests [][]interface{}
	require.NoError(t, json.Unmarshal(file, &tests))
	require.Greater(t, len(tests), 1)

	versions := make(map[SigVersion]int)
	for i, test := range tests {
		if i == 0 {
			// Skip first line -- contains comments only.
			continue
		}
		require.Len(t, test, 7, "test #%d", i)

		rawTx, err := hex.DecodeString(test[0].(string))
		require.NoError(t, err, "test #%d", i)
		var tx wire.MsgTx
		require.NoError(t, tx.Deserialize(bytes.NewReader(rawTx)),
			"test #%d", i)

		scriptCode, err := hex.DecodeString(test[1].(string))
		require.NoError(t, err, "test #%d", i)

		idx := NotAnInput
		if n := int(test[2].(float64)); n >= 0 {
			idx = Input(n)
		}
		hashType := SigHashType(testVecF64ToUint32(test[3].(float64)))
		amount := int64(test[4].(float64))
		branchID := uint32(test[5].(float64))
		want, err := chainhash.NewHashFromStr(test[6].(string))
		require.NoError(t, err, "test #%d", i)

		got, err := SignatureHash(scriptCode, &tx, idx, hashType, amount,
			branchID, nil)
		require.NoError(t, err, "test #%d", i)
		require.Equal(t, *want, got, "test #%d (%v, hash type %#x)", i,
			SignatureHashVersion(&tx), uint32(hashType))

		txData, err := NewPrecomputedTxData(&tx)
		require.NoError(t, err, "test #%d", i)
		got, err = SignatureHash(scriptCode, &tx, idx, hashType, amount,
			branchID, txData)
		require.NoError(t, err, "test #%d", i)
		require.Equal(t, *want, got, "test #%d with precomputed data", i)

		versions[SignatureHashVersion(&tx)]++
	}

	for _, v := range []SigVersion{SigVersionSprout, SigVersionOverwinter,
		SigVersionSapling} {

		require.NotZero(t, versions[v], "no %v vectors", v)
	}
}
