// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import "fmt"

const (
	// SproutMinTxVersion is the minimum version of a pre-Overwinter
	// transaction.
	SproutMinTxVersion = 1

	// JoinSplitTxVersion is the first transaction version that carries
	// JoinSplit descriptions.
	JoinSplitTxVersion = 2

	// OverwinterTxVersion is the transaction version introduced by the
	// Overwinter network upgrade.
	OverwinterTxVersion = 3

	// SaplingTxVersion is the transaction version introduced by the
	// Sapling network upgrade.
	SaplingTxVersion = 4

	// OverwinterVersionGroupID is the version group id of Overwinter
	// transactions.
	OverwinterVersionGroupID uint32 = 0x03C48270

	// SaplingVersionGroupID is the version group id of Sapling
	// transactions.
	SaplingVersionGroupID uint32 = 0x892F2085

	// overwinterFlagMask is the bit of the serialized header that marks a
	// transaction as overwintered.
	overwinterFlagMask uint32 = 0x80000000

	// versionMask extracts the version from the serialized header.
	versionMask uint32 = 0x7FFFFFFF
)

// TxVersionString returns a human readable description of the transaction
// format selected by the passed header fields.
func TxVersionString(overwintered bool, version int32, groupID uint32) string {
	if !overwintered {
		return fmt.Sprintf("sprout v%d", version)
	}
	switch groupID {
	case OverwinterVersionGroupID:
		return fmt.Sprintf("overwinter v%d", version)
	case SaplingVersionGroupID:
		return fmt.Sprintf("sapling v%d", version)
	}
	return fmt.Sprintf("unknown v%d (group %08x)", version, groupID)
}
