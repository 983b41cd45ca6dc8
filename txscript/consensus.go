// Copyright (c) 2015-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

const (
	// LockTimeThreshold is the number below which a lock time is
	// interpreted to be a block number.  Since an average of one block
	// is generated per 10 minutes, this allows blocks for about 9,512
	// years.
	LockTimeThreshold = 5e8 // Tue Nov 5 00:53:20 1985 UTC
)

// StandardVerifyFlags are the script flags used when relaying and mining
// transactions.  Consensus only requires ScriptBip16 and
// ScriptVerifyCheckLockTimeVerify; the remaining flags remove sources of
// malleability and reserve upgradable opcodes.
const StandardVerifyFlags = ScriptBip16 |
	ScriptVerifyCheckLockTimeVerify |
	ScriptVerifyDERSignatures |
	ScriptVerifyStrictEncoding |
	ScriptVerifyMinimalData |
	ScriptStrictMultiSig |
	ScriptDiscourageUpgradableNops |
	ScriptVerifyCleanStack |
	ScriptVerifyLowS

// ConsensusVerifyFlags are the script flags every valid block satisfies.
const ConsensusVerifyFlags = ScriptBip16 | ScriptVerifyCheckLockTimeVerify
