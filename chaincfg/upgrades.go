// Copyright (c) 2014-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package chaincfg defines the consensus branch ids of the known network
// upgrades.
//
// A consensus branch id personalizes the signature hash of transactions
// signed after the Overwinter upgrade, which prevents a transaction signed for
// one branch from being replayed on another.  Which branch is active at a
// given height is decided by the caller.
package chaincfg

import (
	"fmt"
	"sort"
	"strings"
)

// Consensus branch ids of the network upgrades.
const (
	BranchIDSprout     uint32 = 0
	BranchIDOverwinter uint32 = 0x5ba81b19
	BranchIDSapling    uint32 = 0x76b809bb
	BranchIDBlossom    uint32 = 0x2bb40e60
	BranchIDHeartwood  uint32 = 0xf5b9230b
	BranchIDCanopy     uint32 = 0xe9ff75a6
	BranchIDNU5        uint32 = 0xc2d6d0b4
)

// NetworkUpgrade describes a network upgrade and the branch id it activates.
type NetworkUpgrade struct {
	Name     string
	BranchID uint32
}

// NetworkUpgrades lists the known network upgrades in activation order.
var NetworkUpgrades = []NetworkUpgrade{
	{"sprout", BranchIDSprout},
	{"overwinter", BranchIDOverwinter},
	{"sapling", BranchIDSapling},
	{"blossom", BranchIDBlossom},
	{"heartwood", BranchIDHeartwood},
	{"canopy", BranchIDCanopy},
	{"nu5", BranchIDNU5},
}

// BranchIDForUpgrade returns the consensus branch id of the named upgrade.
// The lookup is case insensitive.
func BranchIDForUpgrade(name string) (uint32, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, upgrade := range NetworkUpgrades {
		if upgrade.Name == name {
			return upgrade.BranchID, nil
		}
	}

	names := make([]string, 0, len(NetworkUpgrades))
	for _, upgrade := range NetworkUpgrades {
		names = append(names, upgrade.Name)
	}
	sort.Strings(names)
	return 0, fmt.Errorf("unknown network upgrade %q (known: %s)", name,
		strings.Join(names, ", "))
}

// UpgradeForBranchID returns the name of the upgrade that activates the given
// branch id, or false when the id is unknown.
func UpgradeForBranchID(branchID uint32) (string, bool) {
	for _, upgrade := range NetworkUpgrades {
		if upgrade.BranchID == branchID {
			return upgrade.Name, true
		}
	}
	return "", false
}
