// Copyright (c) 2015-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"crypto/sha256"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/decred/dcrd/lru"
)

// sigCacheKey identifies a (sigHash, sig, pubKey) triple.  The triple is
// committed to by a single SHA256 digest so that every entry has the same
// small size no matter the encoding of the signature and public key.
type sigCacheKey [sha256.Size]byte

func makeSigCacheKey(sigHash chainhash.Hash, sig, pubKey []byte) sigCacheKey {
	h := sha256.New()
	h.Write(sigHash[:])
	h.Write(sig)
	h.Write(pubKey)

	var key sigCacheKey
	copy(key[:], h.Sum(nil))
	return key
}

// SigCache implements an ECDSA signature verification cache with a least
// recently used eviction policy.  Only valid signatures will be added to the
// cache.  The benefits of SigCache are two fold.  Firstly, usage of SigCache
// mitigates a DoS attack wherein an attack causes a victim's client to hang
// due to worst-case behavior triggered while processing attacker crafted
// invalid transactions.  Secondly, usage of the SigCache introduces a
// signature verification optimization which speeds up the validation of
// transactions within a block, if they've already been seen and verified
// within the mempool.
type SigCache struct {
	validSigs  lru.Cache
	maxEntries uint
}

// NewSigCache creates and initializes a new instance of SigCache.  Its sole
// parameter 'maxEntries' represents the maximum number of entries allowed to
// exist in the SigCache at any particular moment.  The least recently used
// entry is evicted to make room for new entries that would cause the number of
// entries in the cache to exceed the max.  A cache with no entries stores
// nothing.
func NewSigCache(maxEntries uint) *SigCache {
	return &SigCache{
		validSigs:  lru.NewCache(maxEntries),
		maxEntries: maxEntries,
	}
}

// Exists returns true if an existing entry of 'sig' over 'sigHash' for public
// key 'pubKey' is found within the SigCache.  Otherwise, false is returned.
//
// NOTE: This function is safe for concurrent access.
func (s *SigCache) Exists(sigHash chainhash.Hash, sig, pubKey []byte) bool {
	if s.maxEntries == 0 {
		return false
	}
	return s.validSigs.Contains(makeSigCacheKey(sigHash, sig, pubKey))
}

// Add adds an entry for a signature over 'sigHash' under public key 'pubKey'
// to the signature cache.
//
// NOTE: This function is safe for concurrent access.
func (s *SigCache) Add(sigHash chainhash.Hash, sig, pubKey []byte) {
	if s.maxEntries == 0 {
		return
	}
	s.validSigs.Add(makeSigCacheKey(sigHash, sig, pubKey))
}
