// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package blockchain validates the transparent input scripts of transactions.

Every input of a transaction is verified against the public key script and
amount of the output it spends, under the consensus branch id the transaction
is validated for.  The inputs are validated concurrently by a pool of
goroutines sized to the number of processor cores, and the first failure stops
the whole batch.

The outputs being spent are supplied through the PrevOutputFetcher interface.
MultiPrevOutFetcher is a map backed implementation.

# Errors

Errors returned by this package are of type blockchain.RuleError.  The
ErrorCode field tells a missing previous output apart from a malformed or
failing script, and the underlying txscript error is reachable through
errors.Is and errors.As.
*/
package blockchain
