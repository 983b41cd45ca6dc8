// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"fmt"
	"runtime"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/zecsuite/zscript/txscript"
	"github.com/zecsuite/zscript/wire"
)

// txValidateItem holds a transaction along with which input to validate.
type txValidateItem struct {
	txInIndex int
	txIn      *wire.TxIn
	tx        *wire.MsgTx
	txData    *txscript.PrecomputedTxData
}

// txValidator provides a type which asynchronously validates transaction
// inputs.  It provides several channels for communication and a processing
// function that is intended to be in run multiple goroutines.
type txValidator struct {
	validateChan chan *txValidateItem
	quitChan     chan struct{}
	resultChan   chan error
	prevOuts     PrevOutputFetcher
	flags        txscript.ScriptFlags
	branchID     uint32
	sigCache     *txscript.SigCache
}

// sendResult sends the result of a script pair validation on the internal
// result channel while respecting the quit channel.  This allows orderly
// shutdown when the validation process is aborted early due to a validation
// error in one of the other goroutines.
func (v *txValidator) sendResult(result error) {
	select {
	case v.resultChan <- result:
	case <-v.quitChan:
	}
}

// isMalformedScriptError returns whether err reports a script that cannot be
// parsed rather than one that executed and failed.
func isMalformedScriptError(err error) bool {
	return txscript.IsErrorCode(err, txscript.ErrMalformedPush) ||
		txscript.IsErrorCode(err, txscript.ErrScriptTooBig)
}

// validateInput verifies the signature script of a single input against the
// public key script of the output it spends.
func (v *txValidator) validateInput(txVI *txValidateItem) error {
	txIn := txVI.txIn
	txHash := txVI.tx.TxHash()
	prevOut := v.prevOuts.FetchPrevOutput(txIn.PreviousOutPoint)
	if prevOut == nil {
		str := fmt.Sprintf("unable to find unspent output %v "+
			"referenced from transaction %s:%d",
			txIn.PreviousOutPoint, txHash, txVI.txInIndex)
		return ruleError(ErrMissingTxOut, str, nil)
	}

	sigScript := txIn.SignatureScript
	pkScript := prevOut.PkScript
	checker := txscript.NewTxSignatureChecker(txVI.tx,
		txscript.Input(txVI.txInIndex), prevOut.Value, txVI.txData,
		v.sigCache)
	err := txscript.VerifyScript(sigScript, pkScript, v.flags, checker,
		v.branchID)
	if err == nil {
		return nil
	}

	code, verb := ErrScriptValidation, "validate"
	if isMalformedScriptError(err) {
		code, verb = ErrScriptMalformed, "parse"
	}
	str := fmt.Sprintf("failed to %s input %s:%d which references "+
		"output %v - %v (input script bytes %x, prev output script "+
		"bytes %x)", verb, txHash, txVI.txInIndex,
		txIn.PreviousOutPoint, err, sigScript, pkScript)
	log.Debugf("%s", str)
	return ruleError(code, str, err)
}

// validateHandler consumes items to validate from the internal validate channel
// and returns the result of the validation on the internal result channel. It
// must be run as a goroutine.
func (v *txValidator) validateHandler() {
out:
	for {
		select {
		case txVI := <-v.validateChan:
			err := v.validateInput(txVI)
			v.sendResult(err)
			if err != nil {
				break out
			}

		case <-v.quitChan:
			break out
		}
	}
}

// Validate validates the scripts for all of the passed transaction inputs using
// multiple goroutines.
func (v *txValidator) Validate(items []*txValidateItem) error {
	if len(items) == 0 {
		return nil
	}

	// Limit the number of goroutines to do script validation based on the
	// number of processor cores.  This helps ensure the system stays
	// reasonably responsive under heavy load.
	maxGoRoutines := runtime.NumCPU() * 3
	if maxGoRoutines <= 0 {
		maxGoRoutines = 1
	}
	if maxGoRoutines > len(items) {
		maxGoRoutines = len(items)
	}

	// Start up validation handlers that are used to asynchronously
	// validate each transaction input.
	for i := 0; i < maxGoRoutines; i++ {
		go v.validateHandler()
	}

	// Validate each of the inputs.  The quit channel is closed when any
	// errors occur so all processing goroutines exit regardless of which
	// input had the validation error.
	numInputs := len(items)
	currentItem := 0
	processedItems := 0
	for processedItems < numInputs {
		// Only send items while there are still items that need to
		// be processed.  The select statement will never select a nil
		// channel.
		var validateChan chan *txValidateItem
		var item *txValidateItem
		if currentItem < numInputs {
			validateChan = v.validateChan
			item = items[currentItem]
		}

		select {
		case validateChan <- item:
			currentItem++

		case err := <-v.resultChan:
			processedItems++
			if err != nil {
				close(v.quitChan)
				return err
			}
		}
	}

	close(v.quitChan)
	return nil
}

// newTxValidator returns a new instance of txValidator to be used for
// validating transaction scripts asynchronously.
func newTxValidator(prevOuts PrevOutputFetcher, flags txscript.ScriptFlags,
	branchID uint32, sigCache *txscript.SigCache) *txValidator {

	return &txValidator{
		validateChan: make(chan *txValidateItem),
		quitChan:     make(chan struct{}),
		resultChan:   make(chan error),
		prevOuts:     prevOuts,
		flags:        flags,
		branchID:     branchID,
		sigCache:     sigCache,
	}
}

// zeroHash is the hash of the null outpoint spent by coinbase inputs.
var zeroHash chainhash.Hash

// isCoinBase returns whether tx is a coinbase transaction, which has a single
// input spending the null outpoint.  Coinbase inputs have no scripts to run.
func isCoinBase(tx *wire.MsgTx) bool {
	if len(tx.TxIn) != 1 {
		return false
	}
	prevOut := &tx.TxIn[0].PreviousOutPoint
	return prevOut.Index == wire.MaxPrevOutIndex &&
		prevOut.Hash.IsEqual(&zeroHash)
}

// appendValidateItems appends one item for every input of tx, sharing a
// single PrecomputedTxData.
func appendValidateItems(items []*txValidateItem,
	tx *wire.MsgTx) ([]*txValidateItem, error) {

	if isCoinBase(tx) {
		return items, nil
	}

	txData, err := txscript.NewPrecomputedTxData(tx)
	if err != nil {
		str := fmt.Sprintf("unable to commit to the shielded data of "+
			"transaction %s: %v", tx.TxHash(), err)
		return nil, ruleError(ErrBadShieldedData, str, err)
	}

	for txInIdx, txIn := range tx.TxIn {
		items = append(items, &txValidateItem{
			txInIndex: txInIdx,
			txIn:      txIn,
			tx:        tx,
			txData:    txData,
		})
	}
	return items, nil
}

// ValidateTransactionScripts validates the scripts for the passed transaction
// using multiple goroutines.  prevOuts supplies the script and amount of every
// spent output, branchID is the consensus branch id the transaction is
// validated under and sigCache, which may be nil, is shared by every input.
func ValidateTransactionScripts(tx *wire.MsgTx, prevOuts PrevOutputFetcher,
	flags txscript.ScriptFlags, branchID uint32,
	sigCache *txscript.SigCache) error {

	return CheckTransactionInputScripts([]*wire.MsgTx{tx}, prevOuts, flags,
		branchID, sigCache)
}

// CheckTransactionInputScripts executes and validates the scripts for all
// inputs of all passed transactions, such as those of a block, as a single
// batch.  The first failure found is returned.
func CheckTransactionInputScripts(txs []*wire.MsgTx,
	prevOuts PrevOutputFetcher, flags txscript.ScriptFlags, branchID uint32,
	sigCache *txscript.SigCache) error {

	// Collect all of the transaction inputs and required information for
	// validation for all transactions into a single slice.
	numInputs := 0
	for _, tx := range txs {
		numInputs += len(tx.TxIn)
	}
	txValItems := make([]*txValidateItem, 0, numInputs)
	for _, tx := range txs {
		var err error
		txValItems, err = appendValidateItems(txValItems, tx)
		if err != nil {
			return err
		}
	}

	// Validate all of the inputs.
	validator := newTxValidator(prevOuts, flags, branchID, sigCache)
	return validator.Validate(txValItems)
}
