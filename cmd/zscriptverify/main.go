// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	flags "github.com/jessevdk/go-flags"

	"github.com/zecsuite/zscript/blockchain"
	"github.com/zecsuite/zscript/chaincfg"
	"github.com/zecsuite/zscript/txscript"
)

// verifyInput verifies a single input of the configured transaction.
func verifyInput(cfg *config, sigCache *txscript.SigCache) error {
	tx := cfg.tx
	txIn := tx.TxIn[cfg.Input]
	prevOut := cfg.prevOuts[cfg.Input]

	txData, err := txscript.NewPrecomputedTxData(tx)
	if err != nil {
		return err
	}
	checker := txscript.NewTxSignatureChecker(tx, txscript.Input(cfg.Input),
		prevOut.Value, txData, sigCache)
	err = txscript.VerifyScript(txIn.SignatureScript, prevOut.PkScript,
		cfg.scriptFlags, checker, cfg.branchID)
	if err != nil {
		return fmt.Errorf("input %d: %w", cfg.Input, err)
	}

	log.Infof("Input %d of transaction %s verified", cfg.Input,
		tx.TxHash())
	return nil
}

// verifyTx verifies every input of the configured transaction.
func verifyTx(cfg *config, sigCache *txscript.SigCache) error {
	tx := cfg.tx
	prevOuts := blockchain.NewMultiPrevOutFetcher(nil)
	for i, txIn := range tx.TxIn {
		prevOuts.AddPrevOut(txIn.PreviousOutPoint, cfg.prevOuts[i])
	}

	err := blockchain.ValidateTransactionScripts(tx, prevOuts,
		cfg.scriptFlags, cfg.branchID, sigCache)
	if err != nil {
		return err
	}

	log.Infof("All %d inputs of transaction %s verified", len(tx.TxIn),
		tx.TxHash())
	return nil
}

// realMain is the real main function for the utility.  It is necessary to work
// around the fact that deferred functions do not run when os.Exit() is called.
func realMain(args []string) error {
	// Load configuration and parse command line.
	cfg, _, err := loadConfig(args)
	if err != nil {
		return err
	}

	// Setup logging.
	defer os.Stdout.Sync()
	if cfg.LogDir != "" {
		err := initLogRotator(filepath.Join(cfg.LogDir, defaultLogFilename))
		if err != nil {
			return err
		}
		defer func() {
			logRotator.Close()
			logRotator = nil
		}()
	}

	upgrade, ok := chaincfg.UpgradeForBranchID(cfg.branchID)
	if !ok {
		upgrade = "unknown upgrade"
	}
	log.Debugf("Verifying with script flags %#x under branch id %#08x (%s)",
		uint32(cfg.scriptFlags), cfg.branchID, upgrade)

	sigCache := txscript.NewSigCache(cfg.SigCacheSize)
	if cfg.Input >= 0 {
		err = verifyInput(cfg, sigCache)
	} else {
		err = verifyTx(cfg, sigCache)
	}
	if err != nil {
		log.Errorf("Verification failed: %v", err)
	}
	return err
}

func main() {
	if err := realMain(os.Args[1:]); err != nil {
		var e *flags.Error
		if errors.As(err, &e) && e.Type == flags.ErrHelp {
			return
		}
		if errors.Is(err, errShowSubsystems) {
			return
		}
		os.Exit(1)
	}
}
