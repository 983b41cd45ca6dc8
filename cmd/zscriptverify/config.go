// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	flags "github.com/jessevdk/go-flags"

	"github.com/zecsuite/zscript/chaincfg"
	"github.com/zecsuite/zscript/txscript"
	"github.com/zecsuite/zscript/wire"
)

const (
	defaultLogFilename  = "zscriptverify.log"
	defaultLogLevel     = "info"
	defaultFlags        = "standard"
	defaultUpgrade      = "nu5"
	defaultSigCacheSize = 100000
)

var (
	appHomeDir    = btcutil.AppDataDir("zscriptverify", false)
	defaultLogDir = filepath.Join(appHomeDir, "logs")
)

// config defines the configuration options for zscriptverify.
//
// See loadConfig for details on the configuration load process.
type config struct {
	Tx           string   `short:"t" long:"tx" description:"Hex encoded serialized transaction to verify"`
	PrevOuts     []string `short:"p" long:"prevout" description:"Output spent by the next input as pkscripthex:amount -- Specify once per input in input order"`
	Input        int      `short:"i" long:"input" description:"Only verify the input with this index -- Use -1 to verify every input"`
	Flags        string   `short:"f" long:"flags" description:"Comma separated script verification flags, or one of standard, consensus and none"`
	BranchID     string   `long:"branchid" description:"Hex encoded consensus branch id the signatures commit to -- Overrides --upgrade"`
	Upgrade      string   `short:"u" long:"upgrade" description:"Network upgrade whose consensus branch id the signatures commit to"`
	SigCacheSize uint     `long:"sigcachesize" description:"The maximum number of entries in the signature verification cache"`
	LogDir       string   `long:"logdir" description:"Directory to log output -- Use an empty value to disable the log file"`
	DebugLevel   string   `short:"d" long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- You may also specify <subsystem>=<level>,<subsystem2>=<level>,... to set the log level for individual subsystems -- Use show to list available subsystems"`

	// The following are derived from the options above by loadConfig.
	tx          *wire.MsgTx
	prevOuts    []*wire.TxOut
	scriptFlags txscript.ScriptFlags
	branchID    uint32
}

// scriptFlagsByName maps the names accepted by --flags to script flags.
var scriptFlagsByName = map[string]txscript.ScriptFlags{
	"NONE":                       0,
	"P2SH":                       txscript.ScriptBip16,
	"STRICTENC":                  txscript.ScriptVerifyStrictEncoding,
	"DERSIG":                     txscript.ScriptVerifyDERSignatures,
	"LOW_S":                      txscript.ScriptVerifyLowS,
	"SIGPUSHONLY":                txscript.ScriptVerifySigPushOnly,
	"MINIMALDATA":                txscript.ScriptVerifyMinimalData,
	"NULLDUMMY":                  txscript.ScriptStrictMultiSig,
	"DISCOURAGE_UPGRADABLE_NOPS": txscript.ScriptDiscourageUpgradableNops,
	"CLEANSTACK":                 txscript.ScriptVerifyCleanStack,
	"CHECKLOCKTIMEVERIFY":        txscript.ScriptVerifyCheckLockTimeVerify,
	"STANDARD":                   txscript.StandardVerifyFlags,
	"CONSENSUS":                  txscript.ConsensusVerifyFlags,
}

// parseScriptFlags parses a comma separated list of script flag names.  Names
// are case insensitive and the named flag sets are combined.
func parseScriptFlags(s string) (txscript.ScriptFlags, error) {
	var scriptFlags txscript.ScriptFlags
	for _, name := range strings.Split(s, ",") {
		name = strings.ToUpper(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		flag, ok := scriptFlagsByName[name]
		if !ok {
			return 0, fmt.Errorf("unknown script flag %q", name)
		}
		scriptFlags |= flag
	}
	return scriptFlags, nil
}

// parsePrevOut parses an output given as pkscripthex:amount.  The amount is in
// zatoshi.
func parsePrevOut(s string) (*wire.TxOut, error) {
	scriptHex, amountStr, ok := strings.Cut(s, ":")
	if !ok {
		return nil, fmt.Errorf("previous output %q is not of the form "+
			"pkscripthex:amount", s)
	}
	pkScript, err := hex.DecodeString(scriptHex)
	if err != nil {
		return nil, fmt.Errorf("previous output script %q: %v",
			scriptHex, err)
	}
	amount, err := strconv.ParseInt(amountStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("previous output amount %q: %v",
			amountStr, err)
	}
	if amount < 0 {
		return nil, fmt.Errorf("previous output amount %d is negative",
			amount)
	}
	return wire.NewTxOut(amount, pkScript), nil
}

// parseBranchID returns the consensus branch id selected by the branchid and
// upgrade options.
func parseBranchID(branchID, upgrade string) (uint32, error) {
	if branchID == "" {
		return chaincfg.BranchIDForUpgrade(upgrade)
	}

	id, err := strconv.ParseUint(strings.TrimPrefix(branchID, "0x"), 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid branch id %q: %v", branchID, err)
	}
	return uint32(id), nil
}

// decodeTx decodes a hex encoded serialized transaction.  Trailing bytes are
// rejected.
func decodeTx(txHex string) (*wire.MsgTx, error) {
	serialized, err := hex.DecodeString(strings.TrimSpace(txHex))
	if err != nil {
		return nil, fmt.Errorf("transaction is not hex encoded: %v", err)
	}

	r := bytes.NewReader(serialized)
	var tx wire.MsgTx
	if err := tx.Deserialize(r); err != nil {
		return nil, err
	}
	if r.Len() != 0 {
		return nil, fmt.Errorf("%d unexpected bytes after the "+
			"transaction", r.Len())
	}
	return &tx, nil
}

// validLogLevel returns whether or not logLevel is a valid debug log level.
func validLogLevel(logLevel string) bool {
	switch logLevel {
	case "trace", "debug", "info", "warn", "error", "critical":
		return true
	}
	return false
}

// supportedSubsystems returns a sorted slice of the supported subsystems for
// logging purposes.
func supportedSubsystems() []string {
	subsystems := make([]string, 0, len(subsystemLoggers))
	for subsysID := range subsystemLoggers {
		subsystems = append(subsystems, subsysID)
	}
	sort.Strings(subsystems)
	return subsystems
}

// errShowSubsystems is returned by parseAndSetDebugLevels after the available
// subsystems were printed.
var errShowSubsystems = errors.New("subsystems listed")

// parseAndSetDebugLevels attempts to parse the specified debug level and set
// the levels accordingly.  An appropriate error is returned if anything is
// invalid.
func parseAndSetDebugLevels(debugLevel string) error {
	if debugLevel == "show" {
		fmt.Println("Supported subsystems", supportedSubsystems())
		return errShowSubsystems
	}

	// When the specified string doesn't have any delimiters, treat it as
	// the log level for all subsystems.
	if !strings.Contains(debugLevel, ",") && !strings.Contains(debugLevel, "=") {
		// Validate debug log level.
		if !validLogLevel(debugLevel) {
			str := "the specified debug level [%v] is invalid"
			return fmt.Errorf(str, debugLevel)
		}

		// Change the logging level for all subsystems.
		setLogLevels(debugLevel)

		return nil
	}

	// Split the specified string into subsystem/level pairs while detecting
	// issues and update the log levels accordingly.
	for _, logLevelPair := range strings.Split(debugLevel, ",") {
		if !strings.Contains(logLevelPair, "=") {
			str := "the specified debug level contains an invalid " +
				"subsystem/level pair [%v]"
			return fmt.Errorf(str, logLevelPair)
		}

		// Extract the specified subsystem and log level.
		fields := strings.Split(logLevelPair, "=")
		subsysID, logLevel := fields[0], fields[1]

		// Validate subsystem.
		if _, exists := subsystemLoggers[subsysID]; !exists {
			str := "the specified subsystem [%v] is invalid -- " +
				"supported subsystems %v"
			return fmt.Errorf(str, subsysID, supportedSubsystems())
		}

		// Validate log level.
		if !validLogLevel(logLevel) {
			str := "the specified debug level [%v] is invalid"
			return fmt.Errorf(str, logLevel)
		}

		setLogLevel(subsysID, logLevel)
	}

	return nil
}

// loadConfig initializes and parses the config using the passed command line
// arguments, then decodes the transaction, previous outputs, script flags and
// branch id they describe.
func loadConfig(args []string) (*config, []string, error) {
	// Default config.
	cfg := config{
		Input:        -1,
		Flags:        defaultFlags,
		Upgrade:      defaultUpgrade,
		SigCacheSize: defaultSigCacheSize,
		LogDir:       defaultLogDir,
		DebugLevel:   defaultLogLevel,
	}

	// Parse command line options.
	parser := flags.NewParser(&cfg, flags.Default)
	remainingArgs, err := parser.ParseArgs(args)
	if err != nil {
		var e *flags.Error
		if !errors.As(err, &e) || e.Type != flags.ErrHelp {
			parser.WriteHelp(os.Stderr)
		}
		return nil, nil, err
	}

	// usageError reports err along with the usage message.
	usageError := func(err error) (*config, []string, error) {
		err = fmt.Errorf("loadConfig: %w", err)
		fmt.Fprintln(os.Stderr, err)
		parser.WriteHelp(os.Stderr)
		return nil, nil, err
	}

	// Parse, validate, and set debug log level(s).
	if err := parseAndSetDebugLevels(cfg.DebugLevel); err != nil {
		if errors.Is(err, errShowSubsystems) {
			return nil, nil, err
		}
		return usageError(err)
	}

	if cfg.Tx == "" {
		return usageError(errors.New("a transaction must be specified " +
			"with --tx"))
	}
	cfg.tx, err = decodeTx(cfg.Tx)
	if err != nil {
		return usageError(err)
	}

	// Every input needs the output it spends.
	if len(cfg.PrevOuts) != len(cfg.tx.TxIn) {
		return usageError(fmt.Errorf("the transaction has %d inputs but "+
			"%d previous outputs were specified",
			len(cfg.tx.TxIn), len(cfg.PrevOuts)))
	}
	for _, s := range cfg.PrevOuts {
		prevOut, err := parsePrevOut(s)
		if err != nil {
			return usageError(err)
		}
		cfg.prevOuts = append(cfg.prevOuts, prevOut)
	}

	if cfg.Input < -1 || cfg.Input >= len(cfg.tx.TxIn) {
		return usageError(fmt.Errorf("input index %d is out of range "+
			"for a transaction with %d inputs", cfg.Input,
			len(cfg.tx.TxIn)))
	}

	cfg.scriptFlags, err = parseScriptFlags(cfg.Flags)
	if err != nil {
		return usageError(err)
	}
	cfg.branchID, err = parseBranchID(cfg.BranchID, cfg.Upgrade)
	if err != nil {
		return usageError(err)
	}

	return &cfg, remainingArgs, nil
}
