// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"fmt"
	"io"
	"strconv"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

const (
	// MaxTxInSequenceNum is the maximum sequence number the sequence field
	// of a transaction input can be.
	MaxTxInSequenceNum uint32 = 0xffffffff

	// MaxPrevOutIndex is the maximum index the index field of a previous
	// outpoint can be.
	MaxPrevOutIndex uint32 = 0xffffffff

	// minTxInPayload is the minimum payload size for a transaction input.
	// PreviousOutPoint.Hash + PreviousOutPoint.Index 4 bytes + Varint for
	// SignatureScript length 1 byte + Sequence 4 bytes.
	minTxInPayload = 9 + chainhash.HashSize

	// maxTxInPerMessage is the maximum number of transactions inputs that
	// a transaction which fits into a message could possibly have.
	maxTxInPerMessage = (MaxMessagePayload / minTxInPayload) + 1

	// MinTxOutPayload is the minimum payload size for a transaction output.
	// Value 8 bytes + Varint for PkScript length 1 byte.
	MinTxOutPayload = 9

	// maxTxOutPerMessage is the maximum number of transactions outputs that
	// a transaction which fits into a message could possibly have.
	maxTxOutPerMessage = (MaxMessagePayload / MinTxOutPayload) + 1

	// maxShieldedPerMessage bounds the number of spends, outputs and
	// joinsplits decoded from a single transaction.
	maxShieldedPerMessage = MaxMessagePayload / outputDescriptionSize
)

// OutPoint defines a data type that is used to track previous transaction
// outputs.
type OutPoint struct {
	Hash  chainhash.Hash
	Index uint32
}

// NewOutPoint returns a new transaction outpoint point with the provided
// hash and index.
func NewOutPoint(hash *chainhash.Hash, index uint32) *OutPoint {
	return &OutPoint{
		Hash:  *hash,
		Index: index,
	}
}

// String returns the OutPoint in the human-readable form "hash:index".
func (o OutPoint) String() string {
	// Allocate enough for hash string, colon, and 10 digits.
	buf := make([]byte, 2*chainhash.HashSize+1, 2*chainhash.HashSize+1+10)
	copy(buf, o.Hash.String())
	buf[2*chainhash.HashSize] = ':'
	buf = strconv.AppendUint(buf, uint64(o.Index), 10)
	return string(buf)
}

// WriteOutPoint encodes op to w.
func WriteOutPoint(w io.Writer, op *OutPoint) error {
	if _, err := w.Write(op.Hash[:]); err != nil {
		return err
	}
	return writeUint32(w, op.Index)
}

func readOutPoint(r io.Reader, op *OutPoint) error {
	if err := readHash(r, &op.Hash); err != nil {
		return err
	}
	index, err := readUint32(r)
	if err != nil {
		return err
	}
	op.Index = index
	return nil
}

// TxIn defines a transaction input.
type TxIn struct {
	PreviousOutPoint OutPoint
	SignatureScript  []byte
	Sequence         uint32
}

// SerializeSize returns the number of bytes it would take to serialize the
// the transaction input.
func (t *TxIn) SerializeSize() int {
	// Outpoint Hash 32 bytes + Outpoint Index 4 bytes + Sequence 4 bytes +
	// serialized varint size for the length of SignatureScript +
	// SignatureScript bytes.
	return 40 + VarIntSerializeSize(uint64(len(t.SignatureScript))) +
		len(t.SignatureScript)
}

// NewTxIn returns a new transaction input with the provided previous outpoint
// point and signature script with a default sequence of MaxTxInSequenceNum.
func NewTxIn(prevOut *OutPoint, signatureScript []byte) *TxIn {
	return &TxIn{
		PreviousOutPoint: *prevOut,
		SignatureScript:  signatureScript,
		Sequence:         MaxTxInSequenceNum,
	}
}

// TxOut defines a transaction output.
type TxOut struct {
	Value    int64
	PkScript []byte
}

// SerializeSize returns the number of bytes it would take to serialize the
// the transaction output.
func (t *TxOut) SerializeSize() int {
	// Value 8 bytes + serialized varint size for the length of PkScript +
	// PkScript bytes.
	return 8 + VarIntSerializeSize(uint64(len(t.PkScript))) + len(t.PkScript)
}

// NewTxOut returns a new transaction output with the provided transaction
// value and public key script.
func NewTxOut(value int64, pkScript []byte) *TxOut {
	return &TxOut{
		Value:    value,
		PkScript: pkScript,
	}
}

// WriteTxOut encodes to into w.
func WriteTxOut(w io.Writer, to *TxOut) error {
	if err := writeUint64(w, uint64(to.Value)); err != nil {
		return err
	}
	return WriteVarBytes(w, to.PkScript)
}

// MsgTx represents a transaction in any of the Sprout, Overwinter and Sapling
// formats.
//
// Use the AddTxIn and AddTxOut functions to build up the list of transaction
// inputs and outputs.
type MsgTx struct {
	Overwintered    bool
	Version         int32
	VersionGroupID  uint32
	TxIn            []*TxIn
	TxOut           []*TxOut
	LockTime        uint32
	ExpiryHeight    uint32
	ValueBalance    int64
	ShieldedSpends  []*SpendDescription
	ShieldedOutputs []*OutputDescription
	JoinSplits      []*JSDescription
	JoinSplitPubKey [32]byte
	JoinSplitSig    [SignatureSize]byte
	BindingSig      [SignatureSize]byte
}

// NewMsgTx returns a new Sprout format transaction with the given version.
func NewMsgTx(version int32) *MsgTx {
	return &MsgTx{
		Version: version,
		TxIn:    make([]*TxIn, 0, 1),
		TxOut:   make([]*TxOut, 0, 1),
	}
}

// NewOverwinterMsgTx returns a new empty version 3 Overwinter transaction.
func NewOverwinterMsgTx() *MsgTx {
	tx := NewMsgTx(OverwinterTxVersion)
	tx.Overwintered = true
	tx.VersionGroupID = OverwinterVersionGroupID
	return tx
}

// NewSaplingMsgTx returns a new empty version 4 Sapling transaction.
func NewSaplingMsgTx() *MsgTx {
	tx := NewMsgTx(SaplingTxVersion)
	tx.Overwintered = true
	tx.VersionGroupID = SaplingVersionGroupID
	return tx
}

// AddTxIn adds a transaction input to the message.
func (msg *MsgTx) AddTxIn(ti *TxIn) {
	msg.TxIn = append(msg.TxIn, ti)
}

// AddTxOut adds a transaction output to the message.
func (msg *MsgTx) AddTxOut(to *TxOut) {
	msg.TxOut = append(msg.TxOut, to)
}

// Header returns the serialized first four bytes of the transaction, the
// version with the overwintered flag folded into the high bit.
func (msg *MsgTx) Header() uint32 {
	header := uint32(msg.Version)
	if msg.Overwintered {
		header |= overwinterFlagMask
	}
	return header
}

// IsOverwinterV3 reports whether the transaction uses the Overwinter format.
func (msg *MsgTx) IsOverwinterV3() bool {
	return msg.Overwintered && msg.VersionGroupID == OverwinterVersionGroupID &&
		msg.Version == OverwinterTxVersion
}

// IsSaplingV4 reports whether the transaction uses the Sapling format.
func (msg *MsgTx) IsSaplingV4() bool {
	return msg.Overwintered && msg.VersionGroupID == SaplingVersionGroupID &&
		msg.Version == SaplingTxVersion
}

// UsesGrothProofs reports whether JoinSplit proofs are Groth16 proofs.
func (msg *MsgTx) UsesGrothProofs() bool {
	return msg.Overwintered && msg.Version >= SaplingTxVersion
}

// hasJoinSplits reports whether the format carries a JoinSplit vector.
func (msg *MsgTx) hasJoinSplits() bool {
	return msg.Version >= JoinSplitTxVersion
}

// TxHash generates the hash for the transaction.
func (msg *MsgTx) TxHash() chainhash.Hash {
	buf := bytes.NewBuffer(make([]byte, 0, msg.SerializeSize()))
	_ = msg.Serialize(buf)
	return chainhash.DoubleHashH(buf.Bytes())
}

// Copy creates a deep copy of a transaction so that the original does not get
// modified when the copy is manipulated.
func (msg *MsgTx) Copy() *MsgTx {
	newTx := *msg
	newTx.TxIn = make([]*TxIn, 0, len(msg.TxIn))
	newTx.TxOut = make([]*TxOut, 0, len(msg.TxOut))

	for _, oldTxIn := range msg.TxIn {
		var newScript []byte
		if oldTxIn.SignatureScript != nil {
			newScript = make([]byte, len(oldTxIn.SignatureScript))
			copy(newScript, oldTxIn.SignatureScript)
		}
		newTx.TxIn = append(newTx.TxIn, &TxIn{
			PreviousOutPoint: oldTxIn.PreviousOutPoint,
			SignatureScript:  newScript,
			Sequence:         oldTxIn.Sequence,
		})
	}

	for _, oldTxOut := range msg.TxOut {
		var newScript []byte
		if oldTxOut.PkScript != nil {
			newScript = make([]byte, len(oldTxOut.PkScript))
			copy(newScript, oldTxOut.PkScript)
		}
		newTx.TxOut = append(newTx.TxOut, &TxOut{
			Value:    oldTxOut.Value,
			PkScript: newScript,
		})
	}

	newTx.ShieldedSpends = nil
	for _, spend := range msg.ShieldedSpends {
		s := *spend
		newTx.ShieldedSpends = append(newTx.ShieldedSpends, &s)
	}
	newTx.ShieldedOutputs = nil
	for _, output := range msg.ShieldedOutputs {
		o := *output
		newTx.ShieldedOutputs = append(newTx.ShieldedOutputs, &o)
	}
	newTx.JoinSplits = nil
	for _, js := range msg.JoinSplits {
		j := *js
		j.Proof = append([]byte(nil), js.Proof...)
		newTx.JoinSplits = append(newTx.JoinSplits, &j)
	}

	return &newTx
}

// checkFormat returns an error when the header fields do not describe a
// known transaction format.
func (msg *MsgTx) checkFormat(f string) error {
	if msg.Overwintered {
		if !msg.IsOverwinterV3() && !msg.IsSaplingV4() {
			str := fmt.Sprintf("unknown transaction format %s",
				TxVersionString(true, msg.Version,
					msg.VersionGroupID))
			return messageError(f, str)
		}
		return nil
	}
	if msg.Version < SproutMinTxVersion {
		str := fmt.Sprintf("transaction version %d is too low",
			msg.Version)
		return messageError(f, str)
	}
	return nil
}

// Deserialize decodes a transaction from r into the receiver.
func (msg *MsgTx) Deserialize(r io.Reader) error {
	header, err := readUint32(r)
	if err != nil {
		return err
	}
	msg.Overwintered = header&overwinterFlagMask != 0
	msg.Version = int32(header & versionMask)
	msg.VersionGroupID = 0
	if msg.Overwintered {
		if msg.VersionGroupID, err = readUint32(r); err != nil {
			return err
		}
	}
	if err := msg.checkFormat("MsgTx.Deserialize"); err != nil {
		return err
	}

	count, err := ReadVarInt(r)
	if err != nil {
		return err
	}
	if count > uint64(maxTxInPerMessage) {
		str := fmt.Sprintf("too many input transactions to fit into "+
			"max message size [count %d, max %d]", count,
			maxTxInPerMessage)
		return messageError("MsgTx.Deserialize", str)
	}
	msg.TxIn = make([]*TxIn, count)
	for i := range msg.TxIn {
		ti := &TxIn{}
		if err := readOutPoint(r, &ti.PreviousOutPoint); err != nil {
			return err
		}
		ti.SignatureScript, err = ReadVarBytes(r, MaxMessagePayload,
			"transaction input signature script")
		if err != nil {
			return err
		}
		if ti.Sequence, err = readUint32(r); err != nil {
			return err
		}
		msg.TxIn[i] = ti
	}

	count, err = ReadVarInt(r)
	if err != nil {
		return err
	}
	if count > uint64(maxTxOutPerMessage) {
		str := fmt.Sprintf("too many output transactions to fit into "+
			"max message size [count %d, max %d]", count,
			maxTxOutPerMessage)
		return messageError("MsgTx.Deserialize", str)
	}
	msg.TxOut = make([]*TxOut, count)
	for i := range msg.TxOut {
		to := &TxOut{}
		value, err := readUint64(r)
		if err != nil {
			return err
		}
		to.Value = int64(value)
		to.PkScript, err = ReadVarBytes(r, MaxMessagePayload,
			"transaction output public key script")
		if err != nil {
			return err
		}
		msg.TxOut[i] = to
	}

	if msg.LockTime, err = readUint32(r); err != nil {
		return err
	}
	msg.ExpiryHeight = 0
	if msg.Overwintered {
		if msg.ExpiryHeight, err = readUint32(r); err != nil {
			return err
		}
	}

	msg.ValueBalance = 0
	msg.ShieldedSpends = nil
	msg.ShieldedOutputs = nil
	if msg.IsSaplingV4() {
		v, err := readUint64(r)
		if err != nil {
			return err
		}
		msg.ValueBalance = int64(v)

		count, err := readShieldedCount(r, "spends")
		if err != nil {
			return err
		}
		for i := uint64(0); i < count; i++ {
			spend := &SpendDescription{}
			if err := spend.Deserialize(r); err != nil {
				return err
			}
			msg.ShieldedSpends = append(msg.ShieldedSpends, spend)
		}

		count, err = readShieldedCount(r, "outputs")
		if err != nil {
			return err
		}
		for i := uint64(0); i < count; i++ {
			output := &OutputDescription{}
			if err := output.Deserialize(r); err != nil {
				return err
			}
			msg.ShieldedOutputs = append(msg.ShieldedOutputs, output)
		}
	}

	msg.JoinSplits = nil
	msg.JoinSplitPubKey = [32]byte{}
	msg.JoinSplitSig = [SignatureSize]byte{}
	if msg.hasJoinSplits() {
		count, err := readShieldedCount(r, "joinsplits")
		if err != nil {
			return err
		}
		for i := uint64(0); i < count; i++ {
			js := &JSDescription{}
			if err := js.Deserialize(r, msg.UsesGrothProofs()); err != nil {
				return err
			}
			msg.JoinSplits = append(msg.JoinSplits, js)
		}
		if count > 0 {
			if _, err := io.ReadFull(r, msg.JoinSplitPubKey[:]); err != nil {
				return err
			}
			if _, err := io.ReadFull(r, msg.JoinSplitSig[:]); err != nil {
				return err
			}
		}
	}

	msg.BindingSig = [SignatureSize]byte{}
	if msg.IsSaplingV4() &&
		len(msg.ShieldedSpends)+len(msg.ShieldedOutputs) > 0 {

		if _, err := io.ReadFull(r, msg.BindingSig[:]); err != nil {
			return err
		}
	}

	return nil
}

func readShieldedCount(r io.Reader, field string) (uint64, error) {
	count, err := ReadVarInt(r)
	if err != nil {
		return 0, err
	}
	if count > uint64(maxShieldedPerMessage) {
		str := fmt.Sprintf("too many shielded %s to fit into max "+
			"message size [count %d, max %d]", field, count,
			maxShieldedPerMessage)
		return 0, messageError("MsgTx.Deserialize", str)
	}
	return count, nil
}

// Serialize encodes the transaction to w using the format selected by its
// header fields.
func (msg *MsgTx) Serialize(w io.Writer) error {
	if err := msg.checkFormat("MsgTx.Serialize"); err != nil {
		return err
	}

	if err := writeUint32(w, msg.Header()); err != nil {
		return err
	}
	if msg.Overwintered {
		if err := writeUint32(w, msg.VersionGroupID); err != nil {
			return err
		}
	}

	if err := WriteVarInt(w, uint64(len(msg.TxIn))); err != nil {
		return err
	}
	for _, ti := range msg.TxIn {
		if err := WriteOutPoint(w, &ti.PreviousOutPoint); err != nil {
			return err
		}
		if err := WriteVarBytes(w, ti.SignatureScript); err != nil {
			return err
		}
		if err := writeUint32(w, ti.Sequence); err != nil {
			return err
		}
	}

	if err := WriteVarInt(w, uint64(len(msg.TxOut))); err != nil {
		return err
	}
	for _, to := range msg.TxOut {
		if err := WriteTxOut(w, to); err != nil {
			return err
		}
	}

	if err := writeUint32(w, msg.LockTime); err != nil {
		return err
	}
	if msg.Overwintered {
		if err := writeUint32(w, msg.ExpiryHeight); err != nil {
			return err
		}
	}

	if msg.IsSaplingV4() {
		if err := writeUint64(w, uint64(msg.ValueBalance)); err != nil {
			return err
		}
		if err := WriteVarInt(w, uint64(len(msg.ShieldedSpends))); err != nil {
			return err
		}
		for _, spend := range msg.ShieldedSpends {
			if err := spend.Serialize(w); err != nil {
				return err
			}
		}
		if err := WriteVarInt(w, uint64(len(msg.ShieldedOutputs))); err != nil {
			return err
		}
		for _, output := range msg.ShieldedOutputs {
			if err := output.Serialize(w); err != nil {
				return err
			}
		}
	}

	if msg.hasJoinSplits() {
		if err := WriteVarInt(w, uint64(len(msg.JoinSplits))); err != nil {
			return err
		}
		for _, js := range msg.JoinSplits {
			if err := js.Serialize(w, msg.UsesGrothProofs()); err != nil {
				return err
			}
		}
		if len(msg.JoinSplits) > 0 {
			if _, err := w.Write(msg.JoinSplitPubKey[:]); err != nil {
				return err
			}
			if _, err := w.Write(msg.JoinSplitSig[:]); err != nil {
				return err
			}
		}
	}

	if msg.IsSaplingV4() &&
		len(msg.ShieldedSpends)+len(msg.ShieldedOutputs) > 0 {

		if _, err := w.Write(msg.BindingSig[:]); err != nil {
			return err
		}
	}

	return nil
}

// SerializeSize returns the number of bytes it would take to serialize the
// the transaction.
func (msg *MsgTx) SerializeSize() int {
	// Header 4 bytes + LockTime 4 bytes + serialized varint size for the
	// number of transaction inputs and outputs.
	n := 8 + VarIntSerializeSize(uint64(len(msg.TxIn))) +
		VarIntSerializeSize(uint64(len(msg.TxOut)))

	for _, txIn := range msg.TxIn {
		n += txIn.SerializeSize()
	}
	for _, txOut := range msg.TxOut {
		n += txOut.SerializeSize()
	}

	if msg.Overwintered {
		// Version group id + expiry height.
		n += 8
	}

	if msg.IsSaplingV4() {
		n += 8 + VarIntSerializeSize(uint64(len(msg.ShieldedSpends))) +
			VarIntSerializeSize(uint64(len(msg.ShieldedOutputs))) +
			len(msg.ShieldedSpends)*spendDescriptionSize +
			len(msg.ShieldedOutputs)*outputDescriptionSize
		if len(msg.ShieldedSpends)+len(msg.ShieldedOutputs) > 0 {
			n += SignatureSize
		}
	}

	if msg.hasJoinSplits() {
		n += VarIntSerializeSize(uint64(len(msg.JoinSplits)))
		for _, js := range msg.JoinSplits {
			n += js.serializeSize(msg.UsesGrothProofs())
		}
		if len(msg.JoinSplits) > 0 {
			n += 32 + SignatureSize
		}
	}

	return n
}
