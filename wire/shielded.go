// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"fmt"
	"io"
)

const (
	// GrothProofSize is the size of a Groth16 zk-SNARK proof as used by
	// Sapling spends, outputs and v4 JoinSplits.
	GrothProofSize = 192

	// PHGRProofSize is the size of a PHGR13 zk-SNARK proof as used by
	// JoinSplits in pre-Sapling transactions.
	PHGRProofSize = 296

	// ZCNoteCiphertextSize is the size of a Sprout note ciphertext.
	ZCNoteCiphertextSize = 601

	// EncCiphertextSize is the size of a Sapling output note ciphertext.
	EncCiphertextSize = 580

	// OutCiphertextSize is the size of a Sapling outgoing ciphertext.
	OutCiphertextSize = 80

	// SignatureSize is the size of the ed25519 and RedJubjub signatures
	// carried in shielded transactions.
	SignatureSize = 64

	// ZCNumJSInputs is the number of note inputs of a JoinSplit.
	ZCNumJSInputs = 2

	// ZCNumJSOutputs is the number of note outputs of a JoinSplit.
	ZCNumJSOutputs = 2
)

// SpendDescription is a Sapling shielded spend.
type SpendDescription struct {
	Cv           [32]byte
	Anchor       [32]byte
	Nullifier    [32]byte
	Rk           [32]byte
	ZKProof      [GrothProofSize]byte
	SpendAuthSig [SignatureSize]byte
}

// SerializeNoAuthSig encodes the spend without its spend authorization
// signature.  This is the form committed to by the signature hash.
func (s *SpendDescription) SerializeNoAuthSig(w io.Writer) error {
	for _, b := range [][]byte{s.Cv[:], s.Anchor[:], s.Nullifier[:],
		s.Rk[:], s.ZKProof[:]} {

		if _, err := w.Write(b); err != nil {
			return err
		}
	}
	return nil
}

// Serialize encodes the spend to w.
func (s *SpendDescription) Serialize(w io.Writer) error {
	if err := s.SerializeNoAuthSig(w); err != nil {
		return err
	}
	_, err := w.Write(s.SpendAuthSig[:])
	return err
}

// Deserialize decodes a spend from r.
func (s *SpendDescription) Deserialize(r io.Reader) error {
	for _, b := range [][]byte{s.Cv[:], s.Anchor[:], s.Nullifier[:],
		s.Rk[:], s.ZKProof[:], s.SpendAuthSig[:]} {

		if _, err := io.ReadFull(r, b); err != nil {
			return err
		}
	}
	return nil
}

// OutputDescription is a Sapling shielded output.
type OutputDescription struct {
	Cv            [32]byte
	Cmu           [32]byte
	EphemeralKey  [32]byte
	EncCiphertext [EncCiphertextSize]byte
	OutCiphertext [OutCiphertextSize]byte
	ZKProof       [GrothProofSize]byte
}

func (o *OutputDescription) fields() [][]byte {
	return [][]byte{o.Cv[:], o.Cmu[:], o.EphemeralKey[:],
		o.EncCiphertext[:], o.OutCiphertext[:], o.ZKProof[:]}
}

// Serialize encodes the output description to w.
func (o *OutputDescription) Serialize(w io.Writer) error {
	for _, b := range o.fields() {
		if _, err := w.Write(b); err != nil {
			return err
		}
	}
	return nil
}

// Deserialize decodes an output description from r.
func (o *OutputDescription) Deserialize(r io.Reader) error {
	for _, b := range o.fields() {
		if _, err := io.ReadFull(r, b); err != nil {
			return err
		}
	}
	return nil
}

// JSDescription is a Sprout JoinSplit description.  The proof is a PHGR13
// proof for transactions before version 4 and a Groth16 proof otherwise.
type JSDescription struct {
	VPubOld      int64
	VPubNew      int64
	Anchor       [32]byte
	Nullifiers   [ZCNumJSInputs][32]byte
	Commitments  [ZCNumJSOutputs][32]byte
	EphemeralKey [32]byte
	RandomSeed   [32]byte
	Macs         [ZCNumJSInputs][32]byte
	Proof        []byte
	Ciphertexts  [ZCNumJSOutputs][ZCNoteCiphertextSize]byte
}

// joinSplitProofSize returns the proof size used by JoinSplits of the given
// transaction version.
func joinSplitProofSize(useGroth bool) int {
	if useGroth {
		return GrothProofSize
	}
	return PHGRProofSize
}

func (js *JSDescription) fixedHead() [][]byte {
	return [][]byte{js.Anchor[:], js.Nullifiers[0][:], js.Nullifiers[1][:],
		js.Commitments[0][:], js.Commitments[1][:], js.EphemeralKey[:],
		js.RandomSeed[:], js.Macs[0][:], js.Macs[1][:]}
}

// Serialize encodes the JoinSplit to w.  useGroth selects the proof size
// expected for the containing transaction version.
func (js *JSDescription) Serialize(w io.Writer, useGroth bool) error {
	if want := joinSplitProofSize(useGroth); len(js.Proof) != want {
		str := fmt.Sprintf("joinsplit proof is %d bytes, expected %d",
			len(js.Proof), want)
		return messageError("JSDescription.Serialize", str)
	}

	if err := writeUint64(w, uint64(js.VPubOld)); err != nil {
		return err
	}
	if err := writeUint64(w, uint64(js.VPubNew)); err != nil {
		return err
	}
	for _, b := range js.fixedHead() {
		if _, err := w.Write(b); err != nil {
			return err
		}
	}
	if _, err := w.Write(js.Proof); err != nil {
		return err
	}
	for i := range js.Ciphertexts {
		if _, err := w.Write(js.Ciphertexts[i][:]); err != nil {
			return err
		}
	}
	return nil
}

// Deserialize decodes a JoinSplit from r.
func (js *JSDescription) Deserialize(r io.Reader, useGroth bool) error {
	v, err := readUint64(r)
	if err != nil {
		return err
	}
	js.VPubOld = int64(v)
	if v, err = readUint64(r); err != nil {
		return err
	}
	js.VPubNew = int64(v)

	for _, b := range js.fixedHead() {
		if _, err := io.ReadFull(r, b); err != nil {
			return err
		}
	}
	js.Proof = make([]byte, joinSplitProofSize(useGroth))
	if _, err := io.ReadFull(r, js.Proof); err != nil {
		return err
	}
	for i := range js.Ciphertexts {
		if _, err := io.ReadFull(r, js.Ciphertexts[i][:]); err != nil {
			return err
		}
	}
	return nil
}

// serializeSize returns the encoded size of the JoinSplit.
func (js *JSDescription) serializeSize(useGroth bool) int {
	// vpub_old + vpub_new + anchor + 2 nullifiers + 2 commitments +
	// ephemeral key + random seed + 2 macs + proof + 2 ciphertexts.
	return 8 + 8 + 32*9 + joinSplitProofSize(useGroth) +
		ZCNumJSOutputs*ZCNoteCiphertextSize
}

const (
	spendDescriptionSize  = 32*4 + GrothProofSize + SignatureSize
	outputDescriptionSize = 32*3 + EncCiphertextSize + OutCiphertextSize +
		GrothProofSize
)
