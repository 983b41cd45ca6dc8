// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2015-2019 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

const (
	asn1SequenceID = 0x30
	asn1IntegerID  = 0x02

	// minSigLen is the minimum length of a DER encoded signature, which is
	// when both R and S are 1 byte each.
	//
	// 0x30 + <1-byte> + 0x02 + 0x01 + <byte> + 0x2 + 0x01 + <byte>
	minSigLen = 8

	// maxSigLen is the maximum length of a DER encoded signature, which is
	// when both R and S are 33 bytes each.  A 256-bit integer needs 32
	// bytes plus a leading null byte when its high bit is set.
	//
	// 0x30 + <1-byte> + 0x02 + 0x21 + <33 bytes> + 0x2 + 0x21 + <33 bytes>
	maxSigLen = 72

	// Byte offsets of the fixed DER fields.
	sequenceOffset = 0
	dataLenOffset  = 1
	rTypeOffset    = 2
	rLenOffset     = 3
	rOffset        = 4

	// Public key encoding prefixes.
	pubKeyCompressedEven = 0x02
	pubKeyCompressedOdd  = 0x03
	pubKeyUncompressed   = 0x04
)

// checkHashTypeEncoding returns whether or not the passed hashtype adheres to
// the strict encoding requirements if enabled.
func (vm *Engine) checkHashTypeEncoding(hashType SigHashType) error {
	if !vm.hasFlag(ScriptVerifyStrictEncoding) {
		return nil
	}

	sigHashType := hashType & ^SigHashAnyOneCanPay
	if sigHashType < SigHashAll || sigHashType > SigHashSingle {
		str := fmt.Sprintf("invalid hash type 0x%x", hashType)
		return scriptError(ErrInvalidSigHashType, str)
	}
	return nil
}

// checkPubKeyEncoding returns whether or not the passed public key adheres to
// the strict encoding requirements if enabled.
func (vm *Engine) checkPubKeyEncoding(pubKey []byte) error {
	if !vm.hasFlag(ScriptVerifyStrictEncoding) {
		return nil
	}

	switch {
	case len(pubKey) == 33 && (pubKey[0] == pubKeyCompressedEven ||
		pubKey[0] == pubKeyCompressedOdd):
		return nil
	case len(pubKey) == 65 && pubKey[0] == pubKeyUncompressed:
		return nil
	}

	return scriptError(ErrPubKeyType, "unsupported public key type")
}

// checkSignatureEncoding returns whether or not the passed signature, which
// must not include the trailing hash type byte, adheres to the strict DER
// encoding and low S requirements if enabled.
//
// The format of a DER encoded signature is as follows:
//
// 0x30 <total length> 0x02 <length of R> <R> 0x02 <length of S> <S>
//   - 0x30 is the ASN.1 identifier for a sequence
//   - Total length is 1 byte and specifies length of all remaining data
//   - 0x02 is the ASN.1 identifier that specifies an integer follows
//   - Length of R is 1 byte and specifies how many bytes R occupies
//   - R is the arbitrary length big-endian encoded number which represents
//     the R value of the signature.  The value must be encoded using the
//     minimum possible number of bytes, so the first byte can only be null if
//     the highest bit of the next byte is set.
//   - 0x02 is once again the ASN.1 integer identifier
//   - Length of S is 1 byte and specifies how many bytes S occupies
//   - S is the arbitrary length big-endian encoded number which represents
//     the S value of the signature.  The encoding rules are identical as those
//     for R.
func (vm *Engine) checkSignatureEncoding(sig []byte) error {
	if !vm.hasFlag(ScriptVerifyDERSignatures) &&
		!vm.hasFlag(ScriptVerifyLowS) &&
		!vm.hasFlag(ScriptVerifyStrictEncoding) {

		return nil
	}

	sigLen := len(sig)
	if sigLen < minSigLen {
		str := fmt.Sprintf("malformed signature: too short: %d < %d",
			sigLen, minSigLen)
		return scriptError(ErrSigTooShort, str)
	}
	if sigLen > maxSigLen {
		str := fmt.Sprintf("malformed signature: too long: %d > %d",
			sigLen, maxSigLen)
		return scriptError(ErrSigTooLong, str)
	}
	if sig[sequenceOffset] != asn1SequenceID {
		str := fmt.Sprintf("malformed signature: format has wrong "+
			"type: %#x", sig[sequenceOffset])
		return scriptError(ErrSigInvalidSeqID, str)
	}
	if int(sig[dataLenOffset]) != sigLen-2 {
		str := fmt.Sprintf("malformed signature: bad length: %d != %d",
			sig[dataLenOffset], sigLen-2)
		return scriptError(ErrSigInvalidDataLen, str)
	}

	// S must be located entirely inside the signature.
	rLen := int(sig[rLenOffset])
	sTypeOffset := rOffset + rLen
	sLenOffset := sTypeOffset + 1
	if sTypeOffset >= sigLen {
		return scriptError(ErrSigMissingSTypeID,
			"malformed signature: S type indicator missing")
	}
	if sLenOffset >= sigLen {
		return scriptError(ErrSigMissingSLen,
			"malformed signature: S length missing")
	}
	sOffset := sLenOffset + 1
	sLen := int(sig[sLenOffset])
	if sOffset+sLen != sigLen {
		return scriptError(ErrSigInvalidSLen,
			"malformed signature: invalid S length")
	}

	if err := checkDERInteger(sig, rTypeOffset, rOffset, rLen, "R",
		ErrSigInvalidRIntID, ErrSigZeroRLen, ErrSigNegativeR,
		ErrSigTooMuchRPadding); err != nil {

		return err
	}
	if err := checkDERInteger(sig, sTypeOffset, sOffset, sLen, "S",
		ErrSigInvalidSIntID, ErrSigZeroSLen, ErrSigNegativeS,
		ErrSigTooMuchSPadding); err != nil {

		return err
	}

	// The S value must be at most half the group order.  Otherwise the
	// complement modulo the order is an equally valid signature, which
	// would make the transaction hash malleable.
	if vm.hasFlag(ScriptVerifyLowS) {
		sBytes := sig[sOffset : sOffset+sLen]
		for len(sBytes) > 0 && sBytes[0] == 0x00 {
			sBytes = sBytes[1:]
		}
		var s secp256k1.ModNScalar
		if len(sBytes) > 32 || s.SetByteSlice(sBytes) ||
			s.IsOverHalfOrder() {

			return scriptError(ErrSigHighS, "signature is not "+
				"canonical due to unnecessarily high S value")
		}
	}

	return nil
}

// checkDERInteger enforces the ASN.1 integer rules shared by R and S: the
// integer marker, a non-zero length, a non-negative value, and no superfluous
// leading null bytes.
func checkDERInteger(sig []byte, typeOffset, offset, length int, name string,
	idCode, zeroCode, negCode, padCode ErrorCode) error {

	if sig[typeOffset] != asn1IntegerID {
		str := fmt.Sprintf("malformed signature: %s integer marker: "+
			"%#x != %#x", name, sig[typeOffset], asn1IntegerID)
		return scriptError(idCode, str)
	}
	if length == 0 {
		str := fmt.Sprintf("malformed signature: %s length is zero",
			name)
		return scriptError(zeroCode, str)
	}
	if sig[offset]&0x80 != 0 {
		str := fmt.Sprintf("malformed signature: %s is negative", name)
		return scriptError(negCode, str)
	}
	if length > 1 && sig[offset] == 0x00 && sig[offset+1]&0x80 == 0 {
		str := fmt.Sprintf("malformed signature: %s value has too much "+
			"padding", name)
		return scriptError(padCode, str)
	}
	return nil
}
