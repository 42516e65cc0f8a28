package identity

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"golang.org/x/crypto/sha3"
)

const signatureLen = 65

var ErrBadSignature = errors.New("malformed signature")

// LoginMessage is the text a wallet signs to prove it controls address.
func LoginMessage(address, nonce string) string {
	return fmt.Sprintf("Sign in to dtodo\n\nAddress: %s\nNonce: %s", strings.ToLower(address), nonce)
}

// keccak256 of the EIP-191 "personal_sign" envelope around message.
func personalHash(message string) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte("\x19Ethereum Signed Message:\n" + strconv.Itoa(len(message)) + message))
	return h.Sum(nil)
}

// AddressFromPublicKey derives the lowercase 0x address of pub.
func AddressFromPublicKey(pub *secp256k1.PublicKey) string {
	h := sha3.NewLegacyKeccak256()
	h.Write(pub.SerializeUncompressed()[1:])
	return "0x" + hex.EncodeToString(h.Sum(nil)[12:])
}

// RecoverAddress returns the lowercase address that produced signature over
// message with personal_sign. signature is 0x-prefixed hex R||S||V where V is
// 0, 1, 27 or 28.
func RecoverAddress(message, signature string) (string, error) {
	sig, err := hex.DecodeString(strings.TrimPrefix(signature, "0x"))
	if err != nil || len(sig) != signatureLen {
		return "", ErrBadSignature
	}

	v := sig[64]
	if v < 27 {
		v += 27
	}
	if v != 27 && v != 28 {
		return "", ErrBadSignature
	}

	// secp256k1 compact form puts the recovery byte first.
	compact := make([]byte, 0, signatureLen)
	compact = append(compact, v)
	compact = append(compact, sig[:64]...)

	pub, _, err := ecdsa.RecoverCompact(compact, personalHash(message))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadSignature, err)
	}
	return AddressFromPublicKey(pub), nil
}

// SignMessage produces a personal_sign signature in the format RecoverAddress
// accepts.
func SignMessage(priv *secp256k1.PrivateKey, message string) string {
	compact := ecdsa.SignCompact(priv, personalHash(message), false)

	sig := make([]byte, 0, signatureLen)
	sig = append(sig, compact[1:]...)
	sig = append(sig, compact[0])
	return "0x" + hex.EncodeToString(sig)
}
