// Package msgsig signs and verifies messages in the format produced by a
// node's signMessage: a zbase32 encoded compact recoverable signature over
// the double SHA-256 of a fixed prefix followed by the message.
package msgsig

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/tv42/zbase32"
)

// signedMsgPrefix is prepended to every message before hashing so a signed
// message can never be mistaken for a signed transaction.
var signedMsgPrefix = []byte("Lightning Signed Message:")

var (
	// ErrInvalidSignature is returned when a signature can't be decoded
	// or recovered.
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrPubKeyMismatch is returned when a valid signature was made by
	// another key than expected.
	ErrPubKeyMismatch = errors.New("signature made by another key")
)

// Digest returns the hash a message signature commits to.
func Digest(msg []byte) []byte {
	return chainhash.DoubleHashB(append(
		append([]byte{}, signedMsgPrefix...), msg...,
	))
}

// Sign signs msg with priv and returns the zbase32 encoded signature.
func Sign(priv *btcec.PrivateKey, msg []byte) string {
	sig := ecdsa.SignCompact(priv, Digest(msg), true)

	return zbase32.EncodeToString(sig)
}

// RecoverPubKey returns the key that produced signature over msg.
func RecoverPubKey(msg []byte, signature string) (*btcec.PublicKey, error) {
	sig, err := zbase32.DecodeString(signature)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	pubKey, _, err := ecdsa.RecoverCompact(sig, Digest(msg))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	return pubKey, nil
}

// Verify checks that signature over msg was made by the key serialized in
// compressed form as pubKey, the form nodes report in getInfo.
func Verify(msg []byte, signature string, pubKey []byte) error {
	recovered, err := RecoverPubKey(msg, signature)
	if err != nil {
		return err
	}

	if !bytes.Equal(recovered.SerializeCompressed(), pubKey) {
		return ErrPubKeyMismatch
	}

	return nil
}
