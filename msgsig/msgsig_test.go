package msgsig

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestSignVerify(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(rt *rapid.T) {
		seed := rapid.SliceOfN(rapid.Byte(), 32, 32).Draw(rt, "seed")
		seed[31] |= 1
		priv, _ := btcec.PrivKeyFromBytes(seed)
		msg := rapid.SliceOf(rapid.Byte()).Draw(rt, "msg")

		sig := Sign(priv, msg)
		pubKey := priv.PubKey().SerializeCompressed()

		require.NoError(rt, Verify(msg, sig, pubKey))

		recovered, err := RecoverPubKey(msg, sig)
		require.NoError(rt, err)
		require.True(rt, recovered.IsEqual(priv.PubKey()))
	})
}

func TestVerifyFailures(t *testing.T) {
	t.Parallel()

	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	other, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	msg := []byte("hello rgb")
	sig := Sign(priv, msg)

	err = Verify(msg, sig, other.PubKey().SerializeCompressed())
	require.ErrorIs(t, err, ErrPubKeyMismatch)

	// A signature over another message recovers another key.
	err = Verify(
		[]byte("goodbye rgb"), sig, priv.PubKey().SerializeCompressed(),
	)
	require.ErrorIs(t, err, ErrPubKeyMismatch)

	_, err = RecoverPubKey(msg, "not zbase32 !!")
	require.ErrorIs(t, err, ErrInvalidSignature)

	_, err = RecoverPubKey(msg, "yyyy")
	require.ErrorIs(t, err, ErrInvalidSignature)
}
