package key_test

import (
	"strings"
	"testing"

	"github.com/CamberLoid/FHEVault/internal/key"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateKeyPair(t *testing.T) {
	kp, err := key.GenerateKeyPair()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(kp.PublicKey, key.PublicKeyPrefix))
	assert.True(t, strings.HasPrefix(kp.PrivateKey, key.PrivateKeyPrefix))
	assert.Len(t, kp.PublicKey, len(key.PublicKeyPrefix)+64)
	assert.False(t, kp.HasCKKS())

	other, err := key.GenerateKeyPair()
	require.NoError(t, err)
	assert.NotEqual(t, kp.PublicKey, other.PublicKey)
}

func TestCKKSPublicKeyRoundTrip(t *testing.T) {
	kp, err := key.GenerateKeyPairWithCKKS()
	require.NoError(t, err)
	require.True(t, kp.HasCKKS())

	encoded, err := key.MarshalCKKSPayload(kp.CKKS.CKKSPublicKey)
	require.NoError(t, err)

	pk, err := key.UnmarshalCKKSPublicKey(encoded)
	require.NoError(t, err)
	again, err := key.MarshalCKKSPayload(pk)
	require.NoError(t, err)
	assert.Equal(t, encoded, again)
}

func TestUnmarshalCKKSCipherTextRejectsGarbage(t *testing.T) {
	_, err := key.UnmarshalCKKSCipherText("not base64!")
	assert.Error(t, err)
}

func TestParseKeyPair(t *testing.T) {
	generated, err := key.GenerateKeyPair()
	require.NoError(t, err)

	kp, err := key.ParseKeyPair(generated.PublicKey, generated.PrivateKey)
	require.NoError(t, err)
	assert.Equal(t, generated.PublicKey, kp.PublicKey)
	assert.Equal(t, generated.PrivateKey, kp.PrivateKey)
	assert.False(t, kp.HasCKKS())

	_, err = key.ParseKeyPair(generated.PrivateKey, generated.PublicKey)
	assert.Error(t, err)
	_, err = key.ParseKeyPair(key.PublicKeyPrefix, generated.PrivateKey)
	assert.Error(t, err)
	_, err = key.ParseKeyPair(generated.PublicKey, "")
	assert.Error(t, err)
}
