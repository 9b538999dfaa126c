package services_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pipeflow/deal-todo-api/internal/services"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	service := services.NewEncryptionService("test-encryption-key")

	ciphertext, err := service.Encrypt("v1u:some-oauth-token")
	require.NoError(t, err)
	assert.NotEqual(t, "v1u:some-oauth-token", ciphertext)

	plaintext, err := service.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "v1u:some-oauth-token", plaintext)
}

func TestEncryptEmptyString(t *testing.T) {
	service := services.NewEncryptionService("test-encryption-key")

	ciphertext, err := service.Encrypt("")
	require.NoError(t, err)
	assert.Empty(t, ciphertext)
}

func TestDecryptWithWrongKey(t *testing.T) {
	service := services.NewEncryptionService("test-encryption-key")
	other := services.NewEncryptionService("a-different-key-entirely")

	ciphertext, err := service.Encrypt("secret")
	require.NoError(t, err)

	plaintext, err := other.Decrypt(ciphertext)
	if err == nil {
		assert.NotEqual(t, "secret", plaintext)
	}
}

func TestDecryptGarbage(t *testing.T) {
	service := services.NewEncryptionService("test-encryption-key")

	_, err := service.Decrypt("not-base64!!!")
	assert.Error(t, err)
}
