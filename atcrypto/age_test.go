package atcrypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinternet/go-tracker/internal/sharedtest"
	"github.com/atinternet/go-tracker/subsystems"
)

func makeEncryptor(t *testing.T) *AgeEncryptor {
	key, err := GenerateKey()
	require.NoError(t, err)
	e, err := NewAgeEncryptor(key)
	require.NoError(t, err)
	return e
}

func TestRoundTrip(t *testing.T) {
	e := makeEncryptor(t)
	sealed, err := e.Encrypt("https://logp.xiti.com/hit.xiti?s=123&p=home")
	require.NoError(t, err)
	assert.NotContains(t, sealed, "home")

	plain, err := e.Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, "https://logp.xiti.com/hit.xiti?s=123&p=home", plain)
}

func TestDecryptWithOtherKeyFails(t *testing.T) {
	sealed, err := makeEncryptor(t).Encrypt("secret")
	require.NoError(t, err)
	_, err = makeEncryptor(t).Decrypt(sealed)
	assert.Error(t, err)
}

func TestDecryptRejectsGarbage(t *testing.T) {
	_, err := makeEncryptor(t).Decrypt("not base64!")
	assert.Error(t, err)
}

func TestInvalidKey(t *testing.T) {
	_, err := NewAgeEncryptor("nope")
	assert.Error(t, err)
}

func TestConfigurerReadsKeyFromConfig(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)
	ctx := subsystems.BasicClientContext{Config: sharedtest.MapConfig{ConfigKeyEncryptionKey: key}}
	e, err := Age("").Build(ctx)
	require.NoError(t, err)
	assert.NotNil(t, e)

	_, err = Age("").Build(subsystems.BasicClientContext{})
	assert.Equal(t, ErrNoKey, err)
}
