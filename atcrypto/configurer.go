package atcrypto

import (
	"github.com/atinternet/go-tracker/subsystems"
)

// ConfigKeyEncryptionKey names the configuration entry holding the age secret key.
const ConfigKeyEncryptionKey = "encryptionKey"

// Configurer builds an AgeEncryptor for a tracker. See Age.
type Configurer struct {
	secretKey string
}

// Age returns a configurer for Config.Encryption. With an empty key, the key is read from the
// tracker configuration entry "encryptionKey".
//
//	config := attracker.Config{Encryption: atcrypto.Age(secretKey)}
func Age(secretKey string) *Configurer {
	return &Configurer{secretKey: secretKey}
}

// Build is called internally by the tracker.
func (c *Configurer) Build(context subsystems.ClientContext) (subsystems.Encryptor, error) {
	key := c.secretKey
	if key == "" {
		key, _ = context.GetConfig().Get(ConfigKeyEncryptionKey)
	}
	if key == "" {
		return nil, ErrNoKey
	}
	return NewAgeEncryptor(key)
}
