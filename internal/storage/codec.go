package storage

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"

	"github.com/atinternet/go-tracker/subsystems"
)

// Flags stored with each row describing how its URL was written.
const (
	flagCompressed = 1 << iota
	flagEncrypted
)

// Codec transforms hit URLs on their way into and out of the database.
type Codec struct {
	Compress  bool
	Encryptor subsystems.Encryptor
}

func (c Codec) encode(url string) (string, int, error) {
	value, flags := url, 0
	if c.Compress {
		var buf bytes.Buffer
		w := gzip.NewWriter(&buf)
		if _, err := w.Write([]byte(value)); err != nil {
			return "", 0, err
		}
		if err := w.Close(); err != nil {
			return "", 0, err
		}
		value = base64.StdEncoding.EncodeToString(buf.Bytes())
		flags |= flagCompressed
	}
	if c.Encryptor != nil {
		encrypted, err := c.Encryptor.Encrypt(value)
		if err != nil {
			return "", 0, fmt.Errorf("failed to encrypt hit: %w", err)
		}
		value = encrypted
		flags |= flagEncrypted
	}
	return value, flags, nil
}

func (c Codec) decode(stored string, flags int) (string, error) {
	value := stored
	if flags&flagEncrypted != 0 {
		if c.Encryptor == nil {
			return "", fmt.Errorf("hit is encrypted but no encryptor is configured")
		}
		decrypted, err := c.Encryptor.Decrypt(value)
		if err != nil {
			return "", fmt.Errorf("failed to decrypt hit: %w", err)
		}
		value = decrypted
	}
	if flags&flagCompressed != 0 {
		data, err := base64.StdEncoding.DecodeString(value)
		if err != nil {
			return "", err
		}
		r, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return "", err
		}
		defer r.Close() //nolint:errcheck
		plain, err := io.ReadAll(r)
		if err != nil {
			return "", err
		}
		value = string(plain)
	}
	return value, nil
}
