// Package atcrypto provides an age-based Encryptor for offline hits and identified-visitor
// settings stored by the tracker.
//
// Ciphertext is base64-encoded so it can be kept in text columns.
package atcrypto

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"filippo.io/age"

	"github.com/atinternet/go-tracker/subsystems"
)

// AgeEncryptor encrypts to an X25519 recipient and decrypts with the matching identity.
type AgeEncryptor struct {
	identity  *age.X25519Identity
	recipient *age.X25519Recipient
}

var _ subsystems.Encryptor = (*AgeEncryptor)(nil)

// GenerateKey returns a new secret key in AGE-SECRET-KEY-1... format.
func GenerateKey() (string, error) {
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return "", fmt.Errorf("generating age key: %w", err)
	}
	return identity.String(), nil
}

// NewAgeEncryptor parses a secret key produced by GenerateKey or age-keygen.
func NewAgeEncryptor(secretKey string) (*AgeEncryptor, error) {
	identity, err := age.ParseX25519Identity(secretKey)
	if err != nil {
		return nil, fmt.Errorf("parsing age secret key: %w", err)
	}
	return &AgeEncryptor{identity: identity, recipient: identity.Recipient()}, nil
}

// PublicKey returns the recipient in age1... format.
func (e *AgeEncryptor) PublicKey() string {
	return e.recipient.String()
}

// Encrypt seals plaintext and returns it base64-encoded.
func (e *AgeEncryptor) Encrypt(plaintext string) (string, error) {
	var buf bytes.Buffer
	writer, err := age.Encrypt(&buf, e.recipient)
	if err != nil {
		return "", fmt.Errorf("creating age encryptor: %w", err)
	}
	if _, err := io.WriteString(writer, plaintext); err != nil {
		return "", fmt.Errorf("writing plaintext: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("finalizing age encryption: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Decrypt reverses Encrypt.
func (e *AgeEncryptor) Decrypt(ciphertext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("decoding ciphertext: %w", err)
	}
	reader, err := age.Decrypt(bytes.NewReader(raw), e.identity)
	if err != nil {
		return "", fmt.Errorf("decrypting: %w", err)
	}
	plaintext, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("reading plaintext: %w", err)
	}
	return string(plaintext), nil
}

// ErrNoKey is returned by Configurer.Build when no key is configured.
var ErrNoKey = errors.New("no encryption key configured")
