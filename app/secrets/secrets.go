// Package secrets encrypts and decrypts secret option values, like imap and auth passwords,
// so they can be kept in env files and compose configs as "ENC:..." strings.
package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/argon2"
)

// EncryptPrefix is added to encrypted values to identify them
const EncryptPrefix = "ENC:"

// MinKeyLength defines the minimum acceptable length for an encryption key
const MinKeyLength = 20

// Crypter handles encryption and decryption of secret values
type Crypter struct {
	key []byte
}

// argon2 parameters for key derivation
const (
	argon2Time    = 1         // number of iterations
	argon2Memory  = 64 * 1024 // memory usage in KiB (64MB)
	argon2Threads = 4         // number of threads
	argon2KeyLen  = 32        // output key length (for AES-256)
)

// NewCrypter creates a new crypter with the given master key. Instance id makes the salt,
// so instances sharing a key can't read secrets of each other.
func NewCrypter(masterKey, instanceID string) (*Crypter, error) {
	if masterKey == "" {
		return nil, errors.New("empty master key")
	}
	if len(masterKey) < MinKeyLength {
		return nil, fmt.Errorf("encryption key too short, minimum length is %d characters", MinKeyLength)
	}
	if instanceID == "" {
		return nil, errors.New("empty instance ID")
	}

	salt := []byte("mail-spam-secrets-salt-" + instanceID)
	key := argon2.IDKey([]byte(masterKey), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)
	return &Crypter{key: key}, nil
}

// Encrypt encrypts a string value with AES-GCM, empty value stays empty
func (c *Crypter) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	gcm, err := c.gcm()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil) // nonce goes first
	return EncryptPrefix + base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Decrypt decrypts a string value, values without EncryptPrefix are returned as is
func (c *Crypter) Decrypt(ciphertext string) (string, error) {
	if !IsEncrypted(ciphertext) {
		return ciphertext, nil
	}

	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(ciphertext, EncryptPrefix))
	if err != nil {
		return "", fmt.Errorf("failed to decode base64 data: %w", err)
	}
	gcm, err := c.gcm()
	if err != nil {
		return "", err
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", errors.New("ciphertext too short")
	}
	plaintext, err := gcm.Open(nil, data[:nonceSize], data[nonceSize:], nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt data: %w", err)
	}
	return string(plaintext), nil
}

// DecryptAll decrypts values in place. Not encrypted values are left unchanged.
func (c *Crypter) DecryptAll(values ...*string) error {
	for i, v := range values {
		if v == nil || !IsEncrypted(*v) {
			continue
		}
		res, err := c.Decrypt(*v)
		if err != nil {
			return fmt.Errorf("failed to decrypt value #%d: %w", i, err)
		}
		*v = res
	}
	return nil
}

// IsEncrypted checks if a value is encrypted
func IsEncrypted(value string) bool {
	return strings.HasPrefix(value, EncryptPrefix)
}

func (c *Crypter) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}
