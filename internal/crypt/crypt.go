// ABOUTME: Encryption gateway for sensitive item content using AES-GCM
// ABOUTME: Ciphertexts carry a version prefix so callers can detect already-encrypted values

package crypt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// ciphertextPrefix marks a value as produced by this gateway.
	// IsEncrypted keys off it; changing it invalidates every stored
	// sensitive value, so treat it as part of the on-disk format.
	ciphertextPrefix = "gcm1:"

	keySize      = 32
	nonceSize    = 12
	pbkdf2Rounds = 100000
)

// ErrDecrypt is returned when a ciphertext cannot be decrypted
// (wrong key, truncated value, or content that was never encrypted).
var ErrDecrypt = errors.New("cannot decrypt value")

// DecryptFailedPlaceholder is substituted for content that fails to
// decrypt on read paths, so one corrupt row never blocks a listing.
const DecryptFailedPlaceholder = "[DECRYPTION ERROR]"

// Cipher encrypts and decrypts single string values.
// It is safe for concurrent use.
type Cipher struct {
	aead cipher.AEAD
}

// DeriveKey derives a 32-byte AES key from a passphrase and salt.
func DeriveKey(passphrase string, salt []byte) []byte {
	return pbkdf2.Key([]byte(passphrase), salt, pbkdf2Rounds, keySize, sha256.New)
}

// New creates a Cipher from a raw AES key (16, 24, or 32 bytes).
func New(key []byte) (*Cipher, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating GCM: %w", err)
	}
	return &Cipher{aead: aead}, nil
}

// Encrypt encrypts plaintext and returns a prefixed, base64-encoded
// ciphertext. Encrypt does NOT check whether the input is already
// ciphertext: callers on update paths must guard with IsEncrypted
// first, because double-encrypted content is unrecoverable by the
// normal read path.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}

	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return ciphertextPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. Returns ErrDecrypt (wrapped) for values
// that are not valid ciphertexts of this gateway and key.
func (c *Cipher) Decrypt(value string) (string, error) {
	encoded, ok := strings.CutPrefix(value, ciphertextPrefix)
	if !ok {
		return "", fmt.Errorf("%w: missing prefix", ErrDecrypt)
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	if len(data) < nonceSize {
		return "", fmt.Errorf("%w: ciphertext too short", ErrDecrypt)
	}

	plaintext, err := c.aead.Open(nil, data[:nonceSize], data[nonceSize:], nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	return string(plaintext), nil
}

// IsEncrypted reports whether value looks like output of Encrypt.
// It checks the prefix and that the remainder decodes as base64 of at
// least nonce length; it does not verify the authentication tag.
func IsEncrypted(value string) bool {
	encoded, ok := strings.CutPrefix(value, ciphertextPrefix)
	if !ok {
		return false
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return false
	}
	return len(data) >= nonceSize
}
