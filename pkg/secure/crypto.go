package secure

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
)

// Sealer protects secrets stored at rest
type Sealer interface {
	Seal(plaintext string) (string, error)
	Open(ciphertext string) (string, error)
}

// NewSealer returns an AES-GCM sealer for the given key.
// Supported key sizes: 16, 24, 32 bytes (AES-128/192/256).
// An empty key yields a pass-through sealer for local environments.
func NewSealer(key string) (Sealer, error) {
	if key == "" {
		return plainSealer{}, nil
	}

	keyLen := len(key)
	if keyLen != 16 && keyLen != 24 && keyLen != 32 {
		return nil, errors.New("encryption key must be 16, 24, or 32 bytes long")
	}

	block, err := aes.NewCipher([]byte(key))
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	return &aesSealer{gcm: gcm}, nil
}

// Fingerprint returns the hex SHA-256 digest used to look up sealed values
func Fingerprint(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

type aesSealer struct {
	gcm cipher.AEAD
}

// Seal encrypts the given plaintext string using AES-GCM and returns a base64-encoded ciphertext.
// If the input is empty, it returns an empty string without error.
func (s *aesSealer) Seal(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	nonce := make([]byte, s.gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	ciphertext := s.gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Open decrypts a base64-encoded AES-GCM ciphertext string and returns the plaintext.
// If the input is empty, it returns an empty string without error.
func (s *aesSealer) Open(ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", nil
	}

	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", err
	}

	nonceSize := s.gcm.NonceSize()
	if len(data) < nonceSize {
		return "", errors.New("ciphertext too short")
	}

	nonce, cipherData := data[:nonceSize], data[nonceSize:]
	plainBytes, err := s.gcm.Open(nil, nonce, cipherData, nil)
	if err != nil {
		return "", err
	}

	return string(plainBytes), nil
}

type plainSealer struct{}

func (plainSealer) Seal(plaintext string) (string, error) { return plaintext, nil }

func (plainSealer) Open(ciphertext string) (string, error) { return ciphertext, nil }
