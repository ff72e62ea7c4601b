// Package crypto seals sensitive columns (salary, MFA secrets) with AES-256-GCM.
// Sealed values are the nonce followed by the ciphertext.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
)

const keySize = 32

var ErrCiphertextTooShort = errors.New("ciphertext too short")

type Service struct {
	aead cipher.AEAD
}

// New accepts a hex or base64 encoded key, or 32 raw bytes. An empty key
// yields a pass-through Service.
func New(key string) (*Service, error) {
	if key == "" {
		return &Service{}, nil
	}
	decoded := decodeKey(key)
	if len(decoded) != keySize {
		return nil, fmt.Errorf("DATA_ENCRYPTION_KEY must be %d bytes after decoding, got %d", keySize, len(decoded))
	}
	block, err := aes.NewCipher(decoded)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Service{aead: aead}, nil
}

// Configured reports whether a key is loaded. Without one, Encrypt and
// Decrypt pass data through unchanged.
func (s *Service) Configured() bool {
	return s != nil && s.aead != nil
}

func (s *Service) Encrypt(plain []byte) ([]byte, error) {
	if len(plain) == 0 {
		return nil, nil
	}
	if !s.Configured() {
		return plain, nil
	}
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(plain)+s.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return s.aead.Seal(nonce, nonce, plain, nil), nil
}

func (s *Service) Decrypt(sealed []byte) ([]byte, error) {
	if len(sealed) == 0 {
		return nil, nil
	}
	if !s.Configured() {
		return sealed, nil
	}
	n := s.aead.NonceSize()
	if len(sealed) < n {
		return nil, ErrCiphertextTooShort
	}
	return s.aead.Open(nil, sealed[:n], sealed[n:], nil)
}

func (s *Service) EncryptString(value string) ([]byte, error) {
	return s.Encrypt([]byte(value))
}

func (s *Service) DecryptString(sealed []byte) (string, error) {
	plain, err := s.Decrypt(sealed)
	return string(plain), err
}

// EncryptFloat seals a numeric field such as salary. A nil pointer seals to nil.
func (s *Service) EncryptFloat(value *float64) ([]byte, error) {
	if value == nil {
		return nil, nil
	}
	return s.Encrypt(strconv.AppendFloat(nil, *value, 'f', -1, 64))
}

func (s *Service) DecryptFloat(sealed []byte) (*float64, error) {
	plain, err := s.Decrypt(sealed)
	if err != nil || len(plain) == 0 {
		return nil, err
	}
	parsed, err := strconv.ParseFloat(string(plain), 64)
	if err != nil {
		return nil, fmt.Errorf("decrypted value is not numeric: %w", err)
	}
	return &parsed, nil
}

func decodeKey(raw string) []byte {
	if len(raw) == 2*keySize {
		if decoded, err := hex.DecodeString(raw); err == nil {
			return decoded
		}
	}
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding} {
		if decoded, err := enc.DecodeString(raw); err == nil && len(decoded) == keySize {
			return decoded
		}
	}
	return []byte(raw)
}
