package shared

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

	"golang.org/x/crypto/hkdf"
)

const (
	sealPrefixV1 = "v1:"
	sealInfo     = "portal session credential"
)

// ErrSealedValueInvalid indicates a sealed value could not be opened.
var ErrSealedValueInvalid = errors.New("sealed value invalid")

// Sealer encrypts small secrets (bearer credentials) before they reach Redis.
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer derives an AES-256-GCM key from secret via HKDF-SHA256.
func NewSealer(secret string) (*Sealer, error) {
	if secret == "" {
		return nil, errors.New("sealer: secret required")
	}
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(sealInfo)), key); err != nil {
		return nil, fmt.Errorf("sealer: derive key: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("sealer: cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("sealer: gcm: %w", err)
	}
	return &Sealer{aead: aead}, nil
}

// Seal returns a versioned base64 encoding of nonce||ciphertext.
func (s *Sealer) Seal(plaintext string) (string, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	ct := s.aead.Seal(nil, nonce, []byte(plaintext), nil)
	buf := make([]byte, 0, len(nonce)+len(ct))
	buf = append(buf, nonce...)
	buf = append(buf, ct...)
	return sealPrefixV1 + base64.RawURLEncoding.EncodeToString(buf), nil
}

// Open reverses Seal. Values sealed under another secret fail with ErrSealedValueInvalid.
func (s *Sealer) Open(sealed string) (string, error) {
	if !strings.HasPrefix(sealed, sealPrefixV1) {
		return "", ErrSealedValueInvalid
	}
	raw, err := base64.RawURLEncoding.DecodeString(sealed[len(sealPrefixV1):])
	if err != nil {
		return "", ErrSealedValueInvalid
	}
	size := s.aead.NonceSize()
	if len(raw) <= size {
		return "", ErrSealedValueInvalid
	}
	plain, err := s.aead.Open(nil, raw[:size], raw[size:], nil)
	if err != nil {
		return "", ErrSealedValueInvalid
	}
	return string(plain), nil
}
