// Package crypto encrypts OAuth tokens for storage.
//
// Stored values are base64(iv || authTag || ciphertext) produced by AES-256-GCM
// with a 12 byte IV and a 16 byte tag.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
)

const (
	KeySize = 32
	ivSize  = 12
	tagSize = 16
)

var ErrMalformedCiphertext = errors.New("crypto: malformed ciphertext")

type TokenCipher struct {
	aead cipher.AEAD
}

func NewTokenCipher(key []byte) (*TokenCipher, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("crypto: key must be %d bytes, got %d", KeySize, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: creating cipher: %w", err)
	}

	aead, err := cipher.NewGCMWithNonceSize(block, ivSize)
	if err != nil {
		return nil, fmt.Errorf("crypto: creating gcm: %w", err)
	}

	return &TokenCipher{aead: aead}, nil
}

func (c *TokenCipher) Encrypt(plaintext string) (string, error) {
	iv := make([]byte, ivSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("crypto: reading iv: %w", err)
	}

	// Seal returns ciphertext || tag; storage order is iv || tag || ciphertext.
	sealed := c.aead.Seal(nil, iv, []byte(plaintext), nil)
	ct, tag := sealed[:len(sealed)-tagSize], sealed[len(sealed)-tagSize:]

	out := make([]byte, 0, ivSize+tagSize+len(ct))
	out = append(out, iv...)
	out = append(out, tag...)
	out = append(out, ct...)

	return base64.StdEncoding.EncodeToString(out), nil
}

func (c *TokenCipher) Decrypt(encoded string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedCiphertext, err)
	}
	if len(raw) < ivSize+tagSize {
		return "", ErrMalformedCiphertext
	}

	iv := raw[:ivSize]
	tag := raw[ivSize : ivSize+tagSize]
	ct := raw[ivSize+tagSize:]

	sealed := make([]byte, 0, len(ct)+tagSize)
	sealed = append(sealed, ct...)
	sealed = append(sealed, tag...)

	plain, err := c.aead.Open(nil, iv, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("crypto: decrypt: %w", err)
	}

	return string(plain), nil
}
