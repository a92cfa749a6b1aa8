package session

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// ErrSealKey is returned when the configured seal key has the wrong length.
var ErrSealKey = fmt.Errorf("session seal key must be %d bytes", chacha20poly1305.KeySize)

var errCiphertext = errors.New("sealed token is malformed")

type sealer struct {
	key []byte
}

func newSealer(key []byte) (*sealer, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, ErrSealKey
	}
	return &sealer{key: append([]byte(nil), key...)}, nil
}

// seal encrypts plaintext bound to sessionID and returns nonce||ciphertext as base64.
func (s *sealer) seal(sessionID, plaintext string) (string, error) {
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("nonce: %w", err)
	}
	out := aead.Seal(nonce, nonce, []byte(plaintext), []byte(sessionID))
	return base64.StdEncoding.EncodeToString(out), nil
}

func (s *sealer) open(sessionID, sealed string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", errCiphertext
	}
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return "", err
	}
	if len(raw) < aead.NonceSize() {
		return "", errCiphertext
	}
	nonce, ct := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	pt, err := aead.Open(nil, nonce, ct, []byte(sessionID))
	if err != nil {
		return "", errCiphertext
	}
	return string(pt), nil
}
