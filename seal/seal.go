// Package seal encrypts text such as TOON tool output so it can be stored or
// passed through untrusted hands. It knows nothing about TOON.
//
// Three sealers are provided:
//
//	KeySealer         32-byte shared key, XChaCha20-Poly1305, optional zstd
//	PassphraseSealer  age with an scrypt passphrase, ASCII armored
//	IdentitySealer    age X25519 identity, ASCII armored
package seal

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Sealer seals and opens opaque text blobs.
type Sealer interface {
	Seal(plaintext []byte) (string, error)
	Open(sealed string) ([]byte, error)
}

var (
	// ErrWrongKey is returned by Open when the blob was sealed for another
	// key, passphrase or identity.
	ErrWrongKey = errors.New("seal: sealed with a different key")
	// ErrMalformed is returned by Open for input that is not a sealed blob.
	ErrMalformed = errors.New("seal: malformed blob")
	// ErrTampered is returned by Open when authentication fails.
	ErrTampered = errors.New("seal: authentication failed")
)

// KeySize is the size in bytes of a KeySealer key.
const KeySize = 32

// GenerateKey returns a new random key.
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generating key: %w", err)
	}
	return key, nil
}

// EncodeKey renders a key as hex, the format read by LoadKey.
func EncodeKey(key []byte) string {
	return hex.EncodeToString(key)
}

// LoadKey reads a hex encoded key from path. Surrounding whitespace and
// lines starting with '#' are ignored.
func LoadKey(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading key file: %w", err)
	}
	return ParseKey(string(data))
}

// ParseKey decodes a hex encoded key.
func ParseKey(s string) ([]byte, error) {
	var b strings.Builder
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		b.WriteString(line)
	}
	key, err := hex.DecodeString(b.String())
	if err != nil {
		return nil, fmt.Errorf("decoding key: %w", err)
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("key must be %d bytes, got %d", KeySize, len(key))
	}
	return key, nil
}
