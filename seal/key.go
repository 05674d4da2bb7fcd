package seal

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/blake3"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// Blob layout, base64url encoded without padding:
//
//	[version 1] [flags 1] [fingerprint 8] [nonce 24] [ciphertext+tag]
//
// version, flags and fingerprint are authenticated as additional data.
const (
	blobVersion     byte = 0x01
	flagCompressed  byte = 1 << 0
	fingerprintSize      = 8
	headerSize           = 2 + fingerprintSize + chacha20poly1305.NonceSizeX
	blobOverhead         = headerSize + chacha20poly1305.Overhead
)

// maxOpenSize caps the decompressed size of a blob.
const maxOpenSize = 64 << 20

var (
	hkdfInfoMessage   = []byte("toon.seal.message.v1")
	fingerprintDomain = []byte("toon.seal.fingerprint.v1")
)

var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("seal: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxOpenSize))
	if err != nil {
		panic("seal: zstd decoder initialization failed: " + err.Error())
	}
}

// KeySealer seals with a shared 32-byte key. Every message is encrypted
// under its own key derived from the shared key and the message nonce.
// A KeySealer is safe for concurrent use.
type KeySealer struct {
	key         []byte
	fingerprint [fingerprintSize]byte
	compress    bool
}

// NewKeySealer returns a sealer for key. With compress set, plaintext is
// zstd compressed first whenever that makes it smaller.
func NewKeySealer(key []byte, compress bool) (*KeySealer, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("key must be %d bytes, got %d", KeySize, len(key))
	}
	s := &KeySealer{key: append([]byte(nil), key...), compress: compress}

	hasher, err := blake3.NewKeyed(s.key)
	if err != nil {
		return nil, fmt.Errorf("creating fingerprint hasher: %w", err)
	}
	hasher.Write(fingerprintDomain)
	copy(s.fingerprint[:], hasher.Sum(nil))
	return s, nil
}

// Fingerprint identifies the key without revealing it.
func (s *KeySealer) Fingerprint() string {
	return hex.EncodeToString(s.fingerprint[:])
}

func (s *KeySealer) Seal(plaintext []byte) (string, error) {
	payload, flags := plaintext, byte(0)
	if s.compress {
		if c := zstdEncoder.EncodeAll(plaintext, nil); len(c) < len(plaintext) {
			payload, flags = c, flagCompressed
		}
	}

	out := make([]byte, headerSize, headerSize+len(payload)+chacha20poly1305.Overhead)
	out[0] = blobVersion
	out[1] = flags
	copy(out[2:], s.fingerprint[:])
	nonce := out[2+fingerprintSize : headerSize]
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}

	aead, err := s.aead(nonce)
	if err != nil {
		return "", err
	}
	ad := append([]byte(nil), out[:2+fingerprintSize]...)
	out = aead.Seal(out, nonce, payload, ad)
	return base64.RawURLEncoding.EncodeToString(out), nil
}

func (s *KeySealer) Open(sealed string) ([]byte, error) {
	blob, err := base64.RawURLEncoding.DecodeString(sealed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(blob) < blobOverhead {
		return nil, fmt.Errorf("%w: %d bytes, minimum is %d", ErrMalformed, len(blob), blobOverhead)
	}
	if blob[0] != blobVersion {
		return nil, fmt.Errorf("%w: version %d is not supported", ErrMalformed, blob[0])
	}
	if subtle.ConstantTimeCompare(blob[2:2+fingerprintSize], s.fingerprint[:]) != 1 {
		return nil, ErrWrongKey
	}

	nonce := blob[2+fingerprintSize : headerSize]
	aead, err := s.aead(nonce)
	if err != nil {
		return nil, err
	}
	payload, err := aead.Open(nil, nonce, blob[headerSize:], blob[:2+fingerprintSize])
	if err != nil {
		return nil, ErrTampered
	}

	if blob[1]&flagCompressed == 0 {
		return payload, nil
	}
	plaintext, err := zstdDecoder.DecodeAll(payload, nil)
	if err != nil {
		return nil, fmt.Errorf("decompressing: %w", err)
	}
	return plaintext, nil
}

// aead derives the per-message key with HKDF-SHA256, salted with the nonce.
func (s *KeySealer) aead(nonce []byte) (cipher.AEAD, error) {
	reader := hkdf.New(sha256.New, s.key, nonce, hkdfInfoMessage)
	msgKey := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(reader, msgKey); err != nil {
		return nil, fmt.Errorf("deriving message key: %w", err)
	}
	aead, err := chacha20poly1305.NewX(msgKey)
	if err != nil {
		return nil, fmt.Errorf("creating XChaCha20-Poly1305 cipher: %w", err)
	}
	return aead, nil
}
