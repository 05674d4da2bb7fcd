package seal

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"filippo.io/age"
	"filippo.io/age/armor"
)

// PassphraseSealer seals with an age scrypt passphrase. Output is an ASCII
// armored age file.
type PassphraseSealer struct {
	recipient *age.ScryptRecipient
	identity  *age.ScryptIdentity
}

// NewPassphraseSealer returns a sealer for passphrase, which must not be
// empty.
func NewPassphraseSealer(passphrase string) (*PassphraseSealer, error) {
	recipient, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		return nil, fmt.Errorf("creating scrypt recipient: %w", err)
	}
	identity, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return nil, fmt.Errorf("creating scrypt identity: %w", err)
	}
	return &PassphraseSealer{recipient: recipient, identity: identity}, nil
}

// SetWorkFactor sets the scrypt work factor used by Seal to 2^logN.
func (s *PassphraseSealer) SetWorkFactor(logN int) {
	s.recipient.SetWorkFactor(logN)
}

func (s *PassphraseSealer) Seal(plaintext []byte) (string, error) {
	return sealAge(plaintext, s.recipient)
}

func (s *PassphraseSealer) Open(sealed string) ([]byte, error) {
	return openAge(sealed, s.identity)
}

// IdentitySealer seals to an age X25519 identity.
type IdentitySealer struct {
	identity *age.X25519Identity
}

// GenerateIdentity returns a new age identity in AGE-SECRET-KEY-1 form and
// its public key.
func GenerateIdentity() (secretKey, publicKey string, err error) {
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return "", "", fmt.Errorf("generating age identity: %w", err)
	}
	return identity.String(), identity.Recipient().String(), nil
}

// NewIdentitySealer parses an AGE-SECRET-KEY-1 identity. Lines starting with
// '#' are ignored, so an identity file written by age-keygen can be passed
// as is.
func NewIdentitySealer(secretKey string) (*IdentitySealer, error) {
	identities, err := age.ParseIdentities(strings.NewReader(secretKey))
	if err != nil {
		return nil, fmt.Errorf("parsing age identity: %w", err)
	}
	for _, id := range identities {
		if x, ok := id.(*age.X25519Identity); ok {
			return &IdentitySealer{identity: x}, nil
		}
	}
	return nil, errors.New("no X25519 identity found")
}

// Recipient returns the public key blobs are sealed to.
func (s *IdentitySealer) Recipient() string {
	return s.identity.Recipient().String()
}

func (s *IdentitySealer) Seal(plaintext []byte) (string, error) {
	return sealAge(plaintext, s.identity.Recipient())
}

func (s *IdentitySealer) Open(sealed string) ([]byte, error) {
	return openAge(sealed, s.identity)
}

func sealAge(plaintext []byte, recipient age.Recipient) (string, error) {
	var buf bytes.Buffer
	armored := armor.NewWriter(&buf)
	w, err := age.Encrypt(armored, recipient)
	if err != nil {
		return "", fmt.Errorf("creating age encryptor: %w", err)
	}
	if _, err := w.Write(plaintext); err != nil {
		return "", fmt.Errorf("writing plaintext: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalizing age encryption: %w", err)
	}
	if err := armored.Close(); err != nil {
		return "", fmt.Errorf("finalizing armor: %w", err)
	}
	return buf.String(), nil
}

func openAge(sealed string, identity age.Identity) ([]byte, error) {
	if !strings.HasPrefix(strings.TrimSpace(sealed), armor.Header) {
		return nil, fmt.Errorf("%w: missing age armor header", ErrMalformed)
	}
	r, err := age.Decrypt(armor.NewReader(strings.NewReader(sealed)), identity)
	if errors.Is(err, age.ErrIncorrectIdentity) {
		return nil, ErrWrongKey
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	plaintext, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTampered, err)
	}
	return plaintext, nil
}
