// Package secrets decrypts age-encrypted file content.
package secrets

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"filippo.io/age"
	"filippo.io/age/armor"
)

// EnvIdentity names the environment variable that points at an age identity file.
const EnvIdentity = "VPSCTL_AGE_IDENTITY"

// ErrNoIdentity is returned when decryption is requested without a configured identity.
var ErrNoIdentity = errors.New("no age identity configured; set settings.age_identity or " + EnvIdentity)

// Decrypter holds the identities used to open secrets. Identities are loaded lazily
// so configs without encrypted content never need an identity file.
type Decrypter struct {
	identityFile string
	identities   []age.Identity
}

// NewDecrypter returns a Decrypter for identityFile, falling back to VPSCTL_AGE_IDENTITY.
func NewDecrypter(identityFile string) *Decrypter {
	if identityFile == "" {
		identityFile = os.Getenv(EnvIdentity)
	}
	return &Decrypter{identityFile: identityFile}
}

// NewDecrypterWithIdentities returns a Decrypter that uses the given identities directly.
func NewDecrypterWithIdentities(ids ...age.Identity) *Decrypter {
	return &Decrypter{identities: ids}
}

// Decrypt opens ciphertext, which may be ASCII-armored or binary age format.
func (d *Decrypter) Decrypt(ciphertext []byte) ([]byte, error) {
	if d == nil {
		return nil, ErrNoIdentity
	}
	identities, err := d.load()
	if err != nil {
		return nil, err
	}

	var src io.Reader = bytes.NewReader(ciphertext)
	if strings.HasPrefix(strings.TrimSpace(string(ciphertext)), armor.Header) {
		src = armor.NewReader(strings.NewReader(strings.TrimSpace(string(ciphertext)) + "\n"))
	}

	r, err := age.Decrypt(src, identities...)
	if err != nil {
		return nil, fmt.Errorf("age decrypt: %w", err)
	}
	plaintext, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read plaintext: %w", err)
	}
	return plaintext, nil
}

func (d *Decrypter) load() ([]age.Identity, error) {
	if len(d.identities) > 0 {
		return d.identities, nil
	}
	if d.identityFile == "" {
		return nil, ErrNoIdentity
	}
	f, err := os.Open(d.identityFile)
	if err != nil {
		return nil, fmt.Errorf("open identity file: %w", err)
	}
	defer f.Close()

	identities, err := age.ParseIdentities(f)
	if err != nil {
		return nil, fmt.Errorf("parse identities: %w", err)
	}
	d.identities = identities
	return identities, nil
}

// Encrypt armors plaintext for the given recipients. It backs tests and the
// documentation examples for producing content_age values.
func Encrypt(plaintext []byte, recipients ...age.Recipient) (string, error) {
	var buf bytes.Buffer
	aw := armor.NewWriter(&buf)
	w, err := age.Encrypt(aw, recipients...)
	if err != nil {
		return "", fmt.Errorf("age encrypt: %w", err)
	}
	if _, err := w.Write(plaintext); err != nil {
		return "", fmt.Errorf("write ciphertext: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalise ciphertext: %w", err)
	}
	if err := aw.Close(); err != nil {
		return "", fmt.Errorf("finalise armor: %w", err)
	}
	return buf.String(), nil
}
