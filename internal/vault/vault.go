// Package vault encrypts the secrets stored alongside accounts and payment
// profiles. Tokens are Fernet, so values written by the dashboard with the same
// FERNET_KEY decrypt here unchanged.
package vault

import (
	"fmt"
	"strings"
	"time"

	"github.com/fernet/fernet-go"
)

// Vault is what the booking core needs from credential storage.
type Vault interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) string
}

type Fernet struct {
	keys []*fernet.Key
}

// New parses one or more comma-separated base64 Fernet keys. The first key
// encrypts; all of them are tried when decrypting, which allows key rotation.
func New(keyList string) (*Fernet, error) {
	var raw []string
	for _, k := range strings.Split(keyList, ",") {
		if k = strings.TrimSpace(k); k != "" {
			raw = append(raw, k)
		}
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("vault: no key")
	}
	keys, err := fernet.DecodeKeys(raw...)
	if err != nil {
		return nil, fmt.Errorf("vault: %w", err)
	}
	return &Fernet{keys: keys}, nil
}

// GenerateKey returns a fresh base64 key suitable for FERNET_KEY.
func GenerateKey() (string, error) {
	var k fernet.Key
	if err := k.Generate(); err != nil {
		return "", err
	}
	return k.Encode(), nil
}

func (f *Fernet) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	tok, err := fernet.EncryptAndSign([]byte(plaintext), f.keys[0])
	if err != nil {
		return "", fmt.Errorf("vault: encrypt: %w", err)
	}
	return string(tok), nil
}

// Decrypt returns "" for empty input and for any token that does not verify
// under the configured keys.
func (f *Fernet) Decrypt(ciphertext string) string {
	if ciphertext == "" {
		return ""
	}
	// Negative TTL: stored credentials never expire.
	msg := fernet.VerifyAndDecrypt([]byte(ciphertext), -1*time.Second, f.keys)
	if msg == nil {
		return ""
	}
	return string(msg)
}
