// Package cryptox implements the crypto layer of the token store: PBKDF2 key
// derivation, AES-256-GCM sealing of the serialized token collection, and
// the slow credential hash used to verify a PIN or password.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/xBounceIT/WinOTP-sub000/internal/common"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// KDFIterations is the PBKDF2-HMAC-SHA256 work factor.
	KDFIterations = 480000
	// KeySize is the derived key length; 32 bytes selects AES-256.
	KeySize = 32
	// SaltSize is the length of the per-encryption random salt.
	SaltSize = 16
)

// NewSalt returns SaltSize fresh random bytes.
func NewSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	return salt, nil
}

// DeriveKey stretches a PIN or password into a KeySize-byte AES key using
// PBKDF2-HMAC-SHA256 with KDFIterations rounds.
//
// The same credential and salt always produce the same key; the salt is
// stored next to the ciphertext so the key can be re-derived on load.
func DeriveKey(credential, salt []byte) []byte {
	return pbkdf2.Key(credential, salt, KDFIterations, KeySize, sha256.New)
}

// seal encrypts plaintext with AES-GCM under key and returns nonce||ciphertext.
func seal(plaintext, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}

	nonce := make([]byte, aesgcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	return aesgcm.Seal(nonce, nonce, plaintext, nil), nil
}

// errAuthFailed marks a GCM authentication failure inside open.
var errAuthFailed = errors.New("message authentication failed")

// open reverses seal. A tag mismatch yields errAuthFailed; a buffer too short
// to hold a nonce and a tag yields common.ErrCorruptStore.
func open(data, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}

	if len(data) < aesgcm.NonceSize()+aesgcm.Overhead() {
		return nil, fmt.Errorf("%w: ciphertext too short", common.ErrCorruptStore)
	}
	nonce, ciphertext := data[:aesgcm.NonceSize()], data[aesgcm.NonceSize():]

	plaintext, err := aesgcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, errAuthFailed
	}
	return plaintext, nil
}

// EncryptedBlob is the on-disk shape of a protected token store.
//
//	{"encrypted": true, "ciphertext": "<base64>", "salt": "<base64>"}
//
// Ciphertext holds the GCM nonce followed by the sealed JSON document.
// Stores written by older releases carry the ciphertext under "data"; it is
// accepted on read and never written.
type EncryptedBlob struct {
	Encrypted  bool   `json:"encrypted"`
	Ciphertext string `json:"ciphertext,omitempty"`
	Data       string `json:"data,omitempty"`
	Salt       string `json:"salt"`
}

// payload returns the base64 ciphertext from whichever field carries it.
func (b *EncryptedBlob) payload() string {
	if b.Ciphertext != "" {
		return b.Ciphertext
	}
	return b.Data
}

// Validate reports common.ErrCorruptStore unless the blob is fully present:
// the encrypted marker set and both ciphertext and salt populated.
func (b *EncryptedBlob) Validate() error {
	switch {
	case b == nil:
		return fmt.Errorf("%w: missing blob", common.ErrCorruptStore)
	case !b.Encrypted:
		return fmt.Errorf("%w: encrypted marker not set", common.ErrCorruptStore)
	case b.payload() == "":
		return fmt.Errorf("%w: missing ciphertext", common.ErrCorruptStore)
	case b.Salt == "":
		return fmt.Errorf("%w: missing salt", common.ErrCorruptStore)
	}
	return nil
}

// EncryptStore serializes v to JSON and seals it under a key derived from
// credential and a freshly generated salt.
//
// A new salt, and therefore a new key, is produced on every call, so two
// saves of the same collection never share key material.
//
// Parameters:
//   - v: the token collection (any JSON-serializable value).
//   - credential: the PIN or password bytes.
//
// Returns:
//   - the blob ready to be written as the store document.
//   - err: non-nil if serialization, salt generation or sealing fails.
//
// Example:
//
//	blob, err := cryptox.EncryptStore(tokens, []byte("1234"))
//	if err != nil {
//	    return err
//	}
//	data, _ := json.Marshal(blob)
func EncryptStore(v any, credential []byte) (*EncryptedBlob, error) {

	// serializing JSON
	plaintext, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal store: %w", err)
	}
	defer common.WipeByteArray(plaintext)

	salt, err := NewSalt()
	if err != nil {
		return nil, err
	}

	key := DeriveKey(credential, salt)
	defer common.WipeByteArray(key)

	sealed, err := seal(plaintext, key)
	if err != nil {
		return nil, err
	}

	return &EncryptedBlob{
		Encrypted:  true,
		Ciphertext: base64.StdEncoding.EncodeToString(sealed),
		Salt:       base64.StdEncoding.EncodeToString(salt),
	}, nil
}

// DecryptStore re-derives the key from blob.Salt and credential, opens the
// ciphertext and unmarshals the JSON document into v.
//
// It fails closed: v is only written after authentication succeeded.
//
// Returns:
//   - common.ErrWrongCredential when the GCM tag does not verify.
//   - common.ErrCorruptStore when the blob is partial, not valid base64, has
//     the wrong salt size, or decrypts to something that is not JSON.
func DecryptStore(blob *EncryptedBlob, credential []byte, v any) error {
	if err := blob.Validate(); err != nil {
		return err
	}

	salt, err := base64.StdEncoding.DecodeString(blob.Salt)
	if err != nil {
		return fmt.Errorf("%w: salt: %v", common.ErrCorruptStore, err)
	}
	if len(salt) != SaltSize {
		return fmt.Errorf("%w: salt must be %d bytes, got %d", common.ErrCorruptStore, SaltSize, len(salt))
	}

	sealed, err := base64.StdEncoding.DecodeString(blob.payload())
	if err != nil {
		return fmt.Errorf("%w: ciphertext: %v", common.ErrCorruptStore, err)
	}

	key := DeriveKey(credential, salt)
	defer common.WipeByteArray(key)

	plaintext, err := open(sealed, key)
	if errors.Is(err, errAuthFailed) {
		return common.ErrWrongCredential
	}
	if err != nil {
		return err
	}
	defer common.WipeByteArray(plaintext)

	if err := json.Unmarshal(plaintext, v); err != nil {
		return fmt.Errorf("%w: decrypted document: %v", common.ErrCorruptStore, err)
	}
	return nil
}
