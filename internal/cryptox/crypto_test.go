package cryptox

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xBounceIT/WinOTP-sub000/internal/common"
)

type testToken struct {
	Issuer  string    `json:"issuer"`
	Name    string    `json:"name"`
	Secret  string    `json:"secret"`
	Created time.Time `json:"created"`
}

func sampleTokens() map[string]testToken {
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return map[string]testToken{
		"a": {Issuer: "GitHub", Name: "alice", Secret: "JBSWY3DPEHPK3PXP", Created: created},
		"b": {Issuer: "AWS", Name: "root", Secret: "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ", Created: created},
	}
}

func TestDeriveKey_Deterministic(t *testing.T) {
	password := []byte("secret-password")
	salt := []byte("0123456789abcdef")

	key1 := DeriveKey(password, salt)
	key2 := DeriveKey(password, salt)

	if !bytes.Equal(key1, key2) {
		t.Errorf("expected same result for same inputs, got different")
	}

	// PBKDF2-HMAC-SHA256, 480000 rounds
	expectedHex := "96fa495c6aa273718cfd8420b6685a6eb38a9b598d0a9c6a4c68cef85ca907f8"
	if hex.EncodeToString(key1) != expectedHex {
		t.Errorf("expected %s, got %s", expectedHex, hex.EncodeToString(key1))
	}

	if bytes.Equal(key1, DeriveKey(password, []byte("fedcba9876543210"))) {
		t.Errorf("expected different results for different salts, got same")
	}
}

func TestNewSalt(t *testing.T) {
	a, err := NewSalt()
	require.NoError(t, err)
	b, err := NewSalt()
	require.NoError(t, err)

	assert.Len(t, a, SaltSize)
	assert.NotEqual(t, a, b)
}

func TestEncryptDecryptStore_RoundTrip(t *testing.T) {
	in := sampleTokens()

	blob, err := EncryptStore(in, []byte("1234"))
	require.NoError(t, err)
	require.NoError(t, blob.Validate())
	assert.True(t, blob.Encrypted)

	raw, err := json.Marshal(blob)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "JBSWY3DPEHPK3PXP")

	var out map[string]testToken
	require.NoError(t, DecryptStore(blob, []byte("1234"), &out))
	assert.Equal(t, in, out)
}

func TestEncryptStore_FreshSaltEachCall(t *testing.T) {
	in := sampleTokens()

	b1, err := EncryptStore(in, []byte("hunter22"))
	require.NoError(t, err)
	b2, err := EncryptStore(in, []byte("hunter22"))
	require.NoError(t, err)

	assert.NotEqual(t, b1.Salt, b2.Salt)
	assert.NotEqual(t, b1.Ciphertext, b2.Ciphertext)
}

func TestDecryptStore_WrongCredential(t *testing.T) {
	blob, err := EncryptStore(sampleTokens(), []byte("1234"))
	require.NoError(t, err)

	out := map[string]testToken{}
	err = DecryptStore(blob, []byte("4321"), &out)
	require.ErrorIs(t, err, common.ErrWrongCredential)
	assert.Empty(t, out, "no partial data on failure")
}

func TestDecryptStore_TamperedCiphertext(t *testing.T) {
	blob, err := EncryptStore(sampleTokens(), []byte("1234"))
	require.NoError(t, err)

	sealed, err := base64.StdEncoding.DecodeString(blob.Ciphertext)
	require.NoError(t, err)
	sealed[len(sealed)-1] ^= 0xff
	blob.Ciphertext = base64.StdEncoding.EncodeToString(sealed)

	var out map[string]testToken
	require.ErrorIs(t, DecryptStore(blob, []byte("1234"), &out), common.ErrWrongCredential)
}

func TestDecryptStore_Corrupt(t *testing.T) {
	salt := base64.StdEncoding.EncodeToString(make([]byte, SaltSize))

	tests := []struct {
		name string
		blob *EncryptedBlob
	}{
		{name: "nil", blob: nil},
		{name: "marker missing", blob: &EncryptedBlob{Ciphertext: "AAAA", Salt: salt}},
		{name: "ciphertext missing", blob: &EncryptedBlob{Encrypted: true, Salt: salt}},
		{name: "salt missing", blob: &EncryptedBlob{Encrypted: true, Ciphertext: "AAAA"}},
		{name: "salt not base64", blob: &EncryptedBlob{Encrypted: true, Ciphertext: "AAAA", Salt: "%%%"}},
		{name: "salt wrong size", blob: &EncryptedBlob{Encrypted: true, Ciphertext: "AAAA", Salt: "AAAA"}},
		{name: "ciphertext not base64", blob: &EncryptedBlob{Encrypted: true, Ciphertext: "!!", Salt: salt}},
		{name: "ciphertext too short", blob: &EncryptedBlob{Encrypted: true, Ciphertext: "AAAA", Salt: salt}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out map[string]testToken
			require.ErrorIs(t, DecryptStore(tt.blob, []byte("1234"), &out), common.ErrCorruptStore)
		})
	}
}

func TestDecryptStore_LegacyDataField(t *testing.T) {
	blob, err := EncryptStore(sampleTokens(), []byte("1234"))
	require.NoError(t, err)

	legacy := &EncryptedBlob{Encrypted: true, Data: blob.Ciphertext, Salt: blob.Salt}

	var out map[string]testToken
	require.NoError(t, DecryptStore(legacy, []byte("1234"), &out))
	assert.Len(t, out, 2)
}
