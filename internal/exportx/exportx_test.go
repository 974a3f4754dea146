package exportx

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xBounceIT/WinOTP-sub000/internal/common"
)

// low scrypt cost keeps the tests fast
var fast = Sealer{WorkFactor: 10}

const payload = `{"id-1":{"issuer":"GitHub","name":"octocat","secret":"JBSWY3DPEHPK3PXP"}}`

func TestSealOpen_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, fast.Seal(&buf, []byte(payload), "correct horse"))
	assert.NotContains(t, buf.String(), "JBSWY3DPEHPK3PXP")
	assert.True(t, strings.HasPrefix(buf.String(), "age-encryption.org/v1"))

	got, err := Open(&buf, "correct horse")
	require.NoError(t, err)
	assert.Equal(t, payload, string(got))
}

func TestSealOpen_Armored(t *testing.T) {
	var buf bytes.Buffer
	s := Sealer{WorkFactor: 10, Armor: true}
	require.NoError(t, s.Seal(&buf, []byte(payload), "correct horse"))
	assert.True(t, strings.HasPrefix(buf.String(), armorHeader))

	got, err := Open(&buf, "correct horse")
	require.NoError(t, err)
	assert.Equal(t, payload, string(got))
}

func TestOpen_WrongPassphrase(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, fast.Seal(&buf, []byte(payload), "correct horse"))

	_, err := Open(&buf, "battery staple")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrWrongCredential)
}

func TestOpen_Garbage(t *testing.T) {
	_, err := Open(strings.NewReader("definitely not age"), "correct horse")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrCorruptStore)
}

func TestSeal_ShortPassphrase(t *testing.T) {
	var buf bytes.Buffer
	err := fast.Seal(&buf, []byte(payload), "short")
	assert.ErrorIs(t, err, common.ErrInvalidCredential)
	assert.Zero(t, buf.Len())
}

func TestIsSealed(t *testing.T) {
	var plain, armored bytes.Buffer
	require.NoError(t, fast.Seal(&plain, []byte(payload), "correct horse"))
	require.NoError(t, Sealer{WorkFactor: 10, Armor: true}.Seal(&armored, []byte(payload), "correct horse"))

	assert.True(t, IsSealed(plain.Bytes()))
	assert.True(t, IsSealed(append([]byte("\n"), armored.Bytes()...)))
	assert.False(t, IsSealed([]byte(payload)))
	assert.False(t, IsSealed(nil))
}
