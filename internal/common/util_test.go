package common

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWipeByteArray(t *testing.T) {
	pin := []byte("1234")
	WipeByteArray(pin)
	assert.Equal(t, []byte{0, 0, 0, 0}, pin)

	assert.NotPanics(t, func() { WipeByteArray(nil) })
	assert.NotPanics(t, func() { WipeByteArray([]byte{}) })
}

func TestGenerateRandByteArray(t *testing.T) {
	a := GenerateRandByteArray(32)
	b := GenerateRandByteArray(32)

	assert.Len(t, a, 32)
	assert.Len(t, b, 32)
	assert.False(t, bytes.Equal(a, b), "two 32-byte keys should differ")
	assert.Empty(t, GenerateRandByteArray(0))
}
