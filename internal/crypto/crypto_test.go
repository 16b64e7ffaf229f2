package crypto

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey() []byte { return bytes.Repeat([]byte{0x42}, 32) }

func TestRoundTrip(t *testing.T) {
	a, err := New(testKey())
	require.NoError(t, err)

	ct, err := a.EncryptToString("p@ssword with spaces and ü")
	require.NoError(t, err)
	assert.NotContains(t, ct, "p@ssword")

	pt, err := a.DecryptString(ct)
	require.NoError(t, err)
	assert.Equal(t, "p@ssword with spaces and ü", pt)
}

func TestNonceMakesCiphertextsDiffer(t *testing.T) {
	a, err := New(testKey())
	require.NoError(t, err)

	c1, err := a.EncryptToString("same input")
	require.NoError(t, err)
	c2, err := a.EncryptToString("same input")
	require.NoError(t, err)
	assert.NotEqual(t, c1, c2)
}

func TestDecryptRejectsTamperedInput(t *testing.T) {
	a, err := New(testKey())
	require.NoError(t, err)

	ct, err := a.EncryptToString("secret")
	require.NoError(t, err)

	_, err = a.DecryptString(ct[:len(ct)-2] + "AA")
	assert.Error(t, err)

	_, err = a.DecryptString("not base64!!!")
	assert.Error(t, err)

	_, err = a.DecryptString("c2hvcnQ")
	assert.Error(t, err)
}

func TestWrongKeyFails(t *testing.T) {
	a, err := New(testKey())
	require.NoError(t, err)
	b, err := New(bytes.Repeat([]byte{0x01}, 32))
	require.NoError(t, err)

	ct, err := a.EncryptToString("secret")
	require.NoError(t, err)
	_, err = b.DecryptString(ct)
	assert.Error(t, err)
}

func TestNewRejectsBadKeySize(t *testing.T) {
	_, err := New([]byte("too-short"))
	assert.Error(t, err)
}
