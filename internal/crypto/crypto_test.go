package crypto

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSha512Half(t *testing.T) {
	got := Sha512Half([]byte("fakeRandomString"))
	want := [32]byte{0xbb, 0x3e, 0xca, 0x89, 0x85, 0xe1, 0x48, 0x4f, 0xa6, 0xa2, 0x8c, 0x4b, 0x30, 0xfb, 0x0, 0x42,
		0xa2, 0xcc, 0x5d, 0xf3, 0xec, 0x8d, 0xc3, 0x7b, 0x5f, 0x3d, 0x12, 0x6d, 0xdf, 0xd3, 0xca, 0x14}
	require.Equal(t, want, got)
}

func TestRequestDigestSeparatesMethod(t *testing.T) {
	a := RequestDigest("create_offer", []byte(`{"x":1}`))
	b := RequestDigest("create_offe", []byte(`r{"x":1}`))
	assert.NotEqual(t, a, b)
}

func TestSignAndVerifyRequest(t *testing.T) {
	key := KeyPairFromSeed([]byte("alice"))
	payload := []byte(`{"offer_id":"0"}`)
	sig := key.SignRequest("cancel_offer", payload)

	assert.Equal(t, CanonicityFullyCanonical, ECDSACanonicality(sig))

	addr, err := VerifyRequest("cancel_offer", payload, key.PublicKey(), sig)
	require.NoError(t, err)
	assert.Equal(t, key.Address(), addr)

	_, err = VerifyRequest("cancel_offer", []byte(`{"offer_id":"1"}`), key.PublicKey(), sig)
	require.ErrorIs(t, err, ErrInvalidSignature)

	_, err = VerifyRequest("buy_with_native", payload, key.PublicKey(), sig)
	require.ErrorIs(t, err, ErrInvalidSignature)

	other := KeyPairFromSeed([]byte("bob"))
	_, err = VerifyRequest("cancel_offer", payload, other.PublicKey(), sig)
	require.ErrorIs(t, err, ErrInvalidSignature)

	_, err = VerifyRequest("cancel_offer", payload, []byte{0x02, 0x01}, sig)
	require.ErrorIs(t, err, ErrInvalidPublicKey)
}

func TestKeyPairFromSeedIsDeterministic(t *testing.T) {
	a := KeyPairFromSeed([]byte("carol"))
	b := KeyPairFromSeed([]byte("carol"))
	assert.Equal(t, a.PublicKeyHex(), b.PublicKeyHex())
	assert.Len(t, a.PublicKey(), 33)
}

func TestParsePrivateKeyRoundTrip(t *testing.T) {
	key, err := GenerateKeyPair()
	require.NoError(t, err)

	parsed, err := ParsePrivateKey("0x" + key.PrivateKeyHex())
	require.NoError(t, err)
	assert.Equal(t, key.Address(), parsed.Address())

	for _, bad := range []string{"", "zz", "00", hex.EncodeToString(make([]byte, 32))} {
		_, err := ParsePrivateKey(bad)
		assert.ErrorIs(t, err, ErrInvalidPrivateKey, bad)
	}
}

func TestECDSACanonicality(t *testing.T) {
	tests := []struct {
		name string
		sig  string
		want Canonicality
	}{
		{"low S", "304402206878b5690514437a2342405029426cc2b25b4a03fc396fef845d656cf62bad2c022018610a8d37f65ad02af907c8cb8f72becd0de43de7d5f42fefccb6c2a391a67c", CanonicityFullyCanonical},
		{"minimal", "3006020101020101", CanonicityFullyCanonical},
		{"bad tag", "3106020100020100", CanonicityNone},
		{"bad length", "3007020100020100", CanonicityNone},
		{"zero R", "300602010002010a", CanonicityNone},
		{"negative R", "3006020180020101", CanonicityNone},
		{"high S", "3026020101022100fffffffffffffffffffffffffffffffebaaedce6af48a03bbfd25e8cd0364140", CanonicityCanonical},
		{"empty", "", CanonicityNone},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sig, err := hex.DecodeString(tc.sig)
			require.NoError(t, err)
			assert.Equal(t, tc.want, ECDSACanonicality(sig))
		})
	}
}

func TestVerifyRejectsHighS(t *testing.T) {
	key := KeyPairFromSeed([]byte("dave"))
	sig, _ := hex.DecodeString("3026020101022100fffffffffffffffffffffffffffffffebaaedce6af48a03bbfd25e8cd0364140")
	err := Verify(key.PublicKey(), Sha512Half([]byte("x")), sig)
	require.ErrorIs(t, err, ErrInvalidSignature)
}
