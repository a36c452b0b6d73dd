package account

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "prefixed", input: "0x00000000000000000000000000000000000000aa"},
		{name: "bare", input: "00000000000000000000000000000000000000aa"},
		{name: "upper prefix", input: "0X00000000000000000000000000000000000000AA"},
		{name: "too short", input: "0xaa", wantErr: true},
		{name: "not hex", input: "0xzz000000000000000000000000000000000000aa", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a, err := Parse(tc.input)
			if tc.wantErr {
				require.ErrorIs(t, err, ErrInvalidAddress)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, byte(0xaa), a[19])
			assert.Equal(t, "0x00000000000000000000000000000000000000aa", a.String())
		})
	}
}

func TestAddressJSON(t *testing.T) {
	a := MustParse("0x1111111111111111111111111111111111111111")
	data, err := json.Marshal(struct {
		Owner Address `json:"owner"`
	}{Owner: a})
	require.NoError(t, err)
	assert.JSONEq(t, `{"owner":"0x1111111111111111111111111111111111111111"}`, string(data))

	var decoded struct {
		Owner Address `json:"owner"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, a, decoded.Owner)
}

func TestZero(t *testing.T) {
	assert.True(t, Zero.IsZero())
	assert.False(t, MustParse("0x0000000000000000000000000000000000000001").IsZero())
}

func TestFromPublicKey(t *testing.T) {
	pub := []byte{0x02, 0x01, 0x02, 0x03}
	a := FromPublicKey(pub)
	assert.False(t, a.IsZero())
	assert.Equal(t, a, FromPublicKey(pub), "derivation must be deterministic")
	assert.NotEqual(t, a, FromPublicKey([]byte{0x03, 0x01, 0x02, 0x03}))
}
