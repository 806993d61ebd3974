package clients

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHyperliquidKey(t *testing.T) {
	const raw = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

	tests := []struct {
		name    string
		in      string
		wantErr bool
	}{
		{name: "generated when empty", in: ""},
		{name: "plain hex", in: raw},
		{name: "0x prefix", in: "0x" + raw},
		{name: "garbage", in: "zz", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := hyperliquidKey(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, key.D)
		})
	}

	a, err := hyperliquidKey(raw)
	require.NoError(t, err)
	b, err := hyperliquidKey("0x" + raw)
	require.NoError(t, err)
	assert.Equal(t, a.D, b.D)
}
