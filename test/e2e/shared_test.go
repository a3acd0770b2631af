//go:build e2e

package e2e

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseEnvUint64(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		want    uint64
		wantErr string
	}{
		{name: "unset uses default", value: "", want: 10},
		{name: "valid", value: "25", want: 25},
		{name: "not a number", value: "1O", wantErr: "invalid E2E_TEST_UINT"},
		{name: "negative", value: "-3", wantErr: "invalid E2E_TEST_UINT"},
		{name: "zero", value: "0", wantErr: "must be > 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("E2E_TEST_UINT", tt.value)
			got, err := parseEnvUint64("E2E_TEST_UINT", 10)
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}
