//go:build e2e

package e2e

import (
	"fmt"
	"os"
	"strconv"
	"testing"
)

func getEnvStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getEnvUint64 fails the test when key is set to something that is not a
// positive integer.
func getEnvUint64(t *testing.T, key string, def uint64) uint64 {
	t.Helper()
	v, err := parseEnvUint64(key, def)
	if err != nil {
		t.Fatalf("%v", err)
	}
	return v
}

func parseEnvUint64(key string, def uint64) (uint64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	out, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %w", key, v, err)
	}
	if out == 0 {
		return 0, fmt.Errorf("invalid %s=%q: must be > 0", key, v)
	}
	return out, nil
}
