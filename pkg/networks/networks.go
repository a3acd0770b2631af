// Package networks loads the list of monitored EVM networks.
package networks

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/ava-labs/throughput-monitor/internal/chainclient/evm"
)

// Network is one monitored chain.
type Network struct {
	Name   string `json:"name"`
	Label  string `json:"label"`
	HTTP   string `json:"http"`
	Client string `json:"client,omitempty"` // evm.KindCoreth (default) or evm.KindSubnetEVM
}

// Validate checks a single network entry.
func (n Network) Validate() error {
	if strings.TrimSpace(n.Label) == "" {
		return errors.New("label cannot be empty")
	}
	u, err := url.Parse(n.HTTP)
	if err != nil {
		return fmt.Errorf("invalid endpoint %q: %w", n.HTTP, err)
	}
	switch u.Scheme {
	case "http", "https", "ws", "wss":
	default:
		return fmt.Errorf("invalid endpoint %q: unsupported scheme %q", n.HTTP, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid endpoint %q: missing host", n.HTTP)
	}
	switch n.Client {
	case "", evm.KindCoreth, evm.KindSubnetEVM:
	default:
		return fmt.Errorf("invalid client type: %s", n.Client)
	}
	return nil
}

// ClientKind returns the RPC client flavour, defaulting to coreth.
func (n Network) ClientKind() string {
	if n.Client == "" {
		return evm.KindCoreth
	}
	return n.Client
}

// Load reads and validates the networks file at path.
func Load(path string) ([]Network, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open networks file: %w", err)
	}
	defer f.Close()

	nets, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("networks file %s: %w", path, err)
	}
	return nets, nil
}

// Decode parses a JSON array of networks and validates it. Order is preserved.
func Decode(r io.Reader) ([]Network, error) {
	var nets []Network
	if err := json.NewDecoder(r).Decode(&nets); err != nil {
		return nil, fmt.Errorf("failed to decode networks: %w", err)
	}
	if err := Validate(nets); err != nil {
		return nil, err
	}
	return nets, nil
}

// Validate checks every entry and rejects an empty list or duplicate labels.
func Validate(nets []Network) error {
	if len(nets) == 0 {
		return errors.New("no networks configured")
	}
	labels := make(map[string]struct{}, len(nets))
	var errs []error
	for i, n := range nets {
		if err := n.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("network %d (%s): %w", i, n.Name, err))
			continue
		}
		if _, dup := labels[n.Label]; dup {
			errs = append(errs, fmt.Errorf("network %d (%s): duplicate label %q", i, n.Name, n.Label))
			continue
		}
		labels[n.Label] = struct{}{}
	}
	return errors.Join(errs...)
}

// Labels returns the labels in configuration order.
func Labels(nets []Network) []string {
	out := make([]string, len(nets))
	for i, n := range nets {
		out[i] = n.Label
	}
	return out
}
