// Package network describes the Bitcoin network the storefront is deployed against.
package network

import (
	"fmt"
	"strings"
)

// Network selects the chain used for explorer links and CLI commands.
type Network string

const (
	Mainnet  Network = "mainnet"
	Testnet4 Network = "testnet4"
	Regtest  Network = "regtest"
)

var explorerBaseURL = map[Network]string{
	Mainnet:  "https://explorer.spacesprotocol.org",
	Testnet4: "https://testnet.spacesprotocol.org",
	Regtest:  "https://testnet.spacesprotocol.org",
}

// Parse accepts the configured network name. The empty string selects mainnet.
func Parse(raw string) (Network, error) {
	n := Network(strings.ToLower(strings.TrimSpace(raw)))
	if n == "" {
		return Mainnet, nil
	}
	if _, ok := explorerBaseURL[n]; !ok {
		return "", fmt.Errorf("network: unknown network %q (want mainnet, testnet4 or regtest)", raw)
	}
	return n, nil
}

// String implements fmt.Stringer.
func (n Network) String() string { return string(n) }

// ChainFlag is the value passed to space-cli --chain.
func (n Network) ChainFlag() string { return string(n) }

// IsMainnet reports whether n is the production chain.
func (n Network) IsMainnet() bool { return n == Mainnet }

// ExplorerBaseURL returns the explorer root for n, defaulting to the mainnet explorer.
func (n Network) ExplorerBaseURL() string {
	if u, ok := explorerBaseURL[n]; ok {
		return u
	}
	return explorerBaseURL[Mainnet]
}

// SpaceURL links to the explorer page of a space. A leading "@" is dropped.
func (n Network) SpaceURL(name string) string {
	return n.ExplorerBaseURL() + "/space/" + strings.TrimPrefix(name, "@")
}
