package network

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Parallel()

	n, err := Parse("")
	require.NoError(t, err)
	require.Equal(t, Mainnet, n)

	n, err = Parse(" Testnet4 ")
	require.NoError(t, err)
	require.Equal(t, Testnet4, n)

	_, err = Parse("signet")
	require.Error(t, err)
}

func TestSpaceURL(t *testing.T) {
	t.Parallel()

	require.Equal(t, "https://explorer.spacesprotocol.org/space/bitcoin", Mainnet.SpaceURL("@bitcoin"))
	require.Equal(t, "https://testnet.spacesprotocol.org/space/bitcoin", Regtest.SpaceURL("bitcoin"))
	require.Equal(t, "https://explorer.spacesprotocol.org", Network("bogus").ExplorerBaseURL())
}
