package rgbtypes

import (
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/chaincfg"
)

// Network is the bitcoin network a provider, or an invoice, operates on.
type Network string

const (
	// NetworkMainnet is bitcoin mainnet.
	NetworkMainnet Network = "Mainnet"

	// NetworkTestnet is bitcoin testnet3.
	NetworkTestnet Network = "Testnet"

	// NetworkSignet is the default bitcoin signet.
	NetworkSignet Network = "Signet"

	// NetworkRegtest is a local regression test network.
	NetworkRegtest Network = "Regtest"
)

// knownNetworks maps every known network onto its chain parameters.
var knownNetworks = map[Network]*chaincfg.Params{
	NetworkMainnet: &chaincfg.MainNetParams,
	NetworkTestnet: &chaincfg.TestNet3Params,
	NetworkSignet:  &chaincfg.SigNetParams,
	NetworkRegtest: &chaincfg.RegressionNetParams,
}

// ParseNetwork maps a provider reported network onto a known value, ignoring
// case. Unknown networks are returned unchanged.
func ParseNetwork(raw string) Network {
	for n := range knownNetworks {
		if strings.EqualFold(raw, string(n)) {
			return n
		}
	}

	return Network(raw)
}

// Known returns true if the network is one this client understands.
func (n Network) Known() bool {
	_, ok := knownNetworks[n]
	return ok
}

// ChainParams returns the bitcoin chain parameters of the network.
func (n Network) ChainParams() (*chaincfg.Params, error) {
	params, ok := knownNetworks[n]
	if !ok {
		return nil, fmt.Errorf("no chain params for network %v", n)
	}

	return params, nil
}

// String returns the network name, flagging values this client doesn't know.
func (n Network) String() string {
	if !n.Known() {
		return fmt.Sprintf("Unknown(%s)", string(n))
	}

	return string(n)
}
