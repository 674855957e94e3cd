package config

import (
	"fmt"

	"github.com/Klingon-tech/klingnet-purse/internal/balance"
	"github.com/Klingon-tech/klingnet-purse/internal/purse"
	"github.com/Klingon-tech/klingnet-purse/internal/rpcclient"
)

// DefaultMainnet returns the default configuration for mainnet.
func DefaultMainnet() *Config {
	return &Config{
		Network: Mainnet,
		DataDir: DefaultDataDir(),
		Node: NodeConfig{
			URL:     "http://127.0.0.1:8545",
			Timeout: rpcclient.DefaultTimeout,
		},
		Lookup: LookupConfig{
			Threads: balance.DefaultWorkers,
		},
		Purse: PurseConfig{
			KeyPoolSize: purse.DefaultKeyPoolSize,
		},
		RPC: RPCConfig{
			Enabled:    false,
			Addr:       "127.0.0.1",
			Port:       8547,
			AllowedIPs: []string{"127.0.0.1"},
		},
		Log: LogConfig{
			Level: "info",
			JSON:  false,
		},
	}
}

// Default returns the default configuration for the given network.
func Default(network NetworkType) *Config {
	cfg := DefaultMainnet()
	p, err := Params(network)
	if err != nil {
		return cfg
	}
	cfg.Network = network
	cfg.Node.URL = fmt.Sprintf("http://127.0.0.1:%d", p.NodePort)
	cfg.RPC.Port = p.RPCPort
	return cfg
}
