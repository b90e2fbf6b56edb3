package chain

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tradepulse/custody/internal/domain/interfaces"
	"github.com/tradepulse/custody/pkg/config"
)

// Registry holds one transfer client per configured network.
type Registry struct {
	clients map[string]interfaces.TransferClient
}

func NewRegistry(chains map[string]config.ChainConfig, logger zerolog.Logger) (*Registry, error) {
	clients := make(map[string]interfaces.TransferClient, len(chains))
	for network, cfg := range chains {
		client, err := NewEVMClient(network, cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to build %s client: %w", network, err)
		}
		clients[network] = client
		logger.Info().Str("network", network).Msg("Transfer client registered")
	}
	return &Registry{clients: clients}, nil
}

func (r *Registry) ForNetwork(network string) (interfaces.TransferClient, error) {
	client, ok := r.clients[network]
	if !ok {
		return nil, fmt.Errorf("no transfer client configured for network %q", network)
	}
	return client, nil
}
