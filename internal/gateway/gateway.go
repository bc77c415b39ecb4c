package gateway

import (
	"fmt"
	"log"

	"dataspace-gateway/internal/cache"
	"dataspace-gateway/internal/clients/dataplane"
	"dataspace-gateway/internal/clients/management"
	"dataspace-gateway/internal/clients/tenants"
	"dataspace-gateway/internal/config"
	"dataspace-gateway/internal/didweb"
	"dataspace-gateway/internal/entity"
	"dataspace-gateway/internal/secrets"
	"dataspace-gateway/internal/services/exchange"
	"dataspace-gateway/internal/services/provisioning"
	"dataspace-gateway/internal/services/publication"
)

// Gateway wires the entity store, external clients, cache and services into
// one unit. Fields are exported so tests can assemble a gateway from mocked
// collaborators.
type Gateway struct {
	Config       *config.Config
	Store        *entity.MemoryStore
	Catalogs     *cache.CatalogCache
	Resolver     *didweb.Resolver
	Provisioning *provisioning.Service
	Publication  *publication.Service
	Exchange     *exchange.Service
}

// New builds a gateway against the real external collaborators
func New(cfg *config.Config) (*Gateway, error) {
	store := entity.NewMemoryStore()
	if err := store.LoadSnapshot(cfg.Store.SnapshotPath); err != nil {
		return nil, fmt.Errorf("failed to load entity snapshot: %w", err)
	}

	tenantClient := tenants.NewClient(&tenants.ClientConfig{
		BaseURL: cfg.TenantManager.BaseURL,
		APIKey:  cfg.TenantManager.APIKey,
		Timeout: cfg.TenantManager.Timeout,
	})
	managementClient := management.NewClient(&management.ClientConfig{
		BaseURL: cfg.Management.BaseURL,
		APIKey:  cfg.Management.APIKey,
		Timeout: cfg.Management.Timeout,
	})
	dataPlaneClient := dataplane.NewClient(&dataplane.ClientConfig{
		BaseURL: cfg.DataPlane.BaseURL,
		Timeout: cfg.DataPlane.Timeout,
	})
	secretStore, err := secrets.NewVaultStore(&secrets.VaultConfig{
		Address: cfg.Vault.Address,
		Token:   cfg.Vault.Token,
		Mount:   cfg.Vault.Mount,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create secret store: %w", err)
	}

	resolver := didweb.NewResolver(&didweb.ResolverConfig{
		UseHTTPS: cfg.DID.UseHTTPS,
		Timeout:  cfg.DID.Timeout,
	})
	catalogs := cache.NewCatalogCache(managementClient, cfg.Cache.Capacity)

	return &Gateway{
		Config:       cfg,
		Store:        store,
		Catalogs:     catalogs,
		Resolver:     resolver,
		Provisioning: provisioning.NewService(store, tenantClient, secretStore, cfg.Vault.PathPrefix),
		Publication:  publication.NewService(store, managementClient, dataPlaneClient, cfg.Membership),
		Exchange:     exchange.NewService(store, managementClient, resolver, catalogs),
	}, nil
}

// SaveSnapshot persists the entity store to the configured snapshot path
func (g *Gateway) SaveSnapshot() {
	if err := g.Store.SaveSnapshot(g.Config.Store.SnapshotPath); err != nil {
		log.Printf("gateway: failed to save entity snapshot: %v", err)
	}
}
