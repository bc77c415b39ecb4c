package entity

import (
	"fmt"
	"sync"
	"time"

	"dataspace-gateway/internal/common"
)

// Store defines the interface for the local entity store. All mutations are
// atomic with respect to concurrent readers; none of them span the remote
// calls that precede them.
type Store interface {
	// Provider operations
	CreateProvider(provider *ServiceProvider) error
	GetProvider(id string) (*ServiceProvider, error)

	// Tenant operations
	CreateTenant(tenant *Tenant) error
	GetTenant(id string) (*Tenant, error)
	UpdateTenant(id string, mutate func(*Tenant) error) (*Tenant, error)

	// Participant operations
	CreateParticipant(participant *Participant) error
	GetParticipant(id string) (*Participant, error)
	FindParticipantByContextID(contextID string) (*Participant, error)
	ListParticipants(tenantID string) ([]*Participant, error)
	UpdateParticipant(id string, mutate func(*Participant) error) (*Participant, error)

	// Dataspace operations
	CreateDataspace(dataspace *Dataspace) error
	GetDataspace(id string) (*Dataspace, error)
	ListDataspaces() ([]*Dataspace, error)
}

// MemoryStore implements Store with mutex-guarded maps
type MemoryStore struct {
	mu           sync.RWMutex
	providers    map[string]*ServiceProvider
	tenants      map[string]*Tenant
	participants map[string]*Participant
	dataspaces   map[string]*Dataspace
}

// NewMemoryStore creates a new in-memory entity store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		providers:    make(map[string]*ServiceProvider),
		tenants:      make(map[string]*Tenant),
		participants: make(map[string]*Participant),
		dataspaces:   make(map[string]*Dataspace),
	}
}

// CreateProvider registers a new service provider
func (s *MemoryStore) CreateProvider(provider *ServiceProvider) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.providers[provider.ID]; exists {
		return common.NewError(common.ErrInvalidArgument, fmt.Sprintf("provider already exists: %s", provider.ID))
	}
	if provider.CreatedAt.IsZero() {
		provider.CreatedAt = time.Now()
	}
	cp := *provider
	s.providers[provider.ID] = &cp
	return nil
}

// GetProvider fetches a service provider by id
func (s *MemoryStore) GetProvider(id string) (*ServiceProvider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	provider, exists := s.providers[id]
	if !exists {
		return nil, common.ErrNotFoundError(fmt.Sprintf("provider not found: %s", id))
	}
	cp := *provider
	return &cp, nil
}

// CreateTenant registers a new tenant
func (s *MemoryStore) CreateTenant(tenant *Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tenants[tenant.ID]; exists {
		return common.NewError(common.ErrInvalidArgument, fmt.Sprintf("tenant already exists: %s", tenant.ID))
	}
	if tenant.ProviderID != "" {
		if _, exists := s.providers[tenant.ProviderID]; !exists {
			return common.ErrNotFoundError(fmt.Sprintf("provider not found: %s", tenant.ProviderID))
		}
	}
	if tenant.CreatedAt.IsZero() {
		tenant.CreatedAt = time.Now()
	}
	s.tenants[tenant.ID] = tenant.Clone()
	return nil
}

// GetTenant fetches a tenant by id
func (s *MemoryStore) GetTenant(id string) (*Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tenant, exists := s.tenants[id]
	if !exists {
		return nil, common.ErrTenantNotFoundError(id)
	}
	return tenant.Clone(), nil
}

// UpdateTenant applies a mutation to a tenant under the store lock and
// returns the updated copy
func (s *MemoryStore) UpdateTenant(id string, mutate func(*Tenant) error) (*Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tenant, exists := s.tenants[id]
	if !exists {
		return nil, common.ErrTenantNotFoundError(id)
	}
	if err := mutate(tenant); err != nil {
		return nil, err
	}
	return tenant.Clone(), nil
}

// CreateParticipant registers a new participant under an existing tenant
func (s *MemoryStore) CreateParticipant(participant *Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.participants[participant.ID]; exists {
		return common.NewError(common.ErrInvalidArgument, fmt.Sprintf("participant already exists: %s", participant.ID))
	}
	if _, exists := s.tenants[participant.TenantID]; !exists {
		return common.ErrTenantNotFoundError(participant.TenantID)
	}
	if participant.CreatedAt.IsZero() {
		participant.CreatedAt = time.Now()
	}
	s.participants[participant.ID] = participant.Clone()
	return nil
}

// GetParticipant fetches a participant by id
func (s *MemoryStore) GetParticipant(id string) (*Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	participant, exists := s.participants[id]
	if !exists {
		return nil, common.ErrParticipantNotFoundError(id)
	}
	return participant.Clone(), nil
}

// FindParticipantByContextID locates the participant owning a participant
// context id
func (s *MemoryStore) FindParticipantByContextID(contextID string) (*Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, participant := range s.participants {
		if participant.ParticipantContextID != "" && participant.ParticipantContextID == contextID {
			return participant.Clone(), nil
		}
	}
	return nil, common.ErrNotFoundError(fmt.Sprintf("no participant with context id: %s", contextID))
}

// ListParticipants lists the participants of a tenant; an empty tenant id
// lists all participants
func (s *MemoryStore) ListParticipants(tenantID string) ([]*Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*Participant
	for _, participant := range s.participants {
		if tenantID == "" || participant.TenantID == tenantID {
			result = append(result, participant.Clone())
		}
	}
	return result, nil
}

// UpdateParticipant applies a mutation to a participant under the store lock
// and returns the updated copy
func (s *MemoryStore) UpdateParticipant(id string, mutate func(*Participant) error) (*Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	participant, exists := s.participants[id]
	if !exists {
		return nil, common.ErrParticipantNotFoundError(id)
	}
	if err := mutate(participant); err != nil {
		return nil, err
	}
	return participant.Clone(), nil
}

// CreateDataspace registers a dataspace
func (s *MemoryStore) CreateDataspace(dataspace *Dataspace) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.dataspaces[dataspace.ID]; exists {
		return common.NewError(common.ErrInvalidArgument, fmt.Sprintf("dataspace already exists: %s", dataspace.ID))
	}
	cp := *dataspace
	cp.Properties = cloneStringMap(dataspace.Properties)
	s.dataspaces[dataspace.ID] = &cp
	return nil
}

// GetDataspace fetches a dataspace by id
func (s *MemoryStore) GetDataspace(id string) (*Dataspace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dataspace, exists := s.dataspaces[id]
	if !exists {
		return nil, common.ErrNotFoundError(fmt.Sprintf("dataspace not found: %s", id))
	}
	cp := *dataspace
	cp.Properties = cloneStringMap(dataspace.Properties)
	return &cp, nil
}

// ListDataspaces lists all known dataspaces
func (s *MemoryStore) ListDataspaces() ([]*Dataspace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*Dataspace, 0, len(s.dataspaces))
	for _, dataspace := range s.dataspaces {
		cp := *dataspace
		cp.Properties = cloneStringMap(dataspace.Properties)
		result = append(result, &cp)
	}
	return result, nil
}
