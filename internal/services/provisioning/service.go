package provisioning

import (
	"context"
	"fmt"
	"log"
	"path"

	"dataspace-gateway/internal/clients/tenants"
	"dataspace-gateway/internal/common"
	"dataspace-gateway/internal/entity"
	"dataspace-gateway/internal/secrets"
)

// provisioningStateKey is the well-known property under which the external
// orchestrator reports provisioning progress
const provisioningStateKey = "provisioningState"

// contextIDKey is the sub-field of the provisioning state carrying the
// participant context id once it exists
const contextIDKey = "participantContextId"

// agentTypeTable translates external VPA type names to local agent types.
// Unlisted names translate to the empty type and are surfaced, not dropped.
var agentTypeTable = map[string]entity.AgentType{
	"control-plane":      entity.AgentControlPlane,
	"credential-service": entity.AgentCredentialService,
	"data-plane":         entity.AgentDataPlane,
}

// TenantAPI is the slice of the tenant-management client the orchestrator
// needs
type TenantAPI interface {
	CreateTenant(ctx context.Context, name string) (string, error)
	DeployProfile(ctx context.Context, tenantExternalID string, profile *tenants.NewProfile) (*tenants.ParticipantProfile, error)
	GetProfile(ctx context.Context, tenantExternalID, profileExternalID string) (*tenants.ParticipantProfile, error)
}

// Service drives a participant from registered to addressable and
// credentialed. All methods are synchronous; waiting for the external system
// is the caller's poll loop, never an internal retry.
type Service struct {
	store      entity.Store
	tenantAPI  TenantAPI
	secrets    secrets.Store
	pathPrefix string
}

// NewService creates a new provisioning service
func NewService(store entity.Store, tenantAPI TenantAPI, secretStore secrets.Store, secretPathPrefix string) *Service {
	return &Service{
		store:      store,
		tenantAPI:  tenantAPI,
		secrets:    secretStore,
		pathPrefix: secretPathPrefix,
	}
}

// RegisterRequest creates a tenant/participant pair locally
type RegisterRequest struct {
	ProviderID   string
	TenantName   string
	Identifier   string
	DataspaceIDs []string
}

// Register creates the local tenant and participant records. The participant
// starts with no correlation id, no context id, no credentials and no agents;
// deployment fills those in.
func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*entity.Participant, error) {
	if req.TenantName == "" {
		return nil, common.ErrInvalidArgumentError("tenant name must not be empty")
	}
	if req.Identifier == "" {
		return nil, common.ErrInvalidArgumentError("participant identifier must not be empty")
	}
	if len(req.Identifier) > common.MaxIdentifierLength {
		return nil, common.ErrInvalidArgumentError(fmt.Sprintf("participant identifier exceeds %d characters", common.MaxIdentifierLength))
	}

	tenant := &entity.Tenant{
		ID:         common.NewID(),
		ProviderID: req.ProviderID,
		Name:       req.TenantName,
	}
	if err := s.store.CreateTenant(tenant); err != nil {
		return nil, err
	}

	participant := &entity.Participant{
		ID:         common.NewID(),
		TenantID:   tenant.ID,
		Identifier: req.Identifier,
	}
	for _, dataspaceID := range req.DataspaceIDs {
		participant.Dataspaces = append(participant.Dataspaces, entity.DataspaceInfo{DataspaceID: dataspaceID})
	}
	if err := s.store.CreateParticipant(participant); err != nil {
		return nil, err
	}
	return s.store.GetParticipant(participant.ID)
}

// Deploy creates the participant identity across the external tenant
// orchestrator. Tenant creation is skipped when the tenant already carries a
// correlation id, which makes a retried deploy idempotent after a partial
// failure; there is no compensation for the remote objects already created.
func (s *Service) Deploy(ctx context.Context, participantID, desiredIdentifier string) (*entity.Participant, error) {
	participant, err := s.store.GetParticipant(participantID)
	if err != nil {
		return nil, err
	}
	tenant, err := s.store.GetTenant(participant.TenantID)
	if err != nil {
		return nil, err
	}

	if tenant.CorrelationID == "" {
		externalID, err := s.tenantAPI.CreateTenant(ctx, tenant.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to create external tenant: %w", err)
		}
		tenant, err = s.store.UpdateTenant(tenant.ID, func(t *entity.Tenant) error {
			t.CorrelationID = externalID
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	profile, err := s.tenantAPI.DeployProfile(ctx, tenant.CorrelationID, &tenants.NewProfile{
		ClientID:   common.NewID(),
		Identifier: desiredIdentifier,
		TenantID:   tenant.CorrelationID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to deploy participant profile: %w", err)
	}

	agents := translateVPAs(profile.VPAs)
	return s.store.UpdateParticipant(participantID, func(p *entity.Participant) error {
		p.CorrelationID = profile.ID
		p.Identifier = profile.Identifier
		p.Agents = agents
		return nil
	})
}

// ResolveContextID fetches the external profile and extracts the participant
// context id from its provisioning state. "" with a nil error means the
// profile is not provisioned yet; callers poll with their own backoff until
// the id appears. Once found the id is persisted and never cleared.
func (s *Service) ResolveContextID(ctx context.Context, participantID string) (string, error) {
	participant, err := s.store.GetParticipant(participantID)
	if err != nil {
		return "", err
	}
	if participant.ParticipantContextID != "" {
		return participant.ParticipantContextID, nil
	}

	tenant, err := s.store.GetTenant(participant.TenantID)
	if err != nil {
		return "", err
	}
	if tenant.CorrelationID == "" || participant.CorrelationID == "" {
		return "", common.ErrInvalidArgumentError(fmt.Sprintf("participant has not been deployed: %s", participantID))
	}

	profile, err := s.tenantAPI.GetProfile(ctx, tenant.CorrelationID, participant.CorrelationID)
	if err != nil {
		return "", fmt.Errorf("failed to fetch participant profile: %w", err)
	}

	state := contextStateFromProfile(profile)
	if !state.Ready {
		return "", nil
	}

	if _, err := s.store.UpdateParticipant(participantID, func(p *entity.Participant) error {
		if p.ParticipantContextID == "" {
			p.ParticipantContextID = state.ContextID
		}
		return nil
	}); err != nil {
		return "", err
	}
	return state.ContextID, nil
}

// FetchCredentials reads the participant's shared secret from the secret
// store and persists the resulting credentials. nil with a nil error means
// the secret does not exist yet. Credentials are fetched at most once per
// distinct context id; secrets are not rotated without explicit action.
func (s *Service) FetchCredentials(ctx context.Context, participantContextID string) (*entity.ClientCredentials, error) {
	if participantContextID == "" {
		return nil, common.ErrInvalidArgumentError("participant context id must not be empty")
	}

	participant, err := s.store.FindParticipantByContextID(participantContextID)
	if err != nil {
		return nil, err
	}
	if participant.Credentials != nil {
		creds := *participant.Credentials
		return &creds, nil
	}

	secret, err := s.secrets.ReadSecret(ctx, s.secretPath(participantContextID))
	if err != nil {
		return nil, err
	}
	if secret == "" {
		return nil, nil
	}

	// By convention the context id doubles as the client id.
	creds := entity.ClientCredentials{
		ClientID:     participantContextID,
		ClientSecret: secret,
	}
	if _, err := s.store.UpdateParticipant(participant.ID, func(p *entity.Participant) error {
		if p.Credentials == nil {
			p.Credentials = &creds
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return &creds, nil
}

// Refresh re-reads the external profile and reconciles the local view:
// context id, lazily fetched credentials, and per-agent deployment states.
// The external system is the source of truth for agent state but not for set
// membership; an external VPA with no local counterpart is logged and
// ignored.
func (s *Service) Refresh(ctx context.Context, participantID string) (*entity.Participant, error) {
	participant, err := s.store.GetParticipant(participantID)
	if err != nil {
		return nil, err
	}
	tenant, err := s.store.GetTenant(participant.TenantID)
	if err != nil {
		return nil, err
	}
	if tenant.CorrelationID == "" || participant.CorrelationID == "" {
		return participant, nil
	}

	profile, err := s.tenantAPI.GetProfile(ctx, tenant.CorrelationID, participant.CorrelationID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch participant profile: %w", err)
	}

	contextID := participant.ParticipantContextID
	if contextID == "" {
		if state := contextStateFromProfile(profile); state.Ready {
			contextID = state.ContextID
		}
	}

	var credentials *entity.ClientCredentials
	if contextID != "" && participant.Credentials == nil {
		secret, err := s.secrets.ReadSecret(ctx, s.secretPath(contextID))
		if err != nil {
			return nil, err
		}
		if secret != "" {
			credentials = &entity.ClientCredentials{ClientID: contextID, ClientSecret: secret}
		}
	}

	return s.store.UpdateParticipant(participantID, func(p *entity.Participant) error {
		if p.ParticipantContextID == "" && contextID != "" {
			p.ParticipantContextID = contextID
		}
		if p.Credentials == nil && credentials != nil {
			p.Credentials = credentials
		}
		for _, vpa := range profile.VPAs {
			agentType := agentTypeTable[vpa.Type]
			updated := false
			for i := range p.Agents {
				if (agentType != "" && p.Agents[i].Type == agentType) || p.Agents[i].ExternalType == vpa.Type {
					p.Agents[i].State = vpa.State
					updated = true
					break
				}
			}
			if !updated {
				log.Printf("provisioning: participant %s has no local agent for external VPA type %q, ignoring", participantID, vpa.Type)
			}
		}
		return nil
	})
}

func (s *Service) secretPath(contextID string) string {
	return path.Join(s.pathPrefix, contextID)
}

// translateVPAs maps external VPA entries to local agents 1:1. An
// unrecognized external type yields an agent with the empty type and the raw
// name preserved so the mismatch stays visible.
func translateVPAs(vpas []tenants.VPA) []entity.VirtualParticipantAgent {
	agents := make([]entity.VirtualParticipantAgent, 0, len(vpas))
	for _, vpa := range vpas {
		agentType, known := agentTypeTable[vpa.Type]
		if !known {
			log.Printf("provisioning: unrecognized external VPA type %q", vpa.Type)
		}
		agents = append(agents, entity.VirtualParticipantAgent{
			Type:         agentType,
			ExternalType: vpa.Type,
			State:        vpa.State,
		})
	}
	return agents
}
