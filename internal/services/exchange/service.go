package exchange

import (
	"context"
	"fmt"

	"dataspace-gateway/internal/clients/management"
	"dataspace-gateway/internal/common"
	"dataspace-gateway/internal/entity"
)

// ManagementAPI is the slice of the management client the orchestrator needs
type ManagementAPI interface {
	ListContractNegotiations(ctx context.Context, contextID string) ([]*management.ContractNegotiation, error)
	GetContractNegotiation(ctx context.Context, contextID, negotiationID string) (*management.ContractNegotiation, error)
	GetAgreement(ctx context.Context, contextID, negotiationID string) (*management.Agreement, error)
	InitiateContractNegotiation(ctx context.Context, contextID string, request *management.NegotiationRequest) (string, error)
	InitiateTransferProcess(ctx context.Context, contextID string, request *management.TransferRequest) (string, error)
	GetTransferProcess(ctx context.Context, contextID, transferID string) (*management.TransferProcess, error)
	GetEdr(ctx context.Context, contextID, transferID string) (*management.EndpointDataReference, error)
}

// AddressResolver resolves a counter-party DID to a protocol endpoint URL
type AddressResolver interface {
	Resolve(ctx context.Context, did string) (string, error)
}

// CatalogProvider serves counter-party catalogs with freshness semantics
type CatalogProvider interface {
	Get(ctx context.Context, contextID, counterPartyID, directive string) (*management.Catalog, error)
}

// Service initiates and tracks contract negotiations and transfer processes,
// augmenting reads with server-side-only fields
type Service struct {
	store      entity.Store
	management ManagementAPI
	resolver   AddressResolver
	catalogs   CatalogProvider
}

// NewService creates a new exchange service
func NewService(store entity.Store, managementAPI ManagementAPI, resolver AddressResolver, catalogs CatalogProvider) *Service {
	return &Service{
		store:      store,
		management: managementAPI,
		resolver:   resolver,
		catalogs:   catalogs,
	}
}

// RequestCatalog returns the counter-party's catalog, honoring the caller's
// Cache-Control style freshness directive
func (s *Service) RequestCatalog(ctx context.Context, participantID, counterPartyID, directive string) (*management.Catalog, error) {
	contextID, err := s.contextOf(participantID)
	if err != nil {
		return nil, err
	}
	return s.catalogs.Get(ctx, contextID, counterPartyID, directive)
}

// InitiateNegotiation starts a contract negotiation. When the request leaves
// the counter-party address unset, it is resolved from the declared provider
// identifier; failing to resolve it is an invalid-argument failure because
// the caller supplied an unusable provider.
func (s *Service) InitiateNegotiation(ctx context.Context, participantID string, request *management.NegotiationRequest) (string, error) {
	contextID, err := s.contextOf(participantID)
	if err != nil {
		return "", err
	}

	if request.CounterPartyAddress == "" {
		address, err := s.resolver.Resolve(ctx, request.ProviderID)
		if err != nil {
			return "", err
		}
		if address == "" {
			return "", common.ErrInvalidArgumentError(fmt.Sprintf("cannot resolve counter-party address for %s", request.ProviderID))
		}
		request.CounterPartyAddress = address
	}

	return s.management.InitiateContractNegotiation(ctx, contextID, request)
}

// GetNegotiation fetches one negotiation, joining its agreement when one has
// been reached
func (s *Service) GetNegotiation(ctx context.Context, participantID, negotiationID string) (*management.ContractNegotiation, error) {
	contextID, err := s.contextOf(participantID)
	if err != nil {
		return nil, err
	}

	negotiation, err := s.management.GetContractNegotiation(ctx, contextID, negotiationID)
	if err != nil {
		return nil, err
	}
	if err := s.attachAgreement(ctx, contextID, negotiation); err != nil {
		return nil, err
	}
	return negotiation, nil
}

// ListContracts lists all negotiations and joins the full agreement object
// onto every negotiation that carries an agreement id. The join happens at
// read time; the external system does not embed agreements inline.
func (s *Service) ListContracts(ctx context.Context, participantID string) ([]*management.ContractNegotiation, error) {
	contextID, err := s.contextOf(participantID)
	if err != nil {
		return nil, err
	}

	negotiations, err := s.management.ListContractNegotiations(ctx, contextID)
	if err != nil {
		return nil, err
	}
	for _, negotiation := range negotiations {
		if err := s.attachAgreement(ctx, contextID, negotiation); err != nil {
			return nil, err
		}
	}
	return negotiations, nil
}

// InitiateTransfer starts a transfer process with a known counter-party. The
// counter-party's protocol address is resolved from its identifier; a party
// that cannot be resolved is reported as not found since a transfer
// counter-party is expected to already be a known participant.
func (s *Service) InitiateTransfer(ctx context.Context, participantID string, request *management.TransferRequest) (string, error) {
	contextID, err := s.contextOf(participantID)
	if err != nil {
		return "", err
	}

	address, err := s.resolver.Resolve(ctx, request.CounterPartyIdentifier)
	if err != nil {
		return "", err
	}
	if address == "" {
		return "", common.ErrNotFoundError(fmt.Sprintf("counter-party not found: %s", request.CounterPartyIdentifier))
	}
	request.CounterPartyAddress = address

	return s.management.InitiateTransferProcess(ctx, contextID, request)
}

// GetTransfer fetches a transfer process. Only when the transfer has reached
// the started state is the endpoint data reference fetched and attached; the
// EDR is itself a credential and is never fetched speculatively.
func (s *Service) GetTransfer(ctx context.Context, participantID, transferID string) (*management.TransferProcess, error) {
	contextID, err := s.contextOf(participantID)
	if err != nil {
		return nil, err
	}

	transfer, err := s.management.GetTransferProcess(ctx, contextID, transferID)
	if err != nil {
		return nil, err
	}
	if transfer.State == management.TransferStateStarted {
		edr, err := s.management.GetEdr(ctx, contextID, transferID)
		if err != nil {
			return nil, err
		}
		transfer.EDR = edr
	}
	return transfer, nil
}

// AddPartner records a counter-party reference under one of the
// participant's dataspace memberships
func (s *Service) AddPartner(ctx context.Context, participantID, dataspaceID string, partner entity.PartnerReference) (*entity.Participant, error) {
	if partner.Identifier == "" {
		return nil, common.ErrInvalidArgumentError("partner identifier must not be empty")
	}
	if len(partner.Identifier) > common.MaxIdentifierLength {
		return nil, common.ErrInvalidArgumentError(fmt.Sprintf("partner identifier exceeds %d characters", common.MaxIdentifierLength))
	}
	if len(partner.Nickname) > common.MaxNicknameLength {
		return nil, common.ErrInvalidArgumentError(fmt.Sprintf("partner nickname exceeds %d characters", common.MaxNicknameLength))
	}

	return s.store.UpdateParticipant(participantID, func(p *entity.Participant) error {
		for i := range p.Dataspaces {
			if p.Dataspaces[i].DataspaceID != dataspaceID {
				continue
			}
			for _, existing := range p.Dataspaces[i].Partners {
				if existing.Identifier == partner.Identifier {
					return common.ErrInvalidArgumentError(fmt.Sprintf("partner already registered: %s", partner.Identifier))
				}
			}
			p.Dataspaces[i].Partners = append(p.Dataspaces[i].Partners, partner)
			return nil
		}
		return common.ErrNotFoundError(fmt.Sprintf("participant %s is not a member of dataspace %s", participantID, dataspaceID))
	})
}

// ListPartners lists the counter-party references of one dataspace membership
func (s *Service) ListPartners(ctx context.Context, participantID, dataspaceID string) ([]entity.PartnerReference, error) {
	participant, err := s.store.GetParticipant(participantID)
	if err != nil {
		return nil, err
	}
	for _, info := range participant.Dataspaces {
		if info.DataspaceID == dataspaceID {
			return info.Partners, nil
		}
	}
	return nil, common.ErrNotFoundError(fmt.Sprintf("participant %s is not a member of dataspace %s", participantID, dataspaceID))
}

// attachAgreement joins the full agreement onto a negotiation that carries
// an agreement id; negotiations without one keep a nil agreement
func (s *Service) attachAgreement(ctx context.Context, contextID string, negotiation *management.ContractNegotiation) error {
	if negotiation == nil || negotiation.ContractAgreementID == "" {
		return nil
	}
	agreement, err := s.management.GetAgreement(ctx, contextID, negotiation.ID)
	if err != nil {
		return err
	}
	negotiation.Agreement = agreement
	return nil
}

// contextOf returns the participant's context id, failing when provisioning
// has not completed yet
func (s *Service) contextOf(participantID string) (string, error) {
	participant, err := s.store.GetParticipant(participantID)
	if err != nil {
		return "", err
	}
	if participant.ParticipantContextID == "" {
		return "", common.ErrInvalidArgumentError(fmt.Sprintf("participant is not provisioned yet: %s", participantID))
	}
	return participant.ParticipantContextID, nil
}
