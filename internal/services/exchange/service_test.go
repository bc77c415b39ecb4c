package exchange

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dataspace-gateway/internal/clients/management"
	"dataspace-gateway/internal/common"
	"dataspace-gateway/internal/entity"
)

// mockManagementAPI implements ManagementAPI for testing
type mockManagementAPI struct {
	negotiations   []*management.ContractNegotiation
	agreements     map[string]*management.Agreement
	transfers      map[string]*management.TransferProcess
	edrs           map[string]*management.EndpointDataReference
	edrCalls       int
	lastNegotiated *management.NegotiationRequest
	lastTransfer   *management.TransferRequest
}

func newMockManagementAPI() *mockManagementAPI {
	return &mockManagementAPI{
		agreements: make(map[string]*management.Agreement),
		transfers:  make(map[string]*management.TransferProcess),
		edrs:       make(map[string]*management.EndpointDataReference),
	}
}

func (m *mockManagementAPI) ListContractNegotiations(ctx context.Context, contextID string) ([]*management.ContractNegotiation, error) {
	return m.negotiations, nil
}

func (m *mockManagementAPI) GetContractNegotiation(ctx context.Context, contextID, negotiationID string) (*management.ContractNegotiation, error) {
	for _, n := range m.negotiations {
		if n.ID == negotiationID {
			return n, nil
		}
	}
	return nil, common.ErrNotFoundError(fmt.Sprintf("negotiation not found: %s", negotiationID))
}

func (m *mockManagementAPI) GetAgreement(ctx context.Context, contextID, negotiationID string) (*management.Agreement, error) {
	agreement, exists := m.agreements[negotiationID]
	if !exists {
		return nil, common.ErrNotFoundError(fmt.Sprintf("agreement not found for: %s", negotiationID))
	}
	return agreement, nil
}

func (m *mockManagementAPI) InitiateContractNegotiation(ctx context.Context, contextID string, request *management.NegotiationRequest) (string, error) {
	m.lastNegotiated = request
	return "neg-new", nil
}

func (m *mockManagementAPI) InitiateTransferProcess(ctx context.Context, contextID string, request *management.TransferRequest) (string, error) {
	m.lastTransfer = request
	return "tp-new", nil
}

func (m *mockManagementAPI) GetTransferProcess(ctx context.Context, contextID, transferID string) (*management.TransferProcess, error) {
	transfer, exists := m.transfers[transferID]
	if !exists {
		return nil, common.ErrNotFoundError(fmt.Sprintf("transfer not found: %s", transferID))
	}
	cp := *transfer
	return &cp, nil
}

func (m *mockManagementAPI) GetEdr(ctx context.Context, contextID, transferID string) (*management.EndpointDataReference, error) {
	m.edrCalls++
	edr, exists := m.edrs[transferID]
	if !exists {
		return nil, common.ErrNotFoundError(fmt.Sprintf("edr not found for: %s", transferID))
	}
	return edr, nil
}

// mockResolver resolves DIDs from a fixed table
type mockResolver struct {
	endpoints map[string]string
}

func (m *mockResolver) Resolve(ctx context.Context, did string) (string, error) {
	if did == "not-a-did" {
		return "", common.ErrInvalidArgumentError("not a did:web identifier: not-a-did")
	}
	return m.endpoints[did], nil
}

// mockCatalogs serves canned catalogs
type mockCatalogs struct {
	catalog *management.Catalog
	gets    int
}

func (m *mockCatalogs) Get(ctx context.Context, contextID, counterPartyID, directive string) (*management.Catalog, error) {
	m.gets++
	return m.catalog, nil
}

func newTestService(t *testing.T) (*Service, *mockManagementAPI, *mockResolver, *mockCatalogs) {
	store := entity.NewMemoryStore()
	require.NoError(t, store.CreateTenant(&entity.Tenant{ID: "t-1", Name: "acme"}))
	require.NoError(t, store.CreateParticipant(&entity.Participant{
		ID:                   "p-1",
		TenantID:             "t-1",
		Identifier:           "did:web:acme.example.com",
		ParticipantContextID: "pcx-1",
		Dataspaces:           []entity.DataspaceInfo{{DataspaceID: "ds-1"}},
	}))

	managementAPI := newMockManagementAPI()
	resolver := &mockResolver{endpoints: map[string]string{
		"did:web:partner.example.com": "https://partner.example.com/protocol",
	}}
	catalogs := &mockCatalogs{catalog: &management.Catalog{ID: "cat-1"}}
	return NewService(store, managementAPI, resolver, catalogs), managementAPI, resolver, catalogs
}

func TestInitiateNegotiationResolvesMissingAddress(t *testing.T) {
	svc, managementAPI, _, _ := newTestService(t)

	id, err := svc.InitiateNegotiation(context.Background(), "p-1", &management.NegotiationRequest{
		ProviderID: "did:web:partner.example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "neg-new", id)
	assert.Equal(t, "https://partner.example.com/protocol", managementAPI.lastNegotiated.CounterPartyAddress)
}

func TestInitiateNegotiationKeepsExplicitAddress(t *testing.T) {
	svc, managementAPI, _, _ := newTestService(t)

	_, err := svc.InitiateNegotiation(context.Background(), "p-1", &management.NegotiationRequest{
		ProviderID:          "did:web:partner.example.com",
		CounterPartyAddress: "https://explicit.example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://explicit.example.com", managementAPI.lastNegotiated.CounterPartyAddress)
}

func TestInitiateNegotiationUnresolvableIsInvalidArgument(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	_, err := svc.InitiateNegotiation(context.Background(), "p-1", &management.NegotiationRequest{
		ProviderID: "did:web:offline.example.com",
	})
	require.Error(t, err)
	assert.True(t, common.IsErrorCode(err, common.ErrInvalidArgument))
}

func TestListContractsJoinsAgreementsOnlyWhereReached(t *testing.T) {
	svc, managementAPI, _, _ := newTestService(t)

	managementAPI.negotiations = []*management.ContractNegotiation{
		{ID: "neg-1", State: "FINALIZED", ContractAgreementID: "agr-1"},
		{ID: "neg-2", State: "REQUESTED"},
		{ID: "neg-3", State: "FINALIZED", ContractAgreementID: "agr-3"},
	}
	managementAPI.agreements["neg-1"] = &management.Agreement{ID: "agr-1", AssetID: "asset-1"}
	managementAPI.agreements["neg-3"] = &management.Agreement{ID: "agr-3", AssetID: "asset-3"}

	contracts, err := svc.ListContracts(context.Background(), "p-1")
	require.NoError(t, err)
	require.Len(t, contracts, 3)

	require.NotNil(t, contracts[0].Agreement)
	assert.Equal(t, "agr-1", contracts[0].Agreement.ID)
	assert.Nil(t, contracts[1].Agreement)
	require.NotNil(t, contracts[2].Agreement)
	assert.Equal(t, "agr-3", contracts[2].Agreement.ID)
}

func TestInitiateTransferResolvesCounterParty(t *testing.T) {
	svc, managementAPI, _, _ := newTestService(t)

	id, err := svc.InitiateTransfer(context.Background(), "p-1", &management.TransferRequest{
		CounterPartyIdentifier: "did:web:partner.example.com",
		ContractAgreementID:    "agr-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "tp-new", id)
	assert.Equal(t, "https://partner.example.com/protocol", managementAPI.lastTransfer.CounterPartyAddress)
}

func TestInitiateTransferUnresolvableIsNotFound(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	_, err := svc.InitiateTransfer(context.Background(), "p-1", &management.TransferRequest{
		CounterPartyIdentifier: "did:web:offline.example.com",
		ContractAgreementID:    "agr-1",
	})
	require.Error(t, err)
	assert.True(t, common.IsErrorCode(err, common.ErrNotFound))
}

func TestGetTransferAttachesEdrOnlyWhenStarted(t *testing.T) {
	svc, managementAPI, _, _ := newTestService(t)

	managementAPI.transfers["tp-1"] = &management.TransferProcess{ID: "tp-1", State: "REQUESTED"}
	managementAPI.transfers["tp-2"] = &management.TransferProcess{ID: "tp-2", State: management.TransferStateStarted}
	managementAPI.edrs["tp-2"] = &management.EndpointDataReference{Endpoint: "https://partner.example.com/public", AuthCode: "tok"}

	transfer, err := svc.GetTransfer(context.Background(), "p-1", "tp-1")
	require.NoError(t, err)
	assert.Nil(t, transfer.EDR)
	assert.Equal(t, 0, managementAPI.edrCalls)

	transfer, err = svc.GetTransfer(context.Background(), "p-1", "tp-2")
	require.NoError(t, err)
	require.NotNil(t, transfer.EDR)
	assert.Equal(t, "https://partner.example.com/public", transfer.EDR.Endpoint)
	assert.Equal(t, 1, managementAPI.edrCalls)
}

func TestRequestCatalogDelegatesToCache(t *testing.T) {
	svc, _, _, catalogs := newTestService(t)

	catalog, err := svc.RequestCatalog(context.Background(), "p-1", "did:web:partner.example.com", "no-cache")
	require.NoError(t, err)
	assert.Equal(t, "cat-1", catalog.ID)
	assert.Equal(t, 1, catalogs.gets)
}

func TestOperationsRequireProvisionedParticipant(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	store := entity.NewMemoryStore()
	require.NoError(t, store.CreateTenant(&entity.Tenant{ID: "t-1", Name: "acme"}))
	require.NoError(t, store.CreateParticipant(&entity.Participant{ID: "p-raw", TenantID: "t-1"}))
	svc.store = store

	_, err := svc.ListContracts(context.Background(), "p-raw")
	require.Error(t, err)
	assert.True(t, common.IsErrorCode(err, common.ErrInvalidArgument))
}

func TestAddAndListPartners(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	_, err := svc.AddPartner(context.Background(), "p-1", "ds-1", entity.PartnerReference{
		Identifier: "did:web:partner.example.com",
		Nickname:   "partner",
	})
	require.NoError(t, err)

	partners, err := svc.ListPartners(context.Background(), "p-1", "ds-1")
	require.NoError(t, err)
	require.Len(t, partners, 1)
	assert.Equal(t, "partner", partners[0].Nickname)

	// Duplicate identifiers are rejected.
	_, err = svc.AddPartner(context.Background(), "p-1", "ds-1", entity.PartnerReference{
		Identifier: "did:web:partner.example.com",
	})
	require.Error(t, err)

	// Unknown dataspace membership is not found.
	_, err = svc.AddPartner(context.Background(), "p-1", "ds-9", entity.PartnerReference{Identifier: "did:web:x"})
	require.Error(t, err)
	assert.True(t, common.IsErrorCode(err, common.ErrNotFound))
}
