package management

// CreateOutcome is the typed result of a conflict-tolerant remote creation.
// Callers branch on AlreadyExists explicitly instead of fishing a status code
// out of an error.
type CreateOutcome int

const (
	OutcomeCreated CreateOutcome = iota
	OutcomeAlreadyExists
)

// TransferStateStarted is the terminal "active" transfer state; the endpoint
// data reference exists only once a transfer reaches it.
const TransferStateStarted = "STARTED"

// CelExpression is a named boolean predicate evaluated against a requester's
// verifiable credentials
type CelExpression struct {
	ID         string   `json:"id"`
	Expression string   `json:"expression"`
	Scopes     []string `json:"scopes,omitempty"`
}

// Constraint is a single policy constraint
type Constraint struct {
	LeftOperand  string `json:"leftOperand"`
	Operator     string `json:"operator"`
	RightOperand string `json:"rightOperand"`
}

// Permission grants an action gated by constraints
type Permission struct {
	Action      string       `json:"action"`
	Constraints []Constraint `json:"constraints,omitempty"`
}

// PolicySet is an ODRL-style policy body
type PolicySet struct {
	Permissions []Permission `json:"permissions,omitempty"`
}

// PolicyDefinition binds a policy body to an id
type PolicyDefinition struct {
	ID     string    `json:"id"`
	Policy PolicySet `json:"policy"`
}

// Asset describes a discoverable dataspace asset
type Asset struct {
	ID                string                 `json:"id"`
	Properties        map[string]interface{} `json:"properties,omitempty"`
	PrivateProperties map[string]interface{} `json:"privateProperties,omitempty"`
	DataAddress       map[string]interface{} `json:"dataAddress,omitempty"`
}

// Criterion selects assets for a contract definition
type Criterion struct {
	OperandLeft  string `json:"operandLeft"`
	Operator     string `json:"operator"`
	OperandRight string `json:"operandRight"`
}

// ContractDefinition binds access and contract policies to a set of assets
type ContractDefinition struct {
	ID               string      `json:"id"`
	AccessPolicyID   string      `json:"accessPolicyId"`
	ContractPolicyID string      `json:"contractPolicyId"`
	AssetsSelector   []Criterion `json:"assetsSelector,omitempty"`
}

// Dataset is one advertised entry of a counter-party catalog
type Dataset struct {
	ID         string                 `json:"id"`
	Properties map[string]interface{} `json:"properties,omitempty"`
	Policies   []PolicySet            `json:"policies,omitempty"`
}

// Catalog is the set of datasets advertised by a counter-party
type Catalog struct {
	ID            string                 `json:"id,omitempty"`
	ParticipantID string                 `json:"participantId,omitempty"`
	Datasets      []Dataset              `json:"datasets,omitempty"`
	Properties    map[string]interface{} `json:"properties,omitempty"`
}

// ContractOffer is the offer referenced when initiating a negotiation
type ContractOffer struct {
	OfferID string    `json:"offerId"`
	AssetID string    `json:"assetId"`
	Policy  PolicySet `json:"policy"`
}

// NegotiationRequest initiates a contract negotiation. CounterPartyAddress
// may be left empty by callers; the exchange service resolves it from
// ProviderID before the request crosses this boundary.
type NegotiationRequest struct {
	CounterPartyAddress string        `json:"counterPartyAddress,omitempty"`
	ProviderID          string        `json:"providerId"`
	Offer               ContractOffer `json:"offer"`
}

// Agreement is a finalized contract agreement
type Agreement struct {
	ID         string    `json:"id"`
	AssetID    string    `json:"assetId,omitempty"`
	ProviderID string    `json:"providerId,omitempty"`
	ConsumerID string    `json:"consumerId,omitempty"`
	Policy     PolicySet `json:"policy,omitempty"`
	SignedAt   int64     `json:"signedAt,omitempty"`
}

// ContractNegotiation is one negotiation with its read-time joined agreement.
// Agreement is populated by the exchange service, never by the remote system.
type ContractNegotiation struct {
	ID                  string     `json:"id"`
	State               string     `json:"state,omitempty"`
	CounterPartyID      string     `json:"counterPartyId,omitempty"`
	ContractAgreementID string     `json:"contractAgreementId,omitempty"`
	Agreement           *Agreement `json:"agreement,omitempty"`
}

// TransferRequest initiates a transfer process with a known counter-party
type TransferRequest struct {
	CounterPartyAddress    string `json:"counterPartyAddress,omitempty"`
	CounterPartyIdentifier string `json:"counterPartyIdentifier"`
	ContractAgreementID    string `json:"contractAgreementId"`
	AssetID                string `json:"assetId,omitempty"`
	TransferType           string `json:"transferType,omitempty"`
}

// EndpointDataReference carries the credentials needed to pull transferred
// data. It is itself a credential and is fetched only on demand.
type EndpointDataReference struct {
	Endpoint  string `json:"endpoint"`
	AuthKey   string `json:"authKey,omitempty"`
	AuthCode  string `json:"authCode,omitempty"`
	ExpiresAt int64  `json:"expiresAt,omitempty"`
}

// TransferProcess is one transfer with its conditionally attached EDR
type TransferProcess struct {
	ID                  string                 `json:"id"`
	State               string                 `json:"state,omitempty"`
	AssetID             string                 `json:"assetId,omitempty"`
	ContractAgreementID string                 `json:"contractAgreementId,omitempty"`
	EDR                 *EndpointDataReference `json:"edr,omitempty"`
}

// idResponse carries an id minted by the management API
type idResponse struct {
	ID string `json:"id"`
}
