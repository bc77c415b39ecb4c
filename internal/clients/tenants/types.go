package tenants

// NewProfile is the payload for deploying a participant profile into the
// external orchestrator. ClientID is a fresh client-generated id per deploy.
type NewProfile struct {
	ClientID   string `json:"clientId"`
	Identifier string `json:"identifier"`
	TenantID   string `json:"tenantId"`
}

// VPA is one deployable sub-resource reported by the orchestrator
type VPA struct {
	Type  string `json:"type"`
	State string `json:"state"`
}

// ParticipantProfile is the orchestrator's view of a deployed participant.
// Properties is a free-form bag; provisioning state is buried inside it and
// extracted by the provisioning service, not here.
type ParticipantProfile struct {
	ID         string                 `json:"id"`
	ClientID   string                 `json:"clientId,omitempty"`
	Identifier string                 `json:"identifier"`
	TenantID   string                 `json:"tenantId,omitempty"`
	VPAs       []VPA                  `json:"vpas,omitempty"`
	Properties map[string]interface{} `json:"properties,omitempty"`
}

// createTenantRequest is the name-only tenant creation payload
type createTenantRequest struct {
	Name string `json:"name"`
}

// createTenantResponse carries the external tenant id
type createTenantResponse struct {
	ID string `json:"id"`
}
