package entity

import (
	"time"
)

// AgentType identifies one of the deployable sub-resources that together
// constitute a live participant.
type AgentType string

const (
	AgentControlPlane      AgentType = "CONTROL_PLANE"
	AgentCredentialService AgentType = "CREDENTIAL_SERVICE"
	AgentDataPlane         AgentType = "DATA_PLANE"
)

// AssetIDMetadataKey is the well-known key under which the externally created
// asset id is embedded into an uploaded file's metadata map.
const AssetIDMetadataKey = "assetId"

// FileIDMetadataKey is the well-known key for the data-plane file id.
const FileIDMetadataKey = "fileId"

// ServiceProvider owns many tenants
type ServiceProvider struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Tenant belongs to one service provider and owns many participants.
// CorrelationID points at the external tenant object once created; it stays
// empty until the first successful deployment and is never cleared.
type Tenant struct {
	ID            string            `json:"id"`
	ProviderID    string            `json:"provider_id"`
	Name          string            `json:"name"`
	CorrelationID string            `json:"correlation_id,omitempty"`
	Properties    map[string]string `json:"properties,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
}

// ClientCredentials is the client id/secret pair fetched lazily from the
// secret store once the participant context exists.
type ClientCredentials struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// VirtualParticipantAgent is one deployable sub-resource of a participant.
// Type is empty when the external system reported a type name the fixed
// lookup table does not recognize; ExternalType then preserves the raw name
// so the mismatch is surfaced instead of dropped.
type VirtualParticipantAgent struct {
	Type         AgentType `json:"type,omitempty"`
	ExternalType string    `json:"external_type"`
	State        string    `json:"state"`
}

// PartnerReference identifies a counter-party within a dataspace
type PartnerReference struct {
	Identifier string            `json:"identifier"`
	Nickname   string            `json:"nickname,omitempty"`
	Properties map[string]string `json:"properties,omitempty"`
}

// DataspaceInfo carries per-dataspace membership metadata. The dataspace is
// referenced by id only; dataspace catalogs are managed independently.
type DataspaceInfo struct {
	DataspaceID    string             `json:"dataspace_id"`
	Roles          []string           `json:"roles,omitempty"`
	AgreementTypes []string           `json:"agreement_types,omitempty"`
	Partners       []PartnerReference `json:"partners,omitempty"`
}

// UploadedFile records one published binary. Every uploaded file maps 1:1 to
// exactly one externally created asset, discoverable through
// AssetIDMetadataKey in Metadata.
type UploadedFile struct {
	FileID      string            `json:"file_id"`
	Filename    string            `json:"filename"`
	ContentType string            `json:"content_type"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// Participant is the locally persisted view of a dataspace participant.
// CorrelationID, ParticipantContextID and Credentials start empty and are
// filled in by successive provisioning steps; once set they are never
// cleared. Agents are fully replaced on each deployment.
type Participant struct {
	ID                   string                    `json:"id"`
	TenantID             string                    `json:"tenant_id"`
	Identifier           string                    `json:"identifier"`
	CorrelationID        string                    `json:"correlation_id,omitempty"`
	ParticipantContextID string                    `json:"participant_context_id,omitempty"`
	Credentials          *ClientCredentials        `json:"credentials,omitempty"`
	Agents               []VirtualParticipantAgent `json:"agents,omitempty"`
	Dataspaces           []DataspaceInfo           `json:"dataspaces,omitempty"`
	Files                []UploadedFile            `json:"files,omitempty"`
	CreatedAt            time.Time                 `json:"created_at"`
}

// Dataspace is a federated network of participants
type Dataspace struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Properties map[string]string `json:"properties,omitempty"`
}

// Clone returns a deep copy of the participant
func (p *Participant) Clone() *Participant {
	if p == nil {
		return nil
	}
	cp := *p
	if p.Credentials != nil {
		creds := *p.Credentials
		cp.Credentials = &creds
	}
	cp.Agents = append([]VirtualParticipantAgent(nil), p.Agents...)
	cp.Files = make([]UploadedFile, len(p.Files))
	for i, f := range p.Files {
		cp.Files[i] = f
		cp.Files[i].Metadata = cloneStringMap(f.Metadata)
	}
	cp.Dataspaces = make([]DataspaceInfo, len(p.Dataspaces))
	for i, d := range p.Dataspaces {
		cp.Dataspaces[i] = d
		cp.Dataspaces[i].Roles = append([]string(nil), d.Roles...)
		cp.Dataspaces[i].AgreementTypes = append([]string(nil), d.AgreementTypes...)
		cp.Dataspaces[i].Partners = make([]PartnerReference, len(d.Partners))
		for j, ref := range d.Partners {
			cp.Dataspaces[i].Partners[j] = ref
			cp.Dataspaces[i].Partners[j].Properties = cloneStringMap(ref.Properties)
		}
	}
	return &cp
}

// Clone returns a deep copy of the tenant
func (t *Tenant) Clone() *Tenant {
	if t == nil {
		return nil
	}
	cp := *t
	cp.Properties = cloneStringMap(t.Properties)
	return &cp
}

func cloneStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
