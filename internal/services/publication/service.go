package publication

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"dataspace-gateway/internal/clients/management"
	"dataspace-gateway/internal/common"
	"dataspace-gateway/internal/config"
	"dataspace-gateway/internal/entity"
)

// ManagementAPI is the slice of the management client the workflow needs
type ManagementAPI interface {
	CreateCelExpression(ctx context.Context, contextID string, expr *management.CelExpression) (management.CreateOutcome, error)
	CreateAsset(ctx context.Context, contextID string, asset *management.Asset) error
	CreatePolicy(ctx context.Context, contextID string, policy *management.PolicyDefinition) (management.CreateOutcome, error)
	CreateContractDefinition(ctx context.Context, contextID string, def *management.ContractDefinition) (management.CreateOutcome, error)
}

// DataPlaneAPI is the slice of the data plane client the workflow needs
type DataPlaneAPI interface {
	UploadMultipart(ctx context.Context, contextID string, metadata map[string]string, filename, contentType string, payload io.Reader) (string, error)
	DownloadFile(ctx context.Context, authToken, fileID string) ([]byte, error)
}

// Service publishes binary payloads as discoverable, policy-protected
// dataspace assets. The workflow is at-least-once and non-transactional:
// completed remote side effects are never rolled back, and repeated
// invocation is safe because the expression, policy and contract-definition
// creations tolerate already-exists. Asset creation is the one step without
// conflict tolerance; a fresh asset id is minted per call to guard it.
type Service struct {
	store      entity.Store
	management ManagementAPI
	dataPlane  DataPlaneAPI
	membership config.MembershipConfig
}

// NewService creates a new publication service
func NewService(store entity.Store, managementAPI ManagementAPI, dataPlane DataPlaneAPI, membership config.MembershipConfig) *Service {
	return &Service{
		store:      store,
		management: managementAPI,
		dataPlane:  dataPlane,
		membership: membership,
	}
}

// PublishRequest carries one payload and its publication metadata.
// PolicyID and ContractDefinitionID may be set by the caller to make
// repeated publications share one policy and contract definition; left
// empty, fresh ids are generated.
type PublishRequest struct {
	ParticipantID        string
	PublicMetadata       map[string]string
	PrivateMetadata      map[string]string
	Payload              io.Reader
	ContentType          string
	Filename             string
	ExtraExpressions     []management.CelExpression
	Policy               *management.PolicySet
	PolicyID             string
	ContractDefinitionID string
}

// Publish runs the ordered multi-resource publication workflow. Step order
// matters: later steps reference ids minted earlier. Any non-conflict error
// aborts without rollback.
func (s *Service) Publish(ctx context.Context, req *PublishRequest) error {
	participant, err := s.store.GetParticipant(req.ParticipantID)
	if err != nil {
		return err
	}
	contextID := participant.ParticipantContextID
	if contextID == "" {
		return common.ErrInvalidArgumentError(fmt.Sprintf("participant is not provisioned yet: %s", req.ParticipantID))
	}
	if req.Payload == nil {
		return common.ErrInvalidArgumentError("payload must not be empty")
	}

	// Step 1: mint the asset id and expose it through the public metadata.
	assetID := common.NewID()
	publicMetadata := cloneMap(req.PublicMetadata)
	publicMetadata[entity.AssetIDMetadataKey] = assetID

	// Step 2: push the payload to the data plane.
	uploadMetadata := mergeMaps(publicMetadata, req.PrivateMetadata)
	fileID, err := s.dataPlane.UploadMultipart(ctx, contextID, uploadMetadata, req.Filename, req.ContentType, req.Payload)
	if err != nil {
		return fmt.Errorf("failed to upload payload: %w", err)
	}
	publicMetadata[entity.FileIDMetadataKey] = fileID
	uploadMetadata[entity.FileIDMetadataKey] = fileID

	// Step 3: register the CEL expressions; duplicates are expected on
	// repeated uploads.
	expressions := append([]management.CelExpression{}, req.ExtraExpressions...)
	expressions = append(expressions, management.CelExpression{
		ID:         s.membership.ExpressionID,
		Expression: s.membership.ExpressionText,
		Scopes:     s.membership.ExpressionScopes,
	})
	for i := range expressions {
		outcome, err := s.management.CreateCelExpression(ctx, contextID, &expressions[i])
		if err != nil {
			return fmt.Errorf("failed to register expression %s: %w", expressions[i].ID, err)
		}
		if outcome == management.OutcomeAlreadyExists {
			log.Printf("publication: expression %s already registered", expressions[i].ID)
		}
	}

	// Step 4: create the asset. No conflict tolerance here; the fresh asset
	// id keeps repeated publications from colliding.
	if err := s.management.CreateAsset(ctx, contextID, s.buildAsset(assetID, fileID, req, publicMetadata)); err != nil {
		return err
	}

	// Step 5: create the effective policy.
	policyID := req.PolicyID
	if policyID == "" {
		policyID = common.NewID()
	}
	policy := &management.PolicyDefinition{
		ID:     policyID,
		Policy: s.buildPolicy(req.Policy),
	}
	outcome, err := s.management.CreatePolicy(ctx, contextID, policy)
	if err != nil {
		return fmt.Errorf("failed to create policy %s: %w", policyID, err)
	}
	if outcome == management.OutcomeAlreadyExists {
		log.Printf("publication: policy %s already exists", policyID)
	}

	// Step 6: bind the policy to the asset through a contract definition.
	definitionID := req.ContractDefinitionID
	if definitionID == "" {
		definitionID = common.NewID()
	}
	outcome, err = s.management.CreateContractDefinition(ctx, contextID, &management.ContractDefinition{
		ID:               definitionID,
		AccessPolicyID:   policyID,
		ContractPolicyID: policyID,
		AssetsSelector: []management.Criterion{
			{OperandLeft: "id", Operator: "=", OperandRight: assetID},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create contract definition %s: %w", definitionID, err)
	}
	if outcome == management.OutcomeAlreadyExists {
		log.Printf("publication: contract definition %s already exists", definitionID)
	}

	// Step 7: record the uploaded file locally.
	_, err = s.store.UpdateParticipant(req.ParticipantID, func(p *entity.Participant) error {
		p.Files = append(p.Files, entity.UploadedFile{
			FileID:      fileID,
			Filename:    req.Filename,
			ContentType: req.ContentType,
			Metadata:    uploadMetadata,
			CreatedAt:   time.Now(),
		})
		return nil
	})
	return err
}

// Download fetches the bytes of a previously published file
func (s *Service) Download(ctx context.Context, participantID, fileID string) ([]byte, error) {
	participant, err := s.store.GetParticipant(participantID)
	if err != nil {
		return nil, err
	}

	found := false
	for _, f := range participant.Files {
		if f.FileID == fileID {
			found = true
			break
		}
	}
	if !found {
		return nil, common.ErrNotFoundError(fmt.Sprintf("file not found: %s", fileID))
	}

	authToken := ""
	if participant.Credentials != nil {
		authToken = participant.Credentials.ClientSecret
	}
	return s.dataPlane.DownloadFile(ctx, authToken, fileID)
}

// buildAsset assembles the asset's property bags. Fixed description,
// content-type and filename fields are overlaid with the caller's public
// metadata; the private bag carries the permission tag the access-policy
// selector matches against.
func (s *Service) buildAsset(assetID, fileID string, req *PublishRequest, publicMetadata map[string]string) *management.Asset {
	properties := map[string]interface{}{
		"description": fmt.Sprintf("Uploaded file %s", req.Filename),
		"contentType": req.ContentType,
		"fileName":    req.Filename,
	}
	for k, v := range publicMetadata {
		properties[k] = v
	}

	privateProperties := make(map[string]interface{}, len(req.PrivateMetadata)+1)
	for k, v := range req.PrivateMetadata {
		privateProperties[k] = v
	}
	privateProperties["permission"] = s.membership.PermissionTag

	return &management.Asset{
		ID:                assetID,
		Properties:        properties,
		PrivateProperties: privateProperties,
		DataAddress: map[string]interface{}{
			"type":   "DataPlane",
			"fileId": fileID,
		},
	}
}

// buildPolicy produces the effective policy: the caller's policy with the
// membership constraint appended to its first permission, or a synthesized
// use-permission gated by the membership constraint alone.
func (s *Service) buildPolicy(callerPolicy *management.PolicySet) management.PolicySet {
	constraint := management.Constraint{
		LeftOperand:  s.membership.ConstraintLeft,
		Operator:     s.membership.ConstraintOperator,
		RightOperand: s.membership.ConstraintRight,
	}

	if callerPolicy == nil || len(callerPolicy.Permissions) == 0 {
		return management.PolicySet{
			Permissions: []management.Permission{
				{Action: "use", Constraints: []management.Constraint{constraint}},
			},
		}
	}

	policy := management.PolicySet{
		Permissions: make([]management.Permission, len(callerPolicy.Permissions)),
	}
	for i, permission := range callerPolicy.Permissions {
		policy.Permissions[i] = permission
		policy.Permissions[i].Constraints = append([]management.Constraint(nil), permission.Constraints...)
	}
	policy.Permissions[0].Constraints = append(policy.Permissions[0].Constraints, constraint)
	return policy
}

func cloneMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func mergeMaps(base, overlay map[string]string) map[string]string {
	out := cloneMap(base)
	for k, v := range overlay {
		out[k] = v
	}
	return out
}
