package api

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"dataspace-gateway/internal/auth"
	"dataspace-gateway/internal/clients/management"
	"dataspace-gateway/internal/common"
	"dataspace-gateway/internal/entity"
	"dataspace-gateway/internal/services/provisioning"
	"dataspace-gateway/internal/services/publication"
)

// LoginRequest is the operator login payload
type LoginRequest struct {
	User     string `json:"user"`
	Password string `json:"password"`
}

func (h *Handler) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid login payload"})
		return
	}

	authCfg := h.gw.Config.Auth
	if req.User != authCfg.AdminUser || !auth.CheckPassword(req.Password, authCfg.AdminPasswordHash) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, err := h.tokens.GenerateToken(req.User, "operator")
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

func (h *Handler) status(c *gin.Context) {
	participants, err := h.gw.Store.ListParticipants("")
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"participants":    len(participants),
		"cached_catalogs": h.gw.Catalogs.Len(),
	})
}

// CreateDataspaceRequest registers a dataspace
type CreateDataspaceRequest struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Properties map[string]string `json:"properties"`
}

func (h *Handler) createDataspace(c *gin.Context) {
	var req CreateDataspaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid dataspace payload"})
		return
	}
	if req.ID == "" {
		req.ID = common.NewID()
	}
	dataspace := &entity.Dataspace{ID: req.ID, Name: req.Name, Properties: req.Properties}
	if err := h.gw.Store.CreateDataspace(dataspace); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dataspace)
}

func (h *Handler) listDataspaces(c *gin.Context) {
	dataspaces, err := h.gw.Store.ListDataspaces()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dataspaces)
}

// RegisterRequest creates a tenant/participant pair
type RegisterRequest struct {
	ProviderID   string   `json:"provider_id"`
	TenantName   string   `json:"tenant_name"`
	Identifier   string   `json:"identifier"`
	DataspaceIDs []string `json:"dataspace_ids"`
}

func (h *Handler) register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid registration payload"})
		return
	}

	participant, err := h.gw.Provisioning.Register(c.Request.Context(), &provisioning.RegisterRequest{
		ProviderID:   req.ProviderID,
		TenantName:   req.TenantName,
		Identifier:   req.Identifier,
		DataspaceIDs: req.DataspaceIDs,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, participant)
}

func (h *Handler) listParticipants(c *gin.Context) {
	participants, err := h.gw.Store.ListParticipants(c.Query("tenant_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, participants)
}

func (h *Handler) getParticipant(c *gin.Context) {
	participant, err := h.gw.Store.GetParticipant(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, participant)
}

// DeployRequest triggers deployment of a participant
type DeployRequest struct {
	Identifier string `json:"identifier"`
}

func (h *Handler) deploy(c *gin.Context) {
	var req DeployRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid deploy payload"})
		return
	}

	participant, err := h.gw.Provisioning.Deploy(c.Request.Context(), c.Param("id"), req.Identifier)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, participant)
}

func (h *Handler) resolveContextID(c *gin.Context) {
	contextID, err := h.gw.Provisioning.ResolveContextID(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	// An empty context id is the expected not-ready state; callers poll.
	c.JSON(http.StatusOK, gin.H{"participant_context_id": contextID, "ready": contextID != ""})
}

func (h *Handler) refresh(c *gin.Context) {
	participant, err := h.gw.Provisioning.Refresh(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, participant)
}

func (h *Handler) publish(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file part"})
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		writeError(c, err)
		return
	}
	defer file.Close()

	req := &publication.PublishRequest{
		ParticipantID:        c.Param("id"),
		Payload:              file,
		Filename:             fileHeader.Filename,
		ContentType:          fileHeader.Header.Get("Content-Type"),
		PolicyID:             c.PostForm("policy_id"),
		ContractDefinitionID: c.PostForm("contract_definition_id"),
	}
	if raw := c.PostForm("public_metadata"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &req.PublicMetadata); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid public_metadata"})
			return
		}
	}
	if raw := c.PostForm("private_metadata"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &req.PrivateMetadata); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid private_metadata"})
			return
		}
	}
	if raw := c.PostForm("expressions"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &req.ExtraExpressions); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid expressions"})
			return
		}
	}
	if raw := c.PostForm("policy"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &req.Policy); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid policy"})
			return
		}
	}

	if err := h.gw.Publication.Publish(c.Request.Context(), req); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) download(c *gin.Context) {
	data, err := h.gw.Publication.Download(c.Request.Context(), c.Param("id"), c.Param("fileId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/octet-stream", data)
}

func (h *Handler) catalog(c *gin.Context) {
	catalog, err := h.gw.Exchange.RequestCatalog(
		c.Request.Context(), c.Param("id"), c.Param("counterParty"), c.GetHeader("Cache-Control"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, catalog)
}

func (h *Handler) initiateNegotiation(c *gin.Context) {
	var req management.NegotiationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid negotiation payload"})
		return
	}

	id, err := h.gw.Exchange.InitiateNegotiation(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (h *Handler) listContracts(c *gin.Context) {
	negotiations, err := h.gw.Exchange.ListContracts(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, negotiations)
}

func (h *Handler) getNegotiation(c *gin.Context) {
	negotiation, err := h.gw.Exchange.GetNegotiation(c.Request.Context(), c.Param("id"), c.Param("negotiationId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, negotiation)
}

func (h *Handler) initiateTransfer(c *gin.Context) {
	var req management.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transfer payload"})
		return
	}

	id, err := h.gw.Exchange.InitiateTransfer(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (h *Handler) getTransfer(c *gin.Context) {
	transfer, err := h.gw.Exchange.GetTransfer(c.Request.Context(), c.Param("id"), c.Param("transferId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, transfer)
}

// AddPartnerRequest registers a counter-party reference
type AddPartnerRequest struct {
	Identifier string            `json:"identifier"`
	Nickname   string            `json:"nickname"`
	Properties map[string]string `json:"properties"`
}

func (h *Handler) addPartner(c *gin.Context) {
	var req AddPartnerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid partner payload"})
		return
	}

	participant, err := h.gw.Exchange.AddPartner(c.Request.Context(), c.Param("id"), c.Param("dataspaceId"), entity.PartnerReference{
		Identifier: req.Identifier,
		Nickname:   req.Nickname,
		Properties: req.Properties,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, participant)
}

func (h *Handler) listPartners(c *gin.Context) {
	partners, err := h.gw.Exchange.ListPartners(c.Request.Context(), c.Param("id"), c.Param("dataspaceId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, partners)
}

func (h *Handler) purgeCache(c *gin.Context) {
	h.gw.Catalogs.Purge()
	c.Status(http.StatusNoContent)
}
