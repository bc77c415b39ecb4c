package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dataspace-gateway/internal/auth"
	"dataspace-gateway/internal/common"
	"dataspace-gateway/internal/gateway"
)

// Handler binds the HTTP routes to the gateway services
type Handler struct {
	gw     *gateway.Gateway
	tokens *auth.TokenManager
}

// NewHandler creates a new API handler
func NewHandler(gw *gateway.Gateway, tokens *auth.TokenManager) *Handler {
	return &Handler{gw: gw, tokens: tokens}
}

// Router builds the gin engine with all gateway routes
func (h *Handler) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.Default()

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.POST("/api/v1/login", h.login)

	v1 := r.Group("/api/v1")
	if h.gw.Config.Auth.Enabled {
		v1.Use(auth.Middleware(h.tokens))
	}

	v1.GET("/status", h.status)

	v1.POST("/dataspaces", h.createDataspace)
	v1.GET("/dataspaces", h.listDataspaces)

	v1.POST("/participants", h.register)
	v1.GET("/participants", h.listParticipants)
	v1.GET("/participants/:id", h.getParticipant)
	v1.POST("/participants/:id/deploy", h.deploy)
	v1.GET("/participants/:id/context-id", h.resolveContextID)
	v1.POST("/participants/:id/refresh", h.refresh)

	v1.POST("/participants/:id/files", h.publish)
	v1.GET("/participants/:id/files/:fileId", h.download)

	v1.GET("/participants/:id/catalog/:counterParty", h.catalog)

	v1.POST("/participants/:id/negotiations", h.initiateNegotiation)
	v1.GET("/participants/:id/negotiations", h.listContracts)
	v1.GET("/participants/:id/negotiations/:negotiationId", h.getNegotiation)
	v1.POST("/participants/:id/transfers", h.initiateTransfer)
	v1.GET("/participants/:id/transfers/:transferId", h.getTransfer)

	v1.POST("/participants/:id/dataspaces/:dataspaceId/partners", h.addPartner)
	v1.GET("/participants/:id/dataspaces/:dataspaceId/partners", h.listPartners)

	v1.POST("/cache/purge", h.purgeCache)

	return r
}

// writeError maps the gateway error taxonomy to HTTP status codes
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case common.IsErrorCode(err, common.ErrNotFound):
		status = http.StatusNotFound
	case common.IsErrorCode(err, common.ErrInvalidArgument):
		status = http.StatusBadRequest
	case common.IsErrorCode(err, common.ErrRemoteConflict):
		status = http.StatusConflict
	case common.IsErrorCode(err, common.ErrRemoteUnavailable):
		status = http.StatusBadGateway
	case common.IsErrorCode(err, common.ErrUnauthorized), common.IsErrorCode(err, common.ErrInvalidToken):
		status = http.StatusUnauthorized
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
