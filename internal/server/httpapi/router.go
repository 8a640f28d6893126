package httpapi

import (
	"github.com/gin-gonic/gin"
	"github.com/offlinehq/tidesync/internal/server/realtime"
)

// NewRouter wires the public HTTP surface. Everything under the protected
// group requires a valid bearer token.
func NewRouter(h *Handlers, hub *realtime.Hub, jwtSecret []byte) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	api := r.Group("/api/v1")
	api.GET("/ping", h.ping)

	authGroup := api.Group("/auth")
	authGroup.POST("/register", h.register)
	authGroup.POST("/login", h.login)
	authGroup.POST("/refresh", h.refresh)

	protected := api.Group("", authRequired(jwtSecret))
	protected.PUT("/tables/:table/records/:id", h.upsertRecord)
	protected.GET("/tables/:table/records", h.listRecords)
	protected.GET("/changes", h.changes(hub))
	protected.POST("/attachments/presign-put", h.presignPut)
	protected.POST("/attachments/presign-get", h.presignGet)

	return r
}
