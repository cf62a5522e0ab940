package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/siea/ricequote/internal/domain/models"
)

// Identity headers set by the authenticating proxy in front of the engine.
const (
	HeaderAdminEmail = "X-Admin-Email"
	HeaderAdminUID   = "X-Admin-Uid"
	HeaderUserEmail  = "X-User-Email"
	HeaderUserUID    = "X-User-Uid"
)

// ActorFrom reads the acting identities from the request headers.
func ActorFrom(c *gin.Context) models.ActorContext {
	var actx models.ActorContext
	if email := strings.TrimSpace(c.GetHeader(HeaderAdminEmail)); email != "" {
		actx.Cached = &models.Identity{Email: email, UID: strings.TrimSpace(c.GetHeader(HeaderAdminUID))}
	}
	if email := strings.TrimSpace(c.GetHeader(HeaderUserEmail)); email != "" {
		actx.Session = &models.Identity{Email: email, UID: strings.TrimSpace(c.GetHeader(HeaderUserUID))}
	}
	return actx
}
