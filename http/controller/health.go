package controller

import (
	"github.com/gin-gonic/gin"
	"github.com/helixbio/gva-annotation-orchestrator/utils"
)

func (ctrl *Controller) Health(c *gin.Context) {
	ctx := c.Request.Context()

	if err := ctrl.Infra.Minio.Health(ctx); err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Health] Object store probe failed")
		utils.JSON500(c, "Object store unavailable")
		return
	}

	utils.JSON200(c, gin.H{"status": "ok"})
}
