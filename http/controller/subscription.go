package controller

import (
	"github.com/gin-gonic/gin"
	"github.com/helixbio/gva-annotation-orchestrator/entity"
	"github.com/helixbio/gva-annotation-orchestrator/infra/produce"
	"github.com/helixbio/gva-annotation-orchestrator/utils"
)

// UpgradeSubscription fans out a restore request covering every archived
// result the caller owns. The role change itself happens in the account
// service; this endpoint reacts to it.
func (ctrl *Controller) UpgradeSubscription(c *gin.Context) {
	ctx := c.Request.Context()

	userID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		utils.JSON401(c, "Unauthorized: user_id not found")
		return
	}

	ctrl.Infra.AccountService.InvalidateProfile(ctx, userID.String())

	jobs, err := ctrl.Repository.JobRepo.ListByUserIDAndArchiveStatus(userID, entity.ArchiveStatusArchived)
	if err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Subscription] Failed to list archived jobs for %s", userID)
		utils.JSON500(c, "Failed to list archived jobs")
		return
	}

	if len(jobs) == 0 {
		utils.JSON200(c, gin.H{"message": "Subscription upgraded", "restores_requested": 0})
		return
	}

	entries := make([]produce.RestoreEntry, 0, len(jobs))
	for _, job := range jobs {
		entries = append(entries, produce.RestoreEntry{
			JobID:            job.JobID.String(),
			ArchiveReference: job.ArchiveReference,
		})
	}

	err = ctrl.Infra.Produce.PublishRestoreRequest(ctx, produce.RestoreRequestMessage{
		UserID:  userID.String(),
		Entries: entries,
	})
	if err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Subscription] Failed to enqueue restore request for %s", userID)
		utils.JSON500(c, "Failed to request restores")
		return
	}

	ctrl.Infra.Logger.InfoWithContextf(ctx, "[Subscription] Requested restore of %d archived results for %s", len(entries), userID)
	utils.JSON200(c, gin.H{"message": "Subscription upgraded", "restores_requested": len(entries)})
}
