package controller

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/helixbio/gva-annotation-orchestrator/entity"
	"github.com/helixbio/gva-annotation-orchestrator/http/controller/dto"
	"github.com/helixbio/gva-annotation-orchestrator/infra/produce"
	"github.com/helixbio/gva-annotation-orchestrator/utils"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const presignExpiry = 15 * time.Minute

// CreateUpload allocates a job id and hands the client a presigned PUT URL
// for the input object. The job record itself is created on submission.
func (ctrl *Controller) CreateUpload(c *gin.Context) {
	ctx := c.Request.Context()

	userID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Annotation] user_id not found in context")
		utils.JSON401(c, "Unauthorized: user_id not found")
		return
	}

	var req dto.CreateUploadRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Annotation] Failed to bind upload request: %v", err)
		utils.JSON400(c, "Invalid request payload")
		return
	}

	jobID := uuid.New()
	inputKey := entity.ObjectKey(ctrl.Config.EnvConfig.Annotator.KeyPrefix, userID.String(), jobID.String(), req.FileName)

	uploadURL, err := ctrl.Infra.Minio.PresignedPut(ctx, ctrl.Config.EnvConfig.Minio.InputsBucket, inputKey, presignExpiry)
	if err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Annotation] Failed to presign upload for %s", inputKey)
		utils.JSON500(c, "Failed to prepare upload")
		return
	}

	utils.JSON200(c, dto.CreateUploadResponseDTO{
		JobID:     jobID.String(),
		InputKey:  inputKey,
		UploadURL: uploadURL,
	})
}

// CreateAnnotation records a PENDING job for an uploaded input and enqueues
// it for the worker pool.
func (ctrl *Controller) CreateAnnotation(c *gin.Context) {
	ctx := c.Request.Context()

	userID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Annotation] user_id not found in context")
		utils.JSON401(c, "Unauthorized: user_id not found")
		return
	}

	var req dto.CreateAnnotationRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Annotation] Failed to bind annotation request: %v", err)
		utils.JSON400(c, "Invalid request payload")
		return
	}

	keyUserID, keyJobID, fileName, err := entity.ParseObjectKey(req.InputKey)
	if err != nil {
		utils.JSON400(c, "Invalid input key")
		return
	}
	if keyUserID != userID.String() {
		ctrl.Infra.Logger.WarningWithContextf(ctx, "[Annotation] User %s submitted a key owned by %s", userID, keyUserID)
		utils.JSON403(c, "Input key does not belong to you")
		return
	}
	jobID, err := uuid.Parse(keyJobID)
	if err != nil {
		utils.JSON400(c, "Invalid input key")
		return
	}

	profile, err := ctrl.Infra.AccountService.GetUserProfile(ctx, userID.String())
	if err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Annotation] Failed to load profile for %s", userID)
		utils.JSON500(c, "Failed to load user profile")
		return
	}

	job := &entity.Job{
		JobID:         jobID,
		UserID:        userID,
		InputFileName: fileName,
		InputBucket:   ctrl.Config.EnvConfig.Minio.InputsBucket,
		InputKey:      req.InputKey,
		Parameters:    datatypes.JSON(req.Parameters),
		SubmitTime:    time.Now().Unix(),
		JobStatus:     entity.JobStatusPending,
		ArchiveStatus: entity.ArchiveStatusNone,
	}

	if err := ctrl.Repository.JobRepo.Create(job); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			utils.JSON409(c, "Annotation already submitted for this upload")
			return
		}
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Annotation] Failed to create job %s", jobID)
		utils.JSON500(c, "Failed to create annotation job")
		return
	}

	err = ctrl.Infra.Produce.PublishAnnotationRequest(ctx, produce.AnnotationRequestMessage{
		JobID:         jobID.String(),
		UserID:        userID.String(),
		InputFileName: fileName,
		InputBucket:   job.InputBucket,
		InputKey:      job.InputKey,
		Email:         profile.Email,
	})
	if err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Annotation] Failed to enqueue job %s", jobID)
		utils.JSON500(c, "Failed to enqueue annotation job")
		return
	}

	ctrl.Infra.Logger.InfoWithContextf(ctx, "[Annotation] Job %s submitted by %s", jobID, userID)
	utils.JSON201(c, gin.H{
		"message": "Annotation job submitted",
		"job":     job,
	})
}

func (ctrl *Controller) ListAnnotations(c *gin.Context) {
	ctx := c.Request.Context()

	userID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		utils.JSON401(c, "Unauthorized: user_id not found")
		return
	}

	jobs, err := ctrl.Repository.JobRepo.ListByUserID(userID)
	if err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Annotation] Failed to list jobs for %s", userID)
		utils.JSON500(c, "Failed to list annotation jobs")
		return
	}

	utils.JSON200(c, gin.H{"jobs": jobs})
}

func (ctrl *Controller) GetAnnotation(c *gin.Context) {
	ctx := c.Request.Context()

	userID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		utils.JSON401(c, "Unauthorized: user_id not found")
		return
	}

	job, ok := ctrl.loadOwnedJob(c, userID)
	if !ok {
		return
	}

	response := gin.H{"job": job}

	inputURL, err := ctrl.Infra.Minio.PresignedGet(ctx, job.InputBucket, job.InputKey, presignExpiry)
	if err != nil {
		ctrl.Infra.Logger.WarningWithContextf(ctx, "[Annotation] Failed to presign input for job %s: %v", job.JobID, err)
	} else {
		response["input_url"] = inputURL
	}

	if job.JobStatus == entity.JobStatusCompleted {
		switch job.ArchiveStatus {
		case entity.ArchiveStatusNone, entity.ArchiveStatusRestored:
			resultURL, err := ctrl.Infra.Minio.PresignedGet(ctx, job.ResultBucket, job.ResultKey, presignExpiry)
			if err != nil {
				ctrl.Infra.Logger.WarningWithContextf(ctx, "[Annotation] Failed to presign result for job %s: %v", job.JobID, err)
			} else {
				response["result_url"] = resultURL
			}
		case entity.ArchiveStatusRestoring:
			response["result_message"] = "Result is being restored from the archive"
		default:
			response["result_message"] = "Result is archived; upgrade your subscription to restore it"
		}
	}

	utils.JSON200(c, response)
}

func (ctrl *Controller) GetAnnotationLog(c *gin.Context) {
	ctx := c.Request.Context()

	userID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		utils.JSON401(c, "Unauthorized: user_id not found")
		return
	}

	job, ok := ctrl.loadOwnedJob(c, userID)
	if !ok {
		return
	}

	if job.LogKey == "" {
		utils.JSON404(c, "Log not available yet")
		return
	}

	contents, err := ctrl.Infra.Minio.ReadObject(ctx, job.ResultBucket, job.LogKey)
	if err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Annotation] Failed to read log for job %s", job.JobID)
		utils.JSON500(c, "Failed to read annotation log")
		return
	}

	c.Data(200, "text/plain; charset=utf-8", contents)
}

// loadOwnedJob fetches the job from the path parameter and enforces
// ownership. It writes the error response itself when the job cannot be
// served.
func (ctrl *Controller) loadOwnedJob(c *gin.Context, userID uuid.UUID) (*entity.Job, bool) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.JSON400(c, "Invalid job id")
		return nil, false
	}

	job, err := ctrl.Repository.JobRepo.GetByID(jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.JSON404(c, "Annotation job not found")
			return nil, false
		}
		ctrl.Infra.Logger.ErrorWithContextf(c.Request.Context(), err, "[Annotation] Failed to load job %s", jobID)
		utils.JSON500(c, "Failed to load annotation job")
		return nil, false
	}

	if job.UserID != userID {
		utils.JSON403(c, "You do not own this annotation job")
		return nil, false
	}

	return job, true
}
