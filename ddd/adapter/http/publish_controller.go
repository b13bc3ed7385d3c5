package http

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"signage-service/ddd/application/app"
	"signage-service/pkg/errno"
)

// PublishController exposes the internal publish surface.
type PublishController struct {
	app *app.PublishApp
}

func NewPublishController(publishApp *app.PublishApp) *PublishController {
	return &PublishController{app: publishApp}
}

// Publish accepts a local source file and schedules the derivative
// pipeline; the response carries the job id for later polling.
func (ctl *PublishController) Publish(c *gin.Context) {
	var req app.PublishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errno.ErrInvalidParam)
		return
	}
	jobID, err := ctl.app.Publish(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"job_id": jobID})
}

// JobHistory lists the most recent publish jobs from the ledger.
func (ctl *PublishController) JobHistory(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	jobs, err := ctl.app.RecentJobs(c.Request.Context(), limit)
	if err != nil {
		fail(c, errno.ErrDatabase)
		return
	}
	ok(c, gin.H{"jobs": jobs})
}

// JobStatus reports the ledger row for one publish job.
func (ctl *PublishController) JobStatus(c *gin.Context) {
	job, err := ctl.app.JobStatus(c.Request.Context(), c.Param("job_id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, job)
}
