package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/attachvault/pkg/middleware"
)

// ListJobs 列出所有定时任务及其运行状态.
func ListJobs(c *gin.Context) {
	sched := middleware.GetScheduler(c)
	if sched == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"component": "scheduler", "status": "unhealthy", "error": "scheduler not initialized"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"jobs": sched.GetJobInfos()})
}
