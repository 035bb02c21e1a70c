package webapi

import (
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"

	httptransport "tensosense-server-go/internal/transport/http"
)

// HealthReport is the body of GET /api/health.
type HealthReport struct {
	Status           string       `json:"status"`
	UptimeSeconds    float64      `json:"uptimeSeconds"`
	ConnectedDevices int          `json:"connectedDevices"`
	Goroutines       int          `json:"goroutines"`
	Process          ProcessStats `json:"process"`
	Host             HostStats    `json:"host"`
}

type ProcessStats struct {
	RSSBytes uint64 `json:"rssBytes"`
}

type HostStats struct {
	TotalBytes     uint64  `json:"totalBytes"`
	AvailableBytes uint64  `json:"availableBytes"`
	UsedPercent    float64 `json:"usedPercent"`
}

// handleHealth reports uptime, live sessions and memory usage. Host metrics
// that cannot be read are left zero.
// @Summary Health check
// @Tags System
// @Produce json
// @Success 200 {object} httptransport.APIResponse
// @Router /health [get]
func (s *Service) handleHealth(c *gin.Context) {
	report := HealthReport{
		Status:           "ok",
		UptimeSeconds:    time.Since(s.started).Seconds(),
		ConnectedDevices: s.hub.Stats().ConnectedDevices,
		Goroutines:       runtime.NumGoroutine(),
	}

	ctx := c.Request.Context()
	if proc, err := process.NewProcessWithContext(ctx, int32(os.Getpid())); err == nil {
		if info, err := proc.MemoryInfoWithContext(ctx); err == nil {
			report.Process.RSSBytes = info.RSS
		}
	} else {
		s.logger.DebugTag("HTTP", "process stats unavailable: %v", err)
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		report.Host = HostStats{
			TotalBytes:     vm.Total,
			AvailableBytes: vm.Available,
			UsedPercent:    vm.UsedPercent,
		}
	} else {
		s.logger.DebugTag("HTTP", "host memory unavailable: %v", err)
	}

	httptransport.RespondSuccess(c, http.StatusOK, report, "")
}
