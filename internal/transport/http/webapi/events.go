package webapi

import (
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"

	"tensosense-server-go/internal/domain/eventbus"
	httptransport "tensosense-server-go/internal/transport/http"
)

const maxEventLimit = 500

// handleEvents lists the newest device lifecycle events.
// @Summary Device audit trail
// @Tags Events
// @Produce json
// @Param type query string false "device:connected, device:disconnected or device:evicted"
// @Param limit query int false "maximum events" default(50)
// @Success 200 {object} httptransport.APIResponse
// @Router /events [get]
func (s *Service) handleEvents(c *gin.Context) {
	eventType := strings.TrimSpace(c.Query("type"))
	if eventType != "" && !isDeviceTopic(eventType) {
		httptransport.RespondError(c, http.StatusBadRequest, "unknown event type", gin.H{})
		return
	}
	limit, err := parseLimit(c.Query("limit"), 50, maxEventLimit)
	if err != nil {
		httptransport.RespondError(c, http.StatusBadRequest, err.Error(), gin.H{})
		return
	}

	events, err := s.events.FindRecent(c.Request.Context(), eventType, limit)
	if err != nil {
		s.logger.ErrorTag("HTTP", "load events failed: %v", err)
		httptransport.RespondError(c, http.StatusInternalServerError, "failed to load events", gin.H{})
		return
	}
	httptransport.RespondSuccess(c, http.StatusOK, events, "")
}

// handleEventStats counts stored events per type.
// @Summary Audit counts
// @Tags Events
// @Produce json
// @Success 200 {object} httptransport.APIResponse
// @Router /events/stats [get]
func (s *Service) handleEventStats(c *gin.Context) {
	stats, err := s.events.GetEventStats(c.Request.Context())
	if err != nil {
		s.logger.ErrorTag("HTTP", "load event stats failed: %v", err)
		httptransport.RespondError(c, http.StatusInternalServerError, "failed to load event stats", gin.H{})
		return
	}
	httptransport.RespondSuccess(c, http.StatusOK, stats, "")
}

// handleSessionEvents lists one session's lifecycle, oldest first.
// @Summary Session audit trail
// @Tags Events
// @Produce json
// @Param id path string true "device id"
// @Success 200 {object} httptransport.APIResponse
// @Router /events/session/{id} [get]
func (s *Service) handleSessionEvents(c *gin.Context) {
	events, err := s.events.FindBySessionID(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.logger.ErrorTag("HTTP", "load session events failed: %v", err)
		httptransport.RespondError(c, http.StatusInternalServerError, "failed to load events", gin.H{})
		return
	}
	httptransport.RespondSuccess(c, http.StatusOK, events, "")
}

func isDeviceTopic(topic string) bool {
	return slices.Contains(eventbus.DeviceTopics, topic)
}
