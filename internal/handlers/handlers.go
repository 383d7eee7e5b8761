package handlers

import (
	"context"
	"net/http"
	"time"

	"aniflixx/engage/internal/counters"
	"aniflixx/engage/internal/feed"
	"aniflixx/engage/internal/metrics"
	"aniflixx/engage/internal/presence"
	"aniflixx/engage/internal/websocket"
	"aniflixx/engage/pkg/api/common"
	"aniflixx/engage/pkg/api/tallyman"
	"aniflixx/engage/pkg/logging"

	"github.com/gin-gonic/gin"
)

// counterFields are the engagement counters an entity carries. Requests
// naming any other field are rejected before they reach an actor.
var counterFields = map[string]bool{
	"views":    true,
	"likes":    true,
	"comments": true,
	"shares":   true,
	"saves":    true,
}

// TallymanHandlers contains the HTTP handlers for the service
type TallymanHandlers struct {
	counters *counters.Service
	presence *presence.Service
	feed     *feed.Builder
	hub      *websocket.Hub
	metrics  *metrics.Metrics
	logger   logging.Logger
}

// NewTallymanHandlers creates a new handlers instance
func NewTallymanHandlers(countersSvc *counters.Service, presenceSvc *presence.Service, feedBuilder *feed.Builder, hub *websocket.Hub, serviceMetrics *metrics.Metrics, logger logging.Logger) *TallymanHandlers {
	return &TallymanHandlers{
		counters: countersSvc,
		presence: presenceSvc,
		feed:     feedBuilder,
		hub:      hub,
		metrics:  serviceMetrics,
		logger:   logger,
	}
}

func (h *TallymanHandlers) recordCommand(kind, op, status string, start time.Time) {
	if h.metrics == nil {
		return
	}
	h.metrics.CommandsTotal.WithLabelValues(kind, op, status).Inc()
	h.metrics.CommandDuration.WithLabelValues(kind, op).Observe(time.Since(start).Seconds())
}

// HandleIncrementCounter bumps one engagement counter on an entity
func (h *TallymanHandlers) HandleIncrementCounter(c *gin.Context) {
	h.handleCounterMutation(c, "increment", h.counters.Increment)
}

// HandleDecrementCounter decrements one engagement counter, flooring at zero
func (h *TallymanHandlers) HandleDecrementCounter(c *gin.Context) {
	h.handleCounterMutation(c, "decrement", h.counters.Decrement)
}

func (h *TallymanHandlers) handleCounterMutation(c *gin.Context, op string, mutate func(ctx context.Context, entityID, field string) (int64, error)) {
	start := time.Now()
	entityID := c.Param("id")
	field := c.Param("field")

	if !counterFields[field] {
		h.recordCommand(counters.Kind, op, "invalid", start)
		c.JSON(http.StatusBadRequest, common.ValidationErrorResponse{
			Error:  "unknown counter field",
			Fields: map[string]string{"field": "must be one of views, likes, comments, shares, saves"},
		})
		return
	}

	count, err := mutate(c.Request.Context(), entityID, field)
	if err != nil {
		h.recordCommand(counters.Kind, op, "error", start)
		h.logger.WithError(err).WithFields(logging.Fields{
			"entity_id": entityID,
			"field":     field,
			"operation": op,
		}).Error("Counter mutation failed")
		c.JSON(http.StatusInternalServerError, common.ErrorResponse{
			Error:   "counter update failed",
			Service: "tallyman",
		})
		return
	}

	h.recordCommand(counters.Kind, op, "ok", start)
	h.broadcastCounter(entityID, field, count)
	c.JSON(http.StatusOK, tallyman.CountResponse{Count: count})
}

// HandleGetCounters returns all engagement counters for an entity
func (h *TallymanHandlers) HandleGetCounters(c *gin.Context) {
	start := time.Now()
	entityID := c.Param("id")

	counts, err := h.counters.All(c.Request.Context(), entityID)
	if err != nil {
		h.recordCommand(counters.Kind, "read", "error", start)
		h.logger.WithError(err).WithFields(logging.Fields{"entity_id": entityID}).Error("Counter read failed")
		c.JSON(http.StatusInternalServerError, common.ErrorResponse{
			Error:   "counter read failed",
			Service: "tallyman",
		})
		return
	}

	h.recordCommand(counters.Kind, "read", "ok", start)
	c.JSON(http.StatusOK, tallyman.CountersResponse{Counts: counts})
}

// HandleRegisterViewer adds a viewer session to a stream's live roster
func (h *TallymanHandlers) HandleRegisterViewer(c *gin.Context) {
	start := time.Now()
	streamID := c.Param("id")

	var req tallyman.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.recordCommand(presence.Kind, "register", "invalid", start)
		c.JSON(http.StatusBadRequest, common.ErrorResponse{Error: err.Error()})
		return
	}

	count, err := h.presence.Register(c.Request.Context(), streamID, req.OwnerID, req.SessionID)
	if err != nil {
		h.recordCommand(presence.Kind, "register", "error", start)
		h.logger.WithError(err).WithFields(logging.Fields{
			"stream_id":  streamID,
			"session_id": req.SessionID,
		}).Error("Viewer registration failed")
		c.JSON(http.StatusInternalServerError, common.ErrorResponse{
			Error:   "viewer registration failed",
			Service: "tallyman",
		})
		return
	}

	h.recordCommand(presence.Kind, "register", "ok", start)
	h.broadcastViewerCount(streamID, count)
	c.JSON(http.StatusOK, tallyman.ViewerCountResponse{ViewerCount: count})
}

// HandleHeartbeat refreshes a viewer session's liveness
func (h *TallymanHandlers) HandleHeartbeat(c *gin.Context) {
	h.handleSessionMutation(c, "heartbeat", h.presence.Heartbeat)
}

// HandleDeregisterViewer removes a viewer session from a stream's roster
func (h *TallymanHandlers) HandleDeregisterViewer(c *gin.Context) {
	h.handleSessionMutation(c, "deregister", h.presence.Deregister)
}

func (h *TallymanHandlers) handleSessionMutation(c *gin.Context, op string, mutate func(ctx context.Context, streamID, sessionID string) (int, error)) {
	start := time.Now()
	streamID := c.Param("id")

	var req tallyman.SessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.recordCommand(presence.Kind, op, "invalid", start)
		c.JSON(http.StatusBadRequest, common.ErrorResponse{Error: err.Error()})
		return
	}

	count, err := mutate(c.Request.Context(), streamID, req.SessionID)
	if err != nil {
		h.recordCommand(presence.Kind, op, "error", start)
		h.logger.WithError(err).WithFields(logging.Fields{
			"stream_id":  streamID,
			"session_id": req.SessionID,
			"operation":  op,
		}).Error("Presence mutation failed")
		c.JSON(http.StatusInternalServerError, common.ErrorResponse{
			Error:   "presence update failed",
			Service: "tallyman",
		})
		return
	}

	h.recordCommand(presence.Kind, op, "ok", start)
	h.broadcastViewerCount(streamID, count)
	c.JSON(http.StatusOK, tallyman.ViewerCountResponse{ViewerCount: count})
}

// HandleGetPresence returns the live viewer count and session list for a stream
func (h *TallymanHandlers) HandleGetPresence(c *gin.Context) {
	start := time.Now()
	streamID := c.Param("id")

	count, sessions, err := h.presence.Count(c.Request.Context(), streamID)
	if err != nil {
		h.recordCommand(presence.Kind, "read", "error", start)
		h.logger.WithError(err).WithFields(logging.Fields{"stream_id": streamID}).Error("Presence read failed")
		c.JSON(http.StatusInternalServerError, common.ErrorResponse{
			Error:   "presence read failed",
			Service: "tallyman",
		})
		return
	}

	resp := tallyman.PresenceResponse{
		Count:    count,
		Sessions: make([]tallyman.SessionInfo, 0, len(sessions)),
	}
	for _, s := range sessions {
		resp.Sessions = append(resp.Sessions, tallyman.SessionInfo{
			OwnerID:         s.OwnerID,
			LastHeartbeatAt: s.LastHeartbeatAt,
		})
	}

	h.recordCommand(presence.Kind, "read", "ok", start)
	c.JSON(http.StatusOK, resp)
}

// HandleBuildFeed ranks and diversifies the supplied candidates into one page
func (h *TallymanHandlers) HandleBuildFeed(c *gin.Context) {
	start := time.Now()

	var req tallyman.FeedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if h.metrics != nil {
			h.metrics.FeedBuilds.WithLabelValues("invalid").Inc()
		}
		c.JSON(http.StatusBadRequest, common.ErrorResponse{Error: err.Error()})
		return
	}

	candidates := make([]feed.Candidate, 0, len(req.Candidates))
	for _, rc := range req.Candidates {
		candidates = append(candidates, feed.Candidate{
			ID:        rc.ID,
			AuthorID:  rc.AuthorID,
			CreatedAt: rc.CreatedAt,
			Engagement: feed.Engagement{
				Views:    rc.Engagement.Views,
				Likes:    rc.Engagement.Likes,
				Comments: rc.Engagement.Comments,
				Shares:   rc.Engagement.Shares,
				Saves:    rc.Engagement.Saves,
			},
			FromFollowedAuthor: rc.IsFromFollowedAuthor,
			VerifiedAuthor:     rc.IsVerifiedAuthor,
		})
	}

	page, err := h.feed.BuildPage(c.Request.Context(), feed.PageRequest{
		ViewerID:   req.ViewerID,
		Page:       req.Page,
		PageSize:   req.PageSize,
		Candidates: candidates,
	})
	if err != nil {
		if h.metrics != nil {
			h.metrics.FeedBuilds.WithLabelValues("error").Inc()
		}
		h.logger.WithError(err).WithFields(logging.Fields{"viewer_id": req.ViewerID}).Error("Feed build failed")
		c.JSON(http.StatusInternalServerError, common.ErrorResponse{
			Error:   "feed build failed",
			Service: "tallyman",
		})
		return
	}

	resp := tallyman.FeedResponse{
		Items:   make([]tallyman.FeedItem, 0, len(page.Items)),
		HasMore: page.HasMore,
	}
	for _, item := range page.Items {
		resp.Items = append(resp.Items, tallyman.FeedItem{
			FeedCandidate: tallyman.FeedCandidate{
				ID:        item.ID,
				AuthorID:  item.AuthorID,
				CreatedAt: item.CreatedAt,
				Engagement: tallyman.EngagementCounts{
					Views:    item.Engagement.Views,
					Likes:    item.Engagement.Likes,
					Comments: item.Engagement.Comments,
					Shares:   item.Engagement.Shares,
					Saves:    item.Engagement.Saves,
				},
				IsFromFollowedAuthor: item.FromFollowedAuthor,
				IsVerifiedAuthor:     item.VerifiedAuthor,
			},
			Score: item.Score,
		})
	}

	if h.metrics != nil {
		h.metrics.FeedBuilds.WithLabelValues("ok").Inc()
		h.metrics.FeedBuildDuration.WithLabelValues().Observe(time.Since(start).Seconds())
	}
	c.JSON(http.StatusOK, resp)
}

// HandleWebSocketEntities serves WebSocket connections for entity updates
func (h *TallymanHandlers) HandleWebSocketEntities(c *gin.Context) {
	h.hub.ServeWS(c.Writer, c.Request)
}

// HandleNotFound provides a custom 404 handler
func (h *TallymanHandlers) HandleNotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, common.ErrorResponse{
		Error:   "not_found",
		Service: "tallyman",
	})
}

func (h *TallymanHandlers) broadcastCounter(entityID, field string, count int64) {
	if h.hub == nil {
		return
	}
	h.hub.BroadcastEntityUpdate(websocket.MessageEngagementUpdate, entityID, map[string]interface{}{
		"field": field,
		"count": count,
	})
	if h.metrics != nil {
		h.metrics.HubMessages.WithLabelValues(websocket.MessageEngagementUpdate, "out").Inc()
	}
}

func (h *TallymanHandlers) broadcastViewerCount(streamID string, count int) {
	if h.metrics != nil {
		h.metrics.ViewersActive.WithLabelValues(streamID).Set(float64(count))
	}
	if h.hub == nil {
		return
	}
	h.hub.BroadcastEntityUpdate(websocket.MessageViewerCount, streamID, map[string]interface{}{
		"viewer_count": count,
	})
	if h.metrics != nil {
		h.metrics.HubMessages.WithLabelValues(websocket.MessageViewerCount, "out").Inc()
	}
}
