package handlers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ilker/tracker-server/internal/repository"
	"github.com/rs/zerolog"
)

type StatsHandler struct {
	store  *repository.EventStore
	logger zerolog.Logger
}

func NewStatsHandler(store *repository.EventStore, logger zerolog.Logger) *StatsHandler {
	return &StatsHandler{store: store, logger: logger}
}

type DeviceEventStatsResponse struct {
	DevID          string `json:"dev_id"`
	DevName        string `json:"dev_name"`
	EventCount     int64  `json:"event_count"`
	OldestMoveTime string `json:"oldest_move_time"`
	NewestMoveTime string `json:"newest_move_time"`
}

// GET /api/stats/events
func (h *StatsHandler) Events(c *gin.Context) {
	stats, err := h.store.EventStats(c.Request.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to compute event stats")
		InternalError(c, "Failed to compute event statistics")
		return
	}

	response := make([]DeviceEventStatsResponse, len(stats))
	for i, s := range stats {
		response[i] = DeviceEventStatsResponse{
			DevID:          strconv.FormatUint(uint64(s.DevID), 10),
			DevName:        s.DevName,
			EventCount:     s.EventCount,
			OldestMoveTime: s.OldestMove.UTC().Format(time.RFC3339),
			NewestMoveTime: s.NewestMove.UTC().Format(time.RFC3339),
		}
	}

	Success(c, response)
}
