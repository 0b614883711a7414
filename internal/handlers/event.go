package handlers

import (
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/ilker/tracker-server/internal/models"
	"github.com/ilker/tracker-server/internal/repository"
	"github.com/rs/zerolog"
)

type EventHandler struct {
	store  *repository.EventStore
	logger zerolog.Logger
}

func NewEventHandler(store *repository.EventStore, logger zerolog.Logger) *EventHandler {
	return &EventHandler{store: store, logger: logger}
}

// CreateEventRequest is one element of the create payload. Text fields must
// be present but may be empty; overlong values are clipped on write.
type CreateEventRequest struct {
	DevID    ID      `json:"dev_id" binding:"required"`
	UserID   ID      `json:"user_id" binding:"required"`
	MoveTime string  `json:"move_time" binding:"required"`
	LocName  *string `json:"loc_name" binding:"required"`
	Company  *string `json:"company" binding:"required"`
	Comment  *string `json:"comment" binding:"required"`
}

func (r CreateEventRequest) toEvent() (models.Event, error) {
	moveTime, err := models.ParseMoveTime(r.MoveTime)
	if err != nil {
		return models.Event{}, fmt.Errorf("invalid move_time %q", r.MoveTime)
	}
	return models.Event{
		DevID:    uint(r.DevID),
		UserID:   uint(r.UserID),
		MoveTime: moveTime,
		LocName:  *r.LocName,
		Company:  *r.Company,
		Comment:  *r.Comment,
	}, nil
}

type UpdateEventRequest struct {
	DevID    *ID     `json:"dev_id"`
	UserID   *ID     `json:"user_id"`
	MoveTime *string `json:"move_time"`
	LocName  *string `json:"loc_name"`
	Company  *string `json:"company"`
	Comment  *string `json:"comment"`
}

func (r UpdateEventRequest) apply(e *models.Event) error {
	if r.DevID != nil {
		if *r.DevID == 0 {
			return errors.New("invalid dev_id")
		}
		e.DevID = uint(*r.DevID)
	}
	if r.UserID != nil {
		if *r.UserID == 0 {
			return errors.New("invalid user_id")
		}
		e.UserID = uint(*r.UserID)
	}
	if r.MoveTime != nil {
		moveTime, err := models.ParseMoveTime(*r.MoveTime)
		if err != nil {
			return fmt.Errorf("invalid move_time %q", *r.MoveTime)
		}
		e.MoveTime = moveTime
	}
	if r.LocName != nil {
		e.LocName = *r.LocName
	}
	if r.Company != nil {
		e.Company = *r.Company
	}
	if r.Comment != nil {
		e.Comment = *r.Comment
	}
	return nil
}

func toResponses(events []models.Event) []models.EventResponse {
	response := make([]models.EventResponse, len(events))
	for i := range events {
		response[i] = events[i].ToResponse()
	}
	return response
}

// GET /api/events
func (h *EventHandler) List(c *gin.Context) {
	events, err := h.store.GetAllEvents(c.Request.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to fetch events")
		InternalError(c, "Failed to fetch events")
		return
	}

	Success(c, toResponses(events))
}

// GET /api/events/:id
func (h *EventHandler) Get(c *gin.Context) {
	eventID, ok := parseID(c, "id")
	if !ok {
		BadRequest(c, "Invalid event ID")
		return
	}

	event, err := h.store.GetEventByID(c.Request.Context(), eventID)
	if errors.Is(err, repository.ErrEventNotFound) {
		NotFound(c, "Event not found")
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Uint("event_id", eventID).Msg("failed to fetch event")
		InternalError(c, "Failed to fetch event")
		return
	}

	Success(c, event.ToResponse())
}

// POST /api/events
func (h *EventHandler) Create(c *gin.Context) {
	var req []CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	if len(req) == 0 {
		BadRequest(c, "At least one event is required")
		return
	}

	events := make([]models.Event, len(req))
	for i, r := range req {
		event, err := r.toEvent()
		if err != nil {
			BadRequest(c, err.Error())
			return
		}
		events[i] = event
	}

	res := h.store.CreateEvents(c.Request.Context(), events)
	if !res.Success {
		InternalError(c, "Failed to create events: "+res.Message)
		return
	}

	Created(c, toResponses(events))
}

// PATCH /api/events/:id
func (h *EventHandler) Update(c *gin.Context) {
	eventID, ok := parseID(c, "id")
	if !ok {
		BadRequest(c, "Invalid event ID")
		return
	}

	var req UpdateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	event, err := h.store.GetEventByID(c.Request.Context(), eventID)
	if errors.Is(err, repository.ErrEventNotFound) {
		NotFound(c, "Event not found")
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Uint("event_id", eventID).Msg("failed to fetch event")
		InternalError(c, "Failed to fetch event")
		return
	}

	if err := req.apply(event); err != nil {
		BadRequest(c, err.Error())
		return
	}

	res := h.store.CommitChanges(c.Request.Context(), event)
	if !res.Success {
		InternalError(c, "Failed to update event: "+res.Message)
		return
	}

	// Re-read so the response reflects the stored (clipped) values and the
	// current user.
	updated, err := h.store.GetEventByID(c.Request.Context(), eventID)
	if err != nil {
		InternalError(c, "Failed to fetch event")
		return
	}
	Success(c, updated.ToResponse())
}

// DELETE /api/events/:id
func (h *EventHandler) Delete(c *gin.Context) {
	eventID, ok := parseID(c, "id")
	if !ok {
		BadRequest(c, "Invalid event ID")
		return
	}

	deleted, res := h.store.RemoveEvent(c.Request.Context(), eventID)
	if !res.Success {
		InternalError(c, "Failed to delete event: "+res.Message)
		return
	}
	if !deleted {
		NotFound(c, "Event not found")
		return
	}

	NoContent(c)
}
