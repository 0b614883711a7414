package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/ilker/tracker-server/internal/models"
	"github.com/ilker/tracker-server/internal/repository"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

type DeviceHandler struct {
	db     *gorm.DB
	store  *repository.EventStore
	logger zerolog.Logger
}

func NewDeviceHandler(db *gorm.DB, store *repository.EventStore, logger zerolog.Logger) *DeviceHandler {
	return &DeviceHandler{db: db, store: store, logger: logger}
}

type CreateDeviceRequest struct {
	Name   string `json:"name" binding:"required,min=1,max=100"`
	Serial string `json:"serial" binding:"omitempty,max=100"`
}

type UpdateDeviceRequest struct {
	Name   *string `json:"name" binding:"omitempty,min=1,max=100"`
	Serial *string `json:"serial" binding:"omitempty,max=100"`
}

type DeviceResponse struct {
	DevID     uint   `json:"dev_id"`
	Name      string `json:"name"`
	Serial    string `json:"serial"`
	CreatedAt string `json:"created_at"`
}

func toDeviceResponse(d models.Device) DeviceResponse {
	return DeviceResponse{
		DevID:     d.DevID,
		Name:      d.Name,
		Serial:    d.Serial,
		CreatedAt: d.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

// GET /api/devices
func (h *DeviceHandler) List(c *gin.Context) {
	var devices []models.Device
	if err := h.db.WithContext(c.Request.Context()).Order("dev_id").Find(&devices).Error; err != nil {
		h.logger.Error().Err(err).Msg("failed to fetch devices")
		InternalError(c, "Failed to fetch devices")
		return
	}

	response := make([]DeviceResponse, len(devices))
	for i, d := range devices {
		response[i] = toDeviceResponse(d)
	}

	Success(c, response)
}

// POST /api/devices
func (h *DeviceHandler) Create(c *gin.Context) {
	var req CreateDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	device := models.Device{
		Name:   req.Name,
		Serial: req.Serial,
	}

	if err := h.db.WithContext(c.Request.Context()).Create(&device).Error; err != nil {
		h.logger.Error().Err(err).Msg("failed to create device")
		InternalError(c, "Failed to create device")
		return
	}

	Created(c, toDeviceResponse(device))
}

// GET /api/devices/:id
func (h *DeviceHandler) Get(c *gin.Context) {
	device, ok := h.find(c)
	if !ok {
		return
	}

	Success(c, toDeviceResponse(device))
}

// PATCH /api/devices/:id
func (h *DeviceHandler) Update(c *gin.Context) {
	var req UpdateDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	device, ok := h.find(c)
	if !ok {
		return
	}

	if req.Name != nil {
		device.Name = *req.Name
	}
	if req.Serial != nil {
		device.Serial = *req.Serial
	}
	if err := h.db.WithContext(c.Request.Context()).Save(&device).Error; err != nil {
		h.logger.Error().Err(err).Uint("dev_id", device.DevID).Msg("failed to update device")
		InternalError(c, "Failed to update device")
		return
	}

	Success(c, toDeviceResponse(device))
}

// DELETE /api/devices/:id
// The device's events go with it through the FK cascade.
func (h *DeviceHandler) Delete(c *gin.Context) {
	device, ok := h.find(c)
	if !ok {
		return
	}

	if err := h.db.WithContext(c.Request.Context()).Delete(&device).Error; err != nil {
		h.logger.Error().Err(err).Uint("dev_id", device.DevID).Msg("failed to delete device")
		InternalError(c, "Failed to delete device")
		return
	}

	NoContent(c)
}

// GET /api/devices/:id/events
func (h *DeviceHandler) Events(c *gin.Context) {
	device, ok := h.find(c)
	if !ok {
		return
	}

	events, err := h.store.GetEventsByDevice(c.Request.Context(), device.DevID)
	if err != nil {
		h.logger.Error().Err(err).Uint("dev_id", device.DevID).Msg("failed to fetch device events")
		InternalError(c, "Failed to fetch events")
		return
	}

	Success(c, toResponses(events))
}

// GET /api/devices/:id/events/latest
func (h *DeviceHandler) LatestEvent(c *gin.Context) {
	device, ok := h.find(c)
	if !ok {
		return
	}

	event, err := h.store.LatestEventForDevice(c.Request.Context(), device.DevID)
	if errors.Is(err, repository.ErrEventNotFound) {
		NotFound(c, "Device has no events")
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Uint("dev_id", device.DevID).Msg("failed to fetch latest event")
		InternalError(c, "Failed to fetch event")
		return
	}

	event.Device = device
	Success(c, event.ToResponse())
}

// find loads the device named by the :id parameter and writes the error
// response itself when it cannot.
func (h *DeviceHandler) find(c *gin.Context) (models.Device, bool) {
	var device models.Device
	devID, ok := parseID(c, "id")
	if !ok {
		BadRequest(c, "Invalid device ID")
		return device, false
	}

	err := h.db.WithContext(c.Request.Context()).Where("dev_id = ?", devID).First(&device).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		NotFound(c, "Device not found")
		return device, false
	}
	if err != nil {
		h.logger.Error().Err(err).Uint("dev_id", devID).Msg("failed to fetch device")
		InternalError(c, "Failed to fetch device")
		return device, false
	}
	return device, true
}
