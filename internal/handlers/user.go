package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/ilker/tracker-server/internal/models"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

type UserHandler struct {
	db     *gorm.DB
	logger zerolog.Logger
}

func NewUserHandler(db *gorm.DB, logger zerolog.Logger) *UserHandler {
	return &UserHandler{db: db, logger: logger}
}

type CreateUserRequest struct {
	Name  string `json:"name" binding:"required,min=1,max=60"`
	Email string `json:"email" binding:"omitempty,email,max=100"`
}

type UpdateUserRequest struct {
	Name  *string `json:"name" binding:"omitempty,min=1,max=60"`
	Email *string `json:"email" binding:"omitempty,email,max=100"`
}

type UserResponse struct {
	UserID    uint   `json:"user_id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	CreatedAt string `json:"created_at"`
}

func toUserResponse(u models.User) UserResponse {
	return UserResponse{
		UserID:    u.UserID,
		Name:      u.Name,
		Email:     u.Email,
		CreatedAt: u.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

// GET /api/users
func (h *UserHandler) List(c *gin.Context) {
	var users []models.User
	if err := h.db.WithContext(c.Request.Context()).Order("user_id").Find(&users).Error; err != nil {
		h.logger.Error().Err(err).Msg("failed to fetch users")
		InternalError(c, "Failed to fetch users")
		return
	}

	response := make([]UserResponse, len(users))
	for i, u := range users {
		response[i] = toUserResponse(u)
	}

	Success(c, response)
}

// POST /api/users
func (h *UserHandler) Create(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	user := models.User{
		Name:  req.Name,
		Email: req.Email,
	}

	if err := h.db.WithContext(c.Request.Context()).Create(&user).Error; err != nil {
		h.logger.Error().Err(err).Msg("failed to create user")
		InternalError(c, "Failed to create user")
		return
	}

	Created(c, toUserResponse(user))
}

// GET /api/users/:id
func (h *UserHandler) Get(c *gin.Context) {
	user, ok := h.find(c)
	if !ok {
		return
	}

	Success(c, toUserResponse(user))
}

// PATCH /api/users/:id
func (h *UserHandler) Update(c *gin.Context) {
	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	user, ok := h.find(c)
	if !ok {
		return
	}

	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Email != nil {
		user.Email = *req.Email
	}

	if err := h.db.WithContext(c.Request.Context()).Save(&user).Error; err != nil {
		h.logger.Error().Err(err).Uint("user_id", user.UserID).Msg("failed to update user")
		InternalError(c, "Failed to update user")
		return
	}

	Success(c, toUserResponse(user))
}

// DELETE /api/users/:id
// The user's events are removed by the FK cascade.
func (h *UserHandler) Delete(c *gin.Context) {
	user, ok := h.find(c)
	if !ok {
		return
	}

	if err := h.db.WithContext(c.Request.Context()).Delete(&user).Error; err != nil {
		h.logger.Error().Err(err).Uint("user_id", user.UserID).Msg("failed to delete user")
		InternalError(c, "Failed to delete user")
		return
	}

	NoContent(c)
}

func (h *UserHandler) find(c *gin.Context) (models.User, bool) {
	var user models.User
	userID, ok := parseID(c, "id")
	if !ok {
		BadRequest(c, "Invalid user ID")
		return user, false
	}

	err := h.db.WithContext(c.Request.Context()).Where("user_id = ?", userID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		NotFound(c, "User not found")
		return user, false
	}
	if err != nil {
		h.logger.Error().Err(err).Uint("user_id", userID).Msg("failed to fetch user")
		InternalError(c, "Failed to fetch user")
		return user, false
	}
	return user, true
}
