package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/newsfeed/server/internal/auth"
	"github.com/newsfeed/server/internal/http/response"
	"github.com/newsfeed/server/internal/middleware"
	"github.com/newsfeed/server/internal/model"
)

// UserHandler handles the authenticated user's own profile
type UserHandler struct {
	authService *auth.AuthService
	logger      *zap.Logger
	validate    *validator.Validate
}

// NewUserHandler creates a new user handler
func NewUserHandler(authService *auth.AuthService, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		authService: authService,
		logger:      logger,
		validate:    newValidator(),
	}
}

// updateMeRequest is the request body for PATCH /api/users/me. Absent fields stay unchanged.
type updateMeRequest struct {
	Email       *string `json:"email" validate:"omitnil,email,max=255"`
	Nickname    *string `json:"nickname" validate:"omitnil,min=1,max=30"`
	PhoneNumber *string `json:"phoneNumber" validate:"omitnil,min=1,max=20"`
	Profile     *string `json:"profile" validate:"omitnil,url"`
}

func (r *updateMeRequest) normalize() {
	if r.Email != nil {
		email := strings.TrimSpace(*r.Email)
		r.Email = &email
	}
}

// HandleGetMe handles GET /api/users/me (access token required)
func (h *UserHandler) HandleGetMe(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok || user == nil {
		response.Error(w, http.StatusUnauthorized, response.CodeUnauthorized, "Unauthorized.")
		return
	}

	response.JSON(w, http.StatusOK, "OK", newUserResponse(*user))
}

// HandleUpdateMe handles PATCH /api/users/me (access token required)
func (h *UserHandler) HandleUpdateMe(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok || user == nil {
		response.Error(w, http.StatusUnauthorized, response.CodeUnauthorized, "Unauthorized.")
		return
	}

	var req updateMeRequest
	if !bind(w, r, h.validate, &req) {
		return
	}

	upd := model.UserUpdate{
		Email:       req.Email,
		Nickname:    req.Nickname,
		PhoneNumber: req.PhoneNumber,
		Profile:     req.Profile,
	}
	if upd.Empty() {
		response.Error(w, http.StatusBadRequest, response.CodeInvalidBody, "No updatable field provided.")
		return
	}

	updated, err := h.authService.UpdateProfile(r.Context(), user.ID, upd)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrEmailTaken):
			response.Error(w, http.StatusConflict, response.CodeDuplicated, "Email is already in use.")
		case errors.Is(err, auth.ErrUserNotFound):
			response.Error(w, http.StatusNotFound, response.CodeNotFound, "User not found.")
		default:
			response.Internal(w, r, h.logger, err)
		}
		return
	}

	response.JSON(w, http.StatusOK, "Profile updated.", newUserResponse(updated))
}
