package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/newsfeed/server/internal/auth"
	"github.com/newsfeed/server/internal/http/response"
	"github.com/newsfeed/server/internal/logging"
	"github.com/newsfeed/server/internal/middleware"
	"github.com/newsfeed/server/internal/model"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService *auth.AuthService
	verifier    auth.Verifier
	logger      *zap.Logger
	validate    *validator.Validate
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *auth.AuthService, verifier auth.Verifier, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		verifier:    verifier,
		logger:      logger,
		validate:    newValidator(),
	}
}

// signUpRequest is the request body for POST /api/auth/sign-up
type signUpRequest struct {
	Username        string  `json:"username" validate:"required,min=2,max=30"`
	Email           string  `json:"email" validate:"required,email,max=255"`
	Password        string  `json:"password" validate:"required,min=6,maxbytes=72"`
	PasswordConfirm string  `json:"passwordConfirm" validate:"required,eqfield=Password"`
	Nickname        string  `json:"nickname" validate:"required,max=30"`
	PhoneNumber     string  `json:"phoneNumber" validate:"required,max=20"`
	Profile         *string `json:"profile" validate:"omitempty,url"`
}

// signInRequest is the request body for POST /api/auth/sign-in
type signInRequest struct {
	Username string `json:"username" validate:"required_without=Email"`
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password" validate:"required"`
}

// emailRequest is the request body for POST /api/auth/send-verification
type emailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// verifyEmailRequest is the request body for POST /api/auth/verify-email
type verifyEmailRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,alphanum"`
}

func (r *signUpRequest) normalize() {
	r.Username = strings.TrimSpace(r.Username)
	r.Email = strings.TrimSpace(r.Email)
}

func (r *signInRequest) normalize() {
	r.Username = strings.TrimSpace(r.Username)
	r.Email = strings.TrimSpace(r.Email)
}

func (r *emailRequest) normalize() {
	r.Email = strings.TrimSpace(r.Email)
}

func (r *verifyEmailRequest) normalize() {
	r.Email = strings.TrimSpace(r.Email)
	r.Code = strings.TrimSpace(r.Code)
}

// tokenResponse is the data of sign-in and token responses
type tokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// signOutResponse is the data of the sign-out response
type signOutResponse struct {
	ID int64 `json:"id"`
}

// userResponse is the user object in API responses. It has no password field.
type userResponse struct {
	ID          int64     `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	Nickname    string    `json:"nickname"`
	PhoneNumber string    `json:"phoneNumber"`
	Profile     *string   `json:"profile"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func newUserResponse(u model.User) userResponse {
	return userResponse{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		Nickname:    u.Nickname,
		PhoneNumber: u.PhoneNumber,
		Profile:     u.Profile,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

// HandleSignUp handles POST /api/auth/sign-up
func (h *AuthHandler) HandleSignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if !bind(w, r, h.validate, &req) {
		return
	}

	user, err := h.authService.SignUp(r.Context(), auth.SignUpInput{
		Username:    req.Username,
		Email:       req.Email,
		Password:    req.Password,
		Nickname:    req.Nickname,
		PhoneNumber: req.PhoneNumber,
		Profile:     req.Profile,
	})
	if err != nil {
		if errors.Is(err, auth.ErrAlreadyRegistered) {
			response.Error(w, http.StatusConflict, response.CodeDuplicated, "Username or email is already registered.")
			return
		}
		response.Internal(w, r, h.logger, err)
		return
	}

	h.logger.Info("user signed up",
		zap.Int64("user_id", user.ID),
		zap.String("email", logging.MaskEmail(user.Email)),
	)
	response.JSON(w, http.StatusCreated, "Signed up.", newUserResponse(user))
}

// HandleSignIn handles POST /api/auth/sign-in
func (h *AuthHandler) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if !bind(w, r, h.validate, &req) {
		return
	}

	tokens, err := h.authService.SignIn(r.Context(), auth.SignInInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			response.Error(w, http.StatusUnauthorized, response.CodeUnauthorized, "Invalid username, email or password.")
			return
		}
		response.Internal(w, r, h.logger, err)
		return
	}

	response.JSON(w, http.StatusOK, "Signed in.", tokenResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	})
}

// HandleSignOut handles POST /api/auth/sign-out (refresh token required)
func (h *AuthHandler) HandleSignOut(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok || user == nil {
		response.Error(w, http.StatusUnauthorized, response.CodeUnauthorized, "Unauthorized.")
		return
	}

	if err := h.authService.SignOut(r.Context(), user.ID); err != nil {
		response.Internal(w, r, h.logger, err)
		return
	}

	h.logger.Info("user signed out", zap.Int64("user_id", user.ID))
	response.JSON(w, http.StatusOK, "Signed out.", signOutResponse{ID: user.ID})
}

// HandleToken handles POST /api/auth/token (refresh token required). The
// presented refresh token is replaced and stops working.
func (h *AuthHandler) HandleToken(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok || user == nil {
		response.Error(w, http.StatusUnauthorized, response.CodeUnauthorized, "Unauthorized.")
		return
	}

	tokens, err := h.authService.Refresh(r.Context(), user.ID)
	if err != nil {
		response.Internal(w, r, h.logger, err)
		return
	}

	response.JSON(w, http.StatusOK, "Token refreshed.", tokenResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	})
}

// HandleSendVerification handles POST /api/auth/send-verification
func (h *AuthHandler) HandleSendVerification(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if !bind(w, r, h.validate, &req) {
		return
	}

	if err := h.verifier.RequestCode(r.Context(), req.Email); err != nil {
		if errors.Is(err, auth.ErrMailDispatch) {
			response.Error(w, http.StatusInternalServerError, response.CodeMailDispatchFailed, "Failed to send the verification email.")
			return
		}
		response.Internal(w, r, h.logger, err)
		return
	}

	response.JSON(w, http.StatusOK, "Verification code sent.", nil)
}

// HandleVerifyEmail handles POST /api/auth/verify-email
func (h *AuthHandler) HandleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req verifyEmailRequest
	if !bind(w, r, h.validate, &req) {
		return
	}

	if err := h.verifier.VerifyCode(r.Context(), req.Email, req.Code); err != nil {
		if errors.Is(err, auth.ErrVerificationFailed) {
			response.Error(w, http.StatusBadRequest, response.CodeVerificationFailed, "Verification code is invalid or has expired.")
			return
		}
		response.Internal(w, r, h.logger, err)
		return
	}

	response.JSON(w, http.StatusOK, "Email verified.", nil)
}

// HandleCheckEmail handles GET /api/auth/check-email?email=...
func (h *AuthHandler) HandleCheckEmail(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if err := h.validate.Var(email, "required,email"); err != nil {
		response.Error(w, http.StatusBadRequest, response.CodeValidationFailed, "email must be a valid email address")
		return
	}

	if err := h.authService.CheckEmail(r.Context(), email); err != nil {
		if errors.Is(err, auth.ErrEmailTaken) {
			response.Error(w, http.StatusConflict, response.CodeDuplicated, "Email is already in use.")
			return
		}
		response.Internal(w, r, h.logger, err)
		return
	}

	response.JSON(w, http.StatusOK, "Email is available.", nil)
}
