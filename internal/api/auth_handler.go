package api

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"shop-service/internal/service"
)

type AuthHandler struct {
	userService *service.UserService
}

// NewAuthHandler creates a new instance of AuthHandler
func NewAuthHandler(userService *service.UserService) *AuthHandler {
	return &AuthHandler{userService: userService}
}

type registerRequest struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type profileRequest struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
}

// Register creates a user --> POST /api/auth/register
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := bindAndValidate(c, &req, "Please provide all required fields"); err != nil {
		return err
	}

	resp, err := h.userService.Register(c.Request().Context(), req.Username, req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, resp)
}

// Login issues a token --> POST /api/auth/login
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bindAndValidate(c, &req, "Please provide email and password"); err != nil {
		return err
	}

	resp, err := h.userService.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

// Profile --> GET /api/auth/profile
func (h *AuthHandler) Profile(c echo.Context) error {
	user, err := h.userService.Profile(c.Request().Context(), currentUserID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// UpdateProfile --> PUT /api/auth/profile
func (h *AuthHandler) UpdateProfile(c echo.Context) error {
	var req profileRequest
	if err := bindAndValidate(c, &req, "Please provide username and email"); err != nil {
		return err
	}

	resp, err := h.userService.UpdateProfile(c.Request().Context(), currentUserID(c), req.Username, req.Email)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

// DeleteProfile --> DELETE /api/auth/profile
func (h *AuthHandler) DeleteProfile(c echo.Context) error {
	if err := h.userService.DeleteProfile(c.Request().Context(), currentUserID(c)); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "User deleted successfully"})
}

const invalidEmailMessage = "Please provide a valid email"

// bindAndValidate decodes the body into req. Missing fields are reported as
// 400 with msg, a malformed email as 400 invalidEmailMessage.
func bindAndValidate(c echo.Context, req interface{}, msg string) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload").SetInternal(err)
	}
	if err := c.Validate(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				if fe.Tag() == "required" {
					return echo.NewHTTPError(http.StatusBadRequest, msg).SetInternal(err)
				}
			}
			for _, fe := range verrs {
				if fe.Tag() == "email" {
					return echo.NewHTTPError(http.StatusBadRequest, invalidEmailMessage).SetInternal(err)
				}
			}
		}
		return echo.NewHTTPError(http.StatusBadRequest, msg).SetInternal(err)
	}
	return nil
}
