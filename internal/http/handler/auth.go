package handler

import (
	"github.com/gofiber/fiber/v2"

	"docshare/internal/service"
)

type registerRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates an account.
//
// @Summary Register a new user
// @Tags auth
// @Accept json
// @Produce json
// @Param body body registerRequest true "registration"
// @Success 201 {object} model.User
// @Router /auth/register [post]
func Register(authSvc service.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req registerRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "request body is not valid JSON")
		}

		user, err := authSvc.Register(c.UserContext(), req.Email, req.Password, req.DisplayName)
		if err != nil {
			return writeAppError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(user)
	}
}

// Login verifies credentials and returns a bearer token plus the user.
//
// @Summary Log in
// @Tags auth
// @Accept json
// @Produce json
// @Param body body loginRequest true "credentials"
// @Success 200 {object} map[string]any
// @Router /auth/login [post]
func Login(authSvc service.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req loginRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "request body is not valid JSON")
		}

		tok, user, err := authSvc.Login(c.UserContext(), req.Email, req.Password)
		if err != nil {
			return writeAppError(c, err)
		}
		return c.JSON(fiber.Map{"token": tok, "user": user})
	}
}
