package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v3"
)

// serviceError maps the error-message conventions of the service layer onto
// HTTP statuses.
func serviceError(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "badrequest"):
		return fiber.NewError(fiber.StatusBadRequest, strings.TrimSpace(strings.TrimPrefix(msg, "badrequest:")))
	case strings.Contains(msg, "not found"):
		return fiber.NewError(fiber.StatusNotFound, msg)
	case strings.Contains(msg, "unauthorized"):
		return fiber.NewError(fiber.StatusUnauthorized, msg)
	default:
		return fiber.NewError(fiber.StatusInternalServerError, msg)
	}
}
