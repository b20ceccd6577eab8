package http

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"queenwatch/internal/core"
)

var validate = validator.New()

// validationMiddleware parses and validates request bodies by route
func validationMiddleware(c *fiber.Ctx) error {
	if c.Method() != fiber.MethodPost {
		return c.Next()
	}

	var requestType any
	switch {
	case strings.HasSuffix(c.Path(), "/analyses"):
		requestType = &core.AnalyzeRequest{}
	default:
		return c.Next() // No validation for unknown endpoints
	}

	if err := c.BodyParser(requestType); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(core.ErrorResponse{
			Error:   "invalid request body",
			Code:    core.ErrCodeInvalidRequest,
			Details: err.Error(),
		})
	}

	if err := validate.Struct(requestType); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(core.ErrorResponse{
			Error:   "validation failed",
			Code:    core.ErrCodeInvalidRequest,
			Details: describeValidation(err),
		})
	}

	// Store validated body for handler use
	c.Locals("validatedBody", requestType)
	c.Locals("validated", true)

	return c.Next()
}

func describeValidation(err error) string {
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}

	var details strings.Builder
	for _, e := range errs {
		if details.Len() > 0 {
			details.WriteString("; ")
		}
		switch e.Tag() {
		case "required":
			details.WriteString(fmt.Sprintf("%s is required", e.Field()))
		case "min":
			if e.Type().Kind() == reflect.String {
				details.WriteString(fmt.Sprintf("%s must be at least %s characters", e.Field(), e.Param()))
			} else {
				details.WriteString(fmt.Sprintf("%s must be at least %s", e.Field(), e.Param()))
			}
		case "max":
			if e.Type().Kind() == reflect.String {
				details.WriteString(fmt.Sprintf("%s must be at most %s characters", e.Field(), e.Param()))
			} else {
				details.WriteString(fmt.Sprintf("%s must be at most %s", e.Field(), e.Param()))
			}
		default:
			details.WriteString(fmt.Sprintf("%s failed %s validation", e.Field(), e.Tag()))
		}
	}
	return details.String()
}

func isValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
