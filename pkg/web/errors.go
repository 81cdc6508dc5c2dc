package web

import (
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func unauthorized(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(401).
		WithInstance(c.Path()).
		WithType("unauthorized").
		WithDetail(detail)

	return c.Status(fiber.StatusUnauthorized).JSON(problem)
}

func forbidden(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(403).
		WithInstance(c.Path()).
		WithType("forbidden").
		WithDetail(detail)

	return c.Status(fiber.StatusForbidden).JSON(problem)
}

func notFound(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(404).
		WithInstance(c.Path()).
		WithType("not_found").
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// functionSuccess is the response envelope of the function-style endpoints.
func functionSuccess(c fiber.Ctx, action string, result any) error {
	return c.JSON(fiber.Map{
		"success":      true,
		"action":       action,
		"result":       result,
		"processed_at": time.Now().UTC().Format(time.RFC3339),
	})
}

// functionError is the 500 envelope of the function-style endpoints.
func functionError(c fiber.Ctx, err error) error {
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error":     err.Error(),
		"stack":     errorStack(err),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func errorStack(err error) string {
	stack := ""

	for err != nil {
		if stack != "" {
			stack += "\n"
		}

		stack += err.Error()

		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}

		err = unwrapper.Unwrap()
	}

	return stack
}
