package handlers

import (
	"eventflow/services"

	"github.com/gofiber/fiber/v2"
)

func SetupTournamentRoutes(app *fiber.App, tournamentService *services.TournamentService) {
	app.Get("/tournaments", func(c *fiber.Ctx) error {
		list, err := tournamentService.List(c.UserContext())
		if err != nil {
			return fail(c, "failed to list tournaments", err)
		}
		return c.JSON(list)
	})

	app.Post("/tournaments", func(c *fiber.Ctx) error {
		var req struct {
			Name           string  `json:"name"`
			BackgroundPath *string `json:"background_path"`
			Mode           string  `json:"mode"`
		}
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, err)
		}
		t, err := tournamentService.Create(c.UserContext(), req.Name, req.BackgroundPath, req.Mode)
		if err != nil {
			return fail(c, "failed to create tournament", err)
		}
		return c.Status(fiber.StatusCreated).JSON(t)
	})

	app.Get("/tournaments/:id", func(c *fiber.Ctx) error {
		t, err := tournamentService.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			return fail(c, "failed to get tournament", err)
		}
		return c.JSON(t)
	})

	app.Delete("/tournaments/:id", func(c *fiber.Ctx) error {
		if err := tournamentService.Delete(c.UserContext(), c.Params("id")); err != nil {
			return fail(c, "failed to delete tournament", err)
		}
		return c.JSON(fiber.Map{"message": "tournament deleted"})
	})

	// Mode-tagged snapshot, same payload the stream sends on connect.
	app.Get("/tournaments/:id/state", func(c *fiber.Ctx) error {
		state, err := tournamentService.State(c.UserContext(), c.Params("id"))
		if err != nil {
			return fail(c, "failed to load state", err)
		}
		return c.JSON(state)
	})
}
