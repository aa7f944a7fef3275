// handlers/progression_routes.go
package handlers

import (
	"errors"

	"eventflow/models"
	"eventflow/services"

	"github.com/gofiber/fiber/v2"
)

// SetupBracketRoutes exposes the elimination-mode operations.
func SetupBracketRoutes(app *fiber.App, bracketService *services.BracketService) {
	app.Get("/participants", func(c *fiber.Ctx) error {
		list, err := bracketService.ListParticipants(c.UserContext())
		if err != nil {
			return fail(c, "failed to list participants", err)
		}
		return c.JSON(list)
	})

	app.Post("/participants", func(c *fiber.Ctx) error {
		var req struct {
			Name string `json:"name"`
		}
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, err)
		}
		p, err := bracketService.AddParticipant(c.UserContext(), req.Name)
		if err != nil {
			return fail(c, "failed to add participant", err)
		}
		return c.Status(fiber.StatusCreated).JSON(p)
	})

	app.Delete("/participants/:id", func(c *fiber.Ctx) error {
		if err := bracketService.DeleteParticipant(c.UserContext(), c.Params("id")); err != nil {
			return fail(c, "failed to delete participant", err)
		}
		return c.JSON(fiber.Map{"message": "participant deleted"})
	})

	app.Get("/tournaments/:id/bracket", func(c *fiber.Ctx) error {
		view, err := bracketService.View(c.UserContext(), c.Params("id"))
		if errors.Is(err, services.ErrNoBracket) {
			return c.JSON(fiber.Map{"empty": true})
		}
		if err != nil {
			return fail(c, "failed to build bracket", err)
		}
		return c.JSON(view)
	})

	app.Post("/tournaments/:id/bracket/generate", func(c *fiber.Ctx) error {
		var req struct {
			Entrants []string `json:"entrants"`
		}
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, err)
		}
		view, err := bracketService.Generate(c.UserContext(), c.Params("id"), req.Entrants)
		if err != nil {
			return fail(c, "failed to generate bracket", err)
		}
		return c.Status(fiber.StatusCreated).JSON(view)
	})

	app.Get("/tournaments/:id/matches", func(c *fiber.Ctx) error {
		rows, err := bracketService.ListMatches(c.UserContext(), c.Params("id"))
		if err != nil {
			return fail(c, "failed to list matches", err)
		}
		return c.JSON(rows)
	})

	app.Post("/tournaments/:id/matches", func(c *fiber.Ctx) error {
		var spec services.MatchSpec
		if err := c.BodyParser(&spec); err != nil {
			return badRequest(c, err)
		}
		spec.TournamentID = c.Params("id")
		match, err := bracketService.CreateMatch(c.UserContext(), spec)
		if err != nil {
			return fail(c, "failed to create match", err)
		}
		return c.Status(fiber.StatusCreated).JSON(match)
	})

	app.Delete("/tournaments/:id/matches", func(c *fiber.Ctx) error {
		if err := bracketService.ClearMatches(c.UserContext(), c.Params("id")); err != nil {
			return fail(c, "failed to clear matches", err)
		}
		return c.JSON(fiber.Map{"message": "matches cleared"})
	})

	app.Post("/matches/:id/result", func(c *fiber.Ctx) error {
		var req struct {
			WinnerID string `json:"winner_id"`
			Score1   *int   `json:"score1"`
			Score2   *int   `json:"score2"`
		}
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, err)
		}
		view, err := bracketService.RecordResult(c.UserContext(), c.Params("id"), req.WinnerID, req.Score1, req.Score2)
		if err != nil {
			return fail(c, "failed to record result", err)
		}
		return c.JSON(view)
	})

	app.Put("/matches/:id/slots/:slot", func(c *fiber.Ctx) error {
		slot, err := c.ParamsInt("slot")
		if err != nil {
			return fail(c, "invalid slot", services.ErrInvalidSlot)
		}
		var req struct {
			ParticipantID *string `json:"participant_id"`
		}
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, err)
		}
		view, err := bracketService.AssignParticipant(c.UserContext(), c.Params("id"), slot, req.ParticipantID)
		if err != nil {
			return fail(c, "failed to assign participant", err)
		}
		return c.JSON(view)
	})
}

// SetupPerformanceRoutes exposes the sequential-mode operations. Every
// mutation answers with the full snapshot.
func SetupPerformanceRoutes(app *fiber.App, performanceService *services.PerformanceService) {
	perf := app.Group("/tournaments/:id/performance")

	reply := func(c *fiber.Ctx, msg string, snap *services.PerformanceSnapshot, err error) error {
		if err != nil {
			return fail(c, msg, err)
		}
		return c.JSON(snap)
	}

	perf.Get("/", func(c *fiber.Ctx) error {
		snap, err := performanceService.Get(c.UserContext(), c.Params("id"))
		return reply(c, "failed to load performance", snap, err)
	})

	perf.Put("/roster", func(c *fiber.Ctx) error {
		var req struct {
			Names []string `json:"names"`
		}
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, err)
		}
		snap, err := performanceService.ReplaceRoster(c.UserContext(), c.Params("id"), req.Names)
		return reply(c, "failed to replace roster", snap, err)
	})

	perf.Post("/performers", func(c *fiber.Ctx) error {
		var req struct {
			Name string `json:"name"`
		}
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, err)
		}
		snap, err := performanceService.Append(c.UserContext(), c.Params("id"), req.Name)
		return reply(c, "failed to add performer", snap, err)
	})

	perf.Delete("/performers/:performer_id", func(c *fiber.Ctx) error {
		snap, err := performanceService.Remove(c.UserContext(), c.Params("id"), c.Params("performer_id"))
		return reply(c, "failed to remove performer", snap, err)
	})

	perf.Put("/performers/:performer_id/score", func(c *fiber.Ctx) error {
		var req struct {
			Score float64 `json:"score"`
		}
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, err)
		}
		snap, err := performanceService.SetScore(c.UserContext(), c.Params("id"), c.Params("performer_id"), req.Score)
		return reply(c, "failed to set score", snap, err)
	})

	perf.Post("/reorder", func(c *fiber.Ctx) error {
		var req struct {
			From int `json:"from"`
			To   int `json:"to"`
		}
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, err)
		}
		snap, err := performanceService.Reorder(c.UserContext(), c.Params("id"), req.From, req.To)
		return reply(c, "failed to reorder", snap, err)
	})

	perf.Put("/cursor", func(c *fiber.Ctx) error {
		var req struct {
			Index int `json:"index"`
		}
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, err)
		}
		snap, err := performanceService.SetCursor(c.UserContext(), c.Params("id"), req.Index)
		return reply(c, "failed to move cursor", snap, err)
	})

	perf.Put("/winners", func(c *fiber.Ctx) error {
		var req struct {
			PerformerIDs []string `json:"performer_ids"`
		}
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, err)
		}
		snap, err := performanceService.SelectWinners(c.UserContext(), c.Params("id"), req.PerformerIDs)
		return reply(c, "failed to select winners", snap, err)
	})

	perf.Post("/finalize", func(c *fiber.Ctx) error {
		snap, err := performanceService.Finalize(c.UserContext(), c.Params("id"), c.Query("source"))
		return reply(c, "failed to finalize", snap, err)
	})

	perf.Put("/view", func(c *fiber.Ctx) error {
		var req struct {
			View models.View `json:"view"`
		}
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, err)
		}
		snap, err := performanceService.SetView(c.UserContext(), c.Params("id"), req.View)
		return reply(c, "failed to set view", snap, err)
	})

	perf.Delete("/", func(c *fiber.Ctx) error {
		snap, err := performanceService.Clear(c.UserContext(), c.Params("id"))
		return reply(c, "failed to clear performance", snap, err)
	})
}
