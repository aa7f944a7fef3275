package handlers

import (
	"eventflow/services"

	"github.com/gofiber/fiber/v2"
)

func SetupAttendanceRoutes(app *fiber.App, attendanceService *services.AttendanceService) {
	att := app.Group("/attendance")

	att.Get("/", func(c *fiber.Ctx) error {
		list, err := attendanceService.List(c.UserContext())
		if err != nil {
			return fail(c, "failed to list attendance", err)
		}
		return c.JSON(list)
	})

	att.Post("/", func(c *fiber.Ctx) error {
		var req struct {
			Name       string  `json:"name"`
			TicketName *string `json:"ticket_name"`
		}
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, err)
		}
		a, err := attendanceService.Add(c.UserContext(), req.Name, req.TicketName)
		if err != nil {
			return fail(c, "failed to add attendee", err)
		}
		return c.Status(fiber.StatusCreated).JSON(a)
	})

	// Guests check themselves in by typing their name.
	att.Post("/checkin", func(c *fiber.Ctx) error {
		var req struct {
			Name string `json:"name"`
		}
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, err)
		}
		a, err := attendanceService.MarkPresentByName(c.UserContext(), req.Name)
		if err != nil {
			return fail(c, "failed to check in", err)
		}
		return c.JSON(a)
	})

	att.Post("/reset", func(c *fiber.Ctx) error {
		if err := attendanceService.Reset(c.UserContext()); err != nil {
			return fail(c, "failed to reset attendance", err)
		}
		return c.JSON(fiber.Map{"message": "attendance reset"})
	})

	att.Delete("/", func(c *fiber.Ctx) error {
		if err := attendanceService.Clear(c.UserContext()); err != nil {
			return fail(c, "failed to clear attendance", err)
		}
		return c.JSON(fiber.Map{"message": "attendance cleared"})
	})

	att.Post("/:id/present", func(c *fiber.Ctx) error {
		if err := attendanceService.MarkPresent(c.UserContext(), c.Params("id")); err != nil {
			return fail(c, "failed to mark attendance", err)
		}
		return c.JSON(fiber.Map{"message": "marked present"})
	})

	att.Patch("/:id", func(c *fiber.Ctx) error {
		var req struct {
			Remark     *string `json:"remark"`
			TicketName *string `json:"ticket_name"`
		}
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, err)
		}
		id := c.Params("id")
		if req.Remark != nil {
			if err := attendanceService.UpdateRemark(c.UserContext(), id, req.Remark); err != nil {
				return fail(c, "failed to update remark", err)
			}
		}
		if req.TicketName != nil {
			if err := attendanceService.UpdateTicketName(c.UserContext(), id, req.TicketName); err != nil {
				return fail(c, "failed to update ticket name", err)
			}
		}
		return c.JSON(fiber.Map{"message": "attendee updated"})
	})
}
