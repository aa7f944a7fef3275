package handlers

import (
	"eventflow/services"

	"github.com/gofiber/fiber/v2"
)

func SetupMediaRoutes(app *fiber.App, mediaService *services.MediaService) {
	app.Get("/media/:kind", func(c *fiber.Ctx) error {
		assets, err := mediaService.List(c.UserContext(), c.Params("kind"))
		if err != nil {
			return fail(c, "failed to list media", err)
		}
		return c.JSON(assets)
	})

	app.Get("/media/:kind/latest", func(c *fiber.Ctx) error {
		asset, err := mediaService.Latest(c.UserContext(), c.Params("kind"))
		if err != nil {
			return fail(c, "failed to load media", err)
		}
		return c.JSON(asset)
	})

	app.Post("/media/:kind", func(c *fiber.Ctx) error {
		file, err := c.FormFile("file")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "file is required",
				"cause": err.Error(),
			})
		}
		asset, err := mediaService.Upload(c.UserContext(), c.Params("kind"), c.FormValue("name"), file)
		if err != nil {
			return fail(c, "failed to upload media", err)
		}
		return c.Status(fiber.StatusCreated).JSON(asset)
	})

	app.Delete("/media/:kind", func(c *fiber.Ctx) error {
		n, err := mediaService.DeleteAll(c.UserContext(), c.Params("kind"))
		if err != nil {
			return fail(c, "failed to delete media", err)
		}
		return c.JSON(fiber.Map{"deleted": n})
	})

	app.Delete("/media/:kind/:id", func(c *fiber.Ctx) error {
		if err := mediaService.Delete(c.UserContext(), c.Params("id")); err != nil {
			return fail(c, "failed to delete media", err)
		}
		return c.JSON(fiber.Map{"message": "media deleted"})
	})

	app.Get("/links", func(c *fiber.Ctx) error {
		links, err := mediaService.ListLinks(c.UserContext())
		if err != nil {
			return fail(c, "failed to list links", err)
		}
		return c.JSON(links)
	})

	app.Post("/links", func(c *fiber.Ctx) error {
		var req struct {
			Title          string  `json:"title"`
			URL            string  `json:"url"`
			IconPath       *string `json:"icon_path"`
			BackgroundPath *string `json:"background_path"`
		}
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, err)
		}
		link, err := mediaService.AddLink(c.UserContext(), req.Title, req.URL, req.IconPath, req.BackgroundPath)
		if err != nil {
			return fail(c, "failed to add link", err)
		}
		return c.Status(fiber.StatusCreated).JSON(link)
	})

	app.Delete("/links/:id", func(c *fiber.Ctx) error {
		if err := mediaService.DeleteLink(c.UserContext(), c.Params("id")); err != nil {
			return fail(c, "failed to delete link", err)
		}
		return c.JSON(fiber.Map{"message": "link deleted"})
	})

	app.Get("/settings/:key", func(c *fiber.Ctx) error {
		setting, err := mediaService.GetSetting(c.UserContext(), c.Params("key"))
		if err != nil {
			return fail(c, "failed to load setting", err)
		}
		return c.JSON(setting)
	})

	app.Put("/settings/:key", func(c *fiber.Ctx) error {
		var req struct {
			Value string `json:"value"`
		}
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, err)
		}
		setting, err := mediaService.SetSetting(c.UserContext(), c.Params("key"), req.Value)
		if err != nil {
			return fail(c, "failed to save setting", err)
		}
		return c.JSON(setting)
	})

	app.Get("/backgrounds", func(c *fiber.Ctx) error {
		pages, err := mediaService.PageBackgrounds(c.UserContext())
		if err != nil {
			return fail(c, "failed to load page backgrounds", err)
		}
		return c.JSON(pages)
	})

	app.Put("/backgrounds/:page", func(c *fiber.Ctx) error {
		var req struct {
			BackgroundID *string `json:"background_id"`
		}
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, err)
		}
		if err := mediaService.SetPageBackground(c.UserContext(), c.Params("page"), req.BackgroundID); err != nil {
			return fail(c, "failed to set page background", err)
		}
		return c.JSON(fiber.Map{"message": "background updated"})
	})
}
