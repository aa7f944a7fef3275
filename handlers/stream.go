package handlers

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"

	"eventflow/models"
	"eventflow/services"

	"github.com/gofiber/fiber/v2"
)

// SetupStreamRoutes serves Server-Sent Event streams. A tournament stream
// opens with the current state, then relays every broadcast for it.
func SetupStreamRoutes(app *fiber.App, tournamentService *services.TournamentService, hub *services.Hub) {
	app.Get("/tournaments/:id/stream", func(c *fiber.Ctx) error {
		id := c.Params("id")

		// Subscribe before reading so nothing published in between is lost.
		events, cancel := hub.Subscribe(id)
		state, err := tournamentService.State(c.UserContext(), id)
		if err != nil {
			cancel()
			return fail(c, "failed to load state", err)
		}
		data, err := json.Marshal(state)
		if err != nil {
			cancel()
			return fail(c, "failed to encode state", err)
		}

		name := services.EventBracket
		if state.ProgressionMode() == models.ModeSequential {
			name = services.EventPerformance
		}
		return stream(c, id, &services.Event{Name: name, Data: data}, events, cancel)
	})

	app.Get("/stream", func(c *fiber.Ctx) error {
		events, cancel := hub.Subscribe(services.GlobalTopic)
		return stream(c, services.GlobalTopic, nil, events, cancel)
	})
}

func stream(c *fiber.Ctx, topic string, first *services.Event, events <-chan services.Event, cancel func()) error {
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cancel()
		log.Printf("📡 [SSE] Subscriber joined %s", topic)
		if err := pump(w, first, events); err != nil {
			log.Printf("📡 [SSE] Subscriber left %s: %v", topic, err)
		}
	})
	return nil
}

// pump writes the opening event, then every event until the channel closes
// or a flush fails because the client went away.
func pump(w *bufio.Writer, first *services.Event, events <-chan services.Event) error {
	// Initial keepalive (comment event)
	w.WriteString(":\n\n")
	if first != nil {
		writeEvent(w, *first)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	for ev := range events {
		writeEvent(w, ev)
		if err := w.Flush(); err != nil {
			return err
		}
	}
	return nil
}

func writeEvent(w *bufio.Writer, ev services.Event) {
	if ev.Name == "" {
		w.WriteString(":\n\n")
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Name, ev.Data)
}
