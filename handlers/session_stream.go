package handlers

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"tosslee/middleware"
	"tosslee/services"

	"github.com/gofiber/fiber/v2"
)

const streamInterval = time.Second

// streamSession pushes the session snapshot as server-sent events whenever
// the timer or counters change, and closes after the "ended" event.
func (r GameRoutes) streamSession(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	sessionID := c.Params("id")

	view, err := r.Sessions.Get(userID, sessionID)
	if err != nil {
		return respondError(c, "failed to load session", err)
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no") // nginx

	done := c.Context().Done()
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		ticker := time.NewTicker(streamInterval)
		defer ticker.Stop()

		last := streamKey(view)
		if !writeSessionEvent(w, view) || view.State == "ended" {
			return
		}

		for {
			select {
			case <-ticker.C:
				view, err := r.Sessions.Get(userID, sessionID)
				if err != nil {
					// evicted by the sweeper
					fmt.Fprintf(w, "event: gone\ndata: {}\n\n")
					w.Flush()
					return
				}
				key := streamKey(view)
				if key == last {
					continue
				}
				last = key
				if !writeSessionEvent(w, view) || view.State == "ended" {
					return
				}
			case <-done:
				return
			}
		}
	})
	return nil
}

func streamKey(v services.SessionView) string {
	left := -1
	if v.TimeRemaining != nil {
		left = *v.TimeRemaining
	}
	return fmt.Sprintf("%s/%d/%d", v.State, v.ItemsDecided, left)
}

// writeSessionEvent reports false once the client is gone.
func writeSessionEvent(w *bufio.Writer, v services.SessionView) bool {
	payload, err := json.Marshal(v)
	if err != nil {
		log.Printf("❌ [SSE] Could not encode session %s: %v", v.ID, err)
		return false
	}
	event := "session"
	if v.State == "ended" {
		event = "ended"
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload)
	return w.Flush() == nil
}
