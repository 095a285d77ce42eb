/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package broadcast

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

const keepAlive = 15 * time.Second

// ServeEvents streams channel's envelopes as server-sent events until the
// request context ends or the subscriber is dropped.
func (h *Hub) ServeEvents(w http.ResponseWriter, r *http.Request, channel string) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return errors.New("streaming unsupported")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sub := h.Subscribe(channel)
	defer h.Unsubscribe(sub)

	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return nil
		case env, ok := <-sub.C():
			if !ok {
				return nil
			}
			if _, err := fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", env.Seq, env.Event, env.Data); err != nil {
				return err
			}
			flusher.Flush()
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return err
			}
			flusher.Flush()
		}
	}
}
