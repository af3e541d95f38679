package httptransport

import (
	"context"
	"net/http"

	"archipelalog/internal/bridge"

	"github.com/rs/zerolog/log"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type ChannelLister interface {
	Channels(ctx context.Context) ([]bridge.ChannelStatus, error)
}

type AdminHandlers struct {
	persister Pinger
	channels  ChannelLister
}

func NewAdminHandlers(persister Pinger, channels ChannelLister) *AdminHandlers {
	return &AdminHandlers{persister: persister, channels: channels}
}

func (h *AdminHandlers) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.persister.Ping(r.Context()); err != nil {
			log.Warn().Err(err).Msg("health check failed")
			WriteJSON(w, http.StatusServiceUnavailable, map[string]any{"ok": false, "store": "down"})
			return
		}
		WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "store": "up"})
	}
}

func (h *AdminHandlers) Channels() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := h.channels.Channels(r.Context())
		if err != nil {
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		if items == nil {
			items = []bridge.ChannelStatus{}
		}
		WriteJSON(w, http.StatusOK, map[string]any{"items": items})
	}
}
