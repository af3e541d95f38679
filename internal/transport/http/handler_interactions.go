package httptransport

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"archipelalog/internal/commands"
	"archipelalog/internal/discord"

	"github.com/rs/zerolog/log"
)

const maxInteractionBytes = 1 << 20

type Dispatcher interface {
	Dispatch(ctx context.Context, inv commands.Invocation) commands.Response
}

// Responder delivers the deferred answer of an interaction.
type Responder interface {
	EditOriginalResponse(ctx context.Context, interactionToken, content string) error
}

// UserCache is told about every caller so later name lookups skip the API.
type UserCache interface {
	RememberUser(u discord.User)
}

// InteractionHandler serves the Discord interactions endpoint. Commands run
// after the deferred acknowledgement, on their own goroutine.
type InteractionHandler struct {
	key        ed25519.PublicKey
	dispatcher Dispatcher
	responder  Responder
	users      UserCache
	timeout    time.Duration

	wg sync.WaitGroup
}

func NewInteractionHandler(key ed25519.PublicKey, dispatcher Dispatcher, responder Responder, users UserCache, timeout time.Duration) *InteractionHandler {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &InteractionHandler{
		key:        key,
		dispatcher: dispatcher,
		responder:  responder,
		users:      users,
		timeout:    timeout,
	}
}

func (h *InteractionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	metricInteractionsTotal.Add(1)
	body, err := io.ReadAll(io.LimitReader(r.Body, maxInteractionBytes))
	if err != nil {
		WriteHTTPError(w, http.StatusBadRequest, "invalid_body")
		return
	}
	sig := r.Header.Get("X-Signature-Ed25519")
	ts := r.Header.Get("X-Signature-Timestamp")
	if !discord.VerifySignature(h.key, sig, ts, body) {
		metricInteractionsRejectedTotal.Add(1)
		WriteHTTPError(w, http.StatusUnauthorized, "invalid_signature")
		return
	}

	var in discord.Interaction
	if err := json.Unmarshal(body, &in); err != nil {
		WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	switch in.Type {
	case discord.InteractionPing:
		WriteJSON(w, http.StatusOK, discord.InteractionResponse{Type: discord.ResponsePong})
	case discord.InteractionApplicationCommand:
		inv := commands.FromInteraction(in)
		if h.users != nil {
			h.users.RememberUser(inv.Caller)
			for _, u := range inv.Users {
				h.users.RememberUser(u)
			}
		}
		WriteJSON(w, http.StatusOK, discord.InteractionResponse{Type: discord.ResponseDeferredChannelMessage})
		h.wg.Add(1)
		go h.run(inv)
	default:
		WriteHTTPError(w, http.StatusBadRequest, "unsupported_interaction")
	}
}

func (h *InteractionHandler) run(inv commands.Invocation) {
	defer h.wg.Done()
	metricCommandsInFlight.Add(1)
	defer metricCommandsInFlight.Add(-1)

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	metricCommandsDispatchedTotal.Add(1)
	resp := h.dispatcher.Dispatch(ctx, inv)
	if resp.Error {
		metricCommandsFailedTotal.Add(1)
	}
	if err := h.responder.EditOriginalResponse(ctx, inv.Token, resp.Text); err != nil {
		metricCommandReplyErrorsTotal.Add(1)
		log.Error().Err(err).Str("command", inv.Name).Str("guild_id", inv.GuildID).Str("channel_id", inv.ChannelID).Msg("edit interaction response failed")
	}
}

// Wait blocks until every command started so far has replied.
func (h *InteractionHandler) Wait() {
	h.wg.Wait()
}
