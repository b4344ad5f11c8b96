package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// lobbyNotifier lets the REST layer push lobby updates without knowing
// about sockets; the hub satisfies it when one is wired.
type lobbyNotifier interface {
	BroadcastLobby()
}

// routerHandlers holds the handler dependencies. Used by both the
// standalone router (for tests) and the full server.
type routerHandlers struct {
	coordinator *Coordinator
	lobby       lobbyNotifier
}

// GET /api/games
func (h *routerHandlers) handleListGames(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"games":       h.coordinator.Summaries(),
		"serverNowMs": h.coordinator.NowMs(),
	})
}

// POST /api/games
func (h *routerHandlers) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	var body struct {
		HomeName string `json:"homeName"`
		AwayName string `json:"awayName"`
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	view, err := h.coordinator.CreateGame(body.HomeName, body.AwayName)
	if err != nil {
		if errors.Is(err, ErrGameLimit) {
			writeError(w, http.StatusServiceUnavailable, "game limit reached")
			return
		}
		writeError(w, http.StatusInternalServerError, "could not create game")
		return
	}
	if h.lobby != nil {
		h.lobby.BroadcastLobby()
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"id":          view.State.ID,
		"game":        view,
		"serverNowMs": h.coordinator.NowMs(),
	})
}

// GET /api/games/{id}
func (h *routerHandlers) handleGetGame(w http.ResponseWriter, r *http.Request) {
	gameID := chi.URLParam(r, "id")
	view, err := h.coordinator.View(gameID)
	if err != nil {
		writeError(w, http.StatusNotFound, "no such game")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"game":        view,
		"serverNowMs": h.coordinator.NowMs(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
