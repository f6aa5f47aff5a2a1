package games

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"

	dispatchlog "github.com/kilianp07/gridmarket/core/dispatch/logging"
	"github.com/kilianp07/gridmarket/core/lifecycle"
	"github.com/kilianp07/gridmarket/core/model"
	"github.com/kilianp07/gridmarket/pkg/export"
)

// Reader is the read side of the game manager.
type Reader interface {
	Game(gameID string) (model.Game, error)
	Games() []model.Game
	Leaderboard(gameID string) (model.Leaderboard, error)
	BiddingStatus(gameID string) ([]lifecycle.TeamBidStatus, error)
}

// Options configures the router.
type Options struct {
	// Token, when non-empty, must be sent as "Bearer <token>" on /api routes.
	Token          string
	AllowedOrigins []string
}

// NewRouter exposes games, leaderboards and the round log over HTTP.
func NewRouter(games Reader, store dispatchlog.LogStore, opts Options) http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", Healthz)
	r.Route("/api", func(r chi.Router) {
		r.Use(bearer(opts.Token))
		r.Get("/games", listGames(games))
		r.Get("/games/{id}", getGame(games))
		r.Get("/games/{id}/leaderboard", getLeaderboard(games))
		r.Get("/games/{id}/bidding", getBidding(games))
		r.Get("/games/{id}/rounds", NewRoundLogHandler(store))
	})

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}).Handler(r)
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func bearer(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token != "" && r.Header.Get("Authorization") != "Bearer "+token {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func listGames(games Reader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, games.Games())
	}
}

func getGame(games Reader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g, err := games.Game(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, g)
	}
}

func getLeaderboard(games Reader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lb, err := games.Leaderboard(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, lb)
	}
}

func getBidding(games Reader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := games.BiddingStatus(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, st)
	}
}

// NewRoundLogHandler serves settled rounds of the game named by the {id}
// route parameter. Supported filters are round, team_id, start and end
// (RFC3339); format=csv returns one row per team and round.
func NewRoundLogHandler(store dispatchlog.LogStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := dispatchlog.LogQuery{GameID: chi.URLParam(r, "id")}
		params := r.URL.Query()
		if s := params.Get("start"); s != "" {
			if t, err := time.Parse(time.RFC3339, s); err == nil {
				q.Start = t
			}
		}
		if s := params.Get("end"); s != "" {
			if t, err := time.Parse(time.RFC3339, s); err == nil {
				q.End = t
			}
		}
		if s := params.Get("round"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n < 0 {
				http.Error(w, "invalid round", http.StatusBadRequest)
				return
			}
			q.Round = &n
		}
		q.TeamID = params.Get("team_id")

		records, err := store.Query(r.Context(), q)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if params.Get("format") == "csv" {
			w.Header().Set("Content-Type", "text/csv")
			if err := export.WriteCSV(w, records); err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
			}
			return
		}
		if records == nil {
			records = []dispatchlog.LogRecord{}
		}
		w.Header().Set("Content-Type", "application/json")
		if err := export.WriteJSON(w, records); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, model.ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
