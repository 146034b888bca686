package main

import (
	"log/slog"
	"net/http"

	"github.com/AdamBeresnev/cricket-live/internal/authz"
	"github.com/AdamBeresnev/cricket-live/internal/httputil"
	"github.com/AdamBeresnev/cricket-live/internal/middleware"
	"github.com/AdamBeresnev/cricket-live/internal/realtime"
	"github.com/AdamBeresnev/cricket-live/internal/service"
	"github.com/AdamBeresnev/cricket-live/internal/store"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jmoiron/sqlx"
)

type application struct {
	logger *slog.Logger

	users       *store.UserStore
	profiles    *service.UserService
	rosters     *service.RosterService
	matches     *service.MatchService
	innings     *service.InningsService
	deliveries  *service.DeliveryService
	finalizer   *service.FinalizeService
	live        *service.LiveScoreService
	tournaments *service.BracketService

	// hub is nil when realtime updates are disabled.
	hub            *realtime.Hub
	jwtSecret      string
	allowedOrigins []string
}

func newApplication(database *sqlx.DB, notifier realtime.Notifier, archiver service.Archiver, logger *slog.Logger) *application {
	matchStore := store.NewMatchStore(database)
	rosterStore := store.NewRosterStore(database)
	tournamentStore := store.NewTournamentStore(database)
	policy := authz.NewPolicy(rosterStore)

	userStore := store.NewUserStore(database)
	finalizer := service.NewFinalizeService(database, matchStore, rosterStore, tournamentStore, policy, notifier, archiver, logger)
	return &application{
		logger:      logger,
		users:       userStore,
		profiles:    service.NewUserService(userStore),
		rosters:     service.NewRosterService(database, rosterStore),
		matches:     service.NewMatchService(database, matchStore, rosterStore),
		innings:     service.NewInningsService(database, matchStore, policy, notifier, logger),
		deliveries:  service.NewDeliveryService(database, matchStore, rosterStore, policy, finalizer, notifier, logger),
		finalizer:   finalizer,
		live:        service.NewLiveScoreService(database, matchStore, rosterStore),
		tournaments: service.NewBracketService(database, tournamentStore, matchStore, rosterStore),
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Viewers are anonymous and read-only.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// pathID parses a uuid URL parameter, writing a 400 when it is malformed.
func pathID(w http.ResponseWriter, r *http.Request, key string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, key))
	if err != nil {
		httputil.BadRequest(w, "Invalid "+key, err)
		return uuid.Nil, false
	}
	return id, true
}

func actorID(r *http.Request) uuid.UUID {
	id, _ := middleware.GetUserIDFromContext(r.Context())
	return id
}

func newRouter(app *application) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: app.allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/matches/{id}/live", func(w http.ResponseWriter, r *http.Request) {
		matchID, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		view, err := app.live.ViewerView(r.Context(), matchID)
		if err != nil {
			httputil.ServiceError(w, "Failed to build live score", err, "match_id", matchID)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, view)
	})

	r.Get("/teams/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		roster, err := app.rosters.GetRoster(r.Context(), id)
		if err != nil {
			httputil.ServiceError(w, "Failed to get team", err, "team_id", id)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, roster)
	})

	r.Get("/players/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		player, err := app.rosters.GetPlayer(r.Context(), id)
		if err != nil {
			httputil.ServiceError(w, "Failed to get player", err, "player_id", id)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, player)
	})

	r.Get("/tournaments/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		data, err := app.tournaments.GetTournamentData(r.Context(), id)
		if err != nil {
			httputil.ServiceError(w, "Failed to get tournament", err, "tournament_id", id)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, data)
	})

	r.Get("/tournaments/{id}/standings", func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		standings, err := app.tournaments.Standings(r.Context(), id)
		if err != nil {
			httputil.ServiceError(w, "Failed to get standings", err, "tournament_id", id)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, standings)
	})

	r.Get("/ws/matches/{matchID}", func(w http.ResponseWriter, r *http.Request) {
		if app.hub == nil {
			httputil.NotFound(w, "Realtime updates are disabled", nil)
			return
		}
		matchID, ok := pathID(w, r, "matchID")
		if !ok {
			return
		}
		if _, err := app.matches.GetMatch(r.Context(), matchID); err != nil {
			httputil.ServiceError(w, "Failed to open live feed", err, "match_id", matchID)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade has already written the HTTP error.
			app.logger.Warn("websocket upgrade failed", "match_id", matchID, "error", err)
			return
		}
		app.hub.Attach(conn, realtime.RoomFor(matchID))
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(app.jwtSecret, app.users))

		r.Get("/me", func(w http.ResponseWriter, r *http.Request) {
			if user := middleware.GetAuthenticatedUser(r.Context()); user != nil {
				httputil.WriteJSON(w, http.StatusOK, user)
				return
			}
			httputil.WriteJSON(w, http.StatusOK, map[string]uuid.UUID{"id": actorID(r)})
		})

		r.Put("/me", func(w http.ResponseWriter, r *http.Request) {
			var in service.ProfileInput
			if err := httputil.ReadJSON(w, r, &in); err != nil {
				httputil.BadRequest(w, err.Error(), err)
				return
			}
			user, created, err := app.profiles.RegisterProfile(r.Context(), actorID(r), in)
			if err != nil {
				httputil.ServiceError(w, "Failed to register profile", err)
				return
			}
			status := http.StatusOK
			if created {
				status = http.StatusCreated
			}
			httputil.WriteJSON(w, status, user)
		})

		r.Post("/teams", func(w http.ResponseWriter, r *http.Request) {
			var in service.CreateTeamInput
			if err := httputil.ReadJSON(w, r, &in); err != nil {
				httputil.BadRequest(w, err.Error(), err)
				return
			}
			team, err := app.rosters.CreateTeam(r.Context(), actorID(r), in)
			if err != nil {
				httputil.ServiceError(w, "Failed to create team", err)
				return
			}
			httputil.WriteJSON(w, http.StatusCreated, team)
		})

		r.Post("/teams/{id}/players", func(w http.ResponseWriter, r *http.Request) {
			teamID, ok := pathID(w, r, "id")
			if !ok {
				return
			}
			var in service.AddPlayerInput
			if err := httputil.ReadJSON(w, r, &in); err != nil {
				httputil.BadRequest(w, err.Error(), err)
				return
			}
			player, err := app.rosters.AddPlayer(r.Context(), actorID(r), teamID, in)
			if err != nil {
				httputil.ServiceError(w, "Failed to add player", err, "team_id", teamID)
				return
			}
			httputil.WriteJSON(w, http.StatusCreated, player)
		})

		r.Post("/matches", func(w http.ResponseWriter, r *http.Request) {
			var in service.ScheduleMatchInput
			if err := httputil.ReadJSON(w, r, &in); err != nil {
				httputil.BadRequest(w, err.Error(), err)
				return
			}
			match, err := app.matches.ScheduleMatch(r.Context(), actorID(r), in)
			if err != nil {
				httputil.ServiceError(w, "Failed to schedule match", err)
				return
			}
			httputil.WriteJSON(w, http.StatusCreated, match)
		})

		r.Get("/matches/{id}/scorer", func(w http.ResponseWriter, r *http.Request) {
			matchID, ok := pathID(w, r, "id")
			if !ok {
				return
			}
			view, err := app.live.ScorerView(r.Context(), matchID)
			if err != nil {
				httputil.ServiceError(w, "Failed to build scorer view", err, "match_id", matchID)
				return
			}
			httputil.WriteJSON(w, http.StatusOK, view)
		})

		r.Post("/matches/{id}/innings", func(w http.ResponseWriter, r *http.Request) {
			matchID, ok := pathID(w, r, "id")
			if !ok {
				return
			}
			var in service.StartInningsInput
			if err := httputil.ReadJSON(w, r, &in); err != nil {
				httputil.BadRequest(w, err.Error(), err)
				return
			}
			in.MatchID = matchID
			innings, err := app.innings.StartInnings(r.Context(), actorID(r), in)
			if err != nil {
				httputil.ServiceError(w, "Failed to start innings", err, "match_id", matchID)
				return
			}
			httputil.WriteJSON(w, http.StatusCreated, innings)
		})

		r.Post("/innings/{id}/end", func(w http.ResponseWriter, r *http.Request) {
			inningsID, ok := pathID(w, r, "id")
			if !ok {
				return
			}
			res, err := app.innings.EndInnings(r.Context(), actorID(r), inningsID)
			if err != nil {
				httputil.ServiceError(w, "Failed to end innings", err, "innings_id", inningsID)
				return
			}
			httputil.WriteJSON(w, http.StatusOK, res)
		})

		r.Post("/matches/{id}/deliveries", func(w http.ResponseWriter, r *http.Request) {
			matchID, ok := pathID(w, r, "id")
			if !ok {
				return
			}
			var in service.DeliveryInput
			if err := httputil.ReadJSON(w, r, &in); err != nil {
				httputil.BadRequest(w, err.Error(), err)
				return
			}
			in.MatchID = matchID
			res, err := app.deliveries.RecordDelivery(r.Context(), actorID(r), in)
			if err != nil {
				httputil.ServiceError(w, "Failed to record delivery", err, "match_id", matchID)
				return
			}
			httputil.WriteJSON(w, http.StatusCreated, res)
		})

		r.Delete("/matches/{id}/innings/{inningsID}/deliveries/last", func(w http.ResponseWriter, r *http.Request) {
			matchID, ok := pathID(w, r, "id")
			if !ok {
				return
			}
			inningsID, ok := pathID(w, r, "inningsID")
			if !ok {
				return
			}
			innings, err := app.deliveries.UndoLastDelivery(r.Context(), actorID(r), matchID, inningsID)
			if err != nil {
				httputil.ServiceError(w, "Failed to undo delivery", err, "match_id", matchID)
				return
			}
			httputil.WriteJSON(w, http.StatusOK, innings)
		})

		r.Put("/matches/{id}/innings/{inningsID}/players", func(w http.ResponseWriter, r *http.Request) {
			matchID, ok := pathID(w, r, "id")
			if !ok {
				return
			}
			inningsID, ok := pathID(w, r, "inningsID")
			if !ok {
				return
			}
			var in service.CurrentPlayersInput
			if err := httputil.ReadJSON(w, r, &in); err != nil {
				httputil.BadRequest(w, err.Error(), err)
				return
			}
			innings, err := app.deliveries.SetCurrentPlayers(r.Context(), actorID(r), matchID, inningsID, in)
			if err != nil {
				httputil.ServiceError(w, "Failed to set current players", err, "match_id", matchID)
				return
			}
			httputil.WriteJSON(w, http.StatusOK, innings)
		})

		r.Post("/matches/{id}/finalize", func(w http.ResponseWriter, r *http.Request) {
			matchID, ok := pathID(w, r, "id")
			if !ok {
				return
			}
			result, err := app.finalizer.FinalizeMatch(r.Context(), actorID(r), matchID)
			if err != nil {
				httputil.ServiceError(w, "Failed to finalize match", err, "match_id", matchID)
				return
			}
			httputil.WriteJSON(w, http.StatusOK, result)
		})

		r.Post("/tournaments", func(w http.ResponseWriter, r *http.Request) {
			var in service.CreateTournamentInput
			if err := httputil.ReadJSON(w, r, &in); err != nil {
				httputil.BadRequest(w, err.Error(), err)
				return
			}
			data, err := app.tournaments.CreateTournament(r.Context(), actorID(r), in)
			if err != nil {
				httputil.ServiceError(w, "Failed to create tournament", err)
				return
			}
			httputil.WriteJSON(w, http.StatusCreated, data)
		})

		r.Post("/tournaments/{id}/bracket", func(w http.ResponseWriter, r *http.Request) {
			id, ok := pathID(w, r, "id")
			if !ok {
				return
			}
			nodes, err := app.tournaments.GenerateKnockout(r.Context(), actorID(r), id)
			if err != nil {
				httputil.ServiceError(w, "Failed to generate bracket", err, "tournament_id", id)
				return
			}
			httputil.WriteJSON(w, http.StatusCreated, nodes)
		})

		r.Put("/tournament-teams/{id}/team", func(w http.ResponseWriter, r *http.Request) {
			id, ok := pathID(w, r, "id")
			if !ok {
				return
			}
			var in service.BindTeamInput
			if err := httputil.ReadJSON(w, r, &in); err != nil {
				httputil.BadRequest(w, err.Error(), err)
				return
			}
			entrant, err := app.tournaments.BindTournamentTeam(r.Context(), actorID(r), id, in)
			if err != nil {
				httputil.ServiceError(w, "Failed to bind tournament team", err, "tournament_team_id", id)
				return
			}
			httputil.WriteJSON(w, http.StatusOK, entrant)
		})

		r.Post("/bracket-nodes/{id}/start", func(w http.ResponseWriter, r *http.Request) {
			nodeID, ok := pathID(w, r, "id")
			if !ok {
				return
			}
			var in service.StartNodeInput
			if err := httputil.ReadJSON(w, r, &in); err != nil {
				httputil.BadRequest(w, err.Error(), err)
				return
			}
			match, err := app.tournaments.StartNode(r.Context(), actorID(r), nodeID, in)
			if err != nil {
				httputil.ServiceError(w, "Failed to start bracket match", err, "node_id", nodeID)
				return
			}
			httputil.WriteJSON(w, http.StatusCreated, match)
		})
	})

	return r
}
