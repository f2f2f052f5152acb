// Package v0 provides the REST API handlers for the Star Wars data service.
package v0

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/holocron-dev/holocron/internal/api/common"
	"github.com/holocron-dev/holocron/internal/importer"
	"github.com/holocron-dev/holocron/internal/logger"
	"github.com/holocron-dev/holocron/internal/models"
	"github.com/holocron-dev/holocron/internal/versions"
)

// MaxPageSize caps the limit query parameter on list endpoints.
const MaxPageSize = 100

// DefaultPageSize is used when list requests omit the limit parameter.
const DefaultPageSize = 20

// Store provides the read and lookup operations the handlers need.
type Store interface {
	GetCharacter(ctx context.Context, id int64) (*models.Character, error)
	ListCharacters(ctx context.Context, skip, limit int) ([]models.Character, error)
	SearchCharactersByName(ctx context.Context, name string) ([]models.Character, error)

	GetFilm(ctx context.Context, id int64) (*models.Film, error)
	ListFilms(ctx context.Context, skip, limit int) ([]models.Film, error)
	SearchFilmsByTitle(ctx context.Context, title string) ([]models.Film, error)

	GetStarship(ctx context.Context, id int64) (*models.Starship, error)
	ListStarships(ctx context.Context, skip, limit int) ([]models.Starship, error)
	SearchStarshipsByName(ctx context.Context, name string) ([]models.Starship, error)
}

// Runner triggers imports from the upstream API.
type Runner interface {
	ImportCharacters(ctx context.Context) (*importer.Stats, error)
	ImportFilms(ctx context.Context) (*importer.Stats, error)
	ImportStarships(ctx context.Context) (*importer.Stats, error)
}

// Routes defines the handlers for the data API with dependency injection
type Routes struct {
	store           Store
	runner          Runner
	defaultPageSize int
}

// RoutesOption configures a Routes instance.
type RoutesOption func(*Routes)

// WithDefaultPageSize overrides the page size used when requests omit limit.
func WithDefaultPageSize(n int) RoutesOption {
	return func(r *Routes) {
		if n > 0 {
			r.defaultPageSize = n
		}
	}
}

// NewRoutes creates a new Routes instance with the provided dependencies
func NewRoutes(store Store, runner Runner, opts ...RoutesOption) *Routes {
	routes := &Routes{
		store:           store,
		runner:          runner,
		defaultPageSize: DefaultPageSize,
	}
	for _, opt := range opts {
		opt(routes)
	}
	return routes
}

// Router creates a new router serving the data API together with the
// service metadata and health endpoints.
func Router(serviceName string, pinger func(ctx context.Context) error, store Store, runner Runner, opts ...RoutesOption) http.Handler {
	routes := NewRoutes(store, runner, opts...)

	r := chi.NewRouter()

	r.Get("/", rootHandler(serviceName))
	r.Get("/health", healthHandler)
	r.Get("/readiness", readinessHandler(pinger))
	r.Get("/version", versionHandler)

	r.Post("/import/characters", routes.importCharacters)
	r.Post("/import/films", routes.importFilms)
	r.Post("/import/starships", routes.importStarships)

	r.Route("/characters", func(r chi.Router) {
		r.Get("/", routes.listCharacters)
		r.Get("/search", routes.searchCharacters)
		r.Get("/{characterID}", routes.getCharacter)
	})

	r.Route("/films", func(r chi.Router) {
		r.Get("/", routes.listFilms)
		r.Get("/search", routes.searchFilms)
		r.Get("/{filmID}", routes.getFilm)
	})

	r.Route("/starships", func(r chi.Router) {
		r.Get("/", routes.listStarships)
		r.Get("/search", routes.searchStarships)
		r.Get("/{starshipID}", routes.getStarship)
	})

	return r
}

// importCharacters handles POST /import/characters. Imports run
// synchronously; the response reports completion, or 502 when the upstream
// could not be read.
func (rr *Routes) importCharacters(w http.ResponseWriter, r *http.Request) {
	if _, err := rr.runner.ImportCharacters(r.Context()); err != nil {
		logger.Errorf("Character import failed: %v", err)
		common.WriteErrorResponse(w, "Failed to import characters from upstream", http.StatusBadGateway)
		return
	}
	common.WriteMessageResponse(w, "Character import completed.", http.StatusAccepted)
}

// importFilms handles POST /import/films
func (rr *Routes) importFilms(w http.ResponseWriter, r *http.Request) {
	if _, err := rr.runner.ImportFilms(r.Context()); err != nil {
		logger.Errorf("Film import failed: %v", err)
		common.WriteErrorResponse(w, "Failed to import films from upstream", http.StatusBadGateway)
		return
	}
	common.WriteMessageResponse(w, "Film import completed.", http.StatusAccepted)
}

// importStarships handles POST /import/starships
func (rr *Routes) importStarships(w http.ResponseWriter, r *http.Request) {
	if _, err := rr.runner.ImportStarships(r.Context()); err != nil {
		logger.Errorf("Starship import failed: %v", err)
		common.WriteErrorResponse(w, "Failed to import starships from upstream", http.StatusBadGateway)
		return
	}
	common.WriteMessageResponse(w, "Starship import completed.", http.StatusAccepted)
}

// listCharacters handles GET /characters
func (rr *Routes) listCharacters(w http.ResponseWriter, r *http.Request) {
	skip, limit, ok := rr.pagination(w, r)
	if !ok {
		return
	}

	characters, err := rr.store.ListCharacters(r.Context(), skip, limit)
	if err != nil {
		logger.Errorf("Failed to list characters: %v", err)
		common.WriteErrorResponse(w, "Failed to list characters", http.StatusInternalServerError)
		return
	}
	common.WriteJSONResponse(w, characters, http.StatusOK)
}

// searchCharacters handles GET /characters/search
func (rr *Routes) searchCharacters(w http.ResponseWriter, r *http.Request) {
	q, ok := searchTerm(w, r)
	if !ok {
		return
	}

	characters, err := rr.store.SearchCharactersByName(r.Context(), q)
	if err != nil {
		logger.Errorf("Failed to search characters: %v", err)
		common.WriteErrorResponse(w, "Failed to search characters", http.StatusInternalServerError)
		return
	}
	if len(characters) == 0 {
		common.WriteErrorResponse(w, "No characters found", http.StatusNotFound)
		return
	}
	common.WriteJSONResponse(w, characters, http.StatusOK)
}

// getCharacter handles GET /characters/{characterID}
func (rr *Routes) getCharacter(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "characterID")
	if !ok {
		return
	}

	character, err := rr.store.GetCharacter(r.Context(), id)
	if err != nil {
		logger.Errorf("Failed to get character %d: %v", id, err)
		common.WriteErrorResponse(w, "Failed to get character", http.StatusInternalServerError)
		return
	}
	if character == nil {
		common.WriteErrorResponse(w, "Character not found", http.StatusNotFound)
		return
	}
	common.WriteJSONResponse(w, character, http.StatusOK)
}

// listFilms handles GET /films
func (rr *Routes) listFilms(w http.ResponseWriter, r *http.Request) {
	skip, limit, ok := rr.pagination(w, r)
	if !ok {
		return
	}

	films, err := rr.store.ListFilms(r.Context(), skip, limit)
	if err != nil {
		logger.Errorf("Failed to list films: %v", err)
		common.WriteErrorResponse(w, "Failed to list films", http.StatusInternalServerError)
		return
	}
	common.WriteJSONResponse(w, films, http.StatusOK)
}

// searchFilms handles GET /films/search
func (rr *Routes) searchFilms(w http.ResponseWriter, r *http.Request) {
	q, ok := searchTerm(w, r)
	if !ok {
		return
	}

	films, err := rr.store.SearchFilmsByTitle(r.Context(), q)
	if err != nil {
		logger.Errorf("Failed to search films: %v", err)
		common.WriteErrorResponse(w, "Failed to search films", http.StatusInternalServerError)
		return
	}
	if len(films) == 0 {
		common.WriteErrorResponse(w, "No films found", http.StatusNotFound)
		return
	}
	common.WriteJSONResponse(w, films, http.StatusOK)
}

// getFilm handles GET /films/{filmID}
func (rr *Routes) getFilm(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "filmID")
	if !ok {
		return
	}

	film, err := rr.store.GetFilm(r.Context(), id)
	if err != nil {
		logger.Errorf("Failed to get film %d: %v", id, err)
		common.WriteErrorResponse(w, "Failed to get film", http.StatusInternalServerError)
		return
	}
	if film == nil {
		common.WriteErrorResponse(w, "Film not found", http.StatusNotFound)
		return
	}
	common.WriteJSONResponse(w, film, http.StatusOK)
}

// listStarships handles GET /starships
func (rr *Routes) listStarships(w http.ResponseWriter, r *http.Request) {
	skip, limit, ok := rr.pagination(w, r)
	if !ok {
		return
	}

	starships, err := rr.store.ListStarships(r.Context(), skip, limit)
	if err != nil {
		logger.Errorf("Failed to list starships: %v", err)
		common.WriteErrorResponse(w, "Failed to list starships", http.StatusInternalServerError)
		return
	}
	common.WriteJSONResponse(w, starships, http.StatusOK)
}

// searchStarships handles GET /starships/search
func (rr *Routes) searchStarships(w http.ResponseWriter, r *http.Request) {
	q, ok := searchTerm(w, r)
	if !ok {
		return
	}

	starships, err := rr.store.SearchStarshipsByName(r.Context(), q)
	if err != nil {
		logger.Errorf("Failed to search starships: %v", err)
		common.WriteErrorResponse(w, "Failed to search starships", http.StatusInternalServerError)
		return
	}
	if len(starships) == 0 {
		common.WriteErrorResponse(w, "No starships found", http.StatusNotFound)
		return
	}
	common.WriteJSONResponse(w, starships, http.StatusOK)
}

// getStarship handles GET /starships/{starshipID}
func (rr *Routes) getStarship(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "starshipID")
	if !ok {
		return
	}

	starship, err := rr.store.GetStarship(r.Context(), id)
	if err != nil {
		logger.Errorf("Failed to get starship %d: %v", id, err)
		common.WriteErrorResponse(w, "Failed to get starship", http.StatusInternalServerError)
		return
	}
	if starship == nil {
		common.WriteErrorResponse(w, "Starship not found", http.StatusNotFound)
		return
	}
	common.WriteJSONResponse(w, starship, http.StatusOK)
}

// pagination parses the skip and limit query parameters. Invalid values are
// rejected with 400; limits above MaxPageSize are clamped.
func (rr *Routes) pagination(w http.ResponseWriter, r *http.Request) (skip, limit int, ok bool) {
	skip = 0
	limit = rr.defaultPageSize

	if raw := r.URL.Query().Get("skip"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			common.WriteErrorResponse(w, "skip must be a non-negative integer", http.StatusBadRequest)
			return 0, 0, false
		}
		skip = v
	}

	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			common.WriteErrorResponse(w, "limit must be a positive integer", http.StatusBadRequest)
			return 0, 0, false
		}
		limit = v
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	return skip, limit, true
}

// searchTerm extracts the required q query parameter.
func searchTerm(w http.ResponseWriter, r *http.Request) (string, bool) {
	q := r.URL.Query().Get("q")
	if q == "" {
		common.WriteErrorResponse(w, "q query parameter is required", http.StatusBadRequest)
		return "", false
	}
	return q, true
}

// pathID parses a numeric path parameter.
func pathID(w http.ResponseWriter, r *http.Request, param string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil {
		common.WriteErrorResponse(w, "identifier must be an integer", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// rootHandler serves service metadata at the root path.
func rootHandler(serviceName string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		common.WriteJSONResponse(w, map[string]string{
			"service": serviceName,
			"version": versions.GetVersionInfo().Version,
			"status":  "online",
			"message": "A service for importing, storing, and exploring Star Wars characters, films, and starships.",
		}, http.StatusOK)
	}
}

// healthHandler handles health check requests
func healthHandler(w http.ResponseWriter, _ *http.Request) {
	common.WriteJSONResponse(w, map[string]string{"status": "healthy"}, http.StatusOK)
}

// readinessHandler reports readiness based on database connectivity.
func readinessHandler(pinger func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if pinger != nil {
			if err := pinger(r.Context()); err != nil {
				logger.Errorf("Readiness check failed: %v", err)
				common.WriteErrorResponse(w, "Database unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		common.WriteJSONResponse(w, map[string]string{"status": "ready"}, http.StatusOK)
	}
}

// versionHandler returns build version information
func versionHandler(w http.ResponseWriter, _ *http.Request) {
	common.WriteJSONResponse(w, versions.GetVersionInfo(), http.StatusOK)
}
