package v0

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holocron-dev/holocron/internal/importer"
	"github.com/holocron-dev/holocron/internal/models"
)

// fakeStore serves canned entities and records pagination arguments.
type fakeStore struct {
	characters []models.Character
	films      []models.Film
	starships  []models.Starship

	lastSkip  int
	lastLimit int

	err error
}

func (s *fakeStore) GetCharacter(_ context.Context, id int64) (*models.Character, error) {
	for i := range s.characters {
		if s.characters[i].ID == id {
			return &s.characters[i], nil
		}
	}
	return nil, s.err
}

func (s *fakeStore) ListCharacters(_ context.Context, skip, limit int) ([]models.Character, error) {
	s.lastSkip, s.lastLimit = skip, limit
	return s.characters, s.err
}

func (s *fakeStore) SearchCharactersByName(_ context.Context, _ string) ([]models.Character, error) {
	return s.characters, s.err
}

func (s *fakeStore) GetFilm(_ context.Context, id int64) (*models.Film, error) {
	for i := range s.films {
		if s.films[i].ID == id {
			return &s.films[i], nil
		}
	}
	return nil, s.err
}

func (s *fakeStore) ListFilms(_ context.Context, skip, limit int) ([]models.Film, error) {
	s.lastSkip, s.lastLimit = skip, limit
	return s.films, s.err
}

func (s *fakeStore) SearchFilmsByTitle(_ context.Context, _ string) ([]models.Film, error) {
	return s.films, s.err
}

func (s *fakeStore) GetStarship(_ context.Context, id int64) (*models.Starship, error) {
	for i := range s.starships {
		if s.starships[i].ID == id {
			return &s.starships[i], nil
		}
	}
	return nil, s.err
}

func (s *fakeStore) ListStarships(_ context.Context, skip, limit int) ([]models.Starship, error) {
	s.lastSkip, s.lastLimit = skip, limit
	return s.starships, s.err
}

func (s *fakeStore) SearchStarshipsByName(_ context.Context, _ string) ([]models.Starship, error) {
	return s.starships, s.err
}

// fakeRunner reports a fixed outcome for every import.
type fakeRunner struct {
	stats *importer.Stats
	err   error
}

func (r *fakeRunner) ImportCharacters(context.Context) (*importer.Stats, error) {
	return r.stats, r.err
}

func (r *fakeRunner) ImportFilms(context.Context) (*importer.Stats, error) {
	return r.stats, r.err
}

func (r *fakeRunner) ImportStarships(context.Context) (*importer.Stats, error) {
	return r.stats, r.err
}

func newTestServer(t *testing.T, store *fakeStore, runner *fakeRunner, opts ...RoutesOption) *httptest.Server {
	t.Helper()
	handler := Router("Test API", nil, store, runner, opts...)
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func doRequest(t *testing.T, method, url string) (*http.Response, map[string]any) {
	t.Helper()

	req, err := http.NewRequest(method, url, nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	var body map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&body)
	return resp, body
}

func TestImportEndpoints(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		path       string
		runner     *fakeRunner
		wantStatus int
		wantKey    string
	}{
		{
			name:       "character import success",
			path:       "/import/characters",
			runner:     &fakeRunner{stats: &importer.Stats{Inserted: 3}},
			wantStatus: http.StatusAccepted,
			wantKey:    "message",
		},
		{
			name:       "film import success",
			path:       "/import/films",
			runner:     &fakeRunner{stats: &importer.Stats{}},
			wantStatus: http.StatusAccepted,
			wantKey:    "message",
		},
		{
			name:       "starship import success",
			path:       "/import/starships",
			runner:     &fakeRunner{stats: &importer.Stats{}},
			wantStatus: http.StatusAccepted,
			wantKey:    "message",
		},
		{
			name:       "upstream failure maps to 502",
			path:       "/import/characters",
			runner:     &fakeRunner{err: assert.AnError},
			wantStatus: http.StatusBadGateway,
			wantKey:    "error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := newTestServer(t, &fakeStore{}, tt.runner)
			resp, body := doRequest(t, http.MethodPost, server.URL+tt.path)

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Contains(t, body, tt.wantKey)
		})
	}
}

func TestListCharactersPagination(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantSkip   int
		wantLimit  int
	}{
		{name: "defaults", query: "", wantStatus: http.StatusOK, wantSkip: 0, wantLimit: DefaultPageSize},
		{name: "explicit values", query: "?skip=10&limit=5", wantStatus: http.StatusOK, wantSkip: 10, wantLimit: 5},
		{name: "limit clamped to max", query: "?limit=500", wantStatus: http.StatusOK, wantSkip: 0, wantLimit: MaxPageSize},
		{name: "negative skip rejected", query: "?skip=-1", wantStatus: http.StatusBadRequest},
		{name: "non-numeric limit rejected", query: "?limit=ten", wantStatus: http.StatusBadRequest},
		{name: "zero limit rejected", query: "?limit=0", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store := &fakeStore{}
			server := newTestServer(t, store, &fakeRunner{})

			resp, _ := doRequest(t, http.MethodGet, server.URL+"/characters"+tt.query)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, tt.wantSkip, store.lastSkip)
				assert.Equal(t, tt.wantLimit, store.lastLimit)
			}
		})
	}
}

func TestConfiguredDefaultPageSize(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	server := newTestServer(t, store, &fakeRunner{}, WithDefaultPageSize(50))

	resp, _ := doRequest(t, http.MethodGet, server.URL+"/films")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 50, store.lastLimit)
}

func TestSearchEndpoints(t *testing.T) {
	t.Parallel()

	luke := models.Character{ID: 1, Name: "Luke Skywalker", Films: []models.FilmRef{}}

	tests := []struct {
		name       string
		path       string
		store      *fakeStore
		wantStatus int
	}{
		{
			name:       "characters with matches",
			path:       "/characters/search?q=luke",
			store:      &fakeStore{characters: []models.Character{luke}},
			wantStatus: http.StatusOK,
		},
		{
			name:       "characters with no matches",
			path:       "/characters/search?q=zzz",
			store:      &fakeStore{},
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "missing query parameter",
			path:       "/characters/search",
			store:      &fakeStore{},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "films with no matches",
			path:       "/films/search?q=zzz",
			store:      &fakeStore{},
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "starships with no matches",
			path:       "/starships/search?q=zzz",
			store:      &fakeStore{},
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := newTestServer(t, tt.store, &fakeRunner{})
			resp, _ := doRequest(t, http.MethodGet, server.URL+tt.path)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}
}

func TestGetByID(t *testing.T) {
	t.Parallel()

	store := &fakeStore{
		characters: []models.Character{{ID: 1, Name: "Luke Skywalker", Films: []models.FilmRef{{ID: 1, Title: "A New Hope"}}}},
		films:      []models.Film{{ID: 1, Title: "A New Hope"}},
		starships:  []models.Starship{{ID: 9, Name: "Death Star"}},
	}
	server := newTestServer(t, store, &fakeRunner{})

	t.Run("character found", func(t *testing.T) {
		resp, body := doRequest(t, http.MethodGet, server.URL+"/characters/1")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "Luke Skywalker", body["name"])
		films, ok := body["films"].([]any)
		require.True(t, ok)
		assert.Len(t, films, 1)
	})

	t.Run("character not found", func(t *testing.T) {
		resp, body := doRequest(t, http.MethodGet, server.URL+"/characters/99")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "Character not found", body["error"])
	})

	t.Run("film found", func(t *testing.T) {
		resp, body := doRequest(t, http.MethodGet, server.URL+"/films/1")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "A New Hope", body["title"])
	})

	t.Run("starship found", func(t *testing.T) {
		resp, body := doRequest(t, http.MethodGet, server.URL+"/starships/9")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "Death Star", body["name"])
	})

	t.Run("starship not found", func(t *testing.T) {
		resp, _ := doRequest(t, http.MethodGet, server.URL+"/starships/1")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("non-numeric identifier", func(t *testing.T) {
		resp, _ := doRequest(t, http.MethodGet, server.URL+"/films/latest")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestSystemEndpoints(t *testing.T) {
	t.Parallel()

	server := newTestServer(t, &fakeStore{}, &fakeRunner{})

	t.Run("root metadata", func(t *testing.T) {
		resp, body := doRequest(t, http.MethodGet, server.URL+"/")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "Test API", body["service"])
		assert.Equal(t, "online", body["status"])
	})

	t.Run("health", func(t *testing.T) {
		resp, body := doRequest(t, http.MethodGet, server.URL+"/health")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "healthy", body["status"])
	})

	t.Run("readiness without pinger", func(t *testing.T) {
		resp, body := doRequest(t, http.MethodGet, server.URL+"/readiness")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "ready", body["status"])
	})

	t.Run("version", func(t *testing.T) {
		resp, body := doRequest(t, http.MethodGet, server.URL+"/version")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, body, "version")
		assert.Contains(t, body, "go_version")
	})
}
