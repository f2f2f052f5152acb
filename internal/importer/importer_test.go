package importer

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holocron-dev/holocron/internal/apperr"
	"github.com/holocron-dev/holocron/internal/models"
	"github.com/holocron-dev/holocron/internal/swapi"
)

// fakeFetcher serves canned pages keyed by page number and records the page
// numbers requested.
type fakeFetcher struct {
	characterPages map[int]*swapi.Page
	starshipPages  map[int]*swapi.Page
	films          *swapi.Page

	charactersErr error
	filmsErr      error
	starshipsErr  error

	characterPagesSeen []int
	starshipPagesSeen  []int
}

func (f *fakeFetcher) Characters(_ context.Context, page int) (*swapi.Page, error) {
	f.characterPagesSeen = append(f.characterPagesSeen, page)
	if f.charactersErr != nil {
		return nil, f.charactersErr
	}
	if p, ok := f.characterPages[page]; ok {
		return p, nil
	}
	return &swapi.Page{Results: []json.RawMessage{}}, nil
}

func (f *fakeFetcher) Films(_ context.Context) (*swapi.Page, error) {
	if f.filmsErr != nil {
		return nil, f.filmsErr
	}
	if f.films != nil {
		return f.films, nil
	}
	return &swapi.Page{Results: []json.RawMessage{}}, nil
}

func (f *fakeFetcher) Starships(_ context.Context, page int) (*swapi.Page, error) {
	f.starshipPagesSeen = append(f.starshipPagesSeen, page)
	if f.starshipsErr != nil {
		return nil, f.starshipsErr
	}
	if p, ok := f.starshipPages[page]; ok {
		return p, nil
	}
	return &swapi.Page{Results: []json.RawMessage{}}, nil
}

// fakeStore keeps entities in memory and can fail specific creates.
type fakeStore struct {
	characters map[string][]int64
	films      map[string]models.FilmCreate
	starships  map[string]bool

	failCharacter map[string]error
	softStarships map[string]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		characters:    map[string][]int64{},
		films:         map[string]models.FilmCreate{},
		starships:     map[string]bool{},
		failCharacter: map[string]error{},
		softStarships: map[string]bool{},
	}
}

func (s *fakeStore) CharacterExists(_ context.Context, name string) (bool, error) {
	_, ok := s.characters[name]
	return ok, nil
}

func (s *fakeStore) CreateCharacter(_ context.Context, in models.CharacterCreate, filmIDs []int64) (*models.Character, error) {
	if err, ok := s.failCharacter[in.Name]; ok {
		return nil, err
	}
	s.characters[in.Name] = filmIDs
	return &models.Character{ID: int64(len(s.characters)), Name: in.Name}, nil
}

func (s *fakeStore) FilmExists(_ context.Context, title string) (bool, error) {
	_, ok := s.films[title]
	return ok, nil
}

func (s *fakeStore) CreateFilm(_ context.Context, in models.FilmCreate) (*models.Film, error) {
	s.films[in.Title] = in
	return &models.Film{ID: int64(len(s.films)), Title: in.Title}, nil
}

func (s *fakeStore) StarshipExists(_ context.Context, name string) (bool, error) {
	return s.starships[name], nil
}

func (s *fakeStore) CreateStarship(_ context.Context, in models.StarshipCreate) (*models.Starship, error) {
	if s.softStarships[in.Name] {
		return nil, nil
	}
	s.starships[in.Name] = true
	return &models.Starship{ID: int64(len(s.starships)), Name: in.Name}, nil
}

func rawItems(items ...string) []json.RawMessage {
	out := make([]json.RawMessage, 0, len(items))
	for _, item := range items {
		out = append(out, json.RawMessage(item))
	}
	return out
}

func TestImportCharacters(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{characterPages: map[int]*swapi.Page{
		1: {
			Results: rawItems(
				`{"name": "Luke Skywalker", "gender": "male", "birth_year": "19BBY", "films": ["https://upstream.test/api/films/1/", "https://upstream.test/api/films/2/"]}`,
				`{"name": "  "}`,
				`{"name": "Leia Organa", "films": ["https://upstream.test/api/films/latest/"]}`,
			),
			Next: "https://upstream.test/api/people/?page=2",
		},
		2: {
			Results: rawItems(
				`{"name": "Han Solo", "gender": "male"}`,
			),
		},
	}}

	store := newFakeStore()
	store.characters["Han Solo"] = nil

	stats, err := New(fetcher, store).ImportCharacters(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Inserted)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, []int{1, 2}, fetcher.characterPagesSeen,
		"page number advances while next is set")
	assert.Equal(t, []int64{1, 2}, store.characters["Luke Skywalker"])
	assert.Empty(t, store.characters["Leia Organa"], "unparseable film links are dropped")
	assert.NotContains(t, store.characters, "  ")
}

func TestImportCharactersFetchFailureAborts(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{
		charactersErr: apperr.NewUpstreamError("failed to fetch", assert.AnError),
	}

	_, err := New(fetcher, newFakeStore()).ImportCharacters(context.Background())
	require.Error(t, err)

	var upstreamErr *apperr.UpstreamError
	assert.ErrorAs(t, err, &upstreamErr)
}

func TestImportCharactersItemFailureIsIsolated(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{characterPages: map[int]*swapi.Page{
		1: {
			Results: rawItems(
				`{"name": "Luke Skywalker"}`,
				`{"name": "Leia Organa"}`,
			),
		},
	}}

	store := newFakeStore()
	store.failCharacter["Luke Skywalker"] = apperr.NewDatabaseError("integrity violation", assert.AnError)

	stats, err := New(fetcher, store).ImportCharacters(context.Background())
	require.NoError(t, err, "a single failed insert must not abort the run")
	assert.Equal(t, 1, stats.Inserted)
	assert.Contains(t, store.characters, "Leia Organa")
}

func TestImportFilms(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{films: &swapi.Page{
		Results: rawItems(
			`{"title": "A New Hope", "episode_id": 4, "director": "George Lucas", "release_date": "1977-05-25", "created": "2014-12-10T14:23:31.880000Z"}`,
			`{"title": ""}`,
			`{"title": "The Empire Strikes Back", "episode_id": 5}`,
		),
	}}

	store := newFakeStore()
	store.films["The Empire Strikes Back"] = models.FilmCreate{Title: "The Empire Strikes Back"}

	stats, err := New(fetcher, store).ImportFilms(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Inserted)
	assert.Equal(t, 1, stats.Skipped)

	created := store.films["A New Hope"]
	require.NotNil(t, created.EpisodeID)
	assert.Equal(t, 4, *created.EpisodeID)
	require.NotNil(t, created.ReleaseDate)
	assert.Equal(t, "1977-05-25", created.ReleaseDate.Format("2006-01-02"))
	require.NotNil(t, created.Created)
}

func TestImportFilmsMissingResults(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{films: &swapi.Page{Results: nil}}

	_, err := New(fetcher, newFakeStore()).ImportFilms(context.Background())
	require.Error(t, err)

	var importErr *apperr.DataImportError
	assert.ErrorAs(t, err, &importErr)
}

func TestImportStarships(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{starshipPages: map[int]*swapi.Page{
		1: {
			Results: rawItems(
				`{"name": "X-wing", "model": "T-65 X-wing", "starship_class": "Starfighter"}`,
				`{"name": "Death Star"}`,
				`{"name": "Millennium Falcon"}`,
			),
		},
	}}

	store := newFakeStore()
	store.starships["Death Star"] = true
	store.softStarships["Millennium Falcon"] = true

	stats, err := New(fetcher, store).ImportStarships(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Inserted)
	assert.Equal(t, 2, stats.Skipped, "existing and soft no-op creations both count as skipped")
	assert.True(t, store.starships["X-wing"])
}

func TestImportAllOrder(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{
		films: &swapi.Page{
			Results: rawItems(`{"title": "A New Hope"}`),
		},
		characterPages: map[int]*swapi.Page{
			1: {Results: rawItems(`{"name": "Luke Skywalker", "films": ["https://upstream.test/api/films/1/"]}`)},
		},
		starshipPages: map[int]*swapi.Page{
			1: {Results: rawItems(`{"name": "X-wing"}`)},
		},
	}

	store := newFakeStore()
	require.NoError(t, New(fetcher, store).ImportAll(context.Background()))

	assert.Contains(t, store.films, "A New Hope")
	assert.Contains(t, store.characters, "Luke Skywalker")
	assert.True(t, store.starships["X-wing"])
}
