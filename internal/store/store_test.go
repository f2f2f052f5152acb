package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holocron-dev/holocron/database"
	"github.com/holocron-dev/holocron/internal/apperr"
	"github.com/holocron-dev/holocron/internal/models"
)

func setupStore(t *testing.T) *Store {
	t.Helper()

	pool, cleanup := database.SetupTestDB(t)
	t.Cleanup(cleanup)

	return New(pool)
}

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }

func createTestFilm(t *testing.T, s *Store, title string, episode int) *models.Film {
	t.Helper()

	release := models.NewDate(time.Date(1977, 5, 25, 0, 0, 0, 0, time.UTC))
	film, err := s.CreateFilm(context.Background(), models.FilmCreate{
		Title:       title,
		EpisodeID:   intPtr(episode),
		Director:    strPtr("George Lucas"),
		ReleaseDate: &release,
	})
	require.NoError(t, err)
	require.NotNil(t, film)
	return film
}

func TestCharacterLifecycle(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	filmA := createTestFilm(t, s, "A New Hope", 4)
	filmB := createTestFilm(t, s, "The Empire Strikes Back", 5)

	exists, err := s.CharacterExists(ctx, "Luke Skywalker")
	require.NoError(t, err)
	assert.False(t, exists)

	created, err := s.CreateCharacter(ctx, models.CharacterCreate{
		Name:      "Luke Skywalker",
		Gender:    strPtr("male"),
		BirthYear: strPtr("19BBY"),
	}, []int64{filmA.ID, filmB.ID})
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.NotZero(t, created.ID)
	assert.Len(t, created.Films, 2)

	exists, err = s.CharacterExists(ctx, "Luke Skywalker")
	require.NoError(t, err)
	assert.True(t, exists)

	got, err := s.GetCharacter(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Luke Skywalker", got.Name)
	require.NotNil(t, got.BirthYear)
	assert.Equal(t, "19BBY", *got.BirthYear)
	require.Len(t, got.Films, 2)
	titles := []string{got.Films[0].Title, got.Films[1].Title}
	assert.ElementsMatch(t, []string{"A New Hope", "The Empire Strikes Back"}, titles)
}

func TestCreateCharacterSkipsUnknownFilm(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	film := createTestFilm(t, s, "Return of the Jedi", 6)

	created, err := s.CreateCharacter(ctx, models.CharacterCreate{
		Name: "Wicket Systri Warrick",
	}, []int64{film.ID, 99999})
	require.NoError(t, err)
	require.NotNil(t, created)
	require.Len(t, created.Films, 1)
	assert.Equal(t, "Return of the Jedi", created.Films[0].Title)

	// The character row outlives the failed link.
	got, err := s.GetCharacter(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Wicket Systri Warrick", got.Name)
	require.Len(t, got.Films, 1)
}

func TestCreateCharacterDuplicateName(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	_, err := s.CreateCharacter(ctx, models.CharacterCreate{Name: "Han Solo"}, nil)
	require.NoError(t, err)

	_, err = s.CreateCharacter(ctx, models.CharacterCreate{Name: "Han Solo"}, nil)
	require.Error(t, err)
	var dbErr *apperr.DatabaseError
	assert.ErrorAs(t, err, &dbErr)
}

func TestGetCharacterNotFound(t *testing.T) {
	s := setupStore(t)

	got, err := s.GetCharacter(context.Background(), 42)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestListAndSearchCharacters(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	film := createTestFilm(t, s, "A New Hope", 4)

	for _, name := range []string{"Leia Organa", "Luke Skywalker", "Obi-Wan Kenobi"} {
		_, err := s.CreateCharacter(ctx, models.CharacterCreate{Name: name}, []int64{film.ID})
		require.NoError(t, err)
	}

	// Every row in a multi-row result must carry its film references.
	all, err := s.ListCharacters(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, all, 3)
	for _, c := range all {
		require.Len(t, c.Films, 1, "character %s lost its films", c.Name)
		assert.Equal(t, "A New Hope", c.Films[0].Title)
	}

	page, err := s.ListCharacters(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "Luke Skywalker", page[0].Name)
	require.Len(t, page[0].Films, 1)

	// Search is case-insensitive substring match.
	found, err := s.SearchCharactersByName(ctx, "sKyWaLkEr")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Luke Skywalker", found[0].Name)
	require.Len(t, found[0].Films, 1)

	broad, err := s.SearchCharactersByName(ctx, "a")
	require.NoError(t, err)
	require.Len(t, broad, 3)
	for _, c := range broad {
		require.Len(t, c.Films, 1, "character %s lost its films", c.Name)
	}

	none, err := s.SearchCharactersByName(ctx, "Jabba")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestFilmLifecycle(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	exists, err := s.FilmExists(ctx, "A New Hope")
	require.NoError(t, err)
	assert.False(t, exists)

	created := createTestFilm(t, s, "A New Hope", 4)

	exists, err = s.FilmExists(ctx, "A New Hope")
	require.NoError(t, err)
	assert.True(t, exists)

	got, err := s.GetFilm(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "A New Hope", got.Title)
	require.NotNil(t, got.EpisodeID)
	assert.Equal(t, 4, *got.EpisodeID)
	require.NotNil(t, got.ReleaseDate)
	assert.True(t, got.ReleaseDate.Equal(time.Date(1977, 5, 25, 0, 0, 0, 0, time.UTC)))
	assert.Empty(t, got.Characters)

	missing, err := s.GetFilm(ctx, 42)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestFilmCharacterRelation(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	film := createTestFilm(t, s, "The Phantom Menace", 1)

	_, err := s.CreateCharacter(ctx, models.CharacterCreate{Name: "Qui-Gon Jinn"}, []int64{film.ID})
	require.NoError(t, err)

	got, err := s.GetFilm(ctx, film.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Len(t, got.Characters, 1)
	assert.Equal(t, "Qui-Gon Jinn", got.Characters[0].Name)
}

func TestListAndSearchFilms(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	filmA := createTestFilm(t, s, "A New Hope", 4)
	filmB := createTestFilm(t, s, "The Empire Strikes Back", 5)
	filmC := createTestFilm(t, s, "Return of the Jedi", 6)

	_, err := s.CreateCharacter(ctx, models.CharacterCreate{Name: "Luke Skywalker"},
		[]int64{filmA.ID, filmB.ID, filmC.ID})
	require.NoError(t, err)

	// Every row in a multi-row result must carry its character references.
	all, err := s.ListFilms(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, all, 3)
	for _, f := range all {
		require.Len(t, f.Characters, 1, "film %s lost its characters", f.Title)
		assert.Equal(t, "Luke Skywalker", f.Characters[0].Name)
	}

	found, err := s.SearchFilmsByTitle(ctx, "empire")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "The Empire Strikes Back", found[0].Title)
	require.Len(t, found[0].Characters, 1)

	broad, err := s.SearchFilmsByTitle(ctx, "e")
	require.NoError(t, err)
	require.Len(t, broad, 3)
	for _, f := range broad {
		require.Len(t, f.Characters, 1, "film %s lost its characters", f.Title)
	}
}

func TestStarshipLifecycle(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	created, err := s.CreateStarship(ctx, models.StarshipCreate{
		Name:          "Millennium Falcon",
		Model:         strPtr("YT-1300 light freighter"),
		StarshipClass: strPtr("Light freighter"),
	})
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.NotZero(t, created.ID)

	exists, err := s.StarshipExists(ctx, "Millennium Falcon")
	require.NoError(t, err)
	assert.True(t, exists)

	got, err := s.GetStarship(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Millennium Falcon", got.Name)
	require.NotNil(t, got.Model)
	assert.Equal(t, "YT-1300 light freighter", *got.Model)

	missing, err := s.GetStarship(ctx, 42)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestCreateStarshipExistingNameIsNoOp(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	first, err := s.CreateStarship(ctx, models.StarshipCreate{Name: "X-wing"})
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := s.CreateStarship(ctx, models.StarshipCreate{Name: "X-wing"})
	require.NoError(t, err)
	assert.Nil(t, second)

	all, err := s.ListStarships(ctx, 0, 10)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestListAndSearchStarships(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	for _, name := range []string{"X-wing", "Y-wing", "TIE Advanced x1"} {
		_, err := s.CreateStarship(ctx, models.StarshipCreate{Name: name})
		require.NoError(t, err)
	}

	page, err := s.ListStarships(ctx, 0, 2)
	require.NoError(t, err)
	assert.Len(t, page, 2)

	found, err := s.SearchStarshipsByName(ctx, "wing")
	require.NoError(t, err)
	assert.Len(t, found, 2)
}
