package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/holocron-dev/holocron/internal/models"
)

const filmColumns = "id, title, episode_id, opening_crawl, director, producer, release_date, created, edited, url"

// filmRelations describes the nested reference lists loaded with each film.
var filmRelations = []struct {
	join   string
	entity string
	fk     string
	assign func(*models.Film, models.NamedRef)
}{
	{"character_films", "characters", "character_id",
		func(f *models.Film, r models.NamedRef) { f.Characters = append(f.Characters, r) }},
	{"film_planets", "planets", "planet_id",
		func(f *models.Film, r models.NamedRef) { f.Planets = append(f.Planets, r) }},
	{"film_starships", "starships", "starship_id",
		func(f *models.Film, r models.NamedRef) { f.Starships = append(f.Starships, r) }},
	{"film_vehicles", "vehicles", "vehicle_id",
		func(f *models.Film, r models.NamedRef) { f.Vehicles = append(f.Vehicles, r) }},
	{"film_species", "species", "species_id",
		func(f *models.Film, r models.NamedRef) { f.Species = append(f.Species, r) }},
}

// FilmExists reports whether a film with the given title exists.
func (s *Store) FilmExists(ctx context.Context, title string) (bool, error) {
	return s.existsByColumn(ctx, "films", "title", title)
}

// CreateFilm inserts a film. A unique violation on the title is returned as
// apperr.DatabaseError.
func (s *Store) CreateFilm(ctx context.Context, in models.FilmCreate) (*models.Film, error) {
	film := &models.Film{
		Title:        in.Title,
		EpisodeID:    in.EpisodeID,
		OpeningCrawl: in.OpeningCrawl,
		Director:     in.Director,
		Producer:     in.Producer,
		ReleaseDate:  in.ReleaseDate,
		Created:      in.Created,
		Edited:       in.Edited,
		URL:          in.URL,
		Characters:   []models.NamedRef{},
	}

	var releaseDate *time.Time
	if in.ReleaseDate != nil {
		releaseDate = &in.ReleaseDate.Time
	}

	err := s.pool.QueryRow(ctx,
		`INSERT INTO films (title, episode_id, opening_crawl, director, producer, release_date, created, edited, url)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id`,
		in.Title, in.EpisodeID, in.OpeningCrawl, in.Director, in.Producer,
		releaseDate, in.Created, in.Edited, in.URL,
	).Scan(&film.ID)
	if err != nil {
		return nil, translateCreateErr("film", err)
	}
	return film, nil
}

// GetFilm retrieves a film by ID with its nested references.
// Returns (nil, nil) when no such film exists.
func (s *Store) GetFilm(ctx context.Context, id int64) (*models.Film, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+filmColumns+` FROM films WHERE id = $1`, id)

	film, err := scanFilm(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get film %d: %w", id, err)
	}

	if err := s.attachFilmRelations(ctx, []*models.Film{film}); err != nil {
		return nil, err
	}
	return film, nil
}

// ListFilms retrieves a page of films with their nested references.
func (s *Store) ListFilms(ctx context.Context, skip, limit int) ([]models.Film, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+filmColumns+` FROM films ORDER BY id OFFSET $1 LIMIT $2`,
		skip, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list films: %w", err)
	}
	return s.collectFilms(ctx, rows)
}

// SearchFilmsByTitle retrieves films whose title contains the given term,
// case-insensitively.
func (s *Store) SearchFilmsByTitle(ctx context.Context, title string) ([]models.Film, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+filmColumns+` FROM films
		 WHERE title ILIKE '%' || $1 || '%' ORDER BY id`,
		title)
	if err != nil {
		return nil, fmt.Errorf("failed to search films: %w", err)
	}
	return s.collectFilms(ctx, rows)
}

func (s *Store) collectFilms(ctx context.Context, rows pgx.Rows) ([]models.Film, error) {
	defer rows.Close()

	// Scan into pointers so the relation loading below writes into the
	// same values the result is built from.
	refs := []*models.Film{}
	for rows.Next() {
		film, err := scanFilm(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan film: %w", err)
		}
		refs = append(refs, film)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read films: %w", err)
	}

	if err := s.attachFilmRelations(ctx, refs); err != nil {
		return nil, err
	}

	films := make([]models.Film, 0, len(refs))
	for _, f := range refs {
		films = append(films, *f)
	}
	return films, nil
}

func scanFilm(row pgx.Row) (*models.Film, error) {
	var f models.Film
	var releaseDate *time.Time
	err := row.Scan(&f.ID, &f.Title, &f.EpisodeID, &f.OpeningCrawl, &f.Director,
		&f.Producer, &releaseDate, &f.Created, &f.Edited, &f.URL)
	if err != nil {
		return nil, err
	}
	if releaseDate != nil {
		d := models.NewDate(*releaseDate)
		f.ReleaseDate = &d
	}
	f.Characters = []models.NamedRef{}
	return &f, nil
}

// attachFilmRelations loads each nested reference list for the given films
// with one query per relation.
func (s *Store) attachFilmRelations(ctx context.Context, films []*models.Film) error {
	if len(films) == 0 {
		return nil
	}

	byID := make(map[int64]*models.Film, len(films))
	ids := make([]int64, 0, len(films))
	for _, f := range films {
		byID[f.ID] = f
		ids = append(ids, f.ID)
	}

	for _, rel := range filmRelations {
		query := fmt.Sprintf(
			`SELECT j.film_id, e.id, e.name
			 FROM %s j
			 JOIN %s e ON e.id = j.%s
			 WHERE j.film_id = ANY($1)
			 ORDER BY e.id`,
			rel.join, rel.entity, rel.fk)

		rows, err := s.pool.Query(ctx, query, ids)
		if err != nil {
			return fmt.Errorf("failed to load film %s: %w", rel.entity, err)
		}

		for rows.Next() {
			var filmID int64
			var ref models.NamedRef
			if err := rows.Scan(&filmID, &ref.ID, &ref.Name); err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan %s reference: %w", rel.entity, err)
			}
			if f, ok := byID[filmID]; ok {
				rel.assign(f, ref)
			}
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return fmt.Errorf("failed to read film %s: %w", rel.entity, err)
		}
	}
	return nil
}
