package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/holocron-dev/holocron/internal/logger"
	"github.com/holocron-dev/holocron/internal/models"
)

const characterColumns = "id, name, gender, birth_year"

// CharacterExists reports whether a character with the given name exists.
func (s *Store) CharacterExists(ctx context.Context, name string) (bool, error) {
	return s.existsByColumn(ctx, "characters", "name", name)
}

// CreateCharacter inserts a character, then attaches its film links
// best-effort. A link that does not resolve to a stored film, or that fails
// to insert, is logged and skipped; it never undoes the character row.
// A unique violation on the name is returned as apperr.DatabaseError.
func (s *Store) CreateCharacter(
	ctx context.Context,
	in models.CharacterCreate,
	filmIDs []int64,
) (*models.Character, error) {
	character := &models.Character{
		Name:      in.Name,
		Gender:    in.Gender,
		BirthYear: in.BirthYear,
		Films:     []models.FilmRef{},
	}

	err := s.pool.QueryRow(ctx,
		`INSERT INTO characters (name, gender, birth_year) VALUES ($1, $2, $3) RETURNING id`,
		in.Name, in.Gender, in.BirthYear,
	).Scan(&character.ID)
	if err != nil {
		return nil, translateCreateErr("character", err)
	}

	for _, filmID := range filmIDs {
		ref, err := s.linkCharacterFilm(ctx, character.ID, filmID)
		if err != nil {
			logger.Warnw("skipping film link",
				"character", in.Name,
				"film_id", filmID,
				"error", err,
			)
			continue
		}
		character.Films = append(character.Films, *ref)
	}
	return character, nil
}

// linkCharacterFilm resolves filmID and records the link.
func (s *Store) linkCharacterFilm(ctx context.Context, characterID, filmID int64) (*models.FilmRef, error) {
	var ref models.FilmRef
	err := s.pool.QueryRow(ctx,
		`SELECT id, title FROM films WHERE id = $1`, filmID,
	).Scan(&ref.ID, &ref.Title)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("no film with id %d", filmID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve film %d: %w", filmID, err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO character_films (character_id, film_id) VALUES ($1, $2)
		 ON CONFLICT DO NOTHING`,
		characterID, ref.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to link film %d: %w", ref.ID, err)
	}
	return &ref, nil
}

// GetCharacter retrieves a character by ID with its film references.
// Returns (nil, nil) when no such character exists.
func (s *Store) GetCharacter(ctx context.Context, id int64) (*models.Character, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+characterColumns+` FROM characters WHERE id = $1`, id)

	character, err := scanCharacter(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get character %d: %w", id, err)
	}

	if err := s.attachCharacterFilms(ctx, []*models.Character{character}); err != nil {
		return nil, err
	}
	return character, nil
}

// ListCharacters retrieves a page of characters with their film references.
func (s *Store) ListCharacters(ctx context.Context, skip, limit int) ([]models.Character, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+characterColumns+` FROM characters ORDER BY id OFFSET $1 LIMIT $2`,
		skip, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list characters: %w", err)
	}
	return s.collectCharacters(ctx, rows)
}

// SearchCharactersByName retrieves characters whose name contains the given
// term, case-insensitively.
func (s *Store) SearchCharactersByName(ctx context.Context, name string) ([]models.Character, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+characterColumns+` FROM characters
		 WHERE name ILIKE '%' || $1 || '%' ORDER BY id`,
		name)
	if err != nil {
		return nil, fmt.Errorf("failed to search characters: %w", err)
	}
	return s.collectCharacters(ctx, rows)
}

func (s *Store) collectCharacters(ctx context.Context, rows pgx.Rows) ([]models.Character, error) {
	defer rows.Close()

	// Scan into pointers so the relation loading below writes into the
	// same values the result is built from.
	refs := []*models.Character{}
	for rows.Next() {
		character, err := scanCharacter(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan character: %w", err)
		}
		refs = append(refs, character)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read characters: %w", err)
	}

	if err := s.attachCharacterFilms(ctx, refs); err != nil {
		return nil, err
	}

	characters := make([]models.Character, 0, len(refs))
	for _, c := range refs {
		characters = append(characters, *c)
	}
	return characters, nil
}

func scanCharacter(row pgx.Row) (*models.Character, error) {
	var c models.Character
	if err := row.Scan(&c.ID, &c.Name, &c.Gender, &c.BirthYear); err != nil {
		return nil, err
	}
	c.Films = []models.FilmRef{}
	return &c, nil
}

// attachCharacterFilms loads film references for the given characters in a
// single query.
func (s *Store) attachCharacterFilms(ctx context.Context, characters []*models.Character) error {
	if len(characters) == 0 {
		return nil
	}

	byID := make(map[int64]*models.Character, len(characters))
	ids := make([]int64, 0, len(characters))
	for _, c := range characters {
		byID[c.ID] = c
		ids = append(ids, c.ID)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT cf.character_id, f.id, f.title
		 FROM character_films cf
		 JOIN films f ON f.id = cf.film_id
		 WHERE cf.character_id = ANY($1)
		 ORDER BY f.id`,
		ids)
	if err != nil {
		return fmt.Errorf("failed to load character films: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var characterID int64
		var ref models.FilmRef
		if err := rows.Scan(&characterID, &ref.ID, &ref.Title); err != nil {
			return fmt.Errorf("failed to scan film reference: %w", err)
		}
		if c, ok := byID[characterID]; ok {
			c.Films = append(c.Films, ref)
		}
	}
	return rows.Err()
}
