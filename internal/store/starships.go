package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/holocron-dev/holocron/internal/models"
)

const starshipColumns = "id, name, model, manufacturer, starship_class"

// StarshipExists reports whether a starship with the given name exists.
func (s *Store) StarshipExists(ctx context.Context, name string) (bool, error) {
	return s.existsByColumn(ctx, "starships", "name", name)
}

// CreateStarship inserts a starship. Unlike the other entities, creation is
// a soft no-op when a starship with the same name already exists: it returns
// (nil, nil) without error. A unique violation that slips past the existence
// check is still returned as apperr.DatabaseError.
func (s *Store) CreateStarship(ctx context.Context, in models.StarshipCreate) (*models.Starship, error) {
	exists, err := s.StarshipExists(ctx, in.Name)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, nil
	}

	starship := &models.Starship{
		Name:          in.Name,
		Model:         in.Model,
		Manufacturer:  in.Manufacturer,
		StarshipClass: in.StarshipClass,
	}

	err = s.pool.QueryRow(ctx,
		`INSERT INTO starships (name, model, manufacturer, starship_class)
		 VALUES ($1, $2, $3, $4) RETURNING id`,
		in.Name, in.Model, in.Manufacturer, in.StarshipClass,
	).Scan(&starship.ID)
	if err != nil {
		return nil, translateCreateErr("starship", err)
	}
	return starship, nil
}

// GetStarship retrieves a starship by ID. Returns (nil, nil) when no such
// starship exists.
func (s *Store) GetStarship(ctx context.Context, id int64) (*models.Starship, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+starshipColumns+` FROM starships WHERE id = $1`, id)

	starship, err := scanStarship(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get starship %d: %w", id, err)
	}
	return starship, nil
}

// ListStarships retrieves a page of starships.
func (s *Store) ListStarships(ctx context.Context, skip, limit int) ([]models.Starship, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+starshipColumns+` FROM starships ORDER BY id OFFSET $1 LIMIT $2`,
		skip, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list starships: %w", err)
	}
	return collectStarships(rows)
}

// SearchStarshipsByName retrieves starships whose name contains the given
// term, case-insensitively.
func (s *Store) SearchStarshipsByName(ctx context.Context, name string) ([]models.Starship, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+starshipColumns+` FROM starships
		 WHERE name ILIKE '%' || $1 || '%' ORDER BY id`,
		name)
	if err != nil {
		return nil, fmt.Errorf("failed to search starships: %w", err)
	}
	return collectStarships(rows)
}

func collectStarships(rows pgx.Rows) ([]models.Starship, error) {
	defer rows.Close()

	starships := []models.Starship{}
	for rows.Next() {
		starship, err := scanStarship(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan starship: %w", err)
		}
		starships = append(starships, *starship)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read starships: %w", err)
	}
	return starships, nil
}

func scanStarship(row pgx.Row) (*models.Starship, error) {
	var st models.Starship
	if err := row.Scan(&st.ID, &st.Name, &st.Model, &st.Manufacturer, &st.StarshipClass); err != nil {
		return nil, err
	}
	return &st, nil
}
