// Package importer orchestrates pulling Star Wars resources from the
// upstream API into the database. Films must be imported before characters
// so that film links resolve against stored film identifiers.
package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/holocron-dev/holocron/internal/apperr"
	"github.com/holocron-dev/holocron/internal/dateutil"
	"github.com/holocron-dev/holocron/internal/logger"
	"github.com/holocron-dev/holocron/internal/models"
	"github.com/holocron-dev/holocron/internal/swapi"
)

// Fetcher fetches pages of upstream resources by page number.
type Fetcher interface {
	Characters(ctx context.Context, page int) (*swapi.Page, error)
	Films(ctx context.Context) (*swapi.Page, error)
	Starships(ctx context.Context, page int) (*swapi.Page, error)
}

// Store persists imported entities.
type Store interface {
	CharacterExists(ctx context.Context, name string) (bool, error)
	CreateCharacter(ctx context.Context, in models.CharacterCreate, filmIDs []int64) (*models.Character, error)
	FilmExists(ctx context.Context, title string) (bool, error)
	CreateFilm(ctx context.Context, in models.FilmCreate) (*models.Film, error)
	StarshipExists(ctx context.Context, name string) (bool, error)
	CreateStarship(ctx context.Context, in models.StarshipCreate) (*models.Starship, error)
}

// Stats summarizes one import run for a single entity type.
type Stats struct {
	Inserted int `json:"inserted"`
	Skipped  int `json:"skipped"`
}

// Importer pulls characters, films, and starships from the upstream API and
// persists them. Individual malformed or conflicting items are logged and
// skipped; only fetch and envelope failures abort a run.
type Importer struct {
	fetcher Fetcher
	store   Store
}

// New creates an Importer.
func New(fetcher Fetcher, store Store) *Importer {
	return &Importer{fetcher: fetcher, store: store}
}

// ImportCharacters fetches all character pages and stores new characters,
// linking each to its films by the identifiers embedded in the film URLs.
func (i *Importer) ImportCharacters(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	pageNum := 1

	logger.Info("Starting import of characters")

	for {
		logger.Infof("Fetching characters page %d", pageNum)
		page, err := i.fetcher.Characters(ctx, pageNum)
		if err != nil {
			return nil, fmt.Errorf("characters page %d: %w", pageNum, err)
		}

		if len(page.Results) == 0 {
			logger.Infof("No results on characters page %d, stopping", pageNum)
			break
		}

		for _, raw := range page.Results {
			i.importCharacter(ctx, raw, stats)
		}

		if page.Next == "" {
			break
		}
		pageNum++
	}

	logger.Infow("Completed importing characters",
		"inserted", stats.Inserted, "skipped", stats.Skipped)
	return stats, nil
}

func (i *Importer) importCharacter(ctx context.Context, raw json.RawMessage, stats *Stats) {
	var person swapi.Person
	if err := json.Unmarshal(raw, &person); err != nil {
		logger.Errorw("skipping malformed character item", "error", err)
		return
	}

	name := strings.TrimSpace(person.Name)
	if name == "" {
		logger.Errorw("skipping character with empty name", "item", string(raw))
		return
	}

	exists, err := i.store.CharacterExists(ctx, name)
	if err != nil {
		logger.Errorw("failed to check character existence", "character", name, "error", err)
		return
	}
	if exists {
		logger.Infof("Skipping existing character: %s", name)
		stats.Skipped++
		return
	}

	filmIDs := make([]int64, 0, len(person.Films))
	for _, filmURL := range person.Films {
		id, err := swapi.IDFromURL(filmURL)
		if err != nil {
			logger.Errorw("skipping unparseable film link",
				"character", name, "film_url", filmURL, "error", err)
			continue
		}
		filmIDs = append(filmIDs, id)
	}

	in := models.CharacterCreate{
		Name:      name,
		Gender:    optString(person.Gender),
		BirthYear: optString(person.BirthYear),
	}
	if _, err := i.store.CreateCharacter(ctx, in, filmIDs); err != nil {
		logger.Errorw("failed to insert character", "character", name, "error", err)
		return
	}

	stats.Inserted++
	logger.Infof("Inserted character: %s", name)
}

// ImportFilms fetches the film collection and stores new films. The upstream
// serves all films in one response, so no pagination is involved.
func (i *Importer) ImportFilms(ctx context.Context) (*Stats, error) {
	logger.Info("Starting import of films")

	page, err := i.fetcher.Films(ctx)
	if err != nil {
		return nil, fmt.Errorf("films: %w", err)
	}
	if page.Results == nil {
		return nil, apperr.NewDataImportError("no results in films response", nil)
	}

	stats := &Stats{}
	for _, raw := range page.Results {
		i.importFilm(ctx, raw, stats)
	}

	logger.Infow("Completed importing films",
		"inserted", stats.Inserted, "skipped", stats.Skipped)
	return stats, nil
}

func (i *Importer) importFilm(ctx context.Context, raw json.RawMessage, stats *Stats) {
	var film swapi.Film
	if err := json.Unmarshal(raw, &film); err != nil {
		logger.Errorw("skipping malformed film item", "error", err)
		return
	}

	title := strings.TrimSpace(film.Title)
	if title == "" {
		logger.Errorw("skipping film with empty title", "item", string(raw))
		return
	}

	exists, err := i.store.FilmExists(ctx, title)
	if err != nil {
		logger.Errorw("failed to check film existence", "film", title, "error", err)
		return
	}
	if exists {
		logger.Infof("Skipping existing film: %s", title)
		stats.Skipped++
		return
	}

	in := models.FilmCreate{
		Title:        title,
		EpisodeID:    film.EpisodeID,
		OpeningCrawl: optString(film.OpeningCrawl),
		Director:     optString(film.Director),
		Producer:     optString(film.Producer),
		Created:      dateutil.ParseDateTime(film.Created),
		Edited:       dateutil.ParseDateTime(film.Edited),
		URL:          optString(film.URL),
	}
	if releaseDate := dateutil.ParseDate(film.ReleaseDate); releaseDate != nil {
		d := models.NewDate(*releaseDate)
		in.ReleaseDate = &d
	}

	if _, err := i.store.CreateFilm(ctx, in); err != nil {
		logger.Errorw("failed to insert film", "film", title, "error", err)
		return
	}

	stats.Inserted++
	logger.Infof("Inserted film: %s", title)
}

// ImportStarships fetches all starship pages and stores new starships.
func (i *Importer) ImportStarships(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	pageNum := 1

	logger.Info("Starting import of starships")

	for {
		logger.Infof("Fetching starships page %d", pageNum)
		page, err := i.fetcher.Starships(ctx, pageNum)
		if err != nil {
			return nil, fmt.Errorf("starships page %d: %w", pageNum, err)
		}

		if len(page.Results) == 0 {
			logger.Infof("No results on starships page %d, stopping", pageNum)
			break
		}

		for _, raw := range page.Results {
			i.importStarship(ctx, raw, stats)
		}

		if page.Next == "" {
			break
		}
		pageNum++
	}

	logger.Infow("Completed importing starships",
		"inserted", stats.Inserted, "skipped", stats.Skipped)
	return stats, nil
}

func (i *Importer) importStarship(ctx context.Context, raw json.RawMessage, stats *Stats) {
	var starship swapi.Starship
	if err := json.Unmarshal(raw, &starship); err != nil {
		logger.Errorw("skipping malformed starship item", "error", err)
		return
	}

	name := strings.TrimSpace(starship.Name)
	if name == "" {
		logger.Errorw("skipping starship with empty name", "item", string(raw))
		return
	}

	exists, err := i.store.StarshipExists(ctx, name)
	if err != nil {
		logger.Errorw("failed to check starship existence", "starship", name, "error", err)
		return
	}
	if exists {
		logger.Infof("Skipping existing starship: %s", name)
		stats.Skipped++
		return
	}

	in := models.StarshipCreate{
		Name:          name,
		Model:         optString(starship.Model),
		Manufacturer:  optString(starship.Manufacturer),
		StarshipClass: optString(starship.StarshipClass),
	}

	created, err := i.store.CreateStarship(ctx, in)
	if err != nil {
		logger.Errorw("failed to insert starship", "starship", name, "error", err)
		return
	}
	if created == nil {
		// Creation is a soft no-op when the name raced into existence
		// between the check and the insert.
		logger.Infof("Starship already present, skipping: %s", name)
		stats.Skipped++
		return
	}

	stats.Inserted++
	logger.Infof("Inserted starship: %s", name)
}

// ImportAll runs the three imports in dependency order: films first so that
// character film links resolve, then characters, then starships.
func (i *Importer) ImportAll(ctx context.Context) error {
	if _, err := i.ImportFilms(ctx); err != nil {
		return err
	}
	if _, err := i.ImportCharacters(ctx); err != nil {
		return err
	}
	if _, err := i.ImportStarships(ctx); err != nil {
		return err
	}
	return nil
}

func optString(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}
