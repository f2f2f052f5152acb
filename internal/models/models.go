// Package models defines the persisted entities and their JSON contracts.
package models

import (
	"fmt"
	"time"
)

// Date is a calendar date serialized as YYYY-MM-DD.
type Date struct {
	time.Time
}

const dateLayout = "2006-01-02"

// NewDate wraps t as a Date.
func NewDate(t time.Time) Date {
	return Date{Time: t}
}

// MarshalJSON serializes the date as "YYYY-MM-DD".
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%q", d.Format(dateLayout))), nil
}

// UnmarshalJSON parses a "YYYY-MM-DD" string.
func (d *Date) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" {
		return nil
	}
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

// FilmRef is a minimal film reference embedded in other entities.
type FilmRef struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

// NamedRef is a minimal id/name reference embedded in other entities.
type NamedRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Character is a Star Wars character with its film references.
type Character struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Gender    *string   `json:"gender,omitempty"`
	BirthYear *string   `json:"birth_year,omitempty"`
	Films     []FilmRef `json:"films"`
}

// CharacterCreate carries the fields needed to create a character.
type CharacterCreate struct {
	Name      string  `json:"name"`
	Gender    *string `json:"gender,omitempty"`
	BirthYear *string `json:"birth_year,omitempty"`
}

// Film is a Star Wars film with its relational links.
type Film struct {
	ID           int64      `json:"id"`
	Title        string     `json:"title"`
	EpisodeID    *int       `json:"episode_id,omitempty"`
	OpeningCrawl *string    `json:"opening_crawl,omitempty"`
	Director     *string    `json:"director,omitempty"`
	Producer     *string    `json:"producer,omitempty"`
	ReleaseDate  *Date      `json:"release_date,omitempty"`
	Created      *time.Time `json:"created,omitempty"`
	Edited       *time.Time `json:"edited,omitempty"`
	URL          *string    `json:"url,omitempty"`
	Characters   []NamedRef `json:"characters"`
	Planets      []NamedRef `json:"planets,omitempty"`
	Starships    []NamedRef `json:"starships,omitempty"`
	Vehicles     []NamedRef `json:"vehicles,omitempty"`
	Species      []NamedRef `json:"species,omitempty"`
}

// FilmCreate carries the fields needed to create a film.
type FilmCreate struct {
	Title        string     `json:"title"`
	EpisodeID    *int       `json:"episode_id,omitempty"`
	OpeningCrawl *string    `json:"opening_crawl,omitempty"`
	Director     *string    `json:"director,omitempty"`
	Producer     *string    `json:"producer,omitempty"`
	ReleaseDate  *Date      `json:"release_date,omitempty"`
	Created      *time.Time `json:"created,omitempty"`
	Edited       *time.Time `json:"edited,omitempty"`
	URL          *string    `json:"url,omitempty"`
}

// Starship is a Star Wars starship. Responses are flat; starship
// relations exist only at the schema level.
type Starship struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	Model         *string `json:"model,omitempty"`
	Manufacturer  *string `json:"manufacturer,omitempty"`
	StarshipClass *string `json:"starship_class,omitempty"`
}

// StarshipCreate carries the fields needed to create a starship.
type StarshipCreate struct {
	Name          string  `json:"name"`
	Model         *string `json:"model,omitempty"`
	Manufacturer  *string `json:"manufacturer,omitempty"`
	StarshipClass *string `json:"starship_class,omitempty"`
}

