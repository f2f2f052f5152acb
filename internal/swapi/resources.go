package swapi

import (
	"fmt"
	"strconv"
	"strings"
)

// Person is one entry from the upstream people/ resource. Relation fields
// hold upstream URLs.
type Person struct {
	Name      string   `json:"name"`
	BirthYear string   `json:"birth_year"`
	Gender    string   `json:"gender"`
	Homeworld string   `json:"homeworld"`
	Films     []string `json:"films"`
	Species   []string `json:"species"`
	Vehicles  []string `json:"vehicles"`
	Starships []string `json:"starships"`
	URL       string   `json:"url"`
}

// Film is one entry from the upstream films/ resource.
type Film struct {
	Title        string   `json:"title"`
	EpisodeID    *int     `json:"episode_id"`
	OpeningCrawl string   `json:"opening_crawl"`
	Director     string   `json:"director"`
	Producer     string   `json:"producer"`
	ReleaseDate  string   `json:"release_date"`
	Characters   []string `json:"characters"`
	Planets      []string `json:"planets"`
	Starships    []string `json:"starships"`
	Vehicles     []string `json:"vehicles"`
	Species      []string `json:"species"`
	Created      string   `json:"created"`
	Edited       string   `json:"edited"`
	URL          string   `json:"url"`
}

// Starship is one entry from the upstream starships/ resource.
type Starship struct {
	Name          string   `json:"name"`
	Model         string   `json:"model"`
	Manufacturer  string   `json:"manufacturer"`
	StarshipClass string   `json:"starship_class"`
	Films         []string `json:"films"`
	URL           string   `json:"url"`
}

// IDFromURL extracts the numeric identifier from an upstream resource URL,
// which carries it as the last path segment (with or without a trailing
// slash).
func IDFromURL(rawURL string) (int64, error) {
	trimmed := strings.TrimSuffix(strings.TrimSpace(rawURL), "/")
	idx := strings.LastIndex(trimmed, "/")
	if idx < 0 || idx == len(trimmed)-1 {
		return 0, fmt.Errorf("no identifier segment in URL %q", rawURL)
	}

	id, err := strconv.ParseInt(trimmed[idx+1:], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("non-numeric identifier in URL %q: %w", rawURL, err)
	}
	return id, nil
}
