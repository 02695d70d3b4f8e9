package seed

import (
	"fmt"

	"github.com/MrSnakeDoc/shelf/internal/domain"
)

// Mapper converts seed entries to domain sources
type Mapper struct{}

// NewMapper creates a new mapper instance
func NewMapper() *Mapper {
	return &Mapper{}
}

// MapSources converts a Config into sources, repositories first, in file
// order. Invalid entries are skipped and reported in the second return value.
func (m *Mapper) MapSources(config Config) ([]domain.Source, []error, error) {
	var (
		sources []domain.Source
		skipped []error
	)

	for i, r := range config.Repositories {
		src := domain.NewRepoSource(r.Owner, r.Repo)
		if err := src.Validate(); err != nil {
			skipped = append(skipped, fmt.Errorf("repositories[%d]: %w", i, err))
			continue
		}
		sources = append(sources, src)
	}

	for i, l := range config.Links {
		src := domain.NewLinkSource(l.URL, l.Name)
		if err := src.Validate(); err != nil {
			skipped = append(skipped, fmt.Errorf("links[%d]: %w", i, err))
			continue
		}
		sources = append(sources, src)
	}

	if len(sources) == 0 {
		return nil, skipped, fmt.Errorf("no valid sources found in seed file")
	}

	return sources, skipped, nil
}
