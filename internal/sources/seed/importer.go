package seed

import (
	"context"
	"fmt"

	"github.com/MrSnakeDoc/shelf/internal/domain"
	"github.com/MrSnakeDoc/shelf/internal/logger"
)

// Registry is what the importer needs from the source registry.
type Registry interface {
	Len() int
	Add(ctx context.Context, src domain.Source) (domain.Source, error)
}

// Importer adds the sources of a seed file to an empty registry.
type Importer struct {
	loader *Loader
	mapper *Mapper
	logger logger.Logger
}

// NewImporter creates a new importer for the seed file at filePath
func NewImporter(filePath string, log logger.Logger) *Importer {
	return &Importer{
		loader: NewLoader(filePath),
		mapper: NewMapper(),
		logger: log,
	}
}

// Import loads the seed file into reg unless reg already holds sources.
// It returns the number of sources added.
func (im *Importer) Import(ctx context.Context, reg Registry) (int, error) {
	if n := reg.Len(); n > 0 {
		im.logger.Info("registry not empty, skipping seed import",
			logger.Int("sources", n))
		return 0, nil
	}

	config, err := im.loader.Load()
	if err != nil {
		return 0, err
	}

	sources, skipped, err := im.mapper.MapSources(config)
	for _, s := range skipped {
		im.logger.Warn("skipping invalid seed entry", logger.Error(s))
	}
	if err != nil {
		return 0, err
	}

	added := 0
	for _, src := range sources {
		if _, err := reg.Add(ctx, src); err != nil {
			return added, fmt.Errorf("failed to add seed source: %w", err)
		}
		added++
	}

	im.logger.Info("imported seed sources", logger.Int("count", added))
	return added, nil
}
