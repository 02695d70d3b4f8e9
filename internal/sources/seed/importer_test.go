package seed

import (
	"context"
	"errors"
	"testing"

	"github.com/MrSnakeDoc/shelf/internal/domain"
	"github.com/MrSnakeDoc/shelf/internal/logger"
)

type fakeRegistry struct {
	sources []domain.Source
	addErr  error
}

func (r *fakeRegistry) Len() int { return len(r.sources) }

func (r *fakeRegistry) Add(_ context.Context, src domain.Source) (domain.Source, error) {
	if r.addErr != nil {
		return domain.Source{}, r.addErr
	}
	r.sources = append(r.sources, src)
	return src, nil
}

const seedYAML = `repositories:
  - owner: acme
    repo: handbook
links:
  - url: https://example.org/a.pdf
`

func TestImporterImport(t *testing.T) {
	reg := &fakeRegistry{}
	im := NewImporter(writeSeed(t, seedYAML), logger.NewNop())

	n, err := im.Import(context.Background(), reg)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if n != 2 || len(reg.sources) != 2 {
		t.Errorf("Import() added %v sources (registry has %v), want 2", n, len(reg.sources))
	}
}

func TestImporterSkipsNonEmptyRegistry(t *testing.T) {
	reg := &fakeRegistry{sources: []domain.Source{domain.NewRepoSource("a", "b")}}
	im := NewImporter(writeSeed(t, seedYAML), logger.NewNop())

	n, err := im.Import(context.Background(), reg)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if n != 0 || len(reg.sources) != 1 {
		t.Errorf("Import() touched a non-empty registry: added %v", n)
	}
}

func TestImporterAddFailure(t *testing.T) {
	reg := &fakeRegistry{addErr: errors.New("storage down")}
	im := NewImporter(writeSeed(t, seedYAML), logger.NewNop())

	if _, err := im.Import(context.Background(), reg); err == nil {
		t.Error("Import() should fail when the registry cannot persist")
	}
}
