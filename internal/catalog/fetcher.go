// Package catalog turns the registered sources into the document list.
package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MrSnakeDoc/shelf/internal/domain"
	"github.com/MrSnakeDoc/shelf/internal/github"
	"github.com/MrSnakeDoc/shelf/internal/logger"
)

const (
	// DefaultExtension is the file extension release assets are kept by.
	DefaultExtension = ".pdf"
	// DefaultDateLayout formats Document.DateLabel.
	DefaultDateLayout = "2006-01-02"
)

// ReleaseSource resolves the latest release of a repository.
type ReleaseSource interface {
	LatestRelease(ctx context.Context, owner, name string) (*github.Release, error)
	RepositoryURL(owner, name string) string
}

// Options tunes how documents are built.
type Options struct {
	Extension  string
	DateLayout string
	Location   *time.Location
}

// Fetcher aggregates documents from every source.
type Fetcher struct {
	releases   ReleaseSource
	logger     logger.Logger
	extension  string
	dateLayout string
	location   *time.Location
}

// Result is the outcome of one aggregation run.
type Result struct {
	Documents []domain.Document
	// Failed counts repository sources that contributed nothing because their fetch failed.
	Failed int
	// NoDocuments is set when sources were given but nothing was found. It is informational.
	NoDocuments bool
}

// NewFetcher creates a Fetcher.
func NewFetcher(releases ReleaseSource, opts Options, log logger.Logger) *Fetcher {
	ext := strings.ToLower(strings.TrimSpace(opts.Extension))
	if ext == "" {
		ext = DefaultExtension
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	layout := opts.DateLayout
	if layout == "" {
		layout = DefaultDateLayout
	}
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}

	return &Fetcher{
		releases:   releases,
		logger:     log,
		extension:  ext,
		dateLayout: layout,
		location:   loc,
	}
}

// Fetch resolves every source. Repository releases are fetched concurrently
// with no limit and all of them settle before the merge. A failing source only
// contributes zero documents; Fetch itself never fails.
func (f *Fetcher) Fetch(ctx context.Context, sources []domain.Source) Result {
	var repos, links []domain.Source
	for _, s := range sources {
		switch s.Kind {
		case domain.KindRepoRelease:
			repos = append(repos, s)
		case domain.KindDirectLink:
			links = append(links, s)
		default:
			f.logger.Warn("skipping source of unknown kind",
				logger.String("id", string(s.ID)),
				logger.String("kind", string(s.Kind)))
		}
	}

	perRepo := make([][]domain.Document, len(repos))
	failed := make([]bool, len(repos))

	var g errgroup.Group
	for i, src := range repos {
		g.Go(func() error {
			docs, err := f.fetchRepo(ctx, src)
			if err != nil {
				failed[i] = true
				f.logger.Warn("source fetch failed, skipping",
					logger.String("id", string(src.ID)),
					logger.String("repo", src.Repo.FullName()),
					logger.Error(err))
				return nil // a single source never fails the run
			}
			perRepo[i] = docs
			return nil
		})
	}
	_ = g.Wait()

	docs := make([]domain.Document, 0, len(links))
	res := Result{}
	for i := range repos {
		if failed[i] {
			res.Failed++
			continue
		}
		docs = append(docs, perRepo[i]...)
	}
	for _, src := range links {
		docs = append(docs, f.linkDocument(src))
	}

	domain.SortNewestFirst(docs)

	res.Documents = docs
	res.NoDocuments = len(docs) == 0 && len(sources) > 0

	f.logger.Info("catalog aggregated",
		logger.Int("sources", len(sources)),
		logger.Int("documents", len(docs)),
		logger.Int("failed", res.Failed))
	return res
}

func (f *Fetcher) fetchRepo(ctx context.Context, src domain.Source) ([]domain.Document, error) {
	release, err := f.releases.LatestRelease(ctx, src.Repo.Owner, src.Repo.Name)
	if err != nil {
		return nil, err
	}
	if release == nil {
		return nil, fmt.Errorf("%w: empty release", github.ErrMalformed)
	}

	repoURL := f.releases.RepositoryURL(src.Repo.Owner, src.Repo.Name)
	docs := make([]domain.Document, 0, len(release.Assets))
	for _, asset := range release.Assets {
		if !strings.HasSuffix(strings.ToLower(asset.Name), f.extension) {
			continue
		}
		docs = append(docs, domain.Document{
			Key:          domain.RepoDocumentKey(src.ID, asset.ID),
			Kind:         domain.KindRepoRelease,
			SourceID:     src.ID,
			Name:         asset.Name,
			DownloadURL:  asset.BrowserDownloadURL,
			SizeLabel:    domain.SizeLabel(asset.Size),
			PublishedAt:  asset.CreatedAt,
			DateLabel:    f.dateLabel(asset.CreatedAt),
			VersionLabel: release.TagName,
			OriginLabel:  src.Repo.FullName(),
			Repo: &domain.DocumentRepo{
				Owner:         src.Repo.Owner,
				Name:          src.Repo.Name,
				ReleaseURL:    release.HTMLURL,
				RepositoryURL: repoURL,
			},
		})
	}
	return docs, nil
}

func (f *Fetcher) linkDocument(src domain.Source) domain.Document {
	return domain.Document{
		Key:          domain.LinkDocumentKey(src.ID),
		Kind:         domain.KindDirectLink,
		SourceID:     src.ID,
		Name:         src.Link.DisplayName,
		DownloadURL:  src.Link.URL,
		SizeLabel:    domain.UnknownSize,
		PublishedAt:  src.AddedAt,
		DateLabel:    f.dateLabel(src.AddedAt),
		VersionLabel: domain.LinkVersion,
		OriginLabel:  domain.HostLabel(src.Link.URL),
	}
}

func (f *Fetcher) dateLabel(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(f.location).Format(f.dateLayout)
}
