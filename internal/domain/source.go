package domain

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Kind tags the variant carried by a Source or a Document.
type Kind string

const (
	// KindRepoRelease documents come from the latest release of a hosted repository.
	KindRepoRelease Kind = "repoRelease"
	// KindDirectLink documents are single user-supplied URLs.
	KindDirectLink Kind = "directLink"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	return k == KindRepoRelease || k == KindDirectLink
}

// SourceID identifies a Source. It is assigned once by the registry and never changes.
type SourceID string

// Source is a user-registered origin of documents.
//
// Exactly one payload is set and it always matches Kind:
// Repo for KindRepoRelease, Link for KindDirectLink.
type Source struct {
	ID      SourceID
	Kind    Kind
	AddedAt time.Time

	Repo *RepoRelease
	Link *DirectLink
}

// RepoRelease points at a repository on the hosting platform.
type RepoRelease struct {
	Owner string
	Name  string
}

// FullName returns the "owner/name" form.
func (r RepoRelease) FullName() string {
	return r.Owner + "/" + r.Name
}

// DirectLink is a single downloadable URL with a user-editable name.
type DirectLink struct {
	URL         string
	DisplayName string
}

// ErrInvalidSource is returned when a source is missing a required field.
var ErrInvalidSource = errors.New("invalid source")

// NewRepoSource builds an unsaved repoRelease source. Fields are trimmed.
func NewRepoSource(owner, name string) Source {
	return Source{
		Kind: KindRepoRelease,
		Repo: &RepoRelease{
			Owner: strings.TrimSpace(owner),
			Name:  strings.TrimSpace(name),
		},
	}
}

// NewLinkSource builds an unsaved directLink source.
// An empty name is derived from the URL (see DisplayNameFromURL).
func NewLinkSource(rawURL, name string) Source {
	rawURL = strings.TrimSpace(rawURL)
	name = strings.TrimSpace(name)
	if name == "" {
		name = DisplayNameFromURL(rawURL)
	}
	return Source{
		Kind: KindDirectLink,
		Link: &DirectLink{
			URL:         rawURL,
			DisplayName: name,
		},
	}
}

// Validate checks the variant payload against its kind.
func (s Source) Validate() error {
	switch s.Kind {
	case KindRepoRelease:
		if s.Repo == nil || s.Link != nil {
			return fmt.Errorf("%w: repoRelease payload mismatch", ErrInvalidSource)
		}
		if strings.TrimSpace(s.Repo.Owner) == "" {
			return fmt.Errorf("%w: owner is required", ErrInvalidSource)
		}
		if strings.TrimSpace(s.Repo.Name) == "" {
			return fmt.Errorf("%w: repository name is required", ErrInvalidSource)
		}
		return nil
	case KindDirectLink:
		if s.Link == nil || s.Repo != nil {
			return fmt.Errorf("%w: directLink payload mismatch", ErrInvalidSource)
		}
		if _, err := ParseLinkURL(s.Link.URL); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidSource, err)
		}
		if strings.TrimSpace(s.Link.DisplayName) == "" {
			return fmt.Errorf("%w: display name is required", ErrInvalidSource)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidSource, s.Kind)
	}
}

// Clone returns a deep copy so callers can't mutate registry state through shared payloads.
func (s Source) Clone() Source {
	out := s
	if s.Repo != nil {
		repo := *s.Repo
		out.Repo = &repo
	}
	if s.Link != nil {
		link := *s.Link
		out.Link = &link
	}
	return out
}

// IsRepo reports whether s points at owner/name, compared case-insensitively.
func (s Source) IsRepo(owner, name string) bool {
	if s.Kind != KindRepoRelease || s.Repo == nil {
		return false
	}
	return strings.EqualFold(s.Repo.Owner, strings.TrimSpace(owner)) &&
		strings.EqualFold(s.Repo.Name, strings.TrimSpace(name))
}

// ParseLinkURL parses an absolute URL with a scheme and a host.
func ParseLinkURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("url is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid url %q: scheme and host are required", raw)
	}
	return u, nil
}
