package registry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/MrSnakeDoc/shelf/internal/domain"
)

// record is the persisted shape of a Source. The collection is stored as a
// flat JSON array of records with no schema version.
//
// Older writers stored the variant in "type" ("github" | "link") or not at
// all; both are read, only "kind" is written.
type record struct {
	ID      recordID    `json:"id"`
	Kind    domain.Kind `json:"kind,omitempty"`
	Type    string      `json:"type,omitempty"`
	Owner   string      `json:"owner,omitempty"`
	Repo    string      `json:"repo,omitempty"`
	URL     string      `json:"url,omitempty"`
	Name    string      `json:"name,omitempty"`
	AddedAt time.Time   `json:"addedAt"`
}

// recordID accepts both string ids and the numeric millisecond ids of older records.
type recordID string

func (id *recordID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = recordID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or a number: %w", err)
	}
	*id = recordID(n.String())
	return nil
}

func (r record) kind() (domain.Kind, error) {
	switch {
	case r.Kind.Valid():
		return r.Kind, nil
	case r.Kind != "":
		return "", fmt.Errorf("unknown kind %q", r.Kind)
	}

	switch strings.ToLower(r.Type) {
	case "link":
		return domain.KindDirectLink, nil
	case "", "github":
		return domain.KindRepoRelease, nil
	default:
		return "", fmt.Errorf("unknown type %q", r.Type)
	}
}

func (r record) toSource() (domain.Source, error) {
	kind, err := r.kind()
	if err != nil {
		return domain.Source{}, err
	}

	s := domain.Source{
		ID:      domain.SourceID(r.ID),
		Kind:    kind,
		AddedAt: r.AddedAt,
	}
	switch kind {
	case domain.KindRepoRelease:
		s.Repo = &domain.RepoRelease{Owner: r.Owner, Name: r.Repo}
	case domain.KindDirectLink:
		name := r.Name
		if strings.TrimSpace(name) == "" {
			// older writers saved renames without checking for an empty name
			name = domain.DisplayNameFromURL(r.URL)
		}
		s.Link = &domain.DirectLink{URL: r.URL, DisplayName: name}
	}

	if s.ID == "" {
		return domain.Source{}, fmt.Errorf("%w: missing id", domain.ErrInvalidSource)
	}
	if err := s.Validate(); err != nil {
		return domain.Source{}, err
	}
	return s, nil
}

func fromSource(s domain.Source) record {
	r := record{
		ID:      recordID(s.ID),
		Kind:    s.Kind,
		AddedAt: s.AddedAt.UTC(),
	}
	switch s.Kind {
	case domain.KindRepoRelease:
		r.Owner = s.Repo.Owner
		r.Repo = s.Repo.Name
	case domain.KindDirectLink:
		r.URL = s.Link.URL
		r.Name = s.Link.DisplayName
	}
	return r
}

// Unreadable is a stored record that could not be turned into a Source.
// Raw is written back as is by Encode, so later writes never drop it.
type Unreadable struct {
	Raw json.RawMessage
	Err error
}

// Encode serializes the full collection in order, followed by the unreadable
// records carried over from the last Decode.
func Encode(sources []domain.Source, unreadable ...Unreadable) ([]byte, error) {
	items := make([]any, 0, len(sources)+len(unreadable))
	for _, s := range sources {
		items = append(items, fromSource(s))
	}
	for _, u := range unreadable {
		items = append(items, u.Raw)
	}
	data, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("failed to encode sources: %w", err)
	}
	return data, nil
}

// Decode parses a stored collection, preserving order. Empty link names are
// derived from the URL. Records that still fail validation are returned in
// unreadable with their raw JSON.
func Decode(data []byte) (sources []domain.Source, unreadable []Unreadable, err error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return []domain.Source{}, nil, nil
	}

	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, nil, fmt.Errorf("failed to decode sources: %w", err)
	}

	sources = make([]domain.Source, 0, len(raws))
	for i, raw := range raws {
		var r record
		if err := json.Unmarshal(raw, &r); err != nil {
			unreadable = append(unreadable, Unreadable{Raw: raw, Err: fmt.Errorf("record %d: %w", i, err)})
			continue
		}
		s, err := r.toSource()
		if err != nil {
			unreadable = append(unreadable, Unreadable{Raw: raw, Err: fmt.Errorf("record %d: %w", i, err)})
			continue
		}
		sources = append(sources, s)
	}
	return sources, unreadable, nil
}
