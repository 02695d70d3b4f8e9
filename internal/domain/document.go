package domain

import (
	"fmt"
	"sort"
	"time"
)

const (
	// UnknownSize is the size label of documents whose size is not known up front.
	UnknownSize = "Unknown"
	// LinkVersion is the version label of every directLink document.
	LinkVersion = "Link"
)

// Document is one downloadable artifact resolved from a Source.
// Documents are rebuilt on every refresh and never persisted.
type Document struct {
	Key          string    `json:"key"`
	Kind         Kind      `json:"kind"`
	SourceID     SourceID  `json:"source_id"`
	Name         string    `json:"name"`
	DownloadURL  string    `json:"download_url"`
	SizeLabel    string    `json:"size"`
	PublishedAt  time.Time `json:"published_at"`
	DateLabel    string    `json:"date"`
	VersionLabel string    `json:"version"`
	OriginLabel  string    `json:"origin"`

	// Repo is set for KindRepoRelease documents only.
	Repo *DocumentRepo `json:"repo,omitempty"`
}

// DocumentRepo carries the repository side of a repoRelease document.
type DocumentRepo struct {
	Owner         string `json:"owner"`
	Name          string `json:"name"`
	ReleaseURL    string `json:"release_url"`
	RepositoryURL string `json:"repository_url"`
}

// RepoDocumentKey identifies a release asset document across refreshes.
func RepoDocumentKey(id SourceID, assetID int64) string {
	return fmt.Sprintf("gh-%s-%d", id, assetID)
}

// LinkDocumentKey identifies a direct link document across refreshes.
func LinkDocumentKey(id SourceID) string {
	return "link-" + string(id)
}

// SizeLabel renders a byte count in megabytes with two decimals.
func SizeLabel(bytes int64) string {
	return fmt.Sprintf("%.2f MB", float64(bytes)/1024/1024)
}

// SortNewestFirst orders documents by PublishedAt descending. Ties keep their input order.
func SortNewestFirst(docs []Document) {
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].PublishedAt.After(docs[j].PublishedAt)
	})
}
