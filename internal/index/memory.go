package index

import (
	"sync"
	"time"

	"github.com/MrSnakeDoc/shelf/internal/domain"
)

// MemoryIndex holds the document catalog derived from the registered sources.
// The catalog is never persisted; it is rebuilt by every refresh.
//
// Refreshes may overlap. Each one takes a token from BeginRefresh and only the
// latest issued token may replace the catalog, so a slow older run can never
// overwrite a newer result.
type MemoryIndex struct {
	mu          sync.RWMutex
	documents   []domain.Document         // newest first
	byKey       map[string]domain.Document // Key -> Document
	failed      int                        // sources that failed in the last committed refresh
	noDocuments bool
	lastRefresh time.Time // Timestamp of last committed refresh
	issued      uint64    // latest token handed out
	committed   uint64    // token of the catalog currently held
}

// Snapshot is the committed catalog and the outcome of the refresh that built it.
type Snapshot struct {
	Documents   []domain.Document `json:"documents"`
	Failed      int               `json:"failed"`
	NoDocuments bool              `json:"no_documents"`
	Refreshing  bool              `json:"refreshing"`
	LastRefresh time.Time         `json:"last_refresh"`
}

// NewMemoryIndex creates a new memory index
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		documents: []domain.Document{},
		byKey:     make(map[string]domain.Document),
	}
}

// BeginRefresh issues the token of a new refresh run. Issuing a token
// invalidates every token issued before it.
func (idx *MemoryIndex) BeginRefresh() uint64 {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.issued++
	return idx.issued
}

// Commit replaces the catalog with docs if token is still the latest issued.
// It reports whether the catalog was replaced.
func (idx *MemoryIndex) Commit(token uint64, docs []domain.Document, failed int, noDocuments bool) bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if token != idx.issued {
		return false
	}

	// Clear and rebuild
	idx.documents = append(make([]domain.Document, 0, len(docs)), docs...)
	idx.byKey = make(map[string]domain.Document, len(docs))
	for _, d := range docs {
		idx.byKey[d.Key] = d
	}
	idx.failed = failed
	idx.noDocuments = noDocuments
	idx.committed = token
	idx.lastRefresh = time.Now()
	return true
}

// Abandon ends the run holding token without touching the catalog, so the
// index stops reporting a refresh in progress. It reports whether token was
// still the latest issued.
func (idx *MemoryIndex) Abandon(token uint64) bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if token != idx.issued {
		return false
	}
	idx.committed = token
	return true
}

// GetDocument retrieves a document by key
func (idx *MemoryIndex) GetDocument(key string) (domain.Document, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	doc, ok := idx.byKey[key]
	return doc, ok
}

// GetAllDocuments returns all documents, newest first
func (idx *MemoryIndex) GetAllDocuments() []domain.Document {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return append(make([]domain.Document, 0, len(idx.documents)), idx.documents...)
}

// Count returns the number of documents in the index
func (idx *MemoryIndex) Count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return len(idx.documents)
}

// Refreshing reports whether a refresh was issued and has not committed yet.
func (idx *MemoryIndex) Refreshing() bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return idx.issued != idx.committed
}

// GetLastRefresh returns the timestamp of the last committed refresh
func (idx *MemoryIndex) GetLastRefresh() time.Time {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return idx.lastRefresh
}

// Snapshot returns the catalog together with its refresh outcome.
func (idx *MemoryIndex) Snapshot() Snapshot {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return Snapshot{
		Documents:   append(make([]domain.Document, 0, len(idx.documents)), idx.documents...),
		Failed:      idx.failed,
		NoDocuments: idx.noDocuments,
		Refreshing:  idx.issued != idx.committed,
		LastRefresh: idx.lastRefresh,
	}
}
