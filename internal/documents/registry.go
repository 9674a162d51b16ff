// Package documents keeps the metadata of documents uploaded during the
// current process. Nothing is persisted.
package documents

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sirosfoundation/go-citizen-client/internal/domain"
)

// Formats used for the uploaded date and time fields.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "1/2/2006, 3:04:05 PM"
)

// Registry is an in-memory, most-recent-first list of documents.
type Registry struct {
	mu     sync.RWMutex
	docs   []domain.Document
	now    func() time.Time
	logger *zap.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		now:    time.Now,
		logger: logger.Named("documents"),
	}
}

// Add stores a new document at the front of the registry. The ID is a
// time-ordered UUID so documents added within the same millisecond never
// collide.
func (r *Registry) Add(in domain.NewDocument) (domain.Document, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return domain.Document{}, fmt.Errorf("failed to generate document id: %w", err)
	}

	now := r.now()
	doc := domain.Document{
		ID:           id.String(),
		Name:         in.Name,
		Category:     in.Category,
		Type:         in.Type,
		Size:         in.Size,
		UploadedDate: now.Format(DateLayout),
		UploadedTime: now.Format(TimeLayout),
		Source:       in.Source,
		ServiceType:  in.ServiceType,
		Provider:     in.Provider,
		FileData:     in.FileData,
		FileType:     in.FileType,
		URI:          in.URI,
	}
	if doc.Category == "" {
		doc.Category = domain.DefaultDocumentCategory
	}
	if doc.Type == "" {
		doc.Type = domain.DefaultDocumentType
	}

	r.mu.Lock()
	r.docs = slices.Insert(r.docs, 0, doc)
	r.mu.Unlock()

	r.logger.Debug("Document added",
		zap.String("id", doc.ID),
		zap.String("category", doc.Category))
	return doc, nil
}

// Remove deletes the document with the given ID. Unknown IDs are ignored.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs = slices.DeleteFunc(r.docs, func(d domain.Document) bool {
		return d.ID == id
	})
}

// Get returns the document with the given ID.
func (r *Registry) Get(id string) (domain.Document, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, d := range r.docs {
		if d.ID == id {
			return d, true
		}
	}
	return domain.Document{}, false
}

// List returns a copy of every document, most recent first.
func (r *Registry) List() []domain.Document {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.docs)
}

// ListByCategory returns documents whose category matches exactly, or all
// of them for "all".
func (r *Registry) ListByCategory(category string) []domain.Document {
	if category == domain.CategoryAll {
		return r.List()
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Document, 0)
	for _, d := range r.docs {
		if d.Category == category {
			out = append(out, d)
		}
	}
	return out
}

// Len returns the number of documents.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.docs)
}
