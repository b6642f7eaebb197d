// Package documents implements the in-memory document store. Documents are
// session-scoped: they are rebuilt from snapshots at startup and referenced
// from tabs purely by id.
package documents

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/tessera-ide/tessera/internal/application/port"
	"github.com/tessera-ide/tessera/internal/domain/entity"
)

// ErrNotFound is returned when a document id is unknown.
var ErrNotFound = fmt.Errorf("document not found")

// Store is a concurrency-safe in-memory document store.
type Store struct {
	mu   sync.RWMutex
	docs map[string]*entity.Document
}

var _ port.DocumentStore = (*Store)(nil)

// NewStore creates an empty document store.
func NewStore() *Store {
	return &Store{docs: make(map[string]*entity.Document)}
}

// CreateDocument creates a document and returns its id.
func (s *Store) CreateDocument(_ context.Context, name, content, language string) (string, error) {
	doc := entity.NewDocument(uuid.NewString(), name, content, language)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[doc.ID] = doc
	return doc.ID, nil
}

// GetDocument returns a copy of the document, or nil when it does not exist.
func (s *Store) GetDocument(_ context.Context, documentID string) (*entity.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[documentID]
	if !ok {
		return nil, nil
	}
	copied := *doc
	return &copied, nil
}

// UpdateDocumentContent replaces the document's content and marks it dirty.
func (s *Store) UpdateDocumentContent(_ context.Context, documentID, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[documentID]
	if !ok {
		return fmt.Errorf("update document %s: %w", documentID, ErrNotFound)
	}
	doc.Content = content
	doc.IsDirty = true
	doc.UpdatedAt = entity.Now()
	return nil
}

// RenameDocument changes the document's display name.
func (s *Store) RenameDocument(_ context.Context, documentID, newName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[documentID]
	if !ok {
		return fmt.Errorf("rename document %s: %w", documentID, ErrNotFound)
	}
	doc.Name = newName
	doc.UpdatedAt = entity.Now()
	return nil
}

// DeleteDocument destroys the document. Deleting an unknown id is a no-op.
func (s *Store) DeleteDocument(_ context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, documentID)
	return nil
}

// MarkClean clears the dirty flag after an explicit save.
func (s *Store) MarkClean(_ context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[documentID]
	if !ok {
		return fmt.Errorf("mark clean %s: %w", documentID, ErrNotFound)
	}
	doc.IsDirty = false
	return nil
}

// Len returns the number of stored documents.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}
