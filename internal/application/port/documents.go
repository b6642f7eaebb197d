package port

import (
	"context"

	"github.com/tessera-ide/tessera/internal/domain/entity"
)

// DocumentStore is the external document collaborator. The panel tree and
// persistence layer consume it purely by id and never inline document bytes
// into the tree.
type DocumentStore interface {
	// CreateDocument creates a document and returns its id.
	CreateDocument(ctx context.Context, name, content, language string) (string, error)

	// GetDocument returns the document, or nil when it does not exist.
	GetDocument(ctx context.Context, documentID string) (*entity.Document, error)

	// UpdateDocumentContent replaces the document's content and marks it dirty.
	UpdateDocumentContent(ctx context.Context, documentID, content string) error

	// RenameDocument changes the document's display name.
	RenameDocument(ctx context.Context, documentID, newName string) error

	// DeleteDocument destroys the document. Closing a tab never calls this;
	// documents outlive their tabs until explicitly deleted.
	DeleteDocument(ctx context.Context, documentID string) error
}
