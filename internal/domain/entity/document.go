package entity

import "time"

// DocumentID references a document owned by the external document store.
type DocumentID = string

// Document is the unit of content the workbench edits. It is owned by the
// document store and referenced from tabs by id only. Closing a tab does not
// destroy its document; documents are destroyed only when explicitly deleted.
type Document struct {
	ID        string
	Name      string
	Content   string
	Language  string
	IsDirty   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewDocument creates a document with the given content.
func NewDocument(id, name, content, language string) *Document {
	now := Now()
	return &Document{
		ID:        id,
		Name:      name,
		Content:   content,
		Language:  language,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
