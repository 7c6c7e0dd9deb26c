package storage

import (
	"context"
	"sync"

	"github.com/afrinict/nbcportal-sub001/internal/domain/licensing"
	"github.com/google/uuid"
)

// Ensure MemoryDocumentStore implements DocumentStore
var _ licensing.DocumentStore = (*MemoryDocumentStore)(nil)

// MemoryDocumentStore keeps document state in process memory.
// Use it for local development and tests.
type MemoryDocumentStore struct {
	mu        sync.RWMutex
	documents map[documentKey]bool
}

type documentKey struct {
	applicationID uuid.UUID
	documentType  string
}

// NewMemoryDocumentStore creates an empty store
func NewMemoryDocumentStore() *MemoryDocumentStore {
	return &MemoryDocumentStore{documents: make(map[documentKey]bool)}
}

// Put records a document as present, verified or not
func (s *MemoryDocumentStore) Put(applicationID uuid.UUID, documentType string, verified bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents[documentKey{applicationID, documentType}] = verified
}

// Remove forgets a document
func (s *MemoryDocumentStore) Remove(applicationID uuid.UUID, documentType string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.documents, documentKey{applicationID, documentType})
}

// IsVerified implements licensing.DocumentStore
func (s *MemoryDocumentStore) IsVerified(ctx context.Context, applicationID uuid.UUID, documentType string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.documents[documentKey{applicationID, documentType}], nil
}
