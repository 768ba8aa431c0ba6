package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/haasonsaas/conductor/pkg/models"
)

// KnowledgeRegistry serves the knowledge catalog the knowledgebase tool
// matches against. Like Registry, it swaps snapshots atomically on
// Reload.
type KnowledgeRegistry struct {
	path string
	docs atomic.Pointer[[]models.KnowledgeDocument]
}

// NewKnowledgeRegistry loads path and returns a ready KnowledgeRegistry.
func NewKnowledgeRegistry(path string) (*KnowledgeRegistry, error) {
	r := &KnowledgeRegistry{path: path}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload re-reads the knowledge catalog file and atomically swaps it in.
func (r *KnowledgeRegistry) Reload() error {
	raw, err := os.ReadFile(r.path)
	if err != nil {
		return fmt.Errorf("read knowledge catalog %s: %w", r.path, err)
	}
	var doc models.KnowledgeCatalogDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parse knowledge catalog %s: %w", r.path, err)
	}
	docs := doc.Documents
	r.docs.Store(&docs)
	return nil
}

// Documents returns every loaded knowledge document.
func (r *KnowledgeRegistry) Documents() []models.KnowledgeDocument {
	p := r.docs.Load()
	if p == nil {
		return nil
	}
	return *p
}

// Get returns the document for a specific sub-document key.
func (r *KnowledgeRegistry) Get(key string) (models.KnowledgeDocument, bool) {
	for _, d := range r.Documents() {
		if d.Key == key {
			return d, true
		}
	}
	return models.KnowledgeDocument{}, false
}
