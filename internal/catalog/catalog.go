// Package catalog loads and serves the agent and knowledge catalogs: the
// JSON documents that declare which agents exist, their prompts and
// routing keywords, and which knowledge sub-documents the knowledgebase
// tool can answer from (spec.md §3, §4.1, §6).
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/haasonsaas/conductor/pkg/models"
)

// snapshot is the immutable state swapped atomically on Reload.
type snapshot struct {
	agents   []models.AgentDefinition
	byID     map[string]models.AgentDefinition
	byTag    map[string][]string // capability/skill tag -> agent ids, in declaration order
	keywords map[string][]string // agent id -> routing keywords
}

// Registry serves the agent catalog. List/Get/ByCapability/Keywords read
// a snapshot with no locking; Reload builds a new snapshot and swaps it
// in atomically, so readers never observe a half-loaded catalog
// (spec.md §5).
type Registry struct {
	path string
	snap atomic.Pointer[snapshot]
}

// NewRegistry loads path and returns a ready Registry.
func NewRegistry(path string) (*Registry, error) {
	r := &Registry{path: path}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload re-reads the catalog file, validates it, and atomically swaps
// the Registry's view over to the new snapshot. A reload that fails
// validation leaves the Registry serving its previous snapshot.
func (r *Registry) Reload() error {
	raw, err := os.ReadFile(r.path)
	if err != nil {
		return fmt.Errorf("read catalog %s: %w", r.path, err)
	}
	if err := ValidateSchema(raw); err != nil {
		return fmt.Errorf("catalog %s: %w", r.path, err)
	}
	var doc models.AgentCatalogDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parse catalog %s: %w", r.path, err)
	}
	if err := validateCatalog(&doc); err != nil {
		return fmt.Errorf("catalog %s: %w", r.path, err)
	}

	next := &snapshot{
		agents:   doc.Agents,
		byID:     make(map[string]models.AgentDefinition, len(doc.Agents)),
		byTag:    make(map[string][]string),
		keywords: make(map[string][]string, len(doc.Agents)),
	}
	for _, a := range doc.Agents {
		next.byID[a.ID] = a
		next.keywords[a.ID] = a.RoutingKeywords
		for _, tag := range a.Capabilities {
			next.byTag[tag] = append(next.byTag[tag], a.ID)
		}
		for _, tag := range a.Skills {
			next.byTag[tag] = append(next.byTag[tag], a.ID)
		}
	}
	r.snap.Store(next)
	return nil
}

func (r *Registry) current() *snapshot {
	s := r.snap.Load()
	if s == nil {
		return &snapshot{}
	}
	return s
}

// List returns every active agent, in catalog declaration order.
func (r *Registry) List() []models.AgentDefinition {
	s := r.current()
	out := make([]models.AgentDefinition, 0, len(s.agents))
	for _, a := range s.agents {
		if a.Active {
			out = append(out, a)
		}
	}
	return out
}

// Get returns the agent definition for id, or false if it doesn't exist
// or isn't active.
func (r *Registry) Get(id string) (models.AgentDefinition, bool) {
	a, ok := r.current().byID[id]
	if !ok || !a.Active {
		return models.AgentDefinition{}, false
	}
	return a, true
}

// ByCapability returns the ids of agents declaring the given capability
// or skill tag, in catalog declaration order.
func (r *Registry) ByCapability(tag string) []string {
	return r.current().byTag[tag]
}

// Keywords returns the routing keywords declared for agent id.
func (r *Registry) Keywords(id string) []string {
	return r.current().keywords[id]
}

func validateCatalog(doc *models.AgentCatalogDocument) error {
	seen := make(map[string]bool, len(doc.Agents))
	for i, a := range doc.Agents {
		if a.ID == "" {
			return fmt.Errorf("agent at index %d missing id", i)
		}
		if a.SystemPrompt == "" {
			return fmt.Errorf("agent %q missing system_prompt", a.ID)
		}
		if seen[a.ID] {
			return fmt.Errorf("duplicate agent id %q", a.ID)
		}
		seen[a.ID] = true
	}
	return nil
}
