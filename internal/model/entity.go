package model

import (
	"sort"

	"github.com/cordlesssteve/topolop/internal/util"
)

type EntityType string

const (
	EntityTypeFile        EntityType = "file"
	EntityTypeDependency  EntityType = "dependency"
	EntityTypeApplication EntityType = "application"
	EntityTypeProject     EntityType = "project"
	EntityTypeSystem      EntityType = "system"
)

// entityRank orders types by specificity. When two adapters claim the same
// canonical path with different types, the more specific one wins.
var entityRank = map[EntityType]int{
	EntityTypeProject:     5,
	EntityTypeApplication: 4,
	EntityTypeFile:        3,
	EntityTypeDependency:  2,
	EntityTypeSystem:      1,
}

func ValidEntityType(t EntityType) bool {
	_, ok := entityRank[t]
	return ok
}

// Entity is anything an issue can attach to: usually a file, sometimes a
// dependency manifest or an APM application addressed by a pseudo-path.
type Entity struct {
	ID                 string            `json:"id"`
	Type               EntityType        `json:"type"`
	Name               string            `json:"name"`
	CanonicalPath      string            `json:"canonicalPath"`
	OriginalIdentifier string            `json:"originalIdentifier"`
	ToolName           string            `json:"toolName"`
	Confidence         float64           `json:"confidence"`
	Metadata           map[string]string `json:"metadata,omitempty"`
}

// EntityID derives the stable id for a canonical path. Identical artifacts get
// identical ids across runs and tools.
func EntityID(canonicalPath string) string {
	return util.Hash16("entity|" + canonicalPath)
}

// EntityRegistry deduplicates entities by canonical path for one report build.
// It is owned by the ingestion goroutine; adapter conversions reach it only
// through that goroutine, so no locking is needed.
type EntityRegistry struct {
	byPath map[string]*Entity
}

func NewEntityRegistry() *EntityRegistry {
	return &EntityRegistry{byPath: make(map[string]*Entity)}
}

// GetOrCreate returns the entity registered for canonicalPath, creating it on
// first reference. A later call with a more specific type upgrades the entity
// and records the conflict; a less specific claim is only recorded.
func (r *EntityRegistry) GetOrCreate(canonicalPath string, typ EntityType, name, originalIdentifier, toolName string, confidence float64) *Entity {
	if e, ok := r.byPath[canonicalPath]; ok {
		if typ != e.Type {
			if e.Metadata == nil {
				e.Metadata = map[string]string{}
			}
			e.Metadata["typeConflict:"+toolName] = string(typ)
			if entityRank[typ] > entityRank[e.Type] {
				e.Type = typ
			}
		}
		if confidence > e.Confidence {
			e.Confidence = confidence
		}
		return e
	}
	e := &Entity{
		ID:                 EntityID(canonicalPath),
		Type:               typ,
		Name:               name,
		CanonicalPath:      canonicalPath,
		OriginalIdentifier: originalIdentifier,
		ToolName:           toolName,
		Confidence:         confidence,
	}
	r.byPath[canonicalPath] = e
	return e
}

func (r *EntityRegistry) Lookup(canonicalPath string) (*Entity, bool) {
	e, ok := r.byPath[canonicalPath]
	return e, ok
}

func (r *EntityRegistry) Len() int { return len(r.byPath) }

// All returns the registered entities sorted by id for deterministic reports.
func (r *EntityRegistry) All() []Entity {
	out := make([]Entity, 0, len(r.byPath))
	for _, e := range r.byPath {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
