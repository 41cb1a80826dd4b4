package catalog

import (
	"context"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/pimkit/pimkit/internal/association"
	"github.com/pimkit/pimkit/internal/attribute"
	"github.com/pimkit/pimkit/internal/entity"
)

// Seed is the catalogue bundle authored in a CUE file: attribute
// definitions, association rules, relationship types, and demo entities.
type Seed struct {
	Definitions       []attribute.Definition         `json:"definitions"`
	Rules             []association.Rule             `json:"associationRules"`
	RelationshipTypes []association.RelationshipType `json:"relationshipTypes"`
	Entities          []entity.Entity                `json:"entities"`
}

// LoadSeed compiles and decodes a CUE seed file.
func LoadSeed(path string) (Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Seed{}, fmt.Errorf("reading seed file: %w", err)
	}

	cctx := cuecontext.New()
	v := cctx.CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return Seed{}, fmt.Errorf("compiling %s: %w", path, err)
	}

	var seed Seed
	if err := v.Decode(&seed); err != nil {
		return Seed{}, fmt.Errorf("decoding %s: %w", path, err)
	}
	return seed, nil
}

// SeedIssue is one authoring problem found in a seed bundle. Advisory
// issues do not block applying the seed.
type SeedIssue struct {
	Target   string `json:"target"` // "definition:<code>" or "rule:<code>" or "relationshipType:<code>"
	Field    string `json:"field,omitempty"`
	Message  string `json:"message"`
	Advisory bool   `json:"advisory"`
}

// CheckSeed reports structural errors and advisory lint findings for
// every item in the bundle.
func CheckSeed(seed Seed) []SeedIssue {
	var issues []SeedIssue

	for _, def := range seed.Definitions {
		target := "definition:" + def.Code
		if err := attribute.CheckDefinition(def); err != nil {
			issues = append(issues, SeedIssue{Target: target, Message: err.Error()})
		}
		for _, fi := range attribute.Lint(def.Type, def.Rules) {
			issues = append(issues, SeedIssue{Target: target, Field: fi.Field, Message: fi.Message, Advisory: true})
		}
	}
	for _, rule := range seed.Rules {
		if err := association.CheckRule(rule); err != nil {
			issues = append(issues, SeedIssue{Target: "rule:" + rule.Code, Message: err.Error()})
		}
	}
	for _, rt := range seed.RelationshipTypes {
		if rt.Code == "" {
			issues = append(issues, SeedIssue{Target: "relationshipType:" + rt.Name, Message: "code is empty"})
		}
	}
	return issues
}

// ApplySeed upserts the whole bundle into the store. Structural errors
// abort before any write; advisory lint findings are returned alongside.
func ApplySeed(ctx context.Context, store Store, seed Seed) ([]SeedIssue, error) {
	issues := CheckSeed(seed)
	for _, issue := range issues {
		if !issue.Advisory {
			return issues, fmt.Errorf("seed has structural errors, not applied: %s: %s", issue.Target, issue.Message)
		}
	}

	for _, def := range seed.Definitions {
		if err := store.SaveDefinition(ctx, def); err != nil {
			return issues, fmt.Errorf("seeding definition %s: %w", def.Code, err)
		}
	}
	for _, rule := range seed.Rules {
		if err := store.SaveRule(ctx, rule); err != nil {
			return issues, fmt.Errorf("seeding rule %s: %w", rule.Code, err)
		}
	}
	for _, rt := range seed.RelationshipTypes {
		if err := store.SaveRelationshipType(ctx, rt); err != nil {
			return issues, fmt.Errorf("seeding relationship type %s: %w", rt.Code, err)
		}
	}
	for _, e := range seed.Entities {
		if err := store.SaveEntity(ctx, e); err != nil {
			return issues, fmt.Errorf("seeding entity %s: %w", e.ID, err)
		}
	}
	return issues, nil
}
