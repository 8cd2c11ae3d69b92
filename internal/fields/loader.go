package fields

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ErrInvalidRules marks override documents that decoded but failed schema
// validation. Callers that get it back still hold the default rules.
var ErrInvalidRules = errors.New("invalid rules override")

// LoadRules reads a JSON or YAML override document, validates it against
// the rules schema and merges it over the defaults. On any error the
// defaults are returned untouched so the caller can keep going.
func LoadRules(path string) (Rules, error) {
	base := DefaultRules()

	raw, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("read rules file: %w", err)
	}

	var doc any
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return base, fmt.Errorf("%w: decode yaml: %v", ErrInvalidRules, err)
		}
	case ".json":
		if err := json.Unmarshal(raw, &doc); err != nil {
			return base, fmt.Errorf("%w: decode json: %v", ErrInvalidRules, err)
		}
	default:
		return base, fmt.Errorf("%w: unsupported extension %q", ErrInvalidRules, ext)
	}

	// Round-trip through JSON so YAML-decoded values carry the exact types
	// the schema validator and the struct decoder expect.
	norm, err := json.Marshal(doc)
	if err != nil {
		return base, fmt.Errorf("%w: normalize: %v", ErrInvalidRules, err)
	}
	var jsonDoc any
	if err := json.Unmarshal(norm, &jsonDoc); err != nil {
		return base, fmt.Errorf("%w: normalize: %v", ErrInvalidRules, err)
	}

	if err := validateRules(jsonDoc); err != nil {
		return base, err
	}

	var o Rules
	if err := json.Unmarshal(norm, &o); err != nil {
		return base, fmt.Errorf("%w: decode: %v", ErrInvalidRules, err)
	}
	foldTables(&o)
	return base.merge(o), nil
}

func validateRules(doc any) error {
	b, err := json.Marshal(BuildRulesJSONSchema())
	if err != nil {
		return fmt.Errorf("marshal rules schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("rules.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add rules schema: %w", err)
	}
	schema, err := compiler.Compile("rules.json")
	if err != nil {
		return fmt.Errorf("compile rules schema: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRules, err)
	}
	return nil
}

// foldTables lowercases and deaccents every override keyword so matching
// behaves the same as with the built-in tables. Entries that fold to
// nothing are dropped.
func foldTables(r *Rules) {
	fold := func(xs []string) []string {
		out := xs[:0]
		for _, x := range xs {
			if f := strings.TrimSpace(Fold(x)); f != "" {
				out = append(out, f)
			}
		}
		return out
	}
	r.DocNumberKeywords = fold(r.DocNumberKeywords)
	r.DateKeywords = fold(r.DateKeywords)
	r.TotalKeywords = fold(r.TotalKeywords)
	r.LegalSuffixes = fold(r.LegalSuffixes)
	r.SectorKeywords = fold(r.SectorKeywords)
	r.AddressIndicators = fold(r.AddressIndicators)
	r.AddressStops = fold(r.AddressStops)
	r.ItemStartKeywords = fold(r.ItemStartKeywords)
	r.ItemEndKeywords = fold(r.ItemEndKeywords)
	r.ItemBlockList = fold(r.ItemBlockList)
}
