package schema

import (
	"fmt"
	"regexp"
	"strings"
)

var identifierRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)

// Contribution is the set of model declarations one layer brings in.
type Contribution struct {
	Layer       string
	Definitions []Definition
}

// Merge folds layer contributions into one definition per model name.
// Contributions must be passed in layer order (core, framework, then each
// application). For a model declared by several layers:
//   - fields are unioned; a field declared again is replaced wholesale by the
//     later layer and keeps its original position, new fields are appended
//   - Options.Indexes are concatenated without de-duplication
//   - TableName, Options.Timestamps and Options.Comment are overwritten when
//     the later layer sets them
//
// The result keeps the order in which models were first declared.
func Merge(contributions []Contribution) ([]*Definition, error) {
	var (
		order  []string
		merged = make(map[string]*Definition)
	)

	for _, c := range contributions {
		for i := range c.Definitions {
			def := &c.Definitions[i]
			if def.Name == "" {
				return nil, fmt.Errorf("layer %s: model #%d has no name", c.Layer, i)
			}
			existing, ok := merged[def.Name]
			if !ok {
				clone := def.Clone()
				if clone.TableName == "" {
					clone.TableName = strings.ToLower(def.Name)
				}
				merged[def.Name] = clone
				order = append(order, def.Name)
				continue
			}
			mergeInto(existing, def)
		}
	}

	out := make([]*Definition, 0, len(order))
	tables := make(map[string]string, len(order))
	for _, name := range order {
		def := merged[name]
		if err := validateDefinition(def); err != nil {
			return nil, err
		}
		if other, dup := tables[def.TableName]; dup {
			return nil, fmt.Errorf("models %s and %s both map to table %s", other, name, def.TableName)
		}
		tables[def.TableName] = name
		out = append(out, def)
	}
	return out, nil
}

func mergeInto(dst, src *Definition) {
	if src.TableName != "" {
		dst.TableName = src.TableName
	}

	for _, f := range src.Fields {
		replaced := false
		for i := range dst.Fields {
			if dst.Fields[i].Name == f.Name {
				dst.Fields[i] = f
				replaced = true
				break
			}
		}
		if !replaced {
			dst.Fields = append(dst.Fields, f)
		}
	}

	dst.Options.Indexes = append(dst.Options.Indexes, src.Options.Indexes...)
	if src.Options.Timestamps != nil {
		dst.Options.Timestamps = src.Options.Timestamps
	}
	if src.Options.Comment != "" {
		dst.Options.Comment = src.Options.Comment
	}
}

func validateDefinition(def *Definition) error {
	if !identifierRegex.MatchString(def.TableName) {
		return fmt.Errorf("model %s: invalid table name %q", def.Name, def.TableName)
	}
	if len(def.Fields) == 0 {
		return fmt.Errorf("model %s: no fields declared", def.Name)
	}
	for _, f := range def.Fields {
		if !identifierRegex.MatchString(f.Name) {
			return fmt.Errorf("model %s: invalid field name %q", def.Name, f.Name)
		}
		if f.Spec.Type == "" {
			return fmt.Errorf("model %s: field %s has no type", def.Name, f.Name)
		}
	}
	for _, idx := range def.Options.Indexes {
		if len(idx.Fields) == 0 {
			return fmt.Errorf("model %s: index %q has no fields", def.Name, idx.Name)
		}
		for _, col := range idx.Fields {
			if _, ok := def.Field(col); !ok && !isAuditColumn(col) {
				return fmt.Errorf("model %s: index %q references unknown field %s", def.Name, idx.Name, col)
			}
		}
	}
	return nil
}

// ValidateIdentifier reports whether name is safe to splice into DDL.
func ValidateIdentifier(name string) error {
	if !identifierRegex.MatchString(name) {
		return fmt.Errorf("invalid identifier %q", name)
	}
	return nil
}
