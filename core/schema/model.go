package schema

import (
	"fmt"
	"reflect"
	"strings"
	"time"
	"unicode"
)

// FromModel builds a Definition from a GORM-tagged struct. It understands the
// column, type, primaryKey, autoIncrement, unique, uniqueIndex, not null and
// default tag keys. Fields mapping to created_at/updated_at enable timestamps
// instead of being declared.
func FromModel(model any) (Definition, error) {
	t := reflect.TypeOf(model)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return Definition{}, fmt.Errorf("model must be a struct, got %s", t.Kind())
	}

	def := Definition{Name: t.Name(), TableName: toSnake(t.Name())}
	if tabler, ok := reflect.New(t).Interface().(interface{ TableName() string }); ok {
		def.TableName = tabler.TableName()
	}

	audit := 0
	uniqueIndexes := map[string]*Index{}
	var indexOrder []string

	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		tag := sf.Tag.Get("gorm")
		if tag == "-" || !sf.IsExported() {
			continue
		}

		col := parseGormColumn(tag)
		if col == "" {
			col = toSnake(sf.Name)
		}
		if isAuditColumn(col) {
			audit++
			continue
		}

		spec := FieldSpec{Type: parseGormType(tag)}
		if spec.Type == "" {
			spec.Type = kindToType(sf.Type)
		}
		for _, part := range strings.Split(tag, ";") {
			key, val, _ := strings.Cut(strings.TrimSpace(part), ":")
			switch strings.ToLower(key) {
			case "primarykey":
				spec.PrimaryKey = true
			case "autoincrement":
				spec.AutoIncrement = true
			case "unique":
				spec.Unique = true
			case "not null":
				notNull := false
				spec.AllowNull = &notNull
			case "default":
				spec.Default = val
			case "uniqueindex":
				name := val
				if name == "" {
					name = fmt.Sprintf("idx_%s_%s", def.TableName, col)
				}
				idx, ok := uniqueIndexes[name]
				if !ok {
					idx = &Index{Name: name, Unique: true}
					uniqueIndexes[name] = idx
					indexOrder = append(indexOrder, name)
				}
				idx.Fields = append(idx.Fields, col)
			}
		}
		def.Fields = append(def.Fields, Field{Name: col, Spec: spec})
	}

	for _, name := range indexOrder {
		def.Options.Indexes = append(def.Options.Indexes, *uniqueIndexes[name])
	}
	timestamps := audit == 2
	def.Options.Timestamps = &timestamps
	return def, nil
}

// parseGormColumn extracts the column name from a GORM tag.
func parseGormColumn(tag string) string {
	for _, p := range strings.Split(tag, ";") {
		if strings.HasPrefix(p, "column:") {
			return strings.TrimPrefix(p, "column:")
		}
	}
	return ""
}

// parseGormType extracts the declared type from a GORM tag.
func parseGormType(tag string) string {
	for _, p := range strings.Split(tag, ";") {
		if strings.HasPrefix(p, "type:") {
			return strings.TrimPrefix(p, "type:")
		}
	}
	return ""
}

var timeType = reflect.TypeOf(time.Time{})

func kindToType(t reflect.Type) string {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == timeType {
		return TypeDate
	}
	switch t.Kind() {
	case reflect.String:
		return TypeString
	case reflect.Bool:
		return TypeBoolean
	case reflect.Int8, reflect.Int16, reflect.Uint8, reflect.Uint16:
		return TypeSmallInt
	case reflect.Int, reflect.Int32, reflect.Uint32:
		return TypeInteger
	case reflect.Int64, reflect.Uint, reflect.Uint64:
		return TypeBigInt
	case reflect.Float32, reflect.Float64:
		return TypeFloat
	case reflect.Map, reflect.Slice, reflect.Struct:
		return TypeJSON
	default:
		return strings.ToUpper(t.Kind().String())
	}
}

func toSnake(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && (unicode.IsLower(runes[i-1]) || (i+1 < len(runes) && unicode.IsLower(runes[i+1]))) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
