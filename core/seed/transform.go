package seed

import (
	"encoding/json"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// prepared holds the column values of a declared record after table transforms.
type prepared struct {
	values map[string]any
	// secrets are plaintext values stored one-way hashed.
	secrets map[string]string
}

// prepare strips the seed id and applies the table's transforms. users rows
// accept "username" as an alias of "name" and keep "password" hashed.
func prepare(table string, rec Record) (prepared, error) {
	p := prepared{values: make(map[string]any, len(rec)), secrets: map[string]string{}}
	for k, v := range rec {
		if k == "id" {
			continue
		}
		switch v.(type) {
		case map[string]any, []any:
			b, err := json.Marshal(v)
			if err != nil {
				return p, fmt.Errorf("field %s: %w", k, err)
			}
			p.values[k] = string(b)
		default:
			p.values[k] = v
		}
	}

	if table == "users" {
		if username, ok := p.values["username"]; ok {
			if _, has := p.values["name"]; !has {
				p.values["name"] = username
			}
			delete(p.values, "username")
		}
		if pw, ok := p.values["password"]; ok && pw != nil {
			p.secrets["password"] = fmt.Sprint(pw)
			delete(p.values, "password")
		}
	}
	return p, nil
}

// declared returns the original, pre-encoding value of a field for comparison.
func declared(rec Record, table, field string) any {
	if table == "users" && field == "name" {
		if v, ok := rec["name"]; ok {
			return v
		}
		return rec["username"]
	}
	return rec[field]
}

func hashSecret(plain string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// secretMatches reports whether stored is the hash of plain.
func secretMatches(stored any, plain string) bool {
	s, ok := stored.(string)
	if !ok {
		if b, isBytes := stored.([]byte); isBytes {
			s = string(b)
		} else {
			return false
		}
	}
	return bcrypt.CompareHashAndPassword([]byte(s), []byte(plain)) == nil
}
