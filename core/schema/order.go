package schema

// SortByDependency orders definitions so referenced tables come before the
// tables that reference them. Self references and references to tables outside
// the set are ignored. Definitions caught in a cycle keep their input order and
// are appended after everything that could be ordered.
func SortByDependency(defs []*Definition) []*Definition {
	byTable := make(map[string]*Definition, len(defs))
	for _, d := range defs {
		byTable[d.TableName] = d
	}

	placed := make(map[string]bool, len(defs))
	out := make([]*Definition, 0, len(defs))

	for len(out) < len(defs) {
		progressed := false
		for _, d := range defs {
			if placed[d.TableName] {
				continue
			}
			ready := true
			for _, dep := range d.Dependencies() {
				if _, known := byTable[dep]; known && !placed[dep] {
					ready = false
					break
				}
			}
			if ready {
				placed[d.TableName] = true
				out = append(out, d)
				progressed = true
			}
		}
		if !progressed {
			for _, d := range defs {
				if !placed[d.TableName] {
					placed[d.TableName] = true
					out = append(out, d)
				}
			}
		}
	}
	return out
}
