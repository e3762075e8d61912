package seed

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"webdesk/core/schema"
	"webdesk/core/utils"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Tables indexes merged definitions by table name.
type Tables map[string]*schema.Definition

// NewTables indexes defs by table name.
func NewTables(defs []*schema.Definition) Tables {
	t := make(Tables, len(defs))
	for _, d := range defs {
		t[d.TableName] = d
	}
	return t
}

// Planner compares layer seed declarations with the mapping table and the
// records it points at. It never writes.
type Planner struct {
	db     *gorm.DB
	tables Tables
	logger *zap.Logger
}

// NewPlanner creates a seed planner.
func NewPlanner(db *gorm.DB, tables Tables, logger *zap.Logger) *Planner {
	return &Planner{db: db, tables: tables, logger: logger}
}

// LoadMappings returns the mapping rows of the given layers, keyed by
// layer then table then seed id.
func LoadMappings(ctx context.Context, db *gorm.DB, levels []string) (map[string]map[string]map[int]DefaultValue, error) {
	out := map[string]map[string]map[int]DefaultValue{}
	if len(levels) == 0 || !db.Migrator().HasTable(MappingTable) {
		return out, nil
	}
	var rows []DefaultValue
	if err := db.WithContext(ctx).Where("level IN ?", levels).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", MappingTable, err)
	}
	for _, r := range rows {
		if out[r.Level] == nil {
			out[r.Level] = map[string]map[int]DefaultValue{}
		}
		if out[r.Level][r.Table] == nil {
			out[r.Level][r.Table] = map[int]DefaultValue{}
		}
		out[r.Level][r.Table][r.DefaultValueID] = r
	}
	return out, nil
}

// Plan builds the actions that bring stored defaults in line with layers.
// Layers are visited in order; a layer only ever touches its own mappings.
func (p *Planner) Plan(ctx context.Context, layers []LayerSeeds) (*Plan, error) {
	levels := make([]string, 0, len(layers))
	for _, l := range layers {
		levels = append(levels, l.Layer)
	}
	mappings, err := LoadMappings(ctx, p.db, levels)
	if err != nil {
		return nil, err
	}

	plan := &Plan{}
	for _, layer := range layers {
		done := map[string]bool{}
		for _, ts := range layer.Tables {
			if done[ts.Table] {
				p.logger.Warn("Seed table declared twice in layer, ignoring repeat",
					zap.String("layer", layer.Layer), zap.String("table", ts.Table))
				continue
			}
			done[ts.Table] = true
			if err := p.planTable(ctx, plan, layer.Layer, ts.Table, ts.Records, mappings[layer.Layer][ts.Table]); err != nil {
				return nil, err
			}
		}

		// Tables this layer seeded before but no longer declares.
		var stale []string
		for table := range mappings[layer.Layer] {
			if !done[table] {
				stale = append(stale, table)
			}
		}
		sort.Strings(stale)
		for _, table := range stale {
			if err := p.planTable(ctx, plan, layer.Layer, table, nil, mappings[layer.Layer][table]); err != nil {
				return nil, err
			}
		}
	}

	for _, a := range plan.Actions {
		switch a.Type {
		case ActionCreate:
			plan.Summary.Creates++
		case ActionUpdate:
			plan.Summary.Updates++
		case ActionDelete:
			plan.Summary.Deletes++
		case ActionRecreate:
			plan.Summary.Recreates++
		}
	}
	return plan, nil
}

func (p *Planner) planTable(ctx context.Context, plan *Plan, layer, table string, records []Record, existing map[int]DefaultValue) error {
	log := p.logger.With(zap.String("layer", layer), zap.String("table", table))
	def := p.tables[table]

	pk := ""
	if def != nil {
		pk = def.PrimaryKey()
		if spec, ok := def.Field(pk); pk != "" && ok && !integerKey(spec.Type) {
			pk = ""
		}
	}
	if len(records) > 0 && pk == "" {
		log.Warn("Seeds target a table without a single integer primary key, skipping", zap.Int("records", len(records)))
		plan.Summary.Declared += len(records)
		plan.Summary.Skipped += len(records)
		// Nothing can be matched; leave the existing mappings alone.
		return nil
	}

	exists := def != nil && p.db.Migrator().HasTable(table)
	seen := map[int]bool{}
	for _, rec := range records {
		plan.Summary.Declared++
		id, ok := rec.SeedID()
		if !ok {
			log.Warn("Seed record has no positive id, skipping")
			plan.Summary.Skipped++
			continue
		}
		if seen[id] {
			log.Warn("Duplicate seed id, keeping the first record", zap.Int("seed_id", id))
			plan.Summary.Skipped++
			continue
		}
		seen[id] = true

		prep, err := prepare(table, rec)
		if err != nil {
			log.Warn("Seed record could not be prepared", zap.Int("seed_id", id), zap.Error(err))
			plan.Summary.Skipped++
			continue
		}
		for k := range prep.values {
			if !hasColumn(def, k) {
				log.Warn("Seed field is not a column, ignoring", zap.Int("seed_id", id), zap.String("field", k))
				delete(prep.values, k)
			}
		}
		for k := range prep.secrets {
			if !hasColumn(def, k) {
				log.Warn("Seed field is not a column, ignoring", zap.Int("seed_id", id), zap.String("field", k))
				delete(prep.secrets, k)
			}
		}

		base := Action{
			Layer: layer, Table: table, SeedID: id, PrimaryKey: pk,
			Timestamps: def.HasTimestamps(),
		}

		m, mapped := existing[id]
		if !mapped {
			a := base
			a.Type = ActionCreate
			a.Reason = "declared seed has no stored record"
			if a.Values, err = withSecrets(prep); err != nil {
				return err
			}
			a.Fields = fieldNames(a.Values)
			plan.Actions = append(plan.Actions, a)
			continue
		}

		current, found, err := p.loadRecord(ctx, exists, table, pk, m.RecordID)
		if err != nil {
			return err
		}
		if !found {
			a := base
			a.Type = ActionRecreate
			a.MappingID = m.ID
			a.RecordID = m.RecordID
			a.Reason = "mapped record no longer exists"
			if a.Values, err = withSecrets(prep); err != nil {
				return err
			}
			a.Fields = fieldNames(a.Values)
			plan.Actions = append(plan.Actions, a)
			continue
		}

		changed := map[string]any{}
		for k, v := range prep.values {
			if !utils.Equal(current[k], declared(rec, table, k)) {
				changed[k] = v
			}
		}
		for k, plain := range prep.secrets {
			if secretMatches(current[k], plain) {
				continue
			}
			h, err := hashSecret(plain)
			if err != nil {
				return fmt.Errorf("failed to hash %s.%s: %w", table, k, err)
			}
			changed[k] = h
		}
		if len(changed) == 0 {
			plan.Summary.Unchanged++
			continue
		}
		a := base
		a.Type = ActionUpdate
		a.MappingID = m.ID
		a.RecordID = m.RecordID
		a.Values = changed
		a.Fields = fieldNames(changed)
		a.Reason = "declared fields differ from stored record"
		plan.Actions = append(plan.Actions, a)
	}

	var staleIDs []int
	for id := range existing {
		if !seen[id] {
			staleIDs = append(staleIDs, id)
		}
	}
	sort.Ints(staleIDs)
	for _, id := range staleIDs {
		m := existing[id]
		a := Action{
			Type: ActionDelete, Layer: layer, Table: table, SeedID: id,
			RecordID: m.RecordID, MappingID: m.ID,
			Reason: "seed no longer declared",
		}
		// Without a known key on an existing table only the mapping goes.
		if exists && pk != "" {
			a.PrimaryKey = pk
		}
		plan.Actions = append(plan.Actions, a)
	}
	return nil
}

func (p *Planner) loadRecord(ctx context.Context, exists bool, table, pk string, id int) (map[string]any, bool, error) {
	if !exists {
		return nil, false, nil
	}
	current := map[string]any{}
	err := p.db.WithContext(ctx).Table(table).
		Where(clause.Eq{Column: clause.Column{Name: pk}, Value: id}).
		Take(&current).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load %s record %d: %w", table, id, err)
	}
	return current, true, nil
}

func withSecrets(prep prepared) (map[string]any, error) {
	values := make(map[string]any, len(prep.values)+len(prep.secrets))
	for k, v := range prep.values {
		values[k] = v
	}
	for k, plain := range prep.secrets {
		h, err := hashSecret(plain)
		if err != nil {
			return nil, fmt.Errorf("failed to hash %s: %w", k, err)
		}
		values[k] = h
	}
	return values, nil
}

func hasColumn(def *schema.Definition, name string) bool {
	for _, c := range def.Columns() {
		if c == name {
			return true
		}
	}
	return false
}

func integerKey(t string) bool {
	switch schema.NormalizeType(t, "") {
	case schema.TypeInteger, schema.TypeBigInt, schema.TypeSmallInt:
		return true
	}
	return false
}

func fieldNames(values map[string]any) []string {
	names := make([]string, 0, len(values))
	for k := range values {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
