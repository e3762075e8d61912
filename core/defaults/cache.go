package defaults

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"webdesk/core/metrics"
	"webdesk/core/schema"
	"webdesk/core/seed"
	"webdesk/core/utils"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotInitialized is returned by the package-level accessors before a store
// has been installed with SetGlobal.
var ErrNotInitialized = errors.New("default values are not loaded")

// ErrNotFound is returned when no default value has the requested identity.
var ErrNotFound = errors.New("default value not found")

// Record is a cached default value: its seed id, the record it maps to and
// the record's columns at load time.
type Record struct {
	ID       int            `json:"id"`
	RecordID int            `json:"record_id"`
	Values   map[string]any `json:"values"`
}

// snapshot is one immutable load of every layer's defaults.
type snapshot struct {
	// records is keyed by layer, then table, then seed id.
	records map[string]map[string]map[int]Record
	count   int
	built   time.Time
}

// Store caches default value records per (layer, table, seed id).
type Store struct {
	db     *gorm.DB
	tables seed.Tables
	layers []string
	logger *zap.Logger

	mu   sync.RWMutex
	snap *snapshot
	sf   singleflight.Group
}

// NewStore creates an empty store over the given layers' mappings.
func NewStore(db *gorm.DB, defs []*schema.Definition, layers []string, logger *zap.Logger) *Store {
	return &Store{
		db:     db,
		tables: seed.NewTables(defs),
		layers: layers,
		logger: logger,
		snap:   &snapshot{records: map[string]map[string]map[int]Record{}},
	}
}

// Get returns the default value with the given seed id.
func (s *Store) Get(layer, table string, id int) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.snap.records[layer][table][id]
	return r, ok
}

// GetAll returns every default value of a layer's table ordered by seed id.
func (s *Store) GetAll(layer, table string) []Record {
	s.mu.RLock()
	byID := s.snap.records[layer][table]
	s.mu.RUnlock()

	out := make([]Record, 0, len(byID))
	for _, r := range byID {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of cached records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.count
}

// LoadedAt returns when the current snapshot was built.
func (s *Store) LoadedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.built
}

// Reload rebuilds the cache from storage. Concurrent callers share one load.
func (s *Store) Reload(ctx context.Context) error {
	_, err, _ := s.sf.Do("reload", func() (interface{}, error) {
		snap, err := s.build(ctx)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.snap = snap
		s.mu.Unlock()
		return nil, nil
	})
	if err != nil {
		metrics.DefaultValuesReloadsTotal.WithLabelValues("failed").Inc()
		return err
	}
	metrics.DefaultValuesReloadsTotal.WithLabelValues("ok").Inc()
	metrics.DefaultValuesLoaded.Set(float64(s.Len()))
	return nil
}

func (s *Store) build(ctx context.Context) (*snapshot, error) {
	mappings, err := seed.LoadMappings(ctx, s.db, s.layers)
	if err != nil {
		return nil, err
	}

	// Group mapped record ids per table so each table is read once.
	wanted := map[string][]int{}
	for _, tables := range mappings {
		for table, byID := range tables {
			for _, m := range byID {
				wanted[table] = append(wanted[table], m.RecordID)
			}
		}
	}

	var (
		mu   sync.Mutex
		rows = map[string]map[int]map[string]any{}
	)
	g, gctx := errgroup.WithContext(ctx)
	for table, ids := range wanted {
		def := s.tables[table]
		if def == nil || def.PrimaryKey() == "" {
			s.logger.Debug("Skipping defaults of undeclared table", zap.String("table", table))
			continue
		}
		pk := def.PrimaryKey()
		g.Go(func() error {
			var found []map[string]any
			err := s.db.WithContext(gctx).Table(table).
				Where(clause.IN{Column: clause.Column{Name: pk}, Values: toAny(ids)}).
				Find(&found).Error
			if err != nil {
				return fmt.Errorf("failed to load defaults of %s: %w", table, err)
			}
			byKey := make(map[int]map[string]any, len(found))
			for _, r := range found {
				byKey[utils.ToInt(r[pk])] = r
			}
			mu.Lock()
			rows[table] = byKey
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	snap := &snapshot{records: map[string]map[string]map[int]Record{}, built: time.Now()}
	for layer, tables := range mappings {
		for table, byID := range tables {
			for id, m := range byID {
				values, ok := rows[table][m.RecordID]
				if !ok {
					s.logger.Debug("Mapped default record is missing",
						zap.String("layer", layer), zap.String("table", table), zap.Int("seed_id", id))
					continue
				}
				if snap.records[layer] == nil {
					snap.records[layer] = map[string]map[int]Record{}
				}
				if snap.records[layer][table] == nil {
					snap.records[layer][table] = map[int]Record{}
				}
				snap.records[layer][table][id] = Record{ID: id, RecordID: m.RecordID, Values: values}
				snap.count++
			}
		}
	}
	return snap, nil
}

// global holds the store the package-level accessors read.
var global struct {
	mu    sync.RWMutex
	store *Store
}

// SetGlobal installs the store behind GetDefaultValue and friends.
func SetGlobal(s *Store) {
	global.mu.Lock()
	global.store = s
	global.mu.Unlock()
}

// Global returns the installed store or nil.
func Global() *Store {
	global.mu.RLock()
	defer global.mu.RUnlock()
	return global.store
}

// GetDefaultValue looks up one default value in the global store.
func GetDefaultValue(layer, table string, id int) (Record, error) {
	s := Global()
	if s == nil {
		return Record{}, ErrNotInitialized
	}
	r, ok := s.Get(layer, table, id)
	if !ok {
		return Record{}, fmt.Errorf("%w: %s/%s/%d", ErrNotFound, layer, table, id)
	}
	return r, nil
}

// GetDefaultValues lists a layer's default values for a table from the global store.
func GetDefaultValues(layer, table string) ([]Record, error) {
	s := Global()
	if s == nil {
		return nil, ErrNotInitialized
	}
	return s.GetAll(layer, table), nil
}

// ReloadDefaultValues reloads the global store.
func ReloadDefaultValues(ctx context.Context) error {
	s := Global()
	if s == nil {
		return ErrNotInitialized
	}
	return s.Reload(ctx)
}

func toAny(ids []int) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}
