// Package store caches decoded battery test frames on disk, with a small
// in-memory tier in front. The layout under the cache directory is
//
//	cache_index.json     file ID -> index entry
//	data/<key>.csv       the cached frame, canonical CSV
//	metadata/<key>.json  columns, classified types, preview
//
// where <key> is the MD5 of the Drive file ID. The index file is guarded by a
// file lock so the backend daemon and cache CLI commands can mutate it from
// separate processes.
package store

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/gofrs/flock"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"battdash/internal/dataset"
)

const indexFileName = "cache_index.json"

// IndexEntry is one record of cache_index.json.
type IndexEntry struct {
	FileName    string    `json:"file_name"`
	Path        string    `json:"path,omitempty"`
	LastUpdated time.Time `json:"last_updated"`
	CacheKey    string    `json:"cache_key"`
	RowCount    int       `json:"row_count"`
	ColumnCount int       `json:"column_count"`
}

// Preview is a small head/tail sample of a cached frame, kept in the metadata
// document so browse endpoints can show data without decoding the full CSV.
type Preview struct {
	Head  []map[string]any `json:"head"`
	Tail  []map[string]any `json:"tail"`
	Shape [2]int           `json:"shape"`
}

// Metadata is the per-file metadata document stored under metadata/.
type Metadata struct {
	FileID      string            `json:"file_id"`
	FileName    string            `json:"file_name"`
	Path        string            `json:"path,omitempty"`
	LastUpdated time.Time         `json:"last_updated"`
	Columns     []string          `json:"columns"`
	ColumnTypes map[string]string `json:"column_types"`
	Preview     Preview           `json:"data_preview"`
	RowCount    int               `json:"row_count"`
	ColumnCount int               `json:"column_count"`
}

// Stats summarizes cache occupancy for `battdash cache stats` and the
// backend's cache endpoints.
type Stats struct {
	TotalFiles     int     `json:"total_cached_files"`
	ValidFiles     int     `json:"valid_cached_files"`
	MemoryFiles    int     `json:"memory_cached_files"`
	DiskUsageBytes int64   `json:"cache_disk_usage_bytes"`
	DiskUsageMB    float64 `json:"cache_disk_usage_mb"`
	Directory      string  `json:"cache_directory"`
}

// Store is the two-tier frame cache. All methods are safe for concurrent use.
type Store struct {
	dir       string
	dataDir   string
	metaDir   string
	indexPath string
	ttl       time.Duration
	logger    *zap.Logger

	flock *flock.Flock

	mu     sync.Mutex
	index  map[string]IndexEntry
	memory *lru.Cache[string, *dataset.Frame]

	now func() time.Time
}

// Open creates the cache directories if needed and loads the index. A corrupt
// or missing index starts empty rather than failing.
func Open(dir string, ttl time.Duration, memoryEntries int, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if memoryEntries <= 0 {
		memoryEntries = 5
	}

	s := &Store{
		dir:       dir,
		dataDir:   filepath.Join(dir, "data"),
		metaDir:   filepath.Join(dir, "metadata"),
		indexPath: filepath.Join(dir, indexFileName),
		ttl:       ttl,
		logger:    logger,
		flock:     flock.New(filepath.Join(dir, ".index.lock")),
		now:       time.Now,
	}
	for _, d := range []string{s.dir, s.dataDir, s.metaDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("create cache directory %s: %w", d, err)
		}
	}
	s.memory, _ = lru.New[string, *dataset.Frame](memoryEntries)

	if err := s.flock.Lock(); err != nil {
		return nil, fmt.Errorf("lock cache index: %w", err)
	}
	s.index = readIndex(s.indexPath, logger)
	if err := s.flock.Unlock(); err != nil {
		return nil, fmt.Errorf("unlock cache index: %w", err)
	}
	return s, nil
}

// Key is the on-disk name for a file ID.
func Key(fileID string) string {
	sum := md5.Sum([]byte(fileID))
	return hex.EncodeToString(sum[:])
}

// Valid reports whether fileID is cached and inside its TTL.
func (s *Store) Valid(fileID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.validLocked(fileID)
}

func (s *Store) validLocked(fileID string) bool {
	entry, ok := s.index[fileID]
	if !ok {
		return false
	}
	return s.now().Sub(entry.LastUpdated) < s.ttl
}

// Get returns the cached frame for fileID, checking memory before disk.
// Expired or missing entries report false; expired data stays on disk until
// ClearExpired runs.
func (s *Store) Get(fileID string) (*dataset.Frame, bool) {
	s.mu.Lock()
	valid := s.validLocked(fileID)
	s.mu.Unlock()
	if !valid {
		return nil, false
	}

	if f, ok := s.memory.Get(fileID); ok {
		s.logger.Debug("cache hit (memory)", zap.String("file_id", fileID))
		return f, true
	}

	path := filepath.Join(s.dataDir, Key(fileID)+".csv")
	fh, err := os.Open(path)
	if err != nil {
		s.logger.Warn("cache entry unreadable", zap.String("file_id", fileID), zap.Error(err))
		return nil, false
	}
	defer fh.Close()

	f, err := dataset.ParseCSV(fh)
	if err != nil {
		s.logger.Warn("cache entry corrupt", zap.String("file_id", fileID), zap.Error(err))
		return nil, false
	}
	s.memory.Add(fileID, f)
	s.logger.Debug("cache hit (disk)", zap.String("file_id", fileID))
	return f, true
}

// Put writes the frame and its metadata to disk and records it in the index.
func (s *Store) Put(fileID, fileName, path string, f *dataset.Frame) error {
	key := Key(fileID)

	dataPath := filepath.Join(s.dataDir, key+".csv")
	fh, err := os.Create(dataPath)
	if err != nil {
		return fmt.Errorf("create cache data file: %w", err)
	}
	if err := f.WriteCSV(fh); err != nil {
		fh.Close()
		return fmt.Errorf("write cache data for %s: %w", fileName, err)
	}
	if err := fh.Close(); err != nil {
		return fmt.Errorf("close cache data file: %w", err)
	}

	meta := s.buildMetadata(fileID, fileName, path, f)
	raw, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cache metadata for %s: %w", fileName, err)
	}
	if err := os.WriteFile(filepath.Join(s.metaDir, key+".json"), raw, 0o644); err != nil {
		return fmt.Errorf("write cache metadata for %s: %w", fileName, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	err = s.mutateIndexLocked(func(index map[string]IndexEntry) {
		index[fileID] = IndexEntry{
			FileName:    fileName,
			Path:        path,
			LastUpdated: meta.LastUpdated,
			CacheKey:    key,
			RowCount:    f.NumRows(),
			ColumnCount: f.NumCols(),
		}
	})
	if err != nil {
		return err
	}

	s.memory.Add(fileID, f)
	s.logger.Info("cached file",
		zap.String("file", fileName),
		zap.Int("rows", f.NumRows()),
		zap.Int("columns", f.NumCols()))
	return nil
}

func (s *Store) buildMetadata(fileID, fileName, path string, f *dataset.Frame) Metadata {
	head, tail := f.Preview(3)
	return Metadata{
		FileID:      fileID,
		FileName:    fileName,
		Path:        path,
		LastUpdated: s.now().UTC(),
		Columns:     f.Columns(),
		ColumnTypes: simplifiedTypes(f.Columns()),
		Preview: Preview{
			Head:  head,
			Tail:  tail,
			Shape: [2]int{f.NumRows(), f.NumCols()},
		},
		RowCount:    f.NumRows(),
		ColumnCount: f.NumCols(),
	}
}

// simplifiedTypes flattens the classifier groups into one label per column.
func simplifiedTypes(names []string) map[string]string {
	groups := dataset.Classify(names)
	types := make(map[string]string, len(names))
	label := func(cols []string, t string) {
		for _, c := range cols {
			types[c] = t
		}
	}
	label(names, "other")
	label(groups.Time, "time")
	label(groups.Current, "current")
	label(groups.Power, "power")
	label(groups.CellVoltages, "voltage")
	label(groups.TempStats, "temperature")
	label(groups.BMSTemps, "temperature")
	label(groups.Thermocouples, "temperature")
	label(groups.SOCSOH, "soc")
	label(groups.Balancing, "balancing")
	return types
}

// Metadata returns the metadata document for a valid cache entry.
func (s *Store) Metadata(fileID string) (Metadata, bool) {
	s.mu.Lock()
	valid := s.validLocked(fileID)
	s.mu.Unlock()
	if !valid {
		return Metadata{}, false
	}

	raw, err := os.ReadFile(filepath.Join(s.metaDir, Key(fileID)+".json"))
	if err != nil {
		return Metadata{}, false
	}
	var meta Metadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		s.logger.Warn("cache metadata corrupt", zap.String("file_id", fileID), zap.Error(err))
		return Metadata{}, false
	}
	return meta, true
}

// Entry returns the raw index record for fileID, expired or not. Eviction
// tooling needs to see entries the TTL already hides.
func (s *Store) Entry(fileID string) (IndexEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.index[fileID]
	return e, ok
}

// Entries returns metadata for every valid cache entry, newest first.
func (s *Store) Entries() []Metadata {
	s.mu.Lock()
	ids := make([]string, 0, len(s.index))
	for fileID := range s.index {
		if s.validLocked(fileID) {
			ids = append(ids, fileID)
		}
	}
	s.mu.Unlock()

	out := make([]Metadata, 0, len(ids))
	for _, fileID := range ids {
		if meta, ok := s.Metadata(fileID); ok {
			out = append(out, meta)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastUpdated.After(out[j].LastUpdated) })
	return out
}

// Remove drops one entry from memory, disk and the index.
func (s *Store) Remove(fileID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeLocked(fileID)
}

func (s *Store) removeLocked(fileID string) error {
	s.memory.Remove(fileID)

	key := Key(fileID)
	if entry, ok := s.index[fileID]; ok && entry.CacheKey != "" {
		key = entry.CacheKey
	}
	for _, path := range []string{
		filepath.Join(s.dataDir, key+".csv"),
		filepath.Join(s.metaDir, key+".json"),
	} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove cache file %s: %w", path, err)
		}
	}

	err := s.mutateIndexLocked(func(index map[string]IndexEntry) {
		delete(index, fileID)
	})
	if err != nil {
		return err
	}
	s.logger.Debug("removed cache entry", zap.String("file_id", fileID))
	return nil
}

// ClearExpired removes every entry past its TTL and reports how many went.
func (s *Store) ClearExpired() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expired []string
	for fileID := range s.index {
		if !s.validLocked(fileID) {
			expired = append(expired, fileID)
		}
	}
	for _, fileID := range expired {
		if err := s.removeLocked(fileID); err != nil {
			return 0, err
		}
	}
	if len(expired) > 0 {
		s.logger.Info("removed expired cache entries", zap.Int("count", len(expired)))
	}
	return len(expired), nil
}

// Verify cross-checks the index against the files on disk and returns one
// line per problem found. It never mutates the cache.
func (s *Store) Verify() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var problems []string
	for fileID, entry := range s.index {
		key := entry.CacheKey
		if key == "" {
			key = Key(fileID)
		}
		if _, err := os.Stat(filepath.Join(s.dataDir, key+".csv")); err != nil {
			problems = append(problems, fmt.Sprintf("%s: data file missing", entry.FileName))
		}
	}
	sort.Strings(problems)
	return problems
}

// Stats reports cache occupancy and disk usage.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	total := len(s.index)
	valid := 0
	for fileID := range s.index {
		if s.validLocked(fileID) {
			valid++
		}
	}
	s.mu.Unlock()

	var diskBytes int64
	filepath.WalkDir(s.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			diskBytes += info.Size()
		}
		return nil
	})

	return Stats{
		TotalFiles:     total,
		ValidFiles:     valid,
		MemoryFiles:    s.memory.Len(),
		DiskUsageBytes: diskBytes,
		DiskUsageMB:    float64(diskBytes) / 1024 / 1024,
		Directory:      s.dir,
	}
}

// mutateIndexLocked applies fn to the on-disk index under the cross-process
// lock. Disk is authoritative so mutations from other processes survive.
// Caller holds s.mu.
func (s *Store) mutateIndexLocked(fn func(index map[string]IndexEntry)) error {
	if err := s.flock.Lock(); err != nil {
		return fmt.Errorf("lock cache index: %w", err)
	}
	defer s.flock.Unlock()

	index := readIndex(s.indexPath, s.logger)
	fn(index)
	s.index = index

	raw, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cache index: %w", err)
	}
	tmp := s.indexPath + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write cache index: %w", err)
	}
	if err := os.Rename(tmp, s.indexPath); err != nil {
		return fmt.Errorf("replace cache index: %w", err)
	}
	return nil
}

func readIndex(path string, logger *zap.Logger) map[string]IndexEntry {
	raw, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("failed to read cache index", zap.Error(err))
		}
		return make(map[string]IndexEntry)
	}
	index := make(map[string]IndexEntry)
	if err := json.Unmarshal(raw, &index); err != nil {
		logger.Warn("cache index corrupt, starting fresh", zap.Error(err))
		return make(map[string]IndexEntry)
	}
	return index
}
