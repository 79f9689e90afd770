// Package settings implements the Settings Store: scratch base resolution,
// the IndexRoot directory layout, and the load/persist/clear operations
// wrapping the Index Store's binary codec.
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/codeindexer/corex/internal/deepindex"
	"github.com/codeindexer/corex/internal/errlib"
	"github.com/codeindexer/corex/internal/idutil"
	"github.com/codeindexer/corex/internal/shallow"
	"github.com/codeindexer/corex/internal/store"
)

// IndexRoot is the filesystem directory owned by the Settings Store for
// one project: {scratch_base}/code_indexer/{project_key}/.
type IndexRoot struct {
	Dir        string
	ProjectKey string
}

func (r IndexRoot) shallowPath() string { return filepath.Join(r.Dir, "shallow.bin") }
func (r IndexRoot) deepPath() string    { return filepath.Join(r.Dir, "deep.bin") }
func (r IndexRoot) configPath() string  { return filepath.Join(r.Dir, "config.json") }

// configFile mirrors config.json's on-disk shape: the scratch base choice,
// schema version, and last build timestamp per index kind.
type configFile struct {
	ScratchBase        string `json:"scratch_base"`
	ProjectRoot        string `json:"project_root"`
	ProjectKey         string `json:"project_key"`
	SchemaVersion      uint32 `json:"schema_version"`
	ShallowBuiltUnixNs int64  `json:"shallow_built_unix_ns,omitempty"`
	DeepBuiltUnixNs    int64  `json:"deep_built_unix_ns,omitempty"`
}

// Store is a Settings Store bound to one project root.
type Store struct {
	projectRoot string
	root        IndexRoot
}

// Initialize resolves a scratch base for projectPath in priority order
// (scratchOverride if non-empty; system temp dir; project-local
// .code_indexer/; user home ~/.code_indexer/), creates the IndexRoot
// directory, and records the choice in config.json.
func Initialize(projectPath, scratchOverride string) (*Store, error) {
	key := idutil.ProjectKey(projectPath)

	base, err := firstWritableScratchBase(projectPath, scratchOverride)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", err, errlib.ErrScratchUnavailable)
	}

	dir := filepath.Join(base, "code_indexer", key)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("settings: create index root %s: %w", dir, err)
	}

	s := &Store{projectRoot: projectPath, root: IndexRoot{Dir: dir, ProjectKey: key}}
	if err := s.writeConfig(base, 0, 0); err != nil {
		return nil, err
	}
	return s, nil
}

func firstWritableScratchBase(projectPath, override string) (string, error) {
	var candidates []string
	if override != "" {
		candidates = append(candidates, override)
	}
	candidates = append(candidates, os.TempDir(), filepath.Join(projectPath, ".code_indexer"))
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".code_indexer"))
	}

	for _, c := range candidates {
		if writable(c) {
			return c, nil
		}
	}
	return "", fmt.Errorf("no writable candidate among %v", candidates)
}

func writable(dir string) bool {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false
	}
	probe := filepath.Join(dir, ".write-probe")
	f, err := os.Create(probe)
	if err != nil {
		return false
	}
	f.Close()
	os.Remove(probe)
	return true
}

// Root returns the IndexRoot this Store is bound to.
func (s *Store) Root() IndexRoot { return s.root }

// ConfigSnapshot is the subset of config.json exposed to callers such as
// get_settings_info.
type ConfigSnapshot struct {
	SchemaVersion      uint32
	ShallowBuiltUnixNs int64
	DeepBuiltUnixNs    int64
}

// ReadConfigSnapshot reads the current config.json, returning the zero
// value if it is missing or unreadable.
func (s *Store) ReadConfigSnapshot() ConfigSnapshot {
	cfg, err := readConfigFile(s.root.configPath())
	if err != nil {
		return ConfigSnapshot{}
	}
	return ConfigSnapshot{
		SchemaVersion:      cfg.SchemaVersion,
		ShallowBuiltUnixNs: cfg.ShallowBuiltUnixNs,
		DeepBuiltUnixNs:    cfg.DeepBuiltUnixNs,
	}
}

// LoadShallow reads and validates the shallow index blob; a missing file,
// schema mismatch, or CRC mismatch all return (nil, nil) to force a
// rebuild.
func (s *Store) LoadShallow() (*shallow.Index, error) {
	payload, ok, err := store.ReadValidated(s.root.shallowPath())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return store.DecodeShallow(payload)
}

// LoadDeep is LoadShallow's counterpart for the deep index.
func (s *Store) LoadDeep() (*deepindex.Index, error) {
	payload, ok, err := store.ReadValidated(s.root.deepPath())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return store.DecodeDeep(payload)
}

// PersistShallow atomically writes idx and records its build timestamp in
// config.json.
func (s *Store) PersistShallow(idx *shallow.Index, buildUnixNano int64) error {
	idx.BuildUnixNano = buildUnixNano
	if err := store.WriteAtomic(s.root.shallowPath(), store.EncodeShallow(idx), buildUnixNano); err != nil {
		return err
	}
	return s.updateConfig(func(c *configFile) { c.ShallowBuiltUnixNs = buildUnixNano })
}

// PersistDeep is PersistShallow's counterpart for the deep index.
func (s *Store) PersistDeep(idx *deepindex.Index, buildUnixNano int64) error {
	idx.BuildUnixNano = buildUnixNano
	if err := store.WriteAtomic(s.root.deepPath(), store.EncodeDeep(idx), buildUnixNano); err != nil {
		return err
	}
	return s.updateConfig(func(c *configFile) { c.DeepBuiltUnixNs = buildUnixNano })
}

// Clear removes the entire IndexRoot, tolerant of it already being gone.
func (s *Store) Clear() error {
	if err := os.RemoveAll(s.root.Dir); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("settings: clear %s: %w", s.root.Dir, err)
	}
	return nil
}

func (s *Store) writeConfig(scratchBase string, shallowTS, deepTS int64) error {
	cfg := configFile{
		ScratchBase:        scratchBase,
		ProjectRoot:        s.projectRoot,
		ProjectKey:         s.root.ProjectKey,
		SchemaVersion:      store.SchemaVersion,
		ShallowBuiltUnixNs: shallowTS,
		DeepBuiltUnixNs:    deepTS,
	}
	return writeConfigFile(s.root.configPath(), cfg)
}

func (s *Store) updateConfig(mutate func(*configFile)) error {
	cfg, err := readConfigFile(s.root.configPath())
	if err != nil {
		cfg = configFile{ProjectRoot: s.projectRoot, ProjectKey: s.root.ProjectKey}
	}
	cfg.SchemaVersion = store.SchemaVersion
	mutate(&cfg)
	return writeConfigFile(s.root.configPath(), cfg)
}

func readConfigFile(path string) (configFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return configFile{}, err
	}
	var cfg configFile
	if err := json.Unmarshal(data, &cfg); err != nil {
		return configFile{}, err
	}
	return cfg, nil
}

func writeConfigFile(path string, cfg configFile) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("settings: marshal config.json: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
