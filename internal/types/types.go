// Package types holds the shared data model for both indexes: file
// records, symbols, call edges, and the watcher event shape. Nothing here
// owns filesystem or index lifecycle; that lives in the settings, shallow,
// and deepindex packages.
package types

// SymbolKind enumerates the symbol categories a Parsing Strategy can emit.
type SymbolKind string

const (
	KindFunction  SymbolKind = "function"
	KindMethod    SymbolKind = "method"
	KindClass     SymbolKind = "class"
	KindInterface SymbolKind = "interface"
	KindEnum      SymbolKind = "enum"
	KindModule    SymbolKind = "module"
	KindVariable  SymbolKind = "variable"
	KindConstant  SymbolKind = "constant"
)

// Symbol is a single named entity extracted from a source file.
type Symbol struct {
	QualifiedName   string     `json:"qn"`
	Kind            SymbolKind `json:"kind"`
	DeclaringFile   string     `json:"file"`
	StartLine       int        `json:"start_line"`
	EndLine         int        `json:"end_line"`
	Signature       string     `json:"signature,omitempty"`
	Docstring       string     `json:"docstring,omitempty"`
	ParentQualified string     `json:"parent,omitempty"`
	Exported        bool       `json:"exported"`
}

// CallSite is a single call observed while parsing a file. Resolution of
// CalleeSurfaceToken to an actual Symbol happens in the Deep Index's Link
// phase, never inside a Parsing Strategy.
type CallSite struct {
	CallerQualified    string `json:"caller_qn"`
	CalleeSurfaceToken string `json:"callee_token"`
	Line               int    `json:"line"`
}

// Import is a single import/include/use statement observed in a file, kept
// as the literal source string plus (when cheap to determine) a resolved
// target file relative path used by call-site resolution step (c).
type Import struct {
	Source       string `json:"source"`
	ResolvedFile string `json:"resolved_file,omitempty"`
}

// FileSymbols is everything a Parsing Strategy produces for one file.
type FileSymbols struct {
	Path               string     `json:"path"`
	Language           string     `json:"language"`
	Imports            []Import   `json:"imports"`
	Exports            []string   `json:"exports,omitempty"`
	Symbols            []Symbol   `json:"symbols"`
	CallSites          []CallSite `json:"call_sites"`
	LineCount          int        `json:"line_count"`
	ParseDurationMicros int64     `json:"parse_duration_us"`
}

// FileParseFailure records a per-file parse error; the Deep Index keeps one
// of these per failed file and contributes no symbols for it.
type FileParseFailure struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// CallEdge is a resolved, directed call between two symbols in the same
// DeepIndex.
type CallEdge struct {
	CallerQualified string `json:"caller_qn"`
	CalleeQualified string `json:"callee_qn"`
}

// FileRecord is the Shallow Index's minimal per-file metadata.
type FileRecord struct {
	RelPath   string `json:"path"`
	Language  string `json:"language"`
	SizeBytes int64  `json:"size_bytes"`
	ModTime   int64  `json:"mod_time_unix"`
	LineCount int    `json:"line_count,omitempty"`
}

// WatcherEventKind enumerates the filesystem change kinds the watcher can
// observe. WatcherEvents are never persisted.
type WatcherEventKind string

const (
	EventCreate WatcherEventKind = "create"
	EventModify WatcherEventKind = "modify"
	EventDelete WatcherEventKind = "delete"
	EventMove   WatcherEventKind = "move"
)

// WatcherEvent is a single coalesced filesystem change.
type WatcherEvent struct {
	Kind    WatcherEventKind
	OldPath string // set for move/delete
	NewPath string // set for create/modify/move
}

// FileSummary is the response shape for the file_summary operation.
type FileSummary struct {
	Path       string            `json:"path"`
	Language   string            `json:"language"`
	LineCount  int               `json:"line_count"`
	Imports    []Import          `json:"imports"`
	Symbols    []SymbolWithUsage `json:"symbols"`
}

// SymbolWithUsage decorates a Symbol with its resolved reverse call graph.
type SymbolWithUsage struct {
	Symbol
	CalledBy []string `json:"called_by"`
}

// SearchOptions configures one Search Router query.
type SearchOptions struct {
	Regex         bool   `json:"regex,omitempty"`
	Fuzzy         bool   `json:"fuzzy,omitempty"`
	FileGlob      string `json:"file_glob,omitempty"`
	CaseSensitive bool   `json:"case_sensitive,omitempty"`
	MaxMatches    int    `json:"max_matches,omitempty"`
}

// SearchMatch is one hit in a Search Router result stream.
type SearchMatch struct {
	Path    string `json:"path"`
	Line    int    `json:"line"`
	Column  int    `json:"column"`
	Preview string `json:"preview"`
	// FuzzyDowngraded is set when Fuzzy was requested but the active
	// backend only supports word-boundary partial matching rather than
	// true edit-distance fuzzy search.
	FuzzyDowngraded bool `json:"fuzzy_downgraded,omitempty"`
}
