package store

import (
	"sort"

	"github.com/codeindexer/corex/internal/deepindex"
	"github.com/codeindexer/corex/internal/types"
)

// fileMeta is the per-file metadata EncodeDeep keeps outside the Symbol
// table: everything in types.FileSymbols except the Symbols themselves,
// which are reconstructed on decode by grouping the global symbol table by
// DeclaringFile (avoiding storing each symbol twice).
type fileMeta struct {
	path      string
	language  string
	lineCount int
	parseUS   int64
	imports   []types.Import
}

// EncodeDeep serializes a Deep Index. Symbols are written in
// qualified-name order and edges in (caller_qn, callee_qn) order so two
// builds from identical input produce byte-identical output.
func EncodeDeep(idx *deepindex.Index) []byte {
	w := &writer{}
	w.str(idx.ProjectKey)
	w.i64(idx.BuildUnixNano)
	w.u32(uint32(idx.FileCount))

	metas := make([]fileMeta, 0, len(idx.Files))
	for path, fs := range idx.Files {
		metas = append(metas, fileMeta{
			path: path, language: fs.Language, lineCount: fs.LineCount,
			parseUS: fs.ParseDurationMicros, imports: fs.Imports,
		})
	}
	sort.Slice(metas, func(i, j int) bool { return metas[i].path < metas[j].path })

	w.u32(uint32(len(metas)))
	for _, m := range metas {
		w.str(m.path)
		w.str(m.language)
		w.i32(int32(m.lineCount))
		w.i64(m.parseUS)
		w.u32(uint32(len(m.imports)))
		for _, imp := range m.imports {
			w.str(imp.Source)
			w.str(imp.ResolvedFile)
		}
	}

	qns := make([]string, 0, len(idx.Symbols))
	for qn := range idx.Symbols {
		qns = append(qns, qn)
	}
	sort.Strings(qns)
	w.u32(uint32(len(qns)))
	for _, qn := range qns {
		sym := idx.Symbols[qn]
		w.str(sym.QualifiedName)
		w.str(string(sym.Kind))
		w.str(sym.DeclaringFile)
		w.i32(int32(sym.StartLine))
		w.i32(int32(sym.EndLine))
		w.str(sym.Signature)
		w.str(sym.Docstring)
		w.str(sym.ParentQualified)
		w.boolean(sym.Exported)
	}

	w.u32(uint32(len(idx.Edges)))
	for _, e := range idx.Edges {
		w.str(e.CallerQualified)
		w.str(e.CalleeQualified)
	}

	w.u32(uint32(len(idx.Failures)))
	for _, f := range idx.Failures {
		w.str(f.Path)
		w.str(f.Error)
	}

	langs := make([]string, 0, len(idx.LanguageCounts))
	for lang := range idx.LanguageCounts {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	w.u32(uint32(len(langs)))
	for _, lang := range langs {
		w.str(lang)
		w.u32(uint32(idx.LanguageCounts[lang]))
	}

	w.u32(uint32(idx.AmbiguityCount))

	return w.bytes()
}

// DecodeDeep reconstructs a Deep Index from a payload produced by
// EncodeDeep. idx.Files is rebuilt by grouping the decoded Symbol table by
// DeclaringFile; CallSites are not persisted (they are an intermediate
// artifact of the Link phase, not needed by Summarize or LookupQN).
func DecodeDeep(payload []byte) (*deepindex.Index, error) {
	r := newReader(payload)

	projectKey, err := r.str()
	if err != nil {
		return nil, wrapDecodeErr("deep.ProjectKey", err)
	}
	buildTS, err := r.i64()
	if err != nil {
		return nil, wrapDecodeErr("deep.BuildUnixNano", err)
	}
	fileCount, err := r.u32()
	if err != nil {
		return nil, wrapDecodeErr("deep.FileCount", err)
	}

	metaCount, err := r.u32()
	if err != nil {
		return nil, wrapDecodeErr("deep.metaCount", err)
	}
	metas := make(map[string]fileMeta, metaCount)
	for i := uint32(0); i < metaCount; i++ {
		path, err := r.str()
		if err != nil {
			return nil, wrapDecodeErr("deep.fileMeta.path", err)
		}
		lang, err := r.str()
		if err != nil {
			return nil, wrapDecodeErr("deep.fileMeta.language", err)
		}
		lines, err := r.i32()
		if err != nil {
			return nil, wrapDecodeErr("deep.fileMeta.lineCount", err)
		}
		parseUS, err := r.i64()
		if err != nil {
			return nil, wrapDecodeErr("deep.fileMeta.parseUS", err)
		}
		impCount, err := r.u32()
		if err != nil {
			return nil, wrapDecodeErr("deep.fileMeta.impCount", err)
		}
		imports := make([]types.Import, 0, impCount)
		for j := uint32(0); j < impCount; j++ {
			src, err := r.str()
			if err != nil {
				return nil, wrapDecodeErr("deep.import.Source", err)
			}
			resolved, err := r.str()
			if err != nil {
				return nil, wrapDecodeErr("deep.import.ResolvedFile", err)
			}
			imports = append(imports, types.Import{Source: src, ResolvedFile: resolved})
		}
		metas[path] = fileMeta{path: path, language: lang, lineCount: int(lines), parseUS: parseUS, imports: imports}
	}

	symCount, err := r.u32()
	if err != nil {
		return nil, wrapDecodeErr("deep.symCount", err)
	}
	symbols := make(map[string]types.Symbol, symCount)
	filesSymbols := make(map[string][]types.Symbol)
	for i := uint32(0); i < symCount; i++ {
		qn, err := r.str()
		if err != nil {
			return nil, wrapDecodeErr("deep.symbol.QualifiedName", err)
		}
		kind, err := r.str()
		if err != nil {
			return nil, wrapDecodeErr("deep.symbol.Kind", err)
		}
		declFile, err := r.str()
		if err != nil {
			return nil, wrapDecodeErr("deep.symbol.DeclaringFile", err)
		}
		startLine, err := r.i32()
		if err != nil {
			return nil, wrapDecodeErr("deep.symbol.StartLine", err)
		}
		endLine, err := r.i32()
		if err != nil {
			return nil, wrapDecodeErr("deep.symbol.EndLine", err)
		}
		signature, err := r.str()
		if err != nil {
			return nil, wrapDecodeErr("deep.symbol.Signature", err)
		}
		docstring, err := r.str()
		if err != nil {
			return nil, wrapDecodeErr("deep.symbol.Docstring", err)
		}
		parent, err := r.str()
		if err != nil {
			return nil, wrapDecodeErr("deep.symbol.ParentQualified", err)
		}
		exported, err := r.boolean()
		if err != nil {
			return nil, wrapDecodeErr("deep.symbol.Exported", err)
		}
		sym := types.Symbol{
			QualifiedName: qn, Kind: types.SymbolKind(kind), DeclaringFile: declFile,
			StartLine: int(startLine), EndLine: int(endLine), Signature: signature,
			Docstring: docstring, ParentQualified: parent, Exported: exported,
		}
		symbols[qn] = sym
		filesSymbols[declFile] = append(filesSymbols[declFile], sym)
	}

	edgeCount, err := r.u32()
	if err != nil {
		return nil, wrapDecodeErr("deep.edgeCount", err)
	}
	edges := make([]types.CallEdge, 0, edgeCount)
	for i := uint32(0); i < edgeCount; i++ {
		caller, err := r.str()
		if err != nil {
			return nil, wrapDecodeErr("deep.edge.CallerQualified", err)
		}
		callee, err := r.str()
		if err != nil {
			return nil, wrapDecodeErr("deep.edge.CalleeQualified", err)
		}
		edges = append(edges, types.CallEdge{CallerQualified: caller, CalleeQualified: callee})
	}

	failureCount, err := r.u32()
	if err != nil {
		return nil, wrapDecodeErr("deep.failureCount", err)
	}
	failures := make([]types.FileParseFailure, 0, failureCount)
	for i := uint32(0); i < failureCount; i++ {
		path, err := r.str()
		if err != nil {
			return nil, wrapDecodeErr("deep.failure.Path", err)
		}
		msg, err := r.str()
		if err != nil {
			return nil, wrapDecodeErr("deep.failure.Error", err)
		}
		failures = append(failures, types.FileParseFailure{Path: path, Error: msg})
	}

	langCount, err := r.u32()
	if err != nil {
		return nil, wrapDecodeErr("deep.langCount", err)
	}
	langs := make(map[string]int, langCount)
	for i := uint32(0); i < langCount; i++ {
		lang, err := r.str()
		if err != nil {
			return nil, wrapDecodeErr("deep.lang", err)
		}
		count, err := r.u32()
		if err != nil {
			return nil, wrapDecodeErr("deep.lang.count", err)
		}
		langs[lang] = int(count)
	}

	ambiguity, err := r.u32()
	if err != nil {
		return nil, wrapDecodeErr("deep.AmbiguityCount", err)
	}

	files := make(map[string]types.FileSymbols, len(metas))
	for path, m := range metas {
		files[path] = types.FileSymbols{
			Path: path, Language: m.language, Imports: m.imports,
			Symbols: filesSymbols[path], LineCount: m.lineCount, ParseDurationMicros: m.parseUS,
		}
	}

	return &deepindex.Index{
		ProjectKey:     projectKey,
		BuildUnixNano:  buildTS,
		FileCount:      int(fileCount),
		Files:          files,
		Symbols:        symbols,
		Edges:          edges,
		LanguageCounts: langs,
		Failures:       failures,
		AmbiguityCount: int(ambiguity),
	}, nil
}
