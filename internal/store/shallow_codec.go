package store

import (
	"sort"

	"github.com/codeindexer/corex/internal/shallow"
	"github.com/codeindexer/corex/internal/types"
)

// EncodeShallow serializes a Shallow Index. Files are assumed already
// sorted by relative path (shallow.Build guarantees this); the language
// histogram is re-sorted here by key for determinism.
func EncodeShallow(idx *shallow.Index) []byte {
	w := &writer{}
	w.str(idx.ProjectKey)
	w.str(idx.Root)
	w.u32(uint32(len(idx.Files)))
	for _, rec := range idx.Files {
		w.str(rec.RelPath)
		w.str(rec.Language)
		w.i64(rec.SizeBytes)
		w.i64(rec.ModTime)
		w.i32(int32(rec.LineCount))
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

	return w.bytes()
}

// DecodeShallow reconstructs a Shallow Index from a payload produced by
// EncodeShallow.
func DecodeShallow(payload []byte) (*shallow.Index, error) {
	r := newReader(payload)

	projectKey, err := r.str()
	if err != nil {
		return nil, wrapDecodeErr("shallow.ProjectKey", err)
	}
	root, err := r.str()
	if err != nil {
		return nil, wrapDecodeErr("shallow.Root", err)
	}
	fileCount, err := r.u32()
	if err != nil {
		return nil, wrapDecodeErr("shallow.fileCount", err)
	}

	files := make([]types.FileRecord, 0, fileCount)
	for i := uint32(0); i < fileCount; i++ {
		rel, err := r.str()
		if err != nil {
			return nil, wrapDecodeErr("shallow.FileRecord.RelPath", err)
		}
		lang, err := r.str()
		if err != nil {
			return nil, wrapDecodeErr("shallow.FileRecord.Language", err)
		}
		size, err := r.i64()
		if err != nil {
			return nil, wrapDecodeErr("shallow.FileRecord.SizeBytes", err)
		}
		mtime, err := r.i64()
		if err != nil {
			return nil, wrapDecodeErr("shallow.FileRecord.ModTime", err)
		}
		lines, err := r.i32()
		if err != nil {
			return nil, wrapDecodeErr("shallow.FileRecord.LineCount", err)
		}
		files = append(files, types.FileRecord{
			RelPath: rel, Language: lang, SizeBytes: size, ModTime: mtime, LineCount: int(lines),
		})
	}

	langCount, err := r.u32()
	if err != nil {
		return nil, wrapDecodeErr("shallow.langCount", err)
	}
	langs := make(map[string]int, langCount)
	for i := uint32(0); i < langCount; i++ {
		lang, err := r.str()
		if err != nil {
			return nil, wrapDecodeErr("shallow.lang", err)
		}
		count, err := r.u32()
		if err != nil {
			return nil, wrapDecodeErr("shallow.langCount[i]", err)
		}
		langs[lang] = int(count)
	}

	return &shallow.Index{
		ProjectKey:     projectKey,
		Root:           root,
		Files:          files,
		LanguageCounts: langs,
	}, nil
}
