// Package pe parses the Portable Executable format: the DOS header, PE/COFF
// header, optional header, data directory table, and the section-aware
// sub-parsers each directory entry points at. Header decoding is the only
// step that can fail the whole parse; every directory is warn-and-continue,
// matching how real loaders and disassemblers tolerate malformed metadata
// that sits outside the load path.
package pe

import (
	"io"
	"log/slog"

	"github.com/appsworld/go-binparse/bstream"
)

// File is a parsed PE image. Only Parse populates it; a zero File is not
// independently useful.
type File struct {
	stream *bstream.Stream

	DOSHeader      DOSHeader
	FileHeader     FileHeader
	OptionalHeader OptionalHeader
	Variant        Variant
	Sections       []Section
	directories    [NumDataDirectories]DataDirectory

	Imports    []ImportDescriptor
	HasImports bool

	TLS    *TLS
	HasTLS bool

	LoadConfig    *LoadConfig
	HasLoadConfig bool

	Exports    *ExportDirectory
	HasExports bool

	Relocations    []BaseRelocationBlock
	HasRelocations bool

	DebugEntries []DebugEntry
	HasDebug     bool

	Resources    *ResourceNode
	HasResources bool

	Signatures   []Certificate
	HasSignature bool

	log *slog.Logger
}

// Logger returns the logger Parse attached to the file, so callers can
// inspect or re-use it (e.g. to collect the same warnings in a report).
func (f *File) Logger() *slog.Logger { return f.log }

// warnAndContinue runs step, logging and swallowing any error instead of
// propagating it. This is the combinator every directory sub-parser in the
// pipeline is wrapped in: a single malformed directory never aborts the
// rest of the parse.
func warnAndContinue(log *slog.Logger, name string, step func() error) {
	if err := step(); err != nil {
		log.Warn("skipping directory", "directory", name, "error", err)
	}
}

// Parse decodes r fully into memory and runs the header-then-directories
// pipeline described in this package's doc comment. log may be nil, in
// which case warnings are discarded via slog.DiscardHandler semantics.
func Parse(r io.Reader, log *slog.Logger) (*File, error) {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, &ParsingError{Step: "read input", Err: err}
	}

	s := bstream.New(buf)
	f := &File{stream: s, log: log}

	// Step 1: headers. Any failure here is fatal.
	dos, err := decodeDOSHeader(s)
	if err != nil {
		return nil, &ParsingError{Step: "dos header", Err: err}
	}
	f.DOSHeader = dos

	ntOffset := int64(dos.AddressOfNewEXEHeader)
	fh, err := decodeFileHeader(s, ntOffset)
	if err != nil {
		return nil, &ParsingError{Step: "file header", Err: err}
	}
	f.FileHeader = fh

	optOffset := ntOffset + 4 + 20 // signature + IMAGE_FILE_HEADER
	oh, variant, err := decodeOptionalHeader(s, optOffset)
	if err != nil {
		return nil, &ParsingError{Step: "optional header", Err: err}
	}
	f.OptionalHeader = oh
	f.Variant = variant

	// Step 2: section table. Warn-only: without it, RVA resolution simply
	// fails for every later directory, which those steps already handle.
	sectionTableOffset := optOffset + int64(fh.SizeOfOptionalHeader)
	warnAndContinue(log, "sections", func() error {
		sections, err := decodeSectionHeaders(s, sectionTableOffset, fh.NumberOfSections)
		f.Sections = sections
		return err
	})

	// Step 3: data directories.
	dirOffset := optOffset + optionalHeaderSize(variant)
	warnAndContinue(log, "data directories", func() error {
		dirs, err := decodeDataDirectories(s, dirOffset)
		f.directories = dirs
		return err
	})
	for kind := DirectoryKind(0); kind < NumDataDirectories; kind++ {
		if f.directories[kind].RVA != 0 {
			tagSection(f.Sections, f.directories[kind].RVA, kind)
		}
	}

	// Step 4: per-directory sub-parsers, each independently warn-and-continue.
	if f.directories[DirImport].RVA != 0 {
		warnAndContinue(log, "imports", func() error {
			imports, err := f.parseImports(log)
			if err != nil {
				return err
			}
			f.Imports, f.HasImports = imports, true
			return nil
		})
	}

	if f.directories[DirTLS].RVA != 0 {
		warnAndContinue(log, "tls", func() error {
			tls, err := f.parseTLS(log)
			if err != nil {
				return err
			}
			f.TLS, f.HasTLS = tls, true
			return nil
		})
	}

	if f.directories[DirLoadConfig].RVA != 0 {
		warnAndContinue(log, "load config", func() error {
			lc, err := f.parseLoadConfig()
			if err != nil {
				return err
			}
			f.LoadConfig, f.HasLoadConfig = lc, true
			return nil
		})
	}

	if f.directories[DirExport].RVA != 0 {
		warnAndContinue(log, "exports", func() error {
			ex, err := f.parseExports()
			if err != nil {
				return err
			}
			f.Exports, f.HasExports = ex, true
			return nil
		})
	}

	if f.directories[DirBaseReloc].RVA != 0 {
		warnAndContinue(log, "base relocations", func() error {
			rel, err := f.parseRelocations()
			if err != nil {
				return err
			}
			f.Relocations, f.HasRelocations = rel, true
			return nil
		})
	}

	if f.directories[DirDebug].RVA != 0 {
		warnAndContinue(log, "debug", func() error {
			entries, err := f.parseDebug()
			if err != nil {
				return err
			}
			f.DebugEntries, f.HasDebug = entries, true
			return nil
		})
	}

	if f.directories[DirResource].RVA != 0 {
		warnAndContinue(log, "resources", func() error {
			res, err := f.parseResources()
			if err != nil {
				return err
			}
			f.Resources, f.HasResources = res, true
			return nil
		})
	}

	if f.directories[DirCertificate].RVA != 0 {
		warnAndContinue(log, "signature", func() error {
			certs, err := f.parseSignature()
			if err != nil {
				return err
			}
			f.Signatures, f.HasSignature = certs, true
			return nil
		})
	}

	return f, nil
}

// DataDirectory returns the raw {RVA,Size} entry for kind, regardless of
// whether this package has a dedicated sub-parser for it.
func (f *File) DataDirectory(kind DirectoryKind) DataDirectory {
	return f.directories[kind]
}
