// Package extractor defines the pluggable path-to-text contract used by the
// ingest pipeline, and a registry of extractors keyed by file extension.
//
// Extractors are external collaborators per the project's scope: this
// package owns only the contract and a couple of trivial built-ins (plain
// text and markdown). Richer formats (PDF, DOCX, XLSX, PPTX) are registered
// as stubs that report UnsupportedType until a real parser is wired in.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Sentinel errors surfaced by Extract; the ingest scheduler treats these as
// recoverable, per-file failures rather than fatal task errors.
var (
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrTooLarge        = errors.New("file exceeds size cap")
	ErrContentRejected = errors.New("content rejected by policy")
)

// DefaultMaxFileSize is the default file-size cap in bytes (50 MB).
const DefaultMaxFileSize int64 = 50 * 1024 * 1024

// Result is the plain-text extraction of one source.
type Result struct {
	Text string
	Type string // detected type, e.g. "text" from PlainTextExtractor
	Size int64  // size in bytes of the original source
}

// Extractor turns a path (or opaque remote reference) into plain text.
type Extractor interface {
	// Extract reads and decodes the source at path. It must not execute any
	// part of the source content; it only reads.
	Extract(ctx context.Context, path string) (Result, error)

	// Extensions lists the lowercase, dot-less file extensions this
	// extractor handles (e.g. "txt", "md").
	Extensions() []string
}

// Registry maps file extensions to their Extractor, and applies the shared
// size-cap and content-deny-list policy uniformly, regardless of format.
type Registry struct {
	mu          sync.RWMutex
	byExt       map[string]Extractor
	maxFileSize int64
	denyList    []string // substrings that make extracted text ContentRejected
}

// NewRegistry creates an extractor registry with the given size cap (0 uses
// DefaultMaxFileSize) and content deny-list patterns.
func NewRegistry(maxFileSize int64, denyList []string) *Registry {
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}
	return &Registry{
		byExt:       make(map[string]Extractor),
		maxFileSize: maxFileSize,
		denyList:    denyList,
	}
}

// Register adds an extractor for all of its declared extensions. Returns an
// error if any extension is already claimed.
func (r *Registry) Register(e Extractor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, ext := range e.Extensions() {
		ext = strings.ToLower(ext)
		if _, exists := r.byExt[ext]; exists {
			return fmt.Errorf("extractor for extension %q already registered", ext)
		}
	}
	for _, ext := range e.Extensions() {
		r.byExt[strings.ToLower(ext)] = e
	}
	return nil
}

// Extensions lists all registered extensions in sorted order.
func (r *Registry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	exts := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Extract dispatches to the extractor registered for ext, and enforces the
// size cap and content deny-list uniformly across every format.
func (r *Registry) Extract(ctx context.Context, path, ext string, knownSize int64) (Result, error) {
	if knownSize > r.maxFileSize {
		return Result{}, fmt.Errorf("%w: %d bytes exceeds cap %d", ErrTooLarge, knownSize, r.maxFileSize)
	}

	r.mu.RLock()
	e, ok := r.byExt[strings.ToLower(ext)]
	r.mu.RUnlock()
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrUnsupportedType, ext)
	}

	res, err := e.Extract(ctx, path)
	if err != nil {
		return Result{}, err
	}

	if res.Size > r.maxFileSize {
		return Result{}, fmt.Errorf("%w: %d bytes exceeds cap %d", ErrTooLarge, res.Size, r.maxFileSize)
	}

	for _, pattern := range r.denyList {
		if pattern != "" && strings.Contains(res.Text, pattern) {
			return Result{}, fmt.Errorf("%w: matched deny pattern %q", ErrContentRejected, pattern)
		}
	}

	return res, nil
}

// DefaultDenyList returns the built-in content-validation deny patterns.
func DefaultDenyList() []string {
	return []string{"<script", "<iframe", "javascript:"}
}
