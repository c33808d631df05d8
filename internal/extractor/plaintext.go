package extractor

import (
	"context"
	"os"
)

// PlainTextExtractor handles ".txt" and ".md" sources by reading the file
// verbatim. Markdown is not rendered; its raw text (including syntax
// markers) is indexed as-is.
type PlainTextExtractor struct{}

func (PlainTextExtractor) Extensions() []string {
	return []string{"txt", "md", "markdown"}
}

func (PlainTextExtractor) Extract(ctx context.Context, path string) (Result, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Result{}, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Text: string(data),
		Type: "text",
		Size: info.Size(),
	}, nil
}

// stubExtractor registers a format as recognized but not yet implemented;
// Extract always fails with ErrUnsupportedType.
type stubExtractor struct {
	exts []string
}

func (s stubExtractor) Extensions() []string { return s.exts }

func (s stubExtractor) Extract(ctx context.Context, path string) (Result, error) {
	return Result{}, ErrUnsupportedType
}

// NewDefaultRegistry builds the registry this daemon ships with: plain text
// and markdown are fully implemented, the remaining document formats listed
// in the ingest scope are registered as stubs so Directory Add reports them
// distinctly from a truly unknown extension.
func NewDefaultRegistry(maxFileSize int64, denyList []string) *Registry {
	r := NewRegistry(maxFileSize, denyList)
	_ = r.Register(PlainTextExtractor{})
	_ = r.Register(stubExtractor{exts: []string{"pdf"}})
	_ = r.Register(stubExtractor{exts: []string{"docx"}})
	_ = r.Register(stubExtractor{exts: []string{"xlsx"}})
	_ = r.Register(stubExtractor{exts: []string{"pptx"}})
	return r
}
