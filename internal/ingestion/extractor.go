package ingestion

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"go.uber.org/zap"
)

// ErrUnsupportedFormat is returned for file types the extractor cannot read.
// Callers skip such files; the error is never surfaced to end users.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// Extractor converts resume files into plain text. Extraction failures on
// supported formats yield an empty string rather than an error, because a
// single unreadable resume must not abort a batch.
type Extractor struct {
	log *zap.Logger
}

// NewExtractor creates a document text extractor
func NewExtractor(log *zap.Logger) *Extractor {
	return &Extractor{log: log}
}

// Extract returns the plain text of the document at path. Unsupported
// extensions return ErrUnsupportedFormat; any other failure is logged as a
// warning and reported as empty text.
func (e *Extractor) Extract(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))

	var text string
	var err error
	switch ext {
	case ".txt":
		text, err = extractPlainText(path)
	case ".pdf":
		text, err = extractPDF(path)
	case ".docx", ".doc":
		text, err = extractDOCX(path)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}

	if err != nil {
		e.log.Warn("text extraction failed",
			zap.String("path", path),
			zap.Error(err))
		return "", nil
	}
	return text, nil
}

func extractPlainText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read text file: %w", err)
	}
	return string(data), nil
}

// extractPDF tries a layout-preserving extraction first and falls back to a
// pure-Go reader when that fails
func extractPDF(path string) (string, error) {
	text, primaryErr := extractPDFLayout(path)
	if primaryErr == nil {
		return text, nil
	}

	text, fallbackErr := extractPDFPlain(path)
	if fallbackErr != nil {
		return "", fmt.Errorf("both PDF strategies failed: %v; %w", primaryErr, fallbackErr)
	}
	return text, nil
}

// extractPDFLayout shells out to pdftotext (poppler-utils) for
// layout-preserving extraction
func extractPDFLayout(path string) (string, error) {
	out, err := exec.Command("pdftotext", "-layout", path, "-").Output()
	if err != nil {
		return "", fmt.Errorf("pdftotext failed: %w", err)
	}
	if len(bytes.TrimSpace(out)) == 0 {
		return "", fmt.Errorf("pdftotext produced no text")
	}
	return string(out), nil
}

// extractPDFPlain reads the PDF text objects directly
func extractPDFPlain(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	reader, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to extract PDF text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(reader); err != nil {
		return "", fmt.Errorf("failed to read PDF text: %w", err)
	}
	return buf.String(), nil
}

var (
	docxRunRe = regexp.MustCompile(`<w:t[^>]*>([^<]*)</w:t>`)

	xmlUnescaper = strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&apos;", "'",
	)
)

// extractDOCX concatenates paragraph text, skipping empty paragraphs
func extractDOCX(path string) (string, error) {
	r, err := docx.ReadDocxFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to open DOCX: %w", err)
	}
	defer r.Close()

	content := r.Editable().GetContent()

	var paragraphs []string
	for _, para := range strings.Split(content, "</w:p>") {
		var sb strings.Builder
		for _, run := range docxRunRe.FindAllStringSubmatch(para, -1) {
			sb.WriteString(xmlUnescaper.Replace(run[1]))
		}
		if text := strings.TrimSpace(sb.String()); text != "" {
			paragraphs = append(paragraphs, text)
		}
	}
	return strings.Join(paragraphs, "\n"), nil
}
