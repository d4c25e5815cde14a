package extract

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
)

const (
	mimePDF  = "application/pdf"
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

	// ParserVersion tags every ParseResult with the extraction algorithm and
	// library combination that produced it, so stale parses can be detected
	// if the heuristics change.
	ParserVersion = "go-v1-ledongthuc-nguyenthenguyen"
)

var (
	// ErrUnsupportedFormat reports a file type the extractor cannot handle.
	// Only PDF and DOCX are supported.
	ErrUnsupportedFormat = errors.New("unsupported resume format")

	// ErrEmptyExtraction reports that extraction succeeded mechanically but
	// yielded no text. This is a content problem with the uploaded file, not
	// a transient failure.
	ErrEmptyExtraction = errors.New("extracted resume text is empty")
)

// Result is the output of a single extraction pass.
type Result struct {
	RawText       string   `json:"rawText"`
	Sections      Sections `json:"sections"`
	ParserVersion string   `json:"parserVersion"`
}

// Extract converts a resume binary into normalized plain text plus a
// best-effort section breakdown. It is a pure function of its inputs.
func Extract(mimeType, fileName string, data []byte) (Result, error) {
	var raw string
	var err error

	switch {
	case isPDF(mimeType, fileName):
		raw, err = extractPDF(data)
	case isDOCX(mimeType, fileName):
		raw, err = extractDOCX(data)
	default:
		return Result{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, mimeType)
	}
	if err != nil {
		return Result{}, fmt.Errorf("extract %s: %w", fileName, err)
	}

	rawText := NormalizeText(raw)
	if rawText == "" {
		return Result{}, ErrEmptyExtraction
	}

	return Result{
		RawText:       rawText,
		Sections:      StructureText(rawText),
		ParserVersion: ParserVersion,
	}, nil
}

var multiNewline = regexp.MustCompile(`\n{3,}`)

// NormalizeText collapses CRLF to LF, strips NUL bytes, turns tabs into single
// spaces, collapses runs of 3+ newlines to exactly 2, and trims the ends.
func NormalizeText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.ReplaceAll(s, "\x00", "")
	s = strings.ReplaceAll(s, "\t", " ")
	s = multiNewline.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

func isPDF(mimeType, fileName string) bool {
	return cleanMime(mimeType) == mimePDF || strings.HasSuffix(strings.ToLower(fileName), ".pdf")
}

func isDOCX(mimeType, fileName string) bool {
	return cleanMime(mimeType) == mimeDOCX || strings.ToLower(filepath.Ext(fileName)) == ".docx"
}

func cleanMime(mimeType string) string {
	return strings.ToLower(strings.TrimSpace(strings.Split(mimeType, ";")[0]))
}

func extractPDF(data []byte) (string, error) {
	reader := bytes.NewReader(data)
	pdfReader, err := pdf.NewReader(reader, int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("read pdf: %w", err)
	}
	plain, err := pdfReader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("pdf plain text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("pdf read: %w", err)
	}
	return buf.String(), nil
}

func extractDOCX(data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.New("empty docx data")
	}
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("read docx: %w", err)
	}
	defer doc.Close()

	return stripDocxXML(doc.Editable().GetContent()), nil
}

// stripDocxXML walks word/document.xml and keeps character data, emitting a
// newline at paragraph and line-break boundaries.
func stripDocxXML(raw string) string {
	decoder := xml.NewDecoder(strings.NewReader(raw))
	var buf strings.Builder
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return raw
		}
		switch t := tok.(type) {
		case xml.CharData:
			buf.WriteString(string(t))
		case xml.EndElement:
			if t.Name.Local == "p" || t.Name.Local == "br" {
				if buf.Len() > 0 {
					buf.WriteString("\n")
				}
			}
		}
	}
	return strings.TrimSpace(buf.String())
}
