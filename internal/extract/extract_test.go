package extract

import (
	"archive/zip"
	"bytes"
	"errors"
	"strings"
	"testing"
)

const docxMime = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// buildDocx assembles a minimal in-memory .docx with one paragraph per entry.
func buildDocx(t *testing.T, paragraphs ...string) []byte {
	t.Helper()

	var body strings.Builder
	for _, p := range paragraphs {
		body.WriteString("<w:p><w:r><w:t>")
		body.WriteString(p)
		body.WriteString("</w:t></w:r></w:p>")
	}

	files := map[string]string{
		"[Content_Types].xml": `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`,
		"_rels/.rels": `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`,
		"word/_rels/document.xml.rels": `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"></Relationships>`,
		"word/document.xml": `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` + body.String() + `</w:body></w:document>`,
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create zip entry %s: %v", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("write zip entry %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func TestExtractDocx(t *testing.T) {
	data := buildDocx(t, "Jane Doe", "Experience", "Built things at Acme")

	result, err := Extract(docxMime, "resume.docx", data)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if result.ParserVersion != ParserVersion {
		t.Fatalf("parser version = %q, want %q", result.ParserVersion, ParserVersion)
	}
	if !strings.Contains(result.RawText, "Jane Doe") || !strings.Contains(result.RawText, "Built things at Acme") {
		t.Fatalf("raw text missing content: %q", result.RawText)
	}
}

func TestExtractUnsupportedFormat(t *testing.T) {
	_, err := Extract("image/png", "photo.png", []byte{0x89, 0x50})
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestExtractEmptyDocxIsEmptyExtraction(t *testing.T) {
	data := buildDocx(t) // no paragraphs at all

	_, err := Extract(docxMime, "empty.docx", data)
	if !errors.Is(err, ErrEmptyExtraction) {
		t.Fatalf("expected ErrEmptyExtraction, got %v", err)
	}
}

func TestExtractDocxByExtensionOnly(t *testing.T) {
	data := buildDocx(t, "content")
	if _, err := Extract("application/octet-stream", "resume.docx", data); err != nil {
		t.Fatalf("expected extension fallback to docx, got %v", err)
	}
}

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "crlf", in: "a\r\nb", want: "a\nb"},
		{name: "lone cr", in: "a\rb", want: "a\nb"},
		{name: "nul", in: "a\x00b", want: "ab"},
		{name: "tabs", in: "a\t\tb", want: "a  b"},
		{name: "newline runs", in: "a\n\n\n\n\nb", want: "a\n\nb"},
		{name: "trim", in: "\n\n  hello  \n\n", want: "hello"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeText(tt.in); got != tt.want {
				t.Fatalf("NormalizeText(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeTextProperties(t *testing.T) {
	in := "Name\r\nLine\ttwo\x00\n\n\n\nEnd\r\n"
	got := NormalizeText(in)
	if strings.ContainsAny(got, "\r\t\x00") {
		t.Fatalf("normalized text still contains forbidden bytes: %q", got)
	}
	if strings.Contains(got, "\n\n\n") {
		t.Fatalf("normalized text contains a 3+ newline run: %q", got)
	}
}
