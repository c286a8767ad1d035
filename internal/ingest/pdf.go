package ingest

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

// IngestPDF extracts plain text from PDF attachment bytes and reconciles
// the product blocks found by the line scanner.
func (p *Pipeline) IngestPDF(storeID int64, data []byte) (int, error) {
	text, err := pdfText(data)
	if err != nil {
		return 0, fmt.Errorf("extract pdf text: %w", err)
	}
	return p.ingestProductText(storeID, text), nil
}

// ingestProductText feeds each scanned product block through the common
// record path. Split out from IngestPDF so the scanner is testable on raw
// text without binary PDF fixtures.
func (p *Pipeline) ingestProductText(storeID int64, text string) int {
	count := 0
	scanProductBlocks(text, func(raw map[string]string) {
		if p.ingestRecord(storeID, raw) {
			count++
		}
	})
	return count
}

// pdfText extracts the plain text of a PDF document. The parser panics on
// some malformed inputs, so that is converted into an error here.
func pdfText(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	tr, err := r.GetPlainText()
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	if _, err := io.Copy(&sb, tr); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// Labelled lines recognized by the scanner, matched case-insensitively as
// prefixes.
const (
	labelName        = "Product Name:"
	labelPrice       = "Price:"
	labelStock       = "Stock:"
	labelDescription = "Description:"
)

// scanProductBlocks walks non-blank lines accumulating labelled fields into
// the current product buffer. A new "Product Name:" line flushes the
// previous buffer; the final buffer is flushed at end of input. Field lines
// seen before any "Product Name:" still form a buffer, which downstream
// validation rejects for the missing name. Numeric values are stripped to
// digits (and a decimal point for price) before coercion, so malformed
// remainders surface as invalid records rather than zeroes.
func scanProductBlocks(text string, flush func(raw map[string]string)) {
	var cur map[string]string
	ensure := func() map[string]string {
		if cur == nil {
			cur = make(map[string]string, 4)
		}
		return cur
	}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		switch {
		case hasPrefixFold(line, labelName):
			if cur != nil {
				flush(cur)
			}
			cur = map[string]string{"name": labelValue(line)}
		case hasPrefixFold(line, labelPrice):
			ensure()["price"] = stripNumeric(labelValue(line), true)
		case hasPrefixFold(line, labelStock):
			ensure()["stock"] = stripNumeric(labelValue(line), false)
		case hasPrefixFold(line, labelDescription):
			ensure()["description"] = labelValue(line)
		}
	}
	if cur != nil {
		flush(cur)
	}
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

// labelValue returns the text between the first and (if any) second colon,
// trimmed. Anything after a second colon is ignored.
func labelValue(line string) string {
	parts := strings.SplitN(line, ":", 3)
	if len(parts) < 2 {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// stripNumeric drops every character that is not a digit, keeping the
// decimal point when allowDecimal is set.
func stripNumeric(s string, allowDecimal bool) string {
	var sb strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || (allowDecimal && r == '.') {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
