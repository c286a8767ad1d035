package ingest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/shopmesh/shopmesh/internal/obs"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Pipeline turns attachment bytes into reconciled catalog entries.
type Pipeline struct {
	cat Reconciler
}

// NewPipeline creates a Pipeline writing through the given reconciler.
func NewPipeline(cat Reconciler) *Pipeline {
	return &Pipeline{cat: cat}
}

// IngestCSV parses attachment bytes as header-rowed CSV and reconciles each
// valid data row. Invalid rows are logged and skipped; the returned count is
// the number of rows that reached the catalog. A read error mid-file stops
// the attachment but keeps the rows already reconciled.
func (p *Pipeline) IngestCSV(storeID int64, data []byte) (int, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	r.TrimLeadingSpace = true
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err == io.EOF {
		return 0, fmt.Errorf("csv attachment has no header row")
	}
	if err != nil {
		return 0, fmt.Errorf("read csv header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	count := 0
	for {
		row, err := r.Read()
		if err == io.EOF {
			return count, nil
		}
		if err != nil {
			return count, fmt.Errorf("read csv row: %w", err)
		}
		raw := make(map[string]string, len(header))
		for i, h := range header {
			if h != "" && i < len(row) {
				raw[h] = strings.TrimSpace(row[i])
			}
		}
		if p.ingestRecord(storeID, raw) {
			count++
		}
	}
}

// ingestRecord runs one raw field map through sanitize, validate and
// reconcile. Reports whether the record reached the catalog.
func (p *Pipeline) ingestRecord(storeID int64, raw map[string]string) bool {
	rec := Sanitize(raw)
	if err := Validate(rec); err != nil {
		obs.Logger.Warn("record skipped",
			zap.Int64("store_id", storeID),
			zap.String("name", rec.Name),
			zap.Error(err),
		)
		return false
	}
	if p.cat.Reconcile(storeID, rec) {
		obs.Logger.Info("product added", zap.Int64("store_id", storeID), zap.String("name", rec.Name))
	} else {
		obs.Logger.Info("product updated", zap.Int64("store_id", storeID), zap.String("name", rec.Name))
	}
	return true
}
