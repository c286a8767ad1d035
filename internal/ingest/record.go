// Package ingest implements the email-driven inventory pipeline: attachment
// extraction, record sanitation and validation, and reconciliation against
// the shared catalog.
package ingest

import (
	"errors"
	"fmt"
	"html"
	"math"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/shopmesh/shopmesh/internal/model"
)

const maxPrice = 999999
const maxStock = 999999

var fieldValidator = validator.New()

// Reconciler is the catalog operation the pipeline needs: find-or-create
// by (name, store) and merge.
type Reconciler interface {
	Reconcile(storeID int64, rec model.Record) bool
}

// Sanitize normalizes a raw extracted field map into a candidate record.
// String fields are trimmed and HTML-escaped, numeric fields coerced, the
// prescription flag read from true/1 forms, the image kept only when it is
// a syntactically valid URL, and the category mapped onto general/pharmacy.
// Fields absent from the input stay unset.
func Sanitize(raw map[string]string) model.Record {
	rec := model.Record{}

	if v := strings.TrimSpace(raw["name"]); v != "" {
		rec.Name = html.EscapeString(v)
	}
	rec.Description = escapedField(raw, "description")
	rec.DrugName = escapedField(raw, "drugName")
	rec.BrandName = escapedField(raw, "brandName")
	rec.GenericEquivalent = escapedField(raw, "genericEquivalent")
	rec.DosageForm = escapedField(raw, "dosageForm")
	rec.Strength = escapedField(raw, "strength")
	rec.ActiveIngredients = escapedField(raw, "activeIngredients")
	rec.Warnings = escapedField(raw, "warnings")

	if v := strings.TrimSpace(raw["price"]); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			// Malformed numeric text must reach the validator as NaN,
			// never as a defaulted 0.
			f = math.NaN()
		}
		rec.Price = &f
	}
	rec.Stock = intField(raw, "stock")
	rec.DosesPerPack = intField(raw, "dosesPerPack")

	if v, ok := raw["prescriptionRequired"]; ok {
		b := v == "true" || v == "1"
		rec.PrescriptionRequired = &b
	}

	if v := strings.TrimSpace(raw["image"]); v != "" {
		if err := fieldValidator.Var(v, "url"); err == nil {
			rec.Image = &v
		}
	}

	if v := strings.TrimSpace(raw["category"]); v != "" {
		c := model.CategoryGeneral
		if v == model.CategoryGeneral || v == model.CategoryPharmacy {
			c = v
		}
		rec.Category = &c
	}

	return rec
}

func escapedField(raw map[string]string, key string) *string {
	v := strings.TrimSpace(raw[key])
	if v == "" {
		return nil
	}
	e := html.EscapeString(v)
	return &e
}

func intField(raw map[string]string, key string) *int64 {
	v := strings.TrimSpace(raw[key])
	if v == "" {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil
	}
	return &n
}

// ErrInvalidRecord wraps all validation rejections.
var ErrInvalidRecord = errors.New("invalid record")

// Validate is the single gate in front of any catalog mutation, for both
// CSV- and PDF-derived records. Zero price and zero stock are valid.
func Validate(rec model.Record) error {
	if rec.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidRecord)
	}
	if rec.Price == nil || math.IsNaN(*rec.Price) {
		return fmt.Errorf("%w: price is missing or not a number", ErrInvalidRecord)
	}
	if *rec.Price < 0 || *rec.Price > maxPrice {
		return fmt.Errorf("%w: price %v out of range [0, %d]", ErrInvalidRecord, *rec.Price, maxPrice)
	}
	if rec.Stock == nil {
		return fmt.Errorf("%w: stock is missing or not a number", ErrInvalidRecord)
	}
	if *rec.Stock < 0 || *rec.Stock > maxStock {
		return fmt.Errorf("%w: stock %d out of range [0, %d]", ErrInvalidRecord, *rec.Stock, maxStock)
	}
	return nil
}
