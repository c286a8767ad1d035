package ingest

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopmesh/shopmesh/internal/model"
)

func validRecord() model.Record {
	price := 19.99
	stock := int64(5)
	return model.Record{Name: "Widget", Price: &price, Stock: &stock}
}

func TestSanitizeEscapesAndTrims(t *testing.T) {
	rec := Sanitize(map[string]string{
		"name":        "  <b>Widget</b>  ",
		"description": " nice & cheap ",
		"warnings":    "<script>alert(1)</script>",
	})
	assert.Equal(t, "&lt;b&gt;Widget&lt;/b&gt;", rec.Name)
	require.NotNil(t, rec.Description)
	assert.Equal(t, "nice &amp; cheap", *rec.Description)
	require.NotNil(t, rec.Warnings)
	assert.Contains(t, *rec.Warnings, "&lt;script&gt;")
}

func TestSanitizeNumericCoercion(t *testing.T) {
	rec := Sanitize(map[string]string{"name": "W", "price": "19.99", "stock": "5", "dosesPerPack": "20"})
	require.NotNil(t, rec.Price)
	assert.Equal(t, 19.99, *rec.Price)
	require.NotNil(t, rec.Stock)
	assert.Equal(t, int64(5), *rec.Stock)
	require.NotNil(t, rec.DosesPerPack)
	assert.Equal(t, int64(20), *rec.DosesPerPack)
}

func TestSanitizeMalformedPriceIsNaN(t *testing.T) {
	rec := Sanitize(map[string]string{"name": "W", "price": "around ten", "stock": "5"})
	require.NotNil(t, rec.Price)
	assert.True(t, math.IsNaN(*rec.Price))
	assert.Error(t, Validate(rec))
}

func TestSanitizeMalformedStockRejected(t *testing.T) {
	rec := Sanitize(map[string]string{"name": "W", "price": "1", "stock": "plenty"})
	assert.Nil(t, rec.Stock)
	assert.Error(t, Validate(rec))
}

func TestSanitizeAbsentFieldsStayUnset(t *testing.T) {
	rec := Sanitize(map[string]string{"name": "W"})
	assert.Nil(t, rec.Description)
	assert.Nil(t, rec.Price)
	assert.Nil(t, rec.Stock)
	assert.Nil(t, rec.Category)
	assert.Nil(t, rec.PrescriptionRequired)
}

func TestSanitizePrescriptionFlag(t *testing.T) {
	for _, v := range []string{"true", "1"} {
		rec := Sanitize(map[string]string{"prescriptionRequired": v})
		require.NotNil(t, rec.PrescriptionRequired, v)
		assert.True(t, *rec.PrescriptionRequired, v)
	}
	rec := Sanitize(map[string]string{"prescriptionRequired": "false"})
	require.NotNil(t, rec.PrescriptionRequired)
	assert.False(t, *rec.PrescriptionRequired)
}

func TestSanitizeImageURL(t *testing.T) {
	rec := Sanitize(map[string]string{"image": "https://cdn.example.com/widget.png"})
	require.NotNil(t, rec.Image)
	assert.Equal(t, "https://cdn.example.com/widget.png", *rec.Image)

	rec = Sanitize(map[string]string{"image": "not a url"})
	assert.Nil(t, rec.Image)
}

func TestSanitizeCategoryDefaultsUnrecognized(t *testing.T) {
	rec := Sanitize(map[string]string{"category": "pharmacy"})
	require.NotNil(t, rec.Category)
	assert.Equal(t, model.CategoryPharmacy, *rec.Category)

	rec = Sanitize(map[string]string{"category": "grocery"})
	require.NotNil(t, rec.Category)
	assert.Equal(t, model.CategoryGeneral, *rec.Category)
}

func TestValidateBoundaries(t *testing.T) {
	set := func(mut func(r *model.Record)) model.Record {
		r := validRecord()
		mut(&r)
		return r
	}
	zero := 0.0
	zeroStock := int64(0)
	over := 999999.01
	overStock := int64(1000000)
	neg := -0.01
	negStock := int64(-1)
	max := 999999.0
	maxStock := int64(999999)

	assert.NoError(t, Validate(validRecord()))
	assert.NoError(t, Validate(set(func(r *model.Record) { r.Price = &zero })))
	assert.NoError(t, Validate(set(func(r *model.Record) { r.Stock = &zeroStock })))
	assert.NoError(t, Validate(set(func(r *model.Record) { r.Price = &max })))
	assert.NoError(t, Validate(set(func(r *model.Record) { r.Stock = &maxStock })))

	assert.Error(t, Validate(set(func(r *model.Record) { r.Name = "" })))
	assert.Error(t, Validate(set(func(r *model.Record) { r.Price = nil })))
	assert.Error(t, Validate(set(func(r *model.Record) { r.Stock = nil })))
	assert.Error(t, Validate(set(func(r *model.Record) { r.Price = &over })))
	assert.Error(t, Validate(set(func(r *model.Record) { r.Stock = &overStock })))
	assert.Error(t, Validate(set(func(r *model.Record) { r.Price = &neg })))
	assert.Error(t, Validate(set(func(r *model.Record) { r.Stock = &negStock })))
}
