package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopmesh/shopmesh/internal/catalog"
)

func TestIngestCSVCreatesEntry(t *testing.T) {
	cat := catalog.New(nil)
	p := NewPipeline(cat)

	n, err := p.IngestCSV(2, []byte("name,price,stock\nWidget,19.99,5\n"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.Equal(t, 1, cat.Len())
	got := cat.Snapshot()[0]
	assert.Equal(t, "Widget", got.Name)
	assert.Equal(t, 19.99, got.Price)
	assert.Equal(t, int64(5), got.Stock)
	assert.Equal(t, int64(2), got.StoreID)
	assert.NotZero(t, got.ID)
}

func TestIngestCSVUpdatesSameNameAndStore(t *testing.T) {
	cat := catalog.New(nil)
	p := NewPipeline(cat)

	_, err := p.IngestCSV(2, []byte("name,price,stock\nWidget,19.99,5\n"))
	require.NoError(t, err)
	origID := cat.Snapshot()[0].ID

	n, err := p.IngestCSV(2, []byte("name,price,stock\nWidget,17.99,9\n"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.Equal(t, 1, cat.Len())
	got := cat.Snapshot()[0]
	assert.Equal(t, origID, got.ID)
	assert.Equal(t, 17.99, got.Price)
	assert.Equal(t, int64(9), got.Stock)
}

func TestIngestCSVIdempotent(t *testing.T) {
	cat := catalog.New(nil)
	p := NewPipeline(cat)
	data := []byte("name,price,stock\nWidget,19.99,5\nGadget,4.50,2\n")

	n, err := p.IngestCSV(2, data)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	before := cat.Snapshot()

	n, err = p.IngestCSV(2, data)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, before, cat.Snapshot())
}

func TestIngestCSVSkipsInvalidRows(t *testing.T) {
	cat := catalog.New(nil)
	p := NewPipeline(cat)
	data := []byte("name,price,stock\n" +
		",1.00,1\n" + // missing name
		"NoPrice,,1\n" +
		"NegStock,1.00,-3\n" +
		"TooDear,1000000,1\n" +
		"Good,2.50,4\n")

	n, err := p.IngestCSV(1, data)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Equal(t, 1, cat.Len())
	assert.Equal(t, "Good", cat.Snapshot()[0].Name)
}

func TestIngestCSVPharmacyColumns(t *testing.T) {
	cat := catalog.New(nil)
	p := NewPipeline(cat)
	data := []byte("name,price,stock,category,drugName,brandName,prescriptionRequired,dosesPerPack\n" +
		"Amoxicillin,24.99,50,pharmacy,Amoxicillin,Amoxil,true,30\n")

	n, err := p.IngestCSV(2, data)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	got := cat.Snapshot()[0]
	assert.Equal(t, "pharmacy", got.Category)
	assert.Equal(t, "Amoxicillin", got.DrugName)
	assert.Equal(t, "Amoxil", got.BrandName)
	assert.Equal(t, int64(30), got.DosesPerPack)
	require.NotNil(t, got.PrescriptionRequired)
	assert.True(t, *got.PrescriptionRequired)
}

func TestIngestCSVStripsBOMAndSkipsEmptyLines(t *testing.T) {
	cat := catalog.New(nil)
	p := NewPipeline(cat)
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("name,price,stock\n\nWidget,1.00,1\n\n")...)

	n, err := p.IngestCSV(1, data)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestIngestCSVNoHeader(t *testing.T) {
	cat := catalog.New(nil)
	p := NewPipeline(cat)
	n, err := p.IngestCSV(1, []byte(""))
	assert.Error(t, err)
	assert.Zero(t, n)
	assert.Zero(t, cat.Len())
}
