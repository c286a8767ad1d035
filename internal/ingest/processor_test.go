package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopmesh/shopmesh/internal/catalog"
	"github.com/shopmesh/shopmesh/internal/model"
)

type captureNotifier struct {
	to      string
	storeID int64
	items   int
	calls   int
}

func (c *captureNotifier) ConfirmProcessed(to string, storeID int64, items int) bool {
	c.to, c.storeID, c.items = to, storeID, items
	c.calls++
	return true
}

func csvMessage(subject string) model.Message {
	return model.Message{
		From:    "supplier@example.com",
		Subject: subject,
		Attachments: []model.Attachment{
			{Filename: "stock.csv", Content: []byte("name,price,stock\nWidget,19.99,5\n")},
		},
	}
}

func TestProcessAcceptsSubjectVariants(t *testing.T) {
	for _, subject := range []string{
		"INVENTORY UPDATE",
		"Re: inventory update for March",
		"Fwd: Catalog Update",
		"weekly STOCK UPDATE attached",
		"product update",
	} {
		t.Run(subject, func(t *testing.T) {
			cat := catalog.New(nil)
			p := NewProcessor(cat, nil)
			assert.Equal(t, 1, p.Process(2, csvMessage(subject)))
			assert.Equal(t, 1, cat.Len())
		})
	}
}

func TestProcessRejectsUnrelatedSubject(t *testing.T) {
	cat := catalog.New(nil)
	p := NewProcessor(cat, nil)
	assert.Zero(t, p.Process(2, csvMessage("Order Confirmation")))
	assert.Zero(t, cat.Len())
}

func TestProcessRejectsNoAttachments(t *testing.T) {
	cat := catalog.New(nil)
	p := NewProcessor(cat, nil)
	msg := model.Message{From: "a@b", Subject: "INVENTORY UPDATE"}
	assert.Zero(t, p.Process(2, msg))
	assert.Zero(t, cat.Len())
}

func TestProcessSkipsUnsupportedAttachment(t *testing.T) {
	cat := catalog.New(nil)
	p := NewProcessor(cat, nil)
	msg := model.Message{
		From:    "a@b",
		Subject: "INVENTORY UPDATE",
		Attachments: []model.Attachment{
			{Filename: "inventory.xlsx", Content: []byte("binary")},
			{Filename: "stock.CSV", Content: []byte("name,price,stock\nWidget,1,1\n")},
		},
	}
	// The unsupported attachment is skipped; the CSV (upper-case extension)
	// is still processed.
	assert.Equal(t, 1, p.Process(2, msg))
	assert.Equal(t, 1, cat.Len())
}

func TestProcessAggregatesAcrossAttachments(t *testing.T) {
	cat := catalog.New(nil)
	p := NewProcessor(cat, nil)
	msg := model.Message{
		From:    "a@b",
		Subject: "CATALOG UPDATE",
		Attachments: []model.Attachment{
			{Filename: "one.csv", Content: []byte("name,price,stock\nA,1,1\nB,2,2\n")},
			{Filename: "two.csv", Content: []byte("name,price,stock\nC,3,3\n")},
		},
	}
	assert.Equal(t, 3, p.Process(1, msg))
	assert.Equal(t, 3, cat.Len())
}

func TestProcessEmitsConfirmation(t *testing.T) {
	cat := catalog.New(nil)
	n := &captureNotifier{}
	p := NewProcessor(cat, n)
	p.Process(2, csvMessage("INVENTORY UPDATE"))

	require.Equal(t, 1, n.calls)
	assert.Equal(t, "supplier@example.com", n.to)
	assert.Equal(t, int64(2), n.storeID)
	assert.Equal(t, 1, n.items)
}

func TestProcessMalformedAttachmentStillCounted(t *testing.T) {
	cat := catalog.New(nil)
	n := &captureNotifier{}
	p := NewProcessor(cat, n)
	msg := model.Message{
		From:    "a@b",
		Subject: "INVENTORY UPDATE",
		Attachments: []model.Attachment{
			{Filename: "broken.pdf", Content: []byte("not a pdf")},
			{Filename: "good.csv", Content: []byte("name,price,stock\nWidget,1,1\n")},
		},
	}
	// The broken PDF contributes zero records but does not abort the email.
	assert.Equal(t, 1, p.Process(1, msg))
	assert.Equal(t, 1, n.calls)
}
