package ingest

import (
	"strings"

	"go.uber.org/zap"

	"github.com/shopmesh/shopmesh/internal/model"
	"github.com/shopmesh/shopmesh/internal/obs"
)

// Subjects that mark a message as an inventory update. Matching is
// case-insensitive substring, so reply prefixes and trailing context pass.
var validSubjects = []string{
	"INVENTORY UPDATE",
	"CATALOG UPDATE",
	"STOCK UPDATE",
	"PRODUCT UPDATE",
}

// Notifier receives a confirmation notice once a message is processed.
type Notifier interface {
	ConfirmProcessed(to string, storeID int64, items int) bool
}

// Processor handles one inbound mailbox message end to end. All failures
// are logged and absorbed here; the mailbox loop only ever needs to mark
// the message seen afterwards.
type Processor struct {
	pipeline *Pipeline
	notifier Notifier
}

// NewProcessor creates a Processor writing through the given reconciler.
// notifier may be nil.
func NewProcessor(cat Reconciler, notifier Notifier) *Processor {
	return &Processor{pipeline: NewPipeline(cat), notifier: notifier}
}

// Process validates the subject, dispatches each attachment by extension
// and returns the number of catalog entries updated or created. A rejected
// or failed message returns 0; it is never retried.
func (p *Processor) Process(storeID int64, msg model.Message) int {
	log := obs.Logger.With(zap.Int64("store_id", storeID), zap.String("from", msg.From))
	log.Info("processing email", zap.String("subject", msg.Subject))

	if !subjectAccepted(msg.Subject) {
		log.Warn("invalid subject line", zap.String("subject", msg.Subject))
		return 0
	}
	if len(msg.Attachments) == 0 {
		log.Warn("no attachments found in email")
		return 0
	}

	updated := 0
	for _, att := range msg.Attachments {
		name := strings.ToLower(att.Filename)
		switch {
		case strings.HasSuffix(name, ".csv"):
			n, err := p.pipeline.IngestCSV(storeID, att.Content)
			if err != nil {
				log.Error("csv processing error", zap.String("filename", att.Filename), zap.Error(err))
			}
			updated += n
		case strings.HasSuffix(name, ".pdf"):
			n, err := p.pipeline.IngestPDF(storeID, att.Content)
			if err != nil {
				log.Error("pdf processing error", zap.String("filename", att.Filename), zap.Error(err))
			}
			updated += n
		default:
			log.Warn("unsupported file type", zap.String("filename", att.Filename))
		}
	}

	log.Info("email processed", zap.Int("updated_items", updated))
	if p.notifier != nil {
		p.notifier.ConfirmProcessed(msg.From, storeID, updated)
	}
	return updated
}

func subjectAccepted(subject string) bool {
	s := strings.ToUpper(strings.TrimSpace(subject))
	for _, valid := range validSubjects {
		if strings.Contains(s, valid) {
			return true
		}
	}
	return false
}
