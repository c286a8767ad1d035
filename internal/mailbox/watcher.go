// Package mailbox watches per-store IMAP inboxes for inventory update
// emails and hands parsed messages to the ingestion processor.
package mailbox

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message/mail"
	"go.uber.org/zap"

	"github.com/shopmesh/shopmesh/internal/config"
	"github.com/shopmesh/shopmesh/internal/model"
	"github.com/shopmesh/shopmesh/internal/obs"
)

// Settings holds one store's inbox connection parameters.
type Settings struct {
	StoreID      int64
	Addr         string
	Username     string
	Password     string
	InsecureTLS  bool
	PollInterval time.Duration
}

// FromConfig expands the configured mailbox table into watcher settings.
func FromConfig(mc config.MailboxConfig) []Settings {
	out := make([]Settings, 0, len(mc.Stores))
	for _, s := range mc.Stores {
		out = append(out, Settings{
			StoreID:      s.StoreID,
			Addr:         fmt.Sprintf("%s:%d", mc.Host, mc.Port),
			Username:     s.Username,
			Password:     s.Password,
			InsecureTLS:  mc.InsecureTLS,
			PollInterval: mc.PollInterval,
		})
	}
	return out
}

// Processor consumes one parsed inbound message.
type Processor interface {
	Process(storeID int64, msg model.Message) int
}

// Watcher maintains one store's mailbox connection.
type Watcher struct {
	settings Settings
	proc     Processor
	log      *zap.Logger
}

// NewWatcher creates a Watcher for one store inbox.
func NewWatcher(settings Settings, proc Processor) *Watcher {
	return &Watcher{
		settings: settings,
		proc:     proc,
		log:      obs.Logger.With(zap.Int64("store_id", settings.StoreID)),
	}
}

// Run connects and monitors the inbox until the context is cancelled or the
// connection fails. Connection errors are returned without retrying;
// restart policy is the caller's. A store without a configured password is
// skipped.
func (w *Watcher) Run(ctx context.Context) error {
	if w.settings.Password == "" {
		w.log.Warn("no password configured, skipping email monitoring")
		return nil
	}

	c, err := client.DialTLS(w.settings.Addr, &tls.Config{InsecureSkipVerify: w.settings.InsecureTLS})
	if err != nil {
		w.log.Error("imap connect failed", zap.String("addr", w.settings.Addr), zap.Error(err))
		return fmt.Errorf("connect %s: %w", w.settings.Addr, err)
	}
	defer func() { _ = c.Logout() }()

	if err := c.Login(w.settings.Username, w.settings.Password); err != nil {
		w.log.Error("imap login failed", zap.Error(err))
		return fmt.Errorf("login %s: %w", w.settings.Username, err)
	}
	if _, err := c.Select("INBOX", false); err != nil {
		w.log.Error("failed to open inbox", zap.Error(err))
		return fmt.Errorf("select inbox: %w", err)
	}
	w.log.Info("email monitoring started")

	for {
		if err := w.sweep(c); err != nil {
			w.log.Error("mailbox sweep failed", zap.Error(err))
			return err
		}
		if err := w.waitForMail(ctx, c); err != nil {
			if ctx.Err() != nil {
				w.log.Info("email monitoring stopped")
				return nil
			}
			w.log.Error("mailbox wait failed", zap.Error(err))
			return err
		}
	}
}

// waitForMail idles until the server reports new mail. Servers without IDLE
// are polled at the configured interval.
func (w *Watcher) waitForMail(ctx context.Context, c *client.Client) error {
	updates := make(chan client.Update, 8)
	c.Updates = updates
	defer func() { c.Updates = nil }()

	stop := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- c.Idle(stop, &client.IdleOptions{PollInterval: w.settings.PollInterval})
	}()

	stopped := false
	stopIdle := func() {
		if !stopped {
			close(stop)
			stopped = true
		}
	}
	for {
		select {
		case <-ctx.Done():
			stopIdle()
			<-done
			return ctx.Err()
		case upd := <-updates:
			if _, ok := upd.(*client.MailboxUpdate); ok {
				stopIdle()
			}
		case err := <-done:
			return err
		}
	}
}

// sweep fetches every unseen message, processes it, and marks the batch
// seen regardless of processing outcome so nothing is picked up twice.
func (w *Watcher) sweep(c *client.Client) error {
	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	ids, err := c.Search(criteria)
	if err != nil {
		return fmt.Errorf("search unseen: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}
	w.log.Info("found unread emails", zap.Int("count", len(ids)))

	section := &imap.BodySectionName{}
	seqset := new(imap.SeqSet)
	seqset.AddNum(ids...)
	messages := make(chan *imap.Message, len(ids))
	done := make(chan error, 1)
	go func() {
		done <- c.Fetch(seqset, []imap.FetchItem{section.FetchItem()}, messages)
	}()

	fetched := new(imap.SeqSet)
	for msg := range messages {
		fetched.AddNum(msg.SeqNum)
		body := msg.GetBody(section)
		if body == nil {
			w.log.Error("fetched message has no body", zap.Uint32("seqnum", msg.SeqNum))
			continue
		}
		parsed, err := ParseMessage(body)
		if err != nil {
			w.log.Error("email parsing error", zap.Uint32("seqnum", msg.SeqNum), zap.Error(err))
			continue
		}
		w.proc.Process(w.settings.StoreID, parsed)
	}
	if err := <-done; err != nil {
		return fmt.Errorf("fetch unseen: %w", err)
	}

	if !fetched.Empty() {
		item := imap.FormatFlagsOp(imap.AddFlags, true)
		if err := c.Store(fetched, item, []interface{}{imap.SeenFlag}, nil); err != nil {
			w.log.Error("failed to mark emails as read", zap.Error(err))
		}
	}
	return nil
}

// ParseMessage decodes a raw RFC 822 message into the domain shape:
// sender, subject and attachment files.
func ParseMessage(r io.Reader) (model.Message, error) {
	mr, err := mail.CreateReader(r)
	if err != nil {
		return model.Message{}, fmt.Errorf("read message: %w", err)
	}

	var msg model.Message
	msg.Subject, _ = mr.Header.Subject()
	if addrs, err := mr.Header.AddressList("From"); err == nil && len(addrs) > 0 {
		msg.From = addrs[0].Address
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return msg, fmt.Errorf("read message part: %w", err)
		}
		h, ok := part.Header.(*mail.AttachmentHeader)
		if !ok {
			continue
		}
		filename, _ := h.Filename()
		content, err := io.ReadAll(part.Body)
		if err != nil {
			return msg, fmt.Errorf("read attachment %s: %w", filename, err)
		}
		msg.Attachments = append(msg.Attachments, model.Attachment{Filename: filename, Content: content})
	}
	return msg, nil
}
