package intake

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-message/mail"
)

// Message is an inbound mail reduced to what a lead needs.
type Message struct {
	UID       uint32
	MessageID string
	FromName  string
	FromAddr  string
	Subject   string
	Date      time.Time
	Text      string
}

// Mailbox lists unseen messages and flags them once handled.
type Mailbox interface {
	FetchUnseen(ctx context.Context) ([]Message, error)
	MarkSeen(ctx context.Context, uids []uint32) error
}

// IMAPConfig addresses an IMAP mailbox.
type IMAPConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	TLS       bool
	Mailbox   string
	SinceDays int
	Limit     int
}

// IMAPMailbox is a Mailbox over go-imap v2. Each call opens its own
// connection.
type IMAPMailbox struct {
	cfg IMAPConfig
	now func() time.Time
}

var _ Mailbox = (*IMAPMailbox)(nil)

// NewIMAPMailbox returns a mailbox for cfg.
func NewIMAPMailbox(cfg IMAPConfig) *IMAPMailbox {
	if cfg.Mailbox == "" {
		cfg.Mailbox = "INBOX"
	}
	if cfg.Port == 0 {
		cfg.Port = 993
	}
	return &IMAPMailbox{cfg: cfg, now: time.Now}
}

// connect dials, authenticates and selects the configured mailbox. The
// caller must Logout the returned client.
func (m *IMAPMailbox) connect(_ context.Context) (*imapclient.Client, error) {
	addr := m.cfg.Host + ":" + strconv.Itoa(m.cfg.Port)

	var client *imapclient.Client
	var err error
	if m.cfg.TLS {
		client, err = imapclient.DialTLS(addr, nil)
	} else {
		client, err = imapclient.DialStartTLS(addr, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to IMAP %s: %w", addr, err)
	}

	if err := client.Login(m.cfg.Username, m.cfg.Password).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, fmt.Errorf("authentication failed for %s: %w", m.cfg.Username, err)
	}

	if _, err := client.Select(m.cfg.Mailbox, nil).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, fmt.Errorf("selecting %s: %w", m.cfg.Mailbox, err)
	}
	return client, nil
}

// FetchUnseen returns unseen messages received in the last SinceDays days,
// newest last, at most Limit of them. Bodies are fetched with PEEK so the
// server does not mark them read.
func (m *IMAPMailbox) FetchUnseen(ctx context.Context) ([]Message, error) {
	client, err := m.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = client.Logout().Wait() }()

	criteria := &imap.SearchCriteria{NotFlag: []imap.Flag{imap.FlagSeen}}
	if m.cfg.SinceDays > 0 {
		criteria.Since = m.now().AddDate(0, 0, -m.cfg.SinceDays)
	}

	searchData, err := client.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("searching messages: %w", err)
	}

	uids := searchData.AllUIDs()
	if len(uids) == 0 {
		return nil, nil
	}
	if m.cfg.Limit > 0 && len(uids) > m.cfg.Limit {
		uids = uids[len(uids)-m.cfg.Limit:]
	}

	bodySection := &imap.FetchItemBodySection{Peek: true}
	fetchCmd := client.Fetch(imap.UIDSetNum(uids...), &imap.FetchOptions{
		Envelope:    true,
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{bodySection},
	})
	defer fetchCmd.Close()

	var out []Message
	for {
		msg := fetchCmd.Next()
		if msg == nil {
			break
		}
		buf, err := msg.Collect()
		if err != nil {
			continue
		}
		out = append(out, messageFromBuffer(buf, buf.FindBodySection(bodySection)))
	}

	if err := fetchCmd.Close(); err != nil {
		return out, fmt.Errorf("fetching messages: %w", err)
	}
	return out, nil
}

// MarkSeen adds the \Seen flag to the given messages.
func (m *IMAPMailbox) MarkSeen(ctx context.Context, uids []uint32) error {
	if len(uids) == 0 {
		return nil
	}
	client, err := m.connect(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = client.Logout().Wait() }()

	set := make([]imap.UID, 0, len(uids))
	for _, u := range uids {
		set = append(set, imap.UID(u))
	}
	storeCmd := client.Store(imap.UIDSetNum(set...), &imap.StoreFlags{
		Op:     imap.StoreFlagsAdd,
		Silent: true,
		Flags:  []imap.Flag{imap.FlagSeen},
	}, nil)
	if err := storeCmd.Close(); err != nil {
		return fmt.Errorf("flagging messages seen: %w", err)
	}
	return nil
}

func messageFromBuffer(buf *imapclient.FetchMessageBuffer, raw []byte) Message {
	msg := Message{UID: uint32(buf.UID)}
	if env := buf.Envelope; env != nil {
		msg.MessageID = env.MessageID
		msg.Subject = env.Subject
		msg.Date = env.Date
		if len(env.From) > 0 {
			msg.FromName = env.From[0].Name
			msg.FromAddr = env.From[0].Addr()
		}
	}
	if raw != nil {
		msg.Text = bodyText(raw)
	}
	return msg
}

// bodyText returns the text/plain part of a raw message, falling back to
// the HTML part with tags stripped.
func bodyText(raw []byte) string {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return string(raw)
	}
	defer mr.Close()

	var text, html string
	for {
		part, err := mr.NextPart()
		if err != nil {
			break
		}
		h, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, _ := h.ContentType()
		body, err := io.ReadAll(part.Body)
		if err != nil {
			continue
		}
		switch {
		case strings.HasPrefix(contentType, "text/plain") && text == "":
			text = string(body)
		case strings.HasPrefix(contentType, "text/html") && html == "":
			html = string(body)
		}
	}
	if text == "" {
		text = stripHTML(html)
	}
	return text
}
