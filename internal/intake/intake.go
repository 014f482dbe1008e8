// Package intake turns unseen mailbox messages into leads.
package intake

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/nhle/leadboard/internal/board"
)

// snippetLength caps the body excerpt copied into lead details.
const snippetLength = 160

var (
	htmlTagPattern = regexp.MustCompile(`<[^>]*>`)
	spacePattern   = regexp.MustCompile(`\s+`)
)

// LeadFromMessage maps a message onto new-lead input: the sender's display
// name (upper-cased by the board) as title, address and subject plus a body
// snippet as details.
func LeadFromMessage(m Message, saveAsCustomer bool) board.NewLead {
	title := strings.TrimSpace(m.FromName)
	if title == "" {
		title = m.FromAddr
		if at := strings.IndexByte(title, '@'); at > 0 {
			title = title[:at]
		}
	}

	var parts []string
	if m.FromAddr != "" {
		parts = append(parts, "Email: "+m.FromAddr)
	}
	if s := strings.TrimSpace(m.Subject); s != "" {
		parts = append(parts, "Subject: "+s)
	}
	details := strings.Join(parts, " | ")
	if snip := snippet(m.Text); snip != "" {
		if details != "" {
			details += "\n"
		}
		details += snip
	}

	return board.NewLead{
		Title:          title,
		Details:        details,
		SaveAsCustomer: saveAsCustomer,
		Email:          m.FromAddr,
	}
}

func snippet(text string) string {
	s := strings.TrimSpace(spacePattern.ReplaceAllString(text, " "))
	r := []rune(s)
	if len(r) <= snippetLength {
		return s
	}
	return string(r[:snippetLength-1]) + "…"
}

func stripHTML(html string) string {
	if html == "" {
		return ""
	}
	result := html
	for _, tag := range []string{"<br>", "<br/>", "<br />", "</p>", "</div>", "</li>"} {
		result = strings.ReplaceAll(result, tag, "\n")
	}
	result = htmlTagPattern.ReplaceAllString(result, "")
	return strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
		"&nbsp;", " ",
	).Replace(result)
}

// Result counts what one run did.
type Result struct {
	Imported int
	Failed   int
}

// Importer creates leads on a loaded board from a Mailbox.
type Importer struct {
	Board         *board.Board
	Mailbox       Mailbox
	SaveCustomers bool
	Logger        *slog.Logger
	// Timeout bounds the wait for each lead create to be confirmed.
	Timeout time.Duration
}

// Run imports every unseen message. A message is flagged seen only after
// its lead is confirmed by the store, so failed imports are retried on the
// next run.
func (im *Importer) Run(ctx context.Context) (Result, error) {
	log := im.Logger
	if log == nil {
		log = slog.Default()
	}
	timeout := im.Timeout
	if timeout <= 0 {
		timeout = board.DefaultCallTimeout
	}

	msgs, err := im.Mailbox.FetchUnseen(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("fetching mailbox: %w", err)
	}

	var res Result
	var seen []uint32
	for _, m := range msgs {
		ticket, err := im.Board.AddLead(LeadFromMessage(m, im.SaveCustomers))
		if err != nil {
			return res, fmt.Errorf("adding lead: %w", err)
		}

		waitCtx, cancel := context.WithTimeout(ctx, timeout)
		err = ticket.Wait(waitCtx)
		cancel()
		if err != nil {
			res.Failed++
			log.Warn("intake lead not created", "uid", m.UID, "from", m.FromAddr, "error", err)
			continue
		}
		res.Imported++
		seen = append(seen, m.UID)
	}

	if err := im.Mailbox.MarkSeen(ctx, seen); err != nil {
		return res, fmt.Errorf("marking messages seen: %w", err)
	}
	log.Info("mail intake finished", "imported", res.Imported, "failed", res.Failed)
	return res, nil
}
