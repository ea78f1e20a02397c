package mailbox

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"go.uber.org/zap"

	"github.com/bharatcrest/hrmatcher/internal/models"
)

// imapDateLayout is the date format used by IMAP SINCE/BEFORE search keys
const imapDateLayout = "02-Jan-2006"

// DefaultSubjectKeywords is the subject allow-list used when the caller
// supplies none. Matching is case-insensitive substring.
var DefaultSubjectKeywords = []string{
	"resume", "cv", "application", "apply", "applying",
	"job", "intern", "internship", "interview", "availability",
}

// supportedExtensions lists attachment file types worth saving
var supportedExtensions = []string{".pdf", ".docx"}

// DateWindow is an optional inclusive calendar-date bound on the fetch.
// Zero values mean unbounded on that side.
type DateWindow struct {
	From time.Time
	To   time.Time
}

// Criteria builds the server-side search criteria for the window. The upper
// bound is shifted one day forward because BEFORE is exclusive; this makes
// To calendar-inclusive.
func (w DateWindow) Criteria() *imap.SearchCriteria {
	criteria := imap.NewSearchCriteria()
	if !w.From.IsZero() {
		criteria.Since = w.From
	}
	if !w.To.IsZero() {
		criteria.Before = w.To.AddDate(0, 0, 1)
	}
	return criteria
}

// Tokens renders the window as IMAP search tokens, for logging and tests
func (w DateWindow) Tokens() string {
	var parts []string
	if !w.From.IsZero() {
		parts = append(parts, "SINCE "+w.From.Format(imapDateLayout))
	}
	if !w.To.IsZero() {
		parts = append(parts, "BEFORE "+w.To.AddDate(0, 0, 1).Format(imapDateLayout))
	}
	return strings.Join(parts, " ")
}

// Saver persists attachment bytes and returns the saved path
type Saver interface {
	Save(filename string, data []byte) (string, error)
}

// FetchOptions controls a single mailbox fetch
type FetchOptions struct {
	Window   DateWindow
	Keywords []string // subject allow-list; DefaultSubjectKeywords when empty
	// Limit bounds the fetch to the N most recently received candidate
	// messages. Zero means unbounded. Older matches beyond the limit are
	// dropped silently.
	Limit int
}

// Fetcher downloads resume attachments from an IMAP mailbox. Each Fetch
// opens its own connection and closes it on every exit path; connections
// are never shared across concurrent runs.
type Fetcher struct {
	saver Saver
	log   *zap.Logger
}

// NewFetcher creates a mailbox fetcher that saves attachments via saver
func NewFetcher(saver Saver, log *zap.Logger) *Fetcher {
	return &Fetcher{saver: saver, log: log}
}

// candidate is a message that passed the server-side and subject filters
type candidate struct {
	seqNum   uint32
	subject  string
	received time.Time
}

// Fetch connects to the configured mailbox, runs a server-side date-bounded
// search, filters subjects against the keyword allow-list, and saves every
// supported attachment of the matching messages. Per-message failures are
// logged and skipped; connection and authentication failures abort the fetch.
func (f *Fetcher) Fetch(cfg models.MailboxConfig, opts FetchOptions) ([]models.FetchedAttachment, error) {
	c, err := f.connect(cfg)
	if err != nil {
		return nil, err
	}
	defer c.Logout()

	if _, err := c.Select("INBOX", false); err != nil {
		return nil, &ConnectionError{Host: cfg.Host, Err: fmt.Errorf("failed to select INBOX: %w", err)}
	}

	criteria := opts.Window.Criteria()
	if tokens := opts.Window.Tokens(); tokens != "" {
		f.log.Info("server-side date filter", zap.String("criteria", tokens))
	}

	ids, err := c.Search(criteria)
	if err != nil {
		return nil, &ConnectionError{Host: cfg.Host, Err: fmt.Errorf("search failed: %w", err)}
	}
	if len(ids) == 0 {
		f.log.Info("no messages matched the date filter")
		return nil, nil
	}

	candidates, err := f.filterBySubject(c, ids, opts.Keywords)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	kept := capCandidates(candidates, opts.Limit)
	if dropped := len(candidates) - len(kept); dropped > 0 {
		f.log.Warn("fetch limit active, dropping older matches",
			zap.Int("limit", opts.Limit),
			zap.Int("dropped", dropped))
	}

	return f.downloadAttachments(c, kept)
}

// capCandidates orders candidates most recently received first and keeps at
// most limit of them. Zero means unbounded. Ties keep their existing order.
func capCandidates(candidates []candidate, limit int) []candidate {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].received.After(candidates[j].received)
	})
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates
}

// connect dials the server and authenticates, mapping failures onto the
// fetch error taxonomy
func (f *Fetcher) connect(cfg models.MailboxConfig) (*client.Client, error) {
	addr := cfg.Addr()

	var c *client.Client
	var err error
	if cfg.UseTLS {
		c, err = client.DialTLS(addr, nil)
	} else {
		c, err = client.Dial(addr)
	}
	if err != nil {
		return nil, &ConnectionError{Host: cfg.Host, Err: err}
	}

	if err := c.Login(cfg.Username, cfg.Password); err != nil {
		c.Logout()
		return nil, &AuthenticationError{Username: cfg.Username, Err: err}
	}

	f.log.Info("logged in to mailbox",
		zap.String("host", cfg.Host),
		zap.String("username", cfg.Username))
	return c, nil
}

// filterBySubject fetches message envelopes and keeps those whose subject
// contains one of the keywords. Non-matching messages are never downloaded.
func (f *Fetcher) filterBySubject(c *client.Client, ids []uint32, keywords []string) ([]candidate, error) {
	if len(keywords) == 0 {
		keywords = DefaultSubjectKeywords
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(ids...)

	messages := make(chan *imap.Message, 10)
	done := make(chan error, 1)
	go func() {
		done <- c.Fetch(seqset, []imap.FetchItem{imap.FetchEnvelope, imap.FetchInternalDate}, messages)
	}()

	var candidates []candidate
	for msg := range messages {
		if msg.Envelope == nil {
			continue
		}
		subject := msg.Envelope.Subject
		if !SubjectMatches(subject, keywords) {
			f.log.Debug("skipping non-matching message", zap.String("subject", subject))
			continue
		}
		candidates = append(candidates, candidate{
			seqNum:   msg.SeqNum,
			subject:  subject,
			received: msg.InternalDate,
		})
	}

	if err := <-done; err != nil {
		return nil, &ConnectionError{Host: "", Err: fmt.Errorf("envelope fetch failed: %w", err)}
	}

	f.log.Info("subject filter applied",
		zap.Int("scanned", len(ids)),
		zap.Int("matched", len(candidates)))
	return candidates, nil
}

// SubjectMatches reports whether a subject contains any of the keywords,
// case-insensitively
func SubjectMatches(subject string, keywords []string) bool {
	lower := strings.ToLower(subject)
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// downloadAttachments fetches the full body of each candidate message and
// saves every supported attachment. A malformed message is logged and
// skipped; the fetch still returns what it collected.
func (f *Fetcher) downloadAttachments(c *client.Client, candidates []candidate) ([]models.FetchedAttachment, error) {
	seqset := new(imap.SeqSet)
	byNum := make(map[uint32]candidate, len(candidates))
	for _, cand := range candidates {
		seqset.AddNum(cand.seqNum)
		byNum[cand.seqNum] = cand
	}

	section := &imap.BodySectionName{}
	messages := make(chan *imap.Message, 10)
	done := make(chan error, 1)
	go func() {
		done <- c.Fetch(seqset, []imap.FetchItem{section.FetchItem()}, messages)
	}()

	var saved []models.FetchedAttachment
	for msg := range messages {
		cand, ok := byNum[msg.SeqNum]
		if !ok {
			continue
		}
		attachments, err := f.saveMessageAttachments(msg, section, cand)
		// Attachments written before a malformed part are already on disk;
		// they stay in the result even when the rest of the message fails.
		saved = append(saved, attachments...)
		if err != nil {
			f.log.Error("failed to fully process message",
				zap.Uint32("seq", msg.SeqNum),
				zap.String("subject", cand.subject),
				zap.Error(err))
		}
	}

	if err := <-done; err != nil {
		return nil, &ConnectionError{Host: "", Err: fmt.Errorf("body fetch failed: %w", err)}
	}

	f.log.Info("mailbox fetch complete", zap.Int("attachments", len(saved)))
	return saved, nil
}

// saveMessageAttachments walks the MIME structure of one message and writes
// attachment parts with supported extensions. Multipart containers and
// inline content are ignored.
func (f *Fetcher) saveMessageAttachments(msg *imap.Message, section *imap.BodySectionName, cand candidate) ([]models.FetchedAttachment, error) {
	body := msg.GetBody(section)
	if body == nil {
		return nil, fmt.Errorf("server returned no body section")
	}

	mr, err := mail.CreateReader(body)
	if err != nil {
		return nil, fmt.Errorf("malformed MIME structure: %w", err)
	}

	var saved []models.FetchedAttachment
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return saved, fmt.Errorf("failed to read MIME part: %w", err)
		}

		header, ok := part.Header.(*mail.AttachmentHeader)
		if !ok {
			continue
		}
		filename, err := header.Filename()
		if err != nil || filename == "" {
			continue
		}
		if !SupportedAttachment(filename) {
			f.log.Debug("skipping unsupported attachment", zap.String("filename", filename))
			continue
		}

		data, err := io.ReadAll(part.Body)
		if err != nil {
			f.log.Warn("failed to decode attachment",
				zap.String("filename", filename), zap.Error(err))
			continue
		}

		path, err := f.saver.Save(filepath.Base(filename), data)
		if err != nil {
			f.log.Warn("failed to save attachment",
				zap.String("filename", filename), zap.Error(err))
			continue
		}

		f.log.Info("saved resume attachment",
			zap.String("path", path),
			zap.String("subject", cand.subject))
		saved = append(saved, models.FetchedAttachment{
			Path:       path,
			Subject:    cand.subject,
			ReceivedAt: cand.received,
		})
	}

	return saved, nil
}

// SupportedAttachment reports whether the filename carries a resume
// document extension
func SupportedAttachment(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, supported := range supportedExtensions {
		if ext == supported {
			return true
		}
	}
	return false
}

// TestConnection verifies that the mailbox is reachable and the credentials
// are accepted, returning a human-readable diagnosis. It dials, logs in,
// selects INBOX, and disconnects.
func TestConnection(cfg models.MailboxConfig) (string, error) {
	addr := cfg.Addr()

	var c *client.Client
	var err error
	if cfg.UseTLS {
		c, err = client.DialTLS(addr, nil)
	} else {
		c, err = client.Dial(addr)
	}
	if err != nil {
		return "", &ConnectionError{Host: cfg.Host, Err: err}
	}
	defer c.Logout()

	if err := c.Login(cfg.Username, cfg.Password); err != nil {
		return "", &AuthenticationError{Username: cfg.Username, Err: err}
	}

	if _, err := c.Select("INBOX", true); err != nil {
		return "", fmt.Errorf("login succeeded but INBOX is not accessible: %w", err)
	}

	return fmt.Sprintf("IMAP connection to %s successful", addr), nil
}
