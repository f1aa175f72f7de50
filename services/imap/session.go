package imap

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/textproto"
	"syscall"
	"time"

	goimap "github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/orderstack/orderstack/config"
	coreerrors "github.com/orderstack/orderstack/internal/errors"
	"github.com/orderstack/orderstack/internal/logger"
	"github.com/orderstack/orderstack/internal/tracing"
	"github.com/orderstack/orderstack/interfaces"
)

const (
	dialTimeout    = 30 * time.Second
	commandTimeout = 30 * time.Second
	fetchTimeout   = 60 * time.Second
	logoutTimeout  = 5 * time.Second
)

// Session is one IMAP connection owned by a single ingestion job.
type Session struct {
	cfg     *config.IMAPConfig
	log     logger.Logger
	client  *client.Client
	mailbox string
	closed  bool
}

type sessionFactory struct {
	cfg *config.IMAPConfig
	log logger.Logger
}

// NewSessionFactory returns a factory producing one session per job.
func NewSessionFactory(cfg *config.IMAPConfig, log logger.Logger) interfaces.SessionFactory {
	return &sessionFactory{cfg: cfg, log: log}
}

func (f *sessionFactory) NewSession() interfaces.MailboxSession {
	return &Session{cfg: f.cfg, log: f.log}
}

// Connect dials the configured server and authenticates. A refused
// connection is surfaced as ErrConnectionRefused so callers can show a
// retry-later message.
func (s *Session) Connect(ctx context.Context) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "Session.Connect")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("server", s.cfg.Host)
	span.SetTag("port", s.cfg.Port)
	span.SetTag("tls", s.cfg.TLS)

	serverAddr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	dialer := &net.Dialer{
		Timeout:   dialTimeout,
		KeepAlive: dialTimeout,
	}

	var c *client.Client
	var err error

	if s.cfg.TLS {
		tlsConfig := &tls.Config{
			ServerName: s.cfg.Host,
		}
		c, err = client.DialWithDialerTLS(dialer, serverAddr, tlsConfig)
	} else {
		c, err = client.DialWithDialer(dialer, serverAddr)
	}

	if err != nil {
		tracing.TraceErr(span, err)
		if errors.Is(err, syscall.ECONNREFUSED) {
			return errors.WithMessage(coreerrors.ErrConnectionRefused, serverAddr)
		}
		return errors.Wrapf(err, "failed to connect to %s", serverAddr)
	}

	c.Timeout = commandTimeout
	err = c.Login(s.cfg.Username, s.cfg.Password)
	if err != nil {
		c.Logout()
		tracing.TraceErr(span, err)
		return errors.Wrapf(err, "failed to login as %s", s.cfg.Username)
	}
	c.Timeout = 0

	s.log.Infof("Connected and logged in to %s", serverAddr)
	s.client = c

	return nil
}

// Open selects a mailbox; required before search and fetch.
func (s *Session) Open(ctx context.Context, mailbox string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "Session.Open")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("mailbox", mailbox)

	if s.client == nil {
		return coreerrors.ErrSessionClosed
	}

	s.client.Timeout = commandTimeout
	mbox, err := s.client.Select(mailbox, false)
	s.client.Timeout = 0

	if err != nil {
		tracing.TraceErr(span, err)
		return errors.Wrapf(err, "selecting mailbox %s", mailbox)
	}

	s.mailbox = mailbox
	s.log.Infof("Selected %s - %d messages", mailbox, mbox.Messages)
	span.SetTag("messages.total", mbox.Messages)

	return nil
}

// SearchFrom returns UIDs of messages from the given address (or any
// address at the domain when the pattern is domain-only) received on
// the given UTC calendar day. An empty result is not an error.
func (s *Session) SearchFrom(ctx context.Context, pattern string, day time.Time) ([]uint32, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "Session.SearchFrom")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("pattern", pattern)
	span.SetTag("day", day.Format("2006-01-02"))

	if s.client == nil {
		return nil, coreerrors.ErrSessionClosed
	}

	criteria := searchCriteria(pattern, day)

	s.client.Timeout = commandTimeout
	uids, err := s.client.UidSearch(criteria)
	s.client.Timeout = 0

	if err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrap(err, "searching mailbox")
	}

	span.SetTag("messages.found", len(uids))
	return uids, nil
}

// searchCriteria builds the UID SEARCH arguments for one sender pattern
// on one UTC calendar day. IMAP HEADER FROM matching is substring-based
// (RFC 3501 §6.4.4), so an exact address matches itself and a bare
// "@domain" pattern matches every address at that domain with no extra
// handling. SINCE/BEFORE bound the server's internal date to the day.
func searchCriteria(pattern string, day time.Time) *goimap.SearchCriteria {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)

	criteria := goimap.NewSearchCriteria()
	criteria.Header = textproto.MIMEHeader{"From": {pattern}}
	criteria.Since = dayStart
	criteria.Before = dayStart.AddDate(0, 0, 1)
	return criteria
}

// FetchOne returns envelope and body structure for one message, without
// downloading any part content.
func (s *Session) FetchOne(ctx context.Context, uid uint32) (*goimap.Message, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "Session.FetchOne")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("uid", uid)

	if s.client == nil {
		return nil, coreerrors.ErrSessionClosed
	}

	seqSet := new(goimap.SeqSet)
	seqSet.AddNum(uid)

	items := []goimap.FetchItem{
		goimap.FetchEnvelope,
		goimap.FetchBodyStructure,
		goimap.FetchUid,
	}

	messages := make(chan *goimap.Message, 1)
	done := make(chan error, 1)

	s.client.Timeout = fetchTimeout
	go func() {
		done <- s.client.UidFetch(seqSet, items, messages)
	}()

	var msg *goimap.Message
	for m := range messages {
		if msg == nil {
			msg = m
		}
	}

	err := <-done
	s.client.Timeout = 0
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrapf(err, "fetching message %d", uid)
	}
	if msg == nil {
		err = errors.Errorf("message with UID %d not found", uid)
		tracing.TraceErr(span, err)
		return nil, err
	}

	return msg, nil
}

// DownloadPart streams one body part and undoes its transfer encoding.
func (s *Session) DownloadPart(ctx context.Context, uid uint32, part interfaces.PartRef) ([]byte, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "Session.DownloadPart")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("uid", uid)
	span.SetTag("part", fmt.Sprintf("%v", part.Path))

	if s.client == nil {
		return nil, coreerrors.ErrSessionClosed
	}

	section := &goimap.BodySectionName{
		BodyPartName: goimap.BodyPartName{Path: part.Path},
		Peek:         true,
	}

	seqSet := new(goimap.SeqSet)
	seqSet.AddNum(uid)

	items := []goimap.FetchItem{section.FetchItem()}
	messages := make(chan *goimap.Message, 1)
	done := make(chan error, 1)

	s.client.Timeout = fetchTimeout
	go func() {
		done <- s.client.UidFetch(seqSet, items, messages)
	}()

	var msg *goimap.Message
	for m := range messages {
		if msg == nil {
			msg = m
		}
	}

	err := <-done
	s.client.Timeout = 0
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrapf(err, "downloading part %v of message %d", part.Path, uid)
	}
	if msg == nil {
		return nil, errors.Errorf("message with UID %d not found", uid)
	}

	body := msg.GetBody(section)
	if body == nil {
		return nil, errors.Errorf("server returned no body for part %v of message %d", part.Path, uid)
	}

	data, err := decodeTransferEncoding(body, part.Encoding)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	span.SetTag("bytes", len(data))
	return data, nil
}

// EnsureFolder idempotently creates a destination mailbox folder.
func (s *Session) EnsureFolder(ctx context.Context, name string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "Session.EnsureFolder")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("folder", name)

	if s.client == nil {
		return coreerrors.ErrSessionClosed
	}

	mailboxes := make(chan *goimap.MailboxInfo, 10)
	done := make(chan error, 1)

	s.client.Timeout = commandTimeout
	go func() {
		done <- s.client.List("", "*", mailboxes)
	}()

	exists := false
	for m := range mailboxes {
		if m.Name == name {
			exists = true
		}
	}

	err := <-done
	s.client.Timeout = 0
	if err != nil {
		tracing.TraceErr(span, err)
		return errors.Wrap(err, "listing folders")
	}

	if exists {
		return nil
	}

	s.log.Infof("Creating mailbox folder %s", name)
	if err := s.client.Create(name); err != nil {
		tracing.TraceErr(span, err)
		return errors.Wrapf(err, "creating folder %s", name)
	}
	return nil
}

// MoveMessages moves the batch into the destination folder, falling
// back to copy+delete+expunge when the server lacks MOVE.
func (s *Session) MoveMessages(ctx context.Context, uids []uint32, folder string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "Session.MoveMessages")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("folder", folder)
	span.SetTag("messages", len(uids))

	if s.client == nil {
		return coreerrors.ErrSessionClosed
	}
	if len(uids) == 0 {
		return nil
	}

	seqSet := new(goimap.SeqSet)
	for _, uid := range uids {
		seqSet.AddNum(uid)
	}

	s.client.Timeout = commandTimeout
	defer func() { s.client.Timeout = 0 }()

	supported, err := s.client.Support("MOVE")
	if err != nil {
		tracing.TraceErr(span, err)
		return errors.Wrap(err, "checking MOVE capability")
	}

	if supported {
		if err := s.client.UidMove(seqSet, folder); err != nil {
			tracing.TraceErr(span, err)
			return errors.Wrapf(err, "moving messages to %s", folder)
		}
		return nil
	}

	if err := s.client.UidCopy(seqSet, folder); err != nil {
		tracing.TraceErr(span, err)
		return errors.Wrapf(err, "copying messages to %s", folder)
	}

	item := goimap.FormatFlagsOp(goimap.AddFlags, true)
	flags := []interface{}{goimap.DeletedFlag}
	if err := s.client.UidStore(seqSet, item, flags, nil); err != nil {
		tracing.TraceErr(span, err)
		return errors.Wrap(err, "flagging moved messages as deleted")
	}

	if err := s.client.Expunge(nil); err != nil {
		tracing.TraceErr(span, err)
		return errors.Wrap(err, "expunging moved messages")
	}
	return nil
}

// Close logs out, bounded by a timeout so a wedged server cannot hold
// the job open. Safe to call once per session.
func (s *Session) Close() error {
	span := opentracing.StartSpan("Session.Close")
	defer span.Finish()

	if s.client == nil || s.closed {
		return nil
	}
	s.closed = true

	s.client.Timeout = logoutTimeout

	done := make(chan error, 1)
	go func() {
		done <- s.client.Logout()
		close(done)
	}()

	select {
	case err := <-done:
		if err != nil {
			tracing.TraceErr(span, err)
			s.log.Warnf("Error during logout: %v", err)
			return err
		}
		s.log.Infof("Logged out of %s", s.cfg.Host)
	case <-time.After(logoutTimeout):
		span.SetTag("timeout", true)
		s.log.Warnf("Logout timed out")
	}

	s.client = nil
	return nil
}
