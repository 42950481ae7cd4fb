package filter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"github.com/emersion/go-smtp"
	"go.uber.org/zap"

	"github.com/mikey/llm-doc-detector/internal/core"
)

// PostfixOptions configures a PostfixFilter
type PostfixOptions struct {
	ListenAddress   string
	HeaderPrefix    string
	MaxMessageBytes int64
	ReinjectEnabled bool
	ReinjectAddress string
	ReinjectPort    int
	Timeout         time.Duration
}

// PostfixFilter implements a Postfix after-queue content filter. Messages
// are received over SMTP, annotated with detection headers and re-injected.
type PostfixFilter struct {
	detector *Detector
	logger   *zap.Logger
	opts     PostfixOptions
	server   *smtp.Server

	mu       sync.Mutex
	listener net.Listener
}

// NewPostfixFilter creates a new Postfix content filter
func NewPostfixFilter(detector *Detector, logger *zap.Logger, opts PostfixOptions) *PostfixFilter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.HeaderPrefix == "" {
		opts.HeaderPrefix = DefaultHeaderPrefix
	}
	if opts.MaxMessageBytes <= 0 {
		opts.MaxMessageBytes = 30 * 1024 * 1024
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	return &PostfixFilter{
		detector: detector,
		logger:   logger,
		opts:     opts,
	}
}

// Start starts the Postfix filter service
func (f *PostfixFilter) Start() error {
	f.server = smtp.NewServer(&smtpBackend{filter: f})

	f.server.Addr = f.opts.ListenAddress
	f.server.Domain = "localhost"
	f.server.ReadTimeout = 30 * time.Second
	f.server.WriteTimeout = 30 * time.Second
	f.server.MaxMessageBytes = f.opts.MaxMessageBytes
	f.server.MaxRecipients = 50

	l, err := net.Listen("tcp", f.opts.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", f.opts.ListenAddress, err)
	}
	f.mu.Lock()
	f.listener = l
	f.mu.Unlock()

	f.logger.Info("Postfix filter starting", zap.String("address", l.Addr().String()))

	go func() {
		if err := f.server.Serve(l); err != nil && !errors.Is(err, smtp.ErrServerClosed) {
			f.logger.Error("SMTP server error", zap.Error(err))
		}
	}()

	return nil
}

// Addr returns the address the filter listens on once started
func (f *PostfixFilter) Addr() net.Addr {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listener == nil {
		return nil
	}
	return f.listener.Addr()
}

// Stop stops the Postfix filter service
func (f *PostfixFilter) Stop() error {
	if f.server != nil {
		return f.server.Close()
	}
	return nil
}

// ProcessMessage runs detection on a raw message without re-injecting it
func (f *PostfixFilter) ProcessMessage(ctx context.Context, envelopeFrom string, raw []byte) ([]*core.ProcessingSummary, error) {
	return f.detector.ProcessMessage(ctx, envelopeFrom, raw)
}

// handle annotates one message and hands it back to Postfix
func (f *PostfixFilter) handle(sender string, recipients []string, raw []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), f.opts.Timeout)
	defer cancel()

	var extra [][2]string
	summaries, err := f.detector.ProcessMessage(ctx, sender, raw)
	if err != nil {
		f.logger.Error("Failed to analyze email",
			zap.String("sender", sender),
			zap.Error(err))
		extra = append(extra, [2]string{f.opts.HeaderPrefix + "-Error", err.Error()})
	}

	annotated, err := Annotate(raw, f.opts.HeaderPrefix, summaries, extra...)
	if err != nil {
		return err
	}

	if f.opts.ReinjectEnabled {
		if err := f.sendToPostfix(sender, recipients, annotated); err != nil {
			f.logger.Error("Failed to send email back to Postfix",
				zap.Error(err),
				zap.String("sender", sender))
			return &smtp.SMTPError{
				Code:         451,
				EnhancedCode: smtp.EnhancedCode{4, 3, 0},
				Message:      "Re-injection failed, try again later",
			}
		}
	} else {
		f.logger.Warn("Postfix forwarding disabled, this is likely a misconfiguration")
	}

	for _, s := range summaries {
		f.logger.Info("Processed email",
			zap.String("processing_id", s.ID),
			zap.String("policy", s.Policy),
			zap.String("sender", sender),
			zap.Bool("detected", s.Detected),
			zap.Int64("processing_time_ms", s.ProcessingTimeMs()))
	}

	return nil
}

// sendToPostfix sends the processed email back to Postfix on the configured port using go-smtp
func (f *PostfixFilter) sendToPostfix(sender string, recipients []string, emailData []byte) error {
	postfixAddr := net.JoinHostPort(f.opts.ReinjectAddress, fmt.Sprintf("%d", f.opts.ReinjectPort))

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}

	conn, err := net.DialTimeout("tcp", postfixAddr, 10*time.Second)
	if err != nil {
		return fmt.Errorf("failed to connect to Postfix: %w", err)
	}

	if err := conn.SetDeadline(time.Now().Add(30 * time.Second)); err != nil {
		conn.Close()
		return fmt.Errorf("failed to set connection deadline: %w", err)
	}

	c := smtp.NewClient(conn)
	defer c.Close()

	if err := c.Hello(hostname); err != nil {
		return fmt.Errorf("EHLO failed: %w", err)
	}

	if err := c.Mail(sender, nil); err != nil {
		return fmt.Errorf("MAIL FROM failed: %w", err)
	}

	recipientOK := false
	for _, recipient := range recipients {
		if err := c.Rcpt(recipient, nil); err != nil {
			f.logger.Warn("RCPT TO failed for recipient",
				zap.String("recipient", recipient),
				zap.Error(err))
		} else {
			recipientOK = true
		}
	}

	if !recipientOK {
		return fmt.Errorf("all recipients were rejected")
	}

	wc, err := c.Data()
	if err != nil {
		return fmt.Errorf("DATA command failed: %w", err)
	}

	if _, err := wc.Write(emailData); err != nil {
		wc.Close()
		return fmt.Errorf("failed to send email data: %w", err)
	}

	if err := wc.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	if err := c.Quit(); err != nil {
		f.logger.Warn("QUIT command failed", zap.Error(err))
	}

	return nil
}

// smtpBackend implements the go-smtp Backend interface
type smtpBackend struct {
	filter *PostfixFilter
}

// NewSession creates a new SMTP session
func (b *smtpBackend) NewSession(_ *smtp.Conn) (smtp.Session, error) {
	return &smtpSession{filter: b.filter}, nil
}

// smtpSession implements the go-smtp Session interface
type smtpSession struct {
	filter     *PostfixFilter
	sender     string
	recipients []string
}

func (s *smtpSession) Reset() {
	s.sender = ""
	s.recipients = nil
}

func (s *smtpSession) Mail(from string, _ *smtp.MailOptions) error {
	s.sender = from
	return nil
}

func (s *smtpSession) Rcpt(to string, _ *smtp.RcptOptions) error {
	s.recipients = append(s.recipients, to)
	return nil
}

func (s *smtpSession) Data(r io.Reader) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		s.filter.logger.Error("Failed to read message data", zap.Error(err))
		return err
	}
	return s.filter.handle(s.sender, s.recipients, raw)
}

func (s *smtpSession) Logout() error {
	return nil
}
