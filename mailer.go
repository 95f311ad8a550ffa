package authkit

import (
	"bytes"
	"context"
	"io/fs"
	"net/http"
	"sync"

	"github.com/gofiber/template/django/v3"
	goerrors "github.com/goliatone/go-errors"
)

// EmailTemplate names a template under templates/.
type EmailTemplate string

const (
	// EmailTemplateAccountActivation carries the one-time activation code.
	EmailTemplateAccountActivation EmailTemplate = "activate_account"
)

// Email is a single outbound message. Variables are handed to the template
// engine as the render context.
type Email struct {
	To        string
	Subject   string
	Template  EmailTemplate
	Variables map[string]any
}

// QueuedMailer renders templates and hands messages to a Transport from a
// bounded worker pool. Send never blocks on delivery; it blocks only when
// the queue is full, so a message is always durably queued or the caller
// gets a context error, never silently dropped.
type QueuedMailer struct {
	queue     chan Email
	transport Transport
	engine    *django.Engine
	logger    Logger

	wg      sync.WaitGroup
	closeMu sync.Mutex
	closed  bool
}

// MailerOption configures a QueuedMailer
type MailerOption func(*mailerOptions)

type mailerOptions struct {
	workers   int
	queueSize int
	logger    Logger
	templates fs.FS
}

// WithMailerWorkers sets the number of delivery workers.
func WithMailerWorkers(n int) MailerOption {
	return func(o *mailerOptions) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithMailerQueueSize sets the queue capacity.
func WithMailerQueueSize(n int) MailerOption {
	return func(o *mailerOptions) {
		if n > 0 {
			o.queueSize = n
		}
	}
}

// WithMailerLogger sets the logger used for delivery failures.
func WithMailerLogger(l Logger) MailerOption {
	return func(o *mailerOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMailerTemplates overrides the embedded template set.
func WithMailerTemplates(templates fs.FS) MailerOption {
	return func(o *mailerOptions) {
		if templates != nil {
			o.templates = templates
		}
	}
}

// NewQueuedMailer loads the template engine and starts the worker pool.
// Template load failures surface here so a broken template set is caught
// at startup rather than on first send.
func NewQueuedMailer(transport Transport, opts ...MailerOption) (*QueuedMailer, error) {
	if transport == nil {
		return nil, goerrors.New("mail transport is required", goerrors.CategoryBadInput)
	}

	options := &mailerOptions{
		workers:   2,
		queueSize: 64,
		logger:    defLogger{},
		templates: GetTemplatesFS(),
	}
	for _, opt := range opts {
		opt(options)
	}

	engine := django.NewFileSystem(http.FS(options.templates), ".html")
	if err := engine.Load(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load email templates")
	}

	m := &QueuedMailer{
		queue:     make(chan Email, options.queueSize),
		transport: transport,
		engine:    engine,
		logger:    options.logger,
	}

	m.wg.Add(options.workers)
	for i := 0; i < options.workers; i++ {
		go m.worker()
	}

	return m, nil
}

// Send enqueues the message for asynchronous delivery. The returned error
// only reflects enqueueing: delivery failures are logged by the workers,
// never surfaced to the caller's success path.
func (m *QueuedMailer) Send(ctx context.Context, msg Email) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled before email was queued")
	case m.queue <- msg:
		return nil
	}
}

// Close stops accepting messages and waits for in-flight deliveries.
func (m *QueuedMailer) Close() {
	m.closeMu.Lock()
	defer m.closeMu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	close(m.queue)
	m.wg.Wait()
}

func (m *QueuedMailer) worker() {
	defer m.wg.Done()

	for msg := range m.queue {
		if err := m.deliver(msg); err != nil {
			m.logger.Error("mail delivery failed", "to", msg.To, "template", msg.Template, "error", err)
		}
	}
}

func (m *QueuedMailer) deliver(msg Email) error {
	template := string(msg.Template)
	if template == "" {
		template = string(EmailTemplateAccountActivation)
	}

	var body bytes.Buffer
	if err := m.engine.Render(&body, template, msg.Variables); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to render email template")
	}

	return m.transport.Deliver(context.Background(), msg.To, msg.Subject, body.String())
}

// Verify interface compliance
var _ Mailer = (*QueuedMailer)(nil)
