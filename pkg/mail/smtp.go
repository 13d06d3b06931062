package mail

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/smtp"
	"net/textproto"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/yurykabanov/logrotate/pkg/policy"
)

var (
	ErrNotConfigured = errors.New("mail address, server and port are required")
	ErrNoStartTLS    = errors.New("smtpssl is set but the server does not offer STARTTLS")
)

const implicitTLSPort = 465

// Message is a single log file sent to the configured address.
type Message struct {
	Settings   policy.Mail
	Subject    string
	LogPath    string
	Attachment string
}

type opener interface {
	Open(path string) (io.ReadCloser, error)
}

type SMTPMailer struct {
	logger logrus.FieldLogger
	files  opener

	dialTimeout time.Duration
	now         func() time.Time

	// nil means the system roots
	rootCAs *x509.CertPool
}

func NewSMTPMailer(logger logrus.FieldLogger, files opener) *SMTPMailer {
	return &SMTPMailer{
		logger:      logger,
		files:       files,
		dialTimeout: 30 * time.Second,
		now:         time.Now,
	}
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	settings := msg.Settings
	if !settings.Enabled() {
		return ErrNotConfigured
	}

	body, err := m.build(msg)
	if err != nil {
		return err
	}

	addr := net.JoinHostPort(settings.Server, strconv.Itoa(settings.Port))

	logger := m.logger.WithFields(logrus.Fields{"server": addr, "address": settings.Address})
	logger.Debug("Sending mail")

	client, err := m.dial(ctx, addr, settings)
	if err != nil {
		return errors.Wrapf(err, "unable to connect to %s", addr)
	}
	defer client.Close()

	if settings.Username != "" {
		auth := smtp.PlainAuth("", settings.Username, settings.Password, settings.Server)

		err = client.Auth(auth)
		if err != nil {
			return errors.Wrap(err, "smtp authentication failed")
		}
	}

	err = client.Mail(sender(settings))
	if err != nil {
		return errors.Wrap(err, "smtp MAIL FROM failed")
	}

	err = client.Rcpt(settings.Address)
	if err != nil {
		return errors.Wrap(err, "smtp RCPT TO failed")
	}

	w, err := client.Data()
	if err != nil {
		return errors.Wrap(err, "smtp DATA failed")
	}

	_, err = w.Write(body)
	if err != nil {
		w.Close()
		return errors.Wrap(err, "unable to write message")
	}

	err = w.Close()
	if err != nil {
		return errors.Wrap(err, "unable to finish message")
	}

	logger.Info("Mail sent")

	return client.Quit()
}

// dial connects to the server. Port 465 with smtpssl speaks TLS from the first
// byte, any other connection is upgraded with STARTTLS when the server offers
// it. smtpssl makes the upgrade mandatory.
func (m *SMTPMailer) dial(ctx context.Context, addr string, settings policy.Mail) (*smtp.Client, error) {
	dialer := &net.Dialer{Timeout: m.dialTimeout}

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	implicitTLS := settings.UseSSL && settings.Port == implicitTLSPort
	if implicitTLS {
		conn = tls.Client(conn, m.tlsConfig(settings.Server))
	}

	client, err := smtp.NewClient(conn, settings.Server)
	if err != nil {
		conn.Close()
		return nil, err
	}

	if implicitTLS {
		return client, nil
	}

	if ok, _ := client.Extension("STARTTLS"); ok {
		err = client.StartTLS(m.tlsConfig(settings.Server))
		if err != nil {
			client.Close()
			return nil, errors.Wrap(err, "smtp STARTTLS failed")
		}
	} else if settings.UseSSL {
		client.Close()
		return nil, ErrNoStartTLS
	}

	return client, nil
}

func (m *SMTPMailer) tlsConfig(server string) *tls.Config {
	return &tls.Config{
		ServerName: server,
		RootCAs:    m.rootCAs,
	}
}

// build renders a multipart/mixed message with the rotated file attached.
func (m *SMTPMailer) build(msg Message) ([]byte, error) {
	f, err := m.files.Open(msg.Attachment)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open %s", msg.Attachment)
	}
	defer f.Close()

	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	fmt.Fprintf(buf, "From: %s\r\n", sender(msg.Settings))
	fmt.Fprintf(buf, "To: %s\r\n", msg.Settings.Address)
	fmt.Fprintf(buf, "Subject: %s\r\n", msg.Subject)
	fmt.Fprintf(buf, "Date: %s\r\n", m.now().Format(time.RFC1123Z))
	fmt.Fprintf(buf, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(buf, "Content-Type: multipart/mixed; boundary=%s\r\n\r\n", w.Boundary())

	text, err := w.CreatePart(textproto.MIMEHeader{
		"Content-Type": {"text/plain; charset=utf-8"},
	})
	if err != nil {
		return nil, err
	}

	fmt.Fprintf(text, "Log file %s was rotated, see attachment %s.\r\n", msg.LogPath, filepath.Base(msg.Attachment))

	attachment, err := w.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {"application/octet-stream"},
		"Content-Transfer-Encoding": {"base64"},
		"Content-Disposition":       {fmt.Sprintf("attachment; filename=%q", filepath.Base(msg.Attachment))},
	})
	if err != nil {
		return nil, err
	}

	encoder := base64.NewEncoder(base64.StdEncoding, &lineWriter{w: attachment})

	_, err = io.Copy(encoder, f)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read %s", msg.Attachment)
	}

	err = encoder.Close()
	if err != nil {
		return nil, err
	}

	err = w.Close()
	if err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func sender(settings policy.Mail) string {
	if settings.From != "" {
		return settings.From
	}

	return "logrotate@localhost"
}

// lineWriter breaks base64 output into 76 character lines.
type lineWriter struct {
	w   io.Writer
	col int
}

const maxLineLength = 76

func (l *lineWriter) Write(p []byte) (int, error) {
	written := 0

	for len(p) > 0 {
		n := maxLineLength - l.col
		if n > len(p) {
			n = len(p)
		}

		_, err := l.w.Write(p[:n])
		if err != nil {
			return written, err
		}

		written += n
		l.col += n
		p = p[n:]

		if l.col == maxLineLength {
			_, err = l.w.Write([]byte("\r\n"))
			if err != nil {
				return written, err
			}
			l.col = 0
		}
	}

	return written, nil
}
