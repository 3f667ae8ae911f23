// Package email sends the weekly reminder mail over SMTP.
package email

import (
	"bytes"
	"context"
	"fmt"
	"net/smtp"
	"strconv"
	"strings"
)

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

// Subjects rotate by ISO week number so consecutive reminders differ.
var Subjects = []string{
	"Your Empty Jar reminder 🫙",
	"One note for this week ✨",
	"A quick check-in from Empty Jar 💭",
}

// SubjectForWeek picks the subject for an ISO week number.
func SubjectForWeek(week int) string {
	if week < 0 {
		week = -week
	}
	return Subjects[week%len(Subjects)]
}

type Reminder struct {
	To      string
	Name    string
	Subject string
	AppURL  string
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type Service struct {
	config Config
	server string
	auth   smtp.Auth
	send   sendFunc
}

func NewService(config Config) *Service {
	var auth smtp.Auth
	if config.Username != "" {
		auth = smtp.PlainAuth("", config.Username, config.Password, config.Host)
	}
	return &Service{
		config: config,
		server: config.Host + ":" + strconv.Itoa(config.Port),
		auth:   auth,
		send:   smtp.SendMail,
	}
}

func (s *Service) IsConfigured() bool {
	return s.config.Host != "" && s.config.Port > 0 && s.config.From != ""
}

// SendReminder renders and sends one reminder. net/smtp has no context
// support, so ctx is only checked before dialing.
func (s *Service) SendReminder(ctx context.Context, r Reminder) error {
	if !s.IsConfigured() {
		return fmt.Errorf("email not configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	html, err := RenderReminder(r)
	if err != nil {
		return fmt.Errorf("render reminder template: %w", err)
	}
	return s.send(s.server, s.auth, s.config.From, []string{r.To}, s.message(r, html))
}

func (s *Service) message(r Reminder, htmlBody string) []byte {
	from := s.config.From
	if s.config.FromName != "" {
		from = fmt.Sprintf("%s <%s>", s.config.FromName, s.config.From)
	}

	boundary := "boundary-empty-jar"

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "To: %s\r\n", r.To)
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "Subject: %s\r\n", r.Subject)
	fmt.Fprintf(&msg, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: multipart/alternative; boundary=\"%s\"\r\n", boundary)
	fmt.Fprintf(&msg, "\r\n")

	fmt.Fprintf(&msg, "--%s\r\n", boundary)
	fmt.Fprintf(&msg, "Content-Type: text/plain; charset=UTF-8\r\n")
	fmt.Fprintf(&msg, "\r\n")
	fmt.Fprintf(&msg, "Take 60 seconds and add this week's note: %s/app\r\n", strings.TrimRight(r.AppURL, "/"))
	fmt.Fprintf(&msg, "\r\n")

	fmt.Fprintf(&msg, "--%s\r\n", boundary)
	fmt.Fprintf(&msg, "Content-Type: text/html; charset=UTF-8\r\n")
	fmt.Fprintf(&msg, "\r\n")
	fmt.Fprintf(&msg, "%s\r\n", htmlBody)
	fmt.Fprintf(&msg, "\r\n")
	fmt.Fprintf(&msg, "--%s--\r\n", boundary)

	return msg.Bytes()
}
