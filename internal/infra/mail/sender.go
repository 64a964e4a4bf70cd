package mail

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/gomail.v2"

	"github.com/xavierca1/field-dispatch/internal/usecase"
)

//go:embed templates/*.html
var templateFS embed.FS

var jobTemplate = template.Must(template.ParseFS(templateFS, "templates/job_notification.html"))

func NewEmailSender(host string, port int, user, password, from string) *EmailSender {
	return &EmailSender{
		From:   from,
		Dialer: gomail.NewDialer(host, port, user, password),
	}
}

// SendJobNotification returns the Message-ID it stamped on the email as the
// provider id; SMTP gives nothing better back.
func (s *EmailSender) SendJobNotification(to string, data usecase.JobNotificationData) (string, error) {
	var body bytes.Buffer
	if err := jobTemplate.Execute(&body, data); err != nil {
		return "", fmt.Errorf("render job email: %w", err)
	}

	domain := "localhost"
	if at := strings.LastIndex(s.From, "@"); at >= 0 {
		domain = s.From[at+1:]
	}
	messageID := fmt.Sprintf("<%s@%s>", uuid.New().String(), domain)

	m := gomail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", to)
	m.SetHeader("Message-ID", messageID)
	m.SetHeader("Subject", fmt.Sprintf("Job scheduled %s at %s: %s", data.Date, data.Time, data.CustomerName))
	m.SetBody("text/html", body.String())

	if err := s.Dialer.DialAndSend(m); err != nil {
		return "", fmt.Errorf("send smtp email: %w", err)
	}
	return messageID, nil
}
