package email

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/abaflow/practice-api/internal/model"
)

// Service is the notification collaborator. Delivery is outside the
// scheduling core; services call through this interface and ignore
// delivery failures beyond logging.
type Service interface {
	SendAppointmentCancelled(ctx context.Context, to string, apt *model.Appointment, reason string) error
	SendAppointmentMissed(ctx context.Context, to string, apt *model.Appointment) error
}

type Config struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	User string `mapstructure:"user"`
	Pass string `mapstructure:"pass"`
	From string `mapstructure:"from"`
}

type smtpService struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPService(cfg Config) Service {
	return &smtpService{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Pass),
		from:   cfg.From,
	}
}

func (s *smtpService) SendAppointmentCancelled(_ context.Context, to string, apt *model.Appointment, reason string) error {
	subject := "Appointment cancelled"
	body := fmt.Sprintf("The appointment on %s at %s was cancelled.\n\nReason: %s\n",
		apt.ScheduledDate.Format("2006-01-02"), apt.ScheduledTime, reason)
	return s.send(to, subject, body)
}

func (s *smtpService) SendAppointmentMissed(_ context.Context, to string, apt *model.Appointment) error {
	subject := "Appointment marked as missed"
	body := fmt.Sprintf("The appointment on %s at %s was not attended and has been marked as missed.\n",
		apt.ScheduledDate.Format("2006-01-02"), apt.ScheduledTime)
	return s.send(to, subject, body)
}

func (s *smtpService) send(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)
	return s.dialer.DialAndSend(m)
}

// NewNoop returns a Service that drops every notification. Used when
// SMTP is not configured and by tests.
func NewNoop() Service { return noopService{} }

type noopService struct{}

func (noopService) SendAppointmentCancelled(context.Context, string, *model.Appointment, string) error {
	return nil
}

func (noopService) SendAppointmentMissed(context.Context, string, *model.Appointment) error {
	return nil
}
