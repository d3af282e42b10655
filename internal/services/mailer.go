package services

import (
	"strconv"

	"gopkg.in/gomail.v2"
)

// GomailMailer sends plain-text mail over SMTP. Delivery is fire and forget:
// the caller logs failures and moves on, there is no retry.
type GomailMailer struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

func (m *GomailMailer) Send(to, subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.From)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	d := gomail.NewDialer(m.Host, m.Port, m.Username, m.Password)
	return d.DialAndSend(msg)
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
