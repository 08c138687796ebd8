package mail

import (
	"bytes"
	"fmt"
	"html/template"
	"log"

	"gopkg.in/gomail.v2"
)

var welcomeTemplate = template.Must(template.New("welcome").Parse(`<p>Hi {{.Name}},</p>
<p>Welcome to {{.GymName}}! You're signed up for the {{.Program}}.</p>
{{if .TrackerLink}}<p>Your challenge tracker: <a href="{{.TrackerLink}}">{{.TrackerLink}}</a></p>{{end}}
<p>See you at the gym!</p>`))

func NewEmailSender(host string, port int, user, password, from, gymName string) *EmailSender {
	if gymName == "" {
		gymName = "the gym"
	}
	return &EmailSender{
		Host:     host,
		Port:     port,
		User:     user,
		Password: password,
		From:     from,
		GymName:  gymName,
	}
}

// Configured indica se há servidor SMTP; sem ele o worker só loga.
func (s *EmailSender) Configured() bool {
	return s != nil && s.Host != "" && s.From != ""
}

func (s *EmailSender) SendWelcome(to, name, program, trackerLink string) error {
	if !s.Configured() {
		log.Printf("⚠️ Email: SMTP não configurado, boas-vindas de %s não enviadas", name)
		return nil
	}

	m, err := s.welcomeMessage(to, name, program, trackerLink)
	if err != nil {
		return err
	}

	d := gomail.NewDialer(s.Host, s.Port, s.User, s.Password)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("erro ao enviar email SMTP: %w", err)
	}
	log.Printf("📧 Email de boas-vindas enviado para %s", to)
	return nil
}

func (s *EmailSender) welcomeMessage(to, name, program, trackerLink string) (*gomail.Message, error) {
	body, err := renderWelcome(WelcomeEmailData{
		Name:        name,
		Program:     program,
		TrackerLink: trackerLink,
		GymName:     s.GymName,
	})
	if err != nil {
		return nil, err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", fmt.Sprintf("Welcome to %s, %s!", s.GymName, name))
	m.SetBody("text/html", body)
	return m, nil
}

func renderWelcome(data WelcomeEmailData) (string, error) {
	var body bytes.Buffer
	if err := welcomeTemplate.Execute(&body, data); err != nil {
		return "", fmt.Errorf("erro ao processar template: %w", err)
	}
	return body.String(), nil
}
