package core

import (
	"bytes"
	htmltmpl "html/template"
	"net/mail"
	texttmpl "text/template"

	"github.com/pkg/errors"
)

type (
	EmailMessage struct {
		To      []mail.Address
		Cc      []mail.Address
		Bcc     []mail.Address
		Subject string
		BodyStr string // simple text/plain, non-templated content

		// templated contents
		TemplateName string
		TemplateData interface{}
		TextContent  string
		HTMLContent  string
	}

	ContextData struct {
		FrontendBaseURL string
		Data            interface{}
	}

	// EmailService is any service that can send emails
	EmailService interface {
		// SendMessages sends messages concurrently
		SendMessages(messages ...*EmailMessage)
	}
)

// mail templates, keyed by EmailMessage.TemplateName
var (
	textTemplates = map[string]*texttmpl.Template{
		"welcome": texttmpl.Must(texttmpl.New("welcome").Parse(
			"Hi {{.Data.FirstName}},\n\n" +
				"Your account has been created. Head over to {{.FrontendBaseURL}} to get started.\n",
		)),
		"teacher-approved": texttmpl.Must(texttmpl.New("teacher-approved").Parse(
			"Hi {{.Data.FirstName}},\n\n" +
				"Your teacher account has been approved. You now have full access to the portal: {{.FrontendBaseURL}}\n",
		)),
	}
	htmlTemplates = map[string]*htmltmpl.Template{
		"welcome": htmltmpl.Must(htmltmpl.New("welcome").Parse(
			"<p>Hi {{.Data.FirstName}},</p>" +
				"<p>Your account has been created. Head over to <a href=\"{{.FrontendBaseURL}}\">the portal</a> to get started.</p>",
		)),
		"teacher-approved": htmltmpl.Must(htmltmpl.New("teacher-approved").Parse(
			"<p>Hi {{.Data.FirstName}},</p>" +
				"<p>Your teacher account has been approved. You now have <a href=\"{{.FrontendBaseURL}}\">full access</a> to the portal.</p>",
		)),
	}
)

// Render renders the message's templated contents into TextContent and HTMLContent.
// Non-templated messages are left untouched.
func (m *EmailMessage) Render(frontendBaseURL string) error {
	if m.TemplateName == "" {
		return nil
	}
	data := ContextData{FrontendBaseURL: frontendBaseURL, Data: m.TemplateData}

	if tmpl, ok := textTemplates[m.TemplateName]; ok {
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, data); err != nil {
			return errors.Wrapf(err, "rendering text template %s", m.TemplateName)
		}
		m.TextContent = buf.String()
	}
	if tmpl, ok := htmlTemplates[m.TemplateName]; ok {
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, data); err != nil {
			return errors.Wrapf(err, "rendering html template %s", m.TemplateName)
		}
		m.HTMLContent = buf.String()
	}
	if m.TextContent == "" && m.HTMLContent == "" {
		return errors.Errorf("unknown email template %s", m.TemplateName)
	}
	return nil
}

func (m *EmailMessage) HasRecipients() bool {
	return len(m.To) > 0 || len(m.Cc) > 0 || len(m.Bcc) > 0
}

func (m *EmailMessage) HasContent() bool {
	return m.BodyStr != "" || m.TextContent != "" || m.HTMLContent != ""
}
