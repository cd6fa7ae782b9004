package service

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"

	"github.com/pkg/errors"

	"woodstore/pkg/domain/model"
)

var (
	ErrRelayNotConfigured = errors.New("RESEND_API_KEY is not configured")
	ErrEnquiryIncomplete  = wrapKind(model.ErrValidation, "Name, phone, and product are required")
)

type LeadConfig struct {
	StoreName      string
	WhatsAppNumber string
	MailFrom       string
	MailTo         []string
}

type LeadService interface {
	EnquiryLink(enquiry model.Enquiry) (string, error)
	ContactLink(contact model.Contact) (string, error)
	GreetingLink() string
	// RelayEnquiry forwards the enquiry by email. It fails with
	// ErrRelayNotConfigured when no mailer is available.
	RelayEnquiry(ctx context.Context, enquiry model.Enquiry) error
}

// NewLeadService accepts a nil mailer; only RelayEnquiry depends on it.
func NewLeadService(cfg LeadConfig, mailer model.Mailer, dispatcher EventDispatcher) LeadService {
	return &leadService{cfg: cfg, mailer: mailer, dispatcher: dispatcher}
}

type leadService struct {
	cfg        LeadConfig
	mailer     model.Mailer
	dispatcher EventDispatcher
}

func (s *leadService) EnquiryLink(enquiry model.Enquiry) (string, error) {
	if err := validateEnquiry(enquiry); err != nil {
		return "", err
	}

	lines := []string{fmt.Sprintf("*New Enquiry from %s Website*", s.cfg.StoreName), ""}
	lines = appendField(lines, "Name", enquiry.Name)
	lines = appendField(lines, "Company", enquiry.Company)
	lines = appendField(lines, "Phone", enquiry.Phone)
	lines = appendField(lines, "Email", enquiry.Email)
	lines = appendField(lines, "Product Required", enquiry.Product)
	lines = appendField(lines, "Quantity", enquiry.Quantity)
	lines = appendField(lines, "Message", enquiry.Message)
	return model.ChatLink(s.cfg.WhatsAppNumber, lines), nil
}

func (s *leadService) ContactLink(contact model.Contact) (string, error) {
	for _, f := range []struct{ name, value string }{
		{"name", contact.Name},
		{"phone", contact.Phone},
		{"message", contact.Message},
	} {
		if strings.TrimSpace(f.value) == "" {
			return "", requiredField(f.name)
		}
	}

	lines := []string{fmt.Sprintf("*New Message from %s Website*", s.cfg.StoreName), ""}
	lines = appendField(lines, "Name", contact.Name)
	lines = appendField(lines, "Phone", contact.Phone)
	lines = appendField(lines, "Email", contact.Email)
	lines = appendField(lines, "Message", contact.Message)
	return model.ChatLink(s.cfg.WhatsAppNumber, lines), nil
}

func (s *leadService) GreetingLink() string {
	return model.ChatLink(s.cfg.WhatsAppNumber, []string{
		fmt.Sprintf("Hello %s, I would like to enquire about your products.", s.cfg.StoreName),
	})
}

func (s *leadService) RelayEnquiry(ctx context.Context, enquiry model.Enquiry) error {
	if s.mailer == nil {
		return ErrRelayNotConfigured
	}
	if err := validateEnquiry(enquiry); err != nil {
		return err
	}

	var body bytes.Buffer
	if err := enquiryTemplate.Execute(&body, enquiryView{StoreName: s.cfg.StoreName, Rows: enquiryRows(enquiry)}); err != nil {
		return errors.Wrap(err, "render enquiry")
	}

	err := s.mailer.Send(ctx, model.Mail{
		From:    s.cfg.MailFrom,
		To:      s.cfg.MailTo,
		Subject: fmt.Sprintf("New Enquiry: %s - from %s", enquiry.Product, enquiry.Name),
		HTML:    body.String(),
	})
	if err != nil {
		return errors.Wrap(err, "send enquiry email")
	}

	dispatch(s.dispatcher, model.EnquiryRelayed{Name: enquiry.Name, Product: enquiry.Product})
	return nil
}

func validateEnquiry(enquiry model.Enquiry) error {
	if strings.TrimSpace(enquiry.Name) == "" ||
		strings.TrimSpace(enquiry.Phone) == "" ||
		strings.TrimSpace(enquiry.Product) == "" {
		return ErrEnquiryIncomplete
	}
	return nil
}

func appendField(lines []string, label, value string) []string {
	if value == "" {
		return lines
	}
	return append(lines, fmt.Sprintf("*%s:* %s", label, value))
}

type enquiryRow struct {
	Label string
	Value string
}

type enquiryView struct {
	StoreName string
	Rows      []enquiryRow
}

func enquiryRows(e model.Enquiry) []enquiryRow {
	orNA := func(v string) string {
		if v == "" {
			return "N/A"
		}
		return v
	}
	return []enquiryRow{
		{"Name", e.Name},
		{"Company", orNA(e.Company)},
		{"Phone", e.Phone},
		{"Email", orNA(e.Email)},
		{"Product", e.Product},
		{"Quantity", orNA(e.Quantity)},
		{"Message", orNA(e.Message)},
	}
}

var enquiryTemplate = template.Must(template.New("enquiry").Parse(`
<h2>New Enquiry from {{.StoreName}} Website</h2>
<table style="border-collapse:collapse;width:100%;max-width:600px;">
{{- range .Rows}}
  <tr><td style="padding:8px;border:1px solid #ddd;font-weight:bold;">{{.Label}}</td><td style="padding:8px;border:1px solid #ddd;">{{.Value}}</td></tr>
{{- end}}
</table>
`))
