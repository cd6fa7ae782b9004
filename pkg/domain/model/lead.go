package model

import (
	"context"
	"io"
	"net/url"
	"strings"
)

type Enquiry struct {
	Name     string `json:"name"`
	Company  string `json:"company,omitempty"`
	Phone    string `json:"phone"`
	Email    string `json:"email,omitempty"`
	Product  string `json:"product"`
	Quantity string `json:"quantity,omitempty"`
	Message  string `json:"message,omitempty"`
}

type Contact struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email,omitempty"`
	Message string `json:"message"`
}

type Mail struct {
	From    string
	To      []string
	Subject string
	HTML    string
}

type Mailer interface {
	Send(ctx context.Context, mail Mail) error
}

// ChatLink builds a WhatsApp click-to-chat link carrying lines as the
// prefilled message.
func ChatLink(number string, lines []string) string {
	text := url.QueryEscape(strings.Join(lines, "\n"))
	return "https://wa.me/" + number + "?text=" + strings.ReplaceAll(text, "+", "%20")
}

const (
	ProductImagesBucket      = "product-images"
	PaymentScreenshotsBucket = "payment-screenshots"
)

// Attachment is a file received from a client.
type Attachment struct {
	Filename string
	Body     io.Reader
}

type MediaStore interface {
	// Upload stores body as name inside bucket and returns its public URL.
	Upload(ctx context.Context, bucket, name string, body io.Reader) (string, error)
}
