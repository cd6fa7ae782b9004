package email

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"woodstore/pkg/domain/model"
)

const defaultBaseURL = "https://api.resend.com"

type Config struct {
	APIKey string
	// BaseURL overrides the Resend API address.
	BaseURL    string
	HTTPClient *http.Client
}

func NewResendMailer(cfg Config) model.Mailer {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &resendMailer{cfg: cfg}
}

type resendMailer struct {
	cfg Config
}

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

type sendResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

func (m *resendMailer) Send(ctx context.Context, mail model.Mail) error {
	body, err := json.Marshal(sendRequest{
		From:    mail.From,
		To:      mail.To,
		Subject: mail.Subject,
		HTML:    mail.HTML,
	})
	if err != nil {
		return errors.Wrap(err, "encode email")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.BaseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "build email request")
	}
	req.Header.Set("Authorization", "Bearer "+m.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.cfg.HTTPClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "send email")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "read email response")
	}
	var result sendResponse
	_ = json.Unmarshal(raw, &result)

	if resp.StatusCode >= http.StatusBadRequest {
		message := result.Message
		if message == "" {
			message = string(raw)
		}
		return errors.Errorf("resend responded %d: %s", resp.StatusCode, message)
	}

	log.WithFields(log.Fields{"id": result.ID, "subject": mail.Subject}).Info("email sent")
	return nil
}
