package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cronosflow/cronosflow/services/booking-service/internal/model"
)

// WhatsAppSender posts messages to a Z-API compatible WhatsApp gateway.
// Instance id and token come per message from the integration metadata, so
// reconnecting with new credentials takes effect immediately.
type WhatsAppSender struct {
	baseURL string
	http    *http.Client
}

func NewWhatsAppSender(baseURL string) *WhatsAppSender {
	return &WhatsAppSender{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

func (s *WhatsAppSender) ProviderID() string {
	return "whatsapp-zapi"
}

func (s *WhatsAppSender) Send(ctx context.Context, client model.Client, msg Message) error {
	if s.baseURL == "" {
		return errors.New("whatsapp gateway url not configured")
	}
	if strings.TrimSpace(client.Phone) == "" {
		return errors.New("client has no phone number")
	}
	instanceID := strings.TrimSpace(msg.Meta["instanceId"])
	token := strings.TrimSpace(msg.Meta["token"])
	if instanceID == "" || token == "" {
		return errors.New("whatsapp integration missing instanceId/token")
	}

	payload := map[string]string{
		"phone":   FormatPhone(client.Phone),
		"message": msg.Body,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/instances/%s/token/%s/send-messages", s.baseURL, instanceID, token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("whatsapp gateway returned %d", resp.StatusCode)
	}
	return nil
}

// FormatPhone strips formatting and prefixes the BR country code when the
// number doesn't carry one yet, e.g. (11) 99999-9999 -> 5511999999999.
func FormatPhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) <= 11 {
		return "55" + digits
	}
	return digits
}
