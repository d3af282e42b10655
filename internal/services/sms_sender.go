package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// MobizonSender sends SMS through the Mobizon HTTP form gateway.
type MobizonSender struct {
	Endpoint string
	APIKey   string
}

func (s *MobizonSender) Send(ctx context.Context, phone, text string) error {
	data := url.Values{}
	data.Set("apiKey", s.APIKey)
	data.Set("recipient", phone)
	data.Set("text", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.Endpoint,
		strings.NewReader(data.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("ошибка при отправке запроса: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("не удалось прочитать ответ Mobizon: %v", err)
	}

	var result struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	}

	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("не удалось распарсить ответ Mobizon: %v", err)
	}

	if result.Code != 0 {
		return fmt.Errorf("ошибка Mobizon: %s (код %d)", result.Message, result.Code)
	}

	return nil
}
