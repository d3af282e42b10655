package services

import (
	"context"
	"log"

	"firebase.google.com/go/messaging"

	"tolkBack/internal/models"
)

// FCMSender delivers a push notification to a single device token.
type FCMSender struct {
	Client *messaging.Client
}

func NewFCMSender(client *messaging.Client) *FCMSender {
	return &FCMSender{Client: client}
}

func (s *FCMSender) Send(ctx context.Context, token string, n models.PushNotification) error {
	if s.Client == nil {
		return nil
	}
	data := map[string]string{
		"job_id": itoa(n.JobID),
		"sound":  n.Sound,
	}
	for k, v := range n.Data {
		data[k] = v
	}

	message := &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: n.Title,
			Body:  n.Body,
		},
		Data: data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				ChannelID: "booking_channel",
				Sound:     n.Sound,
			},
		},
		APNS: &messaging.APNSConfig{
			Headers: map[string]string{
				"apns-priority": "10",
			},
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Alert: &messaging.ApsAlert{
						Title: n.Title,
						Body:  n.Body,
					},
					Sound: n.Sound + ".mp3",
				},
			},
		},
	}

	response, err := s.Client.Send(ctx, message)
	if err != nil {
		log.Printf("Ошибка при отправке уведомления: %v", err)
		return err
	}

	log.Printf("Отправка уведомления выполнена успешно: %s", response)
	return nil
}
