/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package notification

import (
	"context"
	"net/http"
	"time"

	"github.com/blnkfinance/recon/config"
	"github.com/blnkfinance/recon/internal/request"
	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

const maxRetries = 3

// newBackOff is the retry schedule of a webhook delivery.
var newBackOff = func() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxElapsedTime = 10 * time.Second
	return b
}

type text struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Emoji bool   `json:"emoji,omitempty"`
}

type block struct {
	Type   string `json:"type"`
	Text   *text  `json:"text,omitempty"`
	Fields []text `json:"fields,omitempty"`
}

type slackMessage struct {
	Blocks []block `json:"blocks"`
}

func slackPayload(systemError error, at time.Time) slackMessage {
	return slackMessage{Blocks: []block{
		{Type: "header", Text: &text{Type: "plain_text", Text: "Error From Recon 🐞", Emoji: true}},
		{Type: "section", Fields: []text{{Type: "mrkdwn", Text: "*Error:*\n" + systemError.Error()}}},
		{Type: "section", Fields: []text{{Type: "mrkdwn", Text: "*Time:*\n" + at.Format(time.RFC822)}}},
	}}
}

// SlackNotification posts an error message to a Slack webhook. Failed
// deliveries are retried with exponential backoff; client errors (4xx) are
// not retried.
//
// Parameters:
// - ctx context.Context: Stops retrying when cancelled.
// - webhookURL string: The Slack incoming webhook.
// - systemError error: The error to be reported.
//
// Returns:
// - error: The last delivery error once retries are exhausted.
func SlackNotification(ctx context.Context, webhookURL string, systemError error) error {
	data := slackPayload(systemError, time.Now())

	operation := func() error {
		payload, err := request.ToJsonReq(&data)
		if err != nil {
			return backoff.Permanent(err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, payload)
		if err != nil {
			return backoff.Permanent(err)
		}
		_, err = request.Call(req, nil)
		if statusErr, ok := err.(*request.StatusError); ok && statusErr.StatusCode < http.StatusInternalServerError {
			return backoff.Permanent(err)
		}
		return err
	}

	return backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(newBackOff(), maxRetries), ctx))
}

// NotifyError logs systemError and, if a Slack webhook is configured, sends
// it there. It returns once the notification is delivered or given up on.
func NotifyError(ctx context.Context, systemError error) {
	logrus.Error(systemError)

	conf, err := config.Fetch()
	if err != nil {
		logrus.WithError(err).Warn("notification skipped")
		return
	}
	if conf.Notification.Slack.WebhookUrl == "" {
		return
	}
	if err := SlackNotification(ctx, conf.Notification.Slack.WebhookUrl, systemError); err != nil {
		logrus.WithError(err).Error("failed to send slack notification")
	}
}
