package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

// Notifier posts run outcomes to a Slack incoming webhook. Delivery is
// best effort: notification is observability, not a correctness
// dependency, so failures are logged and swallowed and never retried.
type Notifier struct {
	webhookURL string
	client     *http.Client
}

// NewNotifier creates a notifier. An empty webhook URL disables it.
func NewNotifier(webhookURL string, client *http.Client) *Notifier {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Notifier{webhookURL: webhookURL, client: client}
}

// Notify sends one message. It never returns an error.
func (n *Notifier) Notify(text string) {
	if n.webhookURL == "" {
		return
	}

	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		log.Printf("notify: marshaling payload: %v", err)
		return
	}

	resp, err := n.client.Post(n.webhookURL, "application/json", bytes.NewReader(payload))
	if err != nil {
		log.Printf("notify: webhook unreachable: %v", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Printf("notify: webhook returned %d", resp.StatusCode)
	}
}

// NotifyNewPost announces a published post with its public link.
func (n *Notifier) NotifyNewPost(post *PostRecord, siteBaseURL string) {
	url := fmt.Sprintf("%s/blog/%s", siteBaseURL, post.Slug)
	n.Notify(fmt.Sprintf("New blog post created from YouTube upload: *%s*\n%s\nVideo: %s", post.Title, url, post.YouTubeURL))
}
