package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dealmungchi/freegameworker/internal/render"
	"github.com/dealmungchi/freegameworker/logger"
	apperrors "github.com/dealmungchi/freegameworker/pkg/errors"

	"golang.org/x/time/rate"
)

const (
	// ClaimPromptText is posted after each announcement when the claim prompt is enabled
	ClaimPromptText = "✅ React if you claimed this game!"
	claimEmoji      = "✅"

	maxTitleLength       = 256
	maxDescriptionLength = 4096
)

// DiscordPublisher posts notifications to a channel through the Discord REST API
type DiscordPublisher struct {
	apiBase     string
	token       string
	channelID   string
	claimPrompt bool
	client      *http.Client
	limiter     *rate.Limiter
}

// DiscordOption customizes a DiscordPublisher
type DiscordOption func(*DiscordPublisher)

// WithClaimPrompt toggles the secondary claim prompt message
func WithClaimPrompt(enabled bool) DiscordOption {
	return func(p *DiscordPublisher) {
		p.claimPrompt = enabled
	}
}

// WithRateLimit overrides the send pacing
func WithRateLimit(limit rate.Limit, burst int) DiscordOption {
	return func(p *DiscordPublisher) {
		p.limiter = rate.NewLimiter(limit, burst)
	}
}

// WithHTTPClient replaces the HTTP client
func WithHTTPClient(client *http.Client) DiscordOption {
	return func(p *DiscordPublisher) {
		p.client = client
	}
}

// NewDiscordPublisher creates a publisher for one channel. Sends are paced to
// stay under Discord's per-channel limit of five messages every five seconds.
func NewDiscordPublisher(apiBase, token, channelID string, opts ...DiscordOption) *DiscordPublisher {
	p := &DiscordPublisher{
		apiBase:     strings.TrimRight(apiBase, "/"),
		token:       token,
		channelID:   channelID,
		claimPrompt: true,
		client:      &http.Client{Timeout: 10 * time.Second},
		limiter:     rate.NewLimiter(rate.Every(time.Second), 5),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type discordMessagePayload struct {
	Content         string                 `json:"content,omitempty"`
	Embeds          []discordEmbed         `json:"embeds,omitempty"`
	AllowedMentions discordAllowedMentions `json:"allowed_mentions"`
}

type discordAllowedMentions struct {
	Parse []string `json:"parse"`
}

type discordEmbedImage struct {
	URL string `json:"url"`
}

type discordEmbedAuthor struct {
	Name    string `json:"name"`
	URL     string `json:"url,omitempty"`
	IconURL string `json:"icon_url,omitempty"`
}

type discordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type discordEmbedFooter struct {
	Text string `json:"text,omitempty"`
}

type discordEmbed struct {
	Title       string              `json:"title,omitempty"`
	Description string              `json:"description,omitempty"`
	URL         string              `json:"url,omitempty"`
	Color       int                 `json:"color,omitempty"`
	Image       *discordEmbedImage  `json:"image,omitempty"`
	Author      *discordEmbedAuthor `json:"author,omitempty"`
	Fields      []discordEmbedField `json:"fields,omitempty"`
	Footer      *discordEmbedFooter `json:"footer,omitempty"`
}

type discordMessageResponse struct {
	ID        string `json:"id"`
	ChannelID string `json:"channel_id"`
}

type discordRateLimitResponse struct {
	Message    string  `json:"message"`
	RetryAfter float64 `json:"retry_after"`
}

// Send posts the notification as one message with one embed per card.
// The claim prompt that follows is best-effort and never fails the send.
func (p *DiscordPublisher) Send(ctx context.Context, n render.Notification) error {
	payload := discordMessagePayload{
		Embeds:          toEmbeds(n.Cards),
		AllowedMentions: discordAllowedMentions{Parse: []string{}},
	}
	if n.Mention {
		payload.Content = "@everyone"
		payload.AllowedMentions.Parse = []string{"everyone"}
	}

	messageID, err := p.postMessage(ctx, payload)
	if err != nil {
		return err
	}

	log := logger.ForPublisher()
	log.Info().
		Str("message_id", messageID).
		Strs("offers", n.OfferIDs).
		Msg("Posted notification")

	if p.claimPrompt {
		if err := p.sendClaimPrompt(ctx); err != nil {
			log.Warn().Err(err).Strs("offers", n.OfferIDs).Msg("Claim prompt failed")
		}
	}
	return nil
}

func (p *DiscordPublisher) sendClaimPrompt(ctx context.Context) error {
	messageID, err := p.postMessage(ctx, discordMessagePayload{
		Content:         ClaimPromptText,
		AllowedMentions: discordAllowedMentions{Parse: []string{}},
	})
	if err != nil {
		return err
	}
	if messageID == "" {
		return apperrors.NewPublish("discord", "claim prompt response carried no message id", nil)
	}

	endpoint := fmt.Sprintf("%s/channels/%s/messages/%s/reactions/%s/@me",
		p.apiBase, p.channelID, messageID, url.PathEscape(claimEmoji))
	resp, err := p.do(ctx, http.MethodPut, endpoint, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return p.statusError(resp, "add reaction")
	}
	return nil
}

func (p *DiscordPublisher) postMessage(ctx context.Context, payload discordMessagePayload) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", apperrors.NewPublish("discord", "failed to encode message", err)
	}

	endpoint := fmt.Sprintf("%s/channels/%s/messages", p.apiBase, p.channelID)
	resp, err := p.do(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", p.statusError(resp, "post message")
	}

	var msg discordMessageResponse
	if err := json.NewDecoder(resp.Body).Decode(&msg); err != nil && err != io.EOF {
		return "", apperrors.NewPublish("discord", "failed to decode message response", err)
	}
	return msg.ID, nil
}

func (p *DiscordPublisher) do(ctx context.Context, method, endpoint string, body []byte) (*http.Response, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, apperrors.NewPublish("discord", "rate limiter wait", err)
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, apperrors.NewPublish("discord", "failed to create request", err)
	}
	req.Header.Set("Authorization", "Bot "+p.token)
	req.Header.Set("User-Agent", "DiscordBot (https://github.com/dealmungchi/freegameworker, 1.0)")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, apperrors.NewPublish("discord", method+" "+endpoint, err)
	}
	return resp, nil
}

// statusError turns a non-2xx answer into an error. A 429 keeps the retry hint.
func (p *DiscordPublisher) statusError(resp *http.Response, action string) error {
	bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := resp.Header.Get("Retry-After")
		var rl discordRateLimitResponse
		if json.Unmarshal(bodyBytes, &rl) == nil && rl.RetryAfter > 0 {
			retryAfter = strconv.FormatFloat(rl.RetryAfter, 'f', -1, 64) + "s"
		}
		return apperrors.NewRateLimit("discord", retryAfter)
	}

	return apperrors.NewPublish("discord",
		fmt.Sprintf("%s failed: %s, body: %s", action, resp.Status, strings.TrimSpace(string(bodyBytes))), nil)
}

func (p *DiscordPublisher) Close() error {
	p.client.CloseIdleConnections()
	return nil
}

func toEmbeds(cards []render.Card) []discordEmbed {
	embeds := make([]discordEmbed, 0, len(cards))
	for _, c := range cards {
		e := discordEmbed{
			Title:       clip(c.Title, maxTitleLength),
			Description: clip(c.Description, maxDescriptionLength),
			URL:         c.URL,
			Color:       c.Color,
		}
		if c.Image != "" {
			e.Image = &discordEmbedImage{URL: c.Image}
		}
		if c.Author != nil {
			e.Author = &discordEmbedAuthor{Name: c.Author.Name, URL: c.Author.URL, IconURL: c.Author.IconURL}
		}
		for _, f := range c.Fields {
			e.Fields = append(e.Fields, discordEmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
		}
		if c.Footer != "" {
			e.Footer = &discordEmbedFooter{Text: c.Footer}
		}
		embeds = append(embeds, e)
	}
	return embeds
}

func clip(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
