package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/maxmarketing/backend/pkg/config"
)

const (
	sandboxBaseURL = "https://api.sandbox.paypal.com"
	liveBaseURL    = "https://api.paypal.com"
)

// Client is a minimal PayPal REST client covering billing subscriptions
// and webhook signature verification.
type Client struct {
	baseURL   string
	clientID  string
	secret    string
	planID    string
	webhookID string
	brandName string
	domain    string
	httpc     *http.Client
	log       *zap.SugaredLogger

	mu       sync.Mutex
	token    string
	tokenExp time.Time
}

func NewClient(cfg *config.Config, log *zap.SugaredLogger) *Client {
	base := sandboxBaseURL
	if cfg.PayPal.Live {
		base = liveBaseURL
	}
	return &Client{
		baseURL:   base,
		clientID:  cfg.PayPal.ClientID,
		secret:    cfg.PayPal.Secret,
		planID:    cfg.PayPal.PlanID,
		webhookID: cfg.PayPal.WebhookID,
		brandName: cfg.PayPal.BrandName,
		domain:    cfg.Domain,
		httpc:     &http.Client{Timeout: 15 * time.Second},
		log:       log,
	}
}

// accessToken returns a cached client-credentials token, refreshing it
// a minute before expiry.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && time.Now().Before(c.tokenExp.Add(-time.Minute)) {
		return c.token, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.clientID, c.secret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var out struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := c.do(req, &out); err != nil {
		return "", fmt.Errorf("paypal token: %w", err)
	}
	c.token = out.AccessToken
	c.tokenExp = time.Now().Add(time.Duration(out.ExpiresIn) * time.Second)
	return c.token, nil
}

// CreateSubscription starts a billing subscription on the configured
// plan and returns the approval URL the customer must be redirected to.
// The subscription stays APPROVAL_PENDING until approved; entitlement
// only changes once BILLING.SUBSCRIPTION.ACTIVATED arrives.
func (c *Client) CreateSubscription(ctx context.Context, userID, email string) (string, error) {
	payload := map[string]any{
		"plan_id":   c.planID,
		"custom_id": userID,
		"subscriber": map[string]any{
			"email_address": email,
		},
		"application_context": map[string]any{
			"brand_name":  c.brandName,
			"user_action": "SUBSCRIBE_NOW",
			"return_url":  c.domain + "/payment-success?provider=paypal",
			"cancel_url":  c.domain + "/payment-cancelled",
		},
	}
	var out struct {
		ID    string `json:"id"`
		Links []struct {
			Href string `json:"href"`
			Rel  string `json:"rel"`
		} `json:"links"`
	}
	if err := c.post(ctx, "/v1/billing/subscriptions", payload, &out); err != nil {
		return "", fmt.Errorf("paypal create subscription: %w", err)
	}
	for _, link := range out.Links {
		if link.Rel == "approve" {
			return link.Href, nil
		}
	}
	return "", fmt.Errorf("paypal subscription %s has no approve link", out.ID)
}

// VerifyWebhook asks PayPal whether a delivery's signature headers match
// the configured webhook.
func (c *Client) VerifyWebhook(ctx context.Context, body []byte, header http.Header) (bool, error) {
	payload := map[string]any{
		"auth_algo":         header.Get("Paypal-Auth-Algo"),
		"cert_url":          header.Get("Paypal-Cert-Url"),
		"transmission_id":   header.Get("Paypal-Transmission-Id"),
		"transmission_sig":  header.Get("Paypal-Transmission-Sig"),
		"transmission_time": header.Get("Paypal-Transmission-Time"),
		"webhook_id":        c.webhookID,
		"webhook_event":     json.RawMessage(body),
	}
	var out struct {
		VerificationStatus string `json:"verification_status"`
	}
	if err := c.post(ctx, "/v1/notifications/verify-webhook-signature", payload, &out); err != nil {
		return false, fmt.Errorf("paypal verify webhook: %w", err)
	}
	return out.VerificationStatus == "SUCCESS", nil
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s: status %d: %s", req.Method, req.URL.Path, resp.StatusCode, body)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(body, out)
}
