package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultRecaptchaEndpoint = "https://www.google.com/recaptcha/api/siteverify"

var (
	ErrCaptchaFailed   = errors.New("notify: captcha verification failed")
	ErrCaptchaLowScore = errors.New("notify: captcha score below threshold")
)

// CaptchaVerifier checks a client-side challenge token.
type CaptchaVerifier interface {
	Verify(ctx context.Context, token, remoteIP string) error
}

// RecaptchaVerifier validates reCAPTCHA v3 tokens against Google's siteverify API.
type RecaptchaVerifier struct {
	secret   string
	minScore float64
	endpoint string
	client   *http.Client
}

type RecaptchaOption func(*RecaptchaVerifier)

func WithRecaptchaEndpoint(endpoint string) RecaptchaOption {
	return func(v *RecaptchaVerifier) {
		if endpoint != "" {
			v.endpoint = endpoint
		}
	}
}

func WithRecaptchaHTTPClient(client *http.Client) RecaptchaOption {
	return func(v *RecaptchaVerifier) {
		if client != nil {
			v.client = client
		}
	}
}

// NewRecaptchaVerifier returns nil when secret is empty.
func NewRecaptchaVerifier(secret string, minScore float64, opts ...RecaptchaOption) *RecaptchaVerifier {
	if strings.TrimSpace(secret) == "" {
		return nil
	}
	if minScore <= 0 {
		minScore = 0.5
	}
	v := &RecaptchaVerifier{
		secret:   secret,
		minScore: minScore,
		endpoint: defaultRecaptchaEndpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

type siteverifyResponse struct {
	Success    bool     `json:"success"`
	Score      float64  `json:"score"`
	Action     string   `json:"action"`
	ErrorCodes []string `json:"error-codes"`
}

func (v *RecaptchaVerifier) Verify(ctx context.Context, token, remoteIP string) error {
	if strings.TrimSpace(token) == "" {
		return fmt.Errorf("%w: missing token", ErrCaptchaFailed)
	}
	form := url.Values{}
	form.Set("secret", v.secret)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("notify: build siteverify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("notify: siteverify: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("notify: siteverify returned status %d", resp.StatusCode)
	}

	var out siteverifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("notify: decode siteverify: %w", err)
	}
	if !out.Success {
		return fmt.Errorf("%w: %s", ErrCaptchaFailed, strings.Join(out.ErrorCodes, ","))
	}
	if out.Score < v.minScore {
		return fmt.Errorf("%w: %.2f < %.2f", ErrCaptchaLowScore, out.Score, v.minScore)
	}
	return nil
}

var _ CaptchaVerifier = (*RecaptchaVerifier)(nil)
