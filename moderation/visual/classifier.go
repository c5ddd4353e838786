// Package visual adapts an external visual-content classification service
// into an explicit/not-explicit verdict. Classification failures never block
// content: the adapter fails open with a reason code identifying the failure.
package visual

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/carlmjohnson/versioninfo"

	"github.com/vaifllc/youyesyou-core/util"
)

// Per-category score thresholds; a sub-score above its threshold marks the
// image explicit.
type Thresholds struct {
	SexualActivity float64
	SexualDisplay  float64
	Erotica        float64
	Suggestive     float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		SexualActivity: 0.5,
		SexualDisplay:  0.3,
		Erotica:        0.4,
		Suggestive:     0.7,
	}
}

// Result reason codes for classification failures (fail-open).
const (
	ReasonNotConfigured  = "provider_not_configured"
	ReasonTransportError = "provider_transport_error"
	// HTTP failures carry the status code, eg "provider_http_503"
	reasonHTTPPrefix = "provider_http_"
)

type Result struct {
	IsExplicit bool     `json:"isExplicit"`
	Score      float64  `json:"score"`
	Reasons    []string `json:"reasons,omitempty"`
}

type Client struct {
	Client     *http.Client
	Logger     *slog.Logger
	Endpoint   string
	APIUser    string
	APISecret  string
	Thresholds Thresholds
}

func NewClient(logger *slog.Logger, endpoint, apiUser, apiSecret string) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		Client:     util.RobustHTTPClient(),
		Logger:     logger,
		Endpoint:   endpoint,
		APIUser:    apiUser,
		APISecret:  apiSecret,
		Thresholds: DefaultThresholds(),
	}
}

// classifier response schema (nudity sub-scores per category)
type classifierResp struct {
	Status string           `json:"status"`
	Nudity classifierScores `json:"nudity"`
}

type classifierScores struct {
	SexualActivity float64 `json:"sexual_activity"`
	SexualDisplay  float64 `json:"sexual_display"`
	Erotica        float64 `json:"erotica"`
	Suggestive     float64 `json:"suggestive"`
}

// Evaluate scores an image URL against the per-category thresholds. It never
// returns an error: when the classifier is not configured or unreachable, the
// result is non-explicit with a reason code describing the failure mode.
func (c *Client) Evaluate(ctx context.Context, imageURL string) Result {
	if c.Endpoint == "" || c.APISecret == "" {
		return Result{Reasons: []string{ReasonNotConfigured}}
	}

	q := url.Values{}
	q.Set("models", "nudity-2.0")
	q.Set("url", imageURL)
	q.Set("api_user", c.APIUser)
	q.Set("api_secret", c.APISecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Endpoint+"?"+q.Encode(), nil)
	if err != nil {
		c.Logger.Error("building classifier request", "err", err)
		return Result{Reasons: []string{ReasonTransportError}}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "youyesyou-core/"+versioninfo.Short())

	start := time.Now()
	res, err := c.Client.Do(req)
	classifierAPIDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		c.Logger.Warn("image classifier unreachable", "err", err, "image", imageURL)
		classifierAPICount.WithLabelValues("error").Inc()
		return Result{Reasons: []string{ReasonTransportError}}
	}
	defer res.Body.Close()

	classifierAPICount.WithLabelValues(fmt.Sprint(res.StatusCode)).Inc()
	if res.StatusCode != 200 {
		c.Logger.Warn("image classifier request failed", "status", res.StatusCode, "image", imageURL)
		return Result{Reasons: []string{fmt.Sprintf("%s%d", reasonHTTPPrefix, res.StatusCode)}}
	}

	respBytes, err := io.ReadAll(res.Body)
	if err != nil {
		c.Logger.Warn("reading classifier response", "err", err)
		return Result{Reasons: []string{ReasonTransportError}}
	}

	var respObj classifierResp
	if err := json.Unmarshal(respBytes, &respObj); err != nil {
		c.Logger.Warn("parsing classifier response", "err", err)
		return Result{Reasons: []string{ReasonTransportError}}
	}

	return c.summarize(respObj.Nudity)
}

// maps the four sub-scores against their thresholds: explicit if ANY sub-score
// exceeds its threshold, score is the max of triggered sub-scores
func (c *Client) summarize(scores classifierScores) Result {
	checks := []struct {
		name      string
		score     float64
		threshold float64
	}{
		{"sexual_activity", scores.SexualActivity, c.Thresholds.SexualActivity},
		{"sexual_display", scores.SexualDisplay, c.Thresholds.SexualDisplay},
		{"erotica", scores.Erotica, c.Thresholds.Erotica},
		{"suggestive", scores.Suggestive, c.Thresholds.Suggestive},
	}

	var out Result
	var maxAny float64
	for _, chk := range checks {
		if chk.score > maxAny {
			maxAny = chk.score
		}
		if chk.score > chk.threshold {
			out.IsExplicit = true
			out.Reasons = append(out.Reasons, chk.name)
			if chk.score > out.Score {
				out.Score = chk.score
			}
		}
	}
	if !out.IsExplicit {
		out.Score = maxAny
	}
	return out
}
