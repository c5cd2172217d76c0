// Package vehicleapi talks to a remote vehicle detection service (Baidu AI
// image-classify vehicle_detect) and turns its answer into an
// alignment.DetectionResult.
//
// Access tokens come from an OAuth2 client-credentials exchange and are
// reused until they expire. Calls are rate limited, and results are cached by
// the SHA-256 of the image bytes so the same capture is never sent twice
// within the cache TTL.
package vehicleapi

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"

	"github.com/ironsheep/frame-guide-mcp/internal/alignment"
	"github.com/ironsheep/frame-guide-mcp/internal/metrics"
)

var (
	// ErrNotConfigured means the API key or secret is missing.
	ErrNotConfigured = errors.New("vehicle api credentials not configured")

	// ErrUpstream covers token failures, transport errors, non-2xx statuses and
	// error codes reported in the response body.
	ErrUpstream = errors.New("vehicle api request failed")

	// ErrMalformedResponse means the body could not be decoded.
	ErrMalformedResponse = errors.New("malformed vehicle api response")
)

const (
	tokenPath  = "/oauth/2.0/token"
	detectPath = "/rest/2.0/image-classify/v1/vehicle_detect"

	// vehicleTypeCar is the only vehicle class the guide frames.
	vehicleTypeCar = "car"

	maxErrorBody = 512
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Config holds connection settings.
type Config struct {
	APIKey        string
	SecretKey     string
	BaseURL       string
	Timeout       time.Duration
	RatePerSecond float64
	Burst         int
	CacheTTL      time.Duration
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client used for both token and detection
// requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger. The default discards output.
func WithLogger(log logrus.FieldLogger) Option {
	return func(c *Client) { c.log = log }
}

// WithMetrics records lookup outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// Client is safe for concurrent use.
type Client struct {
	cfg     Config
	http    *http.Client
	tokens  oauth2.TokenSource
	limiter *rate.Limiter
	cache   *cache.Cache
	log     logrus.FieldLogger
	metrics *metrics.Metrics
}

// New builds a client. Missing credentials are not an error here; Detect
// reports ErrNotConfigured instead so the server can still start.
func New(cfg Config, opts ...Option) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = 2
	}
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	silent := logrus.New()
	silent.SetOutput(io.Discard)

	c := &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst),
		log:     silent,
	}
	for _, opt := range opts {
		opt(c)
	}

	if cfg.CacheTTL > 0 {
		c.cache = cache.New(cfg.CacheTTL, cfg.CacheTTL*2)
	}

	cc := clientcredentials.Config{
		ClientID:     cfg.APIKey,
		ClientSecret: cfg.SecretKey,
		TokenURL:     cfg.BaseURL + tokenPath,
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	c.tokens = cc.TokenSource(context.WithValue(context.Background(), oauth2.HTTPClient, c.http))

	return c
}

// Configured reports whether credentials are present.
func (c *Client) Configured() bool {
	return c.cfg.APIKey != "" && c.cfg.SecretKey != ""
}

type location struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type vehicle struct {
	Type        string   `json:"type"`
	Probability *float64 `json:"probability"`
	Score       *float64 `json:"score"`
	Location    location `json:"location"`
}

type detectResponse struct {
	ErrorCode   int       `json:"error_code"`
	ErrorMsg    string    `json:"error_msg"`
	LogID       uint64    `json:"log_id"`
	VehicleInfo []vehicle `json:"vehicle_info"`
}

// Detect sends an encoded image (JPEG or PNG bytes) to the remote detector.
// width and height are the pixel size of that image and are used to normalize
// the returned location.
//
// A response without any car is a valid result with HasVehicle false. Every
// failure is returned as an error wrapping one of the package sentinels.
func (c *Client) Detect(ctx context.Context, image []byte, width, height int) (alignment.DetectionResult, error) {
	if !c.Configured() {
		return alignment.DetectionResult{}, ErrNotConfigured
	}
	if width <= 0 || height <= 0 {
		return alignment.DetectionResult{}, fmt.Errorf("invalid image size %dx%d", width, height)
	}

	sum := sha256.Sum256(image)
	key := hex.EncodeToString(sum[:])
	log := c.log.WithField("image_sha256", key[:12])

	if c.cache != nil {
		if cached, ok := c.cache.Get(key); ok {
			if det, ok := cached.(alignment.DetectionResult); ok {
				log.Debug("vehicle api cache hit")
				c.metrics.ObserveRemote(metrics.OutcomeCached)
				return det, nil
			}
		}
	}

	det, err := c.detect(ctx, image, width, height)
	if err != nil {
		log.WithError(err).Warn("vehicle api lookup failed")
		c.metrics.ObserveRemote(metrics.OutcomeError)
		return alignment.DetectionResult{}, err
	}

	if det.HasVehicle {
		c.metrics.ObserveRemote(metrics.OutcomeDetected)
	} else {
		c.metrics.ObserveRemote(metrics.OutcomeNotDetected)
	}
	log.WithField("has_vehicle", det.HasVehicle).Debug("vehicle api lookup done")

	if c.cache != nil {
		c.cache.Set(key, det, cache.DefaultExpiration)
	}
	return det, nil
}

func (c *Client) detect(ctx context.Context, image []byte, width, height int) (alignment.DetectionResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return alignment.DetectionResult{}, fmt.Errorf("%w: rate limiter: %w", ErrUpstream, err)
	}

	token, err := c.tokens.Token()
	if err != nil {
		return alignment.DetectionResult{}, fmt.Errorf("%w: access token: %w", ErrUpstream, err)
	}

	form := url.Values{
		"image":     {base64.StdEncoding.EncodeToString(image)},
		"top_num":   {"1"},
		"baike_num": {"0"},
	}
	endpoint := c.cfg.BaseURL + detectPath + "?" + url.Values{"access_token": {token.AccessToken}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return alignment.DetectionResult{}, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return alignment.DetectionResult{}, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return alignment.DetectionResult{}, fmt.Errorf("%w: reading body: %w", ErrUpstream, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return alignment.DetectionResult{}, fmt.Errorf("%w: status %d: %s", ErrUpstream, resp.StatusCode, truncate(body))
	}

	var parsed detectResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return alignment.DetectionResult{}, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	if parsed.ErrorCode != 0 {
		return alignment.DetectionResult{}, fmt.Errorf("%w: error %d: %s", ErrUpstream, parsed.ErrorCode, parsed.ErrorMsg)
	}

	return toDetection(parsed.VehicleInfo, width, height), nil
}

// toDetection keeps the largest car and normalizes its pixel location.
func toDetection(vehicles []vehicle, width, height int) alignment.DetectionResult {
	var best *vehicle
	bestArea := -1.0
	for i := range vehicles {
		v := &vehicles[i]
		if v.Type != vehicleTypeCar {
			continue
		}
		if area := v.Location.Width * v.Location.Height; area > bestArea {
			best, bestArea = v, area
		}
	}
	if best == nil {
		return alignment.DetectionResult{}
	}

	w, h := float64(width), float64(height)
	det := alignment.DetectionResult{
		HasVehicle: true,
		BBox: &alignment.Box{
			X:      best.Location.Left / w,
			Y:      best.Location.Top / h,
			Width:  best.Location.Width / w,
			Height: best.Location.Height / h,
		},
	}
	switch {
	case best.Probability != nil:
		det.Score = best.Probability
	case best.Score != nil:
		det.Score = best.Score
	}
	return det
}

func truncate(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorBody {
		return s[:maxErrorBody] + "..."
	}
	return s
}
