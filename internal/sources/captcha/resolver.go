// Package captcha abstracts the external CAPTCHA-solving capability. The
// framework depends only on the Resolver contract; the solving provider's
// wire protocol stays behind it.
package captcha

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	api2captcha "github.com/2captcha/2captcha-go"

	"multascan/internal/config"
	"multascan/internal/logging"
)

// Version selects the reCAPTCHA flavor of a challenge
type Version string

const (
	V2 Version = "v2"
	V3 Version = "v3"
)

// Challenge describes one CAPTCHA to resolve. It is a value object; the
// resulting Solution is consumed exactly once by the requesting adapter.
type Challenge struct {
	SiteKey   string
	PageURL   string
	Version   Version
	Action    string
	MinScore  float64
	Invisible bool
}

// Solution is the provider's answer to a Challenge
type Solution struct {
	Token      string
	ProviderID string
}

// Resolver failure classes. Adapters map these onto their failure taxonomy.
var (
	ErrMissingSiteKey    = errors.New("challenge descriptor has no site key")
	ErrAutoSolveDisabled = errors.New("captcha auto-solve is disabled")
	ErrTimeout           = errors.New("captcha provider timed out")
)

// Resolver resolves CAPTCHA challenges through an external provider. Resolve
// is long-latency (seconds to tens of seconds) and must be awaited; the
// context caps the wait.
type Resolver interface {
	Resolve(ctx context.Context, challenge Challenge) (Solution, error)
	IsHealthy() bool
}

// TwoCaptchaResolver implements Resolver on the 2CAPTCHA service
type TwoCaptchaResolver struct {
	config *config.Config
	client *api2captcha.Client
	logger logging.Logger
}

// NewTwoCaptchaResolver creates a new 2CAPTCHA-backed resolver
func NewTwoCaptchaResolver(cfg *config.Config) *TwoCaptchaResolver {
	logger := logging.GetGlobalLogger().WithField("component", "2captcha")

	if cfg.Scraper.Captcha.APIKey == "" {
		logger.Warn("2CAPTCHA API key not configured - captcha solving will be disabled")
	} else {
		logger.Info("2CAPTCHA resolver initialized", map[string]interface{}{
			"api_key_length": len(cfg.Scraper.Captcha.APIKey),
		})
	}

	client := api2captcha.NewClient(cfg.Scraper.Captcha.APIKey)
	client.DefaultTimeout = int(cfg.Scraper.Captcha.Timeout.Seconds())
	client.RecaptchaTimeout = int(cfg.Scraper.Captcha.Timeout.Seconds())
	client.PollingInterval = 5 // check every 5 seconds

	return &TwoCaptchaResolver{
		config: cfg,
		client: client,
		logger: logger,
	}
}

// Resolve submits the challenge to 2CAPTCHA and blocks until a solution
// token is available, the provider fails, or the wait is cancelled
func (r *TwoCaptchaResolver) Resolve(ctx context.Context, challenge Challenge) (Solution, error) {
	if challenge.SiteKey == "" {
		return Solution{}, ErrMissingSiteKey
	}
	if !r.config.Scraper.Captcha.EnableAutoSolve {
		return Solution{}, ErrAutoSolveDisabled
	}
	if r.config.Scraper.Captcha.APIKey == "" {
		return Solution{}, fmt.Errorf("2CAPTCHA API key not configured")
	}

	r.logger.Info("Starting reCAPTCHA solving", map[string]interface{}{
		"site_key": challenge.SiteKey,
		"page_url": challenge.PageURL,
		"version":  string(challenge.Version),
	})

	task := api2captcha.ReCaptcha{
		SiteKey:   challenge.SiteKey,
		Url:       challenge.PageURL,
		Invisible: challenge.Invisible,
	}
	if challenge.Version == V3 {
		task.Version = "v3"
		task.Action = challenge.Action
		task.Score = challenge.MinScore
	}

	type solveResult struct {
		code string
		id   string
		err  error
	}

	startTime := time.Now()
	done := make(chan solveResult, 1)
	go func() {
		code, id, err := r.client.Solve(task.ToRequest())
		done <- solveResult{code: code, id: id, err: err}
	}()

	select {
	case <-ctx.Done():
		return Solution{}, fmt.Errorf("%w: %v", ErrTimeout, ctx.Err())
	case res := <-done:
		if res.err != nil {
			r.logger.Error("Failed to solve reCAPTCHA", map[string]interface{}{
				"site_key": challenge.SiteKey,
				"page_url": challenge.PageURL,
				"error":    res.err.Error(),
			})
			if strings.Contains(strings.ToLower(res.err.Error()), "timeout") {
				return Solution{}, fmt.Errorf("%w: %v", ErrTimeout, res.err)
			}
			return Solution{}, fmt.Errorf("failed to solve reCAPTCHA: %w", res.err)
		}

		r.logger.Info("Successfully solved reCAPTCHA", map[string]interface{}{
			"site_key":     challenge.SiteKey,
			"solving_time": time.Since(startTime),
		})
		return Solution{Token: res.code, ProviderID: res.id}, nil
	}
}

// IsHealthy checks if the 2CAPTCHA service is reachable with the configured key
func (r *TwoCaptchaResolver) IsHealthy() bool {
	if r.config.Scraper.Captcha.APIKey == "" {
		r.logger.Debug("2CAPTCHA health check failed: no API key configured")
		return false
	}

	balance, err := r.client.GetBalance()
	if err != nil {
		r.logger.Error("2CAPTCHA health check failed", map[string]interface{}{
			"error": err.Error(),
		})
		return false
	}

	r.logger.Debug("2CAPTCHA health check successful", map[string]interface{}{
		"balance": balance,
	})
	return balance >= 0
}
