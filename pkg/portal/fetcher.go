package portal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/edtproxy/edtproxy/internal/config"
	"github.com/edtproxy/edtproxy/internal/utils"
	"github.com/edtproxy/edtproxy/pkg/feed"
	"github.com/edtproxy/edtproxy/pkg/ics"
)

// ErrAuthFailed means the portal refused the configured credentials.
var ErrAuthFailed = errors.New("portal authentication failed")

// Fetcher runs one authenticate-then-download-all-sections pass against the
// portal. Failures never escape RunOnce: an authentication failure aborts the
// cycle keeping every stale cache file, and a per-section failure skips that
// section only. The background loop can therefore call RunOnce forever.
type Fetcher struct {
	client   Client
	registry *feed.Registry
	cache    *feed.Cache
	clock    utils.Clock
	cfg      config.Portal
}

func NewFetcher(client Client, registry *feed.Registry, cache *feed.Cache, clock utils.Clock, cfg config.Portal) *Fetcher {
	return &Fetcher{client: client, registry: registry, cache: cache, clock: clock, cfg: cfg}
}

// RunOnce performs a single fetch cycle. All outcomes are logged under a
// per-cycle correlation id; callers observe nothing else.
func (f *Fetcher) RunOnce(ctx context.Context) {
	logger := log.WithField("cycle", uuid.NewString())
	logger.Debug("starting fetch cycle")

	if err := f.login(ctx); err != nil {
		logger.Warnf("cycle aborted, keeping stale cache: %v", err)
		return
	}

	updated := 0
	for _, section := range f.registry.All() {
		if f.fetchSection(ctx, logger, section) {
			updated++
		}
	}
	logger.Infof("fetch cycle finished: %d/%d section(s) updated", updated, len(f.registry.All()))
}

// login establishes a session cookie with an initial GET, then posts the
// credentials. The portal answers a failed login with HTTP 200 and its HTML
// "connexion" page, so the body is inspected instead of the status alone.
func (f *Fetcher) login(ctx context.Context) error {
	if _, _, err := f.client.Get(ctx, f.cfg.LoginURL); err != nil {
		return fmt.Errorf("failed to reach login page: %w", err)
	}

	form := url.Values{
		"Username": {f.cfg.Username},
		"Password": {f.cfg.Password},
		"url":      {""},
		"login":    {""},
	}
	status, body, err := f.client.PostForm(ctx, f.cfg.LoginURL, form)
	if err != nil {
		return fmt.Errorf("failed to submit credentials: %w", err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("login returned status %d", status)
	}
	if isLoginPage(body) {
		return ErrAuthFailed
	}
	return nil
}

// fetchSection downloads, annotates and caches one section's feed. It
// reports whether the cache file was updated.
func (f *Fetcher) fetchSection(ctx context.Context, logger *log.Entry, section feed.Section) bool {
	status, body, err := f.client.Get(ctx, f.cfg.BaseURL+section.Suffix)
	if err != nil {
		logger.Errorf("failed to download section %s: %v", section.Name, err)
		return false
	}
	if status != http.StatusOK {
		logger.Errorf("section %s returned status %d", section.Name, status)
		return false
	}
	if isLoginPage(body) {
		// Soft failure: the portal dropped the session for this URL but
		// still answered 200. Keep the previous feed.
		logger.Warnf("section %s returned the login page, keeping previous feed", section.Name)
		return false
	}

	annotated := ics.Annotate(body, ics.ScrapNote(f.clock.Now()))
	if err := f.cache.Store(section.Name, annotated); err != nil {
		logger.Errorf("failed to cache section %s: %v", section.Name, err)
		return false
	}
	logger.Infof("updated feed for section %s (%d bytes)", section.Name, len(annotated))
	return true
}

// isLoginPage detects the portal's HTML login page. The "connexion" marker is
// specific to this portal and inherently fragile; it is kept as an explicit
// signature rather than generalized.
func isLoginPage(body []byte) bool {
	lower := bytes.ToLower(body)
	return bytes.Contains(lower, []byte("<html")) && bytes.Contains(lower, []byte("connexion"))
}
