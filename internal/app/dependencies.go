package app

import (
	"github.com/edtproxy/edtproxy/internal/config"
	"github.com/edtproxy/edtproxy/internal/utils"
	"github.com/edtproxy/edtproxy/pkg/feed"
	"github.com/edtproxy/edtproxy/pkg/portal"
	"github.com/edtproxy/edtproxy/pkg/token"
)

// Dependencies holds all services and handlers for the application.
type Dependencies struct {
	Clock utils.Clock

	TokenStore   *token.Store
	TokenHandler *token.Handler

	Registry    *feed.Registry
	Cache       *feed.Cache
	FeedHandler *feed.Handler

	PortalClient portal.Client
	Fetcher      *portal.Fetcher
}

// BuildDependencies initializes and wires all application services and handlers.
func BuildDependencies(cfg config.Application) (*Dependencies, error) {
	deps := &Dependencies{}
	deps.Clock = &utils.SystemClock{}

	tokenStore, err := token.NewStore(cfg.TokenFile)
	if err != nil {
		return nil, err
	}
	deps.TokenStore = tokenStore
	deps.TokenHandler = token.NewHandler(tokenStore, cfg.AdminSecret)

	deps.Registry = feed.NewRegistry(cfg.Sections)
	cache, err := feed.NewCache(cfg.CacheDir)
	if err != nil {
		return nil, err
	}
	deps.Cache = cache
	deps.FeedHandler = feed.NewHandler(deps.Registry, cache, tokenStore, deps.Clock)

	client, err := portal.NewClient(cfg.Portal.LoginURL, cfg.Portal.Timeout)
	if err != nil {
		return nil, err
	}
	deps.PortalClient = client
	deps.Fetcher = portal.NewFetcher(client, deps.Registry, cache, deps.Clock, cfg.Portal)

	return deps, nil
}
