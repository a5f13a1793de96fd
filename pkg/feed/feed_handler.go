package feed

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/edtproxy/edtproxy/internal/utils"
	"github.com/edtproxy/edtproxy/pkg/ics"
)

// TokenValidator checks a presented bearer token for feed access.
type TokenValidator interface {
	Validate(token string) bool
}

// Handler serves cached feeds to token holders. Every request re-reads the
// cache file and applies the import annotation on the fly; nothing is ever
// written back, so request handling cannot race the fetch cycle.
type Handler struct {
	registry *Registry
	cache    *Cache
	tokens   TokenValidator
	clock    utils.Clock
}

func NewHandler(registry *Registry, cache *Cache, tokens TokenValidator, clock utils.Clock) *Handler {
	return &Handler{registry: registry, cache: cache, tokens: tokens, clock: clock}
}

func (h *Handler) GetFeed(w http.ResponseWriter, r *http.Request) {
	if !h.tokens.Validate(r.URL.Query().Get("token")) {
		log.Debugf("rejected feed request for %q: invalid token", mux.Vars(r)["section"])
		http.Error(w, "missing or invalid token", http.StatusUnauthorized)
		return
	}

	section, ok := h.registry.Resolve(mux.Vars(r)["section"])
	if !ok {
		http.Error(w, "unknown section", http.StatusNotFound)
		return
	}

	content, err := h.cache.Load(section.Name)
	if err != nil {
		if errors.Is(err, ErrNotCached) {
			http.Error(w, "feed not downloaded yet, retry later", http.StatusServiceUnavailable)
			return
		}
		log.Errorf("failed to read cached feed for %s: %v", section.Name, err)
		http.Error(w, "failed to read cached feed", http.StatusInternalServerError)
		return
	}

	annotated := ics.Annotate(content, ics.ImportNote(h.clock.Now()))

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.ics", section.Name))
	if _, err := w.Write(annotated); err != nil {
		log.Errorf("failed to write feed response for %s: %v", section.Name, err)
	}
}

func (h *Handler) ListSections(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.registry.Names()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
