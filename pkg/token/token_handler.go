package token

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type TokenDTO struct {
	Owner string `json:"owner"`
	Token string `json:"token"`
}

// Handler exposes the admin surface of the token store. Every operation
// requires the static admin secret as a bearer credential.
type Handler struct {
	store       *Store
	adminSecret string
}

func NewHandler(store *Store, adminSecret string) *Handler {
	return &Handler{store: store, adminSecret: adminSecret}
}

func (h *Handler) CreateToken(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if !h.authorized(r) {
		http.Error(w, "invalid admin credentials", http.StatusUnauthorized)
		return
	}

	var dto TokenDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if dto.Owner == "" {
		http.Error(w, "owner must not be empty", http.StatusBadRequest)
		return
	}

	generated, err := h.store.Generate(dto.Owner)
	if err != nil {
		log.Errorf("failed to generate token for %q: %v", dto.Owner, err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	log.Infof("Generated token for owner %q", dto.Owner)

	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(TokenDTO{Owner: dto.Owner, Token: generated}); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

func (h *Handler) RevokeToken(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		http.Error(w, "invalid admin credentials", http.StatusUnauthorized)
		return
	}

	owner := mux.Vars(r)["owner"]
	revoked, err := h.store.Revoke(owner)
	if err != nil {
		log.Errorf("failed to revoke token for %q: %v", owner, err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !revoked {
		http.Error(w, "owner not found", http.StatusNotFound)
		return
	}
	log.Infof("Revoked token for owner %q", owner)

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListOwners(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if !h.authorized(r) {
		http.Error(w, "invalid admin credentials", http.StatusUnauthorized)
		return
	}

	if err := json.NewEncoder(w).Encode(h.store.Owners()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

func (h *Handler) authorized(r *http.Request) bool {
	header := r.Header.Get("Authorization")
	presented, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(h.adminSecret)) == 1
}
