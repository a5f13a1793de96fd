package app

import (
	"github.com/edtproxy/edtproxy/internal/config"
	"github.com/gorilla/mux"
)

// RegisterRoutes registers all API endpoints.
func RegisterRoutes(r *mux.Router, deps *Dependencies, cfg config.Application) {

	// Token administration
	r.HandleFunc("/admin/create_token", deps.TokenHandler.CreateToken).Methods("POST")
	r.HandleFunc("/admin/token", deps.TokenHandler.ListOwners).Methods("GET")
	r.HandleFunc("/admin/token/{owner}", deps.TokenHandler.RevokeToken).Methods("DELETE")

	// Feeds
	r.HandleFunc("/", deps.FeedHandler.ListSections).Methods("GET")
	r.HandleFunc("/{section}", deps.FeedHandler.GetFeed).Methods("GET")
}
