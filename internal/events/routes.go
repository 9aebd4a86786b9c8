package events

import (
	"github.com/gorilla/mux"
	"github.com/rhonaldomaster/gshop-recsys/internal/auth"
)

func RegisterRoutes(router *mux.Router, handler *Handler, authMiddleware *auth.Middleware) {
	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(authMiddleware.Authenticate)

	// Tracking
	api.HandleFunc("/interactions", handler.TrackInteraction).Methods("POST")
	api.HandleFunc("/interactions/bulk", handler.TrackInteractionsBulk).Methods("POST")
	api.HandleFunc("/users/{userId}/interactions", handler.GetUserInteractions).Methods("GET")

	// Preferences
	api.HandleFunc("/users/{userId}/preferences", handler.GetUserPreferences).Methods("GET")
	api.HandleFunc("/users/{userId}/preferences", handler.UpdatePreference).Methods("PUT")
}
