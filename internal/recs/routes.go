package recs

import (
	"github.com/gorilla/mux"
	"github.com/rhonaldomaster/gshop-recsys/internal/auth"
)

func RegisterRoutes(router *mux.Router, handler *Handler, authMiddleware *auth.Middleware) {
	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(authMiddleware.Authenticate)

	// Generation
	api.HandleFunc("/recommendations/generate", handler.GenerateRecommendations).Methods("POST")
	api.HandleFunc("/recommendations/realtime", handler.RealtimeRecommendations).Methods("POST")
	api.HandleFunc("/recommendations/trending", handler.GetTrending).Methods("GET")

	// Analytics
	api.HandleFunc("/recommendations/stats", handler.GetStats).Methods("GET")
	api.HandleFunc("/users/{userId}/recommendations/history", handler.GetHistory).Methods("GET")

	// Feedback
	api.HandleFunc("/recommendations/{id}/feedback", handler.RecordFeedback).Methods("POST")
}
