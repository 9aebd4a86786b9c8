package audiences

import (
	"github.com/gorilla/mux"
	"github.com/rhonaldomaster/gshop-recsys/internal/auth"
)

func RegisterRoutes(router *mux.Router, handler *Handler, authMiddleware *auth.Middleware) {
	api := router.PathPrefix("/api/v1/audiences").Subrouter()
	api.Use(authMiddleware.Authenticate)

	// Audience CRUD
	api.HandleFunc("", handler.CreateAudience).Methods("POST")
	api.HandleFunc("", handler.ListAudiences).Methods("GET")
	api.HandleFunc("/{id}", handler.GetAudience).Methods("GET")
	api.HandleFunc("/{id}", handler.UpdateAudience).Methods("PUT")
	api.HandleFunc("/{id}", handler.DeleteAudience).Methods("DELETE")

	// Builds
	api.HandleFunc("/{id}/rebuild", handler.RebuildAudience).Methods("POST")

	// Members
	api.HandleFunc("/{id}/members", handler.GetMembers).Methods("GET")
	api.HandleFunc("/{id}/members", handler.AddMember).Methods("POST")
	api.HandleFunc("/{id}/members/{userId}", handler.RemoveMember).Methods("DELETE")
}
