package handler

import (
	"net/http"
)

// LaptopRequestHandlerInterface defines the contract for laptop request HTTP handlers.
type LaptopRequestHandlerInterface interface {
	UpsertLaptopHandler(w http.ResponseWriter, r *http.Request)
	ListLaptopRequestsHandler(w http.ResponseWriter, r *http.Request)
	DeleteLaptopRequestHandler(w http.ResponseWriter, r *http.Request)
}

// Ensure LaptopRequestHandler implements LaptopRequestHandlerInterface at compile time
var _ LaptopRequestHandlerInterface = (*LaptopRequestHandler)(nil)

var (
	_ http.Handler = (*ArchivedHandler)(nil)
	_ http.Handler = (*HealthHandler)(nil)
)
