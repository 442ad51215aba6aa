package handlers

import (
	"net/http"
)

func Broken(w http.ResponseWriter, r *http.Request) {
	http.Error(w, "boom", http.StatusInternalServerError) // want "http.Error writes a plain text body; use the JSON error responder"
}

func Fine(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	_, _ = w.Write([]byte(`{"error":"BadRequest"}`))
}

type responder struct{}

func (responder) Error(w http.ResponseWriter, msg string, code int) {}

func Method(w http.ResponseWriter) {
	responder{}.Error(w, "ok", http.StatusOK)
}
