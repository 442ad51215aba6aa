package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/patric-chuzhbe/usersapi/internal/validation"
)

// GetUsers lists every user.
func (router *Router) GetUsers(response http.ResponseWriter, request *http.Request) {
	users, err := router.service.ListUsers(request.Context())
	if err != nil {
		router.writeError(response, request, err)
		return
	}

	writeJSON(response, http.StatusOK, users)
}

// GetUser returns one user by id.
func (router *Router) GetUser(response http.ResponseWriter, request *http.Request) {
	id, err := validation.ParseID(chi.URLParam(request, "id"))
	if err != nil {
		router.writeError(response, request, err)
		return
	}

	usr, err := router.service.GetUser(request.Context(), id)
	if err != nil {
		router.writeError(response, request, err)
		return
	}

	writeJSON(response, http.StatusOK, usr)
}

// PostUsers creates a user from a body holding both name and email.
func (router *Router) PostUsers(response http.ResponseWriter, request *http.Request) {
	body, err := validation.DecodeBody(http.MaxBytesReader(response, request.Body, maxBodyBytes))
	if err != nil {
		router.writeError(response, request, err)
		return
	}

	newUser, err := router.validator.ValidateCreate(body)
	if err != nil {
		router.writeError(response, request, err)
		return
	}

	usr, err := router.service.CreateUser(request.Context(), newUser)
	if err != nil {
		router.writeError(response, request, err)
		return
	}

	writeJSON(response, http.StatusCreated, usr)
}

// PutUser applies a partial update. The id is checked before the body.
func (router *Router) PutUser(response http.ResponseWriter, request *http.Request) {
	id, err := validation.ParseID(chi.URLParam(request, "id"))
	if err != nil {
		router.writeError(response, request, err)
		return
	}

	body, err := validation.DecodeBody(http.MaxBytesReader(response, request.Body, maxBodyBytes))
	if err != nil {
		router.writeError(response, request, err)
		return
	}

	patch, err := router.validator.ValidateUpdate(body)
	if err != nil {
		router.writeError(response, request, err)
		return
	}

	usr, err := router.service.UpdateUser(request.Context(), id, patch)
	if err != nil {
		router.writeError(response, request, err)
		return
	}

	writeJSON(response, http.StatusOK, usr)
}

// DeleteUser removes a user and answers 204 with no body.
func (router *Router) DeleteUser(response http.ResponseWriter, request *http.Request) {
	id, err := validation.ParseID(chi.URLParam(request, "id"))
	if err != nil {
		router.writeError(response, request, err)
		return
	}

	if err := router.service.DeleteUser(request.Context(), id); err != nil {
		router.writeError(response, request, err)
		return
	}

	response.WriteHeader(http.StatusNoContent)
}
