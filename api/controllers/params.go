package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	pkgerrors "github.com/nvasquez/stagefront-backend/pkg/errors"
)

func variantIDParam(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "variantID")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid variant id")
	}
	return id, nil
}

func attemptIDParam(r *http.Request) (string, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "attemptID"))
	if raw == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "attempt id is required")
	}
	return raw, nil
}
