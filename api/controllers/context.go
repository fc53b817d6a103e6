package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/papelisco/storefront/api/middleware"
	"github.com/papelisco/storefront/pkg/enums"
	pkgerrors "github.com/papelisco/storefront/pkg/errors"
	"github.com/papelisco/storefront/pkg/outbox"
)

func requireUserID(r *http.Request) (uuid.UUID, error) {
	id, ok := middleware.UserUUIDFromContext(r.Context())
	if !ok {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	return id, nil
}

func actorFromRequest(r *http.Request) (outbox.ActorRef, error) {
	id, err := requireUserID(r)
	if err != nil {
		return outbox.ActorRef{}, err
	}
	return outbox.ActorRef{UserID: id, Role: enums.UserRole(middleware.RoleFromContext(r.Context()))}, nil
}
