package controllers

import (
	"net/http"

	"github.com/papelisco/storefront/api/responses"
	"github.com/papelisco/storefront/api/validators"
	"github.com/papelisco/storefront/internal/checkout"
	"github.com/papelisco/storefront/pkg/logger"
)

// Checkout places an order for the caller from the submitted cart and card.
func Checkout(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body checkout.Request
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Execute(r.Context(), actor, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, order)
	}
}
