package auth

import (
	"context"

	"github.com/google/uuid"

	"github.com/papelisco/storefront/internal/users"
	"github.com/papelisco/storefront/pkg/db"
	pkgerrors "github.com/papelisco/storefront/pkg/errors"
)

func (s *service) Profile(ctx context.Context, userID uuid.UUID) (*users.UserDTO, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}
	return users.FromModel(user), nil
}

func (s *service) UpdateProfile(ctx context.Context, userID uuid.UUID, req UpdateProfileRequest) (*users.UserDTO, error) {
	if problems := nameFields(req.FirstName, req.LastName); len(problems) > 0 {
		return nil, pkgerrors.Fields("invalid profile", problems)
	}
	user, err := s.users.UpdateProfile(ctx, userID, users.ProfileUpdate{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
	})
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update profile")
	}
	return users.FromModel(user), nil
}
