package auth

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/papelisco/storefront/internal/users"
	"github.com/papelisco/storefront/pkg/db"
	"github.com/papelisco/storefront/pkg/db/models"
	"github.com/papelisco/storefront/pkg/enums"
	pkgerrors "github.com/papelisco/storefront/pkg/errors"
	"github.com/papelisco/storefront/pkg/outbox"
	"github.com/papelisco/storefront/pkg/outbox/payloads"
	"github.com/papelisco/storefront/pkg/security"
)

// Register creates a customer account, queues user.registered and signs the user in.
func (s *service) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	email := users.NormalizeEmail(req.Email)
	problems := nameFields(req.FirstName, req.LastName)
	if email == "" {
		problems["email"] = "email is required"
	}
	if issues := security.PasswordProblems(req.Password); len(issues) > 0 {
		problems["password"] = "password " + strings.Join(issues, ", ")
	}
	if len(problems) > 0 {
		return nil, pkgerrors.Fields("invalid registration", problems)
	}

	passwordHash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	var user *models.User
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := users.NewRepository(tx)
		created, err := repo.Create(ctx, users.CreateUserDTO{
			Email:        email,
			PasswordHash: passwordHash,
			FirstName:    req.FirstName,
			LastName:     req.LastName,
			Phone:        req.Phone,
			Role:         enums.UserRoleCustomer,
		})
		if err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "user with this email already exists")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventUserRegistered,
			AggregateType: enums.AggregateUser,
			AggregateID:   created.ID,
			Actor:         &outbox.ActorRef{UserID: created.ID, Role: created.Role},
			Data: payloads.UserRegisteredEvent{
				UserID:    created.ID,
				Email:     created.Email,
				FirstName: created.FirstName,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit user registered")
		}
		user = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithUserID(ctx, user.ID.String()), "user registered")
	return s.issue(ctx, user, false, s.now())
}
