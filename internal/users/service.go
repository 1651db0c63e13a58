// Package users holds admin user management and the customer address book.
package users

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"storefront/internal/apperror"
	"storefront/internal/models"
	"storefront/internal/store"
)

const (
	msgUserNotFound    = "User not found"
	msgAddressNotFound = "Address not found"
	msgLastAdmin       = "Cannot remove the last admin user"
)

type Service struct {
	users  store.UserRepository
	logger *zap.Logger
}

func NewService(repos store.Repositories, logger *zap.Logger) *Service {
	return &Service{users: repos.Users, logger: logger.Named("users")}
}

func ValidRole(role string) bool {
	return role == models.RoleCustomer || role == models.RoleAdmin
}

func (s *Service) Get(ctx context.Context, id primitive.ObjectID) (models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return models.User{}, apperror.NotFound(msgUserNotFound)
	}
	if err != nil {
		return models.User{}, apperror.Internal("db error", err)
	}
	return user, nil
}

func (s *Service) List(ctx context.Context) ([]models.User, error) {
	list, err := s.users.List(ctx)
	if err != nil {
		return nil, apperror.Internal("db error", err)
	}
	return list, nil
}

// SetRole changes a user's role. Demoting the only active admin is refused.
func (s *Service) SetRole(ctx context.Context, id primitive.ObjectID, role string) (models.User, error) {
	if !ValidRole(role) {
		return models.User{}, apperror.Validation("Invalid role").With("role", role)
	}
	user, err := s.Get(ctx, id)
	if err != nil {
		return models.User{}, err
	}
	if user.Role == role {
		return user, nil
	}
	if user.IsAdmin() && user.IsActive {
		if err := s.guardLastAdmin(ctx); err != nil {
			return models.User{}, err
		}
	}

	updated, err := s.users.SetRole(ctx, id, role)
	if err != nil {
		return models.User{}, apperror.Internal("db error", err)
	}
	s.logger.Info("user role changed", zap.String("user_id", id.Hex()), zap.String("role", role))
	return updated, nil
}

// SetActive enables or disables an account. The only active admin cannot
// be disabled.
func (s *Service) SetActive(ctx context.Context, id primitive.ObjectID, active bool) (models.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return models.User{}, err
	}
	if !active && user.IsAdmin() && user.IsActive {
		if err := s.guardLastAdmin(ctx); err != nil {
			return models.User{}, err
		}
	}
	updated, err := s.users.SetActive(ctx, id, active)
	if err != nil {
		return models.User{}, apperror.Internal("db error", err)
	}
	s.logger.Info("user status changed", zap.String("user_id", id.Hex()), zap.Bool("active", active))
	return updated, nil
}

func (s *Service) guardLastAdmin(ctx context.Context) error {
	admins, err := s.users.CountActiveByRole(ctx, models.RoleAdmin)
	if err != nil {
		return apperror.Internal("db error", err)
	}
	if admins <= 1 {
		return apperror.Validation(msgLastAdmin)
	}
	return nil
}

type AddressInput struct {
	Label     string
	Street    string
	City      string
	State     string
	ZipCode   string
	Country   string
	IsDefault bool
}

func (s *Service) Addresses(ctx context.Context, userID primitive.ObjectID) ([]models.Address, error) {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Addresses == nil {
		return []models.Address{}, nil
	}
	return user.Addresses, nil
}

// AddAddress appends an address. The first address becomes the default.
func (s *Service) AddAddress(ctx context.Context, userID primitive.ObjectID, in AddressInput) (models.Address, error) {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return models.Address{}, err
	}

	address := models.Address{ID: uuid.NewString()}
	apply(&address, in)
	if len(user.Addresses) == 0 {
		address.IsDefault = true
	}
	addresses := append(user.Addresses, address)
	if address.IsDefault {
		makeDefault(addresses, address.ID)
	}

	if err := s.save(ctx, userID, addresses); err != nil {
		return models.Address{}, err
	}
	return address, nil
}

func (s *Service) UpdateAddress(ctx context.Context, userID primitive.ObjectID, addressID string, in AddressInput) (models.Address, error) {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return models.Address{}, err
	}
	idx := findAddress(user.Addresses, addressID)
	if idx < 0 {
		return models.Address{}, apperror.NotFound(msgAddressNotFound)
	}

	apply(&user.Addresses[idx], in)
	if in.IsDefault {
		makeDefault(user.Addresses, addressID)
	}
	if err := s.save(ctx, userID, user.Addresses); err != nil {
		return models.Address{}, err
	}
	return user.Addresses[idx], nil
}

// DeleteAddress removes an address; when it was the default, the first
// remaining address takes over.
func (s *Service) DeleteAddress(ctx context.Context, userID primitive.ObjectID, addressID string) error {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	idx := findAddress(user.Addresses, addressID)
	if idx < 0 {
		return apperror.NotFound(msgAddressNotFound)
	}

	wasDefault := user.Addresses[idx].IsDefault
	remaining := append(user.Addresses[:idx:idx], user.Addresses[idx+1:]...)
	if wasDefault && len(remaining) > 0 {
		remaining[0].IsDefault = true
	}
	return s.save(ctx, userID, remaining)
}

func (s *Service) save(ctx context.Context, userID primitive.ObjectID, addresses []models.Address) error {
	err := s.users.SetAddresses(ctx, userID, addresses)
	if errors.Is(err, store.ErrNotFound) {
		return apperror.NotFound(msgUserNotFound)
	}
	if err != nil {
		return apperror.Internal("db error", err)
	}
	return nil
}

func apply(a *models.Address, in AddressInput) {
	a.Label = strings.TrimSpace(in.Label)
	a.Street = strings.TrimSpace(in.Street)
	a.City = strings.TrimSpace(in.City)
	a.State = strings.TrimSpace(in.State)
	a.ZipCode = strings.TrimSpace(in.ZipCode)
	a.Country = strings.TrimSpace(in.Country)
	a.IsDefault = a.IsDefault || in.IsDefault
}

func makeDefault(addresses []models.Address, id string) {
	for i := range addresses {
		addresses[i].IsDefault = addresses[i].ID == id
	}
}

func findAddress(addresses []models.Address, id string) int {
	for i, a := range addresses {
		if a.ID == id {
			return i
		}
	}
	return -1
}
