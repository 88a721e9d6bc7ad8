// Package service answers read-only questions about the stored users.
package service

import (
	"context"
	"errors"
	"fmt"

	"userSupplement/internal/dto"
	"userSupplement/models"
	"userSupplement/repository"
)

var ErrUserNotFound = errors.New("user not found")

type UserService struct {
	users repository.UserRepositoryI
	addrs repository.AddressRepositoryI
	cards repository.CreditCardRepositoryI
}

func NewUserService(users repository.UserRepositoryI, addrs repository.AddressRepositoryI, cards repository.CreditCardRepositoryI) *UserService {
	return &UserService{users: users, addrs: addrs, cards: cards}
}

// GetUserByExternalID returns the user with the given upstream id or ErrUserNotFound.
func (s *UserService) GetUserByExternalID(ctx context.Context, externalID int64) (*models.User, error) {
	u, err := s.users.GetByExternalID(ctx, externalID)
	if err != nil {
		return nil, fmt.Errorf("get user by external id %d: %w", externalID, err)
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}

// GetUserWithRelations returns the user with all of its addresses and credit cards.
func (s *UserService) GetUserWithRelations(ctx context.Context, id int64) (*dto.UserDetail, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	addrs, err := s.addrs.ListByUserID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list addresses of user %d: %w", id, err)
	}
	cards, err := s.cards.ListByUserID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list credit cards of user %d: %w", id, err)
	}
	return dto.NewUserDetail(u, addrs, cards), nil
}

// ListUsers pages through users by id. limit <= 0 means 100, a negative offset means 0.
func (s *UserService) ListUsers(ctx context.Context, limit, offset int) ([]dto.UserListItem, error) {
	rows, err := s.users.ListSummaries(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	out := make([]dto.UserListItem, 0, len(rows))
	for _, r := range rows {
		out = append(out, dto.FromUserSummary(r))
	}
	return out, nil
}

// AddressesByUser returns the user's addresses in insertion order. An unknown
// user simply has none.
func (s *UserService) AddressesByUser(ctx context.Context, userID int64) ([]dto.AddressResponse, error) {
	rows, err := s.addrs.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list addresses of user %d: %w", userID, err)
	}
	out := make([]dto.AddressResponse, 0, len(rows))
	for _, a := range rows {
		out = append(out, dto.FromAddress(a))
	}
	return out, nil
}

func (s *UserService) CreditCardsByUser(ctx context.Context, userID int64) ([]dto.CreditCardResponse, error) {
	rows, err := s.cards.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list credit cards of user %d: %w", userID, err)
	}
	out := make([]dto.CreditCardResponse, 0, len(rows))
	for _, c := range rows {
		out = append(out, dto.FromCreditCard(c))
	}
	return out, nil
}
