package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"shop-service/internal/auth"
	"shop-service/internal/entity"
	"shop-service/internal/repository"
)

type UserService struct {
	repo     repository.UserRepository
	secret   []byte
	tokenTTL time.Duration
}

// NewUserService creates a new instance of UserService.
func NewUserService(repo repository.UserRepository, secret []byte, tokenTTL time.Duration) *UserService {
	if tokenTTL <= 0 {
		tokenTTL = auth.DefaultTokenTTL
	}
	return &UserService{repo: repo, secret: secret, tokenTTL: tokenTTL}
}

// Register creates a user and returns it with a fresh token.
func (s *UserService) Register(ctx context.Context, username, email, password string) (*entity.AuthResponse, error) {
	username, email = strings.TrimSpace(username), strings.TrimSpace(email)
	if username == "" || email == "" || password == "" {
		return nil, badRequest("Please provide all required fields")
	}

	existing, err := s.repo.FindByUsernameOrEmail(ctx, username, email)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		log.Error().Err(err).Msg("Error checking for existing user")
		return nil, internal("Server Error", err)
	}
	if existing != nil {
		return nil, badRequest("User already exists")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, internal("Invalid user data", err)
	}

	user, err := s.repo.Create(ctx, &entity.User{Username: username, Email: email, Password: hash})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, badRequest("User already exists")
		}
		log.Error().Err(err).Msg("Error creating user")
		return nil, internal("Server Error", err)
	}

	return s.authResponse(user)
}

// Login checks the credentials and issues a token.
func (s *UserService) Login(ctx context.Context, email, password string) (*entity.AuthResponse, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, badRequest("Please provide email and password")
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, unauthorized("Invalid email or password")
		}
		log.Error().Err(err).Msg("Error getting user by email")
		return nil, internal("Server Error", err)
	}

	if !auth.CheckPassword(user.Password, password) {
		return nil, unauthorized("Invalid email or password")
	}

	return s.authResponse(user)
}

// Profile returns the user identified by userID.
func (s *UserService) Profile(ctx context.Context, userID string) (*entity.User, error) {
	return s.getUser(ctx, userID)
}

// UpdateProfile changes username and email. Both must stay unique.
func (s *UserService) UpdateProfile(ctx context.Context, userID, username, email string) (*entity.AuthResponse, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	username, email = strings.TrimSpace(username), strings.TrimSpace(email)
	if username == "" || email == "" {
		return nil, badRequest("Please provide username and email")
	}

	taken, err := s.repo.UsernameTaken(ctx, username, user.ID)
	if err != nil {
		log.Error().Err(err).Msgf("Error checking username for user %s", userID)
		return nil, internal("Server Error", err)
	}
	if taken {
		return nil, badRequest("Username already taken")
	}

	taken, err = s.repo.EmailTaken(ctx, email, user.ID)
	if err != nil {
		log.Error().Err(err).Msgf("Error checking email for user %s", userID)
		return nil, internal("Server Error", err)
	}
	if taken {
		return nil, badRequest("Email already taken")
	}

	user.Username, user.Email = username, email
	updated, err := s.repo.Update(ctx, user)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, notFound("User not found")
		case errors.Is(err, repository.ErrDuplicate):
			return nil, badRequest("Username or email already taken")
		}
		log.Error().Err(err).Msgf("Error updating user %s", userID)
		return nil, internal("Server Error", err)
	}

	return &entity.AuthResponse{ID: updated.ID, Username: updated.Username, Email: updated.Email}, nil
}

// DeleteProfile removes the user. Products the user created are kept.
func (s *UserService) DeleteProfile(ctx context.Context, userID string) error {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, user.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound("User not found")
		}
		log.Error().Err(err).Msgf("Error deleting user %s", userID)
		return internal("Server Error", err)
	}
	return nil
}

func (s *UserService) getUser(ctx context.Context, userID string) (*entity.User, error) {
	id, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, notFound("User not found")
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("User not found")
		}
		log.Error().Err(err).Msgf("Error getting user by ID %s", userID)
		return nil, internal("Server Error", err)
	}
	return user, nil
}

func (s *UserService) authResponse(user *entity.User) (*entity.AuthResponse, error) {
	token, err := auth.GenerateToken(user.ID.Hex(), s.secret, s.tokenTTL)
	if err != nil {
		log.Error().Err(err).Msg("Error signing token")
		return nil, internal("Server Error", err)
	}
	return &entity.AuthResponse{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		Token:    token,
	}, nil
}
