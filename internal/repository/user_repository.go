package repository

import (
	"context"
	"fmt"
	"strings"

	"empty-jar/internal/domain"

	"github.com/go-kivik/kivik/v4"
)

type userDoc struct {
	ID      string `json:"_id"`
	Rev     string `json:"_rev,omitempty"`
	DocType string `json:"doc_type"`
	domain.User
}

// emailDoc reserves an address. Its id is the lowercased email, which makes
// registration race-free without a Mango index.
type emailDoc struct {
	ID      string `json:"_id"`
	DocType string `json:"doc_type"`
	UserID  string `json:"user_id"`
}

type userRepository struct {
	db *kivik.DB
}

func NewUserRepository(client *kivik.Client, dbName string) UserRepository {
	return &userRepository{db: client.DB(dbName)}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	reservation := emailDoc{
		ID:      emailDocID(user.Email),
		DocType: docTypeEmail,
		UserID:  user.ID,
	}
	if _, err := r.db.Put(ctx, reservation.ID, reservation); err != nil {
		if isConflict(err) {
			return ErrEmailTaken
		}
		return fmt.Errorf("failed to reserve email: %w", err)
	}

	doc := userDoc{ID: userDocID(user.ID), DocType: docTypeUser, User: *user}
	doc.Email = strings.ToLower(user.Email)
	if _, err := r.db.Put(ctx, doc.ID, doc); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	var reservation emailDoc
	if err := r.db.Get(ctx, emailDocID(email)).ScanDoc(&reservation); err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	return r.FindByID(ctx, reservation.UserID)
}

func (r *userRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	var doc userDoc
	if err := r.db.Get(ctx, userDocID(id)).ScanDoc(&doc); err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}
	user := doc.User
	return &user, nil
}
