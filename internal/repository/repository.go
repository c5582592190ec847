package repository

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"shop-service/internal/entity"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate key")
)

type UserRepository interface {
	Create(ctx context.Context, user *entity.User) (*entity.User, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	// FindByUsernameOrEmail returns the first user matching either value.
	FindByUsernameOrEmail(ctx context.Context, username, email string) (*entity.User, error)
	// UsernameTaken reports whether a user other than excludeID has username.
	UsernameTaken(ctx context.Context, username string, excludeID primitive.ObjectID) (bool, error)
	EmailTaken(ctx context.Context, email string, excludeID primitive.ObjectID) (bool, error)
	// Update stores the username and email of user.
	Update(ctx context.Context, user *entity.User) (*entity.User, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type ProductRepository interface {
	List(ctx context.Context) ([]*entity.Product, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*entity.Product, error)
	Create(ctx context.Context, product *entity.Product) (*entity.Product, error)
	// Update stores the mutable fields of product. CreatedBy never changes.
	Update(ctx context.Context, product *entity.Product) (*entity.Product, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	Stats(ctx context.Context) (*entity.ProductStats, error)
}
