package api

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"shop-service/internal/entity"
	"shop-service/internal/repository"
)

type memUsers struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]entity.User
}

func (m *memUsers) Create(_ context.Context, u *entity.User) (*entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, other := range m.users {
		if other.Username == u.Username || other.Email == u.Email {
			return nil, repository.ErrDuplicate
		}
	}
	u.ID = primitive.NewObjectID()
	m.users[u.ID] = *u
	return u, nil
}

func (m *memUsers) GetByID(_ context.Context, id primitive.ObjectID) (*entity.User, error) {
	return m.find(func(u entity.User) bool { return u.ID == id })
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	return m.find(func(u entity.User) bool { return u.Email == email })
}

func (m *memUsers) FindByUsernameOrEmail(_ context.Context, username, email string) (*entity.User, error) {
	return m.find(func(u entity.User) bool { return u.Username == username || u.Email == email })
}

func (m *memUsers) UsernameTaken(_ context.Context, username string, exclude primitive.ObjectID) (bool, error) {
	u, _ := m.find(func(u entity.User) bool { return u.Username == username && u.ID != exclude })
	return u != nil, nil
}

func (m *memUsers) EmailTaken(_ context.Context, email string, exclude primitive.ObjectID) (bool, error) {
	u, _ := m.find(func(u entity.User) bool { return u.Email == email && u.ID != exclude })
	return u != nil, nil
}

func (m *memUsers) Update(_ context.Context, u *entity.User) (*entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.ID]; !ok {
		return nil, repository.ErrNotFound
	}
	m.users[u.ID] = *u
	return u, nil
}

func (m *memUsers) Delete(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *memUsers) find(match func(entity.User) bool) (*entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if match(u) {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

type memProducts struct {
	mu       sync.Mutex
	products []entity.Product
}

func (m *memProducts) List(context.Context) ([]*entity.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*entity.Product, 0, len(m.products))
	for i := range m.products {
		p := m.products[i]
		out = append(out, &p)
	}
	return out, nil
}

func (m *memProducts) GetByID(_ context.Context, id primitive.ObjectID) (*entity.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i := m.index(id); i >= 0 {
		p := m.products[i]
		return &p, nil
	}
	return nil, repository.ErrNotFound
}

func (m *memProducts) Create(_ context.Context, p *entity.Product) (*entity.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = primitive.NewObjectID()
	m.products = append(m.products, *p)
	return p, nil
}

func (m *memProducts) Update(_ context.Context, p *entity.Product) (*entity.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.index(p.ID)
	if i < 0 {
		return nil, repository.ErrNotFound
	}
	m.products[i] = *p
	return p, nil
}

func (m *memProducts) Delete(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.index(id)
	if i < 0 {
		return repository.ErrNotFound
	}
	m.products = append(m.products[:i], m.products[i+1:]...)
	return nil
}

func (m *memProducts) Stats(context.Context) (*entity.ProductStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &entity.ProductStats{Total: int64(len(m.products))}
	for _, p := range m.products {
		stats.AvgPrice += p.Price
	}
	if stats.Total > 0 {
		stats.AvgPrice /= float64(stats.Total)
	}
	return stats, nil
}

func (m *memProducts) index(id primitive.ObjectID) int {
	for i, p := range m.products {
		if p.ID == id {
			return i
		}
	}
	return -1
}
