package service

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"shop-service/internal/entity"
	"shop-service/internal/repository"
)

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]*entity.User
	err   error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[primitive.ObjectID]*entity.User{}}
}

func (f *fakeUserRepo) Create(_ context.Context, u *entity.User) (*entity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, other := range f.users {
		if other.Username == u.Username || other.Email == u.Email {
			return nil, repository.ErrDuplicate
		}
	}
	u.ID = primitive.NewObjectID()
	cp := *u
	f.users[u.ID] = &cp
	return u, nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id primitive.ObjectID) (*entity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	return f.find(func(u *entity.User) bool { return u.Email == email })
}

func (f *fakeUserRepo) FindByUsernameOrEmail(_ context.Context, username, email string) (*entity.User, error) {
	return f.find(func(u *entity.User) bool { return u.Username == username || u.Email == email })
}

func (f *fakeUserRepo) UsernameTaken(_ context.Context, username string, exclude primitive.ObjectID) (bool, error) {
	u, err := f.find(func(u *entity.User) bool { return u.Username == username && u.ID != exclude })
	return u != nil, ignoreNotFound(err)
}

func (f *fakeUserRepo) EmailTaken(_ context.Context, email string, exclude primitive.ObjectID) (bool, error) {
	u, err := f.find(func(u *entity.User) bool { return u.Email == email && u.ID != exclude })
	return u != nil, ignoreNotFound(err)
}

func (f *fakeUserRepo) Update(_ context.Context, u *entity.User) (*entity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[u.ID]; !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	f.users[u.ID] = &cp
	return u, nil
}

func (f *fakeUserRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.users, id)
	return nil
}

func (f *fakeUserRepo) find(match func(*entity.User) bool) (*entity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, u := range f.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func ignoreNotFound(err error) error {
	if err == repository.ErrNotFound {
		return nil
	}
	return err
}

type fakeProductRepo struct {
	mu        sync.Mutex
	products  map[primitive.ObjectID]*entity.Product
	order     []primitive.ObjectID
	listCalls int
	err       error
	// afterListRead runs once after List has read its rows and before it returns.
	afterListRead func()
}

func newFakeProductRepo() *fakeProductRepo {
	return &fakeProductRepo{products: map[primitive.ObjectID]*entity.Product{}}
}

func (f *fakeProductRepo) List(context.Context) ([]*entity.Product, error) {
	f.mu.Lock()
	f.listCalls++
	if f.err != nil {
		f.mu.Unlock()
		return nil, f.err
	}
	out := []*entity.Product{}
	for _, id := range f.order {
		if p, ok := f.products[id]; ok {
			cp := *p
			out = append(out, &cp)
		}
	}
	hook := f.afterListRead
	f.afterListRead = nil
	f.mu.Unlock()

	if hook != nil {
		hook()
	}
	return out, nil
}

func (f *fakeProductRepo) GetByID(_ context.Context, id primitive.ObjectID) (*entity.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProductRepo) Create(_ context.Context, p *entity.Product) (*entity.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	p.ID = primitive.NewObjectID()
	cp := *p
	f.products[p.ID] = &cp
	f.order = append(f.order, p.ID)
	return p, nil
}

func (f *fakeProductRepo) Update(_ context.Context, p *entity.Product) (*entity.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.products[p.ID]; !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	f.products[p.ID] = &cp
	return p, nil
}

func (f *fakeProductRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.products[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.products, id)
	return nil
}

func (f *fakeProductRepo) Stats(context.Context) (*entity.ProductStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	stats := &entity.ProductStats{}
	var sum float64
	for _, p := range f.products {
		sum += p.Price
		stats.Total++
	}
	if stats.Total > 0 {
		stats.AvgPrice = sum / float64(stats.Total)
	}
	return stats, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []entity.ProductEvent
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, e entity.ProductEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}
