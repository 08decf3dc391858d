package memory

import (
	"context"
	"sync"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

// Directory serves users, companies and departments from memory. It
// satisfies UserRepository, CompanyRepository and DepartmentRepository
// through its accessor methods.
type Directory struct {
	mu          sync.RWMutex
	users       map[string]domain.User
	companies   map[string]domain.Company
	departments map[string]domain.Department
}

// NewDirectory creates an empty directory.
func NewDirectory() *Directory {
	return &Directory{
		users:       make(map[string]domain.User),
		companies:   make(map[string]domain.Company),
		departments: make(map[string]domain.Department),
	}
}

func (d *Directory) AddUser(u domain.User) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[u.ID] = u
}

func (d *Directory) AddCompany(c domain.Company) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.companies[c.ID] = c
}

func (d *Directory) AddDepartment(dep domain.Department) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.departments[dep.ID] = dep
}

// Users returns the user lookup view.
func (d *Directory) Users() repository.UserRepository { return userView{d} }

// Companies returns the company lookup view.
func (d *Directory) Companies() repository.CompanyRepository { return companyView{d} }

// Departments returns the department lookup view.
func (d *Directory) Departments() repository.DepartmentRepository { return departmentView{d} }

type userView struct{ d *Directory }

func (v userView) GetByID(ctx context.Context, id string) (*domain.User, error) {
	v.d.mu.RLock()
	defer v.d.mu.RUnlock()
	u, ok := v.d.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

type companyView struct{ d *Directory }

func (v companyView) GetByID(ctx context.Context, id string) (*domain.Company, error) {
	v.d.mu.RLock()
	defer v.d.mu.RUnlock()
	c, ok := v.d.companies[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

type departmentView struct{ d *Directory }

func (v departmentView) GetByID(ctx context.Context, id string) (*domain.Department, error) {
	v.d.mu.RLock()
	defer v.d.mu.RUnlock()
	dep, ok := v.d.departments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &dep, nil
}
