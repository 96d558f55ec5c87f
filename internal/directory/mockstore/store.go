// Package mockstore is the fixture-backed secondary tier. Fixtures are
// decoded once per entity into id-keyed maps; writes mutate those maps
// and are lost when the process exits.
package mockstore

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"
	"time"

	e "github.com/gartstein/directory/internal/directory/errors"
	"github.com/gartstein/directory/internal/directory/models"
	"go.uber.org/zap"
)

//go:embed fixtures
var embedded embed.FS

const (
	companiesFile = "companies/mock-companies.json"
	employeesFile = "employees/mock-employees.json"
	trainersFile  = "trainers/mock-trainers.json"
	requestsFile  = "training-requests/mock-requests.json"
)

// record is satisfied by the pointer types of every entity.
type record[T any] interface {
	EntityID() string
	CreatedTime() time.Time
	DeletedTime() *time.Time
	Clone() T
}

// table holds the decoded rows of one fixture.
type table[T record[T]] struct {
	file string
	key  string
	once sync.Once
	err  error
	rows map[string]T
}

type Store struct {
	files  fs.FS
	raw    sync.Map // fixture name -> []byte
	clock  func() time.Time
	logger *zap.Logger

	mu        sync.RWMutex
	companies table[*models.Company]
	employees table[*models.Employee]
	trainers  table[*models.Trainer]
	requests  table[*models.TrainingRequest]
}

type Option func(*Store)

// WithFS replaces the embedded fixtures.
func WithFS(fsys fs.FS) Option {
	return func(s *Store) { s.files = fsys }
}

// WithDir reads fixtures from dir on disk.
func WithDir(dir string) Option {
	return WithFS(os.DirFS(dir))
}

func WithClock(clock func() time.Time) Option {
	return func(s *Store) { s.clock = clock }
}

func New(logger *zap.Logger, opts ...Option) *Store {
	sub, err := fs.Sub(embedded, "fixtures")
	if err != nil {
		panic(err)
	}
	s := &Store{
		files:     sub,
		clock:     time.Now,
		logger:    logger.Named("mockstore"),
		companies: table[*models.Company]{file: companiesFile, key: "companies"},
		employees: table[*models.Employee]{file: employeesFile, key: "employees"},
		trainers:  table[*models.Trainer]{file: trainersFile, key: "trainers"},
		requests:  table[*models.TrainingRequest]{file: requestsFile, key: "requests"},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// fixture returns the raw bytes of name, reading it at most once.
func (s *Store) fixture(name string) ([]byte, error) {
	if v, ok := s.raw.Load(name); ok {
		return v.([]byte), nil
	}
	data, err := fs.ReadFile(s.files, name)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", name, err)
	}
	v, _ := s.raw.LoadOrStore(name, data)
	return v.([]byte), nil
}

func (t *table[T]) ensure(s *Store) error {
	t.once.Do(func() {
		data, err := s.fixture(t.file)
		if err != nil {
			t.err = err
			return
		}
		var doc map[string][]T
		if err := json.Unmarshal(data, &doc); err != nil {
			t.err = fmt.Errorf("decode fixture %s: %w", t.file, err)
			return
		}
		t.rows = make(map[string]T, len(doc[t.key]))
		for _, r := range doc[t.key] {
			t.rows[r.EntityID()] = r
		}
		s.logger.Debug("Fixture loaded", zap.String("file", t.file), zap.Int("records", len(t.rows)))
	})
	return t.err
}

func find[T record[T]](s *Store, t *table[T], match func(T) bool) ([]T, error) {
	if err := t.ensure(s); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]T, 0, len(t.rows))
	for _, r := range t.rows {
		if match(r) {
			out = append(out, r.Clone())
		}
	}
	models.SortByCreated(out)
	return out, nil
}

// get returns a copy of the live row with id, or the zero value when it
// is missing or soft-deleted.
func get[T record[T]](s *Store, t *table[T], id string) (T, error) {
	var zero T
	if err := t.ensure(s); err != nil {
		return zero, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := t.rows[id]
	if !ok || r.DeletedTime() != nil {
		return zero, nil
	}
	return r.Clone(), nil
}

func save[T record[T]](s *Store, t *table[T], r T, resource string) error {
	if err := t.ensure(s); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := t.rows[r.EntityID()]; !ok {
		return e.NotFound(resource)
	}
	t.rows[r.EntityID()] = r.Clone()
	return nil
}

// insert stores r under a fresh id built by assign. Caller holds s.mu.
func insert[T record[T]](s *Store, t *table[T], prefix string, r T, assign func(string)) {
	id := fmt.Sprintf("%s_%d", prefix, s.clock().UnixMilli())
	if _, taken := t.rows[id]; taken {
		base := id
		for n := 2; ; n++ {
			id = fmt.Sprintf("%s_%d", base, n)
			if _, taken := t.rows[id]; !taken {
				break
			}
		}
	}
	assign(id)
	t.rows[id] = r.Clone()
}

func (s *Store) ListCompanies(ctx context.Context, f models.CompanyFilter) (models.Paged[*models.Company], error) {
	rows, err := find(s, &s.companies, f.Match)
	if err != nil {
		return models.Paged[*models.Company]{}, err
	}
	return models.Paginate(rows, f.Page), nil
}

func (s *Store) GetCompany(ctx context.Context, id string) (*models.Company, error) {
	return get(s, &s.companies, id)
}

// CreateCompany rejects a name already used by a live company.
func (s *Store) CreateCompany(ctx context.Context, c *models.Company) error {
	if err := s.companies.ensure(s); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.companies.rows {
		if !existing.IsDeleted() && strings.EqualFold(existing.Name, c.Name) {
			return e.Duplicate("Company with this name already exists")
		}
	}
	insert(s, &s.companies, "company", c, func(id string) { c.ID = id })
	s.logger.Info("Mock company created", zap.String("company_id", c.ID))
	return nil
}

func (s *Store) SaveCompany(ctx context.Context, c *models.Company) error {
	return save(s, &s.companies, c, "Company")
}

func (s *Store) ListEmployees(ctx context.Context, f models.EmployeeFilter) (models.Paged[*models.Employee], error) {
	rows, err := s.FindEmployees(ctx, f)
	if err != nil {
		return models.Paged[*models.Employee]{}, err
	}
	return models.Paginate(rows, f.Page), nil
}

// FindEmployees returns every match, unpaginated.
func (s *Store) FindEmployees(ctx context.Context, f models.EmployeeFilter) ([]*models.Employee, error) {
	return find(s, &s.employees, f.Match)
}

func (s *Store) GetEmployee(ctx context.Context, id string) (*models.Employee, error) {
	return get(s, &s.employees, id)
}

func (s *Store) CreateEmployee(ctx context.Context, emp *models.Employee) error {
	if err := s.employees.ensure(s); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	insert(s, &s.employees, "employee", emp, func(id string) { emp.ID = id })
	s.logger.Info("Mock employee created", zap.String("employee_id", emp.ID))
	return nil
}

func (s *Store) SaveEmployee(ctx context.Context, emp *models.Employee) error {
	return save(s, &s.employees, emp, "Employee")
}

func (s *Store) ListTrainers(ctx context.Context, f models.TrainerFilter) (models.Paged[*models.Trainer], error) {
	rows, err := find(s, &s.trainers, f.Match)
	if err != nil {
		return models.Paged[*models.Trainer]{}, err
	}
	return models.Paginate(rows, f.Page), nil
}

func (s *Store) GetTrainer(ctx context.Context, id string) (*models.Trainer, error) {
	return get(s, &s.trainers, id)
}

func (s *Store) CreateTrainer(ctx context.Context, t *models.Trainer) error {
	if err := s.trainers.ensure(s); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	insert(s, &s.trainers, "trainer", t, func(id string) { t.ID = id })
	s.logger.Info("Mock trainer created", zap.String("trainer_id", t.ID))
	return nil
}

func (s *Store) SaveTrainer(ctx context.Context, t *models.Trainer) error {
	return save(s, &s.trainers, t, "Trainer")
}

func (s *Store) ListTrainingRequests(ctx context.Context, f models.TrainingRequestFilter) (models.Paged[*models.TrainingRequest], error) {
	rows, err := s.FindTrainingRequests(ctx, f)
	if err != nil {
		return models.Paged[*models.TrainingRequest]{}, err
	}
	return models.Paginate(rows, f.Page), nil
}

// FindTrainingRequests returns every match, unpaginated.
func (s *Store) FindTrainingRequests(ctx context.Context, f models.TrainingRequestFilter) ([]*models.TrainingRequest, error) {
	return find(s, &s.requests, f.Match)
}

func (s *Store) GetTrainingRequest(ctx context.Context, id string) (*models.TrainingRequest, error) {
	return get(s, &s.requests, id)
}

func (s *Store) CreateTrainingRequest(ctx context.Context, r *models.TrainingRequest) error {
	if err := s.requests.ensure(s); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	insert(s, &s.requests, "req", r, func(id string) { r.ID = id })
	s.logger.Info("Mock training request created", zap.String("request_id", r.ID))
	return nil
}

func (s *Store) SaveTrainingRequest(ctx context.Context, r *models.TrainingRequest) error {
	return save(s, &s.requests, r, "Training request")
}
