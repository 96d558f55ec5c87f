package models

const KindCompany = "company"

// Company is the root aggregate of the directory.
type Company struct {
	ID           string `json:"id" gorm:"primaryKey;size:64"`
	Name         string `json:"name" gorm:"size:100;not null;uniqueIndex" validate:"required,min=2,max=100"`
	Description  string `json:"description,omitempty" gorm:"size:500" validate:"max=500"`
	Industry     string `json:"industry,omitempty" gorm:"size:50;index" validate:"max=50"`
	Size         string `json:"size,omitempty" gorm:"size:20" validate:"omitempty,oneof=startup small medium large enterprise"`
	Website      string `json:"website,omitempty" gorm:"size:255" validate:"omitempty,url"`
	Headquarters string `json:"headquarters,omitempty" gorm:"size:100" validate:"max=100"`
	FoundedYear  int    `json:"foundedYear,omitempty" validate:"omitempty,min=1800,notfuture"`
	Status       string `json:"status" gorm:"size:20;not null;index" validate:"required,oneof=active inactive suspended"`
	Timestamps
}

// CompanyInput carries the client-writable fields of a new Company.
type CompanyInput struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	Industry     string `json:"industry"`
	Size         string `json:"size"`
	Website      string `json:"website"`
	Headquarters string `json:"headquarters"`
	FoundedYear  int    `json:"foundedYear"`
	Status       string `json:"status"`
}

// CompanyUpdate holds a partial update. Nil fields are left unchanged.
type CompanyUpdate struct {
	Name         *string `json:"name" validate:"omitempty,min=2,max=100"`
	Description  *string `json:"description" validate:"omitempty,max=500"`
	Industry     *string `json:"industry" validate:"omitempty,max=50"`
	Size         *string `json:"size" validate:"omitempty,oneof=startup small medium large enterprise"`
	Website      *string `json:"website" validate:"omitempty,url"`
	Headquarters *string `json:"headquarters" validate:"omitempty,max=100"`
	FoundedYear  *int    `json:"foundedYear" validate:"omitempty,min=1800,notfuture"`
	Status       *string `json:"status" validate:"omitempty,oneof=active inactive suspended"`
}

// NewCompany builds a validated Company, defaulting status to active.
func NewCompany(in CompanyInput) (*Company, error) {
	c := &Company{
		Name:         in.Name,
		Description:  in.Description,
		Industry:     in.Industry,
		Size:         in.Size,
		Website:      in.Website,
		Headquarters: in.Headquarters,
		FoundedYear:  in.FoundedYear,
		Status:       in.Status,
	}
	if c.Status == "" {
		c.Status = StatusActive
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	c.stampCreated()
	return c, nil
}

func (c *Company) EntityID() string   { return c.ID }
func (c *Company) EntityKind() string { return KindCompany }

func (c *Company) Validate() error { return check(c) }

func (u *CompanyUpdate) Validate() error { return check(u) }

// Update applies the non-nil fields of u.
func (c *Company) Update(u CompanyUpdate) {
	setString(&c.Name, u.Name)
	setString(&c.Description, u.Description)
	setString(&c.Industry, u.Industry)
	setString(&c.Size, u.Size)
	setString(&c.Website, u.Website)
	setString(&c.Headquarters, u.Headquarters)
	if u.FoundedYear != nil {
		c.FoundedYear = *u.FoundedYear
	}
	setString(&c.Status, u.Status)
	c.touch()
}

func (c *Company) SoftDelete() {
	c.markDeleted()
	c.Status = StatusInactive
}

func (c *Company) IsActive() bool {
	return c.Status == StatusActive && !c.IsDeleted()
}

func (c *Company) Clone() *Company {
	cp := *c
	cp.Timestamps = c.Timestamps.clone()
	return &cp
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
