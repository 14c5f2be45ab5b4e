package dto

type CompanyInput struct {
	ID        string // empty on create
	Name      string
	VATNumber string
	Address   string
}

type CreateUserInput struct {
	CompanyID string
	Email     string
	FullName  string
	Role      string // raw; normalised by the usecase
}

type UpdateUserInput struct {
	ID       string
	FullName string
	Role     string
	IsActive bool
}

type UserFilters struct {
	CompanyID string // empty lists every company
}
