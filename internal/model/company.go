package model

type Company struct {
	BaseModel
	Name      string `db:"name" json:"name"`
	VATNumber string `db:"vat_number" json:"vat_number"`
	Address   string `db:"address" json:"address"`
}

type User struct {
	BaseModel
	CompanyID string `db:"company_id" json:"company_id"`
	Email     string `db:"email" json:"email"`
	FullName  string `db:"full_name" json:"full_name"`
	Role      string `db:"role" json:"role"` // normalised auth.Role
	IsActive  bool   `db:"is_active" json:"is_active"`
}
