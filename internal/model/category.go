package model

type Category struct {
	BaseModel
	CompanyID   string  `db:"company_id" json:"company_id"`
	ParentID    *string `db:"parent_id" json:"parent_id"` // Nullable
	Name        string  `db:"name" json:"name"`
	Description *string `db:"description" json:"description"`
	SortOrder   int     `db:"sort_order" json:"sort_order"`
}

// IsRoot reports whether the category has no parent.
func (c Category) IsRoot() bool {
	return c.ParentID == nil || *c.ParentID == ""
}
