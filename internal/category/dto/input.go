package dto

type CreateCategoryInput struct {
	CompanyID   string
	ParentID    *string
	Name        string
	Description string
	SortOrder   int
}

type UpdateCategoryInput struct {
	ID          string
	CompanyID   string
	ParentID    *string // nil moves the category to the root
	Name        string
	Description string
	SortOrder   int
}
