package dto

type CategoryFilters struct {
	CompanyID string
	ParentID  *string // Nil means ignore, Empty string means root categories
}

// CategoryOption is one entry of a parent picker, in tree order.
type CategoryOption struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	ParentID *string `json:"parent_id"`
	Depth    int     `json:"depth"`
}

// DeleteResult lists every category removed by a cascading delete.
type DeleteResult struct {
	DeletedIDs []string `json:"deleted_ids"`
}
