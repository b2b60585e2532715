package entity

// DepartmentRecord is a catalog entry describing one government department.
// The catalog is owned by the portal's static content; the assistant only reads it.
type DepartmentRecord struct {
	Name        string   `json:"name" validate:"required"`
	Description string   `json:"description"`
	Link        string   `json:"link"`
	Services    []string `json:"services"`
	Keywords    []string `json:"keywords,omitempty"`
	Hours       *string  `json:"hours,omitempty"`
	Contact     *string  `json:"contact,omitempty"`
}

// ScoredDepartment pairs a record with its relevance score for a single query.
type ScoredDepartment struct {
	DepartmentRecord
	Score int
}
