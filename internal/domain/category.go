package domain

// Category is read-only reference data used to classify complaints.
type Category struct {
	ID   string
	Name string
	Icon string
}
