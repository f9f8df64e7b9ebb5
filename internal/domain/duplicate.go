package domain

// DuplicateMatch is an existing complaint that looks like a new submission.
type DuplicateMatch struct {
	Complaint      Complaint
	DistanceMeters float64
}
