// Package workflow holds the complaint submission state machine. It performs
// no I/O: every check here is local and every transition is synchronous.
package workflow

import (
	"fmt"
	"math"
	"strings"

	"github.com/civicseva/civic-complaints/internal/domain"
)

// MaxPhotos caps evidence attachments per complaint.
const MaxPhotos = 5

// Stage is a step of the submission wizard.
type Stage int

const (
	StageLocation Stage = iota
	StageEvidence
	StageCategorization
	StageDuplicateOffered
	StageSubmitted
	StageVoted
)

func (s Stage) String() string {
	switch s {
	case StageLocation:
		return "location"
	case StageEvidence:
		return "evidence"
	case StageCategorization:
		return "categorization"
	case StageDuplicateOffered:
		return "duplicate_offered"
	case StageSubmitted:
		return "submitted"
	case StageVoted:
		return "voted"
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// LocationSource records how the coordinate was obtained.
type LocationSource string

const (
	SourceDevice LocationSource = "device"
	SourceMap    LocationSource = "map"
)

// DeviceFix is the device geolocation result; Err is set when the device refused or failed.
type DeviceFix struct {
	Lat float64
	Lng float64
	Err error
}

// Location is the confirmed complaint position.
type Location struct {
	Point   domain.GeoPoint
	Source  LocationSource
	Geocode string
}

// Photo is an evidence attachment held until commit.
type Photo struct {
	Name        string
	ContentType string
	Data        []byte
}

// Transcript is a final speech-to-text result. ErrCode is set on failure.
type Transcript struct {
	Text    string
	ErrCode string
}

// Draft is a complete submission ready to be committed.
type Draft struct {
	Location    Location
	Title       string
	Description string
	CategoryID  string
	Severity    domain.Severity
	Photos      []Photo
	Force       bool
}

// Submission walks a complaint through Location, Evidence and
// Categorization. Stages only move forward.
type Submission struct {
	stage       Stage
	categories  map[string]domain.Category
	location    *Location
	title       string
	description string
	photos      []Photo
	categoryID  string
	severity    domain.Severity
	offered     *domain.DuplicateMatch
	forced      bool
	complaintID string
}

// NewSubmission starts a wizard against the loaded category set.
func NewSubmission(categories []domain.Category) *Submission {
	set := make(map[string]domain.Category, len(categories))
	for _, cat := range categories {
		set[cat.ID] = cat
	}
	return &Submission{stage: StageLocation, categories: set}
}

// Stage returns the current stage.
func (s *Submission) Stage() Stage { return s.stage }

// Location returns the confirmed location, if any.
func (s *Submission) Location() *Location {
	if s.location == nil {
		return nil
	}
	loc := *s.location
	return &loc
}

// Title returns the current title.
func (s *Submission) Title() string { return s.title }

// Description returns the current description.
func (s *Submission) Description() string { return s.description }

// Photos returns a copy of the attached photos.
func (s *Submission) Photos() []Photo {
	out := make([]Photo, len(s.photos))
	copy(out, s.photos)
	return out
}

// Offered returns the duplicate presented to the actor, if any.
func (s *Submission) Offered() *domain.DuplicateMatch { return s.offered }

// ComplaintID is set once the submission was committed.
func (s *Submission) ComplaintID() string { return s.complaintID }

// Geocode derives the display token for a coordinate.
func Geocode(p domain.GeoPoint) string {
	return fmt.Sprintf("DL-%d-%d", int64(math.Floor(p.Lat*1000)), int64(math.Floor(p.Lng*1000)))
}

// UseDeviceFix sets the location from a device reading. A failed reading
// leaves the submission unchanged.
func (s *Submission) UseDeviceFix(fix DeviceFix) error {
	if fix.Err != nil {
		return fix.Err
	}
	return s.setLocation(domain.GeoPoint{Lat: fix.Lat, Lng: fix.Lng}, SourceDevice)
}

// PickOnMap sets the location from a manually chosen coordinate.
func (s *Submission) PickOnMap(lat, lng float64) error {
	return s.setLocation(domain.GeoPoint{Lat: lat, Lng: lng}, SourceMap)
}

func (s *Submission) setLocation(p domain.GeoPoint, source LocationSource) error {
	if s.stage != StageLocation {
		return &StageError{Op: "set location", Current: s.stage}
	}
	if !p.Valid() {
		return &ValidationError{Field: "location", Message: "coordinates out of range"}
	}
	s.location = &Location{Point: p, Source: source, Geocode: Geocode(p)}
	return nil
}

// ToEvidence confirms the location.
func (s *Submission) ToEvidence() error {
	if s.stage != StageLocation {
		return &StageError{Op: "confirm location", Current: s.stage}
	}
	if s.location == nil {
		return required("location")
	}
	s.stage = StageEvidence
	return nil
}

// SetTitle stores the raw title; it is trimmed when the stage is confirmed.
func (s *Submission) SetTitle(title string) error {
	if s.stage != StageEvidence {
		return &StageError{Op: "set title", Current: s.stage}
	}
	s.title = title
	return nil
}

// SetDescription replaces the description.
func (s *Submission) SetDescription(description string) error {
	if s.stage != StageEvidence {
		return &StageError{Op: "set description", Current: s.stage}
	}
	s.description = description
	return nil
}

// AppendTranscript adds recognized speech to the description, separated by
// a single space. A failed recognition leaves the description untouched.
func (s *Submission) AppendTranscript(t Transcript) error {
	if s.stage != StageEvidence {
		return &StageError{Op: "append transcript", Current: s.stage}
	}
	if t.ErrCode != "" {
		return &TranscriptError{Code: t.ErrCode}
	}
	text := strings.TrimSpace(t.Text)
	if text == "" {
		return nil
	}
	current := strings.TrimRight(s.description, " ")
	if current == "" {
		s.description = text
	} else {
		s.description = current + " " + text
	}
	return nil
}

// AddPhotos attaches photos. A batch that would exceed MaxPhotos is rejected
// whole and returns ErrPhotoLimit.
func (s *Submission) AddPhotos(photos ...Photo) error {
	if s.stage != StageEvidence {
		return &StageError{Op: "add photo", Current: s.stage}
	}
	if len(s.photos)+len(photos) > MaxPhotos {
		return ErrPhotoLimit
	}
	for _, p := range photos {
		if len(p.Data) == 0 {
			return &ValidationError{Field: "photos", Message: fmt.Sprintf("%q is empty", p.Name)}
		}
	}
	s.photos = append(s.photos, photos...)
	return nil
}

// RemovePhoto drops the attachment at index i.
func (s *Submission) RemovePhoto(i int) error {
	if s.stage != StageEvidence {
		return &StageError{Op: "remove photo", Current: s.stage}
	}
	if i < 0 || i >= len(s.photos) {
		return &ValidationError{Field: "photos", Message: fmt.Sprintf("no photo at index %d", i)}
	}
	s.photos = append(s.photos[:i], s.photos[i+1:]...)
	return nil
}

// ToCategorization confirms the evidence.
func (s *Submission) ToCategorization() error {
	if s.stage != StageEvidence {
		return &StageError{Op: "confirm evidence", Current: s.stage}
	}
	if s.location == nil {
		return required("location")
	}
	title := strings.TrimSpace(s.title)
	if title == "" {
		return required("title")
	}
	description := strings.TrimSpace(s.description)
	if description == "" {
		return required("description")
	}
	s.title = title
	s.description = description
	s.stage = StageCategorization
	return nil
}

// SetCategorization picks one loaded category and a severity.
func (s *Submission) SetCategorization(categoryID string, severity domain.Severity) error {
	if s.stage != StageCategorization {
		return &StageError{Op: "set category", Current: s.stage}
	}
	if _, ok := s.categories[categoryID]; !ok {
		return &ValidationError{Field: "category_id", Message: "unknown category"}
	}
	if !severity.Valid() {
		return &ValidationError{Field: "severity", Message: "must be one of low, medium, high, critical"}
	}
	s.categoryID = categoryID
	s.severity = severity
	return nil
}

// Ready returns the draft to commit. It is available in Categorization once
// category and severity are chosen, or after the actor chose to submit anyway.
func (s *Submission) Ready() (Draft, error) {
	switch {
	case s.stage == StageCategorization:
	case s.stage == StageDuplicateOffered && s.forced:
	default:
		return Draft{}, &StageError{Op: "commit", Current: s.stage}
	}
	if s.categoryID == "" {
		return Draft{}, required("category_id")
	}
	if s.severity == "" {
		return Draft{}, required("severity")
	}
	return Draft{
		Location:    *s.location,
		Title:       s.title,
		Description: s.description,
		CategoryID:  s.categoryID,
		Severity:    s.severity,
		Photos:      s.Photos(),
		Force:       s.forced,
	}, nil
}

// OfferDuplicate suspends the submission on an existing matching complaint.
func (s *Submission) OfferDuplicate(match domain.DuplicateMatch) error {
	if s.stage != StageCategorization {
		return &StageError{Op: "offer duplicate", Current: s.stage}
	}
	s.offered = &match
	s.stage = StageDuplicateOffered
	return nil
}

// ChooseVote abandons the submission in favor of voting on the offered
// complaint and returns its id.
func (s *Submission) ChooseVote() (string, error) {
	if s.stage != StageDuplicateOffered || s.forced {
		return "", &StageError{Op: "vote instead", Current: s.stage}
	}
	s.stage = StageVoted
	return s.offered.Complaint.ID, nil
}

// ChooseSubmitAnyway keeps the new complaint despite the offered duplicate.
func (s *Submission) ChooseSubmitAnyway() error {
	if s.stage != StageDuplicateOffered {
		return &StageError{Op: "submit anyway", Current: s.stage}
	}
	s.forced = true
	return nil
}

// SkipDuplicateCheck marks the submission as already confirmed by the actor.
func (s *Submission) SkipDuplicateCheck() error {
	if s.stage != StageCategorization {
		return &StageError{Op: "skip duplicate check", Current: s.stage}
	}
	s.forced = true
	return nil
}

// Forced reports whether the duplicate check is to be bypassed.
func (s *Submission) Forced() bool { return s.forced }

// MarkSubmitted records the committed complaint id.
func (s *Submission) MarkSubmitted(complaintID string) error {
	if _, err := s.Ready(); err != nil {
		return err
	}
	s.complaintID = complaintID
	s.stage = StageSubmitted
	return nil
}
