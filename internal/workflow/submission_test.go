package workflow

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicseva/civic-complaints/internal/domain"
)

var testCategories = []domain.Category{
	{ID: "road", Name: "Road Damage", Icon: "🛣️"},
	{ID: "garbage", Name: "Garbage & Waste", Icon: "🗑️"},
}

func photo(name string) Photo {
	return Photo{Name: name, ContentType: "image/jpeg", Data: []byte{0xff, 0xd8}}
}

func atEvidence(t *testing.T) *Submission {
	t.Helper()
	s := NewSubmission(testCategories)
	require.NoError(t, s.PickOnMap(28.61, 77.20))
	require.NoError(t, s.ToEvidence())
	return s
}

func atCategorization(t *testing.T) *Submission {
	t.Helper()
	s := atEvidence(t)
	require.NoError(t, s.SetTitle("  Pothole "))
	require.NoError(t, s.SetDescription("Large pothole"))
	require.NoError(t, s.ToCategorization())
	require.NoError(t, s.SetCategorization("road", domain.SeverityHigh))
	return s
}

func TestGeocode(t *testing.T) {
	assert.Equal(t, "DL-28610-77200", Geocode(domain.GeoPoint{Lat: 28.61, Lng: 77.2}))
	assert.Equal(t, "DL--1-0", Geocode(domain.GeoPoint{Lat: -0.0005, Lng: 0.0005}))
}

func TestLocationStage(t *testing.T) {
	t.Run("evidence requires a location", func(t *testing.T) {
		s := NewSubmission(testCategories)
		err := s.ToEvidence()
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "location", verr.Field)
		assert.Equal(t, StageLocation, s.Stage())
	})

	t.Run("device failure leaves state unchanged", func(t *testing.T) {
		s := NewSubmission(testCategories)
		err := s.UseDeviceFix(DeviceFix{Err: ErrLocationDenied})
		assert.ErrorIs(t, err, ErrLocationDenied)
		assert.Nil(t, s.Location())
	})

	t.Run("device fix derives geocode", func(t *testing.T) {
		s := NewSubmission(testCategories)
		require.NoError(t, s.UseDeviceFix(DeviceFix{Lat: 28.61, Lng: 77.20}))
		loc := s.Location()
		require.NotNil(t, loc)
		assert.Equal(t, SourceDevice, loc.Source)
		assert.Equal(t, "DL-28610-77200", loc.Geocode)
	})

	t.Run("rejects out of range coordinates", func(t *testing.T) {
		s := NewSubmission(testCategories)
		assert.Error(t, s.PickOnMap(91, 0))
		assert.Nil(t, s.Location())
	})

	t.Run("location is fixed after confirmation", func(t *testing.T) {
		s := atEvidence(t)
		var serr *StageError
		assert.ErrorAs(t, s.PickOnMap(1, 1), &serr)
	})
}

func TestEvidenceStageRequiresTitleAndDescription(t *testing.T) {
	cases := []struct {
		name        string
		title       string
		description string
		field       string
	}{
		{"empty title", "", "desc", "title"},
		{"whitespace title", "   ", "desc", "title"},
		{"empty description", "Pothole", "", "description"},
		{"whitespace description", "Pothole", " \t ", "description"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := atEvidence(t)
			require.NoError(t, s.SetTitle(tc.title))
			require.NoError(t, s.SetDescription(tc.description))
			err := s.ToCategorization()
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.field, verr.Field)
			assert.Equal(t, StageEvidence, s.Stage())
		})
	}
}

func TestCategorizationTrimsFields(t *testing.T) {
	s := atCategorization(t)
	assert.Equal(t, "Pothole", s.Title())
	assert.Equal(t, StageCategorization, s.Stage())
}

func TestAppendTranscript(t *testing.T) {
	s := atEvidence(t)
	require.NoError(t, s.SetDescription("Large pothole"))

	require.NoError(t, s.AppendTranscript(Transcript{Text: "near the bus stop"}))
	assert.Equal(t, "Large pothole near the bus stop", s.Description())

	err := s.AppendTranscript(Transcript{ErrCode: "no-speech"})
	var terr *TranscriptError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "no-speech", terr.Code)
	assert.Equal(t, "Large pothole near the bus stop", s.Description())

	empty := atEvidence(t)
	require.NoError(t, empty.AppendTranscript(Transcript{Text: "water leaking"}))
	assert.Equal(t, "water leaking", empty.Description())
}

func TestPhotoLimit(t *testing.T) {
	s := atEvidence(t)
	for i := 0; i < MaxPhotos; i++ {
		require.NoError(t, s.AddPhotos(photo("p.jpg")))
	}

	err := s.AddPhotos(photo("sixth.jpg"))
	assert.Same(t, ErrPhotoLimit, err)
	assert.Equal(t, "Maximum 5 photos allowed", ErrPhotoLimit.Message)
	assert.Len(t, s.Photos(), MaxPhotos)

	require.NoError(t, s.RemovePhoto(0))
	assert.Len(t, s.Photos(), MaxPhotos-1)
	require.NoError(t, s.AddPhotos(photo("again.jpg")))
	assert.Len(t, s.Photos(), MaxPhotos)
}

func TestPhotoBatchIsAllOrNothing(t *testing.T) {
	s := atEvidence(t)
	require.NoError(t, s.AddPhotos(photo("a"), photo("b"), photo("c")))
	err := s.AddPhotos(photo("d"), photo("e"), photo("f"))
	assert.ErrorIs(t, err, ErrPhotoLimit)
	assert.Len(t, s.Photos(), 3)
}

func TestPhotoCountStaysInBounds(t *testing.T) {
	s := atEvidence(t)
	ops := []func() error{
		func() error { return s.AddPhotos(photo("1"), photo("2")) },
		func() error { return s.RemovePhoto(5) },
		func() error { return s.AddPhotos(photo("3"), photo("4"), photo("5"), photo("6")) },
		func() error { return s.RemovePhoto(1) },
		func() error { return s.AddPhotos(photo("7"), photo("8"), photo("9")) },
		func() error { return s.AddPhotos(photo("10")) },
		func() error { return s.RemovePhoto(0) },
	}
	for _, op := range ops {
		_ = op()
		n := len(s.Photos())
		assert.GreaterOrEqual(t, n, 0)
		assert.LessOrEqual(t, n, MaxPhotos)
	}
}

func TestRemovePhotoOutOfRange(t *testing.T) {
	s := atEvidence(t)
	assert.Error(t, s.RemovePhoto(0))
	assert.Error(t, s.RemovePhoto(-1))
}

func TestSetCategorizationValidates(t *testing.T) {
	s := atEvidence(t)
	require.NoError(t, s.SetTitle("Pothole"))
	require.NoError(t, s.SetDescription("Large pothole"))
	require.NoError(t, s.ToCategorization())

	var verr *ValidationError
	require.ErrorAs(t, s.SetCategorization("unknown", domain.SeverityHigh), &verr)
	assert.Equal(t, "category_id", verr.Field)
	require.ErrorAs(t, s.SetCategorization("road", "urgent"), &verr)
	assert.Equal(t, "severity", verr.Field)

	_, err := s.Ready()
	assert.Error(t, err)
}

func TestReadyBuildsDraft(t *testing.T) {
	s := atEvidence(t)
	require.NoError(t, s.SetTitle("Pothole"))
	require.NoError(t, s.SetDescription("Large pothole"))
	require.NoError(t, s.AddPhotos(photo("a.jpg"), photo("b.jpg")))
	require.NoError(t, s.ToCategorization())
	require.NoError(t, s.SetCategorization("road", domain.SeverityHigh))

	draft, err := s.Ready()
	require.NoError(t, err)
	assert.Equal(t, "Pothole", draft.Title)
	assert.Equal(t, "Large pothole", draft.Description)
	assert.Equal(t, "road", draft.CategoryID)
	assert.Equal(t, domain.SeverityHigh, draft.Severity)
	assert.Equal(t, "DL-28610-77200", draft.Location.Geocode)
	assert.Len(t, draft.Photos, 2)
	assert.False(t, draft.Force)
}

func TestDuplicateOfferedThenVote(t *testing.T) {
	s := atCategorization(t)
	match := domain.DuplicateMatch{Complaint: domain.Complaint{ID: "existing"}, DistanceMeters: 12}
	require.NoError(t, s.OfferDuplicate(match))
	assert.Equal(t, StageDuplicateOffered, s.Stage())

	_, err := s.Ready()
	assert.Error(t, err, "no commit until the actor decides")

	id, err := s.ChooseVote()
	require.NoError(t, err)
	assert.Equal(t, "existing", id)
	assert.Equal(t, StageVoted, s.Stage())
	assert.Error(t, s.MarkSubmitted("new"))
}

func TestDuplicateOfferedThenSubmitAnyway(t *testing.T) {
	s := atCategorization(t)
	require.NoError(t, s.OfferDuplicate(domain.DuplicateMatch{Complaint: domain.Complaint{ID: "existing"}}))
	require.NoError(t, s.ChooseSubmitAnyway())

	draft, err := s.Ready()
	require.NoError(t, err)
	assert.True(t, draft.Force)

	_, err = s.ChooseVote()
	assert.Error(t, err)

	require.NoError(t, s.MarkSubmitted("new-id"))
	assert.Equal(t, StageSubmitted, s.Stage())
	assert.Equal(t, "new-id", s.ComplaintID())
}

func TestStagesOnlyMoveForward(t *testing.T) {
	s := atCategorization(t)
	var serr *StageError
	assert.True(t, errors.As(s.ToEvidence(), &serr))
	assert.True(t, errors.As(s.SetTitle("x"), &serr))
	assert.True(t, errors.As(s.AddPhotos(photo("x")), &serr))
	assert.Equal(t, StageCategorization, s.Stage())
}
