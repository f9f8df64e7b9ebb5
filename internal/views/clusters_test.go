package views

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicseva/civic-complaints/internal/domain"
)

func complaintAt(id string, lat, lng float64) domain.Complaint {
	return domain.Complaint{ID: id, Location: domain.GeoPoint{Lat: lat, Lng: lng}, Status: domain.ComplaintStatusOpen}
}

func TestClassifySize(t *testing.T) {
	cases := map[int]SizeClass{
		1:  SizeSmall,
		9:  SizeSmall,
		10: SizeMedium,
		29: SizeMedium,
		30: SizeLarge,
		99: SizeLarge,
	}
	for count, want := range cases {
		assert.Equal(t, want, ClassifySize(count), "count %d", count)
	}
}

func TestBuildClustersOneMarkerPerComplaint(t *testing.T) {
	var complaints []domain.Complaint
	for i := 0; i < 12; i++ {
		complaints = append(complaints, complaintAt(fmt.Sprintf("near-%d", i), 28.6100+float64(i)*0.0001, 77.2000))
	}
	complaints = append(complaints, complaintAt("far", 19.07, 72.87))

	clusters := BuildClusters(complaints, 10)
	require.Len(t, clusters, 2)

	total := 0
	seen := map[string]bool{}
	for _, c := range clusters {
		total += c.Count
		assert.Len(t, c.Markers, c.Count)
		for _, m := range c.Markers {
			assert.False(t, seen[m.ComplaintID], "duplicate marker %s", m.ComplaintID)
			seen[m.ComplaintID] = true
		}
	}
	assert.Equal(t, len(complaints), total)

	assert.Equal(t, 12, clusters[0].Count)
	assert.Equal(t, SizeMedium, clusters[0].Size)
	assert.Equal(t, SizeSmall, clusters[1].Size)
	assert.InDelta(t, 28.61055, clusters[0].Center.Lat, 1e-9)
}

func TestHigherZoomSplitsClusters(t *testing.T) {
	complaints := []domain.Complaint{
		complaintAt("a", 28.61, 77.20),
		complaintAt("b", 28.65, 77.25),
	}
	assert.Len(t, BuildClusters(complaints, 5), 1)
	assert.Len(t, BuildClusters(complaints, 15), 2)
}

func TestBuildClustersSkipsInvalidLocations(t *testing.T) {
	complaints := []domain.Complaint{complaintAt("ok", 28.61, 77.20), complaintAt("bad", 200, 77.20)}
	clusters := BuildClusters(complaints, 12)
	require.Len(t, clusters, 1)
	assert.Equal(t, "ok", clusters[0].Markers[0].ComplaintID)
}

func TestClampZoom(t *testing.T) {
	assert.Equal(t, MinZoom, ClampZoom(-3))
	assert.Equal(t, MaxZoom, ClampZoom(40))
	assert.Equal(t, 12, ClampZoom(12))
}
