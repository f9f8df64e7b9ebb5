// Package views builds read-side projections of complaints for dashboards.
package views

import (
	"math"
	"sort"

	"github.com/civicseva/civic-complaints/internal/domain"
)

const (
	MinZoom     = 0
	MaxZoom     = 20
	DefaultZoom = 12

	// cell edge at zoom 0, in degrees
	baseCellDegrees = 45.0
)

// SizeClass buckets a cluster by how many complaints it holds.
type SizeClass string

const (
	SizeSmall  SizeClass = "small"
	SizeMedium SizeClass = "medium"
	SizeLarge  SizeClass = "large"
)

// ClassifySize returns small below 10, medium below 30 and large otherwise.
func ClassifySize(count int) SizeClass {
	switch {
	case count >= 30:
		return SizeLarge
	case count >= 10:
		return SizeMedium
	default:
		return SizeSmall
	}
}

// Marker is one complaint on the map.
type Marker struct {
	ComplaintID string
	Point       domain.GeoPoint
	Title       string
	Status      domain.ComplaintStatus
	Severity    domain.Severity
	Category    *domain.Category
}

// Cluster groups markers that fall into the same grid cell.
type Cluster struct {
	Center  domain.GeoPoint
	Count   int
	Size    SizeClass
	Markers []Marker
}

// ClampZoom keeps zoom within the supported range.
func ClampZoom(zoom int) int {
	if zoom < MinZoom {
		return MinZoom
	}
	if zoom > MaxZoom {
		return MaxZoom
	}
	return zoom
}

// CellDegrees is the grid cell edge used at zoom.
func CellDegrees(zoom int) float64 {
	return baseCellDegrees / math.Exp2(float64(ClampZoom(zoom)))
}

type cellKey struct {
	row int64
	col int64
}

// BuildClusters buckets complaints into a lat/lng grid sized by zoom. Every
// complaint with a valid location appears in exactly one cluster. Clusters
// are ordered by descending count, then by position.
func BuildClusters(complaints []domain.Complaint, zoom int) []Cluster {
	cell := CellDegrees(zoom)
	buckets := make(map[cellKey]*Cluster)
	sums := make(map[cellKey]*domain.GeoPoint)

	for _, c := range complaints {
		if !c.Location.Valid() {
			continue
		}
		key := cellKey{
			row: int64(math.Floor(c.Location.Lat / cell)),
			col: int64(math.Floor(c.Location.Lng / cell)),
		}
		cluster, ok := buckets[key]
		if !ok {
			cluster = &Cluster{}
			buckets[key] = cluster
			sums[key] = &domain.GeoPoint{}
		}
		cluster.Markers = append(cluster.Markers, Marker{
			ComplaintID: c.ID,
			Point:       c.Location,
			Title:       c.Title,
			Status:      c.Status,
			Severity:    c.Severity,
			Category:    c.Category,
		})
		sums[key].Lat += c.Location.Lat
		sums[key].Lng += c.Location.Lng
	}

	result := make([]Cluster, 0, len(buckets))
	for key, cluster := range buckets {
		n := len(cluster.Markers)
		cluster.Count = n
		cluster.Size = ClassifySize(n)
		cluster.Center = domain.GeoPoint{Lat: sums[key].Lat / float64(n), Lng: sums[key].Lng / float64(n)}
		result = append(result, *cluster)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		if result[i].Center.Lat != result[j].Center.Lat {
			return result[i].Center.Lat < result[j].Center.Lat
		}
		return result[i].Center.Lng < result[j].Center.Lng
	})
	return result
}
