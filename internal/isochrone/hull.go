package isochrone

import (
	"sort"

	"github.com/paulmach/orb"
)

// convexHull computes the convex hull of a point cloud with the monotone
// chain algorithm and returns it as a closed ring in counter-clockwise
// order. Fewer than three distinct points yield a nil ring.
func convexHull(points []orb.Point) orb.Ring {
	if len(points) < 3 {
		return nil
	}

	sorted := make([]orb.Point, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i][0] != sorted[j][0] {
			return sorted[i][0] < sorted[j][0]
		}
		return sorted[i][1] < sorted[j][1]
	})

	// Drop duplicates so collinear duplicate points cannot break the chain.
	unique := sorted[:1]
	for _, p := range sorted[1:] {
		if p != unique[len(unique)-1] {
			unique = append(unique, p)
		}
	}
	if len(unique) < 3 {
		return nil
	}

	var lower []orb.Point
	for _, p := range unique {
		for len(lower) >= 2 && cross(lower[len(lower)-2], lower[len(lower)-1], p) <= 0 {
			lower = lower[:len(lower)-1]
		}
		lower = append(lower, p)
	}

	var upper []orb.Point
	for i := len(unique) - 1; i >= 0; i-- {
		p := unique[i]
		for len(upper) >= 2 && cross(upper[len(upper)-2], upper[len(upper)-1], p) <= 0 {
			upper = upper[:len(upper)-1]
		}
		upper = append(upper, p)
	}

	hull := append(lower[:len(lower)-1], upper[:len(upper)-1]...)
	if len(hull) < 3 {
		return nil
	}

	ring := make(orb.Ring, 0, len(hull)+1)
	ring = append(ring, hull...)
	ring = append(ring, hull[0])
	return ring
}

// cross is the z-component of (b-a) x (c-a); positive for a left turn.
func cross(a, b, c orb.Point) float64 {
	return (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
}
