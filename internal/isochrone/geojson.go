package isochrone

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// ToGeoJSON renders the non-skipped contours as a FeatureCollection of
// polygons, largest cutoff first so smaller rings draw on top.
func ToGeoJSON(resp *Response) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	for i := len(resp.Contours) - 1; i >= 0; i-- {
		contour := resp.Contours[i]
		if contour.Skipped || len(contour.Ring) < 4 {
			continue
		}

		ring := make(orb.Ring, len(contour.Ring))
		for j, p := range contour.Ring {
			ring[j] = orb.Point{p[0], p[1]}
		}

		feature := geojson.NewFeature(orb.Polygon{ring})
		feature.Properties["travel_time_minutes"] = contour.TravelTimeMin
		feature.Properties["area_km2"] = contour.AreaKm2
		feature.Properties["reachable_nodes"] = contour.ReachableNodes
		feature.Properties["transport_mode"] = resp.Mode
		feature.Properties["vertex_count"] = len(ring)

		bound := ring.Bound()
		feature.Properties["bounds"] = map[string][2]float64{
			"southwest": {bound.Min[1], bound.Min[0]},
			"northeast": {bound.Max[1], bound.Max[0]},
		}

		fc.Append(feature)
	}
	return fc
}
