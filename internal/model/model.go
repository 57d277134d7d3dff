// Package model holds the data types shared across the ingestion,
// fusion, and REST layers: the live Vehicle/Alert entities decoded from
// the realtime feed, and the static Route/Stop/Trip/Shape entities
// joined from the GTFS schedule bundle.
package model

// Vehicle is one physical unit currently reported by the realtime feed.
// Id, RouteID and TripID are fixed to strings for this deployment: the
// upstream feed encodes them as opaque strings, and GTFS static ids are
// always strings, so there is no numeric/string ambiguity to resolve
// per-request.
type Vehicle struct {
	ID      string
	RouteID string
	TripID  string
	Lat     float64
	Lon     float64
}

// Valid reports whether every field required by spec is present.
func (v Vehicle) Valid() bool {
	return v.ID != "" && v.RouteID != "" && v.TripID != ""
}

// Alert is a minimal projection of a GTFS-Realtime service alert entity,
// supplementing the core vehicle/schedule fusion with the informational
// alerts the upstream agency publishes alongside positions.
type Alert struct {
	ID          string
	Cause       string
	Effect      string
	HeaderText  string
	Description string
}

// Route is a GTFS route (routes.txt).
type Route struct {
	ID        string `json:"id"`
	ShortName string `json:"shortName"`
	LongName  string `json:"longName"`
	Type      int    `json:"type"`
	Color     string `json:"color"`
}

// Stop is a GTFS stop (stops.txt). TripsThatStopHere is the inverse
// index built during the schedule join: every trip id whose stop_times
// reference this stop, used by the fusion engine's active-stop test.
type Stop struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	Lat               float64         `json:"lat"`
	Lon               float64         `json:"lon"`
	Parent            string          `json:"parent,omitempty"`
	Type              int             `json:"type"`
	Wheelchair        int             `json:"wheelchair"`
	TripsThatStopHere map[string]bool `json:"-"`
}

// SimpleStop is the compact projection used by /schedule/simple-stops.
type SimpleStop struct {
	ID   string  `json:"id"`
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// Trip is a GTFS trip (trips.txt), with its ordered list of stop ids
// built from stop_times during the schedule join.
type Trip struct {
	ID        string   `json:"id"`
	RouteID   string   `json:"routeId"`
	ServiceID string   `json:"serviceId"`
	Headsign  string   `json:"headsign"`
	Direction int      `json:"direction"`
	ShapeID   string   `json:"shapeId,omitempty"`
	StopIDs   []string `json:"stopIds"`
}

// LatLon is an ordered coordinate pair.
type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}
