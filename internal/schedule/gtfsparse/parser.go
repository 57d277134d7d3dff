package gtfsparse

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// requiredFiles are fatal-if-missing for the tick per spec §4.2 step 4.
var requiredFiles = []string{"routes.txt", "trips.txt", "stops.txt", "shapes.txt", "stop_times.txt"}

// Parse reads a GTFS zip from raw bytes (already fetched by the
// schedule fetcher) and returns the flat table data. A missing required
// entry is a fatal error for the tick; a malformed row within a present
// file is dropped and parsing continues, matching the teacher's
// static/gtfs.Parse behavior.
func Parse(zipBytes []byte) (*Data, error) {
	r, err := zip.NewReader(bytes.NewReader(zipBytes), int64(len(zipBytes)))
	if err != nil {
		return nil, fmt.Errorf("open gtfs zip: %w", err)
	}

	files := make(map[string]*zip.File, len(r.File))
	for _, f := range r.File {
		files[f.Name] = f
	}

	for _, name := range requiredFiles {
		if _, ok := files[name]; !ok {
			return nil, fmt.Errorf("gtfs zip missing required file %s", name)
		}
	}

	data := &Data{}

	if err := readCSV(files["routes.txt"], func(idx map[string]int, rec []string) bool {
		routeType, err := strconv.Atoi(field(rec, idx, "route_type"))
		if err != nil {
			return false
		}
		data.Routes = append(data.Routes, Route{
			RouteID:        field(rec, idx, "route_id"),
			RouteShortName: field(rec, idx, "route_short_name"),
			RouteLongName:  field(rec, idx, "route_long_name"),
			RouteType:      routeType,
			RouteColor:     field(rec, idx, "route_color"),
		})
		return true
	}); err != nil {
		return nil, fmt.Errorf("parse routes.txt: %w", err)
	}

	if err := readCSV(files["stops.txt"], func(idx map[string]int, rec []string) bool {
		lat, err := strconv.ParseFloat(field(rec, idx, "stop_lat"), 64)
		if err != nil {
			return false
		}
		lon, err := strconv.ParseFloat(field(rec, idx, "stop_lon"), 64)
		if err != nil {
			return false
		}
		locType, err := strconv.Atoi(field(rec, idx, "location_type"))
		if err != nil {
			return false
		}
		wheelchair, err := strconv.Atoi(field(rec, idx, "wheelchair_boarding"))
		if err != nil {
			return false
		}
		data.Stops = append(data.Stops, Stop{
			StopID:        field(rec, idx, "stop_id"),
			StopName:      field(rec, idx, "stop_name"),
			StopLat:       lat,
			StopLon:       lon,
			LocationType:  locType,
			ParentStation: field(rec, idx, "parent_station"),
			Wheelchair:    wheelchair,
		})
		return true
	}); err != nil {
		return nil, fmt.Errorf("parse stops.txt: %w", err)
	}

	if err := readCSV(files["trips.txt"], func(idx map[string]int, rec []string) bool {
		direction, err := strconv.Atoi(field(rec, idx, "direction_id"))
		if err != nil {
			return false
		}
		data.Trips = append(data.Trips, Trip{
			TripID:       field(rec, idx, "trip_id"),
			RouteID:      field(rec, idx, "route_id"),
			ServiceID:    field(rec, idx, "service_id"),
			TripHeadsign: field(rec, idx, "trip_headsign"),
			DirectionID:  direction,
			ShapeID:      field(rec, idx, "shape_id"),
		})
		return true
	}); err != nil {
		return nil, fmt.Errorf("parse trips.txt: %w", err)
	}

	if err := readCSV(files["shapes.txt"], func(idx map[string]int, rec []string) bool {
		lat, err := strconv.ParseFloat(field(rec, idx, "shape_pt_lat"), 64)
		if err != nil {
			return false
		}
		lon, err := strconv.ParseFloat(field(rec, idx, "shape_pt_lon"), 64)
		if err != nil {
			return false
		}
		seq, err := strconv.Atoi(field(rec, idx, "shape_pt_sequence"))
		if err != nil {
			return false
		}
		data.Shapes = append(data.Shapes, ShapePoint{
			ShapeID:         field(rec, idx, "shape_id"),
			ShapePtLat:      lat,
			ShapePtLon:      lon,
			ShapePtSequence: seq,
		})
		return true
	}); err != nil {
		return nil, fmt.Errorf("parse shapes.txt: %w", err)
	}

	if err := readCSV(files["stop_times.txt"], func(idx map[string]int, rec []string) bool {
		seq, err := strconv.Atoi(field(rec, idx, "stop_sequence"))
		if err != nil {
			return false
		}
		data.StopTimes = append(data.StopTimes, StopTime{
			TripID:       field(rec, idx, "trip_id"),
			StopID:       field(rec, idx, "stop_id"),
			StopSequence: seq,
		})
		return true
	}); err != nil {
		return nil, fmt.Errorf("parse stop_times.txt: %w", err)
	}

	return data, nil
}

// readCSV streams rows from f, calling fn for each row read. A row that
// fails to read at the CSV level (ragged quoting, such as a bare quote in
// an unquoted field) or that fn rejects (a field failed to parse as its
// expected numeric type) is dropped entirely and the next row is
// attempted, matching the original source's row-level
// filter_map(Result::ok) behavior: a bad field drops the whole row rather
// than silently keeping a zero value. A row whose field count differs
// from the header's is still read (FieldsPerRecord = -1); a column it
// lacks reads as an empty string.
func readCSV(f *zip.File, fn func(idx map[string]int, rec []string) bool) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	reader := csv.NewReader(rc)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return err
	}
	idx := indexHeader(header)

	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}
		fn(idx, rec)
	}
	return nil
}

func indexHeader(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(h)] = i
	}
	return idx
}

func field(rec []string, idx map[string]int, name string) string {
	if i, ok := idx[name]; ok && i < len(rec) {
		return strings.TrimSpace(rec[i])
	}
	return ""
}
