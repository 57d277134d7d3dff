package gtfsparse

import (
	"archive/zip"
	"bytes"
	"testing"
)

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		f, err := w.Create(name)
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		if _, err := f.Write([]byte(content)); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func minimalFeed() map[string]string {
	return map[string]string{
		"routes.txt":     "route_id,route_short_name,route_long_name,route_type,route_color\nR1,1,Route One,3,FF0000\n",
		"trips.txt":      "trip_id,route_id,service_id,trip_headsign,direction_id,shape_id\nT1,R1,S1,Downtown,0,SH1\n",
		"stops.txt":      "stop_id,stop_name,stop_lat,stop_lon,parent_station,location_type,wheelchair_boarding\nS1,First,45.1,15.1,,0,0\nS2,Second,45.2,15.2,,0,0\n",
		"shapes.txt":     "shape_id,shape_pt_lat,shape_pt_lon,shape_pt_sequence\nSH1,45.1,15.1,0\nSH1,45.2,15.2,1\n",
		"stop_times.txt": "trip_id,arrival_time,departure_time,stop_id,stop_sequence\nT1,08:00:00,08:00:00,S1,0\nT1,08:05:00,08:05:00,S2,1\n",
	}
}

func TestParse_MinimalFeed(t *testing.T) {
	data, err := Parse(buildZip(t, minimalFeed()))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if len(data.Routes) != 1 {
		t.Errorf("routes = %d, want 1", len(data.Routes))
	}
	if len(data.Trips) != 1 {
		t.Errorf("trips = %d, want 1", len(data.Trips))
	}
	if len(data.Stops) != 2 {
		t.Errorf("stops = %d, want 2", len(data.Stops))
	}
	if len(data.StopTimes) != 2 {
		t.Errorf("stop_times = %d, want 2", len(data.StopTimes))
	}
}

func TestParse_MissingRequiredFile(t *testing.T) {
	files := minimalFeed()
	delete(files, "stops.txt")

	_, err := Parse(buildZip(t, files))
	if err == nil {
		t.Fatal("expected error for missing stops.txt, got nil")
	}
}

func TestParse_DropsMalformedRow(t *testing.T) {
	files := minimalFeed()
	// A row with a bare quote inside an unquoted field fails to read at
	// the CSV level; it is dropped, not fatal, and parsing continues.
	files["stops.txt"] += "S3,Third Stop With\"Unterminated\n"

	data, err := Parse(buildZip(t, files))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	// Only the two well-formed stop rows should have been kept.
	if len(data.Stops) != 2 {
		t.Errorf("stops = %d, want 2 (malformed row dropped)", len(data.Stops))
	}
}

func TestParse_DropsRowWithUnparsableNumericField(t *testing.T) {
	files := minimalFeed()
	// Structurally valid CSV, but stop_lat is not a float: the whole row
	// must be dropped, not kept with a zero latitude.
	files["stops.txt"] += "S3,Third,not-a-number,15.3,,0,0\n"

	data, err := Parse(buildZip(t, files))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(data.Stops) != 2 {
		t.Errorf("stops = %d, want 2 (row with bad numeric field dropped)", len(data.Stops))
	}
	for _, s := range data.Stops {
		if s.StopID == "S3" {
			t.Errorf("S3 should have been dropped entirely, got %+v", s)
		}
	}
}
