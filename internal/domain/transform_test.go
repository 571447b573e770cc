package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFeature() Feature {
	return Feature{
		Type:     "Feature",
		Geometry: &Geometry{Type: "Point", Coordinates: []float64{12.48344, 41.89219}},
		Properties: map[string]any{
			"ACQ_DATE":  "20260830",
			"ACQ_TIME":  "1445",
			"DATETIME":  "202608301445",
			"SATELLITE": "MTG-I1",
			"LATITUDE":  41.89219,
			"LONGITUDE": 12.48344,
			"FRP":       37.5,
		},
	}
}

func TestParseFeature(t *testing.T) {
	t.Run("full product feature", func(t *testing.T) {
		d, err := ParseFeature(testFeature())
		require.NoError(t, err)

		assert.Equal(t, "202608301445_MTG-I1_41.89219_12.48344", d.ID)
		assert.Equal(t, "MTG-I1", d.Satellite)
		assert.InEpsilon(t, 41.89219, d.Geo.Lat, 1e-9)
		assert.InEpsilon(t, 12.48344, d.Geo.Lon, 1e-9)
		assert.Equal(t, time.Date(2026, 8, 30, 14, 45, 0, 0, time.UTC), d.AcqTime)
		assert.InEpsilon(t, 37.5, d.FRP, 1e-9)
		assert.True(t, d.ProcessedAt.IsZero())
	})

	t.Run("three digit time is zero padded", func(t *testing.T) {
		f := testFeature()
		f.Properties["ACQ_TIME"] = "930"
		d, err := ParseFeature(f)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, 8, 30, 9, 30, 0, 0, time.UTC), d.AcqTime)
	})

	t.Run("string encoded coordinates", func(t *testing.T) {
		f := testFeature()
		f.Properties["LATITUDE"] = "41.89219"
		f.Properties["LONGITUDE"] = "12.48344"
		d, err := ParseFeature(f)
		require.NoError(t, err)
		assert.InEpsilon(t, 41.89219, d.Geo.Lat, 1e-9)
	})

	t.Run("coordinates fall back to geometry", func(t *testing.T) {
		f := testFeature()
		delete(f.Properties, "LATITUDE")
		delete(f.Properties, "LONGITUDE")
		d, err := ParseFeature(f)
		require.NoError(t, err)
		assert.InEpsilon(t, 41.89219, d.Geo.Lat, 1e-9)
		assert.InEpsilon(t, 12.48344, d.Geo.Lon, 1e-9)
	})

	t.Run("no properties", func(t *testing.T) {
		_, err := ParseFeature(Feature{Type: "Feature"})
		assert.Error(t, err)
	})

	t.Run("missing acquisition time", func(t *testing.T) {
		f := testFeature()
		delete(f.Properties, "ACQ_TIME")
		_, err := ParseFeature(f)
		assert.Error(t, err, "a feature without ACQ_TIME must not become a midnight detection")
	})

	t.Run("garbled date", func(t *testing.T) {
		f := testFeature()
		f.Properties["ACQ_DATE"] = "2026-08-30"
		_, err := ParseFeature(f)
		assert.Error(t, err)
	})

	t.Run("impossible calendar date", func(t *testing.T) {
		f := testFeature()
		f.Properties["ACQ_DATE"] = "20260230"
		_, err := ParseFeature(f)
		assert.Error(t, err)
	})

	t.Run("out of range time", func(t *testing.T) {
		f := testFeature()
		f.Properties["ACQ_TIME"] = "2595"
		_, err := ParseFeature(f)
		assert.Error(t, err)
	})
}

func TestParseAcqTime(t *testing.T) {
	cases := []struct {
		name    string
		date    string
		time    string
		want    time.Time
		wantErr bool
	}{
		{name: "standard", date: "20260830", time: "1445", want: time.Date(2026, 8, 30, 14, 45, 0, 0, time.UTC)},
		{name: "padded", date: "20260830", time: "0600", want: time.Date(2026, 8, 30, 6, 0, 0, 0, time.UTC)},
		{name: "three digits", date: "20260830", time: "600", want: time.Date(2026, 8, 30, 6, 0, 0, 0, time.UTC)},
		{name: "midnight", date: "20260101", time: "0000", want: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
		{name: "empty time", date: "20260830", time: "", wantErr: true},
		{name: "empty date", date: "", time: "1445", wantErr: true},
		{name: "bad month", date: "20261330", time: "1445", wantErr: true},
		{name: "bad hour", date: "20260830", time: "2445", wantErr: true},
		{name: "non numeric", date: "2026ab30", time: "1445", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseAcqTime(tc.date, tc.time)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestGenerateID(t *testing.T) {
	t.Run("deterministic", func(t *testing.T) {
		f := testFeature()
		a, err := ParseFeature(f)
		require.NoError(t, err)
		b, err := ParseFeature(testFeature())
		require.NoError(t, err)
		assert.Equal(t, a.ID, b.ID)
	})

	t.Run("missing components fall back to N/A", func(t *testing.T) {
		f := testFeature()
		delete(f.Properties, "DATETIME")
		delete(f.Properties, "SATELLITE")
		d, err := ParseFeature(f)
		require.NoError(t, err)
		assert.Equal(t, "202608301445_N/A_41.89219_12.48344", d.ID)
	})
}

func TestEnrichDetection(t *testing.T) {
	fakeClock := clockwork.NewFakeClockAt(time.Date(2026, time.August, 30, 15, 0, 0, 0, time.UTC))
	SetClock(fakeClock)
	t.Cleanup(func() { SetClock(nil) })

	d := EnrichDetection(Detection{Satellite: "mtg_i1", FRP: 37.5})
	assert.Equal(t, "MTG-I1", d.Satellite)
	require.NotNil(t, d.Intensity)
	assert.Equal(t, "moderate", *d.Intensity)
	assert.Equal(t, fakeClock.Now().UTC(), d.ProcessedAt)

	unmeasured := EnrichDetection(Detection{Satellite: "MSG-3"})
	assert.Nil(t, unmeasured.Intensity)
}

func TestNormalizeSatellite(t *testing.T) {
	cases := map[string]string{
		"MTG-I1":   "MTG-I1",
		"mtg_i1":   "MTG-I1",
		" msg 3 ":  "MSG-3",
		"Meteosat": "METEOSAT",
		"":         "",
	}
	for in, want := range cases {
		assert.Equal(t, want, normalizeSatellite(in), "input %q", in)
	}
}

func TestDeriveIntensity(t *testing.T) {
	cases := []struct {
		frp  float64
		want string
	}{
		{frp: 5, want: "low"},
		{frp: 14.9, want: "low"},
		{frp: 15, want: "moderate"},
		{frp: 49.9, want: "moderate"},
		{frp: 50, want: "high"},
		{frp: 149.9, want: "high"},
		{frp: 150, want: "extreme"},
		{frp: 900, want: "extreme"},
	}
	for _, tc := range cases {
		got := deriveIntensity(tc.frp)
		require.NotNil(t, got, "frp %v", tc.frp)
		assert.Equal(t, tc.want, *got, "frp %v", tc.frp)
	}

	assert.Nil(t, deriveIntensity(0))
	assert.Nil(t, deriveIntensity(-1))
}

func TestToFeature(t *testing.T) {
	fakeClock := clockwork.NewFakeClockAt(time.Date(2026, time.August, 30, 15, 0, 0, 0, time.UTC))
	SetClock(fakeClock)
	t.Cleanup(func() { SetClock(nil) })

	src := testFeature()
	d, err := ParseFeature(src)
	require.NoError(t, err)
	d = EnrichDetection(d)
	d.PlaceName = "Roma"

	out := ToFeature(d)

	assert.Equal(t, "Feature", out.Type)
	assert.Equal(t, "moderate", out.Properties["INTENSITY"])
	assert.Equal(t, "Roma", out.Properties["PLACE_NAME"])
	assert.Equal(t, "202608301445", out.Properties["DATETIME"])
	// Upstream keys survive untouched.
	assert.Equal(t, "20260830", out.Properties["ACQ_DATE"])
	// The source map is never mutated.
	_, mutated := src.Properties["INTENSITY"]
	assert.False(t, mutated)

	if diff := cmp.Diff(src.Geometry, out.Geometry); diff != "" {
		t.Fatalf("geometry mismatch (-want +got):\n%s", diff)
	}
}

func TestToFeature_SynthesizesGeometry(t *testing.T) {
	f := testFeature()
	f.Geometry = nil
	d, err := ParseFeature(f)
	require.NoError(t, err)

	out := ToFeature(d)
	require.NotNil(t, out.Geometry)
	assert.Equal(t, "Point", out.Geometry.Type)
	assert.Equal(t, []float64{12.48344, 41.89219}, out.Geometry.Coordinates)
}

func TestFeatureCollection_Serialization(t *testing.T) {
	fc := NewFeatureCollection("sfide_aggregate_72h", nil)
	data, err := json.Marshal(fc)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"FeatureCollection","name":"sfide_aggregate_72h","features":[]}`, string(data))
}

func TestSetClock(t *testing.T) {
	fakeClock := clockwork.NewFakeClockAt(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	SetClock(fakeClock)
	t.Cleanup(func() { SetClock(nil) })

	assert.Equal(t, fakeClock.Now(), Clock().Now())

	SetClock(nil)
	assert.WithinDuration(t, time.Now(), Clock().Now(), time.Minute)
}
