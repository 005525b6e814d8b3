package types

import (
	"testing"

	"gorm.io/datatypes"
)

func TestDecodeLessonMap(t *testing.T) {
	raw := datatypes.JSON(`{
		"lesson-a": {"percent_complete": 42.5, "current_position_ms": 9000},
		"lesson-b": {"percent": 80, "position_ms": 1200, "done": false},
		"lesson-c": {"done": true},
		"lesson-d": {"percent_complete": 250},
		"lesson-e": {"percent_complete": -10},
		"lesson-f": null
	}`)

	got, err := DecodeLessonMap(raw)
	if err != nil {
		t.Fatalf("DecodeLessonMap: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("decoded %d entries, want 5 (null dropped)", len(got))
	}

	if lp := got["lesson-a"]; lp.PercentComplete != 42.5 || lp.CurrentPositionMS != 9000 {
		t.Fatalf("canonical fields mangled: %+v", lp)
	}
	if lp := got["lesson-b"]; lp.PercentComplete != 80 || lp.CurrentPositionMS != 1200 || lp.Completed {
		t.Fatalf("legacy aliases not folded: %+v", lp)
	}
	if lp := got["lesson-c"]; !lp.Completed || lp.PercentComplete != 100 {
		t.Fatalf("legacy done not forced to 100: %+v", lp)
	}
	if lp := got["lesson-d"]; lp.PercentComplete != 100 {
		t.Fatalf("over-range percent not clamped: %v", lp.PercentComplete)
	}
	if lp := got["lesson-e"]; lp.PercentComplete != 0 {
		t.Fatalf("negative percent not clamped: %v", lp.PercentComplete)
	}
}

func TestDecodeLessonMapCanonicalWins(t *testing.T) {
	raw := datatypes.JSON(`{"l": {"percent_complete": 30, "percent": 90, "completed": true, "done": false}}`)
	got, err := DecodeLessonMap(raw)
	if err != nil {
		t.Fatalf("DecodeLessonMap: %v", err)
	}
	lp := got["l"]
	if !lp.Completed {
		t.Fatalf("completed=true dropped")
	}
	if lp.PercentComplete != 100 {
		t.Fatalf("completed entry percent = %v, want 100", lp.PercentComplete)
	}
}

func TestDecodeLessonMapEmpty(t *testing.T) {
	for _, raw := range []datatypes.JSON{nil, datatypes.JSON(``), datatypes.JSON(`{}`)} {
		got, err := DecodeLessonMap(raw)
		if err != nil {
			t.Fatalf("DecodeLessonMap(%q): %v", string(raw), err)
		}
		if got == nil || len(got) != 0 {
			t.Fatalf("DecodeLessonMap(%q) = %v, want empty map", string(raw), got)
		}
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	in := map[string]*LessonProgress{
		"l1": {PercentComplete: 55, CurrentPositionMS: 3000},
		"l2": {PercentComplete: 100, Completed: true},
	}
	raw, err := EncodeLessonMap(in)
	if err != nil {
		t.Fatalf("EncodeLessonMap: %v", err)
	}
	out, err := DecodeLessonMap(raw)
	if err != nil {
		t.Fatalf("DecodeLessonMap: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("round trip lost entries: %d", len(out))
	}
	if out["l1"].PercentComplete != 55 || out["l2"].PercentComplete != 100 || !out["l2"].Completed {
		t.Fatalf("round trip mangled values: %+v %+v", out["l1"], out["l2"])
	}
}

func TestClampPercent(t *testing.T) {
	cases := []struct{ in, want float64 }{
		{-1, 0},
		{0, 0},
		{63.7, 63.7},
		{100, 100},
		{1000, 100},
	}
	for _, tc := range cases {
		if got := ClampPercent(tc.in); got != tc.want {
			t.Fatalf("ClampPercent(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
