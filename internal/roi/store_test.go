package roi

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/lehigh-university-libraries/roiviewer/internal/geometry"
)

const testImage = "urn:cite2:hmt:vaimg.2017a:VA012RN_0013"

func TestParseToken(t *testing.T) {
	tests := []struct {
		name    string
		token   string
		want    geometry.PercentRect
		wantErr bool
	}{
		{name: "canonical", token: "0.1000,0.2000,0.3000,0.1500", want: geometry.PercentRect{X: 0.1, Y: 0.2, W: 0.3, H: 0.15}},
		{name: "spaces allowed", token: " 0.1, 0.2 ,0.3,0.15", want: geometry.PercentRect{X: 0.1, Y: 0.2, W: 0.3, H: 0.15}},
		{name: "full image", token: "0,0,1,1", want: geometry.PercentRect{W: 1, H: 1}},
		{name: "x above one", token: "1.2,0,0.1,0.1", wantErr: true},
		{name: "zero width", token: "0.1,0.1,0,0.1", wantErr: true},
		{name: "zero height", token: "0.1,0.1,0.1,0", wantErr: true},
		{name: "negative", token: "-0.1,0.1,0.1,0.1", wantErr: true},
		{name: "three components", token: "0.1,0.1,0.1", wantErr: true},
		{name: "five components", token: "0.1,0.1,0.1,0.1,0.1", wantErr: true},
		{name: "not a number", token: "a,0.1,0.1,0.1", wantErr: true},
		{name: "NaN", token: "NaN,0.1,0.1,0.1", wantErr: true},
		{name: "overhangs right edge", token: "0.8,0.1,0.3,0.1", wantErr: true},
		{name: "empty", token: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseToken(tt.token)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Expected error for %q, got %+v", tt.token, got)
				}
				if !errors.Is(err, ErrParse) || !errors.Is(err, geometry.ErrInvalidGeometry) {
					t.Errorf("Expected ErrParse wrapping ErrInvalidGeometry, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestFormatToken(t *testing.T) {
	got := FormatToken(geometry.PercentRect{X: 0.1, Y: 0.2, W: 0.3, H: 0.15})
	if got != "0.1000,0.2000,0.3000,0.1500" {
		t.Errorf("Expected four decimals, got %s", got)
	}
}

func TestNormalize(t *testing.T) {
	t.Run("rounds to four decimals", func(t *testing.T) {
		got, err := Normalize(geometry.PercentRect{X: 0.123456, Y: 0.5, W: 0.25001, H: 0.1})
		if err != nil {
			t.Fatal(err)
		}
		want := geometry.PercentRect{X: 0.1235, Y: 0.5, W: 0.25, H: 0.1}
		if got != want {
			t.Errorf("Expected %+v, got %+v", want, got)
		}
	})

	t.Run("trims rounding overhang", func(t *testing.T) {
		got, err := Normalize(geometry.PercentRect{X: 0.40006, Y: 0, W: 0.59996, H: 0.5})
		if err != nil {
			t.Fatal(err)
		}
		if got.X+got.W > 1+1e-9 {
			t.Errorf("Expected x+w <= 1, got %v", got.X+got.W)
		}
		if math.Abs(got.W-0.5999) > 1e-12 {
			t.Errorf("Expected w 0.5999, got %v", got.W)
		}
	})

	t.Run("rejects overhang beyond a rounding step", func(t *testing.T) {
		for _, r := range []geometry.PercentRect{
			{X: 0.8, Y: 0.1, W: 0.3, H: 0.1},
			{X: 0.1, Y: 0.95, W: 0.1, H: 0.0502},
			{X: 0.9, Y: 0.1, W: 0.1002, H: 0.1},
		} {
			if got, err := Normalize(r); !errors.Is(err, geometry.ErrInvalidGeometry) {
				t.Errorf("Normalize(%+v): expected ErrInvalidGeometry, got %+v, %v", r, got, err)
			}
		}
	})

	t.Run("rejects sub-precision size", func(t *testing.T) {
		_, err := Normalize(geometry.PercentRect{X: 0.1, Y: 0.1, W: 0.00001, H: 0.1})
		if !errors.Is(err, geometry.ErrInvalidGeometry) {
			t.Errorf("Expected ErrInvalidGeometry, got %v", err)
		}
	})

	t.Run("rejects NaN", func(t *testing.T) {
		_, err := Normalize(geometry.PercentRect{X: math.NaN(), W: 0.1, H: 0.1})
		if !errors.Is(err, geometry.ErrInvalidGeometry) {
			t.Errorf("Expected ErrInvalidGeometry, got %v", err)
		}
	})
}

func TestSplitAndParseID(t *testing.T) {
	image, token, ok := SplitID(testImage + "@0.1,0.2,0.3,0.4")
	if !ok || image != testImage || token != "0.1,0.2,0.3,0.4" {
		t.Errorf("Unexpected split: %q %q %v", image, token, ok)
	}

	if _, _, ok := SplitID(testImage); ok {
		t.Error("Expected no token for a bare image identifier")
	}

	if _, _, err := ParseID(testImage); !errors.Is(err, ErrParse) {
		t.Errorf("Expected ErrParse for missing roi, got %v", err)
	}
	if _, _, err := ParseID("@0.1,0.1,0.1,0.1"); !errors.Is(err, ErrParse) {
		t.Errorf("Expected ErrParse for missing image, got %v", err)
	}
}

func TestStoreAddDuplicate(t *testing.T) {
	s := NewStore(testImage)

	id1, added, err := s.Add(geometry.PercentRect{X: 0.1, Y: 0.2, W: 0.3, H: 0.15})
	if err != nil || !added {
		t.Fatalf("Expected first add to succeed, got added=%v err=%v", added, err)
	}
	if id1 != testImage+"@0.1000,0.2000,0.3000,0.1500" {
		t.Errorf("Unexpected id %s", id1)
	}

	// Equal at four decimals.
	id2, added, err := s.Add(geometry.PercentRect{X: 0.10001, Y: 0.2, W: 0.3, H: 0.15})
	if err != nil {
		t.Fatal(err)
	}
	if added || id2 != id1 {
		t.Errorf("Expected duplicate to return %s, got %s (added=%v)", id1, id2, added)
	}
	if s.Len() != 1 {
		t.Errorf("Expected 1 roi, got %d", s.Len())
	}
}

func TestStoreAddRejectsOverhang(t *testing.T) {
	s := NewStore("img")
	id, added, err := s.Add(geometry.PercentRect{X: 0.8, Y: 0.1, W: 0.3, H: 0.1})
	if !errors.Is(err, geometry.ErrInvalidGeometry) {
		t.Errorf("Expected ErrInvalidGeometry, got id=%q added=%v err=%v", id, added, err)
	}
	if added || id != "" {
		t.Errorf("Expected nothing added, got id=%q added=%v", id, added)
	}
	if s.Len() != 0 {
		t.Errorf("Expected empty store, got %d", s.Len())
	}
}

func TestEmpty(t *testing.T) {
	tests := []struct {
		name string
		r    geometry.PercentRect
		want bool
	}{
		{name: "zero width", r: geometry.PercentRect{X: 1, Y: 0.2, W: 0, H: 0.1}, want: true},
		{name: "sub-precision height", r: geometry.PercentRect{X: 0.1, Y: 0.2, W: 0.1, H: 0.00004}, want: true},
		{name: "area", r: geometry.PercentRect{X: 0.1, Y: 0.2, W: 0.0001, H: 0.1}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Empty(tt.r); got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestStoreAddID(t *testing.T) {
	s := NewStore(testImage)

	if _, _, err := s.AddID(testImage + "@0.1,0.1,0.2,0.2"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if _, _, err := s.AddID("urn:cite2:hmt:vaimg.2017a:OTHER@0.1,0.1,0.2,0.2"); !errors.Is(err, ErrImageMismatch) {
		t.Errorf("Expected ErrImageMismatch, got %v", err)
	}
	if _, _, err := s.AddID(testImage + "@1.2,0,0.1,0.1"); !errors.Is(err, ErrParse) {
		t.Errorf("Expected ErrParse, got %v", err)
	}
	if s.Len() != 1 {
		t.Errorf("Failed adds must not change the store, got %d rois", s.Len())
	}
}

func TestStoreRemoveAndClear(t *testing.T) {
	s := NewStore(testImage)
	a, _, _ := s.Add(geometry.PercentRect{X: 0.1, Y: 0.1, W: 0.1, H: 0.1})
	b, _, _ := s.Add(geometry.PercentRect{X: 0.5, Y: 0.5, W: 0.1, H: 0.1})
	c, _, _ := s.Add(geometry.PercentRect{X: 0.7, Y: 0.7, W: 0.1, H: 0.1})

	if !s.Remove(b) {
		t.Error("Expected remove to report true")
	}
	if s.Remove(b) {
		t.Error("Expected second remove to report false")
	}
	if got := s.IDs(); !reflect.DeepEqual(got, []string{a, c}) {
		t.Errorf("Expected order preserved, got %v", got)
	}
	if _, err := s.Get(b); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	if n := s.Clear(); n != 2 {
		t.Errorf("Expected 2 cleared, got %d", n)
	}
	if s.Len() != 0 {
		t.Errorf("Expected empty store, got %d", s.Len())
	}
}

func TestStoreHitTest(t *testing.T) {
	s := NewStore(testImage)
	outer, _, _ := s.Add(geometry.PercentRect{X: 0, Y: 0, W: 0.5, H: 0.5})
	inner, _, _ := s.Add(geometry.PercentRect{X: 0.25, Y: 0.25, W: 0.25, H: 0.25})
	_, _, _ = s.Add(geometry.PercentRect{X: 0.6, Y: 0.6, W: 0.2, H: 0.2})

	tests := []struct {
		name string
		pt   geometry.Point
		want []string
	}{
		{name: "overlap in insertion order", pt: geometry.Point{X: 0.3, Y: 0.3}, want: []string{outer, inner}},
		{name: "left edge inclusive", pt: geometry.Point{X: 0, Y: 0.1}, want: []string{outer}},
		{name: "right edge exclusive", pt: geometry.Point{X: 0.5, Y: 0.1}, want: nil},
		{name: "bottom edge exclusive", pt: geometry.Point{X: 0.3, Y: 0.5}, want: nil},
		{name: "miss", pt: geometry.Point{X: 0.55, Y: 0.9}, want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.HitTest(tt.pt)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestStoreAllIsSnapshot(t *testing.T) {
	s := NewStore(testImage)
	_, _, _ = s.Add(geometry.PercentRect{X: 0.1, Y: 0.1, W: 0.1, H: 0.1})
	all := s.All()
	all[0].ID = "mutated"
	if s.All()[0].ID == "mutated" {
		t.Error("All must return a copy")
	}
	if all[0].Token() != "0.1000,0.1000,0.1000,0.1000" {
		t.Errorf("Unexpected token %s", all[0].Token())
	}
}
