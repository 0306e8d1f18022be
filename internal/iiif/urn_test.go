package iiif

import (
	"errors"
	"testing"

	"github.com/lehigh-university-libraries/roiviewer/internal/geometry"
	"github.com/lehigh-university-libraries/roiviewer/internal/roi"
)

func TestParseURN(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    URN
		wantErr error
	}{
		{
			name:  "versioned object",
			input: "urn:cite2:hmt:vaimg.2017a:VA012RN_0013",
			want:  URN{Namespace: "hmt", Collection: "vaimg", Version: "2017a", Object: "VA012RN_0013"},
		},
		{
			name:  "unversioned object",
			input: "urn:cite2:hmt:vaimg:VA012RN_0013",
			want:  URN{Namespace: "hmt", Collection: "vaimg", Object: "VA012RN_0013"},
		},
		{
			name:  "with roi",
			input: "urn:cite2:hmt:vaimg.2017a:VA012RN_0013@0.1,0.2,0.3,0.15",
			want: URN{Namespace: "hmt", Collection: "vaimg", Version: "2017a", Object: "VA012RN_0013",
				ROI: &geometry.PercentRect{X: 0.1, Y: 0.2, W: 0.3, H: 0.15}},
		},
		{name: "not cite2", input: "urn:cts:greekLit:tlg0012.tlg001:1.1", wantErr: ErrInvalidURN},
		{name: "too few parts", input: "urn:cite2:hmt:vaimg", wantErr: ErrInvalidURN},
		{name: "empty object", input: "urn:cite2:hmt:vaimg.2017a:", wantErr: ErrInvalidURN},
		{name: "bad roi", input: "urn:cite2:hmt:vaimg.2017a:X@1.2,0,0.1,0.1", wantErr: roi.ErrParse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseURN(tt.input)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got.Namespace != tt.want.Namespace || got.Collection != tt.want.Collection ||
				got.Version != tt.want.Version || got.Object != tt.want.Object {
				t.Errorf("Expected %+v, got %+v", tt.want, got)
			}
			if (got.ROI == nil) != (tt.want.ROI == nil) || (got.ROI != nil && *got.ROI != *tt.want.ROI) {
				t.Errorf("Expected roi %v, got %v", tt.want.ROI, got.ROI)
			}
		})
	}
}

func TestURNStrings(t *testing.T) {
	u, err := ParseURN("urn:cite2:hmt:vaimg.2017a:VA012RN_0013@0.1,0.2,0.3,0.15")
	if err != nil {
		t.Fatal(err)
	}
	if got := u.Base(); got != "urn:cite2:hmt:vaimg.2017a:VA012RN_0013" {
		t.Errorf("Unexpected base %s", got)
	}
	if got := u.String(); got != "urn:cite2:hmt:vaimg.2017a:VA012RN_0013@0.1000,0.2000,0.3000,0.1500" {
		t.Errorf("Unexpected string %s", got)
	}
}

func TestImagePath(t *testing.T) {
	tests := []struct {
		urn    string
		prefix string
		want   string
	}{
		{"urn:cite2:hmt:vaimg.2017a:VA012RN_0013", "/project/homer/pyramidal/deepzoom", "/project/homer/pyramidal/deepzoom/hmt/vaimg/2017a/VA012RN_0013.tif"},
		{"urn:cite2:hmt:vaimg:VA012RN_0013", "/prefix/", "/prefix/hmt/vaimg/VA012RN_0013.tif"},
		{"urn:cite2:hmt:vaimg:VA012RN_0013", "", "/hmt/vaimg/VA012RN_0013.tif"},
	}
	for _, tt := range tests {
		u, err := ParseURN(tt.urn)
		if err != nil {
			t.Fatal(err)
		}
		if got := u.ImagePath(tt.prefix); got != tt.want {
			t.Errorf("Expected %s, got %s", tt.want, got)
		}
	}
}
