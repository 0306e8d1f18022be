package iiif

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lehigh-university-libraries/roiviewer/internal/geometry"
)

const testURN = "urn:cite2:hmt:vaimg.2017a:VA012RN_0013"

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func newTestServer(t *testing.T, infoHits *int32) *httptest.Server {
	t.Helper()
	tile := pngBytes(t, 40, 30)
	mux := http.NewServeMux()
	mux.HandleFunc("/iiif/hmt/vaimg/2017a/VA012RN_0013.tif/info.json", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(infoHits, 1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"@context":"http://iiif.io/api/image/2/context.json","@id":"x","protocol":"http://iiif.io/api/image","width":4000,"height":3000}`))
	})
	mux.HandleFunc("/iiif/hmt/vaimg/2017a/VA012RN_0013.tif/0,0,4000,3000/!40,30/0/default.jpg", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(tile)
	})
	mux.HandleFunc("/iiif/hmt/vaimg/2017a/broken.tif/info.json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"width":0,"height":0}`))
	})
	mux.HandleFunc("/iiif/hmt/vaimg/2017a/garbage.tif/full/full/0/default.jpg", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not an image"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestSourceExtentIsCached(t *testing.T) {
	var hits int32
	srv := newTestServer(t, &hits)
	c := NewClient(srv.URL, "/iiif", 5*time.Second)

	u, _ := ParseURN(testURN)
	src := c.Source(u)
	for i := 0; i < 3; i++ {
		ext, err := src.Extent(context.Background())
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if ext != (geometry.Extent{Width: 4000, Height: 3000}) {
			t.Errorf("Unexpected extent %+v", ext)
		}
	}
	if atomic.LoadInt32(&hits) != 1 {
		t.Errorf("Expected one info.json request, got %d", hits)
	}
	if src.ID() != testURN {
		t.Errorf("Expected id %s, got %s", testURN, src.ID())
	}
}

func TestInfoRejectsEmptyDimensions(t *testing.T) {
	var hits int32
	srv := newTestServer(t, &hits)
	c := NewClient(srv.URL, "/iiif", 0)
	u, _ := ParseURN("urn:cite2:hmt:vaimg.2017a:broken")
	if _, err := c.Info(context.Background(), u); err == nil {
		t.Error("Expected error for zero dimensions")
	}
}

func TestFetchRegion(t *testing.T) {
	var hits int32
	srv := newTestServer(t, &hits)
	c := NewClient(srv.URL, "/iiif", 5*time.Second)
	u, _ := ParseURN(testURN)
	src := c.Source(u)

	url := src.RequestURL(geometry.Region{X: 0, Y: 0, W: 4000, H: 3000}, geometry.Size{W: 40, H: 30})
	img, err := src.FetchImage(context.Background(), url)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 40 || b.Dy() != 30 {
		t.Errorf("Unexpected bounds %v", b)
	}
}

func TestFetchErrors(t *testing.T) {
	var hits int32
	srv := newTestServer(t, &hits)
	c := NewClient(srv.URL, "/iiif", 5*time.Second)

	if _, err := c.FetchImage(context.Background(), srv.URL+"/missing"); err == nil || !strings.Contains(err.Error(), "404") {
		t.Errorf("Expected 404 error, got %v", err)
	}
	if _, err := c.FetchImage(context.Background(), srv.URL+"/iiif/hmt/vaimg/2017a/garbage.tif/full/full/0/default.jpg"); err == nil {
		t.Error("Expected decode error")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.FetchImage(ctx, srv.URL+"/iiif/hmt/vaimg/2017a/VA012RN_0013.tif/0,0,4000,3000/!40,30/0/default.jpg"); err == nil {
		t.Error("Expected error for cancelled context")
	}
}

func TestURLs(t *testing.T) {
	c := NewClient("http://www.homermultitext.org/iipsrv?IIIF=", "/project/homer/pyramidal/deepzoom", 0)
	u, _ := ParseURN(testURN + "@0.1234,0.2,0.3,0.15")
	base := "http://www.homermultitext.org/iipsrv?IIIF=/project/homer/pyramidal/deepzoom/hmt/vaimg/2017a/VA012RN_0013.tif"

	tests := []struct {
		name          string
		width, height int
		roi           bool
		want          string
	}{
		{name: "roi fit box", width: 800, height: 600, roi: true, want: base + "/pct:12,20,30,15/!800,600/0/default.jpg"},
		{name: "roi width only", width: 800, roi: true, want: base + "/pct:12,20,30,15/800,/0/default.jpg"},
		{name: "full height only", height: 600, want: base + "/full/,600/0/default.jpg"},
		{name: "full full", want: base + "/full/full/0/default.jpg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uu := u
			if !tt.roi {
				uu.ROI = nil
			}
			if got := c.URL(uu, tt.width, tt.height); got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}

	got := RegionURL(base, geometry.Region{X: 10, Y: 20, W: 300, H: 400}, geometry.Size{W: 150, H: 200})
	if want := base + "/10,20,300,400/!150,200/0/default.jpg"; got != want {
		t.Errorf("Expected %s, got %s", want, got)
	}
}
