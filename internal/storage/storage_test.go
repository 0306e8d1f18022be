package storage

import (
	"testing"
	"time"

	"github.com/lehigh-university-libraries/roiviewer/internal/models"
)

func TestSessionStore(t *testing.T) {
	s := New()
	now := time.Now()
	s.Set("b", &models.ViewerSession{ID: "b", CreatedAt: now.Add(time.Second)})
	s.Set("a", &models.ViewerSession{ID: "a", CreatedAt: now})

	if _, ok := s.Get("a"); !ok {
		t.Fatal("Expected session a")
	}
	list := s.List()
	if len(list) != 2 || list[0].ID != "a" || list[1].ID != "b" {
		t.Errorf("Expected sessions ordered by creation, got %+v", list)
	}
	if !s.Delete("a") {
		t.Error("Expected delete of a to report true")
	}
	if s.Delete("a") {
		t.Error("Expected second delete of a to report false")
	}
	s.Close()
	if len(s.List()) != 0 {
		t.Error("Expected empty store after Close")
	}
}
