package telemetry

import (
	"testing"

	"github.com/rascar-capac/ludum-dare-56/config"
)

func testTelemetryConfig() config.TelemetryConfig {
	return config.TelemetryConfig{CrashDropPercent: 0.4, BoomMinBirths: 4, HistorySize: 10}
}

func hasBookmark(bookmarks []Bookmark, t BookmarkType) bool {
	for _, bm := range bookmarks {
		if bm.Type == t {
			return true
		}
	}
	return false
}

func TestBookmarkDetector_PopulationCrash(t *testing.T) {
	bd := NewBookmarkDetector(testTelemetryConfig())

	for i := 1; i <= 3; i++ {
		if got := bd.Check(DayRecord{Day: i, Population: 10}); hasBookmark(got, BookmarkPopulationCrash) {
			t.Fatalf("unexpected crash on stable day %d", i)
		}
	}

	got := bd.Check(DayRecord{Day: 4, Tick: 12, Population: 5})
	if !hasBookmark(got, BookmarkPopulationCrash) {
		t.Fatalf("expected population_crash bookmark, got %+v", got)
	}

	// The peak resets after a crash.
	if got := bd.Check(DayRecord{Day: 5, Population: 4}); hasBookmark(got, BookmarkPopulationCrash) {
		t.Error("crash reported twice from the same peak")
	}
}

func TestBookmarkDetector_ExtinctionOnce(t *testing.T) {
	bd := NewBookmarkDetector(testTelemetryConfig())

	bd.Check(DayRecord{Day: 1, Population: 3})
	got := bd.Check(DayRecord{Day: 2, Population: 0, Dead: 3})
	if !hasBookmark(got, BookmarkExtinction) {
		t.Fatalf("expected extinction bookmark, got %+v", got)
	}
	if hasBookmark(got, BookmarkPopulationCrash) {
		t.Error("extinction should not also be reported as a crash")
	}

	if got := bd.Check(DayRecord{Day: 3, Population: 0, Dead: 3}); hasBookmark(got, BookmarkExtinction) {
		t.Error("extinction reported again while still extinct")
	}
}

func TestBookmarkDetector_BabyBoomAndGreat(t *testing.T) {
	bd := NewBookmarkDetector(testTelemetryConfig())

	got := bd.Check(DayRecord{Day: 1, Population: 10, Births: 4, ReachedGreat: []string{"fluffiness"}})
	if !hasBookmark(got, BookmarkBabyBoom) {
		t.Error("expected baby_boom bookmark")
	}
	if !hasBookmark(got, BookmarkTraitGreat) {
		t.Error("expected trait_great bookmark")
	}

	if got := bd.Check(DayRecord{Day: 2, Population: 10, Births: 3}); hasBookmark(got, BookmarkBabyBoom) {
		t.Error("baby_boom below threshold")
	}
}

func TestBookmarkDetector_Recovery(t *testing.T) {
	bd := NewBookmarkDetector(testTelemetryConfig())

	bd.Check(DayRecord{Day: 1, Population: 2})
	if got := bd.Check(DayRecord{Day: 2, Population: 5}); hasBookmark(got, BookmarkPopulationRecovery) {
		t.Error("recovery below 3x the low")
	}
	if got := bd.Check(DayRecord{Day: 3, Population: 6}); !hasBookmark(got, BookmarkPopulationRecovery) {
		t.Errorf("expected population_recovery bookmark, got %+v", got)
	}
}

func TestBookmarkStampsDay(t *testing.T) {
	bd := NewBookmarkDetector(testTelemetryConfig())
	got := bd.Check(DayRecord{RunID: "r", Day: 7, Tick: 21, Births: 9, Population: 9})
	if len(got) == 0 {
		t.Fatal("expected a bookmark")
	}
	if got[0].RunID != "r" || got[0].Day != 7 || got[0].Tick != 21 {
		t.Errorf("bookmark not stamped with day identity: %+v", got[0])
	}
}
