package telemetry

import (
	"fmt"
	"log/slog"

	"github.com/rascar-capac/ludum-dare-56/config"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkPopulationCrash    BookmarkType = "population_crash"
	BookmarkPopulationRecovery BookmarkType = "population_recovery"
	BookmarkExtinction         BookmarkType = "extinction"
	BookmarkBabyBoom           BookmarkType = "baby_boom"
	BookmarkTraitGreat         BookmarkType = "trait_great"
)

// Bookmark marks a notable committed day.
type Bookmark struct {
	RunID       string       `csv:"run_id"`
	Type        BookmarkType `csv:"type"`
	Day         int          `csv:"day"`
	Tick        int          `csv:"tick"`
	Description string       `csv:"description"`
}

// LogBookmark logs the bookmark using slog.
func (b Bookmark) LogBookmark() {
	slog.Info("bookmark",
		"type", string(b.Type),
		"day", b.Day,
		"tick", b.Tick,
		"description", b.Description,
	)
}

// BookmarkDetector detects notable moments across committed days.
type BookmarkDetector struct {
	cfg config.TelemetryConfig

	// Rolling history (circular buffer)
	history     []DayRecord
	historySize int
	historyIdx  int
	historyFull bool

	recentPeak int // peak population since the last crash
	recentLow  int // lowest population since the last recovery
	extinct    bool
}

// NewBookmarkDetector creates a detector using the telemetry thresholds in cfg.
func NewBookmarkDetector(cfg config.TelemetryConfig) *BookmarkDetector {
	size := cfg.HistorySize
	if size < 2 {
		size = 2
	}
	return &BookmarkDetector{
		cfg:         cfg,
		history:     make([]DayRecord, size),
		historySize: size,
		recentLow:   -1,
	}
}

// Check analyzes the latest day and returns any triggered bookmarks.
func (bd *BookmarkDetector) Check(day DayRecord) []Bookmark {
	var bookmarks []Bookmark
	add := func(t BookmarkType, format string, args ...any) {
		bookmarks = append(bookmarks, Bookmark{
			RunID:       day.RunID,
			Type:        t,
			Day:         day.Day,
			Tick:        day.Tick,
			Description: fmt.Sprintf(format, args...),
		})
	}

	if day.Population == 0 && !bd.extinct {
		add(BookmarkExtinction, "Population died out with %d dead", day.Dead)
	}
	bd.extinct = day.Population == 0

	if bd.recentPeak > 0 && day.Population > 0 {
		drop := 1 - float64(day.Population)/float64(bd.recentPeak)
		if drop >= bd.cfg.CrashDropPercent {
			add(BookmarkPopulationCrash, "Population crashed %.0f%% from peak %d to %d", drop*100, bd.recentPeak, day.Population)
			bd.recentPeak = day.Population
		}
	}

	if bd.recentLow >= 0 && day.Population >= 3*max(bd.recentLow, 1) && bd.recentLow <= 2 {
		add(BookmarkPopulationRecovery, "Population recovered from %d to %d", bd.recentLow, day.Population)
		bd.recentLow = day.Population
	}

	if bd.cfg.BoomMinBirths > 0 && day.Births >= bd.cfg.BoomMinBirths {
		add(BookmarkBabyBoom, "%d births in one day (avg %.1f)", day.Births, bd.averageBirths())
	}

	for _, name := range day.ReachedGreat {
		add(BookmarkTraitGreat, "Trait %s became great", name)
	}

	bd.addToHistory(day)

	if day.Population > bd.recentPeak {
		bd.recentPeak = day.Population
	}
	if bd.recentLow < 0 || day.Population < bd.recentLow {
		bd.recentLow = day.Population
	}

	return bookmarks
}

func (bd *BookmarkDetector) addToHistory(day DayRecord) {
	bd.history[bd.historyIdx] = day
	bd.historyIdx = (bd.historyIdx + 1) % bd.historySize
	if bd.historyIdx == 0 {
		bd.historyFull = true
	}
}

func (bd *BookmarkDetector) getHistory() []DayRecord {
	if bd.historyFull {
		return bd.history
	}
	return bd.history[:bd.historyIdx]
}

func (bd *BookmarkDetector) averageBirths() float64 {
	history := bd.getHistory()
	if len(history) == 0 {
		return 0
	}
	total := 0
	for _, h := range history {
		total += h.Births
	}
	return float64(total) / float64(len(history))
}
