package service

import (
	"fmt"
	"time"
)

// MarketStage identifies which trading session window the current wall-clock
// time falls into. TW is the domestic market (TWSE, Asia/Taipei), US the
// foreign market (NYSE/Nasdaq, America/New_York).
type MarketStage string

const (
	StageTWPreOpen   MarketStage = "TW_PRE"
	StageTWTrading   MarketStage = "TW_TRADING"
	StageTWPostClose MarketStage = "TW_POST"
	StageUSPreOpen   MarketStage = "US_PRE"
	StageUSTrading   MarketStage = "US_TRADING"
	StageUSPostClose MarketStage = "US_POST"
	StageAllClosed   MarketStage = "ALL_CLOSED"
)

// Session windows in local exchange time, minutes from midnight.
const (
	twOpenMinutes  = 9 * 60     // 09:00 Asia/Taipei
	twCloseMinutes = 13*60 + 30 // 13:30 Asia/Taipei
	usOpenMinutes  = 9*60 + 30  // 09:30 America/New_York
	usCloseMinutes = 16 * 60    // 16:00 America/New_York
)

// MarketStageDetector determines the active trading session and which
// calendar dates are the valid valuation basis for each market. It is an
// immutable value object: the only state is the two timezone handles and an
// injectable clock, so a fresh detector per computation is cheap and
// concurrent use is safe.
type MarketStageDetector struct {
	taipei  *time.Location
	newYork *time.Location
	now     func() time.Time
}

// NewMarketStageDetector creates a detector using the real wall clock.
func NewMarketStageDetector() (*MarketStageDetector, error) {
	return NewMarketStageDetectorWithClock(time.Now)
}

// NewMarketStageDetectorWithClock creates a detector with an injected clock,
// used by tests to pin the current time.
func NewMarketStageDetectorWithClock(now func() time.Time) (*MarketStageDetector, error) {
	taipei, err := time.LoadLocation("Asia/Taipei")
	if err != nil {
		return nil, fmt.Errorf("failed to load Asia/Taipei timezone: %w", err)
	}
	newYork, err := time.LoadLocation("America/New_York")
	if err != nil {
		return nil, fmt.Errorf("failed to load America/New_York timezone: %w", err)
	}

	return &MarketStageDetector{
		taipei:  taipei,
		newYork: newYork,
		now:     now,
	}, nil
}

// CurrentStage classifies the current wall-clock time into a market stage and
// returns it together with a human-readable description and the current local
// time in both exchange time zones. The transition function depends only on
// the clock: calling it twice at the same instant yields the same answer.
func (d *MarketStageDetector) CurrentStage() (MarketStage, string, time.Time, time.Time) {
	now := d.now()
	twNow := now.In(d.taipei)
	usNow := now.In(d.newYork)

	twOpen := isWeekday(twNow) && inWindow(twNow, twOpenMinutes, twCloseMinutes)
	usOpen := isWeekday(usNow) && inWindow(usNow, usOpenMinutes, usCloseMinutes)

	var stage MarketStage
	switch {
	case twOpen:
		stage = StageTWTrading
	case usOpen:
		stage = StageUSTrading
	case isWeekday(twNow) && minutesOf(twNow) < twOpenMinutes:
		stage = StageTWPreOpen
	case isWeekday(twNow) && minutesOf(twNow) >= twCloseMinutes && isWeekday(usNow) && minutesOf(usNow) < usOpenMinutes:
		stage = StageTWPostClose
	case isWeekday(usNow) && minutesOf(usNow) >= usCloseMinutes:
		stage = StageUSPostClose
	case isWeekday(usNow) && minutesOf(usNow) < usOpenMinutes:
		stage = StageUSPreOpen
	default:
		stage = StageAllClosed
	}

	return stage, stageDescription(stage), twNow, usNow
}

// PreviousTradingDay walks backward from the given date, skipping Saturdays
// and Sundays. Exchange holidays are not modeled: a holiday therefore maps to
// itself, which is a known gap of the weekend-only calendar.
func (d *MarketStageDetector) PreviousTradingDay(date time.Time) time.Time {
	day := date.AddDate(0, 0, -1)
	for !isWeekday(day) {
		day = day.AddDate(0, 0, -1)
	}
	return day
}

// ValuationDates returns the date pair used to mark a position to market:
// t1 is the "as-of" date (today in the market's own timezone once its session
// has opened, otherwise the previous trading day) and t0 is the trading day
// strictly before t1.
//
// Price and FX observations used together must come from the same t0/t1 pair;
// mixing dates across the pair makes a position's daily P&L pick up a
// spurious FX-versus-price mismatch.
func (d *MarketStageDetector) ValuationDates(isDomestic bool) (time.Time, time.Time) {
	loc := d.newYork
	openMinutes := usOpenMinutes
	if isDomestic {
		loc = d.taipei
		openMinutes = twOpenMinutes
	}

	local := d.now().In(loc)
	localDate := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)

	var t1 time.Time
	if isWeekday(local) && minutesOf(local) >= openMinutes {
		t1 = localDate
	} else {
		t1 = d.PreviousTradingDay(localDate)
	}

	t0 := d.PreviousTradingDay(t1)
	return t0, t1
}

func stageDescription(stage MarketStage) string {
	switch stage {
	case StageTWPreOpen:
		return "Taiwan market pre-open"
	case StageTWTrading:
		return "Taiwan market trading"
	case StageTWPostClose:
		return "Taiwan market closed, US market not yet open"
	case StageUSPreOpen:
		return "US market pre-open"
	case StageUSTrading:
		return "US market trading"
	case StageUSPostClose:
		return "US market closed"
	default:
		return "all markets closed"
	}
}

func isWeekday(t time.Time) bool {
	return t.Weekday() != time.Saturday && t.Weekday() != time.Sunday
}

func minutesOf(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

func inWindow(t time.Time, openMinutes, closeMinutes int) bool {
	m := minutesOf(t)
	return m >= openMinutes && m < closeMinutes
}
