package plugins

import (
	"fmt"
	"time"
)

// DefaultHolidayWindowDays is how close a holiday must be (in either
// direction) for the nearest_holiday plugin to contribute.
const DefaultHolidayWindowDays = 7

// NearestHoliday contributes the seasonal spirit of the closest calendar
// holiday when one falls inside the configured window.
type NearestHoliday struct {
	calendar   []Holiday
	windowDays int
}

// NewNearestHoliday creates the nearest_holiday plugin over a calendar.
// windowDays <= 0 uses the default window.
func NewNearestHoliday(calendar []Holiday, windowDays int) (*NearestHoliday, error) {
	if len(calendar) == 0 {
		return nil, fmt.Errorf("plugins: nearest_holiday requires a non-empty calendar")
	}
	if windowDays <= 0 {
		windowDays = DefaultHolidayWindowDays
	}
	return &NearestHoliday{calendar: calendar, windowDays: windowDays}, nil
}

// Name implements Plugin.
func (n *NearestHoliday) Name() string { return NameNearestHoliday }

// Evaluate finds the holiday closest to now. No holiday inside the window
// means no contribution.
func (n *NearestHoliday) Evaluate(now time.Time, _ []ContextItem) (*ContextItem, error) {
	holiday, days := n.closest(now)
	if holiday == nil || days > n.windowDays {
		return nil, nil
	}
	return &ContextItem{
		Name:        NameNearestHoliday,
		Value:       holiday.Spirit,
		Description: fmt.Sprintf("%s is %d day(s) away", holiday.Name, days),
	}, nil
}

// closest returns the calendar entry with the smallest absolute distance in
// days from now, checking each holiday's occurrence in the previous, current
// and next year so year boundaries resolve correctly.
func (n *NearestHoliday) closest(now time.Time) (*Holiday, int) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	var best *Holiday
	bestDays := -1
	for i := range n.calendar {
		h := &n.calendar[i]
		for _, year := range []int{now.Year() - 1, now.Year(), now.Year() + 1} {
			occurrence := time.Date(year, time.Month(h.Month), h.Day, 0, 0, 0, 0, now.Location())
			days := int(occurrence.Sub(today).Hours() / 24)
			if days < 0 {
				days = -days
			}
			if bestDays < 0 || days < bestDays {
				best = h
				bestDays = days
			}
		}
	}
	return best, bestDays
}

// HolidayFact contributes a short fact about the holiday chosen by
// nearest_holiday. It depends on that plugin's output: no nearby holiday,
// no fact.
type HolidayFact struct {
	calendar []Holiday
}

// NewHolidayFact creates the holiday_fact plugin over the same calendar the
// nearest_holiday plugin uses.
func NewHolidayFact(calendar []Holiday) (*HolidayFact, error) {
	if len(calendar) == 0 {
		return nil, fmt.Errorf("plugins: holiday_fact requires a non-empty calendar")
	}
	return &HolidayFact{calendar: calendar}, nil
}

// Name implements Plugin.
func (h *HolidayFact) Name() string { return NameHolidayFact }

// Evaluate looks up the fact for the holiday named in the nearest_holiday
// contribution. Must be ordered after nearest_holiday to contribute.
func (h *HolidayFact) Evaluate(_ time.Time, prior []ContextItem) (*ContextItem, error) {
	item := FindItem(prior, NameNearestHoliday)
	if item == nil {
		return nil, nil
	}
	for i := range h.calendar {
		if h.calendar[i].Spirit == item.Value && h.calendar[i].Fact != "" {
			return &ContextItem{
				Name:        NameHolidayFact,
				Value:       h.calendar[i].Fact,
				Description: "fact about " + h.calendar[i].Name,
			}, nil
		}
	}
	return nil, nil
}
