package planner

import (
	"errors"
	"fmt"
	"time"
)

// DateLayout is the layout of DayPlan dates.
const DateLayout = "2006-01-02"

var (
	ErrInvalidDate   = errors.New("invalid plan date")
	ErrDuplicateDate = errors.New("duplicate plan date")
)

// DayPlan lists the recipes scheduled for one calendar date.
type DayPlan struct {
	Date       string   `json:"date" yaml:"date" validate:"required"`
	RecipeIDs  []string `json:"recipeIds" yaml:"recipe_ids"`
	IsComplete bool     `json:"isComplete" yaml:"is_complete"`
}

// MonthPlan is a menu plan for a number of people over a set of dates.
type MonthPlan struct {
	PersonCount int       `json:"personCount" yaml:"person_count" validate:"gte=0"`
	Days        []DayPlan `json:"days" yaml:"days" validate:"dive"`
}

// NewDayPlan creates a DayPlan with IsComplete derived from the recipe ids.
func NewDayPlan(date string, recipeIDs ...string) DayPlan {
	return DayPlan{
		Date:       date,
		RecipeIDs:  recipeIDs,
		IsComplete: len(recipeIDs) > 0,
	}
}

// Complete reports whether the day has at least one recipe.
func (d DayPlan) Complete() bool {
	return len(d.RecipeIDs) > 0
}

// ParseDate parses a YYYY-MM-DD plan date.
func ParseDate(date string) (time.Time, error) {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w %q: %w", ErrInvalidDate, date, err)
	}
	return t, nil
}

// NewMonthPlan creates an empty plan with one day per date of the given
// month.
func NewMonthPlan(year int, month time.Month, personCount int) MonthPlan {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	var days []DayPlan
	for d := first; d.Month() == month; d = d.AddDate(0, 0, 1) {
		days = append(days, NewDayPlan(d.Format(DateLayout)))
	}
	return MonthPlan{PersonCount: personCount, Days: days}
}

// Validate checks that every date parses and appears only once.
func (p MonthPlan) Validate() error {
	seen := make(map[string]struct{}, len(p.Days))
	for _, d := range p.Days {
		if _, err := ParseDate(d.Date); err != nil {
			return err
		}
		if _, ok := seen[d.Date]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateDate, d.Date)
		}
		seen[d.Date] = struct{}{}
	}
	return nil
}

// SetRecipes replaces the recipes of the day with the given date and keeps
// IsComplete in sync. It reports whether the date was found.
func (p *MonthPlan) SetRecipes(date string, recipeIDs ...string) bool {
	for i := range p.Days {
		if p.Days[i].Date == date {
			p.Days[i] = NewDayPlan(date, recipeIDs...)
			return true
		}
	}
	return false
}

// PlannedDays returns the number of days with at least one recipe.
func (p MonthPlan) PlannedDays() int {
	n := 0
	for _, d := range p.Days {
		if d.Complete() {
			n++
		}
	}
	return n
}

// RecipeIDs returns the distinct recipe ids used across the plan in
// first-seen order.
func (p MonthPlan) RecipeIDs() []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, d := range p.Days {
		for _, id := range d.RecipeIDs {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids
}
