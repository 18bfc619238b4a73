package domain

import "time"

// DateLayout is the calendar-day key format used by day logs
const DateLayout = "2006-01-02"

// UserProfile is a stored user with optional body metrics and daily goals
type UserProfile struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Age       *FlexFloat `json:"age,omitempty"`
	Weight    *FlexFloat `json:"weight,omitempty"`
	Height    *FlexFloat `json:"height,omitempty"`
	Goals     *UserGoals `json:"goals,omitempty"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// LoggedFood is a resolved food stored in a day log
type LoggedFood struct {
	ID string `json:"id"`
	ResolvedFoodItem
}

// DailyLog holds all foods a user logged on one calendar day
type DailyLog struct {
	UserID   string       `json:"userId"`
	Date     string       `json:"date"`
	Foods    []LoggedFood `json:"foods"`
	Progress GoalProgress `json:"progress"`
}

// Items returns the resolved items of the log in order.
func (d *DailyLog) Items() []ResolvedFoodItem {
	items := make([]ResolvedFoodItem, len(d.Foods))
	for i, f := range d.Foods {
		items[i] = f.ResolvedFoodItem
	}
	return items
}
