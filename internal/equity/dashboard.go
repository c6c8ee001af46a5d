package equity

import "time"

// DashboardSummary bundles the four standard analysis windows the dashboard
// shows side by side.
type DashboardSummary struct {
	Daily   *Analysis `json:"daily"`
	Weekly  *Analysis `json:"weekly"`
	Monthly *Analysis `json:"monthly"`
	AllTime *Analysis `json:"allTime"`
}

// DashboardSummary runs four independent analyses for the household:
// day-to-date, week-to-date (weeks start Sunday), month-to-date, and
// all-time. Each reads its own point-in-time snapshot; there is no shared
// intermediate state between them.
func (s *Service) DashboardSummary(householdID string) (*DashboardSummary, error) {
	now := time.Now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	startOfWeek := startOfDay.AddDate(0, 0, -int(startOfDay.Weekday()))
	startOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	daily, err := s.Analyze(householdID, &startOfDay, nil)
	if err != nil {
		return nil, err
	}
	weekly, err := s.Analyze(householdID, &startOfWeek, nil)
	if err != nil {
		return nil, err
	}
	monthly, err := s.Analyze(householdID, &startOfMonth, nil)
	if err != nil {
		return nil, err
	}
	allTime, err := s.Analyze(householdID, nil, nil)
	if err != nil {
		return nil, err
	}

	return &DashboardSummary{
		Daily:   daily,
		Weekly:  weekly,
		Monthly: monthly,
		AllTime: allTime,
	}, nil
}
