package models

import "strconv"

// MonthlyCount is one point of the posts-per-month series. The API sends
// counts either as numbers or numeric strings.
type MonthlyCount struct {
	Month string      `json:"month"`
	Count FlexibleInt `json:"count"`
}

type PostStats struct {
	Total     int            `json:"total"`
	Published int            `json:"published"`
	Drafts    int            `json:"drafts"`
	Monthly   []MonthlyCount `json:"monthly"`
}

// LatestMonth is the label of the most recent month, or "" without data.
func (s PostStats) LatestMonth() string {
	if len(s.Monthly) == 0 {
		return ""
	}
	return s.Monthly[len(s.Monthly)-1].Month
}

// PeakMonthCount is the highest monthly count.
func (s PostStats) PeakMonthCount() int {
	peak := 0
	for _, m := range s.Monthly {
		if int(m.Count) > peak {
			peak = int(m.Count)
		}
	}
	return peak
}

// AverageMonthly is the rounded mean of the monthly counts.
func (s PostStats) AverageMonthly() int {
	if len(s.Monthly) == 0 {
		return 0
	}
	sum := 0
	for _, m := range s.Monthly {
		sum += int(m.Count)
	}
	n := len(s.Monthly)
	return (sum*2 + n) / (2 * n)
}

type FlexibleInt int

func (f *FlexibleInt) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	*f = FlexibleInt(n)
	return nil
}
