package runsheet

// Stats summarizes a run by status.
type Stats struct {
	Total     int `json:"total"`
	Upcoming  int `json:"upcoming"`
	Live      int `json:"live"`
	Delayed   int `json:"delayed"`
	Completed int `json:"completed"`
	Skipped   int `json:"skipped"`
}

// ComputeStats counts cues by status. Upcoming is whatever remains of the total.
func ComputeStats(cues []Cue) Stats {
	s := Stats{Total: len(cues)}
	for _, c := range cues {
		switch c.Status {
		case StatusLive:
			s.Live++
		case StatusDelayed:
			s.Delayed++
		case StatusCompleted:
			s.Completed++
		case StatusSkipped:
			s.Skipped++
		}
	}
	s.Upcoming = s.Total - s.Live - s.Delayed - s.Completed - s.Skipped
	return s
}
