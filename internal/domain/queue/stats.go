package queue

// Stats summarizes one set of queue entries.
type Stats struct {
	Total      int `json:"total"`
	Waiting    int `json:"waiting"`
	InProgress int `json:"in_progress"`
	Done       int `json:"done"`
	NoShow     int `json:"no_show"`
	// AverageWaitTime is the mean of StartTime - CheckInTime in minutes over
	// entries that have started; 0 when none have.
	AverageWaitTime float64 `json:"average_wait_time"`
}

func ComputeStats(entries []*Entry) Stats {
	var (
		st      Stats
		waited  float64
		started int
	)
	st.Total = len(entries)
	for _, e := range entries {
		switch e.Status {
		case StatusWaiting:
			st.Waiting++
		case StatusInProgress:
			st.InProgress++
		case StatusDone:
			st.Done++
		case StatusNoShow:
			st.NoShow++
		}
		if e.StartTime != nil && !e.CheckInTime.IsZero() {
			waited += e.StartTime.Sub(e.CheckInTime).Minutes()
			started++
		}
	}
	if started > 0 {
		st.AverageWaitTime = waited / float64(started)
	}
	return st
}

// NextQueueNumber is one more than the highest number issued on day. The
// service draws numbers from an atomic counter; this is used to seed it.
func NextQueueNumber(entries []*Entry, day string) int {
	highest := 0
	for _, e := range entries {
		if e.QueueDate == day && e.QueueNumber > highest {
			highest = e.QueueNumber
		}
	}
	return highest + 1
}
