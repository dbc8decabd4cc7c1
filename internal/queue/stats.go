package queue

import "time"

// Stats is the derived, read-only aggregate over the job table. It is
// recomputed on demand from the same point-in-time view as the job list.
type Stats struct {
	TotalUploads      int       `json:"totalUploads"`
	SuccessfulUploads int       `json:"successfulUploads"`
	FailedUploads     int       `json:"failedUploads"`
	TotalViews        int64     `json:"totalViews"`
	TotalEngagement   int64     `json:"totalEngagement"`
	LastUpdated       time.Time `json:"lastUpdated"`
}

// Estimated reach per completed upload, keyed by platform id. Real
// analytics ingestion is out of scope; the figures only need to be
// deterministic so the aggregate is stable between polls.
var platformViews = map[string]int64{
	"youtube":   1200,
	"tiktok":    800,
	"instagram": 450,
	"twitter":   150,
}

var platformEngagement = map[string]int64{
	"youtube":   95,
	"tiktok":    120,
	"instagram": 60,
	"twitter":   25,
}

// ComputeStats folds a consistent job slice into the aggregate. Callers
// must pass jobs taken from a single point-in-time read.
func ComputeStats(jobs []Job, now time.Time) Stats {
	stats := Stats{
		TotalUploads: len(jobs),
		LastUpdated:  now,
	}

	for _, job := range jobs {
		switch job.Status {
		case StatusCompleted:
			stats.SuccessfulUploads++
			for _, p := range job.Platforms {
				stats.TotalViews += platformViews[p]
				stats.TotalEngagement += platformEngagement[p]
			}
		case StatusFailed:
			stats.FailedUploads++
		}
	}

	return stats
}
