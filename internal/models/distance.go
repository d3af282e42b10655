package models

// Distance keeps per-job travel distance and time, 1:1 with Job.
type Distance struct {
	JobID    int    `json:"job_id"`
	Distance string `json:"distance,omitempty"`
	Time     string `json:"time,omitempty"`
}

type DistanceFeedRequest struct {
	JobID           int    `json:"jobid"`
	Distance        string `json:"distance"`
	Time            string `json:"time"`
	SessionTime     string `json:"session_time"`
	AdminComment    string `json:"admincomment"`
	Flagged         string `json:"flagged"`
	ManuallyHandled string `json:"manually_handled"`
	ByAdmin         string `json:"by_admin"`
}
