package model

// SubmissionState is the observable outcome of the latest save attempt of a question
type SubmissionState string

const (
	SubmissionNone     SubmissionState = "none"
	SubmissionPending  SubmissionState = "pending"  // Waiting for the quiet period
	SubmissionLoading  SubmissionState = "loading"  // Write in flight
	SubmissionSuccess  SubmissionState = "success"
	SubmissionError    SubmissionState = "error"
	SubmissionRetrying SubmissionState = "retrying" // Caller-initiated retry scheduled
)

// Progress is the answered / visible question count
type Progress struct {
	Total    int `json:"total"`
	Answered int `json:"answered"`
}
