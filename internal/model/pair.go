package model

import "time"

// CandidatePair is a (prior diagnostic CT, later PET/CT) tuple produced by
// the pairing engine. Immutable after creation.
// Invariant: CTDate < PETDate and 0 <= DaysBetween <= the configured window.
type CandidatePair struct {
	PETStudyUID string
	CTStudyUID  string
	PatientID   string
	PETDate     time.Time
	CTDate      time.Time
	DaysBetween int
	PETReport   string
	CTReport    string
}
