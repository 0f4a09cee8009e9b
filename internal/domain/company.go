package domain

import "time"

type Company struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	EnrollmentCode string    `json:"enrollmentCode"`
	CreatedAt      time.Time `json:"createdAt"`
	Version        int32     `json:"-"`
}
