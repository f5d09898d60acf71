package models

// NotificationRequest broadcasts an email to a set of students. Recipients are
// the students holding an active selection of ElectiveID, or every student of
// Department (optionally narrowed to Semester).
type NotificationRequest struct {
	Subject    string `json:"subject" validate:"required,max=200"`
	Body       string `json:"body" validate:"required"`
	ElectiveID string `json:"electiveId" validate:"omitempty,uuid"`
	Department string `json:"department"`
	Semester   int    `json:"semester" validate:"omitempty,min=1,max=8"`
}

// NotificationResult reports how many recipients were queued.
type NotificationResult struct {
	Recipients int `json:"recipients"`
	Batches    int `json:"batches"`
}

// Recipient is a resolved notification target.
type Recipient struct {
	StudentID string `db:"student_id"`
	FullName  string `db:"full_name"`
	Email     string `db:"email"`
}

// RecipientFilter narrows the students a notification is delivered to.
type RecipientFilter struct {
	ElectiveID string
	Department string
	Semester   int
}
