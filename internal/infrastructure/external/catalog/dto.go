package catalog

// courseTutorsDTO is the catalog's response for a course's tutor assignments.
type courseTutorsDTO struct {
	CourseID string   `json:"course_id"`
	TutorIDs []string `json:"tutor_ids"`
}

// errorDTO is the catalog's error envelope.
type errorDTO struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
