package courses

// Course is a course record as served by the API.
type Course struct {
	ID          string `json:"_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Duration    string `json:"duration"`
}

// Input is the create/update payload.
type Input struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
	Duration    string `json:"duration" validate:"max=100"`
}

type enrollRequest struct {
	CourseID string `json:"courseId"`
}

// PageView feeds pages/courses.html.
type PageView struct {
	Courses []Course
	Form    Input
	Editing *Course
	Errors  map[string]string
}
