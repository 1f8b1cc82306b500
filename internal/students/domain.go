package students

import "errors"

// CourseRef is the short course shape used in selects and enrolment lists.
type CourseRef struct {
	ID    string `json:"_id"`
	Title string `json:"title"`
}

// Account is the user account a student record points at.
type Account struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Student is a student record as served by the API. Name and email live on
// the linked account.
type Student struct {
	ID              string      `json:"_id"`
	Account         Account     `json:"userId"`
	Phone           string      `json:"phone"`
	Address         string      `json:"address"`
	EnrolledCourses []CourseRef `json:"enrolledCourses"`
}

// CourseIDs lists the ids of the enrolled courses.
func (s Student) CourseIDs() []string {
	ids := make([]string, 0, len(s.EnrolledCourses))
	for _, c := range s.EnrolledCourses {
		ids = append(ids, c.ID)
	}
	return ids
}

// CourseTitles lists the titles of the enrolled courses.
func (s Student) CourseTitles() []string {
	titles := make([]string, 0, len(s.EnrolledCourses))
	for _, c := range s.EnrolledCourses {
		titles = append(titles, c.Title)
	}
	return titles
}

// CreateInput is the create student form. RoleID is filled in by the service.
type CreateInput struct {
	Name            string   `json:"name" validate:"required,max=120"`
	Email           string   `json:"email" validate:"required,email"`
	Password        string   `json:"password" validate:"required,min=6"`
	Phone           string   `json:"phone" validate:"max=40"`
	Address         string   `json:"address" validate:"max=300"`
	EnrolledCourses []string `json:"enrolledCourses"`
	RoleID          string   `json:"roleId"`
}

type assignRequest struct {
	EnrolledCourses []string `json:"enrolledCourses"`
}

type roleRef struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}

// ErrStudentRoleMissing means the API has no role named Student to attach.
var ErrStudentRoleMissing = errors.New("students: Student role not found")

// PageView feeds pages/students.html.
type PageView struct {
	Students  []Student
	Courses   []CourseRef
	Form      CreateInput
	Errors    map[string]string
	Assigning string
}
