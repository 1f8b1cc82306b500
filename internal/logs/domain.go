package logs

import "time"

// Entry is one activity log record as served by the API.
type Entry struct {
	ID   string `json:"_id"`
	User *struct {
		Name string `json:"name"`
	} `json:"user"`
	Action    string    `json:"action"`
	Module    string    `json:"module"`
	Details   string    `json:"details"`
	Timestamp time.Time `json:"timestamp"`
}

// Actor returns the name of the user who acted, or "Unknown" for deleted users.
func (e Entry) Actor() string {
	if e.User == nil || e.User.Name == "" {
		return "Unknown"
	}
	return e.User.Name
}

// PageView feeds pages/logs.html.
type PageView struct {
	Entries []Entry
}
