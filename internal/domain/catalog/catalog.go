package catalog

import (
	"fmt"
	"slices"
	"strings"
)

// Company is a tenant.
type Company struct {
	ID   string `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// User is a learner within a company.
type User struct {
	ID          string `db:"id"`
	Username    string `db:"username"`
	DisplayName string `db:"display_name"`
	Role        string `db:"role"`
	CompanyID   string `db:"company_id"`
	IsActive    bool   `db:"is_active"`
}

// Play is a unit of training content made of ordered reps.
type Play struct {
	ID          string `db:"id"`
	CompanyID   string `db:"company_id"`
	Title       string `db:"title"`
	Description string `db:"description"`
	IsActive    bool   `db:"is_active"`
}

// Rep is a single exercise within a play. Position defines the play's rep order.
type Rep struct {
	ID          string  `db:"id"`
	PlayID      string  `db:"play_id"`
	CompanyID   string  `db:"company_id"`
	PromptTitle string  `db:"prompt_title"`
	PromptText  string  `db:"prompt_text"`
	PromptType  string  `db:"prompt_type"`
	AssetID     *string `db:"asset_id"`
	Position    int     `db:"position"`
}

// PromptTypeWatch marks reps that present content rather than ask for a submission.
const PromptTypeWatch = "watch"

// Asset is a media file attached to a rep or a submission.
type Asset struct {
	ID        string `db:"id"`
	Type      string `db:"type"`
	FileName  string `db:"file_name"`
	CompanyID string `db:"company_id"`
}

// Assignment links a user to a play with a progress status.
type Assignment struct {
	ID           string  `db:"id"`
	UserID       string  `db:"user_id"`
	PlayID       string  `db:"play_id"`
	AssignedDate string  `db:"assigned_date"`
	Status       string  `db:"status"`
	CompletedAt  *string `db:"completed_at"`
	Position     int     `db:"position"`
}

// Submission is a user's recorded answer to a rep.
type Submission struct {
	ID             string `db:"id"`
	UserID         string `db:"user_id"`
	RepID          string `db:"rep_id"`
	SubmittedAt    string `db:"submitted_at"`
	SubmissionType string `db:"submission_type"`
	AssetID        string `db:"asset_id"`
	CompanyID      string `db:"company_id"`
}

// Feedback is the grade given to a submission.
type Feedback struct {
	ID           string `db:"id"`
	SubmissionID string `db:"submission_id"`
	CompanyID    string `db:"company_id"`
	Score        int    `db:"score"`
	Text         string `db:"text"`
	CreatedAt    string `db:"created_at"`
}

// Data is the raw content of a catalog before indexing.
type Data struct {
	Companies   []Company
	Users       []User
	Plays       []Play
	Reps        []Rep
	Assets      []Asset
	Assignments []Assignment
	Submissions []Submission
	Feedback    []Feedback
}

// Issue is a referential gap found while indexing. Issues are reported, never fatal.
type Issue struct {
	Entity string
	ID     string
	Ref    string
	RefID  string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s %s references missing %s %s", i.Entity, i.ID, i.Ref, i.RefID)
}

// Catalog is an immutable, indexed snapshot of the relational content.
// It is safe for concurrent reads.
type Catalog struct {
	companies         map[string]Company
	users             map[string]User
	usersByName       map[string]string
	plays             map[string]Play
	reps              map[string]Rep
	repsByPlay        map[string][]Rep
	assets            map[string]Asset
	assignmentsByUser map[string][]Assignment
	submissionsByUser map[string][]Submission
	feedbackBySubmit  map[string]Feedback
	assignmentsCount  int
	submissionsCount  int
}

// New indexes data and returns the snapshot with every integrity issue found.
func New(data Data) (*Catalog, []Issue) {
	c := &Catalog{
		companies:         make(map[string]Company, len(data.Companies)),
		users:             make(map[string]User, len(data.Users)),
		usersByName:       make(map[string]string, len(data.Users)),
		plays:             make(map[string]Play, len(data.Plays)),
		reps:              make(map[string]Rep, len(data.Reps)),
		repsByPlay:        make(map[string][]Rep),
		assets:            make(map[string]Asset, len(data.Assets)),
		assignmentsByUser: make(map[string][]Assignment),
		submissionsByUser: make(map[string][]Submission),
		feedbackBySubmit:  make(map[string]Feedback, len(data.Feedback)),
		assignmentsCount:  len(data.Assignments),
		submissionsCount:  len(data.Submissions),
	}

	for _, co := range data.Companies {
		c.companies[co.ID] = co
	}
	for _, u := range data.Users {
		c.users[u.ID] = u
		c.usersByName[u.Username] = u.ID
	}
	for _, p := range data.Plays {
		c.plays[p.ID] = p
	}
	for _, r := range data.Reps {
		c.reps[r.ID] = r
		c.repsByPlay[r.PlayID] = append(c.repsByPlay[r.PlayID], r)
	}
	for playID := range c.repsByPlay {
		slices.SortStableFunc(c.repsByPlay[playID], func(a, b Rep) int { return a.Position - b.Position })
	}
	for _, a := range data.Assets {
		c.assets[a.ID] = a
	}

	assignments := slices.Clone(data.Assignments)
	slices.SortStableFunc(assignments, func(a, b Assignment) int { return a.Position - b.Position })
	for _, a := range assignments {
		c.assignmentsByUser[a.UserID] = append(c.assignmentsByUser[a.UserID], a)
	}
	for _, s := range data.Submissions {
		c.submissionsByUser[s.UserID] = append(c.submissionsByUser[s.UserID], s)
	}
	for _, f := range data.Feedback {
		c.feedbackBySubmit[f.SubmissionID] = f
	}

	return c, c.validate(data)
}

func (c *Catalog) validate(data Data) []Issue {
	var issues []Issue
	for _, a := range data.Assignments {
		if _, ok := c.plays[a.PlayID]; !ok {
			issues = append(issues, Issue{Entity: "assignment", ID: a.ID, Ref: "play", RefID: a.PlayID})
		}
		if _, ok := c.users[a.UserID]; !ok {
			issues = append(issues, Issue{Entity: "assignment", ID: a.ID, Ref: "user", RefID: a.UserID})
		}
	}
	for _, s := range data.Submissions {
		if _, ok := c.users[s.UserID]; !ok {
			issues = append(issues, Issue{Entity: "submission", ID: s.ID, Ref: "user", RefID: s.UserID})
		}
		if _, ok := c.reps[s.RepID]; !ok {
			issues = append(issues, Issue{Entity: "submission", ID: s.ID, Ref: "rep", RefID: s.RepID})
		}
		if _, ok := c.assets[s.AssetID]; !ok {
			issues = append(issues, Issue{Entity: "submission", ID: s.ID, Ref: "asset", RefID: s.AssetID})
		}
	}
	for _, r := range data.Reps {
		if _, ok := c.plays[r.PlayID]; !ok {
			issues = append(issues, Issue{Entity: "rep", ID: r.ID, Ref: "play", RefID: r.PlayID})
		}
	}
	return issues
}

// UserByUsername looks a user up by login name. Usernames match case-sensitively.
func (c *Catalog) UserByUsername(username string) (User, bool) {
	id, ok := c.usersByName[strings.TrimSpace(username)]
	if !ok {
		return User{}, false
	}
	return c.User(id)
}

// User returns a user by id.
func (c *Catalog) User(id string) (User, bool) {
	u, ok := c.users[id]
	return u, ok
}

// Company returns a company by id.
func (c *Catalog) Company(id string) (Company, bool) {
	co, ok := c.companies[id]
	return co, ok
}

// Play returns a play by id.
func (c *Catalog) Play(id string) (Play, bool) {
	p, ok := c.plays[id]
	return p, ok
}

// Rep returns a rep by id.
func (c *Catalog) Rep(id string) (Rep, bool) {
	r, ok := c.reps[id]
	return r, ok
}

// Asset returns an asset by id.
func (c *Catalog) Asset(id string) (Asset, bool) {
	a, ok := c.assets[id]
	return a, ok
}

// RepsForPlay returns the play's reps in their defined order.
func (c *Catalog) RepsForPlay(playID string) []Rep {
	return c.repsByPlay[playID]
}

// AssignmentsForUser returns the user's assignments in source order.
func (c *Catalog) AssignmentsForUser(userID string) []Assignment {
	return c.assignmentsByUser[userID]
}

// SubmissionsForUser returns the user's submissions.
func (c *Catalog) SubmissionsForUser(userID string) []Submission {
	return c.submissionsByUser[userID]
}

// FeedbackForSubmission returns the grade of a submission, if any.
func (c *Catalog) FeedbackForSubmission(submissionID string) (Feedback, bool) {
	f, ok := c.feedbackBySubmit[submissionID]
	return f, ok
}

// Stats summarizes the snapshot size for health reporting.
type Stats struct {
	Companies   int `json:"companies"`
	Users       int `json:"users"`
	Plays       int `json:"plays"`
	Reps        int `json:"reps"`
	Assets      int `json:"assets"`
	Assignments int `json:"assignments"`
	Submissions int `json:"submissions"`
}

// Stats returns entity counts.
func (c *Catalog) Stats() Stats {
	return Stats{
		Companies:   len(c.companies),
		Users:       len(c.users),
		Plays:       len(c.plays),
		Reps:        len(c.reps),
		Assets:      len(c.assets),
		Assignments: c.assignmentsCount,
		Submissions: c.submissionsCount,
	}
}
