package db

import (
	"fmt"
	"time"
)

// Submission holds all the information for an accepted form submission.
type Submission struct {
	// Submission ID (auto)
	ID int64 `xorm:"pk autoincr"`
	// ID of the form that was submitted
	FormID string `xorm:"index"`
	// Session the submission was made from
	SessionID string
	// Submitted field values
	ValueMap map[string]string
	// Messages returned from the submission action
	Messages []string
	// Error returned from a failed submission action
	Error string
	// Time when the submission was queued
	SubmitTime time.Time
	// Time when processing finished (0 if ongoing)
	EndTime time.Time
}

// InsertSubmission inserts a new Submission into the database.  Upon
// successful return, the Submission has a new unique ID.
func (conn *Connection) InsertSubmission(sub *Submission) error {
	_, err := conn.engine.Insert(sub) // ID is assigned on insertion
	return err
}

// UpdateSubmission updates an existing Submission entry in the database.
func (conn *Connection) UpdateSubmission(sub *Submission) error {
	_, err := conn.engine.ID(sub.ID).AllCols().Update(sub)
	return err
}

// IsFinished returns true if processing of the Submission has finished (has
// an EndTime).
func (sub *Submission) IsFinished() bool {
	return !sub.EndTime.IsZero()
}

// FormSubmissions retrieves all the Submissions of a given form.
func (conn *Connection) FormSubmissions(formID string) ([]Submission, error) {
	subs := make([]Submission, 0)
	if err := conn.engine.Where("form_id = ?", formID).Find(&subs); err != nil {
		return nil, err
	}
	return subs, nil
}

// AllSubmissions returns all Submission entries in the database.
func (conn *Connection) AllSubmissions() ([]Submission, error) {
	subs := make([]Submission, 0)
	if err := conn.engine.Find(&subs); err != nil {
		return nil, err
	}
	return subs, nil
}

// GetSubmission retrieves a Submission from the database given its ID.
func (conn *Connection) GetSubmission(id int64) (*Submission, error) {
	sub := new(Submission)
	if has, err := conn.engine.ID(id).Get(sub); err != nil {
		return nil, err
	} else if !has {
		return nil, fmt.Errorf("not found")
	}
	return sub, nil
}
