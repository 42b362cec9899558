package model

import "time"

type Thread struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Body  string `json:"body,omitempty"`

	Pinned   bool   `json:"pinned"`
	PinRank  string `json:"pinRank,omitempty"`
	Archived bool   `json:"archived"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type ChangeKind string

const (
	ChangeAdd       ChangeKind = "add"
	ChangePin       ChangeKind = "pin"
	ChangeUnpin     ChangeKind = "unpin"
	ChangeArchive   ChangeKind = "archive"
	ChangeUnarchive ChangeKind = "unarchive"
	ChangeTouch     ChangeKind = "touch"
	ChangeDelete    ChangeKind = "delete"
)

// Change is one row of the change log. Seq is strictly increasing.
type Change struct {
	Seq      int64      `json:"seq"`
	ThreadID string     `json:"threadId"`
	Kind     ChangeKind `json:"kind"`
	At       time.Time  `json:"at"`
}

type Counts struct {
	Pinned   int `json:"pinned"`
	Regular  int `json:"regular"`
	Archived int `json:"archived"`
}

func (c Counts) Total() int { return c.Pinned + c.Regular + c.Archived }
