package models

import "fmt"

// Kind tags the variant of a scored or validated subject.
type Kind string

const (
	KindRun    Kind = "run"
	KindRunner Kind = "runner"
	KindTeam   Kind = "team"
)

// Ref is a stable identity for a subject, built from its primary key.
type Ref struct {
	Kind Kind
	ID   int64
}

func (r Ref) String() string {
	return fmt.Sprintf("%s/%d", r.Kind, r.ID)
}
