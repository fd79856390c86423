package queue

import "fmt"

// Priority orders jobs in the queue. It is an explicit two-field value
// compared lexicographically: Level first, then Class. Higher values
// win on both fields.
//
// Level is the band of the session that submitted the job; every
// session in a hierarchy gets a level strictly below its parent's, so
// any parent job outranks any descendant job no matter the class.
// Class ranks operation kinds inside one level, so at the same level
// pending log output is flushed ahead of prompts and blocking work.
type Priority struct {
	// Level is the submitting session's band (root default 1000,
	// children strictly lower).
	Level int

	// Class is the operation-kind offset within a level.
	Class int
}

// Compare returns 1 if p outranks o, -1 if o outranks p, and 0 when
// they are equal. Equal priorities are executed in submission order.
func (p Priority) Compare(o Priority) int {
	if p.Level != o.Level {
		if p.Level > o.Level {
			return 1
		}
		return -1
	}
	if p.Class != o.Class {
		if p.Class > o.Class {
			return 1
		}
		return -1
	}
	return 0
}

// String renders the priority as "level/class" for logs and debugging.
func (p Priority) String() string {
	return fmt.Sprintf("%d/%d", p.Level, p.Class)
}
