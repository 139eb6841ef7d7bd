package proficiency

import "fmt"

// Level is the granularity a proficiency record is tracked at.
type Level string

const (
	LevelItem   Level = "item"
	LevelModule Level = "module"
	LevelDomain Level = "domain"
)

// AllLevels returns the levels from finest to coarsest.
func AllLevels() []Level {
	return []Level{LevelItem, LevelModule, LevelDomain}
}

// ParseLevel converts a string into a Level.
func ParseLevel(s string) (Level, error) {
	switch Level(s) {
	case LevelItem, LevelModule, LevelDomain:
		return Level(s), nil
	}
	return "", &ValidationError{Field: "level", Value: s, Reason: "unknown level"}
}

// Parent returns the next coarser level. Domain has no parent.
func (l Level) Parent() (Level, bool) {
	switch l {
	case LevelItem:
		return LevelModule, true
	case LevelModule:
		return LevelDomain, true
	}
	return "", false
}

// Child returns the next finer level. Item has no child.
func (l Level) Child() (Level, bool) {
	switch l {
	case LevelDomain:
		return LevelModule, true
	case LevelModule:
		return LevelItem, true
	}
	return "", false
}

// Key identifies one proficiency record.
type Key struct {
	StudentID string `json:"student_id"`
	Level     Level  `json:"level"`
	ID        string `json:"identifier"`
}

// ItemKey, ModuleKey and DomainKey build keys for the given student.
func ItemKey(studentID, id string) Key {
	return Key{StudentID: studentID, Level: LevelItem, ID: id}
}

func ModuleKey(studentID, id string) Key {
	return Key{StudentID: studentID, Level: LevelModule, ID: id}
}

func DomainKey(studentID, id string) Key {
	return Key{StudentID: studentID, Level: LevelDomain, ID: id}
}

// String renders the key as "student/level/id". Stores use it as the primary key.
func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%s", k.StudentID, k.Level, k.ID)
}

// Validate checks that every component of the key is present and the level is known.
func (k Key) Validate() error {
	if k.StudentID == "" {
		return &ValidationError{Field: "student_id", Reason: "must not be empty"}
	}
	if _, err := ParseLevel(string(k.Level)); err != nil {
		return err
	}
	if k.ID == "" {
		return &ValidationError{Field: "identifier", Reason: "must not be empty"}
	}
	return nil
}
