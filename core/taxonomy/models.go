package taxonomy

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/aryaedu/tutor/core"
)

// Kinds
const (
	Stream  Kind = "stream"
	Class   Kind = "class"
	Subject Kind = "subject"
	Chapter Kind = "chapter"
)

var (
	Kinds = []Kind{Stream, Class, Subject, Chapter}

	kindPrefixes = map[Kind]string{
		Stream:  "S",
		Class:   "C",
		Subject: "SUB",
		Chapter: "CH",
	}

	newIDFunc = newID // mockable
)

// Kind is one of the four classification levels of a video.
type Kind string

func (k Kind) Valid() bool {
	_, ok := kindPrefixes[k]
	return ok
}

func (k Kind) Prefix() string { return kindPrefixes[k] }

func (k Kind) String() string { return string(k) }

// ParseKind accepts the singular or plural kind name, case-insensitive.
func ParseKind(s string) (Kind, error) {
	s = core.CleanString(s, true /* lower */)
	switch s {
	case "streams":
		s = "stream"
	case "classes":
		s = "class"
	case "subjects":
		s = "subject"
	case "chapters":
		s = "chapter"
	}
	if k := Kind(s); k.Valid() {
		return k, nil
	}
	return "", ErrUnknownKind
}

// newID returns the kind prefix followed by 8 upper-case hex characters.
func newID(kind Kind) string {
	hex := strings.ReplaceAll(uuid.New().String(), "-", "")
	return kind.Prefix() + strings.ToUpper(hex[:8])
}

type Entry struct {
	Kind      Kind      `json:"kind"`
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

type NewEntry struct {
	Name string `json:"name" validate:"required,notblank,max=100"`
}

func (ne *NewEntry) Validate(validate *validator.Validate) error {
	ne.Name = core.CleanString(ne.Name)
	return validate.Struct(ne)
}
