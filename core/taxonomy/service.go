package taxonomy

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/aryaedu/tutor/core"
)

var (
	// errors
	ErrNotFound    = errors.New("taxonomy entry not found")
	ErrUnknownKind = errors.New("unknown taxonomy kind")
	errBlankName   = errors.New("name is required")
)

type (
	// Repository stores taxonomy entries. Entries are append-only: there is no update or delete.
	Repository interface {
		// CreateEntry returns a *core.DuplicateError when the name already exists for the kind
		// and core.ErrIDTaken when e.ID does.
		CreateEntry(ctx context.Context, e Entry) (Entry, error)
		GetEntry(ctx context.Context, kind Kind, id string) (Entry, error)
		GetEntryByName(ctx context.Context, kind Kind, name string) (Entry, error)
		// ListEntries returns entries in creation order.
		ListEntries(ctx context.Context, kind Kind, activeOnly bool) ([]Entry, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Add creates a new entry of the given kind. Names are unique per kind (case-sensitive).
func (svc *Service) Add(ctx context.Context, kind Kind, name string) (Entry, error) {
	if !kind.Valid() {
		return Entry{}, ErrUnknownKind
	}
	name = core.CleanString(name)
	if name == "" {
		return Entry{}, core.NewValidationError(nil, core.FieldError{Field: "name", Error: errBlankName.Error()})
	}

	if _, err := svc.repo.GetEntryByName(ctx, kind, name); err == nil {
		return Entry{}, DuplicateName(kind, name)
	} else if errors.Cause(err) != ErrNotFound {
		return Entry{}, errors.Wrapf(err, "looking up %s by name", kind)
	}

	e := Entry{
		Kind:      kind,
		Name:      name,
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	}
	for attempt := 1; ; attempt++ {
		e.ID = newIDFunc(kind)
		created, err := svc.repo.CreateEntry(ctx, e)
		if errors.Cause(err) == core.ErrIDTaken && attempt < core.MaxIDAttempts {
			continue
		}
		return created, err
	}
}

func (svc *Service) List(ctx context.Context, kind Kind, activeOnly bool) ([]Entry, error) {
	if !kind.Valid() {
		return nil, ErrUnknownKind
	}
	return svc.repo.ListEntries(ctx, kind, activeOnly)
}

func (svc *Service) Get(ctx context.Context, kind Kind, id string) (Entry, error) {
	if !kind.Valid() {
		return Entry{}, ErrUnknownKind
	}
	return svc.repo.GetEntry(ctx, kind, core.CleanString(id))
}

// Exists reports whether an entry with id exists for kind.
func (svc *Service) Exists(ctx context.Context, kind Kind, id string) (bool, error) {
	if _, err := svc.Get(ctx, kind, id); err != nil {
		if errors.Cause(err) == ErrNotFound {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// All returns the active entries of every kind, keyed by kind.
func (svc *Service) All(ctx context.Context) (map[Kind][]Entry, error) {
	all := make(map[Kind][]Entry, len(Kinds))
	for _, kind := range Kinds {
		entries, err := svc.repo.ListEntries(ctx, kind, true)
		if err != nil {
			return nil, errors.Wrapf(err, "listing %s entries", kind)
		}
		all[kind] = entries
	}
	return all, nil
}

// DuplicateName is also used by repositories to report a unique violation on the name column.
func DuplicateName(kind Kind, name string) error {
	return core.NewDuplicateError("name", "a "+kind.String()+" named '"+name+"' already exists")
}
