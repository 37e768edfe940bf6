package sqlxrepos

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/aryaedu/tutor/core"
	"github.com/aryaedu/tutor/core/taxonomy"
)

type taxonomyTable struct {
	name    string
	idCol   string
	nameCol string
}

var taxonomyTables = map[taxonomy.Kind]taxonomyTable{
	taxonomy.Stream:  {name: "stream_master", idCol: "stream_id", nameCol: "stream_name"},
	taxonomy.Class:   {name: "class_master", idCol: "class_id", nameCol: "class_name"},
	taxonomy.Subject: {name: "subject_master", idCol: "subject_id", nameCol: "subject_name"},
	taxonomy.Chapter: {name: "chapter_master", idCol: "chapter_id", nameCol: "chapter_name"},
}

type entryRow struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	IsActive  bool      `db:"is_active"`
	CreatedAt time.Time `db:"created_at"`
}

type taxonomyRepository struct {
	exec core.DBExecutor
}

var _ taxonomy.Repository = (*taxonomyRepository)(nil) // interface compliance check

func NewTaxonomyRepository(exec core.DBExecutor) *taxonomyRepository {
	return &taxonomyRepository{exec: exec}
}

func (repo taxonomyRepository) table(kind taxonomy.Kind) (taxonomyTable, error) {
	tbl, ok := taxonomyTables[kind]
	if !ok {
		return taxonomyTable{}, taxonomy.ErrUnknownKind
	}
	return tbl, nil
}

func (repo taxonomyRepository) selectQuery(tbl taxonomyTable) string {
	return fmt.Sprintf("SELECT %s AS id, %s AS name, is_active, created_at FROM %s", tbl.idCol, tbl.nameCol, tbl.name)
}

func (repo taxonomyRepository) fromRow(kind taxonomy.Kind, row entryRow) taxonomy.Entry {
	return taxonomy.Entry{
		Kind:      kind,
		ID:        row.ID,
		Name:      row.Name,
		IsActive:  row.IsActive,
		CreatedAt: row.CreatedAt.UTC(),
	}
}

func (repo taxonomyRepository) CreateEntry(ctx context.Context, e taxonomy.Entry) (taxonomy.Entry, error) {
	tbl, err := repo.table(e.Kind)
	if err != nil {
		return taxonomy.Entry{}, err
	}

	q := fmt.Sprintf("INSERT INTO %s (%s, %s, is_active, created_at) VALUES (?, ?, ?, ?)", tbl.name, tbl.idCol, tbl.nameCol)
	if _, err = repo.exec.ExecContext(ctx, repo.exec.Rebind(q), e.ID, e.Name, e.IsActive, e.CreatedAt.UTC()); err != nil {
		if isPrimaryKeyViolation(err, tbl.name) {
			return taxonomy.Entry{}, core.ErrIDTaken
		}
		if isUniqueViolation(err) {
			return taxonomy.Entry{}, taxonomy.DuplicateName(e.Kind, e.Name)
		}
		return taxonomy.Entry{}, errors.Wrapf(err, "inserting %s", e.Kind)
	}
	return e, nil
}

func (repo taxonomyRepository) GetEntry(ctx context.Context, kind taxonomy.Kind, id string) (taxonomy.Entry, error) {
	tbl, err := repo.table(kind)
	if err != nil {
		return taxonomy.Entry{}, err
	}

	var row entryRow
	q := repo.selectQuery(tbl) + fmt.Sprintf(" WHERE %s = ?", tbl.idCol)
	if err = repo.exec.GetContext(ctx, &row, repo.exec.Rebind(q), id); err != nil {
		return taxonomy.Entry{}, trapNoRowsErr(err, taxonomy.ErrNotFound, "finding "+kind.String()+" by ID")
	}
	return repo.fromRow(kind, row), nil
}

// GetEntryByName matches the exact name, case-sensitive.
func (repo taxonomyRepository) GetEntryByName(ctx context.Context, kind taxonomy.Kind, name string) (taxonomy.Entry, error) {
	tbl, err := repo.table(kind)
	if err != nil {
		return taxonomy.Entry{}, err
	}

	var row entryRow
	q := repo.selectQuery(tbl) + fmt.Sprintf(" WHERE %s = ?", tbl.nameCol)
	if err = repo.exec.GetContext(ctx, &row, repo.exec.Rebind(q), name); err != nil {
		return taxonomy.Entry{}, trapNoRowsErr(err, taxonomy.ErrNotFound, "finding "+kind.String()+" by name")
	}
	return repo.fromRow(kind, row), nil
}

func (repo taxonomyRepository) ListEntries(ctx context.Context, kind taxonomy.Kind, activeOnly bool) ([]taxonomy.Entry, error) {
	tbl, err := repo.table(kind)
	if err != nil {
		return nil, err
	}

	var w where
	if activeOnly {
		w.add("is_active = ?", true)
	}
	q := repo.selectQuery(tbl) + w.String() + " ORDER BY created_at, " + tbl.nameCol

	var rows []entryRow
	if err = repo.exec.SelectContext(ctx, &rows, repo.exec.Rebind(q), w.args...); err != nil {
		return nil, errors.Wrapf(err, "listing %s entries", kind)
	}
	entries := make([]taxonomy.Entry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, repo.fromRow(kind, row))
	}
	return entries, nil
}
