package sqlxrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/aryaedu/tutor/core"
	"github.com/aryaedu/tutor/core/student"
)

const studentSelect = `SELECT s.student_id, s.name, s.college_name, s.address_1, s.address_2, s.address_3, s.address_4,
       s.city, s.state, s.pin_code, s.dob, s.stream_id, s.class_id, s.mobile_no, s.video_enabled,
       s.password_hash, s.is_active, s.last_login, s.otp_code, s.otp_expiry, s.otp_attempts, s.created_at, s.updated_at,
       sm.stream_name, cm.class_name
FROM students s
LEFT JOIN stream_master sm ON s.stream_id = sm.stream_id
LEFT JOIN class_master cm ON s.class_id = cm.class_id`

var studentOrderings = map[string]string{
	"student_id": "s.student_id",
	"name":       "s.name",
	"created_at": "s.created_at",
	"last_login": "s.last_login",
}

type studentRow struct {
	ID           string      `db:"student_id"`
	Name         string      `db:"name"`
	CollegeName  null.String `db:"college_name"`
	Address1     null.String `db:"address_1"`
	Address2     null.String `db:"address_2"`
	Address3     null.String `db:"address_3"`
	Address4     null.String `db:"address_4"`
	City         null.String `db:"city"`
	State        null.String `db:"state"`
	PinCode      null.String `db:"pin_code"`
	DOB          null.String `db:"dob"`
	StreamID     null.String `db:"stream_id"`
	ClassID      null.String `db:"class_id"`
	Mobile       string      `db:"mobile_no"`
	VideoEnabled bool        `db:"video_enabled"`
	PasswordHash null.String `db:"password_hash"`
	IsActive     bool        `db:"is_active"`
	LastLogin    null.Time   `db:"last_login"`
	OTPCode      null.String `db:"otp_code"`
	OTPExpiry    null.Time   `db:"otp_expiry"`
	OTPAttempts  int         `db:"otp_attempts"`
	CreatedAt    time.Time   `db:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"`

	StreamName null.String `db:"stream_name"`
	ClassName  null.String `db:"class_name"`
}

type studentRepository struct {
	exec core.DBExecutor
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(exec core.DBExecutor) *studentRepository {
	return &studentRepository{exec: exec}
}

func (repo studentRepository) toRow(s student.Student) studentRow {
	return studentRow{
		ID:           s.ID,
		Name:         s.Name,
		CollegeName:  nullString(s.CollegeName),
		Address1:     nullString(s.Address1),
		Address2:     nullString(s.Address2),
		Address3:     nullString(s.Address3),
		Address4:     nullString(s.Address4),
		City:         nullString(s.City),
		State:        nullString(s.State),
		PinCode:      nullString(s.PinCode),
		DOB:          nullString(s.DOB),
		StreamID:     nullString(s.StreamID),
		ClassID:      nullString(s.ClassID),
		Mobile:       s.Mobile,
		VideoEnabled: s.VideoEnabled,
		PasswordHash: nullString(string(s.PasswordHash)),
		IsActive:     s.IsActive,
		LastLogin:    nullTime(s.LastLogin),
		OTPCode:      nullString(s.OTPCode),
		OTPExpiry:    nullTime(s.OTPExpiry),
		OTPAttempts:  s.OTPAttempts,
		CreatedAt:    s.CreatedAt.UTC(),
		UpdatedAt:    s.UpdatedAt.UTC(),
	}
}

func (repo studentRepository) fromRow(row studentRow) student.Student {
	s := student.Student{
		ID:           row.ID,
		Name:         row.Name,
		Mobile:       row.Mobile,
		CollegeName:  row.CollegeName.String,
		Address1:     row.Address1.String,
		Address2:     row.Address2.String,
		Address3:     row.Address3.String,
		Address4:     row.Address4.String,
		City:         row.City.String,
		State:        row.State.String,
		PinCode:      row.PinCode.String,
		DOB:          row.DOB.String,
		StreamID:     row.StreamID.String,
		ClassID:      row.ClassID.String,
		VideoEnabled: row.VideoEnabled,
		IsActive:     row.IsActive,
		OTPCode:      row.OTPCode.String,
		OTPAttempts:  row.OTPAttempts,
		StreamName:   row.StreamName.String,
		ClassName:    row.ClassName.String,
		CreatedAt:    row.CreatedAt.UTC(),
		UpdatedAt:    row.UpdatedAt.UTC(),
	}
	if row.PasswordHash.Valid {
		s.PasswordHash = []byte(row.PasswordHash.String)
	}
	if row.LastLogin.Valid {
		s.LastLogin = row.LastLogin.Time.UTC()
	}
	if row.OTPExpiry.Valid {
		s.OTPExpiry = row.OTPExpiry.Time.UTC()
	}
	return s
}

func (repo studentRepository) duplicateMobile(err error) error {
	if isUniqueViolation(err) {
		return core.NewDuplicateError("mobile_no", student.ErrMobileExists.Error())
	}
	return nil
}

func (repo studentRepository) CreateStudent(ctx context.Context, s student.Student) (student.Student, error) {
	row := repo.toRow(s)
	q := `INSERT INTO students (student_id, name, college_name, address_1, address_2, address_3, address_4,
    city, state, pin_code, dob, stream_id, class_id, mobile_no, video_enabled, password_hash, is_active,
    last_login, otp_code, otp_expiry, otp_attempts, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := repo.exec.ExecContext(ctx, repo.exec.Rebind(q),
		row.ID, row.Name, row.CollegeName, row.Address1, row.Address2, row.Address3, row.Address4,
		row.City, row.State, row.PinCode, row.DOB, row.StreamID, row.ClassID, row.Mobile, row.VideoEnabled,
		row.PasswordHash, row.IsActive, row.LastLogin, row.OTPCode, row.OTPExpiry, row.OTPAttempts, row.CreatedAt, row.UpdatedAt)
	if err != nil {
		if isPrimaryKeyViolation(err, "students") {
			return student.Student{}, core.ErrIDTaken
		}
		if dErr := repo.duplicateMobile(err); dErr != nil {
			return student.Student{}, dErr
		}
		return student.Student{}, errors.Wrap(err, "inserting student")
	}
	return repo.fromRow(row), nil
}

func (repo studentRepository) GetStudent(ctx context.Context, filter student.GetFilter) (student.Student, error) {
	var w where
	switch {
	case filter.ID != "":
		w.add("s.student_id = ?", filter.ID)
	case filter.Mobile != "":
		w.add("s.mobile_no = ?", filter.Mobile)
	default:
		return student.Student{}, student.ErrNotFound
	}
	if filter.ActiveOnly {
		w.add("s.is_active = ?", true)
	}

	var row studentRow
	if err := repo.exec.GetContext(ctx, &row, repo.exec.Rebind(studentSelect+w.String()), w.args...); err != nil {
		return student.Student{}, trapNoRowsErr(err, student.ErrNotFound, "finding student")
	}
	return repo.fromRow(row), nil
}

func (repo studentRepository) QueryStudents(ctx context.Context, filter student.QueryFilter) ([]student.Student, error) {
	var w where
	if !filter.IncludeInactive {
		w.add("s.is_active = ?", true)
	}
	if filter.Search != "" {
		val := likePattern(filter.Search)
		w.add("(LOWER(s.name) LIKE ? OR s.mobile_no LIKE ? OR LOWER(s.student_id) LIKE ?)", val, val, val)
	}
	if filter.StreamID != "" {
		w.add("s.stream_id = ?", filter.StreamID)
	}
	if filter.ClassID != "" {
		w.add("s.class_id = ?", filter.ClassID)
	}
	orderBy := core.OrderByClause(filter.Ordering, studentOrderings, "s.created_at DESC")

	var rows []studentRow
	q := studentSelect + w.String() + " ORDER BY " + orderBy
	if err := repo.exec.SelectContext(ctx, &rows, repo.exec.Rebind(q), w.args...); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	students := make([]student.Student, 0, len(rows))
	for _, row := range rows {
		students = append(students, repo.fromRow(row))
	}
	return students, nil
}

func (repo studentRepository) UpdateStudent(ctx context.Context, s student.Student) (student.Student, error) {
	row := repo.toRow(s)
	q := `UPDATE students SET name = ?, college_name = ?, address_1 = ?, address_2 = ?, address_3 = ?, address_4 = ?,
    city = ?, state = ?, pin_code = ?, dob = ?, stream_id = ?, class_id = ?, mobile_no = ?, video_enabled = ?,
    password_hash = ?, is_active = ?, last_login = ?, otp_code = ?, otp_expiry = ?, otp_attempts = ?, updated_at = ?
WHERE student_id = ?`
	res, err := repo.exec.ExecContext(ctx, repo.exec.Rebind(q),
		row.Name, row.CollegeName, row.Address1, row.Address2, row.Address3, row.Address4,
		row.City, row.State, row.PinCode, row.DOB, row.StreamID, row.ClassID, row.Mobile, row.VideoEnabled,
		row.PasswordHash, row.IsActive, row.LastLogin, row.OTPCode, row.OTPExpiry, row.OTPAttempts, row.UpdatedAt, row.ID)
	if err != nil {
		if dErr := repo.duplicateMobile(err); dErr != nil {
			return student.Student{}, dErr
		}
		return student.Student{}, errors.Wrap(err, "updating student")
	}
	if err = checkAffected(res, student.ErrNotFound, "updating student"); err != nil {
		return student.Student{}, err
	}
	return repo.fromRow(row), nil
}
