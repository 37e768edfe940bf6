package echoapi

import (
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/aryaedu/tutor/core"
	"github.com/aryaedu/tutor/core/analytics"
	"github.com/aryaedu/tutor/core/auth"
	"github.com/aryaedu/tutor/core/progress"
	"github.com/aryaedu/tutor/core/session"
	"github.com/aryaedu/tutor/core/student"
	"github.com/aryaedu/tutor/core/video"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	data := ctx.QueryParams()
	if len(data) == 0 {
		return
	}
	val, ok := data[orderingParam]
	if !ok || len(val) == 0 || val[0] == "" {
		return
	}

	for _, field := range strings.Split(val[0], ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// boolParam reads a "true"/"1" style query parameter; anything unparsable is false.
func boolParam(ctx echo.Context, name string) bool {
	b, _ := strconv.ParseBool(ctx.QueryParam(name))
	return b
}

func intParam(ctx echo.Context, name string) int {
	n, _ := strconv.Atoi(ctx.QueryParam(name))
	return n
}

func cleanParam(ctx echo.Context, name string) string {
	return core.CleanString(ctx.QueryParam(name))
}

type (
	WelcomeResponse struct {
		AppName string         `json:"app_name"`
		Tagline string         `json:"tagline"`
		Screen  session.Screen `json:"screen"`
	}

	SessionResponse struct {
		Token  string         `json:"token"`
		Screen session.Screen `json:"screen"`
	}

	ScreenResponse struct {
		Screen      session.Screen   `json:"screen"`
		Outcome     string           `json:"outcome"`
		Message     string           `json:"message,omitempty"`
		Identity    *auth.Identity   `json:"identity,omitempty"`
		LogoutArmed bool             `json:"logout_armed"`
		Transitions []session.Screen `json:"transitions"`
	}

	NavigateRequest struct {
		Action session.Screen `json:"action"`
	}

	SessionTimeout struct {
		Minutes int `json:"minutes"`
	}

	LoginResponse struct {
		Token    string         `json:"token"`
		Screen   session.Screen `json:"screen"`
		Identity auth.Identity  `json:"identity"`
	}

	LogoutResponse struct {
		LoggedOut bool           `json:"logged_out"`
		Screen    session.Screen `json:"screen"`
		Message   string         `json:"message"`
	}

	OTPResponse struct {
		Sent    bool   `json:"sent"`
		Success string `json:"success"`
	}

	PasswordResetRequest struct {
		Email string `json:"email" validate:"required,portal_email"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}

	NewEntryRequest struct {
		Name string `json:"name"`
	}

	BulkPublishRequest struct {
		Videos map[string]bool `json:"videos"`
	}

	DashboardResponse struct {
		Identity     auth.Identity          `json:"identity"`
		Overview     analytics.Overview     `json:"overview"`
		RecentVideos []analytics.VideoViews `json:"recent_videos"`
	}

	StudentProgressResponse struct {
		Student  student.Student            `json:"student"`
		Summary  progress.Summary           `json:"summary"`
		Subjects []progress.SubjectProgress `json:"subjects"`
		History  []progress.Entry           `json:"history"`
	}

	ProgressResponse struct {
		Summary  progress.Summary           `json:"summary"`
		Subjects []progress.SubjectProgress `json:"subjects"`
		History  []progress.Entry           `json:"history"`
	}

	// CatalogVideo is a video of the student catalog with the student's own progress on it.
	CatalogVideo struct {
		video.Video
		CompletionPercentage float64 `json:"completion_percentage"`
		IsCompleted          bool    `json:"is_completed"`
	}

	VideoDetailResponse struct {
		Video    video.Video      `json:"video"`
		Progress *progress.Record `json:"progress"`
	}
)

func (pr *PasswordResetRequest) Validate(validate *validator.Validate) error {
	pr.Email = core.CleanString(pr.Email, true /* lower */)
	return validate.Struct(pr)
}
