package progress

import "time"

// Record is the watch state of one student on one video.
type Record struct {
	StudentID            string    `json:"student_id"`
	VideoID              string    `json:"video_id"`
	WatchedDuration      int       `json:"watched_duration"` // seconds
	CompletionPercentage float64   `json:"completion_percentage"`
	IsCompleted          bool      `json:"is_completed"`
	WatchCount           int       `json:"watch_count"`
	LastWatched          time.Time `json:"last_watched"` // UTC
}

// Entry is a Record joined with its video. Video fields are empty when the video was deleted.
type Entry struct {
	Record
	VideoTitle  string `json:"title"`
	VideoLink   string `json:"video_link"`
	SubjectName string `json:"subject_name"`
	ChapterName string `json:"chapter_name"`
}

type Summary struct {
	WatchedCount   int     `json:"watched_count"`
	CompletedCount int     `json:"completed_count"`
	AvgCompletion  float64 `json:"avg_completion"`
	TotalWatchTime int     `json:"total_watch_time"` // seconds
}

type SubjectProgress struct {
	SubjectID     string  `json:"subject_id"`
	SubjectName   string  `json:"subject_name"`
	VideosWatched int     `json:"videos_watched"`
	AvgProgress   float64 `json:"avg_progress"`
	Completed     int     `json:"completed_videos"`
}

// Update is submitted by the student player.
type Update struct {
	CompletionPercentage float64 `json:"completion_percentage"`
	IsCompleted          bool    `json:"is_completed"`
}

// clampPercentage bounds p to [0, 100].
func clampPercentage(p float64) float64 {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return p
	}
}
