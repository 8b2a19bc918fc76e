package models

import "time"

// Session is the timed testing record correlated 1:1 with a registration.
// At most one session exists per registration; it is upserted in place.
type Session struct {
	RegistrationID string `json:"registrationId"`
	User           string `json:"user"`
	WWID           string `json:"wwid"`
	Email          string `json:"email"`
	Date           string `json:"date"`
	Slot           string `json:"slot"`
	RegisteredGame string `json:"registeredGame"`

	// ElapsedTime is accumulated active-timer milliseconds.
	ElapsedTime       int64      `json:"elapsedTime"`
	CompletionPercent float64    `json:"completionPercent"`
	GameTasks         []GameTask `json:"gameTasks"` // insertion order, game name unique
	ActiveGameTask    string     `json:"activeGameTask,omitempty"`
	StartTime         *time.Time `json:"startTime,omitempty"`
	LastUpdated       time.Time  `json:"lastUpdated"`
}

// Task returns the task for a game, or nil.
func (s *Session) Task(game string) *GameTask {
	for i := range s.GameTasks {
		if s.GameTasks[i].Game == game {
			return &s.GameTasks[i]
		}
	}
	return nil
}

// GameTask tracks one game within a session: play time, issues, notes and
// screenshots. Active from creation until explicitly completed, then frozen.
type GameTask struct {
	Game                 string        `json:"game"`
	StartTime            time.Time     `json:"startTime"`
	EndTime              *time.Time    `json:"endTime,omitempty"`
	IsActive             bool          `json:"isActive"`
	Crashes              int           `json:"crashes"`
	Observations         []Observation `json:"observations"`
	Screenshots          []Screenshot  `json:"screenshots"`
	CompletionPercentage int           `json:"completionPercentage"`
	// TotalPlayTime is accumulated play milliseconds; updated only on pause.
	TotalPlayTime int64 `json:"totalPlayTime"`
	// GameStartTime is the reference instant of the current unpaused run,
	// nil while paused or not yet started.
	GameStartTime *time.Time `json:"gameStartTime,omitempty"`
}

// Observation is one timestamped free-form note on a game task.
type Observation struct {
	Time time.Time `json:"time"`
	Note string    `json:"note"`
}

// Screenshot is one captured progress image, stored inline as a data URL.
type Screenshot struct {
	ID               string    `json:"id"`
	Timestamp        time.Time `json:"timestamp"`
	ImageData        string    `json:"imageData"`
	Filename         string    `json:"filename"`
	CompletionAtTime int       `json:"completionAtTime"`
}
