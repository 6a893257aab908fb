package api

import (
	"encoding/json"
	"time"
)

// Object is a JSON object whose shape the dashboard passes through untouched.
type Object = map[string]any

// Credentials are the login form values.
type Credentials struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// User is the authenticated operator.
type User struct {
	ID       string `json:"id,omitempty"`
	Username string `json:"username"`
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role,omitempty"`
}

// LoginResponse carries the token pair issued on login.
type LoginResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	User         *User  `json:"user,omitempty"`
}

// PasswordChange is the change-password form.
type PasswordChange struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8,nefield=CurrentPassword"`
}

// Video is a recorded fall incident.
type Video struct {
	ID        string `json:"id,omitempty"`
	Filename  string `json:"filename"`
	CreatedAt string `json:"createdAt"`
	IsChecked bool   `json:"isChecked"`
	Size      int64  `json:"size,omitempty"`
	DeviceID  string `json:"device_id,omitempty"`
}

// Pagination describes one page of a list.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// VideoList is a page of videos.
type VideoList struct {
	Data       []Video    `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// VideoQuery filters, sorts and paginates ListVideos. Zero values take the defaults.
type VideoQuery struct {
	Page      int    `validate:"omitempty,min=1"`
	Limit     int    `validate:"omitempty,min=1"`
	Search    string `validate:"omitempty,max=200"`
	IsChecked *bool
	SortBy    string `validate:"omitempty,oneof=createdAt filename isChecked"`
	SortOrder string `validate:"omitempty,oneof=asc desc"`
	StartDate string `validate:"omitempty,datetime=2006-01-02"`
	EndDate   string `validate:"omitempty,datetime=2006-01-02"`
}

// ChartQuery selects the chart series period.
type ChartQuery struct {
	Period    string `validate:"omitempty,oneof=day week month year"`
	StartDate string `validate:"omitempty,datetime=2006-01-02"`
	EndDate   string `validate:"omitempty,datetime=2006-01-02"`
}

// Download is a binary payload such as a video file or thumbnail.
type Download struct {
	Data        []byte
	ContentType string
}

// Notification is a detection event pushed to the operator.
type Notification struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Filename  string `json:"filename,omitempty"`
	DeviceID  string `json:"device_id,omitempty"`
	CreatedAt string `json:"createdAt"`
	IsRead    bool   `json:"isRead"`
}

// NotificationQuery pages through the notification history.
type NotificationQuery struct {
	Page  int `validate:"omitempty,min=1"`
	Limit int `validate:"omitempty,min=1"`
	// Since limits the latest poll to events after this instant.
	Since time.Time
}

// decodeList accepts either a bare JSON array or an object wrapping it under "data".
func decodeList[T any](body []byte) ([]T, error) {
	if len(body) == 0 {
		return []T{}, nil
	}
	var items []T
	if err := json.Unmarshal(body, &items); err == nil {
		return items, nil
	}
	var wrapped struct {
		Data []T `json:"data"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, err
	}
	if wrapped.Data == nil {
		return []T{}, nil
	}
	return wrapped.Data, nil
}
