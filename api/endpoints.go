// Package api is the logical operation facade of the dashboard backend. Each operation
// maps to one endpoint and decides caching, invalidation and response decoding; the
// transport concerns live in httpclient.
package api

import (
	"net/url"
	"sort"
	"strings"
)

// Endpoint catalogue. Paths are relative to the configured base URL.
const (
	AuthLogin          = "/auth/login"
	AuthLogout         = "/auth/logout"
	AuthRefresh        = "/auth/refresh-token"
	AuthCheckSession   = "/auth/check-session"
	AuthChangePassword = "/auth/change-password"

	UsersProfile = "/users/profile"
	UsersList    = "/users"
	UsersDetail  = "/users/:id"

	VideosList      = "/videos"
	VideosDetail    = "/videos/:id"
	VideosStatus    = "/videos/:id/status"
	VideosDownload  = "/videos/:id/download"
	VideosThumbnail = "/videos/:id/thumbnail"

	StreamLive     = "/stream/live"
	StreamStatus   = "/stream/status"
	StreamStart    = "/stream/start"
	StreamStop     = "/stream/stop"
	StreamSettings = "/stream/settings"

	DashboardStats        = "/dashboard/stats"
	DashboardRecentVideos = "/dashboard/recent-videos"
	DashboardChartData    = "/dashboard/chart-data"
	DashboardAlerts       = "/dashboard/alerts"

	SettingsGeneral       = "/settings/general"
	SettingsNotifications = "/settings/notifications"
	SettingsCamera        = "/settings/camera"
	SettingsThreshold     = "/settings/threshold"

	UploadVideo        = "/upload/video"
	UploadImage        = "/upload/image"
	UploadPresignedURL = "/upload/presigned-url"

	NotificationsLatest  = "/notifications/latest"
	NotificationsHistory = "/notifications"
	NotificationsRead    = "/notifications/:id/read"
	NotificationsDetail  = "/notifications/:id"

	Health = "/health"
)

// Cache invalidation patterns. They are matched as substrings of cache keys.
const (
	PatternVideos        = "videos"
	PatternSettings      = "settings"
	PatternUsers         = "users"
	PatternNotifications = "notifications"
)

// BuildPath substitutes ":name" placeholders in pattern with path-escaped values.
// Placeholders without a value are left untouched.
func BuildPath(pattern string, params map[string]string) string {
	if len(params) == 0 {
		return pattern
	}

	// Longer names first so ":id" cannot clobber ":idx".
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return len(names[i]) > len(names[j]) })

	path := pattern
	for _, name := range names {
		path = strings.ReplaceAll(path, ":"+name, url.PathEscape(params[name]))
	}
	return path
}
