package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/safefall/safefall-go/httpclient"
	"github.com/safefall/safefall-go/logger"
)

// Defaults mirrored by config when nothing is configured.
const (
	DefaultPage        = 1
	DefaultPageSize    = 20
	MaxPageSize        = 100
	DefaultRecentLimit = 6
	DefaultChartPeriod = "month"
	DefaultSortBy      = "createdAt"
	DefaultSortOrder   = "desc"
)

// Config holds the paging defaults and cache lifetimes used by Service.
type Config struct {
	Page        int
	PageSize    int
	MaxPageSize int

	DefaultTTL time.Duration
	VideosTTL  time.Duration
	StatsTTL   time.Duration
	// SessionTTL caches session checks and live stream info.
	SessionTTL time.Duration
}

// DefaultConfig returns the built-in paging defaults and cache lifetimes.
func DefaultConfig() Config {
	return Config{
		Page:        DefaultPage,
		PageSize:    DefaultPageSize,
		MaxPageSize: MaxPageSize,
		DefaultTTL:  5 * time.Minute,
		VideosTTL:   2 * time.Minute,
		StatsTTL:    30 * time.Second,
		SessionTTL:  30 * time.Second,
	}
}

func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.Page <= 0 {
		c.Page = d.Page
	}
	if c.PageSize <= 0 {
		c.PageSize = d.PageSize
	}
	if c.MaxPageSize <= 0 {
		c.MaxPageSize = d.MaxPageSize
	}
	if c.DefaultTTL <= 0 {
		c.DefaultTTL = d.DefaultTTL
	}
	if c.VideosTTL <= 0 {
		c.VideosTTL = d.VideosTTL
	}
	if c.StatsTTL <= 0 {
		c.StatsTTL = d.StatsTTL
	}
	if c.SessionTTL <= 0 {
		c.SessionTTL = d.SessionTTL
	}
}

// Service exposes the backend's logical operations.
type Service struct {
	client    httpclient.Client
	cfg       Config
	validator *Validator
	log       logger.Logger
}

// NewService creates a Service on top of client. A nil log discards output.
func NewService(client httpclient.Client, cfg Config, log logger.Logger) *Service {
	cfg.applyDefaults()
	if log == nil {
		log = logger.Nop()
	}
	return &Service{client: client, cfg: cfg, validator: NewValidator(), log: log}
}

func (s *Service) cached(ttl time.Duration) *httpclient.Options {
	return &httpclient.Options{Cache: true, CacheTime: ttl}
}

func invalidating(patterns ...string) *httpclient.Options {
	return &httpclient.Options{Invalidate: patterns}
}

func (s *Service) validID(field, id string) error {
	return s.validator.Var(field, id, "resourceid")
}

func decodeObject(resp *httpclient.Response) (Object, error) {
	out := Object{}
	if err := resp.JSON(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return out, nil
}

// Login authenticates and stores the issued token pair.
func (s *Service) Login(ctx context.Context, creds Credentials) (*LoginResponse, error) {
	if err := s.validator.Validate(creds); err != nil {
		return nil, err
	}
	s.log.Debug().Str("username", creds.Username).Msg("Login attempt")

	resp, err := s.client.Post(ctx, AuthLogin, creds, nil)
	if err != nil {
		s.log.Debug().Err(err).Msg("Login failed")
		return nil, err
	}

	out, err := httpclient.DecodeJSON[LoginResponse](resp)
	if err != nil {
		return nil, fmt.Errorf("decode login response: %w", err)
	}
	if out.AccessToken != "" {
		if err := s.client.SetTokens(out.AccessToken, out.RefreshToken); err != nil {
			return nil, fmt.Errorf("store tokens: %w", err)
		}
	}

	s.log.Debug().Msg("Login successful")
	return &out, nil
}

// Logout ends the session. Local tokens are cleared even when the server call fails.
func (s *Service) Logout(ctx context.Context) error {
	_, err := s.client.Post(ctx, AuthLogout, nil, nil)
	if clearErr := s.client.ClearTokens(); clearErr != nil {
		s.log.Warn().Err(clearErr).Msg("Failed to clear tokens")
	}
	if err != nil {
		s.log.Debug().Err(err).Msg("Logout failed")
		return err
	}
	s.log.Debug().Msg("Logout successful")
	return nil
}

// CheckSession asks the backend whether the current token is still valid.
func (s *Service) CheckSession(ctx context.Context) (Object, error) {
	resp, err := s.client.Get(ctx, AuthCheckSession, s.cached(s.cfg.SessionTTL))
	if err != nil {
		s.log.Debug().Err(err).Msg("Session check failed")
		return nil, err
	}
	return decodeObject(resp)
}

// Profile returns the signed-in user.
func (s *Service) Profile(ctx context.Context) (*User, error) {
	resp, err := s.client.Get(ctx, UsersProfile, s.cached(s.cfg.DefaultTTL))
	if err != nil {
		return nil, err
	}
	user, err := httpclient.DecodeJSON[User](resp)
	if err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return &user, nil
}

// UpdateProfile saves profile changes and drops cached user data.
func (s *Service) UpdateProfile(ctx context.Context, changes Object) (Object, error) {
	resp, err := s.client.Put(ctx, UsersProfile, changes, invalidating(PatternUsers))
	if err != nil {
		return nil, err
	}
	return decodeObject(resp)
}

// ChangePassword replaces the user's password.
func (s *Service) ChangePassword(ctx context.Context, change PasswordChange) error {
	if err := s.validator.Validate(change); err != nil {
		return err
	}
	_, err := s.client.Post(ctx, AuthChangePassword, change, nil)
	return err
}

// ListVideos returns one page of incident videos.
func (s *Service) ListVideos(ctx context.Context, q VideoQuery) (*VideoList, error) {
	if err := s.validator.Validate(q); err != nil {
		return nil, err
	}
	if q.Page == 0 {
		q.Page = s.cfg.Page
	}
	if q.Limit == 0 {
		q.Limit = s.cfg.PageSize
	}
	if err := s.validator.Var("Limit", q.Limit, "max="+strconv.Itoa(s.cfg.MaxPageSize)); err != nil {
		return nil, err
	}
	if q.SortBy == "" {
		q.SortBy = DefaultSortBy
	}
	if q.SortOrder == "" {
		q.SortOrder = DefaultSortOrder
	}

	params := map[string]any{
		"page":      q.Page,
		"limit":     q.Limit,
		"sortBy":    q.SortBy,
		"sortOrder": q.SortOrder,
		"search":    q.Search,
		"isChecked": q.IsChecked,
		"startDate": q.StartDate,
		"endDate":   q.EndDate,
	}
	s.log.Debug().Interface("params", params).Msg("Fetching videos")

	resp, err := s.client.Get(ctx, VideosList+BuildQuery(params), s.cached(s.cfg.VideosTTL))
	if err != nil {
		s.log.Debug().Err(err).Msg("Failed to fetch videos")
		return nil, err
	}

	list, err := decodeVideoList(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decode videos: %w", err)
	}
	s.log.Debug().Int("count", len(list.Data)).Msg("Videos fetched")
	return list, nil
}

func decodeVideoList(body []byte) (*VideoList, error) {
	var list VideoList
	if len(body) == 0 {
		return &VideoList{Data: []Video{}}, nil
	}
	if err := json.Unmarshal(body, &list); err == nil {
		if list.Data == nil {
			list.Data = []Video{}
		}
		return &list, nil
	}
	videos, err := decodeList[Video](body)
	if err != nil {
		return nil, err
	}
	return &VideoList{Data: videos, Pagination: Pagination{Page: 1, Limit: len(videos), Total: len(videos), TotalPages: 1}}, nil
}

// VideoDetail returns one video by id or filename.
func (s *Service) VideoDetail(ctx context.Context, id string) (*Video, error) {
	if err := s.validID("id", id); err != nil {
		return nil, err
	}
	resp, err := s.client.Get(ctx, BuildPath(VideosDetail, map[string]string{"id": id}), s.cached(s.cfg.DefaultTTL))
	if err != nil {
		return nil, err
	}
	video, err := httpclient.DecodeJSON[Video](resp)
	if err != nil {
		return nil, fmt.Errorf("decode video: %w", err)
	}
	return &video, nil
}

// UpdateVideoStatus marks a video as reviewed or not and drops cached video lists.
func (s *Service) UpdateVideoStatus(ctx context.Context, id string, checked bool) error {
	if err := s.validID("id", id); err != nil {
		return err
	}
	s.log.Debug().Str("video", id).Bool("is_checked", checked).Msg("Updating video status")

	url := BuildPath(VideosStatus, map[string]string{"id": id})
	_, err := s.client.Patch(ctx, url, map[string]bool{"isChecked": checked}, invalidating(PatternVideos))
	return err
}

// DeleteVideo removes a video and drops cached video lists.
func (s *Service) DeleteVideo(ctx context.Context, id string) error {
	if err := s.validID("id", id); err != nil {
		return err
	}
	s.log.Debug().Str("video", id).Msg("Deleting video")

	_, err := s.client.Delete(ctx, BuildPath(VideosDetail, map[string]string{"id": id}), invalidating(PatternVideos))
	return err
}

// DownloadVideo fetches the video file.
func (s *Service) DownloadVideo(ctx context.Context, id string) (*Download, error) {
	return s.download(ctx, VideosDownload, id)
}

// VideoThumbnail fetches the preview image of a video.
func (s *Service) VideoThumbnail(ctx context.Context, id string) (*Download, error) {
	return s.download(ctx, VideosThumbnail, id)
}

func (s *Service) download(ctx context.Context, pattern, id string) (*Download, error) {
	if err := s.validID("id", id); err != nil {
		return nil, err
	}
	resp, err := s.client.Get(ctx, BuildPath(pattern, map[string]string{"id": id}), &httpclient.Options{
		ResponseType: httpclient.ResponseBinary,
		Headers:      map[string]string{"Accept": "*/*"},
	})
	if err != nil {
		return nil, err
	}
	contentType := resp.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return &Download{Data: resp.Bytes(), ContentType: contentType}, nil
}

// LiveStream returns the live stream descriptor.
func (s *Service) LiveStream(ctx context.Context) (Object, error) {
	resp, err := s.client.Get(ctx, StreamLive, s.cached(s.cfg.SessionTTL))
	if err != nil {
		return nil, err
	}
	return decodeObject(resp)
}

// StreamStatus returns the current stream state. It is never cached.
func (s *Service) StreamStatus(ctx context.Context) (Object, error) {
	resp, err := s.client.Get(ctx, StreamStatus, nil)
	if err != nil {
		return nil, err
	}
	return decodeObject(resp)
}

// StartStream starts the camera stream.
func (s *Service) StartStream(ctx context.Context) (Object, error) {
	resp, err := s.client.Post(ctx, StreamStart, nil, invalidating("stream"))
	if err != nil {
		return nil, err
	}
	return decodeObject(resp)
}

// StopStream stops the camera stream.
func (s *Service) StopStream(ctx context.Context) (Object, error) {
	resp, err := s.client.Post(ctx, StreamStop, nil, invalidating("stream"))
	if err != nil {
		return nil, err
	}
	return decodeObject(resp)
}

// DashboardStats returns the aggregate counters.
func (s *Service) DashboardStats(ctx context.Context) (Object, error) {
	resp, err := s.client.Get(ctx, DashboardStats, s.cached(s.cfg.StatsTTL))
	if err != nil {
		return nil, err
	}
	return decodeObject(resp)
}

// RecentVideos returns the newest videos. A non-positive limit means DefaultRecentLimit.
func (s *Service) RecentVideos(ctx context.Context, limit int) ([]Video, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	if err := s.validator.Var("limit", limit, "max="+strconv.Itoa(s.cfg.MaxPageSize)); err != nil {
		return nil, err
	}
	url := DashboardRecentVideos + BuildQuery(map[string]any{"limit": limit})
	resp, err := s.client.Get(ctx, url, s.cached(s.cfg.VideosTTL))
	if err != nil {
		return nil, err
	}
	return decodeList[Video](resp.Body)
}

// ChartData returns the incident series for the chart. Period defaults to month.
func (s *Service) ChartData(ctx context.Context, q ChartQuery) (Object, error) {
	if err := s.validator.Validate(q); err != nil {
		return nil, err
	}
	if q.Period == "" {
		q.Period = DefaultChartPeriod
	}
	url := DashboardChartData + BuildQuery(map[string]any{
		"period":    q.Period,
		"startDate": q.StartDate,
		"endDate":   q.EndDate,
	})
	resp, err := s.client.Get(ctx, url, s.cached(s.cfg.StatsTTL))
	if err != nil {
		return nil, err
	}
	return decodeObject(resp)
}

// UploadVideo sends a video as multipart form data with video, filename and size parts.
func (s *Service) UploadVideo(ctx context.Context, filename string, content []byte) (Object, error) {
	if err := s.validID("filename", filename); err != nil {
		return nil, err
	}
	s.log.Debug().Str("filename", filename).Int("size", len(content)).Msg("Uploading video")

	form := httpclient.NewFormData().
		AddFile("video", filename, content).
		Set("filename", filename).
		Set("size", strconv.Itoa(len(content)))

	resp, err := s.client.Post(ctx, UploadVideo, form, invalidating(PatternVideos))
	if err != nil {
		return nil, err
	}
	return decodeObject(resp)
}

// Settings returns the general settings.
func (s *Service) Settings(ctx context.Context) (Object, error) {
	resp, err := s.client.Get(ctx, SettingsGeneral, s.cached(s.cfg.DefaultTTL))
	if err != nil {
		return nil, err
	}
	return decodeObject(resp)
}

// UpdateSettings replaces the general settings and drops cached settings.
func (s *Service) UpdateSettings(ctx context.Context, settings Object) (Object, error) {
	s.log.Debug().Interface("settings", settings).Msg("Updating settings")
	resp, err := s.client.Put(ctx, SettingsGeneral, settings, invalidating(PatternSettings))
	if err != nil {
		return nil, err
	}
	return decodeObject(resp)
}

// LatestNotifications polls for new detection events. It is a best-effort background
// poll: any failure is logged and yields an empty slice.
func (s *Service) LatestNotifications(ctx context.Context, since time.Time) []Notification {
	url := NotificationsLatest + BuildQuery(map[string]any{"since": since})
	resp, err := s.client.Get(ctx, url, &httpclient.Options{Retries: httpclient.Retries(0)})
	if err != nil {
		s.log.Debug().Err(err).Msg("Notification poll failed")
		return []Notification{}
	}
	items, err := decodeList[Notification](resp.Body)
	if err != nil {
		s.log.Debug().Err(err).Msg("Notification poll returned an unexpected payload")
		return []Notification{}
	}
	return items
}

// NotificationHistory returns a page of past notifications.
func (s *Service) NotificationHistory(ctx context.Context, q NotificationQuery) ([]Notification, error) {
	if err := s.validator.Validate(q); err != nil {
		return nil, err
	}
	if q.Page == 0 {
		q.Page = s.cfg.Page
	}
	if q.Limit == 0 {
		q.Limit = s.cfg.PageSize
	}
	url := NotificationsHistory + BuildQuery(map[string]any{"page": q.Page, "limit": q.Limit, "since": q.Since})
	resp, err := s.client.Get(ctx, url, s.cached(s.cfg.StatsTTL))
	if err != nil {
		return nil, err
	}
	return decodeList[Notification](resp.Body)
}

// MarkNotificationRead flags a notification as read.
func (s *Service) MarkNotificationRead(ctx context.Context, id string) error {
	if err := s.validID("id", id); err != nil {
		return err
	}
	_, err := s.client.Patch(ctx, BuildPath(NotificationsRead, map[string]string{"id": id}), map[string]bool{"isRead": true}, invalidating(PatternNotifications))
	return err
}

// DeleteNotification removes one notification.
func (s *Service) DeleteNotification(ctx context.Context, id string) error {
	if err := s.validID("id", id); err != nil {
		return err
	}
	_, err := s.client.Delete(ctx, BuildPath(NotificationsDetail, map[string]string{"id": id}), invalidating(PatternNotifications))
	return err
}

// ClearNotifications removes every notification.
func (s *Service) ClearNotifications(ctx context.Context) error {
	_, err := s.client.Delete(ctx, NotificationsHistory, invalidating(PatternNotifications))
	return err
}

// HealthCheck returns the raw health payload of the backend.
func (s *Service) HealthCheck(ctx context.Context) (string, error) {
	resp, err := s.client.Get(ctx, Health, &httpclient.Options{ResponseType: httpclient.ResponseText})
	if err != nil {
		s.log.Debug().Err(err).Msg("Health check failed")
		return "", err
	}
	return resp.Text(), nil
}

// ClearAllCache drops every cached response.
func (s *Service) ClearAllCache(ctx context.Context) error {
	if err := s.client.ClearCache(ctx, ""); err != nil {
		return err
	}
	s.log.Debug().Msg("All cache cleared")
	return nil
}

// ClearCacheByPattern drops cached responses whose key contains pattern.
func (s *Service) ClearCacheByPattern(ctx context.Context, pattern string) error {
	if err := s.client.ClearCache(ctx, pattern); err != nil {
		return err
	}
	s.log.Debug().Str("pattern", pattern).Msg("Cache cleared for pattern")
	return nil
}
