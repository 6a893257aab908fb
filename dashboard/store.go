// Package dashboard keeps the operator's working set of incident videos in memory and
// derives the filtered views, counters and chart tables the dashboard renders.
package dashboard

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/safefall/safefall-go/api"
	"github.com/safefall/safefall-go/logger"
)

const (
	dateLayout = "2006-01-02"

	// DefaultRecentDays is the window used by RecentCount when days is not positive.
	DefaultRecentDays = 7
)

// VideoSource is the part of api.Service the store talks to.
type VideoSource interface {
	ListVideos(ctx context.Context, q api.VideoQuery) (*api.VideoList, error)
	UpdateVideoStatus(ctx context.Context, id string, checked bool) error
	DeleteVideo(ctx context.Context, id string) error
}

var _ VideoSource = (*api.Service)(nil)

// Filters narrows Filtered. The zero value shows everything.
type Filters struct {
	CheckedOnly   bool
	UncheckedOnly bool
	// Start and End form an inclusive day range. Both must be set for the range to apply.
	Start   time.Time
	End     time.Time
	Keyword string
}

// Stats summarizes the review progress.
type Stats struct {
	Total     int `json:"total"`
	Checked   int `json:"checked"`
	Unchecked int `json:"unchecked"`
	// CheckRate is the checked share as a rounded percentage.
	CheckRate int `json:"checkRate"`
}

// MonthRow is one row of the monthly table.
type MonthRow struct {
	Month     int    `json:"month"`
	Label     string `json:"date"`
	Total     int    `json:"total"`
	Checked   int    `json:"checked"`
	Unchecked int    `json:"unchecked"`
}

// DayPoint is one point of the daily chart series.
type DayPoint struct {
	Date      string `json:"originalDate"`
	Label     string `json:"date"`
	Total     int    `json:"total"`
	Checked   int    `json:"checked"`
	Unchecked int    `json:"unchecked"`
	// Position places the day on a month axis: 0 is the first of January and each
	// month spans one unit.
	Position float64 `json:"xPosition"`
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for new videos.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithPageSize sets the page size used by Refresh.
func WithPageSize(size int) Option {
	return func(s *Store) {
		if size > 0 {
			s.pageSize = size
		}
	}
}

// Store is safe for concurrent use.
type Store struct {
	source   VideoSource
	log      logger.Logger
	now      func() time.Time
	pageSize int

	mu      sync.RWMutex
	videos  []api.Video
	filters Filters
}

// NewStore creates an empty store backed by source.
func NewStore(source VideoSource, log logger.Logger, opts ...Option) *Store {
	if log == nil {
		log = logger.Nop()
	}
	s := &Store{
		source:   source,
		log:      log,
		now:      time.Now,
		pageSize: api.MaxPageSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Refresh replaces the working set with every video the backend lists.
func (s *Store) Refresh(ctx context.Context) error {
	var all []api.Video
	for page := 1; ; page++ {
		list, err := s.source.ListVideos(ctx, api.VideoQuery{Page: page, Limit: s.pageSize})
		if err != nil {
			return fmt.Errorf("load videos page %d: %w", page, err)
		}
		all = append(all, list.Data...)
		if len(list.Data) == 0 || page >= list.Pagination.TotalPages {
			break
		}
	}

	s.mu.Lock()
	s.videos = all
	s.mu.Unlock()

	s.log.Debug().Int("count", len(all)).Msg("Incident videos loaded")
	return nil
}

// Videos returns a copy of the working set, newest additions first.
func (s *Store) Videos() []api.Video {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]api.Video(nil), s.videos...)
}

// SetChecked updates the review flag on the backend, then locally.
func (s *Store) SetChecked(ctx context.Context, filename string, checked bool) error {
	if err := s.source.UpdateVideoStatus(ctx, filename, checked); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.videos {
		if s.videos[i].Filename == filename {
			s.videos[i].IsChecked = checked
		}
	}
	return nil
}

// Remove deletes the video on the backend, then locally.
func (s *Store) Remove(ctx context.Context, filename string) error {
	if err := s.source.DeleteVideo(ctx, filename); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.videos[:0]
	for _, v := range s.videos {
		if v.Filename != filename {
			kept = append(kept, v)
		}
	}
	s.videos = kept
	return nil
}

// Add puts a newly reported video at the front as unchecked. An empty CreatedAt
// becomes today's date.
func (s *Store) Add(v api.Video) {
	if v.CreatedAt == "" {
		v.CreatedAt = s.now().Format(dateLayout)
	}
	v.IsChecked = false

	s.mu.Lock()
	defer s.mu.Unlock()
	s.videos = append([]api.Video{v}, s.videos...)
}

// SetFilters replaces the active filters.
func (s *Store) SetFilters(f Filters) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters = f
}

// ResetFilters clears every filter.
func (s *Store) ResetFilters() {
	s.SetFilters(Filters{})
}

// Filters returns the active filters.
func (s *Store) Filters() Filters {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filters
}

// Filtered returns the videos matching the active filters. CheckedOnly wins over
// UncheckedOnly. Videos with an unreadable date never match a date range.
func (s *Store) Filtered() []api.Video {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f := s.filters
	keyword := strings.ToLower(f.Keyword)
	useRange := !f.Start.IsZero() && !f.End.IsZero()
	start, end := day(f.Start), day(f.End)

	out := make([]api.Video, 0, len(s.videos))
	for _, v := range s.videos {
		switch {
		case f.CheckedOnly && !v.IsChecked:
			continue
		case !f.CheckedOnly && f.UncheckedOnly && v.IsChecked:
			continue
		}
		if useRange {
			created, ok := parseCreatedAt(v.CreatedAt)
			if !ok {
				continue
			}
			d := day(created)
			if d.Before(start) || d.After(end) {
				continue
			}
		}
		if keyword != "" && !strings.Contains(strings.ToLower(v.Filename), keyword) {
			continue
		}
		out = append(out, v)
	}
	return out
}

// Stats counts the whole working set, ignoring filters.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{Total: len(s.videos)}
	for _, v := range s.videos {
		if v.IsChecked {
			st.Checked++
		}
	}
	st.Unchecked = st.Total - st.Checked
	if st.Total > 0 {
		st.CheckRate = int(math.Round(float64(st.Checked) / float64(st.Total) * 100))
	}
	return st
}

// RecentCount counts videos created within days before now.
func (s *Store) RecentCount(days int, now time.Time) int {
	if days <= 0 {
		days = DefaultRecentDays
	}
	cutoff := now.AddDate(0, 0, -days)

	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, v := range s.videos {
		if created, ok := parseCreatedAt(v.CreatedAt); ok && !created.Before(cutoff) {
			n++
		}
	}
	return n
}

// MonthlyTable aggregates the videos of year into twelve rows, January first.
func (s *Store) MonthlyTable(year int) []MonthRow {
	rows := make([]MonthRow, 12)
	for i := range rows {
		rows[i] = MonthRow{Month: i + 1, Label: monthLabel(i + 1)}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, v := range s.videos {
		created, ok := parseCreatedAt(v.CreatedAt)
		if !ok || created.Year() != year {
			continue
		}
		row := &rows[created.Month()-1]
		row.Total++
		if v.IsChecked {
			row.Checked++
		} else {
			row.Unchecked++
		}
	}
	return rows
}

// DailySeries aggregates the videos per calendar day, oldest first.
func (s *Store) DailySeries() []DayPoint {
	s.mu.RLock()
	byDay := make(map[string]*DayPoint)
	for _, v := range s.videos {
		created, ok := parseCreatedAt(v.CreatedAt)
		if !ok {
			continue
		}
		key := created.Format(dateLayout)
		p, ok := byDay[key]
		if !ok {
			p = &DayPoint{Date: key, Label: monthLabel(int(created.Month())), Position: monthPosition(created)}
			byDay[key] = p
		}
		p.Total++
		if v.IsChecked {
			p.Checked++
		} else {
			p.Unchecked++
		}
	}
	s.mu.RUnlock()

	out := make([]DayPoint, 0, len(byDay))
	for _, p := range byDay {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// parseCreatedAt reads a date-only or RFC 3339 timestamp.
func parseCreatedAt(value string) (time.Time, bool) {
	if t, err := time.Parse(dateLayout, value); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, true
	}
	return time.Time{}, false
}

func day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func monthLabel(month int) string {
	return fmt.Sprintf("%02d", month)
}

func monthPosition(t time.Time) float64 {
	daysInMonth := time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
	return float64(t.Month()-1) + float64(t.Day()-1)/float64(daysInMonth-1)
}
