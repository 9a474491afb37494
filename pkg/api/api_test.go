package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ctfwatch/ctfwatch/internal/cache"
	"github.com/ctfwatch/ctfwatch/internal/database/dbtest"
	"github.com/ctfwatch/ctfwatch/pkg/health"
	"github.com/ctfwatch/ctfwatch/pkg/models"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type APISuite struct {
	suite.Suite
	db     *gorm.DB
	cache  *cache.MemoryCache
	server *Server
	router http.Handler
	now    time.Time
}

func (s *APISuite) SetupTest() {
	s.db = dbtest.New(s.T())
	s.cache = cache.NewMemoryCache(1 << 20)
	s.now = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	s.server = NewServer(s.db, s.cache, time.Minute, health.NewChecker(s.db, nil))
	s.server.now = func() time.Time { return s.now }
	s.router = NewRouter(s.server, zap.NewNop())

	s.seed("ctftime_1", "Past CTF", models.EventTypeCTF, s.now.AddDate(0, 0, -10))
	s.seed("ctftime_2", "Soon CTF", models.EventTypeCTF, s.now.AddDate(0, 0, 3))
	s.seed("rss_a", "USENIX Security", models.EventTypeConference, s.now.AddDate(0, 0, 5))
	s.seed("ctftime_3", "Later CTF", models.EventTypeCTF, s.now.AddDate(0, 1, 0))
}

func (s *APISuite) seed(sourceID, title string, typ models.EventType, start time.Time) {
	s.Require().NoError(s.db.Create(&models.Event{
		SourceID:    sourceID,
		Title:       title,
		Description: "about " + title,
		URL:         "https://example.org/" + sourceID,
		Type:        typ,
		Format:      "Jeopardy",
		StartTime:   start,
		EndTime:     start.Add(24 * time.Hour),
		Weight:      12.5,
		Meta:        map[string]any{"tags": []string{"web"}, "id": sourceID},
	}).Error)
}

func (s *APISuite) get(path string) *httptest.ResponseRecorder {
	res := httptest.NewRecorder()
	s.router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, path, nil))
	return res
}

func (s *APISuite) list(path string) []EventSummary {
	res := s.get(path)
	s.Require().Equal(http.StatusOK, res.Code, res.Body.String())
	var out []EventSummary
	s.Require().NoError(json.Unmarshal(res.Body.Bytes(), &out))
	return out
}

func titles(events []EventSummary) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.Title
	}
	return out
}

func (s *APISuite) TestListAll() {
	events := s.list("/api/events")
	s.Equal([]string{"Past CTF", "Soon CTF", "USENIX Security", "Later CTF"}, titles(events))
	s.Equal([]string{"web"}, events[0].Tags)
}

func (s *APISuite) TestListFilters() {
	s.Equal([]string{"Soon CTF", "Later CTF"}, titles(s.list("/api/events?type=ctf&status=upcoming")))
	s.Equal([]string{"Past CTF"}, titles(s.list("/api/events?status=past")))
	s.Equal([]string{"USENIX Security"}, titles(s.list("/api/events?type=conference")))
	s.Len(s.list("/api/events?limit=2"), 2)
}

func (s *APISuite) TestListRejectsBadParams() {
	for _, path := range []string{
		"/api/events?type=meetup",
		"/api/events?status=soon",
		"/api/events?limit=0",
		"/api/events?limit=lots",
	} {
		res := s.get(path)
		s.Equal(http.StatusBadRequest, res.Code, path)
		s.Contains(res.Body.String(), "InvalidQueryValue")
	}
}

func (s *APISuite) TestListServedFromCache() {
	s.Len(s.list("/api/events?type=ctf"), 3)
	s.seed("ctftime_4", "Fresh CTF", models.EventTypeCTF, s.now.AddDate(0, 2, 0))
	s.Len(s.list("/api/events?type=ctf"), 3)

	s.Require().NoError(s.cache.Purge(s.T().Context()))
	s.Len(s.list("/api/events?type=ctf"), 4)
}

func (s *APISuite) TestGetEvent() {
	var ev models.Event
	s.Require().NoError(s.db.Where("source_id = ?", "ctftime_2").First(&ev).Error)

	res := s.get("/api/events/" + itoa(ev.ID))
	s.Require().Equal(http.StatusOK, res.Code)
	var detail EventDetail
	s.Require().NoError(json.Unmarshal(res.Body.Bytes(), &detail))
	s.Equal("Soon CTF", detail.Title)
	s.Equal("about Soon CTF", detail.Description)
	s.Equal("ctftime_2", detail.RawMetadata["id"])
	s.True(detail.StartTime.Equal(s.now.AddDate(0, 0, 3)))
}

func (s *APISuite) TestGetEventErrors() {
	s.Equal(http.StatusNotFound, s.get("/api/events/9999").Code)
	s.Equal(http.StatusBadRequest, s.get("/api/events/abc").Code)
}

func (s *APISuite) TestCalendar() {
	res := s.get("/calendar/ctf.ics")
	s.Require().Equal(http.StatusOK, res.Code)
	s.True(strings.HasPrefix(res.Header().Get("Content-Type"), "text/calendar"))

	body := res.Body.String()
	s.Contains(body, "BEGIN:VCALENDAR")
	s.Contains(body, "SUMMARY:[CTF] Soon CTF")
	s.Contains(body, "SUMMARY:[CONFERENCE] USENIX Security")
	s.NotContains(body, "Past CTF")
	s.Equal(3, strings.Count(body, "BEGIN:VEVENT"))
}

func (s *APISuite) TestHealth() {
	res := s.get("/health")
	s.Equal(http.StatusOK, res.Code)
	var st health.Status
	s.Require().NoError(json.Unmarshal(res.Body.Bytes(), &st))
	s.Equal(health.Pass, st.Overall)
	s.Equal(health.Pass, st.Data)
}

func (s *APISuite) TestMetrics() {
	res := s.get("/metrics")
	s.Equal(http.StatusOK, res.Code)
	s.Contains(res.Body.String(), "go_goroutines")
}

func TestAPISuite(t *testing.T) {
	suite.Run(t, new(APISuite))
}

func TestRenderCalendarEmpty(t *testing.T) {
	body := renderCalendar(nil, time.Now())
	require.Contains(t, body, "BEGIN:VCALENDAR")
	assert.NotContains(t, body, "BEGIN:VEVENT")
}

func itoa(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}
