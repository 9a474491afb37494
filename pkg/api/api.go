package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/ctfwatch/ctfwatch/internal/cache"
	"github.com/ctfwatch/ctfwatch/internal/database"
	"github.com/ctfwatch/ctfwatch/internal/middleware/handler"
	"github.com/ctfwatch/ctfwatch/pkg/health"
	"github.com/ctfwatch/ctfwatch/pkg/models"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

// Server serves read-only views of the stored events.
type Server struct {
	db       *gorm.DB
	cache    cache.Cacher
	ttl      time.Duration
	checker  *health.Checker
	validate *validator.Validate
	now      func() time.Time
}

func NewServer(db *gorm.DB, cacher cache.Cacher, ttl time.Duration, checker *health.Checker) *Server {
	return &Server{
		db:       db,
		cache:    cacher,
		ttl:      ttl,
		checker:  checker,
		validate: validator.New(),
		now:      time.Now,
	}
}

func (s *Server) ListEvents(r *http.Request) *handler.Response {
	q := r.URL.Query()
	params := ListParams{
		Type:   q.Get("type"),
		Status: q.Get("status"),
		Limit:  defaultListLimit,
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return handler.NewErrorResponse(http.StatusBadRequest, handler.InvalidQueryValue, "limit must be an integer", nil)
		}
		params.Limit = n
	}
	if err := s.validate.Struct(params); err != nil {
		return handler.NewErrorResponse(http.StatusBadRequest, handler.InvalidQueryValue, err.Error(), nil)
	}

	key := cache.KeyEventList(params.Type, params.Status, params.Limit)
	events, err := cache.Fetch(r.Context(), s.cache, key, s.ttl, func() ([]EventSummary, error) {
		return s.listEvents(r.Context(), params)
	})
	if err != nil {
		return handler.NewInternalErrorResponse(err)
	}
	// cached copies decode into local time
	for i := range events {
		events[i].StartTime = events[i].StartTime.UTC()
		events[i].EndTime = events[i].EndTime.UTC()
	}
	return handler.NewSuccessResponse(http.StatusOK, events)
}

func (s *Server) listEvents(ctx context.Context, params ListParams) ([]EventSummary, error) {
	now := s.now().UTC()
	query := s.db.WithContext(ctx).Model(&models.Event{})
	if params.Type != "" {
		query = query.Where("type = ?", params.Type)
	}
	switch params.Status {
	case "upcoming":
		query = query.Where("start_time > ?", now)
	case "past":
		query = query.Where("end_time < ?", now)
	}

	var rows []models.Event
	if err := query.Order("start_time ASC").Limit(params.Limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]EventSummary, len(rows))
	for i := range rows {
		out[i] = toSummary(&rows[i])
	}
	return out, nil
}

func (s *Server) GetEvent(r *http.Request) *handler.Response {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return handler.NewErrorResponse(http.StatusBadRequest, handler.InvalidUriValue, "id must be a positive integer", nil)
	}

	detail, err := cache.Fetch(r.Context(), s.cache, cache.KeyEvent(id), s.ttl, func() (EventDetail, error) {
		var ev models.Event
		if err := s.db.WithContext(r.Context()).First(&ev, id).Error; err != nil {
			return EventDetail{}, err
		}
		return toDetail(&ev), nil
	})
	if err != nil {
		if database.IsRecordNotFoundErr(err) {
			return handler.NewErrorResponse(http.StatusNotFound, handler.NotFoundEntity, "Event not found", nil)
		}
		return handler.NewInternalErrorResponse(err)
	}
	detail.StartTime = detail.StartTime.UTC()
	detail.EndTime = detail.EndTime.UTC()
	return handler.NewSuccessResponse(http.StatusOK, detail)
}

// Calendar renders every upcoming event as an iCalendar feed.
func (s *Server) Calendar(r *http.Request) *handler.Response {
	body, err := cache.Fetch(r.Context(), s.cache, cache.KeyCalendar(), s.ttl, func() (string, error) {
		var rows []models.Event
		err := s.db.WithContext(r.Context()).
			Where("start_time > ?", s.now().UTC()).
			Order("start_time ASC").
			Find(&rows).Error
		if err != nil {
			return "", err
		}
		return renderCalendar(rows, s.now().UTC()), nil
	})
	if err != nil {
		return handler.NewInternalErrorResponse(err)
	}
	return handler.NewRawResponse(http.StatusOK, "text/calendar; charset=utf-8", []byte(body))
}

func renderCalendar(events []models.Event, stamp time.Time) string {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//ctfwatch//events//EN")
	cal.SetXWRCalName("ctfwatch")

	for i := range events {
		e := &events[i]
		ev := cal.AddEvent(fmt.Sprintf("%s@ctfwatch", e.SourceID))
		ev.SetDtStampTime(stamp)
		ev.SetStartAt(e.StartTime.UTC())
		ev.SetEndAt(e.EndTime.UTC())
		ev.SetSummary(fmt.Sprintf("[%s] %s", strings.ToUpper(string(e.Type)), e.Title))
		ev.SetDescription(fmt.Sprintf("%s\n\nFormat: %s\nWeight: %g\n\nURL: %s", e.Description, e.Format, e.Weight, e.URL))
		if e.URL != "" {
			ev.SetURL(e.URL)
		}
		location := e.Format
		if location == "" {
			location = "Online"
		}
		ev.SetLocation(location)
	}
	return cal.Serialize()
}

func (s *Server) Health(r *http.Request) *handler.Response {
	st := s.checker.Check(r.Context())
	if !st.Healthy() {
		return handler.NewSuccessResponse(http.StatusServiceUnavailable, st)
	}
	return handler.NewSuccessResponse(http.StatusOK, st)
}
