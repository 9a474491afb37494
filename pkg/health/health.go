package health

import (
	"context"
	"fmt"
	"time"

	"github.com/ctfwatch/ctfwatch/internal/database"
	"github.com/ctfwatch/ctfwatch/internal/logging"
	"github.com/ctfwatch/ctfwatch/pkg/models"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	Pass = "PASS"
	Fail = "FAIL"
	Warn = "WARN"
	Skip = "SKIP"
)

const checkTimeout = 5 * time.Second

type Status struct {
	API      string `json:"api"`
	Database string `json:"database"`
	Redis    string `json:"redis"`
	Data     string `json:"data"`
	Overall  string `json:"overall"`
}

func (s Status) Healthy() bool { return s.Overall == Pass }

// Checker probes the components ctfwatch depends on. Redis is optional and
// reported as SKIP when not configured.
type Checker struct {
	db    *gorm.DB
	redis *redis.Client
}

func NewChecker(db *gorm.DB, rc *redis.Client) *Checker {
	return &Checker{db: db, redis: rc}
}

func (c *Checker) Check(ctx context.Context) Status {
	lg := logging.FromContext(ctx)
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	st := Status{API: Pass, Database: Fail, Redis: Skip, Data: Fail, Overall: Fail}

	if err := database.Ping(ctx, c.db); err != nil {
		lg.Error("health.database", zap.Error(err))
		st.Database = fmt.Sprintf("%s: %v", Fail, err)
	} else {
		st.Database = Pass
		var count int64
		if err := c.db.WithContext(ctx).Model(&models.Event{}).Count(&count).Error; err != nil {
			lg.Error("health.data", zap.Error(err))
			st.Data = fmt.Sprintf("%s: %v", Fail, err)
		} else if count == 0 {
			st.Data = Warn + " (0 events)"
		} else {
			st.Data = Pass
		}
	}

	if c.redis != nil {
		if err := c.redis.Ping(ctx).Err(); err != nil {
			lg.Error("health.redis", zap.Error(err))
			st.Redis = fmt.Sprintf("%s: %v", Fail, err)
		} else {
			st.Redis = Pass
		}
	}

	if st.Database == Pass && (st.Redis == Pass || st.Redis == Skip) {
		st.Overall = Pass
	}
	return st
}
