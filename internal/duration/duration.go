package duration

import (
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/pflag"
)

// Value is a time.Duration that also understands day, week, month and year
// suffixes ("1d", "2w", "1M", "1y"). It satisfies pflag.Value.
type Value time.Duration

var unitSuffixes = []struct {
	Suffix     string
	Multiplier time.Duration
}{
	{Suffix: "d", Multiplier: time.Hour * 24},
	{Suffix: "w", Multiplier: time.Hour * 24 * 7},
	{Suffix: "M", Multiplier: time.Hour * 24 * 30},
	{Suffix: "y", Multiplier: time.Hour * 24 * 365},
}

// Parse accepts everything time.ParseDuration does plus the long suffixes
// above. A bare number is read as seconds.
func Parse(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	for _, u := range unitSuffixes {
		if !strings.HasSuffix(s, u.Suffix) {
			continue
		}
		n, err := strconv.ParseFloat(strings.TrimSuffix(s, u.Suffix), 64)
		if err != nil {
			return 0, errors.Wrapf(err, "parse duration %q", s)
		}
		return time.Duration(n * float64(u.Multiplier)), nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.Errorf("invalid duration %q", s)
	}
	return time.Duration(n * float64(time.Second)), nil
}

func (d *Value) String() string {
	v := time.Duration(*d)
	for i := len(unitSuffixes) - 1; i >= 0; i-- {
		u := unitSuffixes[i]
		if v != 0 && v%u.Multiplier == 0 {
			return strconv.FormatInt(int64(v/u.Multiplier), 10) + u.Suffix
		}
	}
	return v.String()
}

func (d *Value) Set(s string) error {
	v, err := Parse(s)
	if err != nil {
		return err
	}
	*d = Value(v)
	return nil
}

func (d *Value) Type() string {
	return "duration"
}

func (d *Value) UnmarshalText(text []byte) error {
	return d.Set(string(text))
}

// Var registers a duration flag backed by p.
func Var(f *pflag.FlagSet, p *time.Duration, name string, value time.Duration, usage string) {
	*p = value
	f.Var((*Value)(p), name, usage)
}

// DecodeHook lets mapstructure decode strings such as "1d" into time.Duration.
func DecodeHook() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if f.Kind() != reflect.String || t != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		return Parse(data.(string))
	}
}
