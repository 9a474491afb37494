package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/ctfwatch/ctfwatch/internal/duration"
	"github.com/go-faster/errors"
	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/maps"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const envPrefix = "CTFWATCH_"

var durationType = reflect.TypeOf(time.Duration(0))

// ConfigLoader layers configuration in increasing precedence: flag defaults
// from struct tags, config file, CTFWATCH_* environment, explicitly set flags.
type ConfigLoader struct {
	k      *koanf.Koanf
	keys   map[string]string // flag name -> koanf key
	envMap map[string]string // env name without prefix -> koanf key
	cfg    any
}

func NewConfigLoader() *ConfigLoader {
	return &ConfigLoader{
		k:      koanf.New("."),
		keys:   make(map[string]string),
		envMap: make(map[string]string),
	}
}

// RegisterFlags walks the `config` tags of v and adds one flag per leaf field.
// Nested structs contribute their tag as a dash separated prefix.
func (cl *ConfigLoader) RegisterFlags(flags *pflag.FlagSet, prefix string, v any) error {
	if flags.Lookup("config") == nil {
		flags.StringP("config", "c", "", "Config file path (default $HOME/.ctfwatch/config.toml)")
	}
	t := reflect.TypeOf(v)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return errors.Errorf("config: expected struct, got %s", t.Kind())
	}
	return cl.registerStruct(flags, t, prefix, "")
}

func (cl *ConfigLoader) registerStruct(flags *pflag.FlagSet, t reflect.Type, flagPrefix, keyPrefix string) error {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		name := field.Tag.Get("config")
		if name == "" || name == "-" {
			continue
		}
		flagName := join(flagPrefix, name, "-")
		key := join(keyPrefix, name, ".")

		if field.Type.Kind() == reflect.Struct {
			if err := cl.registerStruct(flags, field.Type, flagName, key); err != nil {
				return err
			}
			continue
		}

		def := field.Tag.Get("default")
		usage := field.Tag.Get("description")

		switch {
		case field.Type == durationType:
			d, err := duration.Parse(def)
			if err != nil {
				return errors.Wrapf(err, "default for %s", key)
			}
			duration.Var(flags, new(time.Duration), flagName, d, usage)
		case field.Type.Kind() == reflect.String:
			flags.String(flagName, def, usage)
		case field.Type.Kind() == reflect.Bool:
			b := false
			if def != "" {
				v, err := strconv.ParseBool(def)
				if err != nil {
					return errors.Wrapf(err, "default for %s", key)
				}
				b = v
			}
			flags.Bool(flagName, b, usage)
		case field.Type.Kind() == reflect.Int, field.Type.Kind() == reflect.Int64:
			n := int64(0)
			if def != "" {
				v, err := strconv.ParseInt(def, 10, 64)
				if err != nil {
					return errors.Wrapf(err, "default for %s", key)
				}
				n = v
			}
			if field.Type.Kind() == reflect.Int {
				flags.Int(flagName, int(n), usage)
			} else {
				flags.Int64(flagName, n, usage)
			}
		case field.Type.Kind() == reflect.Float64:
			f := 0.0
			if def != "" {
				v, err := strconv.ParseFloat(def, 64)
				if err != nil {
					return errors.Wrapf(err, "default for %s", key)
				}
				f = v
			}
			flags.Float64(flagName, f, usage)
		case field.Type.Kind() == reflect.Slice && field.Type.Elem().Kind() == reflect.String:
			flags.StringSlice(flagName, splitList(def), usage)
		default:
			return errors.Errorf("config: unsupported type %s for %s", field.Type, key)
		}

		cl.keys[flagName] = key
		cl.envMap[strings.ToUpper(strings.ReplaceAll(flagName, "-", "_"))] = key
	}
	return nil
}

func (cl *ConfigLoader) Load(cmd *cobra.Command, cfg any) error {
	flags := cmd.Flags()

	defaults := make(map[string]any)
	flags.VisitAll(func(f *pflag.Flag) {
		if key, ok := cl.keys[f.Name]; ok {
			defaults[key] = flagValue(f)
		}
	})
	if err := cl.k.Load(mapProvider(defaults), nil); err != nil {
		return errors.Wrap(err, "load defaults")
	}

	cfgFile := ""
	if f := flags.Lookup("config"); f != nil {
		cfgFile = f.Value.String()
	}
	if cfgFile == "" {
		cfgFile = findConfigFile()
	}
	if cfgFile != "" {
		parser, err := parserFor(cfgFile)
		if err != nil {
			return err
		}
		if err := cl.k.Load(file.Provider(cfgFile), parser); err != nil {
			return errors.Wrapf(err, "read config file %s", cfgFile)
		}
	}

	if err := cl.k.Load(env.Provider(envPrefix, ".", cl.envKey), nil); err != nil {
		return errors.Wrap(err, "load environment")
	}

	changed := make(map[string]any)
	flags.Visit(func(f *pflag.Flag) {
		if key, ok := cl.keys[f.Name]; ok {
			changed[key] = flagValue(f)
		}
	})
	if err := cl.k.Load(mapProvider(changed), nil); err != nil {
		return errors.Wrap(err, "load flags")
	}

	err := cl.k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		Tag: "config",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				duration.DecodeHook(),
				mapstructure.StringToSliceHookFunc(","),
			),
			WeaklyTypedInput: true,
			Result:           cfg,
		},
	})
	if err != nil {
		return errors.Wrap(err, "decode config")
	}
	cl.cfg = cfg
	return nil
}

// Validate checks the struct passed to the last Load call.
func (cl *ConfigLoader) Validate() error {
	if cl.cfg == nil {
		return errors.New("config: Validate called before Load")
	}
	validate := validator.New()
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("config")
	})
	err := validate.Struct(cl.cfg)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	var missing, invalid []string
	for _, fe := range verrs {
		name := namespaceToFlag(fe.Namespace())
		if fe.Tag() == "required" {
			missing = append(missing, name)
		} else {
			invalid = append(invalid, fmt.Sprintf("%s (%s)", name, fe.Tag()))
		}
	}
	if len(missing) > 0 {
		return errors.Errorf("required configuration values not set: %s", strings.Join(missing, ", "))
	}
	return errors.Errorf("invalid configuration values: %s", strings.Join(invalid, ", "))
}

func (cl *ConfigLoader) envKey(s string) string {
	return cl.envMap[strings.TrimPrefix(s, envPrefix)]
}

type mapProvider map[string]any

func (m mapProvider) ReadBytes() ([]byte, error) {
	return nil, errors.New("mapProvider does not support ReadBytes")
}

func (m mapProvider) Read() (map[string]any, error) {
	return maps.Unflatten(m, "."), nil
}

func flagValue(f *pflag.Flag) any {
	if sv, ok := f.Value.(pflag.SliceValue); ok {
		return sv.GetSlice()
	}
	return f.Value.String()
}

func parserFor(path string) (koanf.Parser, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return toml.Parser(), nil
	case ".yaml", ".yml":
		return yaml.Parser(), nil
	default:
		return nil, errors.Errorf("unsupported config file type: %s", path)
	}
}

func findConfigFile() string {
	var dirs []string
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".ctfwatch"))
	}
	dirs = append(dirs, ".")
	for _, dir := range dirs {
		for _, name := range []string{"config.toml", "config.yaml", "config.yml"} {
			p := filepath.Join(dir, name)
			if _, err := os.Stat(p); err == nil {
				return p
			}
		}
	}
	return ""
}

func namespaceToFlag(ns string) string {
	if i := strings.Index(ns, "."); i >= 0 {
		ns = ns[i+1:]
	}
	return strings.ReplaceAll(ns, ".", "-")
}

func splitList(s string) []string {
	if s == "" {
		return []string{}
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func join(prefix, name, sep string) string {
	if prefix == "" {
		return name
	}
	return prefix + sep + name
}
