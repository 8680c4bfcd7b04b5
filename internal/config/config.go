// Package config resolves catalogenum settings from command-line flags,
// CATALOGENUM_* environment variables (optionally seeded from a .env file)
// and an optional YAML file. Precedence: flag, environment, file, default.
package config

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"catalogenum/internal/blob"
	"catalogenum/internal/catalog"
	"catalogenum/internal/index"
)

// EnvFile is the dotenv file consulted when CATALOGENUM_ENV_FILE is unset.
const EnvFile = ".env"

// Config is the resolved run configuration.
type Config struct {
	Catalog         string       `yaml:"catalog"`
	Indent          int          `yaml:"indent"`
	Out             string       `yaml:"out"`
	LogLevel        string       `yaml:"log_level"`
	MetricsTextfile string       `yaml:"metrics_textfile"`
	Blob            blob.Config  `yaml:"blob"`
	Index           index.Config `yaml:"index"`

	// Check compares instead of publishing. Flag only.
	Check bool `yaml:"-"`
	// File is the YAML file that was applied, if any.
	File string `yaml:"-"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{Indent: catalog.DefaultIndent, LogLevel: "info"}
}

// ToStdout reports whether output goes to standard output.
func (c Config) ToStdout() bool { return c.Out == "" || c.Out == "-" }

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log level %q: %w", c.LogLevel, err)
	}
	return lvl, nil
}

type flagValues struct {
	catalog, out, file, logLevel, metrics string
	indexDriver, indexDSN                 string
	indent                                int
	check                                 bool
}

func newFlagSet(v *flagValues) *flag.FlagSet {
	fs := flag.NewFlagSet("catalogenum", flag.ContinueOnError)
	fs.StringVar(&v.catalog, "catalog", "", "path to the item catalog (.json)")
	fs.IntVar(&v.indent, "indent", catalog.DefaultIndent, "spaces before each enum member")
	fs.StringVar(&v.out, "out", "", "output key or path; - or empty writes to stdout")
	fs.BoolVar(&v.check, "check", false, "fail if the stored output differs instead of writing it")
	fs.StringVar(&v.file, "config", "", "optional YAML config file")
	fs.StringVar(&v.indexDriver, "index-driver", "", "lookup index backend: sqlite|postgres|memory")
	fs.StringVar(&v.indexDSN, "index-dsn", "", "lookup index database file or connection string")
	fs.StringVar(&v.metrics, "metrics-textfile", "", "write Prometheus metrics to this file")
	fs.StringVar(&v.logLevel, "log-level", "", "debug|info|warn|error")
	return fs
}

// Usage prints the flag defaults to w.
func Usage(w io.Writer) {
	fs := newFlagSet(&flagValues{})
	fs.SetOutput(w)
	_, _ = fmt.Fprintln(w, "usage: catalogenum -catalog items.json [flags]")
	fs.PrintDefaults()
}

// Load resolves a Config. getenv is usually os.Getenv. For -h the returned
// error wraps flag.ErrHelp.
func Load(args []string, getenv func(string) string) (Config, error) {
	var v flagValues
	fs := newFlagSet(&v)
	fs.SetOutput(io.Discard)
	if err := fs.Parse(args); err != nil {
		return Config{}, fmt.Errorf("parse flags: %w", err)
	}
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	env, err := dotenvLookup(getenv)
	if err != nil {
		return Config{}, err
	}

	cfg := Defaults()
	file := v.file
	if !set["config"] {
		file = env("CATALOGENUM_CONFIG")
	}
	if file != "" {
		if err := applyFile(&cfg, file); err != nil {
			return Config{}, err
		}
		cfg.File = file
	}
	if err := applyEnv(&cfg, env); err != nil {
		return Config{}, err
	}

	if set["catalog"] {
		cfg.Catalog = v.catalog
	}
	if set["indent"] {
		cfg.Indent = v.indent
	}
	if set["out"] {
		cfg.Out = v.out
	}
	if set["log-level"] {
		cfg.LogLevel = v.logLevel
	}
	if set["metrics-textfile"] {
		cfg.MetricsTextfile = v.metrics
	}
	if set["index-driver"] {
		cfg.Index.Driver = v.indexDriver
	}
	if set["index-dsn"] {
		cfg.Index.DSN = v.indexDSN
	}
	cfg.Check = v.check

	if fs.NArg() > 0 && cfg.Catalog == "" {
		cfg.Catalog = fs.Arg(0)
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if c.Catalog == "" {
		return errors.New("catalog path required (-catalog or CATALOGENUM_CATALOG)")
	}
	if c.Indent < 0 {
		return fmt.Errorf("indent %d: %w", c.Indent, catalog.ErrInvalidIndent)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// dotenvLookup layers the dotenv file under getenv. Real environment values
// win, matching godotenv.Load.
func dotenvLookup(getenv func(string) string) (func(string) string, error) {
	path := getenv("CATALOGENUM_ENV_FILE")
	explicit := path != ""
	if !explicit {
		path = EnvFile
	}
	values, err := godotenv.Read(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return getenv, nil
		}
		return nil, fmt.Errorf("read env file %s: %w", path, err)
	}
	return func(key string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return values[key]
	}, nil
}

func applyFile(cfg *Config, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode config %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config, env func(string) string) error {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(env(key)); v != "" {
			*dst = v
		}
	}
	str("CATALOGENUM_CATALOG", &cfg.Catalog)
	str("CATALOGENUM_OUT", &cfg.Out)
	str("CATALOGENUM_LOG_LEVEL", &cfg.LogLevel)
	str("CATALOGENUM_METRICS_TEXTFILE", &cfg.MetricsTextfile)
	str("CATALOGENUM_BLOB_DRIVER", &cfg.Blob.Driver)
	str("CATALOGENUM_BLOB_FS_ROOT", &cfg.Blob.FSRoot)
	str("CATALOGENUM_BLOB_S3_BUCKET", &cfg.Blob.S3.Bucket)
	str("CATALOGENUM_BLOB_S3_PREFIX", &cfg.Blob.S3.Prefix)
	str("CATALOGENUM_BLOB_S3_REGION", &cfg.Blob.S3.Region)
	str("CATALOGENUM_BLOB_S3_ENDPOINT", &cfg.Blob.S3.Endpoint)
	str("AWS_ACCESS_KEY_ID", &cfg.Blob.S3.AccessKeyID)
	str("AWS_SECRET_ACCESS_KEY", &cfg.Blob.S3.SecretAccessKey)
	str("AWS_SESSION_TOKEN", &cfg.Blob.S3.SessionToken)
	str("CATALOGENUM_INDEX_DRIVER", &cfg.Index.Driver)
	str("CATALOGENUM_INDEX_DSN", &cfg.Index.DSN)

	if v := strings.TrimSpace(env("CATALOGENUM_INDENT")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CATALOGENUM_INDENT: %w", err)
		}
		cfg.Indent = n
	}
	if v := strings.TrimSpace(env("CATALOGENUM_BLOB_S3_PATH_STYLE")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("CATALOGENUM_BLOB_S3_PATH_STYLE: %w", err)
		}
		cfg.Blob.S3.PathStyle = b
	}
	return nil
}
