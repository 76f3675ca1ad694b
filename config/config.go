package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"healthcare-analytics/models"
	"healthcare-analytics/storage"
)

// Config holds all application configuration loaded from environment variables
// prefixed with HEALTH_, optionally refined by a YAML policy file.
type Config struct {
	InputDir  string `envconfig:"INPUT_DIR" default:"./data" validate:"required"`
	InputFile string `envconfig:"INPUT_FILE"`
	InputExt  string `envconfig:"INPUT_EXT" default:"csv" validate:"oneof=csv xlsx"`
	FileDate  string `envconfig:"FILE_DATE" validate:"omitempty,datetime=2006-01-02"`

	Sinks []string `envconfig:"SINKS" default:"csv" validate:"min=1,dive,oneof=mongo postgres csv"`

	MongoURL              string        `envconfig:"MONGO_URL" default:"mongodb://localhost:27017"`
	MongoDB               string        `envconfig:"MONGO_DB" default:"healthcare"`
	MongoCollectionSuffix string        `envconfig:"MONGO_COLLECTION_SUFFIX" default:"_data"`
	MongoTimeout          time.Duration `envconfig:"MONGO_TIMEOUT" default:"10s"`

	PostgresHost     string `envconfig:"POSTGRES_HOST" default:"localhost"`
	PostgresPort     string `envconfig:"POSTGRES_PORT" default:"5432"`
	PostgresUser     string `envconfig:"POSTGRES_USER" default:"health"`
	PostgresPassword string `envconfig:"POSTGRES_PASSWORD" default:"health123"`
	PostgresDB       string `envconfig:"POSTGRES_DB" default:"healthcare"`
	PostgresSSLMode  string `envconfig:"POSTGRES_SSLMODE" default:"disable"`

	CSVOutputDir    string `envconfig:"CSV_OUTPUT_DIR" default:"./output"`
	RunLogPath      string `envconfig:"RUNLOG_PATH" default:"./output/runs.db" validate:"required"`
	MetricsTextfile string `envconfig:"METRICS_TEXTFILE"`

	MaxConcurrency int           `envconfig:"MAX_CONCURRENCY" default:"4" validate:"min=1"`
	SinkThrottleMs int           `envconfig:"SINK_THROTTLE_MS" default:"0" validate:"min=0"`
	MaxRetries     int           `envconfig:"MAX_RETRIES" default:"3" validate:"min=1"`
	RetryBaseDelay time.Duration `envconfig:"RETRY_BASE_DELAY" default:"500ms"`

	TopN           int    `envconfig:"TOP_N" default:"3" validate:"min=0"`
	SeniorAge      int    `envconfig:"SENIOR_AGE" default:"60" validate:"min=0"`
	AgeBucketFloor int    `envconfig:"AGE_BUCKET_FLOOR" default:"30" validate:"min=0"`
	AgeBucketWidth int    `envconfig:"AGE_BUCKET_WIDTH" default:"10" validate:"min=1"`
	AgeBucketCount int    `envconfig:"AGE_BUCKET_COUNT" default:"4" validate:"min=1"`
	NullPolicy     string `envconfig:"NULL_POLICY" default:"retain" validate:"oneof=retain drop impute"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text" validate:"oneof=text json"`

	PolicyFile string `envconfig:"POLICY_FILE"`

	MandatoryFields []models.FieldSpec `ignored:"true" validate:"min=1,dive"`
}

// policyFile is the YAML document POLICY_FILE points at. Set keys win over
// the environment.
type policyFile struct {
	MandatoryFields []models.FieldSpec `yaml:"mandatory_fields"`
	NullPolicy      *string            `yaml:"null_policy"`
	TopN            *int               `yaml:"top_n"`
	SeniorAge       *int               `yaml:"senior_age"`
	AgeBuckets      *struct {
		Floor *int `yaml:"floor"`
		Width *int `yaml:"width"`
		Count *int `yaml:"count"`
	} `yaml:"age_buckets"`
}

// Load reads the .env file, the HEALTH_* environment and the optional
// policy file, then validates the result.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	var cfg Config
	if err := envconfig.Process("HEALTH", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}
	cfg.Sinks = cfg.SinkList()
	cfg.MandatoryFields = models.DefaultMandatoryFields()

	if cfg.PolicyFile != "" {
		if err := cfg.applyPolicyFile(cfg.PolicyFile); err != nil {
			return nil, fmt.Errorf("failed to load policy file: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyPolicyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var pf policyFile
	if err := yaml.UnmarshalStrict(data, &pf); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	if len(pf.MandatoryFields) > 0 {
		c.MandatoryFields = pf.MandatoryFields
	}
	if pf.NullPolicy != nil {
		c.NullPolicy = *pf.NullPolicy
	}
	if pf.TopN != nil {
		c.TopN = *pf.TopN
	}
	if pf.SeniorAge != nil {
		c.SeniorAge = *pf.SeniorAge
	}
	if b := pf.AgeBuckets; b != nil {
		if b.Floor != nil {
			c.AgeBucketFloor = *b.Floor
		}
		if b.Width != nil {
			c.AgeBucketWidth = *b.Width
		}
		if b.Count != nil {
			c.AgeBucketCount = *b.Count
		}
	}
	return nil
}

func (c *Config) validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	canonical := make(map[string]models.FieldType)
	for _, f := range models.DefaultMandatoryFields() {
		canonical[f.Name] = f.Type
	}
	seen := make(map[string]bool, len(c.MandatoryFields))
	for _, f := range c.MandatoryFields {
		if seen[f.Name] {
			return fmt.Errorf("mandatory field %q declared twice", f.Name)
		}
		seen[f.Name] = true

		want, core := canonical[f.Name]
		if !core {
			want = models.TypeString
		}
		if f.Type != want {
			return fmt.Errorf("mandatory field %q must be of type %s, got %s", f.Name, want, f.Type)
		}
	}
	return nil
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

// Policy returns the immutable pipeline policy described by the config.
func (c *Config) Policy() models.Policy {
	p := models.DefaultPolicy()
	p.MandatoryFields = append([]models.FieldSpec(nil), c.MandatoryFields...)
	p.NullPolicy = models.NullPolicy(c.NullPolicy)
	p.TopN = c.TopN
	p.SeniorAge = c.SeniorAge
	p.AgeBucketFloor = c.AgeBucketFloor
	p.AgeBucketWidth = c.AgeBucketWidth
	p.AgeBucketCount = c.AgeBucketCount
	return p
}

// SinkList returns the configured sink kinds, lower-cased and deduplicated.
func (c *Config) SinkList() []string {
	var out []string
	seen := make(map[string]bool)
	for _, s := range c.Sinks {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// InputPath returns the file to process: INPUT_FILE when set, otherwise the
// daily file for date inside INPUT_DIR.
func (c *Config) InputPath(date time.Time) string {
	if c.InputFile != "" {
		if filepath.IsAbs(c.InputFile) {
			return c.InputFile
		}
		return filepath.Join(c.InputDir, c.InputFile)
	}
	return storage.DailyFile(c.InputDir, date, c.InputExt)
}

// ParsedFileDate returns FILE_DATE, or false when it is unset.
func (c *Config) ParsedFileDate() (time.Time, bool) {
	if c.FileDate == "" {
		return time.Time{}, false
	}
	d, err := time.Parse(models.DateLayout, c.FileDate)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}
