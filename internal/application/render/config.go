// Package render runs the end-to-end pipeline from a coordinate table to an
// animation artifact.
package render

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/penwyp/tracevis/internal/core/model"
	"github.com/penwyp/tracevis/internal/data/parser"
	"github.com/penwyp/tracevis/internal/presentation/encoder"
	"github.com/penwyp/tracevis/internal/presentation/formatter"
)

// Defaults and recommended ranges.
const (
	DefaultFramesPerSegment = 30
	DefaultIntervalMS       = 200
	DefaultDebounce         = 500 * time.Millisecond

	RecommendedMinFrames = 5
	RecommendedMaxFrames = 100

	ReportNone = "none"
)

// Config contains configuration for a render run. It can be loaded from YAML;
// command-line flags override loaded values.
type Config struct {
	Input  string `yaml:"input" validate:"required"`
	Output string `yaml:"output"`

	Columns   parser.ColumnMapping `yaml:"columns"`
	Delimiter string               `yaml:"delimiter" validate:"oneof=tab comma semicolon auto"`

	// Visits is the ordered visit selection; empty means every visit, sorted.
	Visits []string `yaml:"visits" validate:"omitempty,unique,dive,required"`
	// Subjects restricts the animation; empty means every subject.
	Subjects []string          `yaml:"subjects" validate:"omitempty,dive,required"`
	Colors   map[string]string `yaml:"colors" validate:"omitempty,dive,keys,required,endkeys,required"`

	FramesPerSegment int `yaml:"frames" validate:"gte=1,lte=10000"`
	// IntervalMS is the presentation interval between frames. Encoders derive
	// timing from FPS; the interval is reported as metadata.
	IntervalMS int `yaml:"interval" validate:"gte=50,lte=1000"`

	Format     string `yaml:"format" validate:"oneof=gif mp4 frames"`
	FPS        int    `yaml:"fps" validate:"gte=0,lte=120"`
	FFmpegPath string `yaml:"ffmpeg"`
	Width      int    `yaml:"width" validate:"gte=200,lte=8192"`
	Height     int    `yaml:"height" validate:"gte=150,lte=8192"`
	Workers    int    `yaml:"workers" validate:"gte=1,lte=256"`

	Report string `yaml:"report" validate:"oneof=table json csv summary none"`

	Watch    bool          `yaml:"watch"`
	Debounce time.Duration `yaml:"debounce"`
}

var configValidate = validator.New()

func (c *Config) applyDefaults() {
	if c.Columns.Subject == "" {
		c.Columns.Subject = parser.DefaultColumns().Subject
	}
	if c.Columns.Visit == "" {
		c.Columns.Visit = parser.DefaultColumns().Visit
	}
	if c.Columns.PC1 == "" {
		c.Columns.PC1 = parser.DefaultColumns().PC1
	}
	if c.Columns.PC2 == "" {
		c.Columns.PC2 = parser.DefaultColumns().PC2
	}
	if c.Delimiter == "" {
		c.Delimiter = parser.DelimiterTab
	}
	if c.FramesPerSegment == 0 {
		c.FramesPerSegment = DefaultFramesPerSegment
	}
	if c.IntervalMS == 0 {
		c.IntervalMS = DefaultIntervalMS
	}
	if c.Format == "" {
		c.Format = encoder.FormatGIF
	}
	c.Format = strings.ToLower(c.Format)
	if c.Width == 0 {
		c.Width = 800
	}
	if c.Height == 0 {
		c.Height = 600
	}
	if c.Workers == 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.Report == "" {
		c.Report = formatter.FormatTable
	}
	if c.Debounce == 0 {
		c.Debounce = DefaultDebounce
	}
}

// Validate applies defaults and checks the configuration. Failures wrap
// model.ErrInvalidConfig.
func (c *Config) Validate() error {
	c.applyDefaults()

	if err := configValidate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, describe(fe))
			}
			return fmt.Errorf("%w: %s", model.ErrInvalidConfig, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", model.ErrInvalidConfig, err)
	}
	if len(c.Visits) == 1 {
		return fmt.Errorf("%w: at least 2 visits are required, got %q", model.ErrInvalidConfig, c.Visits[0])
	}
	if c.Format == encoder.FormatGIF {
		segments := 1
		if len(c.Visits) > 1 {
			segments = len(c.Visits) - 1
		}
		if err := encoder.CheckGIFBudget(c.FramesPerSegment*segments, c.Width, c.Height); err != nil {
			return err
		}
	}
	return nil
}

func describe(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %v", field, fe.Param(), fe.Value())
	case "gte":
		return fmt.Sprintf("%s must be >= %s, got %v", field, fe.Param(), fe.Value())
	case "lte":
		return fmt.Sprintf("%s must be <= %s, got %v", field, fe.Param(), fe.Value())
	case "unique":
		return fmt.Sprintf("%s must not contain duplicates", field)
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}

// Warnings lists settings that are valid but outside the recommended range.
func (c *Config) Warnings() []string {
	var out []string
	if c.FramesPerSegment < RecommendedMinFrames || c.FramesPerSegment > RecommendedMaxFrames {
		out = append(out, fmt.Sprintf("frames per segment %d is outside the recommended range %d-%d",
			c.FramesPerSegment, RecommendedMinFrames, RecommendedMaxFrames))
	}
	if c.Format == encoder.FormatFrames && c.FPS > 0 {
		out = append(out, "fps has no effect on a frame sequence")
	}
	return out
}

// OutputPath returns the configured output or the format's default name.
func (c *Config) OutputPath() string {
	if c.Output != "" {
		return c.Output
	}
	return encoder.DefaultOutput(c.Format)
}

// LoadConfig reads a YAML config file. Unknown keys are rejected.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := &Config{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: parse config %s: %v", model.ErrInvalidConfig, path, err)
	}
	return cfg, nil
}
