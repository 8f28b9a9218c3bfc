// Package config loads precis settings from the environment.
package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/Yates-Labs/precis/internal/chunk"
	"github.com/Yates-Labs/precis/internal/llm"
	"github.com/Yates-Labs/precis/internal/pipeline"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Chunk size bounds offered to users. Keep in sync with the validate tag on
// Config.ChunkSize.
const (
	MinChunkSize = 500
	MaxChunkSize = 3000
)

type Config struct {
	OpenAIAPIKey string  `env:"OPENAI_API_KEY"`
	Provider     string  `env:"PRECIS_PROVIDER"    envDefault:"openai"        validate:"oneof=openai ollama compatible mock"`
	BaseURL      string  `env:"PRECIS_BASE_URL"                               validate:"omitempty,url"`
	Model        string  `env:"PRECIS_MODEL"       envDefault:"gpt-3.5-turbo" validate:"required"`
	Temperature  float64 `env:"PRECIS_TEMPERATURE" envDefault:"0"             validate:"gte=0,lte=2"`
	MaxTokens    int     `env:"PRECIS_MAX_TOKENS"  envDefault:"0"             validate:"gte=0"`

	ChunkSize    int `env:"PRECIS_CHUNK_SIZE"    envDefault:"1500" validate:"min=500,max=3000"`
	ChunkOverlap int `env:"PRECIS_CHUNK_OVERLAP" envDefault:"100"  validate:"gte=0,ltfield=ChunkSize"`

	Concurrency       int           `env:"PRECIS_CONCURRENCY"         envDefault:"4"     validate:"min=1,max=64"`
	CallTimeout       time.Duration `env:"PRECIS_CALL_TIMEOUT"        envDefault:"2m"    validate:"gte=0s"`
	RetryAttempts     int           `env:"PRECIS_RETRY_ATTEMPTS"      envDefault:"2"     validate:"gte=0,lte=10"`
	RetryBackoff      time.Duration `env:"PRECIS_RETRY_BACKOFF"       envDefault:"500ms" validate:"gte=0s"`
	RequestsPerMinute float64       `env:"PRECIS_REQUESTS_PER_MINUTE" envDefault:"0"     validate:"gte=0"`
	MaxReduceDepth    int           `env:"PRECIS_MAX_REDUCE_DEPTH"    envDefault:"4"     validate:"gte=0,lte=10"`

	LogLevel       string `env:"PRECIS_LOG_LEVEL"        envDefault:"info"     validate:"oneof=trace debug info warn error disabled"`
	ListenAddr     string `env:"PRECIS_LISTEN_ADDR"      envDefault:":8080"    validate:"required"`
	MaxUploadBytes int64  `env:"PRECIS_MAX_UPLOAD_BYTES" envDefault:"20971520" validate:"gt=0"`
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their environment variable name.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("env"), ",")
		if name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// Validate checks every field. Call it again after applying flag overrides.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s (got %v)", fe.Field(), fe.Param(), fe.Value())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s (got %v)", fe.Field(), fe.Param(), fe.Value())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s (got %v)", fe.Field(), fe.Param(), fe.Value())
	case "ltfield":
		return fmt.Sprintf("%s must be smaller than the chunk size (got %v)", fe.Field(), fe.Value())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s] (got %v)", fe.Field(), fe.Param(), fe.Value())
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	default:
		return fmt.Sprintf("%s failed %q validation (got %v)", fe.Field(), fe.Tag(), fe.Value())
	}
}

// Level returns the configured zerolog level, info when unparsable.
func (c Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}

// LLMConfig returns the model client settings for model, or the configured
// model when model is empty.
func (c Config) LLMConfig(model string) llm.Config {
	if model == "" {
		model = c.Model
	}
	return llm.Config{
		Provider:    llm.Provider(c.Provider),
		Model:       model,
		Temperature: c.Temperature,
		MaxTokens:   c.MaxTokens,
		APIKey:      c.OpenAIAPIKey,
		BaseURL:     c.BaseURL,
	}
}

// LLMOptions returns the retry and rate limit settings for llm.New.
func (c Config) LLMOptions(log zerolog.Logger) llm.Options {
	return llm.Options{
		RetryAttempts:     c.RetryAttempts,
		RetryBackoff:      c.RetryBackoff,
		RequestsPerMinute: c.RequestsPerMinute,
		Logger:            log,
	}
}

// PipelineConfig returns the map-reduce bounds.
func (c Config) PipelineConfig() pipeline.Config {
	return pipeline.Config{
		Concurrency:    c.Concurrency,
		CallTimeout:    c.CallTimeout,
		MaxReduceDepth: c.MaxReduceDepth,
	}
}

// Splitter builds a chunk splitter using chunkSize, or the configured size
// when chunkSize is zero.
func (c Config) Splitter(chunkSize int) (*chunk.Splitter, error) {
	if chunkSize == 0 {
		chunkSize = c.ChunkSize
	}
	return chunk.New(chunkSize, c.ChunkOverlap)
}
