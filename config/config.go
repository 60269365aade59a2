// Ininicializing common application configuration
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	App        AppConfig        `mapstructure:"app"`
	Normalizer NormalizerConfig `mapstructure:"normalizer"`
	OpenAI     OpenAIConfig     `mapstructure:"openai"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	Worker     WorkerConfig     `mapstructure:"worker"`
}

type ServerConfig struct {
	AppVersion   string        `mapstructure:"app_version"`
	Host         string        `mapstructure:"host"`
	Port         string        `mapstructure:"port"`
	Timeout      time.Duration `mapstructure:"timeout"`
	Idle_timeout time.Duration `mapstructure:"idle_timeout"`
	Env          string        `mapstructure:"environment"`
	Mode         string        `mapstructure:"mode"`
}

type AppConfig struct {
	MaxUploadBytes int64  `mapstructure:"max_upload_bytes"`
	PromptTemplate string `mapstructure:"prompt_template"`
	OutputQuality  int    `mapstructure:"output_quality"`
	// RequestTimeout bounds every API call except conversion submission.
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

type NormalizerConfig struct {
	MaxSize     int    `mapstructure:"max_size"`
	TempDir     string `mapstructure:"temp_dir"`
	TempQuality int    `mapstructure:"temp_quality"`
	Resampler   string `mapstructure:"resampler"`
}

type OpenAIConfig struct {
	APIKeyEnv string        `mapstructure:"api_key_env"`
	BaseURL   string        `mapstructure:"base_url"`
	Model     string        `mapstructure:"model"`
	Size      string        `mapstructure:"size"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type StorageConfig struct {
	BasePath string `mapstructure:"base_path"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type KafkaConfig struct {
	Brokers     []string `mapstructure:"brokers"`
	TaskTopic   string   `mapstructure:"task_topic"`
	EventsTopic string   `mapstructure:"events_topic"`
	GroupID     string   `mapstructure:"group_id"`
}

type WorkerConfig struct {
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
	ResultTTL       time.Duration `mapstructure:"result_ttl"`
	// Consumers bounds concurrent conversions in the processor.
	Consumers int `mapstructure:"consumers"`
}

// LoadConfig reads config.yaml from the given directories (./config by
// default) or the given .yaml file. A missing file in a directory is not an
// error: defaults and COLORINGBOOK_* environment variables still apply.
func LoadConfig(paths ...string) (*viper.Viper, error) {

	viperInstance := viper.New()
	setDefaults(viperInstance)

	if len(paths) == 0 {
		paths = []string{"./config"}
	}
	viperInstance.SetConfigName("config")
	viperInstance.SetConfigType("yaml")
	for _, p := range paths {
		switch filepath.Ext(p) {
		case ".yaml", ".yml":
			// an explicit file must exist
			viperInstance.SetConfigFile(p)
		default:
			viperInstance.AddConfigPath(p)
		}
	}

	viperInstance.SetEnvPrefix("COLORINGBOOK")
	viperInstance.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viperInstance.AutomaticEnv()

	err := viperInstance.ReadInConfig()
	if err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		logrus.Warn("config file not found, using defaults")
	}
	return viperInstance, nil
}

func ParseConfig(v *viper.Viper) (*Config, error) {

	var c Config

	err := v.Unmarshal(&c)
	if err != nil {
		logrus.Errorf("unable to decode config into struct, %v", err)
		return nil, err
	}
	return &c, nil
}

func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.app_version", "1.0.0")
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.timeout", 5*time.Minute)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.mode", "debug")

	v.SetDefault("app.max_upload_bytes", 10<<20)
	v.SetDefault("app.prompt_template", "")
	v.SetDefault("app.output_quality", 80)
	v.SetDefault("app.request_timeout", 30*time.Second)

	v.SetDefault("normalizer.max_size", 512)
	v.SetDefault("normalizer.temp_dir", "")
	v.SetDefault("normalizer.temp_quality", 95)
	v.SetDefault("normalizer.resampler", "lanczos")

	v.SetDefault("openai.api_key_env", "OPENAI_API_KEY")
	v.SetDefault("openai.base_url", "https://api.openai.com")
	v.SetDefault("openai.model", "gpt-image-1")
	v.SetDefault("openai.size", "1024x1536")
	v.SetDefault("openai.timeout", time.Duration(0))

	v.SetDefault("storage.base_path", "./storage")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 24*time.Hour)

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.task_topic", "coloringbook-tasks")
	v.SetDefault("kafka.events_topic", "coloringbook-events")
	v.SetDefault("kafka.group_id", "coloringbook-processor")

	v.SetDefault("worker.cleanup_interval", 10*time.Minute)
	v.SetDefault("worker.result_ttl", 24*time.Hour)
	v.SetDefault("worker.consumers", 2)
}
