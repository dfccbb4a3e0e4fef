package configuration

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DriverMemory = "memory"
	DriverMongo  = "mongo"

	envPrefix = "CAMPUS"
)

type StoreConfig struct {
	Driver               string `mapstructure:"driver"`
	Uri                  string `mapstructure:"uri"`
	Database             string `mapstructure:"database"`
	MessagesCollection   string `mapstructure:"messagesCollection"`
	CountersCollection   string `mapstructure:"countersCollection"`
	TypingCollection     string `mapstructure:"typingCollection"`
	SummariesCollection  string `mapstructure:"summariesCollection"`
	CallsCollection      string `mapstructure:"callsCollection"`
	CandidatesCollection string `mapstructure:"candidatesCollection"`
}

type ServerConfig struct {
	AppPort        int      `mapstructure:"appPort"`
	SocketPort     int      `mapstructure:"socketPort"`
	SocketRoute    string   `mapstructure:"socketRoute"`
	AllowedOrigins []string `mapstructure:"allowedOrigins"`
}

type ChatConfig struct {
	MaxMessageLength int `mapstructure:"maxMessageLength"`
}

type PresenceConfig struct {
	QuietInterval time.Duration `mapstructure:"quietInterval"`
	StaleAfter    time.Duration `mapstructure:"staleAfter"`
}

type CallsConfig struct {
	StaleTTL      time.Duration `mapstructure:"staleTTL"`
	SweepInterval time.Duration `mapstructure:"sweepInterval"`
	IceServers    []string      `mapstructure:"iceServers"`
}

type HubConfig struct {
	RateLimit float64 `mapstructure:"rateLimit"`
	RateBurst int     `mapstructure:"rateBurst"`
}

type LogConfig struct {
	Development bool `mapstructure:"development"`
}

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Store    StoreConfig    `mapstructure:"store"`
	Chat     ChatConfig     `mapstructure:"chat"`
	Presence PresenceConfig `mapstructure:"presence"`
	Calls    CallsConfig    `mapstructure:"calls"`
	Hub      HubConfig      `mapstructure:"hub"`
	Log      LogConfig      `mapstructure:"log"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.appPort", 8080)
	v.SetDefault("server.socketPort", 8081)
	v.SetDefault("server.socketRoute", "ws")
	v.SetDefault("server.allowedOrigins", []string{"http://localhost:4200"})

	v.SetDefault("store.driver", DriverMemory)
	v.SetDefault("store.uri", "mongodb://localhost:27017")
	v.SetDefault("store.database", "campus")
	v.SetDefault("store.messagesCollection", "messages")
	v.SetDefault("store.countersCollection", "counters")
	v.SetDefault("store.typingCollection", "typing")
	v.SetDefault("store.summariesCollection", "chat_summaries")
	v.SetDefault("store.callsCollection", "calls")
	v.SetDefault("store.candidatesCollection", "call_candidates")

	v.SetDefault("chat.maxMessageLength", 4000)

	v.SetDefault("presence.quietInterval", 1750*time.Millisecond)
	v.SetDefault("presence.staleAfter", 10*time.Second)

	v.SetDefault("calls.staleTTL", 2*time.Minute)
	v.SetDefault("calls.sweepInterval", 30*time.Second)
	v.SetDefault("calls.iceServers", []string{"stun:stun.l.google.com:19302"})

	v.SetDefault("hub.rateLimit", 20.0)
	v.SetDefault("hub.rateBurst", 40)

	v.SetDefault("log.development", false)
}

// LoadConfig reads the JSON file at path on top of the defaults. A missing
// file is not an error; CAMPUS_ environment variables override both, with
// dots in keys replaced by underscores (CAMPUS_STORE_DRIVER).
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("json")
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := config.validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) validate() error {
	switch c.Store.Driver {
	case DriverMemory, DriverMongo:
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if c.Chat.MaxMessageLength <= 0 {
		return errors.New("chat.maxMessageLength must be positive")
	}
	if c.Calls.SweepInterval <= 0 || c.Calls.StaleTTL <= 0 {
		return errors.New("calls.staleTTL and calls.sweepInterval must be positive")
	}
	return nil
}
