package config

import "time"

type TelegramConfig struct {
	Token                string        `env:"BOT_TOKEN" yaml:"token"`
	MessagePerSecond     int           `env:"MESSAGE_PER_SECOND" yaml:"message_per_second"`
	GlobalPerSecond      int           `env:"GLOBAL_PER_SECOND" yaml:"global_per_second"`
	LocalizationFilePath string        `env:"LOCALIZATION_FILE_PATH" yaml:"localization_file_path"`
	HTTPRetries          int           `env:"HTTP_RETRIES" yaml:"http_retries"`
	HTTPRetryWait        time.Duration `env:"HTTP_RETRY_WAIT" yaml:"http_retry_wait"`
}

// MTProtoConfig configures one MTProto identity. The bot identity logs in
// with BotToken; the admin identity must already have an authorized session.
type MTProtoConfig struct {
	APIID       int    `env:"API_ID" yaml:"api_id"`
	APIHash     string `env:"API_HASH" yaml:"api_hash"`
	SessionFile string `env:"SESSION_FILE" yaml:"session_file"`
	BotToken    string `env:"BOT_TOKEN" yaml:"bot_token"`
}

type DispatchConfig struct {
	JitterMin time.Duration `env:"JITTER_MIN" yaml:"jitter_min"`
	JitterMax time.Duration `env:"JITTER_MAX" yaml:"jitter_max"`
}

type StorageConfig struct {
	Driver        string        `env:"DRIVER" yaml:"driver"`
	RedisAddr     string        `env:"REDIS_ADDR" yaml:"redis_addr"`
	RedisPassword string        `env:"REDIS_PASSWORD" yaml:"redis_password"`
	RedisDB       int           `env:"REDIS_DB" yaml:"redis_db"`
	Prefix        string        `env:"PREFIX" yaml:"prefix"`
	SQLitePath    string        `env:"SQLITE_PATH" yaml:"sqlite_path"`
	BusyTimeout   time.Duration `env:"BUSY_TIMEOUT" yaml:"busy_timeout"`
}

type AuthConfig struct {
	CallbackAddr string        `env:"CALLBACK_ADDR" yaml:"callback_addr"`
	CallbackPath string        `env:"CALLBACK_PATH" yaml:"callback_path"`
	Timeout      time.Duration `env:"TIMEOUT" yaml:"timeout"`
}

type LogConfig struct {
	Level  string `env:"LEVEL" yaml:"level"`
	Format string `env:"FORMAT" yaml:"format"`
}

type Config struct {
	Telegram TelegramConfig `envPrefix:"TG_" yaml:"telegram"`
	Bot      MTProtoConfig  `envPrefix:"MTPROTO_BOT_" yaml:"bot"`
	Admin    MTProtoConfig  `envPrefix:"MTPROTO_ADMIN_" yaml:"admin"`
	Dispatch DispatchConfig `envPrefix:"DISPATCH_" yaml:"dispatch"`
	Storage  StorageConfig  `envPrefix:"STORAGE_" yaml:"storage"`
	Auth     AuthConfig     `envPrefix:"AUTH_" yaml:"auth"`
	Log      LogConfig      `envPrefix:"LOG_" yaml:"log"`
}

func Default() Config {
	return Config{
		Telegram: TelegramConfig{
			MessagePerSecond: 1,
			GlobalPerSecond:  25,
			HTTPRetries:      3,
			HTTPRetryWait:    time.Second,
		},
		Bot: MTProtoConfig{
			SessionFile: "session/bot.json",
		},
		Admin: MTProtoConfig{
			SessionFile: "session/admin.json",
		},
		Dispatch: DispatchConfig{
			JitterMin: 1500 * time.Millisecond,
			JitterMax: 4000 * time.Millisecond,
		},
		Storage: StorageConfig{
			Driver:      "sqlite",
			Prefix:      "drive-bridge",
			SQLitePath:  "data/tasks.db",
			BusyTimeout: 5 * time.Second,
		},
		Auth: AuthConfig{
			CallbackAddr: ":8080",
			CallbackPath: "/auth",
			Timeout:      5 * time.Minute,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
