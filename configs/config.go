package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type R2 struct {
	AccountID  string
	AccessKey  string
	SecretKey  string
	BucketName string
	URLExpiry  time.Duration
}

type Instagram struct {
	UserID       string
	AccessToken  string
	GraphURL     string
	PollInterval time.Duration
	MaxPolls     int
}

type Config struct {
	DatabaseDriver     string
	PostgresURI        string
	SQLitePath         string
	DataDir            string
	RedisURI           string
	ListenAddr         string
	SecretKey          string
	CookieName         string
	R2                 R2
	Instagram          Instagram
	GoogleClientID     string
	GoogleClientSecret string
	YoutubeRefresh     string
	PublishPlatform    string
	OpenAIKey          string
	OpenAIModel        string
	PexelsKey          string
	PexelsURL          string
	MusicCommand       string
	TelegramBotToken   string
	TelegramChatIDs    []string
	NtfyTopic          string
	RenderCommand      string
	RenderTimeout      time.Duration
	VideoDir           string
	MusicDir           string
	OutputDir          string
	ContentConfigPath  string
}

func LoadConfig() *Config {
	dataDir := getEnv("DATA_DIR", "data")
	return &Config{
		DatabaseDriver: getEnv("DATABASE_DRIVER", "sqlite"),
		PostgresURI:    getEnv("POSTGRES_URI", ""),
		SQLitePath:     getEnv("SQLITE_PATH", dataDir+"/reelflow.db"),
		DataDir:        dataDir,
		RedisURI:       getEnv("REDIS_URI", ""),
		ListenAddr:     getEnv("LISTEN_ADDR", ":3000"),
		SecretKey:      getEnv("SECRET_KEY", ""),
		CookieName:     getEnv("COOKIE_NAME", "reelflow_token"),
		R2: R2{
			AccountID:  getEnv("R2_ACCOUNT_ID", ""),
			AccessKey:  getEnv("R2_ACCESS_KEY", ""),
			SecretKey:  getEnv("R2_SECRET_KEY", ""),
			BucketName: getEnv("R2_BUCKET_NAME", ""),
			URLExpiry:  getDuration("R2_URL_EXPIRY", 2*time.Hour),
		},
		Instagram: Instagram{
			UserID:       getEnv("INSTAGRAM_USER_ID", ""),
			AccessToken:  getEnv("INSTAGRAM_ACCESS_TOKEN", ""),
			GraphURL:     getEnv("INSTAGRAM_GRAPH_URL", "https://graph.facebook.com/v19.0"),
			PollInterval: getDuration("INSTAGRAM_POLL_INTERVAL", 5*time.Second),
			MaxPolls:     getInt("INSTAGRAM_MAX_POLLS", 60),
		},
		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		YoutubeRefresh:     getEnv("YOUTUBE_REFRESH_TOKEN", ""),
		PublishPlatform:    getEnv("PUBLISH_PLATFORM", "instagram"),
		OpenAIKey:          getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:        getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		PexelsKey:          getEnv("PEXELS_API_KEY", ""),
		PexelsURL:          getEnv("PEXELS_URL", "https://api.pexels.com"),
		MusicCommand:       getEnv("MUSIC_DOWNLOAD_COMMAND", ""),
		TelegramBotToken:   getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatIDs:    getList("TELEGRAM_CHAT_IDS"),
		NtfyTopic:          getEnv("NTFY_TOPIC", ""),
		RenderCommand:      getEnv("RENDER_COMMAND", ""),
		RenderTimeout:      getDuration("RENDER_TIMEOUT", 5*time.Minute),
		VideoDir:           getEnv("ASSET_VIDEO_DIR", dataDir+"/videos"),
		MusicDir:           getEnv("ASSET_MUSIC_DIR", dataDir+"/music"),
		OutputDir:          getEnv("OUTPUT_DIR", dataDir+"/output"),
		ContentConfigPath:  getEnv("CONTENT_CONFIG", "config/content.yaml"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return value
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return value
}

func getList(key string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, ""), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
