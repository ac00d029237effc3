package app

import (
	"strings"
	"time"

	"github.com/studyrail/studyrail-backend/internal/platform/envutil"
	"github.com/studyrail/studyrail-backend/internal/platform/logger"
)

type Config struct {
	ServiceName  string
	Environment  string
	HTTPAddr     string
	JWTSecretKey string
	AllowOrigins []string
	ViewCacheTTL time.Duration
}

func LoadConfig(log *logger.Logger) Config {
	origins := envutil.GetEnv("CORS_ALLOW_ORIGINS", "", log)
	var allowOrigins []string
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			allowOrigins = append(allowOrigins, o)
		}
	}

	viewCacheTTLSeconds := envutil.GetEnvAsInt("VIEW_CACHE_TTL", 60, log)
	return Config{
		ServiceName:  "studyrail",
		Environment:  envutil.GetEnv("ENVIRONMENT", "development", log),
		HTTPAddr:     envutil.GetEnv("HTTP_ADDR", ":8080", log),
		JWTSecretKey: envutil.GetEnv("JWT_SECRET_KEY", "defaultsecret", log),
		AllowOrigins: allowOrigins,
		ViewCacheTTL: time.Duration(viewCacheTTLSeconds) * time.Second,
	}
}
