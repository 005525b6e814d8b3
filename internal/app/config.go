package app

import (
	"strings"

	"github.com/pathlight-hq/pathlight-backend/internal/platform/logger"
	"github.com/pathlight-hq/pathlight-backend/internal/utils"
)

type Config struct {
	ServiceName  string
	Environment  string
	Version      string
	ListenAddr   string
	AllowOrigins []string
}

func LoadConfig(log *logger.Logger) Config {
	serviceName := utils.GetEnv("SERVICE_NAME", "pathlight-backend", log)
	environment := utils.GetEnv("ENVIRONMENT", "development", log)
	version := utils.GetEnv("SERVICE_VERSION", "dev", log)
	listenAddr := utils.GetEnv("LISTEN_ADDR", ":8080", log)
	originsRaw := utils.GetEnv("CORS_ALLOW_ORIGINS", "http://localhost:3000", log)

	var origins []string
	for _, o := range strings.Split(originsRaw, ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			origins = append(origins, o)
		}
	}

	return Config{
		ServiceName:  serviceName,
		Environment:  environment,
		Version:      version,
		ListenAddr:   listenAddr,
		AllowOrigins: origins,
	}
}
