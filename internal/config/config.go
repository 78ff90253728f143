package config

import (
	"os"
	"strings"
)

type GeovisorServiceConfig struct {
	Port        string
	APIKey      string
	PostgresCfg PostgresConfig
	RedisCfg    RedisConfig
	MinioCfg    MinioConfig
	BoundaryCfg BoundaryConfig
	CostingCfg  CostingConfig
}

type PostgresConfig struct {
	DBname   string
	Username string
	Password string
	Host     string
	Port     string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type MinioConfig struct {
	MinioURL         string
	MinioAccessKey   string
	MinioSecretKey   string
	MinioLocation    string
	MinioSecure      string
	MinioResourceURL string
}

// BoundaryConfig points at the static TopoJSON boundary dataset, one
// document per administrative level.
type BoundaryConfig struct {
	BaseURL      string
	RegionFile   string
	SubRegFile   string
	LocalityFile string
	// OperatingRegions is the allow-list shown on the no-selection
	// overview. Regions outside it exist in the dataset but are never
	// rendered unfiltered.
	OperatingRegions []string
}

// CostingConfig locates the remote cost-calculation service.
type CostingConfig struct {
	BaseURL string
	Timeout string
}

func New() *GeovisorServiceConfig {
	return &GeovisorServiceConfig{
		Port:   getEnvOrDefault("PORT", "8086"),
		APIKey: getEnvOrDefault("API_KEY", ""),
		PostgresCfg: PostgresConfig{
			DBname:   getEnvOrDefault("POSTGRES_DB", "geovisor"),
			Username: getEnvOrDefault("POSTGRES_USER", "postgres"),
			Password: getEnvOrDefault("POSTGRES_PASSWORD", "postgres"),
			Host:     getEnvOrDefault("POSTGRES_HOST", "localhost"),
			Port:     getEnvOrDefault("POSTGRES_PORT", "5432"),
		},
		RedisCfg: RedisConfig{
			Host:     getEnvOrDefault("REDIS_HOST", "localhost"),
			Port:     getEnvOrDefault("REDIS_PORT", "6379"),
			Password: getEnvOrDefault("REDIS_PASSWORD", ""),
			DB:       0,
		},
		MinioCfg: MinioConfig{
			MinioURL:         getEnvOrDefault("MINIO_ENDPOINT", "http://localhost:9407"),
			MinioAccessKey:   getEnvOrDefault("MINIO_ACCESS_KEY", "minio"),
			MinioSecretKey:   getEnvOrDefault("MINIO_SECRET_KEY", "minio123"),
			MinioLocation:    getEnvOrDefault("MINIO_LOCATION", "us-east-1"),
			MinioSecure:      getEnvOrDefault("MINIO_SECURE", "false"),
			MinioResourceURL: getEnvOrDefault("MINIO_RESOURCE_URL", "http://localhost:9407/"),
		},
		BoundaryCfg: BoundaryConfig{
			BaseURL:      getEnvOrDefault("BOUNDARY_BASE_URL", "http://localhost:8086/geo"),
			RegionFile:   getEnvOrDefault("BOUNDARY_REGION_FILE", "REGIONS.topojson"),
			SubRegFile:   getEnvOrDefault("BOUNDARY_SUBREGION_FILE", "SUBREGIONS.topojson"),
			LocalityFile: getEnvOrDefault("BOUNDARY_LOCALITY_FILE", "LOCALITIES.topojson"),
			OperatingRegions: strings.Split(getEnvOrDefault("OPERATING_REGIONS",
				"AMAZONAS,HUANUCO,JUNIN,LORETO,MADRE DE DIOS,SAN MARTIN,UCAYALI"), ","),
		},
		CostingCfg: CostingConfig{
			BaseURL: getEnvOrDefault("COSTING_BASE_URL", "http://localhost:8000/api"),
			Timeout: getEnvOrDefault("COSTING_TIMEOUT", "15s"),
		},
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
