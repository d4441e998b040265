package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Storage backend identifiers accepted in STORAGE_BACKEND.
const (
	BackendLocal      = "local"
	BackendMinio      = "minio"
	BackendCloudinary = "cloudinary"
)

// Config holds all configuration values from environment.
type Config struct {
	AppPort    string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	StorageBackend string
	UploadsDir     string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioSSL       bool

	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string
	CloudinaryFolder    string

	GeocodingAPIKey string

	RedisHost string
	RedisPort string

	// AllowedEmails is the uploader allow-list; its order defines the
	// slot shortcut routes (first/second/third uploader).
	AllowedEmails []string
	// UploaderFolders maps an allow-listed email to the folder key used
	// by the CDN backend.
	UploaderFolders map[string]string

	FrontendURL string
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	minioSSL := false
	if sslEnv := os.Getenv("MINIO_SSL"); sslEnv != "" {
		val, err := strconv.ParseBool(sslEnv)
		if err != nil {
			return nil, fmt.Errorf("invalid MINIO_SSL value: %v", err)
		}
		minioSSL = val
	}

	backend := os.Getenv("STORAGE_BACKEND")
	if backend == "" {
		backend = BackendLocal
	}

	uploadsDir := os.Getenv("UPLOADS_DIR")
	if uploadsDir == "" {
		uploadsDir = "public/uploads"
	}

	cloudinaryFolder := os.Getenv("CLOUDINARY_FOLDER")
	if cloudinaryFolder == "" {
		cloudinaryFolder = "maps-maker"
	}

	cfg := &Config{
		AppPort:    os.Getenv("APP_PORT"),
		DBHost:     os.Getenv("DB_HOST"),
		DBPort:     os.Getenv("DB_PORT"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),

		StorageBackend: backend,
		UploadsDir:     uploadsDir,

		MinioEndpoint:  os.Getenv("MINIO_ENDPOINT"),
		MinioAccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey: os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:    os.Getenv("MINIO_BUCKET"),
		MinioSSL:       minioSSL,

		CloudinaryCloudName: os.Getenv("CLOUDINARY_CLOUD_NAME"),
		CloudinaryAPIKey:    os.Getenv("CLOUDINARY_API_KEY"),
		CloudinaryAPISecret: os.Getenv("CLOUDINARY_API_SECRET"),
		CloudinaryFolder:    cloudinaryFolder,

		GeocodingAPIKey: os.Getenv("GOOGLE_GEOCODING_API_KEY"),

		RedisHost: os.Getenv("REDIS_HOST"),
		RedisPort: os.Getenv("REDIS_PORT"),

		AllowedEmails:   splitList(os.Getenv("ALLOWED_EMAILS")),
		UploaderFolders: parseMappings(os.Getenv("UPLOADER_FOLDERS")),

		FrontendURL: os.Getenv("FRONTEND_URL"),
	}

	// Basic validation for required fields
	if cfg.DBHost == "" || cfg.DBUser == "" || cfg.DBName == "" {
		return nil, fmt.Errorf("database configuration is incomplete")
	}
	switch cfg.StorageBackend {
	case BackendLocal:
		// uploads dir always has a default
	case BackendMinio:
		if cfg.MinioEndpoint == "" || cfg.MinioAccessKey == "" || cfg.MinioSecretKey == "" || cfg.MinioBucket == "" {
			return nil, fmt.Errorf("minio configuration is incomplete")
		}
	case BackendCloudinary:
		if cfg.CloudinaryCloudName == "" || cfg.CloudinaryAPIKey == "" || cfg.CloudinaryAPISecret == "" {
			return nil, fmt.Errorf("cloudinary configuration is incomplete")
		}
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.StorageBackend)
	}
	if len(cfg.AllowedEmails) == 0 {
		return nil, fmt.Errorf("ALLOWED_EMAILS must list at least one uploader")
	}
	return cfg, nil
}

// IsAllowedEmail reports whether the email is in the uploader allow-list.
func (c *Config) IsAllowedEmail(email string) bool {
	for _, e := range c.AllowedEmails {
		if strings.EqualFold(e, email) {
			return true
		}
	}
	return false
}

// UploaderBySlot returns the nth configured uploader email (0-based).
func (c *Config) UploaderBySlot(n int) (string, bool) {
	if n < 0 || n >= len(c.AllowedEmails) {
		return "", false
	}
	return c.AllowedEmails[n], true
}

// FolderFor resolves the CDN folder key for an uploader, defaulting to a
// slug of the local part of the email when no mapping is configured.
func (c *Config) FolderFor(email string) string {
	if folder, ok := c.UploaderFolders[strings.ToLower(email)]; ok {
		return folder
	}
	local := email
	if i := strings.Index(email, "@"); i > 0 {
		local = email[:i]
	}
	return strings.ToLower(local)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// parseMappings parses "email=folder,email=folder" pairs.
func parseMappings(raw string) map[string]string {
	mappings := make(map[string]string)
	for _, part := range strings.Split(raw, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 || kv[0] == "" || kv[1] == "" {
			continue
		}
		mappings[strings.ToLower(kv[0])] = kv[1]
	}
	return mappings
}

// ConnectDatabase initializes a GORM database connection to PostgreSQL.
func ConnectDatabase(cfg *Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}
	return db, nil
}
