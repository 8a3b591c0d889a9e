package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types

	"github.com/joho/godotenv" // godotenv loads a local .env file into the environment
)

// Config holds all runtime configuration values. Each field corresponds
// to an environment variable. The database fields are only required
// when the MySQL store backend is selected; the file backend needs
// nothing beyond a writable data directory.
type Config struct {
	Env          string // application environment (e.g. "dev", "prod")
	Port         string // HTTP port to listen on
	StoreBackend string // "mysql" or "file"
	DataDir      string // state directory for the file backend
	DBUser       string // database username
	DBPass       string // database password (optional)
	DBHost       string // database host address
	DBPort       string // database port number
	DBName       string // database name

	JWTSecret     string // secret used to sign operator JWTs
	AccessTTLMin  int    // operator token time-to-live in minutes
	BcryptCost    int    // bcrypt cost for the admin password hash
	AdminUser     string // operator dashboard username
	AdminPassword string // operator dashboard password (hashed at startup)

	TokenKeyFile     string // path of the ticket token secret key file
	QRDir            string // directory QR images are written to
	PublicBaseURL    string // externally reachable base URL embedded in QR links
	WarningOffsetMin int    // minutes before session end the warning fires
}

// Load reads configuration from a local .env file (when present) and
// the environment. Required variables are enforced by must() and
// missing values cause the program to exit with a fatal log message.
func Load() Config {
	_ = godotenv.Load() // a missing .env file is fine; the environment wins

	cfg := Config{
		Env:          must("APP_ENV"),
		Port:         must("APP_PORT"),
		StoreBackend: getenv("STORE_BACKEND", "mysql"),
		DataDir:      getenv("DATA_DIR", "data"),

		JWTSecret:     must("JWT_SECRET"),
		AccessTTLMin:  mustInt("ACCESS_TOKEN_TTL_MIN"),
		BcryptCost:    mustInt("BCRYPT_COST"),
		AdminUser:     must("ADMIN_USERNAME"),
		AdminPassword: must("ADMIN_PASSWORD"),

		TokenKeyFile:     getenv("TOKEN_KEY_FILE", "secret.key"),
		QRDir:            getenv("QR_DIR", "generated_qrs"),
		PublicBaseURL:    must("PUBLIC_BASE_URL"),
		WarningOffsetMin: envInt("WARNING_BUFFER_MINUTES", 5),
	}
	switch cfg.StoreBackend {
	case "mysql":
		cfg.DBUser = must("DB_USER")
		cfg.DBPass = os.Getenv("DB_PASS") // empty allowed
		cfg.DBHost = must("DB_HOST")
		cfg.DBPort = must("DB_PORT")
		cfg.DBName = must("DB_NAME")
	case "file":
		// DataDir is all the file backend needs.
	default:
		log.Fatalf("unknown STORE_BACKEND: %q", cfg.StoreBackend)
	}
	return cfg
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
// If conversion fails, the application logs a fatal error and exits.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return def
}
