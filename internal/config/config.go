package config // package config loads application configuration from environment variables

import (
    "errors"   // errors distinguishes a missing .env file from a broken one
    "io/fs"    // fs.ErrNotExist is what godotenv returns for a missing file
    "log"      // log is used to report configuration errors and halt execution
    "os"       // os provides access to environment variables

    "github.com/joho/godotenv" // optional .env loading for local runs
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.
type Config struct {
    Env          string // application environment (e.g. "dev", "prod")
    Port         string // HTTP port to listen on
    LogLevel     string // zap level override (optional)
    DBUser       string // database username
    DBPass       string // database password (optional)
    DBHost       string // database host address
    DBPort       string // database port number
    DBName       string // database name
    JWTSecret    string // secret used to verify operator JWTs
    AccessTTLMin int    // lifetime of tokens minted by the CLI, in minutes
}

// LoadDotEnv loads variables from the given files (".env" when none are
// given) without overriding variables already set.  Missing files are
// ignored so production deployments need not ship one.
func LoadDotEnv(files ...string) {
    if len(files) == 0 {
        files = []string{".env"}
    }
    for _, f := range files {
        if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
            log.Printf("config: could not load %s: %v", f, err)
        }
    }
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
    return Config{
        Env:          must("APP_ENV"),                // environment (dev/test/prod)
        Port:         envStr("APP_PORT", "8080"),     // port to bind the HTTP server
        LogLevel:     os.Getenv("LOG_LEVEL"),         // optional level override
        DBUser:       must("DB_USER"),                // database user
        DBPass:       os.Getenv("DB_PASS"),           // database password (empty allowed)
        DBHost:       must("DB_HOST"),                // database host
        DBPort:       must("DB_PORT"),                // database port
        DBName:       must("DB_NAME"),                // database name
        JWTSecret:    must("JWT_SECRET"),             // secret used for signing JWTs
        AccessTTLMin: envInt("ACCESS_TOKEN_TTL_MIN", 60), // TTL for minted tokens in minutes
    }
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        log.Fatalf("missing required env var: %s", key)
    }
    return v
}
