package core

import (
	"fmt"
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Env                       string // DEV (local; default), TEST, QA, PROD
		Build                     string
		Debug                     bool
		TestMode                  bool
		AppName                   string
		Tagline                   string
		SecretKey                 string
		WorkDir                   string
		FrontendBaseURL           string
		RollbarToken              string
		SendgridApiKey            string
		PasswordResetTimeoutDelta time.Duration
		OTPExpirationDelta        time.Duration

		Server       ServerConfig
		Database     DatabaseConfig
		SMS          SMSConfig
		DefaultAdmin DefaultAdminConfig

		defaultFromEmail string
	}

	ServerConfig struct {
		Host                 string
		Port                 int
		DebugHost            string
		ShutdownTimeout      time.Duration
		SessionTimeout       time.Duration // inactivity window before a session is cleared
		TokenExpirationDelta time.Duration
		DisableReqLogs       bool
	}

	DatabaseConfig struct {
		Engine        string // sqlite (embedded; default) | postgres
		Name          string // file path for sqlite, database name for postgres
		Host          string
		Port          int
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	SMSConfig struct {
		APIKey   string
		Host     string
		Endpoint string
		Route    string
	}

	DefaultAdminConfig struct {
		Username string
		Password string
		Email    string
	}
)

func (c ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c DatabaseConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c DatabaseConfig) IsSQLite() bool {
	return c.Engine == "" || c.Engine == "sqlite" || c.Engine == "sqlite3"
}

func (c *Config) DefaultFromEmail() mail.Address {
	addr, err := mail.ParseAddress(c.defaultFromEmail)
	if err != nil {
		return mail.Address{Name: c.AppName, Address: "noreply@localhost"}
	}
	if addr.Name == "" {
		addr.Name = c.AppName
	}
	return *addr
}

func NewConfig() *Config {
	conf := viper.New()

	// defaults
	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("build", "develop")
	conf.SetDefault("debug", true)
	conf.SetDefault("appName", "Arya Educations")
	conf.SetDefault("tagline", "Learn, Grow, Succeed")
	conf.SetDefault("secretKey", "7u$k+p2f9#l@x0z!q6w^e3r8t(y)b1n_m4c5v&a=s-d*g%h")
	conf.SetDefault("frontendBaseURL", "http://localhost:3000")
	conf.SetDefault("defaultFromEmail", "noreply@localhost")
	conf.SetDefault("passwordResetTimeoutDelta", 3*24*time.Hour)
	conf.SetDefault("otpExpirationDelta", 5*time.Minute)

	conf.SetDefault("serverHost", "")
	conf.SetDefault("serverPort", 8000)
	conf.SetDefault("serverDebugHost", "localhost:4000")
	conf.SetDefault("serverShutdownTimeout", 5*time.Second)
	conf.SetDefault("serverSessionTimeout", 1800*time.Second)
	conf.SetDefault("serverTokenExpirationDelta", 24*time.Hour)

	conf.SetDefault("dbEngine", "sqlite")
	conf.SetDefault("dbName", "tutorial_app.db")
	conf.SetDefault("dbHost", "localhost")
	conf.SetDefault("dbPort", 5432)

	conf.SetDefault("smsHost", "https://www.fast2sms.com")
	conf.SetDefault("smsEndpoint", "/dev/bulkV2")
	conf.SetDefault("smsRoute", "q")

	conf.SetDefault("defaultAdminUsername", "admin")
	conf.SetDefault("defaultAdminPassword", "admin123")
	conf.SetDefault("defaultAdminEmail", "admin@tutorial.com")

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		conf.SetDefault("testMode", true)
	}
	conf.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	wd := Getwd()
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	conf.AutomaticEnv()

	return &Config{
		Env:                       env,
		Build:                     conf.GetString("build"),
		Debug:                     conf.GetBool("debug"),
		TestMode:                  conf.GetBool("testMode"),
		AppName:                   conf.GetString("appName"),
		Tagline:                   conf.GetString("tagline"),
		SecretKey:                 conf.GetString("secretKey"),
		WorkDir:                   wd,
		FrontendBaseURL:           conf.GetString("frontendBaseURL"),
		RollbarToken:              conf.GetString("rollbarToken"),
		SendgridApiKey:            conf.GetString("sendgridApiKey"),
		PasswordResetTimeoutDelta: conf.GetDuration("passwordResetTimeoutDelta"),
		OTPExpirationDelta:        conf.GetDuration("otpExpirationDelta"),
		Server: ServerConfig{
			Host:                 conf.GetString("serverHost"),
			Port:                 conf.GetInt("serverPort"),
			DebugHost:            conf.GetString("serverDebugHost"),
			ShutdownTimeout:      conf.GetDuration("serverShutdownTimeout"),
			SessionTimeout:       conf.GetDuration("serverSessionTimeout"),
			TokenExpirationDelta: conf.GetDuration("serverTokenExpirationDelta"),
			DisableReqLogs:       conf.GetBool("serverDisableReqLogs"),
		},
		Database: DatabaseConfig{
			Engine:        conf.GetString("dbEngine"),
			Name:          conf.GetString("dbName"),
			Host:          conf.GetString("dbHost"),
			Port:          conf.GetInt("dbPort"),
			User:          conf.GetString("dbUser"),
			Password:      conf.GetString("dbPassword"),
			AdminUser:     conf.GetString("dbAdminUser"),
			AdminPassword: conf.GetString("dbAdminPassword"),
			DisableTLS:    conf.GetBool("dbDisableTLS"),
		},
		SMS: SMSConfig{
			APIKey:   conf.GetString("smsApiKey"),
			Host:     conf.GetString("smsHost"),
			Endpoint: conf.GetString("smsEndpoint"),
			Route:    conf.GetString("smsRoute"),
		},
		DefaultAdmin: DefaultAdminConfig{
			Username: conf.GetString("defaultAdminUsername"),
			Password: conf.GetString("defaultAdminPassword"),
			Email:    conf.GetString("defaultAdminEmail"),
		},
		defaultFromEmail: conf.GetString("defaultFromEmail"),
	}
}

// NewTestConfig returns the defaults without touching the environment.
func NewTestConfig() *Config {
	return &Config{
		Env:                       "TEST",
		Build:                     "test",
		TestMode:                  true,
		AppName:                   "Arya Educations",
		Tagline:                   "Learn, Grow, Succeed",
		SecretKey:                 "secret",
		PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
		OTPExpirationDelta:        5 * time.Minute,
		Server: ServerConfig{
			SessionTimeout:       1800 * time.Second,
			TokenExpirationDelta: time.Hour,
			ShutdownTimeout:      time.Second,
			DisableReqLogs:       true,
		},
		Database: DatabaseConfig{Engine: "sqlite", Name: ":memory:"},
		DefaultAdmin: DefaultAdminConfig{
			Username: "admin",
			Password: "admin123",
			Email:    "admin@tutorial.com",
		},
		defaultFromEmail: "noreply@localhost",
	}
}
