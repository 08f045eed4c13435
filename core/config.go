package core

import (
	"fmt"
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Host            string        `mapstructure:"host"`
		Port            string        `mapstructure:"port"`
		DebugHost       string        `mapstructure:"debugHost"`
		ReadTimeout     time.Duration `mapstructure:"readTimeout"`
		WriteTimeout    time.Duration `mapstructure:"writeTimeout"`
		ShutdownTimeout time.Duration `mapstructure:"shutdownTimeout"`
	}

	DatabaseConfig struct {
		Engine     string `mapstructure:"engine"` // postgres | sqlite | memory
		Name       string `mapstructure:"name"`
		Host       string `mapstructure:"host"`
		Port       string `mapstructure:"port"`
		User       string `mapstructure:"user"`
		Password   string `mapstructure:"password"`
		DisableTLS bool   `mapstructure:"disableTLS"`
	}

	SlidesConfig struct {
		Dir       string `mapstructure:"dir"`
		OutputDir string `mapstructure:"outputDir"`
		MarpTheme string `mapstructure:"marpTheme"`
		Paginate  bool   `mapstructure:"paginate"`
		Watch     bool   `mapstructure:"watch"`
	}

	SurveyConfig struct {
		Backend  string `mapstructure:"backend"` // file | redis
		File     string `mapstructure:"file"`
		RedisKey string `mapstructure:"redisKey"`
	}

	RedisConfig struct {
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	}

	MailConfig struct {
		Backend string `mapstructure:"backend"` // console | sendgrid | smtp
		Handout string `mapstructure:"handout"` // file attached to completion emails
	}

	SMTPConfig struct {
		Host     string `mapstructure:"host"`
		Port     string `mapstructure:"port"`
		Username string `mapstructure:"username"`
		Password string `mapstructure:"password"`
	}

	ShareConfig struct {
		Expiration time.Duration `mapstructure:"expiration"`
	}

	Config struct {
		Env              string `mapstructure:"-"`
		TestMode         bool   `mapstructure:"testMode"`
		Debug            bool   `mapstructure:"debug"`
		AppName          string `mapstructure:"appName"`
		Build            string `mapstructure:"build"`
		SecretKey        string `mapstructure:"secretKey"`
		FrontendBaseURL  string `mapstructure:"frontendBaseURL"`
		DefaultFromEmail string `mapstructure:"defaultFromEmail"`
		DefaultFromName  string `mapstructure:"defaultFromName"`
		SendgridApiKey   string `mapstructure:"sendgridApiKey"`
		RollbarToken     string `mapstructure:"rollbarToken"`
		WorkDir          string `mapstructure:"-"`

		Server   ServerConfig   `mapstructure:"server"`
		Database DatabaseConfig `mapstructure:"database"`
		Slides   SlidesConfig   `mapstructure:"slides"`
		Survey   SurveyConfig   `mapstructure:"survey"`
		Redis    RedisConfig    `mapstructure:"redis"`
		Mail     MailConfig     `mapstructure:"mail"`
		SMTP     SMTPConfig     `mapstructure:"smtp"`
		Share    ShareConfig    `mapstructure:"share"`
	}
)

// NewConfig loads the configuration of the current environment (ENV: DEV (default), TEST, QA, PROD).
// Values come from defaults, then config/.env.<env> if it exists, then environment variables
// prefixed by the env name (eg. DEV_SERVER_PORT).
func NewConfig() *Config {
	v := viper.New()
	setDefaults(v)

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	wd, err := os.Getwd()
	if err != nil {
		log.Fatalf("config.os.Getwd(): %v", err)
	}

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	// the serverless functions used un-prefixed SMTP_* variables
	for key, name := range map[string]string{
		"smtp.host":     "SMTP_HOST",
		"smtp.port":     "SMTP_PORT",
		"smtp.username": "SMTP_USER",
		"smtp.password": "SMTP_PASS",
	} {
		_ = v.BindEnv(key, env+"_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), name)
	}

	conf := new(Config)
	if err := v.Unmarshal(conf); err != nil {
		log.Fatalf("config.Unmarshal(): %v", err)
	}
	conf.Env = env
	conf.WorkDir = wd
	return conf
}

func setDefaults(v *viper.Viper) {
	v.SetTypeByDefaultValue(true)

	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("appName", "AI Workshop")
	v.SetDefault("build", "develop")
	v.SetDefault("secretKey", "wq8#v1k)s3nb+57=dz&uoxh2(h!x)#*c2(#yg4h^$cegm2emy")
	v.SetDefault("frontendBaseURL", "http://localhost:5173")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("defaultFromName", "AI Workshop")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("rollbarToken", "")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8000")
	v.SetDefault("server.debugHost", "0.0.0.0:4000")
	v.SetDefault("server.readTimeout", 5*time.Second)
	v.SetDefault("server.writeTimeout", 10*time.Second)
	v.SetDefault("server.shutdownTimeout", 10*time.Second)

	v.SetDefault("database.engine", "sqlite")
	v.SetDefault("database.name", "data/workshop.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.disableTLS", true)

	v.SetDefault("slides.dir", "slides")
	v.SetDefault("slides.outputDir", "public/data")
	v.SetDefault("slides.marpTheme", "default")
	v.SetDefault("slides.paginate", true)
	v.SetDefault("slides.watch", true)

	v.SetDefault("survey.backend", "file")
	v.SetDefault("survey.file", "data/surveys.json")
	v.SetDefault("survey.redisKey", "workshop:surveys")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("mail.backend", "console")
	v.SetDefault("mail.handout", "")
	v.SetDefault("smtp.host", "")
	v.SetDefault("smtp.port", "587")
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")

	v.SetDefault("share.expiration", 30*24*time.Hour)
}

func (s ServerConfig) Address() string {
	return net.JoinHostPort(s.Host, s.Port)
}

func (d DatabaseConfig) Address() string {
	return net.JoinHostPort(d.Host, d.Port)
}

func (s SMTPConfig) Address() string {
	return net.JoinHostPort(s.Host, s.Port)
}

func (c *Config) DefaultFrom() mail.Address {
	return mail.Address{Name: c.DefaultFromName, Address: c.DefaultFromEmail}
}

// Path resolves p against the working directory unless it is already absolute.
func (c *Config) Path(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.WorkDir, p)
}

func (c *Config) String() string {
	return fmt.Sprintf("%s (env: %s, build: %s, debug: %t)", c.AppName, c.Env, c.Build, c.Debug)
}
