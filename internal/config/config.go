package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	GeneralParams GeneralParams
	MainDBParams  MainDBParams
	CacheParams   CacheParams
	S3Params      S3Params
	OIDCParams    OIDCParams
	EmailParams   EmailParams
	PaymentParams PaymentParams
}

type GeneralParams struct {
	Env             string
	SecretKey       string
	HTTPaddress     string
	BaseURL         string
	AdminSecret     string
	AdminSecretHash string
	CronSecret      string
	TrustCronHeader bool
}

type MainDBParams struct {
	Username string
	Password string
	Name     string
	Port     int
	Host     string
	Timeout  int
}

type CacheParams struct {
	Host     string
	Password string
}

type S3Params struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
	BucketName      string
}

type OIDCParams struct {
	ProviderURL  string
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// Enabled reports whether any OIDC setting was provided. Leaving the
// whole section empty runs the server with sign-in disabled.
func (o OIDCParams) Enabled() bool {
	return o.ProviderURL != "" || o.ClientID != "" || o.ClientSecret != "" || o.RedirectURL != ""
}

type EmailParams struct {
	ResendAPIKey   string
	SendGridAPIKey string
	SMTPHost       string
	SMTPPort       int
	SMTPUsername   string
	SMTPPassword   string
	FromAddress    string
}

type PaymentParams struct {
	APIKey           string
	StoreID          string
	WebhookSecret    string
	ProPlanProductID string
	RefillProductID  string
}

type ConfigManager struct {
	v      *viper.Viper
	config *Config
}

// NewConfigManager creates new config manager that handles
// all viper config options and loads a config from yaml
func NewConfigManager(configPath string) (*ConfigManager, error) {
	v := viper.New()

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	v.AutomaticEnv()
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cm := &ConfigManager{v: v}

	if err := cm.loadConfig(); err != nil {
		return nil, err
	}

	return cm, nil
}

// Extracting data from yaml file and loading into Config
func (cm *ConfigManager) loadConfig() error {
	cm.config = &Config{
		GeneralParams: GeneralParams{
			Env:             cm.v.GetString("general_params.env"),
			SecretKey:       cm.v.GetString("general_params.secret_key"),
			HTTPaddress:     cm.v.GetString("general_params.http_server_address"),
			BaseURL:         cm.v.GetString("general_params.base_url"),
			AdminSecret:     cm.v.GetString("general_params.admin_secret"),
			AdminSecretHash: cm.v.GetString("general_params.admin_secret_hash"),
			CronSecret:      cm.v.GetString("general_params.cron_secret"),
			TrustCronHeader: cm.v.GetBool("general_params.trust_cron_header"),
		},
		MainDBParams: MainDBParams{
			Username: cm.v.GetString("main_db_params.db_username"),
			Password: cm.v.GetString("main_db_params.db_password"),
			Name:     cm.v.GetString("main_db_params.db_name"),
			Port:     cm.v.GetInt("main_db_params.db_port"),
			Host:     cm.v.GetString("main_db_params.db_host"),
			Timeout:  cm.v.GetInt("main_db_params.db_timeout"),
		},
		CacheParams: CacheParams{
			Host:     cm.v.GetString("cache_params.db_host"),
			Password: cm.v.GetString("cache_params.db_password"),
		},
		S3Params: S3Params{
			Endpoint:        cm.v.GetString("s3_params.endpoint"),
			AccessKeyID:     cm.v.GetString("s3_params.access_key_id"),
			SecretAccessKey: cm.v.GetString("s3_params.secret_access_key"),
			UseSSL:          cm.v.GetBool("s3_params.use_ssl"),
			BucketName:      cm.v.GetString("s3_params.bucket_name"),
		},
		OIDCParams: OIDCParams{
			ProviderURL:  cm.v.GetString("oidc_params.provider_url"),
			ClientID:     cm.v.GetString("oidc_params.client_id"),
			ClientSecret: cm.v.GetString("oidc_params.client_secret"),
			RedirectURL:  cm.v.GetString("oidc_params.redirect_url"),
		},
		EmailParams: EmailParams{
			ResendAPIKey:   cm.v.GetString("email_params.resend_api_key"),
			SendGridAPIKey: cm.v.GetString("email_params.sendgrid_api_key"),
			SMTPHost:       cm.v.GetString("email_params.smtp_host"),
			SMTPPort:       cm.v.GetInt("email_params.smtp_port"),
			SMTPUsername:   cm.v.GetString("email_params.smtp_username"),
			SMTPPassword:   cm.v.GetString("email_params.smtp_password"),
			FromAddress:    cm.v.GetString("email_params.from_address"),
		},
		PaymentParams: PaymentParams{
			APIKey:           cm.v.GetString("payment_params.api_key"),
			StoreID:          cm.v.GetString("payment_params.store_id"),
			WebhookSecret:    cm.v.GetString("payment_params.webhook_secret"),
			ProPlanProductID: cm.v.GetString("payment_params.pro_plan_product_id"),
			RefillProductID:  cm.v.GetString("payment_params.refill_product_id"),
		},
	}
	return nil
}

// Geting config instance
func (cm *ConfigManager) GetConfig() *Config {
	return cm.config
}

// Compiling a string to connect to main db
func (db *MainDBParams) GetDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?connect_timeout=%d&sslmode=disable",
		db.Username,
		db.Password,
		db.Host,
		db.Port,
		db.Name,
		db.Timeout,
	)
}

func (c *Config) Validate() error {
	// Checking secret key
	if c.GeneralParams.SecretKey == "" {
		return fmt.Errorf("parameter secret_key is required")
	}

	// Checking http address
	if c.GeneralParams.HTTPaddress == "" {
		return fmt.Errorf("parameter http_server_address is requred")
	}

	if c.GeneralParams.BaseURL == "" {
		return fmt.Errorf("parameter base_url is required")
	}

	// Checking out enviroment variable
	switch c.GeneralParams.Env {
	case "dev", "prod", "test":
	default:
		return fmt.Errorf("env parameter is invalid: %s. try dev/prod/test instead", c.GeneralParams.Env)
	}

	// One of admin_secret or admin_secret_hash must be set
	if c.GeneralParams.AdminSecret == "" && c.GeneralParams.AdminSecretHash == "" {
		return fmt.Errorf("one of admin_secret or admin_secret_hash is required")
	}

	// Checking MainDbparams
	for name, mainDbConf := range map[string]MainDBParams{
		"MainDB": c.MainDBParams,
	} {
		if mainDbConf.Host == "" {
			return fmt.Errorf("%s: host is required", name)
		}
		if mainDbConf.Username == "" {
			return fmt.Errorf("%s: username is required", name)
		}
		if mainDbConf.Password == "" {
			return fmt.Errorf("%s: password is requred", name)
		}
		if mainDbConf.Port != 5432 {
			return fmt.Errorf("%s: port is invalid", name)
		}
	}

	// Checking cache params
	if c.CacheParams.Host == "" {
		return fmt.Errorf("Cache: host is required")
	}

	// Checking S3 params
	if c.S3Params.Endpoint == "" {
		return fmt.Errorf("S3 endpoint is required")
	}
	if c.S3Params.AccessKeyID == "" {
		return fmt.Errorf("S3 access_key id is required")
	}
	if c.S3Params.SecretAccessKey == "" {
		return fmt.Errorf("S3 secret_access_key is required")
	}
	if c.S3Params.BucketName == "" {
		return fmt.Errorf("S3 bucket name is required")
	}

	// Checking OIDC params. An entirely empty section disables
	// sign-in; a partially filled one is a broken deployment.
	if c.OIDCParams.Enabled() {
		if c.OIDCParams.ProviderURL == "" {
			return fmt.Errorf("OIDC provider_url is required")
		}
		if c.OIDCParams.ClientID == "" {
			return fmt.Errorf("OIDC client_id is required")
		}
		if c.OIDCParams.RedirectURL == "" {
			return fmt.Errorf("OIDC redirect_url is required")
		}
	}

	// Checking payment params
	if c.PaymentParams.WebhookSecret == "" {
		return fmt.Errorf("payment webhook_secret is required")
	}
	if c.PaymentParams.ProPlanProductID == "" {
		return fmt.Errorf("payment pro_plan_product_id is required")
	}

	return nil
}
