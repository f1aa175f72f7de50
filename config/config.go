package config

type AppConfig struct {
	APIPort     string `env:"PORT" envDefault:"5001"`
	APIKey      string `env:"API_KEY,required"`
	RabbitMQURL string `env:"RABBITMQ_URL"`
}

type DatabaseConfig struct {
	Host            string `env:"ORDERSTACK_POSTGRES_HOST,required"`
	Port            string `env:"ORDERSTACK_POSTGRES_PORT,required"`
	User            string `env:"ORDERSTACK_POSTGRES_USER,required"`
	DBName          string `env:"ORDERSTACK_POSTGRES_DB_NAME,required"`
	Password        string `env:"ORDERSTACK_POSTGRES_PASSWORD,required"`
	MaxConn         int    `env:"ORDERSTACK_POSTGRES_DB_MAX_CONN"`
	MaxIdleConn     int    `env:"ORDERSTACK_POSTGRES_DB_MAX_IDLE_CONN"`
	ConnMaxLifetime int    `env:"ORDERSTACK_POSTGRES_DB_CONN_MAX_LIFETIME"`
	SSLMode         string `env:"ORDERSTACK_POSTGRES_SSL_MODE" envDefault:"require"`
}

type IMAPConfig struct {
	Host     string `env:"IMAP_HOST,required"`
	Port     int    `env:"IMAP_PORT" envDefault:"993"`
	TLS      bool   `env:"IMAP_TLS" envDefault:"true"`
	Username string `env:"IMAP_USERNAME,required"`
	Password string `env:"IMAP_PASSWORD,required"`
	Mailbox  string `env:"IMAP_MAILBOX" envDefault:"INBOX"`
}

type StorageConfig struct {
	// WorkDir holds per-job working folders, DownloadsDir the finished
	// archives served over /downloads.
	WorkDir          string `env:"STORAGE_WORK_DIR" envDefault:"downloads"`
	DownloadsDir     string `env:"STORAGE_DOWNLOADS_DIR" envDefault:"public/downloads"`
	ArchiveRetention int    `env:"STORAGE_ARCHIVE_RETENTION_DAYS" envDefault:"14"`
}

type R2StorageConfig struct {
	AccountID       string `env:"CLOUDFLARE_R2_ACCOUNT_ID"`
	AccessKeyID     string `env:"CLOUDFLARE_R2_ACCESS_KEY_ID"`
	AccessKeySecret string `env:"CLOUDFLARE_R2_ACCESS_KEY_SECRET"`
	ArchiveBucket   string `env:"BUCKET_NAME_ORDER_ARCHIVE" envDefault:"order-archives"`
	CDNDomain       string `env:"CLOUDFLARE_R2_CDN_DOMAIN"`
}

type CronConfig struct {
	// six-field cron expression, seconds first
	PurgeArchivesSchedule string `env:"CRON_SCHEDULE_PURGE_ARCHIVES" envDefault:"0 0 3 * * *"`
}
