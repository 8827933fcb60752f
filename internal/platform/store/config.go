package store

import (
	"time"

	"heapcensus/internal/platform/config"
)

// Config selects and configures the history backends
type Config struct {
	AppName string
	PG      PGConfig
	CH      CHConfig
}

// PGConfig configures the Postgres pool and statement tracing
type PGConfig struct {
	Enabled  bool
	URL      string
	MaxConns int32
	LogSQL   bool
	Slow     time.Duration

	ConnectRetries int           // 0 means 20
	PingTimeout    time.Duration // 0 means 3s
}

// CHConfig configures the ClickHouse connection
type CHConfig struct {
	Enabled bool
	URL     string

	// reported in system.query_log client info
	ClientRole string
	ClientTag  string
}

// FromConfig reads SERVICE_PGSQL_* and SERVICE_CH_*
func FromConfig(c config.Conf, app string) Config {
	pg := c.Prefix("SERVICE_PGSQL_")
	ch := c.Prefix("SERVICE_CH_")
	return Config{
		AppName: app,
		PG: PGConfig{
			Enabled:        pg.MayBool("ENABLED", false),
			URL:            pg.MayString("DBURL", ""),
			MaxConns:       int32(pg.MayInt("MAX_CONNS", 4)),
			LogSQL:         pg.MayBool("LOG_SQL", false),
			Slow:           pg.MayDuration("SLOW", 500*time.Millisecond),
			ConnectRetries: pg.MayInt("CONNECT_RETRIES", 20),
			PingTimeout:    pg.MayDuration("PING_TIMEOUT", 3*time.Second),
		},
		CH: CHConfig{
			Enabled:    ch.MayBool("ENABLED", false),
			URL:        ch.MayString("DBURL", ""),
			ClientRole: ch.MayString("CLIENT_ROLE", app),
			ClientTag:  ch.MayString("CLIENT_TAG", "history"),
		},
	}
}
