package configs

// Redis holds connection settings for the Redis instance backing the
// sticky decision cache and the rate-limit counters.
type Redis struct {
	Addr     string `env:"ADDRESS" envDefault:"localhost:6379"`
	Password string `env:"PASSWORD" envDefault:""`
	DB       int    `env:"DB" envDefault:"0"`
}
