package api

import (
	"sync"
	"time"

	"github.com/Kambolo/Picksy/logging"
	"github.com/spf13/viper"
)

type Config struct {
	StorageConfig
	ServerConfig
	BrokerConfig
	RedisConfig
	RoomConfig
}

type StorageConfig struct {
	TableNameResults      string
	TableNameCategories   string
	TableNameCategorySets string
}

type ServerConfig struct {
	Port int
}

type BrokerConfig struct {
	Host     string
	Username string
	Password string
}

type RedisConfig struct {
	Addr     string
	Password string
}

type RoomConfig struct {
	IdleTimeout      time.Duration
	HeartbeatTimeout time.Duration
	JanitorInterval  time.Duration
	CatalogCacheTTL  time.Duration
	EventQueueSize   int
}

var settingsOnce sync.Once

func ReadConfig() *Config {

	var conf = &Config{
		StorageConfig: StorageConfig{
			TableNameResults:      viper.GetString("storage.TableNameResults"),
			TableNameCategories:   viper.GetString("storage.TableNameCategories"),
			TableNameCategorySets: viper.GetString("storage.TableNameCategorySets"),
		},
		ServerConfig: ServerConfig{
			Port: viper.GetInt("server.port"),
		},
		BrokerConfig: BrokerConfig{
			Host:     getStringOrDefault("broker.host", ""),
			Username: getStringOrDefault("broker.username", ""),
			Password: getStringOrDefault("broker.password", ""),
		},
		RedisConfig: RedisConfig{
			Addr:     getStringOrDefault("redis.addr", ""),
			Password: getStringOrDefault("redis.password", ""),
		},
		RoomConfig: RoomConfig{
			IdleTimeout:      time.Duration(getIntOrDefault("room.idleTimeoutMinutes", 30)) * time.Minute,
			HeartbeatTimeout: time.Duration(getIntOrDefault("room.heartbeatTimeoutSeconds", 30)) * time.Second,
			JanitorInterval:  time.Duration(getIntOrDefault("room.janitorIntervalSeconds", 60)) * time.Second,
			CatalogCacheTTL:  time.Duration(getIntOrDefault("room.catalogCacheTTLMinutes", 10)) * time.Minute,
			EventQueueSize:   getIntOrDefault("room.eventQueueSize", 32),
		},
	}

	settingsOnce.Do(func() {
		logging.Log.Print("Reading settings!")
	})

	return conf
}

func getIntOrDefault(name string, def int) int {
	if viper.IsSet(name) {
		v := viper.GetInt(name)
		logging.Log.Printf("found '%s' in viper", name)
		return v
	}
	logging.Log.Printf("could not find '%s' in viper! Returning default", name)
	return def
}

func getStringOrDefault(name string, def string) string {
	if viper.IsSet(name) {
		v := viper.GetString(name)
		logging.Log.Printf("found '%s' in viper", name)
		return v
	}
	logging.Log.Printf("could not find '%s' in viper! Returning default", name)
	return def
}
