package api

import (
	"sync"
	"time"

	"github.com/Mickael78000/voting-dapp/logging"
	"github.com/spf13/viper"
)

const (
	DriverDynamo = "dynamo"
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

type Config struct {
	StorageConfig
	ServerConfig
	AuthConfig
	BallotConfig
	EventsConfig
}

type StorageConfig struct {
	Driver         string
	TableName      string
	DynamoEndpoint string
	SQLiteDSN      string
}

type ServerConfig struct {
	Port    int
	GinMode string
}

type AuthConfig struct {
	SignerSecret string
}

type BallotConfig struct {
	StrictCandidateNames bool
}

type EventsConfig struct {
	NatsURL        string
	SubjectPrefix  string
	MaxReconnects  int
	ReconnectWait  time.Duration
	ConnectTimeout time.Duration
}

var settingsOnce sync.Once

func ReadConfig() *Config {

	var conf = &Config{
		StorageConfig: StorageConfig{
			Driver:         getStringOrDefault("storage.driver", DriverDynamo),
			TableName:      getStringOrDefault("storage.tableName", "Records"),
			DynamoEndpoint: getStringOrDefault("storage.dynamoEndpoint", ""),
			SQLiteDSN:      getStringOrDefault("storage.sqliteDsn", "file:records.db"),
		},
		ServerConfig: ServerConfig{
			Port:    getIntOrDefault("server.port", 8080),
			GinMode: getStringOrDefault("server.ginMode", "release"),
		},
		AuthConfig: AuthConfig{
			SignerSecret: getString("auth.signerSecret"),
		},
		BallotConfig: BallotConfig{
			StrictCandidateNames: getBoolOrDefault("ballot.strictCandidateNames", true),
		},
		EventsConfig: EventsConfig{
			NatsURL:        getStringOrDefault("events.natsUrl", ""),
			SubjectPrefix:  getStringOrDefault("events.subjectPrefix", "d21"),
			MaxReconnects:  getIntOrDefault("events.maxReconnects", 10),
			ReconnectWait:  time.Duration(getIntOrDefault("events.reconnectWaitSeconds", 2)) * time.Second,
			ConnectTimeout: time.Duration(getIntOrDefault("events.connectTimeoutSeconds", 5)) * time.Second,
		},
	}

	settingsOnce.Do(func() {
		logging.Log.Print("Reading settings!")
	})

	return conf
}

func getString(name string) string {
	if viper.IsSet(name) {
		v := viper.GetString(name)
		logging.Log.Printf("found '%s' in viper", name)
		return v
	}
	logging.Log.Fatalf("required environment variable '%s' is missing", name)
	return ""
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

func getBoolOrDefault(name string, def bool) bool {
	if viper.IsSet(name) {
		v := viper.GetBool(name)
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
