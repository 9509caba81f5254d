// @title D21 Ballot API
// @version 1.0
// @description Multi-winner D21 polls: poll and candidate registration, ballots and voter records

// @securityDefinitions.apikey SignerToken
// @in header
// @name Authorization
package main

import (
	_ "github.com/Mickael78000/voting-dapp/docs"

	"github.com/Mickael78000/voting-dapp/api"
	"github.com/Mickael78000/voting-dapp/logging"
	"github.com/spf13/viper"
)

func main() {
	// Load env
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		logging.Log.Errorf("Failed to read config file: %v", err)
		panic("Failed to read config file: " + err.Error())
	}

	logging.BootstrapLogger(viper.GetString("log.level"))

	// Read config
	config := api.ReadConfig()

	// Start the service (inside the lambda)
	service := api.NewServer(config)
	service.Start()
}
