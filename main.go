// @title Picksy Room Service API
// @version 1.0
// @description Real-time room and poll coordination backend

// @securityDefinitions.apikey AdminToken
// @in header
// @name x-admin-token
package main

import (
	"github.com/Kambolo/Picksy/api"
	"github.com/Kambolo/Picksy/logging"
	"github.com/spf13/viper"
)

func main() {
	logging.BoostrapLogger()

	// Load env
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		logging.Log.Errorf("Failed to read config file: %v", err)
		panic("Failed to read config file: " + err.Error())
	}

	// Read config
	config := api.ReadConfig()

	// Start the service
	service := api.NewServer(config)
	service.Start()
}
