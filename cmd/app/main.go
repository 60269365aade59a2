// entry point to app :)
package main

import (
	"github.com/ds124wfegd/coloringbook/config"
	"github.com/ds124wfegd/coloringbook/internal/appServer"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

func main() {
	logrus.SetFormatter(new(logrus.JSONFormatter))

	configPath := pflag.StringP("config", "c", "./config", "config directory or .yaml file")
	pflag.Parse()

	viperInstance, err := config.LoadConfig(*configPath)
	if err != nil {
		logrus.Fatalf("Cannot load config. Error: {%s}", err.Error())
	}

	cfg, err := config.ParseConfig(viperInstance)
	if err != nil {
		logrus.Fatalf("Cannot parse config. Error: {%s}", err.Error())
	}

	appServer.NewServer(cfg)
}
