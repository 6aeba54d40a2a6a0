package main

import (
	"flag"
	"fmt"
	"os"

	"chainci/internal/config"
	"chainci/internal/core"
	"chainci/internal/logging"
	"chainci/internal/server"
)

func main() {
	confFile := flag.String("config", "", "path to config file")
	flag.Parse()

	conf := config.Default()
	if *confFile != "" {
		var err error
		conf, err = config.New(*confFile)
		if err != nil {
			fmt.Fprintln(os.Stderr, "chainci-server:", err)
			os.Exit(1)
		}
	}
	logging.Setup(conf.Logging.LogLevel)

	runner, err := core.New(conf)
	if err != nil {
		fmt.Fprintln(os.Stderr, "chainci-server:", err)
		os.Exit(1)
	}
	defer runner.Close()

	srv := server.New(runner)
	if err := srv.ListenAndServe(conf.Bind); err != nil {
		fmt.Fprintln(os.Stderr, "chainci-server:", err)
		os.Exit(1)
	}
}
