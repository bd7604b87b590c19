package main

import (
	"flag"
	"log"
	"os"

	"github.com/signalsfoundry/qos-dashboard/internal/client"
)

func main() {
	var cfg client.Config
	flag.StringVar(&cfg.Server, "server", "http://127.0.0.1:8080", "Dashboard server address")
	flag.StringVar(&cfg.Panel, "panel", client.PanelAll, "Panel to print: flows, decisions, topology, chat or all")
	flag.StringVar(&cfg.Say, "say", "", "Send this text to the assistant first")
	flag.Parse()

	if err := client.Run(cfg); err != nil {
		log.Printf("client failed: %v", err)
		os.Exit(1)
	}
}
