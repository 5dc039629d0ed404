package main

import (
	"os"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/joho/godotenv"

	"github.com/sisu-network/drelay/client"
	"github.com/sisu-network/drelay/config"
	"github.com/sisu-network/drelay/core"
	"github.com/sisu-network/drelay/registry"
	"github.com/sisu-network/drelay/server"
	"github.com/sisu-network/drelay/token"
)

func initialize() *server.Server {
	err := godotenv.Load()
	if err != nil {
		panic(err)
	}

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "./drelay.toml"
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		panic(err)
	}

	reg := registry.NewRegistry(cfg)
	if err := reg.Init(); err != nil {
		panic(err)
	}

	bridgeClient := client.NewClient(cfg.BridgeServerUrl)
	go bridgeClient.TryDial()

	relay, err := core.NewRelay(cfg, reg, core.NewTokenStore(cfg),
		token.NewClient(cfg.TokenRpcUrl), bridgeClient)
	if err != nil {
		panic(err)
	}
	relay.Start()

	handler := rpc.NewServer()
	if err := handler.RegisterName("relay", server.NewApi(relay)); err != nil {
		panic(err)
	}

	return server.NewServer(handler, cfg.ServerPort)
}

func main() {
	s := initialize()
	s.Run()
}
