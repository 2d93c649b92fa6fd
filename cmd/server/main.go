package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang/glog"

	"github.com/Tyrowin/gorelay/internal/server"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "", "path to the JSON config file {port, key, cert, passwordHash?}")
	hashSecret := flag.String("hash-secret", "", "print the passwordHash for this secret and exit")
	flag.Parse()
	defer glog.Flush()

	if *hashSecret != "" {
		fmt.Println(server.HashSecret(*hashSecret))
		return
	}

	config := server.NewConfigFromEnv()
	if *configPath != "" {
		loaded, err := server.LoadConfigFile(*configPath)
		if err != nil {
			glog.Fatalf("Invalid configuration: %v", err)
		}
		config = loaded
	}

	tlsConfig, err := server.LoadTLSConfig(*config)
	if err != nil {
		glog.Fatalf("Invalid transport credentials: %v", err)
	}

	hub := server.NewHub(*config)
	httpServer := server.CreateServer(config.Addr(), server.SetupRoutes(hub), tlsConfig)

	glog.Infof("Starting relay (auth required: %t)", hub.AuthRequired())

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.StartServer(httpServer)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			glog.Errorf("Server stopped: %v", err)
			glog.Flush()
			os.Exit(1)
		}
	case sig := <-stop:
		glog.Infof("Received %s, shutting down", sig)
		if err := server.ShutdownServer(httpServer, shutdownTimeout); err != nil {
			glog.Warningf("HTTP shutdown: %v", err)
		}
		if err := hub.Shutdown(shutdownTimeout); err != nil {
			glog.Warningf("Hub shutdown: %v", err)
		}
	}
}
