package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/WizardWorks-AntagningsProv/QuarterSpiralUI/internal/bootstrap"
	"github.com/WizardWorks-AntagningsProv/QuarterSpiralUI/internal/middleware"
)

func main() {
	issueToken := flag.String("issue-token", "", "print a write token for this subject (uses JWT_SECRET) and exit")
	tokenTTL := flag.Duration("token-ttl", 30*24*time.Hour, "lifetime of a token printed by -issue-token; 0 never expires")
	flag.Parse()

	if *issueToken != "" {
		cfg, err := bootstrap.LoadConfig()
		if err != nil {
			logrus.Fatalf("Failed to load config: %v", err)
		}
		token, err := middleware.IssueToken(cfg.JWTSecret, *issueToken, *tokenTTL)
		if err != nil {
			logrus.Fatalf("Failed to issue token: %v", err)
		}
		fmt.Println(token)
		return
	}

	app, err := bootstrap.NewApp()
	if err != nil {
		logrus.Fatalf("Failed to initialize application: %v", err)
	}
	app.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutdown signal received...")

	app.Shutdown()
}
