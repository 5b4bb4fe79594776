package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	_ "time/tzdata" // Asia/Tokyo must resolve on hosts without a zoneinfo database

	"github.com/cppla/viewlog/config"
	"github.com/cppla/viewlog/models"
	"github.com/cppla/viewlog/report"
	"github.com/cppla/viewlog/routes"
	"github.com/cppla/viewlog/utils"
)

func main() {
	hashPassword := flag.String("hash-password", "", "print the bcrypt hash for ADMIN_PASSWORD_HASH and exit")
	flag.Parse()
	if *hashPassword != "" {
		if err := printPasswordHash(os.Stdout, *hashPassword); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer func() { _ = utils.Logger.Sync() }()

	db := config.InitDatabase(&models.ViewRecord{})
	reports := report.NewGenerator(report.Options{
		FontPath: cfg.PDFFontPath,
		Logger:   utils.Logger,
	})

	r := routes.SetupRouter(db, reports)

	utils.Sugar.Infof("Starting server on port %s (graceful), timezone %s", cfg.AppPort, config.Location())
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}

func printPasswordHash(w io.Writer, password string) error {
	hash, err := utils.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	_, err = fmt.Fprintln(w, hash)
	return err
}
