package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/thucvatbm/species-catalog/config"
	"github.com/thucvatbm/species-catalog/database"
	"github.com/thucvatbm/species-catalog/logger"
	"github.com/thucvatbm/species-catalog/storage"
	"github.com/thucvatbm/species-catalog/web"
	"github.com/thucvatbm/species-catalog/web/service"
)

func initDB() error {
	dbConfig, err := config.GetDatabaseConfig()
	if err != nil {
		return err
	}
	return database.InitDB(dbConfig)
}

func runWebServer() {
	log.Printf("%v %v", config.GetName(), config.GetVersion())

	level, err := logger.LevelFromConfig(config.GetLogLevel())
	if err != nil {
		log.Fatal(err)
	}
	logger.InitLogger(level)
	defer logger.CloseLogger()

	if err := initDB(); err != nil {
		log.Fatal(err)
	}
	defer database.CloseDB()

	accountService := service.AccountService{}
	username := config.GetAdminUsername()
	password, err := accountService.EnsureAdmin(username, config.GetAdminPassword())
	if err != nil {
		log.Fatal("bootstrap administrator: ", err)
	}
	if password != "" {
		logger.Warningf("ADMIN_PASSWORD is not set, generated password for %q: %s", username, password)
	}
	if config.IsDefaultSecretKey() {
		logger.Warning("SECRET_KEY is not set, sessions are signed with the development key")
	}

	store, err := storage.New(context.Background())
	if err != nil {
		log.Fatal(err)
	}

	server := web.NewServer(store)
	if err := server.Start(); err != nil {
		log.Println(err)
		return
	}

	sigCh := make(chan os.Signal, 1)
	// Trap shutdown signals
	signal.Notify(sigCh, syscall.SIGHUP, syscall.SIGTERM, os.Interrupt)
	for {
		sig := <-sigCh

		switch sig {
		case syscall.SIGHUP:
			logger.Info("Received SIGHUP signal. Restarting server...")
			if err := server.Stop(); err != nil {
				logger.Warning("stop server err:", err)
			}
			server = web.NewServer(store)
			if err := server.Start(); err != nil {
				log.Println(err)
				return
			}
		default:
			logger.Info("Shutting down server...")
			if err := server.Stop(); err != nil {
				logger.Warning("stop server err:", err)
			}
			return
		}
	}
}

func showAdmin() {
	if err := initDB(); err != nil {
		fmt.Println(err)
		return
	}
	accountService := service.AccountService{}
	account, err := accountService.GetFirst()
	if err != nil {
		fmt.Println("get administrator failed, error info:", err)
		return
	}
	fmt.Println("current catalog settings as follows:")
	fmt.Println("username:", account.Username)
	fmt.Println("port:", config.GetPort())
	fmt.Println("upload backend:", config.GetUploadBackend())
}

func updatePassword(username string, password string) {
	if err := initDB(); err != nil {
		fmt.Println(err)
		return
	}
	accountService := service.AccountService{}
	if err := accountService.UpdatePassword(username, password); err != nil {
		fmt.Println("update password failed:", err)
		return
	}
	fmt.Println("update password success")
}

func exportCSV(query string, field string) error {
	if err := initDB(); err != nil {
		return err
	}
	catalogService := service.CatalogService{}
	return catalogService.WriteCSV(context.Background(), os.Stdout, service.NewFilter(query, field))
}

func main() {
	if err := config.LoadEnvFile(".env"); err != nil {
		fmt.Println("load .env failed:", err)
		os.Exit(1)
	}

	var rootCmd = &cobra.Command{
		Use: config.GetName(),
	}

	var runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run the web server",
		Run: func(cmd *cobra.Command, args []string) {
			runWebServer()
		},
	}

	var adminCmd = &cobra.Command{
		Use:   "admin",
		Short: "Manage the administrator account",
	}

	var showCmd = &cobra.Command{
		Use:   "show",
		Short: "Show the administrator and server settings",
		Run: func(cmd *cobra.Command, args []string) {
			showAdmin()
		},
	}

	var passwordCmd = &cobra.Command{
		Use:   "password",
		Short: "Change an administrator password",
		Run: func(cmd *cobra.Command, args []string) {
			username, _ := cmd.Flags().GetString("username")
			password, _ := cmd.Flags().GetString("password")
			updatePassword(username, password)
		},
	}

	passwordCmd.Flags().String("username", config.GetAdminUsername(), "administrator username")
	passwordCmd.Flags().String("password", "", "new password")
	_ = passwordCmd.MarkFlagRequired("password")

	var exportCmd = &cobra.Command{
		Use:   "export",
		Short: "Write the catalog as CSV to stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			query, _ := cmd.Flags().GetString("q")
			field, _ := cmd.Flags().GetString("field")
			return exportCSV(query, field)
		},
	}

	exportCmd.Flags().String("q", "", "substring to search for")
	exportCmd.Flags().String("field", string(service.FieldCommonName), "common_name, scientific_name or family")

	adminCmd.AddCommand(showCmd, passwordCmd)

	rootCmd.AddCommand(runCmd, adminCmd, exportCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
