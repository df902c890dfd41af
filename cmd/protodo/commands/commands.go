package commands

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/protodo/core/internal/adapters/repository"
	syncadapter "github.com/protodo/core/internal/adapters/sync"
	"github.com/protodo/core/internal/application/services"
	"github.com/protodo/core/internal/infrastructure/config"
	"github.com/protodo/core/internal/infrastructure/logger"
	"github.com/protodo/core/internal/infrastructure/server"
	"github.com/protodo/core/internal/ports"
)

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the ProTodo API server",
		Long:  "Start the ProTodo API server with all configured routes and middleware",
		Run: func(cmd *cobra.Command, args []string) {
			runServer()
		},
	}
}

// NewExportCommand creates the export command
func NewExportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all tasks to a file",
		Long:  "Export the full task collection and manual order as JSON or CSV",
		Run: func(cmd *cobra.Command, args []string) {
			format, _ := cmd.Flags().GetString("format")
			out, _ := cmd.Flags().GetString("out")
			runExport(format, out)
		},
	}
	cmd.Flags().String("format", "json", "Export format (json, csv)")
	cmd.Flags().String("out", "", "Output file (default stdout)")
	return cmd
}

// NewImportCommand creates the import command
func NewImportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import tasks from a JSON export file",
		Long:  "Replace the full task collection from a previously exported JSON payload",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			runImport(args[0])
		},
	}
}

// NewSyncCommand creates the sync command with push/pull subcommands
func NewSyncCommand() *cobra.Command {
	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Cloud sync commands",
		Long:  "Push local tasks to the cloud store or pull the remote copy down",
	}

	pushCmd := &cobra.Command{
		Use:   "push",
		Short: "Push all local tasks to the cloud store",
		Run: func(cmd *cobra.Command, args []string) {
			user, _ := cmd.Flags().GetString("user")
			runSync("push", user)
		},
	}
	pushCmd.Flags().String("user", "", "User ID to sync under (required)")

	pullCmd := &cobra.Command{
		Use:   "pull",
		Short: "Replace local tasks with the cloud copy",
		Run: func(cmd *cobra.Command, args []string) {
			user, _ := cmd.Flags().GetString("user")
			runSync("pull", user)
		},
	}
	pullCmd.Flags().String("user", "", "User ID to sync under (required)")

	syncCmd.AddCommand(pushCmd, pullCmd)
	return syncCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print ProTodo version",
		Run: func(cmd *cobra.Command, args []string) {
			cfg, err := config.Load()
			if err != nil {
				fmt.Println("ProTodo Core (unknown version)")
				return
			}
			fmt.Printf("%s v%s\n", cfg.App.Name, cfg.App.Version)
		},
	}
}

func runServer() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLogger.Close()

	repo, cleanup, err := openRepository(cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to open storage", "error", err)
	}
	defer cleanup()

	srv, err := server.New(context.Background(), cfg, repo, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize server", "error", err)
	}

	appLogger.Info("Starting ProTodo API server",
		"port", cfg.Server.Port,
		"environment", cfg.App.Environment,
	)

	if err := srv.Start(fmt.Sprintf(":%d", cfg.Server.Port)); err != nil {
		appLogger.Fatal("Server failed to start", "error", err)
	}
}

func runExport(format, out string) {
	ctx := context.Background()
	store, exportService, _, cleanup := bootstrap(ctx)
	defer cleanup()

	var (
		data []byte
		err  error
	)
	switch format {
	case "json":
		data, err = exportService.ExportJSON()
	case "csv":
		data, err = exportService.ExportCSV()
	default:
		log.Fatalf("Unknown export format %q (want json or csv)", format)
	}
	if err != nil {
		log.Fatalf("Export failed: %v", err)
	}

	if out == "" {
		os.Stdout.Write(data)
		return
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		log.Fatalf("Failed to write %s: %v", out, err)
	}
	stats := store.Stats()
	fmt.Printf("Exported %d tasks to %s\n", stats.Total, out)
}

func runImport(path string) {
	ctx := context.Background()
	_, exportService, _, cleanup := bootstrap(ctx)
	defer cleanup()

	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("Failed to read %s: %v", path, err)
	}

	count, err := exportService.ImportJSON(ctx, data)
	if err != nil {
		log.Fatalf("Import failed: %v", err)
	}
	fmt.Printf("Imported %d tasks\n", count)
}

func runSync(direction, user string) {
	if user == "" {
		log.Fatal("A user ID is required (--user)")
	}

	ctx := context.Background()
	_, _, syncService, cleanup := bootstrap(ctx)
	defer cleanup()
	if syncService == nil {
		log.Fatal("Sync is disabled (set SYNC_ENABLED=true and SYNC_BASE_URL)")
	}

	switch direction {
	case "push":
		results, err := syncService.PushAll(ctx, user)
		if err != nil {
			log.Fatalf("Push failed: %v", err)
		}
		synced := 0
		for _, r := range results {
			if r.Synced {
				synced++
			} else {
				fmt.Printf("  failed: %s (%s)\n", r.TaskID, r.Error)
			}
		}
		fmt.Printf("Pushed %d/%d tasks\n", synced, len(results))
	case "pull":
		count, err := syncService.PullReplace(ctx, user)
		if err != nil {
			log.Fatalf("Pull failed: %v", err)
		}
		fmt.Printf("Pulled %d tasks\n", count)
	}
}

// bootstrap wires the store and services for one-shot CLI commands.
func bootstrap(ctx context.Context) (*services.TaskStore, *services.ExportService, *services.SyncService, func()) {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	repo, repoCleanup, err := openRepository(cfg, appLogger)
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}

	store, err := services.NewTaskStore(ctx, repo, appLogger)
	if err != nil {
		log.Fatalf("Failed to initialize task store: %v", err)
	}
	exportService := services.NewExportService(store, appLogger)

	var syncService *services.SyncService
	if cfg.Sync.Enabled {
		client := syncadapter.NewClient(cfg.Sync.BaseURL, nil, appLogger)
		syncService = services.NewSyncService(store, client, appLogger)
	}

	cleanup := func() {
		repoCleanup()
		appLogger.Close()
	}
	return store, exportService, syncService, cleanup
}

// openRepository selects the persistence adapter from configuration.
func openRepository(cfg *config.Config, appLogger *logger.Logger) (ports.TaskRepository, func(), error) {
	switch cfg.Storage.Backend {
	case "sql":
		repo, err := repository.NewSQLRepository(cfg.Storage.Driver, cfg.Storage.DSN, appLogger)
		if err != nil {
			return nil, nil, err
		}
		return repo, func() { repo.Close() }, nil
	default:
		repo, err := repository.NewFileRepository(cfg.Storage.Dir, appLogger)
		if err != nil {
			return nil, nil, err
		}
		return repo, func() {}, nil
	}
}
