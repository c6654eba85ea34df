package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"nuclear/internal/config"
	"nuclear/internal/database"
	"nuclear/internal/logging"
	"nuclear/internal/repository"
	"nuclear/internal/service"
)

func main() {
	exportCmd := flag.NewFlagSet("export", flag.ExitOnError)
	importCmd := flag.NewFlagSet("import", flag.ExitOnError)
	reportCmd := flag.NewFlagSet("report", flag.ExitOnError)

	exportOutput := exportCmd.String("output", "", "Output file path (default: backup_YYYYMMDD_HHMMSS.json)")

	importInput := importCmd.String("input", "", "Input file path (required)")
	importClear := importCmd.Bool("clear", false, "Clear existing data before import (WARNING: destructive)")
	importYes := importCmd.Bool("yes", false, "Skip the confirmation prompt for -clear")

	reportBlock := reportCmd.String("block", "", "Block id (required)")
	reportOutput := reportCmd.String("output", "", "Output file path (default: points_<block>_<date>.xlsx)")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	log, err := logging.New(cfg.LogLevel, cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		log.Fatal("failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	if err := db.RunMigrations(ctx, log); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	switch os.Args[1] {
	case "export":
		exportCmd.Parse(os.Args[2:])
		err = handleExport(ctx, service.NewBackupService(db, log), *exportOutput, log)

	case "import":
		importCmd.Parse(os.Args[2:])
		if *importInput == "" {
			fmt.Println("Error: -input flag is required")
			importCmd.PrintDefaults()
			os.Exit(1)
		}
		err = handleImport(ctx, service.NewBackupService(db, log), *importInput, *importClear, *importYes, log)

	case "report":
		reportCmd.Parse(os.Args[2:])
		if *reportBlock == "" {
			fmt.Println("Error: -block flag is required")
			reportCmd.PrintDefaults()
			os.Exit(1)
		}
		err = handleReport(ctx, service.NewReportService(repository.New(db), log), *reportBlock, *reportOutput, log)

	default:
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		log.Fatal(os.Args[1]+" failed", zap.Error(err))
	}
}

func handleExport(ctx context.Context, backupService *service.BackupService, outputPath string, log *zap.Logger) error {
	if outputPath == "" {
		outputPath = fmt.Sprintf("backup_%s.json", time.Now().Format("20060102_150405"))
	}
	if err := ensureDir(outputPath); err != nil {
		return err
	}

	if err := backupService.Export(ctx, outputPath); err != nil {
		return err
	}

	if info, err := os.Stat(outputPath); err == nil {
		log.Info("export complete", zap.String("path", outputPath), zap.Float64("size_mb", float64(info.Size())/1024/1024))
	}
	return nil
}

func handleImport(ctx context.Context, backupService *service.BackupService, inputPath string, clearData, yes bool, log *zap.Logger) error {
	if _, err := os.Stat(inputPath); os.IsNotExist(err) {
		return fmt.Errorf("input file does not exist: %s", inputPath)
	}

	if clearData && !yes {
		fmt.Print("WARNING: This will delete all existing data. Type 'yes' to confirm: ")
		var confirmation string
		fmt.Scanln(&confirmation)
		if confirmation != "yes" {
			log.Info("import cancelled")
			return nil
		}
	}

	return backupService.Import(ctx, inputPath, clearData)
}

func handleReport(ctx context.Context, reports *service.ReportService, blockID, outputPath string, log *zap.Logger) error {
	if outputPath == "" {
		outputPath = fmt.Sprintf("points_%s_%s.xlsx", blockID, time.Now().Format("2006-01-02"))
	}
	if err := ensureDir(outputPath); err != nil {
		return err
	}

	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	if _, err := reports.WritePointsLedger(ctx, blockID, file); err != nil {
		os.Remove(outputPath)
		return err
	}
	log.Info("report written", zap.String("path", outputPath))
	return nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return nil
}

func printUsage() {
	fmt.Println("Nuclear database tool")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  backup export [-output <file>]")
	fmt.Println("  backup import -input <file> [-clear] [-yes]")
	fmt.Println("  backup report -block <id> [-output <file>]")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  DATABASE_TYPE   sqlite (default), postgres, pgx or mysql")
	fmt.Println("  DB_PATH         SQLite file path (default ./nuclear.db)")
	fmt.Println("  DATABASE_URL    connection string for postgres, pgx and mysql")
}
