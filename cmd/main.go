package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/airbusgeo/godal"
	"github.com/common-nighthawk/go-figure"
	bannercolor "github.com/fatih/color"
	"github.com/forest-guardian/sentinel-prep/internal/log"
	"github.com/forest-guardian/sentinel-prep/internal/notification"
	"github.com/forest-guardian/sentinel-prep/internal/properties"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	verbose  bool
	noBanner bool
	notifier *notification.Discord
)

var rootCmd = &cobra.Command{
	Use:   "sentinel-prep",
	Short: "Sentinel-1/2 preprocessing and point extraction",
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	SilenceUsage:  true,
	SilenceErrors: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := properties.Load(); err != nil {
			return fmt.Errorf("load .env: %w", err)
		}
		if err := log.Setup(properties.LogLevel(), verbose); err != nil {
			return fmt.Errorf("setup logging: %w", err)
		}
		if !noBanner {
			printBanner()
		}
		notifier = notification.FromProperties()
		godal.RegisterAll()
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		log.Sync()
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolVar(&verbose, "verbose", false, "development logging")
	flags.BoolVar(&noBanner, "no-banner", false, "do not print the banner")
	flags.String("log-level", properties.DefaultLogLevel, "debug, info, warn or error")
	flags.String("root", "", "root path for relative inputs and the data folder")
	viper.BindPFlag(properties.KeyLogLevel, flags.Lookup("log-level"))
	viper.BindPFlag(properties.KeyRootPath, flags.Lookup("root"))

	rootCmd.AddCommand(georefCmd, compositeCmd, extractCmd, cropsCmd)
}

func printBanner() {
	bannercolor.Cyan(figure.NewFigure("Sentinel", "isometric1", true).String())
	bannercolor.Cyan(figure.NewFigure("Prep", "isometric1", true).String())
	fmt.Println()
}

// announce sends a run summary; a failed send is logged but never fails the run.
func announce(ctx context.Context, send func(context.Context, string, string) error, run, summary string) {
	if err := send(ctx, run, summary); err != nil {
		log.Warn("failed to send notification", zap.String("run", run), zap.Error(err))
	}
}

func run(ctx context.Context) (code int) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			stack := debug.Stack()
			log.Error("panic", zap.Any("panic", r), zap.ByteString("stack", stack))
			bannercolor.Red("PANIC: %v", r)
			msg := fmt.Errorf("sentinel-prep panic: %v\n\nStack trace:\n%s", r, stack)
			if err := notifier.Error(context.Background(), "sentinel-prep", msg); err != nil {
				log.Warn("failed to send notification", zap.Error(err))
			}
			code = 2
		}
	}()

	cmd, err := rootCmd.ExecuteContextC(ctx)
	if err != nil {
		log.Error("command failed", zap.String("command", cmd.Name()), zap.Error(err))
		bannercolor.Red("Error: %s", err)
		if nerr := notifier.Error(context.Background(), cmd.Name(), err); nerr != nil {
			log.Warn("failed to send notification", zap.Error(nerr))
		}
		return 1
	}
	log.Debug("command finished", zap.String("command", cmd.Name()), zap.Duration("took", time.Since(start)))
	return 0
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx)
	stop()
	log.Sync()
	os.Exit(code)
}
