package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/triage/internal/app"
	"github.com/ternarybob/triage/internal/common"
	"github.com/ternarybob/triage/internal/interfaces"
	"github.com/ternarybob/triage/internal/models"
)

// Exit codes: 0 full analysis, 1 hard failure, 2 partial (degraded) result.
const (
	exitOK      = 0
	exitError   = 1
	exitPartial = 2
)

// configPaths is a custom flag type that allows multiple -config flags
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	configFiles  configPaths
	showVersion  = flag.Bool("version", false, "Print version information")
	showVersionV = flag.Bool("v", false, "Print version information (shorthand)")
)

func init() {
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: triage [flags] <command>

Commands:
  analyze   Analyze a failed build command
  cache     Cache maintenance (stats, evict, clear)
  kv        Key/value store maintenance (set, get, delete)

Flags:
`)
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()

	if *showVersion || *showVersionV {
		fmt.Printf("Triage version %s\n", common.GetFullVersion())
		os.Exit(exitOK)
	}

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(exitError)
	}

	// Auto-discover config file if not specified
	if len(configFiles) == 0 {
		if _, err := os.Stat("triage.toml"); err == nil {
			configFiles = append(configFiles, "triage.toml")
		}
	}

	config, err := common.LoadFromFiles(configFiles...)
	if err != nil {
		arbor.NewLogger().Fatal().Err(err).Msg("Failed to load configuration")
		os.Exit(exitError)
	}

	logger := common.InitLogger(config)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch args[0] {
	case "analyze":
		os.Exit(runAnalyze(ctx, config, logger, args[1:]))
	case "cache":
		os.Exit(runCache(ctx, config, logger, args[1:]))
	case "kv":
		os.Exit(runKV(ctx, config, logger, args[1:]))
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q\n", args[0])
		usage()
		os.Exit(exitError)
	}
}

func runAnalyze(ctx context.Context, config *common.Config, logger arbor.ILogger, args []string) int {
	flags := flag.NewFlagSet("analyze", flag.ExitOnError)
	input := flags.String("input", "", "Path to a pre-built JSON context document (skips context assembly)")
	command := flags.String("command", "", "The failed command line")
	exitCode := flags.Int("exit-code", 1, "The failed command's exit code")
	logFile := flags.String("log-file", "", "Path to the build log (default: stdin)")
	output := flags.String("output", "", "Write the report to a file (default: stdout)")
	flags.Parse(args)

	var (
		buildCtx   models.BuildContext
		logContent string
		err        error
	)
	if *input != "" {
		buildCtx, err = readContext(*input)
		if err != nil {
			logger.Error().Err(err).Str("path", *input).Msg("Failed to read context document")
			return exitError
		}
	} else {
		logContent, err = readLog(*logFile)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to read build log")
			return exitError
		}
	}

	// The banner would corrupt a report streamed to stdout.
	if *output != "" {
		common.PrintBanner(common.GetVersion())
	}

	application, err := app.New(config, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize application")
		return exitError
	}
	defer application.Close()

	var result *app.Result
	if *input != "" {
		result, err = application.TriageContext(ctx, buildCtx)
	} else {
		result, err = application.Triage(ctx, *command, *exitCode, logContent)
	}
	if err != nil {
		logger.Error().Err(err).Msg("Triage run failed")
		return exitError
	}

	if *output != "" {
		if err := os.WriteFile(*output, []byte(result.Report), 0644); err != nil {
			logger.Error().Err(err).Str("path", *output).Msg("Failed to write report")
			return exitError
		}
		logger.Info().Str("path", *output).Msg("Report written")
	} else {
		fmt.Print(result.Report)
	}

	if result.Degraded {
		return exitPartial
	}
	return exitOK
}

func runCache(ctx context.Context, config *common.Config, logger arbor.ILogger, args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: triage cache <stats|evict|clear>")
		return exitError
	}

	application, err := app.NewWithoutProviders(config, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize application")
		return exitError
	}
	defer application.Close()

	switch args[0] {
	case "stats":
		stats, err := application.Cache.Stats(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to collect cache stats")
			return exitError
		}
		encoded, err := json.MarshalIndent(stats, "", "  ")
		if err != nil {
			logger.Error().Err(err).Msg("Failed to encode cache stats")
			return exitError
		}
		fmt.Println(string(encoded))
	case "evict":
		removed, err := application.Cache.EvictExpired(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to evict expired entries")
			return exitError
		}
		fmt.Printf("Evicted %d expired entries\n", removed)
	case "clear":
		removed, err := application.Cache.ClearAll(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to clear cache")
			return exitError
		}
		fmt.Printf("Removed %d entries\n", removed)
	default:
		fmt.Fprintf(os.Stderr, "Unknown cache command %q\n", args[0])
		return exitError
	}

	return exitOK
}

func runKV(ctx context.Context, config *common.Config, logger arbor.ILogger, args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: triage kv <set|get|delete> <key> [value] [description]")
		return exitError
	}

	application, err := app.NewWithoutProviders(config, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize application")
		return exitError
	}
	defer application.Close()

	kv := application.StorageManager.KeyValueStorage()

	switch args[0] {
	case "set":
		if len(args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: triage kv set <key> <value> [description]")
			return exitError
		}
		description := ""
		if len(args) > 3 {
			description = args[3]
		}
		if err := kv.Set(ctx, args[1], args[2], description); err != nil {
			logger.Error().Err(err).Str("key", args[1]).Msg("Failed to store key")
			return exitError
		}
		fmt.Printf("Stored %s\n", args[1])
	case "get":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "Usage: triage kv get <key>")
			return exitError
		}
		value, err := kv.Get(ctx, args[1])
		if errors.Is(err, interfaces.ErrKeyNotFound) {
			fmt.Fprintf(os.Stderr, "Key %q not found\n", args[1])
			return exitError
		}
		if err != nil {
			logger.Error().Err(err).Str("key", args[1]).Msg("Failed to read key")
			return exitError
		}
		fmt.Println(value)
	case "delete":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "Usage: triage kv delete <key>")
			return exitError
		}
		if err := kv.Delete(ctx, args[1]); err != nil {
			logger.Error().Err(err).Str("key", args[1]).Msg("Failed to delete key")
			return exitError
		}
		fmt.Printf("Deleted %s\n", args[1])
	default:
		fmt.Fprintf(os.Stderr, "Unknown kv command %q\n", args[0])
		return exitError
	}

	return exitOK
}

func readContext(path string) (models.BuildContext, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read context file %s: %w", path, err)
	}

	var buildCtx models.BuildContext
	if err := json.Unmarshal(data, &buildCtx); err != nil {
		return nil, fmt.Errorf("failed to decode context file %s: %w", path, err)
	}
	return buildCtx, nil
}

func readLog(path string) (string, error) {
	if path == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read log from stdin: %w", err)
		}
		return string(data), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read log file %s: %w", path, err)
	}
	return string(data), nil
}
