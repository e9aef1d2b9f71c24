package main

import (
	"fmt"
	"log"
	"os"

	"github.com/ironsheep/xray-registration/internal/config"
	"github.com/ironsheep/xray-registration/internal/detection"
	"github.com/ironsheep/xray-registration/internal/server"
	"github.com/ironsheep/xray-registration/internal/store"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Handle --version and -v flags
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("registration-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			fmt.Println("registration-mcp - MCP server for X-ray drill registration")
			fmt.Println()
			fmt.Println("Usage: registration-mcp [options]")
			fmt.Println()
			fmt.Println("Options:")
			fmt.Println("  --version, -v    Print version information")
			fmt.Println("  --help, -h       Print this help message")
			fmt.Println()
			fmt.Println("Environment variables:")
			fmt.Printf("  %s=debug    Enable debug logging\n", config.LogLevelEnv)
			fmt.Printf("  %s=PATH        YAML configuration file\n", config.PathEnv)
			fmt.Println()
			fmt.Println("This server communicates via MCP protocol over stdin/stdout.")
			fmt.Println("Configure it in your MCP client (e.g., Claude Desktop).")
			return
		}
	}

	// Configure logging to stderr (stdout is for MCP protocol)
	log.SetOutput(os.Stderr)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	cfg, err := config.LoadConfig(os.Getenv(config.PathEnv))
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}
	if cfg.Logging.Debug {
		log.Printf("Registration MCP Server v%s (built %s, commit %s)", Version, BuildTime, GitCommit)
	}

	extractor, err := detection.New(cfg.Extraction.Backend, cfg.DetectionOptions())
	if err != nil {
		log.Fatalf("Extractor error: %v", err)
	}

	var st *store.Store
	if cfg.Output.Database != "" {
		st, err = store.Open(cfg.Output.Database)
		if err != nil {
			log.Fatalf("Database error: %v", err)
		}
		defer st.Close()
	}

	server.Version = Version
	srv := server.New(cfg, extractor, st)
	if err := srv.Run(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
