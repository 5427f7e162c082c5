package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/smartdog/pet-contribution/internal/backend"
	"github.com/smartdog/pet-contribution/internal/config"
	"github.com/smartdog/pet-contribution/internal/counter"
	"github.com/smartdog/pet-contribution/internal/logging"
	"github.com/smartdog/pet-contribution/internal/store"
)

var (
	v          = config.New()
	configFile string
	cfg        *config.Config
)

// rootCmd is the main Cobra command for the smartdog CLI.
var rootCmd = &cobra.Command{
	Use:   "smartdog",
	Short: "Contribute pet photos to the Smartdog dataset",
	Long: `Smartdog sends photos of your dog or cat, together with a few details
about the pet, to the Smartdog campaign backend. Every contribution helps
train a model that estimates a pet's age in human years.

Examples:
  smartdog roadmap
  smartdog count
  smartdog contribute --pick
  smartdog contribute --frontal rex.jpg --focinho nariz.jpg --species dog \
    --breed Labrador --sex male --age "3 anos" --coat Preto --accept-terms
  smartdog history --limit 10
  smartdog export --out ~/smartdog.zip`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(v, configFile)
		if err != nil {
			return err
		}
		cfg = loaded
		logging.Init(cfg.LogLevel)
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "Config file (default $HOME/.smartdog/config.yaml)")
	pf.String("base-url", config.DefaultBaseURL, "Campaign backend base URL")
	pf.Duration("http-timeout", config.DefaultHTTPTimeout, "Timeout of a backend request")
	pf.String("data-dir", "", "Directory for the local database and saved results")
	pf.String("theme", config.DefaultTheme, "Roadmap theme (classic, midnight, sunset, forest)")
	pf.String("variant", config.DefaultVariant, "Contribution flow (contribute, transform)")
	pf.String("log-level", "info", "Log level (debug, info, warn, error)")
	pf.Bool("json", false, "Output JSON")
	pf.Bool("ephemeral", false, "Keep the counter cache and history in memory only")

	for key, flag := range map[string]string{
		"base_url":     "base-url",
		"http_timeout": "http-timeout",
		"data_dir":     "data-dir",
		"theme":        "theme",
		"variant":      "variant",
		"log_level":    "log-level",
		"json":         "json",
		"ephemeral":    "ephemeral",
	} {
		_ = v.BindPFlag(key, pf.Lookup(flag))
	}

	rootCmd.AddCommand(roadmapCmd(), countCmd(), contributeCmd(), historyCmd(), exportCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// --- Shared helpers ---

func newClient() *backend.Client {
	return backend.NewClient(cfg.BaseURL, cfg.HTTPTimeout, backend.WithEndpoints(backend.Endpoints{
		Submit:    cfg.SubmitPath,
		Count:     cfg.CountPath,
		Increment: cfg.IncrementPath,
	}))
}

// openStore opens the local SQLite database, or an in-memory store when
// --ephemeral is set.
func openStore() (store.Local, error) {
	if v.GetBool("ephemeral") {
		return store.NewMemory(), nil
	}
	return store.OpenSQLite(cfg.DBPath())
}

func newCounter(client *backend.Client, kv store.KV) *counter.Service {
	return counter.NewService(client, kv, cfg.CounterDefault)
}

func jsonOutput(vp *viper.Viper) bool {
	return vp.GetBool("json")
}

func printJSON(val any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(val)
}

func defaultExportPath(dataDir string) string {
	return filepath.Join(dataDir, "exports", "smartdog-"+time.Now().Format("20060102-150405")+".zip")
}
