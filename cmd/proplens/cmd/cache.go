package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dohyunlee/proplens/internal/cache"
	"github.com/dohyunlee/proplens/internal/config"
	"github.com/dohyunlee/proplens/pkg/logger"
)

var (
	cacheExpired bool
	cacheRegion  string
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the search-result cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove cached search results",
	Long: "clear removes cached 네이버부동산 search results. Without flags every " +
		"entry is deleted; --expired keeps fresh entries, --region limits the " +
		"deletion to one 시군구 code prefix.",
	RunE: runCacheClear,
}

func init() {
	cacheClearCmd.Flags().BoolVar(&cacheExpired, "expired", false, "only remove expired entries")
	cacheClearCmd.Flags().StringVar(&cacheRegion, "region", "", "only remove entries for this 시군구 code prefix")
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}

func runCacheClear(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)

	fc, err := cache.NewFileCache(cfg.Naver.CacheDir, "naver", log,
		cache.WithTTL(cfg.Naver.CacheTTL))
	if err != nil {
		return fmt.Errorf("opening cache: %w", err)
	}

	var removed int
	switch {
	case cacheExpired && cacheRegion != "":
		return fmt.Errorf("--expired and --region are mutually exclusive")
	case cacheExpired:
		removed, err = fc.ClearExpired()
	case cacheRegion != "":
		removed, err = fc.ClearRegion(cacheRegion)
	default:
		removed, err = fc.Clear()
	}
	if err != nil {
		return fmt.Errorf("clearing cache: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%d개의 캐시 항목을 삭제했습니다.\n", removed)
	return nil
}
