package cmd

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/javi11/rardirfs/internal/config"
	"github.com/javi11/rardirfs/internal/extractcache"
	"github.com/javi11/rardirfs/internal/rar"
	"github.com/javi11/rardirfs/internal/rarfs"
	"github.com/javi11/rardirfs/internal/slogutil"
	"github.com/javi11/rardirfs/internal/vfs"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

func init() {
	mountCmd := &cobra.Command{
		Use:   "mount",
		Short: "Mount the configured source directory with RAR archives projected as plain files",
		RunE:  runMount,
	}
	rootCmd.AddCommand(mountCmd)
}

func onlyFirstToTraversal(mode config.OnlyFirstMode) rar.TraversalMode {
	switch mode {
	case config.OnlyFirstYes:
		return rar.TraversalYes
	case config.OnlyFirstNo:
		return rar.TraversalNo
	default:
		return rar.TraversalAuto
	}
}

func runMount(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		slog.Default().Error("failed to load config", "err", err)
		return err
	}

	logger := slogutil.SetupLogRotation(cfg.Log)
	slog.SetDefault(logger)

	logger.Info("starting rardirfs",
		"source_dir", cfg.SourceDir,
		"mount_point", cfg.Fuse.MountPoint,
		"only_first", cfg.OnlyFirst,
		"enable_unrar", cfg.EnableUnrar)

	hostFs := afero.NewBasePathFs(afero.NewOsFs(), cfg.SourceDir)

	filter, err := vfs.LoadPatternFile(hostFs, cfg.FilterFile, logger)
	if err != nil {
		logger.Error("failed to load filter file", "err", err)
		return err
	}
	flatten, err := vfs.LoadPatternFile(hostFs, cfg.FlattenFile, logger)
	if err != nil {
		logger.Error("failed to load flatten file", "err", err)
		return err
	}

	preds := vfs.Predicates{Filter: filter, Flatten: flatten}
	resolver := vfs.New(hostFs, preds, onlyFirstToTraversal(cfg.OnlyFirst), cfg.EnableUnrar)

	var cache *extractcache.Manager
	if cfg.EnableUnrar {
		cache, err = extractcache.New(cfg.CacheDir, cfg.ExtractorPath)
		if err != nil {
			logger.Error("failed to initialize extraction cache", "err", err)
			return err
		}
	}

	server := rarfs.NewServer(cfg.Fuse.MountPoint, cfg.SourceDir, resolver, cache, logger, cfg.Fuse)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, unmounting")
		if err := server.Unmount(); err != nil {
			logger.Error("unmount failed", "err", err)
		}
	}()

	return server.Mount()
}
