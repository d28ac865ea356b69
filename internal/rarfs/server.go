package rarfs

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"time"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/javi11/rardirfs/internal/config"
	"github.com/javi11/rardirfs/internal/extractcache"
	"github.com/javi11/rardirfs/internal/vfs"
)

// Server manages the FUSE mount of the projected, read-only tree.
type Server struct {
	mountPoint string
	sourceDir  string
	resolver   *vfs.Resolver
	cache      *extractcache.Manager
	logger     *slog.Logger
	config     config.FuseConfig
	server     *fuse.Server
}

// NewServer creates a FUSE server over resolver, using cache (which may
// be nil when unrar extraction is disabled) to serve compressed entries.
// sourceDir is the real host directory being projected, reported back to
// Statfs callers.
func NewServer(mountPoint, sourceDir string, resolver *vfs.Resolver, cache *extractcache.Manager, logger *slog.Logger, cfg config.FuseConfig) *Server {
	return &Server{
		mountPoint: mountPoint,
		sourceDir:  sourceDir,
		resolver:   resolver,
		cache:      cache,
		logger:     logger,
		config:     cfg,
	}
}

func getIDFromEnv(key string, defaultID int) int {
	if val := os.Getenv(key); val != "" {
		if id, err := strconv.Atoi(val); err == nil {
			return id
		}
	}
	return defaultID
}

// Mount mounts the filesystem and blocks serving requests until unmount.
func (s *Server) Mount() error {
	s.CleanupMount()

	uid := uint32(getIDFromEnv("PUID", 1000))
	gid := uint32(getIDFromEnv("PGID", 1000))

	root := NewRoot(s.resolver, s.cache, s.logger, uid, gid, s.sourceDir)

	attrTimeout := time.Duration(s.config.AttrTimeoutSeconds * float64(time.Second))
	entryTimeout := time.Duration(s.config.EntryTimeoutSeconds * float64(time.Second))
	if attrTimeout == 0 {
		attrTimeout = time.Second
	}
	if entryTimeout == 0 {
		entryTimeout = time.Second
	}

	opts := &fs.Options{
		MountOptions: fuse.MountOptions{
			AllowOther: s.config.AllowOther,
			Name:       "rardirfs",
			Debug:      s.config.Debug,
		},
		EntryTimeout:    &entryTimeout,
		AttrTimeout:     &attrTimeout,
		NegativeTimeout: &entryTimeout,
	}

	server, err := fs.Mount(s.mountPoint, root, opts)
	if err != nil {
		return fmt.Errorf("failed to mount FUSE filesystem: %w", err)
	}

	s.server = server
	s.logger.Info("FUSE filesystem mounted", "mountpoint", s.mountPoint)

	s.server.Wait()
	return nil
}

// Unmount gracefully unmounts the filesystem, falling back to a forced
// unmount if the graceful path fails.
func (s *Server) Unmount() error {
	s.logger.Info("unmounting FUSE filesystem", "mountpoint", s.mountPoint)

	if s.server != nil {
		err := s.server.Unmount()
		if err == nil {
			return nil
		}
		s.logger.Warn("standard unmount failed, attempting force unmount", "error", err)
	}

	return s.ForceUnmount()
}

// ForceUnmount attempts a lazy/force unmount of the mountpoint.
func (s *Server) ForceUnmount() error {
	if runtime.GOOS == "linux" {
		if err := exec.Command("fusermount", "-uz", s.mountPoint).Run(); err == nil {
			return nil
		}
		if err := exec.Command("umount", "-l", s.mountPoint).Run(); err == nil {
			return nil
		}
	}
	return fmt.Errorf("failed to force unmount %s", s.mountPoint)
}

// CleanupMount tries to unmount any stale mount left at the mountpoint
// from a previous, uncleanly-terminated run, ignoring errors since it's
// likely just not mounted.
func (s *Server) CleanupMount() {
	_ = s.ForceUnmount()
}
