package staging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"rosterforge/internal/fileutil"
	"rosterforge/internal/logging"
)

const lockRetryInterval = 250 * time.Millisecond

// Commit promotes a staged tree's content to the destination directory. The
// destination is guarded by a file lock so concurrent commits serialize; the
// move is a rename when possible and a verified copy otherwise. The staged
// tree is removed once the destination holds the content.
func Commit(ctx context.Context, tree *Tree, dest string, logger *slog.Logger) error {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "staging")

	if tree == nil {
		return errors.New("no staged tree to commit")
	}
	if _, err := os.Stat(tree.RomfsDir()); err != nil {
		return fmt.Errorf("staged tree %s has no content: %w", tree.ID, err)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create destination parent: %w", err)
	}

	lock := flock.New(destLockPath(dest))
	locked, err := lock.TryLockContext(ctx, lockRetryInterval)
	if err != nil {
		return fmt.Errorf("acquire destination lock: %w", err)
	}
	if !locked {
		return errors.New("destination is locked by another commit")
	}
	defer func() {
		_ = lock.Unlock()
	}()

	if err := ctx.Err(); err != nil {
		return err
	}

	if err := moveTree(tree.RomfsDir(), dest); err != nil {
		return err
	}
	logger.Info("staged tree committed",
		logging.String("tree", tree.ID),
		logging.String("destination", dest))
	return tree.Remove()
}

func destLockPath(dest string) string {
	return filepath.Join(filepath.Dir(dest), "."+filepath.Base(dest)+".lock")
}

// moveTree renames the content when the destination is absent and on the
// same device; otherwise it merges via verified copy.
func moveTree(src, dest string) error {
	if _, err := os.Stat(dest); os.IsNotExist(err) {
		if err := os.Rename(src, dest); err == nil {
			return nil
		}
	}
	if err := fileutil.CopyTreeVerified(src, dest); err != nil {
		return fmt.Errorf("copy staged tree to destination: %w", err)
	}
	return nil
}
