package build

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"
	"github.com/otiai10/copy"
	"github.com/specialistvlad/brewgridgo/internal/ctxlog"
)

// Promotion is a keg that has been moved into place but not yet committed.
// Until Commit or Rollback is called the previous keg, if any, is kept
// aside.
type Promotion struct {
	keg   string
	aside string
}

// Promote moves a completed staging prefix to keg. The staged tree is first
// moved next to keg, so the final swap is two renames on one filesystem and
// keg is never observed half-written. The caller must Commit or Rollback
// the returned Promotion.
func Promote(ctx context.Context, staged, keg string) (*Promotion, error) {
	logger := ctxlog.FromContext(ctx)
	if err := os.MkdirAll(filepath.Dir(keg), 0o755); err != nil {
		return nil, err
	}

	suffix := uuid.NewString()
	next := keg + ".new-" + suffix
	err := os.Rename(staged, next)
	if errors.Is(err, syscall.EXDEV) {
		logger.Debug("Staging is on another device, copying.", "keg", keg)
		err = copy.Copy(staged, next)
	}
	if err != nil {
		os.RemoveAll(next)
		return nil, fmt.Errorf("moving staged prefix next to keg: %w", err)
	}

	p := &Promotion{keg: keg}
	if _, err := os.Lstat(keg); err == nil {
		p.aside = keg + ".old-" + suffix
		if err := os.Rename(keg, p.aside); err != nil {
			os.RemoveAll(next)
			return nil, fmt.Errorf("moving previous keg aside: %w", err)
		}
	}
	if err := os.Rename(next, keg); err != nil {
		os.RemoveAll(next)
		p.restore(ctx)
		return nil, err
	}
	return p, nil
}

// Commit discards the previous keg.
func (p *Promotion) Commit(ctx context.Context) {
	if p.aside == "" {
		return
	}
	if err := os.RemoveAll(p.aside); err != nil {
		ctxlog.FromContext(ctx).Warn("Failed to remove previous keg.", "path", p.aside, "error", err)
	}
	p.aside = ""
}

// Rollback removes the promoted keg and puts the previous one back.
func (p *Promotion) Rollback(ctx context.Context) {
	if err := os.RemoveAll(p.keg); err != nil {
		ctxlog.FromContext(ctx).Error("Failed to remove promoted keg.", "keg", p.keg, "error", err)
		return
	}
	p.restore(ctx)
}

func (p *Promotion) restore(ctx context.Context) {
	if p.aside == "" {
		return
	}
	if err := os.Rename(p.aside, p.keg); err != nil {
		ctxlog.FromContext(ctx).Error("Failed to restore previous keg.", "keg", p.keg, "error", err)
		return
	}
	p.aside = ""
}

// Link points link at target, replacing any previous link in one rename.
func Link(target, link string) error {
	if err := os.MkdirAll(filepath.Dir(link), 0o755); err != nil {
		return err
	}
	tmp := link + ".tmp-" + uuid.NewString()
	if err := os.Symlink(target, tmp); err != nil {
		return err
	}
	if err := os.Rename(tmp, link); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
