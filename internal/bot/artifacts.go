package bot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shuaiyuancn/2026-better-booking/internal/audit"
	"github.com/shuaiyuancn/2026-better-booking/internal/browser"
	"github.com/shuaiyuancn/2026-better-booking/internal/internaltypes"
)

// Snapshot checkpoints.
const (
	CheckpointPageLoad            = "page-load"
	CheckpointSlotsFound          = "slots-found"
	CheckpointSlotsNotFound       = "slots-not-found"
	CheckpointResourceSubstituted = "resource-substitution"
	CheckpointPaymentFilled       = "payment-filled"
	CheckpointPrePay              = "pre-pay"
	CheckpointConfirmation        = "confirmation"
	CheckpointConfirmationTimeout = "confirmation-timeout"
)

const captureTimeout = 10 * time.Second

// Artifacts collects snapshots and the session recording for one run. Files
// go to a hidden partial directory that Close renames to task-{id}-{ts}. With
// no root directory every method is a no-op. No method returns an error: a
// capture failure is logged at WARN and the run carries on.
type Artifacts struct {
	root    string
	partial string
	final   string
	sess    browser.Session
	log     *audit.Logger
	rec     browser.Recording
	n       int
}

func StartArtifacts(ctx context.Context, root string, sess browser.Session, log *audit.Logger, taskID int64, now time.Time) *Artifacts {
	if root == "" {
		return &Artifacts{}
	}
	name := fmt.Sprintf("task-%d-%s", taskID, now.UTC().Format("20060102T150405Z"))
	a := &Artifacts{
		root:    root,
		partial: filepath.Join(root, "."+name+".partial"),
		final:   filepath.Join(root, name),
		sess:    sess,
		log:     log,
	}
	if err := os.MkdirAll(a.partial, 0o755); err != nil {
		a.warn(ctx, "create artifact directory", err)
		a.root = ""
		return a
	}

	rec, err := sess.Record(ctx, filepath.Join(a.partial, "recording"))
	if err != nil {
		a.warn(ctx, "start session recording", err)
	} else {
		a.rec = rec
	}
	return a
}

// Snapshot saves a full-page screenshot named after the checkpoint.
func (a *Artifacts) Snapshot(ctx context.Context, checkpoint string) {
	if a.root == "" {
		return
	}
	sctx, cancel := context.WithTimeout(ctx, captureTimeout)
	defer cancel()

	b, err := a.sess.Screenshot(sctx)
	if err != nil {
		a.warn(ctx, "snapshot "+checkpoint, err)
		return
	}
	a.n++
	path := filepath.Join(a.partial, fmt.Sprintf("%02d-%s.png", a.n, checkpoint))
	if err := os.WriteFile(path, b, 0o644); err != nil {
		a.warn(ctx, "snapshot "+checkpoint, err)
	}
}

// Close stops the recording and publishes the directory.
func (a *Artifacts) Close(ctx context.Context) {
	if a.root == "" {
		return
	}
	if a.rec != nil {
		if err := a.rec.Stop(); err != nil {
			a.warn(ctx, "stop session recording", err)
		}
	}
	if err := os.Rename(a.partial, a.final); err != nil {
		a.warn(ctx, "publish artifacts", err)
	}
	a.root = ""
}

// Dir is where the run's artifacts end up once closed.
func (a *Artifacts) Dir() string { return a.final }

func (a *Artifacts) warn(ctx context.Context, what string, err error) {
	a.log.Warn(ctx, "Artifact capture failed: "+what, fmt.Errorf("%w: %v", internaltypes.ErrArtifact, err))
}
