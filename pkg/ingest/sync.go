package ingest

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/hashicorp/go-multierror"
	"github.com/openskills/openskills/pkg/catalog"
	"github.com/openskills/openskills/pkg/logger"
	"github.com/openskills/openskills/pkg/skillfs"
	"github.com/openskills/openskills/pkg/telemetry"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// LockFileName is created in the skills root while a sync or add runs.
const LockFileName = ".sync.lock"

// Downloader copies a remote skill directory to a local path.
type Downloader interface {
	DownloadDir(ctx context.Context, src Source, dest string) (int, error)
}

// SyncOptions selects which skills Sync downloads.
type SyncOptions struct {
	// IDs restricts the sync to these skills. Empty means every skill.
	IDs []string
	// MissingOnly skips skills whose directory already exists.
	MissingOnly bool
	// Concurrency bounds parallel downloads. Values below 1 mean 1.
	Concurrency int
}

// SyncResult lists the outcome for each considered skill id.
type SyncResult struct {
	Synced  []string
	Skipped []string
	Failed  []string
}

// Syncer populates the skills root from the skills' source URLs.
type Syncer struct {
	downloader  Downloader
	root        string
	lockTimeout time.Duration
}

// NewSyncer creates a Syncer writing into root.
func NewSyncer(downloader Downloader, root string) *Syncer {
	return &Syncer{
		downloader:  downloader,
		root:        root,
		lockTimeout: 30 * time.Second,
	}
}

// Sync downloads the selected skills. Each skill is staged in a temporary
// directory next to its final location and renamed into place, so readers
// see either the old or the new directory. A failing skill does not stop the
// others; all failures are returned together.
func (s *Syncer) Sync(ctx context.Context, skills []catalog.Skill, opts SyncOptions) (*SyncResult, error) {
	selected, err := selectSkills(skills, opts.IDs)
	if err != nil {
		return nil, err
	}

	unlock, err := s.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	concurrency := opts.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	var (
		mu     sync.Mutex
		result = &SyncResult{}
		errs   *multierror.Error
	)

	g := &errgroup.Group{}
	g.SetLimit(concurrency)

	for _, skill := range selected {
		if opts.MissingOnly && dirExists(filepath.Join(s.root, skill.ID)) {
			result.Skipped = append(result.Skipped, skill.ID)
			continue
		}

		g.Go(func() error {
			log := logger.G(ctx).WithField("skill_id", skill.ID)

			var files int
			err := telemetry.WithSpan(ctx, "ingest.sync_skill", func(ctx context.Context) error {
				var err error
				files, err = s.syncOne(ctx, skill)
				return err
			}, attribute.String("skill.id", skill.ID))

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.WithError(err).Error("failed to sync skill")
				result.Failed = append(result.Failed, skill.ID)
				errs = multierror.Append(errs, errors.Wrapf(err, "skill %s", skill.ID))
				return nil
			}

			log.WithField("files", files).Info("synced skill")
			result.Synced = append(result.Synced, skill.ID)
			return nil
		})
	}

	g.Wait()

	sort.Strings(result.Synced)
	sort.Strings(result.Skipped)
	sort.Strings(result.Failed)

	return result, errs.ErrorOrNil()
}

func (s *Syncer) syncOne(ctx context.Context, skill catalog.Skill) (int, error) {
	if !skillfs.ValidID(skill.ID) {
		return 0, errors.Errorf("invalid skill id %q", skill.ID)
	}

	src, err := ParseSourceURL(skill.SourceURL)
	if err != nil {
		return 0, err
	}

	return s.install(ctx, skill.ID, src, nil)
}

// install downloads src into a staging directory, runs check against it when
// given, and swaps it in as root/id.
func (s *Syncer) install(ctx context.Context, id string, src Source, check func(staging string) error) (int, error) {
	staging, err := os.MkdirTemp(s.root, ".staging-"+id+"-")
	if err != nil {
		return 0, errors.Wrap(err, "failed to create staging directory")
	}
	defer os.RemoveAll(staging)

	files, err := s.downloader.DownloadDir(ctx, src, staging)
	if err != nil {
		return files, err
	}
	if files == 0 {
		return 0, errors.Errorf("no files found at %s", src)
	}

	if check != nil {
		if err := check(staging); err != nil {
			return files, err
		}
	}

	if err := replaceDir(staging, filepath.Join(s.root, id)); err != nil {
		return files, err
	}

	return files, nil
}

// replaceDir moves src to dest, replacing any existing dest.
func replaceDir(src, dest string) error {
	if !dirExists(dest) {
		return errors.Wrapf(os.Rename(src, dest), "failed to move skill into %s", dest)
	}

	backup := filepath.Join(filepath.Dir(dest), ".old"+filepath.Base(src))
	if err := os.Rename(dest, backup); err != nil {
		return errors.Wrapf(err, "failed to move aside %s", dest)
	}

	if err := os.Rename(src, dest); err != nil {
		if restoreErr := os.Rename(backup, dest); restoreErr != nil {
			return multierror.Append(errors.Wrapf(err, "failed to move skill into %s", dest), restoreErr)
		}
		return errors.Wrapf(err, "failed to move skill into %s", dest)
	}

	return errors.Wrapf(os.RemoveAll(backup), "failed to remove %s", backup)
}

// lock takes the skills root lock, waiting up to the lock timeout for
// another sync to finish.
func (s *Syncer) lock(ctx context.Context) (func(), error) {
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return nil, errors.Wrapf(err, "failed to create skills root %s", s.root)
	}

	lockPath := filepath.Join(s.root, LockFileName)
	l := flock.New(lockPath)

	lockCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()

	locked, err := l.TryLockContext(lockCtx, 200*time.Millisecond)
	if err != nil || !locked {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.Errorf("another sync is in progress (lock: %s)", lockPath)
	}

	return func() { _ = l.Unlock() }, nil
}

func selectSkills(skills []catalog.Skill, ids []string) ([]catalog.Skill, error) {
	if len(ids) == 0 {
		return skills, nil
	}

	byID := make(map[string]catalog.Skill, len(skills))
	for _, skill := range skills {
		if _, ok := byID[skill.ID]; !ok {
			byID[skill.ID] = skill
		}
	}

	var unknown []string
	selected := make([]catalog.Skill, 0, len(ids))
	for _, id := range ids {
		skill, ok := byID[id]
		if !ok {
			unknown = append(unknown, id)
			continue
		}
		selected = append(selected, skill)
	}

	if len(unknown) > 0 {
		return nil, errors.Errorf("unknown skill ids: %v", unknown)
	}

	return selected, nil
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
