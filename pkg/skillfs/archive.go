package skillfs

import (
	"archive/zip"
	"bytes"
	"compress/flate"
	"context"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/openskills/openskills/pkg/apierrors"
	"github.com/openskills/openskills/pkg/catalog"
	"github.com/openskills/openskills/pkg/telemetry"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
)

const (
	skillNotFoundMessage = "Skill not found"
	downloadMessage      = "Failed to download skill"
)

// WriteArchive writes a zip of every regular file in the skill directory to w,
// using paths relative to the skill directory and maximum DEFLATE compression.
// Symlinks to regular files are archived with their target's content; other
// non-regular files are skipped.
func (s *Store) WriteArchive(ctx context.Context, id string, w io.Writer) error {
	dir, err := s.dir(id, skillNotFoundMessage)
	if err != nil {
		return err
	}

	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.BestCompression)
	})

	err = s.walk(ctx, dir, func(rel, abs string, entry fs.DirEntry) error {
		if entry.IsDir() {
			return nil
		}
		return addFile(zw, rel, abs)
	})
	if err != nil {
		zw.Close()
		return apierrors.Internal(err, downloadMessage)
	}

	if err := zw.Close(); err != nil {
		return apierrors.Internal(errors.Wrap(err, "failed to finalize archive"), downloadMessage)
	}

	return nil
}

// BuildArchive materializes the whole archive in memory, so callers never
// hand out a partially written archive.
func (s *Store) BuildArchive(ctx context.Context, id string) ([]byte, error) {
	var buf bytes.Buffer
	err := telemetry.WithSpan(ctx, "skillfs.build_archive", func(ctx context.Context) error {
		if err := s.WriteArchive(ctx, id, &buf); err != nil {
			return err
		}
		telemetry.SetAttributes(ctx, attribute.Int("archive.bytes", buf.Len()))
		return nil
	}, attribute.String("skill.id", id))
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func addFile(zw *zip.Writer, rel, abs string) error {
	info, err := os.Stat(abs)
	if err != nil {
		return errors.Wrapf(err, "failed to stat %s", rel)
	}
	if !info.Mode().IsRegular() {
		return nil
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return errors.Wrapf(err, "failed to create zip header for %s", rel)
	}
	header.Name = rel
	header.Method = zip.Deflate

	dst, err := zw.CreateHeader(header)
	if err != nil {
		return errors.Wrapf(err, "failed to add %s to archive", rel)
	}

	src, err := os.Open(abs)
	if err != nil {
		return errors.Wrapf(err, "failed to open %s", rel)
	}
	defer src.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return errors.Wrapf(err, "failed to compress %s", rel)
	}

	return nil
}

// ArchiveFilename returns the download name of a skill archive:
// "<owner>-<name>.zip", or "<id>.zip" when the skill is not in the catalog.
func ArchiveFilename(repo catalog.Repository, id string) string {
	base := id
	if skill, ok := repo.Get(id); ok {
		base = skill.Owner + "-" + skill.Name
	}
	return sanitizeFilename(base) + ".zip"
}

func sanitizeFilename(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '"' || r == '\\' || r == '/':
			return '_'
		case r < 0x20 || r == 0x7f:
			return -1
		}
		return r
	}, name)
}
