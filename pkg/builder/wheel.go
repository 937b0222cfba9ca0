// Copyright (C) 2022-2023  Whey Labs
//
// SPDX-License-Identifier: Apache-2.0

package builder

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/datawire/dlib/dlog"

	"github.com/wheylab/whey/pkg/metadata"
	"github.com/wheylab/whey/pkg/pyproject"
)

// Tag is the compatibility tag for every wheel this tool can produce: pure
// Python 3, no ABI, any platform.
const Tag = "py3-none-any"

// Wheel builds binary distributions, per the binary distribution format
// (PEP 427).
type Wheel struct {
	Config *pyproject.Config
	OutDir string
}

func NewWheel(cfg *pyproject.Config, outDir string) *Wheel {
	return &Wheel{Config: cfg, OutDir: outDir}
}

func (b *Wheel) Build(ctx context.Context) (string, error) {
	cfg := b.Config

	if err := checkReadme(cfg); err != nil {
		return "", err
	}
	stamp, err := archiveTime(cfg)
	if err != nil {
		return "", err
	}
	files, err := selectFiles(ctx, cfg)
	if err != nil {
		return "", err
	}

	// Wheel members sit relative to source-dir, not the project root.
	srcPrefix := ""
	if cfg.Tool.SourceDir != "." && cfg.Tool.SourceDir != "" {
		srcPrefix = cfg.Tool.SourceDir + "/"
	}
	payload := make([]member, 0, len(files))
	for _, file := range files {
		memberPath := file.Path
		if srcPrefix != "" {
			if !strings.HasPrefix(memberPath, srcPrefix) {
				dlog.Warnf(ctx, "%q is outside source-dir %q; not adding it to the wheel",
					file.Path, cfg.Tool.SourceDir)
				continue
			}
			memberPath = strings.TrimPrefix(memberPath, srcPrefix)
		}
		payload = append(payload, member{path: memberPath, source: file.Source})
	}

	doc, err := metadata.Dump(cfg)
	if err != nil {
		return "", err
	}

	filename, err := writeWheelArchive(ctx, cfg, b.OutDir, stamp, payload, doc)
	if err != nil {
		return "", err
	}
	dlog.Infof(ctx, "Wheel created at %s", filepath.Join(b.OutDir, filename))
	return filename, nil
}

// writeWheelArchive writes the ZIP: the payload under its original paths,
// then the dist-info members, with RECORD last.
func writeWheelArchive(
	ctx context.Context,
	cfg *pyproject.Config,
	outDir string,
	stamp time.Time,
	payload []member,
	metadataDoc string,
) (string, error) {
	distInfo := DistInfoDir(cfg)

	members := make([]member, 0, len(payload)+4)
	members = append(members, payload...)
	members = append(members, member{
		path:    distInfo + "/METADATA",
		content: []byte(metadataDoc),
	})
	members = append(members, member{
		path:    distInfo + "/WHEEL",
		content: []byte(WheelTxt(Tag)),
	})
	if cfg.License != nil {
		members = append(members, member{
			path:    distInfo + "/LICENSE",
			content: []byte(cfg.License.Text),
		})
	}
	if entryPoints := EntryPointsTxt(cfg); entryPoints != "" {
		members = append(members, member{
			path:    distInfo + "/entry_points.txt",
			content: []byte(entryPoints),
		})
	}

	filename := ArchiveBase(cfg) + "-" + Tag + ".whl"
	target := filepath.Join(outDir, filename)

	err := writeAtomic(target, func(w io.Writer) error {
		zw := zip.NewWriter(w)
		rec := &recordWriter{}

		for _, m := range members {
			reader, _, err := m.open()
			if err != nil {
				return err
			}
			entry, err := newZipEntry(zw, m.path, stamp)
			if err != nil {
				_ = reader.Close()
				return err
			}
			digest := rec.newDigest()
			size, err := io.Copy(io.MultiWriter(entry, digest), reader)
			if err != nil {
				_ = reader.Close()
				return err
			}
			if err := reader.Close(); err != nil {
				return err
			}
			rec.add(m.path, digest, size)
			dlog.Infof(ctx, "Writing %s", m.path)
		}

		recordPath := distInfo + "/RECORD"
		entry, err := newZipEntry(zw, recordPath, stamp)
		if err != nil {
			return err
		}
		if _, err := io.WriteString(entry, rec.render(recordPath)); err != nil {
			return err
		}

		return zw.Close()
	})
	if err != nil {
		return "", fmt.Errorf("build wheel: %w", err)
	}
	return filename, nil
}

func newZipEntry(zw *zip.Writer, name string, stamp time.Time) (io.Writer, error) {
	header := &zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: stamp,
	}
	header.SetMode(fileMode)
	return zw.CreateHeader(header)
}
