// Copyright (C) 2022-2023  Whey Labs
//
// SPDX-License-Identifier: Apache-2.0

package builder

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/datawire/dlib/dlog"

	"github.com/wheylab/whey/pkg/manifest"
	"github.com/wheylab/whey/pkg/metadata"
	"github.com/wheylab/whey/pkg/pyproject"
)

// SDist builds source distributions: a gzipped tar whose top-level directory
// is "{name}-{version}/", with PKG-INFO at its root.
type SDist struct {
	Config *pyproject.Config
	OutDir string
}

func NewSDist(cfg *pyproject.Config, outDir string) *SDist {
	return &SDist{Config: cfg, OutDir: outDir}
}

// A member is one file headed into an archive; either literal content or a
// source file to stream.
type member struct {
	path    string // slash-separated, relative to the archive root
	content []byte // nil means read from source
	source  string
}

func (m member) open() (io.ReadCloser, int64, error) {
	if m.source == "" {
		return io.NopCloser(strings.NewReader(string(m.content))), int64(len(m.content)), nil
	}
	info, err := os.Stat(m.source)
	if err != nil {
		return nil, 0, err
	}
	fp, err := os.Open(m.source)
	if err != nil {
		return nil, 0, err
	}
	return fp, info.Size(), nil
}

func (b *SDist) Build(ctx context.Context) (string, error) {
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

	// The selected tree, plus the metadata files every sdist carries.
	members := make(map[string]member, len(files)+5)
	for _, file := range files {
		members[file.Path] = member{path: file.Path, source: file.Source}
	}
	members["pyproject.toml"] = member{
		path:   "pyproject.toml",
		source: filepath.Join(cfg.ProjectDir, "pyproject.toml"),
	}
	if reqs := filepath.Join(cfg.ProjectDir, "requirements.txt"); isRegular(reqs) {
		members["requirements.txt"] = member{path: "requirements.txt", source: reqs}
	}
	if cfg.Readme != nil {
		name := cfg.Readme.Filename()
		members[name] = member{path: name, content: []byte(cfg.Readme.Text)}
	}
	if cfg.License != nil {
		members["LICENSE"] = member{path: "LICENSE", content: []byte(cfg.License.Text)}
	}

	doc, err := metadata.Dump(cfg)
	if err != nil {
		return "", err
	}
	delete(members, "PKG-INFO")

	ordered := make([]member, 0, len(members)+1)
	ordered = append(ordered, member{path: "PKG-INFO", content: []byte(doc)})
	rest := make([]member, 0, len(members))
	for _, m := range members {
		rest = append(rest, m)
	}
	sort.Slice(rest, func(i, j int) bool { return manifest.PathLess(rest[i].path, rest[j].path) })
	ordered = append(ordered, rest...)

	base := ArchiveBase(cfg)
	filename := base + ".tar.gz"
	target := filepath.Join(b.OutDir, filename)

	err = writeAtomic(target, func(w io.Writer) error {
		// mtime=0 in the gzip header keeps the stream reproducible.
		gz := gzip.NewWriter(w)
		tw := tar.NewWriter(gz)

		seenDirs := make(map[string]bool)
		var mkdirAll func(dir string) error
		mkdirAll = func(dir string) error {
			if dir == "." || seenDirs[dir] {
				return nil
			}
			if err := mkdirAll(path.Dir(dir)); err != nil {
				return err
			}
			seenDirs[dir] = true
			return tw.WriteHeader(&tar.Header{
				Typeflag: tar.TypeDir,
				Name:     base + "/" + dir + "/",
				Mode:     dirMode,
				ModTime:  stamp,
			})
		}

		if err := tw.WriteHeader(&tar.Header{
			Typeflag: tar.TypeDir,
			Name:     base + "/",
			Mode:     dirMode,
			ModTime:  stamp,
		}); err != nil {
			return err
		}

		for _, m := range ordered {
			if err := mkdirAll(path.Dir(m.path)); err != nil {
				return err
			}
			reader, size, err := m.open()
			if err != nil {
				return err
			}
			if err := tw.WriteHeader(&tar.Header{
				Typeflag: tar.TypeReg,
				Name:     base + "/" + m.path,
				Mode:     fileMode,
				Size:     size,
				ModTime:  stamp,
			}); err != nil {
				_ = reader.Close()
				return err
			}
			if _, err := io.Copy(tw, reader); err != nil {
				_ = reader.Close()
				return err
			}
			if err := reader.Close(); err != nil {
				return err
			}
			dlog.Infof(ctx, "Copying %s -> %s/%s", m.path, base, m.path)
		}

		if err := tw.Close(); err != nil {
			return err
		}
		return gz.Close()
	})
	if err != nil {
		return "", fmt.Errorf("build sdist: %w", err)
	}

	dlog.Infof(ctx, "Source distribution created at %s", target)
	return filename, nil
}

func isRegular(filename string) bool {
	info, err := os.Stat(filename)
	return err == nil && info.Mode().IsRegular()
}
