package excel

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"ecostim/domain/stimulus"
	"ecostim/ports"
)

// ResponseArchive writes sessions as <participant>_<stamp>.csv under a directory
type ResponseArchive struct {
	dir string
}

var _ ports.ResponseArchive = (*ResponseArchive)(nil)

func NewResponseArchive(dir string) *ResponseArchive {
	return &ResponseArchive{dir: dir}
}

func (a *ResponseArchive) Archive(ctx context.Context, p stimulus.Participant, stamp string, responses []stimulus.Response) (string, error) {
	path := filepath.Join(a.dir, fmt.Sprintf("%s_%s.csv", safeName(p.ID), stamp))
	if err := NewDataWriter(path).WriteResponses(ctx, responses, p); err != nil {
		return "", err
	}
	return path, nil
}

// safeName keeps participant IDs from escaping the output directory.
func safeName(id string) string {
	r := strings.NewReplacer("/", "_", "\\", "_", "..", "_", " ", "_")
	if s := r.Replace(strings.TrimSpace(id)); s != "" {
		return s
	}
	return "anon"
}
