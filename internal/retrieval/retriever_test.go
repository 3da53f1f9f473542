package retrieval

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/threatdash/backend/internal/apperrors"
)

func writeArtifacts(t *testing.T) (metaPath, indexPath string) {
	t.Helper()
	dir := t.TempDir()
	metaPath = filepath.Join(dir, "meta.json")
	indexPath = filepath.Join(dir, "index.faiss")
	require.NoError(t, os.WriteFile(metaPath, []byte(`[]`), 0o644))
	require.NoError(t, os.WriteFile(indexPath, []byte{0x01}, 0o644))
	return metaPath, indexPath
}

// fakeInterpreter writes an executable that ignores its arguments and prints
// the given stdout, standing in for the Python index process
func fakeInterpreter(t *testing.T, stdout string, exitCode int) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell stub not supported on windows")
	}

	path := filepath.Join(t.TempDir(), "fake-python")
	script := fmt.Sprintf("#!/bin/sh\nprintf '%%s' '%s'\nexit %d\n", stdout, exitCode)
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func TestIndexProcess_CheckArtifacts(t *testing.T) {
	logger := zap.NewNop()
	metaPath, indexPath := writeArtifacts(t)

	tests := []struct {
		name      string
		metaPath  string
		indexPath string
		wantErr   string
	}{
		{"both present", metaPath, indexPath, ""},
		{"missing meta", filepath.Join(t.TempDir(), "absent.json"), indexPath, "META_PATH not found"},
		{"missing index", metaPath, filepath.Join(t.TempDir(), "absent.faiss"), "INDEX_PATH not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewIndexProcess("/usr/bin/python3", tt.metaPath, tt.indexPath, logger)

			err := p.CheckArtifacts()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperrors.ErrConfiguration))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestIndexProcess_Search(t *testing.T) {
	logger := zap.NewNop()
	metaPath, indexPath := writeArtifacts(t)

	t.Run("parses passages from stdout", func(t *testing.T) {
		bin := fakeInterpreter(t, `{"passages":[{"id":"p1","title":"Hit","text":"body"}]}`, 0)
		p := NewIndexProcess(bin, metaPath, indexPath, logger)

		passages, err := p.Search(context.Background(), "ransomware", 5)
		require.NoError(t, err)

		require.Len(t, passages, 1)
		assert.Equal(t, "p1", passages[0].ID)
		assert.Equal(t, "Hit", passages[0].Title)
	})

	t.Run("nonzero exit maps to a retrieval error", func(t *testing.T) {
		bin := fakeInterpreter(t, "", 1)
		p := NewIndexProcess(bin, metaPath, indexPath, logger)

		_, err := p.Search(context.Background(), "q", 5)
		assert.True(t, errors.Is(err, apperrors.ErrRetrieval))
	})

	t.Run("garbage stdout maps to a retrieval error", func(t *testing.T) {
		bin := fakeInterpreter(t, "Traceback (most recent call last)", 0)
		p := NewIndexProcess(bin, metaPath, indexPath, logger)

		_, err := p.Search(context.Background(), "q", 5)
		assert.True(t, errors.Is(err, apperrors.ErrRetrieval))
	})

	t.Run("missing interpreter maps to a retrieval error", func(t *testing.T) {
		p := NewIndexProcess(filepath.Join(t.TempDir(), "nope"), metaPath, indexPath, logger)

		_, err := p.Search(context.Background(), "q", 5)
		assert.True(t, errors.Is(err, apperrors.ErrRetrieval))
	})
}
