// Package retrieval wraps the external vector index as an injectable capability.
// The production implementation shells out to a Python process that embeds the
// query and searches the FAISS index; the rest of the application only sees the
// Retriever interface, so services are testable against a fake.
package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	"github.com/threatdash/backend/internal/apperrors"
	"github.com/threatdash/backend/internal/models"
)

// Retriever is the synchronous search capability over the vector index:
// given a query and k, it returns the k nearest passages in relevance order.
type Retriever interface {
	// Search returns the top-k passages for the query, ordered by relevance
	// descending. The call completes or fails as a unit; partial results are
	// never returned.
	Search(ctx context.Context, query string, k int) ([]models.Passage, error)
	// CheckArtifacts verifies the index artifacts this retriever depends on
	// are reachable.
	CheckArtifacts() error
}

// searchScript embeds the query, searches the FAISS index and prints the top-k
// passages as JSON on stdout. Paths and k are interpolated before execution;
// the query itself is passed as an argv element, never into the source text.
const searchScript = `
import json, sys, numpy as np, faiss
from fastembed import TextEmbedding

META_PATH = %q
INDEX_PATH = %q
MODEL_NAME = "BAAI/bge-small-en-v1.5"

meta = json.load(open(META_PATH, 'r', encoding='utf-8'))
index = faiss.read_index(INDEX_PATH)
model = TextEmbedding(model_name=MODEL_NAME)

def embed_one(q):
    v = np.array(list(model.embed([q]))[0], dtype=np.float32)[None, :]
    v = v / (np.linalg.norm(v, axis=1, keepdims=True) + 1e-12)
    return v

if len(sys.argv) < 2:
    raise SystemExit('question required')
q = sys.argv[1]
qv = embed_one(q)

if qv.shape[1] != index.d:
    raise RuntimeError(f'Dim mismatch: query {qv.shape[1]} vs index {index.d}')

topk = max(1, min(20, %d))
D, I = index.search(qv, topk)
items = [meta[int(i)] for i in I[0]]

print(json.dumps({'passages': items}, ensure_ascii=False))
`

// IndexProcess runs the vector search as a per-request subprocess
type IndexProcess struct {
	pythonBin string
	metaPath  string
	indexPath string
	logger    *zap.Logger
}

// NewIndexProcess creates a retriever backed by the configured Python interpreter
func NewIndexProcess(pythonBin, metaPath, indexPath string, logger *zap.Logger) *IndexProcess {
	return &IndexProcess{
		pythonBin: pythonBin,
		metaPath:  metaPath,
		indexPath: indexPath,
		logger:    logger,
	}
}

// CheckArtifacts verifies the metadata file and the index file exist
func (p *IndexProcess) CheckArtifacts() error {
	if _, err := os.Stat(p.metaPath); err != nil {
		return fmt.Errorf("%w: META_PATH not found", apperrors.ErrConfiguration)
	}
	if _, err := os.Stat(p.indexPath); err != nil {
		return fmt.Errorf("%w: INDEX_PATH not found", apperrors.ErrConfiguration)
	}
	return nil
}

// Search invokes the index process and parses its JSON output
func (p *IndexProcess) Search(ctx context.Context, query string, k int) ([]models.Passage, error) {
	if k < 1 {
		k = 1
	}
	if k > 20 {
		k = 20
	}

	script := fmt.Sprintf(searchScript, p.metaPath, p.indexPath, k)

	cmd := exec.CommandContext(ctx, p.pythonBin, "-c", script, query)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		p.logger.Error("index process failed", zap.String("stderr", msg))
		return nil, fmt.Errorf("%w: %s", apperrors.ErrRetrieval, msg)
	}

	var out struct {
		Passages []models.Passage `json:"passages"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		p.logger.Error("bad JSON from index process", zap.Error(err))
		return nil, fmt.Errorf("%w: bad JSON from index process", apperrors.ErrRetrieval)
	}

	return out.Passages, nil
}
