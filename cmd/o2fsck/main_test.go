package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/Byte-Jerry/ocfs2-tools/pkg/ocfs2"
)

const (
	e2eBlockSize = 512
	e2eBlocks    = 64
	e2eRoot      = 5
	e2eDirBlock  = 40
	e2eFile      = 11
)

// e2eEnv is a scratch image, manifest and config on disk.
type e2eEnv struct {
	image    string
	manifest string
	config   string
	textfile string
}

func newE2EEnv(t *testing.T) *e2eEnv {
	t.Helper()
	dir := t.TempDir()
	env := &e2eEnv{
		image:    filepath.Join(dir, "ocfs2.img"),
		manifest: filepath.Join(dir, "manifest.yaml"),
		config:   filepath.Join(dir, "config.yaml"),
		textfile: filepath.Join(dir, "o2fsck.prom"),
	}

	image := make([]byte, e2eBlocks*e2eBlockSize)
	block := image[e2eDirBlock*e2eBlockSize : (e2eDirBlock+1)*e2eBlockSize]
	ocfs2.PutDirEntry(block, 0, e2eRoot, 12+4, ocfs2.FileTypeDir, ".")
	ocfs2.PutDirEntry(block, 16, e2eRoot, 16, ocfs2.FileTypeDir, "..")
	ocfs2.PutDirEntry(block, 32, e2eFile, e2eBlockSize-32, ocfs2.FileTypeRegular, "a/b")
	require.NoError(t, os.WriteFile(env.image, image, 0644))

	manifest := fmt.Sprintf(`filesystem:
  block_size: %d
  total_blocks: %d
  root_inode: %d
inodes:
  used: [%d, %d]
  directories: [%d]
  regular: [%d]
directories:
  - inode: %d
    blocks: [%d]
`, e2eBlockSize, e2eBlocks, e2eRoot, e2eRoot, e2eFile, e2eRoot, e2eFile, e2eRoot, e2eDirBlock)
	require.NoError(t, os.WriteFile(env.manifest, []byte(manifest), 0644))

	cfg := fmt.Sprintf(`logging:
  level: ERROR
  output: stderr
check:
  mode: "no"
device:
  type: filesystem
  filesystem:
    path: %q
state:
  type: badger
  badger:
    db_path: %q
metrics:
  enabled: true
  textfile: %q
`, env.image, filepath.Join(dir, "state"), env.textfile)
	require.NoError(t, os.WriteFile(env.config, []byte(cfg), 0644))

	return env
}

// run executes the CLI and returns the exit code it requested.
func (e *e2eEnv) run(t *testing.T, args ...string) (int, error) {
	t.Helper()

	code := exitOK
	oldExiter := cli.OsExiter
	cli.OsExiter = func(c int) { code = c }
	defer func() { cli.OsExiter = oldExiter }()

	argv := append([]string{"o2fsck", "--config", e.config}, args...)
	err := newApp().RunContext(context.Background(), argv)
	if err != nil && code == exitOK {
		code = exitError
	}
	return code, err
}

func TestCLI_ImportCheckRepair(t *testing.T) {
	env := newE2EEnv(t)

	code, err := env.run(t, "import", env.manifest)
	require.NoError(t, err)
	require.Equal(t, exitOK, code)

	// Report only: the problem is declined and nothing is written.
	code, _ = env.run(t, "check")
	assert.Equal(t, exitUncorrected, code)

	image, err := os.ReadFile(env.image)
	require.NoError(t, err)
	block := image[e2eDirBlock*e2eBlockSize:]
	assert.Equal(t, "a/b", string(ocfs2.EntryAt(block, 32).Name()))

	// Fix everything and write it back.
	code, _ = env.run(t, "check", "-y", "-w")
	assert.Equal(t, exitCorrected, code)

	image, err = os.ReadFile(env.image)
	require.NoError(t, err)
	block = image[e2eDirBlock*e2eBlockSize:]
	assert.Equal(t, uint64(e2eFile), ocfs2.EntryAt(block, 32).Inode())
	assert.Equal(t, "a.b", string(ocfs2.EntryAt(block, 32).Name()))

	// The repaired image is clean.
	code, err = env.run(t, "check", "-n")
	require.NoError(t, err)
	assert.Equal(t, exitOK, code)

	code, err = env.run(t, "parents")
	require.NoError(t, err)
	assert.Equal(t, exitOK, code)

	code, err = env.run(t, "last-run")
	require.NoError(t, err)
	assert.Equal(t, exitOK, code)

	prom, err := os.ReadFile(env.textfile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), "o2fsck_pass2_problems_total")
	assert.Contains(t, string(prom), "o2fsck_device_operations_total")
}

func TestCLI_CheckWithoutImport(t *testing.T) {
	env := newE2EEnv(t)

	code, err := env.run(t, "check", "-n")
	assert.Error(t, err)
	assert.Equal(t, exitError, code)
}

func TestCLI_ConflictingModes(t *testing.T) {
	env := newE2EEnv(t)

	code, err := env.run(t, "check", "-y", "-n")
	assert.Error(t, err)
	assert.Equal(t, exitError, code)
}
