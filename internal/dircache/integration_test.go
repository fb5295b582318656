package dircache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justyntemme/filer/internal/diritem"
	localfs "github.com/justyntemme/filer/internal/fs"
	"github.com/justyntemme/filer/internal/loop"
)

func TestLocalFilesystemScan(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0755))

	sched := loop.NewManual()
	cache := New(Options{Scheduler: sched, FS: localfs.NewLocal()})
	defer cache.Close()

	d := cache.Lookup(dir)
	r := newRecorder()
	d.Attach(r)
	sched.Settle()

	require.Empty(t, d.Error())
	assert.Equal(t, []string{"a.txt", "sub"}, d.Names())
	assert.Equal(t, diritem.TypeRegular, d.Item("a.txt").Type)
	assert.Equal(t, int64(5), d.Item("a.txt").Size)
	assert.Equal(t, diritem.TypeDirectory, d.Item("sub").Type)
	assert.Equal(t, "folder", d.Item("sub").Icon)

	require.NoError(t, os.Remove(filepath.Join(dir, "a.txt")))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), nil, 0644))
	cache.Invalidate(dir)
	sched.Settle()

	assert.Equal(t, []string{"b.txt", "sub"}, d.Names())
	assert.Equal(t, []string{"b.txt", "sub"}, r.shownNames())
	assert.Equal(t, []string{"a.txt"}, r.of(EventRemove)[0].names)
}
