// Package atomicstore implements crash-safe JSON document storage:
// advisory file locking, atomic temp-file-plus-rename writes,
// timestamped backups with retention cleanup, and an mtime-invalidated
// read cache.
package atomicstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/cratalog/cratalog/internal/apperr"
)

const (
	backupDirName = ".backups"
	tempSuffix    = ".tmp"
)

// Store reads and writes JSON documents, each at a caller-given path,
// writing under an advisory lock, keeping timestamped backups and a
// process-local read cache invalidated by file mtime.
type Store struct {
	lockTimeout     time.Duration
	backupRetention int
	cache           *ttlcache.Cache[string, cachedDoc]
}

type cachedDoc struct {
	modTime time.Time
	data    []byte
}

// New constructs a Store. lockTimeout bounds how long Save waits to
// acquire the advisory lock (Load takes no lock); backupRetention is the number of
// timestamped backups kept per document.
func New(lockTimeout time.Duration, backupRetention int) *Store {
	cache := ttlcache.New[string, cachedDoc](
		ttlcache.WithTTL[string, cachedDoc](10 * time.Minute),
	)
	go cache.Start()
	return &Store{
		lockTimeout:     lockTimeout,
		backupRetention: backupRetention,
		cache:           cache,
	}
}

// Close stops the cache's background cleanup goroutine.
func (s *Store) Close() {
	s.cache.Stop()
}

// Load reads and unmarshals the document at path into v. A cache hit is
// served only if the file's mtime has not advanced since the value was
// cached.
func (s *Store) Load(path string, v any) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return apperr.NewNotFoundError(apperr.OpLoadStore, path)
	}
	if err != nil {
		return apperr.NewStorageError(apperr.OpLoadStore, path, err)
	}

	if item := s.cache.Get(path); item != nil {
		cached := item.Value()
		if cached.modTime.Equal(info.ModTime()) {
			if err := json.Unmarshal(cached.data, v); err != nil {
				return apperr.NewDataCorruptError(apperr.OpLoadStore, path, err)
			}
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return apperr.NewStorageError(apperr.OpLoadStore, path, err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return apperr.NewDataCorruptError(apperr.OpLoadStore, path, err)
	}

	s.cache.Set(path, cachedDoc{modTime: info.ModTime(), data: data}, ttlcache.DefaultTTL)
	return nil
}

// Save acquires an advisory lock on path, writes a timestamped backup
// of the existing document (if any), then atomically replaces it with
// the marshaled form of v via a temp-file-plus-rename.
func (s *Store) Save(path string, v any) error {
	unlock, err := s.acquireLock(path)
	if err != nil {
		return err
	}
	defer unlock()

	if _, err := os.Stat(path); err == nil {
		if err := s.backup(path); err != nil {
			return err
		}
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return apperr.NewStorageError(apperr.OpAtomicWrite, path, err)
	}

	if err := atomicWrite(path, data); err != nil {
		return apperr.NewStorageError(apperr.OpAtomicWrite, path, err)
	}

	s.cache.Delete(path)
	return nil
}

// acquireLock takes an exclusive advisory lock on a sibling ".lock"
// file via syscall.Flock, retrying until lockTimeout elapses.
func (s *Store) acquireLock(path string) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, apperr.NewStorageError(apperr.OpAcquireLock, path, err)
	}

	lockPath := path + ".lock"
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, apperr.NewStorageError(apperr.OpAcquireLock, lockPath, err)
	}

	deadline := time.Now().Add(s.lockTimeout)
	for {
		err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			f.Close()
			return nil, apperr.NewLockTimeoutError(lockPath, s.lockTimeout.String())
		}
		time.Sleep(25 * time.Millisecond)
	}

	return func() {
		_ = syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
		_ = f.Close()
	}, nil
}

// atomicWrite writes data to a temp file in the same directory as path
// and renames it into place, so readers never observe a partial write.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+tempSuffix+"*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}

	return os.Rename(tmpPath, path)
}

// backup copies the current contents of path into a timestamped file
// under a sibling .backups directory, then prunes older backups beyond
// backupRetention.
func (s *Store) backup(path string) error {
	dir := filepath.Join(filepath.Dir(path), backupDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apperr.NewStorageError(apperr.OpAtomicWrite, dir, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return apperr.NewStorageError(apperr.OpAtomicWrite, path, err)
	}

	stamp := time.Now().UTC().Format("20060102T150405.000000000Z")
	backupName := fmt.Sprintf("%s.%s.bak", filepath.Base(path), stamp)
	backupPath := filepath.Join(dir, backupName)

	if err := atomicWrite(backupPath, data); err != nil {
		return apperr.NewStorageError(apperr.OpAtomicWrite, backupPath, err)
	}

	return s.pruneBackups(dir, filepath.Base(path))
}

// pruneBackups keeps only the backupRetention most recent backups for
// baseName, deleting the rest. A non-positive retention disables
// pruning.
func (s *Store) pruneBackups(dir, baseName string) error {
	if s.backupRetention <= 0 {
		return nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return apperr.NewStorageError(apperr.OpAtomicWrite, dir, err)
	}

	prefix := baseName + "."
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasPrefix(e.Name(), prefix) && strings.HasSuffix(e.Name(), ".bak") {
			names = append(names, e.Name())
		}
	}

	sort.Strings(names)
	if len(names) <= s.backupRetention {
		return nil
	}

	toRemove := names[:len(names)-s.backupRetention]
	for _, name := range toRemove {
		_ = os.Remove(filepath.Join(dir, name))
	}
	return nil
}
