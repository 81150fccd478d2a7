package cache

import (
	"container/list"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/go-git/go-git/v5"

	"golang.org/x/sys/unix"
)

// GitRepoLRUCache keeps bare clones of benchmark feed repositories on disk so
// periodic dashboard refreshes only fetch new commits instead of cloning the
// whole history again. It is a Least Recently Used (LRU) "like" cache
// implemented with a doubly-linked-list and hashmap.
//
// It differs from a typical LRU cache:
//   - Elements are bare git clones on disk.
//   - Eviction is driven by free disk space: once free space in the cache
//     directory drops to minFreeDiskGb, least recently used clones are deleted
//     until enough space is available again. Repositories listed in
//     neverEvictRepos are skipped.
//
// Both "Get()" and "Put()" return elements locked. Callers must ALWAYS call
// "element.Done()" when finished with them.
type GitRepoLRUCache struct {
	// lock guards the list and map, not the individual clones.
	lock sync.Mutex

	// minFreeDiskGb is the minimum amount of available disk (in Gb) before the
	// cache will begin evicting elements.
	minFreeDiskGb uint64

	// dir is the directory holding the clones
	dir string

	// dll and hm back the LRU ordering and lookups
	dll *list.List
	hm  map[string]*list.Element

	// neverEvictRepos are the repositories that must never be evicted
	neverEvictRepos map[string]bool
}

// NewGitRepoLRUCache returns a new GitRepoLRUCache storing clones under dir
// and keeping at least minFreeGbs of disk free.
func NewGitRepoLRUCache(dir string, minFreeGbs uint64, neverEvictRepos map[string]bool) (*GitRepoLRUCache, error) {
	path := filepath.Clean(dir)
	_, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("error checking provided cache directory: %s", err.Error())
	}

	stats := &syscall.Statfs_t{}

	err = syscall.Statfs(path, stats)
	if err != nil {
		return nil, fmt.Errorf("error fetching stats for cache directory: %s", err.Error())
	}

	freeSpace := stats.Bavail * uint64(stats.Bsize)
	minFreeBytes := minFreeGbs * 1024 * 1024 * 1024

	if freeSpace <= minFreeBytes {
		return nil, fmt.Errorf("minimum free disk space: %d exceeds actual available disk space: %d", minFreeBytes, freeSpace)
	}

	if neverEvictRepos == nil {
		neverEvictRepos = make(map[string]bool)
	}

	return &GitRepoLRUCache{
		minFreeDiskGb:   minFreeGbs,
		dir:             path,
		dll:             list.New(),
		hm:              make(map[string]*list.Element),
		neverEvictRepos: neverEvictRepos,
	}, nil
}

// Len returns the number of cached clones.
func (c *GitRepoLRUCache) Len() int {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.dll.Len()
}

// Get returns the locked element for key and bumps it to the front of the
// cache, or nil on a cache miss.
func (c *GitRepoLRUCache) Get(key string) *GitRepoFilePath {
	c.lock.Lock()
	defer c.lock.Unlock()

	if element, ok := c.hm[key]; ok {
		c.dll.MoveToFront(element)
		element.Value.(*GitRepoFilePath).lock.Lock()
		return element.Value.(*GitRepoFilePath)
	}

	return nil
}

// Put makes sure key is cloned to disk and returns its locked element at
// the front of the cache. New clones may trigger "tryEvict" first.
//
// The cache lock is released before cloning so a slow clone only blocks
// callers interested in that same repository.
func (c *GitRepoLRUCache) Put(key string) (*GitRepoFilePath, error) {
	c.lock.Lock()

	if element, ok := c.hm[key]; ok {
		c.dll.MoveToFront(element)
		c.lock.Unlock()
		element.Value.(*GitRepoFilePath).lock.Lock()
		return element.Value.(*GitRepoFilePath), nil
	}

	err := c.tryEvict()
	if err != nil {
		c.lock.Unlock()
		return nil, fmt.Errorf("could not evict repos from cache: %s", err.Error())
	}

	pathKey := filepath.Join(c.dir, clonePath(key))

	element := &GitRepoFilePath{
		key:  key,
		path: pathKey,
	}

	// Lock the new element before it becomes visible so it cannot be
	// evicted or handed out half-cloned.
	element.lock.Lock()
	c.hm[key] = c.dll.PushFront(element)
	c.lock.Unlock()

	// A clone may survive on disk from a previous process. Reuse it when it
	// still opens as a repository.
	_, err = os.Stat(pathKey)
	if err == nil {
		_, err = git.PlainOpen(pathKey)
		if err == nil {
			return element, nil
		}

		os.RemoveAll(pathKey)
	}

	err = os.MkdirAll(pathKey, os.ModePerm)
	if err != nil {
		c.forget(key)
		element.lock.Unlock()
		return nil, fmt.Errorf("could not create directory in cache: %s", err.Error())
	}

	// Bare clones are enough since feeds are read straight from commit trees.
	_, err = git.PlainClone(pathKey, true, &git.CloneOptions{
		URL:  key,
		Tags: git.NoTags,
	})
	if err != nil {
		os.RemoveAll(pathKey)
		c.forget(key)
		element.lock.Unlock()
		return nil, fmt.Errorf("could not clone into cache directory: %s", err.Error())
	}

	return element, nil
}

// forget drops key from the cache bookkeeping after a failed clone.
func (c *GitRepoLRUCache) forget(key string) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if element, ok := c.hm[key]; ok {
		c.dll.Remove(element)
		delete(c.hm, key)
	}
}

// tryEvict compares the available bytes in the cache directory against
// minFreeDiskGb and evicts least recently used clones until there is
// enough free disk space. The cache lock must be held by the caller.
func (c *GitRepoLRUCache) tryEvict() error {
	var stat unix.Statfs_t
	err := unix.Statfs(c.dir, &stat)
	if err != nil {
		return fmt.Errorf("could not calculate disk space using statfs: %s", err.Error())
	}

	minFreeBytes := c.minFreeDiskGb * 1024 * 1024 * 1024

	for stat.Bavail*uint64(stat.Bsize) <= minFreeBytes {
		if c.dll.Back() == nil {
			break
		}

		// Walk from the least recently used end, skipping neverEvictRepos
		lruNode := c.dll.Back()
		for lruNode != nil && c.neverEvictRepos[lruNode.Value.(*GitRepoFilePath).key] {
			lruNode = lruNode.Prev()
		}

		if lruNode == nil {
			return fmt.Errorf("disk space completely occupied by neverEvictRepos, could not evict")
		}

		// Wait for anyone still reading from this clone
		element := lruNode.Value.(*GitRepoFilePath)
		element.lock.Lock()

		os.RemoveAll(element.path)
		delete(c.hm, element.key)
		c.dll.Remove(lruNode)

		element.lock.Unlock()

		err = unix.Statfs(c.dir, &stat)
		if err != nil {
			return fmt.Errorf("could not re-calculate disk space using statfs: %s", err.Error())
		}
	}

	return nil
}

// clonePath turns a repository URL into a relative directory name.
func clonePath(key string) string {
	replacer := strings.NewReplacer("://", "/", ":", "_", "..", "_")
	return strings.TrimLeft(replacer.Replace(key), "/")
}
