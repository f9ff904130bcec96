// package cache keeps on-disk clones of analyzed repositories between
// analysis requests. Workflow repositories are re-mined whenever their history
// grows, and the clone dominates the cost of a run, so clones are retained
// until disk pressure forces eviction.
package cache

import (
	"container/list"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/go-git/go-git/v5"

	"golang.org/x/sys/unix"
)

// GitRepoLRUCache is a Least Recently Used cache of on-disk clones, backed by
// a doubly-linked list for recency order and a hashmap for URL lookup.
//
// Unlike a size-bounded LRU cache it has no element limit; instead it evicts
// by disk pressure. Whenever free space in the cache directory drops below
// the configured minimum, the least recently analyzed clones are deleted from
// disk and dropped from the cache until the minimum is restored.
//
// Both Get and Put hand the element back in a locked state, ready for the
// history walk. The caller must release it with element.Done() once mining of
// that repository finishes.
type GitRepoLRUCache struct {
	// Guards the list and map themselves: recency bumps, inserts,
	// evictions. Never held across a clone or a history walk.
	lock sync.Mutex

	// minFreeDiskGb is the free-disk floor (in Gb) below which eviction
	// starts.
	minFreeDiskGb uint64

	// dir is the directory holding the clones.
	dir string

	// dll orders elements by recency of analysis, most recent at the front.
	dll *list.List

	// hm maps repository URL to its list element.
	hm map[string]*list.Element

	// neverEvictRepos are repositories exempt from eviction, typically the
	// ones re-mined on a schedule.
	neverEvictRepos map[string]bool
}

// NewGitRepoLRUCache returns a cache over the given directory with the given
// free-disk floor. It fails when the directory is missing or the disk is
// already below the floor.
func NewGitRepoLRUCache(dir string, minFreeGbs uint64, neverEvictRepos map[string]bool) (*GitRepoLRUCache, error) {
	path := filepath.Clean(dir)
	_, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("error checking provided cache directory: %s", err.Error())
	}

	stats := &syscall.Statfs_t{}

	err = syscall.Statfs(dir, stats)
	if err != nil {
		return nil, fmt.Errorf("error fetching stats for cache directory: %s", err.Error())
	}

	freeSpace := stats.Bavail * uint64(stats.Bsize)
	minFreeBytes := minFreeGbs * 1024 * 1024 * 1024

	if freeSpace <= minFreeBytes {
		return nil, fmt.Errorf("minimum free disk space: %d exceeds actual available disk space: %d", minFreeBytes, freeSpace)
	}

	return &GitRepoLRUCache{
		minFreeDiskGb:   minFreeGbs,
		dir:             path,
		dll:             list.New(),
		hm:              make(map[string]*list.Element),
		neverEvictRepos: neverEvictRepos,
	}, nil
}

// Get returns the locked element for the repository URL, bumping it to the
// front of the recency order, or nil when the repository is not cached.
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

// Put clones the repository into the cache directory and returns its locked
// element. A repository already in the cache is only bumped to the front.
// Before cloning, Put evicts least recently analyzed clones as needed to stay
// above the free-disk floor.
//
// The cache lock is released by hand rather than deferred: clones of large
// workflow repositories take a while, and other analysis requests must be
// able to use the cache in the meantime.
func (c *GitRepoLRUCache) Put(key string) (*GitRepoFilePath, error) {
	c.lock.Lock()

	if element, ok := c.hm[key]; ok {
		c.dll.MoveToFront(element)
		element.Value.(*GitRepoFilePath).lock.Lock()
		c.lock.Unlock()
		return element.Value.(*GitRepoFilePath), nil
	}

	// Make room before the clone adds to the disk usage.
	err := c.tryEvict()
	if err != nil {
		c.lock.Unlock()
		return nil, fmt.Errorf("could not evict repos from cache: %s", err.Error())
	}

	pathKey := filepath.Join(c.dir, key)

	element := &GitRepoFilePath{
		key:  key,
		path: pathKey,
	}

	c.hm[key] = c.dll.PushFront(element)

	// The element lock is taken before the cache lock is released: a
	// registered but still-cloning element must not be evictable or
	// returnable to another request.
	element.lock.Lock()
	c.lock.Unlock()

	_, err = os.Stat(pathKey)
	if err == nil {
		// The directory survived from an earlier process run. If it still
		// opens as a git repository, reuse it and let OpenAndFetch pull it
		// up to date instead of re-cloning the whole history.
		_, err = git.PlainOpen(pathKey)
		if err == nil {
			return element, nil
		}

		// A leftover directory that is not a usable repo only wastes disk.
		os.RemoveAll(pathKey)
	}

	err = os.MkdirAll(pathKey, os.ModePerm)
	if err != nil {
		element.lock.Unlock()
		return nil, fmt.Errorf("could not create directory in cache: %s", err.Error())
	}

	// Tags carry no commit history the miner needs.
	_, err = git.PlainClone(pathKey, false, &git.CloneOptions{
		URL:  key,
		Tags: git.NoTags,
	})
	if err != nil {
		element.lock.Unlock()
		return nil, fmt.Errorf("could not clone into cache directory: %s", err.Error())
	}

	// Still locked: the caller walks the clone next.
	return element, nil
}

// tryEvict deletes least recently analyzed clones until free space in the
// cache directory is back above the configured floor.
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

		// Walk from the least recently analyzed end past any never-evict
		// repositories.
		lruNode := c.dll.Back()
		for lruNode != nil && c.neverEvictRepos[lruNode.Value.(*GitRepoFilePath).key] {
			lruNode = lruNode.Prev()
		}
		if lruNode == nil {
			return fmt.Errorf("disk space completely occupied by never-evict repos, could not evict")
		}

		// Wait for any in-flight analysis of the victim to finish.
		lruNode.Value.(*GitRepoFilePath).lock.Lock()

		os.RemoveAll(lruNode.Value.(*GitRepoFilePath).path)
		delete(c.hm, lruNode.Value.(*GitRepoFilePath).key)
		c.dll.Remove(lruNode)

		err = unix.Statfs(c.dir, &stat)
		if err != nil {
			return fmt.Errorf("could not re-calculate disk space using statfs: %s", err.Error())
		}
	}

	return nil
}
