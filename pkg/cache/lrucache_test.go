package cache

import (
	"os"
	"sync"
	"testing"
)

// These tests clone small public workflow repositories and need at least
// 1 Gb of free disk: every cache is created with a 1 Gb free-disk floor, and
// a floor above the actual free space makes Put evict everything it just
// cloned.
const (
	wfVariantCalling = "https://github.com/snakemake-workflows/dna-seq-gatk-variant-calling"
	wfRNASeq         = "https://github.com/snakemake-workflows/rna-seq-star-deseq2"
	wfChipSeq        = "https://github.com/snakemake-workflows/chipseq"
	wfSingleCell     = "https://github.com/snakemake-workflows/single-cell-rna-seq"
)

// assertCacheOrder checks the recency order of the cache front to back and
// that every cached clone actually exists on disk.
func assertCacheOrder(t *testing.T, c *GitRepoLRUCache, expected []string) {
	t.Helper()

	if len(c.hm) != len(expected) {
		t.Fatalf("cache hashmap size: %d, expected: %d", len(c.hm), len(expected))
	}

	if c.dll.Len() != len(expected) {
		t.Fatalf("cache list size: %d, expected: %d", c.dll.Len(), len(expected))
	}

	node := c.dll.Front()
	for i := 0; node != nil; i++ {
		entry := node.Value.(*GitRepoFilePath)
		if entry.key != expected[i] {
			t.Fatalf("cache position %d: %s, expected: %s", i, entry.key, expected[i])
		}

		if _, err := os.Stat(entry.path); err != nil {
			t.Fatalf("cached clone missing on disk: %s", err.Error())
		}

		node = node.Next()
	}
}

func fillCache(t *testing.T, c *GitRepoLRUCache, repos []string) {
	t.Helper()

	for _, repo := range repos {
		entry, err := c.Put(repo)
		if err != nil {
			t.Fatalf("unexpected err putting %s to cache: %s", repo, err.Error())
		}
		entry.Done()
	}
}

func TestNewGitRepoLRUCache(t *testing.T) {
	t.Parallel()

	t.Run("Starts empty over an existing directory", func(t *testing.T) {
		dir := t.TempDir()
		c, err := NewGitRepoLRUCache(dir, 1, map[string]bool{wfVariantCalling: true})
		if err != nil {
			t.Fatalf("unexpected err: %s", err.Error())
		}

		if c.dir != dir {
			t.Fatalf("cache dir: %s, expected: %s", c.dir, dir)
		}
		assertCacheOrder(t, c, []string{})
	})

	t.Run("Fails when the directory does not exist", func(t *testing.T) {
		if _, err := NewGitRepoLRUCache("/should/not/exist", 1, nil); err == nil {
			t.Fatal("expected error for missing cache directory, got none")
		}
	})
}

func TestPutGitRepoLRUCache(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		repos         []string
		expectedOrder []string
	}{
		{
			name:          "Puts clones in recency order",
			repos:         []string{wfVariantCalling, wfRNASeq, wfChipSeq},
			expectedOrder: []string{wfChipSeq, wfRNASeq, wfVariantCalling},
		},
		{
			// A re-analysis request for a cached repo only bumps it.
			name:          "Re-putting an analyzed repo moves it to the front",
			repos:         []string{wfVariantCalling, wfRNASeq, wfChipSeq, wfVariantCalling},
			expectedOrder: []string{wfVariantCalling, wfChipSeq, wfRNASeq},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewGitRepoLRUCache(t.TempDir(), 1, nil)
			if err != nil {
				t.Fatalf("unexpected err: %s", err.Error())
			}

			fillCache(t, c, tt.repos)
			assertCacheOrder(t, c, tt.expectedOrder)
		})
	}
}

func TestTryEvict(t *testing.T) {
	t.Parallel()

	c, err := NewGitRepoLRUCache(t.TempDir(), 1, map[string]bool{})
	if err != nil {
		t.Fatalf("unexpected err: %s", err.Error())
	}

	fillCache(t, c, []string{wfVariantCalling, wfRNASeq, wfChipSeq})

	// Raise the free-disk floor far above any real disk so eviction has to
	// clear the whole cache.
	c.minFreeDiskGb = 10000000
	if err := c.tryEvict(); err != nil {
		t.Fatalf("unexpected err attempting to evict repos: %s", err.Error())
	}

	assertCacheOrder(t, c, []string{})
}

func TestTryEvictSparesNeverEvictRepos(t *testing.T) {
	t.Parallel()

	// wfVariantCalling is put first, so it sits at the least recently
	// analyzed end, where eviction starts. It must be skipped and survive
	// while the evictable clone goes; with nothing else left to evict,
	// tryEvict reports the cache cannot reach the floor.
	c, err := NewGitRepoLRUCache(t.TempDir(), 1, map[string]bool{wfVariantCalling: true})
	if err != nil {
		t.Fatalf("unexpected err: %s", err.Error())
	}

	fillCache(t, c, []string{wfVariantCalling, wfRNASeq})

	c.minFreeDiskGb = 10000000
	if err := c.tryEvict(); err == nil {
		t.Fatal("expected an error once only never-evict repos remain, got none")
	}

	assertCacheOrder(t, c, []string{wfVariantCalling})
}

func TestGetGitRepoLRUCache(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		load          []string
		get           string
		expectedOrder []string
		wantNil       bool
	}{
		{
			name:          "Gets a cached repo and bumps it to the front",
			load:          []string{wfVariantCalling, wfRNASeq, wfChipSeq},
			get:           wfVariantCalling,
			expectedOrder: []string{wfVariantCalling, wfChipSeq, wfRNASeq},
		},
		{
			name:          "Returns nil for a repo never analyzed",
			load:          []string{wfVariantCalling, wfRNASeq, wfChipSeq},
			get:           wfSingleCell,
			expectedOrder: []string{wfChipSeq, wfRNASeq, wfVariantCalling},
			wantNil:       true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewGitRepoLRUCache(t.TempDir(), 1, nil)
			if err != nil {
				t.Fatalf("unexpected err creating cache: %s", err.Error())
			}

			fillCache(t, c, tt.load)

			entry := c.Get(tt.get)
			if tt.wantNil && entry != nil {
				entry.Done()
				t.Fatalf("expected a cache miss for %s", tt.get)
			}
			if !tt.wantNil {
				if entry == nil {
					t.Fatal("get returned a nil cache entry")
				}
				entry.Done()
			}

			assertCacheOrder(t, c, tt.expectedOrder)
		})
	}
}

func TestGetAndPutConcurrently(t *testing.T) {
	t.Parallel()

	repos := []string{wfVariantCalling, wfRNASeq, wfChipSeq}

	c, err := NewGitRepoLRUCache(t.TempDir(), 1, nil)
	if err != nil {
		t.Fatalf("unexpected err creating cache: %s", err.Error())
	}

	var wg sync.WaitGroup
	wg.Add(2 * len(repos))

	for _, repo := range repos {
		go func(repo string) {
			defer wg.Done()
			entry, _ := c.Put(repo)
			if entry != nil {
				entry.Done()
			}
		}(repo)

		go func(repo string) {
			defer wg.Done()
			entry := c.Get(repo)
			if entry != nil {
				entry.Done()
			}
		}(repo)
	}

	wg.Wait()

	// The interleaving decides the final recency order, so only the
	// membership is checked.
	if len(c.hm) != len(repos) {
		t.Fatalf("cache hashmap size: %d, expected: %d", len(c.hm), len(repos))
	}
	if c.dll.Len() != len(repos) {
		t.Fatalf("cache list size: %d, expected: %d", c.dll.Len(), len(repos))
	}
}
