package crawler

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const pagePrefix = "pitches_"

// Job is one page to convert: the pitch finding output and, when present,
// the text alignment output for the same page.
type Job struct {
	Key           string
	PagePath      string
	SyllablesPath string
}

// Crawler scans directories for page datasets.
type Crawler struct {
	ignored []string
}

// NewCrawler creates a new crawler instance.
func NewCrawler() *Crawler {
	return &Crawler{
		ignored: []string{".git", ".jsomr2mei", "node_modules"},
	}
}

// ScanPages walks pagesDir for pitches_<key>.json files. Syllable data is
// looked up in sylDir as <key>.json or syls_<key>.json; an empty sylDir
// means the page directory itself. Jobs are returned sorted by key.
func (c *Crawler) ScanPages(pagesDir, sylDir string) ([]Job, error) {
	if sylDir == "" {
		sylDir = pagesDir
	}

	var jobs []Job
	err := filepath.WalkDir(pagesDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		// Skip ignored directories
		if d.IsDir() {
			for _, ign := range c.ignored {
				if d.Name() == ign {
					return filepath.SkipDir
				}
			}
			return nil
		}

		name := d.Name()
		if !strings.HasPrefix(name, pagePrefix) || !strings.HasSuffix(name, ".json") {
			return nil
		}

		key := strings.TrimSuffix(strings.TrimPrefix(name, pagePrefix), ".json")
		if key == "" {
			return nil
		}
		jobs = append(jobs, Job{
			Key:           key,
			PagePath:      path,
			SyllablesPath: findSyllables(sylDir, key),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(jobs, func(i, j int) bool { return jobs[i].Key < jobs[j].Key })
	return jobs, nil
}

func findSyllables(dir, key string) string {
	for _, name := range []string{key + ".json", "syls_" + key + ".json"} {
		p := filepath.Join(dir, name)
		if st, err := os.Stat(p); err == nil && !st.IsDir() {
			return p
		}
	}
	return ""
}
