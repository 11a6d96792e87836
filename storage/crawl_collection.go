package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"seoscope/crawler"
)

var (
	ErrNotFound = errors.New("crawl not found")

	crawlBucket = []byte("crawls")
)

// CrawlRepository persists the most recent crawl of each domain.
type CrawlRepository interface {
	// Save stores pages under domain, replacing any earlier crawl, and
	// returns where they were written.
	Save(ctx context.Context, domain string, pages crawler.CrawlResult) (string, error)
	Load(ctx context.Context, domain string) (*CrawlDoc, error)
	Close() error
}

type CrawlDoc struct {
	Domain    string              `json:"domain"`
	Pages     crawler.CrawlResult `json:"pages"`
	CrawledAt time.Time           `json:"crawled_at"`
}

// CrawlCollection is a CrawlRepository backed by a single bbolt file.
type CrawlCollection struct {
	path string
	db   *bolt.DB
	mu   sync.RWMutex
}

// OpenCrawlCollection opens or creates the database at path.
func OpenCrawlCollection(path string) (*CrawlCollection, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory for BoltDB: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open BoltDB: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(crawlBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}

	return &CrawlCollection{path: path, db: db}, nil
}

func (c *CrawlCollection) Save(ctx context.Context, domain string, pages crawler.CrawlResult) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if domain == "" {
		return "", errors.New("empty domain")
	}
	if pages == nil {
		pages = crawler.CrawlResult{}
	}

	doc := CrawlDoc{Domain: domain, Pages: pages, CrawledAt: time.Now().UTC()}
	value, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encode crawl: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	err = c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(crawlBucket).Put([]byte(domain), value)
	})
	if err != nil {
		return "", fmt.Errorf("save crawl of %s: %w", domain, err)
	}
	return c.Location(domain), nil
}

func (c *CrawlCollection) Load(ctx context.Context, domain string) (*CrawlDoc, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	var doc CrawlDoc
	err := c.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(crawlBucket).Get([]byte(domain))
		if v == nil {
			return ErrNotFound
		}
		return json.Unmarshal(v, &doc)
	})
	if err != nil {
		return nil, fmt.Errorf("load crawl of %s: %w", domain, err)
	}
	return &doc, nil
}

// Domains lists every stored domain in key order.
func (c *CrawlCollection) Domains(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	domains := []string{}
	err := c.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(crawlBucket).ForEach(func(k, _ []byte) error {
			domains = append(domains, string(k))
			return nil
		})
	})
	return domains, err
}

// Location identifies where the crawl of domain is stored.
func (c *CrawlCollection) Location(domain string) string {
	return "bolt://" + c.path + "#" + string(crawlBucket) + "/" + domain
}

func (c *CrawlCollection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

var _ CrawlRepository = (*CrawlCollection)(nil)
