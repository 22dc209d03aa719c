// Package sessionstore 记录命令行创建的沙箱，使后续命令可以通过名称引用它们。
// 多个进程可以同时读写同一个文件，写操作通过文件锁互斥。
package sessionstore

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gofrs/flock"
)

// Record 一个本地记录的沙箱。
type Record struct {
	Name      string    `json:"name"`
	ID        string    `json:"id"`
	AppID     string    `json:"app_id"`
	CreatedAt time.Time `json:"created_at"`
}

type Store struct {
	path string
}

// DefaultPath 返回 ~/.koyeb/sandboxes.json。
func DefaultPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = ""
	}
	return filepath.Join(homeDir, ".koyeb", "sandboxes.json")
}

func New(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, err
	}
	return &Store{path: path}, nil
}

// Put 保存记录，已有相同 ID 的记录会被替换。
func (s *Store) Put(record Record) error {
	return s.update(func(records []Record) []Record {
		for i := range records {
			if records[i].ID == record.ID {
				records[i] = record
				return records
			}
		}
		return append(records, record)
	})
}

// Remove 删除 ID 或名称匹配的记录，不存在时不返回错误。
func (s *Store) Remove(idOrName string) error {
	return s.update(func(records []Record) []Record {
		kept := records[:0]
		for _, r := range records {
			if r.ID != idOrName && r.Name != idOrName {
				kept = append(kept, r)
			}
		}
		return kept
	})
}

// List 返回所有记录，按创建时间排序。
func (s *Store) List() ([]Record, error) {
	unlock, err := lockStoreFile(s.path, false)
	if err != nil {
		return nil, err
	}
	defer unlock()

	records, err := s.load()
	if err != nil {
		return nil, err
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})
	return records, nil
}

// Resolve 通过 ID 或名称查找记录，名称重复时返回最近创建的一个。
func (s *Store) Resolve(idOrName string) (Record, bool, error) {
	records, err := s.List()
	if err != nil {
		return Record{}, false, err
	}
	for i := len(records) - 1; i >= 0; i-- {
		if records[i].ID == idOrName || records[i].Name == idOrName {
			return records[i], true, nil
		}
	}
	return Record{}, false, nil
}

func (s *Store) update(fn func([]Record) []Record) error {
	unlock, err := lockStoreFile(s.path, true)
	if err != nil {
		return err
	}
	defer unlock()

	records, err := s.load()
	if err != nil {
		return err
	}
	return s.save(fn(records))
}

func (s *Store) load() ([]Record, error) {
	file, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	defer file.Close()

	var records []Record
	if err := json.NewDecoder(file).Decode(&records); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return records, nil
}

func (s *Store) save(records []Record) error {
	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	encoder := json.NewEncoder(tmp)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(records); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

func lockStoreFile(path string, ex bool) (context.CancelFunc, error) {
	var (
		lockFile = flock.New(path + ".lock")
		err      error
	)
	if ex {
		err = lockFile.Lock()
	} else {
		err = lockFile.RLock()
	}
	if err != nil {
		return nil, err
	}
	return func() {
		_ = lockFile.Unlock()
	}, nil
}
