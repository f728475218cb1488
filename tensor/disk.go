package tensor

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

const (
	tableTensor = "t"
)

// Store is disk-backed tensor storage keyed by name.
// It is scratch space for a single run; Close removes the underlying file.
type Store struct {
	Path string

	db *sql.DB
}

// NewStore creates a tensor store at dbPath.
func NewStore(dbPath string) (*Store, error) {
	s := &Store{Path: dbPath}
	var err error
	s.db, err = newDB(s.Path)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	return s, nil
}

func (s *Store) Close() error {
	var err error
	if err1 := s.db.Close(); err1 != nil && err == nil {
		err = err1
	}
	if err1 := os.Remove(s.Path); err1 != nil && err == nil {
		err = err1
	}
	return err
}

// Put saves t under key, overwriting any previous tensor.
func (s *Store) Put(key string, t *Dense) error {
	shapeStrs := make([]string, 0, len(t.shape))
	for _, d := range t.shape {
		shapeStrs = append(shapeStrs, strconv.Itoa(d))
	}
	blob := make([]byte, 8*len(t.data))
	for i, v := range t.data {
		binary.LittleEndian.PutUint64(blob[8*i:], math.Float64bits(v))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	sqlStr := fmt.Sprintf(`INSERT OR REPLACE INTO %s (k, shape, data) VALUES (?, ?, ?)`, tableTensor)
	if _, err := s.db.ExecContext(ctx, sqlStr, key, strings.Join(shapeStrs, ","), blob); err != nil {
		return errors.Wrap(err, key)
	}
	return nil
}

// Get loads the tensor saved under key.
func (s *Store) Get(key string) (*Dense, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	sqlStr := fmt.Sprintf(`SELECT shape, data FROM %s WHERE k=?`, tableTensor)
	var shapeStr string
	var blob []byte
	if err := s.db.QueryRowContext(ctx, sqlStr, key).Scan(&shapeStr, &blob); err != nil {
		return nil, errors.Wrap(err, key)
	}

	shapeStrs := strings.Split(shapeStr, ",")
	shape := make([]int, 0, len(shapeStrs))
	for _, str := range shapeStrs {
		d, err := strconv.Atoi(str)
		if err != nil {
			return nil, errors.Wrap(err, shapeStr)
		}
		shape = append(shape, d)
	}
	t := Zeros(shape...)
	if len(blob) != 8*len(t.data) {
		return nil, errors.Errorf("%s %d %d", key, len(blob), 8*len(t.data))
	}
	for i := range t.data {
		t.data[i] = math.Float64frombits(binary.LittleEndian.Uint64(blob[8*i:]))
	}
	return t, nil
}

// Delete removes the tensor saved under key, if any.
func (s *Store) Delete(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	sqlStr := fmt.Sprintf(`DELETE FROM %s WHERE k=?`, tableTensor)
	if _, err := s.db.ExecContext(ctx, sqlStr, key); err != nil {
		return errors.Wrap(err, key)
	}
	return nil
}

func newDB(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s", dbPath))
	if err != nil {
		return nil, errors.Wrap(err, "")
	}

	if err := prepareDB(db); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "")
	}

	return db, nil
}

func prepareDB(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	sqlStr := fmt.Sprintf(`DROP TABLE IF EXISTS %s`, tableTensor)
	if _, err := db.ExecContext(ctx, sqlStr); err != nil {
		return errors.Wrap(err, "")
	}
	sqlStr = fmt.Sprintf(`CREATE TABLE %s (k TEXT PRIMARY KEY, shape TEXT, data BLOB) STRICT`, tableTensor)
	if _, err := db.ExecContext(ctx, sqlStr); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}
