// Package session 把分析结果保存在sqlite数据库中
package session

import (
	"database/sql"
	"fmt"

	"gbinsym/internal/arch"
	"gbinsym/internal/cfg"
	"gbinsym/internal/decoder"
	"gbinsym/internal/expr"
	"gbinsym/internal/loader"
	"gbinsym/internal/mapper"
	"gbinsym/internal/util"

	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS images (
	hash TEXT PRIMARY KEY,
	arch TEXT NOT NULL,
	base INTEGER NOT NULL,
	data BLOB NOT NULL
);
CREATE TABLE IF NOT EXISTS blocks (
	image TEXT NOT NULL,
	address INTEGER NOT NULL,
	record BLOB NOT NULL,
	PRIMARY KEY (image, address)
);
CREATE TABLE IF NOT EXISTS mappers (
	image TEXT NOT NULL,
	name TEXT NOT NULL,
	record BLOB NOT NULL,
	PRIMARY KEY (image, name)
);
CREATE TABLE IF NOT EXISTS graphs (
	image TEXT NOT NULL,
	name TEXT NOT NULL,
	record BLOB NOT NULL,
	PRIMARY KEY (image, name)
);
`

// ErrNotFound 记录不存在
var ErrNotFound = errors.New("session: record not found")

type Session struct {
	db   *sql.DB
	path string
}

// ImageInfo Images返回的映像摘要
type ImageInfo struct {
	Hash string
	Arch string
	Base uint64
	Size int
}

// Image 可以保存的映像
type Image interface {
	CPU() *decoder.CPU
	Data() []byte
	Base() uint64
}

func Open(path string) (*Session, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "init %s", path)
	}
	log.WithField("path", path).Debug("session opened")
	return &Session{db: db, path: path}, nil
}

func (s *Session) Close() error {
	return s.db.Close()
}

// PutImage 保存映像，返回其内容哈希
func (s *Session) PutImage(img Image) (string, error) {
	hash, _ := util.GetCodeHash(img.Data())
	_, err := s.db.Exec(`INSERT OR REPLACE INTO images (hash, arch, base, data) VALUES (?, ?, ?, ?)`,
		hash, img.CPU().Name, int64(img.Base()), img.Data())
	if err != nil {
		return "", errors.Wrap(err, "put image")
	}
	return hash, nil
}

// LoadImage 按哈希取回映像
func (s *Session) LoadImage(hash string) (*loader.Raw, error) {
	var (
		archName string
		base     int64
		data     []byte
	)
	err := s.db.QueryRow(`SELECT arch, base, data FROM images WHERE hash = ?`, hash).Scan(&archName, &base, &data)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(ErrNotFound, "image %s", hash)
	}
	if err != nil {
		return nil, errors.Wrap(err, "load image")
	}
	cpu, err := arch.Lookup(archName)
	if err != nil {
		return nil, err
	}
	return loader.NewRaw(cpu, data, uint64(base)), nil
}

func (s *Session) Images() ([]ImageInfo, error) {
	rows, err := s.db.Query(`SELECT hash, arch, base, length(data) FROM images ORDER BY hash`)
	if err != nil {
		return nil, errors.Wrap(err, "list images")
	}
	defer rows.Close()
	var res []ImageInfo
	for rows.Next() {
		var (
			info ImageInfo
			base int64
		)
		if err := rows.Scan(&info.Hash, &info.Arch, &base, &info.Size); err != nil {
			return nil, errors.Wrap(err, "scan image")
		}
		info.Base = uint64(base)
		res = append(res, info)
	}
	return res, rows.Err()
}

func (s *Session) cpu(image string) (*decoder.CPU, error) {
	var archName string
	err := s.db.QueryRow(`SELECT arch FROM images WHERE hash = ?`, image).Scan(&archName)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(ErrNotFound, "image %s", image)
	}
	if err != nil {
		return nil, errors.Wrap(err, "image arch")
	}
	return arch.Lookup(archName)
}

type execer interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
}

func putBlock(x execer, image string, b *cfg.Block) error {
	data, err := encodeBlock(b)
	if err != nil {
		return errors.Wrapf(err, "encode block %#x", b.Address())
	}
	_, err = x.Exec(`INSERT OR REPLACE INTO blocks (image, address, record) VALUES (?, ?, ?)`,
		image, int64(b.Address()), data)
	return errors.Wrapf(err, "put block %#x", b.Address())
}

// PutBlock 保存块的字节和标记
func (s *Session) PutBlock(image string, b *cfg.Block) error {
	return putBlock(s.db, image, b)
}

// GetBlock 取回块，指令从保存的字节重新解码
func (s *Session) GetBlock(image string, addr uint64) (*cfg.Block, error) {
	cpu, err := s.cpu(image)
	if err != nil {
		return nil, err
	}
	return s.getBlock(cpu, image, addr)
}

func (s *Session) getBlock(cpu *decoder.CPU, image string, addr uint64) (*cfg.Block, error) {
	var data []byte
	err := s.db.QueryRow(`SELECT record FROM blocks WHERE image = ? AND address = ?`, image, int64(addr)).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(ErrNotFound, "block %#x", addr)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get block %#x", addr)
	}
	var r blockRecord
	if err := cbor.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("session: unmarshal block: %w", err)
	}
	var instrs []*decoder.Instruction
	for off := 0; off < len(r.Bytes); {
		ins, err := cpu.Disassemble(r.Bytes[off:], r.Address+uint64(off))
		if err != nil {
			return nil, errors.Wrapf(err, "decode block %#x", addr)
		}
		instrs = append(instrs, ins)
		off += ins.Length
	}
	b := cfg.NewBlock(instrs)
	for k, v := range r.Misc {
		b.Misc[k] = v
	}
	return b, nil
}

func (s *Session) PutMapper(image, name string, m *mapper.Mapper) error {
	data, err := encodeMapper(m)
	if err != nil {
		return errors.Wrapf(err, "encode mapper %s", name)
	}
	_, err = s.db.Exec(`INSERT OR REPLACE INTO mappers (image, name, record) VALUES (?, ?, ?)`, image, name, data)
	return errors.Wrapf(err, "put mapper %s", name)
}

func (s *Session) GetMapper(image, name string) (*mapper.Mapper, error) {
	var data []byte
	err := s.db.QueryRow(`SELECT record FROM mappers WHERE image = ? AND name = ?`, image, name).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(ErrNotFound, "mapper %s", name)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get mapper %s", name)
	}
	return decodeMapper(data)
}

// PutCFG 保存图及其所有块
func (s *Session) PutCFG(image, name string, g *cfg.Graph) error {
	data, err := encodeGraph(g)
	if err != nil {
		return errors.Wrapf(err, "encode graph %s", name)
	}
	tx, err := s.db.Begin()
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	for _, n := range g.Nodes() {
		if err := putBlock(tx, image, n.Block); err != nil {
			tx.Rollback()
			return err
		}
	}
	if _, err := tx.Exec(`INSERT OR REPLACE INTO graphs (image, name, record) VALUES (?, ?, ?)`, image, name, data); err != nil {
		tx.Rollback()
		return errors.Wrapf(err, "put graph %s", name)
	}
	return errors.Wrap(tx.Commit(), "commit")
}

func (s *Session) GetCFG(image, name string) (*cfg.Graph, error) {
	cpu, err := s.cpu(image)
	if err != nil {
		return nil, err
	}
	var data []byte
	err = s.db.QueryRow(`SELECT record FROM graphs WHERE image = ? AND name = ?`, image, name).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(ErrNotFound, "graph %s", name)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get graph %s", name)
	}
	var r graphRecord
	if err := cbor.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("session: unmarshal graph: %w", err)
	}
	g := cfg.NewGraph()
	for _, addr := range r.Nodes {
		b, err := s.getBlock(cpu, image, addr)
		if err != nil {
			return nil, err
		}
		if _, _, err := g.Add(b); err != nil {
			return nil, errors.Wrapf(err, "graph %s", name)
		}
	}
	for _, er := range r.Edges {
		src, ok := g.Node(er.Src)
		if !ok {
			return nil, errors.Errorf("graph %s: no node %#x", name, er.Src)
		}
		dst, ok := g.Node(er.Dst)
		if !ok {
			return nil, errors.Errorf("graph %s: no node %#x", name, er.Dst)
		}
		cond, err := expr.Decode(er.Cond)
		if err != nil {
			return nil, err
		}
		g.Link(src, dst, cond, er.Kind)
	}
	return g, nil
}
