package util

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/otnemrasordep/muspy/constants"
	"golang.org/x/exp/constraints"
)

var scoreExtensions = []string{".mid", ".midi", ".xml", ".musicxml", ".mxl"}

func RecreateOutputDir() {
	dir := constants.GetOutDir()
	os.RemoveAll(dir)
	os.MkdirAll(dir, 0777)
}

// GatherScorePaths walks root and returns every symbolic-score file
// path, capped at maxNum when maxNum > 0. Order is the walk order,
// which is deterministic for a given tree.
func GatherScorePaths(root string, maxNum int) []string {
	var res []string
	walk := func(s string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if maxNum > 0 && len(res) >= maxNum {
			return fs.SkipAll
		}
		ext := strings.ToLower(filepath.Ext(s))
		for _, known := range scoreExtensions {
			if ext == known {
				res = append(res, s)
				break
			}
		}
		return nil
	}
	filepath.WalkDir(root, walk)
	return res
}

func GetKeys[A constraints.Ordered, B any](m map[A]B) []A {
	keys := make([]A, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

func CreateBinary(filename string, data any) error {
	buf := new(bytes.Buffer)
	encoder := gob.NewEncoder(buf)
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("could not encode %v: %w", filename, err)
	}
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("could not create %v: %w", filename, err)
	}
	defer f.Close()

	if _, err := f.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write failed for %v: %w", filename, err)
	}
	return nil
}

func ReadBinary[A any](path string) (A, error) {
	var data A
	f, err := os.Open(path)
	if err != nil {
		return data, fmt.Errorf("could not open binary file: %w", err)
	}
	defer f.Close()

	decoder := gob.NewDecoder(f)
	if err := decoder.Decode(&data); err != nil {
		return data, fmt.Errorf("could not decode binary file %v: %w", path, err)
	}
	return data, nil
}

func Sum[A constraints.Integer](nums []A) uint64 {
	var total uint64
	for _, v := range nums {
		total += uint64(v)
	}
	return total
}
