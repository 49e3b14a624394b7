// Command coretree is a thin demo CLI over the merkle tree engine:
// it reads newline-delimited elements from stdin, appends each to a
// tree backed by an on-disk database, and prints the resulting root
// hash. CLI wiring is explicitly out of scope beyond this demo (spec
// §1); it exists to exercise the engine end-to-end against a real
// on-disk store rather than MemoryDB.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"

	"github.com/veilchain/coretree/core/types"
	"github.com/veilchain/coretree/hasher"
	"github.com/veilchain/coretree/log"
	"github.com/veilchain/coretree/merkletree"
	"github.com/veilchain/coretree/store"
)

func main() {
	dir := flag.String("db", "./coretree-data", "directory holding the database")
	depth := flag.Int("depth", merkletree.DefaultDepth, "tree depth D")
	name := flag.String("name", "notes", "logical tree name")
	backend := flag.String("backend", "pebble", "on-disk backend: pebble or leveldb")
	cacheBytes := flag.Int("cache", 0, "read-through cache capacity in bytes, 0 disables")
	compress := flag.Bool("compress", false, "snappy-compress stored values above the compression threshold")
	flag.Parse()

	logger := log.Default().Module("coretree")

	var opts []store.Option
	if *cacheBytes > 0 {
		opts = append(opts, store.WithCache(*cacheBytes))
	}
	if *compress {
		opts = append(opts, store.WithCompression())
	}

	open := store.OpenPebbleStore
	if *backend == "leveldb" {
		open = store.OpenLevelDBStore
	}
	db := store.NewDatabaseWithFactory(func() (store.KeyValueStore, error) {
		return open(*dir)
	}, opts...)
	tree, err := merkletree.NewMerkleTree[[]byte, types.Hash](db, *name, hasher.SHA256Hasher{}, *depth)
	if err != nil {
		logger.Error("register tree", "err", err)
		os.Exit(1)
	}
	if err := db.Open(); err != nil {
		logger.Error("open database", "dir", *dir, "err", err)
		os.Exit(1)
	}
	defer db.Close()

	scanner := bufio.NewScanner(os.Stdin)
	var count int
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		element := append([]byte(nil), line...)
		if _, err := tree.Add(element, nil); err != nil {
			logger.Error("add element", "err", err)
			os.Exit(1)
		}
		count++
	}
	if err := scanner.Err(); err != nil {
		logger.Error("read stdin", "err", err)
		os.Exit(1)
	}

	root, err := tree.RootHash(nil)
	if err != nil {
		logger.Error("compute root", "err", err)
		os.Exit(1)
	}
	fmt.Printf("added %d elements, root = %x\n", count, root)
}
