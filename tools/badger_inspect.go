// Command badger_inspect dumps the chat database as tables: identities and
// messages. Opens the store read-only, so it can run next to a live server.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/kelseyhightower/envconfig"
	"github.com/olekukonko/tablewriter"
)

type inspectConfig struct {
	DBPath string `envconfig:"BADGER_FILEPATH" default:"chat.db"`
}

type identityRow struct {
	ID        string    `json:"id"`
	Handle    string    `json:"handle"`
	CreatedAt time.Time `json:"created_at"`
}

type messageRow struct {
	ID        string    `json:"id"`
	Seq       uint64    `json:"seq"`
	Author    string    `json:"author"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func main() {
	var cfg inspectConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatal("Config error: ", err)
	}

	dbPath := flag.String("db", cfg.DBPath, "Path to badger DB")
	prefix := flag.String("prefix", "msg:", "Prefix to scan (msg: or identity:)")
	flag.Parse()

	db, err := openReadOnly(*dbPath)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	table := tablewriter.NewWriter(os.Stdout)
	switch *prefix {
	case "identity:":
		table.SetHeader([]string{"Key", "ID", "Handle", "Created"})
	default:
		table.SetHeader([]string{"Key", "Seq", "Author", "Created", "Content"})
	}
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefixBytes := []byte(*prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			item := it.Item()
			key := string(item.Key())

			err := item.Value(func(v []byte) error {
				row, err := renderRow(*prefix, key, v)
				if err != nil {
					// Log and keep scanning instead of stopping the dump.
					fmt.Printf("Error decoding key %s: %v\n", key, err)
					return nil
				}
				table.Append(row)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Fatal(err)
	}

	table.Render()
}

func renderRow(prefix, key string, value []byte) ([]string, error) {
	if prefix == "identity:" {
		var row identityRow
		if err := json.Unmarshal(value, &row); err != nil {
			return nil, err
		}
		return []string{key, shortID(row.ID), row.Handle,
			row.CreatedAt.Format("2006-01-02 15:04:05")}, nil
	}

	var row messageRow
	if err := json.Unmarshal(value, &row); err != nil {
		return nil, err
	}
	return []string{key, fmt.Sprintf("%d", row.Seq), row.Author,
		row.CreatedAt.Format("15:04:05"), row.Content}, nil
}

// shortID keeps the first 8 characters for readability.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func openReadOnly(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true)
	return badger.Open(opts)
}
