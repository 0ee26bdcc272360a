// Command badger_inspect dumps stored chat records from a badger directory.
// Useful when the server is stopped and you want to see what actually landed
// on disk.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/olekukonko/tablewriter"
)

type storedMessage struct {
	ID       string `json:"id"`
	AuthorID string `json:"author_id"`
	Username string `json:"username"`
	Content  string `json:"content"`
	Lang     string `json:"lang"`
	At       int64  `json:"at"`
}

type storedUser struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
}

func main() {
	dbPath := flag.String("db", "", "Path to badger DB")
	prefix := flag.String("prefix", "msg:", "Prefix to scan (msg: or user:id:)")
	flag.Parse()

	if *dbPath == "" {
		log.Fatal("-db is required")
	}

	db, err := openDB(*dbPath)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Key", "ID", "Username", "Detail"})
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

			// Username indexes only point at an id, not worth a row.
			if strings.HasPrefix(key, "user:name:") {
				continue
			}

			err := item.Value(func(v []byte) error {
				table.Append(toRow(key, v))
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

func toRow(key string, value []byte) []string {
	switch {
	case strings.HasPrefix(key, "msg:"):
		var msg storedMessage
		if err := json.Unmarshal(value, &msg); err != nil {
			return []string{key, "", "", "unmarshal failed: " + err.Error()}
		}
		displayID := msg.ID
		if len(displayID) > 8 {
			displayID = displayID[:8]
		}
		return []string{key, displayID, msg.Username, fmt.Sprintf("[%s] %s", msg.Lang, msg.Content)}
	case strings.HasPrefix(key, "user:id:"):
		var user storedUser
		if err := json.Unmarshal(value, &user); err != nil {
			return []string{key, "", "", "unmarshal failed: " + err.Error()}
		}
		displayID := user.ID
		if len(displayID) > 8 {
			displayID = displayID[:8]
		}
		return []string{key, displayID, user.Username, "roles: " + strings.Join(user.Roles, ",")}
	default:
		return []string{key, "", "", string(value)}
	}
}

func openDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true).
		WithValueLogFileSize(10 * 1024 * 1024)

	return badger.Open(opts)
}
