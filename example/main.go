package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	db "github.com/TechXTT/fluentdao"
	"github.com/TechXTT/fluentdao/internal/logger"
)

type Users struct {
	ID        uuid.UUID `db:"id"`
	FirstName string    `db:"first_name"`
	LastName  string    `db:"last_name"`
	Email     string    `db:"email"`
	CreatedAt time.Time `db:"created_at"`
}

func main() {
	ctx := context.Background()

	// 1) Connect to a scratch database
	dir, err := os.MkdirTemp("", "fluentdao-example")
	if err != nil {
		panic(fmt.Errorf("temp dir: %w", err))
	}
	defer os.RemoveAll(dir)

	conn, err := db.NewDB(ctx, "sqlite3", filepath.Join(dir, "example.db"), db.WithLogger(logger.NewStandardLogger(os.Stderr)))
	if err != nil {
		panic(fmt.Errorf("connect: %w", err))
	}
	defer conn.Close()

	d := conn.DAO()
	if _, err := d.NativeExecute(ctx, `CREATE TABLE users (
		id TEXT PRIMARY KEY,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		created_at TIMESTAMP NOT NULL)`, nil); err != nil {
		panic(fmt.Errorf("create table: %w", err))
	}

	// 2) Create users in one transaction
	tx := conn.Transactional()
	err = tx.Invoke(ctx, func(ctx context.Context) error {
		for _, name := range [][2]string{{"Alice", "Smith"}, {"Bob", "Jones"}, {"Carol", "White"}} {
			u := &Users{
				ID:        uuid.New(),
				FirstName: name[0],
				LastName:  name[1],
				Email:     fmt.Sprintf("%s@example.com", name[0]),
				CreatedAt: time.Now().UTC(),
			}
			if err := d.Persist(ctx, u); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		panic(fmt.Errorf("insert users: %w", err))
	}
	fmt.Println("✅ Created 3 users")

	// 3) Query a page of them back
	page, err := db.Query[Users](conn).
		From("users").
		OrderBy("first_name").
		Offset(1).
		Limit(2).
		All(ctx)
	if err != nil {
		panic(fmt.Errorf("fetch users: %w", err))
	}
	for _, u := range page.All() {
		fmt.Printf("✅ Fetched user: %s %s %s (created %s)\n",
			u.ID, u.FirstName, u.LastName, u.CreatedAt.Format(time.RFC3339))
	}
	fmt.Printf("   %d of %d users\n", page.Len(), page.Total())

	// 4) Rename one without a transaction
	first := page.At(0)
	first.LastName = "Brown"
	if err := conn.NonTransactional().Invoke(ctx, func(ctx context.Context) error {
		return d.Merge(ctx, &first)
	}); err != nil {
		panic(fmt.Errorf("update user: %w", err))
	}
	row, found, err := d.ExecuteScalar(ctx, "SELECT last_name FROM users WHERE id = ?", []any{first.ID})
	if err != nil || !found {
		panic(fmt.Errorf("reload user: %v", err))
	}
	fmt.Printf("✅ Renamed %s to %s\n", first.FirstName, row["last_name"])
}
