package database

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"postforum/models"
)

// DefaultGroupID is the group requests fall back to when no domain matches.
const DefaultGroupID = 1

type table struct {
	name string
	ddl  string
}

var tables = []table{
	{"users", `
        CREATE TABLE IF NOT EXISTS users (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT NOT NULL,
            email TEXT UNIQUE NOT NULL,
            password TEXT NOT NULL,
            is_moderator BOOLEAN NOT NULL DEFAULT FALSE,
            session_token TEXT DEFAULT '',
            session_expires DATETIME,
            created_at DATETIME NOT NULL
        )`},
	{"user_groups", `
        CREATE TABLE IF NOT EXISTS user_groups (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT UNIQUE NOT NULL,
            domain TEXT UNIQUE NOT NULL,
            public BOOLEAN NOT NULL DEFAULT TRUE
        )`},
	{"posts", `
        CREATE TABLE IF NOT EXISTS posts (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            type INTEGER NOT NULL,
            status INTEGER NOT NULL DEFAULT 0,
            title TEXT NOT NULL DEFAULT '',
            content TEXT NOT NULL,
            author_id INTEGER NOT NULL,
            parent_id INTEGER,
            root_id INTEGER,
            group_id INTEGER NOT NULL DEFAULT 1,
            view_count INTEGER NOT NULL DEFAULT 0,
            vote_count INTEGER NOT NULL DEFAULT 0,
            reply_count INTEGER NOT NULL DEFAULT 0,
            created_at DATETIME NOT NULL,
            updated_at DATETIME NOT NULL,
            FOREIGN KEY (author_id) REFERENCES users (id) ON DELETE CASCADE,
            FOREIGN KEY (parent_id) REFERENCES posts (id) ON DELETE CASCADE,
            FOREIGN KEY (group_id) REFERENCES user_groups (id)
        )`},
	{"posts_root_index", `CREATE INDEX IF NOT EXISTS posts_root_id ON posts (root_id)`},
	{"tags", `
        CREATE TABLE IF NOT EXISTS tags (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT UNIQUE NOT NULL
        )`},
	{"post_tags", `
        CREATE TABLE IF NOT EXISTS post_tags (
            post_id INTEGER NOT NULL,
            tag_id INTEGER NOT NULL,
            PRIMARY KEY (post_id, tag_id),
            FOREIGN KEY (post_id) REFERENCES posts (id) ON DELETE CASCADE,
            FOREIGN KEY (tag_id) REFERENCES tags (id) ON DELETE CASCADE
        )`},
	{"votes", `
        CREATE TABLE IF NOT EXISTS votes (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            author_id INTEGER NOT NULL,
            post_id INTEGER NOT NULL,
            type INTEGER NOT NULL,
            created_at DATETIME NOT NULL,
            UNIQUE (author_id, post_id, type),
            FOREIGN KEY (author_id) REFERENCES users (id) ON DELETE CASCADE,
            FOREIGN KEY (post_id) REFERENCES posts (id) ON DELETE CASCADE
        )`},
	{"post_views", `
        CREATE TABLE IF NOT EXISTS post_views (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            ip TEXT NOT NULL,
            post_id INTEGER NOT NULL,
            created_at DATETIME NOT NULL,
            FOREIGN KEY (post_id) REFERENCES posts (id) ON DELETE CASCADE
        )`},
	{"post_views_index", `CREATE INDEX IF NOT EXISTS post_views_lookup ON post_views (post_id, ip, created_at)`},
}

// InitDB opens the SQLite file at path and creates the schema.
func InitDB(path string, logger *zap.Logger) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, err
	}

	if err := createTables(db, logger); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func createTables(db *sql.DB, logger *zap.Logger) error {
	for _, t := range tables {
		if _, err := db.Exec(t.ddl); err != nil {
			logger.Error("Error creating table", zap.String("table", t.name), zap.Error(err))
			return fmt.Errorf("create %s: %w", t.name, err)
		}
		logger.Debug("table created or already exists", zap.String("table", t.name))
	}

	_, err := db.Exec(`
        INSERT OR IGNORE INTO user_groups (id, name, domain, public)
        VALUES (?, 'Default', ?, TRUE)
    `, DefaultGroupID, models.DefaultDomain)
	if err != nil {
		logger.Error("Error inserting default group", zap.Error(err))
		return fmt.Errorf("seed default group: %w", err)
	}
	return nil
}
