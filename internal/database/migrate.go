package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema creates every table if it does not exist yet. Foreign keys follow
// the catalog rules: a deleted genre nulls its movies, a deleted movie takes
// its sessions (and their bookings) with it, and a hall cannot be deleted
// while sessions reference it.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		username      VARCHAR(150) NOT NULL,
		email         VARCHAR(254) NOT NULL DEFAULT '',
		first_name    VARCHAR(150) NOT NULL DEFAULT '',
		last_name     VARCHAR(150) NOT NULL DEFAULT '',
		password_hash VARCHAR(255) NOT NULL,
		is_staff      BOOLEAN NOT NULL DEFAULT FALSE,
		is_active     BOOLEAN NOT NULL DEFAULT TRUE,
		created_at    DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
		UNIQUE KEY uq_users_username (username),
		KEY ix_users_email (email)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS auth_tokens (
		id         BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		user_id    BIGINT UNSIGNED NOT NULL,
		kind       VARCHAR(16) NOT NULL,
		token_hash CHAR(64) NOT NULL,
		expires_at DATETIME(6) NOT NULL,
		revoked_at DATETIME(6) NULL,
		created_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
		UNIQUE KEY uq_auth_tokens_hash (token_hash),
		KEY ix_auth_tokens_user (user_id, kind),
		CONSTRAINT fk_auth_tokens_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS genres (
		id   BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(100) COLLATE utf8mb4_bin NOT NULL,
		slug VARCHAR(120) COLLATE utf8mb4_bin NOT NULL,
		UNIQUE KEY uq_genres_name (name),
		UNIQUE KEY uq_genres_slug (slug)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS movies (
		id               BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		title            VARCHAR(200) COLLATE utf8mb4_bin NOT NULL,
		description      TEXT NOT NULL,
		duration_minutes INT UNSIGNED NOT NULL DEFAULT 90,
		genre_id         BIGINT UNSIGNED NULL,
		poster_url       VARCHAR(500) NOT NULL DEFAULT '',
		UNIQUE KEY uq_movies_title (title),
		CONSTRAINT fk_movies_genre FOREIGN KEY (genre_id) REFERENCES genres(id) ON DELETE SET NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS halls (
		id            BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		name          VARCHAR(100) COLLATE utf8mb4_bin NOT NULL,
		` + "`rows`" + `        INT UNSIGNED NOT NULL DEFAULT 5,
		seats_per_row INT UNSIGNED NOT NULL DEFAULT 10,
		UNIQUE KEY uq_halls_name (name)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS sessions (
		id         BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		movie_id   BIGINT UNSIGNED NOT NULL,
		hall_id    BIGINT UNSIGNED NOT NULL,
		start_time DATETIME(6) NOT NULL,
		price      DECIMAL(6,2) NOT NULL DEFAULT 8.00,
		UNIQUE KEY uq_sessions_slot (movie_id, hall_id, start_time),
		KEY ix_sessions_movie_start (movie_id, start_time),
		CONSTRAINT fk_sessions_movie FOREIGN KEY (movie_id) REFERENCES movies(id) ON DELETE CASCADE,
		CONSTRAINT fk_sessions_hall FOREIGN KEY (hall_id) REFERENCES halls(id) ON DELETE RESTRICT
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS bookings (
		id          BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		user_id     BIGINT UNSIGNED NOT NULL,
		session_id  BIGINT UNSIGNED NOT NULL,
		quantity    INT UNSIGNED NOT NULL DEFAULT 1,
		total_price DECIMAL(8,2) NOT NULL,
		created_at  DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
		KEY ix_bookings_user_created (user_id, created_at),
		CONSTRAINT fk_bookings_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
		CONSTRAINT fk_bookings_session FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate applies the schema. Statements are idempotent so Migrate can run
// on every start.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i+1, err)
		}
	}
	return nil
}
