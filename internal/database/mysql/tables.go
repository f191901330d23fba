package mysql

import "fmt"

// createTables bootstraps the schema on first start. The unique key on
// authorization_codes.code backs the activation compare-and-set; baby info
// and generated names are stored as JSON documents.
func (s *MySql) createTables() error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS authorization_codes (
			id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
			code VARCHAR(32) NOT NULL,
			status VARCHAR(16) NOT NULL DEFAULT 'UNUSED',
			device_id VARCHAR(128) NOT NULL DEFAULT '',
			activated_at DATETIME NULL,
			activated_ip VARCHAR(64) NOT NULL DEFAULT '',
			expires_at DATETIME NULL,
			batch_id VARCHAR(64) NOT NULL DEFAULT '',
			metadata TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (id),
			UNIQUE KEY uq_code (code),
			KEY idx_status (status)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
		`CREATE TABLE IF NOT EXISTS usage_records (
			id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
			record_id VARCHAR(36) NOT NULL,
			code VARCHAR(32) NOT NULL,
			user_id VARCHAR(32) NOT NULL,
			device_id VARCHAR(128) NOT NULL,
			baby_info JSON NOT NULL,
			names JSON NOT NULL,
			generation_time BIGINT NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (id),
			UNIQUE KEY uq_record (record_id),
			KEY idx_user_created (user_id, created_at)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
		`CREATE TABLE IF NOT EXISTS favorites (
			id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
			favorite_id VARCHAR(36) NOT NULL,
			user_id VARCHAR(32) NOT NULL,
			name_id VARCHAR(36) NOT NULL,
			name JSON NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (id),
			UNIQUE KEY uq_favorite (favorite_id),
			UNIQUE KEY uq_user_name (user_id, name_id)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	}

	for _, ddl := range tables {
		if _, err := s.db.Exec(ddl); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	return nil
}
