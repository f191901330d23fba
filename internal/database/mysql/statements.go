package mysql

import (
	"database/sql"
	"fmt"
)

func (s *MySql) prepareStmt(name, query string) (*sql.Stmt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if stmt, ok := s.statements[name]; ok {
		return stmt, nil
	}

	stmt, err := s.db.Prepare(query)
	if err != nil {
		return nil, fmt.Errorf("prepare statement [%s]: %w", name, err)
	}

	s.statements[name] = stmt
	return stmt, nil
}

func (s *MySql) closeStmt() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for name, stmt := range s.statements {
		_ = stmt.Close()
		delete(s.statements, name)
	}
}

func (s *MySql) stmtSelectCode() (*sql.Stmt, error) {
	return s.prepareStmt("selectCode",
		`SELECT code, status, device_id, activated_at, activated_ip, expires_at, batch_id, IFNULL(metadata, ''), created_at
		   FROM authorization_codes WHERE code = ?`)
}

func (s *MySql) stmtActivateCode() (*sql.Stmt, error) {
	return s.prepareStmt("activateCode",
		`UPDATE authorization_codes
		    SET status = ?, device_id = ?, activated_at = ?, activated_ip = ?
		  WHERE code = ? AND status = ?`)
}

func (s *MySql) stmtInsertCode() (*sql.Stmt, error) {
	return s.prepareStmt("insertCode",
		`INSERT IGNORE INTO authorization_codes (code, status, expires_at, batch_id, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`)
}

func (s *MySql) stmtUpdateCodeStatus() (*sql.Stmt, error) {
	return s.prepareStmt("updateCodeStatus",
		`UPDATE authorization_codes SET status = ? WHERE code = ?`)
}

func (s *MySql) stmtInsertUsage() (*sql.Stmt, error) {
	return s.prepareStmt("insertUsage",
		`INSERT INTO usage_records (record_id, code, user_id, device_id, baby_info, names, generation_time, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
}

func (s *MySql) stmtSelectUsagePage() (*sql.Stmt, error) {
	return s.prepareStmt("selectUsagePage",
		`SELECT record_id, code, user_id, device_id, baby_info, names, generation_time, created_at
		   FROM usage_records WHERE user_id = ?
		  ORDER BY created_at DESC LIMIT ? OFFSET ?`)
}

func (s *MySql) stmtSelectUsage() (*sql.Stmt, error) {
	return s.prepareStmt("selectUsage",
		`SELECT record_id, code, user_id, device_id, baby_info, names, generation_time, created_at
		   FROM usage_records WHERE record_id = ?`)
}

func (s *MySql) stmtCountUsage() (*sql.Stmt, error) {
	return s.prepareStmt("countUsage",
		`SELECT COUNT(*) FROM usage_records WHERE user_id = ?`)
}

func (s *MySql) stmtInsertFavorite() (*sql.Stmt, error) {
	return s.prepareStmt("insertFavorite",
		`INSERT INTO favorites (favorite_id, user_id, name_id, name, created_at)
		 VALUES (?, ?, ?, ?, ?)`)
}

func (s *MySql) stmtSelectFavorite() (*sql.Stmt, error) {
	return s.prepareStmt("selectFavorite",
		`SELECT favorite_id, user_id, name_id, name, created_at
		   FROM favorites WHERE favorite_id = ?`)
}

func (s *MySql) stmtSelectFavoriteByName() (*sql.Stmt, error) {
	return s.prepareStmt("selectFavoriteByName",
		`SELECT favorite_id, user_id, name_id, name, created_at
		   FROM favorites WHERE user_id = ? AND name_id = ?`)
}

func (s *MySql) stmtSelectFavorites() (*sql.Stmt, error) {
	return s.prepareStmt("selectFavorites",
		`SELECT favorite_id, user_id, name_id, name, created_at
		   FROM favorites WHERE user_id = ?
		  ORDER BY created_at DESC LIMIT ?`)
}

func (s *MySql) stmtDeleteFavorite() (*sql.Stmt, error) {
	return s.prepareStmt("deleteFavorite",
		`DELETE FROM favorites WHERE favorite_id = ?`)
}

func (s *MySql) stmtCountFavorites() (*sql.Stmt, error) {
	return s.prepareStmt("countFavorites",
		`SELECT COUNT(*) FROM favorites WHERE user_id = ?`)
}
